// Package surface ties one drawing surface together: its backing store,
// overlay entities, undo history, projection and rotation, and the
// compositor that renders them.
package surface

import (
	stdimage "image"

	"geosketch/internal/history"
	"geosketch/internal/image"
	"geosketch/internal/logging"
	"geosketch/internal/overlay"
	"geosketch/internal/transform"
	"geosketch/pkg/colorutil"
	"geosketch/pkg/geometry"

	"github.com/rs/zerolog"
)

// ID identifies a surface within a workspace.
type ID int

// Kind selects between pixel and lon/lat logical spaces.
type Kind int

const (
	KindFreehand Kind = iota
	KindGeo
)

func (k Kind) String() string {
	switch k {
	case KindFreehand:
		return "freehand"
	case KindGeo:
		return "geo"
	default:
		return "unknown"
	}
}

// Options configures a new session.
type Options struct {
	Width        int
	Height       int
	Padding      float64
	HistoryDepth int
	Projector    transform.Projector
}

// State is one history entry. Shapes are only recorded for geo surfaces,
// which keep them as vectors instead of pixels.
type State struct {
	Pixels image.Snapshot
	Shapes []overlay.Shape
}

// Session is the state of a single surface.
type Session struct {
	id   ID
	kind Kind

	store      *image.BackingStore
	overlays   *overlay.Registry
	history    *history.Record[State]
	projection transform.Projection
	rotation   float64

	preview     *image.Layer
	cursor      *image.Layer
	textOverlay *image.Layer

	pending []geometry.Point2D
	view    *stdimage.RGBA
	layers  layers
	log     zerolog.Logger
}

// New creates a session with an empty history. Call Init to record the
// baseline.
func New(id ID, kind Kind, opts Options) *Session {
	if opts.Width <= 0 {
		opts.Width = 800
	}
	if opts.Height <= 0 {
		opts.Height = 600
	}
	size := geometry.Size{Width: float64(opts.Width), Height: float64(opts.Height)}

	s := &Session{
		id:          id,
		kind:        kind,
		overlays:    overlay.NewRegistry(),
		history:     history.New[State](opts.HistoryDepth),
		preview:     image.NewLayer("preview", opts.Width, opts.Height),
		cursor:      image.NewLayer("cursor", opts.Width, opts.Height),
		textOverlay: image.NewLayer("text", opts.Width, opts.Height),
		view:        stdimage.NewRGBA(stdimage.Rect(0, 0, opts.Width, opts.Height)),
		log:         logging.Component("surface").With().Int("surface", int(id)).Str("kind", kind.String()).Logger(),
	}
	s.preview.Visible = false
	s.cursor.Visible = false
	s.textOverlay.Visible = false

	switch kind {
	case KindGeo:
		s.store = image.NewBackingStore(opts.Width, opts.Height, colorutil.Transparent)
		s.projection = transform.NewGeo(transform.BoundsOf(nil), size, opts.Padding, opts.Projector)
	default:
		s.store = image.NewBackingStore(opts.Width, opts.Height, colorutil.White)
		s.projection = transform.Identity(size)
	}
	return s
}

// Init records the baseline when the store is still blank. A store that
// already holds content is left without history until it is activated.
func (s *Session) Init() {
	if s.history.Depth() == 0 && !s.store.HasContent() {
		s.Commit()
	}
	s.Redraw()
}

// ID returns the surface id.
func (s *Session) ID() ID { return s.id }

// Kind returns the surface kind.
func (s *Session) Kind() Kind { return s.kind }

// IsGeo reports whether logical space is lon/lat.
func (s *Session) IsGeo() bool { return s.kind == KindGeo }

// Store returns the backing store.
func (s *Session) Store() *image.BackingStore { return s.store }

// Overlays returns the overlay registry.
func (s *Session) Overlays() *overlay.Registry { return s.overlays }

// History returns the undo record.
func (s *Session) History() *history.Record[State] { return s.history }

// Projection returns the logical to screen mapping.
func (s *Session) Projection() transform.Projection { return s.projection }

// Preview returns the shape and guideline preview layer.
func (s *Session) Preview() *image.Layer { return s.preview }

// Cursor returns the eraser cursor layer.
func (s *Session) Cursor() *image.Layer { return s.cursor }

// TextOverlay returns the layer marking a pending text entry.
func (s *Session) TextOverlay() *image.Layer { return s.textOverlay }

// Size returns the surface size in pixels.
func (s *Session) Size() geometry.Size { return s.projection.Size }

// Rotation returns the view angle in degrees.
func (s *Session) Rotation() float64 { return s.rotation }

// Pivot returns the screen point the view rotates about.
func (s *Session) Pivot() geometry.Point2D { return s.projection.Pivot() }

// SetRotation sets the view angle and redraws. Content is not resampled.
func (s *Session) SetRotation(deg float64) {
	s.rotation = transform.NormalizeAngle(deg)
	s.log.Debug().Float64("rotation", s.rotation).Msg("rotate")
	s.Redraw()
}

// SetFeatures replaces the base features of a geo surface and refits the
// projection to their bounds.
func (s *Session) SetFeatures(fs []overlay.Feature) {
	s.overlays.SetFeatures(fs)
	if s.IsGeo() {
		p := s.projection
		s.projection = transform.NewGeo(transform.BoundsOf(s.overlays.FeaturePoints()), p.Size, p.Padding, p.Projector)
	}
	s.invalidateLayers()
	s.Redraw()
}

// ScreenToModel undoes the view rotation.
func (s *Session) ScreenToModel(p geometry.Point2D) geometry.Point2D {
	return transform.InverseRotate(p, s.Pivot(), s.rotation)
}

// ModelToScreen applies the view rotation.
func (s *Session) ModelToScreen(p geometry.Point2D) geometry.Point2D {
	return transform.Rotate(p, s.Pivot(), s.rotation)
}

// ModelToLogical converts backing-store pixels to logical coordinates.
func (s *Session) ModelToLogical(p geometry.Point2D) geometry.Point2D {
	return s.projection.ToLogical(p)
}

// LogicalToModel converts logical coordinates to backing-store pixels.
func (s *Session) LogicalToModel(p geometry.Point2D) geometry.Point2D {
	return s.projection.Unrotated(p)
}

// LogicalToScreen projects and rotates a logical point.
func (s *Session) LogicalToScreen(p geometry.Point2D) geometry.Point2D {
	return s.projection.ToScreen(p, s.rotation, s.Pivot())
}

// ScreenToLogical is the inverse of LogicalToScreen.
func (s *Session) ScreenToLogical(p geometry.Point2D) geometry.Point2D {
	return s.projection.ToLogical(s.ScreenToModel(p))
}

// PixelsPerUnit scales logical lengths to model pixels.
func (s *Session) PixelsPerUnit() float64 { return s.projection.PixelsPerUnit() }

// AddPending appends a model-space point to the pending polygon.
func (s *Session) AddPending(p geometry.Point2D) {
	s.pending = append(s.pending, p)
}

// Pending returns a copy of the pending polygon.
func (s *Session) Pending() []geometry.Point2D {
	return append([]geometry.Point2D(nil), s.pending...)
}

// ClearPending discards the pending polygon.
func (s *Session) ClearPending() {
	s.pending = nil
}

// ClearTransient hides and wipes the preview and text layers and the
// pending polygon.
func (s *Session) ClearTransient() {
	s.ClearPending()
	s.preview.Clear()
	s.preview.Visible = false
	s.textOverlay.Clear()
	s.textOverlay.Visible = false
}

func (s *Session) capture() State {
	st := State{Pixels: s.store.Capture()}
	if s.IsGeo() {
		st.Shapes = s.overlays.Shapes()
	}
	return st
}

func (s *Session) restore(st State) {
	if err := s.store.Restore(st.Pixels); err != nil {
		s.log.Warn().Err(err).Msg("restore failed")
		return
	}
	if s.IsGeo() {
		s.overlays.SetShapes(st.Shapes)
	}
}

// Commit records the current state as a new undo entry.
func (s *Session) Commit() {
	s.history.Commit(s.capture())
	s.log.Debug().Int("depth", s.history.Depth()).Msg("commit")
}

// EnsureBaseline commits the current content when the session has no
// history yet but is not blank.
func (s *Session) EnsureBaseline() bool {
	if s.history.Depth() > 0 || !s.store.HasContent() {
		return false
	}
	s.Commit()
	return true
}

// Undo restores the previous state. It reports whether anything changed.
func (s *Session) Undo() bool {
	st, ok := s.history.Undo()
	if !ok {
		return false
	}
	s.restore(st)
	s.log.Debug().Int("depth", s.history.Depth()).Int("redo", s.history.RedoDepth()).Msg("undo")
	s.Redraw()
	return true
}

// Redo reapplies the last undone state. It reports whether anything changed.
func (s *Session) Redo() bool {
	st, ok := s.history.Redo()
	if !ok {
		return false
	}
	s.restore(st)
	s.log.Debug().Int("depth", s.history.Depth()).Int("redo", s.history.RedoDepth()).Msg("redo")
	s.Redraw()
	return true
}

// ClearRedo drops the redo stack.
func (s *Session) ClearRedo() {
	s.history.ClearRedo()
}

// Clear wipes raster and user overlays, resets rotation and restarts
// history from the blank state.
func (s *Session) Clear() {
	s.store.Clear()
	s.overlays.Clear()
	s.ClearTransient()
	s.cursor.Clear()
	s.cursor.Visible = false
	s.rotation = 0
	s.history.Reset(s.capture())
	s.log.Debug().Msg("clear")
	s.Redraw()
}

// LoadImage draws an image file into the backing store. Once the session
// has history the load is committed.
func (s *Session) LoadImage(path string) error {
	if err := s.store.LoadImage(path); err != nil {
		return err
	}
	if s.history.Depth() > 0 {
		s.Commit()
	}
	s.Redraw()
	return nil
}

// Revert drops uncommitted raster changes by restoring the current history
// entry.
func (s *Session) Revert() {
	if st, ok := s.history.Current(); ok {
		s.restore(st)
	}
}
