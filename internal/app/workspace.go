// Package app owns the set of mounted surfaces, the shared tool machine and
// the events the UI listens to.
package app

import (
	"errors"
	"fmt"
	stdimage "image"
	"sort"
	"sync"

	"geosketch/internal/config"
	"geosketch/internal/export"
	"geosketch/internal/logging"
	"geosketch/internal/overlay"
	"geosketch/internal/surface"
	"geosketch/internal/tool"
	"geosketch/internal/transform"
	"geosketch/pkg/geometry"

	"github.com/peterstace/simplefeatures/geom"
	"github.com/rs/zerolog"
)

// ErrSurfaceNotFound is returned for ids that were never mounted.
var ErrSurfaceNotFound = errors.New("surface not found")

// EventType identifies workspace events.
type EventType int

const (
	// EventSurfaceMounted carries the new surface.ID.
	EventSurfaceMounted EventType = iota
	// EventSurfaceChanged carries the surface.ID whose image was redrawn.
	EventSurfaceChanged
	// EventActiveChanged carries the newly active surface.ID.
	EventActiveChanged
	// EventConfigChanged carries the new tool.Config.
	EventConfigChanged
)

// EventListener is called when an event occurs.
type EventListener func(data interface{})

// Workspace holds every mounted surface. All methods are safe to call from
// the UI goroutine and from collaborator callbacks.
type Workspace struct {
	mu        sync.Mutex
	settings  *config.Settings
	sessions  map[surface.ID]*surface.Session
	active    surface.ID
	hasActive bool
	machine   *tool.Machine
	projector transform.Projector

	lmu       sync.RWMutex
	listeners map[EventType][]EventListener

	log zerolog.Logger
}

// NewWorkspace creates an empty workspace. text and chooser may be nil, in
// which case text, annotation and category requests are ignored.
func NewWorkspace(settings *config.Settings, text tool.TextEntry, chooser tool.Chooser) (*Workspace, error) {
	if settings == nil {
		settings = config.Default()
	}
	cfg, err := tool.ConfigFromSettings(settings.Tool)
	if err != nil {
		return nil, err
	}

	w := &Workspace{
		settings:  settings,
		sessions:  make(map[surface.ID]*surface.Session),
		projector: transform.ProjectorByName(settings.Projection),
		listeners: make(map[EventType][]EventListener),
		log:       logging.Component("workspace"),
	}

	var te tool.TextEntry
	if text != nil {
		te = lockedText{w: w, next: text}
	}
	var ch tool.Chooser
	if chooser != nil {
		ch = lockedChooser{w: w, next: chooser}
	}
	w.machine = tool.NewMachine(cfg, tool.Options{
		HitRadius:  settings.HitRadius,
		Categories: settings.PinCategories,
	}, te, ch)
	return w, nil
}

// On registers an event listener for the specified event type.
func (w *Workspace) On(event EventType, listener EventListener) {
	w.lmu.Lock()
	defer w.lmu.Unlock()
	w.listeners[event] = append(w.listeners[event], listener)
}

// Emit triggers all listeners for the specified event type.
func (w *Workspace) Emit(event EventType, data interface{}) {
	w.lmu.RLock()
	listeners := w.listeners[event]
	w.lmu.RUnlock()

	for _, listener := range listeners {
		listener(data)
	}
}

// Settings returns the settings the workspace was created with.
func (w *Workspace) Settings() *config.Settings { return w.settings }

func (w *Workspace) options(kind surface.Kind) surface.Options {
	sc := w.settings.Freehand
	if kind == surface.KindGeo {
		sc = w.settings.Geo
	}
	return surface.Options{
		Width:        sc.Width,
		Height:       sc.Height,
		Padding:      w.settings.Padding,
		HistoryDepth: w.settings.HistoryDepth,
		Projector:    w.projector,
	}
}

// Mount creates the surface id if it does not exist yet and records its
// baseline. Mounting an existing id returns it unchanged.
func (w *Workspace) Mount(id surface.ID, kind surface.Kind) *surface.Session {
	w.mu.Lock()
	s, ok := w.sessions[id]
	if !ok {
		s = surface.New(id, kind, w.options(kind))
		s.Init()
		w.sessions[id] = s
		w.log.Debug().Int("surface", int(id)).Str("kind", kind.String()).Msg("mounted")
	}
	w.mu.Unlock()

	if !ok {
		w.Emit(EventSurfaceMounted, id)
	}
	return s
}

// MountImage mounts a freehand surface whose backing store starts with the
// image at path. The surface has no history until it is first activated.
func (w *Workspace) MountImage(id surface.ID, path string) (*surface.Session, error) {
	w.mu.Lock()
	if _, ok := w.sessions[id]; ok {
		w.mu.Unlock()
		return nil, fmt.Errorf("surface %d already mounted", id)
	}
	s := surface.New(id, surface.KindFreehand, w.options(surface.KindFreehand))
	if err := s.LoadImage(path); err != nil {
		w.mu.Unlock()
		return nil, fmt.Errorf("mount surface %d: %w", id, err)
	}
	s.Init()
	w.sessions[id] = s
	w.mu.Unlock()

	w.Emit(EventSurfaceMounted, id)
	return s, nil
}

// Session returns a mounted surface.
func (w *Workspace) Session(id surface.ID) (*surface.Session, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	s, ok := w.sessions[id]
	return s, ok
}

// IDs returns the mounted surface ids in ascending order.
func (w *Workspace) IDs() []surface.ID {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.sortedIDs()
}

func (w *Workspace) sortedIDs() []surface.ID {
	ids := make([]surface.ID, 0, len(w.sessions))
	for id := range w.sessions {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Active returns the active surface id.
func (w *Workspace) Active() (surface.ID, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.active, w.hasActive
}

// SetActive directs tool events to id. The newly active surface loses its
// redo entries, and gets a baseline if it has content but no history.
func (w *Workspace) SetActive(id surface.ID) {
	w.mu.Lock()
	changed := w.activate(id)
	w.mu.Unlock()

	if changed {
		w.Emit(EventActiveChanged, id)
	}
}

func (w *Workspace) activate(id surface.ID) bool {
	s, ok := w.sessions[id]
	if !ok {
		w.log.Debug().Int("surface", int(id)).Msg("activate: unknown surface")
		return false
	}
	if w.hasActive && w.active == id {
		return false
	}
	w.machine.Bind(s)
	s.ClearRedo()
	if s.EnsureBaseline() {
		w.log.Debug().Int("surface", int(id)).Msg("baseline recorded on activation")
	}
	w.active, w.hasActive = id, true
	return true
}

// with runs fn on surface id under the lock and reports whether it ran.
func (w *Workspace) with(id surface.ID, fn func(s *surface.Session)) bool {
	w.mu.Lock()
	s, ok := w.sessions[id]
	if !ok {
		w.mu.Unlock()
		w.log.Debug().Int("surface", int(id)).Msg("unknown surface")
		return false
	}
	fn(s)
	w.mu.Unlock()

	w.Emit(EventSurfaceChanged, id)
	return true
}

// Undo restores the previous state of id.
func (w *Workspace) Undo(id surface.ID) bool {
	done := false
	w.with(id, func(s *surface.Session) { done = s.Undo() })
	return done
}

// Redo reapplies the last undone state of id.
func (w *Workspace) Redo(id surface.ID) bool {
	done := false
	w.with(id, func(s *surface.Session) { done = s.Redo() })
	return done
}

// SetRotation sets the view rotation of id in degrees.
func (w *Workspace) SetRotation(id surface.ID, deg float64) {
	w.with(id, func(s *surface.Session) { s.SetRotation(deg) })
}

// Clear wipes id and restarts its history.
func (w *Workspace) Clear(id surface.ID) {
	w.with(id, func(s *surface.Session) {
		if w.hasActive && w.active == id {
			w.machine.Reset()
		}
		s.Clear()
	})
}

// SetFeatures replaces the base features of a geo surface.
func (w *Workspace) SetFeatures(id surface.ID, fs []overlay.Feature) {
	w.with(id, func(s *surface.Session) {
		if !s.IsGeo() {
			w.log.Warn().Int("surface", int(id)).Msg("base features ignored on freehand surface")
			return
		}
		s.SetFeatures(fs)
	})
}

// LoadFeatures converts a decoded feature collection and installs it as the
// base features of id. It returns how many features were skipped.
func (w *Workspace) LoadFeatures(id surface.ID, fc geom.GeoJSONFeatureCollection) (int, error) {
	if _, ok := w.Session(id); !ok {
		return 0, fmt.Errorf("surface %d: %w", id, ErrSurfaceNotFound)
	}
	fs, skipped := overlay.FeaturesFromCollection(fc)
	if skipped > 0 {
		w.log.Warn().Int("surface", int(id)).Int("skipped", skipped).Msg("unsupported base geometries")
	}
	w.SetFeatures(id, fs)
	return skipped, nil
}

// LoadImage draws an image file into the backing store of id.
func (w *Workspace) LoadImage(id surface.ID, path string) error {
	var err error
	if !w.with(id, func(s *surface.Session) { err = s.LoadImage(path) }) {
		return fmt.Errorf("surface %d: %w", id, ErrSurfaceNotFound)
	}
	return err
}

// Config returns the shared tool configuration.
func (w *Workspace) Config() tool.Config {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.machine.Config()
}

// SetConfig replaces the shared tool configuration.
func (w *Workspace) SetConfig(cfg tool.Config) {
	w.mu.Lock()
	w.machine.SetConfig(cfg)
	id, active := w.active, w.hasActive
	w.mu.Unlock()

	w.Emit(EventConfigChanged, cfg)
	if active {
		w.Emit(EventSurfaceChanged, id)
	}
}

// SetTool switches the shared tool.
func (w *Workspace) SetTool(t tool.Tool) {
	cfg := w.Config()
	cfg.Tool = t
	w.SetConfig(cfg)
}

// SetMode switches the shared mode.
func (w *Workspace) SetMode(m tool.Mode) {
	cfg := w.Config()
	cfg.Mode = m
	w.SetConfig(cfg)
}

// ToolState returns the gesture state of the tool machine.
func (w *Workspace) ToolState() tool.State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.machine.State()
}

// dispatch forwards a pointer event to the machine when id is active.
// A press on another surface activates it first.
func (w *Workspace) dispatch(id surface.ID, press bool, fn func(m *tool.Machine)) {
	w.mu.Lock()
	activated := false
	if !w.hasActive || w.active != id {
		if !press {
			w.mu.Unlock()
			return
		}
		if activated = w.activate(id); !activated {
			w.mu.Unlock()
			return
		}
	}
	fn(w.machine)
	w.mu.Unlock()

	if activated {
		w.Emit(EventActiveChanged, id)
	}
	w.Emit(EventSurfaceChanged, id)
}

// PointerDown forwards a press at screen point p on surface id.
func (w *Workspace) PointerDown(id surface.ID, p geometry.Point2D) {
	w.dispatch(id, true, func(m *tool.Machine) { m.PointerDown(p) })
}

// PointerMove forwards pointer motion on surface id.
func (w *Workspace) PointerMove(id surface.ID, p geometry.Point2D) {
	w.dispatch(id, false, func(m *tool.Machine) { m.PointerMove(p) })
}

// PointerUp forwards a release on surface id.
func (w *Workspace) PointerUp(id surface.ID, p geometry.Point2D) {
	w.dispatch(id, false, func(m *tool.Machine) { m.PointerUp(p) })
}

// DoubleClick forwards a double click on surface id.
func (w *Workspace) DoubleClick(id surface.ID, p geometry.Point2D) {
	w.dispatch(id, false, func(m *tool.Machine) { m.DoubleClick(p) })
}

// PointerLeave forwards the pointer leaving surface id.
func (w *Workspace) PointerLeave(id surface.ID) {
	w.dispatch(id, false, func(m *tool.Machine) { m.PointerLeave() })
}

// Escape forwards an Escape key press to the active surface.
func (w *Workspace) Escape() {
	w.mu.Lock()
	id, ok := w.active, w.hasActive
	w.mu.Unlock()
	if ok {
		w.dispatch(id, false, func(m *tool.Machine) { m.Escape() })
	}
}

// CancelText abandons a pending text-tool entry.
func (w *Workspace) CancelText() {
	w.mu.Lock()
	w.machine.CancelText()
	id, ok := w.active, w.hasActive
	w.mu.Unlock()

	if ok {
		w.Emit(EventSurfaceChanged, id)
	}
}

// View returns a copy of the last composed image of id, safe to hand to a
// render goroutine.
func (w *Workspace) View(id surface.ID) (*stdimage.RGBA, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	s, ok := w.sessions[id]
	if !ok {
		return nil, fmt.Errorf("surface %d: %w", id, ErrSurfaceNotFound)
	}
	v := s.View()
	out := stdimage.NewRGBA(v.Bounds())
	copy(out.Pix, v.Pix)
	return out, nil
}

// RenderImage composes id into a new image without previews or cursors.
func (w *Workspace) RenderImage(id surface.ID) (*stdimage.RGBA, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	s, ok := w.sessions[id]
	if !ok {
		return nil, fmt.Errorf("surface %d: %w", id, ErrSurfaceNotFound)
	}
	return s.RenderImage(), nil
}

// ExportSurface returns the exportable state of id.
func (w *Workspace) ExportSurface(id surface.ID) (export.Surface, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	s, ok := w.sessions[id]
	if !ok {
		return export.Surface{}, fmt.Errorf("surface %d: %w", id, ErrSurfaceNotFound)
	}
	return export.FromSession(s), nil
}

// Export returns the exportable state of every mounted surface.
func (w *Workspace) Export() export.Document {
	w.mu.Lock()
	defer w.mu.Unlock()
	doc := export.Document{Surfaces: []export.Surface{}}
	for _, id := range w.sortedIDs() {
		doc.Surfaces = append(doc.Surfaces, export.FromSession(w.sessions[id]))
	}
	return doc
}

// lockedText serializes text-entry commits with the rest of the workspace.
type lockedText struct {
	w    *Workspace
	next tool.TextEntry
}

// RequestText is called by the machine with the workspace lock held, so the
// active id can be read directly.
func (l lockedText) RequestText(pos geometry.Point2D, initial string, commit func(string)) {
	id := l.w.active
	l.next.RequestText(pos, initial, func(text string) {
		l.w.callback(id, func() { commit(text) })
	})
}

// lockedChooser serializes chooser commits with the rest of the workspace.
type lockedChooser struct {
	w    *Workspace
	next tool.Chooser
}

func (l lockedChooser) Choose(title string, options []string, commit func(string)) {
	id := l.w.active
	l.next.Choose(title, options, func(choice string) {
		l.w.callback(id, func() { commit(choice) })
	})
}

func (w *Workspace) callback(id surface.ID, fn func()) {
	w.mu.Lock()
	fn()
	w.mu.Unlock()

	w.Emit(EventSurfaceChanged, id)
}
