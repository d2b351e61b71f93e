package tool

import (
	"math"
	"strings"

	"geosketch/internal/image"
	"geosketch/internal/logging"
	"geosketch/internal/overlay"
	"geosketch/internal/surface"
	"geosketch/pkg/colorutil"
	"geosketch/pkg/geometry"

	"github.com/rs/zerolog"
)

// State is the gesture in progress.
type State int

const (
	Idle State = iota
	DrawingFreehand
	DraggingShape
	BuildingPolygon
	AwaitingTextInput
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case DrawingFreehand:
		return "drawingFreehand"
	case DraggingShape:
		return "draggingShape"
	case BuildingPolygon:
		return "buildingPolygon"
	case AwaitingTextInput:
		return "awaitingTextInput"
	default:
		return "unknown"
	}
}

// Defaults for Options.
const (
	DefaultHitRadius    = 8.0
	VertexMarkerRadius  = 3.0
	CategoryChoiceTitle = "Select Category"
)

// Options tunes hit testing and the category chooser.
type Options struct {
	HitRadius  float64
	Categories []string
}

// Machine turns pointer and key events into surface mutations.
type Machine struct {
	cfg     Config
	opts    Options
	text    TextEntry
	chooser Chooser

	session *surface.Session
	state   State

	origin      geometry.Point2D // model space
	dragScreen  geometry.Point2D // screen space, for the preview
	request     int              // token of the latest collaborator prompt
	log         zerolog.Logger
}

// NewMachine returns an idle machine with no bound surface.
func NewMachine(cfg Config, opts Options, text TextEntry, chooser Chooser) *Machine {
	if opts.HitRadius <= 0 {
		opts.HitRadius = DefaultHitRadius
	}
	return &Machine{
		cfg:     cfg,
		opts:    opts,
		text:    text,
		chooser: chooser,
		log:     logging.Component("tool"),
	}
}

// Config returns the shared tool configuration.
func (m *Machine) Config() Config { return m.cfg }

// State returns the gesture state.
func (m *Machine) State() State { return m.state }

// Session returns the bound surface, if any.
func (m *Machine) Session() *surface.Session { return m.session }

// Bind directs events to s. Any gesture on the previous surface is ended as
// if the pointer had left it, and transient state there is dropped.
func (m *Machine) Bind(s *surface.Session) {
	if m.session == s {
		return
	}
	if m.session != nil {
		m.PointerLeave()
		m.abandonTransient()
	}
	m.session = s
	m.state = Idle
}

// Reset drops the gesture in progress without touching the surface. Prompts
// still outstanding are ignored when they complete.
func (m *Machine) Reset() {
	m.state = Idle
	m.request++
}

// SetConfig replaces the configuration. Switching tool or mode drops the
// pending polygon, the preview and any text entry.
func (m *Machine) SetConfig(cfg Config) {
	switching := cfg.Tool != m.cfg.Tool || cfg.Mode != m.cfg.Mode
	if switching && m.session != nil {
		m.PointerLeave()
		m.abandonTransient()
		m.session.Redraw()
	}
	m.cfg = cfg
	if switching {
		m.state = Idle
		m.log.Debug().Str("tool", string(cfg.Tool)).Str("mode", string(cfg.Mode)).Msg("tool changed")
	}
}

// SetTool switches tool.
func (m *Machine) SetTool(t Tool) {
	cfg := m.cfg
	cfg.Tool = t
	m.SetConfig(cfg)
}

// SetMode switches mode.
func (m *Machine) SetMode(md Mode) {
	cfg := m.cfg
	cfg.Mode = md
	m.SetConfig(cfg)
}

func (m *Machine) abandonTransient() {
	s := m.session
	if len(s.Pending()) > 0 && !s.IsGeo() {
		// Drop vertex markers and connectors that were never committed.
		s.Revert()
	}
	s.ClearTransient()
	m.request++
	if m.state == BuildingPolygon || m.state == AwaitingTextInput {
		m.state = Idle
	}
}

// PointerDown handles a press at a screen point.
func (m *Machine) PointerDown(p geometry.Point2D) {
	s := m.session
	if s == nil {
		return
	}
	if m.state == AwaitingTextInput {
		m.CancelText()
	}

	switch m.cfg.Mode {
	case ModeSelect:
		m.selectAt(p)
		return
	case ModeAddPin:
		pin := s.Overlays().AddPin(s.ScreenToLogical(p), "")
		m.log.Debug().Str("pin", pin.ID).Msg("pin added")
		s.Commit()
		s.Redraw()
		return
	case ModeAnnotate:
		m.requestAnnotation(p)
		return
	}

	model := s.ScreenToModel(p)
	switch {
	case m.cfg.Tool == Pencil || m.cfg.Tool == Eraser:
		m.origin = model
		m.state = DrawingFreehand
		m.freehandTo(model)
		m.updateCursor(p)
		s.Redraw()

	case m.cfg.Tool.IsShape():
		m.origin = model
		m.dragScreen = p
		m.state = DraggingShape

	case m.cfg.Tool.IsPolygon():
		m.addPolygonPoint(model)
		m.state = BuildingPolygon
		m.drawPolygonPreview(p)
		s.Redraw()

	case m.cfg.Tool == Text:
		m.requestText(p, model)
	}
}

// PointerMove handles pointer motion, pressed or not.
func (m *Machine) PointerMove(p geometry.Point2D) {
	s := m.session
	if s == nil {
		return
	}
	dirty := m.updateCursor(p)

	switch m.state {
	case DrawingFreehand:
		m.freehandTo(s.ScreenToModel(p))
		dirty = true
	case DraggingShape:
		m.drawShapePreview(p)
		dirty = true
	case BuildingPolygon:
		m.drawPolygonPreview(p)
		dirty = true
	}
	if dirty {
		s.Redraw()
	}
}

// PointerUp handles a release at a screen point.
func (m *Machine) PointerUp(p geometry.Point2D) {
	s := m.session
	if s == nil {
		return
	}
	switch m.state {
	case DrawingFreehand:
		m.state = Idle
		s.Commit()
		s.Redraw()
	case DraggingShape:
		m.state = Idle
		m.clearPreview()
		if m.finalizeShape(s.ScreenToModel(p)) {
			s.Commit()
		}
		s.Redraw()
	}
}

// DoubleClick completes a polygon with more than two points.
func (m *Machine) DoubleClick(geometry.Point2D) {
	if m.session == nil || m.state != BuildingPolygon {
		return
	}
	if len(m.session.Pending()) > 2 {
		m.completePolygon()
	}
}

// Escape completes a polygon with at least two points, cancels a text entry
// or discards a shape drag.
func (m *Machine) Escape() {
	if m.session == nil {
		return
	}
	switch m.state {
	case BuildingPolygon:
		if len(m.session.Pending()) >= 2 {
			m.completePolygon()
		}
	case AwaitingTextInput:
		m.CancelText()
	case DraggingShape:
		m.state = Idle
		m.clearPreview()
		m.session.Redraw()
	}
}

// PointerLeave ends a press gesture: a freehand stroke is committed as
// drawn, a shape drag is discarded. The eraser cursor is hidden.
func (m *Machine) PointerLeave() {
	s := m.session
	if s == nil {
		return
	}
	switch m.state {
	case DrawingFreehand:
		m.state = Idle
		s.Commit()
	case DraggingShape:
		m.state = Idle
		m.clearPreview()
	case BuildingPolygon:
		s.Preview().Clear()
		m.drawPendingMarkers()
	}
	s.Cursor().Clear()
	s.Cursor().Visible = false
	s.Redraw()
}

// SubmitText finishes a text entry started by the text tool.
func (m *Machine) SubmitText(text string) {
	m.submitText(m.request, m.origin, text)
}

// CancelText abandons a pending text entry.
func (m *Machine) CancelText() {
	if m.state != AwaitingTextInput {
		return
	}
	m.state = Idle
	m.request++
	if s := m.session; s != nil {
		s.TextOverlay().Clear()
		s.TextOverlay().Visible = false
		s.Redraw()
	}
}

func (m *Machine) freehandTo(model geometry.Point2D) {
	store := m.session.Store()
	if m.cfg.Tool == Eraser {
		store.Erase(model, m.cfg.EraserShape, m.cfg.EraserSize)
	} else {
		store.StrokeLine(m.origin, model, image.Style{Color: m.cfg.Color, Width: m.cfg.StrokeWidth, RoundCap: true})
	}
	m.origin = model
}

// updateCursor redraws the eraser outline and reports whether it changed.
func (m *Machine) updateCursor(p geometry.Point2D) bool {
	cur := m.session.Cursor()
	if m.cfg.Mode != ModeDraw || m.cfg.Tool != Eraser {
		if cur.Visible {
			cur.Clear()
			cur.Visible = false
			return true
		}
		return false
	}
	cur.Clear()
	st := image.Style{Color: colorutil.CursorOutline, Width: 1}
	half := m.cfg.EraserSize / 2
	if m.cfg.EraserShape == image.EraserSquare {
		r := geometry.Rect{X: p.X - half, Y: p.Y - half, Width: m.cfg.EraserSize, Height: m.cfg.EraserSize}
		image.StrokePathOn(cur.Image, geometry.ClosedRing(r.Corners()), st)
	} else {
		image.StrokeCircleOn(cur.Image, p, half, st)
	}
	cur.Visible = true
	return true
}

func (m *Machine) clearPreview() {
	pv := m.session.Preview()
	pv.Clear()
	pv.Visible = false
}

func (m *Machine) drawShapePreview(p geometry.Point2D) {
	pv := m.session.Preview()
	pv.Clear()
	pv.Visible = true
	st := image.Style{Color: m.cfg.Color, Width: m.cfg.StrokeWidth, RoundCap: true}
	switch m.cfg.Tool {
	case Line:
		st.Dash = m.cfg.LineDash.Pattern()
		image.StrokePathOn(pv.Image, []geometry.Point2D{m.dragScreen, p}, st)
	case Rectangle:
		st.Dash = m.cfg.RectangleDash.Pattern()
		r := geometry.RectFromCorners(m.dragScreen, p)
		image.StrokePathOn(pv.Image, geometry.ClosedRing(r.Corners()), st)
	case Circle:
		st.Dash = image.DashPreview
		image.StrokeCircleOn(pv.Image, m.dragScreen, m.dragScreen.Distance(p), st)
	}
}

// finalizeShape commits the dragged shape ending at model point end. A drag
// that never moved leaves nothing.
func (m *Machine) finalizeShape(end geometry.Point2D) bool {
	s := m.session
	start := m.origin
	if start == end {
		return false
	}
	col := m.cfg.FinalColor()

	if s.IsGeo() {
		sh := overlay.Shape{
			Kind:        overlay.ShapeKind(m.cfg.Tool),
			Color:       col,
			StrokeWidth: m.cfg.StrokeWidth,
			Dash:        overlay.DashSolid,
		}
		switch m.cfg.Tool {
		case Line:
			sh.Start, sh.End = s.ModelToLogical(start), s.ModelToLogical(end)
			sh.Dash = m.cfg.LineDash
		case Rectangle:
			sh.Start, sh.End = s.ModelToLogical(start), s.ModelToLogical(end)
			sh.Dash = m.cfg.RectangleDash
		case Circle:
			sh.Center = s.ModelToLogical(start)
			sh.Radius = start.Distance(end) / s.PixelsPerUnit()
		}
		s.Overlays().AddShape(sh)
		return true
	}

	store := s.Store()
	st := image.Style{Color: col, Width: m.cfg.StrokeWidth, RoundCap: true}
	switch m.cfg.Tool {
	case Line:
		st.Dash = m.cfg.LineDash.Pattern()
		store.StrokeLine(start, end, st)
	case Rectangle:
		st.Dash = m.cfg.RectangleDash.Pattern()
		st.RoundCap = false
		store.StrokeRect(geometry.RectFromCorners(start, end), st)
	case Circle:
		store.StrokeCircle(start, start.Distance(end), st)
	}
	return true
}

func (m *Machine) polygonStyle() image.Style {
	return image.Style{Color: m.cfg.Color, Width: m.cfg.StrokeWidth, RoundCap: true}
}

// addPolygonPoint appends a vertex. Freehand surfaces get the marker and
// connector in the raster right away; geo surfaces show them in the preview.
func (m *Machine) addPolygonPoint(model geometry.Point2D) {
	s := m.session
	prev := s.Pending()
	s.AddPending(model)
	if s.IsGeo() {
		return
	}
	store := s.Store()
	store.FillCircle(model, VertexMarkerRadius, m.cfg.Color)
	if len(prev) > 0 {
		store.StrokeLine(prev[len(prev)-1], model, m.polygonStyle())
	}
}

func (m *Machine) drawPendingMarkers() {
	s := m.session
	if !s.IsGeo() {
		return
	}
	pts := s.Pending()
	if len(pts) == 0 {
		return
	}
	pv := s.Preview()
	screen := make([]geometry.Point2D, len(pts))
	for i, p := range pts {
		screen[i] = s.ModelToScreen(p)
	}
	image.StrokePathOn(pv.Image, screen, m.polygonStyle())
	for _, p := range screen {
		image.FillCircleOn(pv.Image, p, VertexMarkerRadius, m.cfg.Color, nil)
	}
	pv.Visible = true
}

func (m *Machine) drawPolygonPreview(cursor geometry.Point2D) {
	s := m.session
	pts := s.Pending()
	pv := s.Preview()
	pv.Clear()
	pv.Visible = false
	if len(pts) == 0 {
		return
	}
	m.drawPendingMarkers()

	st := m.polygonStyle()
	st.Dash = image.DashPreview
	last := s.ModelToScreen(pts[len(pts)-1])
	image.StrokePathOn(pv.Image, []geometry.Point2D{last, cursor}, st)
	if m.cfg.Tool == ClosedPolygon && len(pts) > 2 {
		first := s.ModelToScreen(pts[0])
		image.StrokePathOn(pv.Image, []geometry.Point2D{cursor, first}, st)
	}
	pv.Visible = true
}

func (m *Machine) completePolygon() {
	s := m.session
	pts := s.Pending()
	if len(pts) < 2 {
		return
	}
	closed := m.cfg.Tool == ClosedPolygon

	if s.IsGeo() {
		logical := make([]geometry.Point2D, len(pts))
		for i, p := range pts {
			logical[i] = s.ModelToLogical(p)
		}
		s.Overlays().AddShape(overlay.Shape{
			Kind:        overlay.ShapePolygon,
			Points:      logical,
			Closed:      closed,
			Color:       m.cfg.Color,
			StrokeWidth: m.cfg.StrokeWidth,
			Dash:        overlay.DashSolid,
		})
	} else if closed && len(pts) > 2 {
		// Consecutive segments were drawn as each point was added.
		s.Store().StrokeLine(pts[len(pts)-1], pts[0], m.polygonStyle())
	}

	s.ClearPending()
	m.clearPreview()
	m.state = Idle
	s.Commit()
	s.Redraw()
	m.log.Debug().Int("points", len(pts)).Bool("closed", closed).Msg("polygon completed")
}

func (m *Machine) requestText(screen, model geometry.Point2D) {
	s := m.session
	m.state = AwaitingTextInput
	m.origin = model
	req := m.prompt()

	ov := s.TextOverlay()
	ov.Clear()
	size := m.cfg.TextSize()
	box := geometry.Rect{X: screen.X, Y: screen.Y, Width: math.Max(120, size*6), Height: size + 8}
	image.StrokePathOn(ov.Image, geometry.ClosedRing(box.Corners()), image.Style{Color: colorutil.CursorOutline, Width: 1, Dash: image.DashPreview})
	ov.Visible = true
	s.Redraw()

	if m.text == nil {
		return
	}
	m.text.RequestText(screen, "", func(text string) {
		m.submitText(req, model, text)
	})
}

func (m *Machine) submitText(req int, model geometry.Point2D, text string) {
	if m.state != AwaitingTextInput || req != m.request {
		return
	}
	s := m.session
	m.state = Idle
	s.TextOverlay().Clear()
	s.TextOverlay().Visible = false

	text = strings.TrimSpace(text)
	if text == "" {
		s.Redraw()
		return
	}
	size := m.cfg.TextSize()
	pos := geometry.Point2D{X: model.X, Y: model.Y + size}
	if err := s.Store().DrawText(pos, text, size, m.cfg.FinalColor()); err != nil {
		m.log.Warn().Err(err).Msg("text not drawn")
		s.Redraw()
		return
	}
	s.Commit()
	s.Redraw()
}

// prompt starts a collaborator request and returns its token. Starting
// another request, clearing or switching surfaces makes older tokens stale.
func (m *Machine) prompt() int {
	m.request++
	return m.request
}

// current reports whether a request made against s is still live.
func (m *Machine) current(req int, s *surface.Session) bool {
	return req == m.request && m.session == s
}

func (m *Machine) requestAnnotation(screen geometry.Point2D) {
	s := m.session
	logical := s.ScreenToLogical(screen)
	if m.text == nil {
		return
	}
	req := m.prompt()
	m.text.RequestText(screen, "", func(text string) {
		text = strings.TrimSpace(text)
		if text == "" || !m.current(req, s) {
			return
		}
		s.Overlays().AddAnnotation(logical, text)
		s.Redraw()
	})
}

// selectAt hit-tests pins, geo base points, annotation labels and finally
// geo base polygons.
func (m *Machine) selectAt(p geometry.Point2D) {
	s := m.session

	best, bestDist := "", math.Inf(1)
	feature := false
	for _, pin := range s.Overlays().Pins() {
		if d := s.LogicalToScreen(pin.Position).Distance(p); d <= m.opts.HitRadius && d < bestDist {
			best, bestDist, feature = pin.ID, d, false
		}
	}
	if s.IsGeo() {
		for _, f := range s.Overlays().Features() {
			if f.Kind != overlay.FeaturePoint {
				continue
			}
			if d := s.LogicalToScreen(f.Position()).Distance(p); d <= m.opts.HitRadius && d < bestDist {
				best, bestDist, feature = f.ID, d, true
			}
		}
	}
	if best != "" {
		m.chooseCategory(best, feature)
		return
	}

	anns := s.Overlays().Annotations()
	for i := len(anns) - 1; i >= 0; i-- {
		a := anns[i]
		if !s.AnnotationBounds(a).Contains(p) {
			continue
		}
		if m.text == nil {
			return
		}
		req := m.prompt()
		m.text.RequestText(p, a.Text, func(text string) {
			text = strings.TrimSpace(text)
			if text == "" || !m.current(req, s) {
				return
			}
			s.Overlays().SetAnnotationText(a.ID, text)
			s.Redraw()
		})
		return
	}

	if !s.IsGeo() {
		return
	}
	feats := s.Overlays().Features()
	for i := len(feats) - 1; i >= 0; i-- {
		f := feats[i]
		if f.Kind != overlay.FeaturePolygon {
			continue
		}
		ring := make([]geometry.Point2D, len(f.Points))
		for j, q := range f.Points {
			ring[j] = s.LogicalToScreen(q)
		}
		if geometry.PointInPolygon(p, ring) {
			m.chooseCategory(f.ID, true)
			return
		}
	}
}

// chooseCategory asks for a category and labels the pin or base feature id.
func (m *Machine) chooseCategory(id string, isFeature bool) {
	s := m.session
	if m.chooser == nil {
		return
	}
	req := m.prompt()
	m.chooser.Choose(CategoryChoiceTitle, m.opts.Categories, func(category string) {
		if !m.current(req, s) {
			return
		}
		label := overlay.CategoryLabel(category)
		if isFeature {
			s.Overlays().SetFeatureLabel(id, label)
		} else {
			s.Overlays().SetPinLabel(id, label)
		}
		m.log.Debug().Str("id", id).Str("label", label).Msg("labelled")
		s.Redraw()
	})
}
