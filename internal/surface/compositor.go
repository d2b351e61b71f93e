package surface

import (
	stdimage "image"
	"image/draw"

	"geosketch/internal/image"
	"geosketch/internal/overlay"
	"geosketch/pkg/colorutil"
	"geosketch/pkg/geometry"
)

// Marker and label dimensions in screen pixels.
const (
	PinRadius          = 5.0
	FeaturePointRadius = 5.0
	LabelOffsetX       = 10.0
	LabelOffsetY       = -10.0
	LabelSize          = 12.0
	AnnotationSize     = 14.0
)

// View returns the last composed image.
func (s *Session) View() *stdimage.RGBA { return s.view }

// Redraw recomposes the visible image and returns it. The layers under
// and over the backing store are reused until the overlays, the rotation or
// the projection change, so a stroke in progress only pays for the store
// blit and the transient layers.
func (s *Session) Redraw() *stdimage.RGBA {
	s.compose(s.view, true)
	return s.view
}

// RenderImage composes into a new image with transient layers hidden.
func (s *Session) RenderImage() *stdimage.RGBA {
	b := s.view.Bounds()
	dst := stdimage.NewRGBA(b)
	s.compose(dst, false)
	return dst
}

// layers holds the cached composite around the backing store.
type layers struct {
	under *stdimage.RGBA // white and base features
	over  *stdimage.RGBA // shapes, pins and annotations
	empty bool           // over has nothing drawn

	rev      uint64
	rotation float64
	valid    bool
	renders  int
}

func (s *Session) invalidateLayers() {
	s.layers.valid = false
}

func (s *Session) refreshLayers() {
	l := &s.layers
	rev := s.overlays.Revision()
	if l.valid && l.rev == rev && l.rotation == s.rotation {
		return
	}
	b := s.view.Bounds()
	if l.under == nil || l.under.Bounds() != b {
		l.under = stdimage.NewRGBA(b)
		l.over = stdimage.NewRGBA(b)
	}

	draw.Draw(l.under, b, stdimage.NewUniform(colorutil.White), stdimage.Point{}, draw.Src)
	if s.IsGeo() {
		s.drawFeatures(l.under)
	}

	clear(l.over.Pix)
	shapes, pins, annotations := s.overlays.Shapes(), s.overlays.Pins(), s.overlays.Annotations()
	for _, sh := range shapes {
		s.drawShape(l.over, sh)
	}
	for _, p := range pins {
		s.drawPin(l.over, p)
	}
	for _, a := range annotations {
		s.drawAnnotation(l.over, a)
	}
	l.empty = len(shapes)+len(pins)+len(annotations) == 0

	l.rev, l.rotation, l.valid = rev, s.rotation, true
	l.renders++
}

func (s *Session) compose(dst *stdimage.RGBA, transient bool) {
	s.refreshLayers()
	copy(dst.Pix, s.layers.under.Pix)
	image.BlitRotated(dst, s.store.Image(), s.Pivot(), s.rotation)
	if !s.layers.empty {
		draw.Draw(dst, dst.Bounds(), s.layers.over, stdimage.Point{}, draw.Over)
	}

	if transient {
		image.DrawLayer(dst, s.preview)
		image.DrawLayer(dst, s.cursor)
		image.DrawLayer(dst, s.textOverlay)
	}
}

func (s *Session) screenPoints(logical []geometry.Point2D) []geometry.Point2D {
	out := make([]geometry.Point2D, len(logical))
	for i, p := range logical {
		out[i] = s.LogicalToScreen(p)
	}
	return out
}

func (s *Session) drawFeatures(dst *stdimage.RGBA) {
	outline := image.Style{Color: colorutil.FeatureStroke, Width: 2}
	for _, f := range s.overlays.Features() {
		switch f.Kind {
		case overlay.FeaturePolygon:
			pts := s.screenPoints(f.Points)
			image.FillPolygonOn(dst, pts, colorutil.FeatureFill)
			image.StrokePathOn(dst, geometry.ClosedRing(pts), outline)
			if f.Label != "" {
				s.drawLabel(dst, geometry.Centroid(pts), f.Label)
			}
		case overlay.FeaturePoint:
			c := s.LogicalToScreen(f.Position())
			image.FillCircleOn(dst, c, FeaturePointRadius, colorutil.FeaturePoint,
				&image.Style{Color: colorutil.FeatureOutline, Width: 1})
			if f.Label != "" {
				s.drawLabel(dst, c, f.Label)
			}
		}
	}
}

func (s *Session) drawShape(dst *stdimage.RGBA, sh overlay.Shape) {
	st := image.Style{Color: sh.Color, Width: sh.StrokeWidth, Dash: sh.Dash.Pattern(), RoundCap: true}
	switch sh.Kind {
	case overlay.ShapeLine:
		image.StrokePathOn(dst, s.screenPoints([]geometry.Point2D{sh.Start, sh.End}), st)
	case overlay.ShapeRectangle:
		// Corners are projected separately so the outline turns with the view.
		lo, hi := sh.Start, sh.End
		corners := []geometry.Point2D{lo, {X: hi.X, Y: lo.Y}, hi, {X: lo.X, Y: hi.Y}}
		st.RoundCap = false
		image.StrokePathOn(dst, geometry.ClosedRing(s.screenPoints(corners)), st)
	case overlay.ShapeCircle:
		c := s.LogicalToScreen(sh.Center)
		image.StrokeCircleOn(dst, c, sh.Radius*s.PixelsPerUnit(), st)
	case overlay.ShapePolygon:
		pts := s.screenPoints(sh.Points)
		if sh.Closed && len(pts) > 2 {
			pts = geometry.ClosedRing(pts)
		}
		image.StrokePathOn(dst, pts, st)
	}
}

func (s *Session) drawPin(dst *stdimage.RGBA, p overlay.Pin) {
	c := s.LogicalToScreen(p.Position)
	image.FillCircleOn(dst, c, PinRadius, colorutil.PinFill, &image.Style{Color: colorutil.PinStroke, Width: 1})
	if p.Label != "" {
		s.drawLabel(dst, c, p.Label)
	}
}

func (s *Session) drawLabel(dst *stdimage.RGBA, anchor geometry.Point2D, text string) {
	pos := geometry.Point2D{X: anchor.X + LabelOffsetX, Y: anchor.Y + LabelOffsetY}
	w, h := image.MeasureText(text, LabelSize)
	image.FillRectOn(dst, geometry.Rect{X: pos.X - 2, Y: pos.Y - h, Width: w + 4, Height: h + 2}, colorutil.LabelBox)
	if err := image.DrawTextOn(dst, pos, text, LabelSize, colorutil.Black); err != nil {
		s.log.Warn().Err(err).Msg("label")
	}
}

// AnnotationBounds returns the screen rectangle covered by an annotation
// label.
func (s *Session) AnnotationBounds(a overlay.Annotation) geometry.Rect {
	c := s.LogicalToScreen(a.Position)
	w, h := image.MeasureText(a.Text, AnnotationSize)
	const pad = 4
	return geometry.Rect{X: c.X - w/2 - pad, Y: c.Y - h/2 - pad, Width: w + 2*pad, Height: h + 2*pad}
}

func (s *Session) drawAnnotation(dst *stdimage.RGBA, a overlay.Annotation) {
	c := s.LogicalToScreen(a.Position)
	if err := image.DrawLabelOn(dst, c, a.Text, AnnotationSize, colorutil.Black, colorutil.AnnotationBox); err != nil {
		s.log.Warn().Err(err).Msg("annotation")
	}
}
