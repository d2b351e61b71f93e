package tool

import (
	"image/color"
	"testing"

	"geosketch/internal/config"
	"geosketch/internal/overlay"
	"geosketch/internal/surface"
	"geosketch/internal/transform"
	"geosketch/pkg/colorutil"
	"geosketch/pkg/geometry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type textRequest struct {
	pos     geometry.Point2D
	initial string
	commit  func(string)
}

type fakeText struct {
	requests []textRequest
}

func (f *fakeText) RequestText(pos geometry.Point2D, initial string, commit func(string)) {
	f.requests = append(f.requests, textRequest{pos: pos, initial: initial, commit: commit})
}

func (f *fakeText) last(t *testing.T) textRequest {
	t.Helper()
	require.NotEmpty(t, f.requests)
	return f.requests[len(f.requests)-1]
}

type chooseRequest struct {
	title   string
	options []string
	commit  func(string)
}

type fakeChooser struct {
	requests []chooseRequest
}

func (f *fakeChooser) Choose(title string, options []string, commit func(string)) {
	f.requests = append(f.requests, chooseRequest{title: title, options: options, commit: commit})
}

type fixture struct {
	m       *Machine
	s       *surface.Session
	text    *fakeText
	chooser *fakeChooser
}

func newFixture(t *testing.T, kind surface.Kind, w, h int, cfg Config) *fixture {
	t.Helper()
	s := surface.New(1, kind, surface.Options{Width: w, Height: h, Padding: transform.DefaultPadding})
	if kind == surface.KindGeo {
		s.SetFeatures([]overlay.Feature{
			{ID: "p1", Kind: overlay.FeaturePoint, Points: []geometry.Point2D{{X: 10, Y: 40}}},
			{ID: "p2", Kind: overlay.FeaturePoint, Points: []geometry.Point2D{{X: 20, Y: 50}}},
		})
	}
	s.Init()

	f := &fixture{s: s, text: &fakeText{}, chooser: &fakeChooser{}}
	f.m = NewMachine(cfg, Options{Categories: config.DefaultPinCategories}, f.text, f.chooser)
	f.m.Bind(s)
	return f
}

func drawConfig(t Tool) Config {
	cfg := DefaultConfig()
	cfg.Tool = t
	return cfg
}

func pt(x, y float64) geometry.Point2D { return geometry.Point2D{X: x, Y: y} }

func isDark(c color.RGBA) bool {
	return c.A > 128 && c.R < 100 && c.G < 100 && c.B < 100
}

func (f *fixture) click(pts ...geometry.Point2D) {
	for _, p := range pts {
		f.m.PointerDown(p)
		f.m.PointerUp(p)
	}
}

func (f *fixture) drag(from, to geometry.Point2D) {
	f.m.PointerDown(from)
	f.m.PointerMove(from.Add(to).Scale(0.5))
	f.m.PointerMove(to)
	f.m.PointerUp(to)
}

func TestClosedPolygonCompletedByEscape(t *testing.T) {
	f := newFixture(t, surface.KindFreehand, 100, 100, drawConfig(ClosedPolygon))

	f.click(pt(0, 0), pt(10, 0), pt(10, 10), pt(0, 10))
	require.Equal(t, BuildingPolygon, f.m.State())
	require.Len(t, f.s.Pending(), 4)

	f.m.Escape()

	store := f.s.Store()
	for _, p := range [][2]int{{5, 0}, {10, 5}, {5, 10}, {0, 5}} {
		assert.True(t, isDark(store.PixelAt(p[0], p[1])), "edge pixel %v", p)
	}
	assert.Equal(t, colorutil.White, store.PixelAt(5, 5))
	assert.Empty(t, f.s.Pending())
	assert.Equal(t, Idle, f.m.State())
	assert.Equal(t, 2, f.s.History().Depth())
	assert.False(t, f.s.Preview().Visible)
}

func TestPolygonNeedsEnoughPoints(t *testing.T) {
	f := newFixture(t, surface.KindFreehand, 100, 100, drawConfig(ClosedPolygon))

	f.click(pt(10, 10))
	f.m.Escape()
	assert.Equal(t, BuildingPolygon, f.m.State(), "escape with one point")
	assert.Len(t, f.s.Pending(), 1)

	f.click(pt(50, 10))
	f.m.DoubleClick(pt(50, 10))
	assert.Equal(t, BuildingPolygon, f.m.State(), "double click with two points")
	assert.Equal(t, 1, f.s.History().Depth())
}

func TestOpenAndClosedPolygonsByDoubleClick(t *testing.T) {
	tests := []struct {
		tool   Tool
		closed bool
	}{
		{ClosedPolygon, true},
		{OpenPolygon, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.tool), func(t *testing.T) {
			f := newFixture(t, surface.KindFreehand, 100, 100, drawConfig(tt.tool))
			f.click(pt(10, 10), pt(50, 10), pt(50, 50))
			f.m.DoubleClick(pt(50, 50))

			assert.Equal(t, Idle, f.m.State())
			assert.Empty(t, f.s.Pending())
			got := f.s.Store().PixelAt(30, 30)
			if tt.closed {
				assert.True(t, isDark(got), "closing segment drawn")
			} else {
				assert.Equal(t, colorutil.White, got)
			}
		})
	}
}

func TestWhiteRectangleBecomesBlack(t *testing.T) {
	cfg := drawConfig(Rectangle)
	cfg.Color = colorutil.White
	f := newFixture(t, surface.KindFreehand, 100, 100, cfg)

	f.drag(pt(0, 0), pt(20, 20))

	assert.Equal(t, colorutil.Black, f.s.Store().PixelAt(20, 10))
	assert.Equal(t, colorutil.White, f.s.Store().PixelAt(10, 10))
	assert.Equal(t, 2, f.s.History().Depth())
	assert.False(t, f.s.Preview().Visible)
}

func TestWhitePencilIsNotCoerced(t *testing.T) {
	cfg := drawConfig(Pencil)
	cfg.Color = colorutil.White
	f := newFixture(t, surface.KindFreehand, 100, 100, cfg)

	f.drag(pt(10, 10), pt(60, 10))

	assert.False(t, f.s.Store().HasContent())
	assert.Equal(t, 2, f.s.History().Depth())
}

func TestZeroLengthShapeLeavesNothing(t *testing.T) {
	f := newFixture(t, surface.KindFreehand, 100, 100, drawConfig(Line))
	f.click(pt(30, 30))

	assert.False(t, f.s.Store().HasContent())
	assert.Equal(t, 1, f.s.History().Depth())
}

func TestPointerLeave(t *testing.T) {
	t.Run("pencil commits", func(t *testing.T) {
		f := newFixture(t, surface.KindFreehand, 100, 100, drawConfig(Pencil))
		f.m.PointerDown(pt(10, 10))
		f.m.PointerMove(pt(40, 10))
		f.m.PointerLeave()

		assert.Equal(t, Idle, f.m.State())
		assert.Equal(t, 2, f.s.History().Depth())
		assert.True(t, isDark(f.s.Store().PixelAt(25, 10)))
	})
	t.Run("shape drag discarded", func(t *testing.T) {
		f := newFixture(t, surface.KindFreehand, 100, 100, drawConfig(Line))
		f.m.PointerDown(pt(10, 10))
		f.m.PointerMove(pt(40, 10))
		require.True(t, f.s.Preview().Visible)
		f.m.PointerLeave()

		assert.Equal(t, Idle, f.m.State())
		assert.Equal(t, 1, f.s.History().Depth())
		assert.False(t, f.s.Preview().Visible)
		assert.False(t, f.s.Store().HasContent())
	})
}

func TestEscapeDiscardsShapeDrag(t *testing.T) {
	f := newFixture(t, surface.KindFreehand, 100, 100, drawConfig(Circle))
	f.m.PointerDown(pt(50, 50))
	f.m.PointerMove(pt(60, 50))
	f.m.Escape()
	f.m.PointerUp(pt(60, 50))

	assert.False(t, f.s.Store().HasContent())
	assert.Equal(t, 1, f.s.History().Depth())
}

func TestPinOnRotatedSurface(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Mode = ModeAddPin
	f := newFixture(t, surface.KindFreehand, 400, 300, cfg)
	f.s.SetRotation(90)

	f.m.PointerDown(pt(100, 100))

	pins := f.s.Overlays().Pins()
	require.Len(t, pins, 1)
	want := transform.InverseRotate(pt(100, 100), f.s.Pivot(), 90)
	assert.InDelta(t, want.X, pins[0].Position.X, 1e-9)
	assert.InDelta(t, want.Y, pins[0].Position.Y, 1e-9)
	assert.InDelta(t, 150, pins[0].Position.X, 1e-9)
	assert.InDelta(t, 250, pins[0].Position.Y, 1e-9)
	assert.Equal(t, colorutil.PinFill, f.s.View().RGBAAt(100, 100))

	f.s.SetRotation(0)
	assert.Equal(t, colorutil.PinFill, f.s.View().RGBAAt(150, 250))
}

func TestSelectPinChoosesCategory(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Mode = ModeSelect
	f := newFixture(t, surface.KindFreehand, 100, 100, cfg)
	pin := f.s.Overlays().AddPin(pt(50, 50), "")

	f.m.PointerDown(pt(90, 90))
	assert.Empty(t, f.chooser.requests, "miss")

	f.m.PointerDown(pt(53, 52))
	require.Len(t, f.chooser.requests, 1)
	req := f.chooser.requests[0]
	assert.Equal(t, CategoryChoiceTitle, req.title)
	assert.Equal(t, config.DefaultPinCategories, req.options)

	req.commit("Hazard")
	got := f.s.Overlays().Pins()
	require.Len(t, got, 1)
	assert.Equal(t, pin.ID, got[0].ID)
	assert.Regexp(t, `^[A-Z][0-9] Hazard$`, got[0].Label)
}

func TestSelectGeoBasePoint(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Mode = ModeSelect
	f := newFixture(t, surface.KindGeo, 300, 200, cfg)

	f.m.PointerDown(f.s.LogicalToScreen(pt(20, 50)))
	require.Len(t, f.chooser.requests, 1)
	f.chooser.requests[0].commit("Resource")

	for _, ft := range f.s.Overlays().Features() {
		if ft.ID == "p2" {
			assert.Regexp(t, `^[A-Z][0-9] Resource$`, ft.Label)
		} else {
			assert.Empty(t, ft.Label)
		}
	}
}

func TestAnnotateAndEdit(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Mode = ModeAnnotate
	f := newFixture(t, surface.KindFreehand, 200, 100, cfg)

	f.m.PointerDown(pt(60, 40))
	f.text.last(t).commit("  north gate ")
	anns := f.s.Overlays().Annotations()
	require.Len(t, anns, 1)
	assert.Equal(t, "north gate", anns[0].Text)
	assert.Equal(t, pt(60, 40), anns[0].Position)

	f.m.SetMode(ModeSelect)
	f.m.PointerDown(pt(60, 40))
	req := f.text.last(t)
	assert.Equal(t, "north gate", req.initial)
	req.commit("south gate")
	assert.Equal(t, "south gate", f.s.Overlays().Annotations()[0].Text)
}

func TestAnnotationDroppedAfterClear(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Mode = ModeAnnotate
	f := newFixture(t, surface.KindFreehand, 200, 100, cfg)

	f.m.PointerDown(pt(60, 40))
	pending := f.text.last(t)
	f.s.Clear()
	f.m.Reset()
	pending.commit("north gate")

	assert.Empty(t, f.s.Overlays().Annotations())
}

func TestAnnotationPromptsDroppedAfterSurfaceSwitch(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Mode = ModeAnnotate
	f := newFixture(t, surface.KindFreehand, 200, 100, cfg)
	f.s.Overlays().AddAnnotation(pt(100, 50), "camp")

	f.m.PointerDown(pt(60, 40))
	add := f.text.last(t)
	f.m.SetMode(ModeSelect)
	f.m.PointerDown(pt(100, 50))
	edit := f.text.last(t)

	other := surface.New(2, surface.KindFreehand, surface.Options{Width: 200, Height: 100})
	other.Init()
	f.m.Bind(other)
	add.commit("north gate")
	edit.commit("base camp")

	anns := f.s.Overlays().Annotations()
	require.Len(t, anns, 1)
	assert.Equal(t, "camp", anns[0].Text)
	assert.Empty(t, other.Overlays().Annotations())
}

func TestCategoryDroppedAfterClear(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Mode = ModeSelect
	f := newFixture(t, surface.KindGeo, 300, 200, cfg)

	f.m.PointerDown(f.s.LogicalToScreen(pt(20, 50)))
	require.Len(t, f.chooser.requests, 1)
	f.m.Reset()
	f.chooser.requests[0].commit("Resource")

	for _, feat := range f.s.Overlays().Features() {
		assert.Empty(t, feat.Label)
	}
}

func TestSelectGeoBasePolygon(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Mode = ModeSelect
	f := newFixture(t, surface.KindGeo, 300, 200, cfg)
	f.s.SetFeatures([]overlay.Feature{{
		ID:     "area",
		Kind:   overlay.FeaturePolygon,
		Points: []geometry.Point2D{{X: 10, Y: 40}, {X: 20, Y: 40}, {X: 20, Y: 50}, {X: 10, Y: 50}},
	}})

	f.m.PointerDown(pt(5, 5))
	assert.Empty(t, f.chooser.requests, "outside")

	f.m.PointerDown(f.s.LogicalToScreen(pt(15, 45)))
	require.Len(t, f.chooser.requests, 1)
	f.chooser.requests[0].commit("Hazard")

	feats := f.s.Overlays().Features()
	require.Len(t, feats, 1)
	assert.Regexp(t, `^[A-Z][0-9] Hazard$`, feats[0].Label)
}

func TestTextTool(t *testing.T) {
	f := newFixture(t, surface.KindFreehand, 200, 100, drawConfig(Text))

	f.m.PointerDown(pt(10, 10))
	require.Equal(t, AwaitingTextInput, f.m.State())
	assert.True(t, f.s.TextOverlay().Visible)

	f.text.last(t).commit("Hi")

	assert.Equal(t, Idle, f.m.State())
	assert.False(t, f.s.TextOverlay().Visible)
	assert.True(t, f.s.Store().HasContent())
	assert.Equal(t, 2, f.s.History().Depth())
}

func TestStaleTextRequestIgnored(t *testing.T) {
	f := newFixture(t, surface.KindFreehand, 200, 100, drawConfig(Text))

	f.m.PointerDown(pt(10, 10))
	first := f.text.last(t)
	f.m.PointerDown(pt(100, 50))
	second := f.text.last(t)

	first.commit("late")
	assert.False(t, f.s.Store().HasContent())
	assert.Equal(t, AwaitingTextInput, f.m.State())

	second.commit("ok")
	assert.True(t, f.s.Store().HasContent())
	assert.Equal(t, 2, f.s.History().Depth())
}

func TestCancelText(t *testing.T) {
	f := newFixture(t, surface.KindFreehand, 200, 100, drawConfig(Text))
	f.m.PointerDown(pt(10, 10))
	req := f.text.last(t)

	f.m.Escape()
	req.commit("ignored")

	assert.Equal(t, Idle, f.m.State())
	assert.False(t, f.s.Store().HasContent())
	assert.Equal(t, 1, f.s.History().Depth())
}

func TestToolSwitchDropsPendingPolygon(t *testing.T) {
	f := newFixture(t, surface.KindFreehand, 100, 100, drawConfig(OpenPolygon))
	f.click(pt(10, 10), pt(60, 10))
	require.True(t, f.s.Store().HasContent())

	f.m.SetTool(Pencil)

	assert.Empty(t, f.s.Pending())
	assert.Equal(t, Idle, f.m.State())
	assert.False(t, f.s.Store().HasContent())
	assert.Equal(t, 1, f.s.History().Depth())
}

func TestEraser(t *testing.T) {
	f := newFixture(t, surface.KindFreehand, 100, 100, drawConfig(Pencil))
	f.drag(pt(10, 50), pt(90, 50))
	require.True(t, isDark(f.s.View().RGBAAt(50, 50)))

	f.m.SetTool(Eraser)
	f.m.PointerMove(pt(50, 50))
	assert.True(t, f.s.Cursor().Visible)

	f.click(pt(50, 50))
	assert.Equal(t, colorutil.White, f.s.View().RGBAAt(50, 50))
	assert.Equal(t, 3, f.s.History().Depth())

	f.m.PointerLeave()
	assert.False(t, f.s.Cursor().Visible)
}

func TestGeoShapesStayVectors(t *testing.T) {
	cfg := drawConfig(Line)
	cfg.LineDash = overlay.DashDashed
	f := newFixture(t, surface.KindGeo, 300, 200, cfg)

	from, to := f.s.LogicalToScreen(pt(10, 40)), f.s.LogicalToScreen(pt(20, 50))
	f.drag(from, to)

	shapes := f.s.Overlays().Shapes()
	require.Len(t, shapes, 1)
	sh := shapes[0]
	assert.Equal(t, overlay.ShapeLine, sh.Kind)
	assert.Equal(t, overlay.DashDashed, sh.Dash)
	assert.InDelta(t, 10, sh.Start.X, 1e-9)
	assert.InDelta(t, 40, sh.Start.Y, 1e-9)
	assert.InDelta(t, 20, sh.End.X, 1e-9)
	assert.InDelta(t, 50, sh.End.Y, 1e-9)
	assert.False(t, f.s.Store().HasContent())

	f.s.Undo()
	assert.Empty(t, f.s.Overlays().Shapes())
}

func TestGeoPolygon(t *testing.T) {
	f := newFixture(t, surface.KindGeo, 300, 200, drawConfig(ClosedPolygon))
	for _, ll := range []geometry.Point2D{pt(10, 40), pt(20, 40), pt(20, 50)} {
		f.click(f.s.LogicalToScreen(ll))
	}
	f.m.DoubleClick(pt(0, 0))

	shapes := f.s.Overlays().Shapes()
	require.Len(t, shapes, 1)
	assert.Equal(t, overlay.ShapePolygon, shapes[0].Kind)
	assert.True(t, shapes[0].Closed)
	assert.Len(t, shapes[0].Points, 3)
	assert.False(t, f.s.Store().HasContent())
}

func TestBindSwitchesSurface(t *testing.T) {
	f := newFixture(t, surface.KindFreehand, 100, 100, drawConfig(Pencil))
	f.m.PointerDown(pt(10, 10))
	f.m.PointerMove(pt(30, 10))

	other := surface.New(2, surface.KindFreehand, surface.Options{Width: 100, Height: 100})
	other.Init()
	f.m.Bind(other)

	assert.Equal(t, 2, f.s.History().Depth(), "stroke on previous surface committed")
	assert.Same(t, other, f.m.Session())
	assert.Equal(t, Idle, f.m.State())
}

func TestConfigFromSettings(t *testing.T) {
	cfg, err := ConfigFromSettings(config.ToolConfig{Color: "#ff0000", StrokeWidth: 4, EraserSize: 30, EraserShape: "square"})
	require.NoError(t, err)
	assert.Equal(t, color.RGBA{R: 255, A: 255}, cfg.Color)
	assert.Equal(t, 4.0, cfg.StrokeWidth)
	assert.Equal(t, 32.0, cfg.TextSize())
	assert.Equal(t, 30.0, cfg.EraserSize)

	_, err = ConfigFromSettings(config.ToolConfig{Color: "nope"})
	assert.Error(t, err)
}
