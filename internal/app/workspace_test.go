package app

import (
	"encoding/json"
	"errors"
	stdimage "image"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"geosketch/internal/config"
	"geosketch/internal/surface"
	"geosketch/internal/tool"
	"geosketch/pkg/colorutil"
	"geosketch/pkg/geometry"

	"github.com/peterstace/simplefeatures/geom"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pendingText records requests; tests complete them after RequestText has
// returned, the way a dialog would.
type pendingText struct {
	commits []func(string)
}

func (p *pendingText) RequestText(_ geometry.Point2D, _ string, commit func(string)) {
	p.commits = append(p.commits, commit)
}

type pendingChoice struct {
	commits []func(string)
}

func (p *pendingChoice) Choose(_ string, _ []string, commit func(string)) {
	p.commits = append(p.commits, commit)
}

func testSettings() *config.Settings {
	s := config.Default()
	s.Freehand = config.SurfaceConfig{Width: 200, Height: 150}
	s.Geo = config.SurfaceConfig{Width: 300, Height: 200}
	return s
}

func newWorkspace(t *testing.T) (*Workspace, *pendingText, *pendingChoice) {
	t.Helper()
	text, choice := &pendingText{}, &pendingChoice{}
	w, err := NewWorkspace(testSettings(), text, choice)
	require.NoError(t, err)
	return w, text, choice
}

func pt(x, y float64) geometry.Point2D { return geometry.Point2D{X: x, Y: y} }

func stroke(w *Workspace, id surface.ID, from, to geometry.Point2D) {
	w.PointerDown(id, from)
	w.PointerMove(id, to)
	w.PointerUp(id, to)
}

func TestNewWorkspaceRejectsBadToolColor(t *testing.T) {
	s := testSettings()
	s.Tool.Color = "blue"
	_, err := NewWorkspace(s, nil, nil)
	assert.Error(t, err)
}

func TestMount(t *testing.T) {
	w, _, _ := newWorkspace(t)
	mounted := 0
	w.On(EventSurfaceMounted, func(interface{}) { mounted++ })

	a := w.Mount(2, surface.KindGeo)
	b := w.Mount(1, surface.KindFreehand)
	assert.Same(t, a, w.Mount(2, surface.KindGeo))
	assert.NotSame(t, a, b)

	assert.Equal(t, []surface.ID{1, 2}, w.IDs())
	assert.Equal(t, 2, mounted)
	assert.Equal(t, geometry.Size{Width: 300, Height: 200}, a.Size())
	assert.Equal(t, 1, b.History().Depth())
}

func TestUnknownSurfaceIsNoOp(t *testing.T) {
	w, _, _ := newWorkspace(t)
	w.SetActive(7)
	_, ok := w.Active()
	assert.False(t, ok)

	assert.False(t, w.Undo(7))
	w.SetRotation(7, 90)
	w.PointerDown(7, pt(1, 1))

	_, err := w.RenderImage(7)
	assert.True(t, errors.Is(err, ErrSurfaceNotFound))
	_, err = w.ExportSurface(7)
	assert.True(t, errors.Is(err, ErrSurfaceNotFound))
	assert.True(t, errors.Is(w.LoadImage(7, "x.png"), ErrSurfaceNotFound))
}

func TestPressActivatesSurface(t *testing.T) {
	w, _, _ := newWorkspace(t)
	w.Mount(1, surface.KindFreehand)

	w.PointerMove(1, pt(10, 10))
	_, ok := w.Active()
	assert.False(t, ok, "motion alone does not activate")

	stroke(w, 1, pt(10, 10), pt(60, 60))
	id, ok := w.Active()
	require.True(t, ok)
	assert.Equal(t, surface.ID(1), id)

	s, _ := w.Session(1)
	assert.Equal(t, 2, s.History().Depth())
}

func TestActivationClearsOnlyNewSurfaceRedo(t *testing.T) {
	w, _, _ := newWorkspace(t)
	one := w.Mount(1, surface.KindFreehand)
	two := w.Mount(2, surface.KindFreehand)

	stroke(w, 2, pt(10, 10), pt(60, 60))
	stroke(w, 1, pt(10, 10), pt(60, 60))
	require.True(t, w.Undo(1))
	require.True(t, w.Undo(2))
	require.Equal(t, 1, one.History().RedoDepth())
	require.Equal(t, 1, two.History().RedoDepth())

	w.SetActive(2)
	assert.Equal(t, 1, one.History().RedoDepth(), "previous surface untouched")
	assert.Equal(t, 0, two.History().RedoDepth())
	assert.Equal(t, 1, one.History().Depth())
	assert.Equal(t, 1, two.History().Depth())
}

func TestToolConfigIsShared(t *testing.T) {
	w, _, _ := newWorkspace(t)
	w.Mount(1, surface.KindFreehand)
	w.Mount(2, surface.KindFreehand)

	var seen []tool.Config
	w.On(EventConfigChanged, func(d interface{}) { seen = append(seen, d.(tool.Config)) })

	w.SetActive(1)
	w.SetTool(tool.Rectangle)
	w.SetActive(2)
	assert.Equal(t, tool.Rectangle, w.Config().Tool)
	require.Len(t, seen, 1)
	assert.Equal(t, tool.Rectangle, seen[0].Tool)
}

func TestMountImageBaselineOnActivation(t *testing.T) {
	img := stdimage.NewRGBA(stdimage.Rect(0, 0, 40, 30))
	for i := range img.Pix {
		img.Pix[i] = 0xff
	}
	img.SetRGBA(5, 5, colorutil.Black)
	path := filepath.Join(t.TempDir(), "content.png")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, img))
	require.NoError(t, f.Close())

	w, _, _ := newWorkspace(t)
	s, err := w.MountImage(3, path)
	require.NoError(t, err)
	assert.Equal(t, 0, s.History().Depth())
	assert.Equal(t, colorutil.Black, s.Store().PixelAt(5, 5))

	w.SetActive(3)
	assert.Equal(t, 1, s.History().Depth())

	_, err = w.MountImage(3, path)
	assert.Error(t, err)
	_, err = w.MountImage(4, filepath.Join(t.TempDir(), "missing.png"))
	assert.Error(t, err)
}

func TestAnnotationCommitAfterRequest(t *testing.T) {
	w, text, _ := newWorkspace(t)
	w.Mount(1, surface.KindFreehand)
	w.SetMode(tool.ModeAnnotate)

	changed := 0
	w.On(EventSurfaceChanged, func(interface{}) { changed++ })

	w.PointerDown(1, pt(40, 30))
	require.Len(t, text.commits, 1)
	before := changed
	text.commits[0]("bridge out")

	assert.Equal(t, before+1, changed)
	doc, err := w.ExportSurface(1)
	require.NoError(t, err)
	require.Len(t, doc.Annotations, 1)
	assert.Equal(t, "bridge out", doc.Annotations[0].Text)
	assert.Equal(t, pt(40, 30), doc.Annotations[0].Position)
}

func TestCategoryChoiceThroughWorkspace(t *testing.T) {
	w, _, choice := newWorkspace(t)
	w.Mount(1, surface.KindFreehand)

	w.SetMode(tool.ModeAddPin)
	w.PointerDown(1, pt(50, 50))
	w.SetMode(tool.ModeSelect)
	w.PointerDown(1, pt(51, 50))
	require.Len(t, choice.commits, 1)
	choice.commits[0]("Meeting Point")

	doc := w.Export()
	require.Len(t, doc.Surfaces, 1)
	require.Len(t, doc.Surfaces[0].Pins, 1)
	assert.Regexp(t, `^[A-Z][0-9] Meeting Point$`, doc.Surfaces[0].Pins[0].Label)
}

func TestClearActiveSurface(t *testing.T) {
	w, _, _ := newWorkspace(t)
	s := w.Mount(1, surface.KindFreehand)
	w.SetTool(tool.OpenPolygon)
	w.PointerDown(1, pt(10, 10))
	w.PointerDown(1, pt(50, 10))
	require.Equal(t, tool.BuildingPolygon, w.ToolState())

	w.SetRotation(1, 45)
	w.Clear(1)

	assert.Equal(t, tool.Idle, w.ToolState())
	assert.Empty(t, s.Pending())
	assert.Equal(t, 0.0, s.Rotation())
	assert.False(t, s.Store().HasContent())
	assert.Equal(t, 1, s.History().Depth())
}

func TestLoadFeatures(t *testing.T) {
	w, _, _ := newWorkspace(t)
	s := w.Mount(2, surface.KindGeo)

	var fc geom.GeoJSONFeatureCollection
	require.NoError(t, json.Unmarshal([]byte(`{
		"type": "FeatureCollection",
		"features": [
			{"type": "Feature", "geometry": {"type": "Point", "coordinates": [10, 40]}, "properties": {"name": "Depot"}},
			{"type": "Feature", "geometry": {"type": "Point", "coordinates": [20, 50]}, "properties": {}},
			{"type": "Feature", "geometry": {"type": "LineString", "coordinates": [[0, 0], [1, 1]]}, "properties": {}}
		]
	}`), &fc))

	skipped, err := w.LoadFeatures(2, fc)
	require.NoError(t, err)
	assert.Equal(t, 1, skipped)
	assert.Len(t, s.Overlays().Features(), 2)
	assert.Equal(t, geometry.Point2D{X: 150, Y: 100}, s.Pivot())

	_, err = w.LoadFeatures(9, fc)
	assert.True(t, errors.Is(err, ErrSurfaceNotFound))
}

func TestRenderImage(t *testing.T) {
	w, _, _ := newWorkspace(t)
	w.Mount(1, surface.KindFreehand)
	w.SetTool(tool.Eraser)
	w.SetActive(1)
	w.PointerMove(1, pt(100, 75))

	view, err := w.View(1)
	require.NoError(t, err)
	img, err := w.RenderImage(1)
	require.NoError(t, err)
	assert.Equal(t, view.Bounds(), img.Bounds())
	assert.NotEqual(t, view.Pix, img.Pix, "cursor only in the view")
	assert.Equal(t, colorutil.White, img.RGBAAt(110, 75))
}
