// Package canvas provides the fyne widget that shows one surface and feeds
// its mouse input to the workspace.
package canvas

import (
	"image"

	"geosketch/internal/app"
	"geosketch/internal/logging"
	"geosketch/internal/surface"
	"geosketch/pkg/geometry"

	"fyne.io/fyne/v2"
	fynecanvas "fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/widget"
)

// SurfaceCanvas displays a surface at one screen pixel per unit.
type SurfaceCanvas struct {
	widget.BaseWidget

	ws     *app.Workspace
	id     surface.ID
	raster *fynecanvas.Raster
	size   fyne.Size

	pressed bool
}

var (
	_ desktop.Mouseable    = (*SurfaceCanvas)(nil)
	_ desktop.Hoverable    = (*SurfaceCanvas)(nil)
	_ fyne.DoubleTappable = (*SurfaceCanvas)(nil)
)

// NewSurfaceCanvas creates a canvas for the mounted surface id.
func NewSurfaceCanvas(ws *app.Workspace, id surface.ID) *SurfaceCanvas {
	sc := &SurfaceCanvas{ws: ws, id: id}
	if s, ok := ws.Session(id); ok {
		sz := s.Size()
		sc.size = fyne.NewSize(float32(sz.Width), float32(sz.Height))
	}

	sc.raster = fynecanvas.NewRaster(sc.draw)
	sc.raster.ScaleMode = fynecanvas.ImageScalePixels
	sc.raster.SetMinSize(sc.size)

	ws.On(app.EventSurfaceChanged, func(data interface{}) {
		if changed, ok := data.(surface.ID); ok && changed == id {
			sc.raster.Refresh()
		}
	})

	sc.ExtendBaseWidget(sc)
	return sc
}

// ID returns the surface shown.
func (sc *SurfaceCanvas) ID() surface.ID { return sc.id }

func (sc *SurfaceCanvas) draw(w, h int) image.Image {
	img, err := sc.ws.View(sc.id)
	if err != nil {
		log := logging.Component("canvas")
		log.Debug().Err(err).Msg("draw")
		return image.NewRGBA(image.Rect(0, 0, w, h))
	}
	return img
}

func (sc *SurfaceCanvas) CreateRenderer() fyne.WidgetRenderer {
	return widget.NewSimpleRenderer(sc.raster)
}

func (sc *SurfaceCanvas) MinSize() fyne.Size {
	return sc.size
}

func toPoint(p fyne.Position) geometry.Point2D {
	return geometry.Point2D{X: float64(p.X), Y: float64(p.Y)}
}

// inside rejects positions fyne reports outside the widget.
func (sc *SurfaceCanvas) inside(p fyne.Position) bool {
	return p.X >= 0 && p.Y >= 0 && p.X <= sc.size.Width && p.Y <= sc.size.Height
}

// MouseDown starts a gesture with the primary button.
func (sc *SurfaceCanvas) MouseDown(ev *desktop.MouseEvent) {
	if ev.Button != desktop.MouseButtonPrimary || !sc.inside(ev.Position) {
		return
	}
	sc.pressed = true
	sc.ws.PointerDown(sc.id, toPoint(ev.Position))
}

// MouseUp ends a gesture.
func (sc *SurfaceCanvas) MouseUp(ev *desktop.MouseEvent) {
	if ev.Button != desktop.MouseButtonPrimary || !sc.pressed {
		return
	}
	sc.pressed = false
	sc.ws.PointerUp(sc.id, toPoint(ev.Position))
}

func (sc *SurfaceCanvas) MouseIn(ev *desktop.MouseEvent) {
	sc.ws.PointerMove(sc.id, toPoint(ev.Position))
}

func (sc *SurfaceCanvas) MouseMoved(ev *desktop.MouseEvent) {
	sc.ws.PointerMove(sc.id, toPoint(ev.Position))
}

func (sc *SurfaceCanvas) MouseOut() {
	sc.pressed = false
	sc.ws.PointerLeave(sc.id)
}

// DoubleTapped completes polygons.
func (sc *SurfaceCanvas) DoubleTapped(ev *fyne.PointEvent) {
	sc.ws.DoubleClick(sc.id, toPoint(ev.Position))
}
