package image

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"

	"geosketch/pkg/geometry"
)

// EraserShape selects the eraser footprint.
type EraserShape int

const (
	EraserCircle EraserShape = iota
	EraserSquare
)

func (s EraserShape) String() string {
	switch s {
	case EraserCircle:
		return "circle"
	case EraserSquare:
		return "square"
	default:
		return "unknown"
	}
}

// BackingStore holds a surface's committed raster content in model space.
type BackingStore struct {
	img        *image.RGBA
	background color.RGBA
}

// NewBackingStore creates a store filled with background. Freehand surfaces
// use white, geo drawing layers use transparent.
func NewBackingStore(width, height int, background color.RGBA) *BackingStore {
	s := &BackingStore{
		img:        image.NewRGBA(image.Rect(0, 0, width, height)),
		background: background,
	}
	s.Fill(background)
	return s
}

// Width returns the store width in pixels.
func (s *BackingStore) Width() int { return s.img.Bounds().Dx() }

// Height returns the store height in pixels.
func (s *BackingStore) Height() int { return s.img.Bounds().Dy() }

// Image exposes the live pixels for compositing. Callers must not retain it
// across mutations.
func (s *BackingStore) Image() *image.RGBA { return s.img }

// Background returns the fill color used by Clear.
func (s *BackingStore) Background() color.RGBA { return s.background }

// Fill replaces every pixel with c.
func (s *BackingStore) Fill(c color.RGBA) {
	draw.Draw(s.img, s.img.Bounds(), image.NewUniform(c), image.Point{}, draw.Src)
}

// Clear fills the store with its background.
func (s *BackingStore) Clear() {
	s.Fill(s.background)
}

// HasContent reports whether any pixel differs from the background. On an
// opaque background a pixel counts as background when it composites back to
// it, so erased areas are blank.
func (s *BackingStore) HasContent() bool {
	bg := s.background
	pix := s.img.Pix
	for i := 0; i+3 < len(pix); i += 4 {
		px := pix[i : i+4 : i+4]
		if bg.A == 0xff {
			if !overBackground(px, bg) {
				return true
			}
			continue
		}
		if px[0] != bg.R || px[1] != bg.G || px[2] != bg.B || px[3] != bg.A {
			return true
		}
	}
	return false
}

// overBackground reports whether premultiplied px drawn over bg leaves bg,
// allowing one step of rounding.
func overBackground(px []uint8, bg color.RGBA) bool {
	inv := 0xff - int(px[3])
	for c, b := range [3]uint8{bg.R, bg.G, bg.B} {
		got := int(px[c]) + (int(b)*inv+0x7f)/0xff
		if d := got - int(b); d > 1 || d < -1 {
			return false
		}
	}
	return true
}

// PixelAt returns the stored color at (x, y).
func (s *BackingStore) PixelAt(x, y int) color.RGBA {
	return s.img.RGBAAt(x, y)
}

// StrokePath strokes an open polyline.
func (s *BackingStore) StrokePath(points []geometry.Point2D, st Style) {
	StrokePathOn(s.img, points, st)
}

// StrokeLine strokes a single segment.
func (s *BackingStore) StrokeLine(a, b geometry.Point2D, st Style) {
	StrokePathOn(s.img, []geometry.Point2D{a, b}, st)
}

// StrokeRect strokes the outline of r.
func (s *BackingStore) StrokeRect(r geometry.Rect, st Style) {
	StrokePathOn(s.img, geometry.ClosedRing(r.Corners()), st)
}

// StrokeCircle strokes a circle outline.
func (s *BackingStore) StrokeCircle(center geometry.Point2D, radius float64, st Style) {
	StrokeCircleOn(s.img, center, radius, st)
}

// StrokePolygon strokes consecutive segments through points, joining the
// last point back to the first when closed.
func (s *BackingStore) StrokePolygon(points []geometry.Point2D, closed bool, st Style) {
	if len(points) < 2 {
		return
	}
	if closed && len(points) > 2 {
		points = geometry.ClosedRing(points)
	}
	StrokePathOn(s.img, points, st)
}

// FillCircle fills a disc, used for markers.
func (s *BackingStore) FillCircle(center geometry.Point2D, radius float64, c color.RGBA) {
	FillCircleOn(s.img, center, radius, c, nil)
}

// Erase removes content under the eraser. A circle of diameter size fades
// pixels out by coverage, a square of side size is cleared outright.
func (s *BackingStore) Erase(center geometry.Point2D, shape EraserShape, size float64) {
	if size <= 0 {
		return
	}
	switch shape {
	case EraserSquare:
		r := image.Rect(
			int(center.X-size/2+0.5), int(center.Y-size/2+0.5),
			int(center.X+size/2+0.5), int(center.Y+size/2+0.5),
		)
		draw.Draw(s.img, r.Intersect(s.img.Bounds()), image.Transparent, image.Point{}, draw.Src)
	default:
		d := disc(center, size/2)
		mask := image.NewAlpha(pixelBounds(d, s.img.Bounds()))
		if mask.Rect.Empty() {
			return
		}
		fillPolygons(mask, [][]geometry.Point2D{d}, color.Opaque, draw.Over)
		Composite(s.img, mask, BlendErase, 1)
	}
}

// DrawText draws text with its baseline at pos.
func (s *BackingStore) DrawText(pos geometry.Point2D, text string, size float64, c color.RGBA) error {
	if err := DrawTextOn(s.img, pos, text, size, c); err != nil {
		return fmt.Errorf("draw text: %w", err)
	}
	return nil
}

// Capture copies the current pixels.
func (s *BackingStore) Capture() Snapshot {
	return capture(s.img)
}

// Restore replaces every pixel with the snapshot's.
func (s *BackingStore) Restore(snap Snapshot) error {
	if snap.width != s.Width() || snap.height != s.Height() {
		return fmt.Errorf("snapshot is %dx%d, store is %dx%d", snap.width, snap.height, s.Width(), s.Height())
	}
	copy(s.img.Pix, snap.pix)
	return nil
}

// SetImage draws img over the store at the origin.
func (s *BackingStore) SetImage(img image.Image) {
	draw.Draw(s.img, s.img.Bounds(), img, img.Bounds().Min, draw.Over)
}

// LoadImage decodes the file at path and draws it into the store.
func (s *BackingStore) LoadImage(path string) error {
	img, err := Load(path)
	if err != nil {
		return err
	}
	s.SetImage(img)
	return nil
}
