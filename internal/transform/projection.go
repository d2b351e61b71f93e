package transform

import (
	"math"

	"geosketch/pkg/geometry"

	"github.com/wroge/wgs84"
)

// DefaultPadding is the screen margin around projected geo content.
const DefaultPadding = 50.0

// Bounds is a lon/lat extent.
type Bounds struct {
	MinLon float64 `json:"minLon"`
	MaxLon float64 `json:"maxLon"`
	MinLat float64 `json:"minLat"`
	MaxLat float64 `json:"maxLat"`
}

// EmptyBounds returns an extent that any point will grow.
func EmptyBounds() Bounds {
	return Bounds{
		MinLon: math.Inf(1), MaxLon: math.Inf(-1),
		MinLat: math.Inf(1), MaxLat: math.Inf(-1),
	}
}

// BoundsOf returns the extent of points. With no points the result is the
// unit square at the origin.
func BoundsOf(points []geometry.Point2D) Bounds {
	b := EmptyBounds()
	for _, p := range points {
		b = b.Extend(p)
	}
	if !b.Valid() {
		return Bounds{MaxLon: 1, MaxLat: 1}
	}
	return b
}

// Extend grows b to include p. Non-finite points are ignored.
func (b Bounds) Extend(p geometry.Point2D) Bounds {
	if !p.IsFinite() {
		return b
	}
	b.MinLon = math.Min(b.MinLon, p.X)
	b.MaxLon = math.Max(b.MaxLon, p.X)
	b.MinLat = math.Min(b.MinLat, p.Y)
	b.MaxLat = math.Max(b.MaxLat, p.Y)
	return b
}

// Valid reports whether all four edges are finite and ordered.
func (b Bounds) Valid() bool {
	for _, v := range []float64{b.MinLon, b.MaxLon, b.MinLat, b.MaxLat} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return b.MinLon <= b.MaxLon && b.MinLat <= b.MaxLat
}

// Center returns the midpoint of the extent.
func (b Bounds) Center() geometry.Point2D {
	return geometry.Point2D{X: (b.MinLon + b.MaxLon) / 2, Y: (b.MinLat + b.MaxLat) / 2}
}

// span returns hi-lo, or 1 when the range is empty or not finite.
func span(lo, hi float64) float64 {
	s := hi - lo
	if s == 0 || math.IsNaN(s) || math.IsInf(s, 0) {
		return 1
	}
	return s
}

// Projector converts lon/lat into the planar coordinates that are then
// linearly fitted to the screen.
type Projector interface {
	Name() string
	Forward(lonLat geometry.Point2D) geometry.Point2D
	Inverse(xy geometry.Point2D) geometry.Point2D
}

// Equirectangular treats lon/lat as planar coordinates.
type Equirectangular struct{}

func (Equirectangular) Name() string { return "equirectangular" }
func (Equirectangular) Forward(p geometry.Point2D) geometry.Point2D { return p }
func (Equirectangular) Inverse(p geometry.Point2D) geometry.Point2D { return p }

// WebMercator projects through EPSG:3857.
type WebMercator struct {
	forward func(a, b, c float64) (float64, float64, float64)
	inverse func(a, b, c float64) (float64, float64, float64)
}

// NewWebMercator builds a WebMercator projector.
func NewWebMercator() WebMercator {
	epsg := wgs84.EPSG()
	return WebMercator{
		forward: epsg.Transform(4326, 3857),
		inverse: epsg.Transform(3857, 4326),
	}
}

func (WebMercator) Name() string { return "webmercator" }

func (w WebMercator) Forward(p geometry.Point2D) geometry.Point2D {
	x, y, _ := w.forward(p.X, p.Y, 0)
	return geometry.Point2D{X: x, Y: y}
}

func (w WebMercator) Inverse(p geometry.Point2D) geometry.Point2D {
	lon, lat, _ := w.inverse(p.X, p.Y, 0)
	return geometry.Point2D{X: lon, Y: lat}
}

// ProjectorByName resolves a configured projector name. Unknown names get
// Equirectangular.
func ProjectorByName(name string) Projector {
	if name == "webmercator" {
		return NewWebMercator()
	}
	return Equirectangular{}
}

// Projection maps logical points to unrotated screen points and back. The
// zero-padding identity form is used by freehand surfaces.
type Projection struct {
	Bounds    Bounds
	Size      geometry.Size
	Padding   float64
	Projector Projector

	identity bool
}

// Identity returns a projection where logical space is pixel space.
func Identity(size geometry.Size) Projection {
	return Projection{Size: size, identity: true}
}

// NewGeo fits bounds into size with padding on every side.
func NewGeo(bounds Bounds, size geometry.Size, padding float64, projector Projector) Projection {
	if projector == nil {
		projector = Equirectangular{}
	}
	return Projection{Bounds: bounds, Size: size, Padding: padding, Projector: projector}
}

// IsIdentity reports whether this is a freehand projection.
func (p Projection) IsIdentity() bool {
	return p.identity
}

// planeExtent returns the projected bounds and their spans.
func (p Projection) planeExtent() (lo, hi geometry.Point2D, sx, sy float64) {
	lo = p.Projector.Forward(geometry.Point2D{X: p.Bounds.MinLon, Y: p.Bounds.MinLat})
	hi = p.Projector.Forward(geometry.Point2D{X: p.Bounds.MaxLon, Y: p.Bounds.MaxLat})
	return lo, hi, span(lo.X, hi.X), span(lo.Y, hi.Y)
}

// inner returns the padded drawing area. An area padding leaves empty
// counts as 1 pixel so the mapping stays finite.
func (p Projection) inner() (w, h float64) {
	return extent(p.Size.Width - 2*p.Padding), extent(p.Size.Height - 2*p.Padding)
}

func extent(v float64) float64 {
	if v <= 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return 1
	}
	return v
}

// Unrotated maps a logical point into the screen rectangle with no rotation.
func (p Projection) Unrotated(logical geometry.Point2D) geometry.Point2D {
	if p.identity {
		return logical
	}
	w, h := p.inner()
	lo, hi, sx, sy := p.planeExtent()
	q := p.Projector.Forward(logical)
	return geometry.Point2D{
		X: p.Padding + (q.X-lo.X)/sx*w,
		Y: p.Padding + (hi.Y-q.Y)/sy*h,
	}
}

// ToScreen maps a logical point to screen space, rotated by deg about pivot.
func (p Projection) ToScreen(logical geometry.Point2D, deg float64, pivot geometry.Point2D) geometry.Point2D {
	return Rotate(p.Unrotated(logical), pivot, deg)
}

// ToLogical inverts Unrotated. Callers inverse-rotate screen points first.
func (p Projection) ToLogical(screen geometry.Point2D) geometry.Point2D {
	if p.identity {
		return screen
	}
	w, h := p.inner()
	lo, hi, sx, sy := p.planeExtent()
	q := geometry.Point2D{
		X: lo.X + (screen.X-p.Padding)/w*sx,
		Y: hi.Y - (screen.Y-p.Padding)/h*sy,
	}
	return p.Projector.Inverse(q)
}

// Pivot is the rotation center: the surface center for freehand, the
// projected bounds center for geo.
func (p Projection) Pivot() geometry.Point2D {
	if p.identity {
		return p.Size.Center()
	}
	return p.Unrotated(p.Bounds.Center())
}

// PixelsPerUnit is the horizontal scale from logical units to pixels, used
// for radii stored in logical units.
func (p Projection) PixelsPerUnit() float64 {
	if p.identity {
		return 1
	}
	w, _ := p.inner()
	return w / span(p.Bounds.MinLon, p.Bounds.MaxLon)
}
