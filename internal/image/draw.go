package image

import (
	"image"
	"image/color"
	"image/draw"
	"math"
	"slices"

	"geosketch/pkg/geometry"

	"golang.org/x/image/vector"
)

// Dash patterns in pixels, alternating on and off lengths.
var (
	DashSolid   []float64
	DashDashed  = []float64{10, 5}
	DashDotted  = []float64{2, 5}
	DashPreview = []float64{5, 5}
)

// Style describes how a path is stroked.
type Style struct {
	Color    color.RGBA
	Width    float64
	Dash     []float64
	RoundCap bool
}

// circleSegments returns how many vertices approximate a circle of radius r.
func circleSegments(r float64) int {
	n := int(math.Ceil(2 * math.Pi * r / 2))
	if n < 12 {
		n = 12
	}
	if n > 256 {
		n = 256
	}
	return n
}

// disc returns a polygon approximating a filled circle, wound against
// increasing angle.
func disc(c geometry.Point2D, r float64) []geometry.Point2D {
	pts := geometry.GenerateCirclePoints(c.X, c.Y, r, circleSegments(r))
	slices.Reverse(pts[1:])
	return pts
}

// ring returns the outline points of a circle, for stroking.
func ring(c geometry.Point2D, r float64) []geometry.Point2D {
	pts := disc(c, r)
	return append(pts, pts[0])
}

// segmentQuad returns the rectangle covering a segment of width w, wound the
// same way as disc. Square caps extend the quad by half the width.
func segmentQuad(a, b geometry.Point2D, w float64, square bool) []geometry.Point2D {
	d := b.Sub(a)
	l := math.Hypot(d.X, d.Y)
	hw := w / 2
	if l == 0 {
		return nil
	}
	u := d.Scale(1 / l)
	n := geometry.Point2D{X: -u.Y * hw, Y: u.X * hw}
	if square {
		a = a.Sub(u.Scale(hw))
		b = b.Add(u.Scale(hw))
	}
	return []geometry.Point2D{a.Add(n), b.Add(n), b.Sub(n), a.Sub(n)}
}

// dashRuns splits a polyline into its "on" runs. The pattern continues across
// vertices and restarts for each call.
func dashRuns(points []geometry.Point2D, pattern []float64) [][]geometry.Point2D {
	if len(pattern) == 0 || len(points) < 2 {
		return [][]geometry.Point2D{points}
	}
	if len(pattern)%2 == 1 {
		pattern = append(append([]float64{}, pattern...), pattern...)
	}
	total := 0.0
	for _, v := range pattern {
		total += v
	}
	if total <= 0 {
		return [][]geometry.Point2D{points}
	}

	var runs [][]geometry.Point2D
	cur := []geometry.Point2D{points[0]}
	idx, left := 0, pattern[0]
	on := true
	for i := 1; i < len(points); i++ {
		a, b := points[i-1], points[i]
		segLen := a.Distance(b)
		pos := 0.0
		for segLen-pos > left {
			pos += left
			p := a.Add(b.Sub(a).Scale(pos / segLen))
			if on {
				cur = append(cur, p)
				runs = append(runs, cur)
				cur = nil
			} else {
				cur = []geometry.Point2D{p}
			}
			on = !on
			idx = (idx + 1) % len(pattern)
			left = pattern[idx]
		}
		left -= segLen - pos
		if on {
			cur = append(cur, b)
		}
	}
	if on && len(cur) > 1 {
		runs = append(runs, cur)
	}
	return runs
}

// strokeOutline returns the filled polygons that make up a stroked polyline.
func strokeOutline(points []geometry.Point2D, st Style) [][]geometry.Point2D {
	w := st.Width
	if w <= 0 {
		w = 1
	}
	var polys [][]geometry.Point2D
	for _, run := range dashRuns(points, st.Dash) {
		if len(run) == 1 || (len(run) == 2 && run[0] == run[1]) {
			// A click without movement still leaves a dot.
			if st.RoundCap {
				polys = append(polys, disc(run[0], w/2))
			}
			continue
		}
		for i := 1; i < len(run); i++ {
			if q := segmentQuad(run[i-1], run[i], w, !st.RoundCap); q != nil {
				polys = append(polys, q)
			}
		}
		if st.RoundCap && w > 1 {
			for _, p := range run {
				polys = append(polys, disc(p, w/2))
			}
		}
	}
	return polys
}

// clipPolygon clips a polygon to the rectangle b (Sutherland-Hodgman).
// Winding is preserved.
func clipPolygon(poly []geometry.Point2D, b image.Rectangle) []geometry.Point2D {
	type edge struct {
		inside func(geometry.Point2D) bool
		cross  func(a, b geometry.Point2D) geometry.Point2D
	}
	x0, y0 := float64(b.Min.X), float64(b.Min.Y)
	x1, y1 := float64(b.Max.X), float64(b.Max.Y)
	lerpX := func(a, b geometry.Point2D, x float64) geometry.Point2D {
		t := (x - a.X) / (b.X - a.X)
		return geometry.Point2D{X: x, Y: a.Y + t*(b.Y-a.Y)}
	}
	lerpY := func(a, b geometry.Point2D, y float64) geometry.Point2D {
		t := (y - a.Y) / (b.Y - a.Y)
		return geometry.Point2D{X: a.X + t*(b.X-a.X), Y: y}
	}
	edges := []edge{
		{func(p geometry.Point2D) bool { return p.X >= x0 }, func(a, b geometry.Point2D) geometry.Point2D { return lerpX(a, b, x0) }},
		{func(p geometry.Point2D) bool { return p.X <= x1 }, func(a, b geometry.Point2D) geometry.Point2D { return lerpX(a, b, x1) }},
		{func(p geometry.Point2D) bool { return p.Y >= y0 }, func(a, b geometry.Point2D) geometry.Point2D { return lerpY(a, b, y0) }},
		{func(p geometry.Point2D) bool { return p.Y <= y1 }, func(a, b geometry.Point2D) geometry.Point2D { return lerpY(a, b, y1) }},
	}

	out := poly
	for _, e := range edges {
		if len(out) == 0 {
			return nil
		}
		in := out
		out = nil
		prev := in[len(in)-1]
		for _, cur := range in {
			switch {
			case e.inside(cur) && e.inside(prev):
				out = append(out, cur)
			case e.inside(cur):
				out = append(out, e.cross(prev, cur), cur)
			case e.inside(prev):
				out = append(out, e.cross(prev, cur))
			}
			prev = cur
		}
	}
	return out
}

// pixelBounds returns the whole pixels touched by points, limited to clip.
func pixelBounds(points []geometry.Point2D, clip image.Rectangle) image.Rectangle {
	box := geometry.BoundingBox(points)
	return image.Rect(
		int(math.Floor(box.X)), int(math.Floor(box.Y)),
		int(math.Ceil(box.X+box.Width)), int(math.Ceil(box.Y+box.Height)),
	).Intersect(clip)
}

// fillPolygons rasterizes polys as one mask and draws src through it. The
// mask only covers the polygons' bounding box, so small shapes stay cheap on
// large images.
func fillPolygons(dst draw.Image, polys [][]geometry.Point2D, src color.Color, op draw.Op) {
	b := dst.Bounds()
	var (
		clipped [][]geometry.Point2D
		all     []geometry.Point2D
	)
	for _, poly := range polys {
		poly = clipPolygon(poly, b)
		if len(poly) < 3 {
			continue
		}
		clipped = append(clipped, poly)
		all = append(all, poly...)
	}
	if len(clipped) == 0 {
		return
	}
	r := pixelBounds(all, b)
	if r.Empty() {
		return
	}

	z := vector.NewRasterizer(r.Dx(), r.Dy())
	z.DrawOp = op
	ox, oy := float64(r.Min.X), float64(r.Min.Y)
	for _, poly := range clipped {
		z.MoveTo(float32(poly[0].X-ox), float32(poly[0].Y-oy))
		for _, p := range poly[1:] {
			z.LineTo(float32(p.X-ox), float32(p.Y-oy))
		}
		z.ClosePath()
	}
	z.Draw(dst, r, image.NewUniform(src), image.Point{})
}

// StrokePathOn strokes an open polyline onto dst.
func StrokePathOn(dst *image.RGBA, points []geometry.Point2D, st Style) {
	fillPolygons(dst, strokeOutline(points, st), st.Color, draw.Over)
}

// FillCircleOn fills a circle on dst, with an optional outline.
func FillCircleOn(dst *image.RGBA, center geometry.Point2D, radius float64, fill color.RGBA, outline *Style) {
	fillPolygons(dst, [][]geometry.Point2D{disc(center, radius)}, fill, draw.Over)
	if outline != nil {
		StrokePathOn(dst, ring(center, radius), *outline)
	}
}

// FillPolygonOn fills a simple polygon on dst.
func FillPolygonOn(dst *image.RGBA, points []geometry.Point2D, fill color.Color) {
	if len(points) < 3 {
		return
	}
	fillPolygons(dst, [][]geometry.Point2D{points}, fill, draw.Over)
}

// FillRectOn fills an axis-aligned rectangle on dst.
func FillRectOn(dst *image.RGBA, r geometry.Rect, fill color.Color) {
	FillPolygonOn(dst, r.Corners(), fill)
}

// StrokeCircleOn strokes a circle outline on dst.
func StrokeCircleOn(dst *image.RGBA, center geometry.Point2D, radius float64, st Style) {
	if radius <= 0 {
		return
	}
	StrokePathOn(dst, ring(center, radius), st)
}
