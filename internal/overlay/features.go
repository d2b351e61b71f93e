package overlay

import (
	"errors"
	"fmt"

	"geosketch/pkg/geometry"

	"github.com/peterstace/simplefeatures/geom"
)

// ErrUnsupportedGeometry is returned for base geometries other than points
// and polygons.
var ErrUnsupportedGeometry = errors.New("unsupported geometry")

// FeatureFromGeometry converts a decoded geometry into a base feature. Only
// the exterior ring of a polygon is kept.
func FeatureFromGeometry(label string, g geom.Geometry) (Feature, error) {
	switch g.Type() {
	case geom.TypePoint:
		pt, _ := g.AsPoint()
		c, ok := pt.Coordinates()
		if !ok {
			return Feature{}, fmt.Errorf("empty point: %w", ErrUnsupportedGeometry)
		}
		return Feature{
			ID:     NewID(),
			Kind:   FeaturePoint,
			Points: []geometry.Point2D{{X: c.XY.X, Y: c.XY.Y}},
			Label:  label,
		}, nil

	case geom.TypePolygon:
		poly, _ := g.AsPolygon()
		seq := poly.ExteriorRing().Coordinates()
		n := seq.Length()
		if n == 0 {
			return Feature{}, fmt.Errorf("empty polygon: %w", ErrUnsupportedGeometry)
		}
		pts := make([]geometry.Point2D, 0, n)
		for i := 0; i < n; i++ {
			xy := seq.GetXY(i)
			pts = append(pts, geometry.Point2D{X: xy.X, Y: xy.Y})
		}
		// Drop the repeated closing vertex.
		if len(pts) > 1 && pts[0] == pts[len(pts)-1] {
			pts = pts[:len(pts)-1]
		}
		return Feature{ID: NewID(), Kind: FeaturePolygon, Points: pts, Label: label}, nil

	default:
		return Feature{}, fmt.Errorf("%s: %w", g.Type(), ErrUnsupportedGeometry)
	}
}

// FeaturesFromCollection converts every supported feature of a decoded
// GeoJSON feature collection, using the "name" property as the label.
// Unsupported geometries are skipped and reported in the returned count.
func FeaturesFromCollection(fc geom.GeoJSONFeatureCollection) ([]Feature, int) {
	var out []Feature
	skipped := 0
	for _, f := range fc {
		label, _ := f.Properties["name"].(string)
		feat, err := FeatureFromGeometry(label, f.Geometry)
		if err != nil {
			skipped++
			continue
		}
		out = append(out, feat)
	}
	return out, skipped
}
