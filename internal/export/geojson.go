package export

import (
	"encoding/json"
	"fmt"

	"geosketch/pkg/geometry"

	"github.com/peterstace/simplefeatures/geom"
)

// Metadata accompanies each exported feature collection.
type Metadata struct {
	SurfaceID     int     `json:"surfaceId"`
	Kind          string  `json:"kind"`
	RotationAngle float64 `json:"rotationAngle"`
}

// FeatureCollection is a GeoJSON feature collection with surface metadata.
type FeatureCollection struct {
	Type     string                `json:"type"`
	Features []geom.GeoJSONFeature `json:"features"`
	Metadata Metadata              `json:"metadata"`
}

// GeoJSON encodes one feature collection per surface.
func GeoJSON(doc Document) ([]byte, error) {
	out := make([]FeatureCollection, 0, len(doc.Surfaces))
	for _, s := range doc.Surfaces {
		fc, err := Collection(s)
		if err != nil {
			return nil, fmt.Errorf("surface %d: %w", s.ID, err)
		}
		out = append(out, fc)
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding geojson: %w", err)
	}
	return data, nil
}

// Collection builds the feature collection for one surface: base features
// first, then pins, annotations and shapes. User-drawn shapes are exported
// as drawn, so a self-intersecting polygon keeps its ring.
func Collection(s Surface) (FeatureCollection, error) {
	fc := FeatureCollection{
		Type:     "FeatureCollection",
		Features: []geom.GeoJSONFeature{},
		Metadata: Metadata{SurfaceID: s.ID, Kind: s.Kind, RotationAngle: s.RotationAngle},
	}
	add := func(id string, g geom.Geometry, props map[string]interface{}) {
		fc.Features = append(fc.Features, geom.GeoJSONFeature{ID: id, Geometry: g, Properties: props})
	}

	for _, f := range s.Features {
		props := map[string]interface{}{}
		if f.Label != "" {
			props["name"] = f.Label
		}
		var (
			g   geom.Geometry
			err error
		)
		switch f.Kind {
		case "point":
			if len(f.Points) == 0 {
				continue
			}
			g, err = pointGeom(f.Points[0])
		case "polygon":
			if len(f.Points) < 3 {
				continue
			}
			g, err = polygonGeom(f.Points)
		default:
			continue
		}
		if err != nil {
			return fc, fmt.Errorf("feature %s: %w", f.ID, err)
		}
		add(f.ID, g, props)
	}

	for _, p := range s.Pins {
		g, err := pointGeom(p.Position)
		if err != nil {
			return fc, fmt.Errorf("pin %s: %w", p.ID, err)
		}
		add(p.ID, g, map[string]interface{}{
			"isCustomPin": true,
			"customText":  p.Label,
		})
	}

	for _, a := range s.Annotations {
		g, err := pointGeom(a.Position)
		if err != nil {
			return fc, fmt.Errorf("annotation %s: %w", a.ID, err)
		}
		add(a.ID, g, map[string]interface{}{
			"isAnnotation":   true,
			"annotationText": a.Text,
		})
	}

	for _, sh := range s.Shapes {
		g, props, ok, err := shapeFeature(sh)
		if err != nil {
			return fc, fmt.Errorf("shape %s: %w", sh.ID, err)
		}
		if ok {
			add(sh.ID, g, props)
		}
	}
	return fc, nil
}

func shapeFeature(sh Shape) (geom.Geometry, map[string]interface{}, bool, error) {
	props := map[string]interface{}{
		"mode":          "draw",
		"shapeType":     sh.Kind,
		"color":         sh.Color,
		"width":         sh.StrokeWidth,
		"style":         sh.Dash,
		"isCustomShape": true,
	}
	var (
		g   geom.Geometry
		err error
	)
	switch sh.Kind {
	case "line":
		if sh.Start == nil || sh.End == nil {
			return g, nil, false, nil
		}
		g, err = lineGeom([]geometry.Point2D{*sh.Start, *sh.End}, geom.DisableAllValidations)
	case "rectangle":
		if sh.Start == nil || sh.End == nil {
			return g, nil, false, nil
		}
		lo, hi := *sh.Start, *sh.End
		ring := []geometry.Point2D{lo, {X: hi.X, Y: lo.Y}, hi, {X: lo.X, Y: hi.Y}}
		g, err = polygonGeom(ring, geom.DisableAllValidations)
	case "circle":
		if sh.Center == nil {
			return g, nil, false, nil
		}
		props["radius"] = sh.Radius
		props["subType"] = "Circle"
		g, err = pointGeom(*sh.Center)
	case "polygon":
		switch {
		case sh.Closed && len(sh.Points) > 2:
			g, err = polygonGeom(sh.Points, geom.DisableAllValidations)
		case len(sh.Points) >= 2:
			g, err = lineGeom(sh.Points, geom.DisableAllValidations)
		default:
			return g, nil, false, nil
		}
	default:
		return g, nil, false, nil
	}
	if err != nil {
		return g, nil, false, err
	}
	return g, props, true, nil
}

func pointGeom(p geometry.Point2D) (geom.Geometry, error) {
	pt, err := geom.NewPoint(geom.Coordinates{XY: geom.XY{X: p.X, Y: p.Y}, Type: geom.DimXY})
	if err != nil {
		return geom.Geometry{}, err
	}
	return pt.AsGeometry(), nil
}

func flat(points []geometry.Point2D) geom.Sequence {
	coords := make([]float64, 0, 2*len(points))
	for _, p := range points {
		coords = append(coords, p.X, p.Y)
	}
	return geom.NewSequence(coords, geom.DimXY)
}

func lineGeom(points []geometry.Point2D, opts ...geom.ConstructorOption) (geom.Geometry, error) {
	ls, err := geom.NewLineString(flat(points), opts...)
	if err != nil {
		return geom.Geometry{}, err
	}
	return ls.AsGeometry(), nil
}

func polygonGeom(points []geometry.Point2D, opts ...geom.ConstructorOption) (geom.Geometry, error) {
	ring, err := geom.NewLineString(flat(geometry.ClosedRing(points)), opts...)
	if err != nil {
		return geom.Geometry{}, err
	}
	poly, err := geom.NewPolygon([]geom.LineString{ring}, opts...)
	if err != nil {
		return geom.Geometry{}, err
	}
	return poly.AsGeometry(), nil
}
