package export

import (
	"encoding/json"
	"math"
	"testing"

	"geosketch/internal/overlay"
	"geosketch/internal/surface"
	"geosketch/pkg/colorutil"
	"geosketch/pkg/geometry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func geoSession(t *testing.T) *surface.Session {
	t.Helper()
	s := surface.New(2, surface.KindGeo, surface.Options{Width: 300, Height: 200, Padding: 50})
	s.SetFeatures([]overlay.Feature{
		{ID: "base-1", Kind: overlay.FeaturePoint, Points: []geometry.Point2D{{X: 10, Y: 40}}, Label: "Well"},
		{ID: "base-2", Kind: overlay.FeaturePolygon, Points: []geometry.Point2D{{X: 10, Y: 40}, {X: 20, Y: 40}, {X: 20, Y: 50}}},
	})
	s.Init()
	reg := s.Overlays()
	reg.AddPin(geometry.Point2D{X: 12, Y: 42}, "B3 Hazard")
	reg.AddAnnotation(geometry.Point2D{X: 15, Y: 45}, "camp")
	reg.AddShape(overlay.Shape{Kind: overlay.ShapeLine, Start: geometry.Point2D{X: 10, Y: 40}, End: geometry.Point2D{X: 20, Y: 50},
		Color: colorutil.MustParseHex("#ff0000"), StrokeWidth: 3, Dash: overlay.DashDashed})
	reg.AddShape(overlay.Shape{Kind: overlay.ShapeRectangle, Start: geometry.Point2D{X: 11, Y: 41}, End: geometry.Point2D{X: 13, Y: 43},
		Color: colorutil.Black, StrokeWidth: 2, Dash: overlay.DashSolid})
	reg.AddShape(overlay.Shape{Kind: overlay.ShapeCircle, Center: geometry.Point2D{X: 15, Y: 45}, Radius: 0.5,
		Color: colorutil.Black, StrokeWidth: 2, Dash: overlay.DashSolid})
	reg.AddShape(overlay.Shape{Kind: overlay.ShapePolygon, Points: []geometry.Point2D{{X: 10, Y: 40}, {X: 11, Y: 41}}, Closed: false,
		Color: colorutil.Black, StrokeWidth: 2, Dash: overlay.DashDotted})
	s.SetRotation(30)
	return s
}

func TestFromSession(t *testing.T) {
	doc := FromSession(geoSession(t))

	assert.Equal(t, 2, doc.ID)
	assert.Equal(t, "geo", doc.Kind)
	assert.Equal(t, 30.0, doc.RotationAngle)
	require.Len(t, doc.Pins, 1)
	assert.Equal(t, geometry.Point2D{X: 12, Y: 42}, doc.Pins[0].Position)
	assert.Equal(t, "B3 Hazard", doc.Pins[0].Label)
	require.Len(t, doc.Annotations, 1)
	require.Len(t, doc.Shapes, 4)
	assert.Equal(t, "#ff0000", doc.Shapes[0].Color)
	assert.Equal(t, "dashed", doc.Shapes[0].Dash)
	assert.Nil(t, doc.Shapes[2].Start)
	require.NotNil(t, doc.Shapes[2].Center)
	assert.Len(t, doc.Features, 2)
}

func TestFromFreehandSessionHasEmptyLists(t *testing.T) {
	s := surface.New(1, surface.KindFreehand, surface.Options{Width: 50, Height: 50})
	s.Init()

	data, err := json.Marshal(FromSession(s))
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":1,"kind":"freehand","rotationAngle":0,"pins":[],"annotations":[]}`, string(data))
}

func TestGeoJSON(t *testing.T) {
	doc := Document{Surfaces: []Surface{FromSession(geoSession(t))}}

	data, err := GeoJSON(doc)
	require.NoError(t, err)

	var got []struct {
		Type     string `json:"type"`
		Metadata struct {
			SurfaceID     int     `json:"surfaceId"`
			RotationAngle float64 `json:"rotationAngle"`
		} `json:"metadata"`
		Features []struct {
			ID       string `json:"id"`
			Geometry struct {
				Type        string          `json:"type"`
				Coordinates json.RawMessage `json:"coordinates"`
			} `json:"geometry"`
			Properties map[string]interface{} `json:"properties"`
		} `json:"features"`
	}
	require.NoError(t, json.Unmarshal(data, &got))
	require.Len(t, got, 1)

	fc := got[0]
	assert.Equal(t, "FeatureCollection", fc.Type)
	assert.Equal(t, 2, fc.Metadata.SurfaceID)
	assert.Equal(t, 30.0, fc.Metadata.RotationAngle)
	require.Len(t, fc.Features, 8)

	types := make([]string, len(fc.Features))
	for i, f := range fc.Features {
		types[i] = f.Geometry.Type
	}
	assert.Equal(t, []string{"Point", "Polygon", "Point", "Point", "LineString", "Polygon", "Point", "LineString"}, types)

	assert.Equal(t, "Well", fc.Features[0].Properties["name"])
	assert.Equal(t, true, fc.Features[2].Properties["isCustomPin"])
	assert.Equal(t, "B3 Hazard", fc.Features[2].Properties["customText"])
	assert.Equal(t, true, fc.Features[3].Properties["isAnnotation"])
	assert.Equal(t, "camp", fc.Features[3].Properties["annotationText"])

	line := fc.Features[4].Properties
	assert.Equal(t, "draw", line["mode"])
	assert.Equal(t, "line", line["shapeType"])
	assert.Equal(t, "#ff0000", line["color"])
	assert.Equal(t, "dashed", line["style"])
	assert.Equal(t, true, line["isCustomShape"])

	var rect [][][]float64
	require.NoError(t, json.Unmarshal(fc.Features[5].Geometry.Coordinates, &rect))
	require.Len(t, rect, 1)
	assert.Len(t, rect[0], 5)
	assert.Equal(t, rect[0][0], rect[0][4])

	circle := fc.Features[6].Properties
	assert.Equal(t, "Circle", circle["subType"])
	assert.Equal(t, 0.5, circle["radius"])
}

func TestGeoJSONKeepsSelfIntersectingPolygon(t *testing.T) {
	bowtie := []geometry.Point2D{{X: 0, Y: 0}, {X: 10, Y: 10}, {X: 10, Y: 0}, {X: 0, Y: 10}}
	doc := Document{Surfaces: []Surface{{
		ID:   2,
		Kind: "geo",
		Shapes: []Shape{{
			ID: "bowtie", Kind: "polygon", Points: bowtie, Closed: true,
			Color: "#000000", StrokeWidth: 2, Dash: "solid",
		}},
	}}}

	data, err := GeoJSON(doc)
	require.NoError(t, err)

	var got []struct {
		Features []struct {
			Geometry struct {
				Type        string        `json:"type"`
				Coordinates [][][]float64 `json:"coordinates"`
			} `json:"geometry"`
		} `json:"features"`
	}
	require.NoError(t, json.Unmarshal(data, &got))
	require.Len(t, got, 1)
	require.Len(t, got[0].Features, 1)

	g := got[0].Features[0].Geometry
	assert.Equal(t, "Polygon", g.Type)
	require.Len(t, g.Coordinates, 1)
	assert.Len(t, g.Coordinates[0], 5)
	assert.Equal(t, []float64{10, 10}, g.Coordinates[0][1])
}

func TestGeoJSONReportsUnencodablePin(t *testing.T) {
	doc := Document{Surfaces: []Surface{{
		ID:   1,
		Kind: "freehand",
		Pins: []Pin{{ID: "p", Position: geometry.Point2D{X: math.NaN(), Y: 1}}},
	}}}

	_, err := GeoJSON(doc)
	assert.Error(t, err)
}
