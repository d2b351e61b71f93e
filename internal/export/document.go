// Package export turns surface state into plain data for collaborators:
// a JSON-taggable document and GeoJSON feature collections.
package export

import (
	"geosketch/internal/overlay"
	"geosketch/internal/surface"
	"geosketch/pkg/colorutil"
	"geosketch/pkg/geometry"
)

// Document is the exported state of every mounted surface.
type Document struct {
	Surfaces []Surface `json:"surfaces"`
}

// Surface is the exported state of one surface. Positions are logical
// coordinates: pixels for freehand surfaces, lon/lat for geo surfaces.
type Surface struct {
	ID            int          `json:"id"`
	Kind          string       `json:"kind"`
	RotationAngle float64      `json:"rotationAngle"`
	Pins          []Pin        `json:"pins"`
	Annotations   []Annotation `json:"annotations"`
	Shapes        []Shape      `json:"shapes,omitempty"`
	Features      []Feature    `json:"features,omitempty"`
}

// Pin is an exported pin.
type Pin struct {
	ID       string           `json:"id"`
	Position geometry.Point2D `json:"position"`
	Label    string           `json:"label,omitempty"`
}

// Annotation is an exported annotation.
type Annotation struct {
	ID       string           `json:"id"`
	Position geometry.Point2D `json:"position"`
	Text     string           `json:"text"`
}

// Shape is an exported geo shape.
type Shape struct {
	ID          string             `json:"id"`
	Kind        string             `json:"kind"`
	Start       *geometry.Point2D  `json:"start,omitempty"`
	End         *geometry.Point2D  `json:"end,omitempty"`
	Center      *geometry.Point2D  `json:"center,omitempty"`
	Radius      float64            `json:"radius,omitempty"`
	Points      []geometry.Point2D `json:"points,omitempty"`
	Closed      bool               `json:"closed,omitempty"`
	Color       string             `json:"color"`
	StrokeWidth float64            `json:"strokeWidth"`
	Dash        string             `json:"dash"`
}

// Feature is an exported base feature.
type Feature struct {
	ID     string             `json:"id"`
	Kind   string             `json:"kind"`
	Points []geometry.Point2D `json:"points"`
	Label  string             `json:"label,omitempty"`
}

// FromSession captures the exportable state of s.
func FromSession(s *surface.Session) Surface {
	out := Surface{
		ID:            int(s.ID()),
		Kind:          s.Kind().String(),
		RotationAngle: s.Rotation(),
		Pins:          []Pin{},
		Annotations:   []Annotation{},
	}
	reg := s.Overlays()
	for _, p := range reg.Pins() {
		out.Pins = append(out.Pins, Pin{ID: p.ID, Position: p.Position, Label: p.Label})
	}
	for _, a := range reg.Annotations() {
		out.Annotations = append(out.Annotations, Annotation{ID: a.ID, Position: a.Position, Text: a.Text})
	}
	for _, sh := range reg.Shapes() {
		out.Shapes = append(out.Shapes, shapeFrom(sh))
	}
	for _, f := range reg.Features() {
		out.Features = append(out.Features, Feature{ID: f.ID, Kind: string(f.Kind), Points: f.Points, Label: f.Label})
	}
	return out
}

func shapeFrom(sh overlay.Shape) Shape {
	out := Shape{
		ID:          sh.ID,
		Kind:        string(sh.Kind),
		Color:       colorutil.Hex(sh.Color),
		StrokeWidth: sh.StrokeWidth,
		Dash:        string(sh.Dash),
	}
	switch sh.Kind {
	case overlay.ShapeLine, overlay.ShapeRectangle:
		start, end := sh.Start, sh.End
		out.Start, out.End = &start, &end
	case overlay.ShapeCircle:
		c := sh.Center
		out.Center = &c
		out.Radius = sh.Radius
	case overlay.ShapePolygon:
		out.Points = sh.Points
		out.Closed = sh.Closed
	}
	return out
}
