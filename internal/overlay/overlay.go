// Package overlay holds the vector entities drawn above a surface's raster:
// pins, annotations, geo shapes and base features. All positions are in the
// surface's logical space.
package overlay

import (
	"fmt"
	"image/color"
	"math/rand/v2"

	"geosketch/internal/image"
	"geosketch/pkg/geometry"

	"github.com/google/uuid"
)

// Pin is a labelled marker.
type Pin struct {
	ID       string
	Position geometry.Point2D
	Label    string
}

// Annotation is a free text label.
type Annotation struct {
	ID       string
	Position geometry.Point2D
	Text     string
}

// ShapeKind identifies a geo shape.
type ShapeKind string

const (
	ShapeLine      ShapeKind = "line"
	ShapeRectangle ShapeKind = "rectangle"
	ShapeCircle    ShapeKind = "circle"
	ShapePolygon   ShapeKind = "polygon"
)

// DashStyle names a stroke pattern.
type DashStyle string

const (
	DashSolid  DashStyle = "solid"
	DashDashed DashStyle = "dashed"
	DashDotted DashStyle = "dotted"
)

// ParseDashStyle maps a name to a DashStyle, defaulting to solid.
func ParseDashStyle(s string) DashStyle {
	switch DashStyle(s) {
	case DashDashed, DashDotted:
		return DashStyle(s)
	default:
		return DashSolid
	}
}

// Pattern returns the raster dash pattern for d.
func (d DashStyle) Pattern() []float64 {
	switch d {
	case DashDashed:
		return image.DashDashed
	case DashDotted:
		return image.DashDotted
	default:
		return image.DashSolid
	}
}

// Shape is a vector shape kept on geo surfaces. Which fields are meaningful
// depends on Kind: Start/End for lines and rectangles, Center/Radius for
// circles (radius in logical units), Points for polygons.
type Shape struct {
	ID          string
	Kind        ShapeKind
	Start       geometry.Point2D
	End         geometry.Point2D
	Center      geometry.Point2D
	Radius      float64
	Points      []geometry.Point2D
	Closed      bool
	Color       color.RGBA
	StrokeWidth float64
	Dash        DashStyle
}

// Clone returns a deep copy.
func (s Shape) Clone() Shape {
	if s.Points != nil {
		s.Points = append([]geometry.Point2D(nil), s.Points...)
	}
	return s
}

// FeatureKind identifies a base feature geometry.
type FeatureKind string

const (
	FeaturePoint   FeatureKind = "point"
	FeaturePolygon FeatureKind = "polygon"
)

// Feature is read-only base data drawn beneath the drawing layer of a geo
// surface.
type Feature struct {
	ID     string
	Kind   FeatureKind
	Points []geometry.Point2D
	Label  string
}

// Position returns the point of a point feature, or the centroid otherwise.
func (f Feature) Position() geometry.Point2D {
	if f.Kind == FeaturePoint && len(f.Points) > 0 {
		return f.Points[0]
	}
	return geometry.Centroid(f.Points)
}

// NewID returns a fresh entity identifier.
func NewID() string {
	return uuid.NewString()
}

const codeLetters = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// RandomCode returns a short display code: one letter then one digit.
func RandomCode() string {
	return fmt.Sprintf("%c%d", codeLetters[rand.IntN(len(codeLetters))], rand.IntN(10))
}

// CategoryLabel builds the label given to a pin when a category is chosen.
func CategoryLabel(category string) string {
	return RandomCode() + " " + category
}
