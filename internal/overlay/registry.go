package overlay

import (
	"slices"

	"geosketch/pkg/geometry"
)

// Registry owns a surface's overlay entities. Accessors return copies.
type Registry struct {
	pins        []Pin
	annotations []Annotation
	shapes      []Shape
	features    []Feature
	rev         uint64
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Revision changes whenever an entity is added, removed or edited.
func (r *Registry) Revision() uint64 { return r.rev }

// AddPin appends a pin and returns it.
func (r *Registry) AddPin(pos geometry.Point2D, label string) Pin {
	p := Pin{ID: NewID(), Position: pos, Label: label}
	r.pins = append(r.pins, p)
	r.rev++
	return p
}

// Pins returns all pins in insertion order.
func (r *Registry) Pins() []Pin {
	return slices.Clone(r.pins)
}

// SetPinLabel relabels the pin with id.
func (r *Registry) SetPinLabel(id, label string) bool {
	for i := range r.pins {
		if r.pins[i].ID == id {
			r.pins[i].Label = label
			r.rev++
			return true
		}
	}
	return false
}

// AddAnnotation appends an annotation and returns it.
func (r *Registry) AddAnnotation(pos geometry.Point2D, text string) Annotation {
	a := Annotation{ID: NewID(), Position: pos, Text: text}
	r.annotations = append(r.annotations, a)
	r.rev++
	return a
}

// Annotations returns all annotations in insertion order.
func (r *Registry) Annotations() []Annotation {
	return slices.Clone(r.annotations)
}

// SetAnnotationText replaces the text of the annotation with id.
func (r *Registry) SetAnnotationText(id, text string) bool {
	for i := range r.annotations {
		if r.annotations[i].ID == id {
			r.annotations[i].Text = text
			r.rev++
			return true
		}
	}
	return false
}

// AddShape stores a copy of s under a new id and returns it.
func (r *Registry) AddShape(s Shape) Shape {
	s = s.Clone()
	s.ID = NewID()
	r.shapes = append(r.shapes, s)
	r.rev++
	return s.Clone()
}

// Shapes returns deep copies of all shapes.
func (r *Registry) Shapes() []Shape {
	out := make([]Shape, len(r.shapes))
	for i, s := range r.shapes {
		out[i] = s.Clone()
	}
	return out
}

// SetShapes replaces the shape list, used when restoring history.
func (r *Registry) SetShapes(shapes []Shape) {
	r.shapes = r.shapes[:0]
	for _, s := range shapes {
		r.shapes = append(r.shapes, s.Clone())
	}
	r.rev++
}

// SetFeatures replaces the base features.
func (r *Registry) SetFeatures(fs []Feature) {
	r.features = slices.Clone(fs)
	r.rev++
}

// Features returns the base features.
func (r *Registry) Features() []Feature {
	return slices.Clone(r.features)
}

// SetFeatureLabel relabels the base feature with id.
func (r *Registry) SetFeatureLabel(id, label string) bool {
	for i := range r.features {
		if r.features[i].ID == id {
			r.features[i].Label = label
			r.rev++
			return true
		}
	}
	return false
}

// FeaturePoints returns every point that contributes to the surface bounds.
func (r *Registry) FeaturePoints() []geometry.Point2D {
	var pts []geometry.Point2D
	for _, f := range r.features {
		pts = append(pts, f.Points...)
	}
	return pts
}

// Clear removes user content. Base features are kept.
func (r *Registry) Clear() {
	r.pins = nil
	r.annotations = nil
	r.shapes = nil
	r.rev++
}

// IsEmpty reports whether there is no user content.
func (r *Registry) IsEmpty() bool {
	return len(r.pins) == 0 && len(r.annotations) == 0 && len(r.shapes) == 0
}
