// Package colorutil provides shared color utilities for the sketch surfaces.
package colorutil

import (
	"fmt"
	"image/color"
	"strconv"
	"strings"
)

// Common colors used throughout the application.
var (
	Black       = color.RGBA{R: 0, G: 0, B: 0, A: 255}
	White       = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	Transparent = color.RGBA{}

	PinFill        = color.RGBA{R: 0x34, G: 0xa8, B: 0x53, A: 255}
	PinStroke      = color.RGBA{R: 0x1e, G: 0x8e, B: 0x3e, A: 255}
	FeaturePoint   = color.RGBA{R: 0xea, G: 0x43, B: 0x35, A: 255}
	FeatureOutline = color.RGBA{R: 0xc5, G: 0x22, B: 0x1f, A: 255}
	FeatureStroke  = color.RGBA{R: 0x1a, G: 0x73, B: 0xe8, A: 255}
	// FeatureFill is rgba(66,133,244,0.3), premultiplied.
	FeatureFill = color.RGBA{R: 20, G: 40, B: 73, A: 77}
	// AnnotationBox is rgba(251,188,4,0.95), premultiplied.
	AnnotationBox = color.RGBA{R: 238, G: 179, B: 4, A: 242}
	LabelBox      = color.RGBA{R: 255, G: 255, B: 255, A: 230}
	CursorOutline = color.RGBA{R: 0x80, G: 0x80, B: 0x80, A: 255}
)

// ParseHex parses "#rgb", "#rrggbb" or "#rrggbbaa" into an opaque-by-default RGBA.
func ParseHex(s string) (color.RGBA, error) {
	h := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(h) == 3 {
		h = string([]byte{h[0], h[0], h[1], h[1], h[2], h[2]})
	}
	if len(h) == 6 {
		h += "ff"
	}
	if len(h) != 8 {
		return color.RGBA{}, fmt.Errorf("invalid color %q", s)
	}
	v, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("invalid color %q: %w", s, err)
	}
	c := color.NRGBA{R: uint8(v >> 24), G: uint8(v >> 16), B: uint8(v >> 8), A: uint8(v)}
	return color.RGBAModel.Convert(c).(color.RGBA), nil
}

// MustParseHex is like ParseHex but panics on malformed input.
func MustParseHex(s string) color.RGBA {
	c, err := ParseHex(s)
	if err != nil {
		panic(err)
	}
	return c
}

// Hex formats an opaque color as "#rrggbb".
func Hex(c color.Color) string {
	n := color.NRGBAModel.Convert(c).(color.NRGBA)
	return fmt.Sprintf("#%02x%02x%02x", n.R, n.G, n.B)
}

// IsWhite reports whether c is pure opaque white.
func IsWhite(c color.Color) bool {
	r, g, b, a := c.RGBA()
	return r == 0xffff && g == 0xffff && b == 0xffff && a == 0xffff
}

// VisibleOnWhite substitutes black for pure white so finalized strokes never
// vanish into the white background.
func VisibleOnWhite(c color.RGBA) color.RGBA {
	if IsWhite(c) {
		return Black
	}
	return c
}
