// Package tool interprets pointer and key events against the active surface
// according to the shared tool configuration.
package tool

import (
	"fmt"
	"image/color"

	"geosketch/internal/config"
	"geosketch/internal/image"
	"geosketch/internal/overlay"
	"geosketch/pkg/colorutil"
	"geosketch/pkg/geometry"
)

// Tool is the active drawing tool.
type Tool string

const (
	Pencil        Tool = "pencil"
	Eraser        Tool = "eraser"
	Line          Tool = "line"
	Rectangle     Tool = "rectangle"
	Circle        Tool = "circle"
	ClosedPolygon Tool = "closedPolygon"
	OpenPolygon   Tool = "openPolygon"
	Text          Tool = "text"
)

// Tools lists every tool in toolbar order.
var Tools = []Tool{Pencil, Eraser, Line, Rectangle, Circle, ClosedPolygon, OpenPolygon, Text}

// IsPolygon reports whether t builds a polygon point by point.
func (t Tool) IsPolygon() bool { return t == ClosedPolygon || t == OpenPolygon }

// IsShape reports whether t is a drag-to-size shape.
func (t Tool) IsShape() bool { return t == Line || t == Rectangle || t == Circle }

// Mode decides what a pointer press means.
type Mode string

const (
	ModeDraw     Mode = "draw"
	ModeSelect   Mode = "select"
	ModeAddPin   Mode = "addPin"
	ModeAnnotate Mode = "annotate"
)

// Modes lists every mode in toolbar order.
var Modes = []Mode{ModeDraw, ModeSelect, ModeAddPin, ModeAnnotate}

// Config is shared by every surface.
type Config struct {
	Tool          Tool
	Mode          Mode
	Color         color.RGBA
	StrokeWidth   float64
	LineDash      overlay.DashStyle
	RectangleDash overlay.DashStyle
	EraserSize    float64
	EraserShape   image.EraserShape
}

// DefaultConfig is black pencil drawing.
func DefaultConfig() Config {
	return Config{
		Tool:          Pencil,
		Mode:          ModeDraw,
		Color:         colorutil.Black,
		StrokeWidth:   2,
		LineDash:      overlay.DashSolid,
		RectangleDash: overlay.DashSolid,
		EraserSize:    20,
		EraserShape:   image.EraserCircle,
	}
}

// ConfigFromSettings builds a Config from loaded tool settings.
func ConfigFromSettings(ts config.ToolConfig) (Config, error) {
	cfg := DefaultConfig()
	if ts.Color != "" {
		c, err := colorutil.ParseHex(ts.Color)
		if err != nil {
			return cfg, fmt.Errorf("tool color: %w", err)
		}
		cfg.Color = c
	}
	if ts.StrokeWidth > 0 {
		cfg.StrokeWidth = float64(ts.StrokeWidth)
	}
	if ts.EraserSize > 0 {
		cfg.EraserSize = float64(ts.EraserSize)
	}
	if ts.EraserShape == image.EraserSquare.String() {
		cfg.EraserShape = image.EraserSquare
	}
	return cfg, nil
}

// TextSize is the font size used by the text tool.
func (c Config) TextSize() float64 { return c.StrokeWidth * 8 }

// FinalColor is the color used when a shape, line or text is finalized.
// Pure white would vanish on the background, so it becomes black.
func (c Config) FinalColor() color.RGBA { return colorutil.VisibleOnWhite(c.Color) }

// TextEntry asks the user for a line of text. commit receives the trimmed
// text and is never called for empty input or cancellation. commit must not
// be called before RequestText returns.
type TextEntry interface {
	RequestText(screenPos geometry.Point2D, initial string, commit func(string))
}

// Chooser asks the user to pick one of options.
type Chooser interface {
	Choose(title string, options []string, commit func(string))
}
