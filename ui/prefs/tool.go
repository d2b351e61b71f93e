package prefs

import (
	"geosketch/internal/image"
	"geosketch/internal/overlay"
	"geosketch/internal/tool"
	"geosketch/pkg/colorutil"
)

const (
	keyTool          = "tool"
	keyMode          = "mode"
	keyColor         = "color"
	keyStrokeWidth   = "strokeWidth"
	keyLineDash      = "lineDash"
	keyRectangleDash = "rectangleDash"
	keyEraserSize    = "eraserSize"
	keyEraserShape   = "eraserShape"
)

// StoreTool remembers the tool settings. Mode is stored but select, pin and
// annotate modes are not restored, so a restart always starts drawing.
func (p *Prefs) StoreTool(cfg tool.Config) {
	p.SetString(keyTool, string(cfg.Tool))
	p.SetString(keyMode, string(cfg.Mode))
	p.SetString(keyColor, colorutil.Hex(cfg.Color))
	p.SetFloat(keyStrokeWidth, cfg.StrokeWidth)
	p.SetString(keyLineDash, string(cfg.LineDash))
	p.SetString(keyRectangleDash, string(cfg.RectangleDash))
	p.SetFloat(keyEraserSize, cfg.EraserSize)
	p.SetString(keyEraserShape, cfg.EraserShape.String())
}

// RestoreTool overlays remembered settings on cfg. Unknown or missing values
// keep cfg's.
func (p *Prefs) RestoreTool(cfg tool.Config) tool.Config {
	if t := tool.Tool(p.String(keyTool)); isTool(t) {
		cfg.Tool = t
	}
	if c, err := colorutil.ParseHex(p.String(keyColor)); err == nil {
		cfg.Color = c
	}
	if w := p.FloatWithFallback(keyStrokeWidth, cfg.StrokeWidth); w > 0 {
		cfg.StrokeWidth = w
	}
	if s := p.String(keyLineDash); s != "" {
		cfg.LineDash = overlay.ParseDashStyle(s)
	}
	if s := p.String(keyRectangleDash); s != "" {
		cfg.RectangleDash = overlay.ParseDashStyle(s)
	}
	if sz := p.FloatWithFallback(keyEraserSize, cfg.EraserSize); sz > 0 {
		cfg.EraserSize = sz
	}
	switch p.String(keyEraserShape) {
	case image.EraserSquare.String():
		cfg.EraserShape = image.EraserSquare
	case image.EraserCircle.String():
		cfg.EraserShape = image.EraserCircle
	}
	cfg.Mode = tool.ModeDraw
	return cfg
}

func isTool(t tool.Tool) bool {
	for _, known := range tool.Tools {
		if t == known {
			return true
		}
	}
	return false
}
