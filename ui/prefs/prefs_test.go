package prefs

import (
	"os"
	"path/filepath"
	"testing"

	"geosketch/internal/image"
	"geosketch/internal/overlay"
	"geosketch/internal/tool"
	"geosketch/pkg/colorutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "preferences.json")
	p := LoadFrom(path)
	p.SetString("lastDirectory", "/tmp")
	p.SetFloat("rotation", 45)
	require.NoError(t, p.Save())

	q := LoadFrom(path)
	assert.Equal(t, "/tmp", q.String("lastDirectory"))
	assert.Equal(t, 45.0, q.FloatWithFallback("rotation", 0))
	assert.Equal(t, 3.0, q.FloatWithFallback("missing", 3))
}

func TestMalformedFileIgnored(t *testing.T) {
	path := filepath.Join(t.TempDir(), "preferences.json")
	require.NoError(t, os.WriteFile(path, []byte("{nope"), 0o644))
	p := LoadFrom(path)
	assert.Equal(t, "", p.String("tool"))
}

func TestToolRoundTrip(t *testing.T) {
	p := LoadFrom(filepath.Join(t.TempDir(), "preferences.json"))
	cfg := tool.DefaultConfig()
	cfg.Tool = tool.Rectangle
	cfg.Mode = tool.ModeAddPin
	cfg.Color = colorutil.MustParseHex("#1a73e8")
	cfg.StrokeWidth = 5
	cfg.RectangleDash = overlay.DashDotted
	cfg.EraserShape = image.EraserSquare
	p.StoreTool(cfg)

	got := p.RestoreTool(tool.DefaultConfig())
	assert.Equal(t, tool.Rectangle, got.Tool)
	assert.Equal(t, tool.ModeDraw, got.Mode)
	assert.Equal(t, cfg.Color, got.Color)
	assert.Equal(t, 5.0, got.StrokeWidth)
	assert.Equal(t, overlay.DashDotted, got.RectangleDash)
	assert.Equal(t, overlay.DashSolid, got.LineDash)
	assert.Equal(t, image.EraserSquare, got.EraserShape)
}

func TestRestoreToolIgnoresUnknownValues(t *testing.T) {
	p := LoadFrom(filepath.Join(t.TempDir(), "preferences.json"))
	p.SetString(keyTool, "spraycan")
	p.SetString(keyColor, "not a color")

	got := p.RestoreTool(tool.DefaultConfig())
	assert.Equal(t, tool.Pencil, got.Tool)
	assert.Equal(t, colorutil.Black, got.Color)
}
