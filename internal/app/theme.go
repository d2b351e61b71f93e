package app

import (
	"image/color"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/theme"
)

// SketchTheme is the application theme.
type SketchTheme struct{}

var _ fyne.Theme = (*SketchTheme)(nil)

func (t *SketchTheme) Color(name fyne.ThemeColorName, variant fyne.ThemeVariant) color.Color {
	switch name {
	case theme.ColorNamePrimary:
		return color.NRGBA{R: 0x1A, G: 0x73, B: 0xE8, A: 0xFF} // map blue
	case theme.ColorNameSelection:
		return color.NRGBA{R: 0xFB, G: 0xBC, B: 0x04, A: 0x80} // annotation amber
	case theme.ColorNameFocus:
		return color.NRGBA{R: 0x34, G: 0xA8, B: 0x53, A: 0xA0} // pin green
	default:
		return theme.DefaultTheme().Color(name, variant)
	}
}

func (t *SketchTheme) Font(style fyne.TextStyle) fyne.Resource {
	return theme.DefaultTheme().Font(style)
}

func (t *SketchTheme) Icon(name fyne.ThemeIconName) fyne.Resource {
	return theme.DefaultTheme().Icon(name)
}

func (t *SketchTheme) Size(name fyne.ThemeSizeName) float32 {
	switch name {
	case theme.SizeNamePadding:
		return 4
	case theme.SizeNameInlineIcon:
		return 18
	default:
		return theme.DefaultTheme().Size(name)
	}
}
