package image

import (
	"image"
	"image/color"
	"sync"

	"geosketch/pkg/geometry"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

var (
	fontOnce  sync.Once
	fontErr   error
	regular   *opentype.Font
	facesMu   sync.Mutex
	faceCache = map[float64]font.Face{}
)

// Face returns a Go Regular face at size pixels. Faces are cached by size.
func Face(size float64) (font.Face, error) {
	fontOnce.Do(func() {
		regular, fontErr = opentype.Parse(goregular.TTF)
	})
	if fontErr != nil {
		return nil, fontErr
	}
	if size < 1 {
		size = 1
	}

	facesMu.Lock()
	defer facesMu.Unlock()
	if f, ok := faceCache[size]; ok {
		return f, nil
	}
	f, err := opentype.NewFace(regular, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingNone,
	})
	if err != nil {
		return nil, err
	}
	faceCache[size] = f
	return f, nil
}

// MeasureText returns the advance width and line height of text.
func MeasureText(text string, size float64) (width, height float64) {
	face, err := Face(size)
	if err != nil {
		return 0, size
	}
	m := face.Metrics()
	return float64(font.MeasureString(face, text)) / 64, float64(m.Ascent+m.Descent) / 64
}

// DrawTextOn draws text with its baseline starting at pos.
func DrawTextOn(dst *image.RGBA, pos geometry.Point2D, text string, size float64, c color.Color) error {
	face, err := Face(size)
	if err != nil {
		return err
	}
	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(c),
		Face: face,
		Dot:  fixed.Point26_6{X: fixed.Int26_6(pos.X * 64), Y: fixed.Int26_6(pos.Y * 64)},
	}
	d.DrawString(text)
	return nil
}

// DrawLabelOn draws text centered on center over a filled box.
func DrawLabelOn(dst *image.RGBA, center geometry.Point2D, text string, size float64, fg, box color.Color) error {
	w, h := MeasureText(text, size)
	const pad = 4
	r := geometry.Rect{X: center.X - w/2 - pad, Y: center.Y - h/2 - pad, Width: w + 2*pad, Height: h + 2*pad}
	FillRectOn(dst, r, box)

	face, err := Face(size)
	if err != nil {
		return err
	}
	ascent := float64(face.Metrics().Ascent) / 64
	return DrawTextOn(dst, geometry.Point2D{X: center.X - w/2, Y: center.Y - h/2 + ascent}, text, size, fg)
}
