package image

import (
	"image"
	"image/color"
	"image/draw"

	"geosketch/pkg/geometry"

	xdraw "golang.org/x/image/draw"
)

// BlendMode specifies how a source is combined with the destination.
type BlendMode int

const (
	// BlendNormal paints the source over the destination.
	BlendNormal BlendMode = iota
	// BlendErase removes destination coverage where the source is opaque
	// (destination-out).
	BlendErase
)

func (m BlendMode) String() string {
	switch m {
	case BlendNormal:
		return "Normal"
	case BlendErase:
		return "Erase"
	default:
		return "Unknown"
	}
}

// Composite blends src onto dst pixel by pixel. Both share the origin.
func Composite(dst *image.RGBA, src image.Image, mode BlendMode, opacity float64) {
	b := dst.Bounds().Intersect(src.Bounds())
	if b.Empty() || opacity <= 0 {
		return
	}
	if opacity > 1 {
		opacity = 1
	}

	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			_, _, _, sa := src.At(x, y).RGBA()
			if sa == 0 {
				continue
			}
			i := dst.PixOffset(x, y)
			px := dst.Pix[i : i+4 : i+4]

			switch mode {
			case BlendErase:
				keep := 1 - float64(sa)/0xffff*opacity
				for c := range px {
					px[c] = uint8(float64(px[c])*keep + 0.5)
				}
			default:
				sr, sg, sb, _ := src.At(x, y).RGBA()
				blended := blend(color.RGBA{R: px[0], G: px[1], B: px[2], A: px[3]}, sr, sg, sb, sa, opacity)
				px[0], px[1], px[2], px[3] = blended.R, blended.G, blended.B, blended.A
			}
		}
	}
}

// blend applies premultiplied source-over with an extra opacity factor.
func blend(dst color.RGBA, sr, sg, sb, sa uint32, opacity float64) color.RGBA {
	s := [4]float64{float64(sr) / 0xffff, float64(sg) / 0xffff, float64(sb) / 0xffff, float64(sa) / 0xffff}
	for i := range s {
		s[i] *= opacity
	}
	d := [4]float64{float64(dst.R) / 255, float64(dst.G) / 255, float64(dst.B) / 255, float64(dst.A) / 255}

	inv := 1 - s[3]
	return color.RGBA{
		R: uint8(clamp(s[0]+d[0]*inv, 0, 1)*255 + 0.5),
		G: uint8(clamp(s[1]+d[1]*inv, 0, 1)*255 + 0.5),
		B: uint8(clamp(s[2]+d[2]*inv, 0, 1)*255 + 0.5),
		A: uint8(clamp(s[3]+d[3]*inv, 0, 1)*255 + 0.5),
	}
}

// DrawLayer composites a visible layer onto dst.
func DrawLayer(dst *image.RGBA, l *Layer) {
	if l == nil || !l.Visible {
		return
	}
	if l.Opacity >= 1 {
		draw.Draw(dst, dst.Bounds(), l.Image, image.Point{}, draw.Over)
		return
	}
	Composite(dst, l.Image, BlendNormal, l.Opacity)
}

// BlitRotated draws src over dst turned by deg degrees about pivot. At zero
// degrees the pixels are copied without resampling.
func BlitRotated(dst *image.RGBA, src *image.RGBA, pivot geometry.Point2D, deg float64) {
	if deg == 0 {
		draw.Draw(dst, dst.Bounds(), src, image.Point{}, draw.Over)
		return
	}
	m := geometry.RotationAbout(pivot, deg).Aff3()
	xdraw.BiLinear.Transform(dst, m, src, src.Bounds(), xdraw.Over, nil)
}

func clamp(x, min, max float64) float64 {
	if x < min {
		return min
	}
	if x > max {
		return max
	}
	return x
}
