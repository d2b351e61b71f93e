// Package image provides the raster buffers behind a surface: the backing
// store that holds committed pixels, transient overlay layers, snapshots and
// compositing.
package image

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"

	"geosketch/pkg/geometry"

	_ "golang.org/x/image/tiff"
)

// Layer is a named, screen-sized buffer drawn above the surface, such as the
// shape preview or the eraser cursor.
type Layer struct {
	Name    string      // Layer name for logging
	Image   *image.RGBA // Pixel data, transparent when cleared
	Visible bool        // Layer visibility
	Opacity float64     // Layer opacity (0.0 - 1.0)
}

// NewLayer creates a transparent visible layer.
func NewLayer(name string, width, height int) *Layer {
	return &Layer{
		Name:    name,
		Image:   image.NewRGBA(image.Rect(0, 0, width, height)),
		Visible: true,
		Opacity: 1.0,
	}
}

// Clear makes every pixel transparent.
func (l *Layer) Clear() {
	clear(l.Image.Pix)
}

// Width returns the layer width in pixels.
func (l *Layer) Width() int {
	return l.Image.Bounds().Dx()
}

// Height returns the layer height in pixels.
func (l *Layer) Height() int {
	return l.Image.Bounds().Dy()
}

// Size returns the layer dimensions.
func (l *Layer) Size() geometry.Size {
	return geometry.Size{
		Width:  float64(l.Width()),
		Height: float64(l.Height()),
	}
}

// PixelAt returns the color at the specified pixel coordinates.
func (l *Layer) PixelAt(x, y int) color.RGBA {
	return l.Image.RGBAAt(x, y)
}

// IsEmpty reports whether the layer has no painted pixels.
func (l *Layer) IsEmpty() bool {
	for i := 3; i < len(l.Image.Pix); i += 4 {
		if l.Image.Pix[i] != 0 {
			return false
		}
	}
	return true
}

// Load decodes an image file into an RGBA buffer.
func Load(path string) (*image.RGBA, error) {
	if !IsSupportedFormat(path) {
		return nil, fmt.Errorf("unsupported image format: %s", filepath.Ext(path))
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer file.Close()

	img, _, err := image.Decode(file)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	return toRGBA(img), nil
}

func toRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok && rgba.Bounds().Min == (image.Point{}) {
		return rgba
	}
	b := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(rgba, rgba.Bounds(), img, b.Min, draw.Src)
	return rgba
}

// SupportedFormats returns the list of supported image formats.
func SupportedFormats() []string {
	return []string{".tiff", ".tif", ".png", ".jpg", ".jpeg"}
}

// IsSupportedFormat checks if the given path has a supported image format.
func IsSupportedFormat(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, format := range SupportedFormats() {
		if ext == format {
			return true
		}
	}
	return false
}
