package image

import (
	"bytes"
	"image"
)

// Snapshot is an immutable copy of a backing store's pixels.
type Snapshot struct {
	width, height int
	pix           []byte
}

// Size returns the captured dimensions.
func (s Snapshot) Size() (int, int) {
	return s.width, s.height
}

// IsZero reports whether the snapshot holds no pixels.
func (s Snapshot) IsZero() bool {
	return s.pix == nil
}

// Equal reports whether two snapshots hold identical pixels.
func (s Snapshot) Equal(other Snapshot) bool {
	return s.width == other.width && s.height == other.height && bytes.Equal(s.pix, other.pix)
}

// Image returns a fresh RGBA copy of the snapshot.
func (s Snapshot) Image() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, s.width, s.height))
	copy(img.Pix, s.pix)
	return img
}

func capture(img *image.RGBA) Snapshot {
	b := img.Bounds()
	pix := make([]byte, len(img.Pix))
	copy(pix, img.Pix)
	return Snapshot{width: b.Dx(), height: b.Dy(), pix: pix}
}
