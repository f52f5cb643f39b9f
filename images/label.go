package images

import (
	"image"
	"image/color"
	"slices"

	"github.com/pkg/errors"
)

// LabelImage is a single channel frame-sized image where each pixel holds the
// label (class id + 1) of the object occupying it, 0 being background.
type LabelImage struct {
	// Width is the frame width in pixels.
	Width int
	// Height is the frame height in pixels.
	Height int
	// Pix holds Width*Height labels, row by row.
	Pix []uint16
}

// NewLabelImage allocates a background-filled label image.
//
// Arguments:
//   - width: The frame width.
//   - height: The frame height.
//
// Returns:
//   - *LabelImage: The zeroed label image.
//   - error: ErrEmptyExtent if the frame is empty.
func NewLabelImage(width, height int) (*LabelImage, error) {
	if width <= 0 || height <= 0 {
		return nil, errors.Wrapf(ErrEmptyExtent, "label image %dx%d", width, height)
	}
	return &LabelImage{Width: width, Height: height, Pix: make([]uint16, width*height)}, nil
}

// Bounds returns the frame rectangle.
func (l *LabelImage) Bounds() image.Rectangle {
	return image.Rect(0, 0, l.Width, l.Height)
}

// At returns the label at column x, row y.
func (l *LabelImage) At(x, y int) uint16 {
	return l.Pix[y*l.Width+x]
}

// Set stores the label at column x, row y.
func (l *LabelImage) Set(x, y int, v uint16) {
	l.Pix[y*l.Width+x] = v
}

// Labels returns the distinct labels present in the image, ascending.
func (l *LabelImage) Labels() []uint16 {
	seen := make(map[uint16]struct{})
	for _, v := range l.Pix {
		seen[v] = struct{}{}
	}
	out := make([]uint16, 0, len(seen))
	for v := range seen {
		out = append(out, v)
	}
	slices.Sort(out)
	return out
}

// Gray16 copies the labels into a standard library 16-bit gray image.
func (l *LabelImage) Gray16() *image.Gray16 {
	img := image.NewGray16(l.Bounds())
	for y := 0; y < l.Height; y++ {
		for x := 0; x < l.Width; x++ {
			img.SetGray16(x, y, color.Gray16{Y: l.At(x, y)})
		}
	}
	return img
}
