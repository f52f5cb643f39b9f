package images

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrEmptyExtent is returned when an operation is asked to produce or read a
// plane with a non-positive width or height.
var ErrEmptyExtent = errors.New("images: empty extent")

// ErrRegionOutOfBounds is returned when a resize window does not lie inside
// the target extent.
var ErrRegionOutOfBounds = errors.New("images: region out of bounds")

// Plane is a single channel, row-major float32 image. It carries the soft
// mask scores of one (detection, class) slice before and after resizing.
type Plane struct {
	// Width is the number of columns.
	Width int
	// Height is the number of rows.
	Height int
	// Pix holds Width*Height scores, row by row.
	Pix []float32
}

// NewPlane allocates a zeroed plane.
//
// Arguments:
//   - width: The number of columns.
//   - height: The number of rows.
//
// Returns:
//   - Plane: The zero-filled plane.
//   - error: ErrEmptyExtent if either dimension is not positive.
func NewPlane(width, height int) (Plane, error) {
	if width <= 0 || height <= 0 {
		return Plane{}, errors.Wrapf(ErrEmptyExtent, "plane %dx%d", width, height)
	}
	return Plane{Width: width, Height: height, Pix: make([]float32, width*height)}, nil
}

// PlaneFrom wraps an existing row-major buffer without copying it.
//
// Arguments:
//   - width: The number of columns.
//   - height: The number of rows.
//   - pix: The backing scores; must hold exactly width*height values.
//
// Returns:
//   - Plane: A plane sharing pix.
//   - error: If the dimensions are empty or do not match len(pix).
func PlaneFrom(width, height int, pix []float32) (Plane, error) {
	if width <= 0 || height <= 0 {
		return Plane{}, errors.Wrapf(ErrEmptyExtent, "plane %dx%d", width, height)
	}
	if len(pix) != width*height {
		return Plane{}, fmt.Errorf("plane %dx%d needs %d values, got %d",
			width, height, width*height, len(pix))
	}
	return Plane{Width: width, Height: height, Pix: pix}, nil
}

// At returns the score at column x, row y.
func (p Plane) At(x, y int) float32 {
	return p.Pix[y*p.Width+x]
}

// Set stores the score at column x, row y.
func (p Plane) Set(x, y int, v float32) {
	p.Pix[y*p.Width+x] = v
}

// Empty reports whether the plane holds no pixels.
func (p Plane) Empty() bool {
	return p.Width <= 0 || p.Height <= 0 || len(p.Pix) == 0
}
