package images

import (
	"image"

	"github.com/pkg/errors"
	"gocv.io/x/gocv"
)

// Resizer resamples a soft mask plane to a target extent. Only the pixels
// inside region, given in target coordinates, are produced.
type Resizer interface {
	Resize(src Plane, width, height int, region image.Rectangle) (Plane, error)
}

// PlaneResizer resizes planes in pure Go with the configured filter.
type PlaneResizer struct {
	Filter ResampleFilter
}

// NewBilinearResizer returns the default pure Go bilinear resizer.
func NewBilinearResizer() PlaneResizer {
	return PlaneResizer{Filter: BilinearFilter}
}

// Resize implements Resizer.
func (r PlaneResizer) Resize(src Plane, width, height int, region image.Rectangle) (Plane, error) {
	return ResizePlaneRegion(src, width, height, region, r.Filter)
}

// CVResizer resizes planes with OpenCV's cv::resize and INTER_LINEAR.
// It requires the OpenCV shared libraries at runtime.
type CVResizer struct{}

// Resize implements Resizer. A region smaller than the target falls back to
// the pure Go bilinear window, which samples identically.
//
// Arguments:
//   - src: The source plane.
//   - width: The target width in pixels.
//   - height: The target height in pixels.
//   - region: The window to produce, in target coordinates.
//
// Returns:
//   - Plane: A newly allocated plane holding the resized scores.
//   - error: ErrEmptyExtent for empty extents, or an OpenCV buffer error.
func (CVResizer) Resize(src Plane, width, height int, region image.Rectangle) (Plane, error) {
	if region != image.Rect(0, 0, width, height) {
		return ResizePlaneRegion(src, width, height, region, BilinearFilter)
	}
	if src.Empty() {
		return Plane{}, errors.Wrap(ErrEmptyExtent, "resize source")
	}
	dst, err := NewPlane(width, height)
	if err != nil {
		return Plane{}, errors.Wrap(err, "resize target")
	}

	mat := gocv.NewMatWithSize(src.Height, src.Width, gocv.MatTypeCV32F)
	defer mat.Close()
	in, err := mat.DataPtrFloat32()
	if err != nil {
		return Plane{}, errors.Wrap(err, "source mat buffer")
	}
	copy(in, src.Pix)

	resized := gocv.NewMat()
	defer resized.Close()
	gocv.Resize(mat, &resized, image.Pt(width, height), 0, 0, gocv.InterpolationLinear)

	out, err := resized.DataPtrFloat32()
	if err != nil {
		return Plane{}, errors.Wrap(err, "resized mat buffer")
	}
	copy(dst.Pix, out)

	return dst, nil
}
