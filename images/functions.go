// Package images - provides deterministic soft mask resampling and thresholding
// for instance segmentation post-processing.
package images

import (
	"image"
	"math"

	"github.com/pkg/errors"
)

// ResampleFilter defines the resampling algorithm used for plane scaling.
type ResampleFilter int

const (
	// NearestNeighborFilter uses nearest-neighbor interpolation (fastest, blocky).
	NearestNeighborFilter ResampleFilter = iota
	// BilinearFilter uses bilinear interpolation with pixel-center alignment.
	BilinearFilter
)

// kernel represents a resampling kernel function.
type kernel struct {
	// Support is the radius of the kernel in source pixels.
	Support float64
	// At evaluates the kernel at distance x.
	At func(x float64) float64
}

// kernels maps each filter type to its kernel function.
var kernels = map[ResampleFilter]kernel{
	NearestNeighborFilter: {
		Support: 0.5,
		At: func(x float64) float64 {
			if x >= -0.5 && x < 0.5 {
				return 1.0
			}
			return 0.0
		},
	},
	BilinearFilter: {
		Support: 1.0,
		At: func(x float64) float64 {
			// Triangle function.
			x = math.Abs(x)
			if x < 1.0 {
				return 1.0 - x
			}
			return 0.0
		},
	},
}

// Contribution represents a single source pixel's contribution to an output pixel.
type Contribution struct {
	// pixel is the source pixel index.
	pixel int
	// weight is the normalized contribution weight.
	weight float64
}

// computeContributions pre-calculates, for each destination index in
// [lo, hi) along one axis, the source indices and weights that produce it.
//
// Destination pixel centers are mapped onto the source grid with
// (dst + 0.5) * scale and source samples outside the grid are dropped, after
// which the remaining weights are renormalized. For the bilinear kernel this
// is the same sampling as OpenCV's INTER_LINEAR: border pixels replicate and
// no area averaging is applied when shrinking.
//
// Arguments:
//   - srcSize: The source length along the axis.
//   - dstSize: The full destination length along the axis, which sets the scale.
//   - lo: The first destination index to compute.
//   - hi: One past the last destination index to compute.
//   - filter: The resampling filter.
//
// Returns:
//   - [][]Contribution: One weight list per destination index, starting at lo.
func computeContributions(srcSize, dstSize, lo, hi int, filter ResampleFilter) [][]Contribution {
	k := kernels[filter]
	scale := float64(srcSize) / float64(dstSize)
	contributions := make([][]Contribution, hi-lo)

	for x := lo; x < hi; x++ {
		center := (float64(x) + 0.5) * scale

		left := int(math.Floor(center - k.Support))
		right := int(math.Ceil(center + k.Support))
		if left < 0 {
			left = 0
		}
		if right >= srcSize {
			right = srcSize - 1
		}

		var weights []Contribution
		var sum float64
		for s := left; s <= right; s++ {
			weight := k.At(float64(s) + 0.5 - center)
			if weight > 0 {
				weights = append(weights, Contribution{pixel: s, weight: weight})
				sum += weight
			}
		}

		if sum != 0 {
			for i := range weights {
				weights[i].weight /= sum
			}
		}

		contributions[x-lo] = weights
	}

	return contributions
}

// ResizePlane resamples a plane to exactly width x height using separable
// filtering: a horizontal pass followed by a vertical pass.
//
// Arguments:
//   - src: The source plane.
//   - width: The target width in pixels.
//   - height: The target height in pixels.
//   - filter: The resampling filter to use for interpolation.
//
// Returns:
//   - Plane: A new plane, src is never modified.
//   - error: ErrEmptyExtent when the source or target extent is empty.
//
// @example
// resized, err := ResizePlane(slice, box.Width, box.Height, BilinearFilter)
func ResizePlane(src Plane, width, height int, filter ResampleFilter) (Plane, error) {
	return ResizePlaneRegion(src, width, height, image.Rect(0, 0, width, height), filter)
}

// ResizePlaneRegion resamples a plane as if to width x height but only
// produces the pixels inside region. Memory and work are proportional to the
// region, not to the full target extent, so a huge target with a small
// visible window stays cheap.
//
// Arguments:
//   - src: The source plane.
//   - width: The full target width in pixels.
//   - height: The full target height in pixels.
//   - region: The window to produce, in target coordinates.
//   - filter: The resampling filter to use for interpolation.
//
// Returns:
//   - Plane: A region.Dx() x region.Dy() plane; pixel (0,0) is target pixel region.Min.
//   - error: ErrEmptyExtent when the source, target or region is empty, or
//     ErrRegionOutOfBounds when region is not inside the target.
//
// @example
// visible := box.Clip(frameW, frameH).Sub(image.Pt(box.Left, box.Top))
// resized, err := ResizePlaneRegion(slice, box.Width, box.Height, visible, BilinearFilter)
func ResizePlaneRegion(src Plane, width, height int, region image.Rectangle, filter ResampleFilter) (Plane, error) {
	if src.Empty() {
		return Plane{}, errors.Wrap(ErrEmptyExtent, "resize source")
	}
	if width <= 0 || height <= 0 {
		return Plane{}, errors.Wrapf(ErrEmptyExtent, "resize target %dx%d", width, height)
	}
	if !region.In(image.Rect(0, 0, width, height)) {
		return Plane{}, errors.Wrapf(ErrRegionOutOfBounds, "region %v of %dx%d", region, width, height)
	}
	dst, err := NewPlane(region.Dx(), region.Dy())
	if err != nil {
		return Plane{}, errors.Wrap(err, "resize region")
	}

	if src.Width == width && src.Height == height {
		for y := region.Min.Y; y < region.Max.Y; y++ {
			copy(dst.Pix[(y-region.Min.Y)*dst.Width:], src.Pix[y*src.Width+region.Min.X:y*src.Width+region.Max.X])
		}
		return dst, nil
	}

	// Horizontal pass: src.Height rows of the region width.
	intermediate := make([]float32, dst.Width*src.Height)
	cols := computeContributions(src.Width, width, region.Min.X, region.Max.X, filter)
	for y := 0; y < src.Height; y++ {
		srcRow := src.Pix[y*src.Width : (y+1)*src.Width]
		dstRow := intermediate[y*dst.Width : (y+1)*dst.Width]
		for x, weights := range cols {
			var acc float64
			for _, c := range weights {
				acc += float64(srcRow[c.pixel]) * c.weight
			}
			dstRow[x] = float32(acc)
		}
	}

	// Vertical pass over the region rows only.
	rows := computeContributions(src.Height, height, region.Min.Y, region.Max.Y, filter)
	for y, weights := range rows {
		dstRow := dst.Pix[y*dst.Width : (y+1)*dst.Width]
		for x := 0; x < dst.Width; x++ {
			var acc float64
			for _, c := range weights {
				acc += float64(intermediate[c.pixel*dst.Width+x]) * c.weight
			}
			dstRow[x] = float32(acc)
		}
	}

	return dst, nil
}

// Threshold binarizes a plane: a pixel is foreground (1) iff its score is
// strictly greater than threshold, background (0) otherwise.
//
// Arguments:
//   - p: The soft mask scores.
//   - threshold: The cut-off score.
//   - origin: The frame position of the plane's top-left pixel.
//
// Returns:
//   - *image.Gray: A 0/1 mask whose bounds start at origin and match the plane size.
func Threshold(p Plane, threshold float32, origin image.Point) *image.Gray {
	mask := image.NewGray(image.Rect(origin.X, origin.Y, origin.X+p.Width, origin.Y+p.Height))
	for y := 0; y < p.Height; y++ {
		src := p.Pix[y*p.Width : (y+1)*p.Width]
		row := mask.Pix[y*mask.Stride : y*mask.Stride+p.Width]
		for x, v := range src {
			if v > threshold {
				row[x] = 1
			}
		}
	}
	return mask
}

// CountForeground returns the number of non-zero pixels in a mask.
func CountForeground(mask *image.Gray) int {
	if mask == nil {
		return 0
	}
	b := mask.Bounds()
	n := 0
	for y := 0; y < b.Dy(); y++ {
		for _, v := range mask.Pix[y*mask.Stride : y*mask.Stride+b.Dx()] {
			if v != 0 {
				n++
			}
		}
	}
	return n
}
