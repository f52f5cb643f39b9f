// Package images - Geometry, soft mask planes and mask compositing primitives.
package images

import "image"

// Box is a pixel bounding box with inclusive extents, as produced by the
// detection decoder: Width = right - left + 1.
type Box struct {
	// Left is the X coordinate of the first column covered by the box.
	Left int `json:"left" msgpack:"left"`
	// Top is the Y coordinate of the first row covered by the box.
	Top int `json:"top" msgpack:"top"`
	// Width is the number of columns covered by the box.
	Width int `json:"width" msgpack:"width"`
	// Height is the number of rows covered by the box.
	Height int `json:"height" msgpack:"height"`
}

// Right returns the exclusive right edge of the box.
func (b Box) Right() int {
	return b.Left + b.Width
}

// Bottom returns the exclusive bottom edge of the box.
func (b Box) Bottom() int {
	return b.Top + b.Height
}

// Empty reports whether the box covers no pixels.
func (b Box) Empty() bool {
	return b.Width <= 0 || b.Height <= 0
}

// Area returns the number of pixels covered by the box, 0 for degenerate boxes.
func (b Box) Area() int {
	if b.Empty() {
		return 0
	}
	return b.Width * b.Height
}

// Rect converts the box into an image.Rectangle in frame coordinates.
//
// Returns:
//   - image.Rectangle: (Left, Top)-(Right, Bottom), exclusive max like the standard library.
func (b Box) Rect() image.Rectangle {
	return image.Rect(b.Left, b.Top, b.Right(), b.Bottom())
}

// Clip returns the part of the box that lies inside a frame of the given size.
//
// Arguments:
//   - width: The frame width in pixels.
//   - height: The frame height in pixels.
//
// Returns:
//   - image.Rectangle: The visible region, empty when the box is fully outside.
func (b Box) Clip(width, height int) image.Rectangle {
	return b.Rect().Intersect(image.Rect(0, 0, width, height))
}

// CalculateIoU measures the overlap of two boxes as the area of their
// intersection divided by the area of their union.
//
//	IoU = Area of Intersection / Area of Union
//
// A value of 1.0 means the boxes are identical, 0.0 means they do not
// overlap. Touching edges do not overlap.
//
// Arguments:
//   - r: The first box.
//   - o: The other box to compare against.
//
// Returns:
//   - float32: A value between 0.0 and 1.0 representing the IoU score.
//
// Example Usage:
// ```go
//
//	a := Box{Left: 0, Top: 0, Width: 10, Height: 10}
//	b := Box{Left: 5, Top: 5, Width: 10, Height: 10}
//	score := CalculateIoU(a, b) // 25 / 175 = 0.142857
//
// ```
func CalculateIoU(r, o Box) float32 {
	ix1 := max(r.Left, o.Left)
	iy1 := max(r.Top, o.Top)
	ix2 := min(r.Right(), o.Right())
	iy2 := min(r.Bottom(), o.Bottom())

	// No overlap when either extent of the intersection is empty.
	interW := ix2 - ix1
	interH := iy2 - iy1
	if interW <= 0 || interH <= 0 {
		return 0.0
	}
	interArea := interW * interH

	// Union(A, B) = Area(A) + Area(B) - Intersection(A, B)
	unionArea := r.Area() + o.Area() - interArea
	if unionArea <= 0 {
		return 0.0
	}

	return float32(interArea) / float32(unionArea)
}
