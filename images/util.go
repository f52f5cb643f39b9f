package images

import (
	"crypto/md5"
	"fmt"
	"image"
)

// ComputeMaskChecksum generates a deterministic checksum of a mask's pixels
// inside its bounds, used to verify that repeated evaluation is idempotent.
//
// Arguments:
// - mask: The mask to compute the checksum for.
//
// Returns:
// - A hex-encoded MD5 checksum string, "empty" for nil or empty masks.
//
// Example:
//
// ```go
//
//	sum := ComputeMaskChecksum(obj.Mask)
//	fmt.Printf("mask checksum: %s\n", sum)
//
// ```
func ComputeMaskChecksum(mask *image.Gray) string {
	if mask == nil || mask.Bounds().Empty() {
		return "empty"
	}

	hash := md5.New()
	b := mask.Bounds()
	fmt.Fprintf(hash, "%d,%d,%d,%d;", b.Min.X, b.Min.Y, b.Max.X, b.Max.Y)
	for y := 0; y < b.Dy(); y++ {
		hash.Write(mask.Pix[y*mask.Stride : y*mask.Stride+b.Dx()])
	}
	return fmt.Sprintf("%x", hash.Sum(nil))
}
