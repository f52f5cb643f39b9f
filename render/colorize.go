// Package render - Drawing of segmentation output for previews and overlays.
package render

import (
	"fmt"
	"image"
	"image/color"

	"github.com/nfnt/resize"
	"github.com/nvr-ai/go-segment/models/postprocess"
	"github.com/nvr-ai/go-segment/palette"
)

// Caption returns the text drawn next to an object: "<class> : <confidence>".
func Caption(className string, confidence float32) string {
	return fmt.Sprintf("%s : %f", className, confidence)
}

// paletteIndices returns, per frame pixel, the palette index to paint: the
// label value in label mode, or class id + 1 of the last instance covering
// the pixel in instance mode. Zero means not covered.
func paletteIndices(out *postprocess.Output) []uint16 {
	if out.Labels != nil {
		return out.Labels.Pix
	}

	idx := make([]uint16, out.Width*out.Height)
	for _, inst := range out.Instances {
		if inst.Mask == nil {
			continue
		}
		value := uint16(inst.ClassID + 1)
		for y := 0; y < out.Height; y++ {
			row := inst.Mask.Pix[y*inst.Mask.Stride : y*inst.Mask.Stride+out.Width]
			for x, v := range row {
				if v != 0 {
					idx[y*out.Width+x] = value
				}
			}
		}
	}
	return idx
}

func lookup(colors []color.RGBA, index uint16) color.RGBA {
	if int(index) < len(colors) {
		return colors[index]
	}
	return palette.Background
}

// Colorize paints the output with its palette snapshot. Uncovered pixels
// and label values without a palette entry are black.
//
// Arguments:
//   - out: A label or instance output.
//
// Returns:
//   - *image.RGBA: The color image of the output's extent.
func Colorize(out *postprocess.Output) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, out.Width, out.Height))
	for i, v := range paletteIndices(out) {
		c := lookup(out.Palette, v)
		img.Pix[i*4+0] = c.R
		img.Pix[i*4+1] = c.G
		img.Pix[i*4+2] = c.B
		img.Pix[i*4+3] = 255
	}
	return img
}

// Preview scales an image down to fit within maxWidth x maxHeight keeping
// its aspect ratio. Nearest neighbor sampling keeps palette colors exact.
// Images that already fit are returned unchanged.
func Preview(img image.Image, maxWidth, maxHeight uint) image.Image {
	return resize.Thumbnail(maxWidth, maxHeight, img, resize.NearestNeighbor)
}
