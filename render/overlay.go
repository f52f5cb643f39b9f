package render

import (
	"image"
	"image/color"

	"github.com/nvr-ai/go-segment/models/postprocess"
	"github.com/nvr-ai/go-segment/palette"
	"github.com/pkg/errors"
	"gocv.io/x/gocv"
)

// White is the default caption color.
var White = color.RGBA{R: 255, G: 255, B: 255, A: 255}

// Font defines the parameters for rendering text on an image using GoCV
type Font struct {
	Face      gocv.HersheyFont
	Scale     float64
	Color     color.RGBA
	Thickness int
	LineType  gocv.LineType
	// Padding to place around text
	LeftPad   int
	RightPad  int
	TopPad    int
	BottomPad int
}

// DefaultFont returns default font settings
func DefaultFont() Font {
	return Font{
		Face:      gocv.FontHersheySimplex,
		Scale:     0.5,
		Color:     White,
		Thickness: 1,
		LineType:  gocv.LineAA,
		LeftPad:   4,
		RightPad:  4,
		TopPad:    4,
		BottomPad: 6,
	}
}

// OverlayOptions controls Overlay.
type OverlayOptions struct {
	// Alpha is the mask opacity in [0,1].
	Alpha float32
	// LineThickness is the box outline width.
	LineThickness int
	// Font is the caption font.
	Font Font
}

// DefaultOverlayOptions returns half transparent masks with 2 pixel boxes.
func DefaultOverlayOptions() OverlayOptions {
	return OverlayOptions{Alpha: 0.5, LineThickness: 2, Font: DefaultFont()}
}

// caption is a label box to draw once all masks and boxes are drawn.
type caption struct {
	rect    image.Rectangle
	clr     color.RGBA
	text    string
	textPos image.Point
}

// Overlay blends the masks of an output onto a BGR frame and draws a box
// and caption for every object. The frame must have the output's extent.
//
// Arguments:
//   - img: An 8-bit, 3 channel BGR image; modified in place.
//   - out: The output of the same frame.
//   - opts: Drawing options.
//
// Returns:
//   - error: If the frame does not match the output.
func Overlay(img *gocv.Mat, out *postprocess.Output, opts OverlayOptions) error {
	width := img.Cols()
	height := img.Rows()
	if width != out.Width || height != out.Height {
		return errors.Errorf("render: frame %dx%d does not match output %dx%d", width, height, out.Width, out.Height)
	}
	if img.Type() != gocv.MatTypeCV8UC3 {
		return errors.Errorf("render: frame type %v, want CV_8UC3", img.Type())
	}

	// Pixel access over CGO is slow, so blend on a byte copy and copy back.
	data := img.ToBytes()
	alpha := opts.Alpha
	for i, v := range paletteIndices(out) {
		if v == 0 {
			continue
		}
		c := lookup(out.Palette, v)
		pos := i * 3
		data[pos+0] = uint8(float32(data[pos+0])*(1-alpha) + float32(c.B)*alpha)
		data[pos+1] = uint8(float32(data[pos+1])*(1-alpha) + float32(c.G)*alpha)
		data[pos+2] = uint8(float32(data[pos+2])*(1-alpha) + float32(c.R)*alpha)
	}

	blended, err := gocv.NewMatFromBytes(height, width, gocv.MatTypeCV8UC3, data)
	if err != nil {
		return errors.Wrap(err, "render: blend")
	}
	defer blended.Close()
	blended.CopyTo(img)

	font := opts.Font
	captions := make([]caption, 0, len(out.Measurements))
	for _, m := range out.Measurements {
		clr := lookup(out.Palette, uint16(m.ClassID+1))
		if clr == palette.Background {
			clr = White
		}

		gocv.Rectangle(img, m.Box.Rect(), clr, opts.LineThickness)

		text := Caption(m.ClassName, m.Confidence)
		size := gocv.GetTextSize(text, font.Face, font.Scale, font.Thickness)
		top := max(m.Box.Top, size.Y+font.TopPad+font.BottomPad)
		captions = append(captions, caption{
			rect: image.Rect(m.Box.Left, top-size.Y-font.TopPad-font.BottomPad,
				m.Box.Left+size.X+font.LeftPad+font.RightPad, top),
			clr:     clr,
			text:    text,
			textPos: image.Pt(m.Box.Left+font.LeftPad, top-font.BottomPad),
		})
	}

	// Captions go last so that no box outline crosses them.
	for _, c := range captions {
		gocv.Rectangle(img, c.rect, c.clr, -1)
		gocv.PutTextWithParams(img, c.text, c.textPos,
			font.Face, font.Scale, font.Color, font.Thickness,
			font.LineType, false)
	}

	return nil
}
