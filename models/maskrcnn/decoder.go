package maskrcnn

import (
	"iter"

	"github.com/chewxy/math32"
	"github.com/nvr-ai/go-segment/images"
	"github.com/nvr-ai/go-segment/inference"
	"github.com/nvr-ai/go-segment/models/model"
	"github.com/nvr-ai/go-segment/models/postprocess"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Decoder turns rows of the detection tensor into pixel-space detections.
type Decoder struct {
	threshold float32
	logger    *zap.Logger
}

// NewDecoder creates a decoder.
//
// Arguments:
//   - threshold: The confidence a row must strictly exceed.
//   - logger: Receives per-row diagnostics; nil disables logging.
//
// Returns:
//   - *Decoder: The decoder.
func NewDecoder(threshold float32, logger *zap.Logger) *Decoder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Decoder{threshold: threshold, logger: logger}
}

// Threshold returns the confidence threshold.
func (d *Decoder) Threshold() float32 {
	return d.threshold
}

// Decode validates the inputs and returns a lazy sequence of the accepted
// detections in ascending row order.
//
// A row is accepted when its confidence is strictly greater than the
// threshold and its class id is a finite non-negative number. Normalized box
// corners are scaled by the image extent and rounded half away from zero;
// width and height are inclusive (right - left + 1). Boxes are not clamped.
//
// Arguments:
//   - t: The detection tensor.
//   - width: The source image width.
//   - height: The source image height.
//
// Returns:
//   - iter.Seq[postprocess.Detection]: The accepted detections.
//   - error: If the tensor is missing or the image extent is empty. Nothing
//     is yielded in that case.
//
// @example
//
//	seq, err := maskrcnn.NewDecoder(0.5, nil).Decode(detections, 640, 480)
//	if err != nil {
//		return err
//	}
//	for d := range seq {
//		fmt.Println(d.ClassID, d.Box)
//	}
func (d *Decoder) Decode(t *inference.DetectionTensor, width, height int) (iter.Seq[postprocess.Detection], error) {
	if t == nil {
		return nil, errors.Wrap(inference.ErrMalformedTensor, "detection tensor is nil")
	}
	if width <= 0 || height <= 0 {
		return nil, errors.Wrapf(model.ErrInvalidImage, "extent %dx%d", width, height)
	}

	return func(yield func(postprocess.Detection) bool) {
		for n := 0; n < t.Len(); n++ {
			row := t.Row(n)
			if !(row.Confidence > d.threshold) {
				continue
			}
			if math32.IsNaN(row.ClassID) || math32.IsInf(row.ClassID, 0) || row.ClassID < 0 {
				d.logger.Debug("skipping row with invalid class id",
					zap.Int("detection", n),
					zap.Float32("class", row.ClassID))
				continue
			}
			det := postprocess.Detection{
				Index:      n,
				ClassID:    int(row.ClassID),
				Confidence: row.Confidence,
				Box:        PixelBox(row, width, height),
			}
			if !yield(det) {
				return
			}
		}
	}, nil
}

// Collect decodes every accepted detection into a slice.
func (d *Decoder) Collect(t *inference.DetectionTensor, width, height int) ([]postprocess.Detection, error) {
	seq, err := d.Decode(t, width, height)
	if err != nil {
		return nil, err
	}
	out := []postprocess.Detection{}
	for det := range seq {
		out = append(out, det)
	}
	return out, nil
}

// PixelBox converts the normalized corners of a row into an inclusive pixel
// box for an image of the given extent.
func PixelBox(row inference.DetectionRow, width, height int) images.Box {
	left := row.Left * float32(width)
	top := row.Top * float32(height)
	right := row.Right * float32(width)
	bottom := row.Bottom * float32(height)

	return images.Box{
		Left:   int(math32.Round(left)),
		Top:    int(math32.Round(top)),
		Width:  int(math32.Round(right-left)) + 1,
		Height: int(math32.Round(bottom-top)) + 1,
	}
}
