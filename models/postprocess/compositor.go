package postprocess

import (
	"fmt"
	"image"
	"iter"

	"github.com/google/uuid"
	"github.com/nvr-ai/go-segment/images"
	"github.com/nvr-ai/go-segment/inference"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/stat"
)

// DefaultMaskThreshold is the soft mask score a pixel must exceed to be
// foreground.
const DefaultMaskThreshold float32 = 0.3

// ClassNamer resolves class ids to display names.
type ClassNamer interface {
	Name(id int) string
}

// CompositorArgs configures a Compositor.
type CompositorArgs struct {
	// MaskThreshold binarizes resized soft masks (strictly greater).
	MaskThreshold float32
	// Resizer scales soft masks to the detection box; defaults to bilinear.
	Resizer images.Resizer
	// Classes resolves class names; nil renders every id as unknown.
	Classes ClassNamer
	// IDs assigns object identities; defaults to random UUIDs.
	IDs func() string
	// Logger receives per-detection diagnostics; defaults to a no-op logger.
	Logger *zap.Logger
}

// Compositor turns decoded detections into object masks and hands them to
// a Sink.
type Compositor struct {
	threshold float32
	resizer   images.Resizer
	classes   ClassNamer
	ids       func() string
	logger    *zap.Logger
}

type unknownClasses struct{}

func (unknownClasses) Name(id int) string {
	return fmt.Sprintf("unknown %d", id)
}

// NewCompositor creates a compositor, filling unset arguments with defaults.
func NewCompositor(args CompositorArgs) *Compositor {
	c := &Compositor{
		threshold: args.MaskThreshold,
		resizer:   args.Resizer,
		classes:   args.Classes,
		ids:       args.IDs,
		logger:    args.Logger,
	}
	if c.resizer == nil {
		c.resizer = images.NewBilinearResizer()
	}
	if c.classes == nil {
		c.classes = unknownClasses{}
	}
	if c.ids == nil {
		c.ids = uuid.NewString
	}
	if c.logger == nil {
		c.logger = zap.NewNop()
	}
	return c
}

// Compose builds the object mask of every detection and places it through
// the sink, in sequence order.
//
// Detections with an empty box are skipped. A detection that points outside
// the mask tensor is a contract violation and aborts the frame; no partial
// output is returned.
//
// Arguments:
//   - detections: The decoded detections, in tensor order.
//   - masks: The soft mask tensor of the same forward pass.
//   - sink: A sink for this frame; Begin is called by Compose.
//   - width: The frame width.
//   - height: The frame height.
//
// Returns:
//   - *Output: The sink's output for the frame.
//   - error: If the frame is empty, the tensors disagree or the sink fails.
func (c *Compositor) Compose(detections iter.Seq[Detection], masks *inference.MaskTensor,
	sink Sink, width, height int,
) (*Output, error) {
	if masks == nil {
		return nil, errors.Wrap(inference.ErrMalformedTensor, "mask tensor is nil")
	}
	if err := sink.Begin(width, height); err != nil {
		return nil, err
	}

	for d := range detections {
		obj, err := c.Object(d, masks, width, height)
		if err != nil {
			return nil, err
		}
		if obj == nil {
			continue
		}
		if err := sink.Add(obj); err != nil {
			return nil, errors.Wrapf(err, "place detection %d", d.Index)
		}
	}

	return sink.Finish()
}

// Object extracts, resizes and binarizes the soft mask of one detection.
//
// The soft mask is resampled over the whole box but only the part of the
// box inside the frame is produced, so the mask bounds are the visible box.
// A box entirely outside the frame yields an object with an empty mask.
//
// Arguments:
//   - d: The detection.
//   - masks: The soft mask tensor.
//   - width: The frame width.
//   - height: The frame height.
//
// Returns:
//   - *Object: The object with its box-local mask, or nil when the
//     detection is skipped because its box is empty.
//   - error: If the detection has no mask slice or resizing fails.
func (c *Compositor) Object(d Detection, masks *inference.MaskTensor, width, height int) (*Object, error) {
	if d.Box.Empty() {
		c.logger.Debug("skipping degenerate box",
			zap.Int("detection", d.Index),
			zap.Int("width", d.Box.Width),
			zap.Int("height", d.Box.Height))
		return nil, nil
	}

	slice, err := masks.Slice(d.Index, d.ClassID)
	if err != nil {
		return nil, errors.Wrapf(err, "mask of detection %d", d.Index)
	}

	obj := &Object{
		Detection: d,
		ID:        c.ids(),
		ClassName: c.classes.Name(d.ClassID),
	}

	visible := d.Box.Clip(width, height)
	if visible.Empty() {
		c.logger.Debug("box outside frame",
			zap.Int("detection", d.Index),
			zap.Stringer("box", d.Box.Rect()))
		obj.Mask = image.NewGray(image.Rectangle{})
		return obj, nil
	}

	region := visible.Sub(image.Pt(d.Box.Left, d.Box.Top))
	resized, err := c.resizer.Resize(slice, d.Box.Width, d.Box.Height, region)
	if err != nil {
		return nil, errors.Wrapf(err, "resize mask of detection %d", d.Index)
	}

	obj.Mask = images.Threshold(resized, c.threshold, visible.Min)
	obj.Area, obj.MaskScore = maskStats(resized, c.threshold)

	return obj, nil
}

// maskStats returns the foreground pixel count and the mean soft score of
// the foreground pixels.
func maskStats(p images.Plane, threshold float32) (int, float64) {
	var fg []float64
	for _, v := range p.Pix {
		if v > threshold {
			fg = append(fg, float64(v))
		}
	}
	if len(fg) == 0 {
		return 0, 0
	}
	return len(fg), stat.Mean(fg, nil)
}
