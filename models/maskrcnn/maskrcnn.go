package maskrcnn

import (
	"slices"

	"github.com/nvr-ai/go-segment/inference"
	"github.com/nvr-ai/go-segment/models/model"
	"github.com/nvr-ai/go-segment/models/postprocess"
	"github.com/nvr-ai/go-segment/palette"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// MaskRCNN is the instance of the Mask R-CNN model.
type MaskRCNN struct {
	options    Options
	decoder    *Decoder
	compositor *postprocess.Compositor
	palette    *palette.Palette
	logger     *zap.Logger
}

// NewModel creates a new model.
//
// With eager palette growth one color per class name is generated here;
// with lazy growth the palette follows the class channels of every frame.
//
// Arguments:
//   - args: The arguments for creating a new model.
//
// Returns:
//   - *MaskRCNN: The model.
//   - error: If the parameters are invalid.
func NewModel(args model.NewModelArgs) (*MaskRCNN, error) {
	if err := args.Params.Validate(); err != nil {
		return nil, err
	}

	logger := args.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	pal := args.Palette
	if pal == nil {
		pal = palette.New(palette.DefaultSeed)
	}

	var classes postprocess.ClassNamer
	if args.Classes != nil {
		classes = args.Classes
	}

	if args.Params.PaletteGrowth == model.GrowEager {
		if args.Classes == nil {
			return nil, errors.Wrap(model.ErrInvalidParams, "eager palette growth needs a class table")
		}
		pal.EnsureClasses(args.Classes.Len())
	}

	options := DefaultOptions()
	options.Params = args.Params

	return &MaskRCNN{
		options: options,
		decoder: NewDecoder(args.Params.ConfidenceThreshold, logger),
		compositor: postprocess.NewCompositor(postprocess.CompositorArgs{
			MaskThreshold: args.Params.MaskThreshold,
			Resizer:       args.Resizer,
			Classes:       classes,
			IDs:           args.IDs,
			Logger:        logger,
		}),
		palette: pal,
		logger:  logger,
	}, nil
}

// Name returns the model name.
func (m *MaskRCNN) Name() model.Name {
	return model.ModelNameMaskRCNN
}

// Options returns the options for the Mask R-CNN model.
func (m *MaskRCNN) Options() Options {
	return m.options
}

// Params returns the post-processing parameters.
func (m *MaskRCNN) Params() model.Params {
	return m.options.Params
}

// Palette returns the class palette shared across frames.
func (m *MaskRCNN) Palette() *palette.Palette {
	return m.palette
}

// Process decodes and composites the forward-pass output of one image.
//
// The frame is processed as a unit: any fatal error discards everything
// decoded so far. The returned output carries a snapshot of the palette
// taken after this frame's growth.
//
// Arguments:
//   - in: The tensors and the source image extent.
//
// Returns:
//   - *postprocess.Output: A label image or instance list with measurements.
//   - error: ErrMalformedTensor, ErrInvalidImage or a placement failure.
func (m *MaskRCNN) Process(in model.Input) (*postprocess.Output, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	if m.options.Params.PaletteGrowth != model.GrowEager {
		m.palette.EnsureChannels(in.Masks)
	}

	seq, err := m.decoder.Decode(in.Detections, in.Width, in.Height)
	if err != nil {
		return nil, err
	}

	if nms := m.options.Params.NMS; nms != nil {
		seq = slices.Values(postprocess.ApplyGreedyNMS(slices.Collect(seq), nms))
	}

	sink, err := postprocess.NewSink(m.options.Params.OutputMode, m.options.Params.Merge, m.logger)
	if err != nil {
		return nil, err
	}

	out, err := m.compositor.Compose(seq, in.Masks, sink, in.Width, in.Height)
	if err != nil {
		return nil, errors.Wrap(err, "maskrcnn: compose")
	}
	out.Palette = m.palette.Colors()

	m.logger.Debug("processed frame",
		zap.Int("rows", in.Detections.Len()),
		zap.Int("objects", len(out.Measurements)),
		zap.String("mode", string(out.Mode)),
		zap.Int("palette", len(out.Palette)))

	return out, nil
}

// ProcessOutputs runs a model over one input, for callers holding only the
// tensors of an ONNX Runtime session.
//
// Arguments:
//   - m: The model.
//   - outputs: The session outputs; they are not destroyed.
//   - width: The source image width.
//   - height: The source image height.
//
// Returns:
//   - *postprocess.Output: The frame output.
//   - error: If the outputs are incomplete or processing fails.
func ProcessOutputs(m model.Model, outputs *inference.Outputs, width, height int) (*postprocess.Output, error) {
	detections, masks, err := outputs.Views()
	if err != nil {
		return nil, err
	}
	return m.Process(model.Input{
		Detections: detections,
		Masks:      masks,
		Width:      width,
		Height:     height,
	})
}
