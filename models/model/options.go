// Package model - Post-processing parameters.
package model

import (
	"github.com/nvr-ai/go-segment/models/postprocess"
	"github.com/pkg/errors"
)

// ErrInvalidParams is returned when parameters are out of range.
var ErrInvalidParams = errors.New("model: invalid parameters")

// PaletteGrowth selects when the class palette is extended.
type PaletteGrowth string

const (
	// GrowEager generates one color per known class name when the model is created.
	GrowEager PaletteGrowth = "eager"
	// GrowLazy extends the palette every frame from the mask tensor's class channels.
	GrowLazy PaletteGrowth = "lazy"
)

const (
	// DefaultConfidenceThreshold is the score a detection must exceed.
	DefaultConfidenceThreshold float32 = 0.5
)

// Params are the scalar post-processing parameters of a model.
type Params struct {
	// ConfidenceThreshold is the score a detection must strictly exceed, in [0,1].
	ConfidenceThreshold float32 `json:"confidence" yaml:"confidence"`
	// MaskThreshold is the soft mask score a pixel must strictly exceed, in [0,1].
	MaskThreshold float32 `json:"mask_threshold" yaml:"mask_threshold"`
	// OutputMode selects label image or instance list output.
	OutputMode postprocess.OutputMode `json:"output_mode" yaml:"output_mode"`
	// Merge is the label image merge policy.
	Merge postprocess.MergePolicy `json:"merge" yaml:"merge"`
	// PaletteGrowth is the palette extension policy.
	PaletteGrowth PaletteGrowth `json:"palette_growth" yaml:"palette_growth"`
	// NMS optionally suppresses overlapping detections before compositing.
	NMS *postprocess.NMSConfig `json:"nms,omitempty" yaml:"nms,omitempty"`
}

// DefaultParams returns the reference defaults: confidence 0.5, mask
// threshold 0.3, label output with last-writer merge and lazy palette growth.
func DefaultParams() Params {
	return Params{
		ConfidenceThreshold: DefaultConfidenceThreshold,
		MaskThreshold:       postprocess.DefaultMaskThreshold,
		OutputMode:          postprocess.ModeLabel,
		Merge:               postprocess.MergeLastWriter,
		PaletteGrowth:       GrowLazy,
	}
}

// Validate checks ranges and enumerations.
func (p Params) Validate() error {
	if !(p.ConfidenceThreshold >= 0 && p.ConfidenceThreshold <= 1) {
		return errors.Wrapf(ErrInvalidParams, "confidence threshold %v not in [0,1]", p.ConfidenceThreshold)
	}
	if !(p.MaskThreshold >= 0 && p.MaskThreshold <= 1) {
		return errors.Wrapf(ErrInvalidParams, "mask threshold %v not in [0,1]", p.MaskThreshold)
	}
	switch p.OutputMode {
	case postprocess.ModeLabel, postprocess.ModeInstance:
	default:
		return errors.Wrapf(ErrInvalidParams, "output mode %q", p.OutputMode)
	}
	switch p.Merge {
	case postprocess.MergeLastWriter, postprocess.MergeHighestConfidence, postprocess.MergeBitwiseOr:
	default:
		return errors.Wrapf(ErrInvalidParams, "merge policy %q", p.Merge)
	}
	switch p.PaletteGrowth {
	case GrowEager, GrowLazy:
	default:
		return errors.Wrapf(ErrInvalidParams, "palette growth %q", p.PaletteGrowth)
	}
	if p.NMS != nil && !(p.NMS.IoUThreshold >= 0 && p.NMS.IoUThreshold <= 1) {
		return errors.Wrapf(ErrInvalidParams, "nms iou threshold %v not in [0,1]", p.NMS.IoUThreshold)
	}
	return nil
}
