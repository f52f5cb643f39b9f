// Package model - Shared definitions for segmentation post-processing models.
package model

import (
	"github.com/nvr-ai/go-segment/images"
	"github.com/nvr-ai/go-segment/inference"
	"github.com/nvr-ai/go-segment/models/postprocess"
	"github.com/nvr-ai/go-segment/palette"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// ErrInvalidImage is returned when the source image is missing or has an
// empty extent. It is fatal for the whole image.
var ErrInvalidImage = errors.New("model: invalid source image")

// Name is the unique identifier of a model.
type Name string

const (
	// ModelNameMaskRCNN is the name of the Mask R-CNN model.
	ModelNameMaskRCNN Name = "maskrcnn"
)

// ClassTable is an ordered class-name table with an "unknown <id>" fallback.
type ClassTable interface {
	Name(id int) string
	Len() int
}

// Input is the forward-pass output of one image plus the image extent.
type Input struct {
	// Detections is the [1, 1, N, 7] detection tensor.
	Detections *inference.DetectionTensor
	// Masks is the [N, C, H, W] soft mask tensor.
	Masks *inference.MaskTensor
	// Width is the source image width in pixels.
	Width int
	// Height is the source image height in pixels.
	Height int
}

// Validate checks the fatal preconditions of an input.
func (in Input) Validate() error {
	if in.Detections == nil {
		return errors.Wrap(inference.ErrMalformedTensor, "detection tensor missing")
	}
	if in.Masks == nil {
		return errors.Wrap(inference.ErrMalformedTensor, "mask tensor missing")
	}
	if in.Width <= 0 || in.Height <= 0 {
		return errors.Wrapf(ErrInvalidImage, "extent %dx%d", in.Width, in.Height)
	}
	return nil
}

// Model decodes the forward-pass output of one image.
type Model interface {
	Name() Name
	Params() Params
	Process(in Input) (*postprocess.Output, error)
}

// NewModelArgs is the arguments for creating a new model.
type NewModelArgs struct {
	// Name selects the model implementation.
	Name Name `json:"name" yaml:"name"`
	// Params are the post-processing parameters.
	Params Params `json:"params" yaml:"params"`
	// Classes resolves class ids; nil renders every id as unknown.
	Classes ClassTable `json:"-" yaml:"-"`
	// Palette is the shared color table; nil creates one with DefaultSeed.
	Palette *palette.Palette `json:"-" yaml:"-"`
	// Resizer scales soft masks; nil selects the pure Go bilinear resizer.
	Resizer images.Resizer `json:"-" yaml:"-"`
	// IDs assigns object identities; nil selects random UUIDs.
	IDs func() string `json:"-" yaml:"-"`
	// Logger receives diagnostics; nil disables logging.
	Logger *zap.Logger `json:"-" yaml:"-"`
}
