// Package maskrcnn - Mask R-CNN output decoding.
package maskrcnn

import (
	"github.com/nvr-ai/go-segment/inference"
	"github.com/nvr-ai/go-segment/models/model"
)

const (
	// DefaultInputSide is the square network input side in pixels.
	DefaultInputSide = 800
	// DefaultInputStep is the perturbation applied to the input side.
	DefaultInputStep = 32
)

// Options is the options for the Mask R-CNN model.
type Options struct {
	Params  model.Params `json:"params" yaml:"params"`
	Outputs []string     `json:"outputs" yaml:"outputs"`
	Input   InputSize    `json:"input" yaml:"input"`
}

// InputSize is the square network input side for one forward pass.
//
// Some execution backends cache state per input shape and fault when the
// same shape is reused across threads. With Perturb set the side alternates
// between Base+Step and Base-Step on consecutive calls. The value is owned
// by the caller and threaded from one call to the next.
type InputSize struct {
	// Base is the nominal side, 800 for Mask R-CNN.
	Base int `json:"base" yaml:"base"`
	// Step is the perturbation amplitude.
	Step int `json:"step" yaml:"step"`
	// Perturb enables the alternation.
	Perturb bool `json:"perturb" yaml:"perturb"`
	// Sign is +1 or -1; zero is treated as +1.
	Sign int `json:"sign" yaml:"sign"`
}

// DefaultInputSize returns the unperturbed 800 pixel input.
func DefaultInputSize() InputSize {
	return InputSize{Base: DefaultInputSide, Step: DefaultInputStep, Sign: 1}
}

// Side returns the input side for the current call.
//
// Returns:
//   - int: Base, or Base +/- Step when Perturb is set.
//
// @example
//
//	size := maskrcnn.InputSize{Base: 800, Step: 32, Perturb: true, Sign: 1}
//	size.Side()        // 832
//	size.Next().Side() // 768
func (s InputSize) Side() int {
	if !s.Perturb {
		return s.Base
	}
	if s.Sign < 0 {
		return s.Base - s.Step
	}
	return s.Base + s.Step
}

// Next returns the size to use for the following call.
func (s InputSize) Next() InputSize {
	if !s.Perturb {
		return s
	}
	if s.Sign < 0 {
		s.Sign = 1
	} else {
		s.Sign = -1
	}
	return s
}

// DefaultOptions returns the default options.
func DefaultOptions() Options {
	return Options{
		Params:  model.DefaultParams(),
		Outputs: inference.OutputNames,
		Input:   DefaultInputSize(),
	}
}
