// Package inference - Adapters from inference runtime outputs to typed views.
package inference

import (
	"io"

	"github.com/pkg/errors"
	ort "github.com/yalue/onnxruntime_go"
	"gorgonia.org/tensor"
)

const (
	// OutputMasks is the graph output holding per-class soft masks.
	OutputMasks = "detection_masks"
	// OutputDetections is the graph output holding detection rows.
	OutputDetections = "detection_out_final"
)

// OutputNames lists the graph outputs in the order the forward pass returns them.
var OutputNames = []string{OutputMasks, OutputDetections}

// ortOutput is the subset of *ort.Tensor[float32] read by the adapters.
type ortOutput interface {
	GetShape() ort.Shape
	GetData() []float32
}

// Outputs holds the two output tensors of one forward pass as handed over by
// the inference collaborator.
type Outputs struct {
	Masks      *ort.Tensor[float32]
	Detections *ort.Tensor[float32]
}

// Close releases the resources associated with the output tensors.
//
// Returns:
//   - No return values.
func (o *Outputs) Close() {
	if o.Masks != nil {
		o.Masks.Destroy()
		o.Masks = nil
	}
	if o.Detections != nil {
		o.Detections.Destroy()
		o.Detections = nil
	}
}

// Views wraps both outputs into typed views. The views share the ONNX
// Runtime buffers, so they are only valid until Close.
//
// Returns:
//   - *DetectionTensor: The detection view.
//   - *MaskTensor: The soft mask view.
//   - error: ErrMalformedTensor if either output is missing or malformed.
func (o *Outputs) Views() (*DetectionTensor, *MaskTensor, error) {
	if o.Detections == nil || o.Masks == nil {
		return nil, nil, errors.Wrap(ErrMalformedTensor, "forward pass outputs missing")
	}
	det, err := DetectionTensorFromORT(o.Detections)
	if err != nil {
		return nil, nil, err
	}
	masks, err := MaskTensorFromORT(o.Masks)
	if err != nil {
		return nil, nil, err
	}
	return det, masks, nil
}

// DetectionTensorFromORT wraps an ONNX Runtime output as a detection view.
func DetectionTensorFromORT(t ortOutput) (*DetectionTensor, error) {
	shape, err := ortShape(t)
	if err != nil {
		return nil, errors.Wrap(err, "detection tensor")
	}
	return newDetectionTensor(shape, t.GetData())
}

// MaskTensorFromORT wraps an ONNX Runtime output as a soft mask view.
func MaskTensorFromORT(t ortOutput) (*MaskTensor, error) {
	shape, err := ortShape(t)
	if err != nil {
		return nil, errors.Wrap(err, "mask tensor")
	}
	return newMaskTensor(shape, t.GetData())
}

func ortShape(t ortOutput) ([]int, error) {
	if t == nil {
		return nil, errors.Wrap(ErrMalformedTensor, "tensor is nil")
	}
	dims := t.GetShape()
	shape := make([]int, len(dims))
	for i, d := range dims {
		if d < 0 {
			return nil, errors.Wrapf(ErrMalformedTensor, "dynamic dimension %d in shape %v", i, dims)
		}
		shape[i] = int(d)
	}
	return shape, nil
}

// ReadDetectionTensor decodes a NumPy .npy float32 array into a detection view.
//
// Arguments:
//   - r: The .npy stream.
//
// Returns:
//   - *DetectionTensor: The decoded view.
//   - error: If the stream cannot be decoded or the layout is wrong.
func ReadDetectionTensor(r io.Reader) (*DetectionTensor, error) {
	t, err := readNpy(r)
	if err != nil {
		return nil, errors.Wrap(err, "read detection tensor")
	}
	return NewDetectionTensor(t)
}

// ReadMaskTensor decodes a NumPy .npy float32 array into a soft mask view.
func ReadMaskTensor(r io.Reader) (*MaskTensor, error) {
	t, err := readNpy(r)
	if err != nil {
		return nil, errors.Wrap(err, "read mask tensor")
	}
	return NewMaskTensor(t)
}

func readNpy(r io.Reader) (*tensor.Dense, error) {
	t := new(tensor.Dense)
	if err := t.ReadNpy(r); err != nil {
		return nil, err
	}
	return t, nil
}
