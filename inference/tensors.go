// Package inference - Typed views over the forward-pass output tensors of an
// instance segmentation network.
package inference

import (
	"fmt"

	"github.com/nvr-ai/go-segment/images"
	"github.com/pkg/errors"
	"gorgonia.org/tensor"
)

// ErrMalformedTensor is returned when a tensor does not have the layout the
// decoder expects. It is fatal for the whole image.
var ErrMalformedTensor = errors.New("inference: malformed tensor")

// Field names one column of a detection row.
type Field int

// Detection row layout, in tensor order.
const (
	FieldImageID Field = iota
	FieldClassID
	FieldConfidence
	FieldLeft
	FieldTop
	FieldRight
	FieldBottom

	// DetectionFields is the minimum number of columns per detection row.
	DetectionFields = int(FieldBottom) + 1
)

// String returns the field name.
func (f Field) String() string {
	switch f {
	case FieldImageID:
		return "imageId"
	case FieldClassID:
		return "classId"
	case FieldConfidence:
		return "confidence"
	case FieldLeft:
		return "left"
	case FieldTop:
		return "top"
	case FieldRight:
		return "right"
	case FieldBottom:
		return "bottom"
	default:
		return fmt.Sprintf("field(%d)", int(f))
	}
}

// DetectionRow is one decoded row of the detection tensor. Box coordinates
// are normalized to [0,1] of the image extent.
type DetectionRow struct {
	ClassID    float32
	Confidence float32
	Left       float32
	Top        float32
	Right      float32
	Bottom     float32
}

// DetectionTensor is a read-only view over a float32 tensor laid out as
// [batch=1, group=1, detection, field].
type DetectionTensor struct {
	data   []float32
	count  int
	fields int
}

// NewDetectionTensor validates and wraps a dense detection tensor.
//
// Arguments:
//   - t: A float32 tensor shaped [1, 1, N, F] with F >= DetectionFields.
//
// Returns:
//   - *DetectionTensor: The typed view, sharing t's backing data.
//   - error: ErrMalformedTensor if the tensor is nil or has the wrong layout.
func NewDetectionTensor(t *tensor.Dense) (*DetectionTensor, error) {
	shape, data, err := denseFloat32s(t)
	if err != nil {
		return nil, errors.Wrap(err, "detection tensor")
	}
	return newDetectionTensor(shape, data)
}

func newDetectionTensor(shape []int, data []float32) (*DetectionTensor, error) {
	if len(shape) != 4 {
		return nil, errors.Wrapf(ErrMalformedTensor, "detection tensor has %d dims, want 4", len(shape))
	}
	if shape[0] != 1 || shape[1] != 1 {
		return nil, errors.Wrapf(ErrMalformedTensor, "detection tensor shape %v, want [1 1 N F]", shape)
	}
	if shape[2] < 0 {
		return nil, errors.Wrapf(ErrMalformedTensor, "detection count %d", shape[2])
	}
	if shape[3] < DetectionFields {
		return nil, errors.Wrapf(ErrMalformedTensor, "detection rows have %d fields, want at least %d",
			shape[3], DetectionFields)
	}
	if len(data) != shape[2]*shape[3] {
		return nil, errors.Wrapf(ErrMalformedTensor, "detection tensor shape %v holds %d values",
			shape, len(data))
	}
	return &DetectionTensor{data: data, count: shape[2], fields: shape[3]}, nil
}

// Len returns the number of detection rows.
func (d *DetectionTensor) Len() int {
	return d.count
}

// Field returns a single named value of row n.
func (d *DetectionTensor) Field(n int, f Field) float32 {
	return d.data[n*d.fields+int(f)]
}

// Row returns the named fields of row n.
func (d *DetectionTensor) Row(n int) DetectionRow {
	return DetectionRow{
		ClassID:    d.Field(n, FieldClassID),
		Confidence: d.Field(n, FieldConfidence),
		Left:       d.Field(n, FieldLeft),
		Top:        d.Field(n, FieldTop),
		Right:      d.Field(n, FieldRight),
		Bottom:     d.Field(n, FieldBottom),
	}
}

// MaskTensor is a read-only view over a float32 tensor laid out as
// [detection, class, maskRow, maskCol].
type MaskTensor struct {
	data     []float32
	count    int
	channels int
	height   int
	width    int
}

// NewMaskTensor validates and wraps a dense soft mask tensor.
//
// Arguments:
//   - t: A float32 tensor shaped [N, C, H, W] with every dimension positive.
//
// Returns:
//   - *MaskTensor: The typed view, sharing t's backing data.
//   - error: ErrMalformedTensor if the tensor is nil or has the wrong layout.
func NewMaskTensor(t *tensor.Dense) (*MaskTensor, error) {
	shape, data, err := denseFloat32s(t)
	if err != nil {
		return nil, errors.Wrap(err, "mask tensor")
	}
	return newMaskTensor(shape, data)
}

func newMaskTensor(shape []int, data []float32) (*MaskTensor, error) {
	if len(shape) != 4 {
		return nil, errors.Wrapf(ErrMalformedTensor, "mask tensor has %d dims, want 4", len(shape))
	}
	if shape[0] < 0 || shape[1] <= 0 || shape[2] <= 0 || shape[3] <= 0 {
		return nil, errors.Wrapf(ErrMalformedTensor, "mask tensor shape %v", shape)
	}
	if len(data) != shape[0]*shape[1]*shape[2]*shape[3] {
		return nil, errors.Wrapf(ErrMalformedTensor, "mask tensor shape %v holds %d values", shape, len(data))
	}
	return &MaskTensor{
		data:     data,
		count:    shape[0],
		channels: shape[1],
		height:   shape[2],
		width:    shape[3],
	}, nil
}

// Len returns the number of detections the tensor carries masks for.
func (m *MaskTensor) Len() int {
	return m.count
}

// Channels returns the number of per-class mask channels.
func (m *MaskTensor) Channels() int {
	return m.channels
}

// Height returns the soft mask height.
func (m *MaskTensor) Height() int {
	return m.height
}

// Width returns the soft mask width.
func (m *MaskTensor) Width() int {
	return m.width
}

// Slice returns the soft mask of detection n for class c. The plane shares
// the tensor's backing data and must not be modified.
//
// Arguments:
//   - n: The detection index.
//   - c: The class channel.
//
// Returns:
//   - images.Plane: The Height x Width scores.
//   - error: ErrMalformedTensor when n or c are out of range.
func (m *MaskTensor) Slice(n, c int) (images.Plane, error) {
	if n < 0 || n >= m.count {
		return images.Plane{}, errors.Wrapf(ErrMalformedTensor, "mask tensor has no detection %d (len %d)", n, m.count)
	}
	if c < 0 || c >= m.channels {
		return images.Plane{}, errors.Wrapf(ErrMalformedTensor, "mask tensor has no class channel %d (channels %d)",
			c, m.channels)
	}
	size := m.height * m.width
	off := (n*m.channels + c) * size
	return images.PlaneFrom(m.width, m.height, m.data[off:off+size])
}

// denseFloat32s extracts the shape and contiguous float32 data of a dense tensor.
func denseFloat32s(t *tensor.Dense) ([]int, []float32, error) {
	if t == nil {
		return nil, nil, errors.Wrap(ErrMalformedTensor, "tensor is nil")
	}
	if t.Dtype() != tensor.Float32 {
		return nil, nil, errors.Wrapf(ErrMalformedTensor, "dtype %v, want float32", t.Dtype())
	}
	if t.IsView() {
		m, ok := t.Materialize().(*tensor.Dense)
		if !ok {
			return nil, nil, errors.Wrap(ErrMalformedTensor, "cannot materialize tensor view")
		}
		t = m
	}
	data, ok := t.Data().([]float32)
	if !ok {
		return nil, nil, errors.Wrapf(ErrMalformedTensor, "unexpected backing %T", t.Data())
	}
	return []int(t.Shape().Clone()), data, nil
}
