package maskrcnn

import (
	"testing"

	"github.com/chewxy/math32"
	"github.com/nvr-ai/go-segment/images"
	"github.com/nvr-ai/go-segment/inference"
	"github.com/nvr-ai/go-segment/models/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorgonia.org/tensor"
)

func detectionTensor(t *testing.T, rows ...[]float32) *inference.DetectionTensor {
	t.Helper()
	data := make([]float32, 0, len(rows)*inference.DetectionFields)
	for _, r := range rows {
		require.Len(t, r, inference.DetectionFields)
		data = append(data, r...)
	}
	d, err := inference.NewDetectionTensor(tensor.New(
		tensor.WithShape(1, 1, len(rows), inference.DetectionFields),
		tensor.WithBacking(data)))
	require.NoError(t, err)
	return d
}

func TestDecode_ThresholdIsStrict(t *testing.T) {
	det := detectionTensor(t,
		[]float32{0, 1, 0.5, 0.1, 0.1, 0.3, 0.3},
		[]float32{0, 2, 0.51, 0.1, 0.1, 0.3, 0.3},
		[]float32{0, 3, 0.2, 0.1, 0.1, 0.3, 0.3},
		[]float32{0, 4, math32.NaN(), 0.1, 0.1, 0.3, 0.3},
	)

	got, err := NewDecoder(0.5, nil).Collect(det, 100, 100)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 1, got[0].Index)
	assert.Equal(t, 2, got[0].ClassID)
	assert.Equal(t, float32(0.51), got[0].Confidence)
}

func TestDecode_BoxConversion(t *testing.T) {
	tests := []struct {
		name   string
		row    []float32
		width  int
		height int
		want   images.Box
	}{
		{
			name:   "reference box",
			row:    []float32{0, 1, 0.9, 0.1, 0.1, 0.3, 0.3},
			width:  100,
			height: 100,
			want:   images.Box{Left: 10, Top: 10, Width: 21, Height: 21},
		},
		{
			name:   "non-square image",
			row:    []float32{0, 1, 0.9, 0.25, 0.5, 0.75, 1},
			width:  200,
			height: 100,
			want:   images.Box{Left: 50, Top: 50, Width: 101, Height: 51},
		},
		{
			name:   "halves round away from zero",
			row:    []float32{0, 1, 0.9, 0.25, 0.25, 0.75, 0.75},
			width:  10,
			height: 10,
			want:   images.Box{Left: 3, Top: 3, Width: 6, Height: 6},
		},
		{
			name:   "not clamped to the frame",
			row:    []float32{0, 1, 0.9, -0.1, 0.9, 0.1, 1.2},
			width:  100,
			height: 100,
			want:   images.Box{Left: -10, Top: 90, Width: 21, Height: 31},
		},
		{
			name:   "single pixel",
			row:    []float32{0, 1, 0.9, 0.5, 0.5, 0.5, 0.5},
			width:  100,
			height: 100,
			want:   images.Box{Left: 50, Top: 50, Width: 1, Height: 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewDecoder(0.5, nil).Collect(detectionTensor(t, tt.row), tt.width, tt.height)
			require.NoError(t, err)
			require.Len(t, got, 1)
			assert.Equal(t, tt.want, got[0].Box)
		})
	}
}

func TestDecode_SkipsInvalidClassIDs(t *testing.T) {
	det := detectionTensor(t,
		[]float32{0, -1, 0.9, 0.1, 0.1, 0.3, 0.3},
		[]float32{0, math32.NaN(), 0.9, 0.1, 0.1, 0.3, 0.3},
		[]float32{0, math32.Inf(1), 0.9, 0.1, 0.1, 0.3, 0.3},
		[]float32{0, 0, 0.9, 0.1, 0.1, 0.3, 0.3},
	)

	got, err := NewDecoder(0.5, nil).Collect(det, 100, 100)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 3, got[0].Index)
	assert.Equal(t, 0, got[0].ClassID)
}

func TestDecode_AscendingOrder(t *testing.T) {
	det := detectionTensor(t,
		[]float32{0, 5, 0.6, 0.1, 0.1, 0.3, 0.3},
		[]float32{0, 1, 0.99, 0.1, 0.1, 0.3, 0.3},
		[]float32{0, 3, 0.7, 0.1, 0.1, 0.3, 0.3},
	)

	got, err := NewDecoder(0.5, nil).Collect(det, 100, 100)
	require.NoError(t, err)
	require.Len(t, got, 3)
	for i, d := range got {
		assert.Equal(t, i, d.Index)
	}
}

func TestDecode_StopsWhenConsumerStops(t *testing.T) {
	det := detectionTensor(t,
		[]float32{0, 1, 0.9, 0.1, 0.1, 0.3, 0.3},
		[]float32{0, 2, 0.9, 0.1, 0.1, 0.3, 0.3},
	)

	seq, err := NewDecoder(0.5, nil).Decode(det, 100, 100)
	require.NoError(t, err)

	seen := 0
	for range seq {
		seen++
		break
	}
	assert.Equal(t, 1, seen)
}

func TestDecode_FatalInputs(t *testing.T) {
	det := detectionTensor(t, []float32{0, 1, 0.9, 0.1, 0.1, 0.3, 0.3})

	_, err := NewDecoder(0.5, nil).Decode(nil, 100, 100)
	assert.ErrorIs(t, err, inference.ErrMalformedTensor)

	_, err = NewDecoder(0.5, nil).Decode(det, 0, 100)
	assert.ErrorIs(t, err, model.ErrInvalidImage)

	_, err = NewDecoder(0.5, nil).Decode(det, 100, -1)
	assert.ErrorIs(t, err, model.ErrInvalidImage)
}

func TestInputSize_Toggle(t *testing.T) {
	size := DefaultInputSize()
	assert.Equal(t, 800, size.Side())
	assert.Equal(t, 800, size.Next().Side())

	size.Perturb = true
	assert.Equal(t, 832, size.Side())
	assert.Equal(t, 768, size.Next().Side())
	assert.Equal(t, 832, size.Next().Next().Side())

	zero := InputSize{Base: 800, Step: 32, Perturb: true}
	assert.Equal(t, 832, zero.Side())
	assert.Equal(t, 768, zero.Next().Side())
}
