package postprocess

import (
	"image"
	"slices"
	"testing"

	"github.com/nvr-ai/go-segment/images"
	"github.com/nvr-ai/go-segment/inference"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorgonia.org/tensor"
)

// onesMasks builds an [n, c, h, w] tensor in which channel class[i] of
// detection i is all ones.
func onesMasks(t *testing.T, n, c, h, w int, class ...int) *inference.MaskTensor {
	t.Helper()
	data := make([]float32, n*c*h*w)
	for i, k := range class {
		off := (i*c + k) * h * w
		for j := 0; j < h*w; j++ {
			data[off+j] = 1
		}
	}
	m, err := inference.NewMaskTensor(tensor.New(tensor.WithShape(n, c, h, w), tensor.WithBacking(data)))
	require.NoError(t, err)
	return m
}

func fixedID() string { return "id" }

func newTestCompositor() *Compositor {
	return NewCompositor(CompositorArgs{MaskThreshold: DefaultMaskThreshold, IDs: fixedID})
}

func TestCompositor_Object(t *testing.T) {
	c := newTestCompositor()
	masks := onesMasks(t, 1, 3, 5, 5, 2)

	obj, err := c.Object(Detection{Index: 0, ClassID: 2, Confidence: 0.8, Box: images.Box{Left: 4, Top: 6, Width: 7, Height: 3}}, masks, 20, 20)
	require.NoError(t, err)
	require.NotNil(t, obj)

	assert.Equal(t, image.Rect(4, 6, 11, 9), obj.Mask.Bounds())
	assert.Equal(t, 21, obj.Area)
	assert.Equal(t, 21, images.CountForeground(obj.Mask))
	assert.Equal(t, "unknown 2", obj.ClassName)
	assert.Equal(t, "id", obj.ID)
}

func TestCompositor_SoftMaskThreshold(t *testing.T) {
	data := []float32{
		0.3, 0.31,
		0.1, 0.9,
	}
	masks, err := inference.NewMaskTensor(tensor.New(tensor.WithShape(1, 1, 2, 2), tensor.WithBacking(data)))
	require.NoError(t, err)

	obj, err := newTestCompositor().Object(Detection{Box: images.Box{Width: 2, Height: 2}}, masks, 2, 2)
	require.NoError(t, err)
	assert.Equal(t, []uint8{0, 1, 0, 1}, obj.Mask.Pix)
	assert.Equal(t, 2, obj.Area)
	assert.InDelta(t, (0.31+0.9)/2, obj.MaskScore, 1e-6)
}

func TestCompositor_DegenerateBoxIsSkipped(t *testing.T) {
	c := newTestCompositor()
	masks := onesMasks(t, 1, 2, 4, 4, 1)

	for _, box := range []images.Box{
		{Left: 1, Top: 1, Width: 0, Height: 5},
		{Left: 1, Top: 1, Width: 5, Height: -2},
	} {
		obj, err := c.Object(Detection{ClassID: 1, Box: box}, masks, 10, 10)
		require.NoError(t, err)
		assert.Nil(t, obj)
	}
}

func TestCompositor_OutOfRangeClassIsFatal(t *testing.T) {
	c := newTestCompositor()
	masks := onesMasks(t, 1, 2, 4, 4)

	_, err := c.Object(Detection{ClassID: 2, Box: images.Box{Width: 3, Height: 3}}, masks, 10, 10)
	assert.ErrorIs(t, err, inference.ErrMalformedTensor)
}

func TestCompositor_ObjectClipsBeforeResize(t *testing.T) {
	c := newTestCompositor()
	masks := onesMasks(t, 1, 2, 15, 15, 1)

	tests := []struct {
		name   string
		box    images.Box
		bounds image.Rectangle
	}{
		{
			name:   "partly left of frame",
			box:    images.Box{Left: -2, Top: 0, Width: 6, Height: 4},
			bounds: image.Rect(0, 0, 3, 4),
		},
		{
			name:   "far larger than frame",
			box:    images.Box{Left: 0, Top: 0, Width: 10_000_001, Height: 10_000_001},
			bounds: image.Rect(0, 0, 3, 10),
		},
		{
			name:   "far beyond bottom right",
			box:    images.Box{Left: -5_000_000, Top: -5_000_000, Width: 10_000_001, Height: 10_000_001},
			bounds: image.Rect(0, 0, 3, 10),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var obj *Object
			var err error
			require.NotPanics(t, func() {
				obj, err = c.Object(Detection{ClassID: 1, Box: tt.box}, masks, 3, 10)
			})
			require.NoError(t, err)
			require.NotNil(t, obj)

			assert.Equal(t, tt.bounds, obj.Mask.Bounds())
			assert.Equal(t, tt.bounds.Dx()*tt.bounds.Dy(), obj.Area)
			assert.Equal(t, obj.Area, images.CountForeground(obj.Mask))
			assert.Equal(t, tt.box, obj.Box)
		})
	}
}

func TestCompositor_ObjectOutsideFrame(t *testing.T) {
	c := newTestCompositor()
	masks := onesMasks(t, 1, 2, 4, 4, 1)

	obj, err := c.Object(Detection{ClassID: 1, Box: images.Box{Left: 50, Top: 50, Width: 1_000_000, Height: 5}}, masks, 10, 10)
	require.NoError(t, err)
	require.NotNil(t, obj)
	assert.True(t, obj.Mask.Bounds().Empty())
	assert.Zero(t, obj.Area)
	assert.Zero(t, obj.MaskScore)

	// Tensor contract violations stay fatal even off frame.
	_, err = c.Object(Detection{ClassID: 3, Box: images.Box{Left: 50, Top: 50, Width: 5, Height: 5}}, masks, 10, 10)
	assert.ErrorIs(t, err, inference.ErrMalformedTensor)
}

func TestCompositor_ComposeSkipsAndPlaces(t *testing.T) {
	c := newTestCompositor()
	masks := onesMasks(t, 3, 4, 4, 4, 1, 2, 3)
	detections := []Detection{
		{Index: 0, ClassID: 1, Confidence: 0.9, Box: images.Box{Left: 0, Top: 0, Width: 4, Height: 4}},
		{Index: 1, ClassID: 2, Confidence: 0.9, Box: images.Box{Left: 5, Top: 5, Width: 0, Height: 4}},
		{Index: 2, ClassID: 3, Confidence: 0.9, Box: images.Box{Left: 6, Top: 6, Width: 2, Height: 2}},
	}

	sink, err := NewSink(ModeLabel, MergeLastWriter, nil)
	require.NoError(t, err)
	out, err := c.Compose(slices.Values(detections), masks, sink, 10, 10)
	require.NoError(t, err)

	assert.Equal(t, []uint16{0, 2, 4}, out.Labels.Labels())
	require.Len(t, out.Measurements, 2)
	assert.Equal(t, 1, out.Measurements[0].ClassID)
	assert.Equal(t, 3, out.Measurements[1].ClassID)
}

func TestCompositor_ComposeAbortsFrame(t *testing.T) {
	c := newTestCompositor()
	masks := onesMasks(t, 1, 2, 4, 4, 1)
	detections := []Detection{
		{Index: 0, ClassID: 1, Box: images.Box{Width: 2, Height: 2}},
		{Index: 1, ClassID: 1, Box: images.Box{Width: 2, Height: 2}},
	}

	out, err := c.Compose(slices.Values(detections), masks, NewInstanceSink(), 10, 10)
	assert.ErrorIs(t, err, inference.ErrMalformedTensor)
	assert.Nil(t, out)

	_, err = c.Compose(slices.Values(detections), nil, NewInstanceSink(), 10, 10)
	assert.ErrorIs(t, err, inference.ErrMalformedTensor)

	_, err = c.Compose(slices.Values(detections), masks, NewInstanceSink(), 0, 10)
	assert.ErrorIs(t, err, images.ErrEmptyExtent)
}
