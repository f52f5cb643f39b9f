package images

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func uniformPlane(t *testing.T, width, height int, v float32) Plane {
	t.Helper()
	p, err := NewPlane(width, height)
	require.NoError(t, err)
	for i := range p.Pix {
		p.Pix[i] = v
	}
	return p
}

func TestResizePlane_Bilinear(t *testing.T) {
	tests := []struct {
		name     string
		src      []float32
		srcW     int
		dstW     int
		expected []float32
	}{
		{"upscale 2 to 4", []float32{0, 1}, 2, 4, []float32{0, 0.25, 0.75, 1}},
		{"downscale 4 to 2", []float32{0, 1, 2, 3}, 4, 2, []float32{0.5, 2.5}},
		{"identity", []float32{3, 1, 2}, 3, 3, []float32{3, 1, 2}},
		{"single source pixel", []float32{7}, 1, 3, []float32{7, 7, 7}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src, err := PlaneFrom(tt.srcW, 1, tt.src)
			require.NoError(t, err)

			dst, err := ResizePlane(src, tt.dstW, 1, BilinearFilter)
			require.NoError(t, err)
			require.Equal(t, tt.dstW, dst.Width)
			require.Equal(t, 1, dst.Height)
			assert.InDeltaSlice(t, tt.expected, dst.Pix, 1e-6)
		})
	}
}

func TestResizePlane_Vertical(t *testing.T) {
	src, err := PlaneFrom(1, 2, []float32{0, 1})
	require.NoError(t, err)

	dst, err := ResizePlane(src, 2, 4, BilinearFilter)
	require.NoError(t, err)

	expected := []float32{0, 0, 0.25, 0.25, 0.75, 0.75, 1, 1}
	assert.InDeltaSlice(t, expected, dst.Pix, 1e-6)
}

func TestResizePlane_UniformStaysUniform(t *testing.T) {
	src := uniformPlane(t, 15, 15, 0.8)

	for _, size := range [][2]int{{21, 21}, {7, 3}, {1, 1}, {150, 40}} {
		dst, err := ResizePlane(src, size[0], size[1], BilinearFilter)
		require.NoError(t, err)
		for _, v := range dst.Pix {
			assert.InDelta(t, 0.8, v, 1e-5)
		}
	}
}

func TestResizePlane_NearestNeighbor(t *testing.T) {
	src, err := PlaneFrom(2, 1, []float32{1, 5})
	require.NoError(t, err)

	dst, err := ResizePlane(src, 4, 1, NearestNeighborFilter)
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 1, 5, 5}, dst.Pix)
}

func TestResizePlane_DoesNotModifySource(t *testing.T) {
	src, err := PlaneFrom(2, 2, []float32{1, 2, 3, 4})
	require.NoError(t, err)

	dst, err := ResizePlane(src, 2, 2, BilinearFilter)
	require.NoError(t, err)
	dst.Pix[0] = 42
	assert.Equal(t, float32(1), src.Pix[0])
}

func TestResizePlane_EmptyExtent(t *testing.T) {
	src := uniformPlane(t, 4, 4, 1)

	_, err := ResizePlane(src, 0, 4, BilinearFilter)
	assert.ErrorIs(t, err, ErrEmptyExtent)

	_, err = ResizePlane(src, 4, -2, BilinearFilter)
	assert.ErrorIs(t, err, ErrEmptyExtent)

	_, err = ResizePlane(Plane{}, 4, 4, BilinearFilter)
	assert.ErrorIs(t, err, ErrEmptyExtent)
}

func TestResizePlaneRegion_MatchesFullResize(t *testing.T) {
	src, err := NewPlane(5, 4)
	require.NoError(t, err)
	for i := range src.Pix {
		src.Pix[i] = float32(i*7%11) / 11
	}

	full, err := ResizePlane(src, 13, 9, BilinearFilter)
	require.NoError(t, err)

	for _, region := range []image.Rectangle{
		image.Rect(0, 0, 13, 9),
		image.Rect(3, 2, 8, 7),
		image.Rect(12, 8, 13, 9),
		image.Rect(0, 4, 13, 5),
	} {
		t.Run(region.String(), func(t *testing.T) {
			win, err := ResizePlaneRegion(src, 13, 9, region, BilinearFilter)
			require.NoError(t, err)
			require.Equal(t, region.Dx(), win.Width)
			require.Equal(t, region.Dy(), win.Height)
			for y := region.Min.Y; y < region.Max.Y; y++ {
				for x := region.Min.X; x < region.Max.X; x++ {
					assert.InDelta(t, full.At(x, y), win.At(x-region.Min.X, y-region.Min.Y), 1e-6)
				}
			}
		})
	}
}

func TestResizePlaneRegion_HugeTarget(t *testing.T) {
	src := uniformPlane(t, 15, 15, 0.5)

	win, err := ResizePlaneRegion(src, 10_000_001, 10_000_001, image.Rect(0, 0, 4, 3), BilinearFilter)
	require.NoError(t, err)
	assert.Equal(t, 4, win.Width)
	assert.Equal(t, 3, win.Height)
	assert.InDeltaSlice(t, []float32{0.5, 0.5, 0.5, 0.5, 0.5, 0.5, 0.5, 0.5, 0.5, 0.5, 0.5, 0.5}, win.Pix, 1e-6)
}

func TestResizePlaneRegion_Validation(t *testing.T) {
	src := uniformPlane(t, 2, 2, 1)

	_, err := ResizePlaneRegion(src, 4, 4, image.Rect(2, 2, 5, 3), BilinearFilter)
	assert.ErrorIs(t, err, ErrRegionOutOfBounds)

	_, err = ResizePlaneRegion(src, 4, 4, image.Rect(1, 1, 1, 3), BilinearFilter)
	assert.ErrorIs(t, err, ErrEmptyExtent)

	_, err = ResizePlaneRegion(src, 0, 4, image.Rectangle{}, BilinearFilter)
	assert.ErrorIs(t, err, ErrEmptyExtent)
}

func TestPlaneResizer_Region(t *testing.T) {
	src := uniformPlane(t, 3, 3, 0.25)

	out, err := NewBilinearResizer().Resize(src, 6, 6, image.Rect(1, 1, 3, 2))
	require.NoError(t, err)
	assert.Equal(t, 2, out.Width)
	assert.Equal(t, 1, out.Height)
	assert.InDeltaSlice(t, []float32{0.25, 0.25}, out.Pix, 1e-6)
}

func TestPlaneFrom_Validation(t *testing.T) {
	_, err := PlaneFrom(2, 2, []float32{1, 2, 3})
	assert.Error(t, err)

	_, err = PlaneFrom(0, 2, nil)
	assert.ErrorIs(t, err, ErrEmptyExtent)
}

func TestThreshold_StrictlyGreater(t *testing.T) {
	p, err := PlaneFrom(4, 1, []float32{0.1, 0.3, 0.31, 2})
	require.NoError(t, err)

	mask := Threshold(p, 0.3, image.Pt(10, 20))

	assert.Equal(t, image.Rect(10, 20, 14, 21), mask.Bounds())
	assert.Equal(t, uint8(0), mask.GrayAt(10, 20).Y)
	assert.Equal(t, uint8(0), mask.GrayAt(11, 20).Y, "equal to threshold is background")
	assert.Equal(t, uint8(1), mask.GrayAt(12, 20).Y)
	assert.Equal(t, uint8(1), mask.GrayAt(13, 20).Y)
	assert.Equal(t, 2, CountForeground(mask))
}

func TestThreshold_Deterministic(t *testing.T) {
	src, err := PlaneFrom(3, 3, []float32{0, 0.2, 0.9, 0.4, 1, 0.1, 0.6, 0.3, 0.05})
	require.NoError(t, err)

	var sums []string
	for i := 0; i < 3; i++ {
		resized, err := ResizePlane(src, 17, 11, BilinearFilter)
		require.NoError(t, err)
		sums = append(sums, ComputeMaskChecksum(Threshold(resized, 0.3, image.Pt(5, 5))))
	}
	assert.Equal(t, sums[0], sums[1])
	assert.Equal(t, sums[0], sums[2])
	assert.NotEqual(t, "empty", sums[0])
}

func TestLabelImage(t *testing.T) {
	_, err := NewLabelImage(0, 10)
	assert.ErrorIs(t, err, ErrEmptyExtent)

	l, err := NewLabelImage(4, 3)
	require.NoError(t, err)
	l.Set(1, 1, 3)
	l.Set(3, 2, 6)

	assert.Equal(t, uint16(3), l.At(1, 1))
	assert.Equal(t, []uint16{0, 3, 6}, l.Labels())
	assert.Equal(t, uint16(6), l.Gray16().Gray16At(3, 2).Y)
}
