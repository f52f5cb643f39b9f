package postprocess

import (
	"testing"

	"github.com/nvr-ai/go-segment/images"
	"github.com/stretchr/testify/assert"
)

func TestApplyGreedyNMS(t *testing.T) {
	box := images.Box{Left: 0, Top: 0, Width: 10, Height: 10}
	shifted := images.Box{Left: 1, Top: 1, Width: 10, Height: 10}
	far := images.Box{Left: 50, Top: 50, Width: 10, Height: 10}

	detections := []Detection{
		{Index: 0, ClassID: 1, Confidence: 0.6, Box: box},
		{Index: 1, ClassID: 1, Confidence: 0.9, Box: shifted},
		{Index: 2, ClassID: 2, Confidence: 0.7, Box: box},
		{Index: 3, ClassID: 1, Confidence: 0.8, Box: far},
	}

	tests := []struct {
		name   string
		config *NMSConfig
		want   []int
	}{
		{"disabled", nil, []int{0, 1, 2, 3}},
		{"class agnostic", &NMSConfig{IoUThreshold: 0.5}, []int{1, 3}},
		{"class aware", &NMSConfig{IoUThreshold: 0.5, ClassAware: true}, []int{1, 2, 3}},
		{"only identical boxes", &NMSConfig{IoUThreshold: 0.9}, []int{1, 2, 3}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ApplyGreedyNMS(detections, tt.config)
			indices := make([]int, 0, len(got))
			for _, d := range got {
				indices = append(indices, d.Index)
			}
			assert.Equal(t, tt.want, indices)
		})
	}

	assert.Nil(t, ApplyGreedyNMS(nil, &NMSConfig{IoUThreshold: 0.5}))
}
