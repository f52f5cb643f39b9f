// Package postprocess - provides Non-Maximum Suppression for decoded detections.
package postprocess

import (
	"cmp"
	"slices"

	"github.com/nvr-ai/go-segment/images"
)

// NMSConfig defines parameters for Non-Maximum Suppression.
type NMSConfig struct {
	IoUThreshold float32 `json:"iou_threshold" yaml:"iou_threshold"` // Overlap threshold for suppression.
	ClassAware   bool    `json:"class_aware" yaml:"class_aware"`     // If true, suppress only within same class.
}

// ApplyGreedyNMS performs standard greedy Non-Maximum Suppression.
//
// Detections are visited by descending confidence (ties by row order) and
// every later detection whose box overlaps a kept one by more than the
// threshold is dropped. The survivors are returned in their original order
// so that label merging is unaffected by the suppression pass.
//
// Arguments:
//   - detections: Decoded detections in row order.
//   - config: NMS configuration; nil disables suppression.
//
// Returns:
//   - Filtered slice of detections. If no detections are provided, returns nil.
func ApplyGreedyNMS(detections []Detection, config *NMSConfig) []Detection {
	n := len(detections)
	if n == 0 {
		return nil
	}
	if config == nil {
		return detections
	}

	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	slices.SortStableFunc(order, func(a, b int) int {
		return cmp.Compare(detections[b].Confidence, detections[a].Confidence)
	})

	used := make([]bool, n)
	kept := make([]bool, n)

	for _, i := range order {
		if used[i] {
			continue
		}

		anchor := detections[i]
		kept[i] = true
		used[i] = true

		for _, j := range order {
			if used[j] {
				continue
			}
			if config.ClassAware && anchor.ClassID != detections[j].ClassID {
				continue
			}

			// Suppress if IoU exceeds threshold
			if images.CalculateIoU(anchor.Box, detections[j].Box) > config.IoUThreshold {
				used[j] = true
			}
		}
	}

	filtered := make([]Detection, 0, n)
	for i, d := range detections {
		if kept[i] {
			filtered = append(filtered, d)
		}
	}
	return filtered
}
