package postprocess

import (
	"sort"

	"github.com/nvr-ai/go-vision/errdefs"
	"github.com/nvr-ai/go-vision/images"
)

// DefaultIoUThreshold is the overlap at which a weaker box of the same class is suppressed.
const DefaultIoUThreshold = 0.5

// NMSConfig defines parameters for Non-Maximum Suppression.
type NMSConfig struct {
	IoUThreshold float32 `json:"iou_threshold" yaml:"iou_threshold" mapstructure:"iou_threshold"` // Overlap threshold for suppression.
	ClassAware   bool    `json:"class_aware" yaml:"class_aware" mapstructure:"class_aware"`       // If true, suppress only within same class.
}

// DefaultNMSConfig returns class-aware suppression at DefaultIoUThreshold.
func DefaultNMSConfig() *NMSConfig {
	return &NMSConfig{IoUThreshold: DefaultIoUThreshold, ClassAware: true}
}

// Validate reports ErrConfig for an IoU threshold outside [0, 1].
func (c *NMSConfig) Validate() error {
	if c.IoUThreshold < 0 || c.IoUThreshold > 1 {
		return errdefs.Config("iou threshold %v outside [0, 1]", c.IoUThreshold)
	}
	return nil
}

// ApplyGreedyNMS performs greedy Non-Maximum Suppression.
//
// Boxes are ordered by descending confidence (stable, so equal scores keep their input order). Walking
// that order, each box that has not been removed is kept, and every later box it overlaps with
// IoU >= IoUThreshold is removed. With ClassAware set, only boxes with the same class label are
// compared, so boxes of different classes never suppress each other.
//
// The input slice is not modified. Running the function on its own output returns the same boxes.
//
// Arguments:
//   - detections: Candidate boxes in any order.
//   - config: NMS configuration. A nil config uses DefaultNMSConfig.
//
// Returns:
//   - The surviving boxes in descending confidence order. If no detections are provided, returns nil.
func ApplyGreedyNMS(detections []BoundingBox, config *NMSConfig) []BoundingBox {
	n := len(detections)
	if n == 0 {
		return nil
	}
	if config == nil {
		config = DefaultNMSConfig()
	}

	sorted := make([]BoundingBox, n)
	copy(sorted, detections)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Confidence > sorted[j].Confidence
	})

	filtered := make([]BoundingBox, 0, n)
	removed := make([]bool, n)

	for i := 0; i < n; i++ {
		if removed[i] {
			continue
		}

		anchor := sorted[i]
		filtered = append(filtered, anchor)
		anchorRect := anchor.Rect()

		for j := i + 1; j < n; j++ {
			if removed[j] {
				continue
			}
			if config.ClassAware && sorted[j].ClassLabel != anchor.ClassLabel {
				continue
			}
			if images.CalculateIoU(anchorRect, sorted[j].Rect()) >= config.IoUThreshold {
				removed[j] = true
			}
		}
	}

	return filtered
}
