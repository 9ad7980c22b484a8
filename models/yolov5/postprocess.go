package yolov5

import (
	"github.com/nvr-ai/go-vision/images"
	"github.com/nvr-ai/go-vision/models/postprocess"
	"github.com/nvr-ai/go-vision/models/tensorview"
)

// PostProcess postprocesses the output of the YOLOv5 model.
//
// Rows are decoded with the configured confidence threshold and class count, mapped into source
// coordinates, then reduced with greedy NMS.
//
// Arguments:
//   - output: The [1][N][5+C] output of the model.
//   - inverse: The network -> source transform of the frame.
//
// Returns:
//   - The surviving boxes, highest confidence first.
//   - ErrInvalidInput when the output does not match the configured class count.
func (m *YOLOv5) PostProcess(output tensorview.View, inverse images.AffineTransform) ([]postprocess.BoundingBox, error) {
	candidates, err := postprocess.DecodeDetections(output, inverse, postprocess.DecodeConfig{
		ConfidenceThreshold: m.options.ConfidenceThreshold,
		NumClasses:          m.options.NumClasses,
	})
	if err != nil {
		return nil, err
	}

	nms := m.options.NMS
	return postprocess.ApplyGreedyNMS(candidates, &nms), nil
}
