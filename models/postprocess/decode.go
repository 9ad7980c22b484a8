package postprocess

import (
	"github.com/nvr-ai/go-vision/errdefs"
	"github.com/nvr-ai/go-vision/images"
	"github.com/nvr-ai/go-vision/models/tensorview"
)

// DefaultConfidenceThreshold is the objectness and final-score cut-off used when none is configured.
const DefaultConfidenceThreshold = 0.25

// DecodeConfig parameterises DecodeDetections.
type DecodeConfig struct {
	// ConfidenceThreshold rejects rows whose objectness, or objectness*classScore, is below it.
	ConfidenceThreshold float32
	// NumClasses is the number of per-class score columns following objectness.
	NumClasses int
}

// Validate reports ErrConfig for a threshold outside [0, 1] or a non-positive class count.
func (c DecodeConfig) Validate() error {
	if c.ConfidenceThreshold < 0 || c.ConfidenceThreshold > 1 {
		return errdefs.Config("confidence threshold %v outside [0, 1]", c.ConfidenceThreshold)
	}
	if c.NumClasses <= 0 {
		return errdefs.Config("class count %d must be positive", c.NumClasses)
	}
	return nil
}

// DecodeDetections turns a raw detection output into candidate boxes in source-image coordinates.
//
// Every row is laid out as [cx, cy, w, h, objectness, class0 ... classN-1]. A row survives when its
// objectness and its objectness*bestClassScore both reach the threshold. Ties between class scores go
// to the lowest class index. The centre-size box is converted to corners in network coordinates and
// both corners are mapped through inverse into the source image.
//
// Overlapping candidates are all returned; suppression is ApplyGreedyNMS's job.
//
// Arguments:
//   - output: The raw output, shape [numBoxes][5+numClasses] with an optional leading batch axis of 1.
//   - inverse: The network -> source transform.
//   - cfg: Threshold and class count.
//
// Returns:
//   - []BoundingBox: The candidates, in row order.
//   - error: ErrConfig for a bad cfg, ErrInvalidInput when the output shape does not match.
func DecodeDetections(output tensorview.View, inverse images.AffineTransform, cfg DecodeConfig) ([]BoundingBox, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	rows := output.SqueezeBatch(2)
	numCols := 5 + cfg.NumClasses
	if rows.Dims() != 2 || rows.Dim(1) != numCols {
		return nil, errdefs.InvalidInput("detection output shape %v, want [numBoxes][%d]", output.Shape(), numCols)
	}

	numRows := rows.Dim(0)
	results := make([]BoundingBox, 0, 16)

	for i := 0; i < numRows; i++ {
		row := rows.Row(i)

		objConf := row[4]
		// Negated so NaN scores are dropped.
		if !(objConf >= cfg.ConfidenceThreshold) {
			continue
		}

		classID, maxScore := argmax(row[5:])
		confidence := objConf * maxScore
		if !(confidence >= cfg.ConfidenceThreshold) {
			continue
		}

		cx, cy, w, h := row[0], row[1], row[2], row[3]
		box := inverse.ApplyRect(images.Rect{
			X1: cx - w*0.5,
			Y1: cy - h*0.5,
			X2: cx + w*0.5,
			Y2: cy + h*0.5,
		})

		results = append(results, BoundingBox{
			Left:       box.X1,
			Top:        box.Y1,
			Right:      box.X2,
			Bottom:     box.Y2,
			Confidence: confidence,
			ClassLabel: classID,
		})
	}

	return results, nil
}

// argmax returns the index and value of the first maximum.
func argmax(scores []float32) (int, float32) {
	best := 0
	for j := 1; j < len(scores); j++ {
		if scores[j] > scores[best] {
			best = j
		}
	}
	return best, scores[best]
}
