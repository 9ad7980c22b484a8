package postprocess

import (
	"github.com/nvr-ai/go-vision/errdefs"
	"github.com/nvr-ai/go-vision/images"
	"github.com/nvr-ai/go-vision/models/tensorview"
)

// SegmentationMap holds the winning class id and its score for every pixel, row-major.
type SegmentationMap struct {
	Width  int
	Height int
	Class  []int32
	Prob   []float32
}

// NewSegmentationMap allocates a zeroed map.
func NewSegmentationMap(width, height int) *SegmentationMap {
	return &SegmentationMap{
		Width:  width,
		Height: height,
		Class:  make([]int32, width*height),
		Prob:   make([]float32, width*height),
	}
}

// At returns the class id and probability of pixel (x, y).
func (m *SegmentationMap) At(x, y int) (int32, float32) {
	i := y*m.Width + x
	return m.Class[i], m.Prob[i]
}

// DecodeSegmentation picks the highest scoring class for every pixel of a [H][W][numClasses] output.
//
// Ties go to the lowest class index. The winning raw score is stored as the probability without any
// softmax, and later drives the overlay opacity directly.
//
// Arguments:
//   - output: The raw output with an optional leading batch axis of 1.
//   - numClasses: The expected class axis length.
//
// Returns:
//   - *SegmentationMap: The per-pixel map at network resolution.
//   - error: ErrConfig for numClasses <= 0, ErrInvalidInput when the output shape does not match.
func DecodeSegmentation(output tensorview.View, numClasses int) (*SegmentationMap, error) {
	if numClasses <= 0 {
		return nil, errdefs.Config("class count %d must be positive", numClasses)
	}

	grid := output.SqueezeBatch(3)
	if grid.Dims() != 3 || grid.Dim(2) != numClasses {
		return nil, errdefs.InvalidInput("segmentation output shape %v, want [H][W][%d]", output.Shape(), numClasses)
	}

	height, width := grid.Dim(0), grid.Dim(1)
	seg := NewSegmentationMap(width, height)

	images.Parallel(height, func(start, end int) {
		for y := start; y < end; y++ {
			for x := 0; x < width; x++ {
				classID, score := argmax(grid.Row(y, x))
				seg.Class[y*width+x] = int32(classID)
				seg.Prob[y*width+x] = score
			}
		}
	})

	return seg, nil
}

// Warp resamples the map to width x height. sample maps each destination pixel into this map's grid;
// for a network-resolution map rendered onto the source image that is the forward letterbox transform.
//
// Class ids use nearest-neighbour sampling and are never blended. Probabilities are bilinear. Pixels
// that fall outside the map get class 0 with probability 0.
func (m *SegmentationMap) Warp(sample images.AffineTransform, width, height int) *SegmentationMap {
	return &SegmentationMap{
		Width:  width,
		Height: height,
		Class:  images.WarpPlaneNearest(m.Class, m.Width, m.Height, sample, width, height, int32(0)),
		Prob:   images.WarpPlaneBilinear(m.Prob, m.Width, m.Height, sample, width, height, 0),
	}
}
