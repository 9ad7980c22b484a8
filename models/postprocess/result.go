// Package postprocess - Decoding, suppression and compositing of raw model outputs.
package postprocess

import "github.com/nvr-ai/go-vision/images"

// BoundingBox is a single detection in source-image pixel coordinates.
//
// Invariants: Left <= Right, Top <= Bottom, Confidence in [0, 1].
type BoundingBox struct {
	Left       float32 `json:"left"`
	Top        float32 `json:"top"`
	Right      float32 `json:"right"`
	Bottom     float32 `json:"bottom"`
	Confidence float32 `json:"confidence"`
	ClassLabel int     `json:"class_label"`
}

// Rect returns the box geometry.
func (b BoundingBox) Rect() images.Rect {
	return images.Rect{X1: b.Left, Y1: b.Top, X2: b.Right, Y2: b.Bottom}
}

// Width returns Right-Left.
func (b BoundingBox) Width() float32 {
	return b.Right - b.Left
}

// Height returns Bottom-Top.
func (b BoundingBox) Height() float32 {
	return b.Bottom - b.Top
}
