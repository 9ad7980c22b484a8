// Package images - Pixel buffers, geometry and resampling for the vision pipeline.
package images

import (
	"github.com/chewxy/math32"
)

// Rect is an axis-aligned box in floating point pixel coordinates.
//
// X1,Y1 is the top-left corner and X2,Y2 the bottom-right corner. Boxes decoded from a network
// output carry sub-pixel coordinates, so the type stays in float32 instead of image.Rectangle.
type Rect struct {
	X1, Y1, X2, Y2 float32
}

// Width returns the horizontal extent, clamped at 0.
func (r Rect) Width() float32 {
	return math32.Max(0, r.X2-r.X1)
}

// Height returns the vertical extent, clamped at 0.
func (r Rect) Height() float32 {
	return math32.Max(0, r.Y2-r.Y1)
}

// Area returns Width*Height.
func (r Rect) Area() float32 {
	return r.Width() * r.Height()
}

// Canon returns the rectangle with its corners ordered so that X1 <= X2 and Y1 <= Y2.
func (r Rect) Canon() Rect {
	if r.X1 > r.X2 {
		r.X1, r.X2 = r.X2, r.X1
	}
	if r.Y1 > r.Y2 {
		r.Y1, r.Y2 = r.Y2, r.Y1
	}
	return r
}

// CalculateIoU returns the Intersection over Union of two rectangles.
//
//	IoU = Area of Intersection / Area of Union
//
// The intersection starts at the maximum of the two top-left corners and ends at the minimum of the two
// bottom-right corners. Its width and height are clamped at 0, so disjoint or touching rectangles give 0.
// The union uses inclusion-exclusion: Area(A) + Area(B) - Intersection(A, B).
//
// A rectangle with zero (or inverted) extent has no area, and any pair involving one scores 0.
//
// Arguments:
//   - r: The first rectangle.
//   - o: The rectangle to compare against.
//
// Returns:
//   - float32: A value in [0, 1].
//
// Example Usage:
// ```go
//
//	a := Rect{X1: 0, Y1: 0, X2: 10, Y2: 10}
//	b := Rect{X1: 5, Y1: 5, X2: 15, Y2: 15}
//	iou := CalculateIoU(a, b) // 25 / 175 = 0.142857
//
// ```
func CalculateIoU(r, o Rect) float32 {
	areaR := r.Area()
	areaO := o.Area()
	if areaR <= 0 || areaO <= 0 {
		return 0
	}

	interW := math32.Max(0, math32.Min(r.X2, o.X2)-math32.Max(r.X1, o.X1))
	interH := math32.Max(0, math32.Min(r.Y2, o.Y2)-math32.Max(r.Y1, o.Y1))
	interArea := interW * interH
	if interArea <= 0 {
		return 0
	}

	unionArea := areaR + areaO - interArea
	if unionArea <= 0 {
		return 0
	}

	return interArea / unionArea
}
