// Package tensorview - Bounds-checked strided views over flat engine output buffers.
package tensorview

import (
	"fmt"

	"github.com/nvr-ai/go-vision/errdefs"
	"gorgonia.org/tensor"
)

// View is a read-only, row-major view of a flat float32 buffer with a fixed shape. The buffer is not
// copied; ownership stays with the caller.
type View struct {
	data    []float32
	shape   tensor.Shape
	strides []int
}

// New wraps data with the given dimensions.
//
// Arguments:
//   - data: The flat buffer.
//   - dims: The shape, outermost axis first.
//
// Returns:
//   - View: The view.
//   - error: ErrInvalidInput if a dimension is not positive or len(data) differs from the shape's size.
func New(data []float32, dims ...int) (View, error) {
	if len(dims) == 0 {
		return View{}, errdefs.InvalidInput("tensor view needs at least one dimension")
	}
	for _, d := range dims {
		if d <= 0 {
			return View{}, errdefs.InvalidInput("tensor dimensions %v must be positive", dims)
		}
	}

	shape := tensor.Shape(append([]int(nil), dims...))
	if size := shape.TotalSize(); size != len(data) {
		return View{}, errdefs.InvalidInput("tensor of shape %v needs %d values, got %d", dims, size, len(data))
	}

	return View{data: data, shape: shape, strides: rowMajorStrides(shape)}, nil
}

// Shape returns a copy of the view's dimensions.
func (v View) Shape() []int {
	return []int(v.shape.Clone())
}

// Dims returns the number of axes.
func (v View) Dims() int {
	return len(v.shape)
}

// Dim returns the size of axis i.
func (v View) Dim(i int) int {
	return v.shape[i]
}

// Data returns the underlying buffer.
func (v View) Data() []float32 {
	return v.data
}

// SqueezeBatch drops axis 0 when the view has rank+1 axes and axis 0 is a batch of 1, so an engine
// output of shape [1][N][C] reads as [N][C]. Any other view is returned unchanged; inner axes of size 1
// are never dropped.
func (v View) SqueezeBatch(rank int) View {
	if len(v.shape) != rank+1 || v.shape[0] != 1 {
		return v
	}
	shape := v.shape[1:].Clone()
	return View{data: v.data, shape: shape, strides: rowMajorStrides(shape)}
}

// At returns the element at the given coordinates. It panics when the number of coordinates differs
// from Dims or any coordinate is out of range.
func (v View) At(coords ...int) float32 {
	return v.data[v.offset(coords)]
}

// Row returns the innermost axis at the given outer coordinates as a sub-slice of the buffer, for
// example the 5+numClasses scores of one detection row, or the class scores of one pixel.
func (v View) Row(coords ...int) []float32 {
	if len(coords) != len(v.shape)-1 {
		panic(fmt.Sprintf("tensorview: Row needs %d coordinates, got %d", len(v.shape)-1, len(coords)))
	}
	full := make([]int, 0, len(coords)+1)
	full = append(append(full, coords...), 0)
	start := v.offset(full)
	return v.data[start : start+v.shape[len(v.shape)-1]]
}

func (v View) offset(coords []int) int {
	if len(coords) != len(v.shape) {
		panic(fmt.Sprintf("tensorview: %d coordinates for a %d-d view", len(coords), len(v.shape)))
	}
	off := 0
	for i, c := range coords {
		if c < 0 || c >= v.shape[i] {
			panic(fmt.Sprintf("tensorview: index %d out of range [0, %d) on axis %d", c, v.shape[i], i))
		}
		off += c * v.strides[i]
	}
	return off
}

func rowMajorStrides(shape tensor.Shape) []int {
	strides := make([]int, len(shape))
	acc := 1
	for i := len(shape) - 1; i >= 0; i-- {
		strides[i] = acc
		acc *= shape[i]
	}
	return strides
}
