package images

import (
	"image"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestIoU_Correctness validates the IoU implementation against known test cases.
func TestIoU_Correctness(t *testing.T) {
	tests := []struct {
		name     string
		r1       Rect
		r2       Rect
		expected float32
		epsilon  float32
	}{
		{
			name:     "Identical rectangles",
			r1:       Rect{0, 0, 100, 100},
			r2:       Rect{0, 0, 100, 100},
			expected: 1.0,
			epsilon:  0.001,
		},
		{
			name:     "No overlap",
			r1:       Rect{0, 0, 100, 100},
			r2:       Rect{200, 200, 300, 300},
			expected: 0.0,
			epsilon:  0.001,
		},
		{
			name:     "Touching edges",
			r1:       Rect{0, 0, 100, 100},
			r2:       Rect{100, 0, 200, 100},
			expected: 0.0,
			epsilon:  0.001,
		},
		{
			name:     "Half overlap",
			r1:       Rect{0, 0, 100, 100},
			r2:       Rect{50, 50, 150, 150},
			expected: 0.142857, // 2500 / 17500
			epsilon:  0.001,
		},
		{
			name:     "One inside other",
			r1:       Rect{0, 0, 100, 100},
			r2:       Rect{25, 25, 75, 75},
			expected: 0.25,
			epsilon:  0.001,
		},
		{
			name:     "Sub-pixel boxes",
			r1:       Rect{0.5, 0.5, 10.5, 10.5},
			r2:       Rect{0.5, 0.5, 10.5, 5.5},
			expected: 0.5,
			epsilon:  0.001,
		},
		{
			name:     "Zero area",
			r1:       Rect{10, 10, 10, 10},
			r2:       Rect{0, 0, 100, 100},
			expected: 0.0,
			epsilon:  0.0,
		},
		{
			name:     "Inverted box has no area",
			r1:       Rect{100, 100, 0, 0},
			r2:       Rect{0, 0, 100, 100},
			expected: 0.0,
			epsilon:  0.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := CalculateIoU(tt.r1, tt.r2)
			assert.InDelta(t, tt.expected, result, float64(tt.epsilon))

			// IoU(A, B) == IoU(B, A)
			reverse := CalculateIoU(tt.r2, tt.r1)
			assert.InDelta(t, result, reverse, 1e-6, "IoU not symmetric")
		})
	}
}

// TestIoU_vs_ImageRectangle compares integer-aligned boxes against image.Rectangle.
func TestIoU_vs_ImageRectangle(t *testing.T) {
	testCases := []struct {
		name string
		r1   image.Rectangle
		r2   image.Rectangle
	}{
		{"No overlap", image.Rect(0, 0, 100, 100), image.Rect(200, 200, 300, 300)},
		{"Partial overlap", image.Rect(0, 0, 100, 100), image.Rect(50, 50, 150, 150)},
		{"Full overlap", image.Rect(50, 50, 150, 150), image.Rect(50, 50, 150, 150)},
		{"Large boxes", image.Rect(0, 0, 1920, 1080), image.Rect(960, 540, 1920, 1080)},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := CalculateIoU(fromRectangle(tc.r1), fromRectangle(tc.r2))

			intersect := tc.r1.Intersect(tc.r2)
			var want float32
			if !intersect.Empty() {
				ia := intersect.Dx() * intersect.Dy()
				union := tc.r1.Dx()*tc.r1.Dy() + tc.r2.Dx()*tc.r2.Dy() - ia
				want = float32(ia) / float32(union)
			}

			assert.InDelta(t, want, got, 0.0001)
		})
	}
}

func TestIoU_EdgeCases(t *testing.T) {
	tests := []struct {
		name string
		r1   Rect
		r2   Rect
	}{
		{"Negative coordinates", Rect{-100, -100, 0, 0}, Rect{-50, -50, 50, 50}},
		{"Single pixel", Rect{0, 0, 1, 1}, Rect{0, 0, 1, 1}},
		{"Very large coordinates", Rect{0, 0, 999999, 999999}, Rect{500000, 500000, 999999, 999999}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := CalculateIoU(tt.r1, tt.r2)
			assert.False(t, math.IsNaN(float64(result)))
			assert.GreaterOrEqual(t, result, float32(0))
			assert.LessOrEqual(t, result, float32(1))
		})
	}
}

func TestRect_Canon(t *testing.T) {
	r := Rect{X1: 10, Y1: 20, X2: 0, Y2: 5}.Canon()
	assert.Equal(t, Rect{X1: 0, Y1: 5, X2: 10, Y2: 20}, r)
	assert.Equal(t, float32(150), r.Area())
}

func fromRectangle(r image.Rectangle) Rect {
	return Rect{X1: float32(r.Min.X), Y1: float32(r.Min.Y), X2: float32(r.Max.X), Y2: float32(r.Max.Y)}
}
