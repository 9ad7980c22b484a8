package images

import (
	"github.com/nvr-ai/go-vision/errdefs"
)

// AffineTransform is a 2x3 row-major matrix mapping (x, y) to
// (m[0]*x + m[1]*y + m[2], m[3]*x + m[4]*y + m[5]).
type AffineTransform [6]float32

// IdentityTransform maps every point onto itself.
var IdentityTransform = AffineTransform{1, 0, 0, 0, 1, 0}

// NewLetterboxTransform computes the forward and inverse mapping between a source image and a fixed-size
// network input, preserving the aspect ratio.
//
// The image is scaled uniformly by min(dstW/srcW, dstH/srcH) and centred. The +scale-1 term in the
// translation matches pixel-centre sampling, so the padding split for odd remainders lines up with the
// bilinear warp.
//
// Arguments:
//   - srcW, srcH: The source image dimensions.
//   - dstW, dstH: The network input dimensions.
//
// Returns:
//   - forward: source -> network coordinates.
//   - inverse: network -> source coordinates.
//   - error: ErrInvalidInput if any dimension is not positive.
func NewLetterboxTransform(srcW, srcH, dstW, dstH int) (forward, inverse AffineTransform, err error) {
	if err := checkDims(srcW, srcH, dstW, dstH); err != nil {
		return forward, inverse, err
	}

	scale := min(float64(dstW)/float64(srcW), float64(dstH)/float64(srcH))
	forward = AffineTransform{
		float32(scale), 0, float32((-scale*float64(srcW) + float64(dstW) + scale - 1) * 0.5),
		0, float32(scale), float32((-scale*float64(srcH) + float64(dstH) + scale - 1) * 0.5),
	}

	inverse, err = forward.Invert()
	return forward, inverse, err
}

// NewStretchTransform is the non aspect preserving counterpart of NewLetterboxTransform: each axis is
// scaled independently so the source fills the whole network input.
func NewStretchTransform(srcW, srcH, dstW, dstH int) (forward, inverse AffineTransform, err error) {
	if err := checkDims(srcW, srcH, dstW, dstH); err != nil {
		return forward, inverse, err
	}

	sx := float64(dstW) / float64(srcW)
	sy := float64(dstH) / float64(srcH)
	forward = AffineTransform{
		float32(sx), 0, float32((sx - 1) * 0.5),
		0, float32(sy), float32((sy - 1) * 0.5),
	}

	inverse, err = forward.Invert()
	return forward, inverse, err
}

func checkDims(srcW, srcH, dstW, dstH int) error {
	if srcW <= 0 || srcH <= 0 {
		return errdefs.InvalidInput("source dimensions %dx%d must be positive", srcW, srcH)
	}
	if dstW <= 0 || dstH <= 0 {
		return errdefs.InvalidInput("target dimensions %dx%d must be positive", dstW, dstH)
	}
	return nil
}

// Invert returns the inverse affine transform. Computation runs in float64 so a forward/inverse round
// trip stays well inside a thousandth of a pixel for camera-sized frames.
//
// Returns:
//   - AffineTransform: The inverse mapping.
//   - error: ErrInvalidInput if the linear part is singular.
func (m AffineTransform) Invert() (AffineTransform, error) {
	a00, a01, a02 := float64(m[0]), float64(m[1]), float64(m[2])
	a10, a11, a12 := float64(m[3]), float64(m[4]), float64(m[5])

	det := a00*a11 - a01*a10
	if det == 0 {
		return AffineTransform{}, errdefs.InvalidInput("affine transform %v is singular", m)
	}
	det = 1 / det

	b00 := a11 * det
	b01 := -a01 * det
	b10 := -a10 * det
	b11 := a00 * det

	return AffineTransform{
		float32(b00), float32(b01), float32(-b00*a02 - b01*a12),
		float32(b10), float32(b11), float32(-b10*a02 - b11*a12),
	}, nil
}

// Apply maps a single point.
func (m AffineTransform) Apply(x, y float32) (float32, float32) {
	return m[0]*x + m[1]*y + m[2], m[3]*x + m[4]*y + m[5]
}

// ApplyRect maps both corners of r and returns the canonical rectangle spanning them.
func (m AffineTransform) ApplyRect(r Rect) Rect {
	x1, y1 := m.Apply(r.X1, r.Y1)
	x2, y2 := m.Apply(r.X2, r.Y2)
	return Rect{X1: x1, Y1: y1, X2: x2, Y2: y2}.Canon()
}

// Scale returns the horizontal and vertical scale factors of the linear part.
func (m AffineTransform) Scale() (float32, float32) {
	return m[0], m[4]
}

// Rescale composes m with a pixel-centre aligned resize of its output space by (sx, sy), for example
// to address a network output that is smaller than the network input.
func (m AffineTransform) Rescale(sx, sy float32) AffineTransform {
	return AffineTransform{
		m[0] * sx, m[1] * sx, m[2]*sx + 0.5*sx - 0.5,
		m[3] * sy, m[4] * sy, m[5]*sy + 0.5*sy - 0.5,
	}
}
