package images

import (
	"github.com/chewxy/math32"
)

// BorderValue is the letterbox padding used for taps that fall outside the source.
var BorderValue = [3]uint8{114, 114, 114}

// WarpBilinear resamples src into a dstW x dstH frame.
//
// inverse maps destination pixel coordinates back into the source, as OpenCV warpAffine does with
// WARP_INVERSE_MAP. Each destination pixel blends the four surrounding source pixels; taps outside the
// source read border instead. The result keeps the channel order of src.
func WarpBilinear(src *Frame, inverse AffineTransform, dstW, dstH int, border [3]uint8) *Frame {
	dst := NewFrame(dstW, dstH, src.Order)
	stride := src.Stride()

	tap := func(x, y, c int) float32 {
		if x < 0 || y < 0 || x >= src.Width || y >= src.Height {
			return float32(border[c])
		}
		return float32(src.Pix[y*stride+x*3+c])
	}

	Parallel(dstH, func(start, end int) {
		for dy := start; dy < end; dy++ {
			row := dst.Pix[dy*dstW*3:]
			for dx := 0; dx < dstW; dx++ {
				sx, sy := inverse.Apply(float32(dx), float32(dy))
				x0f := math32.Floor(sx)
				y0f := math32.Floor(sy)
				fx := sx - x0f
				fy := sy - y0f
				x0, y0 := int(x0f), int(y0f)

				// Entirely outside: skip the four taps.
				if x0 < -1 || y0 < -1 || x0 >= src.Width || y0 >= src.Height {
					row[dx*3], row[dx*3+1], row[dx*3+2] = border[0], border[1], border[2]
					continue
				}

				w00 := (1 - fx) * (1 - fy)
				w01 := fx * (1 - fy)
				w10 := (1 - fx) * fy
				w11 := fx * fy
				for c := 0; c < 3; c++ {
					v := w00*tap(x0, y0, c) + w01*tap(x0+1, y0, c) + w10*tap(x0, y0+1, c) + w11*tap(x0+1, y0+1, c)
					row[dx*3+c] = ClampUint8(v)
				}
			}
		}
	})

	return dst
}

// WarpPlaneBilinear resamples a single float plane of size srcW x srcH. sample maps destination pixel
// coordinates into the plane; taps outside the plane read border.
func WarpPlaneBilinear(src []float32, srcW, srcH int, sample AffineTransform, dstW, dstH int, border float32) []float32 {
	dst := make([]float32, dstW*dstH)

	tap := func(x, y int) float32 {
		if x < 0 || y < 0 || x >= srcW || y >= srcH {
			return border
		}
		return src[y*srcW+x]
	}

	Parallel(dstH, func(start, end int) {
		for dy := start; dy < end; dy++ {
			for dx := 0; dx < dstW; dx++ {
				sx, sy := sample.Apply(float32(dx), float32(dy))
				x0f := math32.Floor(sx)
				y0f := math32.Floor(sy)
				fx := sx - x0f
				fy := sy - y0f
				x0, y0 := int(x0f), int(y0f)

				dst[dy*dstW+dx] = (1-fx)*(1-fy)*tap(x0, y0) +
					fx*(1-fy)*tap(x0+1, y0) +
					(1-fx)*fy*tap(x0, y0+1) +
					fx*fy*tap(x0+1, y0+1)
			}
		}
	})

	return dst
}

// WarpPlaneNearest resamples a label plane without interpolating values: every destination pixel copies
// the plane pixel nearest to its position under sample, or border when that position is outside.
func WarpPlaneNearest[T any](src []T, srcW, srcH int, sample AffineTransform, dstW, dstH int, border T) []T {
	dst := make([]T, dstW*dstH)

	Parallel(dstH, func(start, end int) {
		for dy := start; dy < end; dy++ {
			for dx := 0; dx < dstW; dx++ {
				sx, sy := sample.Apply(float32(dx), float32(dy))
				x := int(math32.Floor(sx + 0.5))
				y := int(math32.Floor(sy + 0.5))
				if x < 0 || y < 0 || x >= srcW || y >= srcH {
					dst[dy*dstW+dx] = border
					continue
				}
				dst[dy*dstW+dx] = src[y*srcW+x]
			}
		}
	})

	return dst
}
