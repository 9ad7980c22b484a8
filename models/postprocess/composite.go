package postprocess

import (
	"github.com/chewxy/math32"
	"github.com/nvr-ai/go-vision/errdefs"
	"github.com/nvr-ai/go-vision/images"
)

const (
	minOverlayOpacity = 0.6
	maxOverlayOpacity = 0.8
	opacityPerProb    = 0.2
)

// Composite alpha-blends the class colors of seg onto frame in place.
//
// Per pixel the overlay opacity is min(0.6 + prob*0.2, 0.8) and every channel becomes
// (1-opacity)*original + opacity*color, truncated into [0, 255]. seg must already be at frame
// resolution (see SegmentationMap.Warp).
//
// Returns:
//   - error: ErrInvalidInput for an invalid frame or mismatched map dimensions.
func Composite(frame *images.Frame, seg *SegmentationMap, palette images.Palette) error {
	if err := frame.Validate(); err != nil {
		return err
	}
	if seg == nil || seg.Width != frame.Width || seg.Height != frame.Height ||
		len(seg.Class) != frame.Width*frame.Height || len(seg.Prob) != len(seg.Class) {
		return errdefs.InvalidInput("segmentation map does not match frame %dx%d", frame.Width, frame.Height)
	}

	images.Parallel(frame.Height, func(start, end int) {
		for y := start; y < end; y++ {
			for x := 0; x < frame.Width; x++ {
				i := y*frame.Width + x
				fg := math32.Min(minOverlayOpacity+seg.Prob[i]*opacityPerProb, maxOverlayOpacity)
				bg := 1 - fg

				c := palette.Color(int(seg.Class[i]))
				r, g, b := frame.RGB(x, y)
				frame.SetRGB(x, y,
					blend(r, c.R, fg, bg),
					blend(g, c.G, fg, bg),
					blend(b, c.B, fg, bg),
				)
			}
		}
	})

	return nil
}

// Render warps a network-resolution map onto the frame with sample (source -> network transform) and
// composites it.
func Render(frame *images.Frame, seg *SegmentationMap, sample images.AffineTransform, palette images.Palette) error {
	if err := frame.Validate(); err != nil {
		return err
	}
	if seg == nil {
		return errdefs.InvalidInput("segmentation map is nil")
	}
	return Composite(frame, seg.Warp(sample, frame.Width, frame.Height), palette)
}

func blend(orig, overlay uint8, fg, bg float32) uint8 {
	return uint8(images.Clamp(bg*float32(orig)+fg*float32(overlay), 0, 255))
}
