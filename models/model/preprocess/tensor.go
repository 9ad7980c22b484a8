package preprocess

import (
	"github.com/nvr-ai/go-vision/images"
)

// fillTensor writes canvas into data using the configured color mode, layout and normalization.
// len(data) must be 3*W*H.
func (p *Preprocessor) fillTensor(canvas *images.Frame, data []float32) {
	width, height := canvas.Width, canvas.Height
	area := width * height

	// src[k] is the byte offset, within a pixel, of tensor channel k.
	src := [3]int{0, 1, 2}
	wantBGR := p.config.ColorMode == ColorModeBGR
	if (canvas.Order == images.ChannelOrderBGR) != wantBGR {
		src = [3]int{2, 1, 0}
	}

	scale, offset := p.affineNormalization()

	images.Parallel(height, func(start, end int) {
		for y := start; y < end; y++ {
			row := canvas.Pix[y*width*3:]
			for x := 0; x < width; x++ {
				for k := 0; k < 3; k++ {
					v := float32(row[x*3+src[k]])*scale[k] + offset[k]
					if p.config.ChannelOrder == ChannelOrderHWC {
						data[(y*width+x)*3+k] = v
					} else {
						data[k*area+y*width+x] = v
					}
				}
			}
		}
	})
}

// affineNormalization expresses every NormalizationType as value*scale + offset per channel.
func (p *Preprocessor) affineNormalization() (scale, offset [3]float32) {
	for k := 0; k < 3; k++ {
		switch p.config.NormalizationType {
		case NormalizeZeroToOne:
			scale[k] = 1.0 / 255.0
		case NormalizeMinusOneToOne:
			scale[k], offset[k] = 1.0/127.5, -1
		case NormalizeStandardize:
			scale[k] = 1 / p.config.StdValues[k]
			offset[k] = -p.config.MeanValues[k] / p.config.StdValues[k]
		default:
			scale[k] = 1
		}
	}
	return scale, offset
}
