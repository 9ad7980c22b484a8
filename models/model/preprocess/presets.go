package preprocess

import "image/color"

// LetterboxGray is the padding color YOLO-family models are trained with.
var LetterboxGray = color.RGBA{R: 114, G: 114, B: 114, A: 255}

// GetYOLOv5Config returns the configuration for YOLOv5 style detectors: letterboxed, RGB, CHW, [0, 1].
func GetYOLOv5Config(width, height int) *ModelConfig {
	return &ModelConfig{
		Name:              "yolov5",
		InputWidth:        width,
		InputHeight:       height,
		NormalizationType: NormalizeZeroToOne,
		ChannelOrder:      ChannelOrderCHW,
		ColorMode:         ColorModeRGB,
		KeepAspectRatio:   true,
		LetterboxColor:    LetterboxGray,
	}
}

// GetUNetConfig returns the configuration for UNet style segmenters. Preprocessing matches the
// detector so both tasks share one letterbox geometry.
func GetUNetConfig(width, height int) *ModelConfig {
	cfg := GetYOLOv5Config(width, height)
	cfg.Name = "unet"
	return cfg
}

// GetImageNetConfig returns a standardized configuration with ImageNet statistics, for backbones that
// expect mean/std inputs.
func GetImageNetConfig(name string, width, height int) *ModelConfig {
	return &ModelConfig{
		Name:              name,
		InputWidth:        width,
		InputHeight:       height,
		NormalizationType: NormalizeStandardize,
		MeanValues:        []float32{123.675, 116.28, 103.53},
		StdValues:         []float32{58.395, 57.12, 57.375},
		ChannelOrder:      ChannelOrderCHW,
		ColorMode:         ColorModeRGB,
		KeepAspectRatio:   true,
		LetterboxColor:    color.RGBA{A: 255},
	}
}
