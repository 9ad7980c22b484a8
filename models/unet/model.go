// Package unet - UNet semantic segmenter.
package unet

import (
	"github.com/nvr-ai/go-vision/errdefs"
	"github.com/nvr-ai/go-vision/images"
	"github.com/nvr-ai/go-vision/models/model"
	"github.com/nvr-ai/go-vision/models/model/preprocess"
	"github.com/nvr-ai/go-vision/models/postprocess"
	"github.com/nvr-ai/go-vision/models/tensorview"
)

// UNet is the instance of the UNet model.
type UNet struct {
	options model.Config
}

// NewModel creates a new UNet model. Missing input/output names default to "images"/"output".
func NewModel(cfg model.Config) (*UNet, error) {
	if cfg.Name == "" {
		cfg.Name = model.ModelNameUNet
	}
	if cfg.Name != model.ModelNameUNet {
		return nil, errdefs.Config("unet.NewModel called with model name %q", cfg.Name)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if len(cfg.Inputs) == 0 {
		cfg.Inputs = []string{"images"}
	}
	if len(cfg.Outputs) == 0 {
		cfg.Outputs = []string{"output"}
	}

	return &UNet{options: cfg}, nil
}

// Options returns the options for the UNet model.
func (m *UNet) Options() model.Config {
	return m.options
}

// Task implements model.Model.
func (m *UNet) Task() model.Task {
	return model.TaskSegment
}

// PreprocessConfig implements model.Model.
func (m *UNet) PreprocessConfig() *preprocess.ModelConfig {
	cfg := preprocess.GetUNetConfig(m.options.InputWidth, m.options.InputHeight)
	cfg.KeepAspectRatio = m.options.KeepAspectRatio
	return cfg
}

// PostProcess decodes the [1][H][W][C] output into a per-pixel class map.
func (m *UNet) PostProcess(output tensorview.View) (*postprocess.SegmentationMap, error) {
	return postprocess.DecodeSegmentation(output, m.options.NumClasses)
}

// Render warps seg onto frame and blends the class colors in place. A map smaller than the network
// input (a strided decoder head) is addressed by rescaling forward.
func (m *UNet) Render(frame *images.Frame, seg *postprocess.SegmentationMap, forward images.AffineTransform, palette images.Palette) error {
	if seg == nil {
		return errdefs.InvalidInput("segmentation map is nil")
	}
	if seg.Width != m.options.InputWidth || seg.Height != m.options.InputHeight {
		forward = forward.Rescale(
			float32(seg.Width)/float32(m.options.InputWidth),
			float32(seg.Height)/float32(m.options.InputHeight),
		)
	}
	return postprocess.Render(frame, seg, forward, palette)
}
