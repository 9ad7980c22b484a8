// Package yolov5 - YOLOv5 detector.
package yolov5

import (
	"github.com/nvr-ai/go-vision/errdefs"
	"github.com/nvr-ai/go-vision/models/model"
	"github.com/nvr-ai/go-vision/models/model/preprocess"
	"github.com/nvr-ai/go-vision/models/postprocess"
)

// YOLOv5 is the instance of the YOLOv5 model.
type YOLOv5 struct {
	options model.Config
}

// NewModel creates a new model.
//
// Arguments:
//   - cfg: The model configuration. Missing input/output names default to "images"/"output", a zero
//     confidence threshold to postprocess.DefaultConfidenceThreshold and a zero NMS config to
//     postprocess.DefaultNMSConfig.
//
// Returns:
//   - The model.
//   - ErrConfig when the configuration is invalid.
func NewModel(cfg model.Config) (*YOLOv5, error) {
	if cfg.Name == "" {
		cfg.Name = model.ModelNameYOLOv5
	}
	if cfg.Name != model.ModelNameYOLOv5 {
		return nil, errdefs.Config("yolov5.NewModel called with model name %q", cfg.Name)
	}
	if cfg.ConfidenceThreshold == 0 {
		cfg.ConfidenceThreshold = postprocess.DefaultConfidenceThreshold
	}
	if cfg.NMS == (postprocess.NMSConfig{}) {
		cfg.NMS = *postprocess.DefaultNMSConfig()
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

	return &YOLOv5{options: cfg}, nil
}

// Options returns the options for the YOLOv5 model.
func (m *YOLOv5) Options() model.Config {
	return m.options
}

// Task implements model.Model.
func (m *YOLOv5) Task() model.Task {
	return model.TaskDetect
}

// PreprocessConfig implements model.Model.
func (m *YOLOv5) PreprocessConfig() *preprocess.ModelConfig {
	cfg := preprocess.GetYOLOv5Config(m.options.InputWidth, m.options.InputHeight)
	cfg.KeepAspectRatio = m.options.KeepAspectRatio
	return cfg
}
