// Package model - Model configuration and the contracts implemented by model families.
package model

import (
	"github.com/nvr-ai/go-vision/errdefs"
	"github.com/nvr-ai/go-vision/images"
	"github.com/nvr-ai/go-vision/models/model/preprocess"
	"github.com/nvr-ai/go-vision/models/postprocess"
	"github.com/nvr-ai/go-vision/models/tensorview"
)

// Name is the unique identifier of a model family.
type Name string

const (
	// ModelNameYOLOv5 is an anchor-decoded YOLOv5 detector with [N][5+C] output rows.
	ModelNameYOLOv5 Name = "yolov5"
	// ModelNameUNet is a UNet semantic segmenter with [H][W][C] output.
	ModelNameUNet Name = "unet"
)

// Task is what a model produces.
type Task string

const (
	// TaskDetect produces bounding boxes.
	TaskDetect Task = "detect"
	// TaskSegment produces a per-pixel class map.
	TaskSegment Task = "segment"
)

// Config is everything a pipeline needs to know about a model. All values are injected; nothing here
// is a process-wide constant.
type Config struct {
	// Name selects the model family.
	Name Name `json:"name" yaml:"name" mapstructure:"name"`
	// Path is the model file handed to the engine.
	Path string `json:"path" yaml:"path" mapstructure:"path"`
	// InputWidth is the network input width.
	InputWidth int `json:"input_width" yaml:"input_width" mapstructure:"input_width"`
	// InputHeight is the network input height.
	InputHeight int `json:"input_height" yaml:"input_height" mapstructure:"input_height"`
	// NumClasses is the length of the class axis of the output.
	NumClasses int `json:"num_classes" yaml:"num_classes" mapstructure:"num_classes"`
	// ConfidenceThreshold filters detections. Detectors treat zero as unset and use
	// postprocess.DefaultConfidenceThreshold.
	ConfidenceThreshold float32 `json:"confidence_threshold" yaml:"confidence_threshold" mapstructure:"confidence_threshold"`
	// NMS configures suppression of overlapping detections. Detectors replace the zero value with
	// postprocess.DefaultNMSConfig.
	NMS postprocess.NMSConfig `json:"nms" yaml:"nms" mapstructure:"nms"`
	// KeepAspectRatio selects letterbox (true) or stretch preprocessing.
	KeepAspectRatio bool `json:"keep_aspect_ratio" yaml:"keep_aspect_ratio" mapstructure:"keep_aspect_ratio"`
	// Labels names the classes; empty uses a built-in set for the family.
	Labels []string `json:"labels" yaml:"labels" mapstructure:"labels"`
	// LabelsFile is a YAML label file, used when Labels is empty.
	LabelsFile string `json:"labels_file" yaml:"labels_file" mapstructure:"labels_file"`
	// Inputs are the engine input tensor names.
	Inputs []string `json:"inputs" yaml:"inputs" mapstructure:"inputs"`
	// Outputs are the engine output tensor names.
	Outputs []string `json:"outputs" yaml:"outputs" mapstructure:"outputs"`
}

// Validate reports ErrConfig for thresholds outside [0, 1], a zero class count or non-positive input
// dimensions.
func (c *Config) Validate() error {
	if c.InputWidth <= 0 || c.InputHeight <= 0 {
		return errdefs.Config("model %q input %dx%d must be positive", c.Name, c.InputWidth, c.InputHeight)
	}
	if c.NumClasses <= 0 {
		return errdefs.Config("model %q class count %d must be positive", c.Name, c.NumClasses)
	}
	if c.ConfidenceThreshold < 0 || c.ConfidenceThreshold > 1 {
		return errdefs.Config("model %q confidence threshold %v outside [0, 1]", c.Name, c.ConfidenceThreshold)
	}
	return c.NMS.Validate()
}

// Model is implemented by every model family.
type Model interface {
	// Options returns the model configuration.
	Options() Config
	// Task returns what the model produces.
	Task() Task
	// PreprocessConfig returns the input preparation the model was trained with.
	PreprocessConfig() *preprocess.ModelConfig
}

// Detector is a Model producing bounding boxes.
type Detector interface {
	Model
	// PostProcess decodes a raw output into suppressed boxes in source coordinates.
	PostProcess(output tensorview.View, inverse images.AffineTransform) ([]postprocess.BoundingBox, error)
}

// Segmenter is a Model producing a per-pixel class map.
type Segmenter interface {
	Model
	// PostProcess decodes a raw output into a map at network resolution.
	PostProcess(output tensorview.View) (*postprocess.SegmentationMap, error)
	// Render blends a network-resolution map onto frame in place. forward is the source -> network
	// transform used to preprocess frame.
	Render(frame *images.Frame, seg *postprocess.SegmentationMap, forward images.AffineTransform, palette images.Palette) error
}
