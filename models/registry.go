package models

import (
	"github.com/nvr-ai/go-vision/errdefs"
	"github.com/nvr-ai/go-vision/models/model"
	"github.com/nvr-ai/go-vision/models/unet"
	"github.com/nvr-ai/go-vision/models/yolov5"
)

// NewModel creates a model instance based on the configured model name.
//
// This factory is the single entry point for model creation, so adding a family means adding a case
// here.
//
// Arguments:
//   - cfg: Configuration parameters specifying the model type, input geometry and thresholds.
//
// Returns:
//   - model.Model: A model implementing model.Detector or model.Segmenter.
//   - error: ErrConfig if the name is unsupported or the configuration is invalid.
//
// Example:
//
// ```go
//
//	m, err := models.NewModel(model.Config{
//	    Name:                model.ModelNameYOLOv5,
//	    Path:                "/models/yolov5s.onnx",
//	    InputWidth:          640,
//	    InputHeight:         640,
//	    NumClasses:          80,
//	    ConfidenceThreshold: 0.25,
//	    NMS:                 *postprocess.DefaultNMSConfig(),
//	})
//
// ```
func NewModel(cfg model.Config) (model.Model, error) {
	switch cfg.Name {
	case model.ModelNameYOLOv5:
		return yolov5.NewModel(cfg)
	case model.ModelNameUNet:
		return unet.NewModel(cfg)
	default:
		return nil, errdefs.Config("unsupported model name: %q", cfg.Name)
	}
}

// ClassSetFor resolves the label table of a model: inline labels first, then the labels file, then
// the built-in set of the model family.
func ClassSetFor(cfg model.Config) (*OutputClassSet, error) {
	switch {
	case len(cfg.Labels) > 0:
		return NewOutputClassSet("", cfg.Labels), nil
	case cfg.LabelsFile != "":
		return LoadClassSet(cfg.LabelsFile)
	case cfg.Name == model.ModelNameUNet:
		return BuiltinClassSet(ModelFamilyVOC)
	default:
		return BuiltinClassSet(ModelFamilyYOLO)
	}
}
