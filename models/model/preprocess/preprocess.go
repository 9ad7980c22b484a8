// Package preprocess - Letterbox resampling and tensor conversion for network inputs.
package preprocess

import (
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/disintegration/imaging"
	"github.com/nfnt/resize"
	"github.com/nvr-ai/go-vision/errdefs"
	"github.com/nvr-ai/go-vision/images"
	"github.com/nvr-ai/go-vision/logger"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// ModelConfig defines preprocessing configuration for a specific model.
type ModelConfig struct {
	// Name of the model for debugging purposes.
	Name string
	// InputWidth is the expected width of the model input.
	InputWidth int
	// InputHeight is the expected height of the model input.
	InputHeight int
	// NormalizationType defines how to normalize pixel values.
	NormalizationType NormalizationType
	// MeanValues for standardization (if NormalizationType is Standardize), in tensor channel order.
	MeanValues []float32
	// StdValues for standardization (if NormalizationType is Standardize), in tensor channel order.
	StdValues []float32
	// ChannelOrder defines the tensor layout (CHW or HWC).
	ChannelOrder ChannelOrder
	// ColorMode defines the channel order written into the tensor (RGB or BGR).
	ColorMode ColorMode
	// KeepAspectRatio if true, maintains aspect ratio with letterboxing.
	KeepAspectRatio bool
	// LetterboxColor is the color used for letterbox padding.
	LetterboxColor color.RGBA
}

// Validate reports ErrConfig for non-positive input dimensions or inconsistent standardization values.
func (c *ModelConfig) Validate() error {
	if c.InputWidth <= 0 || c.InputHeight <= 0 {
		return errdefs.Config("model %q input %dx%d must be positive", c.Name, c.InputWidth, c.InputHeight)
	}
	if c.NormalizationType == NormalizeStandardize {
		if len(c.MeanValues) != 3 || len(c.StdValues) != 3 {
			return errdefs.Config("model %q standardization needs 3 mean and 3 std values", c.Name)
		}
		for _, s := range c.StdValues {
			if s == 0 {
				return errdefs.Config("model %q std values must be non-zero", c.Name)
			}
		}
	}
	return nil
}

// NormalizationType defines how pixel values are normalized.
type NormalizationType int

const (
	// NormalizeNone keeps pixel values as 0-255.
	NormalizeNone NormalizationType = iota
	// NormalizeZeroToOne scales pixel values to [0, 1].
	NormalizeZeroToOne
	// NormalizeMinusOneToOne scales pixel values to [-1, 1].
	NormalizeMinusOneToOne
	// NormalizeStandardize applies mean and std normalization.
	NormalizeStandardize
)

// ChannelOrder defines the ordering of tensor axes.
type ChannelOrder int

const (
	// ChannelOrderCHW is Channel-Height-Width ordering (one plane per channel).
	ChannelOrderCHW ChannelOrder = iota
	// ChannelOrderHWC is Height-Width-Channel ordering.
	ChannelOrderHWC
)

// ColorMode defines the channel order written into the tensor.
type ColorMode int

const (
	// ColorModeRGB writes red first.
	ColorModeRGB ColorMode = iota
	// ColorModeBGR writes blue first (common for OpenCV-trained models).
	ColorModeBGR
)

// Tensor is a contiguous float32 network input with batch size 1.
type Tensor struct {
	// Data is the flat tensor buffer.
	Data []float32
	// Shape is [1, 3, H, W] for CHW or [1, H, W, 3] for HWC.
	Shape []int
}

// Result contains the preprocessed tensor and the geometry needed to map outputs back.
type Result struct {
	// Tensor is the network input.
	Tensor *Tensor
	// Canvas is the resampled image the tensor was built from.
	Canvas *images.Frame
	// Forward maps source image coordinates to network coordinates.
	Forward images.AffineTransform
	// Inverse maps network coordinates to source image coordinates.
	Inverse images.AffineTransform
	// OriginalWidth is the source image width.
	OriginalWidth int
	// OriginalHeight is the source image height.
	OriginalHeight int
}

// Preprocessor handles image preprocessing for models. It is safe for concurrent use.
type Preprocessor struct {
	config     *ModelConfig
	bufferPool *sync.Pool
	debugDir   string
	dumpSeq    atomic.Uint64
	log        *zap.Logger
}

// NewPreprocessor creates a new preprocessor with the given configuration.
//
// Arguments:
// - config: The model-specific preprocessing configuration.
// - log: The logger; nil uses the global logger.
//
// Returns:
// - A configured Preprocessor instance.
// - ErrConfig when the configuration is invalid.
//
// @example
//
//	p, err := preprocess.NewPreprocessor(preprocess.GetYOLOv5Config(640, 640), nil)
//	result, err := p.Preprocess(frame)
func NewPreprocessor(config *ModelConfig, log *zap.Logger) (*Preprocessor, error) {
	if config == nil {
		return nil, errdefs.Config("preprocessor config is nil")
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	size := 3 * config.InputWidth * config.InputHeight
	return &Preprocessor{
		config: config,
		bufferPool: &sync.Pool{
			New: func() interface{} {
				return make([]float32, size)
			},
		},
		log: logger.Named(log, "preprocess"),
	}, nil
}

// Config returns the preprocessor configuration.
func (p *Preprocessor) Config() *ModelConfig {
	return p.config
}

// SetDebugMode enables dumping every resampled canvas as a PNG into dir. An empty dir disables it.
// Dumping never affects the tensor, and a failed dump is only logged.
func (p *Preprocessor) SetDebugMode(dir string) {
	p.debugDir = dir
}

// Preprocess resamples frame into the network input and converts it to a tensor.
//
// With KeepAspectRatio the frame is letterboxed: uniformly scaled with bilinear interpolation and
// centred, uncovered pixels filled with LetterboxColor. Without it the frame is stretched to the input
// size. The canvas is then converted to ColorMode, laid out per ChannelOrder and normalized.
//
// Arguments:
//   - frame: The source image.
//
// Returns:
//   - *Result: The tensor and transforms.
//   - error: ErrInvalidInput for an empty or malformed frame.
func (p *Preprocessor) Preprocess(frame *images.Frame) (*Result, error) {
	if err := frame.Validate(); err != nil {
		return nil, errors.Wrap(err, "input validation failed")
	}

	w, h := p.config.InputWidth, p.config.InputHeight

	var (
		canvas           *images.Frame
		forward, inverse images.AffineTransform
		err              error
	)
	if p.config.KeepAspectRatio {
		forward, inverse, err = images.NewLetterboxTransform(frame.Width, frame.Height, w, h)
		if err != nil {
			return nil, err
		}
		border := p.config.LetterboxColor
		canvas = images.WarpBilinear(frame, inverse, w, h, [3]uint8{border.R, border.G, border.B})
	} else {
		forward, inverse, err = images.NewStretchTransform(frame.Width, frame.Height, w, h)
		if err != nil {
			return nil, err
		}
		canvas = images.FrameFromImage(resize.Resize(uint(w), uint(h), frame, resize.Bilinear), frame.Order)
	}

	if p.debugDir != "" {
		p.dump(canvas)
	}

	data := p.bufferPool.Get().([]float32)
	p.fillTensor(canvas, data)

	p.log.Debug("preprocessed frame",
		zap.String("model", p.config.Name),
		zap.Int("src_width", frame.Width),
		zap.Int("src_height", frame.Height),
		zap.Float32("scale", forward[0]),
	)

	return &Result{
		Tensor:         &Tensor{Data: data, Shape: p.shape()},
		Canvas:         canvas,
		Forward:        forward,
		Inverse:        inverse,
		OriginalWidth:  frame.Width,
		OriginalHeight: frame.Height,
	}, nil
}

// Release returns the tensor buffer of r to the pool. r must not be used afterwards.
func (p *Preprocessor) Release(r *Result) {
	if r == nil || r.Tensor == nil || len(r.Tensor.Data) != 3*p.config.InputWidth*p.config.InputHeight {
		return
	}
	p.bufferPool.Put(r.Tensor.Data)
	r.Tensor.Data = nil
}

func (p *Preprocessor) shape() []int {
	if p.config.ChannelOrder == ChannelOrderHWC {
		return []int{1, p.config.InputHeight, p.config.InputWidth, 3}
	}
	return []int{1, 3, p.config.InputHeight, p.config.InputWidth}
}

func (p *Preprocessor) dump(canvas *images.Frame) {
	if err := os.MkdirAll(p.debugDir, 0o755); err != nil {
		p.log.Warn("debug dump failed", zap.Error(err))
		return
	}
	name := fmt.Sprintf("%s-%06d.png", p.config.Name, p.dumpSeq.Add(1))
	path := filepath.Join(p.debugDir, name)
	if err := imaging.Save(canvas, path); err != nil {
		p.log.Warn("debug dump failed", zap.String("path", path), zap.Error(err))
		return
	}
	p.log.Debug("dumped canvas", zap.String("path", path))
}
