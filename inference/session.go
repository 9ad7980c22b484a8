package inference

import (
	"context"
	"os"
	"sync"

	"github.com/nvr-ai/go-vision/errdefs"
	"github.com/nvr-ai/go-vision/inference/providers"
	"github.com/nvr-ai/go-vision/logger"
	"github.com/nvr-ai/go-vision/models/model/preprocess"
	"github.com/pkg/errors"
	ort "github.com/yalue/onnxruntime_go"
	"go.uber.org/zap"
)

// SessionConfig describes one ONNX model and how to run it.
type SessionConfig struct {
	// ModelPath is the ONNX model file.
	ModelPath string `json:"model_path" yaml:"model_path" mapstructure:"model_path"`
	// LibraryPath overrides the ONNX Runtime shared library location.
	LibraryPath string `json:"library_path" yaml:"library_path" mapstructure:"library_path"`
	// Provider selects the execution provider and session tuning.
	Provider providers.Config `json:"provider" yaml:"provider" mapstructure:"provider"`
	// InputName is the model input; empty uses the first input of the model.
	InputName string `json:"input_name" yaml:"input_name" mapstructure:"input_name"`
	// OutputName is the model output; empty uses the first output of the model.
	OutputName string `json:"output_name" yaml:"output_name" mapstructure:"output_name"`
	// InputShape overrides the input dimensions declared by the model.
	InputShape []int64 `json:"input_shape" yaml:"input_shape" mapstructure:"input_shape"`
	// OutputShape overrides the output dimensions declared by the model. Required when the model
	// declares a dynamic axis other than the batch.
	OutputShape []int64 `json:"output_shape" yaml:"output_shape" mapstructure:"output_shape"`
}

// Session represents a model session from the onnxruntime. It binds preallocated input and output
// tensors, so runs are serialized.
type Session struct {
	mu          sync.Mutex
	session     *ort.AdvancedSession
	input       *ort.Tensor[float32]
	output      *ort.Tensor[float32]
	outputShape []int
	backend     providers.ProviderBackend
	log         *zap.Logger
	closeOnce   sync.Once
	closeErr    error
}

var environmentMu sync.Mutex

// initEnvironment loads the shared library once per process.
func initEnvironment(libraryPath string) error {
	environmentMu.Lock()
	defer environmentMu.Unlock()

	if ort.IsInitialized() {
		return nil
	}

	path, err := providers.SharedLibPath(libraryPath)
	if err != nil {
		return err
	}
	if _, err := os.Stat(path); err != nil {
		return errdefs.Config("ONNX Runtime library not found at %s: %v", path, err)
	}

	// Point ONNX Runtime to the exact shared library path (overrides default search).
	ort.SetSharedLibraryPath(path)
	if err := ort.InitializeEnvironment(); err != nil {
		return errdefs.Engine(err, "error initializing ORT environment")
	}
	return nil
}

// NewSession creates a new ONNX Runtime session.
//
// Order of operations:
//  1. Library path check and environment setup, once per process.
//  2. Shape discovery: the model declares its input and output names and dimensions.
//  3. Tensor allocation: fixed-shape buffers for input/output data.
//  4. Session options: threading, optimization level and the execution provider.
//  5. Session creation: loads the model and binds the tensors.
//
// Arguments:
//   - cfg: The session configuration.
//   - log: The logger; nil uses the global logger.
//
// Returns:
//   - *Session: The session. The caller must Close it.
//   - error: ErrConfig for a bad configuration, ErrEngine when the runtime refuses the model.
func NewSession(cfg SessionConfig, log *zap.Logger) (*Session, error) {
	log = logger.Named(log, "inference")

	if cfg.ModelPath == "" {
		return nil, errdefs.Config("model path is required")
	}
	if _, err := os.Stat(cfg.ModelPath); err != nil {
		return nil, errdefs.Config("model %s: %v", cfg.ModelPath, err)
	}
	if err := cfg.Provider.Optimization.Validate(); err != nil {
		return nil, err
	}
	provider, err := providers.NewProvider(cfg.Provider)
	if err != nil {
		return nil, err
	}

	if err := initEnvironment(cfg.LibraryPath); err != nil {
		return nil, err
	}

	inputs, outputs, err := ort.GetInputOutputInfo(cfg.ModelPath)
	if err != nil {
		return nil, errdefs.Engine(err, "error reading model inputs and outputs")
	}
	inputName, inputDims, err := selectTensor("input", inputs, cfg.InputName)
	if err != nil {
		return nil, err
	}
	outputName, outputDims, err := selectTensor("output", outputs, cfg.OutputName)
	if err != nil {
		return nil, err
	}
	inputShape, err := resolveShape(inputDims, cfg.InputShape)
	if err != nil {
		return nil, errors.WithMessagef(err, "input %q", inputName)
	}
	outputShape, err := resolveShape(outputDims, cfg.OutputShape)
	if err != nil {
		return nil, errors.WithMessagef(err, "output %q", outputName)
	}

	input, err := ort.NewEmptyTensor[float32](ort.NewShape(inputShape...))
	if err != nil {
		return nil, errdefs.Engine(err, "error creating input tensor")
	}
	output, err := ort.NewEmptyTensor[float32](ort.NewShape(outputShape...))
	if err != nil {
		input.Destroy()
		return nil, errdefs.Engine(err, "error creating output tensor")
	}

	options, err := providers.SessionOptions(cfg.Provider.Optimization, provider)
	if err != nil {
		input.Destroy()
		output.Destroy()
		return nil, errdefs.Engine(err, "error creating session options")
	}
	defer options.Destroy()

	session, err := ort.NewAdvancedSession(
		cfg.ModelPath,
		[]string{inputName},
		[]string{outputName},
		[]ort.ArbitraryTensor{input},
		[]ort.ArbitraryTensor{output},
		options,
	)
	if err != nil {
		input.Destroy()
		output.Destroy()
		return nil, errdefs.Engine(err, "error creating ORT session")
	}

	log.Info("onnx session ready",
		zap.String("model", cfg.ModelPath),
		zap.String("provider", string(provider.Backend())),
		zap.String("input", inputName),
		zap.Int64s("input_shape", inputShape),
		zap.String("output", outputName),
		zap.Int64s("output_shape", outputShape),
	)

	shape := make([]int, len(outputShape))
	for i, d := range outputShape {
		shape[i] = int(d)
	}

	return &Session{
		session:     session,
		input:       input,
		output:      output,
		outputShape: shape,
		backend:     provider.Backend(),
		log:         log,
	}, nil
}

// Run copies input into the bound input tensor, runs the model and returns a copy of the output.
func (s *Session) Run(ctx context.Context, input *preprocess.Tensor) (*Output, error) {
	if err := ctx.Err(); err != nil {
		return nil, errdefs.Engine(err, "run")
	}
	if input == nil {
		return nil, errdefs.InvalidInput("input tensor is nil")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.session == nil {
		return nil, errdefs.Engine(errors.New("session is closed"), "run")
	}

	dst := s.input.GetData()
	if len(input.Data) != len(dst) {
		return nil, errdefs.InvalidInput("input tensor holds %d floats, model expects %d", len(input.Data), len(dst))
	}
	copy(dst, input.Data)

	if err := s.session.Run(); err != nil {
		return nil, errdefs.Engine(err, "failed to run inference")
	}

	data := make([]float32, len(s.output.GetData()))
	copy(data, s.output.GetData())

	return &Output{
		Data:  data,
		Shape: append([]int(nil), s.outputShape...),
	}, nil
}

// Backend returns the execution provider the session runs on.
func (s *Session) Backend() providers.ProviderBackend {
	return s.backend
}

// Close releases the resources associated with the Session. It is safe to call more than once.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		defer s.mu.Unlock()

		if s.session != nil {
			if err := s.session.Destroy(); err != nil {
				s.closeErr = errdefs.Engine(err, "error destroying ORT session")
			}
			s.session = nil
		}
		if s.input != nil {
			s.input.Destroy()
			s.input = nil
		}
		if s.output != nil {
			s.output.Destroy()
			s.output = nil
		}
	})
	return s.closeErr
}

// selectTensor picks the named tensor, or the first one when name is empty.
func selectTensor(kind string, infos []ort.InputOutputInfo, name string) (string, []int64, error) {
	if len(infos) == 0 {
		return "", nil, errdefs.Config("model declares no %s", kind)
	}
	if name == "" {
		return infos[0].Name, infos[0].Dimensions, nil
	}
	for _, info := range infos {
		if info.Name == name {
			return info.Name, info.Dimensions, nil
		}
	}
	return "", nil, errdefs.Config("model has no %s named %q", kind, name)
}

// resolveShape returns override when set, otherwise declared with a dynamic batch fixed to 1. Any
// other dynamic axis is a configuration error.
func resolveShape(declared, override []int64) ([]int64, error) {
	shape := declared
	if len(override) > 0 {
		shape = override
	}
	if len(shape) == 0 {
		return nil, errdefs.Config("shape is empty")
	}

	resolved := make([]int64, len(shape))
	for i, d := range shape {
		switch {
		case d > 0:
			resolved[i] = d
		case i == 0:
			resolved[i] = 1
		default:
			return nil, errdefs.Config("axis %d of shape %v is dynamic; set the shape explicitly", i, shape)
		}
	}
	return resolved, nil
}
