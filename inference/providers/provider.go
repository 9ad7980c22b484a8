// Package providers - ONNX Runtime execution providers.
package providers

import (
	"github.com/nvr-ai/go-vision/errdefs"
	ort "github.com/yalue/onnxruntime_go"
)

// ProviderBackend represents different ONNX Runtime execution providers
type ProviderBackend string

// ExecutionProvider represents the contract that all execution providers must implement.
type ExecutionProvider interface {
	// Backend returns the backend name.
	Backend() ProviderBackend
	// Append registers the provider on the session options. The CPU provider is implicit and appends
	// nothing.
	Append(options *ort.SessionOptions) error
}

// Config selects an execution provider and the session optimizations applied with it.
type Config struct {
	// Backend selects the provider; empty means CPU.
	Backend ProviderBackend `json:"backend" yaml:"backend" mapstructure:"backend"`
	// CUDA is used when Backend is "cuda".
	CUDA CUDAOptions `json:"cuda" yaml:"cuda" mapstructure:"cuda"`
	// CoreML is used when Backend is "coreml".
	CoreML CoreMLOptions `json:"coreml" yaml:"coreml" mapstructure:"coreml"`
	// OpenVINO is used when Backend is "openvino".
	OpenVINO OpenVINOOptions `json:"openvino" yaml:"openvino" mapstructure:"openvino"`
	// Optimization configures threading and graph optimization.
	Optimization OptimizationConfig `json:"optimization" yaml:"optimization" mapstructure:"optimization"`
}

// NewProvider creates a new provider based on the required backend.
//
// Arguments:
//   - cfg: The provider configuration.
//
// Returns:
//   - ExecutionProvider: The new provider.
//   - error: ErrConfig if the backend is unknown.
func NewProvider(cfg Config) (ExecutionProvider, error) {
	switch cfg.Backend {
	case "", CPUProviderBackend:
		return NewCPUProvider(), nil
	case CUDAProviderBackend:
		return NewCUDAProvider(cfg.CUDA), nil
	case CoreMLProviderBackend:
		return NewCoreMLProvider(cfg.CoreML), nil
	case OpenVINOProviderBackend:
		return NewOpenVINOProvider(cfg.OpenVINO), nil
	default:
		return nil, errdefs.Config("no matching provider backend registered: %s", cfg.Backend)
	}
}
