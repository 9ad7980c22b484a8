package providers

import (
	"runtime"

	"github.com/nvr-ai/go-vision/errdefs"
	"github.com/pkg/errors"
	ort "github.com/yalue/onnxruntime_go"
)

// OptimizationConfig contains ONNX Runtime session tuning.
type OptimizationConfig struct {
	// GraphOptimization is one of disable, basic, extended or all. Empty means extended.
	GraphOptimization string `json:"graph_optimization" yaml:"graph_optimization" mapstructure:"graph_optimization"`
	// ExecutionMode is sequential or parallel. Empty means sequential.
	ExecutionMode string `json:"execution_mode" yaml:"execution_mode" mapstructure:"execution_mode"`
	// IntraOpNumThreads sets threads for parallelizing ops. Zero uses the runtime default.
	IntraOpNumThreads int `json:"intra_op_num_threads" yaml:"intra_op_num_threads" mapstructure:"intra_op_num_threads"`
	// InterOpNumThreads sets threads for parallelizing independent ops. Zero uses the runtime default.
	InterOpNumThreads int `json:"inter_op_num_threads" yaml:"inter_op_num_threads" mapstructure:"inter_op_num_threads"`
}

// DefaultOptimizationConfig returns extended graph optimization with half the CPUs for intra-op work.
func DefaultOptimizationConfig() OptimizationConfig {
	return OptimizationConfig{
		GraphOptimization: "extended",
		ExecutionMode:     "sequential",
		IntraOpNumThreads: max(1, runtime.NumCPU()/2),
		InterOpNumThreads: 1,
	}
}

// GraphOptimizationLevel maps the configured name to the runtime level.
func (c OptimizationConfig) GraphOptimizationLevel() (ort.GraphOptimizationLevel, error) {
	switch c.GraphOptimization {
	case "disable":
		return ort.GraphOptimizationLevelDisableAll, nil
	case "basic":
		return ort.GraphOptimizationLevelEnableBasic, nil
	case "", "extended":
		return ort.GraphOptimizationLevelEnableExtended, nil
	case "all":
		return ort.GraphOptimizationLevelEnableAll, nil
	default:
		return 0, errdefs.Config("unknown graph optimization level %q", c.GraphOptimization)
	}
}

// Mode maps the configured execution mode to the runtime value.
func (c OptimizationConfig) Mode() (ort.ExecutionMode, error) {
	switch c.ExecutionMode {
	case "", "sequential":
		return ort.ExecutionModeSequential, nil
	case "parallel":
		return ort.ExecutionModeParallel, nil
	default:
		return 0, errdefs.Config("unknown execution mode %q", c.ExecutionMode)
	}
}

// Validate reports ErrConfig for unknown names or negative thread counts.
func (c OptimizationConfig) Validate() error {
	if _, err := c.GraphOptimizationLevel(); err != nil {
		return err
	}
	if _, err := c.Mode(); err != nil {
		return err
	}
	if c.IntraOpNumThreads < 0 || c.InterOpNumThreads < 0 {
		return errdefs.Config("thread counts must not be negative")
	}
	return nil
}

// SessionOptions creates session options with the optimization settings applied and the provider
// appended. The caller owns the result and must Destroy it.
//
// Arguments:
//   - config: Optimization configuration to apply.
//   - provider: The execution provider to register.
//
// Returns:
//   - *ort.SessionOptions: Configured session options.
//   - error: Configuration error if any.
func SessionOptions(config OptimizationConfig, provider ExecutionProvider) (*ort.SessionOptions, error) {
	level, err := config.GraphOptimizationLevel()
	if err != nil {
		return nil, err
	}
	mode, err := config.Mode()
	if err != nil {
		return nil, err
	}

	options, err := ort.NewSessionOptions()
	if err != nil {
		return nil, errors.Wrap(err, "failed to create session options")
	}

	apply := func() error {
		if err := options.SetGraphOptimizationLevel(level); err != nil {
			return err
		}
		if err := options.SetExecutionMode(mode); err != nil {
			return err
		}
		if err := options.SetIntraOpNumThreads(config.IntraOpNumThreads); err != nil {
			return err
		}
		if err := options.SetInterOpNumThreads(config.InterOpNumThreads); err != nil {
			return err
		}
		return provider.Append(options)
	}
	if err := apply(); err != nil {
		options.Destroy()
		return nil, errors.Wrapf(err, "failed to configure %s session options", provider.Backend())
	}

	return options, nil
}
