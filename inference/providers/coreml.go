package providers

import (
	"github.com/pkg/errors"
	ort "github.com/yalue/onnxruntime_go"
)

const (
	// CoreMLProviderBackend uses Apple CoreML for macOS/iOS acceleration.
	CoreMLProviderBackend ProviderBackend = "coreml"
)

// CoreML execution provider flags.
// See: https://onnxruntime.ai/docs/execution-providers/CoreML-ExecutionProvider.html
const (
	coreMLFlagUseCPUOnly              uint32 = 0x001
	coreMLFlagEnableOnSubgraph        uint32 = 0x002
	coreMLFlagOnlyEnableDeviceWithANE uint32 = 0x004
	coreMLFlagOnlyStaticInputShapes   uint32 = 0x008
	coreMLFlagCreateMLProgram         uint32 = 0x010
)

// CoreMLOptions contains arguments for the CoreML provider.
type CoreMLOptions struct {
	// Limit CoreML to running on CPU only.
	CPUOnly bool `json:"cpu_only" yaml:"cpu_only" mapstructure:"cpu_only"`
	// Enable CoreML EP to run on a subgraph in the body of a control flow operator.
	EnableOnSubgraph bool `json:"enable_on_subgraph" yaml:"enable_on_subgraph" mapstructure:"enable_on_subgraph"`
	// Only enable CoreML on devices with an Apple Neural Engine.
	OnlyANE bool `json:"only_ane" yaml:"only_ane" mapstructure:"only_ane"`
	// Only allow the CoreML EP to take nodes with inputs that have static shapes.
	RequireStaticInputShapes bool `json:"require_static_input_shapes" yaml:"require_static_input_shapes" mapstructure:"require_static_input_shapes"`
	// Create an MLProgram format model. Requires Core ML 5 or later.
	MLProgram bool `json:"ml_program" yaml:"ml_program" mapstructure:"ml_program"`
}

// Flags packs the options into the provider flag word.
func (o CoreMLOptions) Flags() uint32 {
	var flags uint32
	if o.CPUOnly {
		flags |= coreMLFlagUseCPUOnly
	}
	if o.EnableOnSubgraph {
		flags |= coreMLFlagEnableOnSubgraph
	}
	if o.OnlyANE {
		flags |= coreMLFlagOnlyEnableDeviceWithANE
	}
	if o.RequireStaticInputShapes {
		flags |= coreMLFlagOnlyStaticInputShapes
	}
	if o.MLProgram {
		flags |= coreMLFlagCreateMLProgram
	}
	return flags
}

// CoreMLProvider implements the ExecutionProvider interface.
type CoreMLProvider struct {
	options CoreMLOptions
}

// NewCoreMLProvider creates a new CoreML provider.
func NewCoreMLProvider(options CoreMLOptions) *CoreMLProvider {
	return &CoreMLProvider{options: options}
}

// Backend returns the backend of the CoreML provider.
func (p *CoreMLProvider) Backend() ProviderBackend {
	return CoreMLProviderBackend
}

// Append registers CoreML on the session options.
func (p *CoreMLProvider) Append(options *ort.SessionOptions) error {
	if err := options.AppendExecutionProviderCoreML(p.options.Flags()); err != nil {
		return errors.Wrap(err, "error enabling CoreML")
	}
	return nil
}
