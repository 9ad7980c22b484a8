// Package inference - Inference engine interface and implementations.
package inference

import (
	"context"

	"github.com/nvr-ai/go-vision/errdefs"
	"github.com/nvr-ai/go-vision/models/model/preprocess"
	"github.com/nvr-ai/go-vision/models/tensorview"
)

// Engine runs a network on one input tensor. Implementations must be safe for concurrent use.
type Engine interface {
	// Run executes the network. Failures are of kind errdefs.ErrEngine.
	Run(ctx context.Context, input *preprocess.Tensor) (*Output, error)
	// Close releases the engine.
	Close() error
}

// Output is the first output tensor of a run, flat and row-major.
type Output struct {
	Data  []float32
	Shape []int
}

// View returns a shaped view over the output data.
//
// Returns:
//   - tensorview.View: The view.
//   - error: ErrEngine when the shape does not describe the data.
func (o *Output) View() (tensorview.View, error) {
	if o == nil {
		return tensorview.View{}, errdefs.Engine(errdefs.ErrInvalidInput, "engine returned no output")
	}
	v, err := tensorview.New(o.Data, o.Shape...)
	if err != nil {
		return tensorview.View{}, errdefs.Engine(err, "engine output")
	}
	return v, nil
}

// EngineFunc adapts a function to the Engine interface. Close is a no-op.
type EngineFunc func(ctx context.Context, input *preprocess.Tensor) (*Output, error)

// Run calls f and tags any failure as an engine error.
func (f EngineFunc) Run(ctx context.Context, input *preprocess.Tensor) (*Output, error) {
	out, err := f(ctx, input)
	if err != nil {
		return nil, errdefs.Engine(err, "run")
	}
	return out, nil
}

// Close implements Engine.
func (f EngineFunc) Close() error {
	return nil
}
