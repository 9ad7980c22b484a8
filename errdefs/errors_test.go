package errdefs

import (
	"fmt"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestErrorKinds(t *testing.T) {
	tests := []struct {
		name string
		err  error
		kind error
	}{
		{name: "invalid input", err: InvalidInput("width %d", 0), kind: ErrInvalidInput},
		{name: "config", err: Config("threshold %.2f", 1.5), kind: ErrConfig},
		{name: "engine", err: Engine(fmt.Errorf("cuda oom"), "run"), kind: ErrEngine},
		{name: "engine rewrapped", err: Engine(Engine(fmt.Errorf("x"), "inner"), "outer"), kind: ErrEngine},
		{name: "wrapped again", err: errors.Wrap(InvalidInput("empty"), "frame 3"), kind: ErrInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, Is(tt.err, tt.kind))
			for _, other := range []error{ErrInvalidInput, ErrEngine, ErrConfig} {
				if other != tt.kind {
					assert.False(t, Is(tt.err, other))
				}
			}
		})
	}
}

func TestEngineKeepsCause(t *testing.T) {
	err := Engine(fmt.Errorf("device lost"), "session run")
	assert.Contains(t, err.Error(), "device lost")
	assert.Contains(t, err.Error(), "session run")
	assert.Nil(t, Engine(nil, "noop"))
}
