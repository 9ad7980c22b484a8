package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		mode    string
		level   string
		wantErr bool
	}{
		{name: "development", mode: "debug"},
		{name: "release", mode: "release", level: "warn"},
		{name: "bad level", mode: "release", level: "loud", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, err := New(tt.mode, tt.level)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, l)
		})
	}
}

func TestSetAndNamed(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	Set(zap.New(core))
	t.Cleanup(func() { Set(nil) })

	Named(nil, "preprocess").Info("hello")
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "preprocess", logs.All()[0].LoggerName)

	own := zap.NewNop()
	assert.Same(t, own, Named(own, "ignored"))
}
