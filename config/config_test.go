package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/nvr-ai/go-vision/errdefs"
	"github.com/nvr-ai/go-vision/inference/providers"
	"github.com/nvr-ai/go-vision/models/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Port)
	assert.Equal(t, 10*time.Minute, cfg.Redis.TTL)
	assert.Empty(t, cfg.Redis.Addr)
	assert.Equal(t, providers.CPUProviderBackend, cfg.Engine.Provider.Backend)

	assert.True(t, cfg.Detection.Enabled)
	assert.Equal(t, model.ModelNameYOLOv5, cfg.Detection.Name)
	assert.Equal(t, 640, cfg.Detection.InputWidth)
	assert.Equal(t, 80, cfg.Detection.NumClasses)
	assert.InDelta(t, 0.25, cfg.Detection.ConfidenceThreshold, 1e-6)
	assert.InDelta(t, 0.5, cfg.Detection.NMS.IoUThreshold, 1e-6)
	assert.True(t, cfg.Detection.NMS.ClassAware)
	assert.False(t, cfg.Segmentation.Enabled)
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
server:
  port: ":9090"
redis:
  addr: "localhost:6379"
  ttl: 1m
engine:
  library_path: /opt/ort/libonnxruntime.so
  provider:
    backend: cuda
    cuda:
      device_id: 1
detection:
  path: /models/custom.onnx
  num_classes: 3
  labels: [forklift, pallet, person]
  confidence_threshold: 0.4
  nms:
    iou_threshold: 0.45
    class_aware: false
  output_shape: [1, 25200, 8]
segmentation:
  enabled: true
  input_width: 256
  input_height: 256
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Port)
	assert.Equal(t, time.Minute, cfg.Redis.TTL)
	assert.Equal(t, providers.CUDAProviderBackend, cfg.Engine.Provider.Backend)
	assert.Equal(t, 1, cfg.Engine.Provider.CUDA.DeviceID)
	assert.Equal(t, []string{"forklift", "pallet", "person"}, cfg.Detection.Labels)
	assert.InDelta(t, 0.45, cfg.Detection.NMS.IoUThreshold, 1e-6)
	assert.False(t, cfg.Detection.NMS.ClassAware)
	assert.True(t, cfg.Segmentation.Enabled)
	assert.Equal(t, 256, cfg.Segmentation.InputWidth)

	session := cfg.SessionConfig(cfg.Detection)
	assert.Equal(t, "/models/custom.onnx", session.ModelPath)
	assert.Equal(t, "/opt/ort/libonnxruntime.so", session.LibraryPath)
	assert.Equal(t, []int64{1, 3, 640, 640}, session.InputShape)
	assert.Equal(t, []int64{1, 25200, 8}, session.OutputShape)
}

func TestLoad_Env(t *testing.T) {
	t.Setenv("VISION_SERVER_PORT", ":7070")
	t.Setenv("VISION_DETECTION_CONFIDENCE_THRESHOLD", "0.6")

	cfg, err := Load(writeConfig(t, "log:\n  level: debug\n"))
	require.NoError(t, err)
	assert.Equal(t, ":7070", cfg.Server.Port)
	assert.InDelta(t, 0.6, cfg.Detection.ConfidenceThreshold, 1e-6)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "threshold", body: "detection:\n  confidence_threshold: 1.5\n"},
		{name: "iou", body: "detection:\n  nms:\n    iou_threshold: -0.1\n"},
		{name: "classes", body: "detection:\n  num_classes: 0\n"},
		{name: "no task", body: "detection:\n  enabled: false\n"},
		{name: "provider", body: "engine:\n  provider:\n    backend: tpu\n"},
		{name: "level", body: "log:\n  level: loud\n"},
		{name: "queue", body: "queue:\n  workers: -2\n"},
		{name: "model name", body: "detection:\n  name: yolov9\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			assert.ErrorIs(t, err, errdefs.ErrConfig)
		})
	}
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.ErrorIs(t, err, errdefs.ErrConfig)
}

func TestValidate_TaskMismatch(t *testing.T) {
	_, err := Load(writeConfig(t, "detection:\n  name: unet\n"))
	assert.ErrorIs(t, err, errdefs.ErrConfig)
}
