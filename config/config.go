// Package config - Process configuration loaded from YAML and VISION_* environment variables.
package config

import (
	"strings"
	"time"

	"github.com/nvr-ai/go-vision/errdefs"
	"github.com/nvr-ai/go-vision/inference"
	"github.com/nvr-ai/go-vision/inference/providers"
	"github.com/nvr-ai/go-vision/models"
	"github.com/nvr-ai/go-vision/models/model"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"
)

// EnvPrefix prefixes every environment override, e.g. VISION_SERVER_PORT.
const EnvPrefix = "VISION"

// Config is the root configuration.
type Config struct {
	Server       ServerConfig          `mapstructure:"server"`
	Redis        RedisConfig           `mapstructure:"redis"`
	Log          LogConfig             `mapstructure:"log"`
	Engine       EngineConfig          `mapstructure:"engine"`
	Detection    TaskConfig            `mapstructure:"detection"`
	Segmentation TaskConfig            `mapstructure:"segmentation"`
	Queue        inference.QueueConfig `mapstructure:"queue"`
	Profiler     ProfilerConfig        `mapstructure:"profiler"`
	Debug        DebugConfig           `mapstructure:"debug"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port         string        `mapstructure:"port"`
	Mode         string        `mapstructure:"mode"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	MaxBodySize  int64         `mapstructure:"max_body_size"`
}

// RedisConfig configures the detection result cache. An empty Addr disables caching.
type RedisConfig struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	TTL      time.Duration `mapstructure:"ttl"`
}

// LogConfig configures the process logger.
type LogConfig struct {
	Mode  string `mapstructure:"mode"`
	Level string `mapstructure:"level"`
}

// EngineConfig configures ONNX Runtime, shared by every model.
type EngineConfig struct {
	LibraryPath string           `mapstructure:"library_path"`
	Provider    providers.Config `mapstructure:"provider"`
}

// TaskConfig is one model and the tensor names it is served with.
type TaskConfig struct {
	Enabled      bool `mapstructure:"enabled"`
	model.Config `mapstructure:",squash"`
	// InputName and OutputName select model tensors; empty uses the first declared.
	InputName  string `mapstructure:"input_name"`
	OutputName string `mapstructure:"output_name"`
	// OutputShape overrides the declared output shape for models with dynamic axes.
	OutputShape []int64 `mapstructure:"output_shape"`
}

// ProfilerConfig configures periodic runtime reports.
type ProfilerConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	ReportInterval time.Duration `mapstructure:"report_interval"`
}

// DebugConfig configures debugging aids.
type DebugConfig struct {
	// DumpDir receives every preprocessed canvas as a PNG when set.
	DumpDir string `mapstructure:"dump_dir"`
}

// Load reads configuration from path, falling back to ./config.yaml when path is empty. A missing
// default file is not an error; defaults and environment variables still apply.
//
// Arguments:
//   - path: The YAML file, or empty.
//
// Returns:
//   - *Config: The validated configuration.
//   - error: ErrConfig when the file cannot be read or a value is invalid.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, errdefs.Config("failed to read config file: %v", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errdefs.Config("failed to unmarshal config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", ":8080")
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.read_timeout", 10*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.max_body_size", 32<<20)

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.ttl", 10*time.Minute)

	v.SetDefault("log.mode", "development")
	v.SetDefault("log.level", "info")

	v.SetDefault("engine.library_path", "")
	v.SetDefault("engine.provider.backend", string(providers.CPUProviderBackend))
	v.SetDefault("engine.provider.optimization.graph_optimization", "extended")
	v.SetDefault("engine.provider.optimization.execution_mode", "sequential")
	v.SetDefault("engine.provider.optimization.intra_op_num_threads", 0)
	v.SetDefault("engine.provider.optimization.inter_op_num_threads", 0)

	v.SetDefault("detection.enabled", true)
	v.SetDefault("detection.name", string(model.ModelNameYOLOv5))
	v.SetDefault("detection.path", "models/yolov5s.onnx")
	v.SetDefault("detection.input_width", 640)
	v.SetDefault("detection.input_height", 640)
	v.SetDefault("detection.num_classes", 80)
	v.SetDefault("detection.confidence_threshold", 0.25)
	v.SetDefault("detection.nms.iou_threshold", 0.5)
	v.SetDefault("detection.nms.class_aware", true)
	v.SetDefault("detection.keep_aspect_ratio", true)
	v.SetDefault("detection.labels_file", "")

	v.SetDefault("segmentation.enabled", false)
	v.SetDefault("segmentation.name", string(model.ModelNameUNet))
	v.SetDefault("segmentation.path", "models/unet.onnx")
	v.SetDefault("segmentation.input_width", 512)
	v.SetDefault("segmentation.input_height", 512)
	v.SetDefault("segmentation.num_classes", 21)
	v.SetDefault("segmentation.keep_aspect_ratio", true)
	v.SetDefault("segmentation.labels_file", "")

	v.SetDefault("queue.workers", 0)
	v.SetDefault("queue.capacity", 0)

	v.SetDefault("profiler.enabled", false)
	v.SetDefault("profiler.report_interval", 30*time.Second)

	v.SetDefault("debug.dump_dir", "")
}

// Validate reports ErrConfig for the first invalid value.
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return errdefs.Config("server.port is required")
	}
	if c.Server.MaxBodySize <= 0 {
		return errdefs.Config("server.max_body_size must be positive")
	}
	if c.Redis.TTL < 0 {
		return errdefs.Config("redis.ttl must not be negative")
	}
	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
		return errdefs.Config("log.level: %v", err)
	}
	if _, err := providers.NewProvider(c.Engine.Provider); err != nil {
		return err
	}
	if err := c.Engine.Provider.Optimization.Validate(); err != nil {
		return err
	}
	if !c.Detection.Enabled && !c.Segmentation.Enabled {
		return errdefs.Config("at least one of detection and segmentation must be enabled")
	}
	tasks := []struct {
		name string
		cfg  TaskConfig
		want model.Task
	}{
		{name: "detection", cfg: c.Detection, want: model.TaskDetect},
		{name: "segmentation", cfg: c.Segmentation, want: model.TaskSegment},
	}
	for _, task := range tasks {
		if !task.cfg.Enabled {
			continue
		}
		if task.cfg.Path == "" {
			return errdefs.Config("%s.path is required", task.name)
		}
		m, err := models.NewModel(task.cfg.Config)
		if err != nil {
			return errors.WithMessage(err, task.name)
		}
		if m.Task() != task.want {
			return errdefs.Config("%s model %q does not %s", task.name, task.cfg.Name, task.want)
		}
	}
	if c.Queue.Workers < 0 || c.Queue.Capacity < 0 {
		return errdefs.Config("queue.workers and queue.capacity must not be negative")
	}
	return nil
}

// SessionConfig builds the engine session configuration of an enabled task.
func (c *Config) SessionConfig(task TaskConfig) inference.SessionConfig {
	return inference.SessionConfig{
		ModelPath:   task.Path,
		LibraryPath: c.Engine.LibraryPath,
		Provider:    c.Engine.Provider,
		InputName:   task.InputName,
		OutputName:  task.OutputName,
		InputShape:  []int64{1, 3, int64(task.InputHeight), int64(task.InputWidth)},
		OutputShape: task.OutputShape,
	}
}
