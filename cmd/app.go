package cmd

import (
	"github.com/nvr-ai/go-vision/config"
	"github.com/nvr-ai/go-vision/errdefs"
	"github.com/nvr-ai/go-vision/inference"
	"github.com/nvr-ai/go-vision/logger"
	"github.com/nvr-ai/go-vision/pipeline"
	"github.com/nvr-ai/go-vision/profiler"
	"go.uber.org/zap"
)

// app owns the ONNX sessions, their task queues and the pipeline over them.
type app struct {
	log      *zap.Logger
	prof     *profiler.RuntimeProfiler
	pipeline *pipeline.Pipeline
	queues   []*inference.TaskQueue
	sessions []*inference.Session
}

type taskSet struct {
	detection    bool
	segmentation bool
}

// newApp opens a session and queue for every enabled task the command needs.
func newApp(cfg *config.Config, need taskSet) (*app, error) {
	// Stage timings are always collected; Start only adds the periodic reports.
	rt := &app{
		log: logger.L(),
		prof: profiler.NewRuntimeProfiler(profiler.ProfilingOptions{
			ReportInterval: cfg.Profiler.ReportInterval,
			Logger:         logger.Named(nil, "profiler"),
		}),
	}
	if cfg.Profiler.Enabled {
		rt.prof.Start()
	}

	if err := rt.build(cfg, need); err != nil {
		rt.Close()
		return nil, err
	}
	return rt, nil
}

func (rt *app) build(cfg *config.Config, need taskSet) error {
	opts := pipeline.Options{
		DebugDir: cfg.Debug.DumpDir,
		Logger:   rt.log,
		Profiler: rt.prof,
	}

	if need.detection && cfg.Detection.Enabled {
		engine, err := rt.openTask(cfg, "detection", cfg.Detection)
		if err != nil {
			return err
		}
		mc := cfg.Detection.Config
		opts.Detection = &mc
		opts.DetectionEngine = engine
	}
	if need.segmentation && cfg.Segmentation.Enabled {
		engine, err := rt.openTask(cfg, "segmentation", cfg.Segmentation)
		if err != nil {
			return err
		}
		mc := cfg.Segmentation.Config
		opts.Segmentation = &mc
		opts.SegmentationEngine = engine
	}

	if opts.Detection == nil && opts.Segmentation == nil {
		return errdefs.Config("no enabled model serves this command")
	}

	p, err := pipeline.New(opts)
	if err != nil {
		return err
	}
	rt.pipeline = p
	return nil
}

func (rt *app) openTask(cfg *config.Config, name string, task config.TaskConfig) (inference.Engine, error) {
	session, err := inference.NewSession(cfg.SessionConfig(task), logger.Named(nil, name))
	if err != nil {
		return nil, err
	}
	rt.sessions = append(rt.sessions, session)

	queue, err := inference.NewTaskQueue(session, cfg.Queue, logger.Named(nil, name+".queue"))
	if err != nil {
		return nil, err
	}
	rt.queues = append(rt.queues, queue)
	rt.prof.AddMetricsCollector(taskMetrics{task: name, queue: queue})

	rt.log.Info("model loaded",
		zap.String("task", name),
		zap.String("model", string(task.Name)),
		zap.String("path", task.Path),
		zap.String("backend", string(session.Backend())),
	)
	return queue, nil
}

// Close stops the queues before the sessions they run on.
func (rt *app) Close() {
	for _, q := range rt.queues {
		if err := q.Close(); err != nil {
			rt.log.Warn("failed to close task queue", zap.Error(err))
		}
	}
	for _, s := range rt.sessions {
		if err := s.Close(); err != nil {
			rt.log.Warn("failed to close session", zap.Error(err))
		}
	}
	rt.prof.Stop()
}

// taskMetrics prefixes queue metrics with the task name.
type taskMetrics struct {
	task  string
	queue *inference.TaskQueue
}

func (m taskMetrics) CollectMetrics() map[string]float64 {
	out := make(map[string]float64)
	for k, v := range m.queue.CollectMetrics() {
		out[m.task+"."+k] = v
	}
	return out
}
