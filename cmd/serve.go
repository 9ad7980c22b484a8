package cmd

import (
	"os/signal"
	"syscall"

	"github.com/nvr-ai/go-vision/logger"
	"github.com/nvr-ai/go-vision/server"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		rt, err := newApp(cfg, taskSet{detection: true, segmentation: true})
		if err != nil {
			return err
		}
		defer rt.Close()

		cache := server.NewCache(cfg.Redis, logger.Named(nil, "cache"))
		defer cache.Close()
		if err := cache.Ping(ctx); err != nil {
			rt.log.Warn("redis unreachable, results will not be cached until it recovers", zap.Error(err))
		}

		srv := server.New(server.Options{
			Pipeline:    rt.pipeline,
			Cache:       cache,
			Profiler:    rt.prof,
			Logger:      logger.Named(nil, "server"),
			Mode:        cfg.Server.Mode,
			MaxBodySize: cfg.Server.MaxBodySize,
			Build: server.BuildInfo{
				Version:   Version,
				BuildTime: BuildTime,
				GitCommit: GitCommit,
			},
		})

		return srv.Run(ctx, cfg.Server.Port, cfg.Server.ReadTimeout, cfg.Server.WriteTimeout)
	},
}
