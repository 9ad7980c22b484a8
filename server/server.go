// Package server - HTTP API over the vision pipeline.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nvr-ai/go-vision/logger"
	"github.com/nvr-ai/go-vision/pipeline"
	"github.com/nvr-ai/go-vision/profiler"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// BuildInfo is reported by /version.
type BuildInfo struct {
	Version   string `json:"version"`
	BuildTime string `json:"build_time"`
	GitCommit string `json:"git_commit"`
}

// Options configures a Server.
type Options struct {
	Pipeline *pipeline.Pipeline
	// Cache is optional.
	Cache *Cache
	// Profiler backs /api/v1/stats; optional.
	Profiler *profiler.RuntimeProfiler
	Logger   *zap.Logger
	// Mode is the gin mode: debug, release or test.
	Mode string
	// MaxBodySize limits request bodies in bytes.
	MaxBodySize int64
	Build       BuildInfo
}

// Server serves detection and segmentation over HTTP.
type Server struct {
	pipeline    *pipeline.Pipeline
	cache       *Cache
	prof        *profiler.RuntimeProfiler
	log         *zap.Logger
	maxBodySize int64
	build       BuildInfo
	router      *gin.Engine
}

// New builds the server and its routes.
func New(opts Options) *Server {
	if opts.Mode != "" {
		gin.SetMode(opts.Mode)
	}
	if opts.MaxBodySize <= 0 {
		opts.MaxBodySize = 32 << 20
	}

	s := &Server{
		pipeline:    opts.Pipeline,
		cache:       opts.Cache,
		prof:        opts.Profiler,
		log:         logger.Named(opts.Logger, "server"),
		maxBodySize: opts.MaxBodySize,
		build:       opts.Build,
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(Logger(s.log))

	r.GET("/health", s.health)
	r.GET("/version", s.version)

	api := r.Group("/api/v1")
	{
		api.GET("/stats", s.stats)
		api.POST("/detect", s.detect)
		api.POST("/detect/upload", s.detectUpload)
		api.POST("/segment", s.segment)
	}

	s.router = r
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves on addr until ctx ends, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string, readTimeout, writeTimeout time.Duration) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("server starting", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return errors.Wrap(err, "server stopped")
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	s.log.Info("server shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "shutdown")
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
