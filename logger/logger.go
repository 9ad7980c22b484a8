// Package logger - Process-wide zap logger.
package logger

import (
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	mu     sync.RWMutex
	global = zap.NewNop()
)

// New builds a logger. mode "release" (or "production") gives JSON output, anything else a colored
// development console. level is a zap level name; an empty level keeps the mode's default.
func New(mode, level string) (*zap.Logger, error) {
	var config zap.Config

	switch strings.ToLower(mode) {
	case "release", "production":
		config = zap.NewProductionConfig()
	default:
		config = zap.NewDevelopmentConfig()
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	if level != "" {
		lvl, err := zapcore.ParseLevel(level)
		if err != nil {
			return nil, err
		}
		config.Level = zap.NewAtomicLevelAt(lvl)
	}

	return config.Build()
}

// Init builds a logger with New and installs it as the global logger.
func Init(mode, level string) error {
	l, err := New(mode, level)
	if err != nil {
		return err
	}
	Set(l)
	return nil
}

// Set replaces the global logger. A nil logger installs a no-op logger.
func Set(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	mu.Lock()
	global = l
	mu.Unlock()
}

// L returns the global logger. It is a no-op logger until Init or Set is called.
func L() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return global
}

// Named returns a child of the global logger, or l itself when l is not nil.
func Named(l *zap.Logger, name string) *zap.Logger {
	if l != nil {
		return l
	}
	return L().Named(name)
}

// Sync flushes the global logger.
func Sync() {
	_ = L().Sync()
}
