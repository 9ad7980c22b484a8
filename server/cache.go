package server

import (
	"context"
	"encoding/json"
	"time"

	"github.com/nvr-ai/go-vision/config"
	"github.com/nvr-ai/go-vision/logger"
	"github.com/nvr-ai/go-vision/pipeline"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const detectKeyPrefix = "vision:detect:"

// Cache stores detection results by image checksum. A nil *Cache is a valid disabled cache, and cache
// failures are logged but never fail a request.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
	log    *zap.Logger
}

// NewCache connects to redis. It returns nil when cfg.Addr is empty.
func NewCache(cfg config.RedisConfig, log *zap.Logger) *Cache {
	if cfg.Addr == "" {
		return nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	return &Cache{
		client: client,
		ttl:    cfg.TTL,
		log:    logger.Named(log, "cache"),
	}
}

// Enabled reports whether results are cached.
func (c *Cache) Enabled() bool {
	return c != nil
}

// Ping checks the redis connection.
func (c *Cache) Ping(ctx context.Context) error {
	if c == nil {
		return nil
	}
	return c.client.Ping(ctx).Err()
}

// GetDetections returns the cached detections of an image, or false on a miss.
func (c *Cache) GetDetections(ctx context.Context, checksum string) ([]pipeline.Detection, bool) {
	if c == nil {
		return nil, false
	}

	data, err := c.client.Get(ctx, detectKeyPrefix+checksum).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.log.Warn("cache read failed", zap.String("checksum", checksum), zap.Error(err))
		}
		return nil, false
	}

	var detections []pipeline.Detection
	if err := json.Unmarshal(data, &detections); err != nil {
		c.log.Warn("failed to unmarshal cached detections", zap.String("checksum", checksum), zap.Error(err))
		return nil, false
	}

	return detections, true
}

// SetDetections caches the detections of an image.
func (c *Cache) SetDetections(ctx context.Context, checksum string, detections []pipeline.Detection) {
	if c == nil {
		return
	}

	data, err := json.Marshal(detections)
	if err != nil {
		c.log.Warn("failed to marshal detections", zap.Error(err))
		return
	}
	if err := c.client.Set(ctx, detectKeyPrefix+checksum, data, c.ttl).Err(); err != nil {
		c.log.Warn("cache write failed", zap.String("checksum", checksum), zap.Error(err))
	}
}

// Close closes the redis client.
func (c *Cache) Close() error {
	if c == nil {
		return nil
	}
	return c.client.Close()
}
