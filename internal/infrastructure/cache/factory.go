// Package cache provides the stock status badge cache: a Redis store for
// shared deployments and an in-memory store for single instances and tests.
package cache

import (
	"fmt"

	appinv "github.com/Shrijana18/StockPilot-v1-sub005/internal/application/inventory"
	"github.com/Shrijana18/StockPilot-v1-sub005/internal/infrastructure/config"
	"go.uber.org/zap"
)

// StatusCache is a stock status cache that owns a connection or goroutine
type StatusCache interface {
	appinv.StatusCache
	Close() error
}

// StatusCacheFactory creates status caches based on configuration
type StatusCacheFactory struct {
	redisConfig           config.RedisConfig
	cacheConfig           config.StatusCacheConfig
	logger                *zap.Logger
	allowInMemoryFallback bool
}

// StatusCacheFactoryOption is a functional option for configuring the factory
type StatusCacheFactoryOption func(*StatusCacheFactory)

// WithLogger sets the logger for the factory
func WithLogger(logger *zap.Logger) StatusCacheFactoryOption {
	return func(f *StatusCacheFactory) {
		f.logger = logger
	}
}

// WithInMemoryFallback controls whether to fall back to the in-memory cache when Redis is unavailable
func WithInMemoryFallback(allow bool) StatusCacheFactoryOption {
	return func(f *StatusCacheFactory) {
		f.allowInMemoryFallback = allow
	}
}

// NewStatusCacheFactory creates a new factory. Fallback defaults to the
// status_cache.fallback setting.
func NewStatusCacheFactory(redisCfg config.RedisConfig, cacheCfg config.StatusCacheConfig, opts ...StatusCacheFactoryOption) *StatusCacheFactory {
	f := &StatusCacheFactory{
		redisConfig:           redisCfg,
		cacheConfig:           cacheCfg,
		logger:                zap.NewNop(),
		allowInMemoryFallback: cacheCfg.Fallback,
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

// CreateRedisCache creates a Redis-based status cache
func (f *StatusCacheFactory) CreateRedisCache() (StatusCache, error) {
	c, err := NewRedisStatusCache(f.redisConfig, f.cacheConfig.KeyPrefix, f.cacheConfig.TTL)
	if err != nil {
		return nil, fmt.Errorf("failed to create Redis status cache: %w", err)
	}
	return c, nil
}

// CreateInMemoryCache creates an in-memory status cache.
// WARNING: in-memory caches are per process; another instance's writes only
// become visible here when the TTL expires.
func (f *StatusCacheFactory) CreateInMemoryCache() StatusCache {
	return NewInMemoryStatusCache(f.cacheConfig.TTL)
}

// CreateCache tries Redis first and falls back to in-memory if Redis is not
// available and fallback is allowed
func (f *StatusCacheFactory) CreateCache() (StatusCache, error) {
	c, err := f.CreateRedisCache()
	if err == nil {
		f.logger.Info("using Redis status cache", zap.String("addr", f.redisConfig.Addr()))
		return c, nil
	}

	if !f.allowInMemoryFallback {
		return nil, fmt.Errorf("Redis required for status cache but unavailable: %w", err)
	}

	f.logger.Warn("Redis unavailable, falling back to in-memory status cache. "+
		"Badges may lag behind writes made by other instances until the TTL expires.",
		zap.Error(err),
	)
	return f.CreateInMemoryCache(), nil
}
