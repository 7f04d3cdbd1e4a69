package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Shrijana18/StockPilot-v1-sub005/internal/domain/inventory"
	"github.com/Shrijana18/StockPilot-v1-sub005/internal/infrastructure/config"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const defaultKeyPrefix = "stockpilot:status:"

// RedisStatusCache implements StatusCache using Redis.
// This is suitable for distributed deployments where multiple instances
// serve the same badges.
type RedisStatusCache struct {
	client    *redis.Client
	keyPrefix string
	ttl       time.Duration
}

// NewRedisStatusCache creates a new Redis-based status cache
func NewRedisStatusCache(cfg config.RedisConfig, keyPrefix string, ttl time.Duration) (*RedisStatusCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewRedisStatusCacheWithClient(client, keyPrefix, ttl), nil
}

// NewRedisStatusCacheWithClient creates a cache with an existing Redis client.
// This is useful for testing or when sharing a client across components.
func NewRedisStatusCacheWithClient(client *redis.Client, keyPrefix string, ttl time.Duration) *RedisStatusCache {
	if keyPrefix == "" {
		keyPrefix = defaultKeyPrefix
	}
	return &RedisStatusCache{
		client:    client,
		keyPrefix: keyPrefix,
		ttl:       ttl,
	}
}

func (c *RedisStatusCache) key(tenantID uuid.UUID, sku string) string {
	return c.keyPrefix + tenantID.String() + ":" + sku
}

// Get returns the cached status of a sku. A miss is not an error.
func (c *RedisStatusCache) Get(ctx context.Context, tenantID uuid.UUID, sku string) (*inventory.StockStatus, bool, error) {
	raw, err := c.client.Get(ctx, c.key(tenantID, sku)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read stock status: %w", err)
	}

	var status inventory.StockStatus
	if err := json.Unmarshal(raw, &status); err != nil {
		return nil, false, fmt.Errorf("failed to decode stock status: %w", err)
	}
	return &status, true, nil
}

// Set caches a status for the configured TTL
func (c *RedisStatusCache) Set(ctx context.Context, tenantID uuid.UUID, status inventory.StockStatus) error {
	raw, err := json.Marshal(status)
	if err != nil {
		return fmt.Errorf("failed to encode stock status: %w", err)
	}
	if err := c.client.Set(ctx, c.key(tenantID, status.SKU), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to write stock status: %w", err)
	}
	return nil
}

// Invalidate drops the cached statuses of skus
func (c *RedisStatusCache) Invalidate(ctx context.Context, tenantID uuid.UUID, skus ...string) error {
	if len(skus) == 0 {
		return nil
	}
	keys := make([]string, len(skus))
	for i, sku := range skus {
		keys[i] = c.key(tenantID, sku)
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to invalidate stock status: %w", err)
	}
	return nil
}

// Close closes the Redis client
func (c *RedisStatusCache) Close() error {
	return c.client.Close()
}

// GetClient returns the underlying Redis client (for testing/monitoring)
func (c *RedisStatusCache) GetClient() *redis.Client {
	return c.client
}

// Ensure RedisStatusCache implements StatusCache
var _ StatusCache = (*RedisStatusCache)(nil)
