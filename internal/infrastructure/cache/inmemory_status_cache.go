package cache

import (
	"context"
	"sync"
	"time"

	"github.com/Shrijana18/StockPilot-v1-sub005/internal/domain/inventory"
	"github.com/google/uuid"
)

type statusKey struct {
	tenantID uuid.UUID
	sku      string
}

// entry represents a cached status with expiration
type entry struct {
	status    inventory.StockStatus
	expiresAt time.Time
}

// InMemoryStatusCache implements StatusCache using an in-memory map.
// This is suitable for single-instance deployments and testing.
type InMemoryStatusCache struct {
	mu        sync.RWMutex
	entries   map[statusKey]entry
	ttl       time.Duration
	stopChan  chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewInMemoryStatusCache creates a new in-memory status cache.
// It starts a background goroutine to clean up expired entries.
func NewInMemoryStatusCache(ttl time.Duration) *InMemoryStatusCache {
	c := &InMemoryStatusCache{
		entries:  make(map[statusKey]entry),
		ttl:      ttl,
		stopChan: make(chan struct{}),
	}

	c.wg.Add(1)
	go c.cleanupLoop(cleanupInterval(ttl))

	return c
}

// Get returns the cached status of a sku. Expired entries are misses.
func (c *InMemoryStatusCache) Get(_ context.Context, tenantID uuid.UUID, sku string) (*inventory.StockStatus, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, exists := c.entries[statusKey{tenantID, sku}]
	if !exists || time.Now().After(e.expiresAt) {
		return nil, false, nil
	}
	status := e.status
	return &status, true, nil
}

// Set caches a status for the configured TTL
func (c *InMemoryStatusCache) Set(_ context.Context, tenantID uuid.UUID, status inventory.StockStatus) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[statusKey{tenantID, status.SKU}] = entry{
		status:    status,
		expiresAt: time.Now().Add(c.ttl),
	}
	return nil
}

// Invalidate drops the cached statuses of skus
func (c *InMemoryStatusCache) Invalidate(_ context.Context, tenantID uuid.UUID, skus ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, sku := range skus {
		delete(c.entries, statusKey{tenantID, sku})
	}
	return nil
}

// Close stops the cleanup goroutine and releases resources.
// Safe to call multiple times.
func (c *InMemoryStatusCache) Close() error {
	c.closeOnce.Do(func() {
		close(c.stopChan)
		c.wg.Wait()
	})
	return nil
}

func cleanupInterval(ttl time.Duration) time.Duration {
	if ttl <= 0 || ttl > 5*time.Minute {
		return 5 * time.Minute
	}
	return ttl
}

// cleanupLoop periodically removes expired entries
func (c *InMemoryStatusCache) cleanupLoop(interval time.Duration) {
	defer c.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopChan:
			return
		case <-ticker.C:
			c.cleanup()
		}
	}
}

// cleanup removes expired entries from the cache
func (c *InMemoryStatusCache) cleanup() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	for key, e := range c.entries {
		if now.After(e.expiresAt) {
			delete(c.entries, key)
		}
	}
}

// Size returns the number of entries in the cache (for testing/monitoring)
func (c *InMemoryStatusCache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Ensure InMemoryStatusCache implements StatusCache
var _ StatusCache = (*InMemoryStatusCache)(nil)
