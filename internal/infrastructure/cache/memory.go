package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/tryonlog/catalog/internal/domain"
)

// cacheItem holds one resolved size with its expiration.
type cacheItem struct {
	size       domain.CanonicalSize
	expiration time.Time
}

// MappingCache is a thread-safe in-process cache in front of the persisted
// brand size mappings. The same literal label recurs thousands of times
// across a brand's catalog, so most lookups never reach the store.
type MappingCache struct {
	data  map[string]cacheItem
	ttl   time.Duration
	mutex sync.RWMutex
}

// NewMappingCache creates a mapping cache with the given TTL and starts the
// background sweep for expired entries.
func NewMappingCache(ttl time.Duration) *MappingCache {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	c := &MappingCache{
		data: make(map[string]cacheItem),
		ttl:  ttl,
	}
	go c.cleanupExpired()
	return c
}

// Key builds the cache key for a (brand, category, raw label) triple.
func Key(brand string, category domain.SizeCategory, rawLabel string) string {
	return fmt.Sprintf("mapping:%s:%s:%s", brand, category, rawLabel)
}

// Get returns the cached canonical size for the key, or ErrCacheMiss.
func (c *MappingCache) Get(ctx context.Context, key string) (*domain.CanonicalSize, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	item, exists := c.data[key]
	if !exists || time.Now().After(item.expiration) {
		return nil, domain.ErrCacheMiss
	}

	size := item.size
	return &size, nil
}

// Set stores a canonical size under the key.
func (c *MappingCache) Set(ctx context.Context, key string, size *domain.CanonicalSize) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.data[key] = cacheItem{
		size:       *size,
		expiration: time.Now().Add(c.ttl),
	}
	return nil
}

// Size returns the current number of cached entries.
func (c *MappingCache) Size() int {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return len(c.data)
}

// Clear removes all entries.
func (c *MappingCache) Clear() {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.data = make(map[string]cacheItem)
}

// cleanupExpired sweeps expired entries every 10 minutes.
func (c *MappingCache) cleanupExpired() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		c.mutex.Lock()
		now := time.Now()
		for key, item := range c.data {
			if now.After(item.expiration) {
				delete(c.data, key)
			}
		}
		c.mutex.Unlock()
	}
}
