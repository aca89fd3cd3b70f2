package cache

import (
	"context"
	"sync"
	"time"

	"keygate/internal/auth"
)

// MemoryCache implements auth.Cache in process memory
type MemoryCache struct {
	mu       sync.Mutex
	data     map[string]cacheEntry
	maxKeys  int
	stats    auth.CacheStats
	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

type cacheEntry struct {
	value     []byte
	expiresAt time.Time
}

func (e cacheEntry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

// MemoryCacheConfig represents configuration for the in-memory cache
type MemoryCacheConfig struct {
	MaxKeys         int
	CleanupInterval time.Duration
}

// NewMemoryCache creates a memory cache and starts its janitor
func NewMemoryCache(config MemoryCacheConfig) *MemoryCache {
	if config.MaxKeys <= 0 {
		config.MaxKeys = 1000
	}
	if config.CleanupInterval <= 0 {
		config.CleanupInterval = 10 * time.Minute
	}

	c := &MemoryCache{
		data:    make(map[string]cacheEntry),
		maxKeys: config.MaxKeys,
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
		stats: auth.CacheStats{
			Type:        auth.CacheTypeMemory,
			LastUpdated: time.Now(),
		},
	}

	go c.janitor(config.CleanupInterval)

	return c
}

func (c *MemoryCache) Get(ctx context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, exists := c.data[key]
	if exists && entry.expired(time.Now()) {
		delete(c.data, key)
		exists = false
	}
	if !exists {
		c.stats.Misses++
		return nil, auth.ErrCacheKeyNotFound
	}

	c.stats.Hits++
	return entry.value, nil
}

// Set stores value; when the cache is full an arbitrary other key is evicted
func (c *MemoryCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.data[key]; !exists && len(c.data) >= c.maxKeys {
		c.evictOne()
	}

	var expiresAt time.Time
	if ttl > 0 {
		expiresAt = time.Now().Add(ttl)
	}

	stored := make([]byte, len(value))
	copy(stored, value)
	c.data[key] = cacheEntry{value: stored, expiresAt: expiresAt}
	c.stats.LastUpdated = time.Now()

	return nil
}

// evictOne drops an expired entry if there is one, otherwise any entry
func (c *MemoryCache) evictOne() {
	now := time.Now()
	var victim string
	for k, e := range c.data {
		victim = k
		if e.expired(now) {
			break
		}
	}
	delete(c.data, victim)
}

func (c *MemoryCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.data[key]; exists {
		delete(c.data, key)
		c.stats.LastUpdated = time.Now()
	}
	return nil
}

func (c *MemoryCache) Exists(ctx context.Context, key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, exists := c.data[key]
	return exists && !entry.expired(time.Now())
}

// Close stops the janitor. It is safe to call more than once.
func (c *MemoryCache) Close() error {
	c.stopOnce.Do(func() {
		close(c.stop)
		<-c.done
	})
	return nil
}

func (c *MemoryCache) Stats() auth.CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	stats := c.stats
	stats.Keys = int64(len(c.data))
	return stats
}

func (c *MemoryCache) janitor(interval time.Duration) {
	defer close(c.done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.cleanup()
		case <-c.stop:
			return
		}
	}
}

// cleanup removes expired entries
func (c *MemoryCache) cleanup() {
	now := time.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	for key, entry := range c.data {
		if entry.expired(now) {
			delete(c.data, key)
		}
	}
	c.stats.LastUpdated = now
}
