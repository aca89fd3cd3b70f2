package auth

import (
	"context"
	"encoding/json"
	"time"

	"gopkg.in/yaml.v3"
)

// CacheType represents cache implementation types
type CacheType int

const (
	CacheTypeMemory CacheType = iota
	CacheTypeRedis
)

// String returns the string representation of the cache type
func (c CacheType) String() string {
	if c == CacheTypeRedis {
		return "redis"
	}
	return "memory"
}

// MarshalJSON encodes the cache type by name
func (c CacheType) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.String())
}

// UnmarshalYAML accepts the cache type by name in config files
func (c *CacheType) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	*c = ParseCacheType(s)
	return nil
}

// ParseCacheType parses a string to CacheType; unknown names fall back to memory
func ParseCacheType(s string) CacheType {
	if s == "redis" {
		return CacheTypeRedis
	}
	return CacheTypeMemory
}

// Cache is a key-value store with TTL used to memoise verifications
type Cache interface {
	// Get returns ErrCacheKeyNotFound if the key doesn't exist
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value; a TTL of 0 means no expiration
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) bool
	Close() error
	Stats() CacheStats
}

// CacheStats represents cache statistics
type CacheStats struct {
	Hits        int64     `json:"hits"`
	Misses      int64     `json:"misses"`
	Keys        int64     `json:"keys"`
	LastUpdated time.Time `json:"last_updated"`
	Type        CacheType `json:"type"`
}
