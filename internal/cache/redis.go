package cache

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"keygate/internal/auth"

	"github.com/redis/go-redis/v9"
)

// keyPrefix namespaces keygate entries in a shared Redis database
const keyPrefix = "keygate:"

// RedisCache implements auth.Cache on Redis
type RedisCache struct {
	client      *redis.Client
	hits        atomic.Int64
	misses      atomic.Int64
	lastUpdated atomic.Int64
}

// RedisCacheConfig represents Redis connection settings
type RedisCacheConfig struct {
	URL          string
	Password     string
	DB           int
	MaxRetries   int
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
}

// NewRedisCache connects to Redis and pings it
func NewRedisCache(config RedisCacheConfig) (*RedisCache, error) {
	opt, err := redis.ParseURL(config.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	if config.Password != "" {
		opt.Password = config.Password
	}
	if config.DB != 0 {
		opt.DB = config.DB
	}
	opt.MaxRetries = config.MaxRetries
	opt.PoolSize = config.PoolSize
	opt.MinIdleConns = config.MinIdleConns
	if config.DialTimeout > 0 {
		opt.DialTimeout = config.DialTimeout
	}

	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	c := &RedisCache{client: client}
	c.touch()
	return c, nil
}

func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, error) {
	value, err := c.client.Get(ctx, keyPrefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			c.misses.Add(1)
			return nil, auth.ErrCacheKeyNotFound
		}
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	c.hits.Add(1)
	return value, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := c.client.Set(ctx, keyPrefix+key, value, ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	c.touch()
	return nil
}

func (c *RedisCache) Delete(ctx context.Context, key string) error {
	if err := c.client.Del(ctx, keyPrefix+key).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	c.touch()
	return nil
}

func (c *RedisCache) Exists(ctx context.Context, key string) bool {
	count, err := c.client.Exists(ctx, keyPrefix+key).Result()
	return err == nil && count > 0
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}

// Stats reports hit/miss counters; Keys is the size of the whole Redis database
func (c *RedisCache) Stats() auth.CacheStats {
	stats := auth.CacheStats{
		Type:        auth.CacheTypeRedis,
		Hits:        c.hits.Load(),
		Misses:      c.misses.Load(),
		LastUpdated: time.Unix(0, c.lastUpdated.Load()),
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if keys, err := c.client.DBSize(ctx).Result(); err == nil {
		stats.Keys = keys
	}

	return stats
}

func (c *RedisCache) touch() {
	c.lastUpdated.Store(time.Now().UnixNano())
}
