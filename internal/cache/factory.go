package cache

import (
	"keygate/internal/auth"
)

// NewCache creates the configured cache. A Redis cache that cannot be
// reached falls back to memory so the gate still starts.
func NewCache(config auth.CacheConfig, logger auth.Logger) auth.Cache {
	switch config.Type {
	case auth.CacheTypeRedis:
		return createRedisCache(config, logger)
	default:
		return createMemoryCache(config, logger)
	}
}

func createRedisCache(config auth.CacheConfig, logger auth.Logger) auth.Cache {
	if config.RedisURL == "" {
		logger.Info("Redis URL not configured, falling back to memory cache")
		return createMemoryCache(config, logger)
	}

	logger.Info("connecting to Redis", "db", config.RedisDB)

	redisCache, err := NewRedisCache(RedisCacheConfig{
		URL:          config.RedisURL,
		Password:     config.RedisPassword,
		DB:           config.RedisDB,
		MaxRetries:   3,
		PoolSize:     10,
		MinIdleConns: 2,
	})
	if err != nil {
		logger.Warn("failed to connect to Redis, falling back to memory cache", "error", err)
		return createMemoryCache(config, logger)
	}

	logger.Info("Redis cache initialized")
	return redisCache
}

func createMemoryCache(config auth.CacheConfig, logger auth.Logger) auth.Cache {
	logger.Info("initializing memory cache",
		"max_keys", config.MaxKeys,
		"cleanup_interval", config.CleanupInterval)

	return NewMemoryCache(MemoryCacheConfig{
		MaxKeys:         config.MaxKeys,
		CleanupInterval: config.CleanupInterval,
	})
}
