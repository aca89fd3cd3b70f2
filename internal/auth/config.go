package auth

import (
	"fmt"
	"net"
	"strings"
	"time"
)

// Config is the process configuration. It is built once at startup and only
// read afterwards.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Cache   CacheConfig   `yaml:"cache"`
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// ServerConfig represents HTTP server configuration
type ServerConfig struct {
	Port            string        `yaml:"port"`
	Host            string        `yaml:"host"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	MaxHeaderBytes  int           `yaml:"max_header_bytes"`
}

// Addr returns the listen address
func (s ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, s.Port)
}

// CacheConfig represents verification cache configuration
type CacheConfig struct {
	Type            CacheType     `yaml:"type"`
	RedisURL        string        `yaml:"redis_url"`
	RedisPassword   string        `yaml:"redis_password"`
	RedisDB         int           `yaml:"redis_db"`
	MaxKeys         int           `yaml:"max_keys"`
	CleanupInterval time.Duration `yaml:"cleanup_interval"`
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("%w: server port is required", ErrConfigurationError)
	}

	if c.Metrics.Enabled {
		if !strings.HasPrefix(c.Metrics.Path, "/") {
			return fmt.Errorf("%w: metrics path must start with '/'", ErrConfigurationError)
		}
		if c.Metrics.Port == c.Server.Port {
			return fmt.Errorf("%w: metrics port %s collides with server port", ErrConfigurationError, c.Metrics.Port)
		}
	}

	return nil
}
