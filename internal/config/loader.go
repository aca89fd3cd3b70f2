package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"keygate/internal/auth"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Loader handles configuration loading from YAML files and environment variables
type Loader struct {
	configPath string
	envPrefix  string
	raw        map[string]any
}

// NewLoader creates a new configuration loader
func NewLoader(configPath, envPrefix string) *Loader {
	return &Loader{
		configPath: configPath,
		envPrefix:  envPrefix,
		raw:        make(map[string]any),
	}
}

// LoadDotEnv loads variables from a .env file into the process environment.
// Variables that are already set win. A missing file is not an error.
func LoadDotEnv(path string) error {
	if path == "" {
		return nil
	}

	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load env file %s: %w", path, err)
	}

	return nil
}

// Load loads configuration from YAML file and applies environment variable overrides
func (l *Loader) Load() (*auth.Config, error) {
	config := &auth.Config{}

	if l.configPath != "" {
		if err := l.loadFromYAML(config); err != nil {
			return nil, fmt.Errorf("failed to load YAML config: %w", err)
		}
	}

	l.applyDefaults(config)

	if err := l.applyEnvOverrides(config); err != nil {
		return nil, fmt.Errorf("invalid environment override: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// Raw returns the YAML document as a generic map. Verifier settings are read
// from it through EnvConfigLoader.
func (l *Loader) Raw() map[string]any {
	return l.raw
}

func (l *Loader) loadFromYAML(config *auth.Config) error {
	data, err := os.ReadFile(l.configPath)
	if errors.Is(err, fs.ErrNotExist) {
		return nil // config file is optional
	}
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, config); err != nil {
		return fmt.Errorf("failed to parse YAML config: %w", err)
	}

	raw := make(map[string]any)
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("failed to parse YAML config: %w", err)
	}
	l.raw = raw

	return nil
}

func (l *Loader) applyDefaults(config *auth.Config) {
	// Server defaults
	if config.Server.Port == "" {
		config.Server.Port = "8000"
	}
	if config.Server.Host == "" {
		config.Server.Host = "0.0.0.0"
	}
	if config.Server.ReadTimeout == 0 {
		config.Server.ReadTimeout = 10 * time.Second
	}
	if config.Server.WriteTimeout == 0 {
		config.Server.WriteTimeout = 10 * time.Second
	}
	if config.Server.IdleTimeout == 0 {
		config.Server.IdleTimeout = 120 * time.Second
	}
	if config.Server.ShutdownTimeout == 0 {
		config.Server.ShutdownTimeout = 30 * time.Second
	}
	if config.Server.MaxHeaderBytes == 0 {
		config.Server.MaxHeaderBytes = 1 << 20
	}

	// Logging defaults
	if config.Logging.Level == "" {
		config.Logging.Level = "info"
	}
	if config.Logging.Format == "" {
		config.Logging.Format = "json"
	}

	// Metrics are on unless the file turns them off explicitly
	if !l.hasYAMLKey("metrics", "enabled") {
		config.Metrics.Enabled = true
	}
	if config.Metrics.Path == "" {
		config.Metrics.Path = "/metrics"
	}
	if config.Metrics.Port == "" {
		config.Metrics.Port = "9090"
	}

	// Cache defaults
	if config.Cache.MaxKeys == 0 {
		config.Cache.MaxKeys = 1000
	}
	if config.Cache.CleanupInterval == 0 {
		config.Cache.CleanupInterval = 10 * time.Minute
	}
}

func (l *Loader) hasYAMLKey(section, key string) bool {
	values, ok := l.raw[section].(map[string]any)
	if !ok {
		return false
	}
	_, ok = values[key]
	return ok
}

func (l *Loader) applyEnvOverrides(config *auth.Config) error {
	// Server overrides
	if port := l.env("SERVER_PORT"); port != "" {
		config.Server.Port = port
	}
	if host := l.env("SERVER_HOST"); host != "" {
		config.Server.Host = host
	}
	durations := []struct {
		name   string
		target *time.Duration
	}{
		{"SERVER_READ_TIMEOUT", &config.Server.ReadTimeout},
		{"SERVER_WRITE_TIMEOUT", &config.Server.WriteTimeout},
		{"SERVER_IDLE_TIMEOUT", &config.Server.IdleTimeout},
		{"SERVER_SHUTDOWN_TIMEOUT", &config.Server.ShutdownTimeout},
		{"CACHE_CLEANUP_INTERVAL", &config.Cache.CleanupInterval},
	}
	for _, d := range durations {
		value := l.env(d.name)
		if value == "" {
			continue
		}
		duration, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("%s_%s: %w", l.envPrefix, d.name, err)
		}
		*d.target = duration
	}

	// Logging overrides
	if level := l.env("LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if format := l.env("LOG_FORMAT"); format != "" {
		config.Logging.Format = format
	}

	// Metrics overrides
	if enabled := l.env("METRICS_ENABLED"); enabled != "" {
		value, err := strconv.ParseBool(enabled)
		if err != nil {
			return fmt.Errorf("%s_METRICS_ENABLED: %w", l.envPrefix, err)
		}
		config.Metrics.Enabled = value
	}
	if path := l.env("METRICS_PATH"); path != "" {
		config.Metrics.Path = path
	}
	if port := l.env("METRICS_PORT"); port != "" {
		config.Metrics.Port = port
	}

	// Cache overrides
	if cacheType := l.env("CACHE_TYPE"); cacheType != "" {
		config.Cache.Type = auth.ParseCacheType(strings.ToLower(cacheType))
	}
	if redisURL := l.env("REDIS_URL"); redisURL != "" {
		config.Cache.RedisURL = redisURL
	}
	if redisPassword := l.env("REDIS_PASSWORD"); redisPassword != "" {
		config.Cache.RedisPassword = redisPassword
	}
	ints := []struct {
		name   string
		target *int
	}{
		{"REDIS_DB", &config.Cache.RedisDB},
		{"CACHE_MAX_KEYS", &config.Cache.MaxKeys},
	}
	for _, i := range ints {
		value := l.env(i.name)
		if value == "" {
			continue
		}
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("%s_%s: %w", l.envPrefix, i.name, err)
		}
		*i.target = n
	}

	return nil
}

func (l *Loader) env(name string) string {
	if l.envPrefix == "" {
		return os.Getenv(name)
	}
	return os.Getenv(l.envPrefix + "_" + name)
}
