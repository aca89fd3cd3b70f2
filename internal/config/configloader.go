package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// legacyEnvKeys are the unprefixed variable names older deployments set.
// They are consulted only when neither the prefixed variable nor the YAML
// file provides a value.
var legacyEnvKeys = map[string]string{
	"api_key.header_name":      "API_KEY_NAME",
	"api_key.secret":           "API_KEY",
	"ip_allowlist.allowed_ips": "ALLOWED_IPS",
}

// EnvConfigLoader implements auth.ConfigLoader using environment variables and YAML
type EnvConfigLoader struct {
	envPrefix string
	yamlData  map[string]any
}

// NewEnvConfigLoader creates a new environment-based config loader
func NewEnvConfigLoader(envPrefix string, yamlData map[string]any) *EnvConfigLoader {
	if yamlData == nil {
		yamlData = make(map[string]any)
	}

	return &EnvConfigLoader{
		envPrefix: envPrefix,
		yamlData:  yamlData,
	}
}

// Get retrieves a configuration value by key. Lookup order is the prefixed
// environment variable, the YAML file, then the legacy variable name.
func (e *EnvConfigLoader) Get(key string) (string, bool) {
	if value := os.Getenv(e.buildEnvKey(key)); value != "" {
		return value, true
	}

	if value, ok := e.getFromYAML(key); ok {
		return value, true
	}

	if legacy, ok := legacyEnvKeys[key]; ok {
		if value := os.Getenv(legacy); value != "" {
			return value, true
		}
	}

	return "", false
}

// GetWithDefault retrieves a configuration value with a default fallback
func (e *EnvConfigLoader) GetWithDefault(key, defaultValue string) string {
	if value, ok := e.Get(key); ok {
		return value
	}
	return defaultValue
}

// GetBool retrieves a boolean configuration value
func (e *EnvConfigLoader) GetBool(key string) (bool, bool) {
	value, ok := e.Get(key)
	if !ok {
		return false, false
	}

	boolValue, err := strconv.ParseBool(value)
	if err != nil {
		return false, false
	}

	return boolValue, true
}

// GetBoolWithDefault retrieves a boolean configuration value with default
func (e *EnvConfigLoader) GetBoolWithDefault(key string, defaultValue bool) bool {
	if value, ok := e.GetBool(key); ok {
		return value
	}
	return defaultValue
}

// GetDuration retrieves a duration such as "5m". A bare integer is read as seconds.
func (e *EnvConfigLoader) GetDuration(key string) (time.Duration, bool) {
	value, ok := e.Get(key)
	if !ok {
		return 0, false
	}

	if seconds, err := strconv.Atoi(value); err == nil {
		return time.Duration(seconds) * time.Second, true
	}

	duration, err := time.ParseDuration(value)
	if err != nil {
		return 0, false
	}

	return duration, true
}

// GetDurationWithDefault retrieves a duration configuration value with default
func (e *EnvConfigLoader) GetDurationWithDefault(key string, defaultValue time.Duration) time.Duration {
	if value, ok := e.GetDuration(key); ok {
		return value
	}
	return defaultValue
}

// buildEnvKey turns "api_key.header_name" into "<PREFIX>_API_KEY_HEADER_NAME"
func (e *EnvConfigLoader) buildEnvKey(key string) string {
	envKey := strings.ReplaceAll(key, ".", "_")
	envKey = strings.ReplaceAll(envKey, "-", "_")
	envKey = strings.ToUpper(envKey)

	if e.envPrefix != "" {
		return e.envPrefix + "_" + envKey
	}

	return envKey
}

// getFromYAML resolves a dotted key in the YAML document. Lists are joined
// with commas so an allow-list may be written either way.
func (e *EnvConfigLoader) getFromYAML(key string) (string, bool) {
	parts := strings.Split(key, ".")
	current := e.yamlData

	for _, part := range parts[:len(parts)-1] {
		next, ok := current[part].(map[string]any)
		if !ok {
			return "", false
		}
		current = next
	}

	value, ok := current[parts[len(parts)-1]]
	if !ok || value == nil {
		return "", false
	}

	switch v := value.(type) {
	case string:
		return v, v != ""
	case []any:
		items := make([]string, 0, len(v))
		for _, item := range v {
			items = append(items, fmt.Sprint(item))
		}
		return strings.Join(items, ","), len(items) > 0
	case map[string]any:
		return "", false
	default:
		return fmt.Sprint(v), true
	}
}
