package auth

import "time"

// ConfigLoader resolves dotted verifier settings such as "api_key.secret"
type ConfigLoader interface {
	Get(key string) (string, bool)
	GetWithDefault(key, defaultValue string) string
	GetBool(key string) (bool, bool)
	GetBoolWithDefault(key string, defaultValue bool) bool
	GetDuration(key string) (time.Duration, bool)
	GetDurationWithDefault(key string, defaultValue time.Duration) time.Duration
}
