package auth

import "time"

// Metrics records what the guard and the HTTP layer observe
type Metrics interface {
	// IncVerifications counts verifier outcomes; result is "success", "failure" or "verifier_not_found"
	IncVerifications(verifier string, result string)
	ObserveVerificationDuration(verifier string, duration time.Duration)

	IncCacheHits(verifier string)
	IncCacheMisses(verifier string)

	IncRequests(route string, status int)
	ObserveRequestDuration(route string, duration time.Duration)

	SetVerifierStatus(verifier string, healthy bool)
}

// MetricsConfig represents metrics endpoint configuration
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
	Port    string `yaml:"port"`
}
