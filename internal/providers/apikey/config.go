package apikey

import (
	"fmt"
	"strings"
	"time"
)

const (
	DefaultHeaderName = "X-API-Key"
	DefaultCacheTTL   = 5 * time.Minute
)

// Config holds the API key verifier configuration
type Config struct {
	// HeaderName is the request header carrying the key
	HeaderName string `json:"header_name"`

	// Secret is the expected key. It is compared byte for byte.
	Secret string `json:"-"`

	// CacheTTL is how long a successful check is remembered; zero disables the cache
	CacheTTL time.Duration `json:"cache_ttl"`
}

// Validate validates the API key configuration
func (c *Config) Validate() error {
	if c.Secret == "" {
		return ErrMissingSecret
	}

	if c.HeaderName == "" {
		c.HeaderName = DefaultHeaderName
	}
	if strings.ContainsAny(c.HeaderName, " \t\r\n:") {
		return fmt.Errorf("%w: %q", ErrInvalidHeaderName, c.HeaderName)
	}

	if c.CacheTTL < 0 {
		c.CacheTTL = 0
	}

	return nil
}
