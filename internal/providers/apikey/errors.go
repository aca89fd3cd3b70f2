package apikey

import "errors"

var (
	// ErrMissingSecret indicates that no expected key was configured
	ErrMissingSecret = errors.New("api_key.secret is required")

	// ErrInvalidHeaderName indicates a header name that cannot appear in a request
	ErrInvalidHeaderName = errors.New("invalid API key header name")

	// ErrNotConfigured is reported by Health before LoadConfig succeeded
	ErrNotConfigured = errors.New("api_key verifier not configured")
)
