package auth

import (
	"context"
	"strings"
	"time"
)

// VerifierType identifies a request verifier
type VerifierType int

const (
	VerifierTypeUnknown VerifierType = iota
	VerifierTypeAPIKey
	VerifierTypeIPAllowlist
)

// String returns the string representation of the verifier type
func (v VerifierType) String() string {
	switch v {
	case VerifierTypeAPIKey:
		return "api_key"
	case VerifierTypeIPAllowlist:
		return "ip_allowlist"
	default:
		return "unknown"
	}
}

// ParseVerifierType parses a string to VerifierType
func ParseVerifierType(s string) VerifierType {
	switch s {
	case "api_key":
		return VerifierTypeAPIKey
	case "ip_allowlist":
		return VerifierTypeIPAllowlist
	default:
		return VerifierTypeUnknown
	}
}

// RequestContext is the part of an HTTP request the verifiers look at
type RequestContext struct {
	Headers    map[string]string `json:"headers"`
	RemoteAddr string            `json:"remote_addr,omitempty"`
	Method     string            `json:"method,omitempty"`
	Path       string            `json:"path,omitempty"`
	RequestID  string            `json:"request_id,omitempty"`
}

// GetHeader returns a header value (case-insensitive)
func (rc *RequestContext) GetHeader(name string) (string, bool) {
	if value, exists := rc.Headers[name]; exists {
		return value, true
	}

	for key, value := range rc.Headers {
		if strings.EqualFold(key, name) {
			return value, true
		}
	}

	return "", false
}

// LockManager defines the interface for per-key mutual exclusion
type LockManager interface {
	Lock(key string)
	Unlock(key string)
}

// Verifier checks one property of a request.
//
// Verify returns the claims it established or an error. Errors that describe a
// rejected request are *AuthenticationError or *AuthorizationError; anything
// else is treated as a system failure.
type Verifier interface {
	// Type returns the verifier type
	Type() VerifierType

	// LoadConfig loads and validates the verifier configuration once, at startup
	LoadConfig(loader ConfigLoader) error

	// Verify checks the request
	Verify(ctx context.Context, rc *RequestContext) (*Claims, error)

	// Health reports whether the verifier is usable
	Health(ctx context.Context) error

	// Close releases verifier resources
	Close() error
}

// Claims is what a passed verifier knows about the caller
type Claims struct {
	Subject    string         `json:"sub"`
	Verifier   VerifierType   `json:"verifier"`
	VerifiedAt time.Time      `json:"verified_at"`
	Attributes map[string]any `json:"attributes,omitempty"`

	// Credential is the presented API key, handed to route handlers but never
	// serialized.
	Credential string `json:"-"`
}

// Result is the outcome of running a verifier chain
type Result struct {
	Claims *Claims

	// Err is nil when every verifier in the chain passed
	Err error

	// FailedAt is the verifier that rejected the request, if any
	FailedAt VerifierType
}

// Allowed reports whether the whole chain passed
func (r Result) Allowed() bool {
	return r.Err == nil
}
