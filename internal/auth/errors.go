package auth

import (
	"errors"
	"net/http"
)

// AuthenticationError rejects a request whose credential is missing or wrong
type AuthenticationError struct {
	Reason string
}

func (e *AuthenticationError) Error() string {
	return "authentication failed: " + e.Reason
}

// AuthorizationError rejects an authenticated request that is not permitted
type AuthorizationError struct {
	Reason string
}

func (e *AuthorizationError) Error() string {
	return "authorization failed: " + e.Reason
}

// Rejections. Compare with errors.Is.
var (
	ErrMissingCredential = &AuthenticationError{Reason: "missing credential"}
	ErrInvalidCredential = &AuthenticationError{Reason: "invalid credential"}
	ErrIPNotPermitted    = &AuthorizationError{Reason: "IP not permitted"}
)

// Service errors
var (
	ErrVerifierNotFound   = errors.New("verifier not found")
	ErrConfigurationError = errors.New("configuration error")
	ErrCacheKeyNotFound   = errors.New("cache key not found")
)

// Response details. Rejections keep the wording clients of the API already match on.
const (
	DetailNotAuthenticated = "Not authenticated"
	DetailInvalidAPIKey    = "API Key không hợp lệ"
	DetailIPNotPermitted   = "IP không được phép truy cập"
	DetailInternalError    = "Internal Server Error"
)

// HTTPError is the body written for a failed request
type HTTPError struct {
	Code   string `json:"-"`
	Detail string `json:"detail"`
}

func (e *HTTPError) Error() string {
	return e.Detail
}

// ErrorToHTTPStatus maps domain errors to HTTP status codes.
// Authentication and authorization failures are both reported as 403.
func ErrorToHTTPStatus(err error) int {
	var authnErr *AuthenticationError
	var authzErr *AuthorizationError

	switch {
	case err == nil:
		return http.StatusOK
	case errors.As(err, &authnErr), errors.As(err, &authzErr):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// ErrorToHTTPError converts domain errors to response bodies
func ErrorToHTTPError(err error) *HTTPError {
	var authnErr *AuthenticationError
	var authzErr *AuthorizationError

	switch {
	case errors.Is(err, ErrMissingCredential):
		return &HTTPError{Code: "NOT_AUTHENTICATED", Detail: DetailNotAuthenticated}
	case errors.Is(err, ErrInvalidCredential):
		return &HTTPError{Code: "INVALID_API_KEY", Detail: DetailInvalidAPIKey}
	case errors.Is(err, ErrIPNotPermitted):
		return &HTTPError{Code: "IP_NOT_PERMITTED", Detail: DetailIPNotPermitted}
	case errors.As(err, &authnErr):
		return &HTTPError{Code: "NOT_AUTHENTICATED", Detail: DetailNotAuthenticated}
	case errors.As(err, &authzErr):
		return &HTTPError{Code: "FORBIDDEN", Detail: DetailIPNotPermitted}
	case errors.Is(err, ErrVerifierNotFound):
		return &HTTPError{Code: "VERIFIER_NOT_FOUND", Detail: DetailInternalError}
	default:
		return &HTTPError{Code: "INTERNAL_ERROR", Detail: DetailInternalError}
	}
}
