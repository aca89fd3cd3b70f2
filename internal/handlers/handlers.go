package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"keygate/internal/auth"
)

// GuardInterface is the part of the guard the HTTP layer depends on
type GuardInterface interface {
	Check(ctx context.Context, chain []auth.VerifierType, rc *auth.RequestContext) auth.Result
	Health(ctx context.Context) map[string]error
}

// HealthStatus represents health check status
type HealthStatus int

const (
	HealthStatusHealthy HealthStatus = iota
	HealthStatusUnhealthy
	HealthStatusDegraded
)

// String returns the string representation of the health status
func (h HealthStatus) String() string {
	switch h {
	case HealthStatusHealthy:
		return "healthy"
	case HealthStatusUnhealthy:
		return "unhealthy"
	case HealthStatusDegraded:
		return "degraded"
	default:
		return "unknown"
	}
}

// MarshalJSON implements json.Marshaler interface
func (h HealthStatus) MarshalJSON() ([]byte, error) {
	return json.Marshal(h.String())
}

// Route is a protected endpoint: the verifiers it runs, in order, and the
// message it answers with once they all pass
type Route struct {
	Name    string
	Path    string
	Chain   []auth.VerifierType
	Message string
}

// Routes returns the protected endpoints
func Routes() []Route {
	return []Route{
		{
			Name:    "secure_data",
			Path:    "/secure-data",
			Chain:   []auth.VerifierType{auth.VerifierTypeAPIKey},
			Message: "Truy cập thành công!",
		},
		{
			Name:    "secure_access",
			Path:    "/secure-access",
			Chain:   []auth.VerifierType{auth.VerifierTypeAPIKey, auth.VerifierTypeIPAllowlist},
			Message: "Truy cập hợp lệ!",
		},
	}
}

// MessageResponse is the body of a successful protected request
type MessageResponse struct {
	Message string `json:"message"`
}

// Handlers contains all HTTP handlers with shared dependencies
type Handlers struct {
	guard   GuardInterface
	cache   auth.Cache
	logger  auth.Logger
	metrics auth.Metrics
}

// NewHandlers creates a new handlers instance with injected dependencies
func NewHandlers(guard GuardInterface, cache auth.Cache, logger auth.Logger, metrics auth.Metrics) *Handlers {
	return &Handlers{
		guard:   guard,
		cache:   cache,
		logger:  logger.With("component", "handlers"),
		metrics: metrics,
	}
}

// GuardedHandler runs the route's verifier chain and writes either the
// route's message or the reason the first failing verifier gave
func (h *Handlers) GuardedHandler(route Route) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rc := h.createRequestContext(r)

		result := h.guard.Check(r.Context(), route.Chain, rc)
		if !result.Allowed() {
			h.writeError(w, auth.ErrorToHTTPError(result.Err), auth.ErrorToHTTPStatus(result.Err))
			return
		}

		h.writeJSON(w, http.StatusOK, MessageResponse{Message: route.Message})
	}
}

// HealthCheckHandler handles GET /health requests
func (h *Handlers) HealthCheckHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	response := HealthResponse{
		Timestamp: time.Now(),
		Verifiers: make(map[string]VerifierHealth),
	}

	allHealthy := true
	for name, err := range h.guard.Health(ctx) {
		verifierHealth := VerifierHealth{
			Status: HealthStatusHealthy,
		}

		if err != nil {
			verifierHealth.Status = HealthStatusUnhealthy
			verifierHealth.Error = err.Error()
			allHealthy = false
		}

		response.Verifiers[name] = verifierHealth
	}

	cacheStats := h.cache.Stats()
	response.Cache = CacheHealth{
		Type:   cacheStats.Type,
		Status: HealthStatusHealthy,
		Stats:  cacheStats,
	}

	statusCode := http.StatusOK
	response.Status = HealthStatusHealthy
	if !allHealthy {
		statusCode = http.StatusServiceUnavailable
		response.Status = HealthStatusUnhealthy
	}

	h.writeJSON(w, statusCode, response)

	h.logger.Debug("health check completed",
		"status", response.Status.String(),
		"verifiers_count", len(response.Verifiers))
}

// NotFoundHandler answers requests for unknown paths
func (h *Handlers) NotFoundHandler(w http.ResponseWriter, r *http.Request) {
	h.writeError(w, &auth.HTTPError{Code: "NOT_FOUND", Detail: "Not Found"}, http.StatusNotFound)
}

// MethodNotAllowedHandler answers known paths requested with the wrong method
func (h *Handlers) MethodNotAllowedHandler(w http.ResponseWriter, r *http.Request) {
	h.writeError(w, &auth.HTTPError{Code: "METHOD_NOT_ALLOWED", Detail: "Method Not Allowed"}, http.StatusMethodNotAllowed)
}

// createRequestContext copies what the verifiers need out of the request.
// Only the first value of a repeated header is kept.
func (h *Handlers) createRequestContext(r *http.Request) *auth.RequestContext {
	headers := make(map[string]string, len(r.Header))
	for name, values := range r.Header {
		if len(values) > 0 {
			headers[name] = values[0]
		}
	}

	return &auth.RequestContext{
		Headers:    headers,
		RemoteAddr: r.RemoteAddr,
		Method:     r.Method,
		Path:       r.URL.Path,
		RequestID:  RequestIDFromContext(r.Context()),
	}
}

func (h *Handlers) writeJSON(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.Warn("failed to encode response", "error", err)
	}
}

func (h *Handlers) writeError(w http.ResponseWriter, httpErr *auth.HTTPError, statusCode int) {
	h.writeJSON(w, statusCode, httpErr)

	h.logger.Debug("request failed",
		"code", httpErr.Code,
		"status", statusCode)
}

// HealthResponse types
type HealthResponse struct {
	Status    HealthStatus              `json:"status"`
	Timestamp time.Time                 `json:"timestamp"`
	Verifiers map[string]VerifierHealth `json:"verifiers"`
	Cache     CacheHealth               `json:"cache"`
}

type VerifierHealth struct {
	Status HealthStatus `json:"status"`
	Error  string       `json:"error,omitempty"`
}

type CacheHealth struct {
	Type   auth.CacheType  `json:"type"`
	Status HealthStatus    `json:"status"`
	Stats  auth.CacheStats `json:"stats"`
}
