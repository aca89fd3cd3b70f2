// Package metrics exposes guard and HTTP metrics in Prometheus format.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"keygate/internal/auth"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "keygate"

// Metrics implements auth.Metrics on a private Prometheus registry
type Metrics struct {
	config   auth.MetricsConfig
	registry *prometheus.Registry

	verifications        *prometheus.CounterVec
	verificationDuration *prometheus.HistogramVec
	cacheHits            *prometheus.CounterVec
	cacheMisses          *prometheus.CounterVec
	requests             *prometheus.CounterVec
	requestDuration      *prometheus.HistogramVec
	verifierUp           *prometheus.GaugeVec
}

// NewMetrics creates the collectors and registers them
func NewMetrics(config auth.MetricsConfig) (*Metrics, error) {
	m := &Metrics{
		config:   config,
		registry: prometheus.NewRegistry(),
		verifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "verifications_total",
			Help:      "Verifier outcomes by verifier and result.",
		}, []string{"verifier", "result"}),
		verificationDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "verification_duration_seconds",
			Help:      "Time spent in a verifier.",
			Buckets:   []float64{.00005, .0001, .0005, .001, .005, .01, .05},
		}, []string{"verifier"}),
		cacheHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_hits_total",
			Help:      "Verification cache hits.",
		}, []string{"verifier"}),
		cacheMisses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_misses_total",
			Help:      "Verification cache misses.",
		}, []string{"verifier"}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status code.",
		}, []string{"route", "code"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
		verifierUp: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "verifier_up",
			Help:      "1 if the verifier reported healthy on the last health check.",
		}, []string{"verifier"}),
	}

	collectorsToRegister := []prometheus.Collector{
		m.verifications,
		m.verificationDuration,
		m.cacheHits,
		m.cacheMisses,
		m.requests,
		m.requestDuration,
		m.verifierUp,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	}
	for _, c := range collectorsToRegister {
		if err := m.registry.Register(c); err != nil {
			return nil, fmt.Errorf("failed to register collector: %w", err)
		}
	}

	return m, nil
}

func (m *Metrics) IncVerifications(verifier string, result string) {
	m.verifications.WithLabelValues(verifier, result).Inc()
}

func (m *Metrics) ObserveVerificationDuration(verifier string, duration time.Duration) {
	m.verificationDuration.WithLabelValues(verifier).Observe(duration.Seconds())
}

func (m *Metrics) IncCacheHits(verifier string) {
	m.cacheHits.WithLabelValues(verifier).Inc()
}

func (m *Metrics) IncCacheMisses(verifier string) {
	m.cacheMisses.WithLabelValues(verifier).Inc()
}

func (m *Metrics) IncRequests(route string, status int) {
	m.requests.WithLabelValues(route, strconv.Itoa(status)).Inc()
}

func (m *Metrics) ObserveRequestDuration(route string, duration time.Duration) {
	m.requestDuration.WithLabelValues(route).Observe(duration.Seconds())
}

func (m *Metrics) SetVerifierStatus(verifier string, healthy bool) {
	value := 0.0
	if healthy {
		value = 1
	}
	m.verifierUp.WithLabelValues(verifier).Set(value)
}

// Registry returns the registry the collectors live in
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Server exposes the metrics handler on its own port
type Server struct {
	httpServer *http.Server
	listener   net.Listener
	logger     auth.Logger
}

// NewServer binds the metrics listener on host and the configured port
func (m *Metrics) NewServer(host string, logger auth.Logger) (*Server, error) {
	mux := http.NewServeMux()
	mux.Handle(m.config.Path, m.Handler())

	addr := net.JoinHostPort(host, m.config.Port)
	var lc net.ListenConfig
	ln, err := lc.Listen(context.Background(), "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	return &Server{
		httpServer: &http.Server{
			Handler:           mux,
			ReadHeaderTimeout: 3 * time.Second,
			ReadTimeout:       5 * time.Second,
			WriteTimeout:      10 * time.Second,
			IdleTimeout:       15 * time.Second,
		},
		listener: ln,
		logger:   logger.With("component", "metrics"),
	}, nil
}

// Addr returns the bound address
func (s *Server) Addr() string {
	return s.listener.Addr().String()
}

// Start serves until Stop is called
func (s *Server) Start() error {
	s.logger.Info("starting metrics server", "address", s.Addr())
	if err := s.httpServer.Serve(s.listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("metrics server failed: %w", err)
	}
	return nil
}

// Stop shuts the server down
func (s *Server) Stop(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
