// Package testutil provides common utilities and helpers for testing
package testutil

import (
	"context"
	"testing"
	"time"

	"keygate/internal/auth"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// Values used by TestRequestContext and TestConfig
const (
	TestHeaderName = "X-API-Key"
	TestSecret     = "s3cr3t"
	TestAllowedIPs = "127.0.0.1,10.0.0.5"
)

// TestRequestContext creates a RequestContext carrying the test key from a loopback peer
func TestRequestContext() *auth.RequestContext {
	return &auth.RequestContext{
		Headers: map[string]string{
			TestHeaderName: TestSecret,
			"Accept":       "application/json",
		},
		RemoteAddr: "127.0.0.1:12345",
		Method:     "GET",
		Path:       "/secure-access",
		RequestID:  "test-request-id",
	}
}

// TestClaims creates claims as the API key verifier would produce them
func TestClaims() *auth.Claims {
	return &auth.Claims{
		Subject:    "api_key:0123456789ab",
		Verifier:   auth.VerifierTypeAPIKey,
		VerifiedAt: time.Now(),
		Attributes: map[string]any{
			"header": TestHeaderName,
		},
		Credential: TestSecret,
	}
}

// TestConfig creates a Config with the defaults the loader would apply
func TestConfig() *auth.Config {
	return &auth.Config{
		Server: auth.ServerConfig{
			Port:            "8000",
			Host:            "127.0.0.1",
			ReadTimeout:     5 * time.Second,
			WriteTimeout:    5 * time.Second,
			IdleTimeout:     30 * time.Second,
			ShutdownTimeout: 5 * time.Second,
			MaxHeaderBytes:  1 << 20,
		},
		Cache: auth.CacheConfig{
			Type:            auth.CacheTypeMemory,
			MaxKeys:         100,
			CleanupInterval: time.Minute,
		},
		Logging: auth.LoggingConfig{Level: "debug", Format: "json"},
		Metrics: auth.MetricsConfig{Enabled: false, Path: "/metrics", Port: "9090"},
	}
}

// AssertClaimsEqual checks if two Claims are equal, ignoring VerifiedAt
func AssertClaimsEqual(t *testing.T, expected, actual *auth.Claims) {
	t.Helper()
	assert.Equal(t, expected.Subject, actual.Subject)
	assert.Equal(t, expected.Verifier, actual.Verifier)
	assert.Equal(t, expected.Credential, actual.Credential)

	for k, v := range expected.Attributes {
		assert.Equal(t, v, actual.Attributes[k])
	}
}

// MockVerifier creates a mock verifier for testing
func MockVerifier(verifierType auth.VerifierType) *MockVerifierImpl {
	return &MockVerifierImpl{
		verifierType: verifierType,
	}
}

// MockVerifierImpl is a mock implementation of Verifier for testing
type MockVerifierImpl struct {
	mock.Mock
	verifierType auth.VerifierType
}

func (m *MockVerifierImpl) Type() auth.VerifierType {
	return m.verifierType
}

func (m *MockVerifierImpl) LoadConfig(loader auth.ConfigLoader) error {
	args := m.Called(loader)
	return args.Error(0)
}

func (m *MockVerifierImpl) Verify(ctx context.Context, rc *auth.RequestContext) (*auth.Claims, error) {
	args := m.Called(ctx, rc)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*auth.Claims), args.Error(1)
}

func (m *MockVerifierImpl) Health(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockVerifierImpl) Close() error {
	args := m.Called()
	return args.Error(0)
}

// MockGuard creates a mock guard for testing
func MockGuard() *MockGuardImpl {
	return &MockGuardImpl{}
}

// MockGuardImpl is a mock of the guard operations the HTTP layer uses
type MockGuardImpl struct {
	mock.Mock
}

func (m *MockGuardImpl) Check(ctx context.Context, chain []auth.VerifierType, rc *auth.RequestContext) auth.Result {
	args := m.Called(ctx, chain, rc)
	return args.Get(0).(auth.Result)
}

func (m *MockGuardImpl) Health(ctx context.Context) map[string]error {
	args := m.Called(ctx)
	return args.Get(0).(map[string]error)
}

// MockCache creates a mock cache for testing
func MockCache() *MockCacheImpl {
	return &MockCacheImpl{}
}

// MockCacheImpl is a mock implementation of Cache for testing
type MockCacheImpl struct {
	mock.Mock
}

func (m *MockCacheImpl) Get(ctx context.Context, key string) ([]byte, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockCacheImpl) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	args := m.Called(ctx, key, value, ttl)
	return args.Error(0)
}

func (m *MockCacheImpl) Delete(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func (m *MockCacheImpl) Exists(ctx context.Context, key string) bool {
	args := m.Called(ctx, key)
	return args.Bool(0)
}

func (m *MockCacheImpl) Close() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockCacheImpl) Stats() auth.CacheStats {
	args := m.Called()
	return args.Get(0).(auth.CacheStats)
}

// MockConfigLoader creates a mock config loader for testing
func MockConfigLoader() *MockConfigLoaderImpl {
	return &MockConfigLoaderImpl{}
}

// MockConfigLoaderImpl is a mock implementation of ConfigLoader for testing
type MockConfigLoaderImpl struct {
	mock.Mock
}

func (m *MockConfigLoaderImpl) Get(key string) (string, bool) {
	args := m.Called(key)
	return args.String(0), args.Bool(1)
}

func (m *MockConfigLoaderImpl) GetWithDefault(key, defaultValue string) string {
	args := m.Called(key, defaultValue)
	return args.String(0)
}

func (m *MockConfigLoaderImpl) GetBool(key string) (bool, bool) {
	args := m.Called(key)
	return args.Bool(0), args.Bool(1)
}

func (m *MockConfigLoaderImpl) GetBoolWithDefault(key string, defaultValue bool) bool {
	args := m.Called(key, defaultValue)
	return args.Bool(0)
}

func (m *MockConfigLoaderImpl) GetDuration(key string) (time.Duration, bool) {
	args := m.Called(key)
	return args.Get(0).(time.Duration), args.Bool(1)
}

func (m *MockConfigLoaderImpl) GetDurationWithDefault(key string, defaultValue time.Duration) time.Duration {
	args := m.Called(key, defaultValue)
	return args.Get(0).(time.Duration)
}

// MockMetrics creates a mock metrics for testing
func MockMetrics() *MockMetricsImpl {
	return &MockMetricsImpl{}
}

// MockMetricsImpl is a mock implementation of Metrics for testing
type MockMetricsImpl struct {
	mock.Mock
}

func (m *MockMetricsImpl) IncVerifications(verifier string, result string) {
	m.Called(verifier, result)
}

func (m *MockMetricsImpl) ObserveVerificationDuration(verifier string, duration time.Duration) {
	m.Called(verifier, duration)
}

func (m *MockMetricsImpl) IncCacheHits(verifier string) {
	m.Called(verifier)
}

func (m *MockMetricsImpl) IncCacheMisses(verifier string) {
	m.Called(verifier)
}

func (m *MockMetricsImpl) IncRequests(route string, status int) {
	m.Called(route, status)
}

func (m *MockMetricsImpl) ObserveRequestDuration(route string, duration time.Duration) {
	m.Called(route, duration)
}

func (m *MockMetricsImpl) SetVerifierStatus(verifier string, healthy bool) {
	m.Called(verifier, healthy)
}

// MockLogger creates a mock logger for testing
func MockLogger() *MockLoggerImpl {
	return &MockLoggerImpl{}
}

// MockLoggerImpl is a mock implementation of Logger for testing
type MockLoggerImpl struct {
	mock.Mock
}

func (m *MockLoggerImpl) Info(msg string, keysAndValues ...any) {
	args := []any{msg}
	args = append(args, keysAndValues...)
	m.Called(args...)
}

func (m *MockLoggerImpl) Debug(msg string, keysAndValues ...any) {
	args := []any{msg}
	args = append(args, keysAndValues...)
	m.Called(args...)
}

func (m *MockLoggerImpl) Error(msg string, keysAndValues ...any) {
	args := []any{msg}
	args = append(args, keysAndValues...)
	m.Called(args...)
}

func (m *MockLoggerImpl) Warn(msg string, keysAndValues ...any) {
	args := []any{msg}
	args = append(args, keysAndValues...)
	m.Called(args...)
}

func (m *MockLoggerImpl) With(keysAndValues ...any) auth.Logger {
	args := m.Called(keysAndValues)
	return args.Get(0).(auth.Logger)
}

// NopLogger discards everything
type NopLogger struct{}

func (NopLogger) Debug(msg string, keysAndValues ...any) {}
func (NopLogger) Info(msg string, keysAndValues ...any)  {}
func (NopLogger) Warn(msg string, keysAndValues ...any)  {}
func (NopLogger) Error(msg string, keysAndValues ...any) {}
func (l NopLogger) With(keysAndValues ...any) auth.Logger {
	return l
}

// NopMetrics discards every observation
type NopMetrics struct{}

func (NopMetrics) IncVerifications(verifier string, result string)                     {}
func (NopMetrics) ObserveVerificationDuration(verifier string, duration time.Duration) {}
func (NopMetrics) IncCacheHits(verifier string)                                        {}
func (NopMetrics) IncCacheMisses(verifier string)                                      {}
func (NopMetrics) IncRequests(route string, status int)                                {}
func (NopMetrics) ObserveRequestDuration(route string, duration time.Duration)         {}
func (NopMetrics) SetVerifierStatus(verifier string, healthy bool)                     {}

// TimeEquals checks if two times are approximately equal (within 1 second)
func TimeEquals(t *testing.T, expected, actual time.Time, msgAndArgs ...any) {
	t.Helper()
	diff := expected.Sub(actual)
	if diff < 0 {
		diff = -diff
	}
	assert.True(t, diff < time.Second, msgAndArgs...)
}

// WithTimeout runs a test function with a timeout context
func WithTimeout(t *testing.T, timeout time.Duration, fn func(ctx context.Context)) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		fn(ctx)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		t.Fatal("Test timed out")
	}
}

// MustNotPanic ensures that a function doesn't panic
func MustNotPanic(t *testing.T, fn func()) {
	t.Helper()
	defer func() {
		if r := recover(); r != nil {
			t.Fatalf("Function panicked: %v", r)
		}
	}()
	fn()
}
