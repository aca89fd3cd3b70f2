package auth

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"
)

type MockVerifier struct {
	mock.Mock
	verifierType VerifierType
}

func (m *MockVerifier) Type() VerifierType {
	return m.verifierType
}

func (m *MockVerifier) LoadConfig(loader ConfigLoader) error {
	args := m.Called(loader)
	return args.Error(0)
}

func (m *MockVerifier) Verify(ctx context.Context, rc *RequestContext) (*Claims, error) {
	args := m.Called(ctx, rc)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Claims), args.Error(1)
}

func (m *MockVerifier) Health(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockVerifier) Close() error {
	args := m.Called()
	return args.Error(0)
}

type MockCache struct {
	mock.Mock
}

func (m *MockCache) Get(ctx context.Context, key string) ([]byte, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	args := m.Called(ctx, key, value, ttl)
	return args.Error(0)
}

func (m *MockCache) Delete(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func (m *MockCache) Exists(ctx context.Context, key string) bool {
	args := m.Called(ctx, key)
	return args.Bool(0)
}

func (m *MockCache) Close() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockCache) Stats() CacheStats {
	args := m.Called()
	return args.Get(0).(CacheStats)
}

// stubConfigLoader answers every lookup with the default
type stubConfigLoader struct{}

func (stubConfigLoader) Get(key string) (string, bool) { return "", false }

func (stubConfigLoader) GetWithDefault(key, defaultValue string) string { return defaultValue }

func (stubConfigLoader) GetBool(key string) (bool, bool) { return false, false }

func (stubConfigLoader) GetBoolWithDefault(key string, defaultValue bool) bool {
	return defaultValue
}

func (stubConfigLoader) GetDuration(key string) (time.Duration, bool) { return 0, false }

func (stubConfigLoader) GetDurationWithDefault(key string, defaultValue time.Duration) time.Duration {
	return defaultValue
}

type MockMetrics struct {
	mock.Mock
}

func (m *MockMetrics) IncVerifications(verifier string, result string) {
	m.Called(verifier, result)
}

func (m *MockMetrics) ObserveVerificationDuration(verifier string, duration time.Duration) {
	m.Called(verifier, duration)
}

func (m *MockMetrics) IncCacheHits(verifier string) {
	m.Called(verifier)
}

func (m *MockMetrics) IncCacheMisses(verifier string) {
	m.Called(verifier)
}

func (m *MockMetrics) IncRequests(route string, status int) {
	m.Called(route, status)
}

func (m *MockMetrics) ObserveRequestDuration(route string, duration time.Duration) {
	m.Called(route, duration)
}

func (m *MockMetrics) SetVerifierStatus(verifier string, healthy bool) {
	m.Called(verifier, healthy)
}

type MockLogger struct {
	mock.Mock
}

func (m *MockLogger) Debug(msg string, keysAndValues ...any) {
	m.Called(append([]any{msg}, keysAndValues...)...)
}

func (m *MockLogger) Info(msg string, keysAndValues ...any) {
	m.Called(append([]any{msg}, keysAndValues...)...)
}

func (m *MockLogger) Warn(msg string, keysAndValues ...any) {
	m.Called(append([]any{msg}, keysAndValues...)...)
}

func (m *MockLogger) Error(msg string, keysAndValues ...any) {
	m.Called(append([]any{msg}, keysAndValues...)...)
}

func (m *MockLogger) With(keysAndValues ...any) Logger {
	args := m.Called(keysAndValues)
	return args.Get(0).(Logger)
}

type nopLogger struct{}

func (nopLogger) Debug(msg string, keysAndValues ...any) {}
func (nopLogger) Info(msg string, keysAndValues ...any)  {}
func (nopLogger) Warn(msg string, keysAndValues ...any)  {}
func (nopLogger) Error(msg string, keysAndValues ...any) {}
func (l nopLogger) With(keysAndValues ...any) Logger     { return l }
