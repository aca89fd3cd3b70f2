package ipallowlist

import (
	"context"
	"net/netip"
	"testing"
	"time"

	"keygate/internal/auth"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockLogger struct {
	warnings []string
}

func (m *mockLogger) Debug(msg string, keysAndValues ...any) {}
func (m *mockLogger) Info(msg string, keysAndValues ...any)  {}
func (m *mockLogger) Warn(msg string, keysAndValues ...any)  { m.warnings = append(m.warnings, msg) }
func (m *mockLogger) Error(msg string, keysAndValues ...any) {}
func (m *mockLogger) With(keysAndValues ...any) auth.Logger  { return m }

type mockConfigLoader map[string]string

func (m mockConfigLoader) Get(key string) (string, bool) {
	value, exists := m[key]
	return value, exists
}

func (m mockConfigLoader) GetWithDefault(key, defaultValue string) string {
	if value, exists := m[key]; exists {
		return value
	}
	return defaultValue
}

func (m mockConfigLoader) GetBool(key string) (bool, bool) {
	value, exists := m[key]
	return value == "true", exists
}

func (m mockConfigLoader) GetBoolWithDefault(key string, defaultValue bool) bool {
	if value, exists := m.GetBool(key); exists {
		return value
	}
	return defaultValue
}

func (m mockConfigLoader) GetDuration(key string) (time.Duration, bool) { return 0, false }

func (m mockConfigLoader) GetDurationWithDefault(key string, defaultValue time.Duration) time.Duration {
	return defaultValue
}

func newConfiguredVerifier(t *testing.T, config mockConfigLoader) *Verifier {
	t.Helper()
	v := NewVerifier(&mockLogger{})
	require.NoError(t, v.LoadConfig(config))
	return v
}

func verify(v *Verifier, remoteAddr string, headers map[string]string) error {
	_, err := v.Verify(context.Background(), &auth.RequestContext{RemoteAddr: remoteAddr, Headers: headers})
	return err
}

func TestParseMatchMode(t *testing.T) {
	tests := []struct {
		input   string
		want    MatchMode
		wantErr bool
	}{
		{"", MatchExact, false},
		{"exact", MatchExact, false},
		{"Substring", MatchSubstring, false},
		{" substring ", MatchSubstring, false},
		{"prefix", MatchExact, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseMatchMode(tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidMatchMode)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	assert.Equal(t, "exact", MatchExact.String())
	assert.Equal(t, "substring", MatchSubstring.String())
}

func TestSplitEntries(t *testing.T) {
	tests := []struct {
		input string
		want  []string
	}{
		{"127.0.0.1,10.0.0.5", []string{"127.0.0.1", "10.0.0.5"}},
		{"127.0.0.1, 10.0.0.5", []string{"127.0.0.1", "10.0.0.5"}},
		{`["127.0.0.1", "10.0.0.5"]`, []string{"127.0.0.1", "10.0.0.5"}},
		{"127.0.0.1;10.0.0.0/8\n::1", []string{"127.0.0.1", "10.0.0.0/8", "::1"}},
		{" , ", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, splitEntries(tt.input))
		})
	}
}

func TestParsePrefixes(t *testing.T) {
	prefixes, err := parsePrefixes("127.0.0.1, 10.1.2.3/8, ::ffff:192.168.0.1, fe80::1%eth0, 2001:db8::/32")
	require.NoError(t, err)

	assert.Equal(t, []netip.Prefix{
		netip.MustParsePrefix("127.0.0.1/32"),
		netip.MustParsePrefix("10.0.0.0/8"),
		netip.MustParsePrefix("192.168.0.1/32"),
		netip.MustParsePrefix("fe80::1/128"),
		netip.MustParsePrefix("2001:db8::/32"),
	}, prefixes)

	for _, bad := range []string{"localhost", "10.0.0.0/33", "300.0.0.1"} {
		_, err := parsePrefixes(bad)
		assert.ErrorIs(t, err, ErrInvalidEntry, bad)
	}
}

func TestVerifier_Type(t *testing.T) {
	assert.Equal(t, auth.VerifierTypeIPAllowlist, NewVerifier(&mockLogger{}).Type())
}

func TestVerifier_LoadConfig(t *testing.T) {
	tests := []struct {
		name    string
		config  mockConfigLoader
		wantErr error
	}{
		{"default allow-list", mockConfigLoader{}, nil},
		{"list with ranges", mockConfigLoader{"ip_allowlist.allowed_ips": "127.0.0.1,10.0.0.0/8"}, nil},
		{"empty list", mockConfigLoader{"ip_allowlist.allowed_ips": " , "}, ErrNoAllowedIPs},
		{"invalid entry", mockConfigLoader{"ip_allowlist.allowed_ips": "127.0.0.1,not-an-ip"}, ErrInvalidEntry},
		{"invalid mode", mockConfigLoader{"ip_allowlist.match_mode": "fuzzy"}, ErrInvalidMatchMode},
		{"substring tolerates free text", mockConfigLoader{
			"ip_allowlist.match_mode":  "substring",
			"ip_allowlist.allowed_ips": "office: 10.0.0.5",
		}, nil},
		{"invalid trusted proxy", mockConfigLoader{"ip_allowlist.trusted_proxies": "proxy.local"}, ErrInvalidEntry},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := NewVerifier(&mockLogger{})

			err := v.LoadConfig(tt.config)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.ErrorIs(t, v.Health(context.Background()), ErrNotConfigured)
				return
			}
			require.NoError(t, err)
			assert.NoError(t, v.Health(context.Background()))
		})
	}
}

func TestVerifier_Verify_Exact(t *testing.T) {
	v := newConfiguredVerifier(t, mockConfigLoader{
		"ip_allowlist.allowed_ips": "127.0.0.1,10.0.0.5,192.168.0.0/16,::1",
	})

	tests := []struct {
		name       string
		remoteAddr string
		allowed    bool
	}{
		{"listed address", "127.0.0.1:54321", true},
		{"second listed address", "10.0.0.5:80", true},
		{"address in range", "192.168.44.7:1234", true},
		{"IPv6 loopback", "[::1]:8000", true},
		{"IPv4-mapped IPv6", "[::ffff:127.0.0.1]:8000", true},
		{"address without port", "10.0.0.5", true},
		{"unlisted address", "8.8.8.8:54321", false},
		{"substring of listed address", "0.0.0.5:1", false},
		{"listed address is substring", "10.0.0.50:1", false},
		{"empty peer", "", false},
		{"garbage peer", "not-an-address", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := verify(v, tt.remoteAddr, nil)
			if tt.allowed {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, auth.ErrIPNotPermitted)
			assert.True(t, auth.IsRejection(err))
		})
	}
}

func TestVerifier_Verify_Substring(t *testing.T) {
	v := newConfiguredVerifier(t, mockConfigLoader{
		"ip_allowlist.match_mode":  "substring",
		"ip_allowlist.allowed_ips": "127.0.0.1,10.0.0.5",
	})

	assert.NoError(t, verify(v, "127.0.0.1:54321", nil))
	assert.NoError(t, verify(v, "10.0.0.5:1", nil))
	assert.NoError(t, verify(v, "0.0.0.5:1", nil))
	assert.ErrorIs(t, verify(v, "8.8.8.8:1", nil), auth.ErrIPNotPermitted)
	assert.ErrorIs(t, verify(v, "", nil), auth.ErrIPNotPermitted)
}

func TestVerifier_Verify_Claims(t *testing.T) {
	v := newConfiguredVerifier(t, mockConfigLoader{})

	claims, err := v.Verify(context.Background(), &auth.RequestContext{RemoteAddr: "127.0.0.1:9999"})

	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1", claims.Subject)
	assert.Equal(t, auth.VerifierTypeIPAllowlist, claims.Verifier)
	assert.Equal(t, "127.0.0.1", claims.Attributes["client_ip"])
	assert.Empty(t, claims.Credential)
}

func TestVerifier_Verify_ProxyHeader(t *testing.T) {
	logger := &mockLogger{}
	v := NewVerifier(logger)
	require.NoError(t, v.LoadConfig(mockConfigLoader{
		"ip_allowlist.allowed_ips":     "203.0.113.7",
		"ip_allowlist.proxy_header":    "X-Forwarded-For",
		"ip_allowlist.trusted_proxies": "10.0.0.0/8",
	}))

	t.Run("Trusted proxy forwards allowed client", func(t *testing.T) {
		err := verify(v, "10.1.1.1:4000", map[string]string{"X-Forwarded-For": "203.0.113.7, 10.1.1.1"})
		assert.NoError(t, err)
	})

	t.Run("Trusted proxy forwards denied client", func(t *testing.T) {
		err := verify(v, "10.1.1.1:4000", map[string]string{"X-Forwarded-For": "8.8.8.8"})
		assert.ErrorIs(t, err, auth.ErrIPNotPermitted)
	})

	t.Run("Trusted proxy without header", func(t *testing.T) {
		err := verify(v, "10.1.1.1:4000", nil)
		assert.ErrorIs(t, err, auth.ErrIPNotPermitted)
	})

	t.Run("Untrusted peer cannot spoof", func(t *testing.T) {
		logger.warnings = nil
		err := verify(v, "8.8.8.8:4000", map[string]string{"x-forwarded-for": "203.0.113.7"})
		assert.ErrorIs(t, err, auth.ErrIPNotPermitted)
		assert.Contains(t, logger.warnings, "untrusted peer attempted to set client IP header")
	})
}

func TestVerifier_NotConfigured(t *testing.T) {
	v := NewVerifier(&mockLogger{})

	err := verify(v, "127.0.0.1:1", nil)

	assert.ErrorIs(t, err, ErrNotConfigured)
	assert.False(t, auth.IsRejection(err))
	assert.Equal(t, "not_configured", v.Stats()["status"])
}

func TestVerifier_Stats(t *testing.T) {
	v := newConfiguredVerifier(t, mockConfigLoader{"ip_allowlist.allowed_ips": "127.0.0.1,10.0.0.0/8"})

	stats := v.Stats()
	assert.Equal(t, "exact", stats["match_mode"])
	assert.Equal(t, 2, stats["entries"])
	assert.NoError(t, v.Close())
}
