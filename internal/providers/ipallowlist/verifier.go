package ipallowlist

import (
	"context"
	"fmt"
	"net"
	"net/netip"
	"strings"
	"time"

	"keygate/internal/auth"
)

// Verifier admits requests whose peer address is on the allow-list
type Verifier struct {
	config *Config
	logger auth.Logger
}

// NewVerifier creates a new IP allow-list verifier. Lookups are in-memory,
// so it takes no cache.
func NewVerifier(logger auth.Logger) *Verifier {
	return &Verifier{
		logger: logger.With("verifier", "ip_allowlist"),
	}
}

// Type returns the verifier type
func (v *Verifier) Type() auth.VerifierType {
	return auth.VerifierTypeIPAllowlist
}

// LoadConfig loads and validates IP allow-list configuration
func (v *Verifier) LoadConfig(loader auth.ConfigLoader) error {
	mode, err := ParseMatchMode(loader.GetWithDefault("ip_allowlist.match_mode", "exact"))
	if err != nil {
		return fmt.Errorf("ip_allowlist config validation failed: %w", err)
	}

	config := &Config{
		Mode:        mode,
		Raw:         loader.GetWithDefault("ip_allowlist.allowed_ips", DefaultAllowedIPs),
		ProxyHeader: strings.TrimSpace(loader.GetWithDefault("ip_allowlist.proxy_header", "")),
	}

	if mode == MatchExact {
		config.Allowed, err = parsePrefixes(config.Raw)
		if err != nil {
			return fmt.Errorf("ip_allowlist config validation failed: %w", err)
		}
	}

	config.TrustedProxies, err = parsePrefixes(loader.GetWithDefault("ip_allowlist.trusted_proxies", ""))
	if err != nil {
		return fmt.Errorf("ip_allowlist trusted_proxies: %w", err)
	}

	if err := config.Validate(); err != nil {
		return fmt.Errorf("ip_allowlist config validation failed: %w", err)
	}

	v.config = config
	v.logger.Info("ip_allowlist verifier configured",
		"match_mode", config.Mode.String(),
		"entries", len(config.Allowed),
		"proxy_header", config.ProxyHeader,
		"trusted_proxies", len(config.TrustedProxies))

	if mode == MatchSubstring {
		v.logger.Warn("substring matching admits addresses that only partially match an entry")
	}

	return nil
}

// Verify checks the request's peer address against the allow-list
func (v *Verifier) Verify(ctx context.Context, rc *auth.RequestContext) (*auth.Claims, error) {
	if v.config == nil {
		return nil, ErrNotConfigured
	}

	host := v.clientHost(rc)

	if !v.allowed(host) {
		v.logger.Debug("IP not in allow-list", "ip", host, "request_id", rc.RequestID)
		return nil, auth.ErrIPNotPermitted
	}

	return &auth.Claims{
		Subject:    host,
		Verifier:   auth.VerifierTypeIPAllowlist,
		VerifiedAt: time.Now(),
		Attributes: map[string]any{"client_ip": host},
	}, nil
}

// clientHost returns the address text of the caller. The proxy header is
// believed only when the direct peer is a trusted proxy.
func (v *Verifier) clientHost(rc *auth.RequestContext) string {
	peer := hostOf(rc.RemoteAddr)

	if v.config.ProxyHeader == "" {
		return peer
	}

	forwarded, ok := rc.GetHeader(v.config.ProxyHeader)
	if !ok || forwarded == "" {
		return peer
	}

	if !v.trustedProxy(peer) {
		v.logger.Warn("untrusted peer attempted to set client IP header",
			"peer", peer,
			"header", v.config.ProxyHeader)
		return peer
	}

	first, _, _ := strings.Cut(forwarded, ",")
	return hostOf(strings.TrimSpace(first))
}

func (v *Verifier) trustedProxy(peer string) bool {
	addr, ok := parseAddr(peer)
	if !ok {
		return false
	}
	return containsAddr(v.config.TrustedProxies, addr)
}

func (v *Verifier) allowed(host string) bool {
	if host == "" {
		return false
	}

	if v.config.Mode == MatchSubstring {
		return strings.Contains(v.config.Raw, host)
	}

	addr, ok := parseAddr(host)
	if !ok {
		return false
	}
	return containsAddr(v.config.Allowed, addr)
}

// hostOf strips the port and IPv6 brackets from a peer address
func hostOf(remoteAddr string) string {
	if host, _, err := net.SplitHostPort(remoteAddr); err == nil {
		return host
	}
	return strings.TrimSuffix(strings.TrimPrefix(remoteAddr, "["), "]")
}

func parseAddr(host string) (netip.Addr, bool) {
	addr, err := netip.ParseAddr(host)
	if err != nil {
		return netip.Addr{}, false
	}
	return addr.Unmap().WithZone(""), true
}

func containsAddr(prefixes []netip.Prefix, addr netip.Addr) bool {
	for _, prefix := range prefixes {
		if prefix.Contains(addr) {
			return true
		}
	}
	return false
}

// Health checks the IP allow-list verifier's health
func (v *Verifier) Health(ctx context.Context) error {
	if v.config == nil {
		return ErrNotConfigured
	}
	return nil
}

// Close closes the verifier
func (v *Verifier) Close() error {
	return nil
}

// Stats returns IP allow-list verifier statistics
func (v *Verifier) Stats() map[string]any {
	if v.config == nil {
		return map[string]any{
			"status": "not_configured",
		}
	}

	return map[string]any{
		"match_mode":      v.config.Mode.String(),
		"entries":         len(v.config.Allowed),
		"proxy_header":    v.config.ProxyHeader,
		"trusted_proxies": len(v.config.TrustedProxies),
	}
}
