package ipallowlist

import (
	"fmt"
	"net/netip"
	"strings"
)

// DefaultAllowedIPs is used when no allow-list is configured
const DefaultAllowedIPs = "127.0.0.1"

// MatchMode selects how a peer address is looked up in the allow-list
type MatchMode int

const (
	// MatchExact requires the peer to equal a listed address or fall in a listed range
	MatchExact MatchMode = iota

	// MatchSubstring accepts any peer whose address text occurs in the raw list.
	// "10.0.0.1" therefore also admits "0.0.0.1" and "10.0.0.10" admits "10.0.0.1".
	MatchSubstring
)

// String returns the string representation of the match mode
func (m MatchMode) String() string {
	if m == MatchSubstring {
		return "substring"
	}
	return "exact"
}

// ParseMatchMode parses a match mode name
func ParseMatchMode(s string) (MatchMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "exact":
		return MatchExact, nil
	case "substring":
		return MatchSubstring, nil
	default:
		return MatchExact, fmt.Errorf("%w: %q", ErrInvalidMatchMode, s)
	}
}

// Config holds IP allow-list configuration
type Config struct {
	Mode MatchMode `yaml:"match_mode"`

	// Raw is the allow-list as configured; substring matching searches it
	Raw string `yaml:"allowed_ips"`

	// Allowed holds the parsed entries; single addresses become full-length prefixes
	Allowed []netip.Prefix `yaml:"-"`

	ProxyHeader    string         `yaml:"proxy_header"`    // e.g. "X-Forwarded-For"
	TrustedProxies []netip.Prefix `yaml:"trusted_proxies"` // peers allowed to set ProxyHeader
}

// Validate validates the IP allow-list configuration
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Raw) == "" {
		return ErrNoAllowedIPs
	}
	if c.Mode == MatchExact && len(c.Allowed) == 0 {
		return ErrNoAllowedIPs
	}
	return nil
}

// splitEntries splits a list written as "a,b", "a b", "a;b" or ["a", "b"]
func splitEntries(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		switch r {
		case ',', ' ', '\t', '\n', '\r', ';', '"', '\'', '[', ']':
			return true
		}
		return false
	})
}

// parsePrefixes parses address literals and CIDR ranges
func parsePrefixes(s string) ([]netip.Prefix, error) {
	var prefixes []netip.Prefix
	for _, entry := range splitEntries(s) {
		prefix, err := parsePrefix(entry)
		if err != nil {
			return nil, err
		}
		prefixes = append(prefixes, prefix)
	}
	return prefixes, nil
}

func parsePrefix(entry string) (netip.Prefix, error) {
	if strings.Contains(entry, "/") {
		prefix, err := netip.ParsePrefix(entry)
		if err != nil {
			return netip.Prefix{}, fmt.Errorf("%w: %s", ErrInvalidEntry, entry)
		}
		return prefix.Masked(), nil
	}

	addr, err := netip.ParseAddr(entry)
	if err != nil {
		return netip.Prefix{}, fmt.Errorf("%w: %s", ErrInvalidEntry, entry)
	}
	addr = addr.Unmap().WithZone("")
	return netip.PrefixFrom(addr, addr.BitLen()), nil
}
