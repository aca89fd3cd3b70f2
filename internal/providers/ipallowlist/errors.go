package ipallowlist

import "errors"

// IP allow-list specific errors
var (
	ErrNoAllowedIPs     = errors.New("no allowed IPs or CIDRs configured")
	ErrInvalidEntry     = errors.New("invalid IP or CIDR")
	ErrInvalidMatchMode = errors.New("invalid match mode")
	ErrNotConfigured    = errors.New("ip_allowlist verifier not configured")
)
