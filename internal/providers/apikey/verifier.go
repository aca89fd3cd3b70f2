package apikey

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"keygate/internal/auth"
)

// Verifier checks that a request carries the configured API key
type Verifier struct {
	config      *Config
	subject     string
	logger      auth.Logger
	metrics     auth.Metrics
	cache       auth.Cache
	lockManager auth.LockManager
}

// NewVerifier creates a new API key verifier
func NewVerifier(cache auth.Cache, lockManager auth.LockManager, logger auth.Logger, metrics auth.Metrics) *Verifier {
	return &Verifier{
		logger:      logger.With("verifier", "api_key"),
		metrics:     metrics,
		cache:       cache,
		lockManager: lockManager,
	}
}

// Type returns the verifier type
func (v *Verifier) Type() auth.VerifierType {
	return auth.VerifierTypeAPIKey
}

// LoadConfig loads and validates API key configuration
func (v *Verifier) LoadConfig(loader auth.ConfigLoader) error {
	config := &Config{
		HeaderName: loader.GetWithDefault("api_key.header_name", DefaultHeaderName),
		Secret:     loader.GetWithDefault("api_key.secret", ""),
		CacheTTL:   loader.GetDurationWithDefault("api_key.cache_ttl", DefaultCacheTTL),
	}

	if err := config.Validate(); err != nil {
		return fmt.Errorf("api_key config validation failed: %w", err)
	}

	v.config = config
	v.subject = "api_key:" + fingerprint(config.Secret)
	v.logger.Info("api_key verifier configured",
		"header_name", config.HeaderName,
		"cache_ttl", config.CacheTTL)

	return nil
}

// HeaderName returns the header the key is read from, or the default before
// LoadConfig has run
func (v *Verifier) HeaderName() string {
	if v.config == nil {
		return DefaultHeaderName
	}
	return v.config.HeaderName
}

// Verify reads the configured header and compares it with the secret.
// An absent header and an empty one are both a missing credential.
func (v *Verifier) Verify(ctx context.Context, rc *auth.RequestContext) (*auth.Claims, error) {
	if v.config == nil {
		return nil, ErrNotConfigured
	}

	presented, ok := rc.GetHeader(v.config.HeaderName)
	if !ok || presented == "" {
		return nil, auth.ErrMissingCredential
	}

	if v.config.CacheTTL == 0 {
		return v.compare(presented)
	}

	cacheKey := v.cacheKey(presented)

	v.lockManager.Lock(cacheKey)
	defer v.lockManager.Unlock(cacheKey)

	if claims := v.getCachedClaims(ctx, cacheKey); claims != nil {
		v.metrics.IncCacheHits("api_key")
		claims.Credential = presented
		return claims, nil
	}
	v.metrics.IncCacheMisses("api_key")

	claims, err := v.compare(presented)
	if err != nil {
		return nil, err
	}

	v.setCachedClaims(ctx, cacheKey, claims)
	return claims, nil
}

func (v *Verifier) compare(presented string) (*auth.Claims, error) {
	if subtle.ConstantTimeCompare([]byte(presented), []byte(v.config.Secret)) != 1 {
		return nil, auth.ErrInvalidCredential
	}

	return &auth.Claims{
		Subject:    v.subject,
		Verifier:   auth.VerifierTypeAPIKey,
		VerifiedAt: time.Now(),
		Attributes: map[string]any{"header": v.config.HeaderName},
		Credential: presented,
	}, nil
}

// cacheKey binds the presented value to the configured secret, so changing the
// secret orphans every remembered result
func (v *Verifier) cacheKey(presented string) string {
	hasher := sha256.New()
	hasher.Write([]byte(v.config.Secret))
	hasher.Write([]byte{0})
	hasher.Write([]byte(presented))
	return "api_key:" + hex.EncodeToString(hasher.Sum(nil))[:32]
}

func (v *Verifier) getCachedClaims(ctx context.Context, cacheKey string) *auth.Claims {
	data, err := v.cache.Get(ctx, cacheKey)
	if err != nil {
		if !errors.Is(err, auth.ErrCacheKeyNotFound) {
			v.logger.Debug("cache get error", "error", err)
		}
		return nil
	}

	var claims auth.Claims
	if err := json.Unmarshal(data, &claims); err != nil {
		v.logger.Debug("cache unmarshal error", "error", err)
		return nil
	}

	return &claims
}

func (v *Verifier) setCachedClaims(ctx context.Context, cacheKey string, claims *auth.Claims) {
	data, err := json.Marshal(claims)
	if err != nil {
		v.logger.Debug("cache marshal error", "error", err)
		return
	}

	if err := v.cache.Set(ctx, cacheKey, data, v.config.CacheTTL); err != nil {
		v.logger.Debug("cache set error", "error", err)
	}
}

// fingerprint identifies a key in logs and claims without revealing it
func fingerprint(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])[:12]
}

// Health checks the API key verifier's health
func (v *Verifier) Health(ctx context.Context) error {
	if v.config == nil {
		return ErrNotConfigured
	}
	return nil
}

// Close has nothing to release; the cache belongs to the guard
func (v *Verifier) Close() error {
	return nil
}

// Stats returns API key verifier statistics
func (v *Verifier) Stats() map[string]any {
	if v.config == nil {
		return map[string]any{
			"status": "not_configured",
		}
	}

	return map[string]any{
		"header_name": v.config.HeaderName,
		"cache_ttl":   v.config.CacheTTL.String(),
		"subject":     v.subject,
	}
}
