package auth

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"time"

	"keygate/pkg/concurrency"
)

// Guard holds the registered verifiers and runs ordered chains of them
type Guard struct {
	verifiers    map[VerifierType]Verifier
	cache        Cache
	config       *Config
	configLoader ConfigLoader
	metrics      Metrics
	logger       Logger
	lockManager  LockManager
}

// NewGuard creates a new Guard instance
func NewGuard(config *Config, configLoader ConfigLoader, cache Cache, metrics Metrics, logger Logger) *Guard {
	return &Guard{
		verifiers:    make(map[VerifierType]Verifier),
		cache:        cache,
		config:       config,
		configLoader: configLoader,
		metrics:      metrics,
		logger:       logger,
		lockManager:  concurrency.NewMutexManager(),
	}
}

// RegisterVerifier loads the verifier's configuration and registers it.
// Registration happens before the server starts; the verifier map is read-only afterwards.
func (g *Guard) RegisterVerifier(verifier Verifier) error {
	if err := verifier.LoadConfig(g.configLoader); err != nil {
		return fmt.Errorf("failed to load config for verifier %s: %w", verifier.Type(), err)
	}

	g.verifiers[verifier.Type()] = verifier
	g.logger.Info("registered verifier", "verifier", verifier.Type().String())
	return nil
}

// LockManager returns the lock manager instance
func (g *Guard) LockManager() LockManager {
	return g.lockManager
}

// Check runs the chain in order and stops at the first verifier that rejects
// the request. Claims from passed verifiers are merged into one set.
func (g *Guard) Check(ctx context.Context, chain []VerifierType, rc *RequestContext) Result {
	if len(chain) == 0 {
		return Result{Err: ErrVerifierNotFound}
	}

	var (
		merged *Claims
		passed []string
	)

	for _, verifierType := range chain {
		verifier, exists := g.verifiers[verifierType]
		if !exists {
			g.metrics.IncVerifications(verifierType.String(), "verifier_not_found")
			g.logger.Error("verifier not registered", "verifier", verifierType.String())
			return Result{Err: ErrVerifierNotFound, FailedAt: verifierType}
		}

		start := time.Now()
		claims, err := verifier.Verify(ctx, rc)
		g.metrics.ObserveVerificationDuration(verifierType.String(), time.Since(start))

		if err != nil {
			g.metrics.IncVerifications(verifierType.String(), "failure")
			if IsRejection(err) {
				g.logger.Debug("request rejected",
					"verifier", verifierType.String(),
					"passed", passed,
					"request_id", rc.RequestID,
					"error", err)
			} else {
				g.logger.Error("verification failed",
					"verifier", verifierType.String(),
					"passed", passed,
					"request_id", rc.RequestID,
					"error", err)
			}
			return Result{Err: err, FailedAt: verifierType}
		}

		g.metrics.IncVerifications(verifierType.String(), "success")
		passed = append(passed, verifierType.String())

		if merged == nil {
			merged = claims
		} else {
			merged = mergeClaims(merged, claims)
		}
	}

	if len(chain) > 1 {
		if merged.Attributes == nil {
			merged.Attributes = make(map[string]any)
		}
		merged.Attributes["verifiers"] = passed
	}

	g.logger.Debug("request allowed",
		"verifiers", passed,
		"subject", merged.Subject,
		"request_id", rc.RequestID)

	return Result{Claims: merged}
}

// Health checks the health of all registered verifiers
func (g *Guard) Health(ctx context.Context) map[string]error {
	results := make(map[string]error)
	for verifierType, verifier := range g.verifiers {
		err := verifier.Health(ctx)
		g.metrics.SetVerifierStatus(verifierType.String(), err == nil)
		results[verifierType.String()] = err
	}
	return results
}

// IsRejection reports whether err is an expected rejection of the caller
// rather than a failure of the service
func IsRejection(err error) bool {
	var authnErr *AuthenticationError
	var authzErr *AuthorizationError
	return errors.As(err, &authnErr) || errors.As(err, &authzErr)
}

// mergeClaims keeps the first verifier's subject and credential and folds in
// the attributes of later verifiers
func mergeClaims(base, next *Claims) *Claims {
	if base.Subject == "" {
		base.Subject = next.Subject
	}
	if base.Credential == "" {
		base.Credential = next.Credential
	}
	if next.VerifiedAt.After(base.VerifiedAt) {
		base.VerifiedAt = next.VerifiedAt
	}

	if next.Attributes != nil {
		if base.Attributes == nil {
			base.Attributes = make(map[string]any)
		}
		maps.Copy(base.Attributes, next.Attributes)
	}

	return base
}

// Close closes all verifiers and the cache
func (g *Guard) Close() error {
	g.logger.Info("closing guard", "verifiers_count", len(g.verifiers))

	for verifierType, verifier := range g.verifiers {
		if err := verifier.Close(); err != nil {
			g.logger.Error("failed to close verifier", "verifier", verifierType.String(), "error", err)
		}
	}

	if err := g.cache.Close(); err != nil {
		g.logger.Error("failed to close cache", "error", err)
		return err
	}

	g.logger.Info("guard closed")
	return nil
}
