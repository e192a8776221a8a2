package dispatch

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/fabriq-ai/chatcore/services/providers"
)

// Policy turns one logical completion request into a sequence of adapter
// calls: a bounded retry loop against the primary provider, then a
// single-shot walk of the fallback chain. It is stateless across calls; no
// per-provider health history is carried between requests, and the fallback
// order is exactly the configured sequence.
type Policy struct {
	registry *providers.Registry
	logger   *zap.Logger

	// sleep is swapped out in tests to observe backoff without waiting
	sleep func(ctx context.Context, d time.Duration) error
}

// NewPolicy creates a dispatch policy over the given registry
func NewPolicy(registry *providers.Registry, logger *zap.Logger) *Policy {
	return &Policy{
		registry: registry,
		logger:   logger,
		sleep:    sleepContext,
	}
}

// Dispatch resolves the primary provider, retries it up to cfg.RetryAttempts
// times with linear backoff, and on exhaustion tries each fallback candidate
// once. Attempts are strictly sequential; there is no racing of providers.
//
// The returned result's Provider field always names the adapter that
// produced the content. On total exhaustion the error wraps the primary's
// final failure, with fallback failures only logged.
func (p *Policy) Dispatch(ctx context.Context, cfg Config, messages []providers.Message, opts providers.GenerationOptions) (*providers.CompletionResult, error) {
	cfg = cfg.Normalize()

	primary := opts.Provider
	if primary == "" {
		primary = cfg.DefaultProvider
	}

	adapter, ok := p.registry.Get(primary)
	if primary == "" || !ok {
		return nil, &ConfigurationError{Provider: primary}
	}

	var lastErr error
	for attempt := 1; attempt <= cfg.RetryAttempts; attempt++ {
		result, err := p.tryProvider(ctx, adapter, primary, messages, opts)
		if err == nil {
			return result, nil
		}
		lastErr = err

		p.logger.Warn("completion attempt failed",
			zap.String("provider", primary),
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", cfg.RetryAttempts),
			zap.Error(err))

		if attempt < cfg.RetryAttempts {
			if err := p.sleep(ctx, cfg.RetryBaseDelay*time.Duration(attempt)); err != nil {
				return nil, err
			}
		}
	}

	// each candidate is tried at most once, even if configured twice
	tried := map[string]bool{primary: true}
	for _, name := range cfg.FallbackOrder {
		if tried[name] {
			continue
		}
		tried[name] = true

		candidate, ok := p.registry.Get(name)
		if !ok {
			continue
		}

		result, err := p.tryProvider(ctx, candidate, name, messages, opts)
		if err == nil {
			p.logger.Info("fallback provider served completion",
				zap.String("primary", primary),
				zap.String("provider", name))
			return result, nil
		}

		p.logger.Warn("fallback provider failed",
			zap.String("provider", name),
			zap.Error(err))
	}

	return nil, &AllProvidersExhaustedError{Provider: primary, Err: lastErr}
}

// tryProvider probes the adapter and, when it reports available, performs
// one completion call. A failed probe counts as a failed attempt without
// spending a completion call on a provider already known to be down.
func (p *Policy) tryProvider(ctx context.Context, adapter providers.Provider, name string, messages []providers.Message, opts providers.GenerationOptions) (*providers.CompletionResult, error) {
	if !adapter.IsAvailable(ctx) {
		return nil, &ProviderUnavailableError{Provider: name}
	}

	result, err := adapter.GenerateCompletion(ctx, messages, opts)
	if err != nil {
		return nil, &ProviderCallError{Provider: name, Err: err}
	}

	result.Provider = name
	return result, nil
}

// sleepContext waits for d or until the context is done, so caller
// cancellation cuts backoff short.
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
