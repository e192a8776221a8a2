package dispatch

import "fmt"

// ConfigurationError means no usable primary provider could be resolved:
// neither the requested name nor the configured default is registered.
// It is surfaced immediately, without retries or fallback.
type ConfigurationError struct {
	// Provider is the name that failed to resolve; empty when no provider
	// was requested and no default is configured.
	Provider string
}

func (e *ConfigurationError) Error() string {
	if e.Provider == "" {
		return "no provider requested and no default provider configured"
	}
	return fmt.Sprintf("provider %q is not registered", e.Provider)
}

// ProviderUnavailableError records a liveness probe that returned false at
// dispatch time. It counts as a failed attempt and drives progression to the
// next attempt or candidate.
type ProviderUnavailableError struct {
	Provider string
}

func (e *ProviderUnavailableError) Error() string {
	return fmt.Sprintf("provider %q reported unavailable", e.Provider)
}

// ProviderCallError records a completion call that failed (network, auth,
// vendor-side error). All failure classes propagate identically.
type ProviderCallError struct {
	Provider string
	Err      error
}

func (e *ProviderCallError) Error() string {
	return fmt.Sprintf("provider %q call failed: %v", e.Provider, e.Err)
}

func (e *ProviderCallError) Unwrap() error {
	return e.Err
}

// AllProvidersExhaustedError means every primary retry and every fallback
// candidate failed. It wraps the primary's final error, not any fallback's,
// so callers see a single reproducible failure cause.
type AllProvidersExhaustedError struct {
	// Provider is the primary provider's name
	Provider string

	// Err is the error captured from the primary's final attempt
	Err error
}

func (e *AllProvidersExhaustedError) Error() string {
	return fmt.Sprintf("all providers exhausted; primary %q last error: %v", e.Provider, e.Err)
}

func (e *AllProvidersExhaustedError) Unwrap() error {
	return e.Err
}
