package dispatch

import "time"

// Config is the process-wide dispatch configuration. It is built once at
// startup and treated as read-only during dispatch; callers snapshot it per
// request. DefaultProvider need not appear in FallbackOrder, and
// FallbackOrder may contain names that are not registered (they are skipped,
// not an error).
type Config struct {
	// DefaultProvider handles requests that do not name a provider
	DefaultProvider string

	// FallbackOrder lists the providers tried, at most once each, after the
	// primary's retries are exhausted
	FallbackOrder []string

	// RetryAttempts is the number of tries against the primary, minimum 1
	RetryAttempts int

	// RetryBaseDelay is the backoff unit; the wait after attempt n is
	// RetryBaseDelay * n
	RetryBaseDelay time.Duration
}

// Normalize returns a copy with invariants enforced.
func (c Config) Normalize() Config {
	if c.RetryAttempts < 1 {
		c.RetryAttempts = 1
	}
	if c.RetryBaseDelay < 0 {
		c.RetryBaseDelay = 0
	}
	return c
}
