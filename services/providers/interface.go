package providers

import (
	"context"
	"fmt"
	"time"
)

// Message roles shared by all providers. Adapters translate these into the
// vendor's own role vocabulary.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Provider is the unified interface every vendor adapter implements.
// Implementations hold no mutable state between calls; a single instance is
// safe for concurrent use.
type Provider interface {
	// Name returns the provider name (e.g., "openai", "anthropic", "ollama")
	Name() string

	// IsAvailable performs a cheap liveness probe. It returns false on any
	// transport or auth error and never panics. A true result is not a
	// guarantee; the provider can still fail on the next call.
	IsAvailable(ctx context.Context) bool

	// GenerateCompletion performs exactly one outbound completion call.
	// It fails with a descriptive error on any non-success response or
	// network failure; it never masks a failure with an empty result.
	GenerateCompletion(ctx context.Context, messages []Message, opts GenerationOptions) (*CompletionResult, error)
}

// Message is a single entry in a conversation. Ordering is chronological;
// a system message conventionally comes first.
type Message struct {
	// Role is one of RoleSystem, RoleUser, RoleAssistant
	Role string `json:"role"`

	// Content is the message text
	Content string `json:"content"`
}

// GenerationOptions tunes a single completion call. All fields are optional;
// absent values fall back to adapter- or dispatch-level defaults. The struct
// lives only for the duration of one call and is never persisted.
type GenerationOptions struct {
	// Provider overrides the configured default provider
	Provider string `json:"provider,omitempty"`

	// Model overrides the adapter's default model
	Model string `json:"model,omitempty"`

	// Temperature controls randomness
	Temperature *float64 `json:"temperature,omitempty"`

	// MaxTokens limits the response length
	MaxTokens *int `json:"max_tokens,omitempty"`

	// TopP controls nucleus sampling
	TopP *float64 `json:"top_p,omitempty"`
}

// Usage holds token accounting as reported by the vendor.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// CompletionResult is the vendor-neutral outcome of one completion.
type CompletionResult struct {
	// Content is the generated text
	Content string `json:"content"`

	// Usage is nil when the vendor does not report token counts
	Usage *Usage `json:"usage,omitempty"`

	// Provider names the adapter that actually produced the content. After
	// fallback this may differ from the provider the caller asked for.
	Provider string `json:"provider"`
}

// Config holds the common per-vendor adapter settings.
type Config struct {
	// APIKey for authentication (unused by local runtimes)
	APIKey string

	// BaseURL overrides the vendor's default endpoint
	BaseURL string

	// Model used when the request does not name one
	Model string

	// Timeout for completion calls
	Timeout time.Duration

	// ProbeTimeout bounds the liveness probe
	ProbeTimeout time.Duration
}

// ProviderError is the error adapters return for failed completion calls.
type ProviderError struct {
	// Provider that generated the error
	Provider string

	// StatusCode is the HTTP status code, 0 for transport failures
	StatusCode int

	// Message describes the failure
	Message string

	// Cause is the underlying error, if any
	Cause error
}

func (e *ProviderError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: %s (status %d)", e.Provider, e.Message, e.StatusCode)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Provider, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Provider, e.Message)
}

func (e *ProviderError) Unwrap() error {
	return e.Cause
}

// NewProviderError creates a new provider error
func NewProviderError(provider string, statusCode int, message string, cause error) *ProviderError {
	return &ProviderError{
		Provider:   provider,
		StatusCode: statusCode,
		Message:    message,
		Cause:      cause,
	}
}
