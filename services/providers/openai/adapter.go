package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/fabriq-ai/chatcore/services/providers"
)

const (
	defaultBaseURL = "https://api.openai.com/v1"
	defaultModel   = "gpt-4o-mini"

	// applied when the request does not set a temperature
	defaultTemperature = 0.7
)

// Adapter implements providers.Provider for the OpenAI chat completions API.
type Adapter struct {
	config     providers.Config
	httpClient *http.Client
}

// New creates a new OpenAI adapter
func New(config providers.Config) *Adapter {
	if config.BaseURL == "" {
		config.BaseURL = defaultBaseURL
	}
	if config.Model == "" {
		config.Model = defaultModel
	}
	if config.Timeout == 0 {
		config.Timeout = 60 * time.Second
	}
	if config.ProbeTimeout == 0 {
		config.ProbeTimeout = 5 * time.Second
	}

	return &Adapter{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
	}
}

// Name returns the provider name
func (a *Adapter) Name() string {
	return "openai"
}

// IsAvailable probes the models endpoint with the configured credentials.
// Any transport or auth failure reports the provider as down.
func (a *Adapter) IsAvailable(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, a.config.ProbeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.config.BaseURL+"/models", nil)
	if err != nil {
		return false
	}
	req.Header.Set("Authorization", "Bearer "+a.config.APIKey)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	return resp.StatusCode == http.StatusOK
}

// GenerateCompletion performs a single chat completion call. Retries belong
// to the dispatch policy, not here.
func (a *Adapter) GenerateCompletion(ctx context.Context, messages []providers.Message, opts providers.GenerationOptions) (*providers.CompletionResult, error) {
	body, err := json.Marshal(a.buildRequest(messages, opts))
	if err != nil {
		return nil, providers.NewProviderError(a.Name(), 0, "failed to marshal request", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.config.BaseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, providers.NewProviderError(a.Name(), 0, "failed to create request", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+a.config.APIKey)

	httpResp, err := a.httpClient.Do(httpReq)
	if err != nil {
		return nil, providers.NewProviderError(a.Name(), 0, "request failed", err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, providers.NewProviderError(a.Name(), httpResp.StatusCode, "failed to read response", err)
	}

	if httpResp.StatusCode != http.StatusOK {
		return nil, a.errorFromResponse(httpResp.StatusCode, respBody)
	}

	var chatResp chatResponse
	if err := json.Unmarshal(respBody, &chatResp); err != nil {
		return nil, providers.NewProviderError(a.Name(), httpResp.StatusCode, "failed to unmarshal response", err)
	}
	if len(chatResp.Choices) == 0 {
		return nil, providers.NewProviderError(a.Name(), httpResp.StatusCode, "response contained no choices", nil)
	}

	return &providers.CompletionResult{
		Content: chatResp.Choices[0].Message.Content,
		Usage: &providers.Usage{
			PromptTokens:     chatResp.Usage.PromptTokens,
			CompletionTokens: chatResp.Usage.CompletionTokens,
			TotalTokens:      chatResp.Usage.TotalTokens,
		},
		Provider: a.Name(),
	}, nil
}

// buildRequest maps the neutral request onto the OpenAI wire format. The
// shared roles match OpenAI's vocabulary, so messages pass through unchanged.
func (a *Adapter) buildRequest(messages []providers.Message, opts providers.GenerationOptions) *chatRequest {
	req := &chatRequest{
		Model:    a.config.Model,
		Messages: make([]chatMessage, len(messages)),
	}
	if opts.Model != "" {
		req.Model = opts.Model
	}

	for i, msg := range messages {
		req.Messages[i] = chatMessage{Role: msg.Role, Content: msg.Content}
	}

	temperature := defaultTemperature
	if opts.Temperature != nil {
		temperature = *opts.Temperature
	}
	req.Temperature = &temperature

	if opts.MaxTokens != nil {
		req.MaxTokens = opts.MaxTokens
	}
	if opts.TopP != nil {
		req.TopP = opts.TopP
	}

	return req
}

func (a *Adapter) errorFromResponse(statusCode int, body []byte) error {
	var errResp errorResponse
	if err := json.Unmarshal(body, &errResp); err != nil || errResp.Error.Message == "" {
		return providers.NewProviderError(a.Name(), statusCode, string(body), nil)
	}
	return providers.NewProviderError(a.Name(), statusCode, errResp.Error.Message, nil)
}

// OpenAI wire types

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature *float64      `json:"temperature,omitempty"`
	MaxTokens   *int          `json:"max_tokens,omitempty"`
	TopP        *float64      `json:"top_p,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Index        int         `json:"index"`
		Message      chatMessage `json:"message"`
		FinishReason string      `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

type errorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}
