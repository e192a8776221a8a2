package anthropic

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/fabriq-ai/chatcore/services/providers"
)

const (
	defaultBaseURL = "https://api.anthropic.com"
	defaultModel   = "claude-3-5-haiku-latest"
	apiVersion     = "2023-06-01"

	// applied when the request does not set a temperature
	defaultTemperature = 0.7

	// the messages API requires max_tokens; used when the request omits it
	defaultMaxTokens = 1024
)

// Adapter implements providers.Provider for the Anthropic messages API.
type Adapter struct {
	config     providers.Config
	httpClient *http.Client
}

// New creates a new Anthropic adapter
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
	return "anthropic"
}

// IsAvailable probes the models endpoint with the configured credentials.
func (a *Adapter) IsAvailable(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, a.config.ProbeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.config.BaseURL+"/v1/models", nil)
	if err != nil {
		return false
	}
	req.Header.Set("x-api-key", a.config.APIKey)
	req.Header.Set("anthropic-version", apiVersion)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	return resp.StatusCode == http.StatusOK
}

// GenerateCompletion performs a single messages API call.
func (a *Adapter) GenerateCompletion(ctx context.Context, messages []providers.Message, opts providers.GenerationOptions) (*providers.CompletionResult, error) {
	body, err := json.Marshal(a.buildRequest(messages, opts))
	if err != nil {
		return nil, providers.NewProviderError(a.Name(), 0, "failed to marshal request", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.config.BaseURL+"/v1/messages", bytes.NewReader(body))
	if err != nil {
		return nil, providers.NewProviderError(a.Name(), 0, "failed to create request", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", a.config.APIKey)
	httpReq.Header.Set("anthropic-version", apiVersion)

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

	var msgResp messageResponse
	if err := json.Unmarshal(respBody, &msgResp); err != nil {
		return nil, providers.NewProviderError(a.Name(), httpResp.StatusCode, "failed to unmarshal response", err)
	}

	var content strings.Builder
	for _, block := range msgResp.Content {
		if block.Type == "text" {
			content.WriteString(block.Text)
		}
	}
	if content.Len() == 0 {
		return nil, providers.NewProviderError(a.Name(), httpResp.StatusCode, "response contained no text content", nil)
	}

	return &providers.CompletionResult{
		Content: content.String(),
		Usage: &providers.Usage{
			PromptTokens:     msgResp.Usage.InputTokens,
			CompletionTokens: msgResp.Usage.OutputTokens,
			TotalTokens:      msgResp.Usage.InputTokens + msgResp.Usage.OutputTokens,
		},
		Provider: a.Name(),
	}, nil
}

// buildRequest maps the neutral request onto the Anthropic wire format.
// Anthropic has no system role in its message list; system messages are
// folded into the top-level system field instead.
func (a *Adapter) buildRequest(messages []providers.Message, opts providers.GenerationOptions) *messageRequest {
	req := &messageRequest{
		Model:     a.config.Model,
		MaxTokens: defaultMaxTokens,
	}
	if opts.Model != "" {
		req.Model = opts.Model
	}
	if opts.MaxTokens != nil {
		req.MaxTokens = *opts.MaxTokens
	}

	var system []string
	for _, msg := range messages {
		if msg.Role == providers.RoleSystem {
			system = append(system, msg.Content)
			continue
		}
		req.Messages = append(req.Messages, chatMessage{Role: msg.Role, Content: msg.Content})
	}
	req.System = strings.Join(system, "\n\n")

	temperature := defaultTemperature
	if opts.Temperature != nil {
		temperature = *opts.Temperature
	}
	req.Temperature = &temperature

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

// Anthropic wire types

type messageRequest struct {
	Model       string        `json:"model"`
	MaxTokens   int           `json:"max_tokens"`
	System      string        `json:"system,omitempty"`
	Messages    []chatMessage `json:"messages"`
	Temperature *float64      `json:"temperature,omitempty"`
	TopP        *float64      `json:"top_p,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messageResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Role    string `json:"role"`
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
	Usage      struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

type errorResponse struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}
