package ollama

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
	defaultBaseURL = "http://localhost:11434"
	defaultModel   = "llama3.2"
)

// Adapter implements providers.Provider for a local Ollama runtime.
type Adapter struct {
	config     providers.Config
	httpClient *http.Client
}

// New creates a new Ollama adapter. No API key is needed; the runtime is
// assumed to listen on localhost unless BaseURL says otherwise.
func New(config providers.Config) *Adapter {
	if config.BaseURL == "" {
		config.BaseURL = defaultBaseURL
	}
	if config.Model == "" {
		config.Model = defaultModel
	}
	if config.Timeout == 0 {
		// local generation without GPU can be slow
		config.Timeout = 120 * time.Second
	}
	if config.ProbeTimeout == 0 {
		config.ProbeTimeout = 2 * time.Second
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
	return "ollama"
}

// IsAvailable probes the runtime's tag listing endpoint.
func (a *Adapter) IsAvailable(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, a.config.ProbeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.config.BaseURL+"/api/tags", nil)
	if err != nil {
		return false
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	return resp.StatusCode == http.StatusOK
}

// GenerateCompletion performs a single non-streaming chat call.
func (a *Adapter) GenerateCompletion(ctx context.Context, messages []providers.Message, opts providers.GenerationOptions) (*providers.CompletionResult, error) {
	body, err := json.Marshal(a.buildRequest(messages, opts))
	if err != nil {
		return nil, providers.NewProviderError(a.Name(), 0, "failed to marshal request", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.config.BaseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return nil, providers.NewProviderError(a.Name(), 0, "failed to create request", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

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

	result := &providers.CompletionResult{
		Content:  chatResp.Message.Content,
		Provider: a.Name(),
	}

	// older runtimes do not report eval counts; omit usage entirely then
	if chatResp.PromptEvalCount > 0 || chatResp.EvalCount > 0 {
		result.Usage = &providers.Usage{
			PromptTokens:     chatResp.PromptEvalCount,
			CompletionTokens: chatResp.EvalCount,
			TotalTokens:      chatResp.PromptEvalCount + chatResp.EvalCount,
		}
	}

	return result, nil
}

// buildRequest maps the neutral request onto the Ollama wire format. Roles
// pass through unchanged; sampling options go into the options object.
func (a *Adapter) buildRequest(messages []providers.Message, opts providers.GenerationOptions) *chatRequest {
	req := &chatRequest{
		Model:    a.config.Model,
		Messages: make([]chatMessage, len(messages)),
		Stream:   false,
		Options:  map[string]any{},
	}
	if opts.Model != "" {
		req.Model = opts.Model
	}

	for i, msg := range messages {
		req.Messages[i] = chatMessage{Role: msg.Role, Content: msg.Content}
	}

	if opts.Temperature != nil {
		req.Options["temperature"] = *opts.Temperature
	}
	if opts.MaxTokens != nil {
		req.Options["num_predict"] = *opts.MaxTokens
	}
	if opts.TopP != nil {
		req.Options["top_p"] = *opts.TopP
	}
	if len(req.Options) == 0 {
		req.Options = nil
	}

	return req
}

func (a *Adapter) errorFromResponse(statusCode int, body []byte) error {
	var errResp errorResponse
	if err := json.Unmarshal(body, &errResp); err != nil || errResp.Error == "" {
		return providers.NewProviderError(a.Name(), statusCode, string(body), nil)
	}
	return providers.NewProviderError(a.Name(), statusCode, errResp.Error, nil)
}

// Ollama wire types

type chatRequest struct {
	Model    string         `json:"model"`
	Messages []chatMessage  `json:"messages"`
	Stream   bool           `json:"stream"`
	Options  map[string]any `json:"options,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Model           string      `json:"model"`
	Message         chatMessage `json:"message"`
	Done            bool        `json:"done"`
	PromptEvalCount int         `json:"prompt_eval_count"`
	EvalCount       int         `json:"eval_count"`
}

type errorResponse struct {
	Error string `json:"error"`
}
