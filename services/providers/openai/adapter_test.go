package openai

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/fabriq-ai/chatcore/services/providers"
)

func TestNew_Defaults(t *testing.T) {
	adapter := New(providers.Config{APIKey: "test-key"})

	if adapter.Name() != "openai" {
		t.Errorf("Name() = %s, want openai", adapter.Name())
	}
	if adapter.config.BaseURL != defaultBaseURL {
		t.Errorf("BaseURL = %s, want %s", adapter.config.BaseURL, defaultBaseURL)
	}
	if adapter.config.Model != defaultModel {
		t.Errorf("Model = %s, want %s", adapter.config.Model, defaultModel)
	}
}

func TestGenerateCompletion(t *testing.T) {
	var gotBody chatRequest
	var gotAuth string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")

		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &gotBody); err != nil {
			t.Fatalf("failed to decode request body: %v", err)
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "chatcmpl-123",
			"model": "gpt-4o-mini",
			"choices": [{"index": 0, "message": {"role": "assistant", "content": "Hello there"}, "finish_reason": "stop"}],
			"usage": {"prompt_tokens": 12, "completion_tokens": 4, "total_tokens": 16}
		}`))
	}))
	defer server.Close()

	adapter := New(providers.Config{APIKey: "test-key", BaseURL: server.URL})

	messages := []providers.Message{
		{Role: providers.RoleSystem, Content: "You are helpful."},
		{Role: providers.RoleUser, Content: "Hi"},
	}

	result, err := adapter.GenerateCompletion(context.Background(), messages, providers.GenerationOptions{})
	if err != nil {
		t.Fatalf("GenerateCompletion() error = %v", err)
	}

	if result.Content != "Hello there" {
		t.Errorf("Content = %q, want %q", result.Content, "Hello there")
	}
	if result.Provider != "openai" {
		t.Errorf("Provider = %s, want openai", result.Provider)
	}
	if result.Usage == nil || result.Usage.TotalTokens != 16 {
		t.Errorf("Usage = %+v, want total 16", result.Usage)
	}

	if gotAuth != "Bearer test-key" {
		t.Errorf("Authorization = %q, want Bearer test-key", gotAuth)
	}

	// roles pass through unchanged
	if len(gotBody.Messages) != 2 || gotBody.Messages[0].Role != "system" || gotBody.Messages[1].Role != "user" {
		t.Errorf("messages not passed through: %+v", gotBody.Messages)
	}

	// default model and temperature applied when unset
	if gotBody.Model != defaultModel {
		t.Errorf("Model = %s, want %s", gotBody.Model, defaultModel)
	}
	if gotBody.Temperature == nil || *gotBody.Temperature != defaultTemperature {
		t.Errorf("Temperature = %v, want %v", gotBody.Temperature, defaultTemperature)
	}
}

func TestGenerateCompletion_OptionsOverrideDefaults(t *testing.T) {
	var gotBody chatRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &gotBody)
		_, _ = w.Write([]byte(`{"choices": [{"message": {"role": "assistant", "content": "ok"}}], "usage": {}}`))
	}))
	defer server.Close()

	adapter := New(providers.Config{APIKey: "test-key", BaseURL: server.URL})

	temperature := 0.2
	maxTokens := 50
	topP := 0.9
	opts := providers.GenerationOptions{
		Model:       "gpt-4o",
		Temperature: &temperature,
		MaxTokens:   &maxTokens,
		TopP:        &topP,
	}

	if _, err := adapter.GenerateCompletion(context.Background(), []providers.Message{{Role: "user", Content: "hi"}}, opts); err != nil {
		t.Fatalf("GenerateCompletion() error = %v", err)
	}

	if gotBody.Model != "gpt-4o" {
		t.Errorf("Model = %s, want gpt-4o", gotBody.Model)
	}
	if gotBody.Temperature == nil || *gotBody.Temperature != 0.2 {
		t.Errorf("Temperature = %v, want 0.2", gotBody.Temperature)
	}
	if gotBody.MaxTokens == nil || *gotBody.MaxTokens != 50 {
		t.Errorf("MaxTokens = %v, want 50", gotBody.MaxTokens)
	}
	if gotBody.TopP == nil || *gotBody.TopP != 0.9 {
		t.Errorf("TopP = %v, want 0.9", gotBody.TopP)
	}
}

func TestGenerateCompletion_VendorError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error": {"message": "Incorrect API key provided", "type": "invalid_request_error"}}`))
	}))
	defer server.Close()

	adapter := New(providers.Config{APIKey: "bad-key", BaseURL: server.URL})

	_, err := adapter.GenerateCompletion(context.Background(), []providers.Message{{Role: "user", Content: "hi"}}, providers.GenerationOptions{})
	if err == nil {
		t.Fatal("expected error, got nil")
	}

	var provErr *providers.ProviderError
	if !errors.As(err, &provErr) {
		t.Fatalf("error type = %T, want *providers.ProviderError", err)
	}
	if provErr.StatusCode != http.StatusUnauthorized {
		t.Errorf("StatusCode = %d, want 401", provErr.StatusCode)
	}
	if provErr.Provider != "openai" {
		t.Errorf("Provider = %s, want openai", provErr.Provider)
	}
}

func TestIsAvailable(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   bool
	}{
		{name: "healthy", status: http.StatusOK, want: true},
		{name: "auth error", status: http.StatusUnauthorized, want: false},
		{name: "server error", status: http.StatusInternalServerError, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/models" {
					t.Errorf("unexpected probe path %s", r.URL.Path)
				}
				w.WriteHeader(tt.status)
			}))
			defer server.Close()

			adapter := New(providers.Config{APIKey: "test-key", BaseURL: server.URL})

			if got := adapter.IsAvailable(context.Background()); got != tt.want {
				t.Errorf("IsAvailable() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsAvailable_Unreachable(t *testing.T) {
	adapter := New(providers.Config{APIKey: "test-key", BaseURL: "http://127.0.0.1:1"})

	if adapter.IsAvailable(context.Background()) {
		t.Error("IsAvailable() = true for unreachable endpoint")
	}
}
