package completion

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fabriq-ai/chatcore/models"
	"github.com/fabriq-ai/chatcore/services/dispatch"
	"github.com/fabriq-ai/chatcore/services/providers"
)

type stubProvider struct {
	name      string
	available bool
	result    *providers.CompletionResult
	err       error
}

func (s *stubProvider) Name() string { return s.name }

func (s *stubProvider) IsAvailable(ctx context.Context) bool { return s.available }

func (s *stubProvider) GenerateCompletion(ctx context.Context, messages []providers.Message, opts providers.GenerationOptions) (*providers.CompletionResult, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

// recordingRepo captures stored records and signals each write
type recordingRepo struct {
	mu      sync.Mutex
	records []*models.CompletionRecord
	wrote   chan struct{}
}

func newRecordingRepo() *recordingRepo {
	return &recordingRepo{wrote: make(chan struct{}, 8)}
}

func (r *recordingRepo) Create(ctx context.Context, rec *models.CompletionRecord) error {
	r.mu.Lock()
	r.records = append(r.records, rec)
	r.mu.Unlock()
	r.wrote <- struct{}{}
	return nil
}

func (r *recordingRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.CompletionRecord, error) {
	return nil, errors.New("not implemented")
}

func (r *recordingRepo) ListRecent(ctx context.Context, limit int) ([]*models.CompletionRecord, error) {
	return nil, errors.New("not implemented")
}

func (r *recordingRepo) waitForWrite(t *testing.T) *models.CompletionRecord {
	t.Helper()
	select {
	case <-r.wrote:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for completion record write")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	return r.records[len(r.records)-1]
}

func userMessages() []providers.Message {
	return []providers.Message{{Role: providers.RoleUser, Content: "hi"}}
}

func TestService_CompleteDelegatesToPolicy(t *testing.T) {
	svc := NewService(nil, zap.NewNop())
	svc.RegisterProvider(&stubProvider{
		name:      "openai",
		available: true,
		result: &providers.CompletionResult{
			Content:  "hello",
			Usage:    &providers.Usage{PromptTokens: 3, CompletionTokens: 2, TotalTokens: 5},
			Provider: "openai",
		},
	})
	svc.Configure(dispatch.Config{DefaultProvider: "openai", RetryAttempts: 1})

	result, err := svc.Complete(context.Background(), userMessages(), providers.GenerationOptions{})
	require.NoError(t, err)

	assert.Equal(t, "hello", result.Content)
	assert.Equal(t, "openai", result.Provider)
}

func TestService_CompleteWithoutConfigurationFails(t *testing.T) {
	svc := NewService(nil, zap.NewNop())

	_, err := svc.Complete(context.Background(), userMessages(), providers.GenerationOptions{})

	var confErr *dispatch.ConfigurationError
	assert.True(t, errors.As(err, &confErr))
}

func TestService_ConfigureReplacesConfiguration(t *testing.T) {
	svc := NewService(nil, zap.NewNop())
	svc.RegisterProvider(&stubProvider{
		name:      "anthropic",
		available: true,
		result:    &providers.CompletionResult{Content: "ok", Provider: "anthropic"},
	})

	svc.Configure(dispatch.Config{DefaultProvider: "missing", RetryAttempts: 1})
	_, err := svc.Complete(context.Background(), userMessages(), providers.GenerationOptions{})
	require.Error(t, err)

	svc.Configure(dispatch.Config{DefaultProvider: "anthropic", RetryAttempts: 1})
	result, err := svc.Complete(context.Background(), userMessages(), providers.GenerationOptions{})
	require.NoError(t, err)
	assert.Equal(t, "anthropic", result.Provider)
}

func TestService_StatusQueriesDoNotMutate(t *testing.T) {
	svc := NewService(nil, zap.NewNop())
	svc.RegisterProvider(&stubProvider{name: "openai", available: true})
	svc.RegisterProvider(&stubProvider{name: "ollama", available: false})

	for i := 0; i < 3; i++ {
		assert.Equal(t, []string{"openai", "ollama"}, svc.ListProviders())
		assert.Equal(t, map[string]bool{"openai": true, "ollama": false}, svc.CheckAvailability(context.Background()))
	}
}

func TestService_RecordsSuccessfulDispatch(t *testing.T) {
	repo := newRecordingRepo()
	svc := NewService(repo, zap.NewNop())
	svc.RegisterProvider(&stubProvider{
		name:      "openai",
		available: true,
		result: &providers.CompletionResult{
			Content:  "hello",
			Usage:    &providers.Usage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15},
			Provider: "openai",
		},
	})
	svc.Configure(dispatch.Config{DefaultProvider: "openai", RetryAttempts: 1})

	_, err := svc.Complete(context.Background(), userMessages(), providers.GenerationOptions{Model: "gpt-4o"})
	require.NoError(t, err)

	rec := repo.waitForWrite(t)
	assert.Equal(t, models.CompletionStatusSucceeded, rec.Status)
	assert.Equal(t, "openai", rec.Provider)
	assert.Equal(t, "gpt-4o", rec.Model)
	assert.Equal(t, 15, rec.TotalTokens)
	assert.Nil(t, rec.ErrorMessage)
}

func TestService_RecordsFailedDispatch(t *testing.T) {
	repo := newRecordingRepo()
	svc := NewService(repo, zap.NewNop())
	svc.RegisterProvider(&stubProvider{name: "openai", available: true, err: errors.New("boom")})
	svc.Configure(dispatch.Config{DefaultProvider: "openai", RetryAttempts: 1})

	_, err := svc.Complete(context.Background(), userMessages(), providers.GenerationOptions{})
	require.Error(t, err)

	rec := repo.waitForWrite(t)
	assert.Equal(t, models.CompletionStatusFailed, rec.Status)
	require.NotNil(t, rec.ErrorMessage)
	assert.Contains(t, *rec.ErrorMessage, "boom")
}
