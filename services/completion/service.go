package completion

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fabriq-ai/chatcore/models"
	"github.com/fabriq-ai/chatcore/repositories"
	"github.com/fabriq-ai/chatcore/services/dispatch"
	"github.com/fabriq-ai/chatcore/services/providers"
)

// Service is the single entry point the serving layer calls for completions.
// It owns the provider registry and the dispatch policy, and records each
// dispatch outcome when a repository is wired in.
//
// Complete calls are independent and may run concurrently; the configuration
// is snapshotted per call via an atomic pointer, so Configure during
// in-flight calls is last-write-wins.
type Service struct {
	registry *providers.Registry
	policy   *dispatch.Policy
	config   atomic.Pointer[dispatch.Config]

	// records is nil when no database is configured; recording is then off
	records repositories.CompletionRecordRepository
	logger  *zap.Logger
}

// NewService creates a completion service. records may be nil.
func NewService(records repositories.CompletionRecordRepository, logger *zap.Logger) *Service {
	registry := providers.NewRegistry()

	s := &Service{
		registry: registry,
		policy:   dispatch.NewPolicy(registry, logger),
		records:  records,
		logger:   logger,
	}

	cfg := dispatch.Config{}.Normalize()
	s.config.Store(&cfg)

	return s
}

// Configure stores or replaces the dispatch configuration. Safe to call
// before any Complete call; concurrent with in-flight Complete calls the
// ordering is last-write-wins.
func (s *Service) Configure(cfg dispatch.Config) {
	normalized := cfg.Normalize()
	s.config.Store(&normalized)
}

// RegisterProvider adds an adapter to the registry
func (s *Service) RegisterProvider(adapter providers.Provider) {
	s.registry.Register(adapter)
	s.logger.Info("registered provider", zap.String("provider", adapter.Name()))
}

// Complete dispatches one completion request using the current configuration
// snapshot.
func (s *Service) Complete(ctx context.Context, messages []providers.Message, opts providers.GenerationOptions) (*providers.CompletionResult, error) {
	cfg := *s.config.Load()

	completionID := uuid.New()
	start := time.Now()

	s.logger.Debug("dispatching completion",
		zap.String("completion_id", completionID.String()),
		zap.String("requested_provider", opts.Provider),
		zap.Int("messages", len(messages)))

	result, err := s.policy.Dispatch(ctx, cfg, messages, opts)
	latency := time.Since(start)

	if s.records != nil {
		go s.storeRecord(s.buildRecord(completionID, opts, result, err, latency))
	}

	if err != nil {
		s.logger.Warn("completion dispatch failed",
			zap.String("completion_id", completionID.String()),
			zap.Duration("latency", latency),
			zap.Error(err))
		return nil, err
	}

	s.logger.Info("completion dispatched",
		zap.String("completion_id", completionID.String()),
		zap.String("provider", result.Provider),
		zap.Duration("latency", latency))

	return result, nil
}

// ListProviders returns the registered provider names in registration order.
// It never mutates registry state.
func (s *Service) ListProviders() []string {
	return s.registry.ListNames()
}

// CheckAvailability probes every registered provider.
func (s *Service) CheckAvailability(ctx context.Context) map[string]bool {
	return s.registry.Availability(ctx)
}

func (s *Service) buildRecord(id uuid.UUID, opts providers.GenerationOptions, result *providers.CompletionResult, dispatchErr error, latency time.Duration) *models.CompletionRecord {
	rec := &models.CompletionRecord{
		ID:        id,
		Model:     opts.Model,
		LatencyMs: int(latency.Milliseconds()),
		CreatedAt: time.Now().UTC(),
	}

	if dispatchErr != nil {
		rec.Status = models.CompletionStatusFailed
		rec.Provider = opts.Provider
		msg := dispatchErr.Error()
		rec.ErrorMessage = &msg
		return rec
	}

	rec.Status = models.CompletionStatusSucceeded
	rec.Provider = result.Provider
	if result.Usage != nil {
		rec.PromptTokens = result.Usage.PromptTokens
		rec.CompletionTokens = result.Usage.CompletionTokens
		rec.TotalTokens = result.Usage.TotalTokens
	}
	return rec
}

// storeRecord persists a dispatch outcome best-effort; a storage failure is
// logged and never affects the caller's result.
func (s *Service) storeRecord(rec *models.CompletionRecord) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.records.Create(ctx, rec); err != nil {
		s.logger.Error("failed to store completion record",
			zap.String("completion_id", rec.ID.String()),
			zap.Error(err))
	}
}
