package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/fabriq-ai/chatcore/config"
	"github.com/fabriq-ai/chatcore/middleware"
	"github.com/fabriq-ai/chatcore/repositories"
	"github.com/fabriq-ai/chatcore/repositories/postgres"
	"github.com/fabriq-ai/chatcore/services/completion"
	"github.com/fabriq-ai/chatcore/services/dispatch"
	"github.com/fabriq-ai/chatcore/services/providers"
	"github.com/fabriq-ai/chatcore/services/providers/anthropic"
	"github.com/fabriq-ai/chatcore/services/providers/ollama"
	"github.com/fabriq-ai/chatcore/services/providers/openai"
)

// Dependencies holds all application dependencies. This is the central
// wiring point for dependency injection.
type Dependencies struct {
	Config *config.Config
	DB     *postgres.DB // nil when recording is disabled
	Logger *zap.Logger

	Records     repositories.CompletionRecordRepository
	Completions *completion.Service

	AuthMiddleware *middleware.AuthMiddleware // nil when no JWT secret is set
}

// NewDependencies creates and wires up all application dependencies
func NewDependencies(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config: cfg,
		Logger: logger,
	}

	if err := deps.initDatabase(ctx, cfg); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	deps.initCompletions(cfg)
	deps.initAuth(cfg)

	logger.Info("all dependencies initialized")
	return deps, nil
}

// initDatabase connects to PostgreSQL when a database is configured.
// Without one the service runs with completion recording disabled.
func (d *Dependencies) initDatabase(ctx context.Context, cfg *config.Config) error {
	if cfg.Database == nil {
		d.Logger.Warn("no database configured, completion recording disabled")
		return nil
	}

	db, err := postgres.NewDB(*cfg.Database, d.Logger)
	if err != nil {
		return err
	}

	if err := db.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ensure schema: %w", err)
	}

	d.DB = db
	d.Records = postgres.NewCompletionRecordRepository(db, d.Logger)

	d.Logger.Info("database connection established",
		zap.String("connection", cfg.Database.LogString()))

	return nil
}

// initCompletions builds the completion service, applies the dispatch
// configuration, and registers every configured provider adapter.
func (d *Dependencies) initCompletions(cfg *config.Config) {
	service := completion.NewService(d.Records, d.Logger)

	service.Configure(dispatch.Config{
		DefaultProvider: cfg.Dispatch.DefaultProvider,
		FallbackOrder:   cfg.Dispatch.FallbackOrder,
		RetryAttempts:   cfg.Dispatch.RetryAttempts,
		RetryBaseDelay:  cfg.Dispatch.RetryBaseDelay,
	})

	if cfg.Providers.OpenAI.APIKey != "" {
		service.RegisterProvider(openai.New(providers.Config{
			APIKey:  cfg.Providers.OpenAI.APIKey,
			BaseURL: cfg.Providers.OpenAI.BaseURL,
			Model:   cfg.Providers.OpenAI.Model,
			Timeout: cfg.Providers.OpenAI.Timeout,
		}))
	}

	if cfg.Providers.Anthropic.APIKey != "" {
		service.RegisterProvider(anthropic.New(providers.Config{
			APIKey:  cfg.Providers.Anthropic.APIKey,
			BaseURL: cfg.Providers.Anthropic.BaseURL,
			Model:   cfg.Providers.Anthropic.Model,
			Timeout: cfg.Providers.Anthropic.Timeout,
		}))
	}

	if cfg.Providers.Ollama.Enabled {
		service.RegisterProvider(ollama.New(providers.Config{
			BaseURL: cfg.Providers.Ollama.BaseURL,
			Model:   cfg.Providers.Ollama.Model,
			Timeout: cfg.Providers.Ollama.Timeout,
		}))
	}

	if len(service.ListProviders()) == 0 {
		d.Logger.Warn("no LLM providers configured")
	}

	d.Completions = service
}

func (d *Dependencies) initAuth(cfg *config.Config) {
	if cfg.Auth.JWTSecret == "" {
		d.Logger.Warn("no JWT secret configured, completion endpoint is unauthenticated")
		return
	}

	d.AuthMiddleware = middleware.NewAuthMiddleware(cfg.Auth.JWTSecret, d.Logger)
	d.Logger.Info("auth middleware initialized")
}

// Close gracefully shuts down all dependencies
func (d *Dependencies) Close(ctx context.Context) error {
	d.Logger.Info("shutting down dependencies")

	var errs []error

	if d.DB != nil {
		if err := d.DB.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close database: %w", err))
		}
	}

	if d.Logger != nil {
		_ = d.Logger.Sync()
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors during shutdown: %v", errs)
	}

	return nil
}
