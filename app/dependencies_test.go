package app

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fabriq-ai/chatcore/config"
)

func testConfig() *config.Config {
	return &config.Config{
		Environment: "test",
		Dispatch: config.DispatchConfig{
			DefaultProvider: "openai",
			RetryAttempts:   1,
			RetryBaseDelay:  time.Millisecond,
		},
		Observability: config.ObservabilityConfig{
			LogLevel:  "info",
			LogFormat: "json",
		},
	}
}

func TestNewDependencies_WithoutDatabase(t *testing.T) {
	cfg := testConfig()

	deps, err := NewDependencies(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)

	assert.Nil(t, deps.DB)
	assert.Nil(t, deps.Records)
	assert.NotNil(t, deps.Completions)

	require.NoError(t, deps.Close(context.Background()))
}

func TestNewDependencies_RegistersConfiguredProviders(t *testing.T) {
	cfg := testConfig()
	cfg.Providers.OpenAI.APIKey = "sk-test"
	cfg.Providers.Ollama.Enabled = true

	deps, err := NewDependencies(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)

	names := deps.Completions.ListProviders()
	assert.Equal(t, []string{"openai", "ollama"}, names)
}

func TestNewDependencies_AuthOnlyWithSecret(t *testing.T) {
	cfg := testConfig()

	deps, err := NewDependencies(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	assert.Nil(t, deps.AuthMiddleware)

	cfg.Auth.JWTSecret = "secret"
	deps, err = NewDependencies(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	assert.NotNil(t, deps.AuthMiddleware)
}
