package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config represents the complete application configuration
type Config struct {
	Server        ServerConfig
	Database      *DatabaseConfig // nil disables completion recording
	Auth          AuthConfig
	Providers     ProvidersConfig
	Dispatch      DispatchConfig
	Observability ObservabilityConfig
	Environment   string
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// DatabaseConfig holds PostgreSQL configuration. When ConnectionString
// (from DATABASE_URL) is set it takes precedence over individual fields.
type DatabaseConfig struct {
	ConnectionString string
	Host             string
	Port             int
	User             string
	Password         string
	Database         string
	SSLMode          string
	MaxOpenConns     int
	MaxIdleConns     int
	ConnMaxLifetime  time.Duration
}

// AuthConfig holds JWT authentication configuration. An empty secret
// disables authentication (development only).
type AuthConfig struct {
	JWTSecret string
}

// ProvidersConfig holds per-vendor LLM provider configuration
type ProvidersConfig struct {
	OpenAI    ProviderConfig
	Anthropic ProviderConfig
	Ollama    OllamaConfig
}

// ProviderConfig holds configuration for one cloud vendor
type ProviderConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// OllamaConfig holds configuration for the local Ollama runtime
type OllamaConfig struct {
	Enabled bool
	BaseURL string
	Model   string
	Timeout time.Duration
}

// DispatchConfig holds default/fallback routing and retry settings
type DispatchConfig struct {
	DefaultProvider string
	FallbackOrder   []string
	RetryAttempts   int
	RetryBaseDelay  time.Duration
}

// ObservabilityConfig holds logging configuration
type ObservabilityConfig struct {
	LogLevel  string
	LogFormat string // json or console
}

// New creates a Config by loading environment variables. A .env file in the
// working directory is loaded first when present.
func New() (*Config, error) {
	_ = godotenv.Load(".env")

	cfg := &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		Server: ServerConfig{
			Host:            getEnv("SERVER_HOST", "0.0.0.0"),
			Port:            getEnvAsInt("SERVER_PORT", 8080),
			ReadTimeout:     getEnvAsDuration("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:    getEnvAsDuration("SERVER_WRITE_TIMEOUT", 120*time.Second),
			ShutdownTimeout: getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Database: loadDatabaseConfig(),
		Auth: AuthConfig{
			JWTSecret: getEnv("JWT_SECRET", ""),
		},
		Providers: ProvidersConfig{
			OpenAI: ProviderConfig{
				APIKey:  getEnv("OPENAI_API_KEY", ""),
				BaseURL: getEnv("OPENAI_BASE_URL", ""),
				Model:   getEnv("OPENAI_MODEL", ""),
				Timeout: getEnvAsDuration("OPENAI_TIMEOUT", 60*time.Second),
			},
			Anthropic: ProviderConfig{
				APIKey:  getEnv("ANTHROPIC_API_KEY", ""),
				BaseURL: getEnv("ANTHROPIC_BASE_URL", ""),
				Model:   getEnv("ANTHROPIC_MODEL", ""),
				Timeout: getEnvAsDuration("ANTHROPIC_TIMEOUT", 60*time.Second),
			},
			Ollama: OllamaConfig{
				Enabled: getEnvAsBool("OLLAMA_ENABLED", false) || os.Getenv("OLLAMA_BASE_URL") != "",
				BaseURL: getEnv("OLLAMA_BASE_URL", ""),
				Model:   getEnv("OLLAMA_MODEL", ""),
				Timeout: getEnvAsDuration("OLLAMA_TIMEOUT", 120*time.Second),
			},
		},
		Dispatch: DispatchConfig{
			DefaultProvider: getEnv("DISPATCH_DEFAULT_PROVIDER", ""),
			FallbackOrder:   getEnvAsSlice("DISPATCH_FALLBACK_ORDER", nil),
			RetryAttempts:   getEnvAsInt("DISPATCH_RETRY_ATTEMPTS", 3),
			RetryBaseDelay:  getEnvAsDuration("DISPATCH_RETRY_BASE_DELAY", 500*time.Millisecond),
		},
		Observability: ObservabilityConfig{
			LogLevel:  getEnv("LOG_LEVEL", "info"),
			LogFormat: getEnv("LOG_FORMAT", "json"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that the configuration is usable
func (c *Config) Validate() error {
	if c.Dispatch.RetryAttempts < 1 {
		return fmt.Errorf("dispatch retry attempts must be at least 1")
	}
	if c.Dispatch.RetryBaseDelay < 0 {
		return fmt.Errorf("dispatch retry base delay cannot be negative")
	}

	if c.IsProduction() {
		if c.Providers.OpenAI.APIKey == "" &&
			c.Providers.Anthropic.APIKey == "" &&
			!c.Providers.Ollama.Enabled {
			return fmt.Errorf("at least one LLM provider must be configured in production")
		}
		if c.Dispatch.DefaultProvider == "" {
			return fmt.Errorf("a default provider is required in production")
		}
		if c.Auth.JWTSecret == "" {
			return fmt.Errorf("JWT secret is required in production")
		}
	}

	if c.Observability.LogLevel == "" {
		return fmt.Errorf("log level is required")
	}

	return nil
}

// IsProduction returns true if running in production environment
func (c *Config) IsProduction() bool {
	return c.Environment == "production" || c.Environment == "prod"
}

// IsDevelopment returns true if running in development environment
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development" || c.Environment == "dev"
}

// DSN returns the PostgreSQL connection string
func (c *DatabaseConfig) DSN() string {
	if c.ConnectionString != "" {
		return c.ConnectionString
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// LogString returns a safe string for logging (no password)
func (c *DatabaseConfig) LogString() string {
	if c.ConnectionString != "" {
		u, err := url.Parse(c.ConnectionString)
		if err != nil {
			return "host=<from DATABASE_URL>"
		}
		port := u.Port()
		if port == "" {
			port = "5432"
		}
		return fmt.Sprintf("host=%s port=%s database=%s", u.Hostname(), port, strings.TrimPrefix(u.Path, "/"))
	}
	return fmt.Sprintf("host=%s port=%d database=%s", c.Host, c.Port, c.Database)
}

// Address returns the HTTP server address
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// loadDatabaseConfig loads database config from DATABASE_URL or DB_* env
// vars. Returns nil when neither is set; the service then runs without
// completion recording.
func loadDatabaseConfig() *DatabaseConfig {
	if dbURL := getEnv("DATABASE_URL", ""); dbURL != "" {
		return &DatabaseConfig{
			ConnectionString: dbURL,
			MaxOpenConns:     getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:     getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime:  getEnvAsDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
		}
	}

	if getEnv("DB_HOST", "") == "" {
		return nil
	}

	return &DatabaseConfig{
		Host:            getEnv("DB_HOST", "localhost"),
		Port:            getEnvAsInt("DB_PORT", 5432),
		User:            getEnv("DB_USER", "chatcore"),
		Password:        getEnv("DB_PASSWORD", ""),
		Database:        getEnv("DB_NAME", "chatcore"),
		SSLMode:         getEnv("DB_SSLMODE", "disable"),
		MaxOpenConns:    getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
		MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
		ConnMaxLifetime: getEnvAsDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
	}
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

// getEnvAsSlice parses a comma-separated list, trimming whitespace and
// dropping empty entries
func getEnvAsSlice(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	var items []string
	for _, item := range strings.Split(value, ",") {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			items = append(items, trimmed)
		}
	}
	return items
}
