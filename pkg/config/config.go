package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Session backends.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

type Config struct {
	Env            string
	LogLevel       string
	APIBaseURL     string
	RequestTimeout time.Duration
	SessionBackend string
	SessionFile    string
	SessionDSN     string
	Port           string
	MetricsAddr    string
}

// Load reads .env (when present) and then the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	timeout, err := time.ParseDuration(getEnv("REQUEST_TIMEOUT", "15s"))
	if err != nil {
		return nil, fmt.Errorf("parsing REQUEST_TIMEOUT: %w", err)
	}

	cfg := &Config{
		Env:            getEnv("APP_ENV", "development"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		APIBaseURL:     strings.TrimRight(getEnv("API_BASE_URL", "http://localhost:5000/api"), "/"),
		RequestTimeout: timeout,
		SessionBackend: getEnv("SESSION_BACKEND", BackendFile),
		SessionFile:    getEnv("SESSION_FILE", "data/session.json"),
		SessionDSN:     getEnv("SESSION_DSN", "data/session.db"),
		Port:           getEnv("PORT", "8080"),
		MetricsAddr:    getEnv("METRICS_ADDR", ":9090"),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.APIBaseURL == "" {
		return errors.New("API_BASE_URL is required")
	}
	if c.RequestTimeout < 0 {
		return errors.New("REQUEST_TIMEOUT must not be negative")
	}
	switch c.SessionBackend {
	case BackendFile:
		if c.SessionFile == "" {
			return errors.New("SESSION_FILE is required when SESSION_BACKEND=file")
		}
	case BackendSQLite:
		if c.SessionDSN == "" {
			return errors.New("SESSION_DSN is required when SESSION_BACKEND=sqlite")
		}
	case BackendMemory:
	default:
		return fmt.Errorf("SESSION_BACKEND must be one of: file, sqlite, memory (got %q)", c.SessionBackend)
	}
	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return errors.New("APP_ENV must be one of: development, staging, production")
	}
	return nil
}

// IsDevelopment reports whether human-readable console logs should be used.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
