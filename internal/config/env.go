package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config is the runtime configuration read from the environment and .env.
type Config struct {
	Env      string
	LogLevel string
	Store    StoreConfig
	CacheTTL time.Duration
	Sentry   SentryConfig
	// RulesFile optionally points at a YAML file with contribution caps.
	RulesFile string
}

type StoreConfig struct {
	Driver      string
	SQLitePath  string
	DatabaseURL string
}

// DSN returns the connection string for the configured driver.
func (c StoreConfig) DSN() string {
	if c.Driver == "postgres" {
		return c.DatabaseURL
	}
	return c.SQLitePath
}

type SentryConfig struct {
	DSN         string
	Environment string
	Release     string
}

// Load reads the configuration from the environment, after loading ENV_FILE
// or ./.env when present.
func Load() (Config, error) {
	cfg := Config{}

	if err := loadEnv(); err != nil {
		return cfg, err
	}

	cfg.Env = getEnv("APP_ENV", "local")
	cfg.LogLevel = strings.ToLower(getEnv("LOG_LEVEL", "info"))
	cfg.RulesFile = getEnv("RULES_FILE", "")

	cacheTTL, err := parseDurationEnv("CACHE_TTL", 10*time.Minute)
	if err != nil {
		return cfg, err
	}
	cfg.CacheTTL = cacheTTL

	cfg.Store = StoreConfig{
		Driver:      strings.ToLower(getEnv("STORE_DRIVER", "sqlite")),
		SQLitePath:  getEnv("SQLITE_PATH", defaultSQLitePath()),
		DatabaseURL: getEnv("DATABASE_URL", ""),
	}

	cfg.Sentry = SentryConfig{
		DSN:         getEnv("SENTRY_DSN", ""),
		Environment: getEnv("SENTRY_ENVIRONMENT", cfg.Env),
		Release:     getEnv("SENTRY_RELEASE", ""),
	}

	if err := cfg.validate(); err != nil {
		return cfg, err
	}

	return cfg, nil
}

func (c Config) validate() error {
	switch c.Store.Driver {
	case "sqlite":
		if c.Store.SQLitePath == "" {
			return fmt.Errorf("SQLITE_PATH is required when STORE_DRIVER=sqlite")
		}
	case "postgres":
		if c.Store.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when STORE_DRIVER=postgres")
		}
	case "memory":
	default:
		return fmt.Errorf("STORE_DRIVER must be sqlite, postgres or memory, got %q", c.Store.Driver)
	}

	switch c.LogLevel {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("LOG_LEVEL must be debug, info, warn or error, got %q", c.LogLevel)
	}

	return nil
}

func defaultSQLitePath() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "forfettario", "forfettario.db")
	}
	return "forfettario.db"
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}

	return fallback
}

func parseDurationEnv(key string, fallback time.Duration) (time.Duration, error) {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback, nil
	}

	parsed, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be a duration: %w", key, err)
	}

	if parsed < 0 {
		return 0, fmt.Errorf("%s must not be negative", key)
	}

	return parsed, nil
}

func loadEnv() error {
	if envFile := os.Getenv("ENV_FILE"); envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return fmt.Errorf("load env file %s: %w", envFile, err)
		}
		return nil
	}

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("load .env: %w", err)
	}

	return nil
}
