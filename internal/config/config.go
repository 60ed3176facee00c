package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	// Environment
	Env      string `env:"ENV" envDefault:"development"` // "development", "production", etc.
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// Server
	ServerAddr  string   `env:"SERVER_ADDR" envDefault:":3000"`
	CORSOrigins []string `env:"CORS_ORIGINS" envSeparator:","`
	RateLimit   int      `env:"RATE_LIMIT" envDefault:"100"` // requests per minute per IP

	// Event store. DatabaseURL selects Postgres; without it the SQLite file is used.
	DatabaseURL string `env:"DATABASE_URL"`
	SQLitePath  string `env:"SQLITE_PATH" envDefault:"leaddash.db"`
	SeedDevData bool   `env:"SEED_DEV_DATA"`

	// Event paging
	BatchSize              int           `env:"EVENT_BATCH_SIZE" envDefault:"1000"`
	MaxAttempts            int           `env:"EVENT_MAX_ATTEMPTS" envDefault:"3"`
	MaxConsecutiveFailures int           `env:"EVENT_MAX_CONSECUTIVE_FAILURES" envDefault:"3"`
	RetryDelay             time.Duration `env:"EVENT_RETRY_DELAY" envDefault:"2s"`
	BatchTimeout           time.Duration `env:"EVENT_BATCH_TIMEOUT" envDefault:"30s"`

	// Metagraph snapshot. Command takes precedence over File.
	MetagraphCommand string        `env:"METAGRAPH_COMMAND"`
	MetagraphFile    string        `env:"METAGRAPH_FILE"`
	MetagraphTimeout time.Duration `env:"METAGRAPH_TIMEOUT" envDefault:"120s"`

	// Cache
	CacheTTL        time.Duration `env:"CACHE_TTL" envDefault:"5m"`
	CacheMaxStale   time.Duration `env:"CACHE_MAX_STALE" envDefault:"60m"`
	RefreshInterval time.Duration `env:"REFRESH_INTERVAL" envDefault:"1m"`
	RedisURL        string        `env:"REDIS_URL"` // optional shared cache, e.g. "redis://localhost:6379/0"

	// Tracing
	OTELEndpoint string `env:"OTEL_ENDPOINT"` // e.g. "http://localhost:4318"

	// YAML file with pre-warm keys and window presets.
	ConfigFile string `env:"CONFIG_FILE" envDefault:"dashboard.yaml"`
}

// Load reads configuration from environment variables with sensible defaults.
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return &cfg, nil
}

// IsDev returns true if the environment is set to development.
func (c *Config) IsDev() bool {
	return c.Env == "development" || c.Env == "dev"
}

// UsePostgres reports whether events are read from Postgres.
func (c *Config) UsePostgres() bool {
	return c.DatabaseURL != ""
}
