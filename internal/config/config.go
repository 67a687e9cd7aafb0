// Package config loads service configuration from the environment and an
// optional .env / config.env file. Environment variables take precedence.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Storage drivers.
const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Config groups the configuration of all binaries.
type Config struct {
	App         AppConfig
	Log         LogConfig
	DB          DBConfig
	Auth        AuthConfig
	Idempotency IdempotencyConfig
	Ledger      LedgerConfig
	Redis       RedisConfig
	Worker      WorkerConfig
}

// AppConfig holds general settings.
type AppConfig struct {
	Env           string
	Port          string
	StorageDriver string
	// SeedDemo loads demo products and transactions at start-up (memory driver only).
	SeedDemo bool
}

// IsDevelopment reports whether the service runs in development mode.
func (c AppConfig) IsDevelopment() bool {
	return c.Env == "development"
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level string
}

// DBConfig holds PostgreSQL settings.
type DBConfig struct {
	URL              string
	MaxConns         int32
	MinConns         int32
	StatementTimeout time.Duration
}

// AuthConfig holds token validation settings.
type AuthConfig struct {
	JWTSecret string
	Issuer    string
	Required  bool
}

// Enabled reports whether bearer tokens are validated at all.
func (c AuthConfig) Enabled() bool {
	return c.JWTSecret != ""
}

// IdempotencyConfig holds settings of the idempotent-create middleware.
type IdempotencyConfig struct {
	Enabled bool
	TTL     time.Duration
}

// LedgerConfig holds commit retry settings of the orchestrator.
type LedgerConfig struct {
	MaxCommitAttempts int
	RetryBackoff      time.Duration
}

// RedisConfig holds the notification broker settings.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Channel  string
}

// WorkerConfig holds background job settings.
type WorkerConfig struct {
	OutboxInterval    time.Duration
	OutboxBatchSize   int
	IntegrityInterval time.Duration
}

// Load reads configuration. Missing files are ignored.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	_ = v.ReadInConfig()

	v.SetConfigName("config")
	v.AddConfigPath("./config")
	_ = v.MergeInConfig()

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	cfg := &Config{
		App: AppConfig{
			Env:           v.GetString("APP_ENV"),
			Port:          v.GetString("APP_PORT"),
			StorageDriver: strings.ToLower(v.GetString("STORAGE_DRIVER")),
			SeedDemo:      v.GetBool("SEED_DEMO"),
		},
		Log: LogConfig{
			Level: v.GetString("LOG_LEVEL"),
		},
		DB: DBConfig{
			URL:              v.GetString("DATABASE_URL"),
			MaxConns:         v.GetInt32("DB_MAX_CONNS"),
			MinConns:         v.GetInt32("DB_MIN_CONNS"),
			StatementTimeout: v.GetDuration("DB_STATEMENT_TIMEOUT"),
		},
		Auth: AuthConfig{
			JWTSecret: v.GetString("JWT_SECRET"),
			Issuer:    v.GetString("JWT_ISSUER"),
			Required:  v.GetBool("AUTH_REQUIRED"),
		},
		Idempotency: IdempotencyConfig{
			Enabled: v.GetBool("IDEMPOTENCY_ENABLED"),
			TTL:     v.GetDuration("IDEMPOTENCY_TTL"),
		},
		Ledger: LedgerConfig{
			MaxCommitAttempts: v.GetInt("LEDGER_MAX_COMMIT_ATTEMPTS"),
			RetryBackoff:      v.GetDuration("LEDGER_RETRY_BACKOFF"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("REDIS_ADDR"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
			Channel:  v.GetString("REDIS_CHANNEL"),
		},
		Worker: WorkerConfig{
			OutboxInterval:    v.GetDuration("OUTBOX_INTERVAL"),
			OutboxBatchSize:   v.GetInt("OUTBOX_BATCH_SIZE"),
			IntegrityInterval: v.GetDuration("INTEGRITY_INTERVAL"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("APP_PORT", "8080")
	v.SetDefault("STORAGE_DRIVER", DriverPostgres)
	v.SetDefault("SEED_DEMO", false)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("DB_MAX_CONNS", 25)
	v.SetDefault("DB_MIN_CONNS", 5)
	v.SetDefault("DB_STATEMENT_TIMEOUT", "30s")
	v.SetDefault("JWT_ISSUER", "stockledger")
	v.SetDefault("AUTH_REQUIRED", false)
	v.SetDefault("IDEMPOTENCY_ENABLED", false)
	v.SetDefault("IDEMPOTENCY_TTL", "10m")
	v.SetDefault("LEDGER_MAX_COMMIT_ATTEMPTS", 3)
	v.SetDefault("LEDGER_RETRY_BACKOFF", "25ms")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("REDIS_CHANNEL", "stockledger.events")
	v.SetDefault("OUTBOX_INTERVAL", "2s")
	v.SetDefault("OUTBOX_BATCH_SIZE", 100)
	v.SetDefault("INTEGRITY_INTERVAL", "1h")
}

// Validate checks settings that would otherwise fail late at runtime.
func (c *Config) Validate() error {
	switch c.App.StorageDriver {
	case DriverPostgres:
		if c.DB.URL == "" {
			return fmt.Errorf("DATABASE_URL is required for storage driver %q", DriverPostgres)
		}
	case DriverMemory:
	default:
		return fmt.Errorf("unknown STORAGE_DRIVER %q", c.App.StorageDriver)
	}

	if c.Auth.Required && !c.Auth.Enabled() {
		return fmt.Errorf("AUTH_REQUIRED needs JWT_SECRET")
	}
	if c.Ledger.MaxCommitAttempts < 1 {
		return fmt.Errorf("LEDGER_MAX_COMMIT_ATTEMPTS must be at least 1")
	}
	return nil
}
