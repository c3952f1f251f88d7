// Package config loads service configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"backoffice/internal/core/types"
	"backoffice/internal/domain/stock"
)

// Transition policy names accepted in TRANSITION_POLICY.
const (
	TransitionPermissive = "permissive"
	TransitionTable      = "table"
	TransitionCEL        = "cel"
)

// Config holds application configuration values.
type Config struct {
	AppEnv   string
	AppPort  string
	LogLevel string

	// DatabaseURL selects the PostgreSQL store. Empty runs on the in-memory store.
	DatabaseURL string
	DBMaxConns  int32

	JWTSecret    string
	AuthRequired bool

	StockPolicy      stock.NegativePolicy
	TransitionPolicy string
	TransitionRule   string
	DefaultTaxRate   *types.Money
	Currency         string

	OutboxPollInterval time.Duration
	OutboxBatchSize    int

	// IdempotencyTTL is how long X-Idempotency-Key responses are kept. Zero disables replay.
	IdempotencyTTL time.Duration
}

// IsDevelopment reports whether the service runs in development mode.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// defaultJWTSecret is only acceptable while authentication is off.
const defaultJWTSecret = "change-me-in-production"

// Load reads .env (when present) and environment variables and returns a validated Config.
// Malformed numeric, duration or boolean values are errors, not silent defaults.
func Load() (*Config, error) {
	_ = godotenv.Load()

	p := &envParser{}
	cfg := &Config{
		AppEnv:             getEnv("APP_ENV", "development"),
		AppPort:            getEnv("APP_PORT", "8080"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		DatabaseURL:        getEnv("DATABASE_URL", ""),
		DBMaxConns:         int32(p.int("DB_MAX_CONNS", 25)),
		JWTSecret:          getEnv("JWT_SECRET", defaultJWTSecret),
		AuthRequired:       p.bool("AUTH_REQUIRED", false),
		TransitionPolicy:   getEnv("TRANSITION_POLICY", TransitionPermissive),
		TransitionRule:     getEnv("TRANSITION_RULE", ""),
		Currency:           getEnv("DEFAULT_CURRENCY", "USD"),
		OutboxPollInterval: p.duration("OUTBOX_POLL_INTERVAL", 500*time.Millisecond),
		OutboxBatchSize:    p.int("OUTBOX_BATCH_SIZE", 100),
		IdempotencyTTL:     p.duration("IDEMPOTENCY_TTL", 24*time.Hour),
	}
	if p.err != nil {
		return nil, p.err
	}

	policy, err := stock.ParseNegativePolicy(getEnv("STOCK_NEGATIVE_POLICY", string(stock.PolicyReject)))
	if err != nil {
		return nil, fmt.Errorf("STOCK_NEGATIVE_POLICY: %w", err)
	}
	cfg.StockPolicy = policy

	switch cfg.TransitionPolicy {
	case TransitionPermissive, TransitionTable:
	case TransitionCEL:
		if cfg.TransitionRule == "" {
			return nil, fmt.Errorf("TRANSITION_RULE must be set when TRANSITION_POLICY=cel")
		}
	default:
		return nil, fmt.Errorf("TRANSITION_POLICY: unknown value %q", cfg.TransitionPolicy)
	}

	if raw := getEnv("TAX_RATE_DEFAULT", ""); raw != "" {
		rate, err := types.NewMoneyFromString(raw)
		if err != nil {
			return nil, fmt.Errorf("TAX_RATE_DEFAULT: %w", err)
		}
		cfg.DefaultTaxRate = &rate
	}

	if cfg.AppPort == "" {
		return nil, fmt.Errorf("APP_PORT must be set")
	}
	if cfg.AuthRequired && (cfg.JWTSecret == "" || cfg.JWTSecret == defaultJWTSecret) {
		return nil, fmt.Errorf("JWT_SECRET must be set to a real secret when AUTH_REQUIRED=true")
	}
	if cfg.DBMaxConns <= 0 {
		return nil, fmt.Errorf("DB_MAX_CONNS must be positive")
	}
	if cfg.OutboxBatchSize <= 0 {
		return nil, fmt.Errorf("OUTBOX_BATCH_SIZE must be positive")
	}
	if cfg.OutboxPollInterval <= 0 {
		return nil, fmt.Errorf("OUTBOX_POLL_INTERVAL must be positive")
	}
	if cfg.IdempotencyTTL < 0 {
		return nil, fmt.Errorf("IDEMPOTENCY_TTL must not be negative")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

// envParser reads typed variables and keeps every parse failure.
type envParser struct {
	err error
}

func (p *envParser) fail(key, value string, err error) {
	p.err = errors.Join(p.err, fmt.Errorf("%s: invalid value %q: %w", key, value, err))
}

func (p *envParser) int(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		p.fail(key, value, err)
		return fallback
	}
	return parsed
}

func (p *envParser) duration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		p.fail(key, value, err)
		return fallback
	}
	return parsed
}

func (p *envParser) bool(key string, fallback bool) bool {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		p.fail(key, value, err)
		return fallback
	}
	return parsed
}
