package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	// Database
	DatabaseURL        string
	DBStatementTimeout time.Duration
	MigrateOnStart     bool

	// Auth
	JWTSecret   string
	JWTIssuer   string
	JWTAudience string

	// Server
	Port             string
	CORSOrigins      []string
	Env              string
	RateLimitPerMin  int
	RateLimitBurst   int
	MetricsEnabled   bool
	WSMaxConnections int

	Recurring RecurringConfig

	// AMQP fan-out; disabled when URL is empty
	AMQPURL      string
	AMQPExchange string
}

// RecurringConfig controls the background recurring poster
type RecurringConfig struct {
	Enabled          bool
	Interval         time.Duration
	RunTimeout       time.Duration
	Workers          int
	LoanReminderDays int
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	cfg, err := load()
	if err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadTooling reads the same variables for offline tools, which need the
// database but not the HTTP auth settings
func LoadTooling() (*Config, error) {
	cfg, err := load()
	if err != nil {
		return nil, err
	}
	if err := cfg.validateStore(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func load() (*Config, error) {
	// Load .env file if it exists (ignore error if not found)
	_ = godotenv.Load()

	var p parser
	cfg := &Config{
		DatabaseURL:        getEnv("DATABASE_URL", ""),
		DBStatementTimeout: p.durationVar("DB_STATEMENT_TIMEOUT", 5*time.Second),
		MigrateOnStart:     p.boolVar("MIGRATE_ON_START", false),
		JWTSecret:          getEnv("JWT_SECRET", ""),
		JWTIssuer:          getEnv("JWT_ISSUER", "https://id.ledger.app/"),
		JWTAudience:        getEnv("JWT_AUDIENCE", "ledger-api"),
		Port:               getEnv("PORT", "8080"),
		CORSOrigins:        splitList(getEnv("CORS_ORIGINS", "http://localhost:3000")),
		Env:                getEnv("ENV", "development"),
		RateLimitPerMin:    p.intVar("RATE_LIMIT_PER_MINUTE", 120),
		RateLimitBurst:     p.intVar("RATE_LIMIT_BURST", 20),
		MetricsEnabled:     p.boolVar("METRICS_ENABLED", true),
		WSMaxConnections:   p.intVar("WS_MAX_CONNECTIONS", 5),
		Recurring: RecurringConfig{
			Enabled:          p.boolVar("RECURRING_ENABLED", true),
			Interval:         p.durationVar("RECURRING_INTERVAL", time.Minute),
			RunTimeout:       p.durationVar("RECURRING_RUN_TIMEOUT", 50*time.Second),
			Workers:          p.intVar("RECURRING_WORKERS", 4),
			LoanReminderDays: p.intVar("LOAN_REMINDER_DAYS", 3),
		},
		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "ledger.events"),
	}
	if p.err != nil {
		return nil, p.err
	}
	return cfg, nil
}

// IsProduction reports whether ENV is production
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func (c *Config) validate() error {
	if err := c.validateStore(); err != nil {
		return err
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if c.IsProduction() && len(c.JWTSecret) < 32 {
		return fmt.Errorf("JWT_SECRET must be at least 32 bytes in production")
	}
	if c.JWTIssuer == "" || c.JWTAudience == "" {
		return fmt.Errorf("JWT_ISSUER and JWT_AUDIENCE must not be empty")
	}
	return nil
}

func (c *Config) validateStore() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.Recurring.Interval <= 0 {
		return fmt.Errorf("RECURRING_INTERVAL must be positive")
	}
	if c.Recurring.RunTimeout <= 0 || c.Recurring.RunTimeout > c.Recurring.Interval {
		return fmt.Errorf("RECURRING_RUN_TIMEOUT must be positive and not exceed RECURRING_INTERVAL")
	}
	if c.Recurring.Workers < 1 {
		return fmt.Errorf("RECURRING_WORKERS must be at least 1")
	}
	if c.Recurring.LoanReminderDays < 0 {
		return fmt.Errorf("LOAN_REMINDER_DAYS must not be negative")
	}
	if c.DBStatementTimeout < 0 {
		return fmt.Errorf("DB_STATEMENT_TIMEOUT must not be negative")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// parser keeps the first conversion error so Load can report it
type parser struct {
	err error
}

func (p *parser) fail(key, value string, err error) {
	if p.err == nil {
		p.err = fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
}

func (p *parser) intVar(key string, def int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		p.fail(key, raw, err)
		return def
	}
	return v
}

func (p *parser) boolVar(key string, def bool) bool {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		p.fail(key, raw, err)
		return def
	}
	return v
}

func (p *parser) durationVar(key string, def time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		p.fail(key, raw, err)
		return def
	}
	return v
}
