package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Stripe    StripeConfig    `yaml:"stripe"`
	Rental    RentalConfig    `yaml:"rental"`
	SMTP      SMTPConfig      `yaml:"smtp"`
	JWT       JWTConfig       `yaml:"jwt"`
	Log       LogConfig       `yaml:"log"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// DatabaseConfig contains PostgreSQL connection settings
type DatabaseConfig struct {
	Host        string        `yaml:"host"`
	Port        int           `yaml:"port"`
	User        string        `yaml:"user"`
	Password    string        `yaml:"password"`
	Database    string        `yaml:"database"`
	SSLMode     string        `yaml:"ssl_mode"`
	LockTimeout time.Duration `yaml:"lock_timeout"` // bound on SELECT ... FOR UPDATE waits
}

// StripeConfig contains payment provider settings
type StripeConfig struct {
	SecretKey            string `yaml:"secret_key"`
	WebhookSecret        string `yaml:"webhook_secret"`
	Currency             string `yaml:"currency"`
	SuccessURL           string `yaml:"success_url"`
	CancelURL            string `yaml:"cancel_url"`
	SessionExpirySeconds int64  `yaml:"session_expiry_seconds"`
}

// RentalConfig contains pricing policy
type RentalConfig struct {
	FineMultiplier string `yaml:"fine_multiplier"`
}

// SMTPConfig contains notification mail settings
type SMTPConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
	NotifyTo string `yaml:"notify_to"`
}

// JWTConfig contains bearer token settings
type JWTConfig struct {
	Secret string `yaml:"secret"`
}

// LogConfig contains logging settings
type LogConfig struct {
	Level  string `yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `yaml:"format"` // "json" or "text"
}

// SchedulerConfig contains background sweep settings
type SchedulerConfig struct {
	ExpirySweepInterval time.Duration `yaml:"expiry_sweep_interval"`
	OverdueRentals      string        `yaml:"overdue_rentals"` // cron spec with seconds
}

// Load reads configuration from a YAML file, then applies .env and
// environment overrides.
func Load(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse builds a validated Config from raw YAML.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// A missing .env is fine; real deployments use the process environment.
	_ = godotenv.Load()
	cfg.overrideWithEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// overrideWithEnv overrides config values with environment variables
func (c *Config) overrideWithEnv() {
	setString := func(key string, dst *string) {
		if val := os.Getenv(key); val != "" {
			*dst = val
		}
	}
	setInt := func(key string, dst *int) {
		if val := os.Getenv(key); val != "" {
			if n, err := strconv.Atoi(val); err == nil {
				*dst = n
			}
		}
	}

	setString("DB_HOST", &c.Database.Host)
	setInt("DB_PORT", &c.Database.Port)
	setString("DB_USER", &c.Database.User)
	setString("DB_PASSWORD", &c.Database.Password)
	setString("DB_NAME", &c.Database.Database)
	setString("DB_SSL_MODE", &c.Database.SSLMode)

	setString("STRIPE_SECRET_KEY", &c.Stripe.SecretKey)
	setString("STRIPE_WEBHOOK_SECRET", &c.Stripe.WebhookSecret)
	setString("STRIPE_SUCCESS_URL", &c.Stripe.SuccessURL)
	setString("STRIPE_CANCEL_URL", &c.Stripe.CancelURL)
	if val := os.Getenv("STRIPE_SESSION_EXPIRY_SECONDS"); val != "" {
		if n, err := strconv.ParseInt(val, 10, 64); err == nil {
			c.Stripe.SessionExpirySeconds = n
		}
	}

	setString("SMTP_HOST", &c.SMTP.Host)
	setInt("SMTP_PORT", &c.SMTP.Port)
	setString("SMTP_USER", &c.SMTP.User)
	setString("SMTP_PASSWORD", &c.SMTP.Password)
	setString("SMTP_FROM", &c.SMTP.From)
	setString("SMTP_NOTIFY_TO", &c.SMTP.NotifyTo)

	setString("JWT_SECRET", &c.JWT.Secret)

	setString("SERVER_HOST", &c.Server.Host)
	setInt("SERVER_PORT", &c.Server.Port)

	setString("LOG_LEVEL", &c.Log.Level)
	setString("LOG_FORMAT", &c.Log.Format)

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

// Validate checks if the configuration is valid and fills defaults
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 10 * time.Second
	}

	if c.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}
	if c.Database.User == "" {
		return fmt.Errorf("database user is required")
	}
	if c.Database.Database == "" {
		return fmt.Errorf("database name is required")
	}
	if c.Database.SSLMode == "" {
		c.Database.SSLMode = "disable"
	}
	if c.Database.LockTimeout == 0 {
		c.Database.LockTimeout = 5 * time.Second
	}

	if c.Stripe.SecretKey == "" {
		return fmt.Errorf("stripe secret key is required")
	}
	if c.Stripe.WebhookSecret == "" {
		return fmt.Errorf("stripe webhook secret is required")
	}
	if c.Stripe.Currency == "" {
		c.Stripe.Currency = "usd"
	}
	if c.Stripe.SessionExpirySeconds <= 0 {
		c.Stripe.SessionExpirySeconds = 86400
	}
	if c.Stripe.SuccessURL == "" || c.Stripe.CancelURL == "" {
		return fmt.Errorf("stripe success and cancel URLs are required")
	}

	if c.Rental.FineMultiplier == "" {
		c.Rental.FineMultiplier = "1.5"
	}
	if m, err := decimal.NewFromString(c.Rental.FineMultiplier); err != nil || !m.IsPositive() {
		return fmt.Errorf("invalid fine multiplier: %q", c.Rental.FineMultiplier)
	}

	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT secret is required")
	}
	if len(c.JWT.Secret) < 32 {
		return fmt.Errorf("JWT secret must be at least 32 characters")
	}

	if c.Scheduler.ExpirySweepInterval == 0 {
		c.Scheduler.ExpirySweepInterval = time.Minute
	}
	if c.Scheduler.ExpirySweepInterval < time.Second {
		return fmt.Errorf("expiry sweep interval too short: %s", c.Scheduler.ExpirySweepInterval)
	}
	if c.Scheduler.OverdueRentals == "" {
		c.Scheduler.OverdueRentals = "0 0 9 * * *" // 9 AM UTC
	}

	return nil
}

// FineMultiplier returns the parsed fine multiplier. Validate guarantees it parses.
func (c *Config) FineMultiplier() decimal.Decimal {
	return decimal.RequireFromString(c.Rental.FineMultiplier)
}

// SessionExpiry returns the provider session lifetime.
func (c *Config) SessionExpiry() time.Duration {
	return time.Duration(c.Stripe.SessionExpirySeconds) * time.Second
}

// GetDatabaseConnectionString returns a PostgreSQL connection string
func (c *Config) GetDatabaseConnectionString() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Database,
		c.Database.SSLMode,
	)
}

// GetServerAddress returns the HTTP listen address
func (c *Config) GetServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
