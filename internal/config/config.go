package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Auth       AuthConfig       `mapstructure:"auth"`
	Limits     LimitsConfig     `mapstructure:"limits"`
	RateLimit  RateLimitConfig  `mapstructure:"rate_limit"`
	Dispatcher DispatcherConfig `mapstructure:"dispatcher"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Sage       SageConfig       `mapstructure:"sage"`
	Logger     LoggerConfig     `mapstructure:"logger"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// AuthConfig holds the basic-auth credentials the inbound webhook requires.
type AuthConfig struct {
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

// LimitsConfig bounds inbound request and attachment sizes.
type LimitsConfig struct {
	MaxRequestBytes int64 `mapstructure:"max_request_bytes"`
	MaxPDFBytes     int64 `mapstructure:"max_pdf_bytes"`
}

// RateLimitConfig holds the intake token-bucket settings.
type RateLimitConfig struct {
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
}

// DispatcherConfig controls no-match behavior: an empty fallback supplier
// means an unmatched document is a hard failure.
type DispatcherConfig struct {
	FallbackSupplier string `mapstructure:"fallback_supplier"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Path            string        `mapstructure:"path"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// SageConfig holds Sage Accounting API configuration
type SageConfig struct {
	BaseURL         string        `mapstructure:"base_url"`
	TokenURL        string        `mapstructure:"token_url"`
	ClientID        string        `mapstructure:"client_id"`
	ClientSecret    string        `mapstructure:"client_secret"`
	RefreshToken    string        `mapstructure:"refresh_token"`
	BusinessID      string        `mapstructure:"business_id"`
	StandardTaxID   string        `mapstructure:"standard_tax_id"`
	ZeroRatedTaxID  string        `mapstructure:"zero_rated_tax_id"`
	Timeout         time.Duration `mapstructure:"timeout"`
	PostInterval    time.Duration `mapstructure:"post_interval"`
	PostingDisabled bool          `mapstructure:"posting_disabled"`

	// LedgerIDs maps internal ledger account codes ("5001") to Sage
	// ledger_account_id values.
	LedgerIDs map[string]string `mapstructure:"ledger_ids"`
}

// LoggerConfig holds logger configuration
type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	OutputPath string `mapstructure:"output_path"`
	Format     string `mapstructure:"format"`
}

// Load loads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	bindEnvVars()

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values
func setDefaults() {
	// Server defaults
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", 30*time.Second)
	viper.SetDefault("server.write_timeout", 30*time.Second)

	// Limit defaults: Postmark caps inbound messages at 10MB
	viper.SetDefault("limits.max_request_bytes", int64(15*1024*1024))
	viper.SetDefault("limits.max_pdf_bytes", int64(10*1024*1024))

	// Rate limit defaults
	viper.SetDefault("rate_limit.requests_per_second", 5.0)
	viper.SetDefault("rate_limit.burst", 10)

	// Dispatcher fails closed unless a fallback supplier is configured
	viper.SetDefault("dispatcher.fallback_supplier", "")

	// Database defaults
	viper.SetDefault("database.path", "data/invoices.db")
	viper.SetDefault("database.max_open_conns", 25)
	viper.SetDefault("database.max_idle_conns", 5)
	viper.SetDefault("database.conn_max_lifetime", 5*time.Minute)

	// Sage defaults
	viper.SetDefault("sage.base_url", "https://api.accounting.sage.com/v3.1")
	viper.SetDefault("sage.token_url", "https://oauth.accounting.sage.com/token")
	viper.SetDefault("sage.timeout", 30*time.Second)
	viper.SetDefault("sage.post_interval", time.Minute)
	viper.SetDefault("sage.posting_disabled", false)

	// Logger defaults
	viper.SetDefault("logger.level", "info")
	viper.SetDefault("logger.output_path", "stdout")
	viper.SetDefault("logger.format", "json")
}

// bindEnvVars binds environment variables to configuration
func bindEnvVars() {
	// Sensitive credentials from environment
	viper.BindEnv("auth.username", "INBOUND_AUTH_USERNAME")
	viper.BindEnv("auth.password", "INBOUND_AUTH_PASSWORD")
	viper.BindEnv("sage.client_id", "SAGE_CLIENT_ID")
	viper.BindEnv("sage.client_secret", "SAGE_CLIENT_SECRET")
	viper.BindEnv("sage.refresh_token", "SAGE_REFRESH_TOKEN")
	viper.BindEnv("sage.business_id", "SAGE_BUSINESS_ID")
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535")
	}
	if c.Limits.MaxRequestBytes <= 0 {
		return fmt.Errorf("limits.max_request_bytes must be positive")
	}
	if c.Limits.MaxPDFBytes <= 0 {
		return fmt.Errorf("limits.max_pdf_bytes must be positive")
	}
	if !c.Sage.PostingDisabled {
		if c.Sage.ClientID == "" {
			return fmt.Errorf("sage.client_id is required")
		}
		if c.Sage.ClientSecret == "" {
			return fmt.Errorf("sage.client_secret is required")
		}
		if c.Sage.RefreshToken == "" {
			return fmt.Errorf("sage.refresh_token is required")
		}
		if c.Sage.BusinessID == "" {
			return fmt.Errorf("sage.business_id is required")
		}
	}
	return nil
}
