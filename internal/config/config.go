package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for our application
type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Redis       RedisConfig       `mapstructure:"redis"`
	Legacy      LegacyConfig      `mapstructure:"legacy"`
	Auth        AuthConfig        `mapstructure:"auth"`
	Stream      StreamConfig      `mapstructure:"stream"`
	Cutoff      CutoffConfig      `mapstructure:"cutoff"`
	HealthCheck HealthCheckConfig `mapstructure:"healthcheck"`
	Logging     LoggingConfig     `mapstructure:"logging"`
}

type ServerConfig struct {
	Port string `mapstructure:"SERVER_PORT"`
	Host string `mapstructure:"SERVER_HOST"`
	Env  string `mapstructure:"ENV"`
}

type DatabaseConfig struct {
	URL          string `mapstructure:"DATABASE_URL"`
	MaxOpenConns int    `mapstructure:"DATABASE_MAX_OPEN_CONNS"`
	MaxIdleConns int    `mapstructure:"DATABASE_MAX_IDLE_CONNS"`
	MaxLifetime  string `mapstructure:"DATABASE_CONN_MAX_LIFETIME"`
}

type RedisConfig struct {
	Host     string `mapstructure:"REDIS_HOST"`
	Port     string `mapstructure:"REDIS_PORT"`
	Password string `mapstructure:"REDIS_PASSWORD"`
	DB       int    `mapstructure:"REDIS_DB"`
}

// LegacyConfig points at the remote legacy benefits system.
type LegacyConfig struct {
	BaseURL string `mapstructure:"LEGACY_BASE_URL"`
	Scope   string `mapstructure:"LEGACY_TOKEN_SCOPE"`
	Timeout string `mapstructure:"LEGACY_TIMEOUT"`
}

type AuthConfig struct {
	TokenEndpoint string `mapstructure:"AUTH_TOKEN_ENDPOINT"`
	ClientID      string `mapstructure:"AUTH_CLIENT_ID"`
	ClientSecret  string `mapstructure:"AUTH_CLIENT_SECRET"`
	JWTSecret     string `mapstructure:"AUTH_JWT_SECRET"`
}

// StreamConfig names the redis streams and the consumer group position the
// reconciler's ordering guarantee relies on.
type StreamConfig struct {
	Inbound       string `mapstructure:"STREAM_INBOUND"`
	Responses     string `mapstructure:"STREAM_RESPONSES"`
	Alerts        string `mapstructure:"STREAM_ALERTS"`
	ConsumerGroup string `mapstructure:"STREAM_CONSUMER_GROUP"`
	ConsumerName  string `mapstructure:"STREAM_CONSUMER_NAME"`
}

// CutoffConfig carries the per-generation coverage boundaries: generations
// whose data ends before a requested range are skipped, and event-store rows
// recorded before the trust cutoff are ignored.
type CutoffConfig struct {
	OldGenerationEnd          string `mapstructure:"CUTOFF_OLD_GENERATION_END"`
	IntermediateGenerationEnd string `mapstructure:"CUTOFF_INTERMEDIATE_GENERATION_END"`
	EventStoreTrustedAfter    string `mapstructure:"CUTOFF_EVENT_STORE_TRUSTED_AFTER"`
}

type HealthCheckConfig struct {
	Hour      int `mapstructure:"HEALTHCHECK_HOUR"`
	Minute    int `mapstructure:"HEALTHCHECK_MINUTE"`
	ReportDay int `mapstructure:"HEALTHCHECK_REPORT_WEEKDAY"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"LOG_LEVEL"`
	Format string `mapstructure:"LOG_FORMAT"`
}

// Load reads configuration from environment variables and files
func Load() (*Config, error) {
	// Set defaults
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("SERVER_HOST", "0.0.0.0")
	viper.SetDefault("ENV", "development")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("LOG_FORMAT", "json")
	viper.SetDefault("DATABASE_MAX_OPEN_CONNS", 10)
	viper.SetDefault("DATABASE_MAX_IDLE_CONNS", 5)
	viper.SetDefault("DATABASE_CONN_MAX_LIFETIME", "30m")
	viper.SetDefault("REDIS_HOST", "localhost")
	viper.SetDefault("REDIS_PORT", "6379")
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("LEGACY_TIMEOUT", "10s")
	viper.SetDefault("STREAM_INBOUND", "spokelse.inbound")
	viper.SetDefault("STREAM_RESPONSES", "spokelse.responses")
	viper.SetDefault("STREAM_ALERTS", "spokelse.alerts")
	viper.SetDefault("STREAM_CONSUMER_GROUP", "spokelse")
	viper.SetDefault("STREAM_CONSUMER_NAME", "spokelse-1")
	viper.SetDefault("CUTOFF_OLD_GENERATION_END", "2019-03-31")
	viper.SetDefault("CUTOFF_INTERMEDIATE_GENERATION_END", "2020-06-30")
	viper.SetDefault("CUTOFF_EVENT_STORE_TRUSTED_AFTER", "2021-01-01")
	viper.SetDefault("HEALTHCHECK_HOUR", 8)
	viper.SetDefault("HEALTHCHECK_MINUTE", 0)
	viper.SetDefault("HEALTHCHECK_REPORT_WEEKDAY", 1)

	// Read from environment variables
	viper.AutomaticEnv()

	// Try to read from .env file (optional)
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./deployments")

	// Don't fail if .env file doesn't exist
	_ = viper.ReadInConfig()

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	// Validate configuration
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("SERVER_PORT is required")
	}

	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if _, err := time.ParseDuration(c.Database.MaxLifetime); err != nil {
		return fmt.Errorf("DATABASE_CONN_MAX_LIFETIME must be a valid duration: %w", err)
	}

	if _, err := time.ParseDuration(c.Legacy.Timeout); err != nil {
		return fmt.Errorf("LEGACY_TIMEOUT must be a valid duration: %w", err)
	}

	for name, value := range map[string]string{
		"CUTOFF_OLD_GENERATION_END":          c.Cutoff.OldGenerationEnd,
		"CUTOFF_INTERMEDIATE_GENERATION_END": c.Cutoff.IntermediateGenerationEnd,
		"CUTOFF_EVENT_STORE_TRUSTED_AFTER":   c.Cutoff.EventStoreTrustedAfter,
	} {
		if _, err := time.Parse("2006-01-02", value); err != nil {
			return fmt.Errorf("%s must be an ISO date: %w", name, err)
		}
	}

	if c.HealthCheck.Hour < 0 || c.HealthCheck.Hour > 23 {
		return fmt.Errorf("HEALTHCHECK_HOUR must be 0-23")
	}

	if c.HealthCheck.ReportDay < 0 || c.HealthCheck.ReportDay > 6 {
		return fmt.Errorf("HEALTHCHECK_REPORT_WEEKDAY must be 0-6")
	}

	return nil
}

// IsDevelopment returns true if running in development environment
func (c *Config) IsDevelopment() bool {
	return c.Server.Env == "development" || c.Server.Env == "dev"
}

// IsProduction returns true if running in production environment
func (c *Config) IsProduction() bool {
	return c.Server.Env == "production" || c.Server.Env == "prod"
}

// GetLegacyTimeout returns the legacy call timeout as duration
func (c *Config) GetLegacyTimeout() time.Duration {
	timeout, _ := time.ParseDuration(c.Legacy.Timeout)
	return timeout
}

// GetConnMaxLifetime returns the pool connection lifetime as duration
func (c *Config) GetConnMaxLifetime() time.Duration {
	lifetime, _ := time.ParseDuration(c.Database.MaxLifetime)
	return lifetime
}

// GetCutoffDate parses one of the validated cutoff dates
func GetCutoffDate(value string) time.Time {
	t, _ := time.Parse("2006-01-02", value)
	return t
}
