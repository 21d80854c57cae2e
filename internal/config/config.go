// Package config loads and validates the hackathon API configuration using Viper.
//
// Configuration is layered: built-in defaults < YAML config file < environment
// variables. Environment variables use the HACKATHON_ prefix (for example
// HACKATHON_DATABASE_HOST overrides database.host in the YAML). A .env file in
// the working directory is loaded into the process environment first, so local
// development can keep secrets out of config.yaml.
//
// ENCRYPTION_KEY has no HACKATHON_ prefix because it is usually injected by
// infrastructure tooling that treats it as a generic secret name.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	Server        ServerConfig        `mapstructure:"server"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Redis         RedisConfig         `mapstructure:"redis"`
	Auth          AuthConfig          `mapstructure:"auth"`
	Security      SecurityConfig      `mapstructure:"security"`
	Logging       LoggingConfig       `mapstructure:"logging"`
	Telemetry     TelemetryConfig     `mapstructure:"telemetry"`
	OpenAI        OpenAIConfig        `mapstructure:"openai"`
	Matching      MatchingConfig      `mapstructure:"matching"`
	Discord       DiscordConfig       `mapstructure:"discord"`
	Notifications NotificationsConfig `mapstructure:"notifications"`
	// EncryptionKey protects Discord OAuth tokens stored on profiles. Read from ENCRYPTION_KEY.
	EncryptionKey string `mapstructure:"encryption_key"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	BaseURL      string        `mapstructure:"base_url"`
	PublicURL    string        `mapstructure:"public_url"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// GetPublicURL returns the public-facing URL used for OAuth callbacks.
// When server.public_url is set it is returned as-is; otherwise it falls back to server.base_url.
func (s *ServerConfig) GetPublicURL() string {
	if s.PublicURL != "" {
		return s.PublicURL
	}
	return s.BaseURL
}

// DatabaseConfig holds database connection configuration
type DatabaseConfig struct {
	Host               string `mapstructure:"host"`
	Port               int    `mapstructure:"port"`
	Name               string `mapstructure:"name"`
	User               string `mapstructure:"user"`
	Password           string `mapstructure:"password"`
	SSLMode            string `mapstructure:"ssl_mode"`
	MaxConnections     int    `mapstructure:"max_connections"`
	MinIdleConnections int    `mapstructure:"min_idle_connections"`
}

// RedisConfig holds the optional Redis connection used for distributed rate limiting.
// When disabled, rate limiting falls back to an in-process token bucket.
type RedisConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	URL     string `mapstructure:"url"`
}

// AuthConfig holds authentication configuration
type AuthConfig struct {
	APIKeys      APIKeyConfig       `mapstructure:"api_keys"`
	Session      SessionConfig      `mapstructure:"session"`
	DiscordOAuth DiscordOAuthConfig `mapstructure:"discord_oauth"`
}

// APIKeyConfig holds API key authentication configuration
type APIKeyConfig struct {
	Prefix string `mapstructure:"prefix"`
}

// SessionConfig controls participant session tokens
type SessionConfig struct {
	Expiry time.Duration `mapstructure:"expiry"`
}

// DiscordOAuthConfig holds the Discord OAuth2 application credentials
type DiscordOAuthConfig struct {
	ClientID     string   `mapstructure:"client_id"`
	ClientSecret string   `mapstructure:"client_secret"`
	RedirectURL  string   `mapstructure:"redirect_url"`
	Scopes       []string `mapstructure:"scopes"`
}

// Enabled reports whether the Discord OAuth exchange can run
func (d *DiscordOAuthConfig) Enabled() bool {
	return d.ClientID != "" && d.ClientSecret != ""
}

// SecurityConfig holds security-related configuration
type SecurityConfig struct {
	CORS         CORSConfig         `mapstructure:"cors"`
	RateLimiting RateLimitingConfig `mapstructure:"rate_limiting"`
	TLS          TLSConfig          `mapstructure:"tls"`
}

// CORSConfig holds CORS configuration
type CORSConfig struct {
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	AllowedMethods   []string `mapstructure:"allowed_methods"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
}

// RateLimitingConfig holds rate limiting configuration.
// RequestsPerWindow requests are allowed per client IP within Window.
type RateLimitingConfig struct {
	Enabled           bool          `mapstructure:"enabled"`
	RequestsPerWindow int           `mapstructure:"requests_per_window"`
	Window            time.Duration `mapstructure:"window"`
	Burst             int           `mapstructure:"burst"`
}

// TLSConfig holds TLS/HTTPS configuration
type TLSConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	CertFile string `mapstructure:"cert_file"`
	KeyFile  string `mapstructure:"key_file"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// TelemetryConfig holds observability configuration
type TelemetryConfig struct {
	ServiceName string        `mapstructure:"service_name"`
	Metrics     MetricsConfig `mapstructure:"metrics"`
}

// MetricsConfig holds Prometheus metrics configuration
type MetricsConfig struct {
	Enabled        bool `mapstructure:"enabled"`
	PrometheusPort int  `mapstructure:"prometheus_port"`
}

// OpenAIConfig holds settings for the chat-completion API used by matching.
// An empty APIKey disables the AI path; every score then comes from the heuristic.
type OpenAIConfig struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
	Model   string `mapstructure:"model"`
}

// MatchingConfig bounds the per-request fan-out of completion calls
type MatchingConfig struct {
	// Concurrency is the maximum number of candidates scored at once per request
	Concurrency int `mapstructure:"concurrency"`
	// CallTimeout bounds each individual completion call
	CallTimeout time.Duration `mapstructure:"call_timeout"`
	// PreserveStatusOnRecompute keeps accepted/rejected decisions when a match is recomputed
	PreserveStatusOnRecompute bool `mapstructure:"preserve_status_on_recompute"`
}

// DiscordConfig holds the bot credentials used for channel provisioning
type DiscordConfig struct {
	BotToken string `mapstructure:"bot_token"`
	GuildID  string `mapstructure:"guild_id"`
}

// Enabled reports whether the bot has enough configuration to connect
func (d *DiscordConfig) Enabled() bool {
	return d.BotToken != "" && d.GuildID != ""
}

// NotificationsConfig holds settings for the API key expiry job
type NotificationsConfig struct {
	// APIKeyExpiryWarningDays is how many days before expiry the owner is warned (default 7)
	APIKeyExpiryWarningDays int `mapstructure:"api_key_expiry_warning_days"`
	// APIKeyExpiryCheckIntervalHours determines how often the expiry job runs (default 24)
	APIKeyExpiryCheckIntervalHours int `mapstructure:"api_key_expiry_check_interval_hours"`
}

// bindEnvVars explicitly binds environment variables to config keys.
// AutomaticEnv() alone does not populate nested structs during Unmarshal.
func bindEnvVars(v *viper.Viper) error {
	keys := []string{
		// Database
		"database.host",
		"database.port",
		"database.name",
		"database.user",
		"database.password",
		"database.ssl_mode",
		"database.max_connections",
		"database.min_idle_connections",

		// Server
		"server.host",
		"server.port",
		"server.base_url",
		"server.public_url",
		"server.read_timeout",
		"server.write_timeout",

		// Redis
		"redis.enabled",
		"redis.url",

		// Auth
		"auth.api_keys.prefix",
		"auth.session.expiry",
		"auth.discord_oauth.client_id",
		"auth.discord_oauth.client_secret",
		"auth.discord_oauth.redirect_url",
		"auth.discord_oauth.scopes",

		// Security
		"security.cors.allowed_origins",
		"security.cors.allowed_methods",
		"security.cors.allow_credentials",
		"security.rate_limiting.enabled",
		"security.rate_limiting.requests_per_window",
		"security.rate_limiting.window",
		"security.rate_limiting.burst",
		"security.tls.enabled",
		"security.tls.cert_file",
		"security.tls.key_file",

		// Logging
		"logging.level",
		"logging.format",

		// Telemetry
		"telemetry.service_name",
		"telemetry.metrics.enabled",
		"telemetry.metrics.prometheus_port",

		// OpenAI
		"openai.api_key",
		"openai.base_url",
		"openai.model",

		// Matching
		"matching.concurrency",
		"matching.call_timeout",
		"matching.preserve_status_on_recompute",

		// Discord bot
		"discord.bot_token",
		"discord.guild_id",

		// Notifications
		"notifications.api_key_expiry_warning_days",
		"notifications.api_key_expiry_check_interval_hours",
	}
	for _, key := range keys {
		if err := v.BindEnv(key); err != nil {
			return fmt.Errorf("failed to bind env var %q: %w", key, err)
		}
	}
	if err := v.BindEnv("encryption_key", "ENCRYPTION_KEY"); err != nil {
		return fmt.Errorf("failed to bind env var %q: %w", "ENCRYPTION_KEY", err)
	}
	return nil
}

// Load loads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	// A missing .env is the normal case outside local development.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("error reading .env file: %w", err)
	}

	v := viper.New()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/hackathon-api")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found; use defaults and environment variables
	}

	v.SetEnvPrefix("HACKATHON")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := bindEnvVars(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	// Expand environment variables in sensitive fields
	cfg.Database.Password = expandEnv(cfg.Database.Password)
	cfg.Redis.URL = expandEnv(cfg.Redis.URL)
	cfg.Auth.DiscordOAuth.ClientSecret = expandEnv(cfg.Auth.DiscordOAuth.ClientSecret)
	cfg.OpenAI.APIKey = expandEnv(cfg.OpenAI.APIKey)
	cfg.Discord.BotToken = expandEnv(cfg.Discord.BotToken)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 3000)
	v.SetDefault("server.base_url", "http://localhost:3000")
	v.SetDefault("server.public_url", "")
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "120s")

	// Database defaults
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "hackathon")
	v.SetDefault("database.user", "hackathon")
	v.SetDefault("database.ssl_mode", "require")
	v.SetDefault("database.max_connections", 25)
	v.SetDefault("database.min_idle_connections", 5)

	// Redis defaults
	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.url", "redis://localhost:6379/0")

	// Auth defaults
	v.SetDefault("auth.api_keys.prefix", "sundai")
	v.SetDefault("auth.session.expiry", "24h")
	v.SetDefault("auth.discord_oauth.scopes", []string{"identify", "email"})

	// Security defaults
	v.SetDefault("security.cors.allowed_origins", []string{"http://localhost:3000"})
	v.SetDefault("security.cors.allowed_methods", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"})
	v.SetDefault("security.cors.allow_credentials", true)
	v.SetDefault("security.rate_limiting.enabled", true)
	v.SetDefault("security.rate_limiting.requests_per_window", 100)
	v.SetDefault("security.rate_limiting.window", "15m")
	v.SetDefault("security.rate_limiting.burst", 20)
	v.SetDefault("security.tls.enabled", false)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	// Telemetry defaults
	v.SetDefault("telemetry.service_name", "hackathon-api")
	v.SetDefault("telemetry.metrics.enabled", true)
	v.SetDefault("telemetry.metrics.prometheus_port", 9090)

	// OpenAI defaults
	v.SetDefault("openai.model", "gpt-3.5-turbo")

	// Matching defaults
	v.SetDefault("matching.concurrency", 4)
	v.SetDefault("matching.call_timeout", "15s")
	v.SetDefault("matching.preserve_status_on_recompute", true)

	// Notifications defaults
	v.SetDefault("notifications.api_key_expiry_warning_days", 7)
	v.SetDefault("notifications.api_key_expiry_check_interval_hours", 24)
}

// expandEnv expands environment variables in the format ${VAR_NAME}
func expandEnv(s string) string {
	return os.ExpandEnv(s)
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Server.BaseURL == "" {
		return fmt.Errorf("server.base_url is required")
	}

	if c.Database.Host == "" {
		return fmt.Errorf("database.host is required")
	}
	if c.Database.Name == "" {
		return fmt.Errorf("database.name is required")
	}
	if c.Database.User == "" {
		return fmt.Errorf("database.user is required")
	}

	if c.Redis.Enabled && c.Redis.URL == "" {
		return fmt.Errorf("redis.url is required when redis is enabled")
	}

	if c.Security.RateLimiting.Enabled {
		if c.Security.RateLimiting.RequestsPerWindow < 1 {
			return fmt.Errorf("security.rate_limiting.requests_per_window must be positive")
		}
		if c.Security.RateLimiting.Window <= 0 {
			return fmt.Errorf("security.rate_limiting.window must be positive")
		}
	}

	if c.Security.TLS.Enabled {
		if c.Security.TLS.CertFile == "" {
			return fmt.Errorf("security.tls.cert_file is required when TLS is enabled")
		}
		if c.Security.TLS.KeyFile == "" {
			return fmt.Errorf("security.tls.key_file is required when TLS is enabled")
		}
	}

	if c.Matching.Concurrency < 1 || c.Matching.Concurrency > 32 {
		return fmt.Errorf("matching.concurrency must be between 1 and 32, got %d", c.Matching.Concurrency)
	}
	if c.Matching.CallTimeout <= 0 {
		return fmt.Errorf("matching.call_timeout must be positive")
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid logging level: %s (must be debug, info, warn, or error)", c.Logging.Level)
	}

	return nil
}

// GetDSN returns the PostgreSQL connection string
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

// GetAddress returns the server address in host:port format
func (c *ServerConfig) GetAddress() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
