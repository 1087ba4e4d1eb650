package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/openshelf/critique/pkg/observability"
)

// Config holds all application configuration
type Config struct {
	Server        ServerConfig
	Database      DatabaseConfig
	Auth          AuthConfig
	Mail          MailConfig
	RateLimit     RateLimitConfig
	Observability ObservabilityConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	// Health/metrics server (separate port for k8s probes)
	HealthPort string
}

// DatabaseConfig holds PostgreSQL settings
type DatabaseConfig struct {
	URL      string
	MaxConns int
	MinConns int
	Timeout  time.Duration
}

// AuthConfig holds sign-in flow settings
type AuthConfig struct {
	// TokenSecret signs access tokens; CodeSecret keys confirmation codes.
	// The two must differ so a leaked code key cannot mint tokens.
	TokenSecret string
	CodeSecret  string
	TokenTTL    time.Duration
	CodeWindow  time.Duration

	// Bootstrap admin, created at startup when both are set.
	AdminUsername string
	AdminEmail    string
}

// MailConfig holds SMTP relay settings
type MailConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// RateLimitConfig holds the sign-in rate limiter settings. An empty Redis URL
// disables limiting.
type RateLimitConfig struct {
	RedisURL      string
	RedisPassword string
	RedisDB       int
	Requests      int
	Window        time.Duration
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	LogLevel       observability.LogLevel
	MetricsEnabled bool
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host:            getEnv("CRITIQUE_HOST", "0.0.0.0"),
			Port:            getEnv("CRITIQUE_PORT", "8080"),
			ReadTimeout:     getEnvDuration("CRITIQUE_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getEnvDuration("CRITIQUE_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:     getEnvDuration("CRITIQUE_IDLE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: getEnvDuration("CRITIQUE_SHUTDOWN_TIMEOUT", 30*time.Second),
			HealthPort:      getEnv("CRITIQUE_HEALTH_PORT", "9090"),
		},
		Database: DatabaseConfig{
			URL:      getEnv("CRITIQUE_POSTGRES_URL", ""),
			MaxConns: getEnvInt("CRITIQUE_POSTGRES_MAX_CONNS", 25),
			MinConns: getEnvInt("CRITIQUE_POSTGRES_MIN_CONNS", 5),
			Timeout:  getEnvDuration("CRITIQUE_POSTGRES_TIMEOUT", 5*time.Second),
		},
		Auth: AuthConfig{
			TokenSecret:   getEnv("CRITIQUE_TOKEN_SECRET", ""),
			CodeSecret:    getEnv("CRITIQUE_CODE_SECRET", ""),
			TokenTTL:      getEnvDuration("CRITIQUE_TOKEN_TTL", 24*time.Hour),
			CodeWindow:    getEnvDuration("CRITIQUE_CODE_WINDOW", 15*time.Minute),
			AdminUsername: getEnv("CRITIQUE_ADMIN_USERNAME", ""),
			AdminEmail:    getEnv("CRITIQUE_ADMIN_EMAIL", ""),
		},
		Mail: MailConfig{
			Host:     getEnv("CRITIQUE_SMTP_HOST", "localhost"),
			Port:     getEnvInt("CRITIQUE_SMTP_PORT", 25),
			Username: getEnv("CRITIQUE_SMTP_USERNAME", ""),
			Password: getEnv("CRITIQUE_SMTP_PASSWORD", ""),
			From:     getEnv("CRITIQUE_MAIL_FROM", "no-reply@critique.local"),
		},
		RateLimit: RateLimitConfig{
			RedisURL:      getEnv("CRITIQUE_REDIS_URL", ""),
			RedisPassword: getEnv("CRITIQUE_REDIS_PASSWORD", ""),
			RedisDB:       getEnvInt("CRITIQUE_REDIS_DB", 0),
			Requests:      getEnvInt("CRITIQUE_RATE_LIMIT_REQUESTS", 10),
			Window:        getEnvDuration("CRITIQUE_RATE_LIMIT_WINDOW", time.Minute),
		},
		Observability: ObservabilityConfig{
			LogLevel:       observability.ParseLogLevel(strings.ToLower(getEnv("CRITIQUE_LOG_LEVEL", "info"))),
			MetricsEnabled: getEnvBool("CRITIQUE_METRICS_ENABLED", true),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if c.Server.HealthPort == "" {
		return fmt.Errorf("health port is required")
	}
	if c.Server.Port == c.Server.HealthPort {
		return fmt.Errorf("server port and health port must be different")
	}

	if c.Database.URL == "" {
		return fmt.Errorf("postgres URL is required")
	}

	if c.Auth.TokenSecret == "" {
		return fmt.Errorf("token secret is required")
	}
	if c.Auth.CodeSecret == "" {
		return fmt.Errorf("code secret is required")
	}
	if c.Auth.TokenSecret == c.Auth.CodeSecret {
		return fmt.Errorf("token secret and code secret must be different")
	}
	if c.Auth.CodeWindow <= 0 {
		return fmt.Errorf("code window must be positive")
	}
	if (c.Auth.AdminUsername == "") != (c.Auth.AdminEmail == "") {
		return fmt.Errorf("admin username and email must be set together")
	}

	if c.RateLimit.RedisURL != "" {
		if c.RateLimit.Requests <= 0 {
			return fmt.Errorf("rate limit requests must be positive")
		}
		if c.RateLimit.Window <= 0 {
			return fmt.Errorf("rate limit window must be positive")
		}
	}

	return nil
}

// getEnv returns an environment variable value or a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool returns a boolean environment variable or a default
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}

// getEnvInt returns an integer environment variable or a default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvDuration returns a duration environment variable or a default
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
