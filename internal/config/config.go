package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the application configuration.
type Config struct {
	ServerPort   int
	DatabasePath string
	ClientURL    string // Allowed CORS origin
	Environment  string // "development" or "production"
	LogLevel     string

	JWTSecret     string
	JWTExpiration time.Duration

	AMQPURL      string // Empty disables event publishing
	AMQPExchange string

	SchedulerInterval time.Duration
}

// Load reads an optional .env file, then loads configuration from environment
// variables or sets defaults.
func Load() (*Config, error) {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	port, err := strconv.Atoi(getEnv("PORT", "8080"))
	if err != nil {
		return nil, fmt.Errorf("invalid PORT: %w", err)
	}

	jwtExpiration, err := time.ParseDuration(getEnv("JWT_EXPIRATION", "1h"))
	if err != nil {
		return nil, fmt.Errorf("invalid JWT_EXPIRATION: %w", err)
	}

	schedulerInterval, err := time.ParseDuration(getEnv("SCHEDULER_INTERVAL", "1m"))
	if err != nil {
		return nil, fmt.Errorf("invalid SCHEDULER_INTERVAL: %w", err)
	}

	cfg := &Config{
		ServerPort:        port,
		DatabasePath:      getEnv("DATABASE_PATH", "./expenses.db"),
		ClientURL:         getEnv("CLIENT_URL", "http://localhost:3000"),
		Environment:       getEnv("APP_ENV", "development"),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		JWTSecret:         os.Getenv("JWT_SECRET"),
		JWTExpiration:     jwtExpiration,
		AMQPURL:           getEnv("AMQP_URL", ""),
		AMQPExchange:      getEnv("AMQP_EXCHANGE", "expense-tracker.events"),
		SchedulerInterval: schedulerInterval,
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// IsProduction reports whether the app runs with APP_ENV=production.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// Validate checks the configuration and returns every problem at once.
func (c *Config) Validate() error {
	var problems []string

	if c.ServerPort < 1 || c.ServerPort > 65535 {
		problems = append(problems, fmt.Sprintf("invalid port %d: must be between 1 and 65535", c.ServerPort))
	}
	if c.DatabasePath == "" {
		problems = append(problems, "DATABASE_PATH cannot be empty")
	}

	if c.JWTSecret == "" {
		problems = append(problems, "JWT_SECRET is required")
	} else if c.IsProduction() && len(c.JWTSecret) < 16 {
		problems = append(problems, "JWT_SECRET must be at least 16 bytes in production")
	}
	if c.JWTExpiration <= 0 {
		problems = append(problems, fmt.Sprintf("invalid JWT_EXPIRATION %v: must be positive", c.JWTExpiration))
	}

	if c.SchedulerInterval < time.Second {
		problems = append(problems, fmt.Sprintf("invalid SCHEDULER_INTERVAL %v: must be at least 1 second", c.SchedulerInterval))
	}

	if c.AMQPURL != "" {
		if parsed, err := url.Parse(c.AMQPURL); err != nil {
			problems = append(problems, fmt.Sprintf("invalid AMQP_URL: %v", err))
		} else if parsed.Scheme != "amqp" && parsed.Scheme != "amqps" {
			problems = append(problems, fmt.Sprintf("invalid AMQP_URL scheme '%s': must be 'amqp' or 'amqps'", parsed.Scheme))
		}
		if c.AMQPExchange == "" {
			problems = append(problems, "AMQP_EXCHANGE cannot be empty when AMQP_URL is set")
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(problems, "\n- "))
	}
	return nil
}

// Helper to get an environment variable with a default value.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}
