// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration. It is read once at startup and
// passed to constructors; nothing mutates it afterwards.
type Config struct {
	SecretKey string

	StripeKey     string
	StripeAccount string

	QontoLogin  string
	QontoSecret string
	QontoURL    string

	ScalewayKey string
	ScalewayURL string

	Port        int
	StartYear   int
	LogLevel    string
	HTTPTimeout time.Duration

	// WriteTimeout bounds a whole API response. Reports fan out to several
	// upstream calls, so it is much larger than HTTPTimeout. Zero disables it.
	WriteTimeout time.Duration

	ExportBucket    string
	CredentialsFile string // service account JSON for the export bucket, optional
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{
		SecretKey:       getEnv("BUGBUILDERS_SECRET_KEY", ""),
		StripeKey:       getEnv("BUGBUILDERS_STRIPE_KEY", ""),
		StripeAccount:   getEnv("BUGBUILDERS_STRIPE_ACCOUNT", ""),
		QontoLogin:      getEnv("BUGBUILDERS_QONTO_LOGIN", ""),
		QontoSecret:     getEnv("BUGBUILDERS_QONTO_SECRET", ""),
		QontoURL:        getEnv("BUGBUILDERS_QONTO_URL", "https://thirdparty.qonto.com/v2/"),
		ScalewayKey:     getEnv("BUGBUILDERS_SCALEWAY_KEY", ""),
		ScalewayURL:     getEnv("BUGBUILDERS_SCALEWAY_URL", "https://billing.scaleway.com"),
		Port:            getEnvAsInt("BUGBUILDERS_SERVER_PORT", 3000),
		StartYear:       getEnvAsInt("BUGBUILDERS_START_YEAR", 2018),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		HTTPTimeout:     getEnvAsDuration("BUGBUILDERS_HTTP_TIMEOUT", 30*time.Second),
		WriteTimeout:    getEnvAsDuration("BUGBUILDERS_WRITE_TIMEOUT", 5*time.Minute),
		ExportBucket:    getEnv("BUGBUILDERS_EXPORT_BUCKET", ""),
		CredentialsFile: getEnv("GOOGLE_APPLICATION_CREDENTIALS", ""),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if required configuration is present
func (c *Config) Validate() error {
	if c.SecretKey == "" {
		return fmt.Errorf("BUGBUILDERS_SECRET_KEY is required")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Port)
	}
	if c.HTTPTimeout <= 0 {
		return fmt.Errorf("invalid HTTP timeout %s", c.HTTPTimeout)
	}
	if c.WriteTimeout < 0 {
		return fmt.Errorf("invalid write timeout %s", c.WriteTimeout)
	}
	return nil
}

// ExportEnabled reports whether report exports have a destination bucket.
func (c *Config) ExportEnabled() bool {
	return c.ExportBucket != ""
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
