// Package config provides configuration parsing and validation for the
// alert engine.
package config

import (
	"fmt"
	"os"
	"time"
)

// Config holds all configuration parameters for the engine.
type Config struct {
	PostgresDSN  string
	KafkaBrokers string
	EventsTopic  string
	RedisAddr    string

	EvalInterval    time.Duration
	FetchWorkers    int
	DispatchWorkers int

	WeatherBaseURL string
	WeatherAPIKey  string

	EmailFrom     string
	EmailProvider string

	SMSGatewayURL string
	SMSFrom       string
	SMSAuthToken  string

	PushGatewayURL string
	PushAPIKey     string
}

// Validate checks that all required configuration fields are set and have
// valid values.
func (c *Config) Validate() error {
	if c.PostgresDSN == "" {
		return fmt.Errorf("postgres-dsn cannot be empty")
	}
	if c.KafkaBrokers == "" {
		return fmt.Errorf("kafka-brokers cannot be empty")
	}
	if c.EventsTopic == "" {
		return fmt.Errorf("events-topic cannot be empty")
	}
	if c.RedisAddr == "" {
		return fmt.Errorf("redis-addr cannot be empty")
	}
	if c.EvalInterval <= 0 {
		return fmt.Errorf("eval-interval must be > 0")
	}
	if c.FetchWorkers <= 0 {
		return fmt.Errorf("fetch-workers must be > 0")
	}
	if c.DispatchWorkers <= 0 {
		return fmt.Errorf("dispatch-workers must be > 0")
	}
	return nil
}

// LoadSecrets fills credential fields from the environment. Secrets never
// travel through flags so they stay out of process listings.
func (c *Config) LoadSecrets() {
	c.WeatherAPIKey = getEnvOrDefault("WEATHER_API_KEY", "")
	c.SMSAuthToken = getEnvOrDefault("SMS_AUTH_TOKEN", "")
	c.PushAPIKey = getEnvOrDefault("PUSH_API_KEY", "")
}

// MaskDSN masks sensitive information in a DSN for logging.
func MaskDSN(dsn string) string {
	if len(dsn) > 50 {
		return dsn[:20] + "***" + dsn[len(dsn)-20:]
	}
	return "***"
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
