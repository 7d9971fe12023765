// Package config provides application configuration.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Port        string
	FrontendURL string
	DBPath      string

	// TurnDelay gates every dialogue turn response to emulate backend
	// latency; DecisionDelay additionally gates the terminal decision.
	TurnDelay     time.Duration
	DecisionDelay time.Duration

	// Idle dialogue sessions are evicted after SessionTTL.
	SessionTTL    time.Duration
	SweepInterval time.Duration
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		Port:          getEnv("PORT", "8080"),
		FrontendURL:   getEnv("FRONTEND_URL", ""),
		DBPath:        getEnv("DB_PATH", "./data/loangenie.db"),
		TurnDelay:     time.Duration(getEnvInt("TURN_DELAY_MS", 1000)) * time.Millisecond,
		DecisionDelay: time.Duration(getEnvInt("DECISION_DELAY_MS", 3000)) * time.Millisecond,
		SessionTTL:    60 * time.Minute,
		SweepInterval: 5 * time.Minute,
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}
	if c.DBPath == "" {
		return fmt.Errorf("DB_PATH cannot be empty")
	}
	if c.TurnDelay < 0 {
		return fmt.Errorf("TURN_DELAY_MS cannot be negative")
	}
	if c.DecisionDelay < 0 {
		return fmt.Errorf("DECISION_DELAY_MS cannot be negative")
	}
	return nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.FrontendURL == "" ||
		strings.Contains(c.FrontendURL, "localhost") ||
		strings.Contains(c.FrontendURL, "127.0.0.1")
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || n < 0 {
		return fallback
	}
	return n
}
