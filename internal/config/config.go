// Package config loads the bot configuration from environment variables.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config collects every runtime knob. Variable names keep their historical
// forms (TELOXIDE_TOKEN, DATABASE_*), so existing deployments keep working.
type Config struct {
	BotToken  string `envconfig:"TELOXIDE_TOKEN"`
	PrettyLog bool   `envconfig:"PRETTY_LOG" default:"false"`

	DatabaseHost     string `envconfig:"DATABASE_HOST" default:""`
	DatabasePort     int    `envconfig:"DATABASE_PORT" default:"5432"`
	DatabaseName     string `envconfig:"DATABASE_NAME" default:"allinone_bot"`
	DatabaseUser     string `envconfig:"DATABASE_USER" default:"postgres"`
	DatabasePassword string `envconfig:"DATABASE_PASSWORD" default:""`

	// SQLitePath selects the embedded backend when no Postgres host is set.
	SQLitePath string `envconfig:"SQLITE_PATH" default:"data/allinone.db"`

	WhisperURL string `envconfig:"WHISPER_API_URL" default:"http://localhost:9000"`

	CheckInterval   time.Duration `envconfig:"CHECK_INTERVAL" default:"30s"`
	DeliveryTimeout time.Duration `envconfig:"DELIVERY_TIMEOUT" default:"5s"`
	HTTPTimeout     time.Duration `envconfig:"HTTP_TIMEOUT" default:"20s"`
}

// New parses the environment and validates the result.
func New() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.BotToken == "" {
		return errors.New("TELOXIDE_TOKEN is required")
	}
	if c.CheckInterval <= 0 {
		return errors.New("CHECK_INTERVAL must be positive")
	}
	if c.DeliveryTimeout <= 0 {
		return errors.New("DELIVERY_TIMEOUT must be positive")
	}
	return nil
}

// PostgresDSN returns the connection string, or "" when Postgres is not
// configured and the embedded backend should be used instead.
func (c *Config) PostgresDSN() string {
	if c.DatabaseHost == "" {
		return ""
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s",
		c.DatabaseUser, c.DatabasePassword, c.DatabaseHost, c.DatabasePort, c.DatabaseName)
}
