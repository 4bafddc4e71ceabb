// Package config loads runtime configuration from environment variables.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds runtime configuration for the application.
type Config struct {
	Addr            string        `envconfig:"ADDR" default:":8080"`
	ReadTimeout     time.Duration `envconfig:"READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `envconfig:"WRITE_TIMEOUT" default:"15s"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s"`

	// DatabaseURL selects the Postgres store; the in-memory store is used
	// when empty.
	DatabaseURL string `envconfig:"DATABASE_URL"`

	Currency           string `envconfig:"CURRENCY" default:"INR"`
	AllowNegativeStock bool   `envconfig:"ALLOW_NEGATIVE_STOCK" default:"false"`

	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"text"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	cfg.Currency = strings.ToUpper(strings.TrimSpace(cfg.Currency))
	if len(cfg.Currency) != 3 {
		return nil, fmt.Errorf("currency %q is not an ISO 4217 code", cfg.Currency)
	}
	return &cfg, nil
}
