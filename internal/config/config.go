// Package config loads the gateway's runtime tunables from the environment.
// The persistent settings (server address, sweep interval, accounts) live in
// the settings file instead.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

const (
	LogFormatText    = "text"
	LogFormatJSON    = "json"
	LogFormatLogfmt  = "logfmt"
	defaultLogLevel  = "info"
	defaultLogFormat = LogFormatText
)

// Serve configures `gsg serve` and `gsg push`.
type Serve struct {
	WorldFile            string        `env:"GSG_WORLD_FILE"`
	LogLevel             string        `env:"GSG_LOG_LEVEL"              envDefault:"info"`
	LogFormat            string        `env:"GSG_LOG_FORMAT"             envDefault:"text"`
	MaxReconnectAttempts int           `env:"GSG_MAX_RECONNECT_ATTEMPTS" envDefault:"10"`
	ReconnectDelay       time.Duration `env:"GSG_RECONNECT_DELAY"        envDefault:"3s"`
	SettleTimeout        time.Duration `env:"GSG_SETTLE_TIMEOUT"         envDefault:"5s"`
	PushTimeout          time.Duration `env:"GSG_PUSH_TIMEOUT"           envDefault:"15s"`
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// LoadServe parses Serve from the environment and validates it.
func LoadServe() (Serve, error) {
	var cfg Serve
	if err := ParseEnv(&cfg); err != nil {
		return Serve{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Serve{}, err
	}

	return cfg.normalized(), nil
}

func (c Serve) Validate() error {
	if c.MaxReconnectAttempts < 0 {
		return fmt.Errorf("GSG_MAX_RECONNECT_ATTEMPTS must not be negative, got %d", c.MaxReconnectAttempts)
	}
	if c.ReconnectDelay < 0 {
		return fmt.Errorf("GSG_RECONNECT_DELAY must not be negative, got %s", c.ReconnectDelay)
	}
	if c.SettleTimeout <= 0 {
		return fmt.Errorf("GSG_SETTLE_TIMEOUT must be positive, got %s", c.SettleTimeout)
	}
	if c.PushTimeout <= 0 {
		return fmt.Errorf("GSG_PUSH_TIMEOUT must be positive, got %s", c.PushTimeout)
	}

	switch strings.ToLower(strings.TrimSpace(c.LogFormat)) {
	case "", LogFormatText, LogFormatJSON, LogFormatLogfmt:
	default:
		return fmt.Errorf("GSG_LOG_FORMAT must be one of text, json, logfmt, got %q", c.LogFormat)
	}

	return nil
}

func (c Serve) normalized() Serve {
	c.WorldFile = strings.TrimSpace(c.WorldFile)
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
	if c.LogLevel == "" {
		c.LogLevel = defaultLogLevel
	}
	c.LogFormat = strings.ToLower(strings.TrimSpace(c.LogFormat))
	if c.LogFormat == "" {
		c.LogFormat = defaultLogFormat
	}

	return c
}
