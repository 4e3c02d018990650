// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package cliparse

import (
	"errors"
	"flag"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	Port           int           `env:"PORT" envDefault:"3318"`
	DatabaseURL    string        `env:"DATABASE_URL"`
	DatabaseType   string        `env:"DATABASE_TYPE" envDefault:"sqlite"`
	CoordinatorKey string        `env:"COORDINATOR_KEY"`
	ElectionKey    string        `env:"ELECTION_KEY"`
	SweepInterval  time.Duration `env:"SWEEP_INTERVAL" envDefault:"1h"`
	PurgeTimeout   time.Duration `env:"PURGE_TIMEOUT" envDefault:"30s"`
	LogLevel       string        `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat      string        `env:"LOG_FORMAT" envDefault:"auto"`
}

// ParseFlags reads the environment, then lets CLI flags override it
func ParseFlags(args []string) (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	fs := flag.NewFlagSet("applicant-pipeline", flag.ContinueOnError)

	// Network config (can be CLI args or env)
	fs.IntVar(&cfg.Port, "p", cfg.Port, "Server port")
	fs.StringVar(&cfg.DatabaseURL, "d", cfg.DatabaseURL, "Database URL")
	fs.StringVar(&cfg.DatabaseType, "t", cfg.DatabaseType, "Database type (sqlite or postgres)")

	// Secrets (prefer env variables, but allow CLI for dev)
	fs.StringVar(&cfg.CoordinatorKey, "coordinator-key", cfg.CoordinatorKey, "Coordinator API key (prefer env)")
	fs.StringVar(&cfg.ElectionKey, "election-key", cfg.ElectionKey, "Election service API key (prefer env)")

	fs.DurationVar(&cfg.SweepInterval, "sweep-interval", cfg.SweepInterval, "Inactivity sweep interval (0 disables)")
	fs.DurationVar(&cfg.PurgeTimeout, "purge-timeout", cfg.PurgeTimeout, "Upper bound for one purge run")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level (debug, info, warn, error)")
	fs.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "Log format (auto, text, json)")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks required values and enumerations.
func (c Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.DatabaseURL == "" {
		return errors.New("database URL required (use -d or DATABASE_URL env)")
	}
	if c.DatabaseType != "sqlite" && c.DatabaseType != "postgres" {
		return fmt.Errorf("unsupported database type %q (use sqlite or postgres)", c.DatabaseType)
	}

	// Secrets - MUST be provided
	if c.CoordinatorKey == "" {
		return errors.New("COORDINATOR_KEY required")
	}
	if c.ElectionKey == "" {
		return errors.New("ELECTION_KEY required")
	}

	if c.SweepInterval < 0 {
		return errors.New("sweep interval cannot be negative")
	}
	if c.PurgeTimeout <= 0 {
		return errors.New("purge timeout must be positive")
	}
	switch c.LogFormat {
	case "auto", "text", "json":
	default:
		return fmt.Errorf("unsupported log format %q", c.LogFormat)
	}
	return nil
}
