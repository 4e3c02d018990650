// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package cliparse

import (
	"testing"
	"time"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("DATABASE_URL", "file:test.db")
	t.Setenv("COORDINATOR_KEY", "coord")
	t.Setenv("ELECTION_KEY", "elect")
}

func TestParseFlags_EnvVars(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("PORT", "9000")
	t.Setenv("SWEEP_INTERVAL", "15m")

	cfg, err := ParseFlags([]string{})
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Port != 9000 {
		t.Errorf("expected port 9000, got %d", cfg.Port)
	}
	if cfg.SweepInterval != 15*time.Minute {
		t.Errorf("expected sweep interval 15m, got %s", cfg.SweepInterval)
	}
}

func TestParseFlags_Defaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := ParseFlags([]string{})
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Port != 3318 {
		t.Errorf("expected default port 3318, got %d", cfg.Port)
	}
	if cfg.DatabaseType != "sqlite" {
		t.Errorf("expected default database type sqlite, got %s", cfg.DatabaseType)
	}
	if cfg.SweepInterval != time.Hour {
		t.Errorf("expected default sweep interval 1h, got %s", cfg.SweepInterval)
	}
	if cfg.PurgeTimeout != 30*time.Second {
		t.Errorf("expected default purge timeout 30s, got %s", cfg.PurgeTimeout)
	}
}

func TestParseFlags_CLIOverridesEnv(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("PORT", "9000")

	cfg, err := ParseFlags([]string{"-p", "8080", "-t", "postgres", "-sweep-interval", "0s"})
	if err != nil {
		t.Fatal(err)
	}

	// CLI should override env
	if cfg.Port != 8080 {
		t.Errorf("CLI should override env: expected 8080, got %d", cfg.Port)
	}
	if cfg.DatabaseType != "postgres" {
		t.Errorf("expected postgres, got %s", cfg.DatabaseType)
	}
	if cfg.SweepInterval != 0 {
		t.Errorf("expected disabled sweep, got %s", cfg.SweepInterval)
	}
}

func TestParseFlags_MissingRequired(t *testing.T) {
	tests := []struct {
		name  string
		unset string
	}{
		{"database url", "DATABASE_URL"},
		{"coordinator key", "COORDINATOR_KEY"},
		{"election key", "ELECTION_KEY"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequiredEnv(t)
			t.Setenv(tt.unset, "")

			if _, err := ParseFlags([]string{}); err == nil {
				t.Errorf("expected error when %s is empty", tt.unset)
			}
		})
	}
}

func TestParseFlags_InvalidValues(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"bad database type", []string{"-t", "mysql"}},
		{"bad log format", []string{"-log-format", "xml"}},
		{"negative sweep interval", []string{"-sweep-interval", "-1m"}},
		{"zero purge timeout", []string{"-purge-timeout", "0s"}},
		{"port out of range", []string{"-p", "70000"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequiredEnv(t)
			if _, err := ParseFlags(tt.args); err == nil {
				t.Errorf("expected error for %v", tt.args)
			}
		})
	}
}

func TestParseFlags_BadEnvDuration(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("SWEEP_INTERVAL", "soon")

	if _, err := ParseFlags([]string{}); err == nil {
		t.Error("expected error for unparsable SWEEP_INTERVAL")
	}
}
