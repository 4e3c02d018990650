// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package main

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/spf13/cobra"

	"github.com/danielhkuo/applicant-pipeline/app"
	"github.com/danielhkuo/applicant-pipeline/db"
	"github.com/danielhkuo/applicant-pipeline/logging"
)

// ctlConfig is the subset of server configuration the CLI needs.
type ctlConfig struct {
	DatabaseURL  string        `env:"DATABASE_URL"`
	DatabaseType string        `env:"DATABASE_TYPE" envDefault:"sqlite"`
	PurgeTimeout time.Duration `env:"PURGE_TIMEOUT" envDefault:"30s"`
	LogLevel     string        `env:"LOG_LEVEL" envDefault:"warn"`
}

// cli holds state shared by every subcommand.
type cli struct {
	cfg  ctlConfig
	conn *sql.DB
	svc  *app.Services
}

func newRootCmd() *cobra.Command {
	c := &cli{}
	if err := env.Parse(&c.cfg); err != nil {
		// Fall back to defaults; flags can still supply everything.
		c.cfg = ctlConfig{DatabaseType: db.TypeSQLite, PurgeTimeout: app.DefaultPurgeTimeout, LogLevel: "warn"}
	}

	root := &cobra.Command{
		Use:   "pipelinectl",
		Short: "Operate applicant pipelines from the command line",
		Long: `pipelinectl talks to the pipeline database directly. It runs the same
inactivity sweep and purge the server schedules, prints pipeline stats and
applicant listings, and imports pipeline definitions from YAML.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.open()
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return c.close()
		},
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&c.cfg.DatabaseURL, "database-url", "d", c.cfg.DatabaseURL, "Database URL (env DATABASE_URL)")
	flags.StringVarP(&c.cfg.DatabaseType, "database-type", "t", c.cfg.DatabaseType, "Database type: sqlite or postgres")
	flags.DurationVar(&c.cfg.PurgeTimeout, "purge-timeout", c.cfg.PurgeTimeout, "Upper bound for one purge run")
	flags.StringVar(&c.cfg.LogLevel, "log-level", c.cfg.LogLevel, "Log level (debug, info, warn, error)")

	root.AddCommand(
		newSweepCmd(c),
		newPurgeCmd(c),
		newStatsCmd(c),
		newApplicantsCmd(c),
		newImportCmd(c),
	)
	return root
}

func (c *cli) open() error {
	if c.cfg.DatabaseURL == "" {
		return fmt.Errorf("database url is required (set DATABASE_URL or -d)")
	}
	logging.Setup(c.cfg.LogLevel, "auto")

	conn, err := db.Open(c.cfg.DatabaseType, c.cfg.DatabaseURL)
	if err != nil {
		return err
	}
	if err := db.CreateSchema(conn); err != nil {
		conn.Close()
		return fmt.Errorf("failed to prepare schema: %w", err)
	}
	c.conn = conn
	c.svc = app.New(conn, app.Options{PurgeTimeout: c.cfg.PurgeTimeout})
	return nil
}

func (c *cli) close() error {
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	return err
}
