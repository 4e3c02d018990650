// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package cliparse handles command-line argument parsing and configuration.

# Configuration

ParseFlags returns a Config struct with all settings:

	cfg, err := cliparse.ParseFlags(os.Args[1:])

Environment variables are read first (struct tags on Config), then CLI
flags override them.

# Config Fields

  - Port: Server listen port (default: 3318)
  - DatabaseURL: SQLite path or PostgreSQL connection string (required)
  - DatabaseType: sqlite or postgres (default: sqlite)
  - CoordinatorKey: Shared key for coordinator routes (required)
  - ElectionKey: Shared key for the election service callback (required)
  - SweepInterval: Background inactivity sweep period, 0 disables (default: 1h)
  - PurgeTimeout: Upper bound for one purge run (default: 30s)
  - LogLevel, LogFormat: Logger settings (default: info, auto)

# CLI Flags

	-p                Server port
	-d                Database URL
	-t                Database type
	-coordinator-key  Coordinator API key
	-election-key     Election service API key
	-sweep-interval   Sweep interval
	-purge-timeout    Purge timeout
	-log-level        Log level
	-log-format       Log format

# Environment Variables

	PORT, DATABASE_URL, DATABASE_TYPE, COORDINATOR_KEY, ELECTION_KEY,
	SWEEP_INTERVAL, PURGE_TIMEOUT, LOG_LEVEL, LOG_FORMAT

# Validation

ParseFlags returns an error if DATABASE_URL, COORDINATOR_KEY or ELECTION_KEY
is missing, or if an enumerated value is not recognized.
*/
package cliparse
