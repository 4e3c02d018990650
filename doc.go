// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package main provides the entry point for the applicant pipeline API server.

The server tracks membership applicants through an organization's ordered
pipeline stages (form, documents, election vote, manual approval), marks
applicants inactive when they go quiet for longer than the pipeline's
inactivity policy, hands election stages to the election subsystem as
packages, and purges inactive records on request or by retention policy.

# Starting the Server

Configuration comes from the environment (optionally a .env file) and CLI flags:

	DATABASE_URL=file:data/pipeline.db COORDINATOR_KEY=... ELECTION_KEY=... go run .

Or with flags:

	go run . -p 3318 -t postgres -d "postgres://..." -coordinator-key ... -election-key ...

# Configuration

Required settings:

  - DATABASE_URL (-d): SQLite path or PostgreSQL connection string
  - COORDINATOR_KEY (-coordinator-key): Key for X-Admin-Key on coordinator routes
  - ELECTION_KEY (-election-key): Key for X-Election-Key on package reads and the ballot callback

Optional settings:

  - PORT (-p): Server port (default: 3318)
  - DATABASE_TYPE (-t): sqlite or postgres (default: sqlite)
  - SWEEP_INTERVAL (-sweep-interval): Background sweep period, 0 disables (default: 1h)
  - PURGE_TIMEOUT (-purge-timeout): Upper bound for one purge run (default: 30s)
  - LOG_LEVEL (-log-level), LOG_FORMAT (-log-format): slog settings

# Architecture

  - pipeline: definitions, state machine, election bridge, sweeper, purger, stats
  - store: database/sql repositories with optimistic concurrency
  - app: wires services onto a connection
  - handlers, router, middleware: HTTP surface
  - scheduler: periodic sweep and retention purge
  - membership, notify: collaborators behind pipeline interfaces
  - inactivity: pure timeout and alert-level math
  - db: connection and embedded migrations
  - cliparse, logging, auth, apperr, models: supporting packages

Operators can run the same operations from the command line with
cmd/pipelinectl.
*/
package main
