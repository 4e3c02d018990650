// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

// Package app wires the pipeline services onto a database connection. The
// HTTP server and pipelinectl share it.
package app

import (
	"database/sql"
	"time"

	"github.com/danielhkuo/applicant-pipeline/membership"
	"github.com/danielhkuo/applicant-pipeline/notify"
	"github.com/danielhkuo/applicant-pipeline/pipeline"
	"github.com/danielhkuo/applicant-pipeline/store"
)

// DefaultPurgeTimeout bounds a purge when Options leaves it unset.
const DefaultPurgeTimeout = 30 * time.Second

type Options struct {
	Clock        pipeline.Clock
	Notifier     pipeline.Notifier
	PurgeTimeout time.Duration
}

type Services struct {
	Store       *store.Store
	Definitions *pipeline.Definitions
	Machine     *pipeline.Machine
	Bridge      *pipeline.Bridge
	Sweeper     *pipeline.Sweeper
	Purger      *pipeline.Purger
	Stats       *pipeline.Stats
	Members     *membership.Service
}

// New builds every service over conn. Notifications default to the log.
func New(conn *sql.DB, opts Options) *Services {
	if opts.Notifier == nil {
		opts.Notifier = notify.LogNotifier{}
	}
	if opts.PurgeTimeout <= 0 {
		opts.PurgeTimeout = DefaultPurgeTimeout
	}

	st := store.New(conn)
	members := membership.NewService(conn)
	bridge := pipeline.NewBridge(st, opts.Clock)
	machine := pipeline.NewMachine(st, st, bridge, members, opts.Clock)

	return &Services{
		Store:       st,
		Definitions: pipeline.NewDefinitions(st, st, opts.Clock),
		Machine:     machine,
		Bridge:      bridge,
		Sweeper:     pipeline.NewSweeper(st, st, machine, opts.Notifier, opts.Clock),
		Purger:      pipeline.NewPurger(st, st, opts.PurgeTimeout, opts.Clock),
		Stats:       pipeline.NewStats(st, st, opts.Clock),
		Members:     members,
	}
}
