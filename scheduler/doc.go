// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package scheduler drives the periodic inactivity sweep.

Each tick runs pipeline.Sweeper.Sweep and then pipeline.Purger.AutoPurge.
Cancelling the context passed to Run stops further ticks; a cycle that has
already started runs to completion.

	runner := scheduler.NewRunner(sweeper, purger, cfg.SweepInterval)
	go runner.Run(ctx)
*/
package scheduler
