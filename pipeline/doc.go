// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package pipeline implements the applicant workflow: pipeline definitions, the
applicant state machine, the election package handoff, the inactivity sweep,
purging and statistics.

# Services

Every service is a plain struct holding its collaborators, built once in
main.go and shared by handlers, the scheduler and pipelinectl:

	defs := pipeline.NewDefinitions(st, st, nil)
	bridge := pipeline.NewBridge(st, nil)
	machine := pipeline.NewMachine(st, st, bridge, members, nil)
	sweeper := pipeline.NewSweeper(st, st, machine, notify.LogNotifier{}, nil)

A nil Clock means time.Now in UTC.

# Status Transitions

	From                 Trigger      To
	active, on_hold      advance      active (next stage)
	active, on_hold      hold         on_hold
	on_hold              resume       active
	active, on_hold      reject       rejected
	active, on_hold,     withdraw     withdrawn
	inactive
	inactive, withdrawn, reactivate   active
	active
	active, on_hold      convert      converted (last stage only)
	active, on_hold      deactivate   inactive (sweep only)

converted and rejected accept no trigger. Every transition appends a stage
history entry and is written with ApplyTransition, which fails with a conflict
error when another writer changed the applicant first.

# Errors

Services return *apperr.Error values for validation, invalid_transition,
not_found, conflict and purge_confirmation_required. Anything else is an
infrastructure failure.
*/
package pipeline
