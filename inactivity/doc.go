// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package inactivity computes timeout thresholds and alert levels.

The functions are pure; the sweep that acts on their results lives in the
pipeline package.

	timeout := inactivity.EffectiveTimeoutDays(p.Inactivity, stage.InactivityTimeoutDays)
	level := inactivity.AlertLevel(a.LastActivityAt, now, timeout, p.Inactivity.WarningThresholdPercent)

With a 90 day timeout and an 80% threshold the warning starts at day 72:

	71 → normal
	72 → warning
	90 → critical
*/
package inactivity
