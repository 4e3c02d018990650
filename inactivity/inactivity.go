// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package inactivity

import (
	"math"
	"time"

	"github.com/danielhkuo/applicant-pipeline/models"
)

const day = 24 * time.Hour

var presetDays = map[models.TimeoutPreset]int{
	models.Timeout3Months: 90,
	models.Timeout6Months: 180,
	models.Timeout1Year:   365,
}

// EffectiveTimeoutDays resolves the timeout for an applicant's stage.
// A nil result means the timeout is disabled.
//
// Precedence: positive stage override, then never (nil), then custom (nil
// unless the custom value is positive), then the preset table.
func EffectiveTimeoutDays(cfg models.InactivityConfig, stageOverride *int) *int {
	if stageOverride != nil && *stageOverride > 0 {
		return intPtr(*stageOverride)
	}
	switch cfg.TimeoutPreset {
	case models.TimeoutNever:
		return nil
	case models.TimeoutCustom:
		if cfg.CustomTimeoutDays == nil || *cfg.CustomTimeoutDays <= 0 {
			return nil
		}
		return intPtr(*cfg.CustomTimeoutDays)
	}
	if days, ok := presetDays[cfg.TimeoutPreset]; ok {
		return intPtr(days)
	}
	return nil
}

// WarningDays is the day count at which the warning level starts.
func WarningDays(timeoutDays, warningThresholdPercent int) int {
	return int(math.Round(float64(timeoutDays) * float64(warningThresholdPercent) / 100))
}

// LevelForDays classifies a days-since-activity count.
func LevelForDays(daysSinceActivity int, timeoutDays *int, warningThresholdPercent int) models.AlertLevel {
	if timeoutDays == nil {
		return models.AlertNormal
	}
	switch {
	case daysSinceActivity >= *timeoutDays:
		return models.AlertCritical
	case daysSinceActivity >= WarningDays(*timeoutDays, warningThresholdPercent):
		return models.AlertWarning
	default:
		return models.AlertNormal
	}
}

// AlertLevel computes the alert level of an applicant last active at lastActivityAt.
func AlertLevel(lastActivityAt, now time.Time, timeoutDays *int, warningThresholdPercent int) models.AlertLevel {
	return LevelForDays(DaysSince(lastActivityAt, now), timeoutDays, warningThresholdPercent)
}

// DaysSince counts whole days elapsed between t and now. Future times count as 0.
func DaysSince(t, now time.Time) int {
	if t.IsZero() || !now.After(t) {
		return 0
	}
	return int(now.Sub(t) / day)
}

// Evaluation is the derived inactivity state of one applicant.
type Evaluation struct {
	TimeoutDays       *int
	DaysSinceActivity int
	Level             models.AlertLevel
}

// Evaluate resolves the timeout for the applicant's current stage and classifies it.
func Evaluate(p *models.Pipeline, a *models.Applicant, now time.Time) Evaluation {
	var override *int
	if idx := p.StageIndex(a.CurrentStageID); idx >= 0 {
		override = p.Stages[idx].InactivityTimeoutDays
	}
	timeout := EffectiveTimeoutDays(p.Inactivity, override)
	days := DaysSince(a.LastActivityAt, now)
	return Evaluation{
		TimeoutDays:       timeout,
		DaysSinceActivity: days,
		Level:             LevelForDays(days, timeout, p.Inactivity.WarningThresholdPercent),
	}
}

func intPtr(v int) *int { return &v }
