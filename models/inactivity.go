// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package models

import "fmt"

// TimeoutPreset selects the default inactivity timeout of a pipeline.
type TimeoutPreset string

const (
	Timeout3Months TimeoutPreset = "3_months"
	Timeout6Months TimeoutPreset = "6_months"
	Timeout1Year   TimeoutPreset = "1_year"
	TimeoutNever   TimeoutPreset = "never"
	TimeoutCustom  TimeoutPreset = "custom"
)

// Bounds enforced when a policy is written.
const (
	MinCustomTimeoutDays    = 1
	MaxCustomTimeoutDays    = 1095
	MinWarningThreshold     = 50
	MaxWarningThreshold     = 95
	DefaultWarningThreshold = 80
	DefaultPurgeDays        = 365
)

// AlertLevel is the derived inactivity state of an applicant.
type AlertLevel string

const (
	AlertNormal   AlertLevel = "normal"
	AlertWarning  AlertLevel = "warning"
	AlertCritical AlertLevel = "critical"
)

// InactivityConfig is the pipeline-wide inactivity policy. A stage may only
// override the effective number of days.
type InactivityConfig struct {
	TimeoutPreset           TimeoutPreset `json:"timeout_preset" yaml:"timeout_preset"`
	CustomTimeoutDays       *int          `json:"custom_timeout_days,omitempty" yaml:"custom_timeout_days,omitempty"`
	WarningThresholdPercent int           `json:"warning_threshold_percent" yaml:"warning_threshold_percent"`
	NotifyCoordinator       bool          `json:"notify_coordinator" yaml:"notify_coordinator"`
	NotifyApplicant         bool          `json:"notify_applicant" yaml:"notify_applicant"`
	AutoPurgeEnabled        bool          `json:"auto_purge_enabled" yaml:"auto_purge_enabled"`
	PurgeDaysAfterInactive  int           `json:"purge_days_after_inactive" yaml:"purge_days_after_inactive"`
}

// DefaultInactivityConfig is applied to pipelines created without a policy.
func DefaultInactivityConfig() InactivityConfig {
	return InactivityConfig{
		TimeoutPreset:           Timeout6Months,
		WarningThresholdPercent: DefaultWarningThreshold,
		NotifyCoordinator:       true,
		PurgeDaysAfterInactive:  DefaultPurgeDays,
	}
}

// Validate checks the boundary rules for an inactivity policy.
func (c InactivityConfig) Validate() error {
	switch c.TimeoutPreset {
	case Timeout3Months, Timeout6Months, Timeout1Year, TimeoutNever:
	case TimeoutCustom:
		if c.CustomTimeoutDays == nil {
			return fmt.Errorf("custom_timeout_days is required when timeout_preset is custom")
		}
	default:
		return fmt.Errorf("unknown timeout_preset %q", c.TimeoutPreset)
	}
	if c.CustomTimeoutDays != nil {
		if err := ValidateTimeoutDays("custom_timeout_days", *c.CustomTimeoutDays); err != nil {
			return err
		}
	}
	if c.WarningThresholdPercent < MinWarningThreshold || c.WarningThresholdPercent > MaxWarningThreshold {
		return fmt.Errorf("warning_threshold_percent must be between %d and %d", MinWarningThreshold, MaxWarningThreshold)
	}
	if c.PurgeDaysAfterInactive < 0 {
		return fmt.Errorf("purge_days_after_inactive must not be negative")
	}
	if c.AutoPurgeEnabled && c.PurgeDaysAfterInactive < 1 {
		return fmt.Errorf("purge_days_after_inactive must be at least 1 when auto purge is enabled")
	}
	return nil
}

// ValidateTimeoutDays checks a day count against the custom timeout bounds.
func ValidateTimeoutDays(field string, days int) error {
	if days < MinCustomTimeoutDays || days > MaxCustomTimeoutDays {
		return fmt.Errorf("%s must be between %d and %d", field, MinCustomTimeoutDays, MaxCustomTimeoutDays)
	}
	return nil
}
