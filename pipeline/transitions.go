// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package pipeline

import "github.com/danielhkuo/applicant-pipeline/models"

// Trigger names an applicant state machine event. The value is also the
// action recorded in stage history.
type Trigger string

const (
	TriggerIntake     Trigger = "intake"
	TriggerAdvance    Trigger = "advance"
	TriggerHold       Trigger = "hold"
	TriggerResume     Trigger = "resume"
	TriggerReject     Trigger = "reject"
	TriggerWithdraw   Trigger = "withdraw"
	TriggerReactivate Trigger = "reactivate"
	TriggerConvert    Trigger = "convert"
	TriggerDeactivate Trigger = "deactivate"
	TriggerActivity   Trigger = "activity"
	TriggerDocument   Trigger = "document"
)

// transitions maps current status and trigger to the resulting status.
// A missing entry is an invalid transition.
var transitions = map[string]map[Trigger]string{
	models.StatusActive: {
		TriggerAdvance:    models.StatusActive,
		TriggerHold:       models.StatusOnHold,
		TriggerReject:     models.StatusRejected,
		TriggerWithdraw:   models.StatusWithdrawn,
		TriggerReactivate: models.StatusActive,
		TriggerConvert:    models.StatusConverted,
		TriggerDeactivate: models.StatusInactive,
		TriggerActivity:   models.StatusActive,
		TriggerDocument:   models.StatusActive,
	},
	models.StatusOnHold: {
		TriggerAdvance:    models.StatusActive,
		TriggerHold:       models.StatusOnHold,
		TriggerResume:     models.StatusActive,
		TriggerReject:     models.StatusRejected,
		TriggerWithdraw:   models.StatusWithdrawn,
		TriggerConvert:    models.StatusConverted,
		TriggerDeactivate: models.StatusInactive,
		TriggerActivity:   models.StatusOnHold,
		TriggerDocument:   models.StatusOnHold,
	},
	models.StatusInactive: {
		TriggerWithdraw:   models.StatusWithdrawn,
		TriggerReactivate: models.StatusActive,
	},
	models.StatusWithdrawn: {
		TriggerReactivate: models.StatusActive,
	},
	// converted and rejected accept nothing.
}

// NextStatus returns the status reached by firing trigger from status.
func NextStatus(status string, trigger Trigger) (string, bool) {
	next, ok := transitions[status][trigger]
	return next, ok
}

// CanTransition reports whether trigger is legal from status.
func CanTransition(status string, trigger Trigger) bool {
	_, ok := NextStatus(status, trigger)
	return ok
}
