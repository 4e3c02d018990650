// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package models

import "time"

// Applicant status constants
const (
	StatusActive    = "active"
	StatusOnHold    = "on_hold"
	StatusInactive  = "inactive"
	StatusWithdrawn = "withdrawn"
	StatusRejected  = "rejected"
	StatusConverted = "converted"
)

// Election package status constants
const (
	PackageDraft         = "draft"
	PackageReady         = "ready"
	PackageAddedToBallot = "added_to_ballot"
	PackageElected       = "elected"
	PackageNotElected    = "not_elected"
)

// IsTerminal reports whether no further stage progression is possible.
func IsTerminal(status string) bool {
	return status == StatusConverted || status == StatusRejected || status == StatusWithdrawn
}

// IsWorking reports whether the applicant is active or on hold.
func IsWorking(status string) bool {
	return status == StatusActive || status == StatusOnHold
}

// Domain types

type Pipeline struct {
	ID             string           `json:"id"`
	OrganizationID string           `json:"organization_id"`
	Name           string           `json:"name"`
	Description    string           `json:"description,omitempty"`
	IsActive       bool             `json:"is_active"`
	Inactivity     InactivityConfig `json:"inactivity_config"`
	Stages         []PipelineStage  `json:"stages"`
	CreatedAt      time.Time        `json:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at"`
}

// FirstStage returns the stage with the lowest sort order.
func (p *Pipeline) FirstStage() (PipelineStage, bool) {
	if len(p.Stages) == 0 {
		return PipelineStage{}, false
	}
	return p.Stages[0], true
}

// StageIndex returns the position of stageID in the ordered stages, or -1.
func (p *Pipeline) StageIndex(stageID string) int {
	for i, s := range p.Stages {
		if s.ID == stageID {
			return i
		}
	}
	return -1
}

// IsLastStage reports whether stageID is the final stage of the pipeline.
func (p *Pipeline) IsLastStage(stageID string) bool {
	idx := p.StageIndex(stageID)
	return idx >= 0 && idx == len(p.Stages)-1
}

type Applicant struct {
	ID                   string              `json:"id"`
	PipelineID           string              `json:"pipeline_id"`
	FirstName            string              `json:"first_name"`
	LastName             string              `json:"last_name"`
	Email                string              `json:"email"`
	Phone                string              `json:"phone,omitempty"`
	CurrentStageID       string              `json:"current_stage_id"`
	Status               string              `json:"status"`
	StageEnteredAt       time.Time           `json:"stage_entered_at"`
	LastActivityAt       time.Time           `json:"last_activity_at"`
	DeactivatedAt        *time.Time          `json:"deactivated_at,omitempty"`
	DeactivationReason   string              `json:"deactivation_reason,omitempty"`
	WithdrawnAt          *time.Time          `json:"withdrawn_at,omitempty"`
	WithdrawalReason     string              `json:"withdrawal_reason,omitempty"`
	TargetMembershipType string              `json:"target_membership_type,omitempty"`
	TargetRoleID         string              `json:"target_role_id,omitempty"`
	ConvertedAt          *time.Time          `json:"converted_at,omitempty"`
	MemberID             string              `json:"member_id,omitempty"`
	Notes                string              `json:"notes,omitempty"`
	StageHistory         []StageHistoryEntry `json:"stage_history"`
	CreatedAt            time.Time           `json:"created_at"`
	UpdatedAt            time.Time           `json:"updated_at"`
	Version              int64               `json:"version"`
}

// FullName joins first and last name.
func (a *Applicant) FullName() string {
	if a.LastName == "" {
		return a.FirstName
	}
	return a.FirstName + " " + a.LastName
}

// StartedAt is the entered_at of the earliest history entry, or CreatedAt.
func (a *Applicant) StartedAt() time.Time {
	start := a.CreatedAt
	for _, h := range a.StageHistory {
		if h.EnteredAt.Before(start) {
			start = h.EnteredAt
		}
	}
	return start
}

// StageHistoryEntry is an immutable record of a stage visit or status change.
type StageHistoryEntry struct {
	ID          string     `json:"id"`
	ApplicantID string     `json:"applicant_id"`
	Sequence    int        `json:"sequence"`
	Action      string     `json:"action"`
	StageID     string     `json:"stage_id"`
	StageName   string     `json:"stage_name"`
	StageType   StageType  `json:"stage_type"`
	EnteredAt   time.Time  `json:"entered_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	CompletedBy string     `json:"completed_by,omitempty"`
	Notes       string     `json:"notes,omitempty"`
	Artifacts   []string   `json:"artifacts,omitempty"`
	RecordedAt  time.Time  `json:"recorded_at"`
}

// ApplicantDocument is a file reference uploaded for an applicant.
type ApplicantDocument struct {
	ID           string    `json:"id"`
	ApplicantID  string    `json:"applicant_id"`
	StageID      string    `json:"stage_id"`
	DocumentType string    `json:"document_type"`
	FileName     string    `json:"file_name"`
	UploadedBy   string    `json:"uploaded_by,omitempty"`
	UploadedAt   time.Time `json:"uploaded_at"`
}

// ApplicantSnapshot is the identity captured when an election package is created.
type ApplicantSnapshot struct {
	FirstName            string    `json:"first_name"`
	LastName             string    `json:"last_name"`
	Email                string    `json:"email"`
	Phone                string    `json:"phone,omitempty"`
	TargetMembershipType string    `json:"target_membership_type,omitempty"`
	CapturedAt           time.Time `json:"captured_at"`
}

type ElectionPackage struct {
	ID               string            `json:"id"`
	ApplicantID      string            `json:"applicant_id"`
	PipelineID       string            `json:"pipeline_id"`
	StageID          string            `json:"stage_id"`
	Status           string            `json:"status"`
	Snapshot         ApplicantSnapshot `json:"applicant_snapshot"`
	Summary          string            `json:"summary,omitempty"`
	Recommendation   string            `json:"recommendation,omitempty"`
	CoordinatorNotes string            `json:"coordinator_notes,omitempty"`
	ReadyAt          *time.Time        `json:"ready_at,omitempty"`
	CreatedAt        time.Time         `json:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at"`
}

// ApplicantView is an applicant with its derived inactivity state.
type ApplicantView struct {
	Applicant
	AlertLevel           AlertLevel `json:"alert_level"`
	DaysSinceActivity    int        `json:"days_since_activity"`
	EffectiveTimeoutDays *int       `json:"effective_timeout_days,omitempty"`
}

type PipelineStats struct {
	PipelineID       string         `json:"pipeline_id"`
	TotalApplicants  int            `json:"total_applicants"`
	ActiveApplicants int            `json:"active_applicants"`
	OnHoldApplicants int            `json:"on_hold_applicants"`
	ConvertedCount   int            `json:"converted_count"`
	RejectedCount    int            `json:"rejected_count"`
	WithdrawnCount   int            `json:"withdrawn_count"`
	InactiveCount    int            `json:"inactive_count"`
	ConversionRate   float64        `json:"conversion_rate"`
	AvgDaysToConvert float64        `json:"avg_days_to_convert"`
	ByStage          map[string]int `json:"by_stage"`
	ComputedAt       time.Time      `json:"computed_at"`
}

type SweepResult struct {
	Scanned     int `json:"scanned"`
	Deactivated int `json:"deactivated"`
	Failed      int `json:"failed"`
}

type PurgeResult struct {
	PurgedCount int               `json:"purged_count"`
	SkippedIDs  []string          `json:"skipped_ids"`
	Failed      map[string]string `json:"failed,omitempty"`
}

// BatchOutcome is the per-item result of a bulk operation.
type BatchOutcome struct {
	ApplicantID string     `json:"applicant_id"`
	OK          bool       `json:"ok"`
	Status      string     `json:"status,omitempty"`
	Error       string     `json:"error,omitempty"`
	Code        string     `json:"code,omitempty"`
	Applicant   *Applicant `json:"-"`
}

// Member is the record created when an applicant converts.
type Member struct {
	ID             string    `json:"id"`
	ApplicantID    string    `json:"applicant_id"`
	FirstName      string    `json:"first_name"`
	LastName       string    `json:"last_name"`
	Email          string    `json:"email"`
	MembershipType string    `json:"membership_type"`
	RoleID         string    `json:"role_id,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}
