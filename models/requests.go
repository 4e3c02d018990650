// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package models

import "encoding/json"

// Request types

type CreatePipelineRequest struct {
	OrganizationID string            `json:"organization_id"`
	Name           string            `json:"name"`
	Description    string            `json:"description"`
	IsActive       *bool             `json:"is_active,omitempty"`
	Inactivity     *InactivityConfig `json:"inactivity_config,omitempty"`
	Stages         []StageInput      `json:"stages,omitempty"`
}

type UpdatePipelineRequest struct {
	Name        *string           `json:"name,omitempty"`
	Description *string           `json:"description,omitempty"`
	IsActive    *bool             `json:"is_active,omitempty"`
	Inactivity  *InactivityConfig `json:"inactivity_config,omitempty"`
}

type StageInput struct {
	Name                  string          `json:"name"`
	Description           string          `json:"description"`
	StageType             StageType       `json:"stage_type"`
	Config                json.RawMessage `json:"config"`
	IsRequired            *bool           `json:"is_required,omitempty"`
	InactivityTimeoutDays *int            `json:"inactivity_timeout_days,omitempty"`
}

// UpdateStageRequest edits a stage in place. stage_type cannot change; set
// ClearInactivityTimeout to go back to the pipeline default.
type UpdateStageRequest struct {
	Name                   *string         `json:"name,omitempty"`
	Description            *string         `json:"description,omitempty"`
	Config                 json.RawMessage `json:"config,omitempty"`
	IsRequired             *bool           `json:"is_required,omitempty"`
	InactivityTimeoutDays  *int            `json:"inactivity_timeout_days,omitempty"`
	ClearInactivityTimeout bool            `json:"clear_inactivity_timeout,omitempty"`
}

type ReorderStagesRequest struct {
	StageIDs []string `json:"stage_ids"`
}

type CreateApplicantRequest struct {
	FirstName            string `json:"first_name"`
	LastName             string `json:"last_name"`
	Email                string `json:"email"`
	Phone                string `json:"phone"`
	TargetMembershipType string `json:"target_membership_type"`
	TargetRoleID         string `json:"target_role_id"`
	Notes                string `json:"notes"`
}

// TransitionRequest carries the optional inputs of a state machine trigger.
// Reason is required for hold, reject and withdraw.
type TransitionRequest struct {
	Reason    string   `json:"reason"`
	Notes     string   `json:"notes"`
	Artifacts []string `json:"artifacts,omitempty"`
}

type ConvertRequest struct {
	MembershipType string `json:"membership_type"`
	RoleID         string `json:"role_id"`
	Notes          string `json:"notes"`
}

type BatchReactivateRequest struct {
	ApplicantIDs []string `json:"applicant_ids"`
	Notes        string   `json:"notes"`
}

type AttachDocumentRequest struct {
	DocumentType string `json:"document_type"`
	FileName     string `json:"file_name"`
}

type PurgeRequest struct {
	ApplicantIDs []string `json:"applicant_ids,omitempty"`
	Confirm      bool     `json:"confirm"`
}

type UpdatePackageRequest struct {
	Summary          *string `json:"summary,omitempty"`
	Recommendation   *string `json:"recommendation,omitempty"`
	CoordinatorNotes *string `json:"coordinator_notes,omitempty"`
}

type BallotStatusRequest struct {
	Status string `json:"status"`
}

// Response types

type BatchReactivateResponse struct {
	Results   []BatchOutcome `json:"results"`
	Succeeded int            `json:"succeeded"`
	Failed    int            `json:"failed"`
}

type ApplicantListResponse struct {
	Applicants []ApplicantView `json:"applicants"`
	Count      int             `json:"count"`
}

// Error response

type ErrorResponse struct {
	Error   string            `json:"error"`
	Message string            `json:"message,omitempty"`
	Code    string            `json:"code,omitempty"`
	Details map[string]string `json:"details,omitempty"`
}
