// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package models defines domain, request, and response types for the applicant
pipeline.

# Domain Types

  - Pipeline: ordered stages plus the pipeline-wide InactivityConfig
  - PipelineStage: one typed step; Config is a StageConfig variant
  - Applicant: status, stage position, timestamps and history
  - StageHistoryEntry: append-only record of a visit or status change
  - ApplicantDocument: uploaded file reference, purged with its applicant
  - ElectionPackage: snapshot handed to the election subsystem
  - Member: record created by conversion

# Stage Configuration

StageConfig is a closed set of variants selected by stage_type:

	form_submission  → FormSubmissionConfig
	document_upload  → DocumentUploadConfig
	election_vote    → ElectionVoteConfig
	manual_approval  → ManualApprovalConfig

DecodeStageConfig parses raw JSON for a declared type and rejects fields that
belong to another variant.

# Status Values

Applicant statuses:

	StatusActive    = "active"
	StatusOnHold    = "on_hold"
	StatusInactive  = "inactive"
	StatusWithdrawn = "withdrawn"
	StatusRejected  = "rejected"
	StatusConverted = "converted"

converted, rejected and withdrawn are terminal. inactive is reversible.

Election package statuses:

	draft → ready → added_to_ballot → elected | not_elected

# Inactivity

TimeoutPreset values 3_months, 6_months, 1_year map to 90, 180 and 365 days;
never disables the timeout; custom uses CustomTimeoutDays (1–1095).
WarningThresholdPercent is bounded to 50–95.
*/
package models
