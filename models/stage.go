// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// StageType discriminates the StageConfig variants.
type StageType string

const (
	StageFormSubmission StageType = "form_submission"
	StageDocumentUpload StageType = "document_upload"
	StageElectionVote   StageType = "election_vote"
	StageManualApproval StageType = "manual_approval"
)

func (t StageType) Valid() bool {
	switch t {
	case StageFormSubmission, StageDocumentUpload, StageElectionVote, StageManualApproval:
		return true
	}
	return false
}

// Voting methods and victory conditions for election stages.
const (
	VotingYesNo    = "yes_no"
	VotingApproval = "approval"

	VictoryMostVotes     = "most_votes"
	VictoryMajority      = "majority"
	VictorySupermajority = "supermajority"
	VictoryThreshold     = "threshold"
)

// StageConfig is the type-specific configuration of a stage. The set of
// implementations is closed: only the four config types in this package
// satisfy it.
type StageConfig interface {
	StageType() StageType
	Validate() error
	sealedStageConfig()
}

type FormSubmissionConfig struct {
	FormID string `json:"form_id" yaml:"form_id"`
}

type DocumentUploadConfig struct {
	RequiredDocumentTypes []string `json:"required_document_types" yaml:"required_document_types"`
}

type ElectionVoteConfig struct {
	VotingMethod      string   `json:"voting_method" yaml:"voting_method"`
	VictoryCondition  string   `json:"victory_condition" yaml:"victory_condition"`
	VictoryPercentage *int     `json:"victory_percentage,omitempty" yaml:"victory_percentage,omitempty"`
	EligibleRoles     []string `json:"eligible_roles,omitempty" yaml:"eligible_roles,omitempty"`
	Anonymous         bool     `json:"anonymous" yaml:"anonymous"`
}

type ManualApprovalConfig struct {
	ApproverRoles []string `json:"approver_roles" yaml:"approver_roles"`
	RequireNotes  bool     `json:"require_notes" yaml:"require_notes"`
}

func (FormSubmissionConfig) StageType() StageType { return StageFormSubmission }
func (DocumentUploadConfig) StageType() StageType { return StageDocumentUpload }
func (ElectionVoteConfig) StageType() StageType   { return StageElectionVote }
func (ManualApprovalConfig) StageType() StageType { return StageManualApproval }

func (FormSubmissionConfig) sealedStageConfig() {}
func (DocumentUploadConfig) sealedStageConfig() {}
func (ElectionVoteConfig) sealedStageConfig()   {}
func (ManualApprovalConfig) sealedStageConfig() {}

func (c FormSubmissionConfig) Validate() error {
	if strings.TrimSpace(c.FormID) == "" {
		return fmt.Errorf("form_id is required")
	}
	return nil
}

func (c DocumentUploadConfig) Validate() error {
	if len(c.RequiredDocumentTypes) == 0 {
		return fmt.Errorf("at least one required document type is needed")
	}
	for _, dt := range c.RequiredDocumentTypes {
		if strings.TrimSpace(dt) == "" {
			return fmt.Errorf("required document types must not be blank")
		}
	}
	return nil
}

// RequiresPercentage reports whether the victory condition needs a percentage.
func (c ElectionVoteConfig) RequiresPercentage() bool {
	return c.VictoryCondition == VictorySupermajority || c.VictoryCondition == VictoryThreshold
}

func (c ElectionVoteConfig) Validate() error {
	switch c.VotingMethod {
	case VotingYesNo, VotingApproval:
	case "":
		return fmt.Errorf("voting_method is required")
	default:
		return fmt.Errorf("unknown voting_method %q", c.VotingMethod)
	}
	switch c.VictoryCondition {
	case VictoryMostVotes, VictoryMajority, VictorySupermajority, VictoryThreshold:
	case "":
		return fmt.Errorf("victory_condition is required")
	default:
		return fmt.Errorf("unknown victory_condition %q", c.VictoryCondition)
	}
	if c.RequiresPercentage() {
		if c.VictoryPercentage == nil {
			return fmt.Errorf("victory_percentage is required for victory_condition %s", c.VictoryCondition)
		}
		if *c.VictoryPercentage < 1 || *c.VictoryPercentage > 100 {
			return fmt.Errorf("victory_percentage must be between 1 and 100")
		}
	}
	return nil
}

func (c ManualApprovalConfig) Validate() error {
	if len(c.ApproverRoles) == 0 {
		return fmt.Errorf("at least one approver role is needed")
	}
	return nil
}

// DecodeStageConfig parses raw JSON into the config variant for stageType.
// Unknown fields are rejected so a config shaped for another type fails.
func DecodeStageConfig(stageType StageType, raw []byte) (StageConfig, error) {
	var cfg StageConfig
	switch stageType {
	case StageFormSubmission:
		cfg = &FormSubmissionConfig{}
	case StageDocumentUpload:
		cfg = &DocumentUploadConfig{}
	case StageElectionVote:
		cfg = &ElectionVoteConfig{}
	case StageManualApproval:
		cfg = &ManualApprovalConfig{}
	default:
		return nil, fmt.Errorf("unknown stage_type %q", stageType)
	}
	if len(raw) == 0 || string(raw) == "null" {
		return nil, fmt.Errorf("config is required for stage_type %s", stageType)
	}
	dec := json.NewDecoder(strings.NewReader(string(raw)))
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config does not match stage_type %s: %w", stageType, err)
	}
	return deref(cfg), nil
}

// deref turns the pointer used for decoding back into the value variant.
func deref(cfg StageConfig) StageConfig {
	switch c := cfg.(type) {
	case *FormSubmissionConfig:
		return *c
	case *DocumentUploadConfig:
		return *c
	case *ElectionVoteConfig:
		return *c
	case *ManualApprovalConfig:
		return *c
	}
	return cfg
}

// PipelineStage is one typed step of a pipeline.
type PipelineStage struct {
	ID                    string      `json:"id"`
	PipelineID            string      `json:"pipeline_id"`
	Name                  string      `json:"name"`
	Description           string      `json:"description,omitempty"`
	StageType             StageType   `json:"stage_type"`
	Config                StageConfig `json:"config"`
	SortOrder             int         `json:"sort_order"`
	IsRequired            bool        `json:"is_required"`
	InactivityTimeoutDays *int        `json:"inactivity_timeout_days,omitempty"`
	CreatedAt             time.Time   `json:"created_at"`
	UpdatedAt             time.Time   `json:"updated_at"`
}

// UnmarshalJSON decodes Config according to StageType.
func (s *PipelineStage) UnmarshalJSON(data []byte) error {
	type alias PipelineStage
	aux := struct {
		*alias
		Config json.RawMessage `json:"config"`
	}{alias: (*alias)(s)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	cfg, err := DecodeStageConfig(s.StageType, aux.Config)
	if err != nil {
		return err
	}
	s.Config = cfg
	return nil
}
