// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/danielhkuo/applicant-pipeline/apperr"
	"github.com/danielhkuo/applicant-pipeline/auth"
	"github.com/danielhkuo/applicant-pipeline/inactivity"
	"github.com/danielhkuo/applicant-pipeline/models"
)

// Machine applies state machine triggers to applicants. It holds no state
// of its own; every call reads the applicant, checks the transition table and
// writes back through ApplyTransition.
type Machine struct {
	pipelines  PipelineRepository
	applicants ApplicantRepository
	bridge     *Bridge
	membership MembershipService
	clock      Clock
}

func NewMachine(pipelines PipelineRepository, applicants ApplicantRepository, bridge *Bridge, membership MembershipService, clock Clock) *Machine {
	return &Machine{
		pipelines:  pipelines,
		applicants: applicants,
		bridge:     bridge,
		membership: membership,
		clock:      clock,
	}
}

// step is the trigger-specific part of a transition.
type step struct {
	trigger Trigger
	actor   string
	notes   string
	// keepActivity leaves last_activity_at untouched.
	keepActivity bool
	// expectedVersion pins the write to a version the caller already saw.
	// Zero means the version just read.
	expectedVersion int64
	document        *models.ApplicantDocument
	// apply adjusts the applicant and history entry while a.Status still
	// holds the current status. It may reject the transition.
	apply func(p *models.Pipeline, a *models.Applicant, entry *models.StageHistoryEntry, now time.Time) error
	// undo reverses side effects of apply when the write fails.
	undo func(ctx context.Context)
}

type fired struct {
	applicant *models.Applicant
	pipeline  *models.Pipeline
	from      string
}

func (m *Machine) fire(ctx context.Context, applicantID string, s step) (*fired, error) {
	a, err := m.applicants.GetApplicant(ctx, applicantID)
	if err != nil {
		return nil, err
	}
	if s.expectedVersion != 0 && a.Version != s.expectedVersion {
		return nil, staleVersion(a.ID)
	}
	next, ok := NextStatus(a.Status, s.trigger)
	if !ok {
		return nil, apperr.Transition(a.Status, string(s.trigger), "")
	}

	p, err := m.pipelines.GetPipeline(ctx, a.PipelineID)
	if err != nil {
		return nil, err
	}
	idx := p.StageIndex(a.CurrentStageID)
	if idx < 0 {
		return nil, fmt.Errorf("applicant %s is positioned on unknown stage %s", a.ID, a.CurrentStageID)
	}
	stage := p.Stages[idx]

	now := m.clock.now()
	from := a.Status
	expected := a.Version
	entry := models.StageHistoryEntry{
		ID:          auth.GenerateID(),
		Action:      string(s.trigger),
		StageID:     stage.ID,
		StageName:   stage.Name,
		StageType:   stage.StageType,
		EnteredAt:   a.StageEnteredAt,
		CompletedBy: s.actor,
		Notes:       s.notes,
		RecordedAt:  now,
	}

	if s.apply != nil {
		if err := s.apply(p, a, &entry, now); err != nil {
			return nil, err
		}
	}
	a.Status = next
	a.UpdatedAt = now
	if !s.keepActivity {
		a.LastActivityAt = now
	}

	err = m.applicants.ApplyTransition(ctx, Transition{
		Applicant:       a,
		ExpectedVersion: expected,
		Entry:           entry,
		Document:        s.document,
	})
	if err != nil {
		if s.undo != nil {
			s.undo(context.WithoutCancel(ctx))
		}
		return nil, err
	}

	slog.Info("applicant transition",
		"applicant_id", a.ID,
		"trigger", string(s.trigger),
		"from", from,
		"to", a.Status,
		"stage_id", a.CurrentStageID,
		"actor", s.actor,
	)
	return &fired{applicant: a, pipeline: p, from: from}, nil
}

func staleVersion(applicantID string) error {
	return apperr.WithMetadata(apperr.CodeConflict,
		fmt.Sprintf("applicant %s was modified concurrently; refetch and retry", applicantID),
		map[string]string{"applicant_id": applicantID})
}

func requireReason(trigger Trigger, reason string) (string, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return "", apperr.Newf(apperr.CodeValidation, "reason is required to %s an applicant", trigger)
	}
	return reason, nil
}

// requireApprovalNotes enforces require_notes when leaving a manual approval stage.
func requireApprovalNotes(stage models.PipelineStage, notes string) error {
	cfg, ok := stage.Config.(models.ManualApprovalConfig)
	if ok && cfg.RequireNotes && strings.TrimSpace(notes) == "" {
		return apperr.Newf(apperr.CodeValidation, "stage %q requires approval notes", stage.Name)
	}
	return nil
}

// CreateApplicant places a new applicant on the first stage of an active pipeline.
func (m *Machine) CreateApplicant(ctx context.Context, pipelineID, actor string, req models.CreateApplicantRequest) (*models.Applicant, error) {
	first := strings.TrimSpace(req.FirstName)
	if first == "" {
		return nil, apperr.New(apperr.CodeValidation, "first_name is required")
	}
	email := strings.TrimSpace(req.Email)
	if email == "" {
		return nil, apperr.New(apperr.CodeValidation, "email is required")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, apperr.Newf(apperr.CodeValidation, "invalid email %q", email)
	}

	p, err := m.pipelines.GetPipeline(ctx, pipelineID)
	if err != nil {
		return nil, err
	}
	if !p.IsActive {
		return nil, apperr.Newf(apperr.CodeValidation, "pipeline %s is not accepting applicants", pipelineID)
	}
	stage, ok := p.FirstStage()
	if !ok {
		return nil, apperr.Newf(apperr.CodeValidation, "pipeline %s has no stages", pipelineID)
	}

	now := m.clock.now()
	a := &models.Applicant{
		ID:                   auth.GenerateID(),
		PipelineID:           p.ID,
		FirstName:            first,
		LastName:             strings.TrimSpace(req.LastName),
		Email:                email,
		Phone:                strings.TrimSpace(req.Phone),
		CurrentStageID:       stage.ID,
		Status:               models.StatusActive,
		StageEnteredAt:       now,
		LastActivityAt:       now,
		TargetMembershipType: req.TargetMembershipType,
		TargetRoleID:         req.TargetRoleID,
		Notes:                req.Notes,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	entry := models.StageHistoryEntry{
		ID:          auth.GenerateID(),
		Action:      string(TriggerIntake),
		StageID:     stage.ID,
		StageName:   stage.Name,
		StageType:   stage.StageType,
		EnteredAt:   now,
		CompletedBy: actor,
		Notes:       req.Notes,
		RecordedAt:  now,
	}
	if err := m.applicants.CreateApplicant(ctx, a, entry); err != nil {
		return nil, err
	}

	slog.Info("applicant created", "applicant_id", a.ID, "pipeline_id", p.ID, "stage_id", stage.ID)
	return a, nil
}

// Advance moves the applicant exactly one stage forward. Landing on an
// election stage opens an election package for it.
func (m *Machine) Advance(ctx context.Context, applicantID, actor string, req models.TransitionRequest) (*models.Applicant, error) {
	var landed models.PipelineStage
	f, err := m.fire(ctx, applicantID, step{
		trigger: TriggerAdvance,
		actor:   actor,
		notes:   req.Notes,
		apply: func(p *models.Pipeline, a *models.Applicant, entry *models.StageHistoryEntry, now time.Time) error {
			idx := p.StageIndex(a.CurrentStageID)
			if idx == len(p.Stages)-1 {
				return apperr.Transition(a.Status, string(TriggerAdvance), "applicant is on the last stage; convert instead")
			}
			if err := requireApprovalNotes(p.Stages[idx], req.Notes); err != nil {
				return err
			}
			landed = p.Stages[idx+1]
			entry.CompletedAt = &now
			entry.Artifacts = req.Artifacts
			a.CurrentStageID = landed.ID
			a.StageEnteredAt = now
			return nil
		},
	})
	if err != nil {
		return nil, err
	}

	if landed.StageType == models.StageElectionVote && m.bridge != nil {
		if _, err := m.bridge.EnsurePackage(ctx, f.applicant, landed); err != nil {
			slog.Warn("failed to open election package",
				"applicant_id", f.applicant.ID,
				"stage_id", landed.ID,
				"error", err,
			)
		}
	}
	return f.applicant, nil
}

func (m *Machine) Hold(ctx context.Context, applicantID, actor string, req models.TransitionRequest) (*models.Applicant, error) {
	reason, err := requireReason(TriggerHold, req.Reason)
	if err != nil {
		return nil, err
	}
	f, err := m.fire(ctx, applicantID, step{trigger: TriggerHold, actor: actor, notes: joinNotes(reason, req.Notes)})
	if err != nil {
		return nil, err
	}
	return f.applicant, nil
}

func (m *Machine) Resume(ctx context.Context, applicantID, actor string, req models.TransitionRequest) (*models.Applicant, error) {
	f, err := m.fire(ctx, applicantID, step{trigger: TriggerResume, actor: actor, notes: req.Notes})
	if err != nil {
		return nil, err
	}
	return f.applicant, nil
}

func (m *Machine) Reject(ctx context.Context, applicantID, actor string, req models.TransitionRequest) (*models.Applicant, error) {
	reason, err := requireReason(TriggerReject, req.Reason)
	if err != nil {
		return nil, err
	}
	f, err := m.fire(ctx, applicantID, step{trigger: TriggerReject, actor: actor, notes: joinNotes(reason, req.Notes)})
	if err != nil {
		return nil, err
	}
	return f.applicant, nil
}

func (m *Machine) Withdraw(ctx context.Context, applicantID, actor string, req models.TransitionRequest) (*models.Applicant, error) {
	reason, err := requireReason(TriggerWithdraw, req.Reason)
	if err != nil {
		return nil, err
	}
	f, err := m.fire(ctx, applicantID, step{
		trigger: TriggerWithdraw,
		actor:   actor,
		notes:   joinNotes(reason, req.Notes),
		apply: func(_ *models.Pipeline, a *models.Applicant, _ *models.StageHistoryEntry, now time.Time) error {
			a.WithdrawnAt = &now
			a.WithdrawalReason = reason
			return nil
		},
	})
	if err != nil {
		return nil, err
	}
	return f.applicant, nil
}

// Reactivate returns an inactive or withdrawn applicant to active on the stage
// it left. Reactivating an active applicant only refreshes its activity.
func (m *Machine) Reactivate(ctx context.Context, applicantID, actor string, req models.TransitionRequest) (*models.Applicant, error) {
	f, err := m.fire(ctx, applicantID, step{
		trigger: TriggerReactivate,
		actor:   actor,
		notes:   req.Notes,
		apply: func(_ *models.Pipeline, a *models.Applicant, _ *models.StageHistoryEntry, _ time.Time) error {
			a.DeactivatedAt = nil
			a.DeactivationReason = ""
			a.WithdrawnAt = nil
			a.WithdrawalReason = ""
			return nil
		},
	})
	if err != nil {
		return nil, err
	}
	return f.applicant, nil
}

// ReactivateBatch reactivates each id independently and reports per item.
func (m *Machine) ReactivateBatch(ctx context.Context, actor string, req models.BatchReactivateRequest) (models.BatchReactivateResponse, error) {
	if len(req.ApplicantIDs) == 0 {
		return models.BatchReactivateResponse{}, apperr.New(apperr.CodeValidation, "applicant_ids is required")
	}

	resp := models.BatchReactivateResponse{Results: make([]models.BatchOutcome, 0, len(req.ApplicantIDs))}
	for _, id := range req.ApplicantIDs {
		a, err := m.Reactivate(ctx, id, actor, models.TransitionRequest{Notes: req.Notes})
		if err != nil {
			resp.Failed++
			resp.Results = append(resp.Results, models.BatchOutcome{
				ApplicantID: id,
				Error:       err.Error(),
				Code:        string(apperr.CodeOf(err)),
			})
			continue
		}
		resp.Succeeded++
		resp.Results = append(resp.Results, models.BatchOutcome{
			ApplicantID: id,
			OK:          true,
			Status:      a.Status,
			Applicant:   a,
		})
	}

	slog.Info("batch reactivation completed", "succeeded", resp.Succeeded, "failed", resp.Failed)
	return resp, nil
}

// Convert turns an applicant on the last stage into a member. The membership
// service runs before the applicant is written; it is idempotent per
// applicant, so a convert retried after a conflict reuses the same member.
func (m *Machine) Convert(ctx context.Context, applicantID, actor string, req models.ConvertRequest) (*models.Applicant, error) {
	var created bool
	f, err := m.fire(ctx, applicantID, step{
		trigger: TriggerConvert,
		actor:   actor,
		notes:   req.Notes,
		undo: func(ctx context.Context) {
			if !created {
				return
			}
			if err := m.membership.Revoke(ctx, applicantID); err != nil {
				slog.Error("failed to revoke member after failed conversion",
					"applicant_id", applicantID,
					"error", err,
				)
			}
		},
		apply: func(p *models.Pipeline, a *models.Applicant, entry *models.StageHistoryEntry, now time.Time) error {
			if !p.IsLastStage(a.CurrentStageID) {
				return apperr.Transition(a.Status, string(TriggerConvert), "applicant is not on the last stage")
			}
			if err := requireApprovalNotes(p.Stages[p.StageIndex(a.CurrentStageID)], req.Notes); err != nil {
				return err
			}
			membershipType := strings.TrimSpace(req.MembershipType)
			if membershipType == "" {
				membershipType = a.TargetMembershipType
			}
			if membershipType == "" {
				return apperr.New(apperr.CodeValidation, "membership_type is required")
			}
			roleID := req.RoleID
			if roleID == "" {
				roleID = a.TargetRoleID
			}
			if m.membership == nil {
				return fmt.Errorf("no membership service configured")
			}

			memberID, err := m.membership.Convert(ctx, ConversionRequest{
				ApplicantID:    a.ID,
				FirstName:      a.FirstName,
				LastName:       a.LastName,
				Email:          a.Email,
				MembershipType: membershipType,
				RoleID:         roleID,
			})
			if err != nil {
				return fmt.Errorf("failed to convert applicant to member: %w", err)
			}
			created = true

			a.TargetMembershipType = membershipType
			a.TargetRoleID = roleID
			a.MemberID = memberID
			a.ConvertedAt = &now
			entry.CompletedAt = &now
			return nil
		},
	})
	if err != nil {
		return nil, err
	}
	return f.applicant, nil
}

// RecordActivity logs coordinator contact with the applicant.
func (m *Machine) RecordActivity(ctx context.Context, applicantID, actor string, req models.TransitionRequest) (*models.Applicant, error) {
	f, err := m.fire(ctx, applicantID, step{
		trigger: TriggerActivity,
		actor:   actor,
		notes:   req.Notes,
		apply: func(_ *models.Pipeline, _ *models.Applicant, entry *models.StageHistoryEntry, _ time.Time) error {
			entry.Artifacts = req.Artifacts
			return nil
		},
	})
	if err != nil {
		return nil, err
	}
	return f.applicant, nil
}

// AttachDocument records an uploaded file against the applicant's current stage.
func (m *Machine) AttachDocument(ctx context.Context, applicantID, actor string, req models.AttachDocumentRequest) (*models.ApplicantDocument, error) {
	docType := strings.TrimSpace(req.DocumentType)
	fileName := strings.TrimSpace(req.FileName)
	if docType == "" || fileName == "" {
		return nil, apperr.New(apperr.CodeValidation, "document_type and file_name are required")
	}

	doc := &models.ApplicantDocument{
		ID:           auth.GenerateID(),
		ApplicantID:  applicantID,
		DocumentType: docType,
		FileName:     fileName,
		UploadedBy:   actor,
	}
	_, err := m.fire(ctx, applicantID, step{
		trigger:  TriggerDocument,
		actor:    actor,
		notes:    fmt.Sprintf("%s: %s", docType, fileName),
		document: doc,
		apply: func(_ *models.Pipeline, a *models.Applicant, entry *models.StageHistoryEntry, now time.Time) error {
			doc.StageID = a.CurrentStageID
			doc.UploadedAt = now
			entry.Artifacts = []string{doc.ID}
			return nil
		},
	})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// deactivate marks an applicant inactive. It does not count as activity, so
// last_activity_at keeps pointing at the applicant's real last contact. The
// write only goes through if the applicant is still at seenVersion and its
// inactivity is still critical.
func (m *Machine) deactivate(ctx context.Context, applicantID string, seenVersion int64, reason string) (*fired, error) {
	return m.fire(ctx, applicantID, step{
		trigger:         TriggerDeactivate,
		actor:           "system",
		notes:           reason,
		keepActivity:    true,
		expectedVersion: seenVersion,
		apply: func(p *models.Pipeline, a *models.Applicant, _ *models.StageHistoryEntry, now time.Time) error {
			if ev := inactivity.Evaluate(p, a, now); ev.Level != models.AlertCritical {
				return staleVersion(a.ID)
			}
			a.DeactivatedAt = &now
			a.DeactivationReason = reason
			return nil
		},
	})
}

// ApplicantQuery filters ListApplicants. Zero values match everything.
type ApplicantQuery struct {
	Statuses []string
	StageID  string
	Alert    models.AlertLevel
}

// GetApplicant returns the applicant with its derived inactivity state.
func (m *Machine) GetApplicant(ctx context.Context, id string) (*models.ApplicantView, error) {
	a, err := m.applicants.GetApplicant(ctx, id)
	if err != nil {
		return nil, err
	}
	p, err := m.pipelines.GetPipeline(ctx, a.PipelineID)
	if err != nil {
		return nil, err
	}
	view := m.view(p, *a, m.clock.now())
	return &view, nil
}

// ListApplicants lists a pipeline's applicants with their alert levels.
func (m *Machine) ListApplicants(ctx context.Context, pipelineID string, q ApplicantQuery) ([]models.ApplicantView, error) {
	switch q.Alert {
	case "", models.AlertNormal, models.AlertWarning, models.AlertCritical:
	default:
		return nil, apperr.Newf(apperr.CodeValidation, "unknown alert level %q", q.Alert)
	}

	p, err := m.pipelines.GetPipeline(ctx, pipelineID)
	if err != nil {
		return nil, err
	}
	applicants, err := m.applicants.ListApplicants(ctx, ApplicantFilter{
		PipelineID: pipelineID,
		StageID:    q.StageID,
		Statuses:   q.Statuses,
	})
	if err != nil {
		return nil, err
	}

	now := m.clock.now()
	views := make([]models.ApplicantView, 0, len(applicants))
	for _, a := range applicants {
		v := m.view(p, a, now)
		if q.Alert != "" && v.AlertLevel != q.Alert {
			continue
		}
		views = append(views, v)
	}
	return views, nil
}

func (m *Machine) ListDocuments(ctx context.Context, applicantID string) ([]models.ApplicantDocument, error) {
	if _, err := m.applicants.GetApplicant(ctx, applicantID); err != nil {
		return nil, err
	}
	return m.applicants.ListDocuments(ctx, applicantID)
}

// view derives alert state. Only working applicants can be in warning or
// critical; everyone else reads as normal.
func (m *Machine) view(p *models.Pipeline, a models.Applicant, now time.Time) models.ApplicantView {
	ev := inactivity.Evaluate(p, &a, now)
	level := ev.Level
	if !models.IsWorking(a.Status) {
		level = models.AlertNormal
	}
	return models.ApplicantView{
		Applicant:            a,
		AlertLevel:           level,
		DaysSinceActivity:    ev.DaysSinceActivity,
		EffectiveTimeoutDays: ev.TimeoutDays,
	}
}

func joinNotes(reason, notes string) string {
	notes = strings.TrimSpace(notes)
	if notes == "" {
		return reason
	}
	return reason + "\n" + notes
}
