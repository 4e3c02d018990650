// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package pipeline_test

import (
	"context"
	"testing"

	"github.com/danielhkuo/applicant-pipeline/apperr"
	"github.com/danielhkuo/applicant-pipeline/models"
	"github.com/danielhkuo/applicant-pipeline/pipeline"
	"github.com/danielhkuo/applicant-pipeline/store"
)

func TestEndToEnd_FormDocumentVoteApproval(t *testing.T) {
	e := newTestEnv(t)
	p := e.createPipeline(t, nil)

	a := e.createApplicant(t, p.ID, "ada")
	if a.Status != models.StatusActive {
		t.Fatalf("expected active, got %s", a.Status)
	}
	if a.CurrentStageID != p.Stages[0].ID {
		t.Fatalf("expected first stage, got %s", a.CurrentStageID)
	}

	a = e.advance(t, a.ID)
	if a.CurrentStageID != p.Stages[1].ID {
		t.Fatalf("expected Document stage, got %s", a.CurrentStageID)
	}

	a = e.advance(t, a.ID)
	if a.CurrentStageID != p.Stages[2].ID {
		t.Fatalf("expected Vote stage, got %s", a.CurrentStageID)
	}
	packages, err := e.bridge.ListPackages(e.ctx, pipeline.PackageFilter{ApplicantID: a.ID})
	if err != nil {
		t.Fatalf("ListPackages failed: %v", err)
	}
	if len(packages) != 1 {
		t.Fatalf("expected 1 election package, got %d", len(packages))
	}
	pkg := packages[0]
	if pkg.Status != models.PackageDraft {
		t.Errorf("expected draft package, got %s", pkg.Status)
	}
	if pkg.StageID != p.Stages[2].ID {
		t.Errorf("expected package for Vote stage, got %s", pkg.StageID)
	}
	if pkg.Snapshot.FirstName != "ada" || pkg.Snapshot.Email != "ada@example.com" {
		t.Errorf("unexpected snapshot %+v", pkg.Snapshot)
	}

	a = e.advance(t, a.ID)
	if a.CurrentStageID != p.Stages[3].ID {
		t.Fatalf("expected Approval stage, got %s", a.CurrentStageID)
	}

	a, err = e.machine.Convert(e.ctx, a.ID, "coordinator-1", models.ConvertRequest{
		MembershipType: "probationary",
		Notes:          "approved at board meeting",
	})
	if err != nil {
		t.Fatalf("Convert failed: %v", err)
	}
	if a.Status != models.StatusConverted {
		t.Fatalf("expected converted, got %s", a.Status)
	}
	if a.MemberID == "" || a.ConvertedAt == nil {
		t.Errorf("expected member id and converted_at, got %q %v", a.MemberID, a.ConvertedAt)
	}

	_, err = e.machine.Advance(e.ctx, a.ID, "coordinator-1", models.TransitionRequest{})
	assertCode(t, err, apperr.CodeInvalidTransition)

	stored := e.getApplicant(t, a.ID)
	wantActions := []string{"intake", "advance", "advance", "advance", "convert"}
	if len(stored.StageHistory) != len(wantActions) {
		t.Fatalf("expected %d history entries, got %d", len(wantActions), len(stored.StageHistory))
	}
	for i, want := range wantActions {
		h := stored.StageHistory[i]
		if h.Action != want {
			t.Errorf("history[%d]: expected %s, got %s", i, want, h.Action)
		}
		if h.Sequence != i+1 {
			t.Errorf("history[%d]: expected sequence %d, got %d", i, i+1, h.Sequence)
		}
	}

	m, err := e.members.GetByApplicant(e.ctx, a.ID)
	if err != nil {
		t.Fatalf("member not created: %v", err)
	}
	if m.ID != a.MemberID || m.MembershipType != "probationary" {
		t.Errorf("unexpected member %+v", m)
	}
}

func TestAdvance_LastStageFails(t *testing.T) {
	e := newTestEnv(t)
	p := e.createPipeline(t, nil)
	a := e.createApplicant(t, p.ID, "bob")
	for i := 0; i < 3; i++ {
		e.advance(t, a.ID)
	}

	_, err := e.machine.Advance(e.ctx, a.ID, "coordinator-1", models.TransitionRequest{})
	assertCode(t, err, apperr.CodeInvalidTransition)

	if got := e.getApplicant(t, a.ID); got.CurrentStageID != p.Stages[3].ID || got.Status != models.StatusActive {
		t.Errorf("failed advance must not change applicant, got stage %s status %s", got.CurrentStageID, got.Status)
	}
}

func TestConvert_OnlyOnLastStage(t *testing.T) {
	e := newTestEnv(t)
	p := e.createPipeline(t, nil)
	a := e.createApplicant(t, p.ID, "cleo")

	_, err := e.machine.Convert(e.ctx, a.ID, "coordinator-1", models.ConvertRequest{MembershipType: "full", Notes: "ok"})
	assertCode(t, err, apperr.CodeInvalidTransition)

	if _, err := e.members.GetByApplicant(e.ctx, a.ID); !apperr.Is(err, apperr.CodeNotFound) {
		t.Errorf("no member may be created by a rejected convert, got %v", err)
	}
}

func TestConvert_RequiresApprovalNotes(t *testing.T) {
	e := newTestEnv(t)
	p := e.createPipeline(t, nil)
	a := e.createApplicant(t, p.ID, "dan")
	for i := 0; i < 3; i++ {
		e.advance(t, a.ID)
	}

	_, err := e.machine.Convert(e.ctx, a.ID, "coordinator-1", models.ConvertRequest{MembershipType: "full"})
	assertCode(t, err, apperr.CodeValidation)
}

func TestConvert_FallsBackToTargetMembershipType(t *testing.T) {
	e := newTestEnv(t)
	p := e.createPipeline(t, nil)
	a := e.createApplicant(t, p.ID, "eve")
	for i := 0; i < 3; i++ {
		e.advance(t, a.ID)
	}

	a, err := e.machine.Convert(e.ctx, a.ID, "coordinator-1", models.ConvertRequest{Notes: "welcome"})
	if err != nil {
		t.Fatalf("Convert failed: %v", err)
	}
	if a.TargetMembershipType != "probationary" {
		t.Errorf("expected probationary, got %s", a.TargetMembershipType)
	}
}

// conflictingStore fails every conversion write as if another coordinator
// had changed the applicant first.
type conflictingStore struct {
	*store.Store
}

func (s *conflictingStore) ApplyTransition(ctx context.Context, tr pipeline.Transition) error {
	if tr.Entry.Action == string(pipeline.TriggerConvert) {
		return apperr.New(apperr.CodeConflict, "applicant was modified concurrently")
	}
	return s.Store.ApplyTransition(ctx, tr)
}

func TestConvert_FailedWriteRemovesMember(t *testing.T) {
	e := newTestEnv(t)
	p := e.createPipeline(t, nil)
	a := e.createApplicant(t, p.ID, "fay")
	for i := 0; i < 3; i++ {
		e.advance(t, a.ID)
	}

	machine := pipeline.NewMachine(e.store, &conflictingStore{Store: e.store}, e.bridge, e.members, pipeline.Clock(e.clock.Now))
	_, err := machine.Convert(e.ctx, a.ID, "coordinator-1", models.ConvertRequest{MembershipType: "full", Notes: "welcome"})
	assertCode(t, err, apperr.CodeConflict)

	if _, err := e.members.GetByApplicant(e.ctx, a.ID); !apperr.Is(err, apperr.CodeNotFound) {
		t.Fatalf("expected member to be removed after failed convert, got %v", err)
	}

	if _, err := e.machine.Reject(e.ctx, a.ID, "coordinator-1", models.TransitionRequest{Reason: "declined"}); err != nil {
		t.Fatalf("Reject failed: %v", err)
	}
	got := e.getApplicant(t, a.ID)
	if got.Status != models.StatusRejected || got.MemberID != "" {
		t.Errorf("expected rejected applicant without member, got %s member=%q", got.Status, got.MemberID)
	}
}

func TestRevoke_KeepsConvertedMember(t *testing.T) {
	e := newTestEnv(t)
	p := e.createPipeline(t, nil)
	a := e.createApplicant(t, p.ID, "gus")
	for i := 0; i < 3; i++ {
		e.advance(t, a.ID)
	}
	converted, err := e.machine.Convert(e.ctx, a.ID, "coordinator-1", models.ConvertRequest{MembershipType: "full", Notes: "welcome"})
	if err != nil {
		t.Fatalf("Convert failed: %v", err)
	}

	if err := e.members.Revoke(e.ctx, a.ID); err != nil {
		t.Fatalf("Revoke failed: %v", err)
	}
	m, err := e.members.GetByApplicant(e.ctx, a.ID)
	if err != nil {
		t.Fatalf("converted applicant lost its member: %v", err)
	}
	if m.ID != converted.MemberID {
		t.Errorf("expected member %s, got %s", converted.MemberID, m.ID)
	}
}

func TestHoldResume(t *testing.T) {
	e := newTestEnv(t)
	p := e.createPipeline(t, nil)
	a := e.createApplicant(t, p.ID, "fay")

	_, err := e.machine.Hold(e.ctx, a.ID, "coordinator-1", models.TransitionRequest{})
	assertCode(t, err, apperr.CodeValidation)

	a, err = e.machine.Hold(e.ctx, a.ID, "coordinator-1", models.TransitionRequest{Reason: "travelling"})
	if err != nil {
		t.Fatalf("Hold failed: %v", err)
	}
	if a.Status != models.StatusOnHold {
		t.Fatalf("expected on_hold, got %s", a.Status)
	}

	_, err = e.machine.Reactivate(e.ctx, a.ID, "coordinator-1", models.TransitionRequest{})
	assertCode(t, err, apperr.CodeInvalidTransition)

	// advancing from hold is allowed and lands active
	a = e.advance(t, a.ID)
	if a.Status != models.StatusActive {
		t.Errorf("expected active after advance from hold, got %s", a.Status)
	}

	a, err = e.machine.Hold(e.ctx, a.ID, "coordinator-1", models.TransitionRequest{Reason: "again"})
	if err != nil {
		t.Fatalf("Hold failed: %v", err)
	}
	a, err = e.machine.Resume(e.ctx, a.ID, "coordinator-1", models.TransitionRequest{Notes: "back"})
	if err != nil {
		t.Fatalf("Resume failed: %v", err)
	}
	if a.Status != models.StatusActive {
		t.Errorf("expected active, got %s", a.Status)
	}

	_, err = e.machine.Resume(e.ctx, a.ID, "coordinator-1", models.TransitionRequest{})
	assertCode(t, err, apperr.CodeInvalidTransition)
}

func TestTerminalStatesRejectEveryTrigger(t *testing.T) {
	e := newTestEnv(t)
	p := e.createPipeline(t, nil)
	a := e.createApplicant(t, p.ID, "gus")

	a, err := e.machine.Reject(e.ctx, a.ID, "coordinator-1", models.TransitionRequest{Reason: "not eligible"})
	if err != nil {
		t.Fatalf("Reject failed: %v", err)
	}
	if a.Status != models.StatusRejected {
		t.Fatalf("expected rejected, got %s", a.Status)
	}

	req := models.TransitionRequest{Reason: "r", Notes: "n"}
	triggers := map[string]func() error{
		"advance": func() error { _, err := e.machine.Advance(e.ctx, a.ID, "c", req); return err },
		"hold":    func() error { _, err := e.machine.Hold(e.ctx, a.ID, "c", req); return err },
		"resume":  func() error { _, err := e.machine.Resume(e.ctx, a.ID, "c", req); return err },
		"reject":  func() error { _, err := e.machine.Reject(e.ctx, a.ID, "c", req); return err },
		"withdraw": func() error {
			_, err := e.machine.Withdraw(e.ctx, a.ID, "c", req)
			return err
		},
		"reactivate": func() error {
			_, err := e.machine.Reactivate(e.ctx, a.ID, "c", req)
			return err
		},
		"convert": func() error {
			_, err := e.machine.Convert(e.ctx, a.ID, "c", models.ConvertRequest{MembershipType: "full", Notes: "n"})
			return err
		},
		"activity": func() error {
			_, err := e.machine.RecordActivity(e.ctx, a.ID, "c", req)
			return err
		},
	}

	for name, fire := range triggers {
		t.Run(name, func(t *testing.T) {
			err := fire()
			assertCode(t, err, apperr.CodeInvalidTransition)
			var ae *apperr.Error
			if !asAppErr(err, &ae) || ae.Metadata["current_status"] != models.StatusRejected {
				t.Errorf("expected current_status metadata, got %v", err)
			}
		})
	}
}

func TestWithdrawAndReactivate(t *testing.T) {
	e := newTestEnv(t)
	p := e.createPipeline(t, nil)
	a := e.createApplicant(t, p.ID, "hal")
	e.advance(t, a.ID)

	_, err := e.machine.Withdraw(e.ctx, a.ID, "coordinator-1", models.TransitionRequest{Reason: " "})
	assertCode(t, err, apperr.CodeValidation)

	a, err = e.machine.Withdraw(e.ctx, a.ID, "coordinator-1", models.TransitionRequest{Reason: "moved away"})
	if err != nil {
		t.Fatalf("Withdraw failed: %v", err)
	}
	if a.Status != models.StatusWithdrawn || a.WithdrawnAt == nil || a.WithdrawalReason != "moved away" {
		t.Fatalf("unexpected withdrawn applicant %+v", a)
	}

	e.clock.AdvanceDays(3)
	a, err = e.machine.Reactivate(e.ctx, a.ID, "coordinator-1", models.TransitionRequest{Notes: "came back"})
	if err != nil {
		t.Fatalf("Reactivate failed: %v", err)
	}
	if a.Status != models.StatusActive {
		t.Errorf("expected active, got %s", a.Status)
	}
	if a.WithdrawnAt != nil || a.WithdrawalReason != "" {
		t.Errorf("withdrawal markers should be cleared")
	}
	if a.CurrentStageID != p.Stages[1].ID {
		t.Errorf("reactivation must resume on the same stage, got %s", a.CurrentStageID)
	}
}

func TestWithdraw_FromInactive(t *testing.T) {
	e := newTestEnv(t)
	p := e.createPipeline(t, nil)
	a := e.createApplicant(t, p.ID, "ivy")
	e.deactivateAfter(t, 181)

	a, err := e.machine.Withdraw(e.ctx, a.ID, "coordinator-1", models.TransitionRequest{Reason: "no response"})
	if err != nil {
		t.Fatalf("Withdraw failed: %v", err)
	}
	if a.Status != models.StatusWithdrawn {
		t.Errorf("expected withdrawn, got %s", a.Status)
	}
}

func TestReactivate_Idempotent(t *testing.T) {
	e := newTestEnv(t)
	p := e.createPipeline(t, nil)
	a := e.createApplicant(t, p.ID, "jan")
	e.deactivateAfter(t, 200)

	if got := e.getApplicant(t, a.ID); got.Status != models.StatusInactive || got.DeactivatedAt == nil {
		t.Fatalf("expected inactive applicant, got %s", got.Status)
	}

	first, err := e.machine.Reactivate(e.ctx, a.ID, "coordinator-1", models.TransitionRequest{})
	if err != nil {
		t.Fatalf("first Reactivate failed: %v", err)
	}
	e.clock.AdvanceDays(1)
	second, err := e.machine.Reactivate(e.ctx, a.ID, "coordinator-1", models.TransitionRequest{})
	if err != nil {
		t.Fatalf("second Reactivate failed: %v", err)
	}

	if first.Status != models.StatusActive || second.Status != models.StatusActive {
		t.Fatalf("expected active both times, got %s and %s", first.Status, second.Status)
	}
	stored := e.getApplicant(t, a.ID)
	if !stored.LastActivityAt.Equal(e.clock.Now()) {
		t.Errorf("last_activity_at should reflect the latest call: got %v want %v", stored.LastActivityAt, e.clock.Now())
	}
	if stored.DeactivatedAt != nil || stored.DeactivationReason != "" {
		t.Errorf("deactivation markers should be cleared")
	}
}

func TestReactivateBatch_PerItemOutcome(t *testing.T) {
	e := newTestEnv(t)
	p := e.createPipeline(t, nil)
	stale := e.createApplicant(t, p.ID, "kim")
	e.deactivateAfter(t, 200)
	rejected := e.createApplicant(t, p.ID, "lou")
	if _, err := e.machine.Reject(e.ctx, rejected.ID, "c", models.TransitionRequest{Reason: "no"}); err != nil {
		t.Fatal(err)
	}

	resp, err := e.machine.ReactivateBatch(e.ctx, "coordinator-1", models.BatchReactivateRequest{
		ApplicantIDs: []string{stale.ID, rejected.ID, "missing"},
	})
	if err != nil {
		t.Fatalf("ReactivateBatch failed: %v", err)
	}
	if resp.Succeeded != 1 || resp.Failed != 2 {
		t.Fatalf("expected 1 succeeded and 2 failed, got %d/%d", resp.Succeeded, resp.Failed)
	}

	want := []struct {
		ok   bool
		code string
	}{
		{true, ""},
		{false, string(apperr.CodeInvalidTransition)},
		{false, string(apperr.CodeNotFound)},
	}
	for i, w := range want {
		got := resp.Results[i]
		if got.OK != w.ok || got.Code != w.code {
			t.Errorf("result %d: expected ok=%v code=%q, got ok=%v code=%q", i, w.ok, w.code, got.OK, got.Code)
		}
	}

	_, err = e.machine.ReactivateBatch(e.ctx, "c", models.BatchReactivateRequest{})
	assertCode(t, err, apperr.CodeValidation)
}

func TestCreateApplicant_Validation(t *testing.T) {
	e := newTestEnv(t)
	p := e.createPipeline(t, nil)

	tests := []struct {
		name string
		req  models.CreateApplicantRequest
	}{
		{"missing first name", models.CreateApplicantRequest{Email: "a@example.com"}},
		{"missing email", models.CreateApplicantRequest{FirstName: "A"}},
		{"bad email", models.CreateApplicantRequest{FirstName: "A", Email: "not-an-email"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.machine.CreateApplicant(e.ctx, p.ID, "c", tt.req)
			assertCode(t, err, apperr.CodeValidation)
		})
	}

	_, err := e.machine.CreateApplicant(e.ctx, "missing", "c", models.CreateApplicantRequest{FirstName: "A", Email: "a@example.com"})
	assertCode(t, err, apperr.CodeNotFound)

	inactive := false
	if _, err := e.defs.UpdatePipeline(e.ctx, p.ID, models.UpdatePipelineRequest{IsActive: &inactive}); err != nil {
		t.Fatal(err)
	}
	_, err = e.machine.CreateApplicant(e.ctx, p.ID, "c", models.CreateApplicantRequest{FirstName: "A", Email: "a@example.com"})
	assertCode(t, err, apperr.CodeValidation)
}

func TestRecordActivityAndDocuments(t *testing.T) {
	e := newTestEnv(t)
	p := e.createPipeline(t, nil)
	a := e.createApplicant(t, p.ID, "max")
	e.advance(t, a.ID)

	e.clock.AdvanceDays(30)
	if _, err := e.machine.RecordActivity(e.ctx, a.ID, "coordinator-1", models.TransitionRequest{Notes: "called"}); err != nil {
		t.Fatalf("RecordActivity failed: %v", err)
	}
	if got := e.getApplicant(t, a.ID); !got.LastActivityAt.Equal(e.clock.Now()) {
		t.Errorf("activity should refresh last_activity_at")
	}

	_, err := e.machine.AttachDocument(e.ctx, a.ID, "coordinator-1", models.AttachDocumentRequest{DocumentType: "reference_letter"})
	assertCode(t, err, apperr.CodeValidation)

	e.clock.AdvanceDays(2)
	doc, err := e.machine.AttachDocument(e.ctx, a.ID, "coordinator-1", models.AttachDocumentRequest{
		DocumentType: "reference_letter",
		FileName:     "ref.pdf",
	})
	if err != nil {
		t.Fatalf("AttachDocument failed: %v", err)
	}
	if doc.StageID != p.Stages[1].ID {
		t.Errorf("document should be attached to current stage, got %s", doc.StageID)
	}

	docs, err := e.machine.ListDocuments(e.ctx, a.ID)
	if err != nil {
		t.Fatalf("ListDocuments failed: %v", err)
	}
	if len(docs) != 1 || docs[0].FileName != "ref.pdf" {
		t.Fatalf("unexpected documents %+v", docs)
	}

	stored := e.getApplicant(t, a.ID)
	if !stored.LastActivityAt.Equal(e.clock.Now()) {
		t.Errorf("document upload should count as activity")
	}
	last := stored.StageHistory[len(stored.StageHistory)-1]
	if last.Action != string(pipeline.TriggerDocument) || len(last.Artifacts) != 1 || last.Artifacts[0] != doc.ID {
		t.Errorf("unexpected history entry %+v", last)
	}
}

func TestListApplicants_AlertFilter(t *testing.T) {
	e := newTestEnv(t)
	cfg := models.DefaultInactivityConfig()
	cfg.TimeoutPreset = models.Timeout3Months
	cfg.WarningThresholdPercent = 80
	p := e.createPipeline(t, &cfg)

	stale := e.createApplicant(t, p.ID, "nia")
	e.clock.AdvanceDays(80)
	fresh := e.createApplicant(t, p.ID, "oli")

	view := e.getApplicant(t, stale.ID)
	if view.AlertLevel != models.AlertWarning {
		t.Errorf("80 days with a 90 day timeout at 80%% should warn, got %s", view.AlertLevel)
	}
	if view.DaysSinceActivity != 80 || view.EffectiveTimeoutDays == nil || *view.EffectiveTimeoutDays != 90 {
		t.Errorf("unexpected view %d days, timeout %v", view.DaysSinceActivity, view.EffectiveTimeoutDays)
	}

	warned, err := e.machine.ListApplicants(e.ctx, p.ID, pipeline.ApplicantQuery{Alert: models.AlertWarning})
	if err != nil {
		t.Fatalf("ListApplicants failed: %v", err)
	}
	if len(warned) != 1 || warned[0].ID != stale.ID {
		t.Errorf("expected only the stale applicant, got %d", len(warned))
	}

	normal, err := e.machine.ListApplicants(e.ctx, p.ID, pipeline.ApplicantQuery{Alert: models.AlertNormal})
	if err != nil {
		t.Fatalf("ListApplicants failed: %v", err)
	}
	if len(normal) != 1 || normal[0].ID != fresh.ID {
		t.Errorf("expected only the fresh applicant, got %d", len(normal))
	}

	_, err = e.machine.ListApplicants(e.ctx, p.ID, pipeline.ApplicantQuery{Alert: "red"})
	assertCode(t, err, apperr.CodeValidation)
}
