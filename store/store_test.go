// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package store

import (
	"context"
	"testing"
	"time"

	"github.com/danielhkuo/applicant-pipeline/apperr"
	"github.com/danielhkuo/applicant-pipeline/auth"
	"github.com/danielhkuo/applicant-pipeline/models"
	"github.com/danielhkuo/applicant-pipeline/pipeline"
	"github.com/danielhkuo/applicant-pipeline/testutil"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return New(testutil.SetupTestDB(t))
}

func seedPipeline(t *testing.T, s *Store, stages int) *models.Pipeline {
	t.Helper()
	p := &models.Pipeline{
		ID:             auth.GenerateID(),
		OrganizationID: "org-1",
		Name:           "Intake",
		IsActive:       true,
		Inactivity:     models.DefaultInactivityConfig(),
		CreatedAt:      testNow,
		UpdatedAt:      testNow,
	}
	for i := 0; i < stages; i++ {
		p.Stages = append(p.Stages, models.PipelineStage{
			ID:         auth.GenerateID(),
			PipelineID: p.ID,
			Name:       "Stage",
			StageType:  models.StageFormSubmission,
			Config:     models.FormSubmissionConfig{FormID: "form"},
			IsRequired: true,
			CreatedAt:  testNow,
			UpdatedAt:  testNow,
		})
	}
	if err := s.CreatePipeline(context.Background(), p); err != nil {
		t.Fatalf("CreatePipeline failed: %v", err)
	}
	return p
}

func seedApplicant(t *testing.T, s *Store, p *models.Pipeline) *models.Applicant {
	t.Helper()
	a := &models.Applicant{
		ID:             auth.GenerateID(),
		PipelineID:     p.ID,
		FirstName:      "Ada",
		Email:          "ada@example.com",
		CurrentStageID: p.Stages[0].ID,
		Status:         models.StatusActive,
		StageEnteredAt: testNow,
		LastActivityAt: testNow,
		CreatedAt:      testNow,
		UpdatedAt:      testNow,
	}
	entry := models.StageHistoryEntry{
		ID:         auth.GenerateID(),
		Action:     "intake",
		StageID:    p.Stages[0].ID,
		StageName:  p.Stages[0].Name,
		StageType:  p.Stages[0].StageType,
		EnteredAt:  testNow,
		RecordedAt: testNow,
	}
	if err := s.CreateApplicant(context.Background(), a, entry); err != nil {
		t.Fatalf("CreateApplicant failed: %v", err)
	}
	return a
}

func holdEntry(stageID string) models.StageHistoryEntry {
	return models.StageHistoryEntry{
		ID:         auth.GenerateID(),
		Action:     "hold",
		StageID:    stageID,
		StageName:  "Stage",
		StageType:  models.StageFormSubmission,
		EnteredAt:  testNow,
		Artifacts:  []string{"note-1"},
		RecordedAt: testNow,
	}
}

func TestApplyTransition_OptimisticConcurrency(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	p := seedPipeline(t, s, 2)
	a := seedApplicant(t, s, p)

	first, err := s.GetApplicant(ctx, a.ID)
	if err != nil {
		t.Fatal(err)
	}
	second, err := s.GetApplicant(ctx, a.ID)
	if err != nil {
		t.Fatal(err)
	}

	first.Status = models.StatusOnHold
	if err := s.ApplyTransition(ctx, pipeline.Transition{Applicant: first, ExpectedVersion: first.Version, Entry: holdEntry(p.Stages[0].ID)}); err != nil {
		t.Fatalf("first transition failed: %v", err)
	}
	if first.Version != 2 {
		t.Errorf("expected version 2, got %d", first.Version)
	}

	second.Status = models.StatusRejected
	err = s.ApplyTransition(ctx, pipeline.Transition{Applicant: second, ExpectedVersion: second.Version, Entry: holdEntry(p.Stages[0].ID)})
	if !apperr.Is(err, apperr.CodeConflict) {
		t.Fatalf("expected conflict for stale version, got %v", err)
	}

	stored, err := s.GetApplicant(ctx, a.ID)
	if err != nil {
		t.Fatal(err)
	}
	if stored.Status != models.StatusOnHold {
		t.Errorf("stale write must not land, got %s", stored.Status)
	}
	if len(stored.StageHistory) != 2 {
		t.Fatalf("expected 2 history entries, got %d", len(stored.StageHistory))
	}
	if got := stored.StageHistory[1].Artifacts; len(got) != 1 || got[0] != "note-1" {
		t.Errorf("unexpected artifacts %v", got)
	}

	missing := *first
	missing.ID = "missing"
	err = s.ApplyTransition(ctx, pipeline.Transition{Applicant: &missing, ExpectedVersion: 1, Entry: holdEntry(p.Stages[0].ID)})
	if !apperr.Is(err, apperr.CodeNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestListApplicants_Filters(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	p := seedPipeline(t, s, 2)
	seedApplicant(t, s, p)
	a2 := seedApplicant(t, s, p)

	all, err := s.ListApplicants(ctx, pipeline.ApplicantFilter{PipelineID: p.ID})
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 2 {
		t.Errorf("expected 2 applicants, got %d", len(all))
	}

	byID, err := s.ListApplicants(ctx, pipeline.ApplicantFilter{IDs: []string{a2.ID}, Statuses: []string{models.StatusActive}, WithHistory: true})
	if err != nil {
		t.Fatal(err)
	}
	if len(byID) != 1 || byID[0].ID != a2.ID || len(byID[0].StageHistory) != 1 {
		t.Errorf("unexpected filtered result %+v", byID)
	}

	none, err := s.ListApplicants(ctx, pipeline.ApplicantFilter{IDs: []string{}})
	if err != nil {
		t.Fatal(err)
	}
	if len(none) != 0 {
		t.Errorf("an empty id list matches nothing, got %d", len(none))
	}

	n, err := s.CountApplicants(ctx, pipeline.ApplicantFilter{PipelineID: p.ID, StageID: p.Stages[1].ID})
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Errorf("expected nobody on the second stage, got %d", n)
	}
}

func TestCreatePackageIfAbsent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	p := seedPipeline(t, s, 1)
	a := seedApplicant(t, s, p)

	pkg := &models.ElectionPackage{
		ID:          auth.GenerateID(),
		ApplicantID: a.ID,
		PipelineID:  p.ID,
		StageID:     p.Stages[0].ID,
		Status:      models.PackageDraft,
		Snapshot:    models.ApplicantSnapshot{FirstName: "Ada", Email: "ada@example.com", CapturedAt: testNow},
		CreatedAt:   testNow,
		UpdatedAt:   testNow,
	}
	stored, created, err := s.CreatePackageIfAbsent(ctx, pkg)
	if err != nil || !created {
		t.Fatalf("expected package created, got %v %v", created, err)
	}

	dup := *pkg
	dup.ID = auth.GenerateID()
	dup.Snapshot.Email = "other@example.com"
	again, created, err := s.CreatePackageIfAbsent(ctx, &dup)
	if err != nil {
		t.Fatal(err)
	}
	if created || again.ID != stored.ID || again.Snapshot.Email != "ada@example.com" {
		t.Errorf("expected the original package back, got %+v (created=%v)", again, created)
	}

	again.Status = models.PackageReady
	if err := s.UpdatePackage(ctx, again, models.PackageReady); !apperr.Is(err, apperr.CodeConflict) {
		t.Errorf("expected conflict on status mismatch, got %v", err)
	}
	if err := s.UpdatePackage(ctx, again, models.PackageDraft); err != nil {
		t.Errorf("UpdatePackage failed: %v", err)
	}
}

func TestReorderStages_RejectsStaleList(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	p := seedPipeline(t, s, 3)

	err := s.ReorderStages(ctx, p.ID, []string{p.Stages[1].ID, p.Stages[0].ID}, testNow)
	if !apperr.Is(err, apperr.CodeConflict) {
		t.Fatalf("expected conflict for partial list, got %v", err)
	}

	order := []string{p.Stages[2].ID, p.Stages[1].ID, p.Stages[0].ID}
	if err := s.ReorderStages(ctx, p.ID, order, testNow); err != nil {
		t.Fatalf("ReorderStages failed: %v", err)
	}
	stored, err := s.GetPipeline(ctx, p.ID)
	if err != nil {
		t.Fatal(err)
	}
	for i, st := range stored.Stages {
		if st.ID != order[i] || st.SortOrder != i {
			t.Errorf("position %d: got %s (sort %d)", i, st.ID, st.SortOrder)
		}
	}
}

func TestDeleteStage_ForeignKeyConflict(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	p := seedPipeline(t, s, 2)
	seedApplicant(t, s, p)

	err := s.DeleteStage(ctx, p.ID, p.Stages[0].ID, testNow)
	if !apperr.Is(err, apperr.CodeConflict) {
		t.Fatalf("expected conflict when applicants reference the stage, got %v", err)
	}

	err = s.DeletePipeline(ctx, p.ID)
	if !apperr.Is(err, apperr.CodeConflict) {
		t.Fatalf("expected conflict when applicants reference the pipeline, got %v", err)
	}
}
