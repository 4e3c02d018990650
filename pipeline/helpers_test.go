// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package pipeline_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/danielhkuo/applicant-pipeline/apperr"
	"github.com/danielhkuo/applicant-pipeline/membership"
	"github.com/danielhkuo/applicant-pipeline/models"
	"github.com/danielhkuo/applicant-pipeline/notify"
	"github.com/danielhkuo/applicant-pipeline/pipeline"
	"github.com/danielhkuo/applicant-pipeline/store"
	"github.com/danielhkuo/applicant-pipeline/testutil"
)

type testEnv struct {
	ctx     context.Context
	store   *store.Store
	clock   *testutil.FakeClock
	notes   *notify.Recorder
	members *membership.Service
	defs    *pipeline.Definitions
	bridge  *pipeline.Bridge
	machine *pipeline.Machine
	sweeper *pipeline.Sweeper
	purger  *pipeline.Purger
	stats   *pipeline.Stats
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := testutil.SetupTestDB(t)
	st := store.New(db)
	clock := testutil.NewFakeClock(time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC))
	now := pipeline.Clock(clock.Now)
	notes := &notify.Recorder{}
	members := membership.NewService(db)

	bridge := pipeline.NewBridge(st, now)
	machine := pipeline.NewMachine(st, st, bridge, members, now)
	return &testEnv{
		ctx:     context.Background(),
		store:   st,
		clock:   clock,
		notes:   notes,
		members: members,
		defs:    pipeline.NewDefinitions(st, st, now),
		bridge:  bridge,
		machine: machine,
		sweeper: pipeline.NewSweeper(st, st, machine, notes, now),
		purger:  pipeline.NewPurger(st, st, 10*time.Second, now),
		stats:   pipeline.NewStats(st, st, now),
	}
}

// createPipeline creates the four stage pipeline with an optional policy.
func (e *testEnv) createPipeline(t *testing.T, cfg *models.InactivityConfig) *models.Pipeline {
	t.Helper()
	req := testutil.FourStagePipeline("org-1")
	req.Inactivity = cfg
	p, err := e.defs.CreatePipeline(e.ctx, req)
	if err != nil {
		t.Fatalf("CreatePipeline failed: %v", err)
	}
	return p
}

func (e *testEnv) createApplicant(t *testing.T, pipelineID, first string) *models.Applicant {
	t.Helper()
	a, err := e.machine.CreateApplicant(e.ctx, pipelineID, "coordinator-1", models.CreateApplicantRequest{
		FirstName:            first,
		LastName:             "Tester",
		Email:                first + "@example.com",
		TargetMembershipType: "probationary",
	})
	if err != nil {
		t.Fatalf("CreateApplicant failed: %v", err)
	}
	return a
}

func (e *testEnv) getApplicant(t *testing.T, id string) *models.ApplicantView {
	t.Helper()
	v, err := e.machine.GetApplicant(e.ctx, id)
	if err != nil {
		t.Fatalf("GetApplicant failed: %v", err)
	}
	return v
}

func (e *testEnv) advance(t *testing.T, id string) *models.Applicant {
	t.Helper()
	a, err := e.machine.Advance(e.ctx, id, "coordinator-1", models.TransitionRequest{})
	if err != nil {
		t.Fatalf("Advance failed: %v", err)
	}
	return a
}

// deactivateAfter lets days pass and sweeps, returning the sweep result.
func (e *testEnv) deactivateAfter(t *testing.T, days int) models.SweepResult {
	t.Helper()
	e.clock.AdvanceDays(days)
	res, err := e.sweeper.Sweep(e.ctx)
	if err != nil {
		t.Fatalf("Sweep failed: %v", err)
	}
	return res
}

func assertCode(t *testing.T, err error, code apperr.Code) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error, got nil", code)
	}
	if got := apperr.CodeOf(err); got != code {
		t.Fatalf("expected %s error, got %s: %v", code, got, err)
	}
}

func intPtr(v int) *int { return &v }

func asAppErr(err error, target **apperr.Error) bool {
	return errors.As(err, target)
}
