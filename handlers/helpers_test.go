// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/danielhkuo/applicant-pipeline/app"
	"github.com/danielhkuo/applicant-pipeline/models"
	"github.com/danielhkuo/applicant-pipeline/notify"
	"github.com/danielhkuo/applicant-pipeline/testutil"
)

type testServer struct {
	svc        *app.Services
	clock      *testutil.FakeClock
	notes      *notify.Recorder
	pipelines  *PipelineHandler
	applicants *ApplicantHandler
	election   *ElectionHandler
	ops        *OpsHandler
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	db := testutil.SetupTestDB(t)
	clock := testutil.NewFakeClock(time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC))
	notes := &notify.Recorder{}
	svc := app.New(db, app.Options{Clock: clock.Now, Notifier: notes, PurgeTimeout: 10 * time.Second})

	return &testServer{
		svc:        svc,
		clock:      clock,
		notes:      notes,
		pipelines:  NewPipelineHandler(svc),
		applicants: NewApplicantHandler(svc),
		election:   NewElectionHandler(svc),
		ops:        NewOpsHandler(svc),
	}
}

// call runs handler against a request with the given path values set.
func call(handler http.HandlerFunc, method, path string, body interface{}, pathValues ...string) *httptest.ResponseRecorder {
	req := testutil.MakeRequest(method, path, body, testutil.CoordinatorHeaders("coordinator-1"))
	for i := 0; i+1 < len(pathValues); i += 2 {
		req.SetPathValue(pathValues[i], pathValues[i+1])
	}
	w := httptest.NewRecorder()
	handler(w, req)
	return w
}

func (s *testServer) createPipeline(t *testing.T, req models.CreatePipelineRequest) models.Pipeline {
	t.Helper()
	w := call(s.pipelines.CreatePipeline, "POST", "/pipelines", req)
	if w.Code != http.StatusCreated {
		t.Fatalf("create pipeline: %d - %s", w.Code, w.Body.String())
	}
	var p models.Pipeline
	testutil.AssertJSON(t, w, &p)
	return p
}

func (s *testServer) createApplicant(t *testing.T, pipelineID, first string) models.Applicant {
	t.Helper()
	w := call(s.applicants.CreateApplicant, "POST", "/pipelines/"+pipelineID+"/applicants", models.CreateApplicantRequest{
		FirstName:            first,
		LastName:             "Applicant",
		Email:                first + "@example.com",
		TargetMembershipType: "full",
	}, "id", pipelineID)
	if w.Code != http.StatusCreated {
		t.Fatalf("create applicant: %d - %s", w.Code, w.Body.String())
	}
	var a models.Applicant
	testutil.AssertJSON(t, w, &a)
	return a
}

func (s *testServer) advance(t *testing.T, applicantID string, req models.TransitionRequest) models.Applicant {
	t.Helper()
	w := call(s.applicants.Advance, "POST", "/applicants/"+applicantID+"/advance", req, "id", applicantID)
	if w.Code != http.StatusOK {
		t.Fatalf("advance: %d - %s", w.Code, w.Body.String())
	}
	var a models.Applicant
	testutil.AssertJSON(t, w, &a)
	return a
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) models.ErrorResponse {
	t.Helper()
	var resp models.ErrorResponse
	testutil.AssertJSON(t, w, &resp)
	return resp
}
