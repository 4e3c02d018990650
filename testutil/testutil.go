// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package testutil

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/danielhkuo/applicant-pipeline/cliparse"
	"github.com/danielhkuo/applicant-pipeline/db"
	"github.com/danielhkuo/applicant-pipeline/models"
)

// Test keys used by GetTestConfig
const (
	TestCoordinatorKey = "test-coordinator-key"
	TestElectionKey    = "test-election-key"
)

// SetupTestDB creates a fresh SQLite database with the full schema
func SetupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	path := filepath.Join(t.TempDir(), "pipeline.db")
	conn, err := db.Open(db.TypeSQLite, path)
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	if err := db.CreateSchema(conn); err != nil {
		t.Fatalf("Failed to create schema: %v", err)
	}

	return conn
}

// GetTestConfig returns a standard test configuration
func GetTestConfig() cliparse.Config {
	return cliparse.Config{
		Port:           3318,
		DatabaseURL:    "file:test.db",
		DatabaseType:   db.TypeSQLite,
		CoordinatorKey: TestCoordinatorKey,
		ElectionKey:    TestElectionKey,
		SweepInterval:  0,
		PurgeTimeout:   5 * time.Second,
		LogLevel:       "error",
		LogFormat:      "json",
	}
}

// CoordinatorHeaders returns the headers coordinator routes expect
func CoordinatorHeaders(actor string) map[string]string {
	return map[string]string{
		"X-Admin-Key": TestCoordinatorKey,
		"X-Actor-ID":  actor,
	}
}

// FakeClock is a settable clock for deterministic tests.
type FakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func NewFakeClock(start time.Time) *FakeClock {
	return &FakeClock{now: start.UTC()}
}

func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d.
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// AdvanceDays moves the clock forward by whole days.
func (c *FakeClock) AdvanceDays(days int) {
	c.Advance(time.Duration(days) * 24 * time.Hour)
}

// FourStagePipeline returns a request for a Form, Document, Vote, Approval
// pipeline with the default inactivity policy.
func FourStagePipeline(orgID string) models.CreatePipelineRequest {
	return models.CreatePipelineRequest{
		OrganizationID: orgID,
		Name:           "Membership Intake",
		Stages: []models.StageInput{
			{
				Name:      "Application Form",
				StageType: models.StageFormSubmission,
				Config:    json.RawMessage(`{"form_id":"intake-form"}`),
			},
			{
				Name:      "References",
				StageType: models.StageDocumentUpload,
				Config:    json.RawMessage(`{"required_document_types":["reference_letter"]}`),
			},
			{
				Name:      "Member Vote",
				StageType: models.StageElectionVote,
				Config:    json.RawMessage(`{"voting_method":"yes_no","victory_condition":"majority","eligible_roles":["member"]}`),
			},
			{
				Name:      "Board Approval",
				StageType: models.StageManualApproval,
				Config:    json.RawMessage(`{"approver_roles":["board"],"require_notes":true}`),
			},
		},
	}
}

// MakeRequest creates an HTTP test request
func MakeRequest(method, path string, body interface{}, headers map[string]string) *http.Request {
	var req *http.Request
	if body != nil {
		jsonBody, _ := json.Marshal(body)
		req = httptest.NewRequest(method, path, bytes.NewReader(jsonBody))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}

	for k, v := range headers {
		req.Header.Set(k, v)
	}

	return req
}

// AssertStatus checks that the response has the expected status code
func AssertStatus(t *testing.T, w *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if w.Code != expected {
		t.Errorf("Expected status %d, got %d. Body: %s", expected, w.Code, w.Body.String())
	}
}

// AssertJSON decodes the response body into the provided struct
func AssertJSON(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(w.Body).Decode(v); err != nil {
		t.Fatalf("Failed to decode JSON response: %v", err)
	}
}
