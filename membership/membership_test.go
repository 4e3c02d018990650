// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package membership

import (
	"context"
	"testing"

	"github.com/danielhkuo/applicant-pipeline/apperr"
	"github.com/danielhkuo/applicant-pipeline/pipeline"
	"github.com/danielhkuo/applicant-pipeline/testutil"
)

func TestConvert_Idempotent(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := NewService(db)
	ctx := context.Background()

	req := pipeline.ConversionRequest{
		ApplicantID:    "applicant-1",
		FirstName:      "Ada",
		LastName:       "Lovelace",
		Email:          "ada@example.com",
		MembershipType: "full",
	}

	first, err := svc.Convert(ctx, req)
	if err != nil {
		t.Fatalf("Convert failed: %v", err)
	}
	second, err := svc.Convert(ctx, req)
	if err != nil {
		t.Fatalf("second Convert failed: %v", err)
	}
	if first != second {
		t.Errorf("expected same member id, got %s and %s", first, second)
	}

	var count int
	if err := db.QueryRow(`SELECT COUNT(*) FROM member`).Scan(&count); err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Errorf("expected 1 member, got %d", count)
	}

	m, err := svc.GetByApplicant(ctx, "applicant-1")
	if err != nil {
		t.Fatalf("GetByApplicant failed: %v", err)
	}
	if m.MembershipType != "full" || m.Email != "ada@example.com" {
		t.Errorf("unexpected member %+v", m)
	}
}

func TestConvert_Validation(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := NewService(db)

	_, err := svc.Convert(context.Background(), pipeline.ConversionRequest{ApplicantID: "a"})
	if !apperr.Is(err, apperr.CodeValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestGetByApplicant_NotFound(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := NewService(db)

	_, err := svc.GetByApplicant(context.Background(), "missing")
	if !apperr.Is(err, apperr.CodeNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestRevoke_RemovesUnconvertedMember(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := NewService(db)
	ctx := context.Background()

	if _, err := svc.Convert(ctx, pipeline.ConversionRequest{ApplicantID: "applicant-2", FirstName: "Bo", MembershipType: "full"}); err != nil {
		t.Fatalf("Convert failed: %v", err)
	}
	if err := svc.Revoke(ctx, "applicant-2"); err != nil {
		t.Fatalf("Revoke failed: %v", err)
	}
	if _, err := svc.GetByApplicant(ctx, "applicant-2"); !apperr.Is(err, apperr.CodeNotFound) {
		t.Errorf("expected member to be gone, got %v", err)
	}
	if err := svc.Revoke(ctx, "applicant-2"); err != nil {
		t.Errorf("second Revoke should be a no-op, got %v", err)
	}
}
