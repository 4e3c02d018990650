// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package membership

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/danielhkuo/applicant-pipeline/apperr"
	"github.com/danielhkuo/applicant-pipeline/auth"
	"github.com/danielhkuo/applicant-pipeline/models"
	"github.com/danielhkuo/applicant-pipeline/pipeline"
)

// Service creates member records in the shared database.
type Service struct {
	db    *sql.DB
	clock func() time.Time
}

func NewService(db *sql.DB) *Service {
	return &Service{db: db, clock: time.Now}
}

// Convert creates the member for req.ApplicantID, or returns the existing one
// when that applicant was already converted.
func (s *Service) Convert(ctx context.Context, req pipeline.ConversionRequest) (string, error) {
	if req.ApplicantID == "" {
		return "", apperr.New(apperr.CodeValidation, "applicant id is required")
	}
	if req.MembershipType == "" {
		return "", apperr.New(apperr.CodeValidation, "membership type is required")
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO member (id, applicant_id, first_name, last_name, email, membership_type, role_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (applicant_id) DO NOTHING
	`, auth.GenerateID(), req.ApplicantID, req.FirstName, req.LastName, req.Email,
		req.MembershipType, req.RoleID, s.clock().UTC().UnixMilli())
	if err != nil {
		return "", fmt.Errorf("failed to insert member: %w", err)
	}

	var memberID string
	err = s.db.QueryRowContext(ctx, `SELECT id FROM member WHERE applicant_id = $1`, req.ApplicantID).Scan(&memberID)
	if err != nil {
		return "", fmt.Errorf("failed to query member: %w", err)
	}
	return memberID, nil
}

// Revoke deletes the member for applicantID unless that applicant is
// recorded as converted.
func (s *Service) Revoke(ctx context.Context, applicantID string) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM member
		WHERE applicant_id = $1
		  AND NOT EXISTS (SELECT 1 FROM applicant WHERE id = $1 AND status = $2)
	`, applicantID, models.StatusConverted)
	if err != nil {
		return fmt.Errorf("failed to delete member: %w", err)
	}
	return nil
}

// GetByApplicant returns the member created for applicantID.
func (s *Service) GetByApplicant(ctx context.Context, applicantID string) (*models.Member, error) {
	var (
		m       models.Member
		created int64
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, applicant_id, first_name, last_name, email, membership_type, role_id, created_at
		FROM member WHERE applicant_id = $1
	`, applicantID).Scan(&m.ID, &m.ApplicantID, &m.FirstName, &m.LastName, &m.Email,
		&m.MembershipType, &m.RoleID, &created)
	if err == sql.ErrNoRows {
		return nil, apperr.NotFoundf("member for applicant", applicantID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query member: %w", err)
	}
	m.CreatedAt = time.UnixMilli(created).UTC()
	return &m, nil
}
