// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/danielhkuo/applicant-pipeline/apperr"
	"github.com/danielhkuo/applicant-pipeline/models"
	"github.com/danielhkuo/applicant-pipeline/pipeline"
)

const applicantColumns = `id, pipeline_id, first_name, last_name, email, phone, current_stage_id,
	status, stage_entered_at, last_activity_at, deactivated_at, deactivation_reason,
	withdrawn_at, withdrawal_reason, target_membership_type, target_role_id, converted_at,
	member_id, notes, created_at, updated_at, version`

const historyColumns = `id, applicant_id, sequence, action, stage_id, stage_name, stage_type,
	entered_at, completed_at, completed_by, notes, artifacts, recorded_at`

// CreateApplicant inserts a new applicant at version 1 with its intake entry.
func (s *Store) CreateApplicant(ctx context.Context, a *models.Applicant, entry models.StageHistoryEntry) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		a.Version = 1
		_, err := tx.ExecContext(ctx, `
			INSERT INTO applicant (`+applicantColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22)
		`, a.ID, a.PipelineID, a.FirstName, a.LastName, a.Email, a.Phone, a.CurrentStageID,
			a.Status, toMillis(a.StageEnteredAt), toMillis(a.LastActivityAt),
			nullMillis(a.DeactivatedAt), a.DeactivationReason, nullMillis(a.WithdrawnAt),
			a.WithdrawalReason, a.TargetMembershipType, a.TargetRoleID, nullMillis(a.ConvertedAt),
			a.MemberID, a.Notes, toMillis(a.CreatedAt), toMillis(a.UpdatedAt), a.Version)
		if isForeignKeyViolation(err) {
			return apperr.New(apperr.CodeNotFound, "pipeline or stage no longer exists")
		}
		if err != nil {
			return fmt.Errorf("failed to insert applicant: %w", err)
		}

		entry.ApplicantID = a.ID
		if err := appendHistory(ctx, tx, &entry); err != nil {
			return err
		}
		a.StageHistory = []models.StageHistoryEntry{entry}
		return nil
	})
}

// GetApplicant loads an applicant with its full history.
func (s *Store) GetApplicant(ctx context.Context, id string) (*models.Applicant, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+applicantColumns+` FROM applicant WHERE id = $1`, id)
	a, err := scanApplicant(row)
	if err == sql.ErrNoRows {
		return nil, apperr.NotFoundf("applicant", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query applicant: %w", err)
	}

	history, err := listHistory(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	a.StageHistory = history
	return a, nil
}

// ListApplicants returns applicants matching filter, oldest first.
func (s *Store) ListApplicants(ctx context.Context, filter pipeline.ApplicantFilter) ([]models.Applicant, error) {
	where, args := applicantWhere(filter)
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+applicantColumns+` FROM applicant`+where+` ORDER BY created_at, id
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query applicants: %w", err)
	}

	applicants := []models.Applicant{}
	for rows.Next() {
		a, err := scanApplicant(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan applicant: %w", err)
		}
		applicants = append(applicants, *a)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("failed to iterate applicants: %w", err)
	}
	rows.Close()

	if filter.WithHistory {
		for i := range applicants {
			history, err := listHistory(ctx, s.db, applicants[i].ID)
			if err != nil {
				return nil, err
			}
			applicants[i].StageHistory = history
		}
	}
	return applicants, nil
}

// CountApplicants counts applicants matching filter.
func (s *Store) CountApplicants(ctx context.Context, filter pipeline.ApplicantFilter) (int, error) {
	where, args := applicantWhere(filter)
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM applicant`+where, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count applicants: %w", err)
	}
	return n, nil
}

func applicantWhere(filter pipeline.ApplicantFilter) (string, []any) {
	var (
		clauses []string
		args    []any
	)
	if filter.PipelineID != "" {
		args = append(args, filter.PipelineID)
		clauses = append(clauses, fmt.Sprintf("pipeline_id = $%d", len(args)))
	}
	if filter.StageID != "" {
		args = append(args, filter.StageID)
		clauses = append(clauses, fmt.Sprintf("current_stage_id = $%d", len(args)))
	}
	if len(filter.Statuses) > 0 {
		clauses = append(clauses, "status IN ("+placeholders(len(args)+1, len(filter.Statuses))+")")
		for _, st := range filter.Statuses {
			args = append(args, st)
		}
	}
	if filter.IDs != nil {
		if len(filter.IDs) == 0 {
			clauses = append(clauses, "1 = 0")
		} else {
			clauses = append(clauses, "id IN ("+placeholders(len(args)+1, len(filter.IDs))+")")
			for _, id := range filter.IDs {
				args = append(args, id)
			}
		}
	}
	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

// ApplyTransition performs the optimistic-concurrency write of one transition.
func (s *Store) ApplyTransition(ctx context.Context, t pipeline.Transition) error {
	a := t.Applicant
	entry := t.Entry
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE applicant
			SET current_stage_id = $1, status = $2, stage_entered_at = $3, last_activity_at = $4,
			    deactivated_at = $5, deactivation_reason = $6, withdrawn_at = $7,
			    withdrawal_reason = $8, target_membership_type = $9, target_role_id = $10,
			    converted_at = $11, member_id = $12, notes = $13, updated_at = $14,
			    version = version + 1
			WHERE id = $15 AND version = $16
		`, a.CurrentStageID, a.Status, toMillis(a.StageEnteredAt), toMillis(a.LastActivityAt),
			nullMillis(a.DeactivatedAt), a.DeactivationReason, nullMillis(a.WithdrawnAt),
			a.WithdrawalReason, a.TargetMembershipType, a.TargetRoleID, nullMillis(a.ConvertedAt),
			a.MemberID, a.Notes, toMillis(a.UpdatedAt), a.ID, t.ExpectedVersion)
		if err != nil {
			return fmt.Errorf("failed to update applicant: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to read affected rows: %w", err)
		}
		if n == 0 {
			var found int
			err := tx.QueryRowContext(ctx, `SELECT 1 FROM applicant WHERE id = $1`, a.ID).Scan(&found)
			if err == sql.ErrNoRows {
				return apperr.NotFoundf("applicant", a.ID)
			}
			if err != nil {
				return fmt.Errorf("failed to query applicant: %w", err)
			}
			return apperr.WithMetadata(apperr.CodeConflict,
				fmt.Sprintf("applicant %s was modified concurrently; refetch and retry", a.ID),
				map[string]string{"applicant_id": a.ID})
		}

		entry.ApplicantID = a.ID
		if err := appendHistory(ctx, tx, &entry); err != nil {
			return err
		}

		if doc := t.Document; doc != nil {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO applicant_document (id, applicant_id, stage_id, document_type, file_name, uploaded_by, uploaded_at)
				VALUES ($1, $2, $3, $4, $5, $6, $7)
			`, doc.ID, a.ID, doc.StageID, doc.DocumentType, doc.FileName, doc.UploadedBy, toMillis(doc.UploadedAt))
			if err != nil {
				return fmt.Errorf("failed to insert document: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	a.Version = t.ExpectedVersion + 1
	a.StageHistory = append(a.StageHistory, entry)
	return nil
}

// appendHistory inserts entry at the next sequence number for its applicant.
func appendHistory(ctx context.Context, tx *sql.Tx, entry *models.StageHistoryEntry) error {
	err := tx.QueryRowContext(ctx, `
		SELECT COALESCE(MAX(sequence), 0) + 1 FROM applicant_stage_history WHERE applicant_id = $1
	`, entry.ApplicantID).Scan(&entry.Sequence)
	if err != nil {
		return fmt.Errorf("failed to query history sequence: %w", err)
	}

	artifacts := entry.Artifacts
	if artifacts == nil {
		artifacts = []string{}
	}
	encoded, err := json.Marshal(artifacts)
	if err != nil {
		return fmt.Errorf("failed to encode artifacts: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO applicant_stage_history (`+historyColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`, entry.ID, entry.ApplicantID, entry.Sequence, entry.Action, entry.StageID, entry.StageName,
		string(entry.StageType), toMillis(entry.EnteredAt), nullMillis(entry.CompletedAt),
		entry.CompletedBy, entry.Notes, string(encoded), toMillis(entry.RecordedAt))
	if isUniqueViolation(err) {
		return conflictf("history of applicant %s changed concurrently", entry.ApplicantID)
	}
	if err != nil {
		return fmt.Errorf("failed to insert history entry: %w", err)
	}
	return nil
}

func listHistory(ctx context.Context, q querier, applicantID string) ([]models.StageHistoryEntry, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT `+historyColumns+` FROM applicant_stage_history WHERE applicant_id = $1 ORDER BY sequence
	`, applicantID)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	history := []models.StageHistoryEntry{}
	for rows.Next() {
		var (
			h         models.StageHistoryEntry
			stageType string
			entered   int64
			completed sql.NullInt64
			artifacts string
			recorded  int64
		)
		err := rows.Scan(&h.ID, &h.ApplicantID, &h.Sequence, &h.Action, &h.StageID, &h.StageName,
			&stageType, &entered, &completed, &h.CompletedBy, &h.Notes, &artifacts, &recorded)
		if err != nil {
			return nil, fmt.Errorf("failed to scan history entry: %w", err)
		}
		h.StageType = models.StageType(stageType)
		h.EnteredAt = fromMillis(entered)
		h.CompletedAt = timePtr(completed)
		h.RecordedAt = fromMillis(recorded)
		if err := json.Unmarshal([]byte(artifacts), &h.Artifacts); err != nil {
			return nil, fmt.Errorf("failed to decode artifacts: %w", err)
		}
		if len(h.Artifacts) == 0 {
			h.Artifacts = nil
		}
		history = append(history, h)
	}
	return history, rows.Err()
}

// ListDocuments returns the applicant's documents in upload order.
func (s *Store) ListDocuments(ctx context.Context, applicantID string) ([]models.ApplicantDocument, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, applicant_id, stage_id, document_type, file_name, uploaded_by, uploaded_at
		FROM applicant_document
		WHERE applicant_id = $1
		ORDER BY uploaded_at, id
	`, applicantID)
	if err != nil {
		return nil, fmt.Errorf("failed to query documents: %w", err)
	}
	defer rows.Close()

	docs := []models.ApplicantDocument{}
	for rows.Next() {
		var (
			d        models.ApplicantDocument
			uploaded int64
		)
		if err := rows.Scan(&d.ID, &d.ApplicantID, &d.StageID, &d.DocumentType, &d.FileName, &d.UploadedBy, &uploaded); err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		d.UploadedAt = fromMillis(uploaded)
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

// DeleteInactiveApplicant deletes the applicant only while it is inactive.
// History, documents and election packages go with it through ON DELETE CASCADE.
func (s *Store) DeleteInactiveApplicant(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM applicant WHERE id = $1 AND status = $2`, id, models.StatusInactive)
	if err != nil {
		return false, fmt.Errorf("failed to delete applicant: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return n > 0, nil
}

func scanApplicant(row rowScanner) (*models.Applicant, error) {
	var (
		a           models.Applicant
		entered     int64
		lastActive  int64
		deactivated sql.NullInt64
		withdrawn   sql.NullInt64
		converted   sql.NullInt64
		created     int64
		updated     int64
	)
	err := row.Scan(&a.ID, &a.PipelineID, &a.FirstName, &a.LastName, &a.Email, &a.Phone,
		&a.CurrentStageID, &a.Status, &entered, &lastActive, &deactivated, &a.DeactivationReason,
		&withdrawn, &a.WithdrawalReason, &a.TargetMembershipType, &a.TargetRoleID, &converted,
		&a.MemberID, &a.Notes, &created, &updated, &a.Version)
	if err != nil {
		return nil, err
	}
	a.StageEnteredAt = fromMillis(entered)
	a.LastActivityAt = fromMillis(lastActive)
	a.DeactivatedAt = timePtr(deactivated)
	a.WithdrawnAt = timePtr(withdrawn)
	a.ConvertedAt = timePtr(converted)
	a.CreatedAt = fromMillis(created)
	a.UpdatedAt = fromMillis(updated)
	a.StageHistory = []models.StageHistoryEntry{}
	return &a, nil
}
