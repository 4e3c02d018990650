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

const packageColumns = `id, applicant_id, pipeline_id, stage_id, status, snapshot, summary,
	recommendation, coordinator_notes, ready_at, created_at, updated_at`

// CreatePackageIfAbsent inserts pkg unless the (applicant, stage) pair already
// has a package, then returns the stored one.
func (s *Store) CreatePackageIfAbsent(ctx context.Context, pkg *models.ElectionPackage) (*models.ElectionPackage, bool, error) {
	snapshot, err := json.Marshal(pkg.Snapshot)
	if err != nil {
		return nil, false, fmt.Errorf("failed to encode snapshot: %w", err)
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO election_package (`+packageColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (applicant_id, stage_id) DO NOTHING
	`, pkg.ID, pkg.ApplicantID, pkg.PipelineID, pkg.StageID, pkg.Status, string(snapshot),
		pkg.Summary, pkg.Recommendation, pkg.CoordinatorNotes, nullMillis(pkg.ReadyAt),
		toMillis(pkg.CreatedAt), toMillis(pkg.UpdatedAt))
	if isForeignKeyViolation(err) {
		return nil, false, apperr.NotFoundf("applicant", pkg.ApplicantID)
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to insert election package: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, false, fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n > 0 {
		return pkg, true, nil
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT `+packageColumns+` FROM election_package WHERE applicant_id = $1 AND stage_id = $2
	`, pkg.ApplicantID, pkg.StageID)
	existing, err := scanPackage(row)
	if err != nil {
		return nil, false, fmt.Errorf("failed to query existing election package: %w", err)
	}
	return existing, false, nil
}

func (s *Store) GetPackage(ctx context.Context, id string) (*models.ElectionPackage, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+packageColumns+` FROM election_package WHERE id = $1`, id)
	pkg, err := scanPackage(row)
	if err == sql.ErrNoRows {
		return nil, apperr.NotFoundf("election package", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query election package: %w", err)
	}
	return pkg, nil
}

// ListPackages returns packages matching filter, oldest first.
func (s *Store) ListPackages(ctx context.Context, filter pipeline.PackageFilter) ([]models.ElectionPackage, error) {
	var (
		clauses []string
		args    []any
	)
	if filter.PipelineID != "" {
		args = append(args, filter.PipelineID)
		clauses = append(clauses, fmt.Sprintf("pipeline_id = $%d", len(args)))
	}
	if filter.ApplicantID != "" {
		args = append(args, filter.ApplicantID)
		clauses = append(clauses, fmt.Sprintf("applicant_id = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		clauses = append(clauses, fmt.Sprintf("status = $%d", len(args)))
	}
	query := `SELECT ` + packageColumns + ` FROM election_package`
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY created_at, id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query election packages: %w", err)
	}
	defer rows.Close()

	packages := []models.ElectionPackage{}
	for rows.Next() {
		pkg, err := scanPackage(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan election package: %w", err)
		}
		packages = append(packages, *pkg)
	}
	return packages, rows.Err()
}

// UpdatePackage writes the mutable package fields while the stored status
// still equals expectedStatus.
func (s *Store) UpdatePackage(ctx context.Context, pkg *models.ElectionPackage, expectedStatus string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE election_package
		SET status = $1, summary = $2, recommendation = $3, coordinator_notes = $4,
		    ready_at = $5, updated_at = $6
		WHERE id = $7 AND status = $8
	`, pkg.Status, pkg.Summary, pkg.Recommendation, pkg.CoordinatorNotes,
		nullMillis(pkg.ReadyAt), toMillis(pkg.UpdatedAt), pkg.ID, expectedStatus)
	if err != nil {
		return fmt.Errorf("failed to update election package: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n > 0 {
		return nil
	}

	var current string
	err = s.db.QueryRowContext(ctx, `SELECT status FROM election_package WHERE id = $1`, pkg.ID).Scan(&current)
	if err == sql.ErrNoRows {
		return apperr.NotFoundf("election package", pkg.ID)
	}
	if err != nil {
		return fmt.Errorf("failed to query election package: %w", err)
	}
	return apperr.WithMetadata(apperr.CodeConflict,
		fmt.Sprintf("election package %s is %s, expected %s", pkg.ID, current, expectedStatus),
		map[string]string{"current_status": current})
}

func scanPackage(row rowScanner) (*models.ElectionPackage, error) {
	var (
		pkg      models.ElectionPackage
		snapshot string
		ready    sql.NullInt64
		created  int64
		updated  int64
	)
	err := row.Scan(&pkg.ID, &pkg.ApplicantID, &pkg.PipelineID, &pkg.StageID, &pkg.Status, &snapshot,
		&pkg.Summary, &pkg.Recommendation, &pkg.CoordinatorNotes, &ready, &created, &updated)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(snapshot), &pkg.Snapshot); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	pkg.ReadyAt = timePtr(ready)
	pkg.CreatedAt = fromMillis(created)
	pkg.UpdatedAt = fromMillis(updated)
	return &pkg, nil
}
