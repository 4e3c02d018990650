// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/danielhkuo/applicant-pipeline/apperr"
	"github.com/danielhkuo/applicant-pipeline/models"
)

const pipelineColumns = `id, organization_id, name, description, is_active, timeout_preset,
	custom_timeout_days, warning_threshold_percent, notify_coordinator, notify_applicant,
	auto_purge_enabled, purge_days_after_inactive, created_at, updated_at`

const stageColumns = `id, pipeline_id, name, description, stage_type, config, sort_order,
	is_required, inactivity_timeout_days, created_at, updated_at`

// CreatePipeline inserts the pipeline and its initial stages.
func (s *Store) CreatePipeline(ctx context.Context, p *models.Pipeline) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		cfg := p.Inactivity
		_, err := tx.ExecContext(ctx, `
			INSERT INTO pipeline (`+pipelineColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		`, p.ID, p.OrganizationID, p.Name, p.Description, p.IsActive, string(cfg.TimeoutPreset),
			nullInt(cfg.CustomTimeoutDays), cfg.WarningThresholdPercent, cfg.NotifyCoordinator,
			cfg.NotifyApplicant, cfg.AutoPurgeEnabled, cfg.PurgeDaysAfterInactive,
			toMillis(p.CreatedAt), toMillis(p.UpdatedAt))
		if err != nil {
			return fmt.Errorf("failed to insert pipeline: %w", err)
		}

		for i := range p.Stages {
			p.Stages[i].SortOrder = i
			if err := insertStage(ctx, tx, &p.Stages[i]); err != nil {
				return err
			}
		}
		return nil
	})
}

func insertStage(ctx context.Context, q querier, st *models.PipelineStage) error {
	config, err := json.Marshal(st.Config)
	if err != nil {
		return fmt.Errorf("failed to encode stage config: %w", err)
	}
	_, err = q.ExecContext(ctx, `
		INSERT INTO pipeline_stage (`+stageColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, st.ID, st.PipelineID, st.Name, st.Description, string(st.StageType), string(config),
		st.SortOrder, st.IsRequired, nullInt(st.InactivityTimeoutDays),
		toMillis(st.CreatedAt), toMillis(st.UpdatedAt))
	if isUniqueViolation(err) {
		return conflictf("stage sort order %d is already taken", st.SortOrder)
	}
	if err != nil {
		return fmt.Errorf("failed to insert stage: %w", err)
	}
	return nil
}

// GetPipeline loads a pipeline with its stages ordered by sort order.
func (s *Store) GetPipeline(ctx context.Context, id string) (*models.Pipeline, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+pipelineColumns+` FROM pipeline WHERE id = $1`, id)
	p, err := scanPipeline(row)
	if err == sql.ErrNoRows {
		return nil, apperr.NotFoundf("pipeline", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query pipeline: %w", err)
	}

	stages, err := listStages(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	p.Stages = stages
	return p, nil
}

// ListPipelines returns the organization's pipelines ordered by name.
// An empty organizationID lists every organization.
func (s *Store) ListPipelines(ctx context.Context, organizationID string, includeInactive bool) ([]models.Pipeline, error) {
	query := `SELECT ` + pipelineColumns + ` FROM pipeline WHERE 1 = 1`
	var args []any
	if organizationID != "" {
		args = append(args, organizationID)
		query += fmt.Sprintf(" AND organization_id = $%d", len(args))
	}
	if !includeInactive {
		args = append(args, true)
		query += fmt.Sprintf(" AND is_active = $%d", len(args))
	}
	query += " ORDER BY name, id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query pipelines: %w", err)
	}
	pipelines := []models.Pipeline{}
	for rows.Next() {
		p, err := scanPipeline(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan pipeline: %w", err)
		}
		pipelines = append(pipelines, *p)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("failed to iterate pipelines: %w", err)
	}
	rows.Close()

	for i := range pipelines {
		stages, err := listStages(ctx, s.db, pipelines[i].ID)
		if err != nil {
			return nil, err
		}
		pipelines[i].Stages = stages
	}
	return pipelines, nil
}

// UpdatePipeline writes the pipeline metadata and inactivity policy.
func (s *Store) UpdatePipeline(ctx context.Context, p *models.Pipeline) error {
	cfg := p.Inactivity
	res, err := s.db.ExecContext(ctx, `
		UPDATE pipeline
		SET name = $1, description = $2, is_active = $3, timeout_preset = $4,
		    custom_timeout_days = $5, warning_threshold_percent = $6, notify_coordinator = $7,
		    notify_applicant = $8, auto_purge_enabled = $9, purge_days_after_inactive = $10,
		    updated_at = $11
		WHERE id = $12
	`, p.Name, p.Description, p.IsActive, string(cfg.TimeoutPreset), nullInt(cfg.CustomTimeoutDays),
		cfg.WarningThresholdPercent, cfg.NotifyCoordinator, cfg.NotifyApplicant,
		cfg.AutoPurgeEnabled, cfg.PurgeDaysAfterInactive, toMillis(p.UpdatedAt), p.ID)
	if err != nil {
		return fmt.Errorf("failed to update pipeline: %w", err)
	}
	return requireRow(res, "pipeline", p.ID)
}

// DeletePipeline removes a pipeline and its stages. Referencing applicants
// make the delete fail with a conflict.
func (s *Store) DeletePipeline(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM pipeline WHERE id = $1`, id)
	if isForeignKeyViolation(err) {
		return conflictf("pipeline %s still has applicants", id)
	}
	if err != nil {
		return fmt.Errorf("failed to delete pipeline: %w", err)
	}
	return requireRow(res, "pipeline", id)
}

// CreateStage appends the stage at the next sort order.
func (s *Store) CreateStage(ctx context.Context, st *models.PipelineStage) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if err := pipelineExists(ctx, tx, st.PipelineID); err != nil {
			return err
		}
		var next int
		err := tx.QueryRowContext(ctx, `
			SELECT COALESCE(MAX(sort_order), -1) + 1 FROM pipeline_stage WHERE pipeline_id = $1
		`, st.PipelineID).Scan(&next)
		if err != nil {
			return fmt.Errorf("failed to query next sort order: %w", err)
		}
		st.SortOrder = next
		return insertStage(ctx, tx, st)
	})
}

// UpdateStage writes the mutable stage fields. Sort order is managed by
// ReorderStages and DeleteStage only.
func (s *Store) UpdateStage(ctx context.Context, st *models.PipelineStage) error {
	config, err := json.Marshal(st.Config)
	if err != nil {
		return fmt.Errorf("failed to encode stage config: %w", err)
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE pipeline_stage
		SET name = $1, description = $2, config = $3, is_required = $4,
		    inactivity_timeout_days = $5, updated_at = $6
		WHERE id = $7 AND pipeline_id = $8
	`, st.Name, st.Description, string(config), st.IsRequired, nullInt(st.InactivityTimeoutDays),
		toMillis(st.UpdatedAt), st.ID, st.PipelineID)
	if err != nil {
		return fmt.Errorf("failed to update stage: %w", err)
	}
	return requireRow(res, "stage", st.ID)
}

// DeleteStage removes the stage and closes the gap in sort order.
func (s *Store) DeleteStage(ctx context.Context, pipelineID, stageID string, now time.Time) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM pipeline_stage WHERE id = $1 AND pipeline_id = $2`, stageID, pipelineID)
		if isForeignKeyViolation(err) {
			return conflictf("stage %s still has applicants", stageID)
		}
		if err != nil {
			return fmt.Errorf("failed to delete stage: %w", err)
		}
		if err := requireRow(res, "stage", stageID); err != nil {
			return err
		}

		ids, err := stageIDs(ctx, tx, pipelineID)
		if err != nil {
			return err
		}
		return renumberStages(ctx, tx, pipelineID, ids, now)
	})
}

// ReorderStages renumbers all sibling stages in one transaction.
func (s *Store) ReorderStages(ctx context.Context, pipelineID string, order []string, now time.Time) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if err := pipelineExists(ctx, tx, pipelineID); err != nil {
			return err
		}
		current, err := stageIDs(ctx, tx, pipelineID)
		if err != nil {
			return err
		}
		if !samePermutation(current, order) {
			return conflictf("stage list changed; refetch pipeline %s and retry", pipelineID)
		}
		return renumberStages(ctx, tx, pipelineID, order, now)
	})
}

// renumberStages assigns sort orders 0..n-1. Orders are first moved to
// negative values so the UNIQUE (pipeline_id, sort_order) constraint holds
// at every intermediate step.
func renumberStages(ctx context.Context, tx *sql.Tx, pipelineID string, ids []string, now time.Time) error {
	for i, id := range ids {
		_, err := tx.ExecContext(ctx, `
			UPDATE pipeline_stage SET sort_order = $1 WHERE id = $2 AND pipeline_id = $3
		`, -(i + 1), id, pipelineID)
		if err != nil {
			return fmt.Errorf("failed to park stage order: %w", err)
		}
	}
	for i, id := range ids {
		_, err := tx.ExecContext(ctx, `
			UPDATE pipeline_stage SET sort_order = $1, updated_at = $2 WHERE id = $3 AND pipeline_id = $4
		`, i, toMillis(now), id, pipelineID)
		if err != nil {
			return fmt.Errorf("failed to renumber stage: %w", err)
		}
	}
	return nil
}

func samePermutation(current, order []string) bool {
	if len(current) != len(order) {
		return false
	}
	seen := make(map[string]bool, len(current))
	for _, id := range current {
		seen[id] = true
	}
	for _, id := range order {
		if !seen[id] {
			return false
		}
		delete(seen, id)
	}
	return len(seen) == 0
}

func stageIDs(ctx context.Context, q querier, pipelineID string) ([]string, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id FROM pipeline_stage WHERE pipeline_id = $1 ORDER BY sort_order
	`, pipelineID)
	if err != nil {
		return nil, fmt.Errorf("failed to query stage ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan stage id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func pipelineExists(ctx context.Context, q querier, id string) error {
	var found int
	err := q.QueryRowContext(ctx, `SELECT 1 FROM pipeline WHERE id = $1`, id).Scan(&found)
	if err == sql.ErrNoRows {
		return apperr.NotFoundf("pipeline", id)
	}
	if err != nil {
		return fmt.Errorf("failed to query pipeline: %w", err)
	}
	return nil
}

func listStages(ctx context.Context, q querier, pipelineID string) ([]models.PipelineStage, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT `+stageColumns+` FROM pipeline_stage WHERE pipeline_id = $1 ORDER BY sort_order
	`, pipelineID)
	if err != nil {
		return nil, fmt.Errorf("failed to query stages: %w", err)
	}
	defer rows.Close()

	stages := []models.PipelineStage{}
	for rows.Next() {
		var (
			st        models.PipelineStage
			stageType string
			config    string
			timeout   sql.NullInt64
			created   int64
			updated   int64
		)
		err := rows.Scan(&st.ID, &st.PipelineID, &st.Name, &st.Description, &stageType, &config,
			&st.SortOrder, &st.IsRequired, &timeout, &created, &updated)
		if err != nil {
			return nil, fmt.Errorf("failed to scan stage: %w", err)
		}
		st.StageType = models.StageType(stageType)
		st.Config, err = models.DecodeStageConfig(st.StageType, []byte(config))
		if err != nil {
			return nil, fmt.Errorf("failed to decode config of stage %s: %w", st.ID, err)
		}
		st.InactivityTimeoutDays = intPtr(timeout)
		st.CreatedAt = fromMillis(created)
		st.UpdatedAt = fromMillis(updated)
		stages = append(stages, st)
	}
	return stages, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPipeline(row rowScanner) (*models.Pipeline, error) {
	var (
		p       models.Pipeline
		preset  string
		custom  sql.NullInt64
		created int64
		updated int64
	)
	err := row.Scan(&p.ID, &p.OrganizationID, &p.Name, &p.Description, &p.IsActive, &preset,
		&custom, &p.Inactivity.WarningThresholdPercent, &p.Inactivity.NotifyCoordinator,
		&p.Inactivity.NotifyApplicant, &p.Inactivity.AutoPurgeEnabled,
		&p.Inactivity.PurgeDaysAfterInactive, &created, &updated)
	if err != nil {
		return nil, err
	}
	p.Inactivity.TimeoutPreset = models.TimeoutPreset(preset)
	p.Inactivity.CustomTimeoutDays = intPtr(custom)
	p.CreatedAt = fromMillis(created)
	p.UpdatedAt = fromMillis(updated)
	p.Stages = []models.PipelineStage{}
	return &p, nil
}

func requireRow(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return apperr.NotFoundf(entity, id)
	}
	return nil
}
