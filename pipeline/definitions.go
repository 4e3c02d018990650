// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/danielhkuo/applicant-pipeline/apperr"
	"github.com/danielhkuo/applicant-pipeline/auth"
	"github.com/danielhkuo/applicant-pipeline/models"
)

// Definitions manages pipelines and their stages.
type Definitions struct {
	pipelines  PipelineRepository
	applicants ApplicantRepository
	clock      Clock
}

func NewDefinitions(pipelines PipelineRepository, applicants ApplicantRepository, clock Clock) *Definitions {
	return &Definitions{pipelines: pipelines, applicants: applicants, clock: clock}
}

// invalid turns a plain validation failure into a validation error.
func invalid(err error) error {
	return apperr.New(apperr.CodeValidation, err.Error())
}

func (d *Definitions) CreatePipeline(ctx context.Context, req models.CreatePipelineRequest) (*models.Pipeline, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, apperr.New(apperr.CodeValidation, "pipeline name is required")
	}
	if strings.TrimSpace(req.OrganizationID) == "" {
		return nil, apperr.New(apperr.CodeValidation, "organization_id is required")
	}

	cfg := models.DefaultInactivityConfig()
	if req.Inactivity != nil {
		cfg = *req.Inactivity
	}
	if err := cfg.Validate(); err != nil {
		return nil, invalid(err)
	}

	now := d.clock.now()
	p := &models.Pipeline{
		ID:             auth.GenerateID(),
		OrganizationID: req.OrganizationID,
		Name:           name,
		Description:    req.Description,
		IsActive:       true,
		Inactivity:     cfg,
		Stages:         []models.PipelineStage{},
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if req.IsActive != nil {
		p.IsActive = *req.IsActive
	}

	for i, in := range req.Stages {
		st, err := buildStage(p.ID, in, now)
		if err != nil {
			return nil, apperr.Newf(apperr.CodeValidation, "stage %d: %s", i, err.Error())
		}
		st.SortOrder = i
		p.Stages = append(p.Stages, st)
	}

	if err := d.pipelines.CreatePipeline(ctx, p); err != nil {
		return nil, err
	}

	slog.Info("pipeline created", "pipeline_id", p.ID, "organization_id", p.OrganizationID, "stages", len(p.Stages))
	return p, nil
}

// buildStage validates a stage definition and decodes its typed config.
func buildStage(pipelineID string, in models.StageInput, now time.Time) (models.PipelineStage, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return models.PipelineStage{}, fmt.Errorf("stage name is required")
	}
	if !in.StageType.Valid() {
		return models.PipelineStage{}, fmt.Errorf("unknown stage_type %q", in.StageType)
	}
	cfg, err := models.DecodeStageConfig(in.StageType, in.Config)
	if err != nil {
		return models.PipelineStage{}, err
	}
	if err := cfg.Validate(); err != nil {
		return models.PipelineStage{}, err
	}
	if in.InactivityTimeoutDays != nil {
		if err := models.ValidateTimeoutDays("inactivity_timeout_days", *in.InactivityTimeoutDays); err != nil {
			return models.PipelineStage{}, err
		}
	}

	st := models.PipelineStage{
		ID:                    auth.GenerateID(),
		PipelineID:            pipelineID,
		Name:                  name,
		Description:           in.Description,
		StageType:             in.StageType,
		Config:                cfg,
		IsRequired:            true,
		InactivityTimeoutDays: in.InactivityTimeoutDays,
		CreatedAt:             now,
		UpdatedAt:             now,
	}
	if in.IsRequired != nil {
		st.IsRequired = *in.IsRequired
	}
	return st, nil
}

func (d *Definitions) GetPipeline(ctx context.Context, id string) (*models.Pipeline, error) {
	return d.pipelines.GetPipeline(ctx, id)
}

func (d *Definitions) ListPipelines(ctx context.Context, organizationID string, includeInactive bool) ([]models.Pipeline, error) {
	return d.pipelines.ListPipelines(ctx, organizationID, includeInactive)
}

func (d *Definitions) UpdatePipeline(ctx context.Context, id string, req models.UpdatePipelineRequest) (*models.Pipeline, error) {
	p, err := d.pipelines.GetPipeline(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, apperr.New(apperr.CodeValidation, "pipeline name is required")
		}
		p.Name = name
	}
	if req.Description != nil {
		p.Description = *req.Description
	}
	if req.IsActive != nil {
		p.IsActive = *req.IsActive
	}
	if req.Inactivity != nil {
		if err := req.Inactivity.Validate(); err != nil {
			return nil, invalid(err)
		}
		p.Inactivity = *req.Inactivity
	}
	p.UpdatedAt = d.clock.now()

	if err := d.pipelines.UpdatePipeline(ctx, p); err != nil {
		return nil, err
	}

	slog.Info("pipeline updated", "pipeline_id", p.ID, "is_active", p.IsActive)
	return p, nil
}

// DeletePipeline removes a pipeline that no applicant references. Pipelines
// with applicants are soft-disabled through UpdatePipeline instead.
func (d *Definitions) DeletePipeline(ctx context.Context, id string) error {
	if _, err := d.pipelines.GetPipeline(ctx, id); err != nil {
		return err
	}
	n, err := d.applicants.CountApplicants(ctx, ApplicantFilter{PipelineID: id})
	if err != nil {
		return err
	}
	if n > 0 {
		return apperr.WithMetadata(apperr.CodeConflict,
			fmt.Sprintf("pipeline %s still has %d applicants; deactivate it instead", id, n),
			map[string]string{"pipeline_id": id, "applicants": fmt.Sprint(n)})
	}
	if err := d.pipelines.DeletePipeline(ctx, id); err != nil {
		return err
	}

	slog.Info("pipeline deleted", "pipeline_id", id)
	return nil
}

// AddStage appends a stage after the pipeline's current last stage.
func (d *Definitions) AddStage(ctx context.Context, pipelineID string, in models.StageInput) (*models.PipelineStage, error) {
	if _, err := d.pipelines.GetPipeline(ctx, pipelineID); err != nil {
		return nil, err
	}
	st, err := buildStage(pipelineID, in, d.clock.now())
	if err != nil {
		return nil, invalid(err)
	}
	if err := d.pipelines.CreateStage(ctx, &st); err != nil {
		return nil, err
	}

	slog.Info("stage added", "pipeline_id", pipelineID, "stage_id", st.ID, "stage_type", st.StageType, "sort_order", st.SortOrder)
	return &st, nil
}

// UpdateStage edits a stage in place. The stage type is fixed at creation,
// so a new config must match it.
func (d *Definitions) UpdateStage(ctx context.Context, pipelineID, stageID string, req models.UpdateStageRequest) (*models.PipelineStage, error) {
	p, err := d.pipelines.GetPipeline(ctx, pipelineID)
	if err != nil {
		return nil, err
	}
	idx := p.StageIndex(stageID)
	if idx < 0 {
		return nil, apperr.NotFoundf("stage", stageID)
	}
	st := p.Stages[idx]

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, apperr.New(apperr.CodeValidation, "stage name is required")
		}
		st.Name = name
	}
	if req.Description != nil {
		st.Description = *req.Description
	}
	if len(req.Config) > 0 {
		cfg, err := models.DecodeStageConfig(st.StageType, req.Config)
		if err != nil {
			return nil, invalid(err)
		}
		if err := cfg.Validate(); err != nil {
			return nil, invalid(err)
		}
		st.Config = cfg
	}
	if req.IsRequired != nil {
		st.IsRequired = *req.IsRequired
	}
	switch {
	case req.ClearInactivityTimeout:
		st.InactivityTimeoutDays = nil
	case req.InactivityTimeoutDays != nil:
		if err := models.ValidateTimeoutDays("inactivity_timeout_days", *req.InactivityTimeoutDays); err != nil {
			return nil, invalid(err)
		}
		days := *req.InactivityTimeoutDays
		st.InactivityTimeoutDays = &days
	}
	st.UpdatedAt = d.clock.now()

	if err := d.pipelines.UpdateStage(ctx, &st); err != nil {
		return nil, err
	}
	return &st, nil
}

// DeleteStage removes a stage no applicant is positioned on and closes the
// gap in the sibling sort orders.
func (d *Definitions) DeleteStage(ctx context.Context, pipelineID, stageID string) error {
	p, err := d.pipelines.GetPipeline(ctx, pipelineID)
	if err != nil {
		return err
	}
	if p.StageIndex(stageID) < 0 {
		return apperr.NotFoundf("stage", stageID)
	}

	n, err := d.applicants.CountApplicants(ctx, ApplicantFilter{PipelineID: pipelineID, StageID: stageID})
	if err != nil {
		return err
	}
	if n > 0 {
		return apperr.WithMetadata(apperr.CodeConflict,
			fmt.Sprintf("stage %s has %d applicants positioned on it; move them first", stageID, n),
			map[string]string{"stage_id": stageID, "applicants": fmt.Sprint(n)})
	}

	if err := d.pipelines.DeleteStage(ctx, pipelineID, stageID, d.clock.now()); err != nil {
		return err
	}

	slog.Info("stage deleted", "pipeline_id", pipelineID, "stage_id", stageID)
	return nil
}

// ReorderStages renumbers every stage of the pipeline in the given order.
func (d *Definitions) ReorderStages(ctx context.Context, pipelineID string, stageIDs []string) (*models.Pipeline, error) {
	if len(stageIDs) == 0 {
		return nil, apperr.New(apperr.CodeValidation, "stage_ids is required")
	}
	seen := make(map[string]bool, len(stageIDs))
	for _, id := range stageIDs {
		if seen[id] {
			return nil, apperr.Newf(apperr.CodeValidation, "stage %s listed twice", id)
		}
		seen[id] = true
	}

	p, err := d.pipelines.GetPipeline(ctx, pipelineID)
	if err != nil {
		return nil, err
	}
	if len(stageIDs) != len(p.Stages) {
		return nil, apperr.Newf(apperr.CodeValidation, "stage_ids must list all %d stages of the pipeline", len(p.Stages))
	}
	for _, id := range stageIDs {
		if p.StageIndex(id) < 0 {
			return nil, apperr.Newf(apperr.CodeValidation, "stage %s does not belong to pipeline %s", id, pipelineID)
		}
	}

	if err := d.pipelines.ReorderStages(ctx, pipelineID, stageIDs, d.clock.now()); err != nil {
		return nil, err
	}

	slog.Info("stages reordered", "pipeline_id", pipelineID, "stages", len(stageIDs))
	return d.pipelines.GetPipeline(ctx, pipelineID)
}
