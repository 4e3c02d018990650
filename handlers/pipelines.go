// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"net/http"
	"strconv"

	"github.com/danielhkuo/applicant-pipeline/app"
	"github.com/danielhkuo/applicant-pipeline/middleware"
	"github.com/danielhkuo/applicant-pipeline/models"
	"github.com/danielhkuo/applicant-pipeline/pipeline"
)

type PipelineHandler struct {
	defs   *pipeline.Definitions
	stats  *pipeline.Stats
	purger *pipeline.Purger
}

func NewPipelineHandler(svc *app.Services) *PipelineHandler {
	return &PipelineHandler{defs: svc.Definitions, stats: svc.Stats, purger: svc.Purger}
}

// CreatePipeline handles POST /pipelines
func (h *PipelineHandler) CreatePipeline(w http.ResponseWriter, r *http.Request) {
	var req models.CreatePipelineRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	p, err := h.defs.CreatePipeline(r.Context(), req)
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	middleware.JSONResponse(w, http.StatusCreated, p)
}

// ListPipelines handles GET /pipelines?organization_id=&include_inactive=
func (h *PipelineHandler) ListPipelines(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	includeInactive := false
	if raw := q.Get("include_inactive"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			middleware.ErrorResponse(w, http.StatusBadRequest, "include_inactive must be a boolean")
			return
		}
		includeInactive = v
	}

	pipelines, err := h.defs.ListPipelines(r.Context(), q.Get("organization_id"), includeInactive)
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	if pipelines == nil {
		pipelines = []models.Pipeline{}
	}
	middleware.JSONResponse(w, http.StatusOK, pipelines)
}

// GetPipeline handles GET /pipelines/{id}
func (h *PipelineHandler) GetPipeline(w http.ResponseWriter, r *http.Request) {
	p, err := h.defs.GetPipeline(r.Context(), r.PathValue("id"))
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	middleware.JSONResponse(w, http.StatusOK, p)
}

// UpdatePipeline handles PATCH /pipelines/{id}
func (h *PipelineHandler) UpdatePipeline(w http.ResponseWriter, r *http.Request) {
	var req models.UpdatePipelineRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	p, err := h.defs.UpdatePipeline(r.Context(), r.PathValue("id"), req)
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	middleware.JSONResponse(w, http.StatusOK, p)
}

// DeletePipeline handles DELETE /pipelines/{id}
func (h *PipelineHandler) DeletePipeline(w http.ResponseWriter, r *http.Request) {
	if err := h.defs.DeletePipeline(r.Context(), r.PathValue("id")); err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AddStage handles POST /pipelines/{id}/stages
func (h *PipelineHandler) AddStage(w http.ResponseWriter, r *http.Request) {
	var req models.StageInput
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	stage, err := h.defs.AddStage(r.Context(), r.PathValue("id"), req)
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	middleware.JSONResponse(w, http.StatusCreated, stage)
}

// UpdateStage handles PATCH /pipelines/{id}/stages/{stageId}
func (h *PipelineHandler) UpdateStage(w http.ResponseWriter, r *http.Request) {
	var req models.UpdateStageRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	stage, err := h.defs.UpdateStage(r.Context(), r.PathValue("id"), r.PathValue("stageId"), req)
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	middleware.JSONResponse(w, http.StatusOK, stage)
}

// DeleteStage handles DELETE /pipelines/{id}/stages/{stageId}
func (h *PipelineHandler) DeleteStage(w http.ResponseWriter, r *http.Request) {
	if err := h.defs.DeleteStage(r.Context(), r.PathValue("id"), r.PathValue("stageId")); err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ReorderStages handles POST /pipelines/{id}/stages/reorder
func (h *PipelineHandler) ReorderStages(w http.ResponseWriter, r *http.Request) {
	var req models.ReorderStagesRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	p, err := h.defs.ReorderStages(r.Context(), r.PathValue("id"), req.StageIDs)
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	middleware.JSONResponse(w, http.StatusOK, p)
}

// GetStats handles GET /pipelines/{id}/stats
func (h *PipelineHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.stats.Compute(r.Context(), r.PathValue("id"))
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	middleware.JSONResponse(w, http.StatusOK, stats)
}

// Purge handles POST /pipelines/{id}/purge
func (h *PipelineHandler) Purge(w http.ResponseWriter, r *http.Request) {
	var req models.PurgeRequest
	if err := middleware.ParseOptionalJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	res, err := h.purger.Purge(r.Context(), r.PathValue("id"), req)
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	middleware.JSONResponse(w, http.StatusOK, res)
}
