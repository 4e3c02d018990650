// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"net/http"

	"github.com/danielhkuo/applicant-pipeline/app"
	"github.com/danielhkuo/applicant-pipeline/middleware"
	"github.com/danielhkuo/applicant-pipeline/models"
	"github.com/danielhkuo/applicant-pipeline/pipeline"
)

type ElectionHandler struct {
	bridge *pipeline.Bridge
}

func NewElectionHandler(svc *app.Services) *ElectionHandler {
	return &ElectionHandler{bridge: svc.Bridge}
}

// ListPackages handles GET /election-packages?pipeline_id=&applicant_id=&status=
func (h *ElectionHandler) ListPackages(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	pkgs, err := h.bridge.ListPackages(r.Context(), pipeline.PackageFilter{
		PipelineID:  q.Get("pipeline_id"),
		ApplicantID: q.Get("applicant_id"),
		Status:      q.Get("status"),
	})
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	if pkgs == nil {
		pkgs = []models.ElectionPackage{}
	}
	middleware.JSONResponse(w, http.StatusOK, pkgs)
}

// GetPackage handles GET /election-packages/{id}
func (h *ElectionHandler) GetPackage(w http.ResponseWriter, r *http.Request) {
	pkg, err := h.bridge.GetPackage(r.Context(), r.PathValue("id"))
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	middleware.JSONResponse(w, http.StatusOK, pkg)
}

// UpdatePackage handles PATCH /election-packages/{id}
func (h *ElectionHandler) UpdatePackage(w http.ResponseWriter, r *http.Request) {
	var req models.UpdatePackageRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	pkg, err := h.bridge.UpdatePackage(r.Context(), r.PathValue("id"), req)
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	middleware.JSONResponse(w, http.StatusOK, pkg)
}

// MarkReady handles POST /election-packages/{id}/ready
func (h *ElectionHandler) MarkReady(w http.ResponseWriter, r *http.Request) {
	pkg, err := h.bridge.MarkReady(r.Context(), r.PathValue("id"))
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	middleware.JSONResponse(w, http.StatusOK, pkg)
}

// ReturnToDraft handles POST /election-packages/{id}/draft
func (h *ElectionHandler) ReturnToDraft(w http.ResponseWriter, r *http.Request) {
	pkg, err := h.bridge.ReturnToDraft(r.Context(), r.PathValue("id"))
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	middleware.JSONResponse(w, http.StatusOK, pkg)
}

// RecordBallotStatus handles POST /election-packages/{id}/ballot-status
// Called by the election subsystem with X-Election-Key.
func (h *ElectionHandler) RecordBallotStatus(w http.ResponseWriter, r *http.Request) {
	var req models.BallotStatusRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	pkg, err := h.bridge.RecordBallotStatus(r.Context(), r.PathValue("id"), req.Status)
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	middleware.JSONResponse(w, http.StatusOK, pkg)
}
