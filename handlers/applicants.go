// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/danielhkuo/applicant-pipeline/app"
	"github.com/danielhkuo/applicant-pipeline/auth"
	"github.com/danielhkuo/applicant-pipeline/middleware"
	"github.com/danielhkuo/applicant-pipeline/models"
	"github.com/danielhkuo/applicant-pipeline/pipeline"
)

type ApplicantHandler struct {
	machine *pipeline.Machine
}

func NewApplicantHandler(svc *app.Services) *ApplicantHandler {
	return &ApplicantHandler{machine: svc.Machine}
}

// transitionFunc is the shape shared by the reason/notes triggers.
type transitionFunc func(ctx context.Context, applicantID, actor string, req models.TransitionRequest) (*models.Applicant, error)

// CreateApplicant handles POST /pipelines/{id}/applicants
func (h *ApplicantHandler) CreateApplicant(w http.ResponseWriter, r *http.Request) {
	var req models.CreateApplicantRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	a, err := h.machine.CreateApplicant(r.Context(), r.PathValue("id"), auth.ActorID(r), req)
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	middleware.JSONResponse(w, http.StatusCreated, a)
}

// ListApplicants handles GET /pipelines/{id}/applicants?status=&stage_id=&alert=
// status may repeat or be comma separated.
func (h *ApplicantHandler) ListApplicants(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var statuses []string
	for _, raw := range q["status"] {
		for _, s := range strings.Split(raw, ",") {
			if s = strings.TrimSpace(s); s != "" {
				statuses = append(statuses, s)
			}
		}
	}

	views, err := h.machine.ListApplicants(r.Context(), r.PathValue("id"), pipeline.ApplicantQuery{
		Statuses: statuses,
		StageID:  q.Get("stage_id"),
		Alert:    models.AlertLevel(q.Get("alert")),
	})
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	middleware.JSONResponse(w, http.StatusOK, models.ApplicantListResponse{
		Applicants: views,
		Count:      len(views),
	})
}

// GetApplicant handles GET /applicants/{id}
func (h *ApplicantHandler) GetApplicant(w http.ResponseWriter, r *http.Request) {
	view, err := h.machine.GetApplicant(r.Context(), r.PathValue("id"))
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	middleware.JSONResponse(w, http.StatusOK, view)
}

func (h *ApplicantHandler) transition(fn transitionFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req models.TransitionRequest
		if err := middleware.ParseOptionalJSONBody(r, &req); err != nil {
			middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
			return
		}

		a, err := fn(r.Context(), r.PathValue("id"), auth.ActorID(r), req)
		if err != nil {
			middleware.WriteError(w, r, err)
			return
		}
		middleware.JSONResponse(w, http.StatusOK, a)
	}
}

// Advance handles POST /applicants/{id}/advance
func (h *ApplicantHandler) Advance(w http.ResponseWriter, r *http.Request) {
	h.transition(h.machine.Advance)(w, r)
}

// Hold handles POST /applicants/{id}/hold
func (h *ApplicantHandler) Hold(w http.ResponseWriter, r *http.Request) {
	h.transition(h.machine.Hold)(w, r)
}

// Resume handles POST /applicants/{id}/resume
func (h *ApplicantHandler) Resume(w http.ResponseWriter, r *http.Request) {
	h.transition(h.machine.Resume)(w, r)
}

// Reject handles POST /applicants/{id}/reject
func (h *ApplicantHandler) Reject(w http.ResponseWriter, r *http.Request) {
	h.transition(h.machine.Reject)(w, r)
}

// Withdraw handles POST /applicants/{id}/withdraw
func (h *ApplicantHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	h.transition(h.machine.Withdraw)(w, r)
}

// Reactivate handles POST /applicants/{id}/reactivate
func (h *ApplicantHandler) Reactivate(w http.ResponseWriter, r *http.Request) {
	h.transition(h.machine.Reactivate)(w, r)
}

// RecordActivity handles POST /applicants/{id}/activity
func (h *ApplicantHandler) RecordActivity(w http.ResponseWriter, r *http.Request) {
	h.transition(h.machine.RecordActivity)(w, r)
}

// Convert handles POST /applicants/{id}/convert
func (h *ApplicantHandler) Convert(w http.ResponseWriter, r *http.Request) {
	var req models.ConvertRequest
	if err := middleware.ParseOptionalJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	a, err := h.machine.Convert(r.Context(), r.PathValue("id"), auth.ActorID(r), req)
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	middleware.JSONResponse(w, http.StatusOK, a)
}

// ReactivateBatch handles POST /applicants/reactivate
// Per-item failures are reported in the body; the request itself succeeds.
func (h *ApplicantHandler) ReactivateBatch(w http.ResponseWriter, r *http.Request) {
	var req models.BatchReactivateRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	resp, err := h.machine.ReactivateBatch(r.Context(), auth.ActorID(r), req)
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	middleware.JSONResponse(w, http.StatusOK, resp)
}

// AttachDocument handles POST /applicants/{id}/documents
func (h *ApplicantHandler) AttachDocument(w http.ResponseWriter, r *http.Request) {
	var req models.AttachDocumentRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	doc, err := h.machine.AttachDocument(r.Context(), r.PathValue("id"), auth.ActorID(r), req)
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	middleware.JSONResponse(w, http.StatusCreated, doc)
}

// ListDocuments handles GET /applicants/{id}/documents
func (h *ApplicantHandler) ListDocuments(w http.ResponseWriter, r *http.Request) {
	docs, err := h.machine.ListDocuments(r.Context(), r.PathValue("id"))
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	if docs == nil {
		docs = []models.ApplicantDocument{}
	}
	middleware.JSONResponse(w, http.StatusOK, docs)
}
