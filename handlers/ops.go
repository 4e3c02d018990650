// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"log/slog"
	"net/http"

	"github.com/danielhkuo/applicant-pipeline/app"
	"github.com/danielhkuo/applicant-pipeline/middleware"
	"github.com/danielhkuo/applicant-pipeline/pipeline"
)

type OpsHandler struct {
	sweeper *pipeline.Sweeper
}

func NewOpsHandler(svc *app.Services) *OpsHandler {
	return &OpsHandler{sweeper: svc.Sweeper}
}

// Sweep handles POST /sweep
func (h *OpsHandler) Sweep(w http.ResponseWriter, r *http.Request) {
	res, err := h.sweeper.Sweep(r.Context())
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	slog.Info("manual sweep completed", "scanned", res.Scanned, "deactivated", res.Deactivated, "failed", res.Failed)
	middleware.JSONResponse(w, http.StatusOK, res)
}
