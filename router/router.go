// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package router

import (
	"net/http"

	"github.com/danielhkuo/applicant-pipeline/app"
	"github.com/danielhkuo/applicant-pipeline/auth"
	"github.com/danielhkuo/applicant-pipeline/cliparse"
	"github.com/danielhkuo/applicant-pipeline/handlers"
	"github.com/danielhkuo/applicant-pipeline/middleware"
)

func NewRouter(svc *app.Services, cfg cliparse.Config) *http.ServeMux {
	mux := http.NewServeMux()

	pipelineHandler := handlers.NewPipelineHandler(svc)
	applicantHandler := handlers.NewApplicantHandler(svc)
	electionHandler := handlers.NewElectionHandler(svc)
	opsHandler := handlers.NewOpsHandler(svc)

	coordinator := middleware.RequireKey(auth.HeaderAdminKey, cfg.CoordinatorKey)
	election := middleware.RequireKey(auth.HeaderElectionKey, cfg.ElectionKey)
	packageReader := middleware.RequireAnyKey(
		middleware.KeyCheck{Header: auth.HeaderAdminKey, Expected: cfg.CoordinatorKey},
		middleware.KeyCheck{Header: auth.HeaderElectionKey, Expected: cfg.ElectionKey},
	)

	// Coordinator routes: logged and key-guarded
	handle := func(pattern string, h http.HandlerFunc) {
		mux.HandleFunc(pattern, middleware.WithLogging(coordinator(h)))
	}

	// Health check
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Pipeline definitions
	handle("POST /pipelines", pipelineHandler.CreatePipeline)
	handle("GET /pipelines", pipelineHandler.ListPipelines)
	handle("GET /pipelines/{id}", pipelineHandler.GetPipeline)
	handle("PATCH /pipelines/{id}", pipelineHandler.UpdatePipeline)
	handle("DELETE /pipelines/{id}", pipelineHandler.DeletePipeline)
	handle("POST /pipelines/{id}/stages", pipelineHandler.AddStage)
	handle("POST /pipelines/{id}/stages/reorder", pipelineHandler.ReorderStages)
	handle("PATCH /pipelines/{id}/stages/{stageId}", pipelineHandler.UpdateStage)
	handle("DELETE /pipelines/{id}/stages/{stageId}", pipelineHandler.DeleteStage)

	// Retention and reporting
	handle("GET /pipelines/{id}/stats", pipelineHandler.GetStats)
	handle("POST /pipelines/{id}/purge", pipelineHandler.Purge)
	handle("POST /sweep", opsHandler.Sweep)

	// Applicants
	handle("GET /pipelines/{id}/applicants", applicantHandler.ListApplicants)
	handle("POST /pipelines/{id}/applicants", applicantHandler.CreateApplicant)
	handle("POST /applicants/reactivate", applicantHandler.ReactivateBatch)
	handle("GET /applicants/{id}", applicantHandler.GetApplicant)
	handle("POST /applicants/{id}/advance", applicantHandler.Advance)
	handle("POST /applicants/{id}/hold", applicantHandler.Hold)
	handle("POST /applicants/{id}/resume", applicantHandler.Resume)
	handle("POST /applicants/{id}/reject", applicantHandler.Reject)
	handle("POST /applicants/{id}/withdraw", applicantHandler.Withdraw)
	handle("POST /applicants/{id}/reactivate", applicantHandler.Reactivate)
	handle("POST /applicants/{id}/convert", applicantHandler.Convert)
	handle("POST /applicants/{id}/activity", applicantHandler.RecordActivity)
	handle("GET /applicants/{id}/documents", applicantHandler.ListDocuments)
	handle("POST /applicants/{id}/documents", applicantHandler.AttachDocument)

	// Election packages: readable by coordinators and the election subsystem
	mux.HandleFunc("GET /election-packages", middleware.WithLogging(packageReader(electionHandler.ListPackages)))
	mux.HandleFunc("GET /election-packages/{id}", middleware.WithLogging(packageReader(electionHandler.GetPackage)))
	handle("PATCH /election-packages/{id}", electionHandler.UpdatePackage)
	handle("POST /election-packages/{id}/ready", electionHandler.MarkReady)
	handle("POST /election-packages/{id}/draft", electionHandler.ReturnToDraft)

	// Election subsystem callback
	mux.HandleFunc("POST /election-packages/{id}/ballot-status",
		middleware.WithLogging(election(electionHandler.RecordBallotStatus)))

	// Root endpoint
	mux.HandleFunc("GET /", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("applicant-pipeline API v1"))
	})

	return mux
}
