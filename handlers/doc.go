// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package handlers contains HTTP request handlers for the applicant pipeline API.

# Handler Types

Each handler is a thin struct over the services built by app.New:

  - PipelineHandler: pipeline and stage definitions, stats, purge
  - ApplicantHandler: intake, state machine triggers, documents
  - ElectionHandler: election packages and ballot status
  - OpsHandler: manual inactivity sweep

	svc := app.New(db, app.Options{PurgeTimeout: cfg.PurgeTimeout})
	pipelineHandler := handlers.NewPipelineHandler(svc)

Handlers parse the request, call one service operation and hand any error
to middleware.WriteError, which maps error codes to HTTP statuses.

# Applicant Lifecycle

	POST /pipelines/{id}/applicants   → CreateApplicant (active, first stage)
	POST /applicants/{id}/advance     → Advance (one stage forward)
	POST /applicants/{id}/hold        → Hold (reason required)
	POST /applicants/{id}/resume      → Resume
	POST /applicants/{id}/reject      → Reject (reason required)
	POST /applicants/{id}/withdraw    → Withdraw (reason required)
	POST /applicants/{id}/reactivate  → Reactivate (inactive or withdrawn)
	POST /applicants/{id}/convert     → Convert (last stage only)
	POST /applicants/reactivate       → ReactivateBatch (per-item results)

The acting coordinator is read from X-Actor-ID and recorded in history.

# Election Packages

Reaching an election stage opens a draft package. Coordinators edit it and
mark it ready; the election subsystem polls

	GET /election-packages?status=ready

with its X-Election-Key and reports back through
POST /election-packages/{id}/ballot-status.
*/
package handlers
