// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package router defines HTTP routes for the applicant pipeline API.

# Route Registration

NewRouter creates a configured http.ServeMux with all endpoints:

	mux := router.NewRouter(svc, cfg)

# Endpoints

Health (public):

	GET /health

Coordinator routes (require X-Admin-Key, actor from X-Actor-ID):

	POST   /pipelines                            - Create pipeline
	GET    /pipelines                            - List (?organization_id=&include_inactive=)
	GET    /pipelines/{id}                       - Get pipeline with stages
	PATCH  /pipelines/{id}                       - Update name, active flag, policy
	DELETE /pipelines/{id}                       - Delete (409 while applicants exist)
	POST   /pipelines/{id}/stages                - Append stage
	POST   /pipelines/{id}/stages/reorder        - Reorder stages
	PATCH  /pipelines/{id}/stages/{stageId}      - Update stage
	DELETE /pipelines/{id}/stages/{stageId}      - Delete stage
	GET    /pipelines/{id}/stats                 - Aggregate stats
	POST   /pipelines/{id}/purge                 - Purge inactive applicants
	GET    /pipelines/{id}/applicants            - List (?status=&stage_id=&alert=)
	POST   /pipelines/{id}/applicants            - Intake
	GET    /applicants/{id}                      - Applicant with alert level
	POST   /applicants/{id}/{trigger}            - advance, hold, resume, reject,
	                                               withdraw, reactivate, convert, activity
	GET    /applicants/{id}/documents            - List documents
	POST   /applicants/{id}/documents            - Attach document
	POST   /applicants/reactivate                - Batch reactivate
	GET    /election-packages                    - List (?pipeline_id=&applicant_id=&status=)
	GET    /election-packages/{id}               - Get package
	PATCH  /election-packages/{id}               - Edit draft
	POST   /election-packages/{id}/ready         - Release to election subsystem
	POST   /election-packages/{id}/draft         - Pull back to draft
	POST   /sweep                                - Run an inactivity sweep now

Election subsystem (requires X-Election-Key):

	GET  /election-packages                    - List, usually ?status=ready
	GET  /election-packages/{id}               - Get package
	POST /election-packages/{id}/ballot-status - added_to_ballot, elected, not_elected

The two GET routes also accept X-Admin-Key.
*/
package router
