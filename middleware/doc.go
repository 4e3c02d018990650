// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package middleware provides HTTP middleware and helper functions.

# Request Logging

	mux.HandleFunc("GET /health", middleware.WithLogging(handler))

Logs completion with method, path, status, client IP and duration_ms.

# Keys

Coordinator and election-subsystem routes are guarded by shared keys:

	coordinator := middleware.RequireKey(auth.HeaderAdminKey, cfg.CoordinatorKey)
	mux.HandleFunc("POST /pipelines", middleware.WithLogging(coordinator(h.CreatePipeline)))

A missing or wrong key yields 401.

# Errors

WriteError turns service errors into JSON bodies of the form

	{"error": "Conflict", "message": "...", "code": "invalid_transition", "details": {...}}

using this status mapping:

	validation                   400
	not_found                    404
	invalid_transition, conflict 409
	purge_confirmation_required  428
	anything else                500 (message withheld, error logged)

# CORS

	server := http.Server{Handler: middleware.CORS(mux)}

Allows GET, POST, PATCH, DELETE, OPTIONS and the key and actor headers.
*/
package middleware
