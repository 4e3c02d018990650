// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package auth provides API key checks and record ID generation.

# API Keys

Two shared secrets guard the HTTP surface:

  - Coordinator key (X-Admin-Key): pipeline, applicant and package management
  - Election key (X-Election-Key): ballot status reports from the election subsystem

	err := auth.ValidateKey(r.Header.Get(auth.HeaderAdminKey), cfg.CoordinatorKey)

Keys are hashed with SHA-256 before a constant-time comparison. An empty
configured key never validates.

# Actors

Coordinators identify themselves with X-Actor-ID; the value is recorded as
completed_by on history entries. Requests without it act as "system".

# ID Generation

Records use random UUIDs:

	id := auth.GenerateID()
*/
package auth
