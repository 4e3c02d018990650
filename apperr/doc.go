// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package apperr defines the error taxonomy shared by the pipeline services.

Every failure the services surface to callers is an *Error carrying a Code:

  - validation: malformed or out-of-range input; fix and resubmit
  - invalid_transition: the trigger is illegal for the applicant's status
  - not_found: an unresolved pipeline, stage, applicant or package id
  - conflict: an optimistic-lock mismatch; refetch and retry
  - purge_confirmation_required: a destructive call without confirm=true

Match by code with errors.Is against the exported sentinels:

	if errors.Is(err, apperr.Conflict) {
		// refetch and retry
	}

Anything that is not an *Error is treated as internal.
*/
package apperr
