// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package membership creates member records for converted applicants.

Convert is idempotent per applicant: the member table has a unique
applicant_id, so a retried conversion returns the member created by the first
call instead of a duplicate.
*/
package membership
