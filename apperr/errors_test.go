// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package apperr

import (
	"errors"
	"fmt"
	"testing"
)

func TestIsMatchesByCode(t *testing.T) {
	err := NotFoundf("applicant", "abc")
	if !errors.Is(err, NotFound) {
		t.Error("expected NotFound match")
	}
	if errors.Is(err, Conflict) {
		t.Error("did not expect Conflict match")
	}

	wrapped := fmt.Errorf("failed to load: %w", err)
	if !errors.Is(wrapped, NotFound) {
		t.Error("expected match through fmt wrapping")
	}
	if CodeOf(wrapped) != CodeNotFound {
		t.Errorf("CodeOf() = %s, want not_found", CodeOf(wrapped))
	}
}

func TestCodeOfPlainError(t *testing.T) {
	if got := CodeOf(errors.New("boom")); got != CodeInternal {
		t.Errorf("CodeOf() = %s, want internal", got)
	}
	if Is(nil, CodeInternal) {
		t.Error("nil error should not match any code")
	}
}

func TestTransitionMetadata(t *testing.T) {
	err := Transition("converted", "advance", "")
	if err.Metadata["current_status"] != "converted" {
		t.Errorf("current_status = %q", err.Metadata["current_status"])
	}
	if err.Metadata["attempted"] != "advance" {
		t.Errorf("attempted = %q", err.Metadata["attempted"])
	}
	if err.Error() != "cannot advance applicant in status converted" {
		t.Errorf("unexpected message %q", err.Error())
	}
}

func TestWrapUnwrap(t *testing.T) {
	cause := errors.New("disk full")
	err := Wrap(CodeInternal, "failed to save", cause)
	if !errors.Is(err, cause) {
		t.Error("expected cause in chain")
	}
	if err.Error() != "failed to save: disk full" {
		t.Errorf("unexpected message %q", err.Error())
	}
}
