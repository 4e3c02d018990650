// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package apperr

import (
	"errors"
	"fmt"
)

// Code is a machine-readable error category.
type Code string

const (
	CodeValidation                Code = "validation"
	CodeInvalidTransition         Code = "invalid_transition"
	CodeNotFound                  Code = "not_found"
	CodeConflict                  Code = "conflict"
	CodePurgeConfirmationRequired Code = "purge_confirmation_required"
	CodeInternal                  Code = "internal"
)

// Error is the domain error type returned by the pipeline services.
type Error struct {
	Code     Code
	Message  string
	Metadata map[string]string
	Cause    error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches any *Error with the same code, so errors.Is(err, apperr.NotFound)
// works regardless of message.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

// Sentinels for errors.Is comparisons.
var (
	Validation                = &Error{Code: CodeValidation}
	InvalidTransition         = &Error{Code: CodeInvalidTransition}
	NotFound                  = &Error{Code: CodeNotFound}
	Conflict                  = &Error{Code: CodeConflict}
	PurgeConfirmationRequired = &Error{Code: CodePurgeConfirmationRequired}
)

func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

func WithMetadata(code Code, message string, metadata map[string]string) *Error {
	return &Error{Code: code, Message: message, Metadata: metadata}
}

func Wrap(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

// NotFoundf builds a not_found error for the named entity.
func NotFoundf(entity, id string) *Error {
	return WithMetadata(CodeNotFound, fmt.Sprintf("%s %s not found", entity, id), map[string]string{
		"entity": entity,
		"id":     id,
	})
}

// Transition reports an illegal trigger for the current status.
func Transition(current, attempted, detail string) *Error {
	msg := fmt.Sprintf("cannot %s applicant in status %s", attempted, current)
	if detail != "" {
		msg += ": " + detail
	}
	return WithMetadata(CodeInvalidTransition, msg, map[string]string{
		"current_status": current,
		"attempted":      attempted,
	})
}

// CodeOf returns the code of the first *Error in err's chain, or CodeInternal.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

// Is reports whether err carries the given code.
func Is(err error, code Code) bool {
	return err != nil && CodeOf(err) == code
}
