// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"errors"
	"fmt"

	"github.com/bureau-foundation/opsdesk/lib/schema/compliance"
	"github.com/bureau-foundation/opsdesk/lib/service"
)

// ErrorCategory classifies command errors so scripts can branch on the
// exit code without parsing error text.
type ErrorCategory string

const (
	// CategoryValidation indicates the caller provided invalid input.
	// The caller should fix the input and retry.
	CategoryValidation ErrorCategory = "validation"

	// CategoryNotFound indicates a referenced task does not exist.
	CategoryNotFound ErrorCategory = "not_found"

	// CategoryForbidden indicates the caller's role lacks permission.
	CategoryForbidden ErrorCategory = "forbidden"

	// CategoryConflict indicates the operation conflicts with the
	// task's current state: already terminal, a timer already
	// running, no timer running.
	CategoryConflict ErrorCategory = "conflict"

	// CategoryTransient indicates a temporary failure: service not
	// reachable, throttled. The caller should back off and retry.
	CategoryTransient ErrorCategory = "transient"

	// CategoryInternal indicates an unexpected error.
	CategoryInternal ErrorCategory = "internal"
)

var categoryExitCodes = map[ErrorCategory]int{
	CategoryInternal:   1,
	CategoryValidation: 2,
	CategoryNotFound:   3,
	CategoryForbidden:  4,
	CategoryConflict:   5,
	CategoryTransient:  6,
}

// ToolError is a categorized error returned by CLI commands. It wraps
// an inner error, preserving the chain for errors.Is and errors.As.
type ToolError struct {
	Category ErrorCategory
	Err      error

	// Hint is an optional remediation shown after the error line.
	Hint string
}

func (e *ToolError) Error() string { return e.Err.Error() }

func (e *ToolError) Unwrap() error { return e.Err }

// WithHint attaches a remediation hint and returns e.
func (e *ToolError) WithHint(hint string) *ToolError {
	e.Hint = hint
	return e
}

// Validation creates a validation error: the caller provided bad input.
func Validation(format string, args ...any) *ToolError {
	return &ToolError{Category: CategoryValidation, Err: fmt.Errorf(format, args...)}
}

// NotFound creates a not-found error.
func NotFound(format string, args ...any) *ToolError {
	return &ToolError{Category: CategoryNotFound, Err: fmt.Errorf(format, args...)}
}

// Forbidden creates a forbidden error.
func Forbidden(format string, args ...any) *ToolError {
	return &ToolError{Category: CategoryForbidden, Err: fmt.Errorf(format, args...)}
}

// Conflict creates a conflict error.
func Conflict(format string, args ...any) *ToolError {
	return &ToolError{Category: CategoryConflict, Err: fmt.Errorf(format, args...)}
}

// Transient creates a transient error.
func Transient(format string, args ...any) *ToolError {
	return &ToolError{Category: CategoryTransient, Err: fmt.Errorf(format, args...)}
}

// Internal creates an internal error.
func Internal(format string, args ...any) *ToolError {
	return &ToolError{Category: CategoryInternal, Err: fmt.Errorf(format, args...)}
}

// categoryForKind maps a wire error kind to a CLI category.
func categoryForKind(kind string) ErrorCategory {
	switch kind {
	case string(compliance.KindValidation), string(compliance.KindInvalidCadence), service.KindInvalidRequest:
		return CategoryValidation
	case string(compliance.KindNotFound):
		return CategoryNotFound
	case service.KindForbidden, service.KindUnauthenticated:
		return CategoryForbidden
	case string(compliance.KindTaskAlreadyTerminal),
		string(compliance.KindSessionAlreadyOpen),
		string(compliance.KindNoOpenSession):
		return CategoryConflict
	case service.KindThrottled:
		return CategoryTransient
	}
	return CategoryInternal
}

// FromServiceError converts a [service.ServiceError] into a
// categorized [ToolError] with a hint where one helps. Other errors
// are returned unchanged.
func FromServiceError(err error) error {
	var serviceErr *service.ServiceError
	if !errors.As(err, &serviceErr) {
		return err
	}
	toolErr := &ToolError{Category: categoryForKind(serviceErr.Kind), Err: err}
	switch serviceErr.Kind {
	case service.KindUnauthenticated:
		toolErr.Hint = "Pass --actor and --role, or set OPSDESK_ACTOR and OPSDESK_ROLE."
	case service.KindForbidden:
		toolErr.Hint = "Lifecycle changes require --role manager or --role admin."
	case string(compliance.KindNoOpenSession):
		toolErr.Hint = "Start one with 'opsdesk timer start <task-id>'."
	case service.KindThrottled:
		toolErr.Hint = "Wait for the throttle window to pass and retry."
	}
	return toolErr
}

// ExitCodeFor returns the process exit code for an error returned by a
// command: the code carried by an [ExitError], the category code of a
// [ToolError] or service error, or 1.
func ExitCodeFor(err error) int {
	if err == nil {
		return 0
	}
	var coder interface{ ExitCode() int }
	if errors.As(err, &coder) {
		return coder.ExitCode()
	}
	var toolErr *ToolError
	if errors.As(err, &toolErr) {
		return categoryExitCodes[toolErr.Category]
	}
	var serviceErr *service.ServiceError
	if errors.As(err, &serviceErr) {
		return categoryExitCodes[categoryForKind(serviceErr.Kind)]
	}
	return 1
}
