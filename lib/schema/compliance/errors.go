// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package compliance

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel error kinds. A *Error always wraps exactly one of these.
var (
	ErrNotFound            = errors.New("not found")
	ErrTaskAlreadyTerminal = errors.New("task already terminal")
	ErrInvalidCadence      = errors.New("invalid cadence")
	ErrSessionAlreadyOpen  = errors.New("session already open")
	ErrNoOpenSession       = errors.New("no open session")
	ErrValidation          = errors.New("validation error")
	ErrStorage             = errors.New("storage error")
)

// ErrorKind is the stable wire name of an error kind. Socket responses
// carry it so remote callers can branch without string matching.
type ErrorKind string

const (
	KindNotFound            ErrorKind = "not_found"
	KindTaskAlreadyTerminal ErrorKind = "task_already_terminal"
	KindInvalidCadence      ErrorKind = "invalid_cadence"
	KindSessionAlreadyOpen  ErrorKind = "session_already_open"
	KindNoOpenSession       ErrorKind = "no_open_session"
	KindValidation          ErrorKind = "validation"
	KindStorage             ErrorKind = "storage"
)

var kindSentinels = map[ErrorKind]error{
	KindNotFound:            ErrNotFound,
	KindTaskAlreadyTerminal: ErrTaskAlreadyTerminal,
	KindInvalidCadence:      ErrInvalidCadence,
	KindSessionAlreadyOpen:  ErrSessionAlreadyOpen,
	KindNoOpenSession:       ErrNoOpenSession,
	KindValidation:          ErrValidation,
	KindStorage:             ErrStorage,
}

// Error is a typed engine error. TaskID, Field, and Status are filled
// in whenever they are known so a caller can render an actionable
// message without re-reading the task.
type Error struct {
	Kind    ErrorKind
	TaskID  string
	Field   string
	Status  Status
	Message string

	// Err is an underlying cause (a storage driver error, a parse
	// error). Nil for pure validation failures.
	Err error
}

func (e *Error) Error() string {
	var builder strings.Builder
	builder.WriteString(string(e.Kind))
	if e.TaskID != "" {
		fmt.Fprintf(&builder, ": task %s", e.TaskID)
	}
	if e.Field != "" {
		fmt.Fprintf(&builder, ": field %s", e.Field)
	}
	if e.Status != "" {
		fmt.Fprintf(&builder, " (status %s)", e.Status)
	}
	if e.Message != "" {
		builder.WriteString(": ")
		builder.WriteString(e.Message)
	}
	if e.Err != nil {
		builder.WriteString(": ")
		builder.WriteString(e.Err.Error())
	}
	return builder.String()
}

// Unwrap exposes both the kind sentinel and the underlying cause to
// errors.Is and errors.As.
func (e *Error) Unwrap() []error {
	sentinel := kindSentinels[e.Kind]
	if e.Err == nil {
		return []error{sentinel}
	}
	return []error{sentinel, e.Err}
}

// KindOf returns the kind of the first *Error in err's chain. Errors
// that carry no kind are reported as KindStorage: anything the engine
// did not classify is an infrastructure failure from the caller's
// point of view.
func KindOf(err error) ErrorKind {
	var typed *Error
	if errors.As(err, &typed) {
		return typed.Kind
	}
	for kind, sentinel := range kindSentinels {
		if errors.Is(err, sentinel) {
			return kind
		}
	}
	return KindStorage
}

// NotFound reports a missing task.
func NotFound(taskID string) *Error {
	return &Error{Kind: KindNotFound, TaskID: taskID, Message: "task does not exist"}
}

// AlreadyTerminal reports a mutation attempt on a COMPLETED or
// CANCELLED task. Field names the first offending field, if any.
func AlreadyTerminal(taskID string, status Status, field string) *Error {
	return &Error{
		Kind:    KindTaskAlreadyTerminal,
		TaskID:  taskID,
		Field:   field,
		Status:  status,
		Message: "only notes and evidenceUrl may change after a task is completed or cancelled",
	}
}

// Invalid reports malformed input for a field.
func Invalid(taskID, field, format string, args ...any) *Error {
	return &Error{
		Kind:    KindValidation,
		TaskID:  taskID,
		Field:   field,
		Message: fmt.Sprintf(format, args...),
	}
}

// Storage wraps an opaque persistence failure. The caller should
// treat it as transient; the engine never retries.
func Storage(taskID string, err error) *Error {
	return &Error{Kind: KindStorage, TaskID: taskID, Err: err}
}
