// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package compliance

import (
	"fmt"
	"time"
)

// Cadence is the recurrence policy of a task.
type Cadence string

const (
	CadenceQuarterly  Cadence = "QUARTERLY"
	CadenceSemiAnnual Cadence = "SEMI_ANNUAL"
	CadenceAnnual     Cadence = "ANNUAL"
	CadenceCustom     Cadence = "CUSTOM"
)

// IsKnown reports whether c is one of the defined cadences.
func (c Cadence) IsKnown() bool {
	switch c {
	case CadenceQuarterly, CadenceSemiAnnual, CadenceAnnual, CadenceCustom:
		return true
	}
	return false
}

// Status is the lifecycle state of a task.
//
//	SCHEDULED ──► IN_PROGRESS ──► COMPLETED
//	    │              │
//	    └──────────────┴────────► CANCELLED
//
// SCHEDULED may also go straight to COMPLETED. COMPLETED and
// CANCELLED are terminal.
type Status string

const (
	StatusScheduled  Status = "SCHEDULED"
	StatusInProgress Status = "IN_PROGRESS"
	StatusCompleted  Status = "COMPLETED"
	StatusCancelled  Status = "CANCELLED"
)

// IsKnown reports whether s is one of the defined statuses.
func (s Status) IsKnown() bool {
	switch s {
	case StatusScheduled, StatusInProgress, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// IsTerminal reports whether no further lifecycle transition is
// possible from s.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// ValidateTransition checks whether a task in status from may move to
// status to. Staying in the same non-terminal status is a no-op and
// allowed. Returns a *Error of kind TaskAlreadyTerminal when from is
// terminal and ValidationError for any other rejected pair.
//
// Allowed transitions:
//   - SCHEDULED -> IN_PROGRESS
//   - SCHEDULED -> COMPLETED
//   - SCHEDULED -> CANCELLED
//   - IN_PROGRESS -> COMPLETED
//   - IN_PROGRESS -> CANCELLED
func ValidateTransition(taskID string, from, to Status) error {
	if !to.IsKnown() {
		return Invalid(taskID, FieldStatus, "unknown status %q", to)
	}
	if from.IsTerminal() {
		return AlreadyTerminal(taskID, from, FieldStatus)
	}
	if from == to {
		return nil
	}
	switch from {
	case StatusScheduled:
		switch to {
		case StatusInProgress, StatusCompleted, StatusCancelled:
			return nil
		}
	case StatusInProgress:
		switch to {
		case StatusCompleted, StatusCancelled:
			return nil
		}
	default:
		return Invalid(taskID, FieldStatus, "unknown current status %q", from)
	}
	return &Error{
		Kind:    KindValidation,
		TaskID:  taskID,
		Field:   FieldStatus,
		Status:  from,
		Message: fmt.Sprintf("invalid status transition: %s → %s", from, to),
	}
}

// Task is a recurring compliance obligation for a client: an access
// review or a compliance audit. Tasks are created SCHEDULED and end in
// COMPLETED or CANCELLED. Completing a task with AutoSchedule set
// spawns its successor for the next cadence period.
type Task struct {
	// ID is the immutable task identifier.
	ID string `json:"id"`

	// ClientID is the owning client. Immutable after creation.
	ClientID string `json:"client_id"`

	// Category is the framework name or audit type.
	Category string `json:"category"`

	// AnchorDate is the date the task's work nominally covers. It
	// seeds the next recurrence; the due date never does.
	AnchorDate time.Time `json:"anchor_date"`

	// DueDate is the completion deadline. Always >= AnchorDate.
	DueDate time.Time `json:"due_date"`

	Cadence Cadence `json:"cadence"`

	// CustomIntervalDays is the recurrence period when Cadence is
	// CUSTOM. Zero means absent.
	CustomIntervalDays int `json:"custom_interval_days,omitempty"`

	Status Status `json:"status"`

	// AssignedToID is the actor responsible for the task, if any.
	AssignedToID string `json:"assigned_to_id,omitempty"`

	// CompletedByID and CompletedAt are set only on the transition
	// into COMPLETED.
	CompletedByID string     `json:"completed_by_id,omitempty"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`

	// TotalAccruedSeconds is the sum of all closed timer session
	// durations. It only ever grows, and only by closing a session.
	TotalAccruedSeconds int64 `json:"total_accrued_seconds"`

	// AutoSchedule makes completion spawn a successor task.
	AutoSchedule bool `json:"auto_schedule"`

	EvidenceURL string `json:"evidence_url,omitempty"`
	Notes       string `json:"notes,omitempty"`

	// PredecessorTaskID links an auto-scheduled task to the task
	// whose completion created it.
	PredecessorTaskID string `json:"predecessor_task_id,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Version increments on every write. Stores use it as a
	// check-and-set guard so a stale read can never overwrite a
	// newer row.
	Version int64 `json:"version"`
}

// Validate checks the task's structural invariants: known cadence and
// status, a positive custom interval for CUSTOM, and DueDate >=
// AnchorDate.
func (t *Task) Validate() error {
	if t.ClientID == "" {
		return Invalid(t.ID, FieldClientID, "client id is required")
	}
	if t.AnchorDate.IsZero() {
		return Invalid(t.ID, FieldAnchorDate, "anchor date is required")
	}
	if t.DueDate.IsZero() {
		return Invalid(t.ID, FieldDueDate, "due date is required")
	}
	if t.DueDate.Before(t.AnchorDate) {
		return Invalid(t.ID, FieldDueDate, "due date %s is before anchor date %s",
			FormatDate(t.DueDate), FormatDate(t.AnchorDate))
	}
	if err := ValidateCadence(t.ID, t.Cadence, t.CustomIntervalDays); err != nil {
		return err
	}
	if !t.Status.IsKnown() {
		return Invalid(t.ID, FieldStatus, "unknown status %q", t.Status)
	}
	if t.TotalAccruedSeconds < 0 {
		return Invalid(t.ID, "totalAccruedSeconds", "must be non-negative, got %d", t.TotalAccruedSeconds)
	}
	return nil
}

// ValidateCadence checks a cadence and its custom interval. CUSTOM
// requires a positive interval; the interval is ignored otherwise.
func ValidateCadence(taskID string, cadence Cadence, customIntervalDays int) error {
	if !cadence.IsKnown() {
		return &Error{
			Kind:    KindInvalidCadence,
			TaskID:  taskID,
			Field:   FieldCadence,
			Message: fmt.Sprintf("unknown cadence %q", cadence),
		}
	}
	if cadence == CadenceCustom && customIntervalDays <= 0 {
		return &Error{
			Kind:    KindInvalidCadence,
			TaskID:  taskID,
			Field:   FieldCustomIntervalDays,
			Message: fmt.Sprintf("CUSTOM cadence requires a positive interval, got %d", customIntervalDays),
		}
	}
	return nil
}

// TaskDraft is the input to task creation. Status, identifiers,
// accrual, and completion fields are owned by the engine and cannot
// be supplied.
type TaskDraft struct {
	ClientID           string    `cbor:"client_id"`
	Category           string    `cbor:"category"`
	AnchorDate         time.Time `cbor:"anchor_date"`
	DueDate            time.Time `cbor:"due_date"`
	Cadence            Cadence   `cbor:"cadence"`
	CustomIntervalDays int       `cbor:"custom_interval_days,omitempty"`
	AssignedToID       string    `cbor:"assigned_to_id,omitempty"`
	AutoSchedule       bool      `cbor:"auto_schedule"`
	EvidenceURL        string    `cbor:"evidence_url,omitempty"`
	Notes              string    `cbor:"notes,omitempty"`
}

// NewDate returns the calendar date year-month-day at midnight UTC.
func NewDate(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// DateOf truncates t to its calendar date in UTC.
func DateOf(t time.Time) time.Time {
	t = t.UTC()
	return NewDate(t.Year(), t.Month(), t.Day())
}

// DateLayout is the ISO-8601 calendar date layout.
const DateLayout = "2006-01-02"

// FormatDate renders a calendar date as YYYY-MM-DD.
func FormatDate(t time.Time) string {
	return t.UTC().Format(DateLayout)
}

// ParseDate parses a YYYY-MM-DD calendar date.
func ParseDate(value string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, value, time.UTC)
}
