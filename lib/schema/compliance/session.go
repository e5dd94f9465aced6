// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package compliance

import "time"

// TimerSession is one interval of tracked work against a task. It is
// created open (EndTime nil) and closed exactly once; a closed session
// is immutable. At most one session per task is open at any instant.
type TimerSession struct {
	ID        string     `json:"id"`
	TaskID    string     `json:"task_id"`
	UserID    string     `json:"user_id"`
	StartTime time.Time  `json:"start_time"`
	EndTime   *time.Time `json:"end_time,omitempty"`

	// DurationSeconds is set when the session closes. Never less
	// than one.
	DurationSeconds *int64 `json:"duration_seconds,omitempty"`
}

// IsOpen reports whether the session is still accruing.
func (s *TimerSession) IsOpen() bool { return s.EndTime == nil }

// AuditAction classifies an audit entry.
type AuditAction string

const (
	AuditCreated   AuditAction = "CREATED"
	AuditUpdated   AuditAction = "UPDATED"
	AuditCompleted AuditAction = "COMPLETED"
)

// AuditEntry is one append-only record in a task's history. UPDATED
// entries carry one changed field each; CREATED and COMPLETED entries
// have no Field and a human-readable summary in NewValue.
//
// Entries outlive their task: deleting a task leaves its history
// queryable by the deleted task's ID.
type AuditEntry struct {
	ID string `json:"id"`

	// Sequence is a store-assigned, strictly increasing number that
	// orders entries written within the same timestamp.
	Sequence int64 `json:"sequence"`

	TaskID    string      `json:"task_id"`
	Action    AuditAction `json:"action"`
	Field     *string     `json:"field,omitempty"`
	OldValue  *string     `json:"old_value,omitempty"`
	NewValue  *string     `json:"new_value,omitempty"`
	ActorID   string      `json:"actor_id"`
	Timestamp time.Time   `json:"timestamp"`
}
