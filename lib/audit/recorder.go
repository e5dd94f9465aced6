// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package audit

import (
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/bureau-foundation/opsdesk/lib/clock"
	"github.com/bureau-foundation/opsdesk/lib/schema/compliance"
)

// Writer appends audit entries. Implementations must never update or
// delete an entry once appended.
type Writer interface {
	AppendAudit(entry *compliance.AuditEntry) error
}

// Event describes one mutating request against one task.
type Event struct {
	TaskID  string
	ActorID string
	Action  compliance.AuditAction

	// Changes lists field changes for UPDATED events. Ignored for
	// CREATED and COMPLETED.
	Changes []compliance.FieldChange

	// Summary is the human-readable description stored as the new
	// value of a CREATED or COMPLETED entry.
	Summary string
}

// Recorder converts events into audit entries.
type Recorder struct {
	clock clock.Clock
	newID func() string
}

// NewRecorder returns a Recorder that stamps entries with c and
// assigns random UUIDs.
func NewRecorder(c clock.Clock) *Recorder {
	return &Recorder{
		clock: c,
		newID: func() string { return uuid.NewString() },
	}
}

// Record writes the entries for event to w and returns them. An
// UPDATED event with no effective changes writes nothing and returns
// an empty slice.
func (r *Recorder) Record(w Writer, event Event) ([]compliance.AuditEntry, error) {
	if event.TaskID == "" {
		return nil, fmt.Errorf("audit: task id is required")
	}

	timestamp := r.clock.Now().UTC()
	var entries []compliance.AuditEntry

	switch event.Action {
	case compliance.AuditUpdated:
		for _, change := range event.Changes {
			oldValue := FormatValue(change.Old)
			newValue := FormatValue(change.New)
			if equalValues(oldValue, newValue) {
				continue
			}
			field := change.Field
			entries = append(entries, compliance.AuditEntry{
				ID:        r.newID(),
				TaskID:    event.TaskID,
				Action:    compliance.AuditUpdated,
				Field:     &field,
				OldValue:  oldValue,
				NewValue:  newValue,
				ActorID:   event.ActorID,
				Timestamp: timestamp,
			})
		}
	case compliance.AuditCreated, compliance.AuditCompleted:
		entries = append(entries, compliance.AuditEntry{
			ID:        r.newID(),
			TaskID:    event.TaskID,
			Action:    event.Action,
			NewValue:  FormatValue(event.Summary),
			ActorID:   event.ActorID,
			Timestamp: timestamp,
		})
	default:
		return nil, fmt.Errorf("audit: unknown action %q", event.Action)
	}

	for i := range entries {
		if err := w.AppendAudit(&entries[i]); err != nil {
			return nil, fmt.Errorf("audit: appending %s entry for task %s: %w", entries[i].Action, event.TaskID, err)
		}
	}
	return entries, nil
}

// FormatValue serializes a field value for storage in an audit entry.
// Returns nil for values that should be recorded as absent.
func FormatValue(value any) *string {
	var text string
	switch typed := value.(type) {
	case nil:
		return nil
	case string:
		text = typed
	case *string:
		if typed == nil {
			return nil
		}
		text = *typed
	case compliance.Cadence:
		text = string(typed)
	case compliance.Status:
		text = string(typed)
	case bool:
		text = strconv.FormatBool(typed)
	case int:
		text = strconv.Itoa(typed)
	case int64:
		text = strconv.FormatInt(typed, 10)
	case time.Time:
		if typed.IsZero() {
			return nil
		}
		text = formatTime(typed)
	case *time.Time:
		if typed == nil || typed.IsZero() {
			return nil
		}
		text = formatTime(*typed)
	default:
		text = fmt.Sprint(typed)
	}
	if text == "" {
		return nil
	}
	return &text
}

// formatTime renders calendar dates (midnight UTC) as YYYY-MM-DD and
// anything else as RFC 3339 with nanoseconds.
func formatTime(t time.Time) string {
	t = t.UTC()
	if t.Equal(compliance.DateOf(t)) {
		return compliance.FormatDate(t)
	}
	return t.Format(time.RFC3339Nano)
}

func equalValues(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// CreatedSummary is the summary for a task created directly by a
// caller.
func CreatedSummary(task *compliance.Task) string {
	return fmt.Sprintf("Created %s %s task for client %s, anchored %s, due %s",
		task.Cadence, task.Category, task.ClientID,
		compliance.FormatDate(task.AnchorDate), compliance.FormatDate(task.DueDate))
}

// SuccessorSummary is the summary for a task auto-scheduled by the
// completion of predecessorID.
func SuccessorSummary(predecessorID string) string {
	return "Auto-scheduled from completed task " + predecessorID
}

// CompletedSummary is the summary for a completion.
func CompletedSummary(actorID string) string {
	return "Completed by " + actorID
}
