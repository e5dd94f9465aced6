// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package compliance

import "time"

// Field names as they appear in audit entries and error reports.
const (
	FieldClientID           = "clientId"
	FieldCategory           = "category"
	FieldAnchorDate         = "anchorDate"
	FieldDueDate            = "dueDate"
	FieldCadence            = "cadence"
	FieldCustomIntervalDays = "customIntervalDays"
	FieldStatus             = "status"
	FieldAssignedToID       = "assignedToId"
	FieldAutoSchedule       = "autoSchedule"
	FieldEvidenceURL        = "evidenceUrl"
	FieldNotes              = "notes"
)

// FieldChange is one field's before and after value within a single
// mutation. Old and New hold the typed Go values (string, time.Time,
// bool, int, Cadence, Status); the audit recorder serializes them.
type FieldChange struct {
	Field string
	Old   any
	New   any
}

// TaskPatch is the closed set of fields a caller may change through an
// update. A nil slot means "not present in the request". AssignedToID
// set to the empty string clears the assignment.
//
// Status accepts only IN_PROGRESS and CANCELLED here; COMPLETED is
// reachable only through completion, which records who completed the
// task and may spawn a successor.
type TaskPatch struct {
	Category           *string    `cbor:"category,omitempty"`
	AnchorDate         *time.Time `cbor:"anchor_date,omitempty"`
	DueDate            *time.Time `cbor:"due_date,omitempty"`
	Cadence            *Cadence   `cbor:"cadence,omitempty"`
	CustomIntervalDays *int       `cbor:"custom_interval_days,omitempty"`
	Status             *Status    `cbor:"status,omitempty"`
	AssignedToID       *string    `cbor:"assigned_to_id,omitempty"`
	AutoSchedule       *bool      `cbor:"auto_schedule,omitempty"`
	EvidenceURL        *string    `cbor:"evidence_url,omitempty"`
	Notes              *string    `cbor:"notes,omitempty"`
}

// IsAnnotationField reports whether field may still change after the
// task reached a terminal status.
func IsAnnotationField(field string) bool {
	return field == FieldNotes || field == FieldEvidenceURL
}

// Diff returns the changes the patch would make to task, in the fixed
// field order below. Slots that are nil or equal to the stored value
// produce no change. Dates are compared at day granularity.
func (p *TaskPatch) Diff(task *Task) []FieldChange {
	var changes []FieldChange
	add := func(field string, old, new any) {
		changes = append(changes, FieldChange{Field: field, Old: old, New: new})
	}

	if p.Category != nil && *p.Category != task.Category {
		add(FieldCategory, task.Category, *p.Category)
	}
	if p.AnchorDate != nil {
		date := DateOf(*p.AnchorDate)
		if !date.Equal(task.AnchorDate) {
			add(FieldAnchorDate, task.AnchorDate, date)
		}
	}
	if p.DueDate != nil {
		date := DateOf(*p.DueDate)
		if !date.Equal(task.DueDate) {
			add(FieldDueDate, task.DueDate, date)
		}
	}
	if p.Cadence != nil && *p.Cadence != task.Cadence {
		add(FieldCadence, task.Cadence, *p.Cadence)
	}
	if p.CustomIntervalDays != nil && *p.CustomIntervalDays != task.CustomIntervalDays {
		add(FieldCustomIntervalDays, optionalInt(task.CustomIntervalDays), optionalInt(*p.CustomIntervalDays))
	}
	if p.Status != nil && *p.Status != task.Status {
		add(FieldStatus, task.Status, *p.Status)
	}
	if p.AssignedToID != nil && *p.AssignedToID != task.AssignedToID {
		add(FieldAssignedToID, optionalString(task.AssignedToID), optionalString(*p.AssignedToID))
	}
	if p.AutoSchedule != nil && *p.AutoSchedule != task.AutoSchedule {
		add(FieldAutoSchedule, task.AutoSchedule, *p.AutoSchedule)
	}
	if p.EvidenceURL != nil && *p.EvidenceURL != task.EvidenceURL {
		add(FieldEvidenceURL, optionalString(task.EvidenceURL), optionalString(*p.EvidenceURL))
	}
	if p.Notes != nil && *p.Notes != task.Notes {
		add(FieldNotes, optionalString(task.Notes), optionalString(*p.Notes))
	}
	return changes
}

// Apply writes every present slot of the patch into task. Call Diff
// first to learn what changes; Apply itself does no validation.
func (p *TaskPatch) Apply(task *Task) {
	if p.Category != nil {
		task.Category = *p.Category
	}
	if p.AnchorDate != nil {
		task.AnchorDate = DateOf(*p.AnchorDate)
	}
	if p.DueDate != nil {
		task.DueDate = DateOf(*p.DueDate)
	}
	if p.Cadence != nil {
		task.Cadence = *p.Cadence
	}
	if p.CustomIntervalDays != nil {
		task.CustomIntervalDays = *p.CustomIntervalDays
	}
	if p.Status != nil {
		task.Status = *p.Status
	}
	if p.AssignedToID != nil {
		task.AssignedToID = *p.AssignedToID
	}
	if p.AutoSchedule != nil {
		task.AutoSchedule = *p.AutoSchedule
	}
	if p.EvidenceURL != nil {
		task.EvidenceURL = *p.EvidenceURL
	}
	if p.Notes != nil {
		task.Notes = *p.Notes
	}
}

// optionalString maps the empty string to nil so cleared fields are
// logged as absent rather than as "".
func optionalString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func optionalInt(value int) any {
	if value == 0 {
		return nil
	}
	return value
}
