// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"strings"
	"time"

	"github.com/bureau-foundation/opsdesk/lib/lifecycle"
	"github.com/bureau-foundation/opsdesk/lib/schema/compliance"
	"github.com/bureau-foundation/opsdesk/lib/service"
)

// --- Request and response types ---

// Dates travel as YYYY-MM-DD strings. Cadence and status names are
// case-insensitive on the wire.

// createRequest is the body of the "create" action. DueDate defaults
// to the anchor date plus the configured grace window.
type createRequest struct {
	ClientID           string `cbor:"client_id"`
	Category           string `cbor:"category"`
	AnchorDate         string `cbor:"anchor_date"`
	DueDate            string `cbor:"due_date,omitempty"`
	Cadence            string `cbor:"cadence"`
	CustomIntervalDays int    `cbor:"custom_interval_days,omitempty"`
	AssignedToID       string `cbor:"assigned_to_id,omitempty"`
	AutoSchedule       bool   `cbor:"auto_schedule"`
	EvidenceURL        string `cbor:"evidence_url,omitempty"`
	Notes              string `cbor:"notes,omitempty"`
}

// updateRequest is the body of the "update" action. Absent fields are
// left unchanged; an empty assigned_to_id clears the assignment.
type updateRequest struct {
	TaskID             string  `cbor:"task_id"`
	Category           *string `cbor:"category,omitempty"`
	AnchorDate         *string `cbor:"anchor_date,omitempty"`
	DueDate            *string `cbor:"due_date,omitempty"`
	Cadence            *string `cbor:"cadence,omitempty"`
	CustomIntervalDays *int    `cbor:"custom_interval_days,omitempty"`
	Status             *string `cbor:"status,omitempty"`
	AssignedToID       *string `cbor:"assigned_to_id,omitempty"`
	AutoSchedule       *bool   `cbor:"auto_schedule,omitempty"`
	EvidenceURL        *string `cbor:"evidence_url,omitempty"`
	Notes              *string `cbor:"notes,omitempty"`
}

// completeRequest is the body of the "complete" action.
type completeRequest struct {
	TaskID       string  `cbor:"task_id"`
	EvidenceURL  *string `cbor:"evidence_url,omitempty"`
	Notes        *string `cbor:"notes,omitempty"`
	AutoSchedule *bool   `cbor:"auto_schedule,omitempty"`
}

// cancelRequest is the body of the "cancel" action.
type cancelRequest struct {
	TaskID string `cbor:"task_id"`
	Reason string `cbor:"reason,omitempty"`
}

// completeResponse carries the successor warning into the response
// envelope.
type completeResponse lifecycle.CompleteResult

func (r *completeResponse) ResponseWarning() string { return r.Warning }

// deleteResponse is returned by the "delete" action.
type deleteResponse struct {
	TaskID  string `json:"task_id"`
	Deleted bool   `json:"deleted"`
}

// --- Field parsing ---

func parseDate(taskID, field, value string) (time.Time, error) {
	date, err := compliance.ParseDate(strings.TrimSpace(value))
	if err != nil {
		return time.Time{}, compliance.Invalid(taskID, field, "expected YYYY-MM-DD, got %q", value)
	}
	return date, nil
}

func parseOptionalDate(taskID, field string, value *string) (*time.Time, error) {
	if value == nil {
		return nil, nil
	}
	date, err := parseDate(taskID, field, *value)
	if err != nil {
		return nil, err
	}
	return &date, nil
}

func parseCadence(value string) compliance.Cadence {
	return compliance.Cadence(strings.ToUpper(strings.TrimSpace(value)))
}

// patch converts the request into a typed patch.
func (r *updateRequest) patch() (compliance.TaskPatch, error) {
	patch := compliance.TaskPatch{
		Category:           r.Category,
		CustomIntervalDays: r.CustomIntervalDays,
		AssignedToID:       r.AssignedToID,
		AutoSchedule:       r.AutoSchedule,
		EvidenceURL:        r.EvidenceURL,
		Notes:              r.Notes,
	}

	var err error
	if patch.AnchorDate, err = parseOptionalDate(r.TaskID, compliance.FieldAnchorDate, r.AnchorDate); err != nil {
		return patch, err
	}
	if patch.DueDate, err = parseOptionalDate(r.TaskID, compliance.FieldDueDate, r.DueDate); err != nil {
		return patch, err
	}
	if r.Cadence != nil {
		value := parseCadence(*r.Cadence)
		patch.Cadence = &value
	}
	if r.Status != nil {
		value := compliance.Status(strings.ToUpper(strings.TrimSpace(*r.Status)))
		patch.Status = &value
	}
	return patch, nil
}

// --- Mutation handlers ---

// handleCreate stores a new SCHEDULED task.
func (cs *ComplianceService) handleCreate(ctx context.Context, caller service.Caller, raw []byte) (any, error) {
	var request createRequest
	if err := decodeRequest(raw, &request); err != nil {
		return nil, err
	}

	if strings.TrimSpace(request.AnchorDate) == "" {
		return nil, compliance.Invalid("", compliance.FieldAnchorDate, "anchor date is required")
	}
	anchor, err := parseDate("", compliance.FieldAnchorDate, request.AnchorDate)
	if err != nil {
		return nil, err
	}
	due := cs.scheduler.DueDateFromAnchor(anchor)
	if strings.TrimSpace(request.DueDate) != "" {
		if due, err = parseDate("", compliance.FieldDueDate, request.DueDate); err != nil {
			return nil, err
		}
	}

	return cs.lifecycle.Create(ctx, caller.Actor, compliance.TaskDraft{
		ClientID:           request.ClientID,
		Category:           request.Category,
		AnchorDate:         anchor,
		DueDate:            due,
		Cadence:            parseCadence(request.Cadence),
		CustomIntervalDays: request.CustomIntervalDays,
		AssignedToID:       request.AssignedToID,
		AutoSchedule:       request.AutoSchedule,
		EvidenceURL:        request.EvidenceURL,
		Notes:              request.Notes,
	})
}

// handleUpdate applies a partial update.
func (cs *ComplianceService) handleUpdate(ctx context.Context, caller service.Caller, raw []byte) (any, error) {
	var request updateRequest
	if err := decodeRequest(raw, &request); err != nil {
		return nil, err
	}
	if err := (taskRequest{TaskID: request.TaskID}).validate(); err != nil {
		return nil, err
	}

	patch, err := request.patch()
	if err != nil {
		return nil, err
	}
	return cs.lifecycle.Update(ctx, request.TaskID, caller.Actor, patch)
}

// handleComplete completes a task and, when it recurs, schedules its
// successor. A failed successor is reported in the warning field of
// an otherwise successful response.
func (cs *ComplianceService) handleComplete(ctx context.Context, caller service.Caller, raw []byte) (any, error) {
	var request completeRequest
	if err := decodeRequest(raw, &request); err != nil {
		return nil, err
	}
	if err := (taskRequest{TaskID: request.TaskID}).validate(); err != nil {
		return nil, err
	}

	result, err := cs.lifecycle.Complete(ctx, request.TaskID, caller.Actor, lifecycle.CompleteOptions{
		EvidenceURL:  request.EvidenceURL,
		Notes:        request.Notes,
		AutoSchedule: request.AutoSchedule,
	})
	if err != nil {
		return nil, err
	}
	return (*completeResponse)(result), nil
}

// handleCancel moves a task to CANCELLED.
func (cs *ComplianceService) handleCancel(ctx context.Context, caller service.Caller, raw []byte) (any, error) {
	var request cancelRequest
	if err := decodeRequest(raw, &request); err != nil {
		return nil, err
	}
	if err := (taskRequest{TaskID: request.TaskID}).validate(); err != nil {
		return nil, err
	}
	return cs.lifecycle.Cancel(ctx, request.TaskID, caller.Actor, strings.TrimSpace(request.Reason))
}

// handleDelete removes a task. Its audit history stays queryable.
func (cs *ComplianceService) handleDelete(ctx context.Context, caller service.Caller, raw []byte) (any, error) {
	var request taskRequest
	if err := decodeRequest(raw, &request); err != nil {
		return nil, err
	}
	if err := request.validate(); err != nil {
		return nil, err
	}
	if err := cs.lifecycle.Delete(ctx, request.TaskID, caller.Actor); err != nil {
		return nil, err
	}
	return deleteResponse{TaskID: request.TaskID, Deleted: true}, nil
}
