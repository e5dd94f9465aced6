// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"strings"

	"github.com/bureau-foundation/opsdesk/lib/overdue"
	"github.com/bureau-foundation/opsdesk/lib/schema/compliance"
	"github.com/bureau-foundation/opsdesk/lib/service"
	"github.com/bureau-foundation/opsdesk/lib/taskstore"
)

// showResponse is returned by the "show" action.
type showResponse struct {
	Task     *compliance.Task          `json:"task"`
	Sessions []compliance.TimerSession `json:"sessions"`
}

// listRequest is the body of the "list" action. Every field is an
// optional filter.
type listRequest struct {
	ClientID     string   `cbor:"client_id,omitempty"`
	AssignedToID string   `cbor:"assigned_to_id,omitempty"`
	Category     string   `cbor:"category,omitempty"`
	Statuses     []string `cbor:"statuses,omitempty"`
	DueBefore    string   `cbor:"due_before,omitempty"`
	DueOnOrAfter string   `cbor:"due_on_or_after,omitempty"`
	Limit        int      `cbor:"limit,omitempty"`
}

// overdueRequest is the body of the "overdue" action. With Notify set
// the scan also sends reminders, which requires a managing role.
type overdueRequest struct {
	Notify bool `cbor:"notify,omitempty"`
}

// overdueEntry pairs an overdue task with how late it is.
type overdueEntry struct {
	Task        compliance.Task `json:"task"`
	DaysOverdue int             `json:"days_overdue"`
}

// overdueResponse is returned by the "overdue" action.
type overdueResponse struct {
	Today    string         `json:"today"`
	Notified bool           `json:"notified"`
	Tasks    []overdueEntry `json:"tasks"`
}

// handleShow returns one task with its timer sessions.
func (cs *ComplianceService) handleShow(ctx context.Context, caller service.Caller, raw []byte) (any, error) {
	var request taskRequest
	if err := decodeRequest(raw, &request); err != nil {
		return nil, err
	}
	if err := request.validate(); err != nil {
		return nil, err
	}

	task, err := cs.lifecycle.Get(ctx, request.TaskID)
	if err != nil {
		return nil, err
	}
	sessions, err := cs.timers.Sessions(ctx, request.TaskID)
	if err != nil {
		return nil, err
	}
	if sessions == nil {
		sessions = []compliance.TimerSession{}
	}
	return showResponse{Task: task, Sessions: sessions}, nil
}

// handleList returns tasks matching the filter, ordered by due date.
func (cs *ComplianceService) handleList(ctx context.Context, caller service.Caller, raw []byte) (any, error) {
	var request listRequest
	if err := decodeRequest(raw, &request); err != nil {
		return nil, err
	}

	filter := taskstore.Filter{
		ClientID:     request.ClientID,
		AssignedToID: request.AssignedToID,
		Category:     request.Category,
		Limit:        request.Limit,
	}
	for _, value := range request.Statuses {
		status := compliance.Status(strings.ToUpper(strings.TrimSpace(value)))
		if !status.IsKnown() {
			return nil, compliance.Invalid("", compliance.FieldStatus, "unknown status %q", value)
		}
		filter.Statuses = append(filter.Statuses, status)
	}
	if request.DueBefore != "" {
		date, err := parseDate("", "dueBefore", request.DueBefore)
		if err != nil {
			return nil, err
		}
		filter.DueBefore = date
	}
	if request.DueOnOrAfter != "" {
		date, err := parseDate("", "dueOnOrAfter", request.DueOnOrAfter)
		if err != nil {
			return nil, err
		}
		filter.DueOnOrAfter = date
	}
	if request.Limit < 0 {
		return nil, compliance.Invalid("", "limit", "must be non-negative, got %d", request.Limit)
	}

	tasks, err := cs.lifecycle.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	if tasks == nil {
		tasks = []compliance.Task{}
	}
	return tasks, nil
}

// handleHistory returns a task's audit trail, including for deleted
// tasks.
func (cs *ComplianceService) handleHistory(ctx context.Context, caller service.Caller, raw []byte) (any, error) {
	var request taskRequest
	if err := decodeRequest(raw, &request); err != nil {
		return nil, err
	}
	if err := request.validate(); err != nil {
		return nil, err
	}

	entries, err := cs.lifecycle.History(ctx, request.TaskID)
	if err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []compliance.AuditEntry{}
	}
	return entries, nil
}

// handleChain returns the recurrence chain containing the task.
func (cs *ComplianceService) handleChain(ctx context.Context, caller service.Caller, raw []byte) (any, error) {
	var request taskRequest
	if err := decodeRequest(raw, &request); err != nil {
		return nil, err
	}
	if err := request.validate(); err != nil {
		return nil, err
	}
	return cs.lifecycle.Chain(ctx, request.TaskID)
}

// handleOverdue lists overdue tasks, optionally sending reminders for
// them as the scheduled sweep would.
func (cs *ComplianceService) handleOverdue(ctx context.Context, caller service.Caller, raw []byte) (any, error) {
	var request overdueRequest
	if err := decodeRequest(raw, &request); err != nil {
		return nil, err
	}
	if request.Notify && !caller.Role.CanManage() {
		return nil, service.Errorf(service.KindForbidden,
			"role %s may not send overdue reminders", caller.Role)
	}

	var report *overdue.Report
	var err error
	if request.Notify {
		report, err = cs.sweeper.Sweep(ctx)
	} else {
		report, err = cs.sweeper.Scan(ctx)
	}
	if err != nil {
		return nil, err
	}

	response := overdueResponse{
		Today:    compliance.FormatDate(report.Today),
		Notified: request.Notify,
		Tasks:    make([]overdueEntry, 0, len(report.Tasks)),
	}
	for i := range report.Tasks {
		response.Tasks = append(response.Tasks, overdueEntry{
			Task:        report.Tasks[i],
			DaysOverdue: overdue.DaysOverdue(&report.Tasks[i], report.Today),
		})
	}
	return response, nil
}
