// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"time"

	"github.com/bureau-foundation/opsdesk/lib/codec"
	"github.com/bureau-foundation/opsdesk/lib/notify"
	"github.com/bureau-foundation/opsdesk/lib/schema/compliance"
	"github.com/bureau-foundation/opsdesk/lib/service"
	"github.com/bureau-foundation/opsdesk/lib/version"
)

// registerActions registers all socket API actions on the server.
//
// "status" is the only action that needs no identity. Every other
// action requires an actor and role and passes the per-actor throttle.
// View and timer actions are open to every role; actions that change
// a task's lifecycle require manager or admin.
func (cs *ComplianceService) registerActions(server *service.SocketServer) {
	server.SetGuard(cs.guard)
	server.SetClassifier(classifyError)

	server.Handle("status", cs.handleStatus)

	// Lifecycle mutations.
	server.HandleAuth("create", requireManage(cs.handleCreate))
	server.HandleAuth("update", requireManage(cs.handleUpdate))
	server.HandleAuth("complete", requireManage(cs.handleComplete))
	server.HandleAuth("cancel", requireManage(cs.handleCancel))
	server.HandleAuth("delete", requireManage(cs.handleDelete))

	// Queries.
	server.HandleAuth("show", cs.handleShow)
	server.HandleAuth("list", cs.handleList)
	server.HandleAuth("history", cs.handleHistory)
	server.HandleAuth("chain", cs.handleChain)
	server.HandleAuth("overdue", cs.handleOverdue)

	// Time tracking.
	server.HandleAuth("timer-start", cs.handleTimerStart)
	server.HandleAuth("timer-stop", cs.handleTimerStop)
	server.HandleAuth("timer-sessions", cs.handleTimerSessions)
}

// guard applies the per-actor sliding-window throttle.
func (cs *ComplianceService) guard(ctx context.Context, action string, caller service.Caller) error {
	if !cs.limiter.CheckAndConsume(caller.Actor, cs.throttleLimit, cs.throttleWindow) {
		return service.Errorf(service.KindThrottled,
			"actor %s exceeded %d requests per %s", caller.Actor, cs.throttleLimit, cs.throttleWindow)
	}
	return nil
}

// requireManage rejects callers whose role may not change tasks.
func requireManage(handler service.AuthActionFunc) service.AuthActionFunc {
	return func(ctx context.Context, caller service.Caller, raw []byte) (any, error) {
		if !caller.Role.CanManage() {
			return nil, service.Errorf(service.KindForbidden,
				"role %s may not manage compliance tasks", caller.Role)
		}
		return handler(ctx, caller, raw)
	}
}

// classifyError maps engine errors to their stable wire kind.
func classifyError(err error) string {
	return string(compliance.KindOf(err))
}

// decodeRequest unmarshals raw into request, reporting failures as
// invalid requests rather than storage errors.
func decodeRequest(raw []byte, request any) error {
	if err := codec.Unmarshal(raw, request); err != nil {
		return service.Errorf(service.KindInvalidRequest, "decoding request: %v", err)
	}
	return nil
}

// taskRequest is the body of every action that names a single task.
type taskRequest struct {
	TaskID string `cbor:"task_id"`
}

func (r taskRequest) validate() error {
	if r.TaskID == "" {
		return service.Errorf(service.KindInvalidRequest, "missing required field: task_id")
	}
	return nil
}

// statusResponse is the response to the "status" action.
type statusResponse struct {
	Version       string  `cbor:"version"`
	UptimeSeconds float64 `cbor:"uptime_seconds"`

	// NotificationsDropped counts events the notification queue
	// discarded because it was full.
	NotificationsDropped int64 `cbor:"notifications_dropped"`

	// LastSweep is when the overdue sweep last finished, if ever.
	LastSweep *time.Time `cbor:"last_sweep,omitempty"`
}

// handleStatus is a liveness check. It discloses no task data.
func (cs *ComplianceService) handleStatus(ctx context.Context, raw []byte) (any, error) {
	response := statusResponse{
		Version:       version.Info(),
		UptimeSeconds: cs.clock.Now().Sub(cs.startedAt).Seconds(),
	}
	if queue, ok := cs.notifier.(*notify.Queue); ok {
		response.NotificationsDropped = queue.Dropped()
	}
	if lastRun := cs.sweeper.LastRun(); !lastRun.IsZero() {
		response.LastSweep = &lastRun
	}
	return response, nil
}
