// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"math"
	"time"

	"github.com/bureau-foundation/opsdesk/lib/schema/compliance"
	"github.com/bureau-foundation/opsdesk/lib/service"
	"github.com/bureau-foundation/opsdesk/lib/timer"
)

// maxElapsedSeconds is the largest elapsed override a time.Duration
// can hold.
const maxElapsedSeconds = math.MaxInt64 / int64(time.Second)

// timerStopRequest is the body of the "timer-stop" action.
// ElapsedSeconds, when present, replaces the measured duration.
type timerStopRequest struct {
	TaskID         string `cbor:"task_id"`
	ElapsedSeconds *int64 `cbor:"elapsed_seconds,omitempty"`
}

// handleTimerStart opens a session for the caller, or returns the one
// already running on the task.
func (cs *ComplianceService) handleTimerStart(ctx context.Context, caller service.Caller, raw []byte) (any, error) {
	var request taskRequest
	if err := decodeRequest(raw, &request); err != nil {
		return nil, err
	}
	if err := request.validate(); err != nil {
		return nil, err
	}
	return cs.timers.Start(ctx, request.TaskID, caller.Actor)
}

// handleTimerStop closes the task's open session and returns the new
// accrued total.
func (cs *ComplianceService) handleTimerStop(ctx context.Context, caller service.Caller, raw []byte) (any, error) {
	var request timerStopRequest
	if err := decodeRequest(raw, &request); err != nil {
		return nil, err
	}
	if err := (taskRequest{TaskID: request.TaskID}).validate(); err != nil {
		return nil, err
	}

	var options timer.StopOptions
	if request.ElapsedSeconds != nil {
		if *request.ElapsedSeconds < 0 {
			return nil, compliance.Invalid(request.TaskID, "elapsedSeconds", "must be non-negative, got %d", *request.ElapsedSeconds)
		}
		if *request.ElapsedSeconds > maxElapsedSeconds {
			return nil, compliance.Invalid(request.TaskID, "elapsedSeconds", "must be at most %d, got %d", maxElapsedSeconds, *request.ElapsedSeconds)
		}
		elapsed := time.Duration(*request.ElapsedSeconds) * time.Second
		options.Elapsed = &elapsed
	}
	return cs.timers.Stop(ctx, request.TaskID, options)
}

// handleTimerSessions lists a task's sessions, oldest first.
func (cs *ComplianceService) handleTimerSessions(ctx context.Context, caller service.Caller, raw []byte) (any, error) {
	var request taskRequest
	if err := decodeRequest(raw, &request); err != nil {
		return nil, err
	}
	if err := request.validate(); err != nil {
		return nil, err
	}

	sessions, err := cs.timers.Sessions(ctx, request.TaskID)
	if err != nil {
		return nil, err
	}
	if sessions == nil {
		sessions = []compliance.TimerSession{}
	}
	return sessions, nil
}
