// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package task

import (
	"time"

	"github.com/bureau-foundation/opsdesk/lib/clock"
	"github.com/bureau-foundation/opsdesk/lib/schema/compliance"
)

// Response types for decoding CBOR responses from the compliance
// service socket. These mirror the types defined in the service's
// package main, which cannot be imported. The CBOR codec falls back to
// json tags when cbor tags are absent, so the json tags must match
// the service's encoding.

// closedSession is the result of stopping a timer.
type closedSession struct {
	Session         compliance.TimerSession `json:"session"`
	DurationSeconds int64                   `json:"duration_seconds"`
	NewTotal        int64                   `json:"new_total"`
}

// completeResult is the "complete" response.
type completeResult struct {
	Task          *compliance.Task `json:"task"`
	Successor     *compliance.Task `json:"successor,omitempty"`
	Warning       string           `json:"warning,omitempty"`
	ClosedSession *closedSession   `json:"closed_session,omitempty"`
}

// showResult is the "show" response.
type showResult struct {
	Task     *compliance.Task          `json:"task"`
	Sessions []compliance.TimerSession `json:"sessions"`
}

// deleteResult is the "delete" response.
type deleteResult struct {
	TaskID  string `json:"task_id"`
	Deleted bool   `json:"deleted"`
}

// today is the UTC calendar date the service also judges overdue
// tasks by.
func today() time.Time {
	return clock.Today(clock.Real())
}
