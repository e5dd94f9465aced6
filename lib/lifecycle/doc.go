// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package lifecycle is the compliance task state machine.
//
// A [Controller] owns every task mutation: creation, field updates,
// completion (with automatic scheduling of the next period's task),
// cancellation, and deletion. Each mutation runs as one store
// transaction that carries the task change and its audit entries
// together, under a per-task lock shared with the timer tracker.
//
//	SCHEDULED ──► IN_PROGRESS ──► COMPLETED
//	    │              │
//	    └──────────────┴────────► CANCELLED
//
// COMPLETED and CANCELLED are terminal. After that only notes and
// evidenceUrl may be edited; any other change fails with
// TaskAlreadyTerminal.
//
// Completion of a task with autoSchedule set creates a successor in a
// second transaction once the completion has committed. If that step
// fails the completion stands and the failure is reported as a
// warning on the result, never as an error for the whole call.
//
// Notifications are dispatched after commit and never awaited.
package lifecycle
