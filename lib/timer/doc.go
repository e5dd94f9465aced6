// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package timer tracks work time against compliance tasks.
//
// A [Tracker] opens and closes timer sessions. At most one session per
// task is open at a time; starting a timer on a task that already has
// one returns the open session unchanged, so a caller retrying after a
// lost response gets the same session back instead of an error.
//
// Stopping closes the open session and folds its duration into the
// task's accrued total in the same transaction. Durations are whole
// seconds, clamped to a minimum of one so a very short session is
// never silently discarded and clock skew can never subtract time. A
// caller that tracked time offline may supply the elapsed duration
// explicitly; it replaces the computed delta and is clamped the same
// way.
//
// Stop and start hold a per-task lock from a [keylock.Set] shared with
// the lifecycle controller, so operations on one task are serialized
// while operations on different tasks proceed in parallel.
package timer
