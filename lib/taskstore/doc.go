// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package taskstore persists compliance tasks, timer sessions, and the
// audit log in SQLite.
//
// All access goes through a [Tx]. [Store.Update] runs a function inside
// an IMMEDIATE transaction: every write a lifecycle operation makes
// (the task row, its audit entries, a session close, the accrual
// increment) commits together or not at all. [Store.View] runs a
// deferred read transaction for consistent multi-query reads.
//
// Three invariants are enforced by the schema itself rather than by
// callers:
//
//   - At most one open timer session per task: a partial UNIQUE index
//     on timer_sessions(task_id) WHERE end_time IS NULL. Inserting a
//     second open session fails with a SessionAlreadyOpen error.
//   - The audit log is append-only: triggers abort any UPDATE or
//     DELETE on audit_log.
//   - Accrued seconds never go negative and due dates never precede
//     anchor dates (CHECK constraints).
//
// Task writes are guarded by a row version. [Tx.UpdateTask] matches on
// the version the caller read and fails with [ErrConflict] if the row
// moved underneath it.
//
// Calendar dates are stored as YYYY-MM-DD text so they sort and
// compare lexically; instants are stored as Unix nanoseconds.
package taskstore
