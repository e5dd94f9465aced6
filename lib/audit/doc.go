// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package audit records the append-only history of compliance tasks.
//
// A [Recorder] turns one mutation into audit entries:
//
//   - UPDATED: one entry per changed field, with old and new values
//     serialized to strings. Fields whose serialized values are equal
//     are skipped, and an update that changes nothing writes nothing.
//   - CREATED and COMPLETED: exactly one entry with no field and a
//     human-readable summary as the new value.
//
// Every entry produced by one Record call shares a single timestamp
// and actor, so the log reads as "this request changed these fields"
// rather than a series of unrelated writes. The recorder writes
// through a [Writer] supplied by the caller, which is normally the
// store transaction that also carries the task change: the entries
// commit or roll back together with the mutation they describe.
//
// Values are serialized by [FormatValue]: calendar dates as
// YYYY-MM-DD, other times as RFC 3339, booleans as "true"/"false",
// and nil or empty values as absence.
package audit
