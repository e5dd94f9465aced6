// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package compliance defines the records governed by the compliance
// lifecycle engine: recurring tasks (access reviews and compliance
// audits), the timer sessions that accrue work time against them, and
// the append-only audit entries that record every change.
//
// The package also owns the engine's error taxonomy. Every expected
// failure is a *Error wrapping one of the sentinel kinds (ErrNotFound,
// ErrTaskAlreadyTerminal, ErrInvalidCadence, ErrSessionAlreadyOpen,
// ErrNoOpenSession, ErrValidation, ErrStorage), so callers branch with
// errors.Is and render the task id, field, and status the error
// carries.
//
// Dates (anchor and due) are calendar dates represented as time.Time
// values at midnight UTC. Use NewDate or DateOf to construct them and
// FormatDate to render them.
//
// This package depends on no other opsdesk packages.
package compliance
