// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package notify delivers task lifecycle events (creation, edits,
// completion, cancellation, deletion, overdue reminders, failed
// recurrences, timer stops) to whoever sends reminders.
//
// Delivery is fire-and-forget: a [Dispatcher] never returns an error
// and never blocks the caller for long. A lost notification is an
// operational nuisance, while a lifecycle operation that fails or
// stalls because the message bus is down would be a correctness
// problem. Events are dispatched only after the transaction that
// produced them has committed.
//
// [NATSDispatcher] publishes JSON-encoded events on a subject per
// event kind. [Queue] wraps any dispatcher with a bounded buffer and a
// single worker goroutine so a slow bus cannot stall request handling;
// when the buffer is full, events are dropped and counted.
package notify
