// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock provides an injectable time source.
//
// Every timestamp the compliance engine persists comes from a Clock:
// audit entry times, timer session start and end, completion times.
// The overdue sweep also waits on the Clock between scheduled runs.
// Real() wraps the time package; Fake() is a deterministic clock for
// tests:
//
//	c := clock.Fake(time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC))
//	tracker := timer.NewTracker(store, locks, c, logger)
//	tracker.Start(ctx, taskID, "alice")
//	c.Advance(600 * time.Second)
//	tracker.Stop(ctx, taskID, timer.StopOptions{})
//
// Goroutines that block in After register a waiter. Tests call
// WaitForTimers before Advance so the advance cannot overtake the
// registration.
package clock
