// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import "time"

// Clock abstracts the two time operations the compliance engine
// performs: reading the current instant and waiting for a deadline.
// Production code injects Real(); tests inject Fake() and move time
// explicitly with Advance.
//
// Anything that stamps a record (completedAt, timer start and stop,
// audit timestamps) or sleeps until a scheduled sweep must take a
// Clock rather than calling the time package directly.
type Clock interface {
	// Now returns the current time. The real implementation carries
	// a monotonic reading, so durations between two Now values taken
	// in the same process are immune to wall-clock steps.
	Now() time.Time

	// After returns a channel that receives the current time once d
	// has elapsed. If d <= 0 the channel receives immediately.
	After(d time.Duration) <-chan time.Time
}

// Today returns the calendar date of now in UTC, truncated to
// midnight. Due-date comparisons are made at day granularity.
func Today(c Clock) time.Time {
	now := c.Now().UTC()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}
