// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package cadence computes recurrence dates for compliance tasks.
//
// A task's anchor date is the date its work nominally covers; its due
// date is the deadline. Recurrence always chains from the anchor:
//
//	next anchor = NextAnchorDate(cadence, customDays, current anchor)
//	next due    = DueDateFromAnchor(next anchor)
//
// Chaining from the due date instead would push the schedule forward
// by the grace window on every cycle.
//
// Calendar-month arithmetic clamps to the last valid day of the target
// month: Jan 31 + 1 month is Feb 29 (leap year) or Feb 28, never
// Mar 2. Each call clamps relative to the anchor it is given, so a
// chain that was clamped once stays on the clamped day.
//
// All dates are calendar dates in UTC.
package cadence
