// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cadence

import (
	"time"

	"github.com/bureau-foundation/opsdesk/lib/schema/compliance"
)

// DefaultGraceDays is the number of days between a task's anchor date
// and its due date under the current policy.
const DefaultGraceDays = 7

// Calculator computes successor dates under a grace window policy.
// The zero value uses DefaultGraceDays.
type Calculator struct {
	// GraceDays is added to an anchor date to produce the due date.
	// Zero or negative selects DefaultGraceDays.
	GraceDays int
}

// NextAnchorDate returns the anchor date one cadence period after
// current. CUSTOM requires customIntervalDays > 0 and fails with a
// compliance.ErrInvalidCadence error otherwise.
func (c Calculator) NextAnchorDate(cadence compliance.Cadence, customIntervalDays int, current time.Time) (time.Time, error) {
	if err := compliance.ValidateCadence("", cadence, customIntervalDays); err != nil {
		return time.Time{}, err
	}
	current = compliance.DateOf(current)

	switch cadence {
	case compliance.CadenceQuarterly:
		return AddMonths(current, 3), nil
	case compliance.CadenceSemiAnnual:
		return AddMonths(current, 6), nil
	case compliance.CadenceAnnual:
		return AddMonths(current, 12), nil
	default:
		return current.AddDate(0, 0, customIntervalDays), nil
	}
}

// DueDateFromAnchor returns the due date for a task anchored at
// anchor: anchor plus the grace window.
func (c Calculator) DueDateFromAnchor(anchor time.Time) time.Time {
	grace := c.GraceDays
	if grace <= 0 {
		grace = DefaultGraceDays
	}
	return compliance.DateOf(anchor).AddDate(0, 0, grace)
}

// NextAnchorDate is Calculator{}.NextAnchorDate.
func NextAnchorDate(cadence compliance.Cadence, customIntervalDays int, current time.Time) (time.Time, error) {
	return Calculator{}.NextAnchorDate(cadence, customIntervalDays, current)
}

// DueDateFromAnchor is Calculator{}.DueDateFromAnchor.
func DueDateFromAnchor(anchor time.Time) time.Time {
	return Calculator{}.DueDateFromAnchor(anchor)
}

// AddMonths adds months calendar months to date, clamping the day to
// the last day of the resulting month. time.AddDate normalizes
// overflow into the following month (Jan 31 + 1 month = Mar 2 or 3),
// which is never what a monthly schedule means.
func AddMonths(date time.Time, months int) time.Time {
	date = compliance.DateOf(date)

	// Month arithmetic on a zero-based month index keeps negative
	// offsets correct too.
	index := int(date.Month()) - 1 + months
	year := date.Year() + index/12
	index %= 12
	if index < 0 {
		index += 12
		year--
	}
	month := time.Month(index + 1)

	day := date.Day()
	if last := daysIn(year, month); day > last {
		day = last
	}
	return compliance.NewDate(year, month, day)
}

// daysIn returns the number of days in the given month. Day zero of
// the following month normalizes to the last day of this one.
func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
