// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cron

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Schedule is a parsed cron expression.
type Schedule struct {
	expression  string
	minutes     bitset64
	hours       bitset64
	daysOfMonth bitset64
	months      bitset64
	daysOfWeek  bitset64
}

// bitset64 holds a set of small integers.
type bitset64 uint64

func (b bitset64) has(value int) bool { return b&(1<<uint(value)) != 0 }
func (b *bitset64) set(value int)     { *b |= 1 << uint(value) }

var shortcuts = map[string]string{
	"@hourly":  "0 * * * *",
	"@daily":   "0 0 * * *",
	"@weekly":  "0 0 * * 0",
	"@monthly": "0 0 1 * *",
}

// searchHorizon bounds Next. Four years covers every leap-year cycle,
// so an expression with no match inside it (Feb 30) never matches.
const searchHorizon = 4

// Parse parses a 5-field expression or one of the @ shortcuts.
func Parse(expression string) (Schedule, error) {
	trimmed := strings.TrimSpace(expression)
	if expanded, ok := shortcuts[trimmed]; ok {
		trimmed = expanded
	}
	fields := strings.Fields(trimmed)
	if len(fields) != 5 {
		return Schedule{}, fmt.Errorf("cron: expected 5 fields, got %d in %q", len(fields), expression)
	}

	schedule := Schedule{expression: strings.TrimSpace(expression)}
	targets := []struct {
		name    string
		minimum int
		maximum int
		bits    *bitset64
	}{
		{"minute", 0, 59, &schedule.minutes},
		{"hour", 0, 23, &schedule.hours},
		{"day-of-month", 1, 31, &schedule.daysOfMonth},
		{"month", 1, 12, &schedule.months},
		{"day-of-week", 0, 6, &schedule.daysOfWeek},
	}
	for i, target := range targets {
		bits, err := parseField(fields[i], target.minimum, target.maximum)
		if err != nil {
			return Schedule{}, fmt.Errorf("cron: %s field: %w", target.name, err)
		}
		*target.bits = bits
	}
	return schedule, nil
}

// MustParse is Parse for expressions known at compile time. Panics on
// error.
func MustParse(expression string) Schedule {
	schedule, err := Parse(expression)
	if err != nil {
		panic(err)
	}
	return schedule
}

// String returns the expression the schedule was parsed from.
func (s Schedule) String() string { return s.expression }

// Next returns the first matching minute strictly after t, in UTC.
// Day-of-month and day-of-week must both match; a wildcard in either
// matches every day.
func (s Schedule) Next(t time.Time) (time.Time, error) {
	candidate := t.UTC().Truncate(time.Minute).Add(time.Minute)
	limit := candidate.AddDate(searchHorizon, 0, 0)

	for candidate.Before(limit) {
		year, month, day := candidate.Date()
		switch {
		case !s.months.has(int(month)):
			candidate = time.Date(year, month+1, 1, 0, 0, 0, 0, time.UTC)
		case !s.daysOfMonth.has(day) || !s.daysOfWeek.has(int(candidate.Weekday())):
			candidate = time.Date(year, month, day+1, 0, 0, 0, 0, time.UTC)
		case !s.hours.has(candidate.Hour()):
			candidate = time.Date(year, month, day, candidate.Hour()+1, 0, 0, 0, time.UTC)
		case !s.minutes.has(candidate.Minute()):
			candidate = candidate.Add(time.Minute)
		default:
			return candidate, nil
		}
	}
	return time.Time{}, fmt.Errorf("cron: %q has no occurrence within %d years of %s",
		s.expression, searchHorizon, t.UTC().Format(time.RFC3339))
}

// Missed reports whether an occurrence fell in (last, now]. A sweeper
// that records its last run uses this after a restart to decide
// whether it slept through a scheduled run.
func (s Schedule) Missed(last, now time.Time) bool {
	if last.IsZero() {
		return false
	}
	next, err := s.Next(last)
	if err != nil {
		return false
	}
	return !next.After(now)
}

// parseField ORs together the comma-separated terms of one field.
func parseField(text string, minimum, maximum int) (bitset64, error) {
	var result bitset64
	for _, term := range strings.Split(text, ",") {
		bits, err := parseTerm(term, minimum, maximum)
		if err != nil {
			return 0, err
		}
		result |= bits
	}
	if result == 0 {
		return 0, fmt.Errorf("field %q produces empty set", text)
	}
	return result, nil
}

// parseTerm parses *, */N, V, V-V, or V-V/N.
func parseTerm(term string, minimum, maximum int) (bitset64, error) {
	span, stepText, stepped := strings.Cut(term, "/")
	step := 1
	if stepped {
		parsed, err := strconv.Atoi(stepText)
		if err != nil {
			return 0, fmt.Errorf("invalid step %q: %w", stepText, err)
		}
		if parsed <= 0 {
			return 0, fmt.Errorf("step must be positive, got %d", parsed)
		}
		step = parsed
	}

	start, end := minimum, maximum
	if span != "*" {
		startText, endText, isRange := strings.Cut(span, "-")
		var err error
		if start, err = strconv.Atoi(startText); err != nil {
			return 0, fmt.Errorf("invalid value %q: %w", startText, err)
		}
		end = start
		if isRange {
			if end, err = strconv.Atoi(endText); err != nil {
				return 0, fmt.Errorf("invalid range end %q: %w", endText, err)
			}
			if start > end {
				return 0, fmt.Errorf("range start %d > end %d", start, end)
			}
		}
	}
	if start < minimum || end > maximum {
		return 0, fmt.Errorf("value out of range [%d-%d]: got %d-%d", minimum, maximum, start, end)
	}

	var result bitset64
	for value := start; value <= end; value += step {
		result.set(value)
	}
	return result, nil
}
