// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package throttle limits how often one caller may hit the compliance
// service.
//
// [Window] counts accepted requests per key over a sliding window: a
// request is accepted if fewer than limit requests from the same key
// were accepted in the preceding window. Rejected requests are not
// counted, so a caller that backs off recovers as soon as its oldest
// accepted request ages out.
package throttle

import (
	"sync"
	"time"

	"github.com/bureau-foundation/opsdesk/lib/clock"
)

// Limiter decides whether a keyed request may proceed. A true return
// from CheckAndConsume means the request was admitted and counted.
// Prune forgets keys idle for longer than window and returns how many
// keys are still tracked; the service calls it once per window.
type Limiter interface {
	CheckAndConsume(key string, limit int, window time.Duration) bool
	Prune(window time.Duration) int
}

// Window is an in-memory sliding-window Limiter.
type Window struct {
	clock clock.Clock

	mu      sync.Mutex
	history map[string][]time.Time
}

// NewWindow returns an empty limiter reading time from c.
func NewWindow(c clock.Clock) *Window {
	return &Window{clock: c, history: make(map[string][]time.Time)}
}

// CheckAndConsume admits the request if key has fewer than limit
// admitted requests in the last window. A limit of zero or less
// disables limiting.
func (w *Window) CheckAndConsume(key string, limit int, window time.Duration) bool {
	if limit <= 0 {
		return true
	}
	now := w.clock.Now()
	cutoff := now.Add(-window)

	w.mu.Lock()
	defer w.mu.Unlock()

	history := trimBefore(w.history[key], cutoff)
	if len(history) >= limit {
		w.history[key] = history
		return false
	}
	w.history[key] = append(history, now)
	return true
}

// Prune drops keys with no requests newer than window. Returns the
// number of keys that remain.
func (w *Window) Prune(window time.Duration) int {
	cutoff := w.clock.Now().Add(-window)

	w.mu.Lock()
	defer w.mu.Unlock()

	for key, history := range w.history {
		history = trimBefore(history, cutoff)
		if len(history) == 0 {
			delete(w.history, key)
			continue
		}
		w.history[key] = history
	}
	return len(w.history)
}

// trimBefore drops timestamps at or before cutoff. history is sorted
// ascending.
func trimBefore(history []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(history) && !history[i].After(cutoff) {
		i++
	}
	if i == 0 {
		return history
	}
	trimmed := make([]time.Time, len(history)-i)
	copy(trimmed, history[i:])
	return trimmed
}
