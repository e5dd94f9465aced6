// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package keylock provides per-key mutual exclusion.
//
// The compliance engine must serialize some operations on the same
// task (closing a timer session, completing a task) while leaving
// operations on different tasks fully independent. A Set hands out one
// mutex per key on demand and forgets it once no goroutine holds or
// waits for it, so memory stays proportional to the number of keys
// currently in use rather than the number ever seen.
package keylock

import (
	"context"
	"sync"
)

// Set is a collection of per-key locks. The zero value is ready to
// use. A Set must not be copied after first use.
type Set struct {
	mu      sync.Mutex
	entries map[string]*entry
}

type entry struct {
	// token is a one-slot semaphore: holding the lock means having
	// taken the value out of the channel. A channel (rather than a
	// sync.Mutex) lets Lock give up when its context is cancelled.
	token chan struct{}

	// references counts holders plus waiters. Guarded by Set.mu.
	references int
}

// Lock acquires the lock for key, blocking until it is available or
// ctx is done. On success it returns the function that releases the
// lock; call it exactly once.
func (s *Set) Lock(ctx context.Context, key string) (unlock func(), err error) {
	current := s.acquire(key)

	select {
	case <-current.token:
	case <-ctx.Done():
		s.release(key, current)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			current.token <- struct{}{}
			s.release(key, current)
		})
	}, nil
}

// Held returns the number of keys with at least one holder or waiter.
// Intended for tests and diagnostics.
func (s *Set) Held() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

func (s *Set) acquire(key string) *entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.entries == nil {
		s.entries = make(map[string]*entry)
	}
	current, exists := s.entries[key]
	if !exists {
		current = &entry{token: make(chan struct{}, 1)}
		current.token <- struct{}{}
		s.entries[key] = current
	}
	current.references++
	return current
}

func (s *Set) release(key string, current *entry) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current.references--
	if current.references == 0 {
		delete(s.entries, key)
	}
}
