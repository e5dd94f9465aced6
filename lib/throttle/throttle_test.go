// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package throttle

import (
	"sync"
	"testing"
	"time"

	"github.com/bureau-foundation/opsdesk/lib/clock"
)

var epoch = time.Date(2024, 1, 5, 12, 0, 0, 0, time.UTC)

func TestWindowSlides(t *testing.T) {
	fake := clock.Fake(epoch)
	limiter := NewWindow(fake)

	for i := range 3 {
		if !limiter.CheckAndConsume("alice", 3, time.Minute) {
			t.Fatalf("request %d rejected under limit", i)
		}
		fake.Advance(10 * time.Second)
	}
	if limiter.CheckAndConsume("alice", 3, time.Minute) {
		t.Fatal("fourth request within window admitted")
	}
	if !limiter.CheckAndConsume("bob", 3, time.Minute) {
		t.Fatal("independent key rejected")
	}

	// First request was at +0s; now +30s. Move to +60s so it ages out.
	fake.Advance(30 * time.Second)
	if !limiter.CheckAndConsume("alice", 3, time.Minute) {
		t.Fatal("request rejected after oldest aged out")
	}
	if limiter.CheckAndConsume("alice", 3, time.Minute) {
		t.Fatal("window refilled more than one slot")
	}
}

func TestWindowRejectedRequestsNotCounted(t *testing.T) {
	fake := clock.Fake(epoch)
	limiter := NewWindow(fake)

	if !limiter.CheckAndConsume("k", 1, time.Minute) {
		t.Fatal("first request rejected")
	}
	for range 10 {
		fake.Advance(time.Second)
		limiter.CheckAndConsume("k", 1, time.Minute)
	}
	fake.Advance(50 * time.Second)
	if !limiter.CheckAndConsume("k", 1, time.Minute) {
		t.Fatal("rejected retries extended the window")
	}
}

func TestWindowZeroLimitDisables(t *testing.T) {
	limiter := NewWindow(clock.Fake(epoch))
	for range 100 {
		if !limiter.CheckAndConsume("k", 0, time.Minute) {
			t.Fatal("zero limit rejected a request")
		}
	}
}

func TestWindowPrune(t *testing.T) {
	fake := clock.Fake(epoch)
	limiter := NewWindow(fake)
	limiter.CheckAndConsume("old", 5, time.Minute)
	fake.Advance(2 * time.Minute)
	limiter.CheckAndConsume("new", 5, time.Minute)

	if remaining := limiter.Prune(time.Minute); remaining != 1 {
		t.Errorf("Prune left %d keys, want 1", remaining)
	}
}

func TestWindowConcurrent(t *testing.T) {
	limiter := NewWindow(clock.Fake(epoch))
	var admitted sync.WaitGroup
	var mu sync.Mutex
	count := 0
	for range 50 {
		admitted.Add(1)
		go func() {
			defer admitted.Done()
			if limiter.CheckAndConsume("shared", 20, time.Minute) {
				mu.Lock()
				count++
				mu.Unlock()
			}
		}()
	}
	admitted.Wait()
	if count != 20 {
		t.Errorf("admitted %d, want exactly 20", count)
	}
}
