// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package notify

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/bureau-foundation/opsdesk/lib/testutil"
)

type recordingPublisher struct {
	mu       sync.Mutex
	subjects []string
	payloads [][]byte
	err      error
}

func (p *recordingPublisher) Publish(subject string, data []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.subjects = append(p.subjects, subject)
	p.payloads = append(p.payloads, data)
	return p.err
}

// blockingDispatcher forwards events to a channel and blocks until
// release is closed.
type blockingDispatcher struct {
	received chan Event
	release  chan struct{}
}

func (d *blockingDispatcher) Dispatch(_ context.Context, event Event) {
	d.received <- event
	<-d.release
}

func TestNATSDispatcherSubjectAndPayload(t *testing.T) {
	publisher := &recordingPublisher{}
	dispatcher := NewNATSDispatcher(publisher, "opsdesk.compliance", testutil.Logger())

	timestamp := time.Date(2024, 1, 9, 0, 0, 0, 0, time.UTC)
	dispatcher.Dispatch(context.Background(), Event{
		Kind:         KindTaskOverdue,
		TaskID:       "task-1",
		ClientID:     "acme",
		AssignedToID: "alice",
		DueDate:      "2024-01-08",
		Timestamp:    timestamp,
	})

	if len(publisher.subjects) != 1 || publisher.subjects[0] != "opsdesk.compliance.task.overdue" {
		t.Fatalf("subjects = %v", publisher.subjects)
	}
	var decoded Event
	if err := json.Unmarshal(publisher.payloads[0], &decoded); err != nil {
		t.Fatalf("payload is not JSON: %v", err)
	}
	if decoded.TaskID != "task-1" || decoded.DueDate != "2024-01-08" || !decoded.Timestamp.Equal(timestamp) {
		t.Errorf("decoded = %+v", decoded)
	}
}

func TestNATSDispatcherSwallowsPublishErrors(t *testing.T) {
	publisher := &recordingPublisher{err: errors.New("nats: connection closed")}
	dispatcher := NewNATSDispatcher(publisher, "", nil)
	dispatcher.Dispatch(context.Background(), Event{Kind: KindTaskCreated, TaskID: "task-1"})
	if len(publisher.subjects) != 1 || publisher.subjects[0] != "task.created" {
		t.Errorf("subjects = %v", publisher.subjects)
	}
}

func TestQueueDeliversInOrder(t *testing.T) {
	publisher := &recordingPublisher{}
	queue := NewQueue(NewNATSDispatcher(publisher, "p", nil), 8, testutil.Logger())

	for _, id := range []string{"a", "b", "c"} {
		queue.Dispatch(context.Background(), Event{Kind: KindTaskCreated, TaskID: id})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := queue.Close(ctx); err != nil {
		t.Fatalf("Close: %v", err)
	}

	if len(publisher.payloads) != 3 {
		t.Fatalf("delivered %d events, want 3", len(publisher.payloads))
	}
	for i, want := range []string{"a", "b", "c"} {
		var event Event
		if err := json.Unmarshal(publisher.payloads[i], &event); err != nil {
			t.Fatal(err)
		}
		if event.TaskID != want {
			t.Errorf("event %d task = %s, want %s", i, event.TaskID, want)
		}
	}
}

func TestQueueDropsWhenFull(t *testing.T) {
	next := &blockingDispatcher{received: make(chan Event, 1), release: make(chan struct{})}
	queue := NewQueue(next, 1, testutil.Logger())

	// The worker takes the first event and blocks inside next.
	queue.Dispatch(context.Background(), Event{TaskID: "first"})
	testutil.RequireReceive(t, next.received, 5*time.Second, "worker did not pick up first event")

	// One event fits in the buffer; the next is dropped without
	// blocking.
	queue.Dispatch(context.Background(), Event{TaskID: "buffered"})
	queue.Dispatch(context.Background(), Event{TaskID: "dropped"})
	if got := queue.Dropped(); got != 1 {
		t.Errorf("Dropped = %d, want 1", got)
	}

	close(next.release)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := queue.Close(ctx); err != nil {
		t.Fatalf("Close: %v", err)
	}
	event := testutil.RequireReceive(t, next.received, 5*time.Second, "buffered event not delivered")
	if event.TaskID != "buffered" {
		t.Errorf("second delivered event = %s, want buffered", event.TaskID)
	}

	queue.Dispatch(context.Background(), Event{TaskID: "after-close"})
	if got := queue.Dropped(); got != 2 {
		t.Errorf("Dropped after close = %d, want 2", got)
	}
}
