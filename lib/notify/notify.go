// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// Kind identifies what happened.
type Kind string

const (
	KindTaskCreated     Kind = "task.created"
	KindTaskUpdated     Kind = "task.updated"
	KindTaskCompleted   Kind = "task.completed"
	KindTaskCancelled   Kind = "task.cancelled"
	KindTaskDeleted     Kind = "task.deleted"
	KindTaskOverdue     Kind = "task.overdue"
	KindSuccessorFailed Kind = "task.successor_failed"
	KindTimerStopped    Kind = "timer.stopped"
)

// Event is one notification.
type Event struct {
	Kind     Kind   `json:"kind"`
	TaskID   string `json:"task_id"`
	ClientID string `json:"client_id,omitempty"`
	Category string `json:"category,omitempty"`
	ActorID  string `json:"actor_id,omitempty"`

	// AssignedToID is the reminder recipient, when the task has one.
	AssignedToID string `json:"assigned_to_id,omitempty"`

	// DueDate is the task's due date as YYYY-MM-DD.
	DueDate string `json:"due_date,omitempty"`

	Message   string    `json:"message,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Dispatcher accepts events for delivery. Implementations must be safe
// for concurrent use and must not block indefinitely.
type Dispatcher interface {
	Dispatch(ctx context.Context, event Event)
}

// Discard is a Dispatcher that drops every event.
type Discard struct{}

// Dispatch does nothing.
func (Discard) Dispatch(context.Context, Event) {}

// Publisher is the subset of *nats.Conn used for delivery.
type Publisher interface {
	Publish(subject string, data []byte) error
}

// NATSDispatcher publishes events to NATS. Each event goes to
// "<prefix>.<kind>", for example "opsdesk.compliance.task.overdue".
type NATSDispatcher struct {
	publisher Publisher
	prefix    string
	logger    *slog.Logger
}

// NewNATSDispatcher returns a dispatcher publishing through publisher.
func NewNATSDispatcher(publisher Publisher, prefix string, logger *slog.Logger) *NATSDispatcher {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &NATSDispatcher{publisher: publisher, prefix: prefix, logger: logger}
}

// Subject returns the subject an event of the given kind is published
// on.
func (d *NATSDispatcher) Subject(kind Kind) string {
	if d.prefix == "" {
		return string(kind)
	}
	return d.prefix + "." + string(kind)
}

// Dispatch publishes the event. Failures are logged and dropped.
func (d *NATSDispatcher) Dispatch(_ context.Context, event Event) {
	data, err := json.Marshal(event)
	if err != nil {
		d.logger.Error("encoding notification failed", "kind", event.Kind, "task_id", event.TaskID, "error", err)
		return
	}
	subject := d.Subject(event.Kind)
	if err := d.publisher.Publish(subject, data); err != nil {
		d.logger.Warn("publishing notification failed",
			"subject", subject,
			"task_id", event.TaskID,
			"error", err,
		)
	}
}

// Queue decouples producers from a slow Dispatcher. Dispatch enqueues
// without blocking; a single worker goroutine drains the buffer into
// the wrapped dispatcher.
type Queue struct {
	next    Dispatcher
	logger  *slog.Logger
	events  chan Event
	done    chan struct{}
	dropped atomic.Int64

	closeOnce sync.Once
	mu        sync.RWMutex
	closed    bool
}

// NewQueue starts a queue with the given buffer size in front of next.
// Call Close to stop the worker.
func NewQueue(next Dispatcher, size int, logger *slog.Logger) *Queue {
	if size <= 0 {
		size = 256
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	queue := &Queue{
		next:   next,
		logger: logger,
		events: make(chan Event, size),
		done:   make(chan struct{}),
	}
	go queue.run()
	return queue
}

// Dispatch enqueues the event, or drops it if the buffer is full or
// the queue is closed.
func (q *Queue) Dispatch(_ context.Context, event Event) {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		q.dropped.Add(1)
		return
	}
	select {
	case q.events <- event:
	default:
		total := q.dropped.Add(1)
		q.logger.Warn("notification queue full, dropping event",
			"kind", event.Kind,
			"task_id", event.TaskID,
			"dropped_total", total,
		)
	}
}

// Dropped returns the number of events discarded so far.
func (q *Queue) Dropped() int64 {
	return q.dropped.Load()
}

// Close stops accepting events and waits for the worker to deliver the
// ones already buffered, or for ctx to end.
func (q *Queue) Close(ctx context.Context) error {
	q.closeOnce.Do(func() {
		q.mu.Lock()
		q.closed = true
		close(q.events)
		q.mu.Unlock()
	})
	select {
	case <-q.done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("notify: draining queue: %w", ctx.Err())
	}
}

func (q *Queue) run() {
	defer close(q.done)
	for event := range q.events {
		q.next.Dispatch(context.Background(), event)
	}
}
