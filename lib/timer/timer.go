// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package timer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/bureau-foundation/opsdesk/lib/clock"
	"github.com/bureau-foundation/opsdesk/lib/keylock"
	"github.com/bureau-foundation/opsdesk/lib/notify"
	"github.com/bureau-foundation/opsdesk/lib/schema/compliance"
	"github.com/bureau-foundation/opsdesk/lib/taskstore"
)

// Config holds a Tracker's collaborators.
type Config struct {
	Store *taskstore.Store
	Clock clock.Clock

	// Locks serializes operations per task. Share it with every
	// other component that mutates tasks. Required.
	Locks *keylock.Set

	// Notifier receives a timer.stopped event after each stop.
	// Defaults to notify.Discard.
	Notifier notify.Dispatcher

	Logger *slog.Logger
}

// Tracker starts and stops timer sessions.
type Tracker struct {
	store    *taskstore.Store
	clock    clock.Clock
	locks    *keylock.Set
	notifier notify.Dispatcher
	logger   *slog.Logger
	newID    func() string
}

// New returns a Tracker.
func New(cfg Config) (*Tracker, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("timer: Store is required")
	}
	if cfg.Clock == nil {
		return nil, fmt.Errorf("timer: Clock is required")
	}
	if cfg.Locks == nil {
		return nil, fmt.Errorf("timer: Locks is required")
	}
	notifier := cfg.Notifier
	if notifier == nil {
		notifier = notify.Discard{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Tracker{
		store:    cfg.Store,
		clock:    cfg.Clock,
		locks:    cfg.Locks,
		notifier: notifier,
		logger:   logger,
		newID:    func() string { return uuid.NewString() },
	}, nil
}

// StopOptions adjusts how a session is closed.
type StopOptions struct {
	// Elapsed, when set, replaces the wall-clock duration of the
	// session. Still clamped to at least one second.
	Elapsed *time.Duration
}

// StopResult describes a closed session.
type StopResult struct {
	Session         compliance.TimerSession `json:"session"`
	DurationSeconds int64                   `json:"duration_seconds"`
	NewTotal        int64                   `json:"new_total"`
}

// Start opens a session for userID on the task. If the task already
// has an open session, that session is returned unchanged, whoever
// started it. Starting a timer does not change the task's status.
// Fails with NotFound for an unknown task and TaskAlreadyTerminal for
// a completed or cancelled one.
func (t *Tracker) Start(ctx context.Context, taskID, userID string) (*compliance.TimerSession, error) {
	if userID == "" {
		return nil, compliance.Invalid(taskID, "userId", "user id is required")
	}
	unlock, err := t.locks.Lock(ctx, taskID)
	if err != nil {
		return nil, compliance.Storage(taskID, err)
	}
	defer unlock()

	var session *compliance.TimerSession
	resumed := false
	err = t.store.Update(ctx, func(tx *taskstore.Tx) error {
		task, err := tx.GetTask(taskID)
		if err != nil {
			return err
		}
		if task.Status.IsTerminal() {
			return compliance.AlreadyTerminal(taskID, task.Status, "")
		}

		existing, err := tx.OpenSession(taskID)
		if err != nil {
			return err
		}
		if existing != nil {
			session = existing
			resumed = true
			return nil
		}

		session = &compliance.TimerSession{
			ID:        t.newID(),
			TaskID:    taskID,
			UserID:    userID,
			StartTime: t.clock.Now().UTC(),
		}
		return tx.InsertSession(session)
	})
	if err != nil {
		return nil, err
	}

	if resumed {
		t.logger.Info("timer already running",
			"task_id", taskID,
			"session_id", session.ID,
			"requested_by", userID,
			"started_by", session.UserID,
		)
	} else {
		t.logger.Info("timer started", "task_id", taskID, "session_id", session.ID, "user_id", userID)
	}
	return session, nil
}

// Stop closes the task's open session and adds its duration to the
// task's accrued total. Fails with NoOpenSession, leaving the total
// unchanged, if no session is open.
func (t *Tracker) Stop(ctx context.Context, taskID string, options StopOptions) (*StopResult, error) {
	unlock, err := t.locks.Lock(ctx, taskID)
	if err != nil {
		return nil, compliance.Storage(taskID, err)
	}
	defer unlock()

	var result *StopResult
	var task *compliance.Task
	err = t.store.Update(ctx, func(tx *taskstore.Tx) error {
		var err error
		if task, err = tx.GetTask(taskID); err != nil {
			return err
		}
		open, err := tx.OpenSession(taskID)
		if err != nil {
			return err
		}
		if open == nil {
			return &compliance.Error{
				Kind:    compliance.KindNoOpenSession,
				TaskID:  taskID,
				Message: "no timer session is running",
			}
		}
		result, err = Close(tx, open, t.clock.Now(), options.Elapsed)
		return err
	})
	if err != nil {
		return nil, err
	}

	t.logger.Info("timer stopped",
		"task_id", taskID,
		"session_id", result.Session.ID,
		"duration_seconds", result.DurationSeconds,
		"total_accrued_seconds", result.NewTotal,
	)
	t.notifier.Dispatch(ctx, notify.Event{
		Kind:      notify.KindTimerStopped,
		TaskID:    taskID,
		ClientID:  task.ClientID,
		Category:  task.Category,
		ActorID:   result.Session.UserID,
		Message:   fmt.Sprintf("%d seconds logged, %d total", result.DurationSeconds, result.NewTotal),
		Timestamp: t.clock.Now().UTC(),
	})
	return result, nil
}

// Sessions returns every session recorded for the task, oldest first.
func (t *Tracker) Sessions(ctx context.Context, taskID string) ([]compliance.TimerSession, error) {
	var sessions []compliance.TimerSession
	err := t.store.View(ctx, func(tx *taskstore.Tx) error {
		if _, err := tx.GetTask(taskID); err != nil {
			return err
		}
		var err error
		sessions, err = tx.Sessions(taskID)
		return err
	})
	return sessions, err
}

// Close ends session at now inside tx and adds its duration to the
// task total. elapsed, if non-nil, overrides now minus the start time.
// The lifecycle controller uses this to close a running timer when a
// task is completed or cancelled.
func Close(tx *taskstore.Tx, session *compliance.TimerSession, now time.Time, elapsed *time.Duration) (*StopResult, error) {
	duration := now.Sub(session.StartTime)
	if elapsed != nil {
		duration = *elapsed
	}
	seconds := DurationSeconds(duration)

	if err := tx.CloseSession(session, now, seconds); err != nil {
		return nil, err
	}
	total, err := tx.AddAccruedSeconds(session.TaskID, seconds, now)
	if err != nil {
		return nil, err
	}
	return &StopResult{Session: *session, DurationSeconds: seconds, NewTotal: total}, nil
}

// DurationSeconds converts d to whole seconds, truncating, with a
// floor of one.
func DurationSeconds(d time.Duration) int64 {
	seconds := int64(d / time.Second)
	if seconds < 1 {
		return 1
	}
	return seconds
}
