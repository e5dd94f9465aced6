// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package overdue finds compliance tasks past their due date and sends
// reminders for them.
//
// The sweep only reads task state. It never changes a task's status or
// dates: an overdue task stays SCHEDULED or IN_PROGRESS until someone
// completes or cancels it. A task is overdue when its due date is
// strictly before today's UTC date, so a task due today is not yet
// overdue.
package overdue

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/bureau-foundation/opsdesk/lib/clock"
	"github.com/bureau-foundation/opsdesk/lib/cron"
	"github.com/bureau-foundation/opsdesk/lib/notify"
	"github.com/bureau-foundation/opsdesk/lib/schema/compliance"
)

// Source lists overdue tasks. *lifecycle.Controller satisfies it.
type Source interface {
	Overdue(ctx context.Context, today time.Time, limit int) ([]compliance.Task, error)
}

// Config holds a Sweeper's collaborators.
type Config struct {
	Source   Source
	Clock    clock.Clock
	Schedule cron.Schedule
	Notifier notify.Dispatcher
	Logger   *slog.Logger

	// Limit caps the tasks reminded per sweep. Zero means no cap.
	Limit int
}

// Report summarizes one sweep.
type Report struct {
	RanAt time.Time         `json:"ran_at"`
	Today time.Time         `json:"today"`
	Tasks []compliance.Task `json:"tasks"`
}

// Sweeper runs the overdue scan on a schedule.
type Sweeper struct {
	source   Source
	clock    clock.Clock
	schedule cron.Schedule
	notifier notify.Dispatcher
	logger   *slog.Logger
	limit    int

	mu      sync.Mutex
	lastRun time.Time
}

// New returns a Sweeper.
func New(cfg Config) (*Sweeper, error) {
	if cfg.Source == nil {
		return nil, fmt.Errorf("overdue: Source is required")
	}
	if cfg.Clock == nil {
		return nil, fmt.Errorf("overdue: Clock is required")
	}
	if cfg.Schedule.String() == "" {
		return nil, fmt.Errorf("overdue: Schedule is required")
	}
	notifier := cfg.Notifier
	if notifier == nil {
		notifier = notify.Discard{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Sweeper{
		source:   cfg.Source,
		clock:    cfg.Clock,
		schedule: cfg.Schedule,
		notifier: notifier,
		logger:   logger,
		limit:    cfg.Limit,
	}, nil
}

// Scan lists overdue tasks without notifying anyone.
func (s *Sweeper) Scan(ctx context.Context) (*Report, error) {
	now := s.clock.Now().UTC()
	today := clock.Today(s.clock)
	tasks, err := s.source.Overdue(ctx, today, s.limit)
	if err != nil {
		return nil, err
	}
	return &Report{RanAt: now, Today: today, Tasks: tasks}, nil
}

// Sweep scans and dispatches one task.overdue event per overdue task.
func (s *Sweeper) Sweep(ctx context.Context) (*Report, error) {
	report, err := s.Scan(ctx)
	if err != nil {
		return nil, err
	}
	for i := range report.Tasks {
		task := &report.Tasks[i]
		days := DaysOverdue(task, report.Today)
		s.notifier.Dispatch(ctx, notify.Event{
			Kind:         notify.KindTaskOverdue,
			TaskID:       task.ID,
			ClientID:     task.ClientID,
			Category:     task.Category,
			AssignedToID: task.AssignedToID,
			DueDate:      compliance.FormatDate(task.DueDate),
			Message:      fmt.Sprintf("%s for %s is %d day(s) overdue", task.Category, task.ClientID, days),
			Timestamp:    report.RanAt,
		})
	}

	s.mu.Lock()
	s.lastRun = report.RanAt
	s.mu.Unlock()

	s.logger.Info("overdue sweep finished",
		"today", compliance.FormatDate(report.Today),
		"overdue", len(report.Tasks),
	)
	return report, nil
}

// LastRun returns when Sweep last completed, or the zero time.
func (s *Sweeper) LastRun() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastRun
}

// Run sweeps at every schedule occurrence until ctx is cancelled. A
// failed sweep is logged and retried at the next occurrence. Returns
// ctx.Err() on shutdown, or an error if the schedule has no future
// occurrence.
func (s *Sweeper) Run(ctx context.Context) error {
	for {
		now := s.clock.Now()
		next, err := s.schedule.Next(now)
		if err != nil {
			return fmt.Errorf("overdue: %w", err)
		}
		s.logger.Debug("next overdue sweep scheduled", "at", next, "schedule", s.schedule.String())

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.clock.After(next.Sub(now)):
		}

		if _, err := s.Sweep(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			s.logger.Error("overdue sweep failed", "error", err)
		}
	}
}

// DaysOverdue returns how many whole days past its due date the task
// is on today. Zero or negative means not overdue.
func DaysOverdue(task *compliance.Task, today time.Time) int {
	return int(compliance.DateOf(today).Sub(task.DueDate).Hours() / 24)
}
