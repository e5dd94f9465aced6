// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package lifecycle

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/bureau-foundation/opsdesk/lib/audit"
	"github.com/bureau-foundation/opsdesk/lib/cadence"
	"github.com/bureau-foundation/opsdesk/lib/clock"
	"github.com/bureau-foundation/opsdesk/lib/keylock"
	"github.com/bureau-foundation/opsdesk/lib/notify"
	"github.com/bureau-foundation/opsdesk/lib/schema/compliance"
	"github.com/bureau-foundation/opsdesk/lib/taskstore"
	"github.com/bureau-foundation/opsdesk/lib/timer"
)

// Scheduler computes recurrence dates. *cadence.Calculator and
// cadence.Calculator satisfy it.
type Scheduler interface {
	NextAnchorDate(recurrence compliance.Cadence, customIntervalDays int, current time.Time) (time.Time, error)
	DueDateFromAnchor(anchor time.Time) time.Time
}

// Config holds a Controller's collaborators.
type Config struct {
	Store *taskstore.Store
	Clock clock.Clock

	// Locks must be the same set the timer tracker uses.
	Locks *keylock.Set

	// Scheduler defaults to cadence.Calculator with the default
	// grace window.
	Scheduler Scheduler

	// Notifier defaults to notify.Discard.
	Notifier notify.Dispatcher

	Logger *slog.Logger
}

// Controller applies lifecycle operations to tasks.
type Controller struct {
	store     *taskstore.Store
	clock     clock.Clock
	locks     *keylock.Set
	scheduler Scheduler
	recorder  *audit.Recorder
	notifier  notify.Dispatcher
	logger    *slog.Logger
	newID     func() string
}

// New returns a Controller.
func New(cfg Config) (*Controller, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("lifecycle: Store is required")
	}
	if cfg.Clock == nil {
		return nil, fmt.Errorf("lifecycle: Clock is required")
	}
	if cfg.Locks == nil {
		return nil, fmt.Errorf("lifecycle: Locks is required")
	}
	scheduler := cfg.Scheduler
	if scheduler == nil {
		scheduler = cadence.Calculator{GraceDays: cadence.DefaultGraceDays}
	}
	notifier := cfg.Notifier
	if notifier == nil {
		notifier = notify.Discard{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Controller{
		store:     cfg.Store,
		clock:     cfg.Clock,
		locks:     cfg.Locks,
		scheduler: scheduler,
		recorder:  audit.NewRecorder(cfg.Clock),
		notifier:  notifier,
		logger:    logger,
		newID:     func() string { return uuid.NewString() },
	}, nil
}

// CompleteOptions are the optional fields merged into a task when it
// is completed.
type CompleteOptions struct {
	EvidenceURL *string
	Notes       *string

	// AutoSchedule overrides the task's stored flag. The override is
	// persisted.
	AutoSchedule *bool
}

// CompleteResult is the outcome of a completion.
type CompleteResult struct {
	Task *compliance.Task `json:"task"`

	// Successor is the auto-scheduled next task, or nil.
	Successor *compliance.Task `json:"successor,omitempty"`

	// Warning describes a failed successor creation. The completion
	// itself succeeded.
	Warning string `json:"warning,omitempty"`

	// ClosedSession is set when completion stopped a running timer.
	ClosedSession *timer.StopResult `json:"closed_session,omitempty"`
}

// Create validates draft and stores it as a new SCHEDULED task,
// recording a CREATED audit entry attributed to actorID.
func (c *Controller) Create(ctx context.Context, actorID string, draft compliance.TaskDraft) (*compliance.Task, error) {
	now := c.clock.Now().UTC()
	task := &compliance.Task{
		ID:                 c.newID(),
		ClientID:           strings.TrimSpace(draft.ClientID),
		Category:           strings.TrimSpace(draft.Category),
		AnchorDate:         compliance.DateOf(draft.AnchorDate),
		DueDate:            compliance.DateOf(draft.DueDate),
		Cadence:            draft.Cadence,
		CustomIntervalDays: draft.CustomIntervalDays,
		Status:             compliance.StatusScheduled,
		AssignedToID:       draft.AssignedToID,
		AutoSchedule:       draft.AutoSchedule,
		EvidenceURL:        draft.EvidenceURL,
		Notes:              draft.Notes,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if task.Category == "" {
		return nil, compliance.Invalid("", compliance.FieldCategory, "category is required")
	}
	if err := task.Validate(); err != nil {
		c.logger.Debug("create rejected", "client_id", task.ClientID, "actor_id", actorID, "error", err)
		return nil, err
	}

	err := c.store.Update(ctx, func(tx *taskstore.Tx) error {
		return c.insert(tx, task, actorID, audit.CreatedSummary(task))
	})
	if err != nil {
		return nil, err
	}

	c.logger.Info("task created",
		"task_id", task.ID,
		"client_id", task.ClientID,
		"cadence", task.Cadence,
		"due_date", compliance.FormatDate(task.DueDate),
		"actor_id", actorID,
	)
	c.dispatch(ctx, notify.KindTaskCreated, task, actorID, "")
	return task, nil
}

// Update applies every slot of patch that differs from the stored task
// and records one UPDATED audit entry per changed field, all with the
// same timestamp. A patch that changes nothing writes nothing and
// returns the stored task.
//
// On a terminal task only notes and evidenceUrl may change. Moving the
// status to CANCELLED through an update behaves like Cancel without a
// reason.
func (c *Controller) Update(ctx context.Context, taskID, actorID string, patch compliance.TaskPatch) (*compliance.Task, error) {
	unlock, err := c.lock(ctx, taskID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	var task *compliance.Task
	var changes []compliance.FieldChange
	err = c.store.Update(ctx, func(tx *taskstore.Tx) error {
		var err error
		if task, err = tx.GetTask(taskID); err != nil {
			return err
		}

		changes = patch.Diff(task)
		if len(changes) == 0 {
			return nil
		}
		if err := checkPatch(task, patch, changes); err != nil {
			return err
		}

		if patch.Status != nil && *patch.Status == compliance.StatusCancelled {
			if _, err := c.stopRunningTimer(tx, taskID); err != nil {
				return err
			}
			if task, err = tx.GetTask(taskID); err != nil {
				return err
			}
		}

		patch.Apply(task)
		if err := task.Validate(); err != nil {
			return err
		}
		task.UpdatedAt = c.clock.Now().UTC()
		if err := tx.UpdateTask(task); err != nil {
			return err
		}
		_, err = c.recorder.Record(tx, audit.Event{
			TaskID:  taskID,
			ActorID: actorID,
			Action:  compliance.AuditUpdated,
			Changes: changes,
		})
		return err
	})
	if err != nil {
		c.logger.Debug("update rejected", "task_id", taskID, "actor_id", actorID, "error", err)
		return nil, err
	}
	if len(changes) == 0 {
		return task, nil
	}

	fields := make([]string, len(changes))
	for i, change := range changes {
		fields[i] = change.Field
	}
	c.logger.Info("task updated", "task_id", taskID, "fields", fields, "actor_id", actorID)

	kind := notify.KindTaskUpdated
	if task.Status == compliance.StatusCancelled && patch.Status != nil {
		kind = notify.KindTaskCancelled
	}
	c.dispatch(ctx, kind, task, actorID, "changed "+strings.Join(fields, ", "))
	return task, nil
}

// checkPatch enforces the terminal-state and status-slot rules on a
// non-empty changeset.
func checkPatch(task *compliance.Task, patch compliance.TaskPatch, changes []compliance.FieldChange) error {
	if task.Status.IsTerminal() {
		for _, change := range changes {
			if !compliance.IsAnnotationField(change.Field) {
				return compliance.AlreadyTerminal(task.ID, task.Status, change.Field)
			}
		}
		return nil
	}
	if patch.Status != nil && *patch.Status != task.Status {
		switch *patch.Status {
		case compliance.StatusInProgress, compliance.StatusCancelled:
		case compliance.StatusCompleted:
			return compliance.Invalid(task.ID, compliance.FieldStatus, "use complete to finish a task")
		}
		if err := compliance.ValidateTransition(task.ID, task.Status, *patch.Status); err != nil {
			return err
		}
	}
	return nil
}

// Complete marks the task COMPLETED by actorID, merging options, and
// records a COMPLETED audit entry. A running timer is stopped and its
// time accrued first. If the task's autoSchedule flag (after merging)
// is set, the next period's task is created afterwards; see
// CompleteResult.Warning for how a failure there is reported.
func (c *Controller) Complete(ctx context.Context, taskID, actorID string, options CompleteOptions) (*CompleteResult, error) {
	unlock, err := c.lock(ctx, taskID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	result := &CompleteResult{}
	err = c.store.Update(ctx, func(tx *taskstore.Tx) error {
		task, err := tx.GetTask(taskID)
		if err != nil {
			return err
		}
		if err := compliance.ValidateTransition(taskID, task.Status, compliance.StatusCompleted); err != nil {
			return err
		}

		if result.ClosedSession, err = c.stopRunningTimer(tx, taskID); err != nil {
			return err
		}
		if result.ClosedSession != nil {
			if task, err = tx.GetTask(taskID); err != nil {
				return err
			}
		}

		merge := compliance.TaskPatch{
			EvidenceURL:  options.EvidenceURL,
			Notes:        options.Notes,
			AutoSchedule: options.AutoSchedule,
		}
		changes := merge.Diff(task)
		merge.Apply(task)

		now := c.clock.Now().UTC()
		task.Status = compliance.StatusCompleted
		task.CompletedByID = actorID
		task.CompletedAt = &now
		task.UpdatedAt = now
		if err := tx.UpdateTask(task); err != nil {
			return err
		}

		if _, err := c.recorder.Record(tx, audit.Event{
			TaskID:  taskID,
			ActorID: actorID,
			Action:  compliance.AuditUpdated,
			Changes: changes,
		}); err != nil {
			return err
		}
		if _, err := c.recorder.Record(tx, audit.Event{
			TaskID:  taskID,
			ActorID: actorID,
			Action:  compliance.AuditCompleted,
			Summary: audit.CompletedSummary(actorID),
		}); err != nil {
			return err
		}
		result.Task = task
		return nil
	})
	if err != nil {
		c.logger.Debug("complete rejected", "task_id", taskID, "actor_id", actorID, "error", err)
		return nil, err
	}

	c.logger.Info("task completed",
		"task_id", taskID,
		"actor_id", actorID,
		"total_accrued_seconds", result.Task.TotalAccruedSeconds,
	)
	c.dispatch(ctx, notify.KindTaskCompleted, result.Task, actorID, audit.CompletedSummary(actorID))

	if result.Task.AutoSchedule {
		successor, err := c.scheduleSuccessor(ctx, result.Task, actorID)
		if err != nil {
			result.Warning = fmt.Sprintf("task %s completed, but its successor was not scheduled: %v", taskID, err)
			c.logger.Error("successor scheduling failed", "task_id", taskID, "error", err)
			c.dispatch(ctx, notify.KindSuccessorFailed, result.Task, actorID, result.Warning)
		} else {
			result.Successor = successor
		}
	}
	return result, nil
}

// scheduleSuccessor creates the next period's task for a completed
// parent, in its own transaction.
func (c *Controller) scheduleSuccessor(ctx context.Context, parent *compliance.Task, actorID string) (*compliance.Task, error) {
	nextAnchor, err := c.scheduler.NextAnchorDate(parent.Cadence, parent.CustomIntervalDays, parent.AnchorDate)
	if err != nil {
		return nil, err
	}
	now := c.clock.Now().UTC()
	successor := &compliance.Task{
		ID:                 c.newID(),
		ClientID:           parent.ClientID,
		Category:           parent.Category,
		AnchorDate:         nextAnchor,
		DueDate:            c.scheduler.DueDateFromAnchor(nextAnchor),
		Cadence:            parent.Cadence,
		CustomIntervalDays: parent.CustomIntervalDays,
		Status:             compliance.StatusScheduled,
		AssignedToID:       parent.AssignedToID,
		AutoSchedule:       parent.AutoSchedule,
		PredecessorTaskID:  parent.ID,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if err := successor.Validate(); err != nil {
		return nil, err
	}

	err = c.store.Update(ctx, func(tx *taskstore.Tx) error {
		return c.insert(tx, successor, actorID, audit.SuccessorSummary(parent.ID))
	})
	if err != nil {
		return nil, err
	}

	c.logger.Info("successor scheduled",
		"task_id", successor.ID,
		"predecessor_task_id", parent.ID,
		"anchor_date", compliance.FormatDate(successor.AnchorDate),
		"due_date", compliance.FormatDate(successor.DueDate),
	)
	c.dispatch(ctx, notify.KindTaskCreated, successor, actorID, audit.SuccessorSummary(parent.ID))
	return successor, nil
}

// Cancel moves a SCHEDULED or IN_PROGRESS task to CANCELLED and stops
// any running timer. A non-empty reason is appended to the task's
// notes. The status change (and notes change) are recorded as UPDATED
// entries.
func (c *Controller) Cancel(ctx context.Context, taskID, actorID, reason string) (*compliance.Task, error) {
	unlock, err := c.lock(ctx, taskID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	var task *compliance.Task
	err = c.store.Update(ctx, func(tx *taskstore.Tx) error {
		var err error
		if task, err = tx.GetTask(taskID); err != nil {
			return err
		}
		if err := compliance.ValidateTransition(taskID, task.Status, compliance.StatusCancelled); err != nil {
			return err
		}
		closed, err := c.stopRunningTimer(tx, taskID)
		if err != nil {
			return err
		}
		if closed != nil {
			if task, err = tx.GetTask(taskID); err != nil {
				return err
			}
		}

		cancelled := compliance.StatusCancelled
		patch := compliance.TaskPatch{Status: &cancelled}
		if reason = strings.TrimSpace(reason); reason != "" {
			notes := "Cancelled: " + reason
			if task.Notes != "" {
				notes = task.Notes + "\n" + notes
			}
			patch.Notes = &notes
		}
		changes := patch.Diff(task)
		patch.Apply(task)
		task.UpdatedAt = c.clock.Now().UTC()
		if err := tx.UpdateTask(task); err != nil {
			return err
		}
		_, err = c.recorder.Record(tx, audit.Event{
			TaskID:  taskID,
			ActorID: actorID,
			Action:  compliance.AuditUpdated,
			Changes: changes,
		})
		return err
	})
	if err != nil {
		c.logger.Debug("cancel rejected", "task_id", taskID, "actor_id", actorID, "error", err)
		return nil, err
	}

	c.logger.Info("task cancelled", "task_id", taskID, "actor_id", actorID)
	c.dispatch(ctx, notify.KindTaskCancelled, task, actorID, reason)
	return task, nil
}

// Delete removes the task and its timer sessions regardless of status.
// Its audit history remains queryable.
func (c *Controller) Delete(ctx context.Context, taskID, actorID string) error {
	unlock, err := c.lock(ctx, taskID)
	if err != nil {
		return err
	}
	defer unlock()

	var task *compliance.Task
	err = c.store.Update(ctx, func(tx *taskstore.Tx) error {
		var err error
		if task, err = tx.GetTask(taskID); err != nil {
			return err
		}
		return tx.DeleteTask(taskID)
	})
	if err != nil {
		return err
	}

	c.logger.Info("task deleted", "task_id", taskID, "status", task.Status, "actor_id", actorID)
	c.dispatch(ctx, notify.KindTaskDeleted, task, actorID, "")
	return nil
}

// Get returns one task.
func (c *Controller) Get(ctx context.Context, taskID string) (*compliance.Task, error) {
	var task *compliance.Task
	err := c.store.View(ctx, func(tx *taskstore.Tx) (err error) {
		task, err = tx.GetTask(taskID)
		return err
	})
	return task, err
}

// List returns tasks matching filter, ordered by due date.
func (c *Controller) List(ctx context.Context, filter taskstore.Filter) ([]compliance.Task, error) {
	var tasks []compliance.Task
	err := c.store.View(ctx, func(tx *taskstore.Tx) (err error) {
		tasks, err = tx.ListTasks(filter)
		return err
	})
	return tasks, err
}

// Overdue returns non-terminal tasks whose due date is before today.
func (c *Controller) Overdue(ctx context.Context, today time.Time, limit int) ([]compliance.Task, error) {
	return c.List(ctx, taskstore.Filter{
		Statuses:  []compliance.Status{compliance.StatusScheduled, compliance.StatusInProgress},
		DueBefore: compliance.DateOf(today),
		Limit:     limit,
	})
}

// History returns the task's audit entries in write order. It works
// for deleted tasks too; an ID that never existed yields an empty
// history rather than NotFound.
func (c *Controller) History(ctx context.Context, taskID string) ([]compliance.AuditEntry, error) {
	var entries []compliance.AuditEntry
	err := c.store.View(ctx, func(tx *taskstore.Tx) (err error) {
		entries, err = tx.History(taskID)
		return err
	})
	return entries, err
}

// Chain returns the recurrence chain containing taskID, oldest first:
// its predecessors back to the first task (or the first deleted link)
// and its successors forward to the newest.
func (c *Controller) Chain(ctx context.Context, taskID string) ([]compliance.Task, error) {
	var chain []compliance.Task
	err := c.store.View(ctx, func(tx *taskstore.Tx) error {
		task, err := tx.GetTask(taskID)
		if err != nil {
			return err
		}
		seen := map[string]bool{task.ID: true}

		var earlier []compliance.Task
		for current := task; current.PredecessorTaskID != "" && !seen[current.PredecessorTaskID]; {
			predecessor, err := tx.GetTask(current.PredecessorTaskID)
			if compliance.KindOf(err) == compliance.KindNotFound {
				break
			}
			if err != nil {
				return err
			}
			seen[predecessor.ID] = true
			earlier = append(earlier, *predecessor)
			current = predecessor
		}
		for i := len(earlier) - 1; i >= 0; i-- {
			chain = append(chain, earlier[i])
		}
		chain = append(chain, *task)

		for current := task.ID; ; {
			successors, err := tx.Successors(current)
			if err != nil {
				return err
			}
			if len(successors) == 0 || seen[successors[0].ID] {
				return nil
			}
			seen[successors[0].ID] = true
			chain = append(chain, successors[0])
			current = successors[0].ID
		}
	})
	return chain, err
}

// insert writes a new task and its CREATED entry.
func (c *Controller) insert(tx *taskstore.Tx, task *compliance.Task, actorID, summary string) error {
	if err := tx.InsertTask(task); err != nil {
		return err
	}
	_, err := c.recorder.Record(tx, audit.Event{
		TaskID:  task.ID,
		ActorID: actorID,
		Action:  compliance.AuditCreated,
		Summary: summary,
	})
	return err
}

// stopRunningTimer closes the task's open session, if any. Callers
// must re-read the task afterwards because the accrual bumps its row
// version.
func (c *Controller) stopRunningTimer(tx *taskstore.Tx, taskID string) (*timer.StopResult, error) {
	open, err := tx.OpenSession(taskID)
	if err != nil || open == nil {
		return nil, err
	}
	result, err := timer.Close(tx, open, c.clock.Now(), nil)
	if err != nil {
		return nil, err
	}
	c.logger.Info("running timer stopped by lifecycle transition",
		"task_id", taskID,
		"session_id", open.ID,
		"duration_seconds", result.DurationSeconds,
	)
	return result, nil
}

func (c *Controller) lock(ctx context.Context, taskID string) (func(), error) {
	unlock, err := c.locks.Lock(ctx, taskID)
	if err != nil {
		return nil, compliance.Storage(taskID, err)
	}
	return unlock, nil
}

func (c *Controller) dispatch(ctx context.Context, kind notify.Kind, task *compliance.Task, actorID, message string) {
	c.notifier.Dispatch(ctx, notify.Event{
		Kind:         kind,
		TaskID:       task.ID,
		ClientID:     task.ClientID,
		Category:     task.Category,
		ActorID:      actorID,
		AssignedToID: task.AssignedToID,
		DueDate:      compliance.FormatDate(task.DueDate),
		Message:      message,
		Timestamp:    c.clock.Now().UTC(),
	})
}
