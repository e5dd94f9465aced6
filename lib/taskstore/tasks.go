// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package taskstore

import (
	"fmt"
	"strings"
	"time"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/bureau-foundation/opsdesk/lib/schema/compliance"
)

const taskColumns = `id, client_id, category, anchor_date, due_date, cadence,
	custom_interval_days, status, assigned_to_id, completed_by_id,
	completed_at, total_accrued_seconds, auto_schedule, evidence_url,
	notes, predecessor_task_id, created_at, updated_at, version`

// Filter narrows ListTasks. Zero-valued fields match everything.
type Filter struct {
	ClientID     string
	AssignedToID string
	Category     string

	// Statuses restricts results to tasks in any of these statuses.
	Statuses []compliance.Status

	// DueBefore keeps tasks whose due date is strictly earlier.
	DueBefore time.Time

	// DueOnOrAfter keeps tasks whose due date is this date or later.
	DueOnOrAfter time.Time

	// Limit caps the number of results. Zero means no limit.
	Limit int
}

// GetTask returns the task with the given ID or a NotFound error.
func (tx *Tx) GetTask(id string) (*compliance.Task, error) {
	var task *compliance.Task
	err := sqlitex.Execute(tx.conn, "SELECT "+taskColumns+" FROM tasks WHERE id = ?", &sqlitex.ExecOptions{
		Args: []any{id},
		ResultFunc: func(stmt *sqlite.Stmt) error {
			scanned, err := scanTask(stmt)
			if err != nil {
				return err
			}
			task = &scanned
			return nil
		},
	})
	if err != nil {
		return nil, compliance.Storage(id, fmt.Errorf("reading task: %w", err))
	}
	if task == nil {
		return nil, compliance.NotFound(id)
	}
	return task, nil
}

// InsertTask writes a new task row. The task's Version is set to 1.
func (tx *Tx) InsertTask(task *compliance.Task) error {
	task.Version = 1
	args := append([]any{task.ID}, taskValues(task)...)
	err := sqlitex.Execute(tx.conn, `INSERT INTO tasks (`+taskColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		&sqlitex.ExecOptions{Args: append(args, task.Version)})
	if err != nil {
		return compliance.Storage(task.ID, fmt.Errorf("inserting task: %w", err))
	}
	return nil
}

// UpdateTask replaces the stored row with task, provided the stored
// version still equals task.Version. On success task.Version is
// advanced to the new stored version. A missing row yields NotFound; a
// version mismatch yields a Storage error wrapping ErrConflict.
func (tx *Tx) UpdateTask(task *compliance.Task) error {
	args := append(taskValues(task), task.ID, task.Version)
	err := sqlitex.Execute(tx.conn, `UPDATE tasks SET
			client_id = ?, category = ?, anchor_date = ?, due_date = ?,
			cadence = ?, custom_interval_days = ?, status = ?,
			assigned_to_id = ?, completed_by_id = ?, completed_at = ?,
			total_accrued_seconds = ?, auto_schedule = ?, evidence_url = ?,
			notes = ?, predecessor_task_id = ?, created_at = ?,
			updated_at = ?, version = version + 1
		WHERE id = ? AND version = ?`,
		&sqlitex.ExecOptions{Args: args})
	if err != nil {
		return compliance.Storage(task.ID, fmt.Errorf("updating task: %w", err))
	}
	if tx.conn.Changes() == 0 {
		return tx.missingOrConflict(task.ID)
	}
	task.Version++
	return nil
}

// AddAccruedSeconds atomically adds seconds to the task's accrued
// total and returns the new total. The increment is computed by SQLite
// from the stored value, never from a value the caller read earlier.
func (tx *Tx) AddAccruedSeconds(taskID string, seconds int64, now time.Time) (int64, error) {
	if seconds < 0 {
		return 0, compliance.Invalid(taskID, "durationSeconds", "must be non-negative, got %d", seconds)
	}
	err := sqlitex.Execute(tx.conn, `UPDATE tasks SET
			total_accrued_seconds = total_accrued_seconds + ?,
			updated_at = ?, version = version + 1
		WHERE id = ?`,
		&sqlitex.ExecOptions{Args: []any{seconds, now.UnixNano(), taskID}})
	if err != nil {
		return 0, compliance.Storage(taskID, fmt.Errorf("adding accrued seconds: %w", err))
	}
	if tx.conn.Changes() == 0 {
		return 0, compliance.NotFound(taskID)
	}

	var total int64
	err = sqlitex.Execute(tx.conn, "SELECT total_accrued_seconds FROM tasks WHERE id = ?", &sqlitex.ExecOptions{
		Args: []any{taskID},
		ResultFunc: func(stmt *sqlite.Stmt) error {
			total = stmt.ColumnInt64(0)
			return nil
		},
	})
	if err != nil {
		return 0, compliance.Storage(taskID, fmt.Errorf("reading accrued seconds: %w", err))
	}
	return total, nil
}

// DeleteTask removes the task row and its timer sessions. Audit
// entries are kept. Returns NotFound if no such task exists.
func (tx *Tx) DeleteTask(id string) error {
	if err := sqlitex.Execute(tx.conn, "DELETE FROM tasks WHERE id = ?", &sqlitex.ExecOptions{
		Args: []any{id},
	}); err != nil {
		return compliance.Storage(id, fmt.Errorf("deleting task: %w", err))
	}
	if tx.conn.Changes() == 0 {
		return compliance.NotFound(id)
	}
	if err := sqlitex.Execute(tx.conn, "DELETE FROM timer_sessions WHERE task_id = ?", &sqlitex.ExecOptions{
		Args: []any{id},
	}); err != nil {
		return compliance.Storage(id, fmt.Errorf("deleting timer sessions: %w", err))
	}
	return nil
}

// ListTasks returns tasks matching filter ordered by due date, then
// creation time, then ID.
func (tx *Tx) ListTasks(filter Filter) ([]compliance.Task, error) {
	var conditions []string
	var args []any
	if filter.ClientID != "" {
		conditions = append(conditions, "client_id = ?")
		args = append(args, filter.ClientID)
	}
	if filter.AssignedToID != "" {
		conditions = append(conditions, "assigned_to_id = ?")
		args = append(args, filter.AssignedToID)
	}
	if filter.Category != "" {
		conditions = append(conditions, "category = ?")
		args = append(args, filter.Category)
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			placeholders[i] = "?"
			args = append(args, string(status))
		}
		conditions = append(conditions, "status IN ("+strings.Join(placeholders, ", ")+")")
	}
	if !filter.DueBefore.IsZero() {
		conditions = append(conditions, "due_date < ?")
		args = append(args, compliance.FormatDate(filter.DueBefore))
	}
	if !filter.DueOnOrAfter.IsZero() {
		conditions = append(conditions, "due_date >= ?")
		args = append(args, compliance.FormatDate(filter.DueOnOrAfter))
	}

	query := "SELECT " + taskColumns + " FROM tasks"
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY due_date, created_at, id"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	return tx.queryTasks(query, args...)
}

// Successors returns the tasks auto-scheduled from predecessorID.
// Normally there is at most one.
func (tx *Tx) Successors(predecessorID string) ([]compliance.Task, error) {
	return tx.queryTasks("SELECT "+taskColumns+" FROM tasks WHERE predecessor_task_id = ? ORDER BY created_at, id",
		predecessorID)
}

func (tx *Tx) queryTasks(query string, args ...any) ([]compliance.Task, error) {
	var tasks []compliance.Task
	err := sqlitex.Execute(tx.conn, query, &sqlitex.ExecOptions{
		Args: args,
		ResultFunc: func(stmt *sqlite.Stmt) error {
			task, err := scanTask(stmt)
			if err != nil {
				return err
			}
			tasks = append(tasks, task)
			return nil
		},
	})
	if err != nil {
		return nil, compliance.Storage("", fmt.Errorf("listing tasks: %w", err))
	}
	return tasks, nil
}

func (tx *Tx) missingOrConflict(id string) error {
	exists := false
	err := sqlitex.Execute(tx.conn, "SELECT 1 FROM tasks WHERE id = ?", &sqlitex.ExecOptions{
		Args: []any{id},
		ResultFunc: func(*sqlite.Stmt) error {
			exists = true
			return nil
		},
	})
	if err != nil {
		return compliance.Storage(id, fmt.Errorf("checking task existence: %w", err))
	}
	if !exists {
		return compliance.NotFound(id)
	}
	return compliance.Storage(id, ErrConflict)
}

// taskValues returns the column values after id and before version,
// in taskColumns order.
func taskValues(task *compliance.Task) []any {
	var completedAt any
	if task.CompletedAt != nil {
		completedAt = task.CompletedAt.UnixNano()
	}
	return []any{
		task.ClientID,
		task.Category,
		compliance.FormatDate(task.AnchorDate),
		compliance.FormatDate(task.DueDate),
		string(task.Cadence),
		nullableInt(task.CustomIntervalDays),
		string(task.Status),
		nullableText(task.AssignedToID),
		nullableText(task.CompletedByID),
		completedAt,
		task.TotalAccruedSeconds,
		boolInt(task.AutoSchedule),
		nullableText(task.EvidenceURL),
		nullableText(task.Notes),
		nullableText(task.PredecessorTaskID),
		task.CreatedAt.UnixNano(),
		task.UpdatedAt.UnixNano(),
	}
}

func scanTask(stmt *sqlite.Stmt) (compliance.Task, error) {
	// Columns follow taskColumns: id(0), client_id(1), category(2),
	// anchor_date(3), due_date(4), cadence(5), custom_interval_days(6),
	// status(7), assigned_to_id(8), completed_by_id(9),
	// completed_at(10), total_accrued_seconds(11), auto_schedule(12),
	// evidence_url(13), notes(14), predecessor_task_id(15),
	// created_at(16), updated_at(17), version(18)
	task := compliance.Task{
		ID:                  stmt.ColumnText(0),
		ClientID:            stmt.ColumnText(1),
		Category:            stmt.ColumnText(2),
		Cadence:             compliance.Cadence(stmt.ColumnText(5)),
		CustomIntervalDays:  stmt.ColumnInt(6),
		Status:              compliance.Status(stmt.ColumnText(7)),
		AssignedToID:        stmt.ColumnText(8),
		CompletedByID:       stmt.ColumnText(9),
		TotalAccruedSeconds: stmt.ColumnInt64(11),
		AutoSchedule:        stmt.ColumnInt64(12) != 0,
		EvidenceURL:         stmt.ColumnText(13),
		Notes:               stmt.ColumnText(14),
		PredecessorTaskID:   stmt.ColumnText(15),
		CreatedAt:           time.Unix(0, stmt.ColumnInt64(16)).UTC(),
		UpdatedAt:           time.Unix(0, stmt.ColumnInt64(17)).UTC(),
		Version:             stmt.ColumnInt64(18),
	}

	var err error
	if task.AnchorDate, err = compliance.ParseDate(stmt.ColumnText(3)); err != nil {
		return task, fmt.Errorf("task %s: parsing anchor_date: %w", task.ID, err)
	}
	if task.DueDate, err = compliance.ParseDate(stmt.ColumnText(4)); err != nil {
		return task, fmt.Errorf("task %s: parsing due_date: %w", task.ID, err)
	}
	if !stmt.ColumnIsNull(10) {
		completedAt := time.Unix(0, stmt.ColumnInt64(10)).UTC()
		task.CompletedAt = &completedAt
	}
	return task, nil
}

func nullableText(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableInt(value int) any {
	if value == 0 {
		return nil
	}
	return value
}

func boolInt(value bool) int {
	if value {
		return 1
	}
	return 0
}
