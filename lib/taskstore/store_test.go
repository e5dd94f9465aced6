// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package taskstore

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/bureau-foundation/opsdesk/lib/schema/compliance"
	"github.com/bureau-foundation/opsdesk/lib/testutil"
)

var testNow = time.Date(2024, 1, 5, 9, 30, 0, 0, time.UTC)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(Config{
		Path:   filepath.Join(t.TempDir(), "tasks.db"),
		Logger: testutil.Logger(),
	})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func sampleTask(id string, due time.Time) *compliance.Task {
	return &compliance.Task{
		ID:           id,
		ClientID:     "acme",
		Category:     "SOC2",
		AnchorDate:   due.AddDate(0, 0, -7),
		DueDate:      due,
		Cadence:      compliance.CadenceQuarterly,
		Status:       compliance.StatusScheduled,
		AutoSchedule: true,
		CreatedAt:    testNow,
		UpdatedAt:    testNow,
	}
}

func mustInsert(t *testing.T, store *Store, tasks ...*compliance.Task) {
	t.Helper()
	err := store.Update(context.Background(), func(tx *Tx) error {
		for _, task := range tasks {
			if err := tx.InsertTask(task); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
}

func getTask(t *testing.T, store *Store, id string) (*compliance.Task, error) {
	t.Helper()
	var task *compliance.Task
	err := store.View(context.Background(), func(tx *Tx) error {
		var err error
		task, err = tx.GetTask(id)
		return err
	})
	return task, err
}

func TestTaskRoundTrip(t *testing.T) {
	store := openTestStore(t)
	completedAt := testNow.Add(time.Hour)
	task := sampleTask("task-1", compliance.NewDate(2024, 1, 8))
	task.Cadence = compliance.CadenceCustom
	task.CustomIntervalDays = 45
	task.AssignedToID = "alice"
	task.CompletedByID = "bob"
	task.CompletedAt = &completedAt
	task.TotalAccruedSeconds = 75
	task.EvidenceURL = "https://evidence.example/1"
	task.Notes = "quarterly review"
	task.PredecessorTaskID = "task-0"
	mustInsert(t, store, task)

	got, err := getTask(t, store, "task-1")
	if err != nil {
		t.Fatalf("GetTask: %v", err)
	}
	if got.Version != 1 {
		t.Errorf("Version = %d, want 1", got.Version)
	}
	if !got.AnchorDate.Equal(task.AnchorDate) || !got.DueDate.Equal(task.DueDate) {
		t.Errorf("dates = %s/%s, want %s/%s", got.AnchorDate, got.DueDate, task.AnchorDate, task.DueDate)
	}
	if got.CompletedAt == nil || !got.CompletedAt.Equal(completedAt) {
		t.Errorf("CompletedAt = %v, want %v", got.CompletedAt, completedAt)
	}
	if got.Cadence != compliance.CadenceCustom || got.CustomIntervalDays != 45 {
		t.Errorf("cadence = %s/%d", got.Cadence, got.CustomIntervalDays)
	}
	if got.AssignedToID != "alice" || got.CompletedByID != "bob" || got.PredecessorTaskID != "task-0" {
		t.Errorf("ids = %q %q %q", got.AssignedToID, got.CompletedByID, got.PredecessorTaskID)
	}
	if got.TotalAccruedSeconds != 75 || !got.AutoSchedule || got.Notes != "quarterly review" || got.EvidenceURL == "" {
		t.Errorf("got %+v", got)
	}
	if !got.CreatedAt.Equal(testNow) {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, testNow)
	}
}

func TestGetTaskNotFound(t *testing.T) {
	store := openTestStore(t)
	_, err := getTask(t, store, "missing")
	if !errors.Is(err, compliance.ErrNotFound) {
		t.Fatalf("GetTask(missing) = %v, want ErrNotFound", err)
	}
}

func TestUpdateTaskVersionCheck(t *testing.T) {
	store := openTestStore(t)
	mustInsert(t, store, sampleTask("task-1", compliance.NewDate(2024, 1, 8)))

	stale, err := getTask(t, store, "task-1")
	if err != nil {
		t.Fatal(err)
	}
	fresh := *stale

	fresh.Notes = "first writer"
	if err := store.Update(context.Background(), func(tx *Tx) error { return tx.UpdateTask(&fresh) }); err != nil {
		t.Fatalf("first UpdateTask: %v", err)
	}
	if fresh.Version != 2 {
		t.Errorf("Version after update = %d, want 2", fresh.Version)
	}

	stale.Notes = "stale writer"
	err = store.Update(context.Background(), func(tx *Tx) error { return tx.UpdateTask(stale) })
	if !errors.Is(err, ErrConflict) || !errors.Is(err, compliance.ErrStorage) {
		t.Fatalf("stale UpdateTask = %v, want ErrConflict storage error", err)
	}

	got, _ := getTask(t, store, "task-1")
	if got.Notes != "first writer" {
		t.Errorf("Notes = %q, want first writer", got.Notes)
	}

	missing := sampleTask("ghost", compliance.NewDate(2024, 1, 8))
	err = store.Update(context.Background(), func(tx *Tx) error { return tx.UpdateTask(missing) })
	if !errors.Is(err, compliance.ErrNotFound) {
		t.Errorf("UpdateTask(ghost) = %v, want ErrNotFound", err)
	}
}

func TestUpdateRollsBackOnError(t *testing.T) {
	store := openTestStore(t)
	errAbort := errors.New("abort")
	err := store.Update(context.Background(), func(tx *Tx) error {
		if err := tx.InsertTask(sampleTask("task-1", compliance.NewDate(2024, 1, 8))); err != nil {
			return err
		}
		return errAbort
	})
	if !errors.Is(err, errAbort) {
		t.Fatalf("Update = %v, want errAbort", err)
	}
	if compliance.KindOf(err) != compliance.KindStorage {
		t.Errorf("KindOf = %s, want storage", compliance.KindOf(err))
	}
	if _, err := getTask(t, store, "task-1"); !errors.Is(err, compliance.ErrNotFound) {
		t.Errorf("task survived rollback: %v", err)
	}
}

func TestDueDateBeforeAnchorRejected(t *testing.T) {
	store := openTestStore(t)
	task := sampleTask("task-1", compliance.NewDate(2024, 1, 8))
	task.AnchorDate = compliance.NewDate(2024, 2, 1)
	err := store.Update(context.Background(), func(tx *Tx) error { return tx.InsertTask(task) })
	if !errors.Is(err, compliance.ErrStorage) {
		t.Fatalf("InsertTask with due < anchor = %v, want storage error", err)
	}
}

func TestSessionsOneOpenPerTask(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	mustInsert(t, store, sampleTask("task-1", compliance.NewDate(2024, 1, 8)))

	first := &compliance.TimerSession{ID: "s1", TaskID: "task-1", UserID: "alice", StartTime: testNow}
	if err := store.Update(ctx, func(tx *Tx) error { return tx.InsertSession(first) }); err != nil {
		t.Fatalf("InsertSession(s1): %v", err)
	}

	second := &compliance.TimerSession{ID: "s2", TaskID: "task-1", UserID: "bob", StartTime: testNow}
	err := store.Update(ctx, func(tx *Tx) error { return tx.InsertSession(second) })
	if !errors.Is(err, compliance.ErrSessionAlreadyOpen) {
		t.Fatalf("second InsertSession = %v, want ErrSessionAlreadyOpen", err)
	}

	var open *compliance.TimerSession
	err = store.View(ctx, func(tx *Tx) (err error) {
		open, err = tx.OpenSession("task-1")
		return err
	})
	if err != nil || open == nil || open.ID != "s1" {
		t.Fatalf("OpenSession = %+v, %v; want s1", open, err)
	}

	end := testNow.Add(30 * time.Second)
	if err := store.Update(ctx, func(tx *Tx) error { return tx.CloseSession(open, end, 30) }); err != nil {
		t.Fatalf("CloseSession: %v", err)
	}
	if open.DurationSeconds == nil || *open.DurationSeconds != 30 || open.IsOpen() {
		t.Errorf("closed session = %+v", open)
	}

	err = store.Update(ctx, func(tx *Tx) error { return tx.CloseSession(open, end.Add(time.Minute), 90) })
	if !errors.Is(err, compliance.ErrNoOpenSession) {
		t.Errorf("second CloseSession = %v, want ErrNoOpenSession", err)
	}

	if err := store.Update(ctx, func(tx *Tx) error { return tx.InsertSession(second) }); err != nil {
		t.Fatalf("InsertSession after close: %v", err)
	}

	var sessions []compliance.TimerSession
	err = store.View(ctx, func(tx *Tx) (err error) {
		sessions, err = tx.Sessions("task-1")
		return err
	})
	if err != nil || len(sessions) != 2 {
		t.Fatalf("Sessions = %d, %v; want 2", len(sessions), err)
	}
	if *sessions[0].DurationSeconds != 30 {
		t.Errorf("closed session duration changed to %d", *sessions[0].DurationSeconds)
	}
}

func TestAddAccruedSeconds(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	mustInsert(t, store, sampleTask("task-1", compliance.NewDate(2024, 1, 8)))

	var total int64
	for _, seconds := range []int64{30, 45} {
		err := store.Update(ctx, func(tx *Tx) (err error) {
			total, err = tx.AddAccruedSeconds("task-1", seconds, testNow)
			return err
		})
		if err != nil {
			t.Fatalf("AddAccruedSeconds(%d): %v", seconds, err)
		}
	}
	if total != 75 {
		t.Errorf("total = %d, want 75", total)
	}

	got, _ := getTask(t, store, "task-1")
	if got.TotalAccruedSeconds != 75 || got.Version != 3 {
		t.Errorf("stored total/version = %d/%d, want 75/3", got.TotalAccruedSeconds, got.Version)
	}

	err := store.Update(ctx, func(tx *Tx) error {
		_, err := tx.AddAccruedSeconds("ghost", 10, testNow)
		return err
	})
	if !errors.Is(err, compliance.ErrNotFound) {
		t.Errorf("AddAccruedSeconds(ghost) = %v, want ErrNotFound", err)
	}
}

func TestDeleteKeepsAuditHistory(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	mustInsert(t, store, sampleTask("task-1", compliance.NewDate(2024, 1, 8)))

	summary := "created"
	err := store.Update(ctx, func(tx *Tx) error {
		if err := tx.AppendAudit(&compliance.AuditEntry{
			ID: "a1", TaskID: "task-1", Action: compliance.AuditCreated,
			NewValue: &summary, ActorID: "alice", Timestamp: testNow,
		}); err != nil {
			return err
		}
		return tx.InsertSession(&compliance.TimerSession{ID: "s1", TaskID: "task-1", UserID: "alice", StartTime: testNow})
	})
	if err != nil {
		t.Fatal(err)
	}

	if err := store.Update(ctx, func(tx *Tx) error { return tx.DeleteTask("task-1") }); err != nil {
		t.Fatalf("DeleteTask: %v", err)
	}
	if _, err := getTask(t, store, "task-1"); !errors.Is(err, compliance.ErrNotFound) {
		t.Errorf("GetTask after delete = %v", err)
	}

	var history []compliance.AuditEntry
	var sessions []compliance.TimerSession
	err = store.View(ctx, func(tx *Tx) (err error) {
		if history, err = tx.History("task-1"); err != nil {
			return err
		}
		sessions, err = tx.Sessions("task-1")
		return err
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(history) != 1 || history[0].Field != nil || *history[0].NewValue != "created" {
		t.Errorf("history after delete = %+v", history)
	}
	if len(sessions) != 0 {
		t.Errorf("sessions after delete = %d, want 0", len(sessions))
	}

	err = store.Update(ctx, func(tx *Tx) error { return tx.DeleteTask("task-1") })
	if !errors.Is(err, compliance.ErrNotFound) {
		t.Errorf("second DeleteTask = %v, want ErrNotFound", err)
	}
}

func TestAuditLogIsAppendOnly(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	field := compliance.FieldNotes
	err := store.Update(ctx, func(tx *Tx) error {
		return tx.AppendAudit(&compliance.AuditEntry{
			ID: "a1", TaskID: "task-1", Action: compliance.AuditUpdated,
			Field: &field, ActorID: "alice", Timestamp: testNow,
		})
	})
	if err != nil {
		t.Fatal(err)
	}

	for _, statement := range []string{
		"UPDATE audit_log SET actor_id = 'mallory'",
		"DELETE FROM audit_log",
	} {
		err := store.Update(ctx, func(tx *Tx) error {
			return sqlitex.Execute(tx.conn, statement, nil)
		})
		if err == nil {
			t.Errorf("%q succeeded on audit_log", statement)
		}
	}
}

func TestHistoryOrdering(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	fields := []string{compliance.FieldNotes, compliance.FieldDueDate, compliance.FieldCategory}
	err := store.Update(ctx, func(tx *Tx) error {
		// Same timestamp: sequence decides.
		for i := range fields {
			entry := &compliance.AuditEntry{
				ID: fields[i], TaskID: "task-1", Action: compliance.AuditUpdated,
				Field: &fields[i], ActorID: "alice", Timestamp: testNow,
			}
			if err := tx.AppendAudit(entry); err != nil {
				return err
			}
			if entry.Sequence == 0 {
				t.Errorf("entry %s has no sequence", entry.ID)
			}
		}
		// Earlier timestamp written last sorts first.
		return tx.AppendAudit(&compliance.AuditEntry{
			ID: "early", TaskID: "task-1", Action: compliance.AuditCreated,
			ActorID: "alice", Timestamp: testNow.Add(-time.Minute),
		})
	})
	if err != nil {
		t.Fatal(err)
	}

	var history []compliance.AuditEntry
	err = store.View(ctx, func(tx *Tx) (err error) {
		history, err = tx.History("task-1")
		return err
	})
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"early", compliance.FieldNotes, compliance.FieldDueDate, compliance.FieldCategory}
	if len(history) != len(want) {
		t.Fatalf("history has %d entries, want %d", len(history), len(want))
	}
	for i, entry := range history {
		if entry.ID != want[i] {
			t.Errorf("history[%d] = %s, want %s", i, entry.ID, want[i])
		}
	}
}

func TestListTasksFilters(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	overdue := sampleTask("overdue", compliance.NewDate(2024, 1, 2))
	dueToday := sampleTask("today", compliance.NewDate(2024, 1, 5))
	later := sampleTask("later", compliance.NewDate(2024, 3, 1))
	later.ClientID = "globex"
	later.AssignedToID = "alice"
	done := sampleTask("done", compliance.NewDate(2023, 12, 1))
	done.Status = compliance.StatusCompleted
	successor := sampleTask("successor", compliance.NewDate(2024, 4, 1))
	successor.PredecessorTaskID = "done"
	mustInsert(t, store, later, overdue, done, dueToday, successor)

	list := func(filter Filter) []string {
		t.Helper()
		var tasks []compliance.Task
		err := store.View(ctx, func(tx *Tx) (err error) {
			tasks, err = tx.ListTasks(filter)
			return err
		})
		if err != nil {
			t.Fatalf("ListTasks(%+v): %v", filter, err)
		}
		ids := make([]string, len(tasks))
		for i := range tasks {
			ids[i] = tasks[i].ID
		}
		return ids
	}

	tests := []struct {
		name   string
		filter Filter
		want   []string
	}{
		{"all_by_due_date", Filter{}, []string{"done", "overdue", "today", "later", "successor"}},
		{"client", Filter{ClientID: "globex"}, []string{"later"}},
		{"assignee", Filter{AssignedToID: "alice"}, []string{"later"}},
		{"overdue_open", Filter{
			Statuses:  []compliance.Status{compliance.StatusScheduled, compliance.StatusInProgress},
			DueBefore: compliance.NewDate(2024, 1, 5),
		}, []string{"overdue"}},
		{"window", Filter{DueOnOrAfter: compliance.NewDate(2024, 1, 5), DueBefore: compliance.NewDate(2024, 4, 1)}, []string{"today", "later"}},
		{"limit", Filter{Limit: 2}, []string{"done", "overdue"}},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got := list(test.filter)
			if len(got) != len(test.want) {
				t.Fatalf("got %v, want %v", got, test.want)
			}
			for i := range got {
				if got[i] != test.want[i] {
					t.Fatalf("got %v, want %v", got, test.want)
				}
			}
		})
	}

	var successors []compliance.Task
	err := store.View(ctx, func(tx *Tx) (err error) {
		successors, err = tx.Successors("done")
		return err
	})
	if err != nil || len(successors) != 1 || successors[0].ID != "successor" {
		t.Errorf("Successors(done) = %v, %v", successors, err)
	}
}
