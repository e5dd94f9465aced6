// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package lifecycle

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bureau-foundation/opsdesk/lib/clock"
	"github.com/bureau-foundation/opsdesk/lib/keylock"
	"github.com/bureau-foundation/opsdesk/lib/notify"
	"github.com/bureau-foundation/opsdesk/lib/schema/compliance"
	"github.com/bureau-foundation/opsdesk/lib/taskstore"
	"github.com/bureau-foundation/opsdesk/lib/testutil"
	"github.com/bureau-foundation/opsdesk/lib/timer"
)

var epoch = time.Date(2024, 1, 2, 9, 0, 0, 0, time.UTC)

type recordingNotifier struct {
	mu     sync.Mutex
	events []notify.Event
}

func (n *recordingNotifier) Dispatch(_ context.Context, event notify.Event) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
}

func (n *recordingNotifier) kinds() []notify.Kind {
	n.mu.Lock()
	defer n.mu.Unlock()
	kinds := make([]notify.Kind, len(n.events))
	for i, event := range n.events {
		kinds[i] = event.Kind
	}
	return kinds
}

type failingScheduler struct{}

func (failingScheduler) NextAnchorDate(compliance.Cadence, int, time.Time) (time.Time, error) {
	return time.Time{}, errors.New("calendar service unavailable")
}

func (failingScheduler) DueDateFromAnchor(anchor time.Time) time.Time { return anchor }

type harness struct {
	clock      *clock.FakeClock
	store      *taskstore.Store
	controller *Controller
	tracker    *timer.Tracker
	notifier   *recordingNotifier
}

func newHarness(t *testing.T, scheduler Scheduler) *harness {
	t.Helper()
	store, err := taskstore.Open(taskstore.Config{
		Path:   filepath.Join(t.TempDir(), "lifecycle.db"),
		Logger: testutil.Logger(),
	})
	if err != nil {
		t.Fatalf("taskstore.Open: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	fake := clock.Fake(epoch)
	locks := &keylock.Set{}
	notifier := &recordingNotifier{}
	controller, err := New(Config{
		Store:     store,
		Clock:     fake,
		Locks:     locks,
		Scheduler: scheduler,
		Notifier:  notifier,
		Logger:    testutil.Logger(),
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	tracker, err := timer.New(timer.Config{Store: store, Clock: fake, Locks: locks, Logger: testutil.Logger()})
	if err != nil {
		t.Fatalf("timer.New: %v", err)
	}
	return &harness{clock: fake, store: store, controller: controller, tracker: tracker, notifier: notifier}
}

func quarterlyDraft() compliance.TaskDraft {
	return compliance.TaskDraft{
		ClientID:     "acme",
		Category:     "SOC2 access review",
		AnchorDate:   compliance.NewDate(2024, 1, 1),
		DueDate:      compliance.NewDate(2024, 1, 8),
		Cadence:      compliance.CadenceQuarterly,
		AssignedToID: "alice",
		AutoSchedule: true,
	}
}

func (h *harness) create(t *testing.T, draft compliance.TaskDraft) *compliance.Task {
	t.Helper()
	task, err := h.controller.Create(context.Background(), "manager", draft)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	return task
}

func (h *harness) history(t *testing.T, taskID string) []compliance.AuditEntry {
	t.Helper()
	entries, err := h.controller.History(context.Background(), taskID)
	if err != nil {
		t.Fatalf("History(%s): %v", taskID, err)
	}
	return entries
}

func countActions(entries []compliance.AuditEntry) map[compliance.AuditAction]int {
	counts := make(map[compliance.AuditAction]int)
	for _, entry := range entries {
		counts[entry.Action]++
	}
	return counts
}

func ptr[T any](v T) *T { return &v }

func TestEndToEndLifecycle(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	task := h.create(t, quarterlyDraft())
	if task.Status != compliance.StatusScheduled || task.ID == "" {
		t.Fatalf("created task = %+v", task)
	}

	if _, err := h.tracker.Start(ctx, task.ID, "userA"); err != nil {
		t.Fatalf("Start: %v", err)
	}
	h.clock.Advance(600 * time.Second)
	if _, err := h.tracker.Stop(ctx, task.ID, timer.StopOptions{}); err != nil {
		t.Fatalf("Stop: %v", err)
	}

	if _, err := h.controller.Update(ctx, task.ID, "alice", compliance.TaskPatch{Notes: ptr("all accounts reviewed")}); err != nil {
		t.Fatalf("Update: %v", err)
	}

	result, err := h.controller.Complete(ctx, task.ID, "alice", CompleteOptions{})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if result.Warning != "" {
		t.Errorf("Warning = %q", result.Warning)
	}
	if result.Task.TotalAccruedSeconds != 600 {
		t.Errorf("TotalAccruedSeconds = %d, want 600", result.Task.TotalAccruedSeconds)
	}
	if result.Task.Status != compliance.StatusCompleted || result.Task.CompletedByID != "alice" || result.Task.CompletedAt == nil {
		t.Errorf("completed task = %+v", result.Task)
	}

	counts := countActions(h.history(t, task.ID))
	if counts[compliance.AuditCreated] != 1 || counts[compliance.AuditUpdated] != 1 || counts[compliance.AuditCompleted] != 1 {
		t.Errorf("audit counts = %v, want 1 CREATED, 1 UPDATED, 1 COMPLETED", counts)
	}

	successor := result.Successor
	if successor == nil {
		t.Fatal("no successor created")
	}
	if !successor.AnchorDate.Equal(compliance.NewDate(2024, 4, 1)) {
		t.Errorf("successor anchor = %s, want 2024-04-01", compliance.FormatDate(successor.AnchorDate))
	}
	if !successor.DueDate.Equal(compliance.NewDate(2024, 4, 8)) {
		t.Errorf("successor due = %s, want 2024-04-08", compliance.FormatDate(successor.DueDate))
	}
	if successor.Status != compliance.StatusScheduled || successor.PredecessorTaskID != task.ID ||
		successor.ClientID != "acme" || successor.AssignedToID != "alice" || !successor.AutoSchedule ||
		successor.TotalAccruedSeconds != 0 || successor.Notes != "" {
		t.Errorf("successor = %+v", successor)
	}

	successorHistory := h.history(t, successor.ID)
	if len(successorHistory) != 1 || successorHistory[0].Action != compliance.AuditCreated {
		t.Fatalf("successor history = %+v", successorHistory)
	}
	if summary := *successorHistory[0].NewValue; !strings.Contains(summary, task.ID) {
		t.Errorf("successor CREATED summary %q does not name %s", summary, task.ID)
	}

	wantKinds := []notify.Kind{notify.KindTaskCreated, notify.KindTaskUpdated, notify.KindTaskCompleted, notify.KindTaskCreated}
	gotKinds := h.notifier.kinds()
	if len(gotKinds) != len(wantKinds) {
		t.Fatalf("notifications = %v, want %v", gotKinds, wantKinds)
	}
	for i := range wantKinds {
		if gotKinds[i] != wantKinds[i] {
			t.Errorf("notification %d = %s, want %s", i, gotKinds[i], wantKinds[i])
		}
	}
}

func TestCreateValidation(t *testing.T) {
	h := newHarness(t, nil)
	tests := []struct {
		name   string
		mutate func(*compliance.TaskDraft)
		want   error
	}{
		{"due_before_anchor", func(d *compliance.TaskDraft) { d.DueDate = compliance.NewDate(2023, 12, 31) }, compliance.ErrValidation},
		{"missing_client", func(d *compliance.TaskDraft) { d.ClientID = " " }, compliance.ErrValidation},
		{"missing_category", func(d *compliance.TaskDraft) { d.Category = "" }, compliance.ErrValidation},
		{"missing_anchor", func(d *compliance.TaskDraft) { d.AnchorDate = time.Time{} }, compliance.ErrValidation},
		{"unknown_cadence", func(d *compliance.TaskDraft) { d.Cadence = "WEEKLY" }, compliance.ErrInvalidCadence},
		{"custom_zero", func(d *compliance.TaskDraft) { d.Cadence = compliance.CadenceCustom }, compliance.ErrInvalidCadence},
		{"custom_negative", func(d *compliance.TaskDraft) {
			d.Cadence = compliance.CadenceCustom
			d.CustomIntervalDays = -3
		}, compliance.ErrInvalidCadence},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			draft := quarterlyDraft()
			test.mutate(&draft)
			_, err := h.controller.Create(context.Background(), "manager", draft)
			if !errors.Is(err, test.want) {
				t.Errorf("Create = %v, want %v", err, test.want)
			}
		})
	}

	tasks, err := h.controller.List(context.Background(), taskstore.Filter{})
	if err != nil || len(tasks) != 0 {
		t.Errorf("rejected creates stored %d tasks (%v)", len(tasks), err)
	}
}

func TestCreateNormalizesDates(t *testing.T) {
	h := newHarness(t, nil)
	draft := quarterlyDraft()
	draft.AnchorDate = time.Date(2024, 1, 1, 15, 4, 5, 0, time.UTC)
	draft.DueDate = time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)
	task := h.create(t, draft)
	if !task.AnchorDate.Equal(compliance.NewDate(2024, 1, 1)) || !task.DueDate.Equal(task.AnchorDate) {
		t.Errorf("dates = %s/%s", task.AnchorDate, task.DueDate)
	}
}

func TestUpdateBatchesChanges(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	task := h.create(t, quarterlyDraft())

	h.clock.Advance(time.Hour)
	updated, err := h.controller.Update(ctx, task.ID, "bob", compliance.TaskPatch{
		Category:     ptr("SOC2 access review"),
		DueDate:      ptr(compliance.NewDate(2024, 1, 15)),
		AssignedToID: ptr("bob"),
		Notes:        ptr("moved for holiday"),
		Status:       ptr(compliance.StatusInProgress),
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Status != compliance.StatusInProgress || updated.AssignedToID != "bob" ||
		!updated.DueDate.Equal(compliance.NewDate(2024, 1, 15)) {
		t.Errorf("updated = %+v", updated)
	}

	var entries []compliance.AuditEntry
	for _, entry := range h.history(t, task.ID) {
		if entry.Action == compliance.AuditUpdated {
			entries = append(entries, entry)
		}
	}
	wantFields := []string{compliance.FieldDueDate, compliance.FieldStatus, compliance.FieldAssignedToID, compliance.FieldNotes}
	if len(entries) != len(wantFields) {
		t.Fatalf("UPDATED entries = %d, want %d", len(entries), len(wantFields))
	}
	for i, entry := range entries {
		if *entry.Field != wantFields[i] {
			t.Errorf("entry %d field = %s, want %s", i, *entry.Field, wantFields[i])
		}
		if entry.ActorID != "bob" || !entry.Timestamp.Equal(entries[0].Timestamp) {
			t.Errorf("entry %d actor/timestamp = %s/%v", i, entry.ActorID, entry.Timestamp)
		}
	}
	if *entries[0].OldValue != "2024-01-08" || *entries[0].NewValue != "2024-01-15" {
		t.Errorf("dueDate entry = %s→%s", *entries[0].OldValue, *entries[0].NewValue)
	}
}

func TestUpdateNoChangesWritesNothing(t *testing.T) {
	h := newHarness(t, nil)
	task := h.create(t, quarterlyDraft())
	before := len(h.history(t, task.ID))

	got, err := h.controller.Update(context.Background(), task.ID, "bob", compliance.TaskPatch{
		Category:   ptr(task.Category),
		AnchorDate: ptr(task.AnchorDate.Add(5 * time.Hour)),
		Cadence:    ptr(compliance.CadenceQuarterly),
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if got.Version != task.Version {
		t.Errorf("no-op update bumped version %d → %d", task.Version, got.Version)
	}
	if after := len(h.history(t, task.ID)); after != before {
		t.Errorf("no-op update wrote %d audit entries", after-before)
	}
}

func TestUpdateRejections(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	task := h.create(t, quarterlyDraft())

	tests := []struct {
		name  string
		patch compliance.TaskPatch
		want  error
	}{
		{"completed_via_update", compliance.TaskPatch{Status: ptr(compliance.StatusCompleted)}, compliance.ErrValidation},
		{"back_to_scheduled", compliance.TaskPatch{Status: ptr(compliance.StatusScheduled)}, nil},
		{"due_before_anchor", compliance.TaskPatch{DueDate: ptr(compliance.NewDate(2023, 6, 1))}, compliance.ErrValidation},
		{"custom_without_interval", compliance.TaskPatch{Cadence: ptr(compliance.CadenceCustom)}, compliance.ErrInvalidCadence},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := h.controller.Update(ctx, task.ID, "bob", test.patch)
			if test.want == nil {
				if err != nil {
					t.Errorf("Update = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, test.want) {
				t.Errorf("Update = %v, want %v", err, test.want)
			}
		})
	}

	if _, err := h.controller.Update(ctx, "missing", "bob", compliance.TaskPatch{Notes: ptr("x")}); !errors.Is(err, compliance.ErrNotFound) {
		t.Errorf("Update(missing) = %v, want ErrNotFound", err)
	}

	if _, err := h.controller.Update(ctx, task.ID, "bob", compliance.TaskPatch{Status: ptr(compliance.StatusInProgress)}); err != nil {
		t.Fatal(err)
	}
	_, err := h.controller.Update(ctx, task.ID, "bob", compliance.TaskPatch{Status: ptr(compliance.StatusScheduled)})
	if !errors.Is(err, compliance.ErrValidation) {
		t.Errorf("IN_PROGRESS → SCHEDULED = %v, want ErrValidation", err)
	}
}

func TestTerminalTaskAcceptsOnlyAnnotations(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	draft := quarterlyDraft()
	draft.AutoSchedule = false
	task := h.create(t, draft)
	if _, err := h.controller.Complete(ctx, task.ID, "alice", CompleteOptions{}); err != nil {
		t.Fatal(err)
	}

	updated, err := h.controller.Update(ctx, task.ID, "alice", compliance.TaskPatch{
		Notes:       ptr("late annotation"),
		EvidenceURL: ptr("https://evidence.example/q1"),
	})
	if err != nil {
		t.Fatalf("annotation update on completed task: %v", err)
	}
	if updated.Notes != "late annotation" || updated.Status != compliance.StatusCompleted {
		t.Errorf("updated = %+v", updated)
	}

	_, err = h.controller.Update(ctx, task.ID, "alice", compliance.TaskPatch{
		Notes:   ptr("sneaky"),
		DueDate: ptr(compliance.NewDate(2024, 2, 1)),
	})
	var domainError *compliance.Error
	if !errors.As(err, &domainError) || domainError.Kind != compliance.KindTaskAlreadyTerminal {
		t.Fatalf("schedule update on completed task = %v, want TaskAlreadyTerminal", err)
	}
	if domainError.Field != compliance.FieldDueDate || domainError.Status != compliance.StatusCompleted {
		t.Errorf("error context = field %q status %q", domainError.Field, domainError.Status)
	}
	got, _ := h.controller.Get(ctx, task.ID)
	if got.Notes != "late annotation" {
		t.Errorf("rejected update partially applied: notes = %q", got.Notes)
	}

	// Restating the terminal status is not a change.
	if _, err := h.controller.Update(ctx, task.ID, "alice", compliance.TaskPatch{Status: ptr(compliance.StatusCompleted)}); err != nil {
		t.Errorf("restating status = %v", err)
	}
}

func TestCompleteTerminalFails(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	task := h.create(t, quarterlyDraft())
	if _, err := h.controller.Cancel(ctx, task.ID, "manager", ""); err != nil {
		t.Fatal(err)
	}
	_, err := h.controller.Complete(ctx, task.ID, "alice", CompleteOptions{})
	if !errors.Is(err, compliance.ErrTaskAlreadyTerminal) {
		t.Fatalf("Complete(cancelled) = %v, want ErrTaskAlreadyTerminal", err)
	}
	if _, err := h.controller.Complete(ctx, "missing", "alice", CompleteOptions{}); !errors.Is(err, compliance.ErrNotFound) {
		t.Errorf("Complete(missing) = %v, want ErrNotFound", err)
	}
}

func TestCompleteAnnualSuccessor(t *testing.T) {
	h := newHarness(t, nil)
	draft := quarterlyDraft()
	draft.Cadence = compliance.CadenceAnnual
	draft.AnchorDate = compliance.NewDate(2024, 3, 1)
	draft.DueDate = compliance.NewDate(2024, 3, 8)
	task := h.create(t, draft)

	result, err := h.controller.Complete(context.Background(), task.ID, "alice", CompleteOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if result.Successor == nil {
		t.Fatal("no successor")
	}
	if !result.Successor.AnchorDate.Equal(compliance.NewDate(2025, 3, 1)) || result.Successor.Status != compliance.StatusScheduled {
		t.Errorf("successor = %s %s", compliance.FormatDate(result.Successor.AnchorDate), result.Successor.Status)
	}
}

func TestCompleteOptions(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	task := h.create(t, quarterlyDraft())

	result, err := h.controller.Complete(ctx, task.ID, "alice", CompleteOptions{
		EvidenceURL:  ptr("https://evidence.example/q1"),
		Notes:        ptr("done"),
		AutoSchedule: ptr(false),
	})
	if err != nil {
		t.Fatal(err)
	}
	if result.Successor != nil {
		t.Errorf("autoSchedule override ignored: successor %s", result.Successor.ID)
	}
	if result.Task.EvidenceURL != "https://evidence.example/q1" || result.Task.Notes != "done" || result.Task.AutoSchedule {
		t.Errorf("merged fields = %+v", result.Task)
	}

	counts := countActions(h.history(t, task.ID))
	if counts[compliance.AuditUpdated] != 3 || counts[compliance.AuditCompleted] != 1 {
		t.Errorf("audit counts = %v", counts)
	}
}

func TestCompleteStopsRunningTimer(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	task := h.create(t, quarterlyDraft())

	if _, err := h.tracker.Start(ctx, task.ID, "alice"); err != nil {
		t.Fatal(err)
	}
	h.clock.Advance(2 * time.Minute)

	result, err := h.controller.Complete(ctx, task.ID, "alice", CompleteOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if result.ClosedSession == nil || result.ClosedSession.DurationSeconds != 120 {
		t.Errorf("ClosedSession = %+v", result.ClosedSession)
	}
	if result.Task.TotalAccruedSeconds != 120 {
		t.Errorf("total = %d, want 120", result.Task.TotalAccruedSeconds)
	}
	if _, err := h.tracker.Stop(ctx, task.ID, timer.StopOptions{}); !errors.Is(err, compliance.ErrNoOpenSession) {
		t.Errorf("Stop after complete = %v, want ErrNoOpenSession", err)
	}
}

func TestSuccessorFailureIsWarning(t *testing.T) {
	h := newHarness(t, failingScheduler{})
	ctx := context.Background()
	task := h.create(t, quarterlyDraft())

	result, err := h.controller.Complete(ctx, task.ID, "alice", CompleteOptions{})
	if err != nil {
		t.Fatalf("Complete = %v, want success with warning", err)
	}
	if result.Successor != nil {
		t.Errorf("successor = %+v, want nil", result.Successor)
	}
	if !strings.Contains(result.Warning, "calendar service unavailable") {
		t.Errorf("Warning = %q", result.Warning)
	}

	got, err := h.controller.Get(ctx, task.ID)
	if err != nil || got.Status != compliance.StatusCompleted {
		t.Errorf("parent after failed successor = %+v, %v", got, err)
	}
	kinds := h.notifier.kinds()
	if kinds[len(kinds)-1] != notify.KindSuccessorFailed {
		t.Errorf("last notification = %s, want %s", kinds[len(kinds)-1], notify.KindSuccessorFailed)
	}
}

func TestConcurrentCompleteSucceedsOnce(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	task := h.create(t, quarterlyDraft())

	var wg sync.WaitGroup
	errs := make(chan error, 6)
	for range 6 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := h.controller.Complete(ctx, task.ID, "alice", CompleteOptions{})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	succeeded := 0
	for err := range errs {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, compliance.ErrTaskAlreadyTerminal):
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	if succeeded != 1 {
		t.Errorf("%d completions succeeded, want 1", succeeded)
	}
	successors, err := h.controller.List(ctx, taskstore.Filter{Statuses: []compliance.Status{compliance.StatusScheduled}})
	if err != nil || len(successors) != 1 {
		t.Errorf("scheduled successors = %d (%v), want 1", len(successors), err)
	}
}

func TestCancel(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	task := h.create(t, quarterlyDraft())
	if _, err := h.tracker.Start(ctx, task.ID, "alice"); err != nil {
		t.Fatal(err)
	}
	h.clock.Advance(45 * time.Second)

	cancelled, err := h.controller.Cancel(ctx, task.ID, "manager", "client offboarded")
	if err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if cancelled.Status != compliance.StatusCancelled || cancelled.TotalAccruedSeconds != 45 {
		t.Errorf("cancelled = %+v", cancelled)
	}
	if !strings.Contains(cancelled.Notes, "client offboarded") {
		t.Errorf("Notes = %q", cancelled.Notes)
	}

	var fields []string
	for _, entry := range h.history(t, task.ID) {
		if entry.Action == compliance.AuditUpdated {
			fields = append(fields, *entry.Field)
		}
	}
	if len(fields) != 2 || fields[0] != compliance.FieldStatus || fields[1] != compliance.FieldNotes {
		t.Errorf("UPDATED fields = %v", fields)
	}

	if _, err := h.controller.Cancel(ctx, task.ID, "manager", ""); !errors.Is(err, compliance.ErrTaskAlreadyTerminal) {
		t.Errorf("second Cancel = %v, want ErrTaskAlreadyTerminal", err)
	}
	if _, err := h.tracker.Start(ctx, task.ID, "alice"); !errors.Is(err, compliance.ErrTaskAlreadyTerminal) {
		t.Errorf("Start on cancelled = %v, want ErrTaskAlreadyTerminal", err)
	}
}

func TestCancelThroughUpdate(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	task := h.create(t, quarterlyDraft())
	if _, err := h.tracker.Start(ctx, task.ID, "alice"); err != nil {
		t.Fatal(err)
	}
	h.clock.Advance(10 * time.Second)

	updated, err := h.controller.Update(ctx, task.ID, "manager", compliance.TaskPatch{Status: ptr(compliance.StatusCancelled)})
	if err != nil {
		t.Fatal(err)
	}
	if updated.Status != compliance.StatusCancelled || updated.TotalAccruedSeconds != 10 {
		t.Errorf("updated = %+v", updated)
	}
	kinds := h.notifier.kinds()
	if kinds[len(kinds)-1] != notify.KindTaskCancelled {
		t.Errorf("last notification = %s", kinds[len(kinds)-1])
	}
}

func TestDeleteKeepsHistory(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	task := h.create(t, quarterlyDraft())
	if _, err := h.tracker.Start(ctx, task.ID, "alice"); err != nil {
		t.Fatal(err)
	}

	if err := h.controller.Delete(ctx, task.ID, "admin"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := h.controller.Get(ctx, task.ID); !errors.Is(err, compliance.ErrNotFound) {
		t.Errorf("Get after delete = %v", err)
	}
	if entries := h.history(t, task.ID); len(entries) != 1 || entries[0].Action != compliance.AuditCreated {
		t.Errorf("history after delete = %+v", entries)
	}
	if _, err := h.tracker.Sessions(ctx, task.ID); !errors.Is(err, compliance.ErrNotFound) {
		t.Errorf("Sessions after delete = %v", err)
	}
	if err := h.controller.Delete(ctx, task.ID, "admin"); !errors.Is(err, compliance.ErrNotFound) {
		t.Errorf("second Delete = %v, want ErrNotFound", err)
	}
}

func TestChain(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	first := h.create(t, quarterlyDraft())

	ids := []string{first.ID}
	current := first.ID
	for range 3 {
		result, err := h.controller.Complete(ctx, current, "alice", CompleteOptions{})
		if err != nil {
			t.Fatal(err)
		}
		current = result.Successor.ID
		ids = append(ids, current)
	}

	wantAnchors := []string{"2024-01-01", "2024-04-01", "2024-07-01", "2024-10-01"}
	for _, from := range []string{ids[0], ids[2], ids[3]} {
		chain, err := h.controller.Chain(ctx, from)
		if err != nil {
			t.Fatalf("Chain(%s): %v", from, err)
		}
		if len(chain) != 4 {
			t.Fatalf("Chain(%s) length = %d, want 4", from, len(chain))
		}
		for i, task := range chain {
			if task.ID != ids[i] || compliance.FormatDate(task.AnchorDate) != wantAnchors[i] {
				t.Errorf("Chain(%s)[%d] = %s %s, want %s %s", from, i,
					task.ID, compliance.FormatDate(task.AnchorDate), ids[i], wantAnchors[i])
			}
		}
	}

	// A deleted link truncates the chain on that side.
	if err := h.controller.Delete(ctx, ids[1], "admin"); err != nil {
		t.Fatal(err)
	}
	chain, err := h.controller.Chain(ctx, ids[3])
	if err != nil {
		t.Fatal(err)
	}
	if len(chain) != 2 || chain[0].ID != ids[2] {
		t.Errorf("chain after delete = %d tasks starting %s", len(chain), chain[0].ID)
	}
}

func TestOverdue(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	late := h.create(t, quarterlyDraft())

	draft := quarterlyDraft()
	draft.DueDate = compliance.NewDate(2024, 2, 1)
	h.create(t, draft)

	done := h.create(t, quarterlyDraft())
	if _, err := h.controller.Cancel(ctx, done.ID, "manager", ""); err != nil {
		t.Fatal(err)
	}

	overdue, err := h.controller.Overdue(ctx, time.Date(2024, 1, 9, 18, 0, 0, 0, time.UTC), 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(overdue) != 1 || overdue[0].ID != late.ID {
		t.Errorf("Overdue = %v, want only %s", overdue, late.ID)
	}

	// Due today is not overdue.
	overdue, _ = h.controller.Overdue(ctx, compliance.NewDate(2024, 1, 8), 0)
	if len(overdue) != 0 {
		t.Errorf("Overdue on due date = %d tasks, want 0", len(overdue))
	}
}
