// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/bureau-foundation/opsdesk/lib/schema/compliance"
)

// WriteTaskTable writes one row per task. Non-terminal tasks due
// before today are flagged overdue.
func WriteTaskTable(w io.Writer, tasks []compliance.Task, today time.Time) error {
	tw := tabwriter.NewWriter(w, 2, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tCLIENT\tCATEGORY\tSTATUS\tDUE\tCADENCE\tASSIGNEE")
	for i := range tasks {
		task := &tasks[i]
		due := compliance.FormatDate(task.DueDate)
		if IsOverdue(task, today) {
			due = OverdueText(due + " !")
		}
		assignee := task.AssignedToID
		if assignee == "" {
			assignee = Muted("-")
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			task.ID, task.ClientID, task.Category, StatusText(task.Status), due, CadenceText(task), assignee)
	}
	return tw.Flush()
}

// WriteTaskDetail writes every field of a task as a label/value list.
func WriteTaskDetail(w io.Writer, task *compliance.Task, today time.Time) error {
	tw := tabwriter.NewWriter(w, 2, 0, 2, ' ', 0)
	row := func(label, value string) {
		if value == "" {
			return
		}
		fmt.Fprintf(tw, "%s\t%s\n", Label(label), value)
	}

	row("ID", task.ID)
	row("Client", task.ClientID)
	row("Category", task.Category)
	status := StatusText(task.Status)
	if IsOverdue(task, today) {
		status += " " + OverdueText(fmt.Sprintf("(%d days overdue)", daysBetween(task.DueDate, today)))
	}
	row("Status", status)
	row("Anchor", compliance.FormatDate(task.AnchorDate))
	row("Due", compliance.FormatDate(task.DueDate))
	row("Cadence", CadenceText(task))
	row("Auto-schedule", fmt.Sprintf("%t", task.AutoSchedule))
	row("Assigned to", task.AssignedToID)
	row("Time accrued", FormatSeconds(task.TotalAccruedSeconds))
	if task.CompletedAt != nil {
		row("Completed", fmt.Sprintf("%s by %s", task.CompletedAt.Format(time.RFC3339), task.CompletedByID))
	}
	row("Evidence", task.EvidenceURL)
	row("Notes", task.Notes)
	row("Predecessor", task.PredecessorTaskID)
	row("Created", task.CreatedAt.Format(time.RFC3339))
	row("Updated", task.UpdatedAt.Format(time.RFC3339))
	return tw.Flush()
}

// CadenceText names the cadence, with the interval for CUSTOM.
func CadenceText(task *compliance.Task) string {
	if task.Cadence == compliance.CadenceCustom {
		return fmt.Sprintf("CUSTOM/%dd", task.CustomIntervalDays)
	}
	return string(task.Cadence)
}

// IsOverdue reports whether a non-terminal task is past its due date.
func IsOverdue(task *compliance.Task, today time.Time) bool {
	return !task.Status.IsTerminal() && task.DueDate.Before(compliance.DateOf(today))
}

// FormatSeconds renders an accrued duration as hours and minutes.
func FormatSeconds(seconds int64) string {
	duration := time.Duration(seconds) * time.Second
	hours := int64(duration / time.Hour)
	minutes := int64((duration % time.Hour) / time.Minute)
	switch {
	case hours > 0:
		return fmt.Sprintf("%dh%02dm", hours, minutes)
	case minutes > 0:
		return fmt.Sprintf("%dm%02ds", minutes, seconds%60)
	}
	return fmt.Sprintf("%ds", seconds)
}

func daysBetween(from, to time.Time) int {
	return int(compliance.DateOf(to).Sub(compliance.DateOf(from)).Hours() / 24)
}
