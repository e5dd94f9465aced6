// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package task

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/bureau-foundation/opsdesk/cmd/opsdesk/cli"
	"github.com/bureau-foundation/opsdesk/lib/schema/compliance"
)

// --- create ---

type createParams struct {
	cli.Connection
	cli.JSONOutput
	Client       string `flag:"client,c"      desc:"client ID (required)"`
	Category     string `flag:"category"      desc:"framework or audit type, e.g. \"SOC 2\" (required)"`
	Anchor       string `flag:"anchor"        desc:"anchor date YYYY-MM-DD (required)"`
	Due          string `flag:"due"           desc:"due date YYYY-MM-DD (default: anchor plus the grace window)"`
	Cadence      string `flag:"cadence"       desc:"QUARTERLY, SEMI_ANNUAL, ANNUAL, or CUSTOM (required)"`
	Interval     int    `flag:"interval"      desc:"recurrence period in days for CUSTOM cadence"`
	Assignee     string `flag:"assignee,a"    desc:"actor responsible for the task"`
	AutoSchedule bool   `flag:"auto-schedule" desc:"create the next task when this one completes"`
	EvidenceURL  string `flag:"evidence-url"  desc:"link to supporting evidence"`
	Notes        string `flag:"notes"         desc:"free-form notes"`
}

func createCommand() *cli.Command {
	var params createParams

	return &cli.Command{
		Name:    "create",
		Summary: "Create a compliance task",
		Description: `Create a SCHEDULED compliance task for a client.

The anchor date is the date the task's work covers and seeds the next
recurrence. The due date defaults to the anchor date plus the service's
grace window and must not be earlier than the anchor.`,
		Usage: "opsdesk task create --client ID --category NAME --anchor DATE --cadence CADENCE [flags]",
		Examples: []cli.Example{
			{
				Description: "Quarterly access review that reschedules itself",
				Command:     "opsdesk task create --client acme --category 'Access review' --anchor 2024-01-01 --cadence quarterly --auto-schedule --role manager",
			},
			{
				Description: "Audit every 45 days with an explicit due date",
				Command:     "opsdesk task create --client acme --category 'PCI scan' --anchor 2024-02-01 --due 2024-02-10 --cadence custom --interval 45 --role manager",
			},
		},
		Params: func() any { return &params },
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			if len(args) > 0 {
				return cli.Validation("unexpected argument: %s", args[0])
			}
			required := []struct{ flag, value string }{
				{"--client", params.Client},
				{"--category", params.Category},
				{"--anchor", params.Anchor},
				{"--cadence", params.Cadence},
			}
			for _, field := range required {
				if field.value == "" {
					return cli.Validation("%s is required", field.flag)
				}
			}

			fields := map[string]any{
				"client_id":     params.Client,
				"category":      params.Category,
				"anchor_date":   params.Anchor,
				"cadence":       params.Cadence,
				"auto_schedule": params.AutoSchedule,
			}
			setIfNonEmpty(fields, "due_date", params.Due)
			setIfNonEmpty(fields, "assigned_to_id", params.Assignee)
			setIfNonEmpty(fields, "evidence_url", params.EvidenceURL)
			setIfNonEmpty(fields, "notes", params.Notes)
			if params.Interval != 0 {
				fields["custom_interval_days"] = params.Interval
			}

			var task compliance.Task
			if err := params.Call(ctx, "create", fields, &task); err != nil {
				return err
			}
			if done, err := params.EmitJSON(task); done {
				return err
			}
			logger.Info("task created", "task_id", task.ID, "due", compliance.FormatDate(task.DueDate))
			return cli.WriteTaskDetail(os.Stdout, &task, today())
		},
	}
}

// --- update ---

type updateParams struct {
	cli.Connection
	cli.JSONOutput
	Category     cli.OptionalString `flag:"category"      desc:"new category"`
	Anchor       cli.OptionalString `flag:"anchor"        desc:"new anchor date YYYY-MM-DD"`
	Due          cli.OptionalString `flag:"due"           desc:"new due date YYYY-MM-DD"`
	Cadence      cli.OptionalString `flag:"cadence"       desc:"new cadence"`
	Interval     cli.OptionalInt    `flag:"interval"      desc:"new CUSTOM interval in days"`
	Status       cli.OptionalString `flag:"status"        desc:"IN_PROGRESS or CANCELLED"`
	Assignee     cli.OptionalString `flag:"assignee,a"    desc:"new assignee (empty string clears)"`
	AutoSchedule cli.OptionalBool   `flag:"auto-schedule" desc:"create the next task on completion"`
	EvidenceURL  cli.OptionalString `flag:"evidence-url"  desc:"new evidence link"`
	Notes        cli.OptionalString `flag:"notes"         desc:"replace notes"`
}

// fields returns the update body with only the given flags.
func (p *updateParams) fields(taskID string) map[string]any {
	fields := map[string]any{"task_id": taskID}
	for key, value := range map[string]cli.OptionalString{
		"category":       p.Category,
		"anchor_date":    p.Anchor,
		"due_date":       p.Due,
		"cadence":        p.Cadence,
		"status":         p.Status,
		"assigned_to_id": p.Assignee,
		"evidence_url":   p.EvidenceURL,
		"notes":          p.Notes,
	} {
		if value.Given {
			fields[key] = value.Value
		}
	}
	if p.Interval.Given {
		fields["custom_interval_days"] = p.Interval.Value
	}
	if p.AutoSchedule.Given {
		fields["auto_schedule"] = p.AutoSchedule.Value
	}
	return fields
}

func updateCommand() *cli.Command {
	var params updateParams

	return &cli.Command{
		Name:    "update",
		Summary: "Change fields of a task",
		Description: `Apply a partial update. Only the flags given are changed; each change
is recorded in the task's audit history.

Status may be set to IN_PROGRESS or CANCELLED here. Use
'opsdesk task complete' to complete a task. Once a task is COMPLETED
or CANCELLED only --notes and --evidence-url may change.`,
		Usage: "opsdesk task update <task-id> [flags]",
		Examples: []cli.Example{
			{
				Description: "Start work and assign",
				Command:     "opsdesk task update 7c9e6679 --status in_progress --assignee eli --role manager",
			},
			{
				Description: "Clear the assignee",
				Command:     "opsdesk task update 7c9e6679 --assignee '' --role manager",
			},
		},
		Params: func() any { return &params },
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			taskID, err := requireTaskID(args)
			if err != nil {
				return err
			}
			fields := params.fields(taskID)
			if len(fields) == 1 {
				return cli.Validation("nothing to update: pass at least one field flag")
			}

			var task compliance.Task
			if err := params.Call(ctx, "update", fields, &task); err != nil {
				return err
			}
			if done, err := params.EmitJSON(task); done {
				return err
			}
			logger.Info("task updated", "task_id", task.ID, "fields", len(fields)-1)
			return cli.WriteTaskDetail(os.Stdout, &task, today())
		},
	}
}

// --- complete ---

type completeParams struct {
	cli.Connection
	cli.JSONOutput
	EvidenceURL  cli.OptionalString `flag:"evidence-url"  desc:"link to supporting evidence"`
	Notes        cli.OptionalString `flag:"notes"         desc:"completion notes"`
	AutoSchedule cli.OptionalBool   `flag:"auto-schedule" desc:"override whether a successor is created"`
}

func completeCommand() *cli.Command {
	var params completeParams

	return &cli.Command{
		Name:    "complete",
		Summary: "Complete a task",
		Description: `Mark a task COMPLETED. A running timer on the task is stopped first.

If the task has auto-schedule set, its successor is created with the
next anchor date for its cadence. When the successor cannot be created
the completion still stands and a warning is printed.`,
		Usage: "opsdesk task complete <task-id> [flags]",
		Examples: []cli.Example{
			{
				Description: "Complete with evidence",
				Command:     "opsdesk task complete 7c9e6679 --evidence-url https://drive.example/q1-review --role manager",
			},
		},
		Params: func() any { return &params },
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			taskID, err := requireTaskID(args)
			if err != nil {
				return err
			}
			fields := map[string]any{"task_id": taskID}
			if params.EvidenceURL.Given {
				fields["evidence_url"] = params.EvidenceURL.Value
			}
			if params.Notes.Given {
				fields["notes"] = params.Notes.Value
			}
			if params.AutoSchedule.Given {
				fields["auto_schedule"] = params.AutoSchedule.Value
			}

			var result completeResult
			response, err := params.Do(ctx, "complete", fields, &result)
			if err != nil {
				return err
			}
			if response.Warning != "" {
				fmt.Fprintln(os.Stderr, cli.WarningText("warning: "+response.Warning))
			}
			if done, err := params.EmitJSON(result); done {
				return err
			}

			logger.Info("task completed", "task_id", taskID)
			fmt.Printf("Completed %s (%s for %s)\n", result.Task.ID, result.Task.Category, result.Task.ClientID)
			if result.ClosedSession != nil {
				fmt.Printf("Stopped running timer: %s (total %s)\n",
					cli.FormatSeconds(result.ClosedSession.DurationSeconds),
					cli.FormatSeconds(result.ClosedSession.NewTotal))
			}
			if result.Successor != nil {
				fmt.Printf("Scheduled successor %s: anchor %s, due %s\n",
					result.Successor.ID,
					compliance.FormatDate(result.Successor.AnchorDate),
					compliance.FormatDate(result.Successor.DueDate))
			}
			return nil
		},
	}
}

// --- cancel ---

type cancelParams struct {
	cli.Connection
	cli.JSONOutput
	Reason string `flag:"reason,r" desc:"why the task is cancelled (appended to notes)"`
}

func cancelCommand() *cli.Command {
	var params cancelParams

	return &cli.Command{
		Name:    "cancel",
		Summary: "Cancel a task",
		Description: `Mark a task CANCELLED. A running timer on the task is stopped first.
Cancelled tasks never create a successor.`,
		Usage: "opsdesk task cancel <task-id> [flags]",
		Examples: []cli.Example{
			{
				Description: "Cancel with a reason",
				Command:     "opsdesk task cancel 7c9e6679 --reason 'client offboarded' --role manager",
			},
		},
		Params: func() any { return &params },
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			taskID, err := requireTaskID(args)
			if err != nil {
				return err
			}
			fields := map[string]any{"task_id": taskID}
			setIfNonEmpty(fields, "reason", params.Reason)

			var task compliance.Task
			if err := params.Call(ctx, "cancel", fields, &task); err != nil {
				return err
			}
			if done, err := params.EmitJSON(task); done {
				return err
			}
			logger.Info("task cancelled", "task_id", task.ID)
			fmt.Printf("Cancelled %s (%s for %s)\n", task.ID, task.Category, task.ClientID)
			return nil
		},
	}
}

// --- delete ---

type deleteParams struct {
	cli.Connection
	cli.JSONOutput
	Yes bool `flag:"yes,y" desc:"confirm deletion"`
}

func deleteCommand() *cli.Command {
	var params deleteParams

	return &cli.Command{
		Name:    "delete",
		Summary: "Delete a task",
		Description: `Permanently delete a task and its timer sessions. The task's audit
history is kept and stays readable with 'opsdesk task history'.

Requires --yes.`,
		Usage: "opsdesk task delete <task-id> --yes [flags]",
		Params: func() any { return &params },
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			taskID, err := requireTaskID(args)
			if err != nil {
				return err
			}
			if !params.Yes {
				return cli.Validation("refusing to delete %s without --yes", taskID)
			}

			var result deleteResult
			if err := params.Call(ctx, "delete", map[string]any{"task_id": taskID}, &result); err != nil {
				return err
			}
			if done, err := params.EmitJSON(result); done {
				return err
			}
			logger.Info("task deleted", "task_id", taskID)
			fmt.Printf("Deleted %s\n", taskID)
			return nil
		},
	}
}

// requireTaskID returns the single positional task ID.
func requireTaskID(args []string) (string, error) {
	switch len(args) {
	case 0:
		return "", cli.Validation("task ID required")
	case 1:
		return args[0], nil
	}
	return "", cli.Validation("expected one task ID, got %d arguments", len(args))
}

func setIfNonEmpty(fields map[string]any, key, value string) {
	if value != "" {
		fields[key] = value
	}
}
