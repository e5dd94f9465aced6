// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package task

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"text/tabwriter"
	"time"

	"github.com/bureau-foundation/opsdesk/cmd/opsdesk/cli"
	"github.com/bureau-foundation/opsdesk/lib/schema/compliance"
)

// --- show ---

type showParams struct {
	cli.Connection
	cli.JSONOutput
}

func showCommand() *cli.Command {
	var params showParams

	return &cli.Command{
		Name:    "show",
		Summary: "Show a task and its timer sessions",
		Usage:   "opsdesk task show <task-id> [flags]",
		Examples: []cli.Example{
			{
				Description: "Show as JSON",
				Command:     "opsdesk task show 7c9e6679 --json",
			},
		},
		Params: func() any { return &params },
		Run: func(ctx context.Context, args []string, _ *slog.Logger) error {
			taskID, err := requireTaskID(args)
			if err != nil {
				return err
			}

			var result showResult
			if err := params.Call(ctx, "show", map[string]any{"task_id": taskID}, &result); err != nil {
				return err
			}
			if done, err := params.EmitJSON(result); done {
				return err
			}

			if err := cli.WriteTaskDetail(os.Stdout, result.Task, today()); err != nil {
				return err
			}
			if len(result.Sessions) > 0 {
				fmt.Println()
				return writeSessionTable(os.Stdout, result.Sessions)
			}
			return nil
		},
	}
}

// --- list ---

type listParams struct {
	cli.Connection
	cli.JSONOutput
	Client       string   `flag:"client,c"        desc:"filter by client ID"`
	Assignee     string   `flag:"assignee,a"      desc:"filter by assignee"`
	Category     string   `flag:"category"        desc:"filter by category"`
	Status       []string `flag:"status,s"        desc:"filter by status (repeatable or comma-separated)"`
	DueBefore    string   `flag:"due-before"      desc:"only tasks due before this date"`
	DueOnOrAfter string   `flag:"due-on-or-after" desc:"only tasks due on or after this date"`
	Open         bool     `flag:"open"            desc:"shorthand for --status SCHEDULED,IN_PROGRESS"`
	Limit        int      `flag:"limit,n"         desc:"maximum number of tasks (0 for no limit)"`
}

func (p *listParams) fields() map[string]any {
	fields := map[string]any{}
	setIfNonEmpty(fields, "client_id", p.Client)
	setIfNonEmpty(fields, "assigned_to_id", p.Assignee)
	setIfNonEmpty(fields, "category", p.Category)
	setIfNonEmpty(fields, "due_before", p.DueBefore)
	setIfNonEmpty(fields, "due_on_or_after", p.DueOnOrAfter)
	statuses := p.Status
	if p.Open {
		statuses = append(statuses, string(compliance.StatusScheduled), string(compliance.StatusInProgress))
	}
	if len(statuses) > 0 {
		fields["statuses"] = statuses
	}
	if p.Limit > 0 {
		fields["limit"] = p.Limit
	}
	return fields
}

func listCommand() *cli.Command {
	var params listParams

	return &cli.Command{
		Name:    "list",
		Summary: "List tasks with optional filters",
		Description: `Query tasks with optional filters. All filters use AND semantics.

Results are sorted by due date, earliest first. Tasks past their due
date that are not yet COMPLETED or CANCELLED are marked with "!".`,
		Usage: "opsdesk task list [flags]",
		Examples: []cli.Example{
			{
				Description: "Open tasks for a client",
				Command:     "opsdesk task list --client acme --open",
			},
			{
				Description: "Everything due in March",
				Command:     "opsdesk task list --due-on-or-after 2024-03-01 --due-before 2024-04-01",
			},
		},
		Params: func() any { return &params },
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			if len(args) > 0 {
				return cli.Validation("unexpected argument: %s", args[0])
			}

			var tasks []compliance.Task
			if err := params.Call(ctx, "list", params.fields(), &tasks); err != nil {
				return err
			}
			if done, err := params.EmitJSON(tasks); done {
				return err
			}
			if len(tasks) == 0 {
				logger.Info("no tasks found")
				return nil
			}
			return cli.WriteTaskTable(os.Stdout, tasks, today())
		},
	}
}

// --- history ---

type historyParams struct {
	cli.Connection
	cli.JSONOutput
}

func historyCommand() *cli.Command {
	var params historyParams

	return &cli.Command{
		Name:    "history",
		Summary: "Show a task's audit history",
		Description: `Show every recorded change to a task, oldest first. History remains
available after the task is deleted.`,
		Usage:  "opsdesk task history <task-id> [flags]",
		Params: func() any { return &params },
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			taskID, err := requireTaskID(args)
			if err != nil {
				return err
			}

			var entries []compliance.AuditEntry
			if err := params.Call(ctx, "history", map[string]any{"task_id": taskID}, &entries); err != nil {
				return err
			}
			if done, err := params.EmitJSON(entries); done {
				return err
			}
			if len(entries) == 0 {
				logger.Info("no history recorded", "task_id", taskID)
				return nil
			}
			return writeHistoryTable(os.Stdout, entries)
		},
	}
}

// --- chain ---

type chainParams struct {
	cli.Connection
	cli.JSONOutput
}

func chainCommand() *cli.Command {
	var params chainParams

	return &cli.Command{
		Name:    "chain",
		Summary: "Show the recurrence chain a task belongs to",
		Description: `Show every task in the task's recurrence chain, from the original task
through each auto-scheduled successor.`,
		Usage:  "opsdesk task chain <task-id> [flags]",
		Params: func() any { return &params },
		Run: func(ctx context.Context, args []string, _ *slog.Logger) error {
			taskID, err := requireTaskID(args)
			if err != nil {
				return err
			}

			var tasks []compliance.Task
			if err := params.Call(ctx, "chain", map[string]any{"task_id": taskID}, &tasks); err != nil {
				return err
			}
			if done, err := params.EmitJSON(tasks); done {
				return err
			}
			return cli.WriteTaskTable(os.Stdout, tasks, today())
		},
	}
}

func writeSessionTable(w io.Writer, sessions []compliance.TimerSession) error {
	tw := tabwriter.NewWriter(w, 2, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SESSION\tUSER\tSTARTED\tDURATION")
	for i := range sessions {
		session := &sessions[i]
		duration := cli.WarningText("running")
		if session.DurationSeconds != nil {
			duration = cli.FormatSeconds(*session.DurationSeconds)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
			session.ID, session.UserID, session.StartTime.Format(time.RFC3339), duration)
	}
	return tw.Flush()
}

func writeHistoryTable(w io.Writer, entries []compliance.AuditEntry) error {
	tw := tabwriter.NewWriter(w, 2, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TIME\tACTOR\tACTION\tCHANGE")
	for i := range entries {
		entry := &entries[i]
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
			entry.Timestamp.Format(time.RFC3339), entry.ActorID, entry.Action, describeChange(entry))
	}
	return tw.Flush()
}

// describeChange renders an audit entry's change. UPDATED entries show
// field: old -> new; others show their summary.
func describeChange(entry *compliance.AuditEntry) string {
	value := func(v *string) string {
		if v == nil {
			return cli.Muted("(none)")
		}
		return fmt.Sprintf("%q", *v)
	}
	if entry.Field == nil {
		if entry.NewValue != nil {
			return *entry.NewValue
		}
		return ""
	}
	return fmt.Sprintf("%s: %s -> %s", *entry.Field, value(entry.OldValue), value(entry.NewValue))
}
