// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package overdue implements "opsdesk overdue": listing tasks past
// their due date and, for managers, sending reminders for them.
package overdue

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"

	"github.com/bureau-foundation/opsdesk/cmd/opsdesk/cli"
	"github.com/bureau-foundation/opsdesk/lib/schema/compliance"
)

// entry and result mirror the service's "overdue" response.
type entry struct {
	Task        compliance.Task `json:"task"`
	DaysOverdue int             `json:"days_overdue"`
}

type result struct {
	Today    string  `json:"today"`
	Notified bool    `json:"notified"`
	Tasks    []entry `json:"tasks"`
}

type overdueParams struct {
	cli.Connection
	cli.JSONOutput
	Notify   bool `flag:"notify"    desc:"send an overdue reminder for each task (manager or admin)"`
	ExitCode bool `flag:"exit-code" desc:"exit 1 when any task is overdue"`
}

// Command returns the "overdue" command.
func Command() *cli.Command {
	var params overdueParams

	return &cli.Command{
		Name:    "overdue",
		Summary: "List overdue tasks",
		Description: `List SCHEDULED and IN_PROGRESS tasks whose due date has passed,
most overdue first.

With --notify the service also publishes a reminder for each task, as
its scheduled sweep does. --exit-code makes the command usable as a
check in scripts.`,
		Usage: "opsdesk overdue [flags]",
		Examples: []cli.Example{
			{
				Description: "Fail a cron job when anything is overdue",
				Command:     "opsdesk overdue --exit-code",
			},
			{
				Description: "Send reminders now",
				Command:     "opsdesk overdue --notify --role manager",
			},
		},
		Params: func() any { return &params },
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			if len(args) > 0 {
				return cli.Validation("unexpected argument: %s", args[0])
			}

			fields := map[string]any{}
			if params.Notify {
				fields["notify"] = true
			}

			var report result
			if err := params.Call(ctx, "overdue", fields, &report); err != nil {
				return err
			}
			if done, err := params.EmitJSON(report); done {
				if err == nil && params.ExitCode && len(report.Tasks) > 0 {
					return &cli.ExitError{Code: 1}
				}
				return err
			}

			if len(report.Tasks) == 0 {
				logger.Info("no overdue tasks", "today", report.Today)
				return nil
			}

			tw := tabwriter.NewWriter(os.Stdout, 2, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tCLIENT\tCATEGORY\tSTATUS\tDUE\tLATE\tASSIGNEE")
			for i := range report.Tasks {
				task := &report.Tasks[i].Task
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
					task.ID, task.ClientID, task.Category, cli.StatusText(task.Status),
					compliance.FormatDate(task.DueDate),
					cli.OverdueText(fmt.Sprintf("%dd", report.Tasks[i].DaysOverdue)),
					task.AssignedToID)
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			if report.Notified {
				logger.Info("reminders sent", "count", len(report.Tasks))
			}
			if params.ExitCode {
				return &cli.ExitError{Code: 1}
			}
			return nil
		},
	}
}
