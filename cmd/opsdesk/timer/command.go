// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package timer implements "opsdesk timer": starting and stopping the
// time-tracking session on a task. One session per task may be open
// at a time, and stopping it adds its duration to the task's total.
package timer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/bureau-foundation/opsdesk/cmd/opsdesk/cli"
	"github.com/bureau-foundation/opsdesk/lib/schema/compliance"
)

// stopResult mirrors the service's "timer-stop" response.
type stopResult struct {
	Session         compliance.TimerSession `json:"session"`
	DurationSeconds int64                   `json:"duration_seconds"`
	NewTotal        int64                   `json:"new_total"`
}

// Command returns the "timer" subcommand group.
func Command() *cli.Command {
	return &cli.Command{
		Name:    "timer",
		Summary: "Track time against a task",
		Description: `Start and stop the timer on a compliance task.

A task has at most one running timer. Stopping it records the session
and adds its duration to the task's accrued time. Completing or
cancelling a task stops its timer automatically.`,
		Subcommands: []*cli.Command{
			startCommand(),
			stopCommand(),
		},
	}
}

type startParams struct {
	cli.Connection
	cli.JSONOutput
}

func startCommand() *cli.Command {
	var params startParams

	return &cli.Command{
		Name:    "start",
		Summary: "Start the timer on a task",
		Description: `Open a timer session on a task for the calling actor. Fails if the
task already has a running timer or is COMPLETED or CANCELLED.`,
		Usage:  "opsdesk timer start <task-id> [flags]",
		Params: func() any { return &params },
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			if len(args) != 1 {
				return cli.Validation("expected one task ID")
			}

			var session compliance.TimerSession
			if err := params.Call(ctx, "timer-start", map[string]any{"task_id": args[0]}, &session); err != nil {
				return err
			}
			if done, err := params.EmitJSON(session); done {
				return err
			}
			logger.Info("timer started", "task_id", args[0], "session_id", session.ID)
			fmt.Printf("Timer running on %s since %s\n", args[0], session.StartTime.Format(time.RFC3339))
			return nil
		},
	}
}

type stopParams struct {
	cli.Connection
	cli.JSONOutput
	Elapsed time.Duration `flag:"elapsed" desc:"record this duration instead of the wall-clock time since start"`
}

func stopCommand() *cli.Command {
	var params stopParams

	return &cli.Command{
		Name:    "stop",
		Summary: "Stop the running timer on a task",
		Description: `Close the task's running timer session and add its duration to the
task's accrued time. Durations are whole seconds, at least one.

--elapsed overrides the measured duration, for a timer that was left
running by mistake.`,
		Usage: "opsdesk timer stop <task-id> [flags]",
		Examples: []cli.Example{
			{
				Description: "Record 45 minutes regardless of when the timer started",
				Command:     "opsdesk timer stop 7c9e6679 --elapsed 45m",
			},
		},
		Params: func() any { return &params },
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			if len(args) != 1 {
				return cli.Validation("expected one task ID")
			}
			if params.Elapsed < 0 {
				return cli.Validation("--elapsed must not be negative")
			}

			fields := map[string]any{"task_id": args[0]}
			if params.Elapsed > 0 {
				fields["elapsed_seconds"] = int64(params.Elapsed / time.Second)
			}

			var result stopResult
			if err := params.Call(ctx, "timer-stop", fields, &result); err != nil {
				return err
			}
			if done, err := params.EmitJSON(result); done {
				return err
			}
			logger.Info("timer stopped", "task_id", args[0], "duration_seconds", result.DurationSeconds)
			fmt.Printf("Recorded %s on %s (total %s)\n",
				cli.FormatSeconds(result.DurationSeconds), args[0], cli.FormatSeconds(result.NewTotal))
			return nil
		},
	}
}
