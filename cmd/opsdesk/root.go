// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/bureau-foundation/opsdesk/cmd/opsdesk/cli"
	overduecmd "github.com/bureau-foundation/opsdesk/cmd/opsdesk/overdue"
	taskcmd "github.com/bureau-foundation/opsdesk/cmd/opsdesk/task"
	timercmd "github.com/bureau-foundation/opsdesk/cmd/opsdesk/timer"
	"github.com/bureau-foundation/opsdesk/lib/version"
)

// Root builds the complete opsdesk command tree.
func Root() *cli.Command {
	return &cli.Command{
		Name: "opsdesk",
		Description: `opsdesk: recurring compliance task tracking.

Schedule access reviews and audits per client, track time against
them, and keep each recurrence on its cadence.`,
		Subcommands: []*cli.Command{
			taskcmd.Command(),
			timercmd.Command(),
			overduecmd.Command(),
			statusCommand(),
			{
				Name:    "version",
				Summary: "Print version information",
				Run: func(_ context.Context, args []string, _ *slog.Logger) error {
					fmt.Printf("opsdesk %s\n", version.Full())
					return nil
				},
			},
		},
		Examples: []cli.Example{
			{
				Description: "Open tasks for one client",
				Command:     "opsdesk task list --client acme --open",
			},
			{
				Description: "Everything past due",
				Command:     "opsdesk overdue",
			},
		},
	}
}

// statusResult mirrors the service's "status" response.
type statusResult struct {
	Version              string     `json:"version"`
	UptimeSeconds        float64    `json:"uptime_seconds"`
	NotificationsDropped int64      `json:"notifications_dropped"`
	LastSweep            *time.Time `json:"last_sweep,omitempty"`
}

type statusParams struct {
	cli.Connection
	cli.JSONOutput
}

func statusCommand() *cli.Command {
	var params statusParams

	return &cli.Command{
		Name:    "status",
		Summary: "Check that the compliance service is running",
		Description: `Report the service's version, uptime, and last overdue sweep. Needs
no identity, so it works as a liveness probe.`,
		Usage:  "opsdesk status [flags]",
		Params: func() any { return &params },
		Run: func(ctx context.Context, args []string, _ *slog.Logger) error {
			// status is open, but the connection still wants a
			// well-formed caller.
			if params.Actor == "" {
				params.Actor = "anonymous"
			}

			var status statusResult
			if err := params.Call(ctx, "status", nil, &status); err != nil {
				return err
			}
			if done, err := params.EmitJSON(status); done {
				return err
			}

			fmt.Printf("%s %s\n", cli.Label("Version:"), status.Version)
			fmt.Printf("%s %s\n", cli.Label("Uptime: "), (time.Duration(status.UptimeSeconds) * time.Second).String())
			if status.LastSweep != nil {
				fmt.Printf("%s %s\n", cli.Label("Sweep:  "), status.LastSweep.Format(time.RFC3339))
			} else {
				fmt.Printf("%s %s\n", cli.Label("Sweep:  "), cli.Muted("never"))
			}
			if status.NotificationsDropped > 0 {
				fmt.Println(cli.WarningText(fmt.Sprintf("%d notifications dropped", status.NotificationsDropped)))
			}
			return nil
		},
	}
}
