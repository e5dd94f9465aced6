// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package task

import "github.com/bureau-foundation/opsdesk/cmd/opsdesk/cli"

// Command returns the "task" subcommand group.
func Command() *cli.Command {
	return &cli.Command{
		Name:    "task",
		Summary: "Create and manage compliance tasks",
		Description: `Create and manage recurring compliance tasks.

A task is an access review or audit owed to a client by a due date.
Tasks start SCHEDULED, may move to IN_PROGRESS, and end COMPLETED or
CANCELLED. Completing a task with auto-schedule set creates its
successor for the next cadence period.

Changing a task requires --role manager or --role admin. Viewing is
open to every role.`,
		Subcommands: []*cli.Command{
			createCommand(),
			updateCommand(),
			completeCommand(),
			cancelCommand(),
			deleteCommand(),
			showCommand(),
			listCommand(),
			historyCommand(),
			chainCommand(),
		},
	}
}
