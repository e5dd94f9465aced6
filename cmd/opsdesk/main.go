// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/bureau-foundation/opsdesk/cmd/opsdesk/cli"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	cli.ConfigureColor()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err := Root().ExecuteContext(ctx, args, cli.NewCommandLogger())
	if err == nil {
		return 0
	}

	// Commands that print their own output return an ExitError with
	// the desired exit code. Don't print a redundant "error:" line.
	var exitErr *cli.ExitError
	if !errors.As(err, &exitErr) {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		var toolErr *cli.ToolError
		if errors.As(err, &toolErr) && toolErr.Hint != "" {
			fmt.Fprintf(os.Stderr, "\n%s\n", toolErr.Hint)
		}
	}
	return cli.ExitCodeFor(err)
}
