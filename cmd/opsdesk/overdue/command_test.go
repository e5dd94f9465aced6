// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package overdue

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bureau-foundation/opsdesk/cmd/opsdesk/cli"
	"github.com/bureau-foundation/opsdesk/lib/codec"
	"github.com/bureau-foundation/opsdesk/lib/schema/compliance"
	"github.com/bureau-foundation/opsdesk/lib/service"
	"github.com/bureau-foundation/opsdesk/lib/service/servicetest"
	"github.com/bureau-foundation/opsdesk/lib/testutil"
)

// serve answers "overdue" with report and forwards each request body
// to the returned channel.
func serve(t *testing.T, report result) (string, <-chan map[string]any) {
	t.Helper()
	server, socketPath := servicetest.NewServer(t)
	received := make(chan map[string]any, 4)
	server.HandleAuth("overdue", func(_ context.Context, _ service.Caller, raw []byte) (any, error) {
		body := map[string]any{}
		if err := codec.Unmarshal(raw, &body); err != nil {
			return nil, err
		}
		received <- body
		return report, nil
	})
	servicetest.Serve(t, server, socketPath)
	return socketPath, received
}

func run(socketPath string, extra ...string) error {
	args := append([]string{"--socket", socketPath, "--actor", "mia", "--role", "manager", "--json"}, extra...)
	return Command().ExecuteContext(context.Background(), args, testutil.Logger())
}

func TestExitCodeOnlyWhenOverdue(t *testing.T) {
	late := result{
		Today: "2024-02-01",
		Tasks: []entry{{
			Task:        compliance.Task{ID: "task-1", DueDate: compliance.NewDate(2024, time.January, 8)},
			DaysOverdue: 24,
		}},
	}
	socketPath, _ := serve(t, late)

	err := run(socketPath, "--exit-code")
	var exitErr *cli.ExitError
	if !errors.As(err, &exitErr) || exitErr.Code != 1 {
		t.Fatalf("error = %v, want exit code 1", err)
	}
	if err := run(socketPath); err != nil {
		t.Errorf("without --exit-code: %v", err)
	}

	quietPath, _ := serve(t, result{Today: "2024-02-01", Tasks: []entry{}})
	if err := run(quietPath, "--exit-code"); err != nil {
		t.Errorf("nothing overdue: %v", err)
	}
}

func TestNotifyFlag(t *testing.T) {
	socketPath, received := serve(t, result{Today: "2024-02-01", Notified: true, Tasks: []entry{}})

	if err := run(socketPath); err != nil {
		t.Fatalf("overdue: %v", err)
	}
	body := testutil.RequireReceive(t, received, 5*time.Second, "first request")
	if _, ok := body["notify"]; ok {
		t.Error("notify sent without --notify")
	}

	if err := run(socketPath, "--notify"); err != nil {
		t.Fatalf("overdue --notify: %v", err)
	}
	body = testutil.RequireReceive(t, received, 5*time.Second, "second request")
	if body["notify"] != true {
		t.Errorf("notify = %v, want true", body["notify"])
	}
}
