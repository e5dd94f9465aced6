// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"errors"
	"fmt"
	"net"
	"os"
	"syscall"
	"testing"

	"github.com/bureau-foundation/opsdesk/lib/schema/compliance"
	"github.com/bureau-foundation/opsdesk/lib/service"
)

func TestExitCodeFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "nil", err: nil, want: 0},
		{name: "plain error", err: errors.New("boom"), want: 1},
		{name: "exit error", err: &ExitError{Code: 7}, want: 7},
		{name: "wrapped exit error", err: fmt.Errorf("overdue: %w", &ExitError{Code: 1}), want: 1},
		{name: "validation", err: Validation("bad input"), want: 2},
		{name: "not found", err: NotFound("no task"), want: 3},
		{name: "forbidden", err: Forbidden("no"), want: 4},
		{name: "conflict", err: Conflict("terminal"), want: 5},
		{name: "transient", err: Transient("later"), want: 6},
		{name: "internal", err: Internal("bug"), want: 1},
		{
			name: "raw service error",
			err:  &service.ServiceError{Action: "show", Kind: string(compliance.KindNotFound), Message: "task x not found"},
			want: 3,
		},
		{
			name: "storage service error",
			err:  &service.ServiceError{Action: "create", Kind: string(compliance.KindStorage), Message: "disk full"},
			want: 1,
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if got := ExitCodeFor(test.err); got != test.want {
				t.Errorf("ExitCodeFor(%v) = %d, want %d", test.err, got, test.want)
			}
		})
	}
}

func TestFromServiceError(t *testing.T) {
	tests := []struct {
		kind     string
		category ErrorCategory
		hinted   bool
	}{
		{kind: string(compliance.KindValidation), category: CategoryValidation},
		{kind: string(compliance.KindInvalidCadence), category: CategoryValidation},
		{kind: service.KindInvalidRequest, category: CategoryValidation},
		{kind: string(compliance.KindNotFound), category: CategoryNotFound},
		{kind: service.KindForbidden, category: CategoryForbidden, hinted: true},
		{kind: service.KindUnauthenticated, category: CategoryForbidden, hinted: true},
		{kind: string(compliance.KindTaskAlreadyTerminal), category: CategoryConflict},
		{kind: string(compliance.KindSessionAlreadyOpen), category: CategoryConflict},
		{kind: string(compliance.KindNoOpenSession), category: CategoryConflict, hinted: true},
		{kind: service.KindThrottled, category: CategoryTransient, hinted: true},
		{kind: string(compliance.KindStorage), category: CategoryInternal},
		{kind: service.KindInternal, category: CategoryInternal},
	}
	for _, test := range tests {
		t.Run(test.kind, func(t *testing.T) {
			serviceErr := &service.ServiceError{Action: "test", Kind: test.kind, Message: "failed"}
			err := FromServiceError(serviceErr)

			var toolErr *ToolError
			if !errors.As(err, &toolErr) {
				t.Fatalf("FromServiceError returned %T, want *ToolError", err)
			}
			if toolErr.Category != test.category {
				t.Errorf("category = %s, want %s", toolErr.Category, test.category)
			}
			if (toolErr.Hint != "") != test.hinted {
				t.Errorf("hint = %q, want hinted=%v", toolErr.Hint, test.hinted)
			}
			if !errors.Is(err, serviceErr) {
				t.Error("service error not preserved in chain")
			}
		})
	}

	plain := errors.New("plain")
	if got := FromServiceError(plain); got != plain {
		t.Errorf("FromServiceError(plain) = %v, want unchanged", got)
	}
}

func TestDiagnoseSocketError(t *testing.T) {
	dialErr := func(errno syscall.Errno) error {
		return fmt.Errorf("connecting: %w", &net.OpError{
			Op:  "dial",
			Net: "unix",
			Err: os.NewSyscallError("connect", errno),
		})
	}

	tests := []struct {
		name     string
		err      error
		category ErrorCategory
	}{
		{name: "missing socket", err: dialErr(syscall.ENOENT), category: CategoryTransient},
		{name: "refused", err: dialErr(syscall.ECONNREFUSED), category: CategoryTransient},
		{name: "permission", err: dialErr(syscall.EACCES), category: CategoryForbidden},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			diagnosis := DiagnoseSocketError(test.err, "/run/opsdesk/compliance.sock")
			if diagnosis == nil {
				t.Fatal("DiagnoseSocketError returned nil")
			}
			if diagnosis.Category != test.category {
				t.Errorf("category = %s, want %s", diagnosis.Category, test.category)
			}
			if diagnosis.Hint == "" {
				t.Error("no hint")
			}
		})
	}

	if diagnosis := DiagnoseSocketError(errors.New("reading response: EOF"), "/x.sock"); diagnosis != nil {
		t.Errorf("unrelated error diagnosed as %+v", diagnosis)
	}
}
