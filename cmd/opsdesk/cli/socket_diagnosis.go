// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"errors"
	"syscall"
)

// DiagnoseSocketError inspects a socket connection error and returns a
// categorized ToolError with an actionable hint. Returns nil if err is
// not a recognized connection failure.
//
//   - ENOENT or ECONNREFUSED: the service is not running, or --socket
//     points at the wrong path.
//   - EACCES or EPERM: the socket is mode 0600 and owned by another
//     user.
func DiagnoseSocketError(err error, socketPath string) *ToolError {
	switch {
	case errors.Is(err, syscall.ENOENT), errors.Is(err, syscall.ECONNREFUSED):
		return (&ToolError{Category: CategoryTransient, Err: err}).
			WithHint("Is opsdesk-compliance-service running? It listens on " + socketPath + ".\n" +
				"Pass --socket or set OPSDESK_SOCKET if it uses a different path.")
	case errors.Is(err, syscall.EACCES), errors.Is(err, syscall.EPERM):
		return (&ToolError{Category: CategoryForbidden, Err: err}).
			WithHint("The service socket is only accessible to the user running the service.\n" +
				"Check ownership with: ls -la " + socketPath)
	}
	return nil
}
