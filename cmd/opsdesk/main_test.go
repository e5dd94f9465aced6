// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"path/filepath"
	"testing"

	"github.com/bureau-foundation/opsdesk/lib/testutil"
)

func TestRunExitCodes(t *testing.T) {
	missingSocket := filepath.Join(testutil.SocketDir(t), "absent.sock")

	tests := []struct {
		name string
		args []string
		want int
	}{
		{name: "version", args: []string{"version"}, want: 0},
		{name: "unknown command", args: []string{"tsk"}, want: 2},
		{name: "missing task id", args: []string{"task", "show", "--actor", "eli"}, want: 2},
		{name: "service not running", args: []string{"status", "--socket", missingSocket}, want: 6},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if got := run(test.args); got != test.want {
				t.Errorf("run(%v) = %d, want %d", test.args, got, test.want)
			}
		})
	}
}
