// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package servicetest runs a [service.SocketServer] for the duration of
// a test.
package servicetest

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/bureau-foundation/opsdesk/lib/service"
	"github.com/bureau-foundation/opsdesk/lib/testutil"
)

// NewServer returns a socket server on a fresh path in a short-lived
// directory.
func NewServer(t *testing.T) (*service.SocketServer, string) {
	t.Helper()
	socketPath := filepath.Join(testutil.SocketDir(t), "service.sock")
	return service.NewSocketServer(socketPath, testutil.Logger()), socketPath
}

// Serve starts server in the background and waits until its socket
// exists. The server is stopped when the test completes.
func Serve(t *testing.T, server *service.SocketServer, socketPath string) {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := server.Serve(ctx); err != nil {
			t.Errorf("Serve: %v", err)
		}
	}()
	t.Cleanup(func() {
		cancel()
		testutil.RequireClosed(t, done, 5*time.Second, "socket server did not stop")
	})

	deadline := time.Now().Add(5 * time.Second)
	for {
		if _, err := os.Stat(socketPath); err == nil {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("socket %s never appeared", socketPath)
		}
		time.Sleep(5 * time.Millisecond)
	}
}
