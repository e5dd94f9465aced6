// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared test helpers for opsdesk packages.
//
// [SocketDir] creates a short temporary directory for Unix domain
// sockets, whose paths are limited to 108 bytes; t.TempDir() paths can
// exceed that under some build systems.
//
// [RequireReceive] and [RequireClosed] encapsulate the select-with-
// timeout safety valve so individual tests never call time.After.
// They are the only place in the test suite that waits on the real
// clock.
//
// [Logger] returns an error-level stderr logger for components under
// test.
//
// All helpers call t.Fatalf on failure rather than returning errors.
package testutil
