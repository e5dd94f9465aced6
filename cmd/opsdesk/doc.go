// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Opsdesk is the command-line client for opsdesk-compliance-service.
//
// It creates and manages recurring compliance tasks, tracks time
// against them, and reports overdue work:
//
//	opsdesk task create|update|complete|cancel|delete|show|list|history|chain
//	opsdesk timer start|stop
//	opsdesk overdue
//	opsdesk status
//
// Every command connects to the service's Unix socket (--socket,
// $OPSDESK_SOCKET, or paths.socket from $OPSDESK_CONFIG) and
// identifies the caller with --actor and --role.
//
// Exit codes: 0 success, 1 internal error, 2 invalid input, 3 task not
// found, 4 permission denied, 5 conflicting task state, 6 service
// unavailable or throttled.
package main
