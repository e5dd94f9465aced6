// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package task implements the "opsdesk task" command group: creating,
// changing, completing, cancelling, and deleting compliance tasks, and
// viewing them with their audit history and recurrence chain.
//
// Every command talks to opsdesk-compliance-service over its Unix
// socket via [cli.Connection]. Dates are YYYY-MM-DD.
package task
