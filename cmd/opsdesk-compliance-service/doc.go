// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Opsdesk-compliance-service owns the compliance task store. It serves
// the task lifecycle and timer operations over a CBOR Unix socket and
// runs the overdue reminder sweep on a cron schedule.
//
// Configuration comes from --config or OPSDESK_CONFIG. Lifecycle
// notifications are published to NATS when notify.url is set and
// dropped otherwise.
package main
