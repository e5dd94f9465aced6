// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package notify

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
)

var _ Publisher = (*nats.Conn)(nil)

// Connect dials the NATS server at url. The connection reconnects
// indefinitely in the background; disconnects and reconnects are
// logged.
func Connect(url, clientName string, logger *slog.Logger) (*nats.Conn, error) {
	conn, err := nats.Connect(url,
		nats.Name(clientName),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn("nats disconnected", "url", url, "error", err)
		}),
		nats.ReconnectHandler(func(conn *nats.Conn) {
			logger.Info("nats reconnected", "url", conn.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("notify: connecting to %s: %w", url, err)
	}
	return conn, nil
}
