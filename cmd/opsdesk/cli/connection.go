// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/opsdesk/lib/config"
	"github.com/bureau-foundation/opsdesk/lib/service"
)

// Environment variables that supply connection defaults.
const (
	SocketEnvVar = "OPSDESK_SOCKET"
	ActorEnvVar  = "OPSDESK_ACTOR"
	RoleEnvVar   = "OPSDESK_ROLE"
)

// callTimeout bounds a single service call. Every action is one SQLite
// transaction, so this only trips when the service is wedged.
const callTimeout = 30 * time.Second

// Connection manages the flags that identify the compliance service
// socket and the caller. Embed it in a command's params struct; it
// implements [FlagBinder].
//
// Defaults resolve in order: the flag, the environment variable, then
// the socket path from the opsdesk config file (OPSDESK_CONFIG) and
// $USER for the actor. The role defaults to engineer.
type Connection struct {
	SocketPath string
	Actor      string
	Role       string
}

// AddFlags registers --socket, --actor, and --role.
func (c *Connection) AddFlags(flagSet *pflag.FlagSet) {
	flagSet.StringVar(&c.SocketPath, "socket", defaultSocketPath(), "compliance service socket path")
	flagSet.StringVar(&c.Actor, "actor", defaultActor(), "actor ID recorded on changes and timer sessions")
	flagSet.StringVar(&c.Role, "role", envOr(RoleEnvVar, string(service.RoleEngineer)), "caller role (engineer, manager, admin)")
}

// Caller returns the validated caller identity.
func (c *Connection) Caller() (service.Caller, error) {
	caller := service.Caller{
		Actor: strings.TrimSpace(c.Actor),
		Role:  service.Role(strings.ToLower(strings.TrimSpace(c.Role))),
	}
	if caller.Actor == "" {
		return caller, Validation("--actor is required (or set %s)", ActorEnvVar)
	}
	if !caller.Role.IsKnown() {
		return caller, Validation("unknown role %q: expected engineer, manager, or admin", c.Role)
	}
	return caller, nil
}

// Client builds a service client for the configured socket and caller.
func (c *Connection) Client() (*service.ServiceClient, error) {
	caller, err := c.Caller()
	if err != nil {
		return nil, err
	}
	if c.SocketPath == "" {
		return nil, Validation("--socket is required (or set %s)", SocketEnvVar)
	}
	return service.NewServiceClient(c.SocketPath, caller), nil
}

// Call invokes action and decodes the response into result. Service
// errors become categorized [ToolError]s; connection failures carry a
// diagnosis hint.
func (c *Connection) Call(ctx context.Context, action string, fields map[string]any, result any) error {
	_, err := c.Do(ctx, action, fields, result)
	return err
}

// Do is Call but also returns the response envelope, whose Warning a
// command may need to surface.
func (c *Connection) Do(ctx context.Context, action string, fields map[string]any, result any) (*service.Response, error) {
	client, err := c.Client()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()

	response, err := client.Do(ctx, action, fields, result)
	if err != nil {
		if diagnosis := DiagnoseSocketError(err, c.SocketPath); diagnosis != nil {
			return nil, diagnosis
		}
		return nil, FromServiceError(err)
	}
	return response, nil
}

func defaultSocketPath() string {
	if socket := os.Getenv(SocketEnvVar); socket != "" {
		return socket
	}
	cfg, err := config.Load()
	if err != nil {
		return config.Default().Paths.Socket
	}
	return cfg.Paths.Socket
}

func defaultActor() string {
	if actor := os.Getenv(ActorEnvVar); actor != "" {
		return actor
	}
	return os.Getenv("USER")
}

func envOr(name, fallback string) string {
	if value := os.Getenv(name); value != "" {
		return value
	}
	return fallback
}
