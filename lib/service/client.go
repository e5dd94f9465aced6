// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package service

import (
	"context"
	"fmt"
	"io"
	"maps"
	"net"
	"time"

	"github.com/bureau-foundation/opsdesk/lib/codec"
)

// dialTimeout bounds the connect phase only.
const dialTimeout = 5 * time.Second

// responseReadTimeout covers the server's read and write timeouts plus
// handler execution.
const responseReadTimeout = 45 * time.Second

// maxResponseSize matches the server's maxRequestSize. A full task
// list response is the largest payload.
const maxResponseSize = 8 * 1024 * 1024

// ServiceError is returned by Call when the server responds with
// ok=false.
type ServiceError struct {
	Action  string
	Kind    string
	Message string
}

func (e *ServiceError) Error() string {
	if e.Kind == "" {
		return fmt.Sprintf("service error on %q: %s", e.Action, e.Message)
	}
	return fmt.Sprintf("service error on %q (%s): %s", e.Action, e.Kind, e.Message)
}

// ServiceClient sends CBOR requests to the compliance service socket.
// Each Call opens a new connection, sends the request, reads the
// response, and closes the connection. Every request carries the
// client's caller identity.
type ServiceClient struct {
	socketPath string
	caller     Caller
}

// NewServiceClient creates a client that acts as caller.
func NewServiceClient(socketPath string, caller Caller) *ServiceClient {
	return &ServiceClient{socketPath: socketPath, caller: caller}
}

// SocketPath returns the socket the client dials.
func (c *ServiceClient) SocketPath() string {
	return c.socketPath
}

// Call sends a request and decodes the response data into result.
//
// The fields map holds handler-specific request fields; the client adds
// "action", "actor", and "role". Pass nil for actions without fields.
//
// On ok=false, returns a *ServiceError. Connection and encoding errors
// are returned as plain errors.
func (c *ServiceClient) Call(ctx context.Context, action string, fields map[string]any, result any) error {
	_, err := c.Do(ctx, action, fields, result)
	return err
}

// Do is Call that also returns the response envelope, for callers that
// need the warning field.
func (c *ServiceClient) Do(ctx context.Context, action string, fields map[string]any, result any) (*Response, error) {
	response, err := c.send(ctx, c.buildRequest(action, fields))
	if err != nil {
		return nil, fmt.Errorf("calling %q on %s: %w", action, c.socketPath, err)
	}

	if !response.OK {
		return response, &ServiceError{
			Action:  action,
			Kind:    response.Kind,
			Message: response.Error,
		}
	}

	if result != nil && len(response.Data) > 0 {
		if err := codec.Unmarshal(response.Data, result); err != nil {
			return response, fmt.Errorf("decoding response data for %q: %w", action, err)
		}
	}
	return response, nil
}

func (c *ServiceClient) buildRequest(action string, fields map[string]any) map[string]any {
	request := make(map[string]any, len(fields)+3)
	maps.Copy(request, fields)
	request["action"] = action
	request["actor"] = c.caller.Actor
	request["role"] = string(c.caller.Role)
	return request
}

func (c *ServiceClient) send(ctx context.Context, request any) (*Response, error) {
	dialer := net.Dialer{Timeout: dialTimeout}
	conn, err := dialer.DialContext(ctx, "unix", c.socketPath)
	if err != nil {
		return nil, fmt.Errorf("connecting: %w", err)
	}
	defer conn.Close()

	if err := codec.NewEncoder(conn).Encode(request); err != nil {
		return nil, fmt.Errorf("writing request: %w", err)
	}

	// Half-close so the server sees EOF after the request.
	if unixConn, ok := conn.(*net.UnixConn); ok {
		unixConn.CloseWrite()
	}

	deadline := time.Now().Add(responseReadTimeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
		deadline = ctxDeadline
	}
	conn.SetReadDeadline(deadline)

	var response Response
	if err := codec.NewDecoder(io.LimitReader(conn, maxResponseSize)).Decode(&response); err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	return &response, nil
}
