// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"sync"
	"time"

	"github.com/bureau-foundation/opsdesk/lib/codec"
)

// ActionFunc processes a request that needs no caller identity. The
// raw parameter is the full CBOR request including the "action" field.
//
// Return a value to include in the success response, or an error for a
// failure response. A nil value produces {ok: true} with no data.
type ActionFunc func(ctx context.Context, raw []byte) (any, error)

// AuthActionFunc processes a request on behalf of an identified caller.
type AuthActionFunc func(ctx context.Context, caller Caller, raw []byte) (any, error)

// Guard runs before every AuthActionFunc. A non-nil error rejects the
// request without invoking the handler.
type Guard func(ctx context.Context, action string, caller Caller) error

// Classifier maps a handler error to its wire kind. Errors created with
// Errorf carry their own kind and never reach the classifier.
type Classifier func(error) string

// Warner is implemented by handler results that carry a non-fatal
// warning. The server copies it into the response envelope.
type Warner interface {
	ResponseWarning() string
}

// Response is the wire envelope for every socket response.
type Response struct {
	OK      bool             `cbor:"ok"`
	Error   string           `cbor:"error,omitempty"`
	Kind    string           `cbor:"kind,omitempty"`
	Warning string           `cbor:"warning,omitempty"`
	Data    codec.RawMessage `cbor:"data,omitempty"`
}

// SocketServer serves the CBOR request-response protocol on a Unix
// socket. Actions are registered with Handle or HandleAuth before
// calling Serve. Unknown actions receive an error response.
type SocketServer struct {
	socketPath string
	handlers   map[string]AuthActionFunc
	open       map[string]bool
	guard      Guard
	classify   Classifier
	logger     *slog.Logger

	// activeConnections tracks in-flight handlers so Serve can wait
	// for them on shutdown.
	activeConnections sync.WaitGroup
}

// NewSocketServer creates a server that will listen on socketPath.
func NewSocketServer(socketPath string, logger *slog.Logger) *SocketServer {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &SocketServer{
		socketPath: socketPath,
		handlers:   make(map[string]AuthActionFunc),
		open:       make(map[string]bool),
		logger:     logger,
	}
}

// SetGuard installs the check run before every authenticated action.
func (s *SocketServer) SetGuard(guard Guard) {
	s.guard = guard
}

// SetClassifier installs the mapping from handler errors to wire kinds.
func (s *SocketServer) SetClassifier(classify Classifier) {
	s.classify = classify
}

// Handle registers a handler that runs without caller identity. Panics
// if the action is already registered.
func (s *SocketServer) Handle(action string, handler ActionFunc) {
	s.register(action, func(ctx context.Context, _ Caller, raw []byte) (any, error) {
		return handler(ctx, raw)
	})
	s.open[action] = true
}

// HandleAuth registers a handler that requires a well-formed caller
// identity and passes the guard. Panics if the action is already
// registered.
func (s *SocketServer) HandleAuth(action string, handler AuthActionFunc) {
	s.register(action, handler)
}

func (s *SocketServer) register(action string, handler AuthActionFunc) {
	if _, exists := s.handlers[action]; exists {
		panic(fmt.Sprintf("service.SocketServer: duplicate handler for action %q", action))
	}
	s.handlers[action] = handler
}

// Actions returns the number of registered actions.
func (s *SocketServer) Actions() int {
	return len(s.handlers)
}

// Serve accepts connections until ctx is cancelled, then stops
// accepting and waits for active handlers to finish.
//
// A stale socket file at the configured path is removed before
// listening. The socket file is removed on return.
func (s *SocketServer) Serve(ctx context.Context) error {
	if err := os.Remove(s.socketPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing stale socket %s: %w", s.socketPath, err)
	}

	listener, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.socketPath, err)
	}
	defer func() {
		listener.Close()
		os.Remove(s.socketPath)
	}()

	if err := os.Chmod(s.socketPath, 0o600); err != nil {
		return fmt.Errorf("restricting socket permissions on %s: %w", s.socketPath, err)
	}

	go func() {
		<-ctx.Done()
		listener.Close()
	}()

	s.logger.Info("socket server listening", "path", s.socketPath, "actions", len(s.handlers))

	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				break
			}
			s.logger.Error("accept failed", "error", err)
			continue
		}

		s.activeConnections.Add(1)
		go func() {
			defer s.activeConnections.Done()
			s.handleConnection(ctx, conn)
		}()
	}

	s.activeConnections.Wait()
	return nil
}

// readTimeout is how long we wait for the client to send its request.
const readTimeout = 30 * time.Second

// writeTimeout is how long we wait for the response to be written.
const writeTimeout = 10 * time.Second

// maxRequestSize bounds a single CBOR request. Task requests are a few
// hundred bytes; notes and evidence links stay well under this.
const maxRequestSize = 1024 * 1024

// requestHeader holds the routing and identity fields every request
// shares. Handlers decode their own fields from the same bytes.
type requestHeader struct {
	Action string `cbor:"action"`
	Actor  string `cbor:"actor"`
	Role   Role   `cbor:"role"`
}

func (s *SocketServer) handleConnection(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(readTimeout))

	// CBOR is self-delimiting, so no framing is needed. LimitReader
	// caps memory per connection.
	var raw codec.RawMessage
	if err := codec.NewDecoder(io.LimitReader(conn, maxRequestSize)).Decode(&raw); err != nil {
		if errors.Is(err, io.EOF) {
			return
		}
		s.writeError(conn, Errorf(KindInvalidRequest, "invalid request: %v", err))
		return
	}

	var header requestHeader
	if err := codec.Unmarshal(raw, &header); err != nil {
		if notation, diagErr := codec.Diagnose(raw); diagErr == nil {
			s.logger.Debug("undecodable request", "request", notation, "error", err)
		}
		s.writeError(conn, Errorf(KindInvalidRequest, "invalid request: %v", err))
		return
	}
	if header.Action == "" {
		s.writeError(conn, Errorf(KindInvalidRequest, "missing required field: action"))
		return
	}

	handler, exists := s.handlers[header.Action]
	if !exists {
		s.writeError(conn, Errorf(KindUnknownAction, "unknown action %q", header.Action))
		return
	}

	caller := Caller{Actor: header.Actor, Role: header.Role}
	if !s.open[header.Action] {
		if err := caller.Validate(); err != nil {
			s.writeError(conn, err)
			return
		}
		if s.guard != nil {
			if err := s.guard(ctx, header.Action, caller); err != nil {
				s.logger.Debug("request rejected",
					"action", header.Action,
					"actor", caller.Actor,
					"error", err,
				)
				s.writeError(conn, err)
				return
			}
		}
	}

	result, err := handler(ctx, caller, []byte(raw))
	if err != nil {
		s.logger.Debug("action failed",
			"action", header.Action,
			"actor", caller.Actor,
			"error", err,
		)
		s.writeError(conn, err)
		return
	}

	s.writeSuccess(conn, result)
}

// kindOf resolves the wire kind of err.
func (s *SocketServer) kindOf(err error) string {
	var kindErr *KindError
	if errors.As(err, &kindErr) {
		return kindErr.Kind
	}
	if s.classify != nil {
		return s.classify(err)
	}
	return KindInternal
}

// writeError sends {ok: false, error, kind}. Write failures are logged
// at debug level; the connection is closing regardless.
func (s *SocketServer) writeError(conn net.Conn, err error) {
	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if encodeErr := codec.NewEncoder(conn).Encode(Response{
		OK:    false,
		Error: err.Error(),
		Kind:  s.kindOf(err),
	}); encodeErr != nil {
		s.logger.Debug("failed to write error response", "error", encodeErr)
	}
}

// writeSuccess sends {ok: true} with the marshaled result in "data"
// when result is non-nil.
func (s *SocketServer) writeSuccess(conn net.Conn, result any) {
	conn.SetWriteDeadline(time.Now().Add(writeTimeout))

	response := Response{OK: true}

	if result != nil {
		if warner, ok := result.(Warner); ok {
			response.Warning = warner.ResponseWarning()
		}
		data, err := codec.Marshal(result)
		if err != nil {
			s.writeError(conn, Errorf(KindInternal, "marshaling response: %v", err))
			return
		}
		response.Data = data
	}

	if err := codec.NewEncoder(conn).Encode(response); err != nil {
		s.logger.Debug("failed to write success response", "error", err)
	}
}
