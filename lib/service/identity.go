// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package service

import "fmt"

// Role is the caller's authorization level.
type Role string

const (
	RoleEngineer Role = "engineer"
	RoleManager  Role = "manager"
	RoleAdmin    Role = "admin"
)

// IsKnown reports whether r is one of the defined roles.
func (r Role) IsKnown() bool {
	switch r {
	case RoleEngineer, RoleManager, RoleAdmin:
		return true
	}
	return false
}

// CanManage reports whether r may create, change, complete, cancel, or
// delete tasks.
func (r Role) CanManage() bool {
	return r == RoleManager || r == RoleAdmin
}

// Caller is the identity attached to a request.
type Caller struct {
	Actor string `cbor:"actor"`
	Role  Role   `cbor:"role"`
}

// Validate checks that the caller names an actor and a known role.
func (c Caller) Validate() error {
	if c.Actor == "" {
		return Errorf(KindUnauthenticated, "missing required field: actor")
	}
	if !c.Role.IsKnown() {
		return Errorf(KindUnauthenticated, "unknown role %q", c.Role)
	}
	return nil
}

// Wire kinds produced by the socket layer itself.
const (
	KindInvalidRequest  = "invalid_request"
	KindUnknownAction   = "unknown_action"
	KindUnauthenticated = "unauthenticated"
	KindForbidden       = "forbidden"
	KindThrottled       = "throttled"
	KindInternal        = "internal"
)

// KindError is an error that carries its own wire kind.
type KindError struct {
	Kind    string
	Message string
}

func (e *KindError) Error() string {
	return e.Message
}

// Errorf builds a *KindError.
func Errorf(kind, format string, args ...any) *KindError {
	return &KindError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}
