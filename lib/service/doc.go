// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package service provides the Unix socket request-response protocol
// spoken between the compliance service and its clients.
//
// Each connection carries exactly one CBOR request and one CBOR
// response. A request is a CBOR map with an "action" field and, for
// every action registered with HandleAuth, the caller's "actor" and
// "role". The response envelope is {ok, error, kind, warning, data}.
//
// # Identity
//
// The socket trusts the actor and role fields it is given. Reaching
// the socket is the authentication boundary: the socket file is
// created with owner-only permissions and the identity provider in
// front of it is responsible for filling in the caller. The server
// only checks that an identity is present and well-formed, then hands
// it to the registered Guard and the handler, which make the
// authorization decision.
package service
