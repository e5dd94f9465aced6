// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec holds the CBOR encoding configuration shared by the
// compliance service socket and its clients.
//
// JSON is the external format (CLI --json output, notification
// payloads). CBOR is the socket wire format. Both sides of the socket
// encode through this package so a request built by the CLI decodes
// identically in the service.
//
// The encoder uses Core Deterministic Encoding (RFC 8949 §4.2) and
// writes time.Time values as RFC 3339 text, so calendar dates survive
// a round trip without a timezone shift:
//
//	data, err := codec.Marshal(value)
//	err = codec.Unmarshal(data, &value)
//
// Socket code uses the stream forms:
//
//	encoder := codec.NewEncoder(conn)
//	decoder := codec.NewDecoder(conn)
//
// # Struct Tags
//
// A `cbor` tag marks a type that only ever travels over the socket
// (request bodies, the response envelope). A `json` tag marks a type
// that is also printed by the CLI; fxamacker/cbor reads json tags when
// cbor tags are absent, so one tag names the field in both formats.
// Never put both tags on the same field.
package codec
