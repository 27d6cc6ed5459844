// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package ref provides strongly typed, immutable references for the
// Matrix identifiers matrixbot exchanges with a homeserver: user IDs,
// room IDs, room aliases, event IDs and event types.
//
// Every reference is parsed and validated at the boundary where it
// enters the program (configuration, /sync responses, API results).
// Once constructed a reference is immutable, and its String form is the
// canonical Matrix wire form. JSON encoding uses that form via
// encoding.TextMarshaler, so the types can be used directly in request
// and response structs and as map keys.
//
// The zero value of every struct reference means unset; check it with
// IsZero.
package ref
