// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package ref

// EventType identifies a Matrix state or timeline event type. It is a
// named string rather than a validated struct: event types are opaque
// and need no parsing, the type only keeps them apart from state keys
// and message types at compile time.
type EventType string

// String returns the event type string (e.g., "m.room.message").
func (t EventType) String() string { return string(t) }

// Event types the adapter reads or writes.
const (
	EventTypeMessage        EventType = "m.room.message"
	EventTypeMember         EventType = "m.room.member"
	EventTypeName           EventType = "m.room.name"
	EventTypeTopic          EventType = "m.room.topic"
	EventTypeCanonicalAlias EventType = "m.room.canonical_alias"
)
