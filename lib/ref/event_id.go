// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package ref

import "fmt"

// EventID names a timeline event, such as the one a sent message
// produced. Room versions 1 and 2 use "$local:server" and later ones a
// bare "$hash"; both are opaque here, so only the '$' sigil is checked.
type EventID struct {
	id string
}

// ParseEventID checks for the '$' sigil and a non-empty remainder.
func ParseEventID(raw string) (EventID, error) {
	switch {
	case raw == "":
		return EventID{}, fmt.Errorf("empty event ID")
	case raw[0] != '$':
		return EventID{}, fmt.Errorf("event ID must start with '$': %q", raw)
	case len(raw) == 1:
		return EventID{}, fmt.Errorf("event ID has nothing after '$'")
	}
	return EventID{id: raw}, nil
}

// MustParseEventID is ParseEventID for known-valid input; it panics on
// error.
func MustParseEventID(raw string) EventID {
	return mustParse("MustParseEventID", raw, ParseEventID)
}

func (e EventID) String() string { return e.id }

// IsZero reports whether e is unset.
func (e EventID) IsZero() bool { return e.id == "" }

// MarshalText implements encoding.TextMarshaler.
func (e EventID) MarshalText() ([]byte, error) { return []byte(e.id), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (e *EventID) UnmarshalText(data []byte) error {
	return decodeText(data, ParseEventID, e)
}
