// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package ref

// RoomID is a server-assigned room ID such as "!abc123:example.org".
// Rooms are keyed by it in /sync responses, so it also works as a JSON
// object key. The zero value means unset.
type RoomID struct {
	id string
}

// ParseRoomID validates the !opaque:server shape.
func ParseRoomID(raw string) (RoomID, error) {
	if _, _, err := splitSigiled(raw, '!', "room ID"); err != nil {
		return RoomID{}, err
	}
	return RoomID{id: raw}, nil
}

// MustParseRoomID is ParseRoomID for known-valid input; it panics on error.
func MustParseRoomID(raw string) RoomID {
	return mustParse("MustParseRoomID", raw, ParseRoomID)
}

func (r RoomID) String() string { return r.id }

// IsZero reports whether r is unset.
func (r RoomID) IsZero() bool { return r.id == "" }

// MarshalText implements encoding.TextMarshaler.
func (r RoomID) MarshalText() ([]byte, error) { return []byte(r.id), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (r *RoomID) UnmarshalText(data []byte) error {
	return decodeText(data, ParseRoomID, r)
}
