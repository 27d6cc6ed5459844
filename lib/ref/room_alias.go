// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package ref

// RoomAlias is a directory name such as "#lobby:example.org". The bot
// accepts aliases wherever a room is named and resolves them to a
// RoomID before joining or sending.
type RoomAlias struct {
	alias string
}

// ParseRoomAlias validates the #localpart:server shape.
func ParseRoomAlias(raw string) (RoomAlias, error) {
	if _, _, err := splitSigiled(raw, '#', "room alias"); err != nil {
		return RoomAlias{}, err
	}
	return RoomAlias{alias: raw}, nil
}

// MustParseRoomAlias is ParseRoomAlias for known-valid input; it panics
// on error.
func MustParseRoomAlias(raw string) RoomAlias {
	return mustParse("MustParseRoomAlias", raw, ParseRoomAlias)
}

func (a RoomAlias) String() string { return a.alias }

// IsZero reports whether a is unset.
func (a RoomAlias) IsZero() bool { return a.alias == "" }

// MarshalText implements encoding.TextMarshaler.
func (a RoomAlias) MarshalText() ([]byte, error) { return []byte(a.alias), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *RoomAlias) UnmarshalText(data []byte) error {
	return decodeText(data, ParseRoomAlias, a)
}
