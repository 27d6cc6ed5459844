// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package ref

// UserID is a Matrix user ID such as "@bot:example.org". It identifies
// the bot's own account, message senders, room members and invitees.
// The zero value means unset.
type UserID struct {
	id string
}

// ParseUserID validates the @localpart:server shape.
func ParseUserID(raw string) (UserID, error) {
	if _, _, err := splitSigiled(raw, '@', "user ID"); err != nil {
		return UserID{}, err
	}
	return UserID{id: raw}, nil
}

// MustParseUserID is ParseUserID for known-valid input; it panics on error.
func MustParseUserID(raw string) UserID {
	return mustParse("MustParseUserID", raw, ParseUserID)
}

func (u UserID) String() string { return u.id }

// IsZero reports whether u is unset.
func (u UserID) IsZero() bool { return u.id == "" }

// MarshalText implements encoding.TextMarshaler.
func (u UserID) MarshalText() ([]byte, error) { return []byte(u.id), nil }

// UnmarshalText implements encoding.TextUnmarshaler. Senders and state
// keys in /sync payloads decode through it, so a malformed ID fails the
// whole response rather than surfacing later.
func (u *UserID) UnmarshalText(data []byte) error {
	return decodeText(data, ParseUserID, u)
}
