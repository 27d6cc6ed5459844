// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package backend

import "fmt"

// Identity is anything the host can address a message from or to:
// a Person, a RoomOccupant, or a Room.
type Identity interface {
	// ID returns the protocol-native identifier as text.
	ID() string
	fmt.Stringer
}

// Identifier wraps an opaque protocol identifier. Two Identifiers are
// equal (with == or Equal) exactly when their text forms are equal, so
// an identifier built from the number 42 equals one built from "42".
type Identifier struct {
	id string
}

// NewIdentifier builds an Identifier from a string or integer id.
func NewIdentifier[T ~string | ~int | ~int32 | ~int64 | ~uint | ~uint32 | ~uint64](id T) Identifier {
	return Identifier{id: fmt.Sprint(id)}
}

// ID returns the identifier text.
func (i Identifier) ID() string { return i.id }

// String returns the identifier text.
func (i Identifier) String() string { return i.id }

// Equal reports whether two identifiers have the same text form.
func (i Identifier) Equal(other Identifier) bool { return i.id == other.id }

// SameIdentity reports whether two identities have the same id. Nil
// identities are never the same as anything.
func SameIdentity(a, b Identity) bool {
	if a == nil || b == nil {
		return false
	}
	return a.ID() == b.ID()
}
