// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package backend

import (
	"slices"
	"strings"

	"github.com/bureau-foundation/matrixbot/messaging"
)

// Person is a Matrix user as the host sees it. Values are snapshots:
// nothing in a Person changes after construction.
type Person struct {
	Identifier
	fullName string
	emails   []string
	session  messaging.Session
}

// NewPerson builds a Person. emails is copied, keeping its order.
// session may be nil for identities built outside a connected backend.
func NewPerson(id Identifier, fullName string, emails []string, session messaging.Session) Person {
	return Person{
		Identifier: id,
		fullName:   fullName,
		emails:     slices.Clone(emails),
		session:    session,
	}
}

// PersonID returns the raw user id.
func (p Person) PersonID() string { return p.id }

// FullName returns the display name, which may be empty.
func (p Person) FullName() string { return p.fullName }

// Nick returns the display name. Matrix has no separate nickname.
func (p Person) Nick() string { return p.fullName }

// Emails returns the contact addresses in construction order. For
// Matrix users this is the user id itself.
func (p Person) Emails() []string { return slices.Clone(p.emails) }

// Session returns the session the Person was resolved through, or nil.
func (p Person) Session() messaging.Session { return p.session }

// AccessControlKey returns the contact addresses sorted ascending and
// joined by ",", or "" when there are none.
func (p Person) AccessControlKey() string {
	sorted := slices.Clone(p.emails)
	slices.Sort(sorted)
	return strings.Join(sorted, ",")
}

// RoomOccupant is a Person seen as a member of a specific room.
type RoomOccupant struct {
	Person
	room Room
}

// NewRoomOccupant attaches person to room.
func NewRoomOccupant(person Person, room Room) RoomOccupant {
	return RoomOccupant{Person: person, room: room}
}

// Room returns the room the occupant was seen in.
func (o RoomOccupant) Room() Room { return o.room }
