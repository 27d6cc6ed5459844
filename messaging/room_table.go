// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package messaging

import (
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"

	"github.com/bureau-foundation/matrixbot/lib/ref"
)

// maxHeroes caps how many members the display-name fallback names
// before summarising the rest as "N others".
const maxHeroes = 5

// RoomTable is the live set of rooms known to a session, built from
// /sync responses. It is safe for concurrent use: the sync loop applies
// responses while other goroutines take read-only snapshots.
type RoomTable struct {
	mu        sync.RWMutex
	ownUserID ref.UserID
	rooms     map[ref.RoomID]*roomState
}

type roomState struct {
	name           string
	topic          string
	hasTopic       bool
	canonicalAlias string
	// members maps joined and invited users to their room display name
	// ("" if unset).
	members map[ref.UserID]string
}

// NewRoomTable creates an empty table for the session owned by ownUserID.
func NewRoomTable(ownUserID ref.UserID) *RoomTable {
	return &RoomTable{
		ownUserID: ownUserID,
		rooms:     make(map[ref.RoomID]*roomState),
	}
}

// Apply folds a sync response into the table. Joined and invited rooms
// are created on first sight and updated from their state and timeline
// state events; left rooms are removed.
func (t *RoomTable) Apply(response *SyncResponse) {
	if response == nil {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	for roomID, room := range response.Rooms.Join {
		state := t.room(roomID)
		for _, event := range room.State.Events {
			state.applyStateEvent(event)
		}
		for _, event := range room.Timeline.Events {
			if event.IsState() {
				state.applyStateEvent(event)
			}
		}
		// The own member event may be outside a limited timeline window.
		if _, ok := state.members[t.ownUserID]; !ok && !t.ownUserID.IsZero() {
			state.members[t.ownUserID] = ""
		}
	}

	for roomID, room := range response.Rooms.Invite {
		state := t.room(roomID)
		for _, event := range room.InviteState.Events {
			state.applyStateEvent(event)
		}
	}

	for roomID := range response.Rooms.Leave {
		delete(t.rooms, roomID)
	}
}

// room returns the state for roomID, creating it if needed. Caller holds mu.
func (t *RoomTable) room(roomID ref.RoomID) *roomState {
	state, ok := t.rooms[roomID]
	if !ok {
		state = &roomState{members: make(map[ref.UserID]string)}
		t.rooms[roomID] = state
	}
	return state
}

func (s *roomState) applyStateEvent(event Event) {
	switch event.Type {
	case ref.EventTypeName:
		s.name = event.ContentString("name")
	case ref.EventTypeTopic:
		s.topic = event.ContentString("topic")
		s.hasTopic = true
	case ref.EventTypeCanonicalAlias:
		s.canonicalAlias = event.ContentString("alias")
	case ref.EventTypeMember:
		if event.StateKey == nil {
			return
		}
		userID, err := ref.ParseUserID(*event.StateKey)
		if err != nil {
			return
		}
		switch event.ContentString("membership") {
		case MembershipJoin, MembershipInvite:
			s.members[userID] = event.ContentString("displayname")
		default:
			delete(s.members, userID)
		}
	}
}

// Lookup returns a snapshot of the room's record, or false if the room
// is not in the table.
func (t *RoomTable) Lookup(roomID ref.RoomID) (RoomRecord, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	state, ok := t.rooms[roomID]
	if !ok {
		return RoomRecord{}, false
	}
	return RoomRecord{
		RoomID:         roomID,
		OwnUserID:      t.ownUserID,
		Name:           state.name,
		Topic:          state.topic,
		HasTopic:       state.hasTopic,
		CanonicalAlias: state.canonicalAlias,
		Members:        maps.Clone(state.members),
	}, true
}

// Has reports whether roomID is in the table.
func (t *RoomTable) Has(roomID ref.RoomID) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.rooms[roomID]
	return ok
}

// Len returns the number of rooms in the table.
func (t *RoomTable) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.rooms)
}

// RoomRecord is an immutable snapshot of one room taken from a RoomTable.
type RoomRecord struct {
	RoomID         ref.RoomID
	OwnUserID      ref.UserID
	Name           string
	Topic          string
	HasTopic       bool
	CanonicalAlias string
	// Members maps joined and invited users to their room display name.
	Members map[ref.UserID]string
}

// DisplayName computes the name a client would show for the room: the
// explicit name, else the canonical alias, else a summary of the other
// members, else "Empty Room".
func (r RoomRecord) DisplayName() string {
	if r.Name != "" {
		return r.Name
	}
	if r.CanonicalAlias != "" {
		return r.CanonicalAlias
	}

	var heroes []string
	for userID := range r.Members {
		if userID == r.OwnUserID {
			continue
		}
		heroes = append(heroes, r.UserName(userID))
	}
	slices.Sort(heroes)

	switch {
	case len(heroes) == 0:
		return "Empty Room"
	case len(heroes) == 1:
		return heroes[0]
	case len(heroes) <= maxHeroes:
		return strings.Join(heroes[:len(heroes)-1], ", ") + " and " + heroes[len(heroes)-1]
	default:
		return fmt.Sprintf("%s and %d others", strings.Join(heroes[:maxHeroes], ", "), len(heroes)-maxHeroes)
	}
}

// UserName returns the room display name of userID. A name shared by
// several members is disambiguated with the user ID; members without a
// name (and non-members) are shown by user ID.
func (r RoomRecord) UserName(userID ref.UserID) string {
	name := r.Members[userID]
	if name == "" {
		return userID.String()
	}
	for other, otherName := range r.Members {
		if other != userID && otherName == name {
			return fmt.Sprintf("%s (%s)", name, userID)
		}
	}
	return name
}
