// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package backend

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/bureau-foundation/matrixbot/lib/ref"
	"github.com/bureau-foundation/matrixbot/messaging"
)

// Room is a Matrix room as the host sees it. A Room holds its id, the
// title and optional subject it was built with, and a lookup into the
// session's room table; it never caches the live record, so derived
// properties (Topic, DisplayTitle, OwnerID) reflect the latest sync and
// fail with *RoomUnknownError once the table no longer has the room.
//
// Rooms are comparable: two Rooms built for the same id from the same
// session with the same title and subject are ==.
type Room struct {
	Identifier
	title      string
	subject    string
	hasSubject bool
	session    messaging.Session
	table      *messaging.RoomTable
}

// RoomOption configures a Room at construction.
type RoomOption func(*Room)

// WithSubject sets the subject used as the topic when creating the room.
func WithSubject(subject string) RoomOption {
	return func(room *Room) {
		room.subject = subject
		room.hasSubject = true
	}
}

func newRoom(id string, title string, session messaging.Session, table *messaging.RoomTable, options ...RoomOption) Room {
	room := Room{
		Identifier: NewIdentifier(id),
		title:      title,
		session:    session,
		table:      table,
	}
	for _, option := range options {
		option(&room)
	}
	return room
}

// Title returns the title the Room was built with.
func (r Room) Title() string { return r.title }

// Subject returns the subject the Room was built with, if any.
func (r Room) Subject() (string, bool) { return r.subject, r.hasSubject }

func (r Room) record() (messaging.RoomRecord, error) {
	roomID, err := ref.ParseRoomID(r.id)
	if err != nil || r.table == nil {
		return messaging.RoomRecord{}, &RoomUnknownError{RoomID: r.id}
	}
	record, ok := r.table.Lookup(roomID)
	if !ok {
		return messaging.RoomRecord{}, &RoomUnknownError{RoomID: r.id}
	}
	return record, nil
}

// Topic returns the room's current topic ("" when none is set).
func (r Room) Topic() (string, error) {
	record, err := r.record()
	if err != nil {
		return "", err
	}
	return record.Topic, nil
}

// DisplayTitle returns the name a Matrix client would show for the room.
func (r Room) DisplayTitle() (string, error) {
	record, err := r.record()
	if err != nil {
		return "", err
	}
	return record.DisplayName(), nil
}

// OwnerID returns the user id of the account the room record belongs
// to, which is the bot's own account.
func (r Room) OwnerID() (string, error) {
	record, err := r.record()
	if err != nil {
		return "", err
	}
	return record.OwnUserID.String(), nil
}

// AccessControlKey is the owner id.
func (r Room) AccessControlKey() (string, error) {
	return r.OwnerID()
}

// Exists reports whether the session's room table knows the room. It
// performs no network call.
func (r Room) Exists() bool {
	roomID, err := ref.ParseRoomID(r.id)
	if err != nil || r.table == nil {
		return false
	}
	return r.table.Has(roomID)
}

// Joined asks the homeserver whether the account is joined to the room.
func (r Room) Joined(ctx context.Context) (bool, error) {
	if r.session == nil {
		return false, &ProtocolQueryError{Query: "joined rooms", Err: ErrNotConnected}
	}
	joined, err := r.session.JoinedRooms(ctx)
	if err != nil {
		return false, queryError("joined rooms", err)
	}
	return slices.ContainsFunc(joined, func(id ref.RoomID) bool {
		return id.String() == r.id
	}), nil
}

// Occupants lists the room's joined and invited members, sorted by user
// id. Members come from the live record; when sync has reported no one
// but the account itself (lazy-loaded membership), the member list is
// fetched from the homeserver instead. Each occupant's contact address
// is its own user id.
func (r Room) Occupants(ctx context.Context) ([]RoomOccupant, error) {
	record, err := r.record()
	if err != nil {
		return nil, err
	}
	if r.session != nil && !hasOtherMember(record) {
		members, err := r.session.GetRoomMembers(ctx, record.RoomID)
		if err != nil {
			return nil, queryError("room members", err)
		}
		for _, member := range members {
			switch member.Membership {
			case messaging.MembershipJoin, messaging.MembershipInvite:
				record.Members[member.UserID] = member.DisplayName
			}
		}
	}

	userIDs := make([]ref.UserID, 0, len(record.Members))
	for userID := range record.Members {
		userIDs = append(userIDs, userID)
	}
	slices.SortFunc(userIDs, func(a, b ref.UserID) int {
		return strings.Compare(a.String(), b.String())
	})

	occupants := make([]RoomOccupant, 0, len(userIDs))
	for _, userID := range userIDs {
		person := NewPerson(NewIdentifier(userID.String()), record.UserName(userID), []string{userID.String()}, r.session)
		occupants = append(occupants, NewRoomOccupant(person, r))
	}
	return occupants, nil
}

func hasOtherMember(record messaging.RoomRecord) bool {
	for userID := range record.Members {
		if userID != record.OwnUserID {
			return true
		}
	}
	return false
}

// Join joins the room. Room aliases ("#name:server") are resolved to a
// room id first.
func (r Room) Join(ctx context.Context) error {
	if r.session == nil {
		return &ProtocolError{Op: "join room", Err: ErrNotConnected}
	}

	var roomID ref.RoomID
	if strings.HasPrefix(r.id, "#") {
		alias, err := ref.ParseRoomAlias(r.id)
		if err != nil {
			return &RoomOperationError{Op: "join", RoomID: r.id, Err: err}
		}
		roomID, err = r.session.ResolveAlias(ctx, alias)
		if err != nil {
			return r.operationError("join", "resolve room alias", err)
		}
	} else {
		parsed, err := ref.ParseRoomID(r.id)
		if err != nil {
			return &RoomOperationError{Op: "join", RoomID: r.id, Err: err}
		}
		roomID = parsed
	}

	if _, err := r.session.JoinRoom(ctx, roomID); err != nil {
		return r.operationError("join", "join room", err)
	}
	return nil
}

// Create creates a new room named after the title, with the subject (if
// set) as its topic, and returns the created Room. Matrix assigns the
// room id; the receiver's id is not used.
func (r Room) Create(ctx context.Context) (Room, error) {
	if r.session == nil {
		return Room{}, &ProtocolError{Op: "create room", Err: ErrNotConnected}
	}
	response, err := r.session.CreateRoom(ctx, messaging.CreateRoomRequest{
		Name:  r.title,
		Topic: r.subject,
	})
	if err != nil {
		return Room{}, r.operationError("create", "create room", err)
	}

	created := newRoom(response.RoomID.String(), r.title, r.session, r.table)
	created.subject, created.hasSubject = r.subject, r.hasSubject
	return created, nil
}

// Leave leaves the room. reason may be empty.
func (r Room) Leave(ctx context.Context, reason string) error {
	roomID, err := r.roomID("leave")
	if err != nil {
		return err
	}
	if err := r.session.LeaveRoom(ctx, roomID, reason); err != nil {
		return r.operationError("leave", "leave room", err)
	}
	return nil
}

// Destroy forgets the room. The account must have left it already.
func (r Room) Destroy(ctx context.Context) error {
	roomID, err := r.roomID("destroy")
	if err != nil {
		return err
	}
	if err := r.session.ForgetRoom(ctx, roomID); err != nil {
		return r.operationError("destroy", "forget room", err)
	}
	return nil
}

// InviteResult is the outcome of inviting one user.
type InviteResult struct {
	UserID string
	Err    error
}

// Invite invites each invitee in order, one request per invitee, and
// issues every request even after a failure. Invites that succeed stay
// applied. If any fails the returned *RoomOperationError carries all
// results and wraps every failure.
func (r Room) Invite(ctx context.Context, invitees ...Identity) ([]InviteResult, error) {
	roomID, err := r.roomID("invite")
	if err != nil {
		return nil, err
	}

	results := make([]InviteResult, 0, len(invitees))
	var failures []error
	var firstResponse *messaging.MatrixError
	for _, invitee := range invitees {
		result := InviteResult{UserID: invitee.ID()}
		userID, err := ref.ParseUserID(invitee.ID())
		if err == nil {
			err = r.session.InviteUser(ctx, roomID, userID)
		}
		if err != nil {
			result.Err = err
			failures = append(failures, fmt.Errorf("%s: %w", invitee.ID(), err))
			if matrixErr, ok := messaging.AsMatrixError(err); ok && firstResponse == nil {
				firstResponse = matrixErr
			}
		}
		results = append(results, result)
	}

	if len(failures) > 0 {
		return results, &RoomOperationError{
			Op:       "invite",
			RoomID:   r.id,
			Response: firstResponse,
			Results:  results,
			Err:      errors.Join(failures...),
		}
	}
	return results, nil
}

// roomID parses the Room's id for operations that need a room id (not
// an alias) and a session.
func (r Room) roomID(op string) (ref.RoomID, error) {
	if r.session == nil {
		return ref.RoomID{}, &ProtocolError{Op: op + " room", Err: ErrNotConnected}
	}
	roomID, err := ref.ParseRoomID(r.id)
	if err != nil {
		return ref.RoomID{}, &RoomOperationError{Op: op, RoomID: r.id, Err: err}
	}
	return roomID, nil
}

func (r Room) operationError(op, description string, err error) error {
	return classify(description, err, func(matrixErr *messaging.MatrixError) error {
		return &RoomOperationError{Op: op, RoomID: r.id, Response: matrixErr, Err: err}
	})
}

func queryError(query string, err error) error {
	return classify("query "+query, err, func(matrixErr *messaging.MatrixError) error {
		return &ProtocolQueryError{Query: query, Response: matrixErr, Err: err}
	})
}
