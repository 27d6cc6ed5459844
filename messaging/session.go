// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package messaging

import (
	"context"

	"github.com/bureau-foundation/matrixbot/lib/ref"
)

// Session is the set of authenticated Matrix operations the bot backend
// performs. *DirectSession is the production implementation; tests
// substitute in-memory fakes.
type Session interface {
	// UserID returns the fully-qualified Matrix user ID of the session.
	UserID() ref.UserID

	// Close releases any resources held by the session. Idempotent.
	Close() error

	// CloseIdleConnections drops pooled connections so the next request
	// dials fresh.
	CloseIdleConnections()

	// WhoAmI validates the session and returns the user ID.
	WhoAmI(ctx context.Context) (ref.UserID, error)

	// Logout invalidates the session's access token on the homeserver.
	Logout(ctx context.Context) error

	// Sync performs one sync request (long-polling if Timeout is set).
	Sync(ctx context.Context, options SyncOptions) (*SyncResponse, error)

	// ResolveAlias resolves a room alias to a room ID.
	ResolveAlias(ctx context.Context, alias ref.RoomAlias) (ref.RoomID, error)

	// JoinRoom joins a room by room ID. Returns the room ID. To join
	// by alias, resolve with ResolveAlias first.
	JoinRoom(ctx context.Context, roomID ref.RoomID) (ref.RoomID, error)

	// CreateRoom creates a new Matrix room.
	CreateRoom(ctx context.Context, request CreateRoomRequest) (*CreateRoomResponse, error)

	// LeaveRoom leaves a room with an optional reason.
	LeaveRoom(ctx context.Context, roomID ref.RoomID, reason string) error

	// ForgetRoom forgets a room the user has already left.
	ForgetRoom(ctx context.Context, roomID ref.RoomID) error

	// InviteUser invites a user to a room.
	InviteUser(ctx context.Context, roomID ref.RoomID, userID ref.UserID) error

	// JoinedRooms returns the list of room IDs the user has joined.
	JoinedRooms(ctx context.Context) ([]ref.RoomID, error)

	// GetRoomMembers lists a room's members as the homeserver reports
	// them, whatever their membership.
	GetRoomMembers(ctx context.Context, roomID ref.RoomID) ([]RoomMember, error)

	// GetProfile fetches a user's global profile.
	GetProfile(ctx context.Context, userID ref.UserID) (*ProfileResponse, error)

	// SendMessage sends a message to a room. Returns the event ID.
	SendMessage(ctx context.Context, roomID ref.RoomID, content MessageContent) (ref.EventID, error)
}

// Compile-time check: *DirectSession implements Session.
var _ Session = (*DirectSession)(nil)
