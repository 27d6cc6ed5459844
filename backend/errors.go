// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package backend

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/bureau-foundation/matrixbot/messaging"
)

// ErrRoomUnknown is wrapped by every RoomUnknownError, so callers can
// test with errors.Is without caring which room was missing.
var ErrRoomUnknown = errors.New("room not in the session's room table")

// ErrNotConnected is returned by operations that need an authenticated
// session before the first successful login (or after shutdown).
var ErrNotConnected = errors.New("backend is not connected")

// AuthenticationError reports that the homeserver answered the login
// request with an error. Rejections of the payload itself are
// permanent; rate limits and server errors are not (see Permanent).
type AuthenticationError struct {
	// Response is the homeserver's error response.
	Response *messaging.MatrixError
	Err      error
}

func (e *AuthenticationError) Error() string {
	return fmt.Sprintf("authentication failed: %v", e.Err)
}

func (e *AuthenticationError) Unwrap() error { return e.Err }

// Permanent reports whether retrying with the same payload will fail
// the same way: any 4xx response other than 429.
func (e *AuthenticationError) Permanent() bool {
	if e.Response == nil {
		return true
	}
	status := e.Response.StatusCode
	return status >= 400 && status < 500 && status != http.StatusTooManyRequests
}

// SyncError reports a homeserver error response to a /sync request.
type SyncError struct {
	// Initial is true when the failing request was the first,
	// full-state sync of the session.
	Initial  bool
	Response *messaging.MatrixError
	Err      error
}

func (e *SyncError) Error() string {
	if e.Initial {
		return fmt.Sprintf("initial sync failed: %v", e.Err)
	}
	return fmt.Sprintf("sync failed: %v", e.Err)
}

func (e *SyncError) Unwrap() error { return e.Err }

// RoomOperationError reports that the homeserver refused a room
// operation (join, create, leave, invite, destroy).
type RoomOperationError struct {
	// Op names the operation, e.g. "join" or "invite".
	Op     string
	RoomID string
	// Response is the homeserver's error response. For invite it is the
	// first failing invitee's response, if that failure was a response.
	Response *messaging.MatrixError
	// Results holds one entry per invitee, in call order. Empty for
	// operations other than invite.
	Results []InviteResult
	Err     error
}

func (e *RoomOperationError) Error() string {
	return fmt.Sprintf("room %s %s failed: %v", e.Op, e.RoomID, e.Err)
}

func (e *RoomOperationError) Unwrap() error { return e.Err }

// Failed returns the invite results that carry an error.
func (e *RoomOperationError) Failed() []InviteResult {
	var failed []InviteResult
	for _, result := range e.Results {
		if result.Err != nil {
			failed = append(failed, result)
		}
	}
	return failed
}

// SendError reports that a message could not be sent.
type SendError struct {
	RoomID   string
	Response *messaging.MatrixError
	Err      error
}

func (e *SendError) Error() string {
	if e.RoomID == "" {
		return fmt.Sprintf("send failed: %v", e.Err)
	}
	return fmt.Sprintf("send to %s failed: %v", e.RoomID, e.Err)
}

func (e *SendError) Unwrap() error { return e.Err }

// IdentityResolutionError reports that a user's profile could not be
// resolved into a Person.
type IdentityResolutionError struct {
	UserID   string
	Response *messaging.MatrixError
	Err      error
}

func (e *IdentityResolutionError) Error() string {
	return fmt.Sprintf("resolving identity %q: %v", e.UserID, e.Err)
}

func (e *IdentityResolutionError) Unwrap() error { return e.Err }

// ProtocolQueryError reports a failed read-only query (joined rooms,
// membership checks).
type ProtocolQueryError struct {
	Query    string
	Response *messaging.MatrixError
	Err      error
}

func (e *ProtocolQueryError) Error() string {
	return fmt.Sprintf("query %s failed: %v", e.Query, e.Err)
}

func (e *ProtocolQueryError) Unwrap() error { return e.Err }

// ProtocolError reports a failure that is not a homeserver error
// response: the network, a malformed response, or a request that never
// left the process.
type ProtocolError struct {
	Op  string
	Err error
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ProtocolError) Unwrap() error { return e.Err }

// RoomUnknownError is returned by room properties that need the live
// room record when the session's room table has none for the room.
type RoomUnknownError struct {
	RoomID string
}

func (e *RoomUnknownError) Error() string {
	return fmt.Sprintf("room %s: %v", e.RoomID, ErrRoomUnknown)
}

func (e *RoomUnknownError) Unwrap() error { return ErrRoomUnknown }

// classify turns a transport error into the caller's error kind when it
// carries a homeserver response, and into a *ProtocolError otherwise.
func classify(op string, err error, onResponse func(*messaging.MatrixError) error) error {
	if matrixErr, ok := messaging.AsMatrixError(err); ok {
		return onResponse(matrixErr)
	}
	return &ProtocolError{Op: op, Err: err}
}
