// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package backend

import (
	"context"
	"time"

	"github.com/bureau-foundation/matrixbot/lib/ref"
)

// Message is a chat message exchanged with the host. Inbound messages
// have From set to a RoomOccupant and To set to the Room they were sent
// in. Outbound messages are routed by To: a Room or a RoomOccupant (whose
// room is used), or any Identity whose id is a room id.
type Message struct {
	Body string
	From Identity
	To   Identity

	// EventID and Timestamp are set on inbound messages only.
	EventID   ref.EventID
	Timestamp time.Time
}

// SendResult is the outcome of a successful send.
type SendResult struct {
	RoomID  ref.RoomID
	EventID ref.EventID
}

// Host is the bot runtime the backend delivers to. Methods are called
// from inside ServeOnce, on the goroutine driving the step loop.
type Host interface {
	// Deliver receives one inbound text message. It may call back into
	// the Backend (for example to send a reply).
	Deliver(ctx context.Context, message Message)
	// Connected is called once after each successful login.
	Connected()
	// Disconnected is called when the backend shuts down, and when the
	// homeserver invalidates the session's access token.
	Disconnected()
}

// NopHost ignores everything. Embed it to implement only some hooks.
type NopHost struct{}

func (NopHost) Deliver(context.Context, Message) {}
func (NopHost) Connected()                       {}
func (NopHost) Disconnected()                    {}
