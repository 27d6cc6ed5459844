// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package backend

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bureau-foundation/matrixbot/lib/ref"
	"github.com/bureau-foundation/matrixbot/messaging"
)

func TestDeliveredMessageShape(t *testing.T) {
	tb := newTestBackend(t)
	tb.connect(t)

	tb.session.queueSync(syncResponse("s2", roomOne, nil, textEvent("$m1", aliceUserID, "hello")), nil)
	tb.step(t)

	delivered := tb.host.deliveries()
	if len(delivered) != 1 {
		t.Fatalf("delivered %d messages, want 1", len(delivered))
	}
	message := delivered[0]
	if message.Body != "hello" || message.EventID.String() != "$m1" {
		t.Errorf("message = %q %s", message.Body, message.EventID)
	}
	if !message.Timestamp.Equal(time.UnixMilli(1700000000000)) {
		t.Errorf("Timestamp = %v", message.Timestamp)
	}

	from, ok := message.From.(RoomOccupant)
	if !ok {
		t.Fatalf("From is %T, want RoomOccupant", message.From)
	}
	if from.ID() != "@alice:example.org" || from.FullName() != "Alice" {
		t.Errorf("sender = %q %q", from.ID(), from.FullName())
	}
	if emails := from.Emails(); len(emails) != 1 || emails[0] != "@alice:example.org" {
		t.Errorf("sender emails = %v", emails)
	}

	to, ok := message.To.(Room)
	if !ok {
		t.Fatalf("To is %T, want Room", message.To)
	}
	if to.ID() != roomOne.String() || to.Title() != "Lobby" {
		t.Errorf("target room = %q %q", to.ID(), to.Title())
	}
	if subject, ok := to.Subject(); !ok || subject != "general" {
		t.Errorf("target subject = %q %v", subject, ok)
	}
	if from.Room() != to {
		t.Error("sender's room differs from target room")
	}
}

func TestUnsupportedEventsDropped(t *testing.T) {
	tb := newTestBackend(t)
	tb.connect(t)

	notice := textEvent("$n", aliceUserID, "notice")
	notice.Content["msgtype"] = "m.notice"
	tb.session.queueSync(syncResponse("s2", roomOne, nil,
		emoteEvent("$e", aliceUserID, "waves"),
		notice,
		topicState("new topic"),
		textEvent("$t", aliceUserID, "text"),
	), nil)
	tb.step(t)

	delivered := tb.host.deliveries()
	if len(delivered) != 1 || delivered[0].Body != "text" {
		t.Fatalf("delivered = %+v, want only the text message", delivered)
	}
}

func TestDeliveryOrder(t *testing.T) {
	tb := newTestBackend(t)
	tb.connect(t)

	response := syncResponse("s2", roomTwo, nil, textEvent("$b1", aliceUserID, "r2-first"))
	response.Rooms.Join[roomOne] = messaging.JoinedRoom{Timeline: messaging.TimelineSection{Events: []messaging.Event{
		textEvent("$a1", aliceUserID, "r1-first"),
		textEvent("$a2", aliceUserID, "r1-second"),
	}}}
	tb.session.queueSync(response, nil)
	tb.step(t)

	var bodies []string
	for _, message := range tb.host.deliveries() {
		bodies = append(bodies, message.Body)
	}
	want := []string{"r1-first", "r1-second", "r2-first"}
	if len(bodies) != len(want) {
		t.Fatalf("bodies = %v, want %v", bodies, want)
	}
	for index := range want {
		if bodies[index] != want[index] {
			t.Errorf("bodies = %v, want %v", bodies, want)
			break
		}
	}
}

func TestSendMessage(t *testing.T) {
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		tb := newTestBackend(t)
		tb.connect(t)
		tb.session.sendEventIDs = []string{"$E1"}

		result, err := tb.backend.SendMessage(ctx, Message{Body: "hello", To: tb.backend.Room("!R1:example.org", "")})
		if err != nil {
			t.Fatalf("SendMessage: %v", err)
		}
		if result.EventID.String() != "$E1" || result.RoomID.String() != "!R1:example.org" {
			t.Errorf("result = %+v", result)
		}
		sent := tb.session.sent[0]
		if sent.content.MsgType != messaging.MsgTypeText || sent.content.Body != "hello" {
			t.Errorf("sent content = %+v", sent.content)
		}
	})

	t.Run("error response", func(t *testing.T) {
		tb := newTestBackend(t)
		tb.connect(t)
		tb.session.sendErr = matrixError(403, messaging.ErrCodeForbidden)

		result, err := tb.backend.SendMessage(ctx, Message{Body: "hello", To: tb.backend.Room(roomOne.String(), "")})
		var sendErr *SendError
		if !errors.As(err, &sendErr) {
			t.Fatalf("expected *SendError, got %T: %v", err, err)
		}
		if sendErr.RoomID != roomOne.String() || sendErr.Response.Code != messaging.ErrCodeForbidden {
			t.Errorf("SendError = %+v", sendErr)
		}
		if result != (SendResult{}) {
			t.Errorf("result on error = %+v, want zero", result)
		}
	})

	t.Run("transport failure", func(t *testing.T) {
		tb := newTestBackend(t)
		tb.connect(t)
		tb.session.sendErr = errNetwork

		_, err := tb.backend.SendMessage(ctx, Message{Body: "hello", To: tb.backend.Room(roomOne.String(), "")})
		var protocolErr *ProtocolError
		if !errors.As(err, &protocolErr) {
			t.Fatalf("expected *ProtocolError, got %T: %v", err, err)
		}
	})

	t.Run("occupant routes to room", func(t *testing.T) {
		tb := newTestBackend(t)
		tb.connect(t)

		occupant := NewRoomOccupant(NewPerson(NewIdentifier(aliceUserID.String()), "Alice", nil, nil), tb.backend.Room(roomTwo.String(), ""))
		result, err := tb.backend.SendMessage(ctx, Message{Body: "hi", To: occupant})
		if err != nil {
			t.Fatalf("SendMessage: %v", err)
		}
		if result.RoomID != roomTwo {
			t.Errorf("sent to %s, want the occupant's room", result.RoomID)
		}
	})

	t.Run("alias", func(t *testing.T) {
		tb := newTestBackend(t)
		tb.connect(t)
		tb.session.aliases["#lobby:example.org"] = roomOne

		result, err := tb.backend.SendMessage(ctx, Message{Body: "hi", To: NewIdentifier("#lobby:example.org")})
		if err != nil {
			t.Fatalf("SendMessage: %v", err)
		}
		if result.RoomID != roomOne {
			t.Errorf("sent to %s, want resolved alias", result.RoomID)
		}
	})

	t.Run("person is not a room", func(t *testing.T) {
		tb := newTestBackend(t)
		tb.connect(t)

		_, err := tb.backend.SendMessage(ctx, Message{Body: "hi", To: NewPerson(NewIdentifier(aliceUserID.String()), "", nil, nil)})
		var sendErr *SendError
		if !errors.As(err, &sendErr) {
			t.Fatalf("expected *SendError, got %T: %v", err, err)
		}
		if len(tb.session.sent) != 0 {
			t.Error("message sent to a non-room recipient")
		}
	})

	t.Run("not connected", func(t *testing.T) {
		tb := newTestBackend(t)
		_, err := tb.backend.SendMessage(ctx, Message{Body: "hi", To: NewIdentifier(roomOne.String())})
		if !errors.Is(err, ErrNotConnected) {
			t.Errorf("expected ErrNotConnected, got %v", err)
		}
	})
}

func TestBuildReplyRoundTrip(t *testing.T) {
	tb := newTestBackend(t)
	tb.connect(t)

	// Reply from inside Deliver, the way a host answers commands.
	tb.host.onDeliver = func(ctx context.Context, message Message) {
		if tb.backend.IsFromSelf(message) {
			return
		}
		reply := tb.backend.BuildReply(message, "pong")
		if _, err := tb.backend.SendMessage(ctx, reply); err != nil {
			t.Errorf("sending reply: %v", err)
		}
	}

	tb.session.queueSync(syncResponse("s2", roomOne, nil,
		textEvent("$m1", aliceUserID, "ping"),
		textEvent("$m2", botUserID, "own message"),
	), nil)
	tb.step(t)

	if len(tb.session.sent) != 1 {
		t.Fatalf("sent %d replies, want 1", len(tb.session.sent))
	}
	sent := tb.session.sent[0]
	if sent.roomID != roomOne {
		t.Errorf("reply sent to %s, want the room the message came from", sent.roomID)
	}
	if sent.content.Body != "ping\npong" {
		t.Errorf("reply body = %q", sent.content.Body)
	}
}

func TestBuildReply(t *testing.T) {
	tb := newTestBackend(t)
	tb.connect(t)

	sender := NewRoomOccupant(NewPerson(NewIdentifier(aliceUserID.String()), "Alice", nil, nil), tb.backend.Room(roomOne.String(), ""))
	reply := tb.backend.BuildReply(Message{Body: "question", From: sender}, "answer")
	if reply.Body != "question\nanswer" {
		t.Errorf("Body = %q", reply.Body)
	}
	if !SameIdentity(reply.To, sender) {
		t.Errorf("reply addressed to %v, want original sender", reply.To)
	}
	if reply.From.ID() != botUserID.String() {
		t.Errorf("reply from %v, want bot", reply.From)
	}
}

func TestPrefixGroupchatReply(t *testing.T) {
	tb := newTestBackend(t)
	message := Message{Body: "done"}
	tb.backend.PrefixGroupchatReply(&message, NewPerson(NewIdentifier("@a:x"), "Alice", nil, nil))
	if message.Body != "@Alice done" {
		t.Errorf("Body = %q", message.Body)
	}
}

func TestIsFromSelf(t *testing.T) {
	tb := newTestBackend(t)
	own := Message{From: NewPerson(NewIdentifier(botUserID.String()), "", nil, nil)}
	if tb.backend.IsFromSelf(own) {
		t.Error("IsFromSelf true before login")
	}

	tb.connect(t)
	if !tb.backend.IsFromSelf(own) {
		t.Error("IsFromSelf false for own message")
	}
	other := Message{From: NewPerson(NewIdentifier(aliceUserID.String()), "", nil, nil)}
	if tb.backend.IsFromSelf(other) {
		t.Error("IsFromSelf true for another user")
	}
	if tb.backend.IsFromSelf(Message{}) {
		t.Error("IsFromSelf true for a message without sender")
	}
}

func TestBuildIdentifier(t *testing.T) {
	ctx := context.Background()

	t.Run("resolved", func(t *testing.T) {
		tb := newTestBackend(t)
		tb.connect(t)
		person, err := tb.backend.BuildIdentifier(ctx, "@alice:example.org")
		if err != nil {
			t.Fatalf("BuildIdentifier: %v", err)
		}
		if person.FullName() != "Alice" || person.AccessControlKey() != "@alice:example.org" {
			t.Errorf("person = %q %q", person.FullName(), person.AccessControlKey())
		}
		if person.Session() == nil {
			t.Error("resolved person has no session")
		}
	})

	t.Run("profile error", func(t *testing.T) {
		tb := newTestBackend(t)
		tb.connect(t)
		tb.session.profileErr = matrixError(404, messaging.ErrCodeNotFound)
		_, err := tb.backend.BuildIdentifier(ctx, "@ghost:example.org")
		var resolveErr *IdentityResolutionError
		if !errors.As(err, &resolveErr) || resolveErr.UserID != "@ghost:example.org" {
			t.Fatalf("expected *IdentityResolutionError, got %T: %v", err, err)
		}
	})

	t.Run("not a user id", func(t *testing.T) {
		tb := newTestBackend(t)
		tb.connect(t)
		_, err := tb.backend.BuildIdentifier(ctx, "alice")
		var resolveErr *IdentityResolutionError
		if !errors.As(err, &resolveErr) {
			t.Fatalf("expected *IdentityResolutionError, got %T: %v", err, err)
		}
	})
}

func TestRoomsAndQueryRoom(t *testing.T) {
	tb := newTestBackend(t)
	tb.connect(t)
	ctx := context.Background()
	tb.session.joined = []ref.RoomID{roomOne, roomTwo}

	rooms, err := tb.backend.Rooms(ctx)
	if err != nil {
		t.Fatalf("Rooms: %v", err)
	}
	if len(rooms) != 2 || rooms[roomOne.String()].Title() != roomOne.String() {
		t.Errorf("Rooms() = %v", rooms)
	}

	first, ok, err := tb.backend.QueryRoom(ctx, roomOne.String())
	if err != nil || !ok {
		t.Fatalf("QueryRoom = %v, %v", ok, err)
	}
	second, _, _ := tb.backend.QueryRoom(ctx, roomOne.String())
	if first != second {
		t.Error("QueryRoom returned different rooms for unchanged state")
	}

	_, ok, err = tb.backend.QueryRoom(ctx, "!absent:example.org")
	if err != nil || ok {
		t.Errorf("QueryRoom(absent) = %v, %v; want miss without error", ok, err)
	}

	tb.session.joinedErr = errNetwork
	if _, err := tb.backend.Rooms(ctx); err == nil {
		t.Error("Rooms succeeded despite query failure")
	}
	tb.session.joinedErr = matrixError(500, messaging.ErrCodeUnknown)
	_, _, err = tb.backend.QueryRoom(ctx, roomOne.String())
	var queryErr *ProtocolQueryError
	if !errors.As(err, &queryErr) {
		t.Errorf("expected *ProtocolQueryError, got %T: %v", err, err)
	}
}

func TestChangePresenceIsNoop(t *testing.T) {
	tb := newTestBackend(t)
	tb.connect(t)
	tb.backend.ChangePresence("away", "lunch")
	if len(tb.session.sent) != 0 {
		t.Error("presence change produced traffic")
	}
}

func TestCloseIdleConnections(t *testing.T) {
	tb := newTestBackend(t)
	tb.backend.CloseIdleConnections()
	tb.connect(t)
	tb.backend.CloseIdleConnections()
	if tb.session.idleCloses != 1 {
		t.Errorf("idle closes = %d, want 1", tb.session.idleCloses)
	}
}
