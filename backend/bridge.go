// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package backend

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/bureau-foundation/matrixbot/lib/ref"
	"github.com/bureau-foundation/matrixbot/messaging"
)

// dispatch delivers the text messages of a steady-state sync response
// to the host, room by room in room id order, events in timeline order.
func (b *Backend) dispatch(ctx context.Context, session messaging.Session, rooms *messaging.RoomTable, response *messaging.SyncResponse) {
	if !b.HasCompletedInitialSync() {
		return
	}

	roomIDs := make([]ref.RoomID, 0, len(response.Rooms.Join))
	for roomID := range response.Rooms.Join {
		roomIDs = append(roomIDs, roomID)
	}
	slices.SortFunc(roomIDs, func(a, b ref.RoomID) int {
		return strings.Compare(a.String(), b.String())
	})

	for _, roomID := range roomIDs {
		for _, event := range response.Rooms.Join[roomID].Timeline.Events {
			message, ok := translate(session, rooms, roomID, event)
			if !ok {
				b.logger.Debug("unhandled event type ignored",
					"room_id", roomID,
					"event_id", event.EventID,
					"type", event.Type,
				)
				continue
			}
			b.config.Host.Deliver(ctx, message)
		}
	}
}

// translate converts a timeline event into a host message. Only
// m.room.message events with msgtype m.text translate.
func translate(session messaging.Session, rooms *messaging.RoomTable, roomID ref.RoomID, event messaging.Event) (Message, bool) {
	if event.Type != ref.EventTypeMessage || event.IsState() {
		return Message{}, false
	}
	if event.ContentString("msgtype") != messaging.MsgTypeText {
		return Message{}, false
	}

	record, _ := rooms.Lookup(roomID)
	var options []RoomOption
	if record.HasTopic {
		options = append(options, WithSubject(record.Topic))
	}
	room := newRoom(roomID.String(), record.Name, session, rooms, options...)

	sender := event.Sender.String()
	person := NewPerson(NewIdentifier(sender), record.UserName(event.Sender), []string{sender}, session)

	message := Message{
		Body:    event.ContentString("body"),
		From:    NewRoomOccupant(person, room),
		To:      room,
		EventID: event.EventID,
	}
	if event.OriginServerTS > 0 {
		message.Timestamp = time.UnixMilli(event.OriginServerTS)
	}
	return message, true
}

// SendMessage sends message.Body as an m.text message to the room
// message.To resolves to.
func (b *Backend) SendMessage(ctx context.Context, message Message) (SendResult, error) {
	session := b.currentSession()
	if session == nil {
		return SendResult{}, &SendError{Err: ErrNotConnected}
	}

	roomID, err := destination(ctx, session, message.To)
	if err != nil {
		return SendResult{}, err
	}

	eventID, err := session.SendMessage(ctx, roomID, messaging.NewTextMessage(message.Body))
	if err != nil {
		return SendResult{}, classify("send message", err, func(matrixErr *messaging.MatrixError) error {
			return &SendError{RoomID: roomID.String(), Response: matrixErr, Err: err}
		})
	}

	b.logger.Debug("message sent", "room_id", roomID, "event_id", eventID)
	return SendResult{RoomID: roomID, EventID: eventID}, nil
}

// destination resolves a recipient to a room id. Occupants route to
// their room; aliases are resolved through the directory.
func destination(ctx context.Context, session messaging.Session, to Identity) (ref.RoomID, error) {
	if to == nil {
		return ref.RoomID{}, &SendError{Err: fmt.Errorf("message has no recipient")}
	}

	target := to.ID()
	switch recipient := to.(type) {
	case RoomOccupant:
		target = recipient.Room().ID()
	case *RoomOccupant:
		target = recipient.Room().ID()
	}

	if strings.HasPrefix(target, "#") {
		alias, err := ref.ParseRoomAlias(target)
		if err != nil {
			return ref.RoomID{}, &SendError{RoomID: target, Err: err}
		}
		roomID, err := session.ResolveAlias(ctx, alias)
		if err != nil {
			return ref.RoomID{}, classify("resolve room alias", err, func(matrixErr *messaging.MatrixError) error {
				return &SendError{RoomID: target, Response: matrixErr, Err: err}
			})
		}
		return roomID, nil
	}

	roomID, err := ref.ParseRoomID(target)
	if err != nil {
		return ref.RoomID{}, &SendError{RoomID: target, Err: fmt.Errorf("recipient %q is not a room: %w", to.ID(), err)}
	}
	return roomID, nil
}
