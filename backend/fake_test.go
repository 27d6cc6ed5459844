// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package backend

import (
	"context"
	"errors"
	"sync"

	"github.com/bureau-foundation/matrixbot/lib/ref"
	"github.com/bureau-foundation/matrixbot/messaging"
)

var (
	botUserID   = ref.MustParseUserID("@bot:example.org")
	aliceUserID = ref.MustParseUserID("@alice:example.org")
	roomOne     = ref.MustParseRoomID("!r1:example.org")
	roomTwo     = ref.MustParseRoomID("!r2:example.org")

	errNetwork = errors.New("dial tcp: connection refused")
)

func matrixError(status int, code string) *messaging.MatrixError {
	return &messaging.MatrixError{Code: code, Message: code, StatusCode: status}
}

type syncReply struct {
	response *messaging.SyncResponse
	err      error
}

type sentMessage struct {
	roomID  ref.RoomID
	content messaging.MessageContent
}

// fakeSession is an in-memory messaging.Session. Sync replies are
// consumed in order; once they run out, Sync blocks until its context
// is cancelled, like a long-poll with nothing to report.
type fakeSession struct {
	mu sync.Mutex

	userID ref.UserID

	whoAmIID     ref.UserID
	whoAmIErr    error
	whoAmICalls  int
	members      []messaging.RoomMember
	membersErr   error
	memberCalls  int
	syncReplies  []syncReply
	syncCalls    []messaging.SyncOptions
	syncStarted  chan struct{}
	profiles     map[string]string
	profileErr   error
	joined       []ref.RoomID
	joinedErr    error
	aliases      map[string]ref.RoomID
	joinErr      error
	joins        []ref.RoomID
	createErr    error
	creates      []messaging.CreateRoomRequest
	leaveErr     error
	leaves       []string
	forgetErr    error
	forgets      []ref.RoomID
	inviteErrs   map[string]error
	invites      []ref.UserID
	sendErr      error
	sendEventIDs []string
	sent         []sentMessage
	logoutErr    error
	logouts      int
	closes       int
	idleCloses   int
}

func newFakeSession(userID ref.UserID) *fakeSession {
	return &fakeSession{
		userID:      userID,
		syncStarted: make(chan struct{}, 16),
		profiles:    map[string]string{},
		aliases:     map[string]ref.RoomID{},
		inviteErrs:  map[string]error{},
	}
}

func (s *fakeSession) queueSync(response *messaging.SyncResponse, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.syncReplies = append(s.syncReplies, syncReply{response: response, err: err})
}

func (s *fakeSession) UserID() ref.UserID { return s.userID }

func (s *fakeSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closes++
	return nil
}

func (s *fakeSession) CloseIdleConnections() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.idleCloses++
}

func (s *fakeSession) WhoAmI(context.Context) (ref.UserID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.whoAmICalls++
	if s.whoAmIErr != nil {
		return ref.UserID{}, s.whoAmIErr
	}
	return s.whoAmIID, nil
}

func (s *fakeSession) Logout(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ctx.Err() != nil {
		return ctx.Err()
	}
	s.logouts++
	return s.logoutErr
}

func (s *fakeSession) Sync(ctx context.Context, options messaging.SyncOptions) (*messaging.SyncResponse, error) {
	s.mu.Lock()
	s.syncCalls = append(s.syncCalls, options)
	var reply *syncReply
	if len(s.syncReplies) > 0 {
		reply = &s.syncReplies[0]
		s.syncReplies = s.syncReplies[1:]
	}
	s.mu.Unlock()

	select {
	case s.syncStarted <- struct{}{}:
	default:
	}

	if reply == nil {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return reply.response, reply.err
}

func (s *fakeSession) ResolveAlias(_ context.Context, alias ref.RoomAlias) (ref.RoomID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	roomID, ok := s.aliases[alias.String()]
	if !ok {
		return ref.RoomID{}, matrixError(404, messaging.ErrCodeNotFound)
	}
	return roomID, nil
}

func (s *fakeSession) JoinRoom(_ context.Context, roomID ref.RoomID) (ref.RoomID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.joins = append(s.joins, roomID)
	if s.joinErr != nil {
		return ref.RoomID{}, s.joinErr
	}
	return roomID, nil
}

func (s *fakeSession) CreateRoom(_ context.Context, request messaging.CreateRoomRequest) (*messaging.CreateRoomResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creates = append(s.creates, request)
	if s.createErr != nil {
		return nil, s.createErr
	}
	return &messaging.CreateRoomResponse{RoomID: ref.MustParseRoomID("!created:example.org")}, nil
}

func (s *fakeSession) LeaveRoom(_ context.Context, roomID ref.RoomID, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.leaves = append(s.leaves, roomID.String()+"|"+reason)
	return s.leaveErr
}

func (s *fakeSession) ForgetRoom(_ context.Context, roomID ref.RoomID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.forgets = append(s.forgets, roomID)
	return s.forgetErr
}

func (s *fakeSession) InviteUser(_ context.Context, _ ref.RoomID, userID ref.UserID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.invites = append(s.invites, userID)
	return s.inviteErrs[userID.String()]
}

func (s *fakeSession) JoinedRooms(context.Context) ([]ref.RoomID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.joinedErr != nil {
		return nil, s.joinedErr
	}
	return append([]ref.RoomID(nil), s.joined...), nil
}

func (s *fakeSession) GetRoomMembers(context.Context, ref.RoomID) ([]messaging.RoomMember, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.memberCalls++
	if s.membersErr != nil {
		return nil, s.membersErr
	}
	return append([]messaging.RoomMember(nil), s.members...), nil
}

func (s *fakeSession) GetProfile(_ context.Context, userID ref.UserID) (*messaging.ProfileResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.profileErr != nil {
		return nil, s.profileErr
	}
	return &messaging.ProfileResponse{DisplayName: s.profiles[userID.String()]}, nil
}

func (s *fakeSession) SendMessage(_ context.Context, roomID ref.RoomID, content messaging.MessageContent) (ref.EventID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sendErr != nil {
		return ref.EventID{}, s.sendErr
	}
	s.sent = append(s.sent, sentMessage{roomID: roomID, content: content})
	eventID := "$E" + string(rune('0'+len(s.sent)))
	if len(s.sendEventIDs) > 0 {
		eventID = s.sendEventIDs[0]
		s.sendEventIDs = s.sendEventIDs[1:]
	}
	return ref.MustParseEventID(eventID), nil
}

var _ messaging.Session = (*fakeSession)(nil)

// fakeAuthenticator hands out a fixed session, or fails with err.
type fakeAuthenticator struct {
	mu       sync.Mutex
	session  *fakeSession
	err      error
	payloads []map[string]any
}

func (a *fakeAuthenticator) LoginRaw(ctx context.Context, payload map[string]any) (messaging.Session, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.payloads = append(a.payloads, payload)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if a.err != nil {
		return nil, a.err
	}
	return a.session, nil
}

func (a *fakeAuthenticator) logins() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.payloads)
}

// recordingHost records deliveries and hook calls. onDeliver, if set,
// runs for each delivery.
type recordingHost struct {
	mu           sync.Mutex
	delivered    []Message
	connected    int
	disconnected int
	onDeliver    func(context.Context, Message)
}

func (h *recordingHost) Deliver(ctx context.Context, message Message) {
	h.mu.Lock()
	h.delivered = append(h.delivered, message)
	onDeliver := h.onDeliver
	h.mu.Unlock()
	if onDeliver != nil {
		onDeliver(ctx, message)
	}
}

func (h *recordingHost) Connected() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.connected++
}

func (h *recordingHost) Disconnected() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.disconnected++
}

func (h *recordingHost) deliveries() []Message {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]Message(nil), h.delivered...)
}

// Sync response builders.

func stringPointer(value string) *string { return &value }

func textEvent(eventID string, sender ref.UserID, body string) messaging.Event {
	return messaging.Event{
		EventID:        ref.MustParseEventID(eventID),
		Type:           ref.EventTypeMessage,
		Sender:         sender,
		OriginServerTS: 1700000000000,
		Content:        map[string]any{"msgtype": "m.text", "body": body},
	}
}

func emoteEvent(eventID string, sender ref.UserID, body string) messaging.Event {
	event := textEvent(eventID, sender, body)
	event.Content["msgtype"] = "m.emote"
	return event
}

func memberState(userID ref.UserID, displayName string) messaging.Event {
	return messaging.Event{
		Type:     ref.EventTypeMember,
		Sender:   userID,
		StateKey: stringPointer(userID.String()),
		Content:  map[string]any{"membership": "join", "displayname": displayName},
	}
}

func nameState(name string) messaging.Event {
	return messaging.Event{
		Type:     ref.EventTypeName,
		Sender:   aliceUserID,
		StateKey: stringPointer(""),
		Content:  map[string]any{"name": name},
	}
}

func topicState(topic string) messaging.Event {
	return messaging.Event{
		Type:     ref.EventTypeTopic,
		Sender:   aliceUserID,
		StateKey: stringPointer(""),
		Content:  map[string]any{"topic": topic},
	}
}

func syncResponse(nextBatch string, roomID ref.RoomID, state []messaging.Event, timeline ...messaging.Event) *messaging.SyncResponse {
	return &messaging.SyncResponse{
		NextBatch: nextBatch,
		Rooms: messaging.RoomsSection{
			Join: map[ref.RoomID]messaging.JoinedRoom{
				roomID: {
					State:    messaging.StateSection{Events: state},
					Timeline: messaging.TimelineSection{Events: timeline},
				},
			},
		},
	}
}
