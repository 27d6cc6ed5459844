// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package backend

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"sync"
	"time"

	"github.com/bureau-foundation/matrixbot/lib/ref"
	"github.com/bureau-foundation/matrixbot/messaging"
)

// Mode is the backend's name as reported to the host.
const Mode = "matrix"

// DefaultSyncTimeout is the long-poll wait of steady-state syncs.
const DefaultSyncTimeout = 30 * time.Second

// Authenticator exchanges a raw login payload for a session.
type Authenticator interface {
	LoginRaw(ctx context.Context, payload map[string]any) (messaging.Session, error)
}

// ClientAuthenticator adapts a *messaging.Client to Authenticator.
type ClientAuthenticator struct {
	Client *messaging.Client
}

// LoginRaw implements Authenticator.
func (a ClientAuthenticator) LoginRaw(ctx context.Context, payload map[string]any) (messaging.Session, error) {
	session, err := a.Client.LoginRaw(ctx, payload)
	if err != nil {
		// Avoid returning a typed nil inside the interface.
		return nil, err
	}
	return session, nil
}

// CursorStore persists the sync cursor (next_batch) between runs,
// keyed by account.
type CursorStore interface {
	// LoadCursor returns the stored cursor, or "" if none.
	LoadCursor(ctx context.Context, account string) (string, error)
	// SaveCursor replaces the stored cursor.
	SaveCursor(ctx context.Context, account, cursor string) error
}

// Config holds the dependencies and settings of a Backend.
type Config struct {
	// AccountAddress is the configured account (a Matrix user id or
	// login name), used for logging. The cursor store is keyed by the
	// user id the homeserver reports at login.
	AccountAddress string

	// AuthPayload is posted verbatim to the /login endpoint.
	AuthPayload map[string]any

	// DeviceName is added to the login payload as
	// initial_device_display_name when the payload does not set one.
	DeviceName string

	// SyncTimeout is the long-poll wait of steady-state syncs. Zero
	// means DefaultSyncTimeout.
	SyncTimeout time.Duration

	// Authenticator performs the login. Required.
	Authenticator Authenticator

	// Host receives inbound messages and lifecycle hooks. Required.
	Host Host

	// Cursors persists the sync cursor. Optional: without it the
	// cursor lives only in memory.
	Cursors CursorStore

	// Logger is used for structured logging. If nil, logging is discarded.
	Logger *slog.Logger
}

// Backend adapts a Matrix account to the host's callback model. The host
// calls ServeOnce in a loop; each call advances the session by one step.
// The remaining methods may be called from Host callbacks or from other
// goroutines.
type Backend struct {
	config Config
	logger *slog.Logger

	// step serializes ServeOnce calls.
	step sync.Mutex

	mu                 sync.Mutex
	state              state
	session            messaging.Session
	rooms              *messaging.RoomTable
	userID             ref.UserID
	self               Person
	cursor             string
	initialSyncDone    bool
	connected          bool
	consecutiveFailure int
}

// New validates config and returns an anonymous Backend.
func New(config Config) (*Backend, error) {
	if config.AccountAddress == "" {
		return nil, fmt.Errorf("backend: AccountAddress is required")
	}
	if len(config.AuthPayload) == 0 {
		return nil, fmt.Errorf("backend: AuthPayload is required")
	}
	if config.Authenticator == nil {
		return nil, fmt.Errorf("backend: Authenticator is required")
	}
	if config.Host == nil {
		return nil, fmt.Errorf("backend: Host is required")
	}
	if config.SyncTimeout <= 0 {
		config.SyncTimeout = DefaultSyncTimeout
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Backend{
		config: config,
		logger: logger,
		state:  stateAnonymous,
	}, nil
}

// Mode returns Mode.
func (b *Backend) Mode() string { return Mode }

// BotIdentifier returns the bot's own identity. It is the zero Person
// until the first login succeeds.
func (b *Backend) BotIdentifier() Person {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.self
}

// HasCompletedInitialSync reports whether the first, history-discarding
// sync has succeeded. No message is delivered before it does.
func (b *Backend) HasCompletedInitialSync() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.initialSyncDone
}

// Cursor returns the last recorded sync cursor.
func (b *Backend) Cursor() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.cursor
}

// ConsecutiveFailures returns how many steps in a row have failed since
// the last successful login or sync. The host uses it to back off.
func (b *Backend) ConsecutiveFailures() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.consecutiveFailure
}

// CloseIdleConnections drops pooled connections of the current session,
// if any.
func (b *Backend) CloseIdleConnections() {
	if session := b.currentSession(); session != nil {
		session.CloseIdleConnections()
	}
}

func (b *Backend) currentSession() messaging.Session {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.session
}

func (b *Backend) currentRooms() *messaging.RoomTable {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.rooms
}

// IsFromSelf reports whether message was sent by the bot's own account.
func (b *Backend) IsFromSelf(message Message) bool {
	self := b.BotIdentifier()
	if self.id == "" || message.From == nil {
		return false
	}
	return message.From.ID() == self.id
}

// BuildIdentifier resolves a user id into a Person through a profile
// lookup. The Person's contact address is the user id.
func (b *Backend) BuildIdentifier(ctx context.Context, text string) (Person, error) {
	userID, err := ref.ParseUserID(text)
	if err != nil {
		return Person{}, &IdentityResolutionError{UserID: text, Err: err}
	}
	session := b.currentSession()
	if session == nil {
		return Person{}, &IdentityResolutionError{UserID: text, Err: ErrNotConnected}
	}
	return b.resolvePerson(ctx, session, userID)
}

func (b *Backend) resolvePerson(ctx context.Context, session messaging.Session, userID ref.UserID) (Person, error) {
	profile, err := session.GetProfile(ctx, userID)
	if err != nil {
		return Person{}, classify("get profile", err, func(matrixErr *messaging.MatrixError) error {
			return &IdentityResolutionError{UserID: userID.String(), Response: matrixErr, Err: err}
		})
	}
	id := userID.String()
	return NewPerson(NewIdentifier(id), profile.DisplayName, []string{id}, session), nil
}

// BuildReply builds a reply to message: the body quotes the original
// body followed by text on a new line, and the reply is addressed to the
// original sender (so it is sent to the room the message came from).
func (b *Backend) BuildReply(message Message, text string) Message {
	return Message{
		Body: message.Body + "\n" + text,
		From: b.BotIdentifier(),
		To:   message.From,
	}
}

// PrefixGroupchatReply mentions person at the start of message's body.
func (b *Backend) PrefixGroupchatReply(message *Message, person Person) {
	message.Body = "@" + person.FullName() + " " + message.Body
}

// ChangePresence is accepted and ignored: the backend does not publish
// presence.
func (b *Backend) ChangePresence(status, message string) {
	b.logger.Debug("presence change ignored", "status", status)
}

// Rooms lists the rooms the account is joined to, keyed by room id. Each
// Room is titled with its id.
func (b *Backend) Rooms(ctx context.Context) (map[string]Room, error) {
	session := b.currentSession()
	if session == nil {
		return nil, &ProtocolQueryError{Query: "joined rooms", Err: ErrNotConnected}
	}
	joined, err := session.JoinedRooms(ctx)
	if err != nil {
		return nil, queryError("joined rooms", err)
	}

	table := b.currentRooms()
	rooms := make(map[string]Room, len(joined))
	for _, roomID := range joined {
		id := roomID.String()
		rooms[id] = newRoom(id, id, session, table)
	}
	return rooms, nil
}

// QueryRoom looks up one joined room. A room the account is not joined
// to is a miss (false), not an error.
func (b *Backend) QueryRoom(ctx context.Context, id string) (Room, bool, error) {
	rooms, err := b.Rooms(ctx)
	if err != nil {
		return Room{}, false, err
	}
	room, ok := rooms[id]
	return room, ok, nil
}

// Room builds a Room handle for id without any network call, for
// joining or creating rooms the account is not in yet.
func (b *Backend) Room(id, title string, options ...RoomOption) Room {
	b.mu.Lock()
	defer b.mu.Unlock()
	return newRoom(id, title, b.session, b.rooms, options...)
}

// loginPayload returns the configured payload, adding the device name
// when it is configured and the payload does not set one.
func (b *Backend) loginPayload() map[string]any {
	payload := maps.Clone(b.config.AuthPayload)
	if _, ok := payload["initial_device_display_name"]; !ok && b.config.DeviceName != "" {
		payload["initial_device_display_name"] = b.config.DeviceName
	}
	return payload
}
