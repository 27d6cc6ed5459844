// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package backend

import (
	"context"
	"time"

	"github.com/bureau-foundation/matrixbot/messaging"
)

type state int

const (
	stateAnonymous state = iota
	stateAuthenticating
	stateAwaitingInitialSync
	stateSyncing
	stateShuttingDown
)

func (s state) String() string {
	switch s {
	case stateAnonymous:
		return "anonymous"
	case stateAuthenticating:
		return "authenticating"
	case stateAwaitingInitialSync:
		return "awaiting_initial_sync"
	case stateSyncing:
		return "syncing"
	case stateShuttingDown:
		return "shutting_down"
	default:
		return "unknown"
	}
}

// syncFilter drops presence and account data, which the backend never
// reads.
const syncFilter = `{"presence":{"types":[]},"account_data":{"types":[]}}`

// logoutTimeout bounds the logout request made while shutting down,
// after the step context is already cancelled.
const logoutTimeout = 10 * time.Second

// ServeOnce advances the session by one step and reports whether the
// backend has shut down. A step is one of: log in, perform the initial
// (history-discarding) sync, or perform one long-poll sync and deliver
// its text messages to the host.
//
// Cancelling ctx is the interrupt: the step in flight is abandoned, the
// session is logged out, the host's Disconnected hook runs, and
// ServeOnce returns true. That is the only path returning true, and
// every later call returns true immediately.
//
// Errors are returned as-is for the host to act on; ServeOnce never
// retries internally. An *AuthenticationError whose Permanent method
// reports true means the login payload was rejected and retrying will
// not help. An *IdentityResolutionError from the login step means the
// session is up but the bot's own profile could not be read; the bot
// identity falls back to the bare user id and the next step syncs.
func (b *Backend) ServeOnce(ctx context.Context) (bool, error) {
	b.step.Lock()
	defer b.step.Unlock()

	b.mu.Lock()
	current := b.state
	b.mu.Unlock()

	if current == stateShuttingDown {
		return true, nil
	}
	if ctx.Err() != nil {
		return b.shutdown(ctx), nil
	}

	b.logger.Debug("serve step", "state", current)

	var err error
	switch current {
	case stateAnonymous, stateAuthenticating:
		err = b.login(ctx)
	case stateAwaitingInitialSync:
		err = b.initialSync(ctx)
	case stateSyncing:
		err = b.syncOnce(ctx)
	}

	if err != nil && ctx.Err() != nil {
		return b.shutdown(ctx), nil
	}
	if err != nil {
		b.mu.Lock()
		b.consecutiveFailure++
		b.mu.Unlock()
	}
	return false, err
}

func (b *Backend) setState(next state) {
	b.mu.Lock()
	b.state = next
	b.mu.Unlock()
}

func (b *Backend) login(ctx context.Context) error {
	b.setState(stateAuthenticating)
	b.logger.Info("logging in", "account", b.config.AccountAddress)

	session, err := b.config.Authenticator.LoginRaw(ctx, b.loginPayload())
	if err != nil {
		b.setState(stateAnonymous)
		return classify("login", err, func(matrixErr *messaging.MatrixError) error {
			return &AuthenticationError{Response: matrixErr, Err: err}
		})
	}

	userID := session.UserID()
	if userID.IsZero() {
		// Some login flows omit user_id from the response.
		userID, err = session.WhoAmI(ctx)
		if err != nil {
			session.Close()
			b.setState(stateAnonymous)
			return classify("whoami", err, func(matrixErr *messaging.MatrixError) error {
				return &AuthenticationError{Response: matrixErr, Err: err}
			})
		}
	}
	id := userID.String()

	b.mu.Lock()
	// A re-login for the same account after token loss keeps the room
	// table and cursor, and resumes incremental syncing.
	resume := b.initialSyncDone && b.rooms != nil && b.self.id == id
	if !resume {
		b.rooms = messaging.NewRoomTable(userID)
	}
	b.session = session
	b.userID = userID
	b.connected = true
	b.consecutiveFailure = 0
	b.self = NewPerson(NewIdentifier(id), "", []string{id}, session)
	if resume {
		b.state = stateSyncing
	} else {
		b.state = stateAwaitingInitialSync
	}
	b.mu.Unlock()

	b.logger.Info("logged in", "user_id", userID, "resumed", resume)
	b.config.Host.Connected()

	self, err := b.resolvePerson(ctx, session, userID)
	if err != nil {
		b.logger.Warn("resolving own profile failed, using bare user id",
			"user_id", userID,
			"error", err,
		)
		return err
	}
	b.mu.Lock()
	b.self = self
	b.mu.Unlock()
	return nil
}

func (b *Backend) initialSync(ctx context.Context) error {
	b.mu.Lock()
	session, rooms, since := b.session, b.rooms, b.cursor
	account := b.userID.String()
	b.mu.Unlock()

	if since == "" && b.config.Cursors != nil {
		stored, err := b.config.Cursors.LoadCursor(ctx, account)
		if err != nil {
			b.logger.Warn("loading stored sync cursor failed", "user_id", account, "error", err)
		} else {
			since = stored
		}
	}

	b.logger.Info("first sync, discarding previous messages", "since", since)
	response, err := session.Sync(ctx, messaging.SyncOptions{
		Since:     since,
		FullState: true,
		Filter:    syncFilter,
	})
	if err != nil {
		return b.syncFailure(err, true)
	}

	rooms.Apply(response)
	b.recordCursor(ctx, account, response.NextBatch)

	// Delivery is armed only once the flag is set, and the flag is set
	// only after the initial response has been consumed without
	// delivering anything.
	b.mu.Lock()
	b.initialSyncDone = true
	b.state = stateSyncing
	b.consecutiveFailure = 0
	b.mu.Unlock()

	b.logger.Info("end of first sync, now starting normal operation",
		"rooms", rooms.Len(),
		"next_batch", response.NextBatch,
	)
	return nil
}

func (b *Backend) syncOnce(ctx context.Context) error {
	b.mu.Lock()
	session, rooms, since := b.session, b.rooms, b.cursor
	account := b.userID.String()
	b.mu.Unlock()

	response, err := session.Sync(ctx, messaging.SyncOptions{
		Since:      since,
		Timeout:    int(b.config.SyncTimeout.Milliseconds()),
		SetTimeout: true,
		Filter:     syncFilter,
	})
	if err != nil {
		return b.syncFailure(err, false)
	}

	rooms.Apply(response)
	b.recordCursor(ctx, account, response.NextBatch)

	b.mu.Lock()
	b.consecutiveFailure = 0
	b.mu.Unlock()

	b.dispatch(ctx, session, rooms, response)
	return nil
}

// syncFailure classifies a failed /sync. An invalidated access token
// drops the session so the next step logs in again.
func (b *Backend) syncFailure(err error, initial bool) error {
	matrixErr, ok := messaging.AsMatrixError(err)
	if !ok {
		return &ProtocolError{Op: "sync", Err: err}
	}
	if matrixErr.Code == messaging.ErrCodeUnknownToken {
		b.dropSession()
	}
	return &SyncError{Initial: initial, Response: matrixErr, Err: err}
}

func (b *Backend) dropSession() {
	b.mu.Lock()
	session := b.session
	b.session = nil
	b.connected = false
	b.state = stateAnonymous
	b.mu.Unlock()

	b.logger.Warn("access token rejected, logging in again")
	if session != nil {
		session.Close()
	}
	b.config.Host.Disconnected()
}

func (b *Backend) recordCursor(ctx context.Context, account, cursor string) {
	b.mu.Lock()
	b.cursor = cursor
	b.mu.Unlock()

	if b.config.Cursors == nil || cursor == "" {
		return
	}
	if err := b.config.Cursors.SaveCursor(ctx, account, cursor); err != nil {
		b.logger.Warn("persisting sync cursor failed", "user_id", account, "error", err)
	}
}

// shutdown performs the interrupt path: logout, release the session,
// and run the host's Disconnected hook.
func (b *Backend) shutdown(ctx context.Context) bool {
	b.mu.Lock()
	session := b.session
	b.session = nil
	b.connected = false
	b.state = stateShuttingDown
	b.mu.Unlock()

	b.logger.Info("interrupt received, shutting down")
	if session != nil {
		logoutCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), logoutTimeout)
		defer cancel()
		if err := session.Logout(logoutCtx); err != nil {
			b.logger.Warn("logout failed", "error", err)
		}
		session.Close()
	}

	b.logger.Debug("triggering disconnect callback")
	b.config.Host.Disconnected()
	return true
}
