// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package backend adapts a Matrix account to a synchronous,
// callback-driven bot runtime (the host).
//
// The host owns the loop: it calls [Backend.ServeOnce] repeatedly, and
// each call advances the session by exactly one step through
//
//	anonymous → authenticating → awaiting initial sync → syncing → shutting down
//
// Login posts the configured payload verbatim and fires the host's
// Connected hook. The first sync is a full-state sync whose events are
// discarded, so the bot never answers history; only after it succeeds is
// delivery armed. Every later step is one long-poll /sync whose
// m.text messages are handed to [Host.Deliver]. Cancelling the step
// context is the interrupt: the session logs out, Disconnected fires, and
// ServeOnce reports shutdown.
//
// Homeserver error responses surface as one error type per kind
// ([*AuthenticationError], [*SyncError], [*RoomOperationError],
// [*SendError], [*IdentityResolutionError], [*ProtocolQueryError]);
// anything that is not an error response (network failures, malformed
// responses) is a [*ProtocolError]. Room properties that need the live
// room record fail with [*RoomUnknownError] when the record is gone.
//
// [Person], [RoomOccupant], and [Room] are read-only snapshots. A Room
// holds a lookup into the session's room table rather than a copy, so
// its derived properties follow the latest sync.
package backend
