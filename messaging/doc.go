// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package messaging is matrixbot's Matrix client-server transport.
//
// [Client] is an unauthenticated client holding the homeserver URL and
// HTTP transport. LoginRaw authenticates and returns a
// [DirectSession], which carries the access token (in a
// [secret.Buffer]) and performs every authenticated call the bot
// needs: /sync, room membership (join, create, leave, forget, invite),
// joined-room and member listing, profile lookup, and message sending.
//
// Every homeserver error response is returned as a [*MatrixError]
// carrying the Matrix errcode, message, and HTTP status. Network and
// decoding failures are returned as ordinary wrapped errors. Callers
// tell the two apart with errors.As or [AsMatrixError]; this is the
// only classification the package performs.
//
// [RoomTable] is the client-side view of the rooms the account is in,
// built exclusively from /sync responses. It mirrors what the protocol
// has reported (names, topics, membership) and hands out immutable
// [RoomRecord] snapshots, so readers never observe a half-applied sync.
//
// Request URLs are built by string concatenation with url.PathEscape
// per segment, which keeps room IDs and aliases containing reserved
// characters intact.
package messaging
