// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package cursorstore persists the Matrix sync cursor (the next_batch
// token) per account so a restarted bot can resume its timeline
// instead of replaying the homeserver's default window.
//
// [Memory] keeps cursors for the life of the process. [SQLite] keeps
// them in a database opened through lib/sqlitepool, and [Redis] in a
// Redis server shared by every host the bot may run on. All satisfy
// backend.CursorStore; [Open] picks SQLite or Redis from a location
// string.
package cursorstore
