// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package sqlitepool opens the SQLite database that holds matrixbot's
// local state.
//
// It wraps zombiezen.com/go/sqlite's sqlitex.Pool. Callers [Pool.Take]
// a connection, do their work, and [Pool.Put] it back, or use
// [Pool.WithConn] for the common borrow-and-return shape. Connections
// are not safe for concurrent use.
//
// Every connection runs with journal_mode=WAL, synchronous=NORMAL,
// busy_timeout=5000 and temp_store=MEMORY. NORMAL survives a process
// crash, which is the failure that matters for a sync cursor: losing
// the last few cursor writes on power loss only means re-reading a
// short stretch of history.
//
// Schema changes are expressed as an ordered list of migration
// scripts in [Config.Migrations]. Open applies the ones not yet
// recorded in the database's user_version pragma.
//
//	pool, err := sqlitepool.Open(ctx, sqlitepool.Config{
//	    Path:       "/var/lib/matrixbot/state.db",
//	    Migrations: []string{createCursorTable},
//	    Logger:     logger,
//	})
//	if err != nil {
//	    return err
//	}
//	defer pool.Close()
package sqlitepool
