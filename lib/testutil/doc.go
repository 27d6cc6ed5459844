// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil holds test helpers shared across matrixbot's
// packages.
//
// [RequireReceive] wraps the select-with-deadline pattern used when a
// test waits on a goroutine, such as a backend blocked in a long-poll.
// It is the only place tests wait on the wall clock.
//
// [UniqueID] returns distinct identifiers for transaction IDs, account
// names, and message bodies without reading the clock.
//
// [WriteFile] places a fixture file, typically a configuration file,
// in a per-test directory.
//
// Helpers fail the test with t.Fatalf instead of returning errors.
package testutil
