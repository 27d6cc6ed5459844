// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Matrixbot connects one Matrix account to the bot runtime and keeps it
// connected.
//
// It loads its configuration from --config or MATRIXBOT_CONFIG, signs
// in with the configured login payload, and drives the backend's
// ServeOnce loop until SIGINT or SIGTERM. Failed steps are retried with
// exponential backoff from one second up to thirty, or longer when the
// homeserver asks for it. A login rejected with a 4xx other than 429 is
// fatal because retrying the same payload cannot succeed.
//
// With --echo, every text message from another user is answered with a
// quoted reply in the same room.
//
// Exit status is 0 after a clean shutdown and 1 on configuration or
// authentication errors.
package main
