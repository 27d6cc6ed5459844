// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package process holds the entrypoint helpers matrixbot's main uses
// before its logger exists and after it has shut down: reporting a
// fatal error on stderr and choosing the exit status.
package process
