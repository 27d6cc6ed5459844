// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package netutil provides HTTP and connection helpers shared by the
// Matrix transport and the host loop.
//
// ReadResponse bounds response body reads at MaxResponseSize so a
// misbehaving homeserver cannot exhaust memory. IsExpectedCloseError
// recognizes the errors a dropped long-poll connection produces.
package netutil

import (
	"io"
)

// MaxResponseSize bounds JSON API response reads: 64 MB. A full-state
// /sync for an account in many large rooms is the biggest response the
// adapter sees; it is still well below this.
const MaxResponseSize int64 = 64 << 20

// ReadResponse reads a JSON API response body up to MaxResponseSize
// bytes. Use instead of io.ReadAll for HTTP response bodies.
func ReadResponse(body io.Reader) ([]byte, error) {
	return io.ReadAll(io.LimitReader(body, MaxResponseSize))
}
