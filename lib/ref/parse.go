// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package ref

import (
	"fmt"
	"strings"
)

// splitSigiled checks the shape shared by user IDs, room IDs and room
// aliases: sigil, non-empty local part, ':', server name. The server
// name may carry a port, so only the first colon separates. The local
// part is otherwise opaque; the homeserver decides what it accepts.
func splitSigiled(raw string, sigil byte, kind string) (local, server string, err error) {
	if raw == "" {
		return "", "", fmt.Errorf("empty %s", kind)
	}
	if raw[0] != sigil {
		return "", "", fmt.Errorf("%s must start with '%c': %q", kind, sigil, raw)
	}
	local, server, found := strings.Cut(raw[1:], ":")
	if !found {
		return "", "", fmt.Errorf("%s missing ':server' suffix: %q", kind, raw)
	}
	if local == "" {
		return "", "", fmt.Errorf("%s has empty local part: %q", kind, raw)
	}
	if server == "" {
		return "", "", fmt.Errorf("%s has empty server name: %q", kind, raw)
	}
	for i := 0; i < len(server); i++ {
		if c := server[i]; c <= ' ' || c == '@' || c == '#' || c == '!' {
			return "", "", fmt.Errorf("%s server name has invalid character at %d: %q", kind, i, raw)
		}
	}
	return local, server, nil
}

func mustParse[T any](name, raw string, parse func(string) (T, error)) T {
	value, err := parse(raw)
	if err != nil {
		panic(fmt.Sprintf("ref.%s(%q): %v", name, raw, err))
	}
	return value
}

// decodeText backs the UnmarshalText methods. Empty input decodes to
// the zero value so optional fields round-trip.
func decodeText[T any](data []byte, parse func(string) (T, error), out *T) error {
	if len(data) == 0 {
		var zero T
		*out = zero
		return nil
	}
	parsed, err := parse(string(data))
	if err != nil {
		return err
	}
	*out = parsed
	return nil
}
