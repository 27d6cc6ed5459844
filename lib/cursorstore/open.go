// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cursorstore

import (
	"context"
	"log/slog"
	"strings"
)

// Store is a cursor store holding open resources.
type Store interface {
	LoadCursor(ctx context.Context, account string) (string, error)
	SaveCursor(ctx context.Context, account, cursor string) error
	Close() error
}

var (
	_ Store = (*SQLite)(nil)
	_ Store = (*Redis)(nil)
)

// IsRedisURL reports whether location names a Redis server rather than
// a database file.
func IsRedisURL(location string) bool {
	return strings.HasPrefix(location, "redis://") || strings.HasPrefix(location, "rediss://")
}

// Open opens the store named by location: a redis:// or rediss:// URL,
// or otherwise the path of a SQLite database file.
func Open(ctx context.Context, location string, logger *slog.Logger) (Store, error) {
	if IsRedisURL(location) {
		return OpenRedis(ctx, location, "")
	}
	return OpenSQLite(ctx, location, logger)
}
