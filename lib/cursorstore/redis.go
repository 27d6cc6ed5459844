// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cursorstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// DefaultKeyPrefix namespaces the keys Redis stores cursors under.
const DefaultKeyPrefix = "matrixbot:"

// Redis stores cursors in a Redis server, for deployments where the bot
// is rescheduled across hosts without a persistent disk.
type Redis struct {
	client    *redis.Client
	keyPrefix string
}

// OpenRedis connects to the server at url (redis:// or rediss://) and
// verifies it with PING. Keys are prefixed with keyPrefix, or
// DefaultKeyPrefix when empty.
func OpenRedis(ctx context.Context, url, keyPrefix string) (*Redis, error) {
	options, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}
	client := redis.NewClient(options)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", options.Addr, err)
	}
	if keyPrefix == "" {
		keyPrefix = DefaultKeyPrefix
	}
	return &Redis{client: client, keyPrefix: keyPrefix}, nil
}

func (r *Redis) key(account string) string {
	return r.keyPrefix + "cursor:" + account
}

// LoadCursor returns the cursor saved for account, or "".
func (r *Redis) LoadCursor(ctx context.Context, account string) (string, error) {
	cursor, err := r.client.Get(ctx, r.key(account)).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("loading cursor for %s: %w", account, err)
	}
	return cursor, nil
}

// SaveCursor replaces the cursor for account. An empty cursor clears it.
func (r *Redis) SaveCursor(ctx context.Context, account, cursor string) error {
	var err error
	if cursor == "" {
		err = r.client.Del(ctx, r.key(account)).Err()
	} else {
		err = r.client.Set(ctx, r.key(account), cursor, 0).Err()
	}
	if err != nil {
		return fmt.Errorf("saving cursor for %s: %w", account, err)
	}
	return nil
}

// Close closes the client's connections.
func (r *Redis) Close() error {
	return r.client.Close()
}
