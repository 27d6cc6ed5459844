// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cursorstore

import (
	"context"
	"sync"
)

// Memory is an in-process cursor store. The zero value is not usable;
// call NewMemory.
type Memory struct {
	mu      sync.Mutex
	cursors map[string]string
}

// NewMemory returns an empty store.
func NewMemory() *Memory {
	return &Memory{cursors: make(map[string]string)}
}

// LoadCursor returns the cursor saved for account, or "".
func (m *Memory) LoadCursor(_ context.Context, account string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cursors[account], nil
}

// SaveCursor replaces the cursor for account. An empty cursor clears it.
func (m *Memory) SaveCursor(_ context.Context, account, cursor string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if cursor == "" {
		delete(m.cursors, account)
		return nil
	}
	m.cursors[account] = cursor
	return nil
}
