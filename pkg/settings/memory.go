// Copyright 2026 Jeremy Hahn
// SPDX-License-Identifier: MIT

package settings

import "sync"

// MemoryStore keeps settings in memory.
type MemoryStore struct {
	mu  sync.RWMutex
	doc document
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) UsePinning() (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.doc.usePinning(), nil
}

func (m *MemoryStore) SetUsePinning(enabled bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.doc.UsePinning = &enabled
	return nil
}

func (m *MemoryStore) ConfigOverride() (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.doc.ConfigOverride, nil
}

func (m *MemoryStore) SetConfigOverride(payload string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.doc.ConfigOverride = payload
	return nil
}
