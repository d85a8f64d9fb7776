// Copyright (c) 2025 Jeremy Hahn
// Copyright (c) 2025 Automate The Things, LLC
//
// This file is part of go-splitsecret.
//
// go-splitsecret is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@automatethethings.com for commercial licensing options.

package storage

import (
	"errors"
	"maps"
	"slices"
	"strings"
	"sync"
)

type memoryEntry struct {
	value    []byte
	metadata map[string]string
}

// MemoryBackend keeps values and their Put metadata in a map. Values are
// copied on the way in and out.
type MemoryBackend struct {
	entries map[string]memoryEntry
	mu      sync.RWMutex
	closed  bool
}

var _ Backend = (*MemoryBackend)(nil)

// NewMemory returns an empty in-memory backend.
func NewMemory() *MemoryBackend {
	return &MemoryBackend{
		entries: make(map[string]memoryEntry),
	}
}

func (m *MemoryBackend) lookup(key string) (memoryEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return memoryEntry{}, ErrClosed
	}
	e, ok := m.entries[key]
	if !ok {
		return memoryEntry{}, ErrNotFound
	}
	return e, nil
}

func (m *MemoryBackend) Get(key string) ([]byte, error) {
	e, err := m.lookup(key)
	if err != nil {
		return nil, err
	}
	return slices.Clone(e.value), nil
}

// Metadata returns the metadata recorded by the last Put of key.
func (m *MemoryBackend) Metadata(key string) (map[string]string, error) {
	e, err := m.lookup(key)
	if err != nil {
		return nil, err
	}
	return maps.Clone(e.metadata), nil
}

func (m *MemoryBackend) Put(key string, value []byte, opts *Options) error {
	if key == "" {
		return ErrInvalidKey
	}
	e := memoryEntry{value: append([]byte{}, value...)}
	if opts != nil {
		e.metadata = maps.Clone(opts.Metadata)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}
	m.entries[key] = e
	return nil
}

func (m *MemoryBackend) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}
	if _, ok := m.entries[key]; !ok {
		return ErrNotFound
	}
	delete(m.entries, key)
	return nil
}

func (m *MemoryBackend) List(prefix string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrClosed
	}
	var keys []string
	for key := range m.entries {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	slices.Sort(keys)
	if keys == nil {
		keys = []string{}
	}
	return keys, nil
}

func (m *MemoryBackend) Exists(key string) (bool, error) {
	_, err := m.lookup(key)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

func (m *MemoryBackend) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	m.entries = nil
	return nil
}

// Name implements the label used by storage.Name.
func (m *MemoryBackend) Name() string {
	return "memory"
}
