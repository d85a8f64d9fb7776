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

// Package storage defines where secrets and shards are persisted.
//
// A Backend is a flat key-value store. The splitter stores the secret under
// its file name and each shard under "<base>NN", so a plain directory of
// files (package file), an in-memory map, or a Vault KV mount can all hold a
// split.
package storage

import (
	"io/fs"
	"strconv"
)

// Backend is a thread-safe key-value store.
type Backend interface {
	// Get returns the value stored under key, or ErrNotFound.
	Get(key string) ([]byte, error)

	// Put stores value under key, replacing any previous value.
	Put(key string, value []byte, opts *Options) error

	// Delete removes key, or returns ErrNotFound.
	Delete(key string) error

	// List returns all keys starting with prefix, sorted. An empty prefix
	// lists everything.
	List(prefix string) ([]string, error)

	// Exists reports whether key is present.
	Exists(key string) (bool, error)

	// Close releases the backend. Further calls return ErrClosed.
	Close() error
}

// Options tunes a single Put.
type Options struct {
	// Permissions applies to file-backed stores. Zero means the backend
	// default, which is owner read/write.
	Permissions fs.FileMode

	// Metadata is stored alongside the value by backends that support it.
	Metadata map[string]string
}

// SecretOptions returns options for writing secret material: owner-only
// permissions.
func SecretOptions() *Options {
	return &Options{
		Permissions: 0600,
		Metadata:    map[string]string{"kind": "secret"},
	}
}

// ShardOptions returns options for writing a shard.
func ShardOptions(shardNumber int) *Options {
	return &Options{
		Permissions: 0600,
		Metadata: map[string]string{
			"kind":  "shard",
			"shard": strconv.Itoa(shardNumber),
		},
	}
}

// Name returns a short label for backend, e.g. "file" or "vault", for logs
// and metrics. Backends without a Name method are labelled "custom".
func Name(backend Backend) string {
	if n, ok := backend.(interface{ Name() string }); ok {
		return n.Name()
	}
	return "custom"
}
