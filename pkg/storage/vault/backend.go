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

//go:build vault

package vault

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"path"
	"sort"
	"strings"
	"sync"

	"github.com/jeremyhahn/go-splitsecret/pkg/storage"
)

// ErrVaultConnection is returned when the Vault client cannot be created.
var ErrVaultConnection = errors.New("vault: connection failed")

const valueField = "value"

// Backend is a storage.Backend over a Vault KV v2 mount.
type Backend struct {
	mu      sync.RWMutex
	config  *Config
	logical LogicalClient
	closed  bool
}

var _ storage.Backend = (*Backend)(nil)

// New connects to Vault and returns a backend for config.Mount.
func New(config *Config) (*Backend, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	client, err := newClient(config)
	if err != nil {
		return nil, err
	}
	return NewWithClient(config, client.Logical())
}

// NewWithClient creates a backend over an existing logical client.
func NewWithClient(config *Config, logical LogicalClient) (*Backend, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	if logical == nil {
		return nil, fmt.Errorf("%w: nil client", ErrVaultConnection)
	}
	return &Backend{config: config, logical: logical}, nil
}

func (b *Backend) Get(key string) ([]byte, error) {
	p, err := b.path("data", key)
	if err != nil {
		return nil, err
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return nil, storage.ErrClosed
	}

	ctx, cancel := b.context()
	defer cancel()
	secret, err := b.logical.ReadWithContext(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s from vault: %w", key, err)
	}
	if secret == nil || secret.Data == nil {
		return nil, fmt.Errorf("%w: %s", storage.ErrNotFound, key)
	}
	// Soft-deleted versions keep their metadata but carry no data.
	data, ok := secret.Data["data"].(map[string]interface{})
	if !ok || data == nil {
		return nil, fmt.Errorf("%w: %s", storage.ErrNotFound, key)
	}
	encoded, ok := data[valueField].(string)
	if !ok {
		return nil, fmt.Errorf("vault entry %s has no %q field", key, valueField)
	}
	value, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("vault entry %s: %w", key, err)
	}
	return value, nil
}

func (b *Backend) Put(key string, value []byte, opts *storage.Options) error {
	p, err := b.path("data", key)
	if err != nil {
		return err
	}

	fields := map[string]interface{}{
		valueField: base64.StdEncoding.EncodeToString(value),
	}
	if opts != nil {
		for k, v := range opts.Metadata {
			if k != valueField {
				fields[k] = v
			}
		}
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return storage.ErrClosed
	}

	ctx, cancel := b.context()
	defer cancel()
	if _, err := b.logical.WriteWithContext(ctx, p, map[string]interface{}{"data": fields}); err != nil {
		return fmt.Errorf("failed to write %s to vault: %w", key, err)
	}
	return nil
}

// Delete removes every version of key.
func (b *Backend) Delete(key string) error {
	exists, err := b.Exists(key)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("%w: %s", storage.ErrNotFound, key)
	}

	p, err := b.path("metadata", key)
	if err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return storage.ErrClosed
	}

	ctx, cancel := b.context()
	defer cancel()
	if _, err := b.logical.DeleteWithContext(ctx, p); err != nil {
		return fmt.Errorf("failed to delete %s from vault: %w", key, err)
	}
	return nil
}

// List returns the keys in the directory of prefix whose names start with
// the rest of prefix. Subdirectories are not descended into.
func (b *Backend) List(prefix string) ([]string, error) {
	dir, namePrefix := "", prefix
	if i := strings.LastIndex(prefix, "/"); i >= 0 {
		dir, namePrefix = prefix[:i+1], prefix[i+1:]
	}

	p := b.config.Mount + "/metadata"
	if root := b.root(); root != "" || dir != "" {
		p = path.Join(p, root, dir)
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return nil, storage.ErrClosed
	}

	ctx, cancel := b.context()
	defer cancel()
	secret, err := b.logical.ListWithContext(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s in vault: %w", prefix, err)
	}

	keys := []string{}
	if secret == nil || secret.Data == nil {
		return keys, nil
	}
	entries, _ := secret.Data["keys"].([]interface{})
	for _, e := range entries {
		name, ok := e.(string)
		if !ok || strings.HasSuffix(name, "/") || !strings.HasPrefix(name, namePrefix) {
			continue
		}
		keys = append(keys, dir+name)
	}
	sort.Strings(keys)
	return keys, nil
}

func (b *Backend) Exists(key string) (bool, error) {
	_, err := b.Get(key)
	if errors.Is(err, storage.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	return nil
}

func (b *Backend) root() string {
	return strings.Trim(b.config.Prefix, "/")
}

// path returns <mount>/<section>/<prefix>/<key>.
func (b *Backend) path(section, key string) (string, error) {
	if key == "" || strings.HasPrefix(key, "/") || strings.HasSuffix(key, "/") {
		return "", fmt.Errorf("%w: %q", storage.ErrInvalidKey, key)
	}
	for _, seg := range strings.Split(key, "/") {
		if seg == "" || seg == "." || seg == ".." {
			return "", fmt.Errorf("%w: %q", storage.ErrInvalidKey, key)
		}
	}
	return path.Join(b.config.Mount, section, b.root(), key), nil
}

func (b *Backend) context() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), b.config.Timeout)
}

// Name implements the label used by storage.Name.
func (b *Backend) Name() string {
	return "vault"
}
