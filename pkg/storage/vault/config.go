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

// Package vault stores secrets and shards in a HashiCorp Vault KV version 2
// mount. Each key becomes one KV entry whose value field holds the
// base64-encoded bytes and whose remaining fields hold the Put metadata.
//
// Example Usage:
//
//	backend, err := vault.New(&vault.Config{
//	    Address: "http://127.0.0.1:8200",
//	    Token:   "root",
//	    Mount:   "secret",
//	    Prefix:  "splitsecret",
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer backend.Close()
package vault

import (
	"context"
	"fmt"
	"time"

	vault "github.com/hashicorp/vault/api"
)

const (
	// DefaultMount is the KV v2 mount used when Config.Mount is empty.
	DefaultMount = "secret"

	// DefaultTimeout bounds each Vault request.
	DefaultTimeout = 30 * time.Second
)

// Config holds the configuration for the Vault storage backend.
type Config struct {
	// Address is the Vault server address (e.g., "http://127.0.0.1:8200")
	Address string

	// Token is the Vault authentication token
	Token string

	// Namespace is the Vault namespace (Enterprise feature, optional)
	Namespace string

	// Mount is the path of the KV v2 secrets engine (default: "secret")
	Mount string

	// Prefix is prepended to every key, separating splits of different
	// applications that share a mount.
	Prefix string

	// TLSSkipVerify disables TLS certificate verification (not recommended for production)
	TLSSkipVerify bool

	// Timeout bounds each request (default: 30s)
	Timeout time.Duration
}

// Validate checks the configuration and fills defaults.
func (c *Config) Validate() error {
	if c.Address == "" {
		return fmt.Errorf("vault address is required")
	}
	if c.Token == "" {
		return fmt.Errorf("vault token is required")
	}
	if c.Mount == "" {
		c.Mount = DefaultMount
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	return nil
}

// LogicalClient is the subset of the Vault logical API the backend uses.
// *vault.Logical satisfies it; tests substitute an in-memory fake.
type LogicalClient interface {
	ReadWithContext(ctx context.Context, path string) (*vault.Secret, error)
	WriteWithContext(ctx context.Context, path string, data map[string]interface{}) (*vault.Secret, error)
	DeleteWithContext(ctx context.Context, path string) (*vault.Secret, error)
	ListWithContext(ctx context.Context, path string) (*vault.Secret, error)
}

// newClient creates a Vault API client from config.
func newClient(config *Config) (*vault.Client, error) {
	vaultConfig := vault.DefaultConfig()
	vaultConfig.Address = config.Address
	vaultConfig.Timeout = config.Timeout

	if config.TLSSkipVerify {
		tlsConfig := &vault.TLSConfig{
			Insecure: true,
		}
		if err := vaultConfig.ConfigureTLS(tlsConfig); err != nil {
			return nil, fmt.Errorf("failed to configure TLS: %w", err)
		}
	}

	client, err := vault.NewClient(vaultConfig)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrVaultConnection, err)
	}
	client.SetToken(config.Token)
	if config.Namespace != "" {
		client.SetNamespace(config.Namespace)
	}
	return client, nil
}
