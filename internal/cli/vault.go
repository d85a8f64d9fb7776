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

package cli

import (
	"github.com/jeremyhahn/go-splitsecret/internal/config"
	"github.com/jeremyhahn/go-splitsecret/pkg/storage"
	"github.com/jeremyhahn/go-splitsecret/pkg/storage/vault"
)

func newVaultStore(cfg config.VaultConfig) (storage.Backend, error) {
	backend, err := vault.New(&vault.Config{
		Address:       cfg.Address,
		Token:         cfg.Token,
		Namespace:     cfg.Namespace,
		Mount:         cfg.Mount,
		Prefix:        cfg.Prefix,
		TLSSkipVerify: cfg.TLSSkipVerify,
	})
	if err != nil {
		return nil, err
	}
	return backend, nil
}
