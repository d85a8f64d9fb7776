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

//go:build !vault

package cli

import (
	"errors"

	"github.com/jeremyhahn/go-splitsecret/internal/config"
	"github.com/jeremyhahn/go-splitsecret/pkg/storage"
)

var errVaultNotCompiled = errors.New("vault storage not available (build with -tags vault)")

func newVaultStore(config.VaultConfig) (storage.Backend, error) {
	return nil, errVaultNotCompiled
}
