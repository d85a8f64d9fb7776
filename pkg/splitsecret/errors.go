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

package splitsecret

import (
	"errors"

	"github.com/jeremyhahn/go-splitsecret/pkg/crypto/linsys"
	"github.com/jeremyhahn/go-splitsecret/pkg/shard"
)

var (
	// ErrInvalidConfig is returned by Config.Validate.
	ErrInvalidConfig = errors.New("splitsecret: invalid config")

	// ErrInvalidSecret is returned when a secret is not exactly SecretSize
	// bytes, or a recovered unknown does not fit in a byte.
	ErrInvalidSecret = errors.New("splitsecret: invalid secret")

	// ErrRetriesExhausted is returned when MaxAttempts random matrices were
	// all singular.
	ErrRetriesExhausted = errors.New("splitsecret: retries exhausted")

	// ErrInconsistentShards is returned when surplus shards do not agree
	// with the solution of a threshold set.
	ErrInconsistentShards = errors.New("splitsecret: inconsistent shards")

	// ErrMalformedInput is returned for systems with the wrong shape or with
	// values outside the field.
	ErrMalformedInput = linsys.ErrMalformedInput

	// ErrSingularMatrix is returned when shards do not form an invertible
	// system.
	ErrSingularMatrix = linsys.ErrSingularMatrix

	// ErrParse is returned for shard bytes that do not decode.
	ErrParse = shard.ErrParse

	// ErrInsufficientShares is returned when fewer than the required
	// number of distinct shards are available.
	ErrInsufficientShares = shard.ErrInsufficientShares
)
