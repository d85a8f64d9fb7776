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

// Package splitsecret splits a short secret into shards that are each a
// slice of a random linear system over GF(2^8), and recovers it from any
// threshold set of shards.
//
// The secret bytes, followed by random padding, form the unknown vector x
// of a square system A·x = y. A is drawn at random and the system is solved
// once before release: if elimination hits a singular matrix a new A is
// drawn, up to MaxAttempts times. Each shard carries Unknowns/Threshold
// rows of A together with their right-hand sides, so no set of fewer than
// Threshold shards determines x.
//
// When more shards than the threshold are requested, extra random rows
// are generated over the same x and every threshold-sized subset of
// shards is checked for invertibility before any shard is released.
//
// Shards are not authenticated. Recovery detects inconsistent shards only
// when more than a threshold set is available.
package splitsecret
