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

package shard

import (
	"fmt"
	"iter"
	"slices"
	"sort"

	"github.com/jeremyhahn/go-splitsecret/pkg/crypto/linsys"
)

// Assemble rebuilds a square system from shards of one split. Shards are
// ordered by shard number and duplicates are dropped; the equations of the
// first ShardsRequired distinct shards are concatenated in that order.
func Assemble(shards []*Shard) (linsys.System, error) {
	distinct, err := Distinct(shards)
	if err != nil {
		return nil, err
	}
	if len(distinct) == 0 {
		return nil, fmt.Errorf("%w: no shards", ErrInsufficientShares)
	}

	required := distinct[0].ShardsRequired
	if len(distinct) < required {
		return nil, fmt.Errorf("%w: need %d, have %d", ErrInsufficientShares, required, len(distinct))
	}

	parts := make([]linsys.System, required)
	for i, s := range distinct[:required] {
		parts[i] = s.Equations.Clone()
	}
	return linsys.Concat(parts...), nil
}

// Distinct validates shards, checks they come from the same split and
// returns one shard per shard number, sorted by shard number. Nil entries
// are ignored.
func Distinct(shards []*Shard) ([]*Shard, error) {
	var ref *Shard
	seen := make(map[int]bool)
	out := make([]*Shard, 0, len(shards))

	for _, s := range shards {
		if s == nil {
			continue
		}
		if err := s.Validate(); err != nil {
			return nil, fmt.Errorf("shard %d: %w", s.ShardNumber, err)
		}
		if ref == nil {
			ref = s
		} else if !ref.Compatible(s) {
			return nil, fmt.Errorf("%w: shard %d of %q does not match shard %d of %q",
				ErrIncompatibleShards, s.ShardNumber, s.SecretName, ref.ShardNumber, ref.SecretName)
		}
		if seen[s.ShardNumber] {
			continue
		}
		seen[s.ShardNumber] = true
		out = append(out, s)
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].ShardNumber < out[j].ShardNumber
	})
	return out, nil
}

// Combinations returns every k-element subset of 0..n-1 in lexicographic
// order.
func Combinations(n, k int) [][]int {
	return slices.Collect(EachCombination(n, k))
}

// EachCombination yields the k-element subsets of 0..n-1 in lexicographic
// order without materializing them. Each yielded slice is a fresh copy.
func EachCombination(n, k int) iter.Seq[[]int] {
	return func(yield func([]int) bool) {
		if k < 0 || k > n {
			return
		}
		idx := make([]int, k)
		for i := range idx {
			idx[i] = i
		}
		for {
			if !yield(slices.Clone(idx)) {
				return
			}

			i := k - 1
			for i >= 0 && idx[i] == n-k+i {
				i--
			}
			if i < 0 {
				return
			}
			idx[i]++
			for j := i + 1; j < k; j++ {
				idx[j] = idx[j-1] + 1
			}
		}
	}
}
