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
	"sort"
	"strconv"
	"strings"
)

// ShardKeys returns the keys under base that name a shard: base followed
// by a decimal index of at least two digits. Keys are sorted by index.
func ShardKeys(backend Backend, base string) ([]string, error) {
	keys, err := backend.List(base)
	if err != nil {
		return nil, err
	}

	type indexed struct {
		key   string
		index int
	}
	matches := make([]indexed, 0, len(keys))
	for _, k := range keys {
		if idx, ok := ShardIndex(base, k); ok {
			matches = append(matches, indexed{k, idx})
		}
	}
	sort.Slice(matches, func(i, j int) bool {
		return matches[i].index < matches[j].index
	})

	out := make([]string, len(matches))
	for i, m := range matches {
		out[i] = m.key
	}
	return out, nil
}

// ShardIndex parses the index from a shard key, reporting false when key
// is not base followed by two or more digits.
func ShardIndex(base, key string) (int, bool) {
	suffix, ok := strings.CutPrefix(key, base)
	if !ok || len(suffix) < 2 {
		return 0, false
	}
	for _, r := range suffix {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	idx, err := strconv.Atoi(suffix)
	if err != nil {
		return 0, false
	}
	return idx, true
}
