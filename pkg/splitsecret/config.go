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
	"fmt"

	"github.com/jeremyhahn/go-splitsecret/pkg/crypto/gf2"
)

const (
	DefaultSecretName     = "JLM_Key"
	DefaultSecretSize     = 16
	DefaultUnknowns       = 48
	DefaultThreshold      = 3
	DefaultShards         = 3
	DefaultSequenceNumber = 1
	DefaultMaxAttempts    = 100

	// MaxShards bounds the number of shards.
	MaxShards = 32

	// MaxSubsets bounds the shard subsets checked per attempt: every
	// threshold subset and every subset one shard short of it. Each check
	// fails with probability near 1/255, so a larger count rarely yields
	// an acceptable matrix.
	MaxSubsets = 256
)

// Config describes one split.
type Config struct {
	// SecretName is recorded in every shard.
	SecretName string

	// SecretSize is the number of secret bytes embedded in the unknowns.
	SecretSize int

	// Unknowns is the dimension of the square system. It must be a
	// multiple of Threshold.
	Unknowns int

	// Threshold is the number of shards needed to recover the secret.
	Threshold int

	// Shards is the number of shards produced (at least Threshold).
	Shards int

	// SubsequenceCount and SequenceNumber identify this split when a long
	// secret is carried by several independent splits.
	SubsequenceCount int
	SequenceNumber   int

	// MaxAttempts caps the number of random matrices drawn.
	MaxAttempts int

	// MinimalPolynomial defines the field; its degree must be at least 8 so
	// every secret byte is a field element.
	MinimalPolynomial uint32
}

// DefaultConfig returns the 3-of-3 split of a 16-byte secret over 48
// unknowns in GF(2^8) mod 0x11b.
func DefaultConfig() Config {
	return Config{
		SecretName:        DefaultSecretName,
		SecretSize:        DefaultSecretSize,
		Unknowns:          DefaultUnknowns,
		Threshold:         DefaultThreshold,
		Shards:            DefaultShards,
		SubsequenceCount:  1,
		SequenceNumber:    DefaultSequenceNumber,
		MaxAttempts:       DefaultMaxAttempts,
		MinimalPolynomial: gf2.DefaultPolynomial,
	}
}

// EquationsPerShard is Unknowns/Threshold.
func (c Config) EquationsPerShard() int {
	if c.Threshold <= 0 {
		return 0
	}
	return c.Unknowns / c.Threshold
}

// Subsets is the number of shard subsets a split checks: C(Shards,
// Threshold) solvable sets plus C(Shards, Threshold-1) sets that must not
// determine the secret.
func (c Config) Subsets() int {
	return binomial(c.Shards, c.Threshold) + binomial(c.Shards, c.Threshold-1)
}

func binomial(n, k int) int {
	if k < 0 || k > n {
		return 0
	}
	k = min(k, n-k)
	r := 1
	for i := 0; i < k; i++ {
		r = r * (n - i) / (i + 1)
	}
	return r
}

// Validate checks the configuration.
func (c Config) Validate() error {
	switch {
	case c.SecretSize < 1:
		return fmt.Errorf("%w: secret size %d", ErrInvalidConfig, c.SecretSize)
	case c.Threshold < 1:
		return fmt.Errorf("%w: threshold %d", ErrInvalidConfig, c.Threshold)
	case c.Unknowns < c.SecretSize:
		return fmt.Errorf("%w: %d unknowns cannot hold a %d-byte secret", ErrInvalidConfig, c.Unknowns, c.SecretSize)
	case c.Unknowns%c.Threshold != 0:
		return fmt.Errorf("%w: %d unknowns are not divisible by threshold %d", ErrInvalidConfig, c.Unknowns, c.Threshold)
	case c.Shards < c.Threshold:
		return fmt.Errorf("%w: %d shards is below threshold %d", ErrInvalidConfig, c.Shards, c.Threshold)
	case c.Shards > MaxShards:
		return fmt.Errorf("%w: %d shards exceeds %d", ErrInvalidConfig, c.Shards, MaxShards)
	case c.Unknowns-c.SecretSize < (c.Threshold-1)*c.EquationsPerShard():
		return fmt.Errorf("%w: %d padding unknowns cannot hide the secret from %d shards of %d equations",
			ErrInvalidConfig, c.Unknowns-c.SecretSize, c.Threshold-1, c.EquationsPerShard())
	case c.Subsets() > MaxSubsets:
		return fmt.Errorf("%w: %d of %d shards needs %d subsets checked per attempt, limit %d",
			ErrInvalidConfig, c.Threshold, c.Shards, c.Subsets(), MaxSubsets)
	case c.SubsequenceCount < 1 || c.SequenceNumber < 1 || c.SequenceNumber > c.SubsequenceCount:
		return fmt.Errorf("%w: sequence %d of %d", ErrInvalidConfig, c.SequenceNumber, c.SubsequenceCount)
	case c.MaxAttempts < 1:
		return fmt.Errorf("%w: max attempts %d", ErrInvalidConfig, c.MaxAttempts)
	}

	f, err := gf2.NewField(c.MinimalPolynomial)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if f.Degree() < 8 {
		return fmt.Errorf("%w: %s cannot hold byte values", ErrInvalidConfig, f)
	}
	return nil
}
