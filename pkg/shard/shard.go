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

// Package shard packages slices of a linear system into distributable
// shards, encodes them in the split_secret_message protobuf wire format, and
// reassembles a square system from a threshold set of shards.
package shard

import (
	"errors"
	"fmt"

	"github.com/jeremyhahn/go-splitsecret/pkg/crypto/linsys"
)

var (
	// ErrParse is returned when shard bytes do not decode to a well-formed shard.
	ErrParse = errors.New("shard: parse error")

	// ErrInvalidShard is returned when shard metadata is inconsistent with
	// its equations.
	ErrInvalidShard = errors.New("shard: invalid shard")

	// ErrInsufficientShares is returned when fewer than the required number
	// of distinct shards are available.
	ErrInsufficientShares = errors.New("shard: insufficient shares")

	// ErrIncompatibleShards is returned when shards do not belong to the
	// same split.
	ErrIncompatibleShards = errors.New("shard: incompatible shards")
)

// Params describes the split a shard belongs to. It is shared by every
// shard produced in one run.
type Params struct {
	SecretName              string
	SubsequenceCount        int
	SequenceNumber          int
	ShardsOutstanding       int
	ShardsRequired          int
	EquationsPerShard       int
	CoefficientsPerEquation int
}

// Shard is a numbered, contiguous slice of equations plus the metadata
// needed to recombine it with its siblings.
type Shard struct {
	SecretName        string
	SubsequenceCount  int
	SequenceNumber    int
	ShardsOutstanding int
	ShardsRequired    int
	ShardNumber       int
	EquationCount     int
	CoefficientCount  int
	Equations         linsys.System
}

// Fill copies equations [shardNumber·k, (shardNumber+1)·k) of instance,
// where k is p.EquationsPerShard, into a new shard.
func Fill(p Params, shardNumber int, instance linsys.System) (*Shard, error) {
	if p.EquationsPerShard <= 0 || p.CoefficientsPerEquation <= 0 {
		return nil, fmt.Errorf("%w: %d equations of %d coefficients",
			ErrInvalidShard, p.EquationsPerShard, p.CoefficientsPerEquation)
	}
	start := shardNumber * p.EquationsPerShard
	end := start + p.EquationsPerShard
	if shardNumber < 0 || end > len(instance) {
		return nil, fmt.Errorf("%w: shard %d needs equations %d..%d of %d",
			ErrInvalidShard, shardNumber, start, end-1, len(instance))
	}

	s := &Shard{
		SecretName:        p.SecretName,
		SubsequenceCount:  p.SubsequenceCount,
		SequenceNumber:    p.SequenceNumber,
		ShardsOutstanding: p.ShardsOutstanding,
		ShardsRequired:    p.ShardsRequired,
		ShardNumber:       shardNumber,
		EquationCount:     p.EquationsPerShard,
		CoefficientCount:  p.CoefficientsPerEquation,
		Equations:         instance[start:end].Clone(),
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Params returns the split parameters recorded in s.
func (s *Shard) Params() Params {
	return Params{
		SecretName:              s.SecretName,
		SubsequenceCount:        s.SubsequenceCount,
		SequenceNumber:          s.SequenceNumber,
		ShardsOutstanding:       s.ShardsOutstanding,
		ShardsRequired:          s.ShardsRequired,
		EquationsPerShard:       s.EquationCount,
		CoefficientsPerEquation: s.CoefficientCount,
	}
}

// Validate checks the metadata against the equations. A threshold set of
// shards must pool into a square system, so CoefficientCount must equal
// ShardsRequired·EquationCount.
func (s *Shard) Validate() error {
	switch {
	case s.ShardsRequired < 1:
		return fmt.Errorf("%w: shards required is %d", ErrInvalidShard, s.ShardsRequired)
	case s.ShardsOutstanding < s.ShardsRequired:
		return fmt.Errorf("%w: %d shards outstanding, %d required",
			ErrInvalidShard, s.ShardsOutstanding, s.ShardsRequired)
	case s.ShardNumber < 0 || s.ShardNumber >= s.ShardsOutstanding:
		return fmt.Errorf("%w: shard number %d of %d", ErrInvalidShard, s.ShardNumber, s.ShardsOutstanding)
	case s.SubsequenceCount < 1 || s.SequenceNumber < 1 || s.SequenceNumber > s.SubsequenceCount:
		return fmt.Errorf("%w: sequence %d of %d", ErrInvalidShard, s.SequenceNumber, s.SubsequenceCount)
	case s.EquationCount < 1:
		return fmt.Errorf("%w: shard holds no equations", ErrInvalidShard)
	case s.EquationCount != len(s.Equations):
		return fmt.Errorf("%w: header declares %d equations, found %d",
			ErrInvalidShard, s.EquationCount, len(s.Equations))
	case s.CoefficientCount != s.ShardsRequired*s.EquationCount:
		return fmt.Errorf("%w: %d coefficients cannot be covered by %d shards of %d equations",
			ErrInvalidShard, s.CoefficientCount, s.ShardsRequired, s.EquationCount)
	}
	for i, eq := range s.Equations {
		if len(eq.Coefficients) != s.CoefficientCount {
			return fmt.Errorf("%w: equation %d has %d coefficients, want %d",
				ErrInvalidShard, i, len(eq.Coefficients), s.CoefficientCount)
		}
	}
	return nil
}

// Compatible reports whether s and other come from the same split.
func (s *Shard) Compatible(other *Shard) bool {
	return s.Params() == other.Params()
}

func (s *Shard) String() string {
	return fmt.Sprintf("shard %d of %d for %q (sequence %d/%d, %d of %d required, %d equations x %d coefficients)",
		s.ShardNumber, s.ShardsOutstanding, s.SecretName, s.SequenceNumber, s.SubsequenceCount,
		s.ShardsRequired, s.ShardsOutstanding, s.EquationCount, s.CoefficientCount)
}

// FileName returns the storage name of shard index under base, e.g.
// "secret_shard02".
func FileName(base string, index int) string {
	return fmt.Sprintf("%s%02d", base, index)
}
