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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protowire"

	"github.com/jeremyhahn/go-splitsecret/pkg/crypto/gf2"
	"github.com/jeremyhahn/go-splitsecret/pkg/crypto/linsys"
)

func testParams() Params {
	return Params{
		SecretName:              "JLM_Key",
		SubsequenceCount:        1,
		SequenceNumber:          1,
		ShardsOutstanding:       3,
		ShardsRequired:          3,
		EquationsPerShard:       16,
		CoefficientsPerEquation: 48,
	}
}

// testInstance returns rows*cols equations whose entries encode their
// position, so slices can be checked by value.
func testInstance(rows, cols int) linsys.System {
	s := make(linsys.System, rows)
	for i := range s {
		coefficients := make([]gf2.Element, cols)
		for j := range coefficients {
			coefficients[j] = gf2.Element((i*cols + j) % 0x10000)
		}
		s[i] = linsys.Equation{Coefficients: coefficients, Value: gf2.Element(0xff00 | i)}
	}
	return s
}

func testShards(t *testing.T) []*Shard {
	t.Helper()
	instance := testInstance(48, 48)
	shards := make([]*Shard, 3)
	for i := range shards {
		s, err := Fill(testParams(), i, instance)
		require.NoError(t, err)
		shards[i] = s
	}
	return shards
}

func TestFill(t *testing.T) {
	instance := testInstance(48, 48)

	s, err := Fill(testParams(), 1, instance)
	require.NoError(t, err)
	assert.Equal(t, "JLM_Key", s.SecretName)
	assert.Equal(t, 1, s.ShardNumber)
	assert.Equal(t, 16, s.EquationCount)
	assert.Equal(t, 48, s.CoefficientCount)
	require.Len(t, s.Equations, 16)
	assert.Equal(t, instance[16], s.Equations[0])
	assert.Equal(t, instance[31], s.Equations[15])

	// Fill copies; later changes to the instance must not leak in.
	instance[16].Coefficients[0] = 0x1234
	assert.NotEqual(t, gf2.Element(0x1234), s.Equations[0].Coefficients[0])
}

func TestFillBounds(t *testing.T) {
	instance := testInstance(48, 48)

	tests := []struct {
		name        string
		params      Params
		shardNumber int
	}{
		{"past end", testParams(), 3},
		{"negative shard", testParams(), -1},
		{"zero equations", func() Params { p := testParams(); p.EquationsPerShard = 0; return p }(), 0},
		{"coefficient mismatch", func() Params { p := testParams(); p.CoefficientsPerEquation = 47; return p }(), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Fill(tt.params, tt.shardNumber, instance)
			assert.ErrorIs(t, err, ErrInvalidShard)
		})
	}
}

func TestRoundTrip(t *testing.T) {
	for _, s := range testShards(t) {
		data, err := Marshal(s)
		require.NoError(t, err)

		got, err := Unmarshal(data)
		require.NoError(t, err)
		assert.Equal(t, s, got)
	}
}

func TestRoundTripFullRange(t *testing.T) {
	p := Params{
		SecretName:              "",
		SubsequenceCount:        4,
		SequenceNumber:          4,
		ShardsOutstanding:       2,
		ShardsRequired:          1,
		EquationsPerShard:       2,
		CoefficientsPerEquation: 2,
	}
	instance := linsys.System{
		{Coefficients: []gf2.Element{0, 0xffff}, Value: 0x8000},
		{Coefficients: []gf2.Element{0x7f, 0x80}, Value: 0},
	}
	s, err := Fill(p, 0, instance)
	require.NoError(t, err)

	data, err := Marshal(s)
	require.NoError(t, err)
	got, err := Unmarshal(data)
	require.NoError(t, err)
	assert.Equal(t, s, got)
}

func TestUnmarshalPackedCoefficients(t *testing.T) {
	var eq []byte
	var packed []byte
	for _, c := range []uint64{1, 2, 300} {
		packed = protowire.AppendVarint(packed, c)
	}
	eq = protowire.AppendTag(eq, fieldCoefficients, protowire.BytesType)
	eq = protowire.AppendBytes(eq, packed)
	eq = protowire.AppendTag(eq, fieldValue, protowire.VarintType)
	eq = protowire.AppendVarint(eq, 7)

	b := header(t, "packed", 3, 1)
	b = protowire.AppendTag(b, fieldEquations, protowire.BytesType)
	b = protowire.AppendBytes(b, eq)

	s, err := Unmarshal(b)
	require.NoError(t, err)
	require.Len(t, s.Equations, 1)
	assert.Equal(t, []gf2.Element{1, 2, 300}, s.Equations[0].Coefficients)
	assert.Equal(t, gf2.Element(7), s.Equations[0].Value)
}

func TestUnmarshalSkipsUnknownFields(t *testing.T) {
	data, err := Marshal(testShards(t)[0])
	require.NoError(t, err)

	data = protowire.AppendTag(data, 42, protowire.BytesType)
	data = protowire.AppendString(data, "future field")
	data = protowire.AppendTag(data, 43, protowire.Fixed64Type)
	data = protowire.AppendFixed64(data, 99)

	s, err := Unmarshal(data)
	require.NoError(t, err)
	assert.Equal(t, "JLM_Key", s.SecretName)
}

func TestUnmarshalErrors(t *testing.T) {
	valid, err := Marshal(testShards(t)[0])
	require.NoError(t, err)

	outOfRange := header(t, "x", 1, 1)
	var eq []byte
	eq = protowire.AppendTag(eq, fieldCoefficients, protowire.VarintType)
	eq = protowire.AppendVarint(eq, 70000)
	outOfRange = protowire.AppendTag(outOfRange, fieldEquations, protowire.BytesType)
	outOfRange = protowire.AppendBytes(outOfRange, eq)

	negative := header(t, "x", 1, 1)
	eq = nil
	eq = protowire.AppendTag(eq, fieldCoefficients, protowire.VarintType)
	minusFive := int64(-5)
	eq = protowire.AppendVarint(eq, uint64(minusFive))
	negative = protowire.AppendTag(negative, fieldEquations, protowire.BytesType)
	negative = protowire.AppendBytes(negative, eq)

	// 2^32+1 would truncate to shard number 1, a valid shard of the split.
	wideNumber := protowire.AppendTag(append([]byte(nil), valid...), fieldShardNumber, protowire.VarintType)
	wideNumber = protowire.AppendVarint(wideNumber, 1<<32+1)

	wideCoefficient := header(t, "x", 1, 1)
	eq = nil
	eq = protowire.AppendTag(eq, fieldCoefficients, protowire.VarintType)
	eq = protowire.AppendVarint(eq, 1<<32+7)
	wideCoefficient = protowire.AppendTag(wideCoefficient, fieldEquations, protowire.BytesType)
	wideCoefficient = protowire.AppendBytes(wideCoefficient, eq)

	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"garbage", []byte{0xff, 0xff, 0xff}},
		{"truncated", valid[:len(valid)-3]},
		{"missing equations", header(t, "x", 3, 1)},
		{"coefficient out of range", outOfRange},
		{"negative coefficient", negative},
		{"shard number wider than int32", wideNumber},
		{"coefficient wider than int32", wideCoefficient},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Unmarshal(tt.data)
			assert.ErrorIs(t, err, ErrParse)
		})
	}
}

func TestMarshalRejectsInvalid(t *testing.T) {
	s := testShards(t)[0]
	s.EquationCount = 15
	_, err := Marshal(s)
	assert.ErrorIs(t, err, ErrInvalidShard)

	_, err = Marshal(nil)
	assert.ErrorIs(t, err, ErrInvalidShard)
}

func TestAssemble(t *testing.T) {
	shards := testShards(t)
	instance := testInstance(48, 48)

	tests := []struct {
		name   string
		shards []*Shard
	}{
		{"in order", shards},
		{"reversed", []*Shard{shards[2], shards[1], shards[0]}},
		{"with duplicate", []*Shard{shards[1], shards[0], shards[1], shards[2]}},
		{"with nil", []*Shard{nil, shards[2], shards[0], shards[1]}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			system, err := Assemble(tt.shards)
			require.NoError(t, err)
			assert.Equal(t, instance, system)
		})
	}
}

func TestAssembleInsufficient(t *testing.T) {
	shards := testShards(t)

	_, err := Assemble(shards[:2])
	assert.ErrorIs(t, err, ErrInsufficientShares)

	_, err = Assemble([]*Shard{shards[0], shards[0], shards[0]})
	assert.ErrorIs(t, err, ErrInsufficientShares)

	_, err = Assemble(nil)
	assert.ErrorIs(t, err, ErrInsufficientShares)
}

func TestAssembleIncompatible(t *testing.T) {
	shards := testShards(t)
	other := *shards[2]
	other.SecretName = "other"

	_, err := Assemble([]*Shard{shards[0], shards[1], &other})
	assert.ErrorIs(t, err, ErrIncompatibleShards)
}

func TestFileName(t *testing.T) {
	assert.Equal(t, "secret_shard00", FileName("secret_shard", 0))
	assert.Equal(t, "secret_shard02", FileName("secret_shard", 2))
	assert.Equal(t, "dir/s12", FileName("dir/s", 12))
}

func TestCombinations(t *testing.T) {
	assert.Equal(t, [][]int{{0, 1, 2}}, Combinations(3, 3))
	assert.Len(t, Combinations(5, 3), 10)
	assert.Equal(t, [][]int{{0, 1}, {0, 2}, {1, 2}}, Combinations(3, 2))
	assert.Nil(t, Combinations(2, 3))
}

func TestEachCombinationStopsEarly(t *testing.T) {
	var seen [][]int
	for c := range EachCombination(32, 16) {
		seen = append(seen, c)
		if len(seen) == 3 {
			break
		}
	}
	require.Len(t, seen, 3)
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15}, seen[0])
	assert.Equal(t, 16, seen[1][15])
	assert.Equal(t, 17, seen[2][15])

	// Yielded slices are independent of the iterator state.
	seen[0][0] = 99
	assert.Equal(t, 0, seen[1][0])
}

// header encodes shard metadata for a single-shard split with the given
// coefficient count.
func header(t *testing.T, name string, coefficients, equations int) []byte {
	t.Helper()
	var b []byte
	b = protowire.AppendTag(b, fieldSecretName, protowire.BytesType)
	b = protowire.AppendString(b, name)
	for num, v := range map[protowire.Number]int{
		fieldSubsequenceCount:  1,
		fieldSequenceNumber:    1,
		fieldShardsOutstanding: coefficients / equations,
		fieldShardsRequired:    coefficients / equations,
		fieldShardNumber:       0,
		fieldEquationCount:     equations,
		fieldCoefficientCount:  coefficients,
	} {
		b = protowire.AppendTag(b, num, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(v))
	}
	return b
}
