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

package linsys

import (
	"crypto/rand"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeremyhahn/go-splitsecret/pkg/crypto/gf2"
)

func systemFromRows(rows [][]gf2.Element, values []gf2.Element) System {
	s := make(System, len(rows))
	for i := range rows {
		s[i] = Equation{Coefficients: rows[i], Value: values[i]}
	}
	return s
}

// randomInvertibleSystem keeps generating until Solve succeeds, the same way
// the splitter does.
func randomInvertibleSystem(t *testing.T, f *gf2.Field, n int) (System, []gf2.Element) {
	t.Helper()
	x, err := RandomVector(f, n, rand.Reader, false)
	require.NoError(t, err)

	for attempt := 0; attempt < 100; attempt++ {
		a, err := GenerateMatrix(f, n, rand.Reader)
		require.NoError(t, err)
		s, err := BuildSystem(f, a, x)
		require.NoError(t, err)
		if _, err := Solve(f, s); err == nil {
			return s, x
		} else if !errors.Is(err, ErrSingularMatrix) {
			t.Fatalf("Solve() unexpected error: %v", err)
		}
	}
	t.Fatal("no invertible matrix after 100 attempts")
	return nil, nil
}

func TestSolveRecoversUnknowns(t *testing.T) {
	f := gf2.Default()
	for _, n := range []int{1, 2, 5, 16, 48} {
		s, x := randomInvertibleSystem(t, f, n)
		got, err := Solve(f, s)
		require.NoError(t, err)
		assert.Equal(t, x, got, "n=%d", n)
	}
}

func TestSolveRequiresRowSwap(t *testing.T) {
	f := gf2.Default()
	s := systemFromRows(
		[][]gf2.Element{{0, 1}, {1, 0}},
		[]gf2.Element{0x05, 0x07},
	)
	x, err := Solve(f, s)
	require.NoError(t, err)
	assert.Equal(t, []gf2.Element{0x07, 0x05}, x)
}

func TestSolveDoesNotMutateInput(t *testing.T) {
	f := gf2.Default()
	s, _ := randomInvertibleSystem(t, f, 8)
	before := s.Clone()

	_, err := Solve(f, s)
	require.NoError(t, err)
	assert.Equal(t, before, s)
}

func TestSolveSingular(t *testing.T) {
	f := gf2.Default()

	tests := []struct {
		name   string
		system System
	}{
		{
			name: "duplicate rows",
			system: systemFromRows(
				[][]gf2.Element{{1, 2, 3}, {1, 2, 3}, {4, 5, 6}},
				[]gf2.Element{1, 1, 2},
			),
		},
		{
			name: "zero column",
			system: systemFromRows(
				[][]gf2.Element{{1, 0}, {2, 0}},
				[]gf2.Element{1, 2},
			),
		},
		{
			name: "scaled row",
			system: systemFromRows(
				[][]gf2.Element{{0x02, 0x04}, {0x04, 0x08}},
				[]gf2.Element{0, 0},
			),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Solve(f, tt.system)
			assert.ErrorIs(t, err, ErrSingularMatrix)
		})
	}
}

func TestSolveMalformed(t *testing.T) {
	f := gf2.Default()

	tests := []struct {
		name   string
		system System
	}{
		{"empty", System{}},
		{"not square", systemFromRows([][]gf2.Element{{1, 2, 3}, {4, 5, 6}}, []gf2.Element{1, 2})},
		{"coefficient outside field", systemFromRows([][]gf2.Element{{0x100}}, []gf2.Element{1})},
		{"value outside field", systemFromRows([][]gf2.Element{{1}}, []gf2.Element{0x1ff})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Solve(f, tt.system)
			assert.ErrorIs(t, err, ErrMalformedInput)
		})
	}
}

func TestMultiplyLinear(t *testing.T) {
	f := gf2.Default()

	y, err := MultiplyLinear(f, []gf2.Element{0x01, 0x02}, []gf2.Element{0x03, 0x87})
	require.NoError(t, err)
	assert.Equal(t, gf2.Element(0x16), y)

	_, err = MultiplyLinear(f, []gf2.Element{1, 2}, []gf2.Element{1})
	assert.ErrorIs(t, err, ErrMalformedInput)

	_, err = MultiplyLinear(f, []gf2.Element{0x100}, []gf2.Element{1})
	assert.ErrorIs(t, err, ErrMalformedInput)
}

func TestGenerateMatrix(t *testing.T) {
	f := gf2.Default()

	m, err := GenerateMatrix(f, 48, rand.Reader)
	require.NoError(t, err)
	require.Len(t, m, 48)
	for _, row := range m {
		require.Len(t, row, 48)
		for _, c := range row {
			assert.NotZero(t, c)
			assert.True(t, f.Contains(c))
		}
	}

	_, err = GenerateMatrix(f, 0, rand.Reader)
	assert.ErrorIs(t, err, ErrMalformedInput)

	_, err = GenerateRows(f, 2, -1, rand.Reader)
	assert.ErrorIs(t, err, ErrMalformedInput)
}

func TestBuildSystemCopiesRows(t *testing.T) {
	f := gf2.Default()
	a := [][]gf2.Element{{1, 2}, {3, 4}}
	s, err := BuildSystem(f, a, []gf2.Element{5, 6})
	require.NoError(t, err)

	a[0][0] = 9
	assert.Equal(t, gf2.Element(1), s[0].Coefficients[0])
}

func TestConcat(t *testing.T) {
	a := System{{Coefficients: []gf2.Element{1}, Value: 1}}
	b := System{{Coefficients: []gf2.Element{2}, Value: 2}, {Coefficients: []gf2.Element{3}, Value: 3}}
	s := Concat(a, b)
	require.Len(t, s, 3)
	assert.Equal(t, gf2.Element(3), s[2].Value)
}

func TestRank(t *testing.T) {
	f := gf2.Default()
	tests := []struct {
		name string
		m    [][]gf2.Element
		want int
	}{
		{"empty", nil, 0},
		{"zero", [][]gf2.Element{{0, 0}, {0, 0}}, 0},
		{"identity", [][]gf2.Element{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}, 3},
		{"duplicate row", [][]gf2.Element{{3, 7, 9}, {1, 2, 4}, {3, 7, 9}}, 2},
		// {2,4,8} is 2·{1,2,4} in GF(2^8).
		{"scaled row", [][]gf2.Element{{1, 2, 4}, {2, 4, 8}}, 1},
		{"wide", [][]gf2.Element{{0, 0, 5, 1}, {0, 0, 0, 7}}, 2},
		{"tall", [][]gf2.Element{{1, 1}, {1, 0}, {0, 1}}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Rank(f, tt.m)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRankMatchesSolve(t *testing.T) {
	f := gf2.Default()
	s, _ := randomInvertibleSystem(t, f, 12)
	rows := make([][]gf2.Element, len(s))
	for i, eq := range s {
		rows[i] = eq.Coefficients
	}
	before := s.Clone()

	got, err := Rank(f, rows)
	require.NoError(t, err)
	assert.Equal(t, 12, got)
	assert.Equal(t, before, s, "Rank must not modify its input")

	// Replacing one row with the sum of two others drops the rank by one.
	for j := range rows[5] {
		rows[5][j] = rows[1][j] ^ rows[2][j]
	}
	got, err = Rank(f, rows)
	require.NoError(t, err)
	assert.Equal(t, 11, got)
	_, err = Solve(f, s)
	assert.ErrorIs(t, err, ErrSingularMatrix)
}

func TestRankMalformed(t *testing.T) {
	f := gf2.Default()
	_, err := Rank(f, [][]gf2.Element{{1, 2}, {3}})
	assert.ErrorIs(t, err, ErrMalformedInput)
	_, err = Rank(f, [][]gf2.Element{{1, 0x100}})
	assert.ErrorIs(t, err, ErrMalformedInput)
}
