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
	"fmt"
	"slices"

	"github.com/jeremyhahn/go-splitsecret/pkg/crypto/gf2"
)

// Solve returns the unique x with A·x = y for the square system s.
// The input is not modified.
//
// Any nonzero pivot is acceptable in a finite field, so the first nonzero
// candidate at or below the diagonal is used.
func Solve(f *gf2.Field, s System) ([]gf2.Element, error) {
	n := len(s)
	if n == 0 {
		return nil, fmt.Errorf("%w: empty system", ErrMalformedInput)
	}
	if err := s.Validate(f, n); err != nil {
		return nil, err
	}

	work := s.Clone()
	for col := 0; col < n; col++ {
		pivot := -1
		for row := col; row < n; row++ {
			if work[row].Coefficients[col] != 0 {
				pivot = row
				break
			}
		}
		if pivot < 0 {
			return nil, fmt.Errorf("%w: no pivot in column %d", ErrSingularMatrix, col)
		}
		work[col], work[pivot] = work[pivot], work[col]

		inv, err := f.Inverse(work[col].Coefficients[col])
		if err != nil {
			return nil, fmt.Errorf("%w: pivot in column %d: %v", ErrSingularMatrix, col, err)
		}
		if err := scale(f, &work[col], inv); err != nil {
			return nil, err
		}

		for row := 0; row < n; row++ {
			if row == col {
				continue
			}
			factor := work[row].Coefficients[col]
			if factor == 0 {
				continue
			}
			if err := subtractScaled(f, &work[row], &work[col], factor); err != nil {
				return nil, err
			}
		}
	}

	x := make([]gf2.Element, n)
	for i := range work {
		x[i] = work[i].Value
	}
	return x, nil
}

// Rank returns the rank of the matrix m over f. Rows may be of any equal
// length; m is not modified.
func Rank(f *gf2.Field, m [][]gf2.Element) (int, error) {
	if len(m) == 0 {
		return 0, nil
	}
	cols := len(m[0])
	work := make([][]gf2.Element, len(m))
	for i, row := range m {
		if len(row) != cols {
			return 0, fmt.Errorf("%w: row %d has %d columns, want %d", ErrMalformedInput, i, len(row), cols)
		}
		for j, c := range row {
			if !f.Contains(c) {
				return 0, fmt.Errorf("%w: row %d column %d is 0x%x, outside %s", ErrMalformedInput, i, j, c, f)
			}
		}
		work[i] = slices.Clone(row)
	}

	rank := 0
	for col := 0; col < cols && rank < len(work); col++ {
		pivot := -1
		for row := rank; row < len(work); row++ {
			if work[row][col] != 0 {
				pivot = row
				break
			}
		}
		if pivot < 0 {
			continue
		}
		work[rank], work[pivot] = work[pivot], work[rank]

		inv, err := f.Inverse(work[rank][col])
		if err != nil {
			return 0, err
		}
		for row := rank + 1; row < len(work); row++ {
			if work[row][col] == 0 {
				continue
			}
			k, err := f.Mul(work[row][col], inv)
			if err != nil {
				return 0, err
			}
			for j := col; j < cols; j++ {
				v, err := f.Mul(work[rank][j], k)
				if err != nil {
					return 0, err
				}
				if work[row][j], err = f.Sub(work[row][j], v); err != nil {
					return 0, err
				}
			}
		}
		rank++
	}
	return rank, nil
}

// scale multiplies every term of eq by k.
func scale(f *gf2.Field, eq *Equation, k gf2.Element) error {
	for i, c := range eq.Coefficients {
		v, err := f.Mul(c, k)
		if err != nil {
			return err
		}
		eq.Coefficients[i] = v
	}
	v, err := f.Mul(eq.Value, k)
	if err != nil {
		return err
	}
	eq.Value = v
	return nil
}

// subtractScaled computes dst -= k·src.
func subtractScaled(f *gf2.Field, dst, src *Equation, k gf2.Element) error {
	for i, c := range src.Coefficients {
		v, err := f.Mul(c, k)
		if err != nil {
			return err
		}
		if dst.Coefficients[i], err = f.Sub(dst.Coefficients[i], v); err != nil {
			return err
		}
	}
	v, err := f.Mul(src.Value, k)
	if err != nil {
		return err
	}
	dst.Value, err = f.Sub(dst.Value, v)
	return err
}
