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
	"io"

	"github.com/jeremyhahn/go-splitsecret/pkg/crypto/gf2"
)

// GenerateMatrix returns an n×n matrix of random nonzero field elements
// drawn from r.
//
// Each entry is drawn uniformly from the nonzero elements of f. That
// distribution still yields singular matrices, at a rate of the same order
// as 1/(2^m-1), and the matrix is not checked for invertibility. The caller
// detects it through Solve returning ErrSingularMatrix and generates a new
// matrix.
func GenerateMatrix(f *gf2.Field, n int, r io.Reader) ([][]gf2.Element, error) {
	return GenerateRows(f, n, n, r)
}

// GenerateRows returns a rows×cols matrix of random nonzero field elements.
func GenerateRows(f *gf2.Field, rows, cols int, r io.Reader) ([][]gf2.Element, error) {
	if rows <= 0 || cols <= 0 {
		return nil, fmt.Errorf("%w: matrix dimensions %dx%d", ErrMalformedInput, rows, cols)
	}
	m := make([][]gf2.Element, rows)
	for i := range m {
		row, err := RandomVector(f, cols, r, true)
		if err != nil {
			return nil, err
		}
		m[i] = row
	}
	return m, nil
}

// RandomVector returns n random field elements.
func RandomVector(f *gf2.Field, n int, r io.Reader, nonZero bool) ([]gf2.Element, error) {
	v := make([]gf2.Element, n)
	for i := range v {
		e, err := f.Random(r, nonZero)
		if err != nil {
			return nil, err
		}
		v[i] = e
	}
	return v, nil
}

// MultiplyLinear returns the dot product row·x over f.
func MultiplyLinear(f *gf2.Field, row, x []gf2.Element) (gf2.Element, error) {
	if len(row) != len(x) {
		return 0, fmt.Errorf("%w: row has %d coefficients, x has %d elements",
			ErrMalformedInput, len(row), len(x))
	}
	var y gf2.Element
	for i := range row {
		p, err := f.Mul(row[i], x[i])
		if err != nil {
			return 0, fmt.Errorf("%w: term %d: %v", ErrMalformedInput, i, err)
		}
		y ^= p
	}
	return y, nil
}

// BuildSystem pairs each row of a with its right-hand side for x. The rows
// are copied.
func BuildSystem(f *gf2.Field, a [][]gf2.Element, x []gf2.Element) (System, error) {
	s := make(System, len(a))
	for i, row := range a {
		y, err := MultiplyLinear(f, row, x)
		if err != nil {
			return nil, fmt.Errorf("equation %d: %w", i, err)
		}
		coefficients := make([]gf2.Element, len(row))
		copy(coefficients, row)
		s[i] = Equation{Coefficients: coefficients, Value: y}
	}
	return s, nil
}
