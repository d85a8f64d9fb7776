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

// Package linsys builds and solves systems of linear equations over a
// GF(2^m) field.
//
// A System is an "instance array": a list of equations a·x = y where a is a
// row of coefficients and y is the right-hand-side value. Solve performs
// Gauss-Jordan elimination with partial pivoting and reports
// ErrSingularMatrix when the coefficient matrix has no inverse.
//
// GenerateMatrix does not verify that the matrix it returns is invertible.
// Callers that need an invertible system build it, attempt Solve, and retry
// on ErrSingularMatrix. The solver's pivot search is the invertibility test.
package linsys

import (
	"errors"
	"fmt"

	"github.com/jeremyhahn/go-splitsecret/pkg/crypto/gf2"
)

var (
	// ErrSingularMatrix is returned when elimination finds a column with no
	// nonzero pivot candidate.
	ErrSingularMatrix = errors.New("linsys: singular matrix")

	// ErrMalformedInput is returned for systems with the wrong shape or
	// with coefficients outside the field.
	ErrMalformedInput = errors.New("linsys: malformed input")
)

// Equation is one row of a system: Coefficients · x = Value.
type Equation struct {
	Coefficients []gf2.Element
	Value        gf2.Element
}

// Clone returns a deep copy of e.
func (e Equation) Clone() Equation {
	coefficients := make([]gf2.Element, len(e.Coefficients))
	copy(coefficients, e.Coefficients)
	return Equation{Coefficients: coefficients, Value: e.Value}
}

// System is an ordered list of equations over the same unknowns.
type System []Equation

// Clone returns a deep copy of s.
func (s System) Clone() System {
	out := make(System, len(s))
	for i := range s {
		out[i] = s[i].Clone()
	}
	return out
}

// Validate checks that every equation has exactly n coefficients and that
// all coefficients and values belong to f.
func (s System) Validate(f *gf2.Field, n int) error {
	for i, eq := range s {
		if len(eq.Coefficients) != n {
			return fmt.Errorf("%w: equation %d has %d coefficients, want %d",
				ErrMalformedInput, i, len(eq.Coefficients), n)
		}
		for j, c := range eq.Coefficients {
			if !f.Contains(c) {
				return fmt.Errorf("%w: equation %d coefficient %d is 0x%x, outside %s",
					ErrMalformedInput, i, j, c, f)
			}
		}
		if !f.Contains(eq.Value) {
			return fmt.Errorf("%w: equation %d value is 0x%x, outside %s",
				ErrMalformedInput, i, eq.Value, f)
		}
	}
	return nil
}

// Concat joins systems in order into a new system.
func Concat(parts ...System) System {
	size := 0
	for _, p := range parts {
		size += len(p)
	}
	out := make(System, 0, size)
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}
