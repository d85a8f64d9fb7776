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

package gf2

import (
	"fmt"
	"strings"
)

// PolySize is the number of coefficients held by a Poly.
const PolySize = 16

// Poly is the internal representation of a value: one byte per GF(2)
// coefficient, index equal to degree. Every byte is either 0 or 1.
type Poly [PolySize]byte

// ToInternal expands a compact scalar into its coefficient form.
func ToInternal(v uint16) Poly {
	var p Poly
	for i := range p {
		p[i] = byte(v & 1)
		v >>= 1
	}
	return p
}

// FromInternal packs a coefficient form back into a compact scalar.
// Coefficients other than 0 and 1 are rejected.
func FromInternal(p Poly) (uint16, error) {
	var v uint16
	for i := PolySize - 1; i >= 0; i-- {
		if p[i] > 1 {
			return 0, fmt.Errorf("%w: coefficient %d of x^%d", ErrMalformedInput, p[i], i)
		}
		v = v<<1 | uint16(p[i])
	}
	return v, nil
}

// Poly returns the coefficient form of e.
func (e Element) Poly() Poly {
	return ToInternal(uint16(e))
}

// Degree returns the degree of p, or -1 for the zero polynomial.
func (p Poly) Degree() int {
	for i := PolySize - 1; i >= 0; i-- {
		if p[i] != 0 {
			return i
		}
	}
	return -1
}

// String formats p as a sum of powers of x, highest degree first.
func (p Poly) String() string {
	var terms []string
	for i := PolySize - 1; i >= 0; i-- {
		if p[i] == 0 {
			continue
		}
		switch i {
		case 0:
			terms = append(terms, "1")
		case 1:
			terms = append(terms, "x")
		default:
			terms = append(terms, fmt.Sprintf("x^%d", i))
		}
	}
	if len(terms) == 0 {
		return "0"
	}
	return strings.Join(terms, " + ")
}
