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

// Package gf2 implements arithmetic in binary extension fields GF(2^m).
//
// Elements are polynomials over GF(2) stored in compact scalar form: bit i
// of an Element is the coefficient of x^i. A Field is defined by its minimal
// polynomial, which must be irreducible over GF(2). Irreducibility is not
// checked; a reducible polynomial produces a ring in which some nonzero
// elements have no inverse, and Inverse reports ErrNoInverse for them.
//
// The canonical field is GF(2^8) with the AES polynomial
// x^8 + x^4 + x^3 + x + 1 (0x11b), available through Default:
//
//	f := gf2.Default()
//	p, _ := f.Mul(0x57, 0x83) // 0xc1
//	inv, _ := f.Inverse(0x53) // 0xca
//
// # Internal Representation
//
// Poly is the fixed-width, one-byte-per-coefficient form of a value, with
// index equal to the degree of the term. ToInternal and FromInternal convert
// between the two forms and round-trip every 16-bit value.
//
// # Thread Safety
//
// Fields are immutable after construction. The multiplicative inverse table
// is built lazily on first use, at most once per Field, and is read-only
// afterwards, so a Field may be shared freely across goroutines.
package gf2
