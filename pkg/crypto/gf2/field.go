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
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math/bits"
	"sync"
)

const (
	// DefaultPolynomial is x^8 + x^4 + x^3 + x + 1, the AES field polynomial.
	DefaultPolynomial uint32 = 0x11b

	// MinDegree and MaxDegree bound the degree of a minimal polynomial.
	// Elements of a degree-15 field still fit in an Element and products
	// before reduction fit in a uint32.
	MinDegree = 2
	MaxDegree = 15

	// searchLimit is the largest field order for which inverses are found
	// by exhaustive search rather than exponentiation.
	searchLimit = 1 << 8
)

var (
	// ErrMalformedInput is returned when an operand is not a member of the field.
	ErrMalformedInput = errors.New("gf2: malformed input")

	// ErrNoInverse is returned when inverting zero, or an element that has no
	// inverse because the minimal polynomial is reducible.
	ErrNoInverse = errors.New("gf2: element has no inverse")

	// ErrInvalidPolynomial is returned when a minimal polynomial has an
	// unsupported degree.
	ErrInvalidPolynomial = errors.New("gf2: invalid minimal polynomial")
)

// Element is a field element in compact scalar form.
type Element uint16

// Field is GF(2^m) defined by a minimal polynomial of degree m.
type Field struct {
	poly   uint32
	degree int

	once     sync.Once
	inverses []Element
}

var defaultField = sync.OnceValue(func() *Field {
	f, err := NewField(DefaultPolynomial)
	if err != nil {
		panic(fmt.Sprintf("gf2: default field: %v", err))
	}
	return f
})

// Default returns the process-wide GF(2^8) field over 0x11b.
func Default() *Field {
	return defaultField()
}

// NewField creates a field from the given minimal polynomial.
func NewField(minimalPolynomial uint32) (*Field, error) {
	degree := bits.Len32(minimalPolynomial) - 1
	if degree < MinDegree || degree > MaxDegree {
		return nil, fmt.Errorf("%w: 0x%x has degree %d, want %d..%d",
			ErrInvalidPolynomial, minimalPolynomial, degree, MinDegree, MaxDegree)
	}
	return &Field{
		poly:   minimalPolynomial,
		degree: degree,
	}, nil
}

// Polynomial returns the minimal polynomial.
func (f *Field) Polynomial() uint32 {
	return f.poly
}

// Degree returns m, the degree of the minimal polynomial.
func (f *Field) Degree() int {
	return f.degree
}

// Order returns the number of elements, 2^m.
func (f *Field) Order() int {
	return 1 << f.degree
}

// Contains reports whether a is a reduced element of the field.
func (f *Field) Contains(a Element) bool {
	return int(a) < f.Order()
}

func (f *Field) String() string {
	return fmt.Sprintf("GF(2^%d) mod %s", f.degree, ToInternal(uint16(f.poly)))
}

// Add returns a + b. Subtraction is the same operation in characteristic 2.
func (f *Field) Add(a, b Element) (Element, error) {
	if err := f.check(a, b); err != nil {
		return 0, err
	}
	return a ^ b, nil
}

// Sub returns a - b, which equals a + b.
func (f *Field) Sub(a, b Element) (Element, error) {
	return f.Add(a, b)
}

// Mul returns the carry-less product of a and b reduced by the minimal
// polynomial.
func (f *Field) Mul(a, b Element) (Element, error) {
	if err := f.check(a, b); err != nil {
		return 0, err
	}
	return f.mul(a, b), nil
}

// Div returns a / b.
func (f *Field) Div(a, b Element) (Element, error) {
	inv, err := f.Inverse(b)
	if err != nil {
		return 0, err
	}
	return f.Mul(a, inv)
}

// Reduce reduces v modulo the minimal polynomial. The highest set bit at or
// above degree m is cleared by XORing in the polynomial shifted to align
// with it, until the result has degree below m.
func (f *Field) Reduce(v uint32) Element {
	for n := bits.Len32(v) - 1; n >= f.degree; n = bits.Len32(v) - 1 {
		v ^= f.poly << (n - f.degree)
	}
	return Element(v)
}

// Inverse returns the multiplicative inverse of a. The inverse table is
// computed on first call.
func (f *Field) Inverse(a Element) (Element, error) {
	if !f.Contains(a) {
		return 0, fmt.Errorf("%w: 0x%x is not in %s", ErrMalformedInput, a, f)
	}
	if a == 0 {
		return 0, fmt.Errorf("%w: zero", ErrNoInverse)
	}
	f.once.Do(f.buildInverses)
	inv := f.inverses[a]
	if inv == 0 {
		return 0, fmt.Errorf("%w: 0x%x", ErrNoInverse, a)
	}
	return inv, nil
}

// Random draws a uniformly distributed element from r. With nonZero set,
// zero is rejected and redrawn.
func (f *Field) Random(r io.Reader, nonZero bool) (Element, error) {
	var buf [2]byte
	mask := uint16(f.Order() - 1)
	for {
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			return 0, fmt.Errorf("gf2: failed to read random element: %w", err)
		}
		e := Element(binary.BigEndian.Uint16(buf[:]) & mask)
		if nonZero && e == 0 {
			continue
		}
		return e, nil
	}
}

func (f *Field) check(a, b Element) error {
	if !f.Contains(a) {
		return fmt.Errorf("%w: 0x%x is not in %s", ErrMalformedInput, a, f)
	}
	if !f.Contains(b) {
		return fmt.Errorf("%w: 0x%x is not in %s", ErrMalformedInput, b, f)
	}
	return nil
}

// mul assumes both operands are field members.
func (f *Field) mul(a, b Element) Element {
	var product uint32
	x := uint32(a)
	for y := b; y != 0; y >>= 1 {
		if y&1 != 0 {
			product ^= x
		}
		x <<= 1
	}
	return f.Reduce(product)
}

func (f *Field) pow(a Element, e int) Element {
	result := Element(1)
	for base := a; e > 0; e >>= 1 {
		if e&1 != 0 {
			result = f.mul(result, base)
		}
		base = f.mul(base, base)
	}
	return result
}

// buildInverses fills the inverse table. Small fields are searched
// exhaustively. Larger fields use a^(2^m - 2), keeping only results that
// multiply back to one.
func (f *Field) buildInverses() {
	order := f.Order()
	inverses := make([]Element, order)

	if order <= searchLimit {
		for a := 1; a < order; a++ {
			if inverses[a] != 0 {
				continue
			}
			for b := 1; b < order; b++ {
				if f.mul(Element(a), Element(b)) == 1 {
					inverses[a] = Element(b)
					inverses[b] = Element(a)
					break
				}
			}
		}
	} else {
		for a := 1; a < order; a++ {
			if inverses[a] != 0 {
				continue
			}
			b := f.pow(Element(a), order-2)
			if b != 0 && f.mul(Element(a), b) == 1 {
				inverses[a] = b
				inverses[b] = Element(a)
			}
		}
	}

	f.inverses = inverses
}
