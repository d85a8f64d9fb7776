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
	"bytes"
	"errors"
	"sync"
	"testing"
)

func TestNewField(t *testing.T) {
	tests := []struct {
		name       string
		poly       uint32
		wantDegree int
		wantErr    bool
	}{
		{"aes polynomial", 0x11b, 8, false},
		{"degree two", 0x7, 2, false},
		{"degree fifteen", 0x8003, 15, false},
		{"zero", 0x0, 0, true},
		{"constant", 0x1, 0, true},
		{"linear", 0x3, 0, true},
		{"degree sixteen", 0x1002b, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := NewField(tt.poly)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidPolynomial) {
					t.Fatalf("NewField(0x%x) error = %v, want ErrInvalidPolynomial", tt.poly, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("NewField(0x%x) unexpected error: %v", tt.poly, err)
			}
			if f.Degree() != tt.wantDegree {
				t.Errorf("Degree() = %d, want %d", f.Degree(), tt.wantDegree)
			}
			if f.Order() != 1<<tt.wantDegree {
				t.Errorf("Order() = %d, want %d", f.Order(), 1<<tt.wantDegree)
			}
			if f.Polynomial() != tt.poly {
				t.Errorf("Polynomial() = 0x%x, want 0x%x", f.Polynomial(), tt.poly)
			}
		})
	}
}

func TestDefault(t *testing.T) {
	f := Default()
	if f != Default() {
		t.Fatal("Default() should return the same field on every call")
	}
	if f.Polynomial() != DefaultPolynomial {
		t.Errorf("Polynomial() = 0x%x, want 0x%x", f.Polynomial(), DefaultPolynomial)
	}
	if got, want := f.String(), "GF(2^8) mod x^8 + x^4 + x^3 + x + 1"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func TestMulKnownProducts(t *testing.T) {
	f := Default()
	tests := []struct {
		a, b, want Element
	}{
		{0x57, 0x83, 0xc1},
		{0x57, 0x13, 0xfe},
		{0x02, 0x87, 0x15},
		{0x01, 0xab, 0xab},
		{0x00, 0xff, 0x00},
		{0x53, 0xca, 0x01},
	}

	for _, tt := range tests {
		got, err := f.Mul(tt.a, tt.b)
		if err != nil {
			t.Fatalf("Mul(0x%02x, 0x%02x) error: %v", tt.a, tt.b, err)
		}
		if got != tt.want {
			t.Errorf("Mul(0x%02x, 0x%02x) = 0x%02x, want 0x%02x", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestClosure(t *testing.T) {
	f := Default()
	for a := 0; a < f.Order(); a++ {
		for b := 0; b < f.Order(); b++ {
			sum, err := f.Add(Element(a), Element(b))
			if err != nil || !f.Contains(sum) {
				t.Fatalf("Add(0x%02x, 0x%02x) = 0x%x, %v", a, b, sum, err)
			}
			product, err := f.Mul(Element(a), Element(b))
			if err != nil || !f.Contains(product) {
				t.Fatalf("Mul(0x%02x, 0x%02x) = 0x%x, %v", a, b, product, err)
			}
		}
	}
}

func TestMulCommutativeAndDistributive(t *testing.T) {
	f := Default()
	for a := Element(0); a < 256; a += 7 {
		for b := Element(0); b < 256; b += 11 {
			ab, _ := f.Mul(a, b)
			ba, _ := f.Mul(b, a)
			if ab != ba {
				t.Fatalf("Mul not commutative for 0x%02x, 0x%02x", a, b)
			}
			for c := Element(1); c < 256; c += 37 {
				sum, _ := f.Add(b, c)
				left, _ := f.Mul(a, sum)
				ac, _ := f.Mul(a, c)
				right, _ := f.Add(ab, ac)
				if left != right {
					t.Fatalf("Mul not distributive for 0x%02x, 0x%02x, 0x%02x", a, b, c)
				}
			}
		}
	}
}

func TestInverse(t *testing.T) {
	f := Default()
	for a := 1; a < f.Order(); a++ {
		inv, err := f.Inverse(Element(a))
		if err != nil {
			t.Fatalf("Inverse(0x%02x) error: %v", a, err)
		}
		product, _ := f.Mul(Element(a), inv)
		if product != 1 {
			t.Fatalf("0x%02x * Inverse(0x%02x) = 0x%02x, want 0x01", a, a, product)
		}
	}

	if _, err := f.Inverse(0); !errors.Is(err, ErrNoInverse) {
		t.Errorf("Inverse(0) error = %v, want ErrNoInverse", err)
	}
	if inv, _ := f.Inverse(0x53); inv != 0xca {
		t.Errorf("Inverse(0x53) = 0x%02x, want 0xca", inv)
	}
}

func TestInverseConcurrent(t *testing.T) {
	f, err := NewField(DefaultPolynomial)
	if err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	results := make([]Element, 16)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], _ = f.Inverse(0x8e)
		}(i)
	}
	wg.Wait()

	for i, got := range results {
		if got != results[0] {
			t.Fatalf("goroutine %d saw 0x%02x, goroutine 0 saw 0x%02x", i, got, results[0])
		}
	}
}

func TestInverseReduciblePolynomial(t *testing.T) {
	// x^2 + 1 = (x + 1)^2, so x + 1 is a zero divisor.
	f, err := NewField(0x5)
	if err != nil {
		t.Fatal(err)
	}
	if inv, err := f.Inverse(0x2); err != nil || inv != 0x2 {
		t.Errorf("Inverse(x) = 0x%x, %v; want 0x2", inv, err)
	}
	if _, err := f.Inverse(0x3); !errors.Is(err, ErrNoInverse) {
		t.Errorf("Inverse(x+1) error = %v, want ErrNoInverse", err)
	}
}

func TestInverseLargeField(t *testing.T) {
	f, err := NewField(0x8003)
	if err != nil {
		t.Fatal(err)
	}
	for _, a := range []Element{1, 2, 0x1234, 0x7fff, 0x4000} {
		inv, err := f.Inverse(a)
		if err != nil {
			t.Fatalf("Inverse(0x%x) error: %v", a, err)
		}
		if p, _ := f.Mul(a, inv); p != 1 {
			t.Errorf("0x%x * 0x%x = 0x%x, want 1", a, inv, p)
		}
	}
}

func TestMalformedInput(t *testing.T) {
	f := Default()
	if _, err := f.Mul(0x100, 1); !errors.Is(err, ErrMalformedInput) {
		t.Errorf("Mul(0x100, 1) error = %v, want ErrMalformedInput", err)
	}
	if _, err := f.Add(1, 0x1ff); !errors.Is(err, ErrMalformedInput) {
		t.Errorf("Add(1, 0x1ff) error = %v, want ErrMalformedInput", err)
	}
	if _, err := f.Inverse(0x200); !errors.Is(err, ErrMalformedInput) {
		t.Errorf("Inverse(0x200) error = %v, want ErrMalformedInput", err)
	}
	if _, err := f.Sub(0x100, 0); !errors.Is(err, ErrMalformedInput) {
		t.Errorf("Sub(0x100, 0) error = %v, want ErrMalformedInput", err)
	}
}

func TestSubUndoesAdd(t *testing.T) {
	f := Default()
	for a := 0; a < f.Order(); a++ {
		for _, b := range []Element{0, 1, 0x53, 0xca, 0xff} {
			sum, err := f.Add(Element(a), b)
			if err != nil {
				t.Fatal(err)
			}
			diff, err := f.Sub(sum, b)
			if err != nil || diff != Element(a) {
				t.Fatalf("Sub(Add(0x%02x, 0x%02x)) = 0x%02x, %v", a, b, diff, err)
			}
			if self, _ := f.Sub(Element(a), Element(a)); self != 0 {
				t.Fatalf("Sub(0x%02x, 0x%02x) = 0x%02x, want 0", a, a, self)
			}
		}
	}
}

func TestReduce(t *testing.T) {
	f := Default()
	tests := []struct {
		in   uint32
		want Element
	}{
		{0x11b, 0x00},
		{0x100, 0x1b},
		{0xff, 0xff},
		{0x2b79, 0xc1}, // 0x57 * 0x83 before reduction
	}
	for _, tt := range tests {
		if got := f.Reduce(tt.in); got != tt.want {
			t.Errorf("Reduce(0x%x) = 0x%02x, want 0x%02x", tt.in, got, tt.want)
		}
	}
}

func TestDiv(t *testing.T) {
	f := Default()
	q, err := f.Div(0xc1, 0x83)
	if err != nil {
		t.Fatal(err)
	}
	if q != 0x57 {
		t.Errorf("Div(0xc1, 0x83) = 0x%02x, want 0x57", q)
	}
	if _, err := f.Div(1, 0); !errors.Is(err, ErrNoInverse) {
		t.Errorf("Div(1, 0) error = %v, want ErrNoInverse", err)
	}
}

func TestRandom(t *testing.T) {
	f := Default()

	e, err := f.Random(bytes.NewReader([]byte{0x12, 0x34}), false)
	if err != nil || e != 0x34 {
		t.Errorf("Random() = 0x%02x, %v; want 0x34", e, err)
	}

	e, err = f.Random(bytes.NewReader([]byte{0x01, 0x00, 0x00, 0x05}), true)
	if err != nil || e != 0x05 {
		t.Errorf("Random(nonZero) = 0x%02x, %v; want 0x05", e, err)
	}

	if _, err := f.Random(bytes.NewReader([]byte{0x01}), false); err == nil {
		t.Error("Random() with short reader should fail")
	}
}
