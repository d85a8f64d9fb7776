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
	"fmt"
	"math"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/jeremyhahn/go-splitsecret/pkg/crypto/gf2"
	"github.com/jeremyhahn/go-splitsecret/pkg/crypto/linsys"
)

// Field numbers of split_secret_message.
const (
	fieldSecretName        protowire.Number = 1
	fieldSubsequenceCount  protowire.Number = 2
	fieldSequenceNumber    protowire.Number = 3
	fieldShardsOutstanding protowire.Number = 4
	fieldShardsRequired    protowire.Number = 5
	fieldShardNumber       protowire.Number = 6
	fieldEquationCount     protowire.Number = 7
	fieldCoefficientCount  protowire.Number = 8
	fieldEquations         protowire.Number = 9
)

// Field numbers of equation_message.
const (
	fieldCoefficients protowire.Number = 1
	fieldValue        protowire.Number = 2
)

// Marshal encodes s as a split_secret_message. Coefficients are written
// unpacked, one varint per coefficient, in row order followed by the value.
func Marshal(s *Shard) ([]byte, error) {
	if s == nil {
		return nil, fmt.Errorf("%w: nil shard", ErrInvalidShard)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}

	var b []byte
	b = protowire.AppendTag(b, fieldSecretName, protowire.BytesType)
	b = protowire.AppendString(b, s.SecretName)

	ints := []struct {
		num protowire.Number
		v   int
	}{
		{fieldSubsequenceCount, s.SubsequenceCount},
		{fieldSequenceNumber, s.SequenceNumber},
		{fieldShardsOutstanding, s.ShardsOutstanding},
		{fieldShardsRequired, s.ShardsRequired},
		{fieldShardNumber, s.ShardNumber},
		{fieldEquationCount, s.EquationCount},
		{fieldCoefficientCount, s.CoefficientCount},
	}
	for _, f := range ints {
		if f.v > math.MaxInt32 {
			return nil, fmt.Errorf("%w: field %d value %d overflows int32", ErrInvalidShard, f.num, f.v)
		}
		b = protowire.AppendTag(b, f.num, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(int64(f.v)))
	}

	for _, eq := range s.Equations {
		b = protowire.AppendTag(b, fieldEquations, protowire.BytesType)
		b = protowire.AppendBytes(b, marshalEquation(eq))
	}
	return b, nil
}

func marshalEquation(eq linsys.Equation) []byte {
	var b []byte
	for _, c := range eq.Coefficients {
		b = protowire.AppendTag(b, fieldCoefficients, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(c))
	}
	b = protowire.AppendTag(b, fieldValue, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(eq.Value))
	return b
}

// Unmarshal decodes a split_secret_message. Unknown fields are skipped and
// packed or unpacked coefficient encodings are both accepted. Any decoding
// failure or inconsistent result is reported as ErrParse.
func Unmarshal(b []byte) (*Shard, error) {
	s := &Shard{}
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, parseError("tag", protowire.ParseError(n))
		}
		b = b[n:]

		switch {
		case num == fieldSecretName && typ == protowire.BytesType:
			v, n := protowire.ConsumeString(b)
			if n < 0 {
				return nil, parseError("secret_name", protowire.ParseError(n))
			}
			s.SecretName = v
			b = b[n:]

		case num >= fieldSubsequenceCount && num <= fieldCoefficientCount && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return nil, parseError(fmt.Sprintf("field %d", num), protowire.ParseError(n))
			}
			i, err := int32Value(v)
			if err != nil {
				return nil, fmt.Errorf("field %d: %w", num, err)
			}
			*s.intField(num) = int(i)
			b = b[n:]

		case num == fieldEquations && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return nil, parseError("equations", protowire.ParseError(n))
			}
			eq, err := unmarshalEquation(v)
			if err != nil {
				return nil, fmt.Errorf("equation %d: %w", len(s.Equations), err)
			}
			s.Equations = append(s.Equations, eq)
			b = b[n:]

		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return nil, parseError(fmt.Sprintf("field %d", num), protowire.ParseError(n))
			}
			b = b[n:]
		}
	}

	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}
	return s, nil
}

func (s *Shard) intField(num protowire.Number) *int {
	switch num {
	case fieldSubsequenceCount:
		return &s.SubsequenceCount
	case fieldSequenceNumber:
		return &s.SequenceNumber
	case fieldShardsOutstanding:
		return &s.ShardsOutstanding
	case fieldShardsRequired:
		return &s.ShardsRequired
	case fieldShardNumber:
		return &s.ShardNumber
	case fieldEquationCount:
		return &s.EquationCount
	default:
		return &s.CoefficientCount
	}
}

func unmarshalEquation(b []byte) (linsys.Equation, error) {
	var eq linsys.Equation
	eq.Coefficients = []gf2.Element{}
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return eq, parseError("equation tag", protowire.ParseError(n))
		}
		b = b[n:]

		switch {
		case num == fieldCoefficients && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return eq, parseError("coefficient", protowire.ParseError(n))
			}
			c, err := element(v)
			if err != nil {
				return eq, err
			}
			eq.Coefficients = append(eq.Coefficients, c)
			b = b[n:]

		case num == fieldCoefficients && typ == protowire.BytesType:
			packed, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return eq, parseError("packed coefficients", protowire.ParseError(n))
			}
			for len(packed) > 0 {
				v, m := protowire.ConsumeVarint(packed)
				if m < 0 {
					return eq, parseError("packed coefficient", protowire.ParseError(m))
				}
				c, err := element(v)
				if err != nil {
					return eq, err
				}
				eq.Coefficients = append(eq.Coefficients, c)
				packed = packed[m:]
			}
			b = b[n:]

		case num == fieldValue && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return eq, parseError("value", protowire.ParseError(n))
			}
			c, err := element(v)
			if err != nil {
				return eq, err
			}
			eq.Value = c
			b = b[n:]

		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return eq, parseError(fmt.Sprintf("equation field %d", num), protowire.ParseError(n))
			}
			b = b[n:]
		}
	}
	return eq, nil
}

// int32Value interprets a varint as a proto int32. Negative values arrive
// sign-extended to 64 bits; anything else wider than 31 bits is rejected
// rather than truncated.
func int32Value(v uint64) (int32, error) {
	i := int64(v)
	if i < math.MinInt32 || i > math.MaxInt32 {
		return 0, fmt.Errorf("%w: varint %#x out of int32 range", ErrParse, v)
	}
	return int32(i), nil
}

// element converts an int32 varint into a 16-bit scalar.
func element(v uint64) (gf2.Element, error) {
	i, err := int32Value(v)
	if err != nil {
		return 0, err
	}
	if i < 0 || i > math.MaxUint16 {
		return 0, fmt.Errorf("%w: scalar %d out of 16-bit range", ErrParse, i)
	}
	return gf2.Element(i), nil
}

func parseError(what string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrParse, what, err)
}
