// Package long provides a 64-bit integer value with explicit signed and
// unsigned decimal renderings.
//
// Protobuf carries int64, uint64, sint64, fixed64 and sfixed64 values on the
// wire as raw 64-bit patterns; whether a pattern is signed is decided by the
// field kind, not by the bytes. Long keeps the pattern opaque and lets the
// caller pick the interpretation when rendering or comparing.
package long

import (
	"errors"
	"fmt"
	"strconv"
)

var (
	// ErrSyntax is returned by Parse for input that is not a base-10 integer.
	ErrSyntax = errors.New("invalid syntax")

	// ErrRange is returned by Parse when the magnitude exceeds 64 bits.
	ErrRange = errors.New("value out of range")
)

// Long is an immutable 64-bit integer. The zero value is 0.
//
// Two Longs are equal (==) when both 32-bit lanes are equal.
type Long struct {
	v uint64
}

var (
	Zero = Long{}
	One  = Long{v: 1}
	// MaxUint64 has every bit set; it renders as -1 when signed.
	MaxUint64 = Long{v: ^uint64(0)}
)

// New builds a Long from its low and high 32-bit lanes.
func New(lo, hi uint32) Long {
	return Long{v: uint64(hi)<<32 | uint64(lo)}
}

// FromInt64 returns the two's-complement pattern of v.
func FromInt64(v int64) Long { return Long{v: uint64(v)} }

// FromUint64 wraps v.
func FromUint64(v uint64) Long { return Long{v: v} }

// FromUint32 wraps v with a zero high lane.
func FromUint32(v uint32) Long { return Long{v: uint64(v)} }

// Parse reads a base-10 integer. A leading '-' yields the two's-complement
// pattern of the magnitude, so "-1" parses to all bits set and
// "18446744073709551615" parses to the same value. "-0" parses to zero.
// Negative inputs below -2^63 are out of range.
func Parse(s string) (Long, error) {
	digits := s
	neg := false
	if len(digits) > 0 {
		switch digits[0] {
		case '-':
			neg = true
			digits = digits[1:]
		case '+':
			digits = digits[1:]
		}
	}
	if digits == "" {
		return Zero, fmt.Errorf("long: parse %q: %w", s, ErrSyntax)
	}
	u, err := strconv.ParseUint(digits, 10, 64)
	if err != nil {
		if errors.Is(err, strconv.ErrRange) {
			return Zero, fmt.Errorf("long: parse %q: %w", s, ErrRange)
		}
		return Zero, fmt.Errorf("long: parse %q: %w", s, ErrSyntax)
	}
	if neg {
		if u > 1<<63 {
			return Zero, fmt.Errorf("long: parse %q: %w", s, ErrRange)
		}
		u = -u
	}
	return Long{v: u}, nil
}

// MustParse is like Parse but panics on error. Intended for constants in tests
// and tables.
func MustParse(s string) Long {
	l, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return l
}

// Lo returns the low 32-bit lane.
func (l Long) Lo() uint32 { return uint32(l.v) }

// Hi returns the high 32-bit lane.
func (l Long) Hi() uint32 { return uint32(l.v >> 32) }

// Uint64 returns the pattern as an unsigned integer.
func (l Long) Uint64() uint64 { return l.v }

// Int64 returns the pattern as a two's-complement signed integer.
func (l Long) Int64() int64 { return int64(l.v) }

// IsZero reports whether every bit is clear.
func (l Long) IsZero() bool { return l.v == 0 }

// Decimal renders the value in base 10, interpreting the pattern as signed
// two's complement when signed is true and as unsigned otherwise.
func (l Long) Decimal(signed bool) string {
	if signed {
		return strconv.FormatInt(int64(l.v), 10)
	}
	return strconv.FormatUint(l.v, 10)
}

// String renders the signed interpretation.
func (l Long) String() string { return l.Decimal(true) }

// Equal reports whether l and o hold the same bit pattern.
func (l Long) Equal(o Long) bool { return l.v == o.v }

// Compare orders l and o as unsigned integers. It returns -1, 0 or +1.
func (l Long) Compare(o Long) int {
	switch {
	case l.v < o.v:
		return -1
	case l.v > o.v:
		return 1
	}
	return 0
}

// CompareSigned orders l and o as two's-complement signed integers.
func (l Long) CompareSigned(o Long) int {
	a, b := int64(l.v), int64(o.v)
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// Add returns l+o modulo 2^64.
func (l Long) Add(o Long) Long { return Long{v: l.v + o.v} }

// Sub returns l-o modulo 2^64.
func (l Long) Sub(o Long) Long { return Long{v: l.v - o.v} }

// Mul returns l*o modulo 2^64.
func (l Long) Mul(o Long) Long { return Long{v: l.v * o.v} }

// Neg returns the two's-complement negation.
func (l Long) Neg() Long { return Long{v: -l.v} }

// Shl shifts left by n bits; bits shifted past bit 63 are lost.
func (l Long) Shl(n uint) Long { return Long{v: l.v << n} }

// Shr shifts right by n bits, filling with zeros.
func (l Long) Shr(n uint) Long { return Long{v: l.v >> n} }

// Sar shifts right by n bits, replicating the sign bit.
func (l Long) Sar(n uint) Long { return Long{v: uint64(int64(l.v) >> n)} }

func (l Long) And(o Long) Long { return Long{v: l.v & o.v} }
func (l Long) Or(o Long) Long  { return Long{v: l.v | o.v} }
func (l Long) Xor(o Long) Long { return Long{v: l.v ^ o.v} }
