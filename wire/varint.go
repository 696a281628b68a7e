package wire

import (
	"fmt"

	"github.com/pbkit/pbkit-sub000/long"
)

// MaxVarintLen is the longest varint encoding of a 64-bit value.
const MaxVarintLen = 10

var (
	lowSeven     = long.FromUint32(0x7f)
	continuation = long.FromUint32(0x80)
)

// EncodeVarint returns the base-128 encoding of v.
func EncodeVarint(v long.Long) []byte {
	return AppendVarint(make([]byte, 0, VarintSize(v)), v)
}

// EncodeUvarint is EncodeVarint for a native unsigned value.
func EncodeUvarint(v uint64) []byte {
	return EncodeVarint(long.FromUint64(v))
}

// AppendVarint appends the base-128 encoding of v to buf: the low 7 bits
// first, with 0x80 set on every byte but the last. Zero encodes as a single
// 0x00 byte.
func AppendVarint(buf []byte, v long.Long) []byte {
	if v.IsZero() {
		return append(buf, 0)
	}
	for v.Compare(continuation) >= 0 {
		buf = append(buf, byte(v.And(lowSeven).Lo())|0x80)
		v = v.Shr(7)
	}
	return append(buf, byte(v.Lo()))
}

// DecodeVarint reads one varint from the start of buf and returns the value
// and the number of bytes consumed.
//
// Each payload byte contributes byte&0x7f * 128^index. A continuation bit that
// runs past the end of buf yields ErrTruncated; an encoding that cannot fit in
// 64 bits yields ErrVarintOverflow.
func DecodeVarint(buf []byte) (long.Long, int, error) {
	var (
		value long.Long
		scale = long.One
	)
	for i := 0; i < len(buf); i++ {
		b := buf[i]
		// The tenth byte holds bit 63 only; anything more needs an eleventh.
		if i == MaxVarintLen-1 && b > 1 {
			return long.Zero, 0, ErrVarintOverflow
		}
		value = value.Add(long.FromUint32(uint32(b & 0x7f)).Mul(scale))
		if b&0x80 == 0 {
			return value, i + 1, nil
		}
		scale = scale.Shl(7)
	}
	return long.Zero, 0, fmt.Errorf("%w: varint", ErrTruncated)
}

// VarintSize returns the number of bytes needed to encode the given varint
func VarintSize(v long.Long) int {
	n := 1
	for v.Compare(continuation) >= 0 {
		v = v.Shr(7)
		n++
	}
	return n
}
