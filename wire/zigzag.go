package wire

import "github.com/pbkit/pbkit-sub000/long"

// ZigZag32 maps a signed 32-bit integer onto an unsigned one so that values of
// small magnitude stay small: 0→0, -1→1, 1→2, -2→3, ...
func ZigZag32(v int32) uint32 {
	return uint32(v<<1) ^ uint32(v>>31)
}

// UnZigZag32 inverts ZigZag32.
func UnZigZag32(v uint32) int32 {
	return int32(v>>1) ^ -int32(v&1)
}

// ZigZag64 is the 64-bit form of ZigZag32: (n << 1) ^ (n >> 63).
func ZigZag64(v long.Long) long.Long {
	return v.Shl(1).Xor(v.Sar(63))
}

// UnZigZag64 inverts ZigZag64: (n >>> 1) ^ -(n & 1).
func UnZigZag64(v long.Long) long.Long {
	return v.Shr(1).Xor(v.And(long.One).Neg())
}
