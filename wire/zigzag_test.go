package wire

import (
	"math"
	"testing"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/pbkit/pbkit-sub000/long"
)

func TestZigZag32(t *testing.T) {
	tests := []struct {
		in   int32
		want uint32
	}{
		{0, 0},
		{-1, 1},
		{1, 2},
		{-2, 3},
		{2, 4},
		{math.MinInt32, 4294967295},
		{math.MaxInt32, 4294967294},
	}
	for _, tt := range tests {
		if got := ZigZag32(tt.in); got != tt.want {
			t.Errorf("ZigZag32(%d) = %d, want %d", tt.in, got, tt.want)
		}
		if got := UnZigZag32(tt.want); got != tt.in {
			t.Errorf("UnZigZag32(%d) = %d, want %d", tt.want, got, tt.in)
		}
	}
}

func TestZigZag32Bijection(t *testing.T) {
	for _, x := range []int32{math.MinInt32, math.MinInt32 + 1, -65536, -129, -64, -63, 63, 64, 65535, math.MaxInt32 - 1, math.MaxInt32} {
		if got := UnZigZag32(ZigZag32(x)); got != x {
			t.Errorf("UnZigZag32(ZigZag32(%d)) = %d", x, got)
		}
	}
	// Stride through the whole int32 range.
	for x := int64(math.MinInt32); x <= math.MaxInt32; x += 65521 {
		if got := UnZigZag32(ZigZag32(int32(x))); got != int32(x) {
			t.Fatalf("UnZigZag32(ZigZag32(%d)) = %d", x, got)
		}
	}
}

func TestZigZag64(t *testing.T) {
	values := []int64{0, -1, 1, -2, 2, math.MinInt32, math.MaxInt32, math.MinInt32 - 1, math.MaxInt32 + 1,
		-4294967296, 4294967296, math.MinInt64, math.MaxInt64}
	for _, v := range values {
		got := ZigZag64(long.FromInt64(v))
		if want := protowire.EncodeZigZag(v); got.Uint64() != want {
			t.Errorf("ZigZag64(%d) = %d, want %d", v, got.Uint64(), want)
		}
		if back := UnZigZag64(got).Int64(); back != v {
			t.Errorf("UnZigZag64(ZigZag64(%d)) = %d", v, back)
		}
	}
	if got := ZigZag64(long.MustParse("-9223372036854775808")); got != long.MaxUint64 {
		t.Errorf("ZigZag64(min) = %s", got.Decimal(false))
	}
}
