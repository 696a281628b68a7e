package wire

import (
	"bytes"
	"errors"
	"math"
	"testing"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/pbkit/pbkit-sub000/long"
)

var varintTestCases = []struct {
	name     string
	value    uint64
	expected []byte
}{
	{"zero", 0, []byte{0x00}},
	{"one", 1, []byte{0x01}},
	{"max_1_byte", 127, []byte{0x7f}},
	{"min_2_byte", 128, []byte{0x80, 0x01}},
	{"150", 150, []byte{0x96, 0x01}},
	{"300", 300, []byte{0b10101100, 0b00000010}},
	{"max_2_byte", 16383, []byte{0xff, 0x7f}},
	{"min_3_byte", 16384, []byte{0x80, 0x80, 0x01}},
	{"max_uint32", math.MaxUint32, []byte{0xff, 0xff, 0xff, 0xff, 0x0f}},
	{"min_uint33", math.MaxUint32 + 1, []byte{0x80, 0x80, 0x80, 0x80, 0x10}},
	{"power_of_2_63", 1 << 63, []byte{0x80, 0x80, 0x80, 0x80, 0x80, 0x80, 0x80, 0x80, 0x80, 0x01}},
	{"max_uint64", math.MaxUint64, []byte{0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0x01}},
}

func TestEncodeVarint(t *testing.T) {
	for _, tc := range varintTestCases {
		t.Run(tc.name, func(t *testing.T) {
			got := EncodeUvarint(tc.value)
			if !bytes.Equal(got, tc.expected) {
				t.Errorf("EncodeUvarint(%d) = %x, want %x", tc.value, got, tc.expected)
			}
			if size := VarintSize(long.FromUint64(tc.value)); size != len(tc.expected) {
				t.Errorf("VarintSize(%d) = %d, want %d", tc.value, size, len(tc.expected))
			}
		})
	}
}

func TestDecodeVarint(t *testing.T) {
	for _, tc := range varintTestCases {
		t.Run(tc.name, func(t *testing.T) {
			// Trailing bytes must be left alone.
			buf := append(append([]byte{}, tc.expected...), 0xaa, 0xbb)
			v, n, err := DecodeVarint(buf)
			if err != nil {
				t.Fatalf("DecodeVarint failed: %v", err)
			}
			if n != len(tc.expected) {
				t.Errorf("consumed %d bytes, want %d", n, len(tc.expected))
			}
			if v.Uint64() != tc.value {
				t.Errorf("value = %d, want %d", v.Uint64(), tc.value)
			}
		})
	}
}

func TestDecodeVarintErrors(t *testing.T) {
	tests := []struct {
		name string
		in   []byte
		want error
	}{
		{"empty", nil, ErrTruncated},
		{"continuation_at_end", []byte{0x96}, ErrTruncated},
		{"all_continuation", []byte{0xff, 0xff, 0xff}, ErrTruncated},
		{"tenth_byte_too_big", []byte{0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0x02}, ErrVarintOverflow},
		{"eleven_bytes", []byte{0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0x81, 0x00}, ErrVarintOverflow},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := DecodeVarint(tt.in)
			if !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want %v", err, tt.want)
			}
		})
	}
}

// The encoding must match the reference Go implementation byte for byte.
func TestVarintMatchesProtowire(t *testing.T) {
	values := []uint64{0, 1, 2, 127, 128, 255, 256, 300, 1 << 20, 1<<31 - 1, 1 << 31, 1<<32 - 1, 1 << 32,
		1<<53 + 1, 1<<62 + 12345, 1<<63 - 1, 1 << 63, math.MaxUint64 - 1, math.MaxUint64}
	for _, v := range values {
		want := protowire.AppendVarint(nil, v)
		got := EncodeUvarint(v)
		if !bytes.Equal(got, want) {
			t.Errorf("EncodeUvarint(%d) = %x, protowire = %x", v, got, want)
		}
		back, n := protowire.ConsumeVarint(got)
		if n != len(got) || back != v {
			t.Errorf("protowire.ConsumeVarint(%x) = (%d, %d), want (%d, %d)", got, back, n, v, len(got))
		}
	}
}

func TestVarintRoundTripSweep(t *testing.T) {
	// Walk every bit width, plus neighbours, to cover each byte-length boundary.
	for bit := uint(0); bit < 64; bit++ {
		base := uint64(1) << bit
		for _, v := range []uint64{base - 1, base, base + 1} {
			l := long.FromUint64(v)
			enc := EncodeVarint(l)
			got, n, err := DecodeVarint(enc)
			if err != nil {
				t.Fatalf("DecodeVarint(%x) failed: %v", enc, err)
			}
			if n != len(enc) || got != l {
				t.Fatalf("round trip of %d: got (%d, %s)", v, n, got.Decimal(false))
			}
		}
	}
}
