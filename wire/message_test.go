package wire

import (
	"bytes"
	"errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"google.golang.org/protobuf/encoding/protowire"

	"github.com/pbkit/pbkit-sub000/long"
)

func TestSerializeFraming(t *testing.T) {
	tests := []struct {
		name string
		msg  Message
		want []byte
	}{
		{
			name: "varint_150",
			msg:  Message{{1, Varint{long.FromUint32(150)}}},
			want: []byte{0x08, 0x96, 0x01},
		},
		{
			name: "one_zero_byte",
			msg:  Message{{3, LengthDelimited{[]byte{0x00}}}},
			want: []byte{0x1a, 0x01, 0x00},
		},
		{
			name: "bytes_varint_string",
			msg: Message{
				{1, LengthDelimited{[]byte{0x00}}},
				{2, Varint{long.FromUint32(150)}},
				{3, LengthDelimited{[]byte("testing")}},
			},
			want: []byte{0x0a, 0x01, 0x00, 0x10, 0x96, 0x01, 0x1a, 0x07, 0x74, 0x65, 0x73, 0x74, 0x69, 0x6e, 0x67},
		},
		{
			name: "fixed_little_endian",
			msg: Message{
				{1, Fixed32{0x01020304}},
				{2, Fixed64{long.New(0x05060708, 0x01020304)}},
			},
			want: []byte{0x0d, 0x04, 0x03, 0x02, 0x01, 0x11, 0x08, 0x07, 0x06, 0x05, 0x04, 0x03, 0x02, 0x01},
		},
		{
			name: "groups_tag_only",
			msg:  Message{{4, StartGroup{}}, {4, EndGroup{}}},
			want: []byte{0x23, 0x24},
		},
		{
			name: "large_field_number",
			msg:  Message{{MaxFieldNumber, Varint{long.One}}},
			want: []byte{0xf8, 0xff, 0xff, 0xff, 0x0f, 0x01},
		},
		{
			name: "empty",
			msg:  nil,
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Serialize(tt.msg)
			if err != nil {
				t.Fatalf("Serialize failed: %v", err)
			}
			if !bytes.Equal(got, tt.want) {
				t.Errorf("Serialize = % x, want % x", got, tt.want)
			}

			back, err := Deserialize(got)
			if err != nil {
				t.Fatalf("Deserialize failed: %v", err)
			}
			if diff := cmp.Diff(tt.msg, back, cmpopts.EquateEmpty()); diff != "" {
				t.Errorf("round trip mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestSerializeRejectsBadFieldNumbers(t *testing.T) {
	for _, n := range []FieldNumber{0, -1, MaxFieldNumber + 1} {
		_, err := Serialize(Message{{n, Varint{}}})
		if !errors.Is(err, ErrInvalidFieldNumber) {
			t.Errorf("field %d: error = %v, want ErrInvalidFieldNumber", n, err)
		}
	}
	if _, err := Serialize(Message{{1, nil}}); err == nil {
		t.Error("nil field should fail")
	}
}

func TestDeserializeErrors(t *testing.T) {
	tests := []struct {
		name string
		in   []byte
		want error
	}{
		{"truncated_tag", []byte{0x80}, ErrTruncated},
		{"truncated_varint", []byte{0x08, 0x96}, ErrTruncated},
		{"missing_varint", []byte{0x08}, ErrTruncated},
		{"length_past_end", []byte{0x0a, 0x05, 0x01, 0x02}, ErrTruncated},
		{"huge_length", []byte{0x0a, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0x01}, ErrTruncated},
		{"short_fixed32", []byte{0x0d, 0x01, 0x02, 0x03}, ErrTruncated},
		{"short_fixed64", []byte{0x09, 0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07}, ErrTruncated},
		{"wire_type_6", []byte{0x0e, 0x00}, ErrInvalidWireType},
		{"wire_type_7", []byte{0x0f, 0x00}, ErrInvalidWireType},
		{"field_zero", []byte{0x00, 0x00}, ErrInvalidFieldNumber},
		{"field_too_large", []byte{0x80, 0x80, 0x80, 0x80, 0x20, 0x00}, ErrInvalidFieldNumber},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Deserialize(tt.in)
			if !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestDeserializeAliasesSource(t *testing.T) {
	buf := []byte{0x0a, 0x03, 'a', 'b', 'c', 0x10, 0x01}
	m, err := Deserialize(buf)
	if err != nil {
		t.Fatal(err)
	}
	ld := m[0].Field.(LengthDelimited)
	buf[2] = 'z'
	if string(ld.Value) != "zbc" {
		t.Errorf("payload should alias the source buffer, got %q", ld.Value)
	}
	if cap(ld.Value) != 3 {
		t.Errorf("payload capacity = %d, appending would clobber the next field", cap(ld.Value))
	}
}

func TestRoundTripAllWireTypes(t *testing.T) {
	msg := Message{
		{1, Varint{long.MaxUint64}},
		{2, Fixed64{long.FromInt64(math.MinInt64)}},
		{3, LengthDelimited{[]byte{}}},
		{4, LengthDelimited{bytes.Repeat([]byte{0x5a}, 300)}},
		{5, Fixed32{math.MaxUint32}},
		{6, StartGroup{}},
		{7, Varint{long.Zero}},
		{6, EndGroup{}},
		{1, Varint{long.One}},
		{536870911, Fixed32{0}},
	}
	enc, err := Serialize(msg)
	if err != nil {
		t.Fatal(err)
	}
	dec, err := Deserialize(enc)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(msg, dec, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

// Bytes produced by the reference implementation must deserialize to the
// entries that produced them.
func TestDeserializeProtowireOutput(t *testing.T) {
	var b []byte
	b = protowire.AppendTag(b, 1, protowire.VarintType)
	b = protowire.AppendVarint(b, 1<<40)
	b = protowire.AppendTag(b, 2, protowire.Fixed32Type)
	b = protowire.AppendFixed32(b, 0xdeadbeef)
	b = protowire.AppendTag(b, 15, protowire.BytesType)
	b = protowire.AppendString(b, "hello")
	b = protowire.AppendTag(b, 16, protowire.Fixed64Type)
	b = protowire.AppendFixed64(b, math.Float64bits(2.5))

	got, err := Deserialize(b)
	if err != nil {
		t.Fatal(err)
	}
	want := Message{
		{1, Varint{long.FromUint64(1 << 40)}},
		{2, Fixed32{0xdeadbeef}},
		{15, LengthDelimited{[]byte("hello")}},
		{16, Fixed64{long.FromUint64(math.Float64bits(2.5))}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}

	again, err := Serialize(got)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(again, b) {
		t.Errorf("re-serialized bytes differ:\n got % x\nwant % x", again, b)
	}
}

func TestMessageLookups(t *testing.T) {
	m := Message{
		{1, Varint{long.FromUint32(1)}},
		{2, Varint{long.FromUint32(10)}},
		{1, Varint{long.FromUint32(2)}},
		{3, Varint{long.FromUint32(30)}},
		{2, Varint{long.FromUint32(20)}},
	}

	idx := m.Index()
	if v := idx[1].(Varint).Value.Uint64(); v != 2 {
		t.Errorf("Index()[1] = %d, want last occurrence 2", v)
	}
	if f, ok := m.Last(2); !ok || f.(Varint).Value.Uint64() != 20 {
		t.Errorf("Last(2) = %v, %v", f, ok)
	}
	if _, ok := m.Last(9); ok {
		t.Error("Last(9) should not be found")
	}

	all := m.All(1)
	if len(all) != 2 || all[0].(Varint).Value.Uint64() != 1 || all[1].(Varint).Value.Uint64() != 2 {
		t.Errorf("All(1) = %v", all)
	}

	e, ok := m.LastOf(1, 3)
	if !ok || e.Number != 3 {
		t.Errorf("LastOf(1, 3) = %v, %v; want field 3", e, ok)
	}
	if _, ok := m.LastOf(7, 8); ok {
		t.Error("LastOf(7, 8) should not be found")
	}
}

func TestWireTypeString(t *testing.T) {
	if WireBytes.String() != "length-delimited" {
		t.Errorf("WireBytes.String() = %q", WireBytes.String())
	}
	if WireType(6).Valid() || WireType(6).String() != "wiretype(6)" {
		t.Errorf("WireType(6) = %q", WireType(6).String())
	}
	n, wt := ParseTag(MakeTag(12345, WireFixed32))
	if n != 12345 || wt != WireFixed32 {
		t.Errorf("ParseTag(MakeTag(12345, fixed32)) = %d, %v", n, wt)
	}
}
