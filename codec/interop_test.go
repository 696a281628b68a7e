package codec

import (
	"bytes"
	"context"
	"math"
	"strings"
	"testing"

	"github.com/bufbuild/protocompile"
	"github.com/google/go-cmp/cmp"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/encoding/protowire"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/dynamicpb"

	"github.com/pbkit/pbkit-sub000/registry"
	"github.com/pbkit/pbkit-sub000/schema"
)

const interopProto = `syntax = "proto3";
package interop;

enum Color {
  RED = 0;
  GREEN = 1;
  BLUE = 2;
}

message Inner {
  int64 id = 1;
  string label = 2;
}

message Sample {
  int32 count = 1;
  sint64 delta = 2;
  string name = 3;
  bytes data = 4;
  Color color = 5;
  repeated int32 nums = 6;
  Inner inner = 7;
  repeated Inner children = 8;
  map<string, int32> tags = 9;
  oneof choice {
    string text = 10;
    Inner detail = 11;
  }
  double ratio = 12;
  fixed64 big = 13;
  repeated Color colors = 14;
}
`

type interopFixture struct {
	codec  *Codec
	msg    *schema.Message
	sample protoreflect.MessageDescriptor
	inner  protoreflect.MessageDescriptor
}

func newInteropFixture(t testing.TB) interopFixture {
	t.Helper()

	compiler := protocompile.Compiler{
		Resolver: &protocompile.SourceResolver{
			Accessor: protocompile.SourceAccessorFromMap(map[string]string{"interop.proto": interopProto}),
		},
	}
	files, err := compiler.Compile(context.Background(), "interop.proto")
	if err != nil {
		t.Fatalf("compile: %v", err)
	}

	reg := registry.NewRegistry()
	if _, err := reg.Parse("interop.proto", strings.NewReader(interopProto)); err != nil {
		t.Fatalf("Parse: %v", err)
	}
	msg, err := reg.GetMessage("interop.Sample")
	if err != nil {
		t.Fatalf("GetMessage: %v", err)
	}

	return interopFixture{
		codec:  New(reg),
		msg:    msg,
		sample: files[0].Messages().ByName("Sample"),
		inner:  files[0].Messages().ByName("Inner"),
	}
}

func set(m *dynamicpb.Message, name string, v protoreflect.Value) {
	m.Set(m.Descriptor().Fields().ByName(protoreflect.Name(name)), v)
}

func (fx interopFixture) dynamicSample() *dynamicpb.Message {
	m := dynamicpb.NewMessage(fx.sample)
	fields := fx.sample.Fields()

	set(m, "count", protoreflect.ValueOfInt32(150))
	set(m, "delta", protoreflect.ValueOfInt64(-3))
	set(m, "name", protoreflect.ValueOfString("héllo"))
	set(m, "data", protoreflect.ValueOfBytes([]byte{1, 2, 3}))
	set(m, "color", protoreflect.ValueOfEnum(2))

	nums := m.Mutable(fields.ByName("nums")).List()
	for _, n := range []int32{1, -2, 300} {
		nums.Append(protoreflect.ValueOfInt32(n))
	}

	inner := dynamicpb.NewMessage(fx.inner)
	set(inner, "id", protoreflect.ValueOfInt64(9))
	set(inner, "label", protoreflect.ValueOfString("in"))
	set(m, "inner", protoreflect.ValueOfMessage(inner))

	child := dynamicpb.NewMessage(fx.inner)
	set(child, "id", protoreflect.ValueOfInt64(1))
	m.Mutable(fields.ByName("children")).List().Append(protoreflect.ValueOfMessage(child))

	tags := m.Mutable(fields.ByName("tags")).Map()
	tags.Set(protoreflect.ValueOfString("a").MapKey(), protoreflect.ValueOfInt32(1))
	tags.Set(protoreflect.ValueOfString("b").MapKey(), protoreflect.ValueOfInt32(2))

	set(m, "text", protoreflect.ValueOfString("hi"))
	set(m, "ratio", protoreflect.ValueOfFloat64(0.25))
	set(m, "big", protoreflect.ValueOfUint64(math.MaxUint64))

	colors := m.Mutable(fields.ByName("colors")).List()
	colors.Append(protoreflect.ValueOfEnum(1))
	colors.Append(protoreflect.ValueOfEnum(2))
	return m
}

func hostSample() map[string]any {
	return map[string]any{
		"count":    int32(150),
		"delta":    "-3",
		"name":     "héllo",
		"data":     []byte{1, 2, 3},
		"color":    "BLUE",
		"nums":     []any{int32(1), int32(-2), int32(300)},
		"inner":    map[string]any{"id": "9", "label": "in"},
		"children": []any{map[string]any{"id": "1", "label": ""}},
		"tags":     map[any]any{"a": int32(1), "b": int32(2)},
		"choice":   Oneof{Field: "text", Value: "hi"},
		"ratio":    0.25,
		"big":      "18446744073709551615",
		"colors":   []any{"GREEN", "BLUE"},
	}
}

func TestInterop_DecodeProtobufGo(t *testing.T) {
	fx := newInteropFixture(t)

	b, err := proto.MarshalOptions{Deterministic: true}.Marshal(fx.dynamicSample())
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	got, err := fx.codec.DecodeBinary(b, fx.msg)
	if err != nil {
		t.Fatalf("DecodeBinary: %v", err)
	}
	if diff := cmp.Diff(hostSample(), got); diff != "" {
		t.Errorf("DecodeBinary mismatch (-want +got):\n%s", diff)
	}
}

func TestInterop_EncodeForProtobufGo(t *testing.T) {
	fx := newInteropFixture(t)

	b, err := fx.codec.EncodeBinary(hostSample(), fx.msg)
	if err != nil {
		t.Fatalf("EncodeBinary: %v", err)
	}
	got := dynamicpb.NewMessage(fx.sample)
	if err := proto.Unmarshal(b, got); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if want := fx.dynamicSample(); !proto.Equal(want, got) {
		t.Errorf("protobuf-go decoded\n%v\nwant\n%v", got, want)
	}
}

func TestInterop_ProtoThreeRepeatedIsPacked(t *testing.T) {
	fx := newInteropFixture(t)

	b, err := fx.codec.EncodeBinary(map[string]any{"nums": []any{1, 2}}, fx.msg)
	if err != nil {
		t.Fatalf("EncodeBinary: %v", err)
	}
	num, typ, n := protowire.ConsumeTag(b)
	if n < 0 || num != 6 || typ != protowire.BytesType {
		t.Fatalf("tag = (%d, %d), want packed field 6", num, typ)
	}
	payload, m := protowire.ConsumeBytes(b[n:])
	if m < 0 || len(payload) != 2 || n+m != len(b) {
		t.Errorf("packed payload = % x, want 01 02", payload)
	}
}

func TestInterop_RepeatedEnumMatchesProtobufGo(t *testing.T) {
	fx := newInteropFixture(t)

	got, err := fx.codec.EncodeBinary(map[string]any{"colors": []any{"GREEN", "BLUE"}}, fx.msg)
	if err != nil {
		t.Fatalf("EncodeBinary: %v", err)
	}

	m := dynamicpb.NewMessage(fx.sample)
	colors := m.Mutable(fx.sample.Fields().ByName("colors")).List()
	colors.Append(protoreflect.ValueOfEnum(1))
	colors.Append(protoreflect.ValueOfEnum(2))
	want, err := proto.Marshal(m)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	if !bytes.Equal(got, want) {
		t.Errorf("EncodeBinary = % x, protobuf-go = % x", got, want)
	}
	if packed := []byte{0x72, 0x02, 0x01, 0x02}; !bytes.Equal(got, packed) {
		t.Errorf("EncodeBinary = % x, want packed % x", got, packed)
	}
}

func TestInterop_JSON(t *testing.T) {
	fx := newInteropFixture(t)

	ours, err := fx.codec.EncodeJSON(hostSample(), fx.msg)
	if err != nil {
		t.Fatalf("EncodeJSON: %v", err)
	}
	got := dynamicpb.NewMessage(fx.sample)
	if err := protojson.Unmarshal(ours, got); err != nil {
		t.Fatalf("protojson.Unmarshal(%s): %v", ours, err)
	}
	if want := fx.dynamicSample(); !proto.Equal(want, got) {
		t.Errorf("protojson decoded\n%v\nwant\n%v", got, want)
	}

	theirs, err := protojson.Marshal(fx.dynamicSample())
	if err != nil {
		t.Fatalf("protojson.Marshal: %v", err)
	}
	decoded, err := fx.codec.DecodeJSON(theirs, fx.msg)
	if err != nil {
		t.Fatalf("DecodeJSON(%s): %v", theirs, err)
	}
	if diff := cmp.Diff(hostSample(), decoded); diff != "" {
		t.Errorf("DecodeJSON mismatch (-want +got):\n%s", diff)
	}
}
