// Package scalar holds the per-kind conversion tables between host values and
// wire fields (binary) or JSON values.
//
// Host representation per kind:
//
//	double                      float64
//	float                       float32
//	int32, sint32, sfixed32     int32
//	uint32, fixed32             uint32
//	int64, sint64, sfixed64     string, signed decimal
//	uint64, fixed64             string, unsigned decimal
//	bool                        bool
//	string                      string
//	bytes                       []byte
//
// ToWire is lenient about the Go type it is handed (any integer type,
// json.Number, long.Long, integral floats). FromWire always returns the
// canonical type above.
package scalar

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"unicode/utf8"

	"golang.org/x/text/encoding/unicode"

	"github.com/pbkit/pbkit-sub000/long"
	"github.com/pbkit/pbkit-sub000/schema"
	"github.com/pbkit/pbkit-sub000/wire"
)

var (
	// ErrHostType is returned when a host value cannot represent the kind.
	ErrHostType = errors.New("unexpected host value")

	// ErrUnknownKind is returned for a kind outside the 15 scalar types.
	ErrUnknownKind = errors.New("unknown scalar kind")

	ErrNotPackable = errors.New("kind cannot be packed")
)

// table is one row of the codec table.
type table struct {
	wireType wire.WireType
	zero     func() any
	toWire   func(any) (wire.Field, error)
	fromWire func(wire.Field) (any, bool)
}

var tables = map[schema.PrimitiveType]table{
	schema.TypeDouble: {
		wireType: wire.WireFixed64,
		zero:     func() any { return float64(0) },
		toWire: func(v any) (wire.Field, error) {
			f, err := coerceToFloat64(v)
			if err != nil {
				return nil, err
			}
			return wire.Fixed64{Value: long.FromUint64(math.Float64bits(f))}, nil
		},
		fromWire: func(f wire.Field) (any, bool) {
			x, ok := f.(wire.Fixed64)
			if !ok {
				return nil, false
			}
			return math.Float64frombits(x.Value.Uint64()), true
		},
	},
	schema.TypeFloat: {
		wireType: wire.WireFixed32,
		zero:     func() any { return float32(0) },
		toWire: func(v any) (wire.Field, error) {
			f, err := coerceToFloat64(v)
			if err != nil {
				return nil, err
			}
			return wire.Fixed32{Value: math.Float32bits(float32(f))}, nil
		},
		fromWire: func(f wire.Field) (any, bool) {
			x, ok := f.(wire.Fixed32)
			if !ok {
				return nil, false
			}
			return math.Float32frombits(x.Value), true
		},
	},
	schema.TypeInt32: {
		wireType: wire.WireVarint,
		zero:     func() any { return int32(0) },
		toWire: func(v any) (wire.Field, error) {
			n, err := coerceToInt32(v)
			if err != nil {
				return nil, err
			}
			// Negative values sign-extend to ten bytes.
			return wire.Varint{Value: long.FromInt64(int64(n))}, nil
		},
		fromWire: func(f wire.Field) (any, bool) {
			x, ok := f.(wire.Varint)
			if !ok {
				return nil, false
			}
			return int32(x.Value.Lo()), true
		},
	},
	schema.TypeUint32: {
		wireType: wire.WireVarint,
		zero:     func() any { return uint32(0) },
		toWire: func(v any) (wire.Field, error) {
			n, err := coerceToUint32(v)
			if err != nil {
				return nil, err
			}
			return wire.Varint{Value: long.FromUint32(n)}, nil
		},
		fromWire: func(f wire.Field) (any, bool) {
			x, ok := f.(wire.Varint)
			if !ok {
				return nil, false
			}
			return x.Value.Lo(), true
		},
	},
	schema.TypeSint32: {
		wireType: wire.WireVarint,
		zero:     func() any { return int32(0) },
		toWire: func(v any) (wire.Field, error) {
			n, err := coerceToInt32(v)
			if err != nil {
				return nil, err
			}
			return wire.Varint{Value: long.FromUint32(wire.ZigZag32(n))}, nil
		},
		fromWire: func(f wire.Field) (any, bool) {
			x, ok := f.(wire.Varint)
			if !ok {
				return nil, false
			}
			return wire.UnZigZag32(x.Value.Lo()), true
		},
	},
	schema.TypeInt64: {
		wireType: wire.WireVarint,
		zero:     func() any { return "0" },
		toWire: func(v any) (wire.Field, error) {
			l, err := coerceToLong(v, true)
			if err != nil {
				return nil, err
			}
			return wire.Varint{Value: l}, nil
		},
		fromWire: func(f wire.Field) (any, bool) {
			x, ok := f.(wire.Varint)
			if !ok {
				return nil, false
			}
			return x.Value.Decimal(true), true
		},
	},
	schema.TypeUint64: {
		wireType: wire.WireVarint,
		zero:     func() any { return "0" },
		toWire: func(v any) (wire.Field, error) {
			l, err := coerceToLong(v, false)
			if err != nil {
				return nil, err
			}
			return wire.Varint{Value: l}, nil
		},
		fromWire: func(f wire.Field) (any, bool) {
			x, ok := f.(wire.Varint)
			if !ok {
				return nil, false
			}
			return x.Value.Decimal(false), true
		},
	},
	schema.TypeSint64: {
		wireType: wire.WireVarint,
		zero:     func() any { return "0" },
		toWire: func(v any) (wire.Field, error) {
			l, err := coerceToLong(v, true)
			if err != nil {
				return nil, err
			}
			return wire.Varint{Value: wire.ZigZag64(l)}, nil
		},
		fromWire: func(f wire.Field) (any, bool) {
			x, ok := f.(wire.Varint)
			if !ok {
				return nil, false
			}
			return wire.UnZigZag64(x.Value).Decimal(true), true
		},
	},
	schema.TypeBool: {
		wireType: wire.WireVarint,
		zero:     func() any { return false },
		toWire: func(v any) (wire.Field, error) {
			b, ok := v.(bool)
			if !ok {
				return nil, fmt.Errorf("%w: expected bool, got %T", ErrHostType, v)
			}
			if b {
				return wire.Varint{Value: long.One}, nil
			}
			return wire.Varint{Value: long.Zero}, nil
		},
		fromWire: func(f wire.Field) (any, bool) {
			x, ok := f.(wire.Varint)
			if !ok {
				return nil, false
			}
			return !x.Value.IsZero(), true
		},
	},
	schema.TypeFixed32: {
		wireType: wire.WireFixed32,
		zero:     func() any { return uint32(0) },
		toWire: func(v any) (wire.Field, error) {
			n, err := coerceToUint32(v)
			if err != nil {
				return nil, err
			}
			return wire.Fixed32{Value: n}, nil
		},
		fromWire: func(f wire.Field) (any, bool) {
			x, ok := f.(wire.Fixed32)
			if !ok {
				return nil, false
			}
			return x.Value, true
		},
	},
	schema.TypeSfixed32: {
		wireType: wire.WireFixed32,
		zero:     func() any { return int32(0) },
		toWire: func(v any) (wire.Field, error) {
			n, err := coerceToInt32(v)
			if err != nil {
				return nil, err
			}
			return wire.Fixed32{Value: uint32(n)}, nil
		},
		fromWire: func(f wire.Field) (any, bool) {
			x, ok := f.(wire.Fixed32)
			if !ok {
				return nil, false
			}
			return int32(x.Value), true
		},
	},
	schema.TypeFixed64: {
		wireType: wire.WireFixed64,
		zero:     func() any { return "0" },
		toWire: func(v any) (wire.Field, error) {
			l, err := coerceToLong(v, false)
			if err != nil {
				return nil, err
			}
			return wire.Fixed64{Value: l}, nil
		},
		fromWire: func(f wire.Field) (any, bool) {
			x, ok := f.(wire.Fixed64)
			if !ok {
				return nil, false
			}
			return x.Value.Decimal(false), true
		},
	},
	schema.TypeSfixed64: {
		wireType: wire.WireFixed64,
		zero:     func() any { return "0" },
		toWire: func(v any) (wire.Field, error) {
			l, err := coerceToLong(v, true)
			if err != nil {
				return nil, err
			}
			return wire.Fixed64{Value: l}, nil
		},
		fromWire: func(f wire.Field) (any, bool) {
			x, ok := f.(wire.Fixed64)
			if !ok {
				return nil, false
			}
			return x.Value.Decimal(true), true
		},
	},
	schema.TypeString: {
		wireType: wire.WireBytes,
		zero:     func() any { return "" },
		toWire: func(v any) (wire.Field, error) {
			s, ok := v.(string)
			if !ok {
				return nil, fmt.Errorf("%w: expected string, got %T", ErrHostType, v)
			}
			return wire.LengthDelimited{Value: []byte(s)}, nil
		},
		fromWire: func(f wire.Field) (any, bool) {
			x, ok := f.(wire.LengthDelimited)
			if !ok {
				return nil, false
			}
			return decodeUTF8(x.Value), true
		},
	},
	schema.TypeBytes: {
		wireType: wire.WireBytes,
		zero:     func() any { return []byte{} },
		toWire: func(v any) (wire.Field, error) {
			switch b := v.(type) {
			case []byte:
				return wire.LengthDelimited{Value: bytes.Clone(b)}, nil
			case string:
				return wire.LengthDelimited{Value: []byte(b)}, nil
			}
			return nil, fmt.Errorf("%w: expected []byte, got %T", ErrHostType, v)
		},
		fromWire: func(f wire.Field) (any, bool) {
			x, ok := f.(wire.LengthDelimited)
			if !ok {
				return nil, false
			}
			return x.Value, true
		},
	},
}

func lookup(kind schema.PrimitiveType) (table, error) {
	t, ok := tables[kind]
	if !ok {
		return table{}, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	return t, nil
}

// WireType returns the wire type kind uses for a single unpacked value.
func WireType(kind schema.PrimitiveType) (wire.WireType, bool) {
	t, ok := tables[kind]
	return t.wireType, ok
}

// Default returns the zero host value of kind, or nil for an unknown kind.
func Default(kind schema.PrimitiveType) any {
	t, ok := tables[kind]
	if !ok {
		return nil
	}
	return t.zero()
}

// ToWire converts a host value into the wire field for kind. bytes values are
// copied.
func ToWire(kind schema.PrimitiveType, v any) (wire.Field, error) {
	t, err := lookup(kind)
	if err != nil {
		return nil, err
	}
	return t.toWire(v)
}

// FromWire converts a wire field into the canonical host value for kind. A
// false result means f has the wrong wire type for kind; callers treat that
// as the field being absent. bytes values alias f's payload.
func FromWire(kind schema.PrimitiveType, f wire.Field) (any, bool) {
	t, ok := tables[kind]
	if !ok || f == nil {
		return nil, false
	}
	return t.fromWire(f)
}

// Normalize returns v in the canonical host type for kind.
func Normalize(kind schema.PrimitiveType, v any) (any, error) {
	f, err := ToWire(kind, v)
	if err != nil {
		return nil, err
	}
	out, _ := FromWire(kind, f)
	return out, nil
}

// decodeUTF8 replaces invalid sequences with U+FFFD. Decoders carry
// transform state, so each call gets its own.
func decodeUTF8(b []byte) string {
	if utf8.Valid(b) {
		return string(b)
	}
	out, err := unicode.UTF8.NewDecoder().Bytes(b)
	if err != nil {
		return string(bytes.ToValidUTF8(b, []byte("�")))
	}
	return string(out)
}
