package scalar

import (
	"fmt"

	"github.com/pbkit/pbkit-sub000/schema"
	"github.com/pbkit/pbkit-sub000/wire"
)

// Packable reports whether a repeated field of kind may use the packed
// encoding. Every numeric kind and bool qualify; string and bytes do not.
func Packable(kind schema.PrimitiveType) bool {
	return schema.IsPackedType(kind)
}

// Unpack decodes every occurrence of a repeated field, in wire order. Each
// entry is either one scalar value (unpacked) or, for packable kinds, a
// LengthDelimited run of values (packed); the two may be interleaved.
// Entries with the wrong wire type are skipped. A packed run that ends in the
// middle of a value is an error.
func Unpack(kind schema.PrimitiveType, fields []wire.Field) ([]any, error) {
	t, err := lookup(kind)
	if err != nil {
		return nil, err
	}

	out := make([]any, 0, len(fields))
	for i, f := range fields {
		if ld, ok := f.(wire.LengthDelimited); ok && Packable(kind) {
			b := ld.Value
			for len(b) > 0 {
				elem, n, err := wire.ConsumePayload(b, t.wireType)
				if err != nil {
					return nil, fmt.Errorf("packed %s entry %d: %w", kind, i, err)
				}
				v, _ := t.fromWire(elem)
				out = append(out, v)
				b = b[n:]
			}
			continue
		}
		if v, ok := t.fromWire(f); ok {
			out = append(out, v)
		}
	}
	return out, nil
}

// Pack encodes values as one packed LengthDelimited field.
func Pack(kind schema.PrimitiveType, values []any) (wire.Field, error) {
	t, err := lookup(kind)
	if err != nil {
		return nil, err
	}
	if !Packable(kind) {
		return nil, fmt.Errorf("%w: %s", ErrNotPackable, kind)
	}

	var buf []byte
	for i, v := range values {
		f, err := t.toWire(v)
		if err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
		buf = wire.AppendPayload(buf, f)
	}
	return wire.LengthDelimited{Value: buf}, nil
}
