package scalar

import (
	"fmt"

	"github.com/pbkit/pbkit-sub000/schema"
	"github.com/pbkit/pbkit-sub000/wire"
)

// EnumTable maps enum numbers to names and back. *schema.Enum implements it.
type EnumTable interface {
	NameOf(n int32) (string, bool)
	NumberOf(name string) (int32, bool)
}

// EnumNumber resolves a host enum value, either a value name or a number, to
// its number. Numbers need not be declared; open enums carry unknown values.
func EnumNumber(t EnumTable, v any) (int32, error) {
	if name, ok := v.(string); ok {
		n, found := t.NumberOf(name)
		if !found {
			return 0, fmt.Errorf("%w: unknown enum value %q", ErrHostType, name)
		}
		return n, nil
	}
	return coerceToInt32(v)
}

// EnumToWire encodes an enum value as an int32 varint.
func EnumToWire(t EnumTable, v any) (wire.Field, error) {
	n, err := EnumNumber(t, v)
	if err != nil {
		return nil, err
	}
	return ToWire(schema.TypeInt32, n)
}

// EnumFromWire decodes a varint to the value name. A number with no declared
// name, like a wire type mismatch, reports false.
func EnumFromWire(t EnumTable, f wire.Field) (any, bool) {
	v, ok := FromWire(schema.TypeInt32, f)
	if !ok {
		return nil, false
	}
	return EnumName(t, v.(int32))
}

// EnumName is NameOf returning an any for symmetry with FromWire.
func EnumName(t EnumTable, n int32) (any, bool) {
	name, ok := t.NameOf(n)
	if !ok {
		return nil, false
	}
	return name, true
}

// EnumToJSON renders the value name, or the bare number when numbers is set
// or the number has no name.
func EnumToJSON(t EnumTable, v any, numbers bool) (any, error) {
	n, err := EnumNumber(t, v)
	if err != nil {
		return nil, err
	}
	if !numbers {
		if name, ok := t.NameOf(n); ok {
			return name, nil
		}
	}
	return n, nil
}

// EnumFromJSON accepts a value name or a number and returns the host value
// name.
func EnumFromJSON(t EnumTable, j any) (any, error) {
	if j == nil {
		return nil, fmt.Errorf("%w: null enum", ErrHostType)
	}
	n, err := EnumNumber(t, j)
	if err != nil {
		return nil, err
	}
	name, ok := t.NameOf(n)
	if !ok {
		return nil, fmt.Errorf("%w: enum number %d has no name", ErrHostType, n)
	}
	return name, nil
}
