package codec

import (
	"fmt"
	"reflect"
	"sort"
	"strconv"

	"github.com/pbkit/pbkit-sub000/scalar"
	"github.com/pbkit/pbkit-sub000/schema"
)

// Oneof is the host value of a oneof group: the member that is set and its
// value. It is stored under the group name.
type Oneof struct {
	Field string
	Value any
}

func asOneof(v any) (Oneof, bool) {
	switch o := v.(type) {
	case Oneof:
		return o, true
	case *Oneof:
		if o == nil {
			return Oneof{}, false
		}
		return *o, true
	}
	return Oneof{}, false
}

// toSlice accepts []any and any other slice type for repeated fields.
func toSlice(v any) ([]any, error) {
	if s, ok := v.([]any); ok {
		return s, nil
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, fmt.Errorf("%w: repeated field value must be a slice, got %T", scalar.ErrHostType, v)
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, nil
}

type mapEntry struct {
	key   any
	value any
}

// mapEntries normalizes the keys of any Go map to the canonical host type of
// kind and returns the entries sorted by key.
func mapEntries(kind schema.PrimitiveType, v any) ([]mapEntry, error) {
	if err := checkMapKey(kind); err != nil {
		return nil, err
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Map {
		return nil, fmt.Errorf("%w: map field value must be a map, got %T", scalar.ErrHostType, v)
	}
	entries := make([]mapEntry, 0, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		key, err := scalar.Normalize(kind, iter.Key().Interface())
		if err != nil {
			return nil, fmt.Errorf("map key %v: %w", iter.Key().Interface(), err)
		}
		entries = append(entries, mapEntry{key: key, value: iter.Value().Interface()})
	}
	sort.Slice(entries, func(i, j int) bool {
		return lessKey(kind, entries[i].key, entries[j].key)
	})
	return entries, nil
}

func mapLen(v any) int {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Map {
		return -1
	}
	return rv.Len()
}

func checkMapKey(kind schema.PrimitiveType) error {
	switch kind {
	case schema.TypeDouble, schema.TypeFloat, schema.TypeBytes:
		return fmt.Errorf("%s cannot be a map key", kind)
	}
	if !schema.IsPrimitive(string(kind)) {
		return fmt.Errorf("%w: %q", scalar.ErrUnknownKind, kind)
	}
	return nil
}

// lessKey orders canonical keys by value. 64-bit keys are decimal strings
// and compare numerically.
func lessKey(kind schema.PrimitiveType, a, b any) bool {
	switch x := a.(type) {
	case bool:
		return !x && b.(bool)
	case int32:
		return x < b.(int32)
	case uint32:
		return x < b.(uint32)
	case string:
		y := b.(string)
		switch kind {
		case schema.TypeInt64, schema.TypeSint64, schema.TypeSfixed64:
			xi, _ := strconv.ParseInt(x, 10, 64)
			yi, _ := strconv.ParseInt(y, 10, 64)
			return xi < yi
		case schema.TypeUint64, schema.TypeFixed64:
			xu, _ := strconv.ParseUint(x, 10, 64)
			yu, _ := strconv.ParseUint(y, 10, 64)
			return xu < yu
		}
		return x < y
	}
	return false
}

// keyString renders a canonical key as a JSON object member name.
func keyString(key any) string {
	switch k := key.(type) {
	case bool:
		return strconv.FormatBool(k)
	case int32:
		return strconv.FormatInt(int64(k), 10)
	case uint32:
		return strconv.FormatUint(uint64(k), 10)
	case string:
		return k
	}
	return fmt.Sprint(key)
}

func sortedByNumber(fields []*schema.Field) []*schema.Field {
	out := make([]*schema.Field, len(fields))
	copy(out, fields)
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out
}
