package codec

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"sort"

	"github.com/pbkit/pbkit-sub000/scalar"
	"github.com/pbkit/pbkit-sub000/schema"
	"github.com/pbkit/pbkit-sub000/wire"
)

// jsonObject keeps members in insertion order when marshaled.
type jsonObject []jsonMember

type jsonMember struct {
	name  string
	value any
}

func (o jsonObject) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, m := range o {
		if i > 0 {
			buf.WriteByte(',')
		}
		name, err := json.Marshal(m.name)
		if err != nil {
			return nil, err
		}
		value, err := json.Marshal(m.value)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", m.name, err)
		}
		buf.Write(name)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// EncodeJSON renders value under the protobuf JSON mapping, fields in number
// order. Fields at their default value are omitted unless JSONEmitDefaults is
// set; a set oneof member is always written.
func (c *Codec) EncodeJSON(value map[string]any, msg *schema.Message) ([]byte, error) {
	obj, err := c.messageToJSON(value, msg)
	if err != nil {
		return nil, err
	}
	return json.Marshal(obj)
}

func (c *Codec) messageToJSON(value map[string]any, msg *schema.Message) (jsonObject, error) {
	if err := checkOneofs(value, msg); err != nil {
		return nil, err
	}
	obj := jsonObject{}
	for _, f := range sortedByNumber(msg.AllFields()) {
		v, ok := memberValue(value, msg, f)
		if !ok || v == nil {
			continue
		}
		if msg.OneofOf(f) == nil && !c.cfg.JSONEmitDefaults && c.isDefault(f, v) {
			continue
		}
		j, err := c.fieldToJSON(msg, f, v)
		if err != nil {
			return nil, wire.WrapEncoding(err, f.Name)
		}
		obj = append(obj, jsonMember{name: c.jsonName(f), value: j})
	}
	return obj, nil
}

func (c *Codec) jsonName(f *schema.Field) string {
	if c.cfg.JSONOriginalNames {
		return f.Name
	}
	return f.JSONName()
}

func (c *Codec) isDefault(f *schema.Field, v any) bool {
	switch {
	case f.IsMap():
		return mapLen(v) == 0
	case f.IsRepeated():
		items, err := toSlice(v)
		return err == nil && len(items) == 0
	}
	switch f.Type.Kind {
	case schema.KindPrimitive:
		h, err := scalar.Normalize(f.Type.PrimitiveType, v)
		if err != nil {
			return false
		}
		switch x := h.(type) {
		case []byte:
			return len(x) == 0
		case float64:
			return x == 0 && !math.Signbit(x)
		case float32:
			return x == 0 && !math.Signbit(float64(x))
		}
		return h == scalar.Default(f.Type.PrimitiveType)
	case schema.KindEnum:
		e, err := c.reg.GetEnum(f.Type.EnumType)
		if err != nil {
			return false
		}
		n, err := scalar.EnumNumber(e, v)
		return err == nil && n == 0
	}
	return false
}

func (c *Codec) fieldToJSON(parent *schema.Message, f *schema.Field, v any) (any, error) {
	switch {
	case f.IsMap():
		entries, err := mapEntries(f.Type.MapKey.PrimitiveType, v)
		if err != nil {
			return nil, err
		}
		obj := make(jsonObject, 0, len(entries))
		for _, e := range entries {
			value := e.value
			if value == nil {
				value = c.singularDefault(*f.Type.MapValue, "")
			}
			j, err := c.valueToJSON(*f.Type.MapValue, value)
			if err != nil {
				return nil, fmt.Errorf("map key %v: %w", e.key, err)
			}
			obj = append(obj, jsonMember{name: keyString(e.key), value: j})
		}
		return obj, nil
	case f.IsRepeated():
		items, err := toSlice(v)
		if err != nil {
			return nil, err
		}
		arr := make([]any, len(items))
		for i, item := range items {
			if item == nil {
				return nil, fmt.Errorf("element %d: %w: nil", i, scalar.ErrHostType)
			}
			if arr[i], err = c.valueToJSON(f.Type, item); err != nil {
				return nil, fmt.Errorf("element %d: %w", i, err)
			}
		}
		return arr, nil
	}
	return c.valueToJSON(f.Type, v)
}

func (c *Codec) valueToJSON(ft schema.FieldType, v any) (any, error) {
	switch ft.Kind {
	case schema.KindPrimitive:
		return scalar.ToJSON(ft.PrimitiveType, v)
	case schema.KindEnum:
		e, err := c.reg.GetEnum(ft.EnumType)
		if err != nil {
			return nil, err
		}
		return scalar.EnumToJSON(e, v, c.cfg.JSONEnumNumbers)
	case schema.KindMessage:
		sub, err := c.reg.GetMessage(ft.MessageType)
		if err != nil {
			return nil, err
		}
		if v == nil {
			return jsonObject{}, nil
		}
		nested, ok := v.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: expected map[string]any for %s, got %T", scalar.ErrHostType, sub.FullName, v)
		}
		return c.messageToJSON(nested, sub)
	}
	return nil, fmt.Errorf("unsupported field kind %q", ft.Kind)
}

// DecodeJSON parses a JSON object into a message value, starting from
// DefaultValue. Members may use the declared or the JSON field name; null
// leaves a field at its default. Unknown members are dropped.
func (c *Codec) DecodeJSON(b []byte, msg *schema.Message) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode json: %w", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("decode json: trailing data after object")
	}
	return c.messageFromJSON(raw, msg)
}

func (c *Codec) messageFromJSON(raw map[string]any, msg *schema.Message) (map[string]any, error) {
	out := c.DefaultValue(msg)

	names := make([]string, 0, len(raw))
	for name := range raw {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		j := raw[name]
		f := msg.FieldByName(name)
		if f == nil {
			c.log.Debug().Str("type", parentName(msg)).Str("member", name).Msg("dropping unknown JSON member")
			continue
		}
		if j == nil {
			continue
		}
		v, err := c.fieldFromJSON(f, j)
		if err != nil {
			return nil, wire.WrapDecoding(err, f.Name)
		}
		if g := msg.OneofOf(f); g != nil {
			if cur, set := out[g.Name].(Oneof); set && cur.Field != f.Name {
				return nil, wire.WrapDecoding(fmt.Errorf("both %s and %s are set", cur.Field, f.Name), g.Name)
			}
			out[g.Name] = Oneof{Field: f.Name, Value: v}
			continue
		}
		out[f.Name] = v
	}
	return out, nil
}

func (c *Codec) fieldFromJSON(f *schema.Field, j any) (any, error) {
	switch {
	case f.IsMap():
		obj, ok := j.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: map field expects a JSON object, got %T", scalar.ErrHostType, j)
		}
		keyKind := f.Type.MapKey.PrimitiveType
		if err := checkMapKey(keyKind); err != nil {
			return nil, err
		}
		out := make(map[any]any, len(obj))
		for k, jv := range obj {
			key, err := mapKeyFromJSON(keyKind, k)
			if err != nil {
				return nil, fmt.Errorf("map key %q: %w", k, err)
			}
			if jv == nil {
				return nil, fmt.Errorf("map key %q: %w: null value", k, scalar.ErrHostType)
			}
			value, err := c.valueFromJSON(*f.Type.MapValue, jv)
			if err != nil {
				return nil, fmt.Errorf("map key %q: %w", k, err)
			}
			out[key] = value
		}
		return out, nil
	case f.IsRepeated():
		arr, ok := j.([]any)
		if !ok {
			return nil, fmt.Errorf("%w: repeated field expects a JSON array, got %T", scalar.ErrHostType, j)
		}
		out := make([]any, len(arr))
		for i, jv := range arr {
			if jv == nil {
				return nil, fmt.Errorf("element %d: %w: null", i, scalar.ErrHostType)
			}
			v, err := c.valueFromJSON(f.Type, jv)
			if err != nil {
				return nil, fmt.Errorf("element %d: %w", i, err)
			}
			out[i] = v
		}
		return out, nil
	}
	return c.valueFromJSON(f.Type, j)
}

func (c *Codec) valueFromJSON(ft schema.FieldType, j any) (any, error) {
	switch ft.Kind {
	case schema.KindPrimitive:
		return scalar.FromJSON(ft.PrimitiveType, j)
	case schema.KindEnum:
		e, err := c.reg.GetEnum(ft.EnumType)
		if err != nil {
			return nil, err
		}
		return scalar.EnumFromJSON(e, j)
	case schema.KindMessage:
		sub, err := c.reg.GetMessage(ft.MessageType)
		if err != nil {
			return nil, err
		}
		obj, ok := j.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: message expects a JSON object, got %T", scalar.ErrHostType, j)
		}
		return c.messageFromJSON(obj, sub)
	}
	return nil, fmt.Errorf("unsupported field kind %q", ft.Kind)
}

func mapKeyFromJSON(kind schema.PrimitiveType, k string) (any, error) {
	if kind == schema.TypeBool {
		switch k {
		case "true":
			return true, nil
		case "false":
			return false, nil
		}
		return nil, fmt.Errorf("%w: bool key must be true or false", scalar.ErrHostType)
	}
	return scalar.FromJSON(kind, k)
}
