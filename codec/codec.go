// Package codec converts message values to and from the protobuf binary wire
// format, driven by a schema.Message field table.
//
// A message value is a map[string]any keyed by declared field name. Scalars
// use the host types documented in package scalar, enums use the value name,
// nested messages are map[string]any, repeated fields are []any, map fields
// are map[any]any, and a oneof group is a Oneof stored under the group name.
package codec

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/pbkit/pbkit-sub000/registry"
	"github.com/pbkit/pbkit-sub000/scalar"
	"github.com/pbkit/pbkit-sub000/schema"
	"github.com/pbkit/pbkit-sub000/wire"
)

// Codec encodes and decodes messages whose type references resolve through a
// registry. It is safe for concurrent use.
type Codec struct {
	reg *registry.Registry
	cfg Config
	log zerolog.Logger
}

type Option func(*Codec)

// WithConfig sets the encoder options.
func WithConfig(cfg Config) Option {
	return func(c *Codec) { c.cfg = cfg }
}

// WithLogger sets the logger for dropped fields. The default discards.
func WithLogger(log zerolog.Logger) Option {
	return func(c *Codec) { c.log = log }
}

// New returns a codec over reg. A nil reg is replaced with an empty registry,
// which serves messages without message, enum or map fields.
func New(reg *registry.Registry, opts ...Option) *Codec {
	if reg == nil {
		reg = registry.NewRegistry()
	}
	c := &Codec{
		reg: reg,
		cfg: DefaultConfig(),
		log: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Codec) Registry() *registry.Registry { return c.reg }

func (c *Codec) Config() Config { return c.cfg }

// DefaultValue returns the value every decode starts from: scalars at their
// zero (or proto2 declared default), enums at their default name, singular
// messages and oneof groups nil, repeated fields empty []any and maps empty
// map[any]any.
func (c *Codec) DefaultValue(msg *schema.Message) map[string]any {
	out := make(map[string]any, len(msg.Fields)+len(msg.OneofGroups))
	for _, f := range msg.Fields {
		out[f.Name] = c.fieldDefault(f)
	}
	for _, g := range msg.OneofGroups {
		out[g.Name] = nil
	}
	return out
}

func (c *Codec) fieldDefault(f *schema.Field) any {
	switch {
	case f.IsMap():
		return map[any]any{}
	case f.IsRepeated():
		return []any{}
	}
	return c.singularDefault(f.Type, f.DefaultValue)
}

func (c *Codec) singularDefault(ft schema.FieldType, declared string) any {
	switch ft.Kind {
	case schema.KindPrimitive:
		if declared != "" {
			if v, err := parseDeclaredDefault(ft.PrimitiveType, declared); err == nil {
				return v
			}
		}
		return scalar.Default(ft.PrimitiveType)
	case schema.KindEnum:
		e, err := c.reg.GetEnum(ft.EnumType)
		if err != nil {
			return nil
		}
		if declared != "" {
			if _, ok := e.NumberOf(declared); ok {
				return declared
			}
		}
		if name := e.DefaultName(); name != "" {
			return name
		}
	}
	return nil
}

// parseDeclaredDefault reads a proto2 [default = ...] literal.
func parseDeclaredDefault(kind schema.PrimitiveType, s string) (any, error) {
	switch kind {
	case schema.TypeBool:
		return strconv.ParseBool(s)
	case schema.TypeBytes:
		return []byte(s), nil
	case schema.TypeString:
		return s, nil
	case schema.TypeDouble, schema.TypeFloat:
		switch strings.ToLower(s) {
		case "inf":
			return scalar.Normalize(kind, math.Inf(1))
		case "-inf":
			return scalar.Normalize(kind, math.Inf(-1))
		case "nan":
			return scalar.Normalize(kind, math.NaN())
		}
	}
	return scalar.Normalize(kind, s)
}

// EncodeBinary encodes value to wire bytes.
func (c *Codec) EncodeBinary(value map[string]any, msg *schema.Message) ([]byte, error) {
	m, err := c.EncodeWire(value, msg)
	if err != nil {
		return nil, err
	}
	return wire.Serialize(m)
}

// EncodeWire builds the wire message for value. Fields are emitted in
// ascending number order; nil and missing fields are skipped; a repeated
// field emits one entry per element unless packed; a map emits one entry per
// key in key order; a oneof emits only its set member.
func (c *Codec) EncodeWire(value map[string]any, msg *schema.Message) (wire.Message, error) {
	if err := checkOneofs(value, msg); err != nil {
		return nil, err
	}
	var out wire.Message
	for _, f := range sortedByNumber(msg.AllFields()) {
		v, ok := memberValue(value, msg, f)
		if !ok || v == nil {
			continue
		}
		entries, err := c.encodeField(msg, f, v)
		if err != nil {
			return nil, wire.WrapEncoding(err, f.Name)
		}
		out = append(out, entries...)
	}
	return out, nil
}

func checkOneofs(value map[string]any, msg *schema.Message) error {
	for _, g := range msg.OneofGroups {
		gv, ok := value[g.Name]
		if !ok || gv == nil {
			continue
		}
		o, ok := asOneof(gv)
		if !ok {
			return wire.WrapEncoding(fmt.Errorf("%w: oneof value must be codec.Oneof, got %T", scalar.ErrHostType, gv), g.Name)
		}
		found := false
		for _, f := range g.Fields {
			if f.Name == o.Field {
				found = true
				break
			}
		}
		if !found {
			return wire.WrapEncoding(fmt.Errorf("oneof has no member %q", o.Field), g.Name)
		}
	}
	return nil
}

// memberValue finds the value of f. A oneof member is read from its group's
// Oneof; when the group is unset it may also be given under its own name.
func memberValue(value map[string]any, msg *schema.Message, f *schema.Field) (any, bool) {
	if g := msg.OneofOf(f); g != nil {
		if gv := value[g.Name]; gv != nil {
			o, _ := asOneof(gv)
			if o.Field != f.Name {
				return nil, false
			}
			return o.Value, true
		}
	}
	v, ok := value[f.Name]
	return v, ok
}

func (c *Codec) encodeField(parent *schema.Message, f *schema.Field, v any) (wire.Message, error) {
	n := wire.FieldNumber(f.Number)
	switch {
	case f.IsMap():
		return c.encodeMap(parent, f, v)
	case f.IsRepeated():
		items, err := toSlice(v)
		if err != nil {
			return nil, err
		}
		if len(items) == 0 {
			return nil, nil
		}
		if c.packed(f) {
			pf, err := c.pack(f, items)
			if err != nil {
				return nil, err
			}
			return wire.Message{{Number: n, Field: pf}}, nil
		}
		out := make(wire.Message, 0, len(items))
		for i, item := range items {
			if item == nil {
				return nil, fmt.Errorf("element %d: %w: nil", i, scalar.ErrHostType)
			}
			wf, err := c.encodeValue(f.Type, item)
			if err != nil {
				return nil, fmt.Errorf("element %d: %w", i, err)
			}
			out = append(out, wire.Entry{Number: n, Field: wf})
		}
		return out, nil
	}
	wf, err := c.encodeValue(f.Type, v)
	if err != nil {
		return nil, err
	}
	return wire.Message{{Number: n, Field: wf}}, nil
}

func (c *Codec) packed(f *schema.Field) bool {
	if !f.Packed && !c.cfg.PackRepeated {
		return false
	}
	switch f.Type.Kind {
	case schema.KindPrimitive:
		return scalar.Packable(f.Type.PrimitiveType)
	case schema.KindEnum:
		return true
	}
	return false
}

func (c *Codec) pack(f *schema.Field, items []any) (wire.Field, error) {
	if f.Type.Kind != schema.KindEnum {
		return scalar.Pack(f.Type.PrimitiveType, items)
	}
	e, err := c.reg.GetEnum(f.Type.EnumType)
	if err != nil {
		return nil, err
	}
	nums := make([]any, len(items))
	for i, item := range items {
		n, err := scalar.EnumNumber(e, item)
		if err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
		nums[i] = n
	}
	return scalar.Pack(schema.TypeInt32, nums)
}

func (c *Codec) encodeValue(ft schema.FieldType, v any) (wire.Field, error) {
	switch ft.Kind {
	case schema.KindPrimitive:
		return scalar.ToWire(ft.PrimitiveType, v)
	case schema.KindEnum:
		e, err := c.reg.GetEnum(ft.EnumType)
		if err != nil {
			return nil, err
		}
		return scalar.EnumToWire(e, v)
	case schema.KindMessage:
		sub, err := c.reg.GetMessage(ft.MessageType)
		if err != nil {
			return nil, err
		}
		nested, ok := v.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: expected map[string]any for %s, got %T", scalar.ErrHostType, sub.FullName, v)
		}
		b, err := c.EncodeBinary(nested, sub)
		if err != nil {
			return nil, err
		}
		return wire.LengthDelimited{Value: b}, nil
	}
	return nil, fmt.Errorf("unsupported field kind %q", ft.Kind)
}

func (c *Codec) encodeMap(parent *schema.Message, f *schema.Field, v any) (wire.Message, error) {
	entryMsg, err := c.reg.GetOrCreateMapEntryMessage(parentName(parent), f)
	if err != nil {
		return nil, err
	}
	entries, err := mapEntries(f.Type.MapKey.PrimitiveType, v)
	if err != nil {
		return nil, err
	}
	n := wire.FieldNumber(f.Number)
	out := make(wire.Message, 0, len(entries))
	for _, e := range entries {
		b, err := c.EncodeBinary(map[string]any{"key": e.key, "value": e.value}, entryMsg)
		if err != nil {
			return nil, err
		}
		out = append(out, wire.Entry{Number: n, Field: wire.LengthDelimited{Value: b}})
	}
	return out, nil
}

func parentName(msg *schema.Message) string {
	if msg.FullName != "" {
		return msg.FullName
	}
	return msg.Name
}

// DecodeBinary decodes wire bytes into a message value. bytes fields alias b.
func (c *Codec) DecodeBinary(b []byte, msg *schema.Message) (map[string]any, error) {
	m, err := wire.Deserialize(b)
	if err != nil {
		return nil, err
	}
	return c.DecodeWire(m, msg)
}

// DecodeWire resolves a wire message against msg, starting from
// DefaultValue. The last occurrence of a singular field wins, repeated and
// map fields collect every occurrence in order, and a oneof takes the member
// seen last. Unknown fields, wire type mismatches and unknown enum numbers
// are dropped.
func (c *Codec) DecodeWire(m wire.Message, msg *schema.Message) (map[string]any, error) {
	out := c.DefaultValue(msg)
	last := m.Index()

	for _, f := range msg.Fields {
		n := wire.FieldNumber(f.Number)
		switch {
		case f.IsMap():
			entries := m.All(n)
			if len(entries) == 0 {
				continue
			}
			v, err := c.decodeMap(msg, f, entries)
			if err != nil {
				return nil, wire.WrapDecoding(err, f.Name)
			}
			out[f.Name] = v
		case f.IsRepeated():
			entries := m.All(n)
			if len(entries) == 0 {
				continue
			}
			v, err := c.decodeRepeated(msg, f, entries)
			if err != nil {
				return nil, wire.WrapDecoding(err, f.Name)
			}
			out[f.Name] = v
		default:
			wf, ok := last[n]
			if !ok {
				continue
			}
			v, present, err := c.decodeValue(f.Type, wf)
			if err != nil {
				return nil, wire.WrapDecoding(err, f.Name)
			}
			if !present {
				c.dropped(msg, f, wf)
				continue
			}
			out[f.Name] = v
		}
	}

	for _, g := range msg.OneofGroups {
		nums := make([]wire.FieldNumber, len(g.Fields))
		for i, f := range g.Fields {
			nums[i] = wire.FieldNumber(f.Number)
		}
		e, ok := m.LastOf(nums...)
		if !ok {
			continue
		}
		f := msg.FieldByNumber(int32(e.Number))
		v, present, err := c.decodeValue(f.Type, e.Field)
		if err != nil {
			return nil, wire.WrapDecoding(err, f.Name)
		}
		if !present {
			c.dropped(msg, f, e.Field)
			continue
		}
		out[g.Name] = Oneof{Field: f.Name, Value: v}
	}

	c.logUnknown(m, msg)
	return out, nil
}

// decodeValue reports present=false for a wire type mismatch or an unknown
// enum number.
func (c *Codec) decodeValue(ft schema.FieldType, wf wire.Field) (any, bool, error) {
	switch ft.Kind {
	case schema.KindPrimitive:
		v, ok := scalar.FromWire(ft.PrimitiveType, wf)
		return v, ok, nil
	case schema.KindEnum:
		e, err := c.reg.GetEnum(ft.EnumType)
		if err != nil {
			return nil, false, err
		}
		v, ok := scalar.EnumFromWire(e, wf)
		return v, ok, nil
	case schema.KindMessage:
		ld, ok := wf.(wire.LengthDelimited)
		if !ok {
			return nil, false, nil
		}
		sub, err := c.reg.GetMessage(ft.MessageType)
		if err != nil {
			return nil, false, err
		}
		v, err := c.DecodeBinary(ld.Value, sub)
		if err != nil {
			return nil, false, err
		}
		return v, true, nil
	}
	return nil, false, fmt.Errorf("unsupported field kind %q", ft.Kind)
}

func (c *Codec) decodeRepeated(parent *schema.Message, f *schema.Field, entries []wire.Field) ([]any, error) {
	switch f.Type.Kind {
	case schema.KindPrimitive:
		vals, err := scalar.Unpack(f.Type.PrimitiveType, entries)
		if err != nil {
			return nil, err
		}
		if vals == nil {
			vals = []any{}
		}
		return vals, nil
	case schema.KindEnum:
		e, err := c.reg.GetEnum(f.Type.EnumType)
		if err != nil {
			return nil, err
		}
		nums, err := scalar.Unpack(schema.TypeInt32, entries)
		if err != nil {
			return nil, err
		}
		out := make([]any, 0, len(nums))
		for _, n := range nums {
			name, ok := scalar.EnumName(e, n.(int32))
			if !ok {
				c.log.Debug().Str("type", parentName(parent)).Str("field", f.Name).
					Int32("number", n.(int32)).Msg("dropping unknown enum number")
				continue
			}
			out = append(out, name)
		}
		return out, nil
	}
	out := make([]any, 0, len(entries))
	for i, wf := range entries {
		v, present, err := c.decodeValue(f.Type, wf)
		if err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
		if !present {
			c.dropped(parent, f, wf)
			continue
		}
		out = append(out, v)
	}
	return out, nil
}

// decodeMap collects map entries. A missing key or value takes its default;
// a missing message value is the value type's DefaultValue.
func (c *Codec) decodeMap(parent *schema.Message, f *schema.Field, entries []wire.Field) (map[any]any, error) {
	if err := checkMapKey(f.Type.MapKey.PrimitiveType); err != nil {
		return nil, err
	}
	entryMsg, err := c.reg.GetOrCreateMapEntryMessage(parentName(parent), f)
	if err != nil {
		return nil, err
	}
	out := make(map[any]any, len(entries))
	for _, wf := range entries {
		ld, ok := wf.(wire.LengthDelimited)
		if !ok {
			c.dropped(parent, f, wf)
			continue
		}
		entry, err := c.DecodeBinary(ld.Value, entryMsg)
		if err != nil {
			return nil, err
		}
		value := entry["value"]
		if value == nil && f.Type.MapValue.Kind == schema.KindMessage {
			sub, err := c.reg.GetMessage(f.Type.MapValue.MessageType)
			if err != nil {
				return nil, err
			}
			value = c.DefaultValue(sub)
		}
		out[entry["key"]] = value
	}
	return out, nil
}

func (c *Codec) dropped(msg *schema.Message, f *schema.Field, wf wire.Field) {
	c.log.Debug().
		Str("type", parentName(msg)).
		Str("field", f.Name).
		Stringer("wire_type", wf.WireType()).
		Msg("dropping field with mismatched wire type or unknown value")
}

func (c *Codec) logUnknown(m wire.Message, msg *schema.Message) {
	if c.log.GetLevel() > zerolog.DebugLevel {
		return
	}
	for _, e := range m {
		if msg.FieldByNumber(int32(e.Number)) != nil {
			continue
		}
		c.log.Debug().
			Str("type", parentName(msg)).
			Int32("number", int32(e.Number)).
			Stringer("wire_type", e.Field.WireType()).
			Msg("dropping unknown field")
	}
}
