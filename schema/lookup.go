package schema

// NameOf returns the name of the first value declared with number n. With
// allow_alias several names share a number; the first declared one is
// canonical.
func (e *Enum) NameOf(n int32) (string, bool) {
	for _, v := range e.Values {
		if v.Number == n {
			return v.Name, true
		}
	}
	return "", false
}

// NumberOf returns the number declared for name.
func (e *Enum) NumberOf(name string) (int32, bool) {
	for _, v := range e.Values {
		if v.Name == name {
			return v.Number, true
		}
	}
	return 0, false
}

// DefaultName is the name a field of this enum type holds when unset: the
// value numbered zero, or the first declared value for proto2 enums without
// one.
func (e *Enum) DefaultName() string {
	if name, ok := e.NameOf(0); ok {
		return name
	}
	if len(e.Values) > 0 {
		return e.Values[0].Name
	}
	return ""
}

// AllFields returns the regular fields followed by every oneof member.
func (m *Message) AllFields() []*Field {
	out := make([]*Field, 0, len(m.Fields))
	out = append(out, m.Fields...)
	for _, o := range m.OneofGroups {
		out = append(out, o.Fields...)
	}
	return out
}

// FieldByNumber finds a regular field or oneof member by number.
func (m *Message) FieldByNumber(n int32) *Field {
	for _, f := range m.Fields {
		if f.Number == n {
			return f
		}
	}
	for _, o := range m.OneofGroups {
		for _, f := range o.Fields {
			if f.Number == n {
				return f
			}
		}
	}
	return nil
}

// FieldByName matches the declared name first, then the JSON name.
func (m *Message) FieldByName(name string) *Field {
	all := m.AllFields()
	for _, f := range all {
		if f.Name == name {
			return f
		}
	}
	for _, f := range all {
		if f.JSONName() == name {
			return f
		}
	}
	return nil
}

// OneofOf returns the group f belongs to, or nil.
func (m *Message) OneofOf(f *Field) *Oneof {
	for _, o := range m.OneofGroups {
		for _, member := range o.Fields {
			if member == f {
				return o
			}
		}
	}
	return nil
}

func (f *Field) IsRepeated() bool { return f.Label == LabelRepeated && f.Type.Kind != KindMap }

func (f *Field) IsMap() bool { return f.Type.Kind == KindMap }

// JSONName is the explicit json_name option if set, else the lowerCamel form
// of the declared name.
func (f *Field) JSONName() string {
	if f.JsonName != "" {
		return f.JsonName
	}
	return ToLowerCamel(f.Name)
}

// ToLowerCamel converts snake_case to lowerCamelCase the way protoc derives
// json_name: underscores are dropped and the letter after one is upper-cased.
// The first character is left as written.
func ToLowerCamel(s string) string {
	hasUnderscore := false
	for i := 0; i < len(s); i++ {
		if s[i] == '_' {
			hasUnderscore = true
			break
		}
	}
	if !hasUnderscore {
		return s
	}
	out := make([]byte, 0, len(s))
	upperNext := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '_' {
			upperNext = true
			continue
		}
		if upperNext && c >= 'a' && c <= 'z' {
			c = c - 'a' + 'A'
		}
		upperNext = false
		out = append(out, c)
	}
	return string(out)
}
