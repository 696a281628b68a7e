package schema

import "testing"

func TestEnumLookup(t *testing.T) {
	status := &Enum{
		Name:       "Status",
		AllowAlias: true,
		Values: []*EnumValue{
			{Name: "UNKNOWN", Number: 0},
			{Name: "ACTIVE", Number: 1},
			{Name: "ENABLED", Number: 1},
		},
	}

	if name, ok := status.NameOf(1); !ok || name != "ACTIVE" {
		t.Errorf("NameOf(1) = %q, %v; want first alias ACTIVE", name, ok)
	}
	if _, ok := status.NameOf(7); ok {
		t.Error("NameOf(7) should miss")
	}
	if n, ok := status.NumberOf("ENABLED"); !ok || n != 1 {
		t.Errorf("NumberOf(ENABLED) = %d, %v", n, ok)
	}
	if got := status.DefaultName(); got != "UNKNOWN" {
		t.Errorf("DefaultName() = %q", got)
	}

	proto2 := &Enum{Values: []*EnumValue{{Name: "LOW", Number: 5}, {Name: "HIGH", Number: 9}}}
	if got := proto2.DefaultName(); got != "LOW" {
		t.Errorf("DefaultName() without zero value = %q, want LOW", got)
	}
	if got := (&Enum{}).DefaultName(); got != "" {
		t.Errorf("DefaultName() of empty enum = %q", got)
	}
}

func TestMessageFieldLookup(t *testing.T) {
	email := &Field{Name: "email", Number: 3, OneofIndex: 0}
	phone := &Field{Name: "phone_number", Number: 4, OneofIndex: 0}
	msg := &Message{
		Name: "Contact",
		Fields: []*Field{
			{Name: "user_name", Number: 1, OneofIndex: -1},
			{Name: "tags", Number: 2, Label: LabelRepeated, OneofIndex: -1},
		},
		OneofGroups: []*Oneof{{Name: "method", Fields: []*Field{email, phone}}},
	}

	if got := len(msg.AllFields()); got != 4 {
		t.Errorf("AllFields() has %d entries, want 4", got)
	}
	if f := msg.FieldByNumber(4); f != phone {
		t.Errorf("FieldByNumber(4) = %v", f)
	}
	if f := msg.FieldByNumber(99); f != nil {
		t.Errorf("FieldByNumber(99) = %v, want nil", f)
	}
	if f := msg.FieldByName("userName"); f == nil || f.Number != 1 {
		t.Errorf("FieldByName(userName) = %v", f)
	}
	if f := msg.FieldByName("phone_number"); f != phone {
		t.Errorf("FieldByName(phone_number) = %v", f)
	}
	if o := msg.OneofOf(email); o == nil || o.Name != "method" {
		t.Errorf("OneofOf(email) = %v", o)
	}
	if o := msg.OneofOf(msg.Fields[0]); o != nil {
		t.Errorf("OneofOf(user_name) = %v, want nil", o)
	}
	if !msg.Fields[1].IsRepeated() {
		t.Error("tags should be repeated")
	}
}

func TestToLowerCamel(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", ""},
		{"name", "name"},
		{"user_name", "userName"},
		{"phone_number_2", "phoneNumber2"},
		{"a__b", "aB"},
		{"trailing_", "trailing"},
		{"Already", "Already"},
	}
	for _, tt := range tests {
		if got := ToLowerCamel(tt.in); got != tt.want {
			t.Errorf("ToLowerCamel(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}

	f := &Field{Name: "user_name", JsonName: "login"}
	if got := f.JSONName(); got != "login" {
		t.Errorf("explicit json_name ignored: %q", got)
	}
}
