package wire

import "github.com/pbkit/pbkit-sub000/long"

// Field is a single wire value. The concrete type always agrees with
// WireType(); the set of implementations is closed to this package.
type Field interface {
	WireType() WireType
	isField()
}

// Varint carries a base-128 integer.
type Varint struct {
	Value long.Long
}

// Fixed64 carries a raw little-endian 64-bit pattern.
type Fixed64 struct {
	Value long.Long
}

// LengthDelimited carries an opaque payload. After Deserialize, Value aliases
// the source buffer.
type LengthDelimited struct {
	Value []byte
}

// Fixed32 carries a raw little-endian 32-bit pattern.
type Fixed32 struct {
	Value uint32
}

// StartGroup and EndGroup mark legacy group boundaries and carry no payload.
type StartGroup struct{}
type EndGroup struct{}

func (Varint) WireType() WireType          { return WireVarint }
func (Fixed64) WireType() WireType         { return WireFixed64 }
func (LengthDelimited) WireType() WireType { return WireBytes }
func (Fixed32) WireType() WireType         { return WireFixed32 }
func (StartGroup) WireType() WireType      { return WireStartGroup }
func (EndGroup) WireType() WireType        { return WireEndGroup }

func (Varint) isField()          {}
func (Fixed64) isField()         {}
func (LengthDelimited) isField() {}
func (Fixed32) isField()         {}
func (StartGroup) isField()      {}
func (EndGroup) isField()        {}
