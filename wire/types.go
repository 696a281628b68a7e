package wire

import "fmt"

// ===== PROTOBUF WIRE FORMAT TYPES =====

// WireType represents protobuf wire format types
type WireType int8

const (
	WireVarint     WireType = 0 // int32, int64, uint32, uint64, sint32, sint64, bool, enum
	WireFixed64    WireType = 1 // fixed64, sfixed64, double
	WireBytes      WireType = 2 // string, bytes, embedded messages, packed repeated fields
	WireStartGroup WireType = 3 // deprecated groups, passed through
	WireEndGroup   WireType = 4
	WireFixed32    WireType = 5 // fixed32, sfixed32, float
)

var wireTypeNames = [...]string{
	WireVarint:     "varint",
	WireFixed64:    "fixed64",
	WireBytes:      "length-delimited",
	WireStartGroup: "start-group",
	WireEndGroup:   "end-group",
	WireFixed32:    "fixed32",
}

// Valid reports whether t is one of the six wire types defined by protobuf.
func (t WireType) Valid() bool {
	return t >= WireVarint && t <= WireFixed32
}

func (t WireType) String() string {
	if t.Valid() {
		return wireTypeNames[t]
	}
	return fmt.Sprintf("wiretype(%d)", int8(t))
}

// FieldNumber represents a protobuf field number
type FieldNumber int32

const (
	MinFieldNumber FieldNumber = 1
	MaxFieldNumber FieldNumber = 1<<29 - 1
)

// Valid reports whether n can appear in a tag.
func (n FieldNumber) Valid() bool {
	return n >= MinFieldNumber && n <= MaxFieldNumber
}

// Tag represents a protobuf field tag (field number + wire type)
type Tag uint64

// MakeTag creates a tag from field number and wire type
func MakeTag(fieldNumber FieldNumber, wireType WireType) Tag {
	return Tag(uint64(fieldNumber)<<3 | uint64(wireType))
}

// ParseTag parses a tag into field number and wire type
func ParseTag(tag Tag) (FieldNumber, WireType) {
	return FieldNumber(tag >> 3), WireType(tag & 0x7)
}
