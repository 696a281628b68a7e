package wire

import (
	"encoding/binary"
	"fmt"

	"github.com/pbkit/pbkit-sub000/long"
)

// Entry is one (field number, value) pair as it appears on the wire.
type Entry struct {
	Number FieldNumber
	Field  Field
}

// Message is an ordered sequence of entries in wire-encounter order. The
// order matters: singular fields resolve to their last occurrence, repeated
// fields keep relative order, and oneof groups resolve to the last member
// seen.
type Message []Entry

// Serialize encodes m into a new buffer.
func Serialize(m Message) ([]byte, error) {
	return AppendMessage(nil, m)
}

// AppendMessage appends the encoding of m to buf: for each entry a tag varint
// followed by the payload for its wire type, in input order.
func AppendMessage(buf []byte, m Message) ([]byte, error) {
	for i, e := range m {
		if !e.Number.Valid() {
			return nil, fmt.Errorf("entry %d: %w: %d", i, ErrInvalidFieldNumber, e.Number)
		}
		if e.Field == nil {
			return nil, fmt.Errorf("entry %d (field %d): nil field", i, e.Number)
		}
		buf = AppendVarint(buf, long.FromUint64(uint64(MakeTag(e.Number, e.Field.WireType()))))
		buf = AppendPayload(buf, e.Field)
	}
	return buf, nil
}

// AppendPayload appends the payload of f without a tag. Packed repeated
// fields are a run of these.
func AppendPayload(buf []byte, f Field) []byte {
	switch v := f.(type) {
	case Varint:
		return AppendVarint(buf, v.Value)
	case Fixed64:
		return binary.LittleEndian.AppendUint64(buf, v.Value.Uint64())
	case LengthDelimited:
		buf = AppendVarint(buf, long.FromUint64(uint64(len(v.Value))))
		return append(buf, v.Value...)
	case Fixed32:
		return binary.LittleEndian.AppendUint32(buf, v.Value)
	default:
		// StartGroup, EndGroup: tag only.
		return buf
	}
}

// Deserialize decodes b into a Message. LengthDelimited values are views into
// b; mutating b afterwards changes them.
func Deserialize(b []byte) (Message, error) {
	var m Message
	pos := 0
	for pos < len(b) {
		start := pos
		tag, n, err := DecodeVarint(b[pos:])
		if err != nil {
			return nil, fmt.Errorf("tag at byte %d: %w", start, err)
		}
		pos += n

		raw := tag.Uint64()
		if raw>>3 > uint64(MaxFieldNumber) {
			return nil, fmt.Errorf("tag at byte %d: %w: %d", start, ErrInvalidFieldNumber, raw>>3)
		}
		number, wireType := ParseTag(Tag(raw))
		if number < MinFieldNumber {
			return nil, fmt.Errorf("tag at byte %d: %w: %d", start, ErrInvalidFieldNumber, number)
		}

		field, n, err := ConsumePayload(b[pos:], wireType)
		if err != nil {
			return nil, fmt.Errorf("field %d at byte %d: %w", number, start, err)
		}
		pos += n
		m = append(m, Entry{Number: number, Field: field})
	}
	return m, nil
}

// ConsumePayload decodes one payload of the given wire type from the start of
// b and reports how many bytes it used.
func ConsumePayload(b []byte, wireType WireType) (Field, int, error) {
	switch wireType {
	case WireVarint:
		v, n, err := DecodeVarint(b)
		if err != nil {
			return nil, 0, err
		}
		return Varint{Value: v}, n, nil
	case WireFixed64:
		if len(b) < 8 {
			return nil, 0, fmt.Errorf("%w: fixed64 needs 8 bytes, have %d", ErrTruncated, len(b))
		}
		return Fixed64{Value: long.FromUint64(binary.LittleEndian.Uint64(b))}, 8, nil
	case WireBytes:
		length, n, err := DecodeVarint(b)
		if err != nil {
			return nil, 0, fmt.Errorf("length: %w", err)
		}
		if length.Uint64() > uint64(len(b)-n) {
			return nil, 0, fmt.Errorf("%w: length %s exceeds remaining %d bytes", ErrTruncated, length.Decimal(false), len(b)-n)
		}
		end := n + int(length.Uint64())
		return LengthDelimited{Value: b[n:end:end]}, end, nil
	case WireStartGroup:
		return StartGroup{}, 0, nil
	case WireEndGroup:
		return EndGroup{}, 0, nil
	case WireFixed32:
		if len(b) < 4 {
			return nil, 0, fmt.Errorf("%w: fixed32 needs 4 bytes, have %d", ErrTruncated, len(b))
		}
		return Fixed32{Value: binary.LittleEndian.Uint32(b)}, 4, nil
	default:
		return nil, 0, fmt.Errorf("%w: %d", ErrInvalidWireType, wireType)
	}
}

// Index maps each field number to its last occurrence, so later entries
// overwrite earlier ones.
func (m Message) Index() map[FieldNumber]Field {
	idx := make(map[FieldNumber]Field, len(m))
	for _, e := range m {
		idx[e.Number] = e.Field
	}
	return idx
}

// Last returns the last field carrying number n.
func (m Message) Last(n FieldNumber) (Field, bool) {
	for i := len(m) - 1; i >= 0; i-- {
		if m[i].Number == n {
			return m[i].Field, true
		}
	}
	return nil, false
}

// All returns every field carrying number n, in wire order.
func (m Message) All(n FieldNumber) []Field {
	var out []Field
	for _, e := range m {
		if e.Number == n {
			out = append(out, e.Field)
		}
	}
	return out
}

// LastOf scans m in reverse and returns the first entry whose number is one
// of ns. It resolves a oneof group to the member that occurred last.
func (m Message) LastOf(ns ...FieldNumber) (Entry, bool) {
	for i := len(m) - 1; i >= 0; i-- {
		for _, n := range ns {
			if m[i].Number == n {
				return m[i], true
			}
		}
	}
	return Entry{}, false
}
