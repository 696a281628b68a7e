package pbkit

import (
	"unicode"
	"unicode/utf8"

	"github.com/pbkit/pbkit-sub000/wire"
)

const maxInspectDepth = 16

// WireField is one entry of a payload decoded without a schema.
type WireField struct {
	Number   int32  `json:"number"`
	WireType string `json:"wire_type"`
	// Value is the unsigned decimal for varint and fixed64, the uint32 for
	// fixed32, and the raw bytes for length-delimited entries.
	Value any `json:"value,omitempty"`
	// Text is set when a length-delimited payload is printable UTF-8.
	Text string `json:"text,omitempty"`
	// Message is set when a length-delimited payload parses as a message.
	Message []WireField `json:"message,omitempty"`
}

// Inspect decodes data into its wire entries. Length-delimited payloads are
// also tried as strings and as nested messages; either guess may be wrong.
func Inspect(data []byte) ([]WireField, error) {
	m, err := wire.Deserialize(data)
	if err != nil {
		return nil, err
	}
	return inspectMessage(m, 0), nil
}

func inspectMessage(m wire.Message, depth int) []WireField {
	out := make([]WireField, 0, len(m))
	for _, e := range m {
		wf := WireField{
			Number:   int32(e.Number),
			WireType: e.Field.WireType().String(),
		}
		switch f := e.Field.(type) {
		case wire.Varint:
			wf.Value = f.Value.Decimal(false)
		case wire.Fixed64:
			wf.Value = f.Value.Decimal(false)
		case wire.Fixed32:
			wf.Value = f.Value
		case wire.LengthDelimited:
			wf.Value = f.Value
			if printable(f.Value) {
				wf.Text = string(f.Value)
			}
			if depth < maxInspectDepth && len(f.Value) > 0 {
				if nested, err := wire.Deserialize(f.Value); err == nil {
					wf.Message = inspectMessage(nested, depth+1)
				}
			}
		}
		out = append(out, wf)
	}
	return out
}

func printable(b []byte) bool {
	if len(b) == 0 || !utf8.Valid(b) {
		return false
	}
	for _, r := range string(b) {
		if !unicode.IsPrint(r) && !unicode.IsSpace(r) {
			return false
		}
	}
	return true
}
