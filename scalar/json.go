package scalar

import (
	"encoding/base64"
	"fmt"
	"math"
	"strings"

	"github.com/pbkit/pbkit-sub000/schema"
)

// ToJSON converts a host value into the value encoding/json should emit for
// it under the protobuf JSON mapping: 64-bit integers as decimal strings,
// bytes as standard base64, non-finite floats as "NaN", "Infinity" or
// "-Infinity".
func ToJSON(kind schema.PrimitiveType, v any) (any, error) {
	h, err := Normalize(kind, v)
	if err != nil {
		return nil, err
	}
	switch x := h.(type) {
	case float64:
		return floatJSON(x, x), nil
	case float32:
		return floatJSON(float64(x), x), nil
	case []byte:
		return base64.StdEncoding.EncodeToString(x), nil
	default:
		// int32, uint32 and bool are emitted as is; 64-bit kinds are already
		// decimal strings.
		return h, nil
	}
}

func floatJSON(f float64, v any) any {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	}
	return v
}

// FromJSON converts a decoded JSON value (as produced by encoding/json, with
// or without UseNumber) into the canonical host value for kind. Integer kinds
// accept numbers and numeric strings; float kinds also accept the non-finite
// names; bytes accept standard or URL-safe base64, padded or not.
func FromJSON(kind schema.PrimitiveType, j any) (any, error) {
	if j == nil {
		return nil, fmt.Errorf("%w: null for %s", ErrHostType, kind)
	}
	switch kind {
	case schema.TypeBool:
		if _, ok := j.(bool); !ok {
			return nil, fmt.Errorf("%w: expected JSON bool, got %T", ErrHostType, j)
		}
	case schema.TypeString:
		if _, ok := j.(string); !ok {
			return nil, fmt.Errorf("%w: expected JSON string, got %T", ErrHostType, j)
		}
	case schema.TypeBytes:
		s, ok := j.(string)
		if !ok {
			return nil, fmt.Errorf("%w: expected base64 string, got %T", ErrHostType, j)
		}
		return decodeBase64(s)
	case schema.TypeFloat:
		f, err := coerceToFloat64(j)
		if err != nil {
			return nil, err
		}
		if !math.IsInf(f, 0) && !math.IsNaN(f) && math.Abs(f) > math.MaxFloat32 {
			return nil, fmt.Errorf("%w: %v overflows float", ErrHostType, f)
		}
		return float32(f), nil
	}
	return Normalize(kind, j)
}

func decodeBase64(s string) ([]byte, error) {
	enc := base64.StdEncoding
	if strings.ContainsAny(s, "-_") {
		enc = base64.URLEncoding
	}
	if len(s)%4 != 0 {
		enc = enc.WithPadding(base64.NoPadding)
	}
	b, err := enc.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrHostType, err)
	}
	return b, nil
}
