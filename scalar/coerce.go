package scalar

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/pbkit/pbkit-sub000/long"
)

// Helpers to coerce host and JSON inputs to integers. Exponent and float
// forms are accepted when they are integral.

func coerceToInt64(v any) (int64, error) {
	switch t := v.(type) {
	case int:
		return int64(t), nil
	case int8:
		return int64(t), nil
	case int16:
		return int64(t), nil
	case int32:
		return int64(t), nil
	case int64:
		return t, nil
	case uint8:
		return int64(t), nil
	case uint16:
		return int64(t), nil
	case uint32:
		return int64(t), nil
	case uint:
		if uint64(t) > math.MaxInt64 {
			return 0, fmt.Errorf("%w: %d overflows int64", ErrHostType, t)
		}
		return int64(t), nil
	case uint64:
		if t > math.MaxInt64 {
			return 0, fmt.Errorf("%w: %d overflows int64", ErrHostType, t)
		}
		return int64(t), nil
	case long.Long:
		return t.Int64(), nil
	case json.Number:
		// Try integer first
		if iv, err := t.Int64(); err == nil {
			return iv, nil
		}
		return integralFloat(t.String())
	case float64:
		return integralValue(t)
	case float32:
		return integralValue(float64(t))
	case string:
		if strings.ContainsAny(t, ".eE") {
			return integralFloat(t)
		}
		iv, err := strconv.ParseInt(t, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %v", ErrHostType, err)
		}
		return iv, nil
	default:
		return 0, fmt.Errorf("%w: expected integer-like, got %T", ErrHostType, v)
	}
}

func coerceToUint64(v any) (uint64, error) {
	switch t := v.(type) {
	case uint:
		return uint64(t), nil
	case uint8:
		return uint64(t), nil
	case uint16:
		return uint64(t), nil
	case uint32:
		return uint64(t), nil
	case uint64:
		return t, nil
	case long.Long:
		return t.Uint64(), nil
	case int, int8, int16, int32, int64:
		iv, _ := coerceToInt64(t)
		if iv < 0 {
			return 0, fmt.Errorf("%w: negative value %d for unsigned field", ErrHostType, iv)
		}
		return uint64(iv), nil
	case json.Number:
		if uv, err := strconv.ParseUint(t.String(), 10, 64); err == nil {
			return uv, nil
		}
		return unsignedFloat(t.String())
	case float64:
		return unsignedValue(t)
	case float32:
		return unsignedValue(float64(t))
	case string:
		if strings.ContainsAny(t, ".eE") {
			return unsignedFloat(t)
		}
		uv, err := strconv.ParseUint(t, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %v", ErrHostType, err)
		}
		return uv, nil
	default:
		return 0, fmt.Errorf("%w: expected unsigned-integer-like, got %T", ErrHostType, v)
	}
}

func integralFloat(s string) (int64, error) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrHostType, err)
	}
	return integralValue(f)
}

func integralValue(f float64) (int64, error) {
	// 2^63 is exactly representable; anything at or above it overflows.
	if f != math.Trunc(f) || f < math.MinInt64 || f >= math.MaxInt64 {
		return 0, fmt.Errorf("%w: non-integer numeric %v for integer field", ErrHostType, f)
	}
	return int64(f), nil
}

func unsignedFloat(s string) (uint64, error) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrHostType, err)
	}
	return unsignedValue(f)
}

func unsignedValue(f float64) (uint64, error) {
	if f < 0 || f != math.Trunc(f) || f >= math.MaxUint64 {
		return 0, fmt.Errorf("%w: non-integer numeric %v for unsigned field", ErrHostType, f)
	}
	return uint64(f), nil
}

func coerceToInt32(v any) (int32, error) {
	iv, err := coerceToInt64(v)
	if err != nil {
		return 0, err
	}
	if iv < math.MinInt32 || iv > math.MaxInt32 {
		return 0, fmt.Errorf("%w: %d out of int32 range", ErrHostType, iv)
	}
	return int32(iv), nil
}

func coerceToUint32(v any) (uint32, error) {
	uv, err := coerceToUint64(v)
	if err != nil {
		return 0, err
	}
	if uv > math.MaxUint32 {
		return 0, fmt.Errorf("%w: %d out of uint32 range", ErrHostType, uv)
	}
	return uint32(uv), nil
}

// coerceToLong reads a 64-bit value. Decimal strings, the canonical host form,
// go through long.Parse so the full unsigned range survives.
func coerceToLong(v any, signed bool) (long.Long, error) {
	switch t := v.(type) {
	case long.Long:
		return t, nil
	case string:
		if !strings.ContainsAny(t, ".eE") {
			if !signed && strings.HasPrefix(t, "-") {
				return long.Zero, fmt.Errorf("%w: negative value %q for unsigned field", ErrHostType, t)
			}
			l, err := long.Parse(t)
			if err != nil {
				return long.Zero, fmt.Errorf("%w: %v", ErrHostType, err)
			}
			if signed && !fitsInt64(t, l) {
				return long.Zero, fmt.Errorf("%w: %q out of int64 range", ErrHostType, t)
			}
			return l, nil
		}
	case json.Number:
		return coerceToLong(t.String(), signed)
	}
	if signed {
		iv, err := coerceToInt64(v)
		return long.FromInt64(iv), err
	}
	uv, err := coerceToUint64(v)
	return long.FromUint64(uv), err
}

// fitsInt64 reports whether the parsed magnitude of s kept its sign, i.e. s
// was within [-2^63, 2^63-1].
func fitsInt64(s string, l long.Long) bool {
	neg := strings.HasPrefix(s, "-")
	if l.IsZero() {
		return true
	}
	return (l.Int64() < 0) == neg
}

func coerceToFloat64(v any) (float64, error) {
	switch t := v.(type) {
	case float64:
		return t, nil
	case float32:
		return float64(t), nil
	case json.Number:
		f, err := strconv.ParseFloat(t.String(), 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %v", ErrHostType, err)
		}
		return f, nil
	case string:
		switch t {
		case "NaN":
			return math.NaN(), nil
		case "Infinity":
			return math.Inf(1), nil
		case "-Infinity":
			return math.Inf(-1), nil
		}
		f, err := strconv.ParseFloat(t, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %v", ErrHostType, err)
		}
		return f, nil
	default:
		iv, err := coerceToInt64(v)
		if err != nil {
			return 0, fmt.Errorf("%w: expected number, got %T", ErrHostType, v)
		}
		return float64(iv), nil
	}
}
