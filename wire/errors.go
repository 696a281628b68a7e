package wire

import (
	"errors"
	"fmt"
	"strings"
)

// Malformed input errors. Decoding never truncates or wraps silently; every
// one of these fails the whole call.
var (
	ErrTruncated          = errors.New("unexpected end of buffer")
	ErrVarintOverflow     = errors.New("varint overflows 64 bits")
	ErrInvalidWireType    = errors.New("invalid wire type")
	ErrInvalidFieldNumber = errors.New("invalid field number")
)

// FieldError represents an encoding/decoding error with a field path.
type FieldError struct {
	FieldPath  []string // e.g., ["order", "items", "price"]
	IsDecoding bool
	Err        error // underlying error
}

// Error implements the error interface.
func (e *FieldError) Error() string {
	if len(e.FieldPath) == 0 {
		return e.Err.Error()
	}

	op := "encoding"
	if e.IsDecoding {
		op = "decoding"
	}
	return fmt.Sprintf("%s error at proto path %s: %v", op, strings.Join(e.FieldPath, "."), e.Err)
}

// Unwrap returns the underlying error.
func (e *FieldError) Unwrap() error {
	return e.Err
}

// WrapEncoding prefixes err's field path with fieldName. Nested calls build
// the path outermost-first without repeating the underlying message.
func WrapEncoding(err error, fieldName string) error {
	return wrapField(err, fieldName, false)
}

// WrapDecoding is WrapEncoding for errors raised while decoding.
func WrapDecoding(err error, fieldName string) error {
	return wrapField(err, fieldName, true)
}

func wrapField(err error, fieldName string, decoding bool) error {
	if err == nil {
		return nil
	}

	var fe *FieldError
	if errors.As(err, &fe) {
		return &FieldError{
			FieldPath:  append([]string{fieldName}, fe.FieldPath...),
			IsDecoding: decoding,
			Err:        fe.Err,
		}
	}

	return &FieldError{
		FieldPath:  []string{fieldName},
		IsDecoding: decoding,
		Err:        err,
	}
}
