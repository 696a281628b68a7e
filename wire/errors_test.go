package wire

import (
	"errors"
	"strings"
	"testing"
)

func TestFieldError(t *testing.T) {
	tests := []struct {
		name         string
		buildError   func() error
		expectedPath string
		expectedMsg  string
		decoding     bool
	}{
		{
			name: "single field error",
			buildError: func() error {
				return WrapEncoding(errors.New("expected string, got float64"), "latitude")
			},
			expectedPath: "latitude",
			expectedMsg:  "expected string, got float64",
		},
		{
			name: "nested field error",
			buildError: func() error {
				err := WrapEncoding(errors.New("expected string, got *int"), "name")
				err = WrapEncoding(err, "user")
				err = WrapEncoding(err, "profile")
				return WrapEncoding(err, "data")
			},
			expectedPath: "data.profile.user.name",
			expectedMsg:  "expected string, got *int",
		},
		{
			name: "nested decoding error",
			buildError: func() error {
				err := WrapDecoding(ErrTruncated, "id")
				err = WrapDecoding(err, "author")
				return WrapDecoding(err, "post")
			},
			expectedPath: "post.author.id",
			expectedMsg:  ErrTruncated.Error(),
			decoding:     true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.buildError()

			var fieldErr *FieldError
			if !errors.As(err, &fieldErr) {
				t.Fatalf("expected FieldError, got %T", err)
			}
			if fieldErr.IsDecoding != tt.decoding {
				t.Errorf("IsDecoding = %v, want %v", fieldErr.IsDecoding, tt.decoding)
			}

			actualPath := strings.Join(fieldErr.FieldPath, ".")
			if actualPath != tt.expectedPath {
				t.Errorf("expected path %q, got %q", tt.expectedPath, actualPath)
			}

			errMsg := err.Error()
			if !strings.Contains(errMsg, tt.expectedPath) {
				t.Errorf("error message should contain path %q, got: %s", tt.expectedPath, errMsg)
			}
			if strings.Count(errMsg, tt.expectedMsg) != 1 {
				t.Errorf("error message should contain %q exactly once, got: %s", tt.expectedMsg, errMsg)
			}
			if strings.Count(errMsg, "error at proto path") != 1 {
				t.Errorf("error message repeats its prefix: %s", errMsg)
			}

			if errors.Unwrap(err) == nil {
				t.Error("Unwrap should return the underlying error")
			}
		})
	}
}

func TestFieldErrorIsSentinel(t *testing.T) {
	err := WrapDecoding(WrapDecoding(ErrVarintOverflow, "count"), "stats")
	if !errors.Is(err, ErrVarintOverflow) {
		t.Errorf("errors.Is should see through FieldError: %v", err)
	}
	if WrapEncoding(nil, "x") != nil {
		t.Error("wrapping nil must stay nil")
	}
}

func TestEncodingVsDecodingErrors(t *testing.T) {
	base := errors.New("base error message")
	enc := WrapEncoding(WrapEncoding(base, "field1"), "field2")
	dec := WrapDecoding(WrapDecoding(base, "field1"), "field2")

	if !strings.HasPrefix(enc.Error(), "encoding error") {
		t.Errorf("encoding error message: %s", enc.Error())
	}
	if !strings.HasPrefix(dec.Error(), "decoding error") {
		t.Errorf("decoding error message: %s", dec.Error())
	}
}
