// Package pbkit is a protobuf toolkit without generated code: message values
// are plain Go maps, schemas come from .proto files or hand-built
// schema.ProtoFile values, and encoding follows the binary wire format and
// the protobuf JSON mapping.
package pbkit

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/pbkit/pbkit-sub000/codec"
	"github.com/pbkit/pbkit-sub000/registry"
	"github.com/pbkit/pbkit-sub000/schema"
)

// Kit provides schema-aware protobuf operations.
type Kit interface {
	// LoadSchemaFile loads a .proto file, or every .proto file under a
	// directory, with its imports.
	LoadSchemaFile(path string) error
	// RegisterFile adds already-built schemas.
	RegisterFile(files ...*schema.ProtoFile) error

	Marshal(data map[string]any, messageType string) ([]byte, error)
	Unmarshal(data []byte, messageType string) (map[string]any, error)
	EncodeJSON(data map[string]any, messageType string) ([]byte, error)
	DecodeJSON(data []byte, messageType string) (map[string]any, error)

	// Default returns the value an empty payload decodes to.
	Default(messageType string) (map[string]any, error)
	// Inspect dumps a payload without a schema.
	Inspect(data []byte) ([]WireField, error)

	GetRegistry() *registry.Registry
	GetCodec() *codec.Codec
	ListMessages() []string
	ListEnums() []string
	ListServices() []string
}

type settings struct {
	dirs     []string
	codecOps []codec.Option
}

type Option func(*settings)

// WithProtoDirectories sets the include directories searched for imports.
func WithProtoDirectories(dirs ...string) Option {
	return func(s *settings) { s.dirs = append(s.dirs, dirs...) }
}

// WithConfig sets the codec options.
func WithConfig(cfg codec.Config) Option {
	return func(s *settings) { s.codecOps = append(s.codecOps, codec.WithConfig(cfg)) }
}

// WithLogger sets the logger for dropped fields.
func WithLogger(log zerolog.Logger) Option {
	return func(s *settings) { s.codecOps = append(s.codecOps, codec.WithLogger(log)) }
}

type kit struct {
	registry *registry.Registry
	codec    *codec.Codec
}

// New creates a Kit with an empty registry.
func New(opts ...Option) Kit {
	var s settings
	for _, opt := range opts {
		opt(&s)
	}
	reg := registry.NewRegistry(s.dirs...)
	return &kit{
		registry: reg,
		codec:    codec.New(reg, s.codecOps...),
	}
}

func (k *kit) LoadSchemaFile(path string) error {
	return k.registry.LoadSchema(path)
}

func (k *kit) RegisterFile(files ...*schema.ProtoFile) error {
	return k.registry.Register(files...)
}

func (k *kit) message(messageType string) (*schema.Message, error) {
	msg, err := k.registry.GetMessage(messageType)
	if err != nil {
		return nil, fmt.Errorf("message type not found: %w", err)
	}
	return msg, nil
}

func (k *kit) Marshal(data map[string]any, messageType string) ([]byte, error) {
	msg, err := k.message(messageType)
	if err != nil {
		return nil, err
	}
	return k.codec.EncodeBinary(data, msg)
}

func (k *kit) Unmarshal(data []byte, messageType string) (map[string]any, error) {
	msg, err := k.message(messageType)
	if err != nil {
		return nil, err
	}
	return k.codec.DecodeBinary(data, msg)
}

func (k *kit) EncodeJSON(data map[string]any, messageType string) ([]byte, error) {
	msg, err := k.message(messageType)
	if err != nil {
		return nil, err
	}
	return k.codec.EncodeJSON(data, msg)
}

func (k *kit) DecodeJSON(data []byte, messageType string) (map[string]any, error) {
	msg, err := k.message(messageType)
	if err != nil {
		return nil, err
	}
	return k.codec.DecodeJSON(data, msg)
}

func (k *kit) Default(messageType string) (map[string]any, error) {
	msg, err := k.message(messageType)
	if err != nil {
		return nil, err
	}
	return k.codec.DefaultValue(msg), nil
}

func (k *kit) Inspect(data []byte) ([]WireField, error) {
	return Inspect(data)
}

func (k *kit) GetRegistry() *registry.Registry { return k.registry }
func (k *kit) GetCodec() *codec.Codec          { return k.codec }
func (k *kit) ListMessages() []string          { return k.registry.ListMessages() }
func (k *kit) ListEnums() []string             { return k.registry.ListEnums() }
func (k *kit) ListServices() []string          { return k.registry.ListServices() }
