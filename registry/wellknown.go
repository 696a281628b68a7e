package registry

import (
	"github.com/pbkit/pbkit-sub000/schema"
)

// Bundled google/protobuf files. Imports of these are satisfied without a
// search of ProtoDirectories. They encode as ordinary messages.
var wellKnownFiles = map[string]func() *schema.ProtoFile{
	"google/protobuf/timestamp.proto": func() *schema.ProtoFile {
		return wellKnownFile("google/protobuf/timestamp.proto",
			wellKnownMessage("Timestamp", scalarField("seconds", 1, schema.TypeInt64), scalarField("nanos", 2, schema.TypeInt32)))
	},
	"google/protobuf/duration.proto": func() *schema.ProtoFile {
		return wellKnownFile("google/protobuf/duration.proto",
			wellKnownMessage("Duration", scalarField("seconds", 1, schema.TypeInt64), scalarField("nanos", 2, schema.TypeInt32)))
	},
	"google/protobuf/empty.proto": func() *schema.ProtoFile {
		return wellKnownFile("google/protobuf/empty.proto", wellKnownMessage("Empty"))
	},
	"google/protobuf/any.proto": func() *schema.ProtoFile {
		return wellKnownFile("google/protobuf/any.proto",
			wellKnownMessage("Any", scalarField("type_url", 1, schema.TypeString), scalarField("value", 2, schema.TypeBytes)))
	},
	"google/protobuf/field_mask.proto": func() *schema.ProtoFile {
		paths := scalarField("paths", 1, schema.TypeString)
		paths.Label = schema.LabelRepeated
		return wellKnownFile("google/protobuf/field_mask.proto", wellKnownMessage("FieldMask", paths))
	},
	"google/protobuf/wrappers.proto": func() *schema.ProtoFile {
		wrappers := []struct {
			name string
			kind schema.PrimitiveType
		}{
			{"DoubleValue", schema.TypeDouble},
			{"FloatValue", schema.TypeFloat},
			{"Int64Value", schema.TypeInt64},
			{"UInt64Value", schema.TypeUint64},
			{"Int32Value", schema.TypeInt32},
			{"UInt32Value", schema.TypeUint32},
			{"BoolValue", schema.TypeBool},
			{"StringValue", schema.TypeString},
			{"BytesValue", schema.TypeBytes},
		}
		msgs := make([]*schema.Message, 0, len(wrappers))
		for _, w := range wrappers {
			msgs = append(msgs, wellKnownMessage(w.name, scalarField("value", 1, w.kind)))
		}
		return wellKnownFile("google/protobuf/wrappers.proto", msgs...)
	},
}

func isWellKnown(importPath string) bool {
	_, ok := wellKnownFiles[importPath]
	return ok
}

// wellKnownImports returns fresh copies of the bundled files imported by
// files and not yet registered.
func (r *Registry) wellKnownImports(files []*schema.ProtoFile) []*schema.ProtoFile {
	var out []*schema.ProtoFile
	seen := make(map[string]struct{})
	for _, f := range files {
		for _, imp := range f.Imports {
			build, ok := wellKnownFiles[imp.Path]
			if !ok {
				continue
			}
			if _, dup := seen[imp.Path]; dup || r.hasFile(imp.Path) {
				continue
			}
			seen[imp.Path] = struct{}{}
			out = append(out, build())
		}
	}
	return out
}

func wellKnownFile(name string, msgs ...*schema.Message) *schema.ProtoFile {
	return &schema.ProtoFile{
		Name:     name,
		Package:  "google.protobuf",
		Syntax:   "proto3",
		Messages: msgs,
	}
}

func wellKnownMessage(name string, fields ...*schema.Field) *schema.Message {
	return &schema.Message{Name: name, Fields: fields}
}

func scalarField(name string, number int32, kind schema.PrimitiveType) *schema.Field {
	return &schema.Field{
		Name:       name,
		Number:     number,
		Label:      schema.LabelOptional,
		Type:       schema.FieldType{Kind: schema.KindPrimitive, PrimitiveType: kind},
		OneofIndex: -1,
	}
}
