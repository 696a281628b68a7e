package registry

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	protoparserparser "github.com/yoheimuta/go-protoparser/v4/parser"

	"github.com/pbkit/pbkit-sub000/schema"
)

// convertProto turns a go-protoparser AST into a schema.ProtoFile. Type
// references are left as written; Register resolves them.
func convertProto(name string, parsed *protoparserparser.Proto) (*schema.ProtoFile, error) {
	if parsed == nil {
		return nil, errors.New("no parsed body")
	}

	protoFile := &schema.ProtoFile{
		Name:     name,
		Syntax:   "proto2", // protoc's default when the syntax statement is missing
		Imports:  []*schema.Import{},
		Messages: []*schema.Message{},
		Enums:    []*schema.Enum{},
		Services: []*schema.Service{},
	}
	if parsed.Syntax != nil {
		protoFile.Syntax = unquote(parsed.Syntax.ProtobufVersion)
	}
	proto3 := protoFile.Syntax == "proto3"

	for _, body := range parsed.ProtoBody {
		switch b := body.(type) {
		case *protoparserparser.Package:
			protoFile.Package = b.Name
		case *protoparserparser.Import:
			protoFile.Imports = append(protoFile.Imports, &schema.Import{
				Path:   unquote(b.Location),
				Public: b.Modifier == protoparserparser.ImportModifierPublic,
				Weak:   b.Modifier == protoparserparser.ImportModifierWeak,
			})
		case *protoparserparser.Message:
			msg, err := convertMessage(b, proto3)
			if err != nil {
				return nil, err
			}
			protoFile.Messages = append(protoFile.Messages, msg)
		case *protoparserparser.Enum:
			enum, err := convertEnum(b)
			if err != nil {
				return nil, err
			}
			protoFile.Enums = append(protoFile.Enums, enum)
		case *protoparserparser.Service:
			protoFile.Services = append(protoFile.Services, convertService(b))
		}
	}
	return protoFile, nil
}

func convertMessage(m *protoparserparser.Message, proto3 bool) (*schema.Message, error) {
	msg := &schema.Message{Name: m.MessageName}

	for _, body := range m.MessageBody {
		switch b := body.(type) {
		case *protoparserparser.Field:
			label := schema.LabelOptional
			switch {
			case b.IsRepeated:
				label = schema.LabelRepeated
			case b.IsRequired:
				label = schema.LabelRequired
			}
			f, err := newField(b.FieldName, b.FieldNumber, label, b.Type, b.FieldOptions, proto3)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", m.MessageName, err)
			}
			msg.Fields = append(msg.Fields, f)
		case *protoparserparser.MapField:
			number, err := parseNumber(b.FieldNumber)
			if err != nil {
				return nil, fmt.Errorf("%s.%s: %w", m.MessageName, b.MapName, err)
			}
			key, value := fieldType(b.KeyType), fieldType(b.Type)
			f := &schema.Field{
				Name:       b.MapName,
				Number:     number,
				Label:      schema.LabelRepeated,
				Type:       schema.FieldType{Kind: schema.KindMap, MapKey: &key, MapValue: &value},
				OneofIndex: -1,
			}
			applyOptions(f, b.FieldOptions, false)
			msg.Fields = append(msg.Fields, f)
		case *protoparserparser.Oneof:
			group := &schema.Oneof{Name: b.OneofName}
			index := int32(len(msg.OneofGroups))
			for _, of := range b.OneofFields {
				f, err := newField(of.FieldName, of.FieldNumber, schema.LabelOptional, of.Type, of.FieldOptions, proto3)
				if err != nil {
					return nil, fmt.Errorf("%s.%s: %w", m.MessageName, b.OneofName, err)
				}
				f.OneofIndex = index
				group.Fields = append(group.Fields, f)
			}
			msg.OneofGroups = append(msg.OneofGroups, group)
		case *protoparserparser.Message:
			nested, err := convertMessage(b, proto3)
			if err != nil {
				return nil, err
			}
			msg.NestedTypes = append(msg.NestedTypes, nested)
		case *protoparserparser.Enum:
			nested, err := convertEnum(b)
			if err != nil {
				return nil, err
			}
			msg.NestedEnums = append(msg.NestedEnums, nested)
		case *protoparserparser.GroupField:
			return nil, fmt.Errorf("%s.%s: groups are not supported", m.MessageName, b.GroupName)
		}
	}
	return msg, nil
}

func newField(name, number string, label schema.FieldLabel, typeName string, opts []*protoparserparser.FieldOption, proto3 bool) (*schema.Field, error) {
	n, err := parseNumber(number)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	f := &schema.Field{
		Name:       name,
		Number:     n,
		Label:      label,
		Type:       fieldType(typeName),
		OneofIndex: -1,
	}
	// proto3 packs repeated scalars and enums unless told otherwise. Named
	// types keep the flag until the registry knows whether they are enums.
	packedDefault := proto3 && label == schema.LabelRepeated &&
		(f.Type.Kind != schema.KindPrimitive || schema.IsPackedType(f.Type.PrimitiveType))
	applyOptions(f, opts, packedDefault)
	return f, nil
}

// fieldType classifies a type name. Non-scalar names are provisionally
// messages; Register turns them into enums where they resolve to one.
func fieldType(name string) schema.FieldType {
	if schema.IsPrimitive(name) {
		return schema.FieldType{Kind: schema.KindPrimitive, PrimitiveType: schema.PrimitiveType(name)}
	}
	return schema.FieldType{Kind: schema.KindMessage, MessageType: name}
}

func applyOptions(f *schema.Field, opts []*protoparserparser.FieldOption, packed bool) {
	f.Packed = packed
	for _, opt := range opts {
		switch opt.OptionName {
		case "packed":
			f.Packed = opt.Constant == "true"
		case "json_name":
			f.JsonName = unquote(opt.Constant)
		case "default":
			f.DefaultValue = unquote(opt.Constant)
		}
	}
	if f.Label != schema.LabelRepeated ||
		(f.Type.Kind == schema.KindPrimitive && !schema.IsPackedType(f.Type.PrimitiveType)) {
		f.Packed = false
	}
}

func convertEnum(e *protoparserparser.Enum) (*schema.Enum, error) {
	enum := &schema.Enum{Name: e.EnumName}
	for _, body := range e.EnumBody {
		switch b := body.(type) {
		case *protoparserparser.EnumField:
			n, err := parseNumber(b.Number)
			if err != nil {
				return nil, fmt.Errorf("%s.%s: %w", e.EnumName, b.Ident, err)
			}
			enum.Values = append(enum.Values, &schema.EnumValue{Name: b.Ident, Number: n})
		case *protoparserparser.Option:
			if b.OptionName == "allow_alias" {
				enum.AllowAlias = b.Constant == "true"
			}
		}
	}
	return enum, nil
}

func convertService(s *protoparserparser.Service) *schema.Service {
	service := &schema.Service{Name: s.ServiceName}
	for _, body := range s.ServiceBody {
		rpc, ok := body.(*protoparserparser.RPC)
		if !ok {
			continue
		}
		method := &schema.Method{Name: rpc.RPCName}
		if rpc.RPCRequest != nil {
			method.InputType = rpc.RPCRequest.MessageType
			method.ClientStreaming = rpc.RPCRequest.IsStream
		}
		if rpc.RPCResponse != nil {
			method.OutputType = rpc.RPCResponse.MessageType
			method.ServerStreaming = rpc.RPCResponse.IsStream
		}
		service.Methods = append(service.Methods, method)
	}
	return service
}

// parseNumber accepts decimal, hex and octal literals as protoc does.
func parseNumber(s string) (int32, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 0, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q: %w", s, err)
	}
	return int32(n), nil
}

func unquote(s string) string {
	return strings.Trim(s, `"'`)
}
