package registry

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"maps"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	protoparserparser "github.com/yoheimuta/go-protoparser/v4/parser"

	"github.com/pbkit/pbkit-sub000/schema"
)

// ErrNotFound is returned by the Get methods when no definition matches.
var ErrNotFound = errors.New("not found")

// Registry allows us to store the schema of the protobuf messages. We look this up when we need to parse or marshal a message.
//
// Lookups are safe for concurrent use. Loads are serialized.
type Registry struct {
	// ProtoDirectories are searched, in order, for files passed to LoadFile
	// and for their imports.
	ProtoDirectories []string

	loadMu   sync.Mutex // guards ProtoDirectories and the parse caches
	mu       sync.RWMutex
	files    map[string]*schema.ProtoFile // file name -> file
	messages map[string]*schema.Message   // fully qualified name -> message
	enums    map[string]*schema.Enum      // fully qualified name -> enum
	services map[string]*schema.Service   // fully qualified name -> service

	parsedProtoBody map[string]*protoparserparser.Proto
	protoEntities   map[string]*protoFileEntity
}

// protoFileEntity records the resolved imports of one loaded file.
type protoFileEntity struct {
	imports []string
}

func NewRegistry(protoDirectories ...string) *Registry {
	return &Registry{
		ProtoDirectories: protoDirectories,
		files:            make(map[string]*schema.ProtoFile),
		messages:         make(map[string]*schema.Message),
		enums:            make(map[string]*schema.Enum),
		services:         make(map[string]*schema.Service),
		parsedProtoBody:  make(map[string]*protoparserparser.Proto),
		protoEntities:    make(map[string]*protoFileEntity),
	}
}

// Register adds files to the registry and resolves every field and method
// type reference to a fully qualified name. Files may reference each other
// in any order as long as all of them are registered together or earlier.
func (r *Registry) Register(files ...*schema.ProtoFile) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, f := range files {
		if _, dup := r.files[f.Name]; dup && f.Name != "" {
			return fmt.Errorf("file %s already registered", f.Name)
		}
	}

	messages, enums, services := maps.Clone(r.messages), maps.Clone(r.enums), maps.Clone(r.services)
	if err := r.buildSymbolTable(files); err != nil {
		r.messages, r.enums, r.services = messages, enums, services
		return err
	}

	for _, f := range files {
		r.files[f.Name] = f
	}
	return nil
}

// buildSymbolTable builds the symbol table from files
func (r *Registry) buildSymbolTable(files []*schema.ProtoFile) error {
	// Pass 1: Register all message and enum names
	for _, f := range files {
		if err := r.registerNames(f); err != nil {
			return err
		}
	}

	// Pass 2: Build all message and enum definitions
	syms := r.symbols()
	for _, f := range files {
		if err := r.buildDefinitions(f, syms); err != nil {
			return fmt.Errorf("%s: %w", f.Name, err)
		}
	}

	// Pass 3: Build services
	for _, f := range files {
		if err := r.buildServices(f, syms); err != nil {
			return fmt.Errorf("%s: %w", f.Name, err)
		}
	}
	return nil
}

// symbols is the set of fully qualified names references resolve against.
type symbols struct {
	messages map[string]struct{}
	enums    map[string]struct{}
	all      map[string]struct{}
}

func (r *Registry) symbols() symbols {
	syms := symbols{messages: keySet(r.messages), enums: keySet(r.enums), all: keySet(r.messages)}
	for name := range syms.enums {
		syms.all[name] = struct{}{}
	}
	return syms
}

// LoadFile parses name, found under ProtoDirectories, together with every
// file it imports, and registers them.
func (r *Registry) LoadFile(name string) error {
	r.loadMu.Lock()
	defer r.loadMu.Unlock()
	return r.loadFile(name)
}

func (r *Registry) loadFile(name string) error {
	paths, err := r.getAllProtoInfo(name)
	if err != nil {
		return err
	}

	files := make([]*schema.ProtoFile, 0, len(paths))
	for _, p := range paths {
		if r.hasFile(r.relativeName(p)) {
			continue
		}
		pf, err := convertProto(r.relativeName(p), r.parsedProtoBody[p])
		if err != nil {
			return fmt.Errorf("%s: %w", p, err)
		}
		files = append(files, pf)
	}
	files = append(files, r.wellKnownImports(files)...)
	return r.Register(files...)
}

// LoadSchema Given a path it will recursively scan all *proto files inside it and register them.
// A directory is added to ProtoDirectories so imports resolve relative to it.
func (r *Registry) LoadSchema(protoPath string) error {
	r.loadMu.Lock()
	defer r.loadMu.Unlock()

	// Check if the path exists
	info, err := os.Stat(protoPath)
	if err != nil {
		return fmt.Errorf("path does not exist: %w", err)
	}

	// If it's a single file, process it directly
	if !info.IsDir() {
		if !strings.HasSuffix(protoPath, ".proto") {
			return fmt.Errorf("file %s is not a .proto file", protoPath)
		}
		r.ProtoDirectories = append(r.ProtoDirectories, filepath.Dir(protoPath))
		return r.loadFile(filepath.Base(protoPath))
	}

	r.ProtoDirectories = append(r.ProtoDirectories, protoPath)
	var names []string
	err = filepath.WalkDir(protoPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		// Skip directories and non-proto files
		if d.IsDir() || !strings.HasSuffix(path, ".proto") {
			return nil
		}
		rel, err := filepath.Rel(protoPath, path)
		if err != nil {
			return err
		}
		names = append(names, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to walk directory: %w", err)
	}

	for _, name := range names {
		if r.hasFile(name) {
			continue
		}
		if err := r.loadFile(name); err != nil {
			return fmt.Errorf("failed to load proto file %s: %w", name, err)
		}
	}
	return nil
}

// Parse reads a single .proto source and registers it under name. Imports
// other than the bundled google/protobuf files must already be registered.
func (r *Registry) Parse(name string, src io.Reader) (*schema.ProtoFile, error) {
	r.loadMu.Lock()
	defer r.loadMu.Unlock()

	parsed, err := parseProto(src)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	pf, err := convertProto(name, parsed)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	files := append([]*schema.ProtoFile{pf}, r.wellKnownImports([]*schema.ProtoFile{pf})...)
	if err := r.Register(files...); err != nil {
		return nil, err
	}
	return pf, nil
}

func (r *Registry) hasFile(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.files[name]
	return ok
}

// relativeName strips the include directory a resolved path was found under,
// giving the name other files import it by.
func (r *Registry) relativeName(p string) string {
	for _, dir := range r.ProtoDirectories {
		if rel, err := filepath.Rel(dir, p); err == nil && !strings.HasPrefix(rel, "..") {
			return filepath.ToSlash(rel)
		}
	}
	return filepath.ToSlash(p)
}

// registerNames registers all message, enum, and service names
func (r *Registry) registerNames(protoFile *schema.ProtoFile) error {
	pkg := protoFile.Package
	// Register messages
	for _, msg := range protoFile.Messages {
		fullName := r.getFullName(pkg, msg.Name)
		if err := r.addMessage(fullName, msg); err != nil {
			return err
		}

		// Register nested types
		if err := r.registerNestedNames(fullName, msg); err != nil {
			return err
		}
	}

	// Register enums
	for _, enum := range protoFile.Enums {
		fullName := r.getFullName(pkg, enum.Name)
		if err := r.addEnum(fullName, enum); err != nil {
			return err
		}
	}

	// Register services
	for _, service := range protoFile.Services {
		r.services[r.getFullName(pkg, service.Name)] = service
	}

	return nil
}

// registerNestedNames registers nested message and enum names
func (r *Registry) registerNestedNames(parentName string, msg *schema.Message) error {
	for _, nestedMsg := range msg.NestedTypes {
		nestedFullName := parentName + "." + nestedMsg.Name
		if err := r.addMessage(nestedFullName, nestedMsg); err != nil {
			return err
		}
		// Recursively register nested types
		if err := r.registerNestedNames(nestedFullName, nestedMsg); err != nil {
			return err
		}
	}

	for _, nestedEnum := range msg.NestedEnums {
		if err := r.addEnum(parentName+"."+nestedEnum.Name, nestedEnum); err != nil {
			return err
		}
	}

	return nil
}

func (r *Registry) addMessage(fullName string, msg *schema.Message) error {
	if _, dup := r.messages[fullName]; dup {
		return fmt.Errorf("duplicate message %s", fullName)
	}
	msg.FullName = fullName
	r.messages[fullName] = msg
	return nil
}

func (r *Registry) addEnum(fullName string, enum *schema.Enum) error {
	if _, dup := r.enums[fullName]; dup {
		return fmt.Errorf("duplicate enum %s", fullName)
	}
	enum.FullName = fullName
	r.enums[fullName] = enum
	return nil
}

// buildDefinitions resolves the type names used by the file's fields.
func (r *Registry) buildDefinitions(protoFile *schema.ProtoFile, syms symbols) error {
	for _, msg := range protoFile.Messages {
		scope := r.getFullName(protoFile.Package, msg.Name)
		if err := r.resolveNested(msg, scope, syms); err != nil {
			return err
		}
	}
	return nil
}

func (r *Registry) resolveNested(msg *schema.Message, scope string, syms symbols) error {
	if err := r.resolveMessageFields(msg, scope, syms); err != nil {
		return err
	}
	for _, nested := range msg.NestedTypes {
		if err := r.resolveNested(nested, scope+"."+nested.Name, syms); err != nil {
			return err
		}
	}
	return nil
}

// resolveMessageFields rewrites message and enum references in msg to fully
// qualified names. A reference parsed from .proto text cannot tell a message
// from an enum, so both kinds are looked up in both tables.
func (r *Registry) resolveMessageFields(msg *schema.Message, scope string, syms symbols) error {
	for _, field := range msg.AllFields() {
		if err := resolveFieldType(&field.Type, scope, syms); err != nil {
			return fmt.Errorf("%s.%s: %w", scope, field.Name, err)
		}
		// only scalars and enums pack
		if field.Type.Kind == schema.KindMessage || field.Type.Kind == schema.KindMap {
			field.Packed = false
		}
	}
	return nil
}

func resolveFieldType(ft *schema.FieldType, scope string, syms symbols) error {
	switch ft.Kind {
	case schema.KindMap:
		if ft.MapKey == nil || ft.MapValue == nil {
			return errors.New("map field without key or value type")
		}
		if ft.MapKey.Kind != schema.KindPrimitive {
			return errors.New("map key must be a scalar type")
		}
		return resolveFieldType(ft.MapValue, scope, syms)
	case schema.KindMessage, schema.KindEnum:
		name := ft.MessageType
		if ft.Kind == schema.KindEnum {
			name = ft.EnumType
		}
		// Messages and enums share one namespace, so the innermost scope
		// holding either wins.
		if fq, err := getReferencedType(name, scope, syms.all); err == nil {
			if _, isEnum := syms.enums[fq]; isEnum {
				*ft = schema.FieldType{Kind: schema.KindEnum, EnumType: fq}
			} else {
				*ft = schema.FieldType{Kind: schema.KindMessage, MessageType: fq}
			}
			return nil
		}
		if ft.Kind == schema.KindEnum {
			return fmt.Errorf("enum type %s not found", name)
		}
		return fmt.Errorf("unknown type %s", name)
	}
	return nil
}

// buildServices resolves method input and output types.
func (r *Registry) buildServices(protoFile *schema.ProtoFile, syms symbols) error {
	messages := syms.messages
	for _, service := range protoFile.Services {
		for _, method := range service.Methods {
			in, err := getReferencedType(method.InputType, protoFile.Package, messages)
			if err != nil {
				return fmt.Errorf("%s.%s: input type %s not found", service.Name, method.Name, method.InputType)
			}
			out, err := getReferencedType(method.OutputType, protoFile.Package, messages)
			if err != nil {
				return fmt.Errorf("%s.%s: output type %s not found", service.Name, method.Name, method.OutputType)
			}
			method.InputType, method.OutputType = in, out
		}
	}
	return nil
}

func keySet[V any](m map[string]V) map[string]struct{} {
	out := make(map[string]struct{}, len(m))
	for k := range m {
		out[k] = struct{}{}
	}
	return out
}

func (r *Registry) getFullName(pkg, name string) string {
	if pkg == "" {
		return name
	}
	return pkg + "." + name
}

// lookup finds name exactly, then as a dot-separated suffix of a registered
// name. An ambiguous suffix picks the lexically smallest match.
func lookup[V any](m map[string]V, name string) (V, bool) {
	name = strings.TrimPrefix(name, ".")
	if v, ok := m[name]; ok {
		return v, true
	}
	var (
		best  string
		found V
		ok    bool
	)
	for fullName, v := range m {
		if strings.HasSuffix(fullName, "."+name) && (!ok || fullName < best) {
			best, found, ok = fullName, v, true
		}
	}
	return found, ok
}

// GetMessage retrieves a message definition by name
func (r *Registry) GetMessage(name string) (*schema.Message, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if msg, ok := lookup(r.messages, name); ok {
		return msg, nil
	}
	return nil, fmt.Errorf("message %s: %w", name, ErrNotFound)
}

// GetEnum retrieves an enum definition by name
func (r *Registry) GetEnum(name string) (*schema.Enum, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if enum, ok := lookup(r.enums, name); ok {
		return enum, nil
	}
	return nil, fmt.Errorf("enum %s: %w", name, ErrNotFound)
}

// GetService retrieves a service definition by name
func (r *Registry) GetService(name string) (*schema.Service, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if service, ok := lookup(r.services, name); ok {
		return service, nil
	}
	return nil, fmt.Errorf("service %s: %w", name, ErrNotFound)
}

// GetFile returns a registered file by the name it was registered or
// imported under.
func (r *Registry) GetFile(name string) (*schema.ProtoFile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if f, ok := r.files[name]; ok {
		return f, nil
	}
	return nil, fmt.Errorf("file %s: %w", name, ErrNotFound)
}

// ListMessages returns all registered message names, sorted
func (r *Registry) ListMessages() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedKeys(r.messages)
}

// ListEnums returns all registered enum names, sorted
func (r *Registry) ListEnums() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedKeys(r.enums)
}

// ListServices returns all registered service names, sorted
func (r *Registry) ListServices() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedKeys(r.services)
}

func sortedKeys[V any](m map[string]V) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// GetOrCreateMapEntryMessage returns the synthetic entry message of a map
// field: key is field 1 and value is field 2. It is named the way protoc names
// it, <FieldName>Entry nested in the parent, and created on first use.
func (r *Registry) GetOrCreateMapEntryMessage(parentFullName string, field *schema.Field) (*schema.Message, error) {
	if !field.IsMap() || field.Type.MapKey == nil || field.Type.MapValue == nil {
		return nil, fmt.Errorf("field %s is not a map", field.Name)
	}
	entryTypeName := parentFullName + "." + mapEntryName(field.Name)

	r.mu.RLock()
	msg, exists := r.messages[entryTypeName]
	r.mu.RUnlock()
	if exists {
		if !msg.MapEntry {
			return nil, fmt.Errorf("%s exists and is not a map entry", entryTypeName)
		}
		return msg, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	// Check if already exists
	if msg, exists := r.messages[entryTypeName]; exists {
		return msg, nil
	}

	// Create synthetic map entry message
	mapEntryMessage := &schema.Message{
		Name:     mapEntryName(field.Name),
		FullName: entryTypeName,
		MapEntry: true,
		Fields: []*schema.Field{
			{
				Name:       "key",
				Number:     1,
				Label:      schema.LabelOptional,
				Type:       *field.Type.MapKey,
				OneofIndex: -1,
			},
			{
				Name:       "value",
				Number:     2,
				Label:      schema.LabelOptional,
				Type:       *field.Type.MapValue,
				OneofIndex: -1,
			},
		},
	}

	// Register it
	r.messages[entryTypeName] = mapEntryMessage
	return mapEntryMessage, nil
}

// mapEntryName is protoc's name for the entry type of a map field:
// "string_tags" becomes "StringTagsEntry".
func mapEntryName(fieldName string) string {
	camel := schema.ToLowerCamel(fieldName)
	if camel != "" && camel[0] >= 'a' && camel[0] <= 'z' {
		camel = string(camel[0]-'a'+'A') + camel[1:]
	}
	return camel + "Entry"
}
