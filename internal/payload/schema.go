package payload

import (
	"fmt"

	"github.com/jhump/protoreflect/desc"
	"github.com/jhump/protoreflect/desc/protoparse"
	"github.com/jhump/protoreflect/dynamic"
)

// Schema compiles a .proto file at config-load time and hands out dynamic
// message instances by fully-qualified name. It is the vehicle for both the
// generic Protobuf payload kind (C1) and the Sparkplug B codec (C8), which
// compiles an embedded schema instead of a user-supplied one.
type Schema struct {
	files map[string]*desc.FileDescriptor
}

// CompileFile parses and type-checks protoFile (resolving imports against
// importPaths) and returns a Schema that can produce messages declared in it.
func CompileFile(importPaths []string, protoFile string) (*Schema, error) {
	parser := protoparse.Parser{
		ImportPaths:           importPaths,
		IncludeSourceCodeInfo: false,
	}

	fds, err := parser.ParseFiles(protoFile)
	if err != nil {
		return nil, fmt.Errorf("payload: compiling proto schema %s: %w", protoFile, err)
	}

	s := &Schema{files: make(map[string]*desc.FileDescriptor)}
	for _, fd := range fds {
		s.files[fd.GetName()] = fd
	}
	return s, nil
}

// CompileSource parses protoSource (already read into memory, e.g. an
// embedded schema) under the given virtual filename.
func CompileSource(filename, protoSource string) (*Schema, error) {
	parser := protoparse.Parser{
		Accessor: protoparse.FileContentsFromMap(map[string]string{filename: protoSource}),
	}

	fds, err := parser.ParseFiles(filename)
	if err != nil {
		return nil, fmt.Errorf("payload: compiling embedded proto schema: %w", err)
	}

	s := &Schema{files: make(map[string]*desc.FileDescriptor)}
	for _, fd := range fds {
		s.files[fd.GetName()] = fd
	}
	return s, nil
}

// Merge folds other's compiled files into s, so a single Schema can resolve
// messages from more than one compiled source (e.g. a user-supplied .proto
// and the embedded Sparkplug B schema).
func (s *Schema) Merge(other *Schema) {
	for name, fd := range other.files {
		s.files[name] = fd
	}
}

// MessageDescriptor finds a message by its fully-qualified name across all
// compiled files.
func (s *Schema) MessageDescriptor(fqName string) (*desc.MessageDescriptor, error) {
	for _, fd := range s.files {
		if md := fd.FindMessage(fqName); md != nil {
			return md, nil
		}
		for _, md := range fd.GetMessageTypes() {
			if found := findNested(md, fqName); found != nil {
				return found, nil
			}
		}
	}
	return nil, fmt.Errorf("payload: message %q not found in schema", fqName)
}

func findNested(md *desc.MessageDescriptor, fqName string) *desc.MessageDescriptor {
	if md.GetFullyQualifiedName() == fqName {
		return md
	}
	for _, nested := range md.GetNestedMessageTypes() {
		if found := findNested(nested, fqName); found != nil {
			return found
		}
	}
	return nil
}

// NewMessage returns an empty dynamic message for the named type.
func (s *Schema) NewMessage(fqName string) (*dynamic.Message, error) {
	md, err := s.MessageDescriptor(fqName)
	if err != nil {
		return nil, err
	}
	return dynamic.NewMessage(md), nil
}

// Unmarshal decodes wire-format bytes into a dynamic message of the named type.
func (s *Schema) Unmarshal(fqName string, data []byte) (*dynamic.Message, error) {
	msg, err := s.NewMessage(fqName)
	if err != nil {
		return nil, err
	}
	if err := msg.Unmarshal(data); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProtobufDecode, err)
	}
	return msg, nil
}

// MarshalFromJSON encodes a dynamic message of the named type built from JSON text.
func (s *Schema) MarshalFromJSON(fqName string, jsonText string) ([]byte, error) {
	msg, err := s.NewMessage(fqName)
	if err != nil {
		return nil, err
	}
	if err := msg.UnmarshalJSON([]byte(jsonText)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProtobufEncode, err)
	}
	return msg.Marshal()
}

// ToJSON decodes wire-format bytes and re-encodes them as JSON text.
func (s *Schema) ToJSON(fqName string, data []byte) (string, error) {
	msg, err := s.Unmarshal(fqName, data)
	if err != nil {
		return "", err
	}
	b, err := msg.MarshalJSON()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrProtobufEncode, err)
	}
	return string(b), nil
}
