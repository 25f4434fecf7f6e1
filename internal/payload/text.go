package payload

import (
	"fmt"
	"strings"

	"github.com/jhump/protoreflect/desc"
	"github.com/jhump/protoreflect/dynamic"
	"google.golang.org/protobuf/types/descriptorpb"
)

// textProtoPretty renders a decoded protobuf/Sparkplug message as an
// indented, field-by-field text dump, the equivalent of the original's
// TextConverter.
func textProtoPretty(schema *Schema, fqName string, raw []byte) (string, error) {
	if schema == nil {
		return "", ErrProtobufSchemaRequired
	}

	msg, err := schema.Unmarshal(fqName, raw)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	writeMessageText(&sb, msg, 0, nil)
	return sb.String(), nil
}

func writeMessageText(sb *strings.Builder, msg *dynamic.Message, indent int, fieldNumber *int32) {
	name := msg.GetMessageDescriptor().GetFullyQualifiedName()
	if fieldNumber == nil {
		fmt.Fprintf(sb, "%s\n", name)
	} else {
		fmt.Fprintf(sb, "%s[%d] %s\n", strings.Repeat("  ", indent), *fieldNumber, name)
	}

	for _, fd := range msg.GetMessageDescriptor().GetFields() {
		if !msg.HasField(fd) {
			continue
		}
		writeFieldText(sb, msg, fd, indent+1)
	}
}

func writeFieldText(sb *strings.Builder, msg *dynamic.Message, fd *desc.FieldDescriptor, indent int) {
	value := msg.GetField(fd)

	if fd.GetMessageType() != nil {
		if fd.IsRepeated() {
			for _, v := range value.([]interface{}) {
				if nested, ok := v.(*dynamic.Message); ok {
					num := fd.GetNumber()
					writeMessageText(sb, nested, indent, &num)
				}
			}
			return
		}
		if nested, ok := value.(*dynamic.Message); ok {
			num := fd.GetNumber()
			writeMessageText(sb, nested, indent, &num)
		}
		return
	}

	prefix := strings.Repeat("  ", indent)
	typeName := protoTypeName(fd)

	if fd.IsRepeated() {
		for _, v := range value.([]interface{}) {
			fmt.Fprintf(sb, "%s[%d] %s = %v (%s)\n", prefix, fd.GetNumber(), fd.GetName(), v, typeName)
		}
		return
	}

	fmt.Fprintf(sb, "%s[%d] %s = %v (%s)\n", prefix, fd.GetNumber(), fd.GetName(), value, typeName)
}

func protoTypeName(fd *desc.FieldDescriptor) string {
	switch fd.GetType() {
	case descriptorpb.FieldDescriptorProto_TYPE_DOUBLE:
		return "Double"
	case descriptorpb.FieldDescriptorProto_TYPE_FLOAT:
		return "Float"
	case descriptorpb.FieldDescriptorProto_TYPE_INT64:
		return "Int64"
	case descriptorpb.FieldDescriptorProto_TYPE_UINT64:
		return "UInt64"
	case descriptorpb.FieldDescriptorProto_TYPE_INT32:
		return "Int32"
	case descriptorpb.FieldDescriptorProto_TYPE_FIXED64:
		return "Fixed64"
	case descriptorpb.FieldDescriptorProto_TYPE_FIXED32:
		return "Fixed32"
	case descriptorpb.FieldDescriptorProto_TYPE_BOOL:
		return "Bool"
	case descriptorpb.FieldDescriptorProto_TYPE_STRING:
		return "String"
	case descriptorpb.FieldDescriptorProto_TYPE_BYTES:
		return "Bytes"
	case descriptorpb.FieldDescriptorProto_TYPE_UINT32:
		return "UInt32"
	case descriptorpb.FieldDescriptorProto_TYPE_SFIXED32:
		return "SFixed32"
	case descriptorpb.FieldDescriptorProto_TYPE_SFIXED64:
		return "SFixed64"
	case descriptorpb.FieldDescriptorProto_TYPE_SINT32:
		return "SInt32"
	case descriptorpb.FieldDescriptorProto_TYPE_SINT64:
		return "SInt64"
	case descriptorpb.FieldDescriptorProto_TYPE_ENUM:
		return "Enum"
	default:
		return "Unknown"
	}
}
