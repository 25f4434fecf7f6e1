package payload

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Parse builds a Format of kind from raw wire bytes, the equivalent of the
// original's TryFrom<(PayloadType, Vec<u8>)> for PayloadFormat: "parse these
// bytes as this declared type". schema is only consulted for Protobuf and
// Sparkplug kinds and may be nil otherwise.
func Parse(kind Kind, protoMessage string, data []byte, schema *Schema) (Format, error) {
	switch kind {
	case KindText:
		return NewText(sanitizeUTF8(data)), nil
	case KindRaw:
		return NewRaw(data), nil
	case KindHex:
		return Format{Kind: KindHex, Text: encodeHex(data)}, nil
	case KindBase64:
		return Format{Kind: KindBase64, Text: encodeBase64(data)}, nil
	case KindJson:
		if !json.Valid(data) {
			return Format{}, ErrInvalidJSON
		}
		return Format{Kind: KindJson, Text: string(data)}, nil
	case KindYaml:
		var probe any
		if err := yaml.Unmarshal(data, &probe); err != nil {
			return Format{}, ErrInvalidYAML
		}
		return Format{Kind: KindYaml, Text: string(data)}, nil
	case KindProtobuf:
		if schema == nil || protoMessage == "" {
			return Format{}, ErrProtobufSchemaRequired
		}
		if _, err := schema.Unmarshal(protoMessage, data); err != nil {
			return Format{}, err
		}
		return Format{Kind: KindProtobuf, Raw: data, ProtoMessage: protoMessage}, nil
	case KindSparkplug:
		if schema == nil {
			return Format{}, ErrProtobufSchemaRequired
		}
		if _, err := schema.Unmarshal(protoMessage, data); err != nil {
			return Format{}, fmt.Errorf("%w: %v", ErrSparkplugDecode, err)
		}
		return Format{Kind: KindSparkplug, Raw: data, ProtoMessage: protoMessage}, nil
	default:
		return Format{}, ErrUnknownKind
	}
}

// Convert produces a Format of the target kind from in, the equivalent of
// the original's TryFrom<(PayloadFormat, &PayloadType)> for PayloadFormat.
// This is a total dispatch over every (source, target) pair; unreachable
// pairs return ErrUnsupportedConversion.
func Convert(in Format, target Kind, schema *Schema) (Format, error) {
	if in.Kind == target {
		return in, nil
	}

	switch target {
	case KindText:
		if in.Kind == KindHex || in.Kind == KindBase64 {
			b, err := in.Bytes()
			if err != nil {
				return Format{}, err
			}
			return NewText(sanitizeUTF8(b)), nil
		}
		s, err := in.String(schema)
		if err != nil {
			return Format{}, err
		}
		return NewText(s), nil
	case KindRaw:
		b, err := in.Bytes()
		if err != nil {
			return Format{}, err
		}
		return NewRaw(b), nil
	case KindHex:
		b, err := in.Bytes()
		if err != nil {
			return Format{}, err
		}
		return Format{Kind: KindHex, Text: encodeHex(b)}, nil
	case KindBase64:
		b, err := in.Bytes()
		if err != nil {
			return Format{}, err
		}
		return Format{Kind: KindBase64, Text: encodeBase64(b)}, nil
	case KindJson:
		return convertToJSON(in, schema)
	case KindYaml:
		return convertToYAML(in, schema)
	case KindProtobuf, KindSparkplug:
		return convertToProto(in, target, schema)
	case KindSparkplugJson:
		return convertToSparkplugJSON(in, schema)
	default:
		return Format{}, ErrUnknownKind
	}
}

func convertToJSON(in Format, schema *Schema) (Format, error) {
	switch in.Kind {
	case KindYaml:
		var v any
		if err := yaml.Unmarshal([]byte(in.Text), &v); err != nil {
			return Format{}, ErrInvalidYAML
		}
		b, err := json.Marshal(normalizeYAMLMaps(v))
		if err != nil {
			return Format{}, fmt.Errorf("%w: %v", ErrInvalidJSON, err)
		}
		return Format{Kind: KindJson, Text: string(b)}, nil
	case KindProtobuf, KindSparkplug:
		text, err := schema.ToJSON(in.ProtoMessage, in.Raw)
		if err != nil {
			return Format{}, err
		}
		return Format{Kind: KindJson, Text: text}, nil
	default:
		s, err := in.String(schema)
		if err != nil {
			return Format{}, err
		}
		if !json.Valid([]byte(s)) {
			return Format{}, ErrInvalidJSON
		}
		return Format{Kind: KindJson, Text: s}, nil
	}
}

func convertToYAML(in Format, schema *Schema) (Format, error) {
	switch in.Kind {
	case KindJson:
		var v any
		if err := json.Unmarshal([]byte(in.Text), &v); err != nil {
			return Format{}, ErrInvalidJSON
		}
		b, err := yaml.Marshal(v)
		if err != nil {
			return Format{}, fmt.Errorf("%w: %v", ErrInvalidYAML, err)
		}
		return Format{Kind: KindYaml, Text: string(b)}, nil
	case KindProtobuf, KindSparkplug:
		asJSON, err := convertToJSON(in, schema)
		if err != nil {
			return Format{}, err
		}
		return convertToYAML(asJSON, schema)
	default:
		s, err := in.String(schema)
		if err != nil {
			return Format{}, err
		}
		var probe any
		if err := yaml.Unmarshal([]byte(s), &probe); err != nil {
			return Format{}, ErrInvalidYAML
		}
		return Format{Kind: KindYaml, Text: s}, nil
	}
}

func convertToProto(in Format, target Kind, schema *Schema) (Format, error) {
	if schema == nil || in.ProtoMessage == "" {
		if in.Kind != KindProtobuf && in.Kind != KindSparkplug {
			return Format{}, ErrProtobufSchemaRequired
		}
	}

	switch in.Kind {
	case KindJson, KindSparkplugJson:
		b, err := schema.MarshalFromJSON(in.ProtoMessage, in.Text)
		if err != nil {
			return Format{}, err
		}
		return Format{Kind: target, Raw: b, ProtoMessage: in.ProtoMessage}, nil
	case KindYaml:
		asJSON, err := convertToJSON(in, schema)
		if err != nil {
			return Format{}, err
		}
		asJSON.ProtoMessage = in.ProtoMessage
		return convertToProto(asJSON, target, schema)
	case KindRaw, KindHex, KindBase64:
		b, err := in.Bytes()
		if err != nil {
			return Format{}, err
		}
		if _, err := schema.Unmarshal(in.ProtoMessage, b); err != nil {
			return Format{}, err
		}
		return Format{Kind: target, Raw: b, ProtoMessage: in.ProtoMessage}, nil
	case KindProtobuf, KindSparkplug:
		// re-parse: check that the same wire bytes still decode as the
		// source's message and relabel them with the target kind; the
		// message name is carried over unchanged.
		if _, err := schema.Unmarshal(in.ProtoMessage, in.Raw); err != nil {
			return Format{}, err
		}
		return Format{Kind: target, Raw: in.Raw, ProtoMessage: in.ProtoMessage}, nil
	default:
		return Format{}, ErrUnsupportedConversion
	}
}

func convertToSparkplugJSON(in Format, schema *Schema) (Format, error) {
	switch in.Kind {
	case KindSparkplug, KindProtobuf:
		text, err := schema.ToJSON(in.ProtoMessage, in.Raw)
		if err != nil {
			return Format{}, err
		}
		return Format{Kind: KindSparkplugJson, Text: text, ProtoMessage: in.ProtoMessage}, nil
	default:
		return Format{}, ErrUnsupportedConversion
	}
}

// normalizeYAMLMaps recursively walks the map[string]interface{} and
// []interface{} values yaml.v3 decodes. Maps with non-string keys
// (map[interface{}]interface{}) are left as they are, so encoding/json
// fails on them and the conversion returns ErrInvalidJSON.
func normalizeYAMLMaps(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, vv := range val {
			out[k] = normalizeYAMLMaps(vv)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, vv := range val {
			out[i] = normalizeYAMLMaps(vv)
		}
		return out
	default:
		return v
	}
}
