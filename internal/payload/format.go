// Package payload implements the payload format model (C1): a closed set of
// wire/display representations for MQTT message bodies and the total
// conversion function between them.
package payload

import "errors"

// Kind identifies one of the supported payload representations.
type Kind string

const (
	KindText          Kind = "text"
	KindRaw            Kind = "raw"
	KindHex            Kind = "hex"
	KindBase64          Kind = "base64"
	KindJson            Kind = "json"
	KindYaml            Kind = "yaml"
	KindProtobuf        Kind = "protobuf"
	KindSparkplug       Kind = "sparkplug"
	KindSparkplugJson   Kind = "sparkplug_json"
)

var (
	// ErrUnknownKind is returned for a payload type name that isn't one of
	// the Kind constants.
	ErrUnknownKind = errors.New("payload: unknown format kind")
	// ErrInvalidUTF8 reports content that is not valid UTF-8. The
	// conversions in this package do not return it: coercing binary
	// content to Text replaces invalid sequences instead (see String).
	ErrInvalidUTF8 = errors.New("payload: content is not valid UTF-8")
	// ErrInvalidHex is returned when Hex-decoding fails.
	ErrInvalidHex = errors.New("payload: invalid hex content")
	// ErrInvalidBase64 is returned when Base64-decoding fails.
	ErrInvalidBase64 = errors.New("payload: invalid base64 content")
	// ErrInvalidJSON is returned when content claimed to be JSON fails to parse.
	ErrInvalidJSON = errors.New("payload: invalid json content")
	// ErrInvalidYAML is returned when content claimed to be YAML fails to parse.
	ErrInvalidYAML = errors.New("payload: invalid yaml content")
	// ErrProtobufSchemaRequired is returned when a Protobuf conversion is
	// attempted without a compiled message descriptor configured.
	ErrProtobufSchemaRequired = errors.New("payload: protobuf conversion requires a schema and message name")
	// ErrProtobufDecode is returned when protobuf unmarshaling fails.
	ErrProtobufDecode = errors.New("payload: failed to decode protobuf message")
	// ErrProtobufEncode is returned when protobuf marshaling fails.
	ErrProtobufEncode = errors.New("payload: failed to encode protobuf message")
	// ErrSparkplugDecode is returned when a Sparkplug B payload fails to parse.
	ErrSparkplugDecode = errors.New("payload: failed to decode sparkplug payload")
	// ErrUnsupportedConversion is returned for a (source, target) pair that
	// has no defined conversion.
	ErrUnsupportedConversion = errors.New("payload: unsupported conversion")
)

// Format is a tagged union over the supported payload representations. Only
// one of the Content fields is meaningful at a time, selected by Kind; this
// mirrors the sealed-enum shape of the original PayloadFormat type while
// staying a plain Go struct (accept-interfaces/return-structs).
type Format struct {
	Kind Kind

	// Raw holds the byte-exact content for Raw, Protobuf and Sparkplug kinds.
	Raw []byte

	// Text holds decoded text for Text, Json, Yaml and SparkplugJson kinds.
	Text string

	// ProtoMessage is the fully-qualified message name used by Protobuf and
	// Sparkplug conversions to select a descriptor. Empty for other kinds.
	ProtoMessage string
}

// NewText constructs a Text-kind Format.
func NewText(s string) Format { return Format{Kind: KindText, Text: s} }

// NewRaw constructs a Raw-kind Format.
func NewRaw(b []byte) Format { return Format{Kind: KindRaw, Raw: b} }

// Bytes returns the canonical byte representation of the format, the
// equivalent of the original's TryFrom<PayloadFormat> for Vec<u8>. For Hex
// and Base64, Text holds the encoded string and Bytes decodes it.
func (f Format) Bytes() ([]byte, error) {
	switch f.Kind {
	case KindRaw, KindProtobuf, KindSparkplug:
		return f.Raw, nil
	case KindText, KindJson, KindYaml, KindSparkplugJson:
		return []byte(f.Text), nil
	case KindHex:
		return decodeHex(f.Text)
	case KindBase64:
		return decodeBase64(f.Text)
	default:
		return nil, ErrUnknownKind
	}
}

// String returns the human-readable string representation, the equivalent of
// TryInto<String> for PayloadFormat. Raw is lossily converted via UTF-8
// (invalid sequences are replaced), matching the original's behavior of
// never failing this direction. Protobuf/Sparkplug render as an indented,
// field-by-field text dump (text-proto-pretty), which requires schema to
// resolve the message descriptor.
func (f Format) String(schema *Schema) (string, error) {
	switch f.Kind {
	case KindText, KindJson, KindYaml, KindHex, KindBase64, KindSparkplugJson:
		return f.Text, nil
	case KindRaw:
		return sanitizeUTF8(f.Raw), nil
	case KindProtobuf, KindSparkplug:
		return textProtoPretty(schema, f.ProtoMessage, f.Raw)
	default:
		return "", ErrUnknownKind
	}
}
