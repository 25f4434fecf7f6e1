package payload

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSensorProto = `
syntax = "proto3";
package testpb;

message Sensor {
  string name = 1;
  int32 value = 2;
}
`

func testSchema(t *testing.T) *Schema {
	t.Helper()
	s, err := CompileSource("sensor.proto", testSensorProto)
	require.NoError(t, err)
	return s
}

func TestConvertTextToHexAndBack(t *testing.T) {
	in := NewText("hello")

	hex, err := Convert(in, KindHex, nil)
	require.NoError(t, err)
	assert.Equal(t, "68656c6c6f", hex.Text)

	back, err := Convert(hex, KindText, nil)
	require.NoError(t, err)
	assert.Equal(t, "hello", back.Text)
}

func TestConvertTextToBase64AndBack(t *testing.T) {
	in := NewText("hello world")

	b64, err := Convert(in, KindBase64, nil)
	require.NoError(t, err)
	assert.Equal(t, "aGVsbG8gd29ybGQ=", b64.Text)

	back, err := Convert(b64, KindText, nil)
	require.NoError(t, err)
	assert.Equal(t, "hello world", back.Text)
}

func TestConvertJSONToYAMLAndBack(t *testing.T) {
	in := Format{Kind: KindJson, Text: `{"a":1,"b":"two"}`}

	y, err := Convert(in, KindYaml, nil)
	require.NoError(t, err)
	assert.Contains(t, y.Text, "a: 1")

	back, err := Convert(y, KindJson, nil)
	require.NoError(t, err)
	assert.Contains(t, back.Text, `"a":1`)
}

func TestConvertInvalidJSONFails(t *testing.T) {
	in := NewText("not json")
	_, err := Convert(in, KindJson, nil)
	assert.ErrorIs(t, err, ErrInvalidJSON)
}

func TestConvertRawIsLossyTextButNeverFails(t *testing.T) {
	in := NewRaw([]byte{0xff, 0xfe, 'h', 'i'})
	s, err := Convert(in, KindText, nil)
	require.NoError(t, err)
	assert.Contains(t, s.Text, "hi")
}

func TestConvertIdentityIsNoop(t *testing.T) {
	in := NewText("same")
	out, err := Convert(in, KindText, nil)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestHexFormatWithInvalidTextFailsBytes(t *testing.T) {
	_, err := Parse(KindHex, "", nil, nil)
	require.NoError(t, err)

	in := Format{Kind: KindHex, Text: "zzz"}
	_, err = in.Bytes()
	assert.ErrorIs(t, err, ErrInvalidHex)
}

func TestPublishInputDefaultsToEmptyText(t *testing.T) {
	in := PublishInput{Kind: KindText}
	f, err := in.Resolve(nil)
	require.NoError(t, err)
	assert.Equal(t, KindText, f.Kind)
	assert.Equal(t, "", f.Text)
}

func TestConvertJSONToProtobufAndBack(t *testing.T) {
	schema := testSchema(t)
	in := Format{Kind: KindJson, Text: `{"name":"sensor-1","value":42}`, ProtoMessage: "testpb.Sensor"}

	wire, err := Convert(in, KindProtobuf, schema)
	require.NoError(t, err)
	assert.Equal(t, KindProtobuf, wire.Kind)

	wantMsg, err := schema.NewMessage("testpb.Sensor")
	require.NoError(t, err)
	require.NoError(t, wantMsg.UnmarshalJSON([]byte(in.Text)))
	wantBytes, err := wantMsg.Marshal()
	require.NoError(t, err)
	assert.Equal(t, wantBytes, wire.Raw)

	back, err := Convert(wire, KindJson, schema)
	require.NoError(t, err)
	assert.JSONEq(t, in.Text, back.Text)
}

func TestConvertYAMLToProtobufViaJSON(t *testing.T) {
	schema := testSchema(t)
	in := Format{Kind: KindYaml, Text: "name: sensor-1\nvalue: 42\n", ProtoMessage: "testpb.Sensor"}

	wire, err := Convert(in, KindProtobuf, schema)
	require.NoError(t, err)

	back, err := Convert(wire, KindJson, schema)
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"sensor-1","value":42}`, back.Text)
}

func TestConvertProtobufSparkplugReparse(t *testing.T) {
	schema := testSchema(t)
	wire, err := Convert(Format{Kind: KindJson, Text: `{"name":"sensor-1","value":42}`, ProtoMessage: "testpb.Sensor"}, KindProtobuf, schema)
	require.NoError(t, err)

	reparsed, err := Convert(wire, KindSparkplug, schema)
	require.NoError(t, err)
	assert.Equal(t, KindSparkplug, reparsed.Kind)
	assert.Equal(t, wire.Raw, reparsed.Raw)

	back, err := Convert(reparsed, KindProtobuf, schema)
	require.NoError(t, err)
	assert.Equal(t, wire.Raw, back.Raw)
}

func TestConvertProtobufToTextProtoPretty(t *testing.T) {
	schema := testSchema(t)
	wire, err := Convert(Format{Kind: KindJson, Text: `{"name":"sensor-1","value":42}`, ProtoMessage: "testpb.Sensor"}, KindProtobuf, schema)
	require.NoError(t, err)

	text, err := wire.String(schema)
	require.NoError(t, err)
	assert.Contains(t, text, "testpb.Sensor")
	assert.Contains(t, text, "name = sensor-1")
	assert.Contains(t, text, "value = 42")
}

func TestPublishInputPrefersInlineContent(t *testing.T) {
	in := PublishInput{Kind: KindText, Content: "inline", Path: "/does/not/exist"}
	f, err := in.Resolve(nil)
	require.NoError(t, err)
	assert.Equal(t, "inline", f.Text)
}
