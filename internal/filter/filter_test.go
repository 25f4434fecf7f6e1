package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kaans/mqtli/internal/payload"
)

func TestToTextCoercesBinary(t *testing.T) {
	in := []payload.Format{payload.NewRaw([]byte("hello"))}
	out, err := Apply([]Filter{{Kind: KindToText}}, in)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, payload.KindText, out[0].Kind)
	assert.Equal(t, "hello", out[0].Text)
}

func TestToJSONCoerces(t *testing.T) {
	in := []payload.Format{payload.NewText(`{"a":1}`)}
	out, err := Apply([]Filter{{Kind: KindToJSON}}, in)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, payload.KindJson, out[0].Kind)
}

func TestToUpperAndLower(t *testing.T) {
	in := []payload.Format{payload.NewText("Hello")}

	up, err := Apply([]Filter{{Kind: KindToUpperCase}}, in)
	require.NoError(t, err)
	assert.Equal(t, "HELLO", up[0].Text)

	down, err := Apply([]Filter{{Kind: KindToLowerCase}}, in)
	require.NoError(t, err)
	assert.Equal(t, "hello", down[0].Text)
}

func TestExtractJSONSingleValue(t *testing.T) {
	in := []payload.Format{payload.NewText(`{"name":"sensor-1","value":42}`)}
	out, err := Apply([]Filter{{Kind: KindExtractJSON, JSONPath: "$.name"}}, in)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.JSONEq(t, `"sensor-1"`, out[0].Text)
}

func TestExtractJSONFansOutArray(t *testing.T) {
	in := []payload.Format{payload.NewText(`{"items":[{"v":1},{"v":2},{"v":3}]}`)}
	out, err := Apply([]Filter{{Kind: KindExtractJSON, JSONPath: "$.items"}}, in)
	require.NoError(t, err)
	require.Len(t, out, 3)
}

func TestPipelineThreadsSequentially(t *testing.T) {
	in := []payload.Format{payload.NewText(`{"name":"Sensor-1"}`)}
	out, err := Apply([]Filter{
		{Kind: KindExtractJSON, JSONPath: "$.name"},
		{Kind: KindToText},
		{Kind: KindToLowerCase},
	}, in)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, `"sensor-1"`, out[0].Text)
}

func TestExtractJSONNoMatchYieldsEmpty(t *testing.T) {
	in := []payload.Format{payload.NewText(`{"a":1}`)}
	out, err := Apply([]Filter{{Kind: KindExtractJSON, JSONPath: "$.missing.deeper"}}, in)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestExtractJSONMalformedPathErrors(t *testing.T) {
	in := []payload.Format{payload.NewText(`{"a":1}`)}
	_, err := Apply([]Filter{{Kind: KindExtractJSON, JSONPath: "$["}}, in)
	assert.ErrorIs(t, err, ErrWrongJSONPath)
}
