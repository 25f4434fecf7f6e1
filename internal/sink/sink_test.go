package sink

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kaans/mqtli/internal/config"
	"github.com/kaans/mqtli/internal/handler"
	"github.com/kaans/mqtli/internal/payload"
)

func TestDispatcherIgnoresUnfilteredEvents(t *testing.T) {
	d := New(nil, nil, nil)

	d.Handle(handler.MessageEvent{
		Kind: handler.EventUnfiltered,
		Topic: config.Topic{
			Topic: "a/b",
			Subscription: &config.Subscription{
				Enabled: true,
				Outputs: []config.Output{{Format: payload.KindText, Target: config.OutputTarget{Console: &struct{}{}}}},
			},
		},
		Payload: payload.NewText("hello"),
	})
}

func TestDispatcherSkipsWhenNoSubscription(t *testing.T) {
	d := New(nil, nil, nil)

	d.Handle(handler.MessageEvent{
		Kind:  handler.EventFiltered,
		Topic: config.Topic{Topic: "a/b"},
	})
}

func TestQuoteSQLLiteralEscapesSingleQuotes(t *testing.T) {
	assert.Equal(t, "'it''s'", quoteSQLLiteral("it's"))
}

func TestCommonTokensIncludesPayloadAndTopic(t *testing.T) {
	tokens := commonTokens(handler.MessageEvent{
		IncomingTopic:  "a/b",
		IncomingQos:    1,
		IncomingRetain: true,
	}, payload.NewText("body"))

	assert.Equal(t, "a/b", tokens["topic"].str)
	assert.Equal(t, "1", tokens["qos"].str)
	assert.Equal(t, "true", tokens["retain"].str)
	assert.Equal(t, []byte("body"), tokens["payload"].bytes)
}

func TestMergeTokensOverlayWins(t *testing.T) {
	base := map[string]tokenValue{"a": {str: "1"}, "b": {str: "2"}}
	overlay := map[string]tokenValue{"b": {str: "3"}}

	merged := mergeTokens(base, overlay)
	assert.Equal(t, "1", merged["a"].str)
	assert.Equal(t, "3", merged["b"].str)
}
