package handler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kaans/mqtli/internal/config"
	"github.com/kaans/mqtli/internal/filter"
	"github.com/kaans/mqtli/internal/mqttservice"
	"github.com/kaans/mqtli/internal/payload"
)

type recordingSink struct {
	events []MessageEvent
}

func (r *recordingSink) Handle(e MessageEvent) {
	r.events = append(r.events, e)
}

func TestHandleIncomingEmitsUnfilteredThenFiltered(t *testing.T) {
	topics := []config.Topic{
		{
			Topic:       "sensors/+/temperature",
			PayloadType: payload.KindJson,
			Subscription: &config.Subscription{
				Enabled: true,
				Filters: []filter.Filter{{Kind: filter.KindExtractJSON, JSONPath: "$.value"}},
			},
		},
	}

	sink := &recordingSink{}
	h := New(topics, nil, []Sink{sink}, nil)

	h.HandleIncoming(mqttservice.ReceiveEvent{
		Topic:   "sensors/room1/temperature",
		Payload: []byte(`{"value":21.5}`),
	})

	require.Len(t, sink.events, 2)
	assert.Equal(t, EventUnfiltered, sink.events[0].Kind)
	assert.Equal(t, EventFiltered, sink.events[1].Kind)
	assert.Equal(t, "21.5", sink.events[1].Payload.Text)
}

func TestHandleIncomingSkipsDisabledSubscription(t *testing.T) {
	topics := []config.Topic{
		{
			Topic:       "a/b",
			PayloadType: payload.KindText,
			Subscription: &config.Subscription{Enabled: false},
		},
	}

	sink := &recordingSink{}
	h := New(topics, nil, []Sink{sink}, nil)
	h.HandleIncoming(mqttservice.ReceiveEvent{Topic: "a/b", Payload: []byte("hi")})

	assert.Empty(t, sink.events)
}

func TestHandleIncomingSkipsNonMatchingTopic(t *testing.T) {
	topics := []config.Topic{
		{
			Topic:        "a/b",
			PayloadType:  payload.KindText,
			Subscription: &config.Subscription{Enabled: true},
		},
	}

	sink := &recordingSink{}
	h := New(topics, nil, []Sink{sink}, nil)
	h.HandleIncoming(mqttservice.ReceiveEvent{Topic: "c/d", Payload: []byte("hi")})

	assert.Empty(t, sink.events)
}
