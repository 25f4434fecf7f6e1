// Package handler implements the event handler (C6): for every subscribed
// topic pattern matching an incoming message, converts the payload to the
// topic's configured type and emits an unfiltered event, then runs the
// subscription's filter pipeline and emits each resulting filtered payload,
// grounded on the original mqtt_handler.rs's handle_incoming_message.
package handler

import (
	"github.com/sirupsen/logrus"

	"github.com/kaans/mqtli/internal/config"
	"github.com/kaans/mqtli/internal/filter"
	"github.com/kaans/mqtli/internal/metrics"
	"github.com/kaans/mqtli/internal/mqttservice"
	"github.com/kaans/mqtli/internal/payload"
	"github.com/kaans/mqtli/internal/topic"
)

// EventKind distinguishes the two event shapes emitted per match.
type EventKind int

const (
	EventUnfiltered EventKind = iota
	EventFiltered
)

// MessageEvent is what the handler passes to each of its sinks.
type MessageEvent struct {
	Kind           EventKind
	IncomingTopic  string
	IncomingQos    mqttservice.QoS
	IncomingRetain bool
	Topic          config.Topic
	Payload        payload.Format
}

// Sink receives every emitted MessageEvent; internal/sink implementations
// satisfy this.
type Sink interface {
	Handle(MessageEvent)
}

// Handler dispatches inbound broker messages to matching topic
// configurations.
type Handler struct {
	topics []config.Topic
	schema *payload.Schema
	sinks  []Sink
	log    logrus.FieldLogger
}

// New constructs a Handler for the given topic configurations.
func New(topics []config.Topic, schema *payload.Schema, sinks []Sink, log logrus.FieldLogger) *Handler {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Handler{topics: topics, schema: schema, sinks: sinks, log: log}
}

// HandleIncoming dispatches one inbound broker message to every enabled
// subscription whose topic pattern matches it, emitting the unfiltered event
// and then one filtered event per filter pipeline result.
func (h *Handler) HandleIncoming(event mqttservice.ReceiveEvent) {
	for _, t := range h.topics {
		if t.Subscription == nil || !t.Subscription.Enabled {
			continue
		}
		if !topic.Contains(t.Topic, event.Topic) {
			continue
		}

		metrics.MessagesReceivedTotal.WithLabelValues(metrics.SanitizeTopic(t.Topic)).Inc()

		converted, err := payload.Parse(t.PayloadType, t.ProtoMessage, event.Payload, h.schema)
		if err != nil {
			metrics.PayloadConversionErrorsTotal.WithLabelValues("decode", string(t.PayloadType)).Inc()
			h.log.WithError(err).WithFields(logrus.Fields{
				"topic":   event.Topic,
				"pattern": t.Topic,
			}).Error("failed to convert incoming payload")
			continue
		}

		base := MessageEvent{
			IncomingTopic:  event.Topic,
			IncomingQos:    event.Qos,
			IncomingRetain: event.Retain,
			Topic:          t,
		}

		unfiltered := base
		unfiltered.Kind = EventUnfiltered
		unfiltered.Payload = converted
		h.emit(unfiltered)

		filtered, err := filter.Apply(t.Subscription.Filters, []payload.Format{converted})
		if err != nil {
			metrics.FilterErrorsTotal.WithLabelValues(metrics.SanitizeTopic(t.Topic)).Inc()
			h.log.WithError(err).WithField("topic", event.Topic).Error("failed to apply filters")
			continue
		}

		for _, out := range filtered {
			fe := base
			fe.Kind = EventFiltered
			fe.Payload = out
			h.emit(fe)
		}
	}
}

func (h *Handler) emit(event MessageEvent) {
	for _, sink := range h.sinks {
		sink.Handle(event)
	}
}
