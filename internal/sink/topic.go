package sink

import (
	"context"
	"errors"

	"github.com/kaans/mqtli/internal/config"
	"github.com/kaans/mqtli/internal/mqttservice"
	"github.com/kaans/mqtli/internal/payload"
)

var errNoMqttServiceForTopicOutput = errors.New("sink: topic output configured but no mqtt service is available")

// writeTopic republishes the converted payload to another topic via the
// shared MqttService, per spec.md 4.9.
func writeTopic(svc mqttservice.MqttService, target config.OutputTargetTopic, converted payload.Format) error {
	if svc == nil {
		return errNoMqttServiceForTopicOutput
	}

	body, err := converted.Bytes()
	if err != nil {
		return err
	}

	return svc.Publish(context.Background(), mqttservice.PublishEvent{
		Topic:   target.Topic,
		Qos:     target.Qos,
		Retain:  target.Retain,
		Payload: body,
	})
}
