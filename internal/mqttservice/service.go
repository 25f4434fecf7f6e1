// Package mqttservice implements the MQTT service facade (C5): a
// version-agnostic connect/publish/subscribe boundary backed by either
// paho.mqtt.golang (v3.1.1) or paho.golang/autopaho (v5), with shared TLS
// and transport setup grounded on the original mqtt module's
// configure_tls_rustls/get_transport_parameters.
package mqttservice

import (
	"context"
	"errors"

	cfg "github.com/kaans/mqtli/internal/config"
)

var (
	ErrCaCertificateMustBePresent = errors.New("mqttservice: CA certificate must be present when TLS is enabled")
	ErrCertificateNotReadable     = errors.New("mqttservice: certificate could not be read")
	ErrCaCertificateNotAdded      = errors.New("mqttservice: CA certificate could not be added to the root pool")
	ErrPrivateKeyNotReadable      = errors.New("mqttservice: private key could not be read")
	ErrPrivateKeyNoneFound        = errors.New("mqttservice: no private key found in client key file")
	ErrPrivateKeyTooManyFound     = errors.New("mqttservice: more than one private key found in client key file")
	ErrClientKeyMustBePresent     = errors.New("mqttservice: client certificate and key must both be present or both be absent")
	ErrClientErrorV5              = errors.New("mqttservice: mqtt v5 client error")
	ErrClientErrorV311            = errors.New("mqttservice: mqtt v3.1.1 client error")
)

// QoS mirrors config.Qos to keep this package free of an import cycle while
// staying a 1:1 representation of the wire quality-of-service level.
type QoS = cfg.Qos

// PublishEvent is an outbound message request.
type PublishEvent struct {
	Topic   string
	Qos     QoS
	Retain  bool
	Payload []byte
}

// ReceiveEvent is an inbound message as delivered by the broker.
type ReceiveEvent struct {
	Topic   string
	Qos     QoS
	Retain  bool
	Payload []byte
}

// MqttService is the version-agnostic client boundary C6/C7 program against.
type MqttService interface {
	Connect(ctx context.Context) error
	Disconnect(ctx context.Context) error
	Publish(ctx context.Context, event PublishEvent) error
	Subscribe(ctx context.Context, topicFilter string, qos QoS) error
	Receive() <-chan ReceiveEvent
}

// New constructs the version-appropriate MqttService for the given broker
// configuration.
func New(broker cfg.Broker) (MqttService, error) {
	tlsConfig, err := configureTLS(broker)
	if err != nil {
		return nil, err
	}

	addr, err := brokerURL(broker)
	if err != nil {
		return nil, err
	}

	version := cfg.MqttV311
	if broker.Version != nil {
		version = *broker.Version
	}

	switch version {
	case cfg.MqttV5:
		return newV5Service(broker, addr, tlsConfig)
	default:
		return newV311Service(broker, addr, tlsConfig)
	}
}
