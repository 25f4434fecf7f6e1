package mqttservice

import (
	"context"
	"crypto/tls"
	"fmt"
	"sync"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/sirupsen/logrus"

	cfg "github.com/kaans/mqtli/internal/config"
)

// v311Service wires paho.mqtt.golang the way the teacher's
// internal/connectors/adapters/mqttfeed/mqttfeed.go does: NewClientOptions,
// AddBroker, OnConnect re-subscribing, OnConnectionLost logged and left to
// the library's automatic reconnect.
type v311Service struct {
	client mqtt.Client
	recv   chan ReceiveEvent

	mu   sync.Mutex
	subs []subscription
}

type subscription struct {
	topic string
	qos   byte
}

func newV311Service(broker cfg.Broker, addr string, tlsConfig *tls.Config) (*v311Service, error) {
	recv := make(chan ReceiveEvent, 256)
	svc := &v311Service{recv: recv}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(addr)

	clientID := "mqtli"
	if broker.ClientID != nil {
		clientID = *broker.ClientID
	}
	opts.SetClientID(clientID)

	if broker.Username != nil {
		opts.SetUsername(*broker.Username)
	}
	if broker.Password != nil {
		opts.SetPassword(*broker.Password)
	}
	if broker.Keepalive != nil {
		opts.SetKeepAlive(*broker.Keepalive)
	}
	if tlsConfig != nil {
		opts.SetTLSConfig(tlsConfig)
	}
	if broker.LastWill != nil {
		opts.SetWill(broker.LastWill.Topic, broker.LastWill.Payload, byte(broker.LastWill.Qos), broker.LastWill.Retain)
	}

	opts.SetAutoReconnect(true)
	opts.SetDefaultPublishHandler(func(client mqtt.Client, msg mqtt.Message) {
		recv <- ReceiveEvent{
			Topic:   msg.Topic(),
			Qos:     cfg.Qos(msg.Qos()),
			Retain:  msg.Retained(),
			Payload: msg.Payload(),
		}
	})
	opts.OnConnect = func(client mqtt.Client) {
		logrus.Info("mqtt v3.1.1 client connected")
		svc.resubscribeAll(client)
	}
	opts.OnConnectionLost = func(client mqtt.Client, err error) {
		logrus.WithError(err).Warn("mqtt v3.1.1 connection lost")
	}

	svc.client = mqtt.NewClient(opts)
	return svc, nil
}

func (s *v311Service) resubscribeAll(client mqtt.Client) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, sub := range s.subs {
		token := client.Subscribe(sub.topic, sub.qos, nil)
		token.Wait()
		if token.Error() != nil {
			logrus.WithError(token.Error()).WithField("topic", sub.topic).Error("resubscribe failed")
		}
	}
}

func (s *v311Service) Connect(ctx context.Context) error {
	token := s.client.Connect()
	token.Wait()
	if token.Error() != nil {
		return fmt.Errorf("%w: %v", ErrClientErrorV311, token.Error())
	}
	return nil
}

func (s *v311Service) Disconnect(ctx context.Context) error {
	s.client.Disconnect(250)
	return nil
}

func (s *v311Service) Publish(ctx context.Context, event PublishEvent) error {
	token := s.client.Publish(event.Topic, byte(event.Qos), event.Retain, event.Payload)
	token.Wait()
	if token.Error() != nil {
		return fmt.Errorf("%w: %v", ErrClientErrorV311, token.Error())
	}
	return nil
}

func (s *v311Service) Subscribe(ctx context.Context, topicFilter string, qos QoS) error {
	s.mu.Lock()
	s.subs = append(s.subs, subscription{topic: topicFilter, qos: byte(qos)})
	s.mu.Unlock()

	token := s.client.Subscribe(topicFilter, byte(qos), nil)
	token.Wait()
	if token.Error() != nil {
		return fmt.Errorf("%w: %v", ErrClientErrorV311, token.Error())
	}
	return nil
}

func (s *v311Service) Receive() <-chan ReceiveEvent {
	return s.recv
}
