package mqttservice

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/url"
	"sync"

	"github.com/eclipse/paho.golang/autopaho"
	"github.com/eclipse/paho.golang/paho"
	"github.com/sirupsen/logrus"

	cfg "github.com/kaans/mqtli/internal/config"
)

// v5Service wires eclipse/paho.golang/autopaho, grounded on the
// autopaho.ClientConfig shape used in the Otto17-FiReMQ reference client:
// OnConnectionUp re-subscribing, OnConnectError/OnClientError logged.
type v5Service struct {
	conn    *autopaho.ConnectionManager
	connCfg autopaho.ClientConfig
	recv    chan ReceiveEvent

	mu   sync.Mutex
	subs []subscription
}

func newV5Service(broker cfg.Broker, addr string, tlsConfig *tls.Config) (*v5Service, error) {
	serverURL, err := url.Parse(addr)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrClientErrorV5, err)
	}

	recv := make(chan ReceiveEvent, 256)
	svc := &v5Service{recv: recv}

	clientID := "mqtli"
	if broker.ClientID != nil {
		clientID = *broker.ClientID
	}

	keepAlive := uint16(20)
	if broker.Keepalive != nil {
		keepAlive = uint16(broker.Keepalive.Seconds())
	}

	cliCfg := autopaho.ClientConfig{
		ServerUrls: []*url.URL{serverURL},
		TlsCfg:     tlsConfig,
		KeepAlive:  keepAlive,
		OnConnectionUp: func(cm *autopaho.ConnectionManager, _ *paho.Connack) {
			logrus.Info("mqtt v5 client connected")
			svc.resubscribeAll(cm)
		},
		OnConnectError: func(err error) {
			logrus.WithError(err).Warn("mqtt v5 connection error")
		},
		ClientConfig: paho.ClientConfig{
			ClientID: clientID,
			OnClientError: func(err error) {
				logrus.WithError(err).Error("mqtt v5 client error")
			},
			OnPublishReceived: []func(paho.PublishReceived) (bool, error){
				func(pr paho.PublishReceived) (bool, error) {
					recv <- ReceiveEvent{
						Topic:   pr.Packet.Topic,
						Qos:     cfg.Qos(pr.Packet.QoS),
						Retain:  pr.Packet.Retain,
						Payload: pr.Packet.Payload,
					}
					return true, nil
				},
			},
		},
	}

	if broker.Username != nil {
		cliCfg.ConnectUsername = *broker.Username
	}
	if broker.Password != nil {
		cliCfg.ConnectPassword = []byte(*broker.Password)
	}
	if broker.LastWill != nil {
		cliCfg.WillMessage = &paho.WillMessage{
			Topic:   broker.LastWill.Topic,
			Payload: []byte(broker.LastWill.Payload),
			QoS:     byte(broker.LastWill.Qos),
			Retain:  broker.LastWill.Retain,
		}
	}

	svc.connCfg = cliCfg
	return svc, nil
}

func (s *v5Service) resubscribeAll(cm *autopaho.ConnectionManager) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.subs) == 0 {
		return
	}

	var subs []paho.SubscribeOptions
	for _, sub := range s.subs {
		subs = append(subs, paho.SubscribeOptions{Topic: sub.topic, QoS: sub.qos})
	}

	if _, err := cm.Subscribe(context.Background(), &paho.Subscribe{Subscriptions: subs}); err != nil {
		logrus.WithError(err).Error("mqtt v5 resubscribe failed")
	}
}

func (s *v5Service) Connect(ctx context.Context) error {
	conn, err := autopaho.NewConnection(ctx, s.connCfg)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrClientErrorV5, err)
	}
	s.conn = conn
	return conn.AwaitConnection(ctx)
}

func (s *v5Service) Disconnect(ctx context.Context) error {
	return s.conn.Disconnect(ctx)
}

func (s *v5Service) Publish(ctx context.Context, event PublishEvent) error {
	retain := event.Retain
	_, err := s.conn.Publish(ctx, &paho.Publish{
		Topic:   event.Topic,
		QoS:     byte(event.Qos),
		Retain:  retain,
		Payload: event.Payload,
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrClientErrorV5, err)
	}
	return nil
}

func (s *v5Service) Subscribe(ctx context.Context, topicFilter string, qos QoS) error {
	s.mu.Lock()
	s.subs = append(s.subs, subscription{topic: topicFilter, qos: byte(qos)})
	s.mu.Unlock()

	_, err := s.conn.Subscribe(ctx, &paho.Subscribe{
		Subscriptions: []paho.SubscribeOptions{{Topic: topicFilter, QoS: byte(qos)}},
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrClientErrorV5, err)
	}
	return nil
}

func (s *v5Service) Receive() <-chan ReceiveEvent {
	return s.recv
}
