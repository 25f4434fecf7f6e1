package mqttservice

import (
	"fmt"

	cfg "github.com/kaans/mqtli/internal/config"
)

// brokerURL builds the scheme://host:port[/mqtt] address paho expects,
// selecting the scheme from the configured Transport the way the original's
// get_transport_parameters does (Tcp/Tcp+Tls/Ws/Wss).
func brokerURL(broker cfg.Broker) (string, error) {
	host := "localhost"
	if broker.Host != nil {
		host = *broker.Host
	}
	port := 1883
	if broker.Port != nil {
		port = *broker.Port
	}

	transport := cfg.TransportTcp
	if broker.Transport != nil {
		transport = *broker.Transport
	}

	switch transport {
	case cfg.TransportTcp:
		return fmt.Sprintf("tcp://%s:%d", host, port), nil
	case cfg.TransportTcpTls:
		return fmt.Sprintf("ssl://%s:%d", host, port), nil
	case cfg.TransportWs:
		return fmt.Sprintf("ws://%s:%d/mqtt", host, port), nil
	case cfg.TransportWss:
		return fmt.Sprintf("wss://%s:%d/mqtt", host, port), nil
	default:
		return "", fmt.Errorf("mqttservice: unsupported transport %q", transport)
	}
}

func isTLSTransport(transport cfg.Transport) bool {
	return transport == cfg.TransportTcpTls || transport == cfg.TransportWss
}
