package mqttservice

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cfg "github.com/kaans/mqtli/internal/config"
)

func TestConfigureTLSSkippedForPlainTcp(t *testing.T) {
	transport := cfg.TransportTcp
	tlsConfig, err := configureTLS(cfg.Broker{Transport: &transport})
	require.NoError(t, err)
	assert.Nil(t, tlsConfig)
}

func TestConfigureTLSRequiresCaFile(t *testing.T) {
	transport := cfg.TransportTcpTls
	_, err := configureTLS(cfg.Broker{Transport: &transport})
	assert.ErrorIs(t, err, ErrCaCertificateMustBePresent)
}

func TestBrokerURLSelectsSchemeByTransport(t *testing.T) {
	host := "broker.local"
	port := 8883

	tcp := cfg.TransportTcp
	addr, err := brokerURL(cfg.Broker{Host: &host, Port: &port, Transport: &tcp})
	require.NoError(t, err)
	assert.Equal(t, "tcp://broker.local:8883", addr)

	wss := cfg.TransportWss
	addr, err = brokerURL(cfg.Broker{Host: &host, Port: &port, Transport: &wss})
	require.NoError(t, err)
	assert.Equal(t, "wss://broker.local:8883/mqtt", addr)
}
