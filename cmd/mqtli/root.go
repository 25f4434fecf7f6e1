// Command mqtli is a command-line MQTT client: publish and subscribe
// against an MQTT v3.1.1 or v5 broker, convert payloads between text,
// binary and structured encodings, and monitor a Sparkplug B network.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/kaans/mqtli/internal/config"
)

// globalFlags mirrors the broker/TLS/log/config-file flags spec.md's CLI
// surface lists at the root command.
type globalFlags struct {
	host       string
	port       int
	protocol   string
	clientID   string
	version    string
	keepAlive  time.Duration
	username   string
	password   string
	useTLS     bool
	caFile     string
	clientCert string
	clientKey  string
	tlsVersion string
	willTopic  string
	willPayload string
	willQos    int
	willRetain bool
	logLevel    string
	configFile  string
	protoFile   string
	metricsAddr string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}

	root := &cobra.Command{
		Use:           "mqtli",
		Short:         "mqtli is a command-line MQTT client",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := godotenv.Load(); err != nil {
				logrus.WithError(err).Debug("no .env file found")
			}
			level, err := logrus.ParseLevel(flags.logLevel)
			if err != nil {
				return fmt.Errorf("invalid log level %q: %w", flags.logLevel, err)
			}
			logrus.SetLevel(level)
			return nil
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&flags.host, "host", "localhost", "broker host")
	pf.IntVar(&flags.port, "port", 1883, "broker port")
	pf.StringVar(&flags.protocol, "protocol", "tcp", "transport: tcp, tcp+tls, ws, wss")
	pf.StringVar(&flags.clientID, "client-id", "mqtli", "mqtt client id")
	pf.StringVar(&flags.version, "mqtt-version", "v311", "mqtt protocol version: v311 or v5")
	pf.DurationVar(&flags.keepAlive, "keep-alive", 60*time.Second, "keep-alive interval, minimum 5s")
	pf.StringVar(&flags.username, "username", "", "broker username")
	pf.StringVar(&flags.password, "password", "", "broker password")
	pf.BoolVar(&flags.useTLS, "use-tls", false, "use TLS (also implied by tcp+tls/wss protocol)")
	pf.StringVar(&flags.caFile, "ca-file", "", "CA certificate file (required when TLS is enabled)")
	pf.StringVar(&flags.clientCert, "client-cert", "", "client certificate file for mTLS")
	pf.StringVar(&flags.clientKey, "client-key", "", "client private key file (PKCS#8) for mTLS")
	pf.StringVar(&flags.tlsVersion, "tls-version", "", "tls12, tls13, or tls12+13")
	pf.StringVar(&flags.willTopic, "will-topic", "", "last-will topic")
	pf.StringVar(&flags.willPayload, "will-payload", "", "last-will payload")
	pf.IntVar(&flags.willQos, "will-qos", 0, "last-will qos")
	pf.BoolVar(&flags.willRetain, "will-retain", false, "last-will retain flag")
	pf.StringVar(&flags.logLevel, "log-level", "info", "log level")
	pf.StringVar(&flags.configFile, "config-file", "config.yaml", "path to the YAML config file")
	pf.StringVar(&flags.protoFile, "proto-file", "", "path to a .proto file for protobuf payloads")
	pf.StringVar(&flags.metricsAddr, "metrics-addr", "", "address to serve Prometheus /metrics on, e.g. :9090 (disabled if empty)")

	root.AddCommand(newPubCmd(flags))
	root.AddCommand(newSubCmd(flags))
	root.AddCommand(newSparkplugCmd(flags))

	return root
}

// buildConfig merges defaults, the YAML config file layer and the global
// CLI flags, the three layers spec.md's config model calls for.
func buildConfig(flags *globalFlags) (config.Config, error) {
	fileLayer, err := config.LoadFile(flags.configFile)
	if err != nil {
		return config.Config{}, err
	}

	cliLayer := config.Config{
		LogLevel:   strPtr(flags.logLevel),
		ConfigFile: strPtr(flags.configFile),
		Broker: config.Broker{
			Host:      strPtr(flags.host),
			Port:      intPtr(flags.port),
			ClientID:  strPtr(flags.clientID),
			Keepalive: durPtr(flags.keepAlive),
		},
	}

	if flags.protoFile != "" {
		cliLayer.ProtoFile = strPtr(flags.protoFile)
	}

	transport := config.Transport(flags.protocol)
	if flags.useTLS {
		switch transport {
		case config.TransportTcp:
			transport = config.TransportTcpTls
		case config.TransportWs:
			transport = config.TransportWss
		}
	}
	cliLayer.Broker.Transport = &transport

	version := config.MqttV311
	if flags.version == string(config.MqttV5) {
		version = config.MqttV5
	}
	cliLayer.Broker.Version = &version

	if flags.username != "" {
		cliLayer.Broker.Username = strPtr(flags.username)
	}
	if flags.password != "" {
		cliLayer.Broker.Password = strPtr(flags.password)
	}
	if flags.caFile != "" {
		cliLayer.Broker.CaFile = strPtr(flags.caFile)
	}
	if flags.clientCert != "" {
		cliLayer.Broker.ClientCert = strPtr(flags.clientCert)
	}
	if flags.clientKey != "" {
		cliLayer.Broker.ClientKey = strPtr(flags.clientKey)
	}
	if flags.tlsVersion != "" {
		cliLayer.Broker.TlsVersion = strPtr(flags.tlsVersion)
	}
	if flags.willTopic != "" {
		cliLayer.Broker.LastWill = &config.LastWill{
			Topic:   flags.willTopic,
			Payload: flags.willPayload,
			Qos:     config.Qos(flags.willQos),
			Retain:  flags.willRetain,
		}
	}

	merged := config.Merge(config.Default(), fileLayer)
	merged = config.Merge(merged, cliLayer)
	if merged.Broker.Keepalive != nil && *merged.Broker.Keepalive < 5*time.Second {
		return config.Config{}, fmt.Errorf("keep-alive must be at least 5s, got %s", *merged.Broker.Keepalive)
	}
	return merged, nil
}

func strPtr(s string) *string          { return &s }
func intPtr(i int) *int                { return &i }
func durPtr(d time.Duration) *time.Duration { return &d }
