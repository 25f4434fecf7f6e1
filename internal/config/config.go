// Package config implements the topic storage & config model (C4): the
// Topic/Subscription/Publish entity tree and a three-layer configuration
// merge (defaults -> YAML file -> CLI flags), generalizing the layered load
// shape of the teacher's config package into a pure, testable merge
// function per the design note in the original spec.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kaans/mqtli/internal/filter"
	"github.com/kaans/mqtli/internal/payload"
)

// Qos is the MQTT quality-of-service level.
type Qos int

const (
	QosAtMostOnce  Qos = 0
	QosAtLeastOnce Qos = 1
	QosExactlyOnce Qos = 2
)

// Transport selects the wire transport for the broker connection.
type Transport string

const (
	TransportTcp    Transport = "tcp"
	TransportTcpTls Transport = "tcp+tls"
	TransportWs     Transport = "ws"
	TransportWss    Transport = "wss"
)

// MqttVersion selects the protocol version.
type MqttVersion string

const (
	MqttV311 MqttVersion = "v311"
	MqttV5   MqttVersion = "v5"
)

// Broker holds broker connection settings.
type Broker struct {
	Host        *string
	Port        *int
	ClientID    *string
	Username    *string
	Password    *string
	Keepalive   *time.Duration
	Version     *MqttVersion
	Transport   *Transport
	CaFile      *string
	ClientCert  *string
	ClientKey   *string
	TlsVersion  *string // "", "tls12", "tls13", "tls12+13"
	LastWill    *LastWill
}

// LastWill is the broker-level last-will-and-testament message.
type LastWill struct {
	Topic   string
	Payload string
	Qos     Qos
	Retain  bool
}

// OutputTarget is a sealed union over where a subscription's converted
// payload is written.
type OutputTarget struct {
	Console *struct{}
	File    *OutputTargetFile
	Topic   *OutputTargetTopic
	Sql     *OutputTargetSql
}

// OutputTargetFile writes output to a local file.
type OutputTargetFile struct {
	Path      string
	Overwrite bool
	Prepend   *string
	Append    *string // defaults to "\n" when unset, per the original
}

// OutputTargetTopic republishes the converted payload to another topic.
type OutputTargetTopic struct {
	Topic  string
	Qos    Qos
	Retain bool
}

// OutputTargetSql writes via a templated INSERT statement (C9).
type OutputTargetSql struct {
	ConnectionString string
	Statement        string
}

// Output pairs a payload format with where to send it.
type Output struct {
	Format payload.Kind
	Target OutputTarget
}

// Subscription is the per-topic inbound configuration.
type Subscription struct {
	Enabled     bool
	Qos         Qos
	Outputs     []Output
	Filters     []filter.Filter
}

// PublishTrigger is a sealed union over what causes a publish to fire.
type PublishTrigger struct {
	Periodic  *PublishTriggerPeriodic
	OnStartup *struct{}
}

// PublishTriggerPeriodic fires on an interval, optionally a limited number
// of times, after an initial delay (C7).
type PublishTriggerPeriodic struct {
	Interval     time.Duration
	Count        *uint32
	InitialDelay time.Duration
}

// Publish is the per-topic outbound configuration.
type Publish struct {
	Enabled bool
	Qos     Qos
	Retain  bool
	Trigger []PublishTrigger
	Input   payload.PublishInput
	Filters []filter.Filter
}

// Topic binds a name (possibly a subscribe pattern) to its payload type and
// subscribe/publish behavior.
type Topic struct {
	Topic        string
	Subscription *Subscription
	PayloadType  payload.Kind
	ProtoMessage string
	Publish      *Publish
}

// Validate enforces the invariants spec.md assigns to a Topic.
func (t Topic) Validate() error {
	if len(t.Topic) < 1 {
		return fmt.Errorf("config: topic name must not be empty")
	}
	if t.Subscription != nil {
		for _, o := range t.Subscription.Outputs {
			if o.Target.Sql != nil {
				if _, err := SqlScheme(o.Target.Sql.ConnectionString); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// Config is the full merged configuration.
type Config struct {
	LogLevel   *string
	ConfigFile *string
	Broker     Broker
	Topics     []Topic
	ProtoFile  *string
	ProtoImportPaths []string
}

// SqlScheme validates a SQL sink connection string's scheme against the set
// spec.md requires: sqlite, mysql/mariadb, postgres/postgresql. This is
// intentionally broader than the original Rust implementation, which only
// accepted "sqlite" -- spec.md is authoritative here (see DESIGN.md).
func SqlScheme(connectionString string) (string, error) {
	u, err := url.Parse(connectionString)
	if err != nil {
		return "", fmt.Errorf("config: invalid sql connection string: %w", err)
	}

	switch strings.ToLower(u.Scheme) {
	case "sqlite":
		return "sqlite", nil
	case "mysql", "mariadb":
		return "mysql", nil
	case "postgres", "postgresql":
		return "postgres", nil
	default:
		return "", fmt.Errorf("config: unsupported sql scheme %q", u.Scheme)
	}
}

// Default returns the base configuration layer.
func Default() Config {
	host := "localhost"
	port := 1883
	clientID := "mqtli"
	keepalive := 60 * time.Second
	version := MqttV311
	transport := TransportTcp
	logLevel := "info"

	return Config{
		LogLevel: &logLevel,
		Broker: Broker{
			Host:      &host,
			Port:      &port,
			ClientID:  &clientID,
			Keepalive: &keepalive,
			Version:   &version,
			Transport: &transport,
		},
	}
}

// LoadFile reads a YAML config file layer. A missing file is not an error --
// it yields the zero Config, matching the teacher's fileExists fallback
// pattern in its config loader.
func LoadFile(path string) (Config, error) {
	var c Config
	if path == "" {
		return c, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return c, nil
		}
		return c, fmt.Errorf("config: reading %s: %w", path, err)
	}

	var file fileConfig
	if err := yaml.Unmarshal(data, &file); err != nil {
		return c, fmt.Errorf("config: parsing %s: %w", path, err)
	}

	return file.toConfig(), nil
}

// Merge layers higher over lower: every non-nil scalar field and non-empty
// slice in higher overwrites lower's, fields higher leaves unset pass
// through from lower unchanged. This is the pure merge(lower, higher)
// function spec.md's design notes call for.
func Merge(lower, higher Config) Config {
	out := lower

	if higher.LogLevel != nil {
		out.LogLevel = higher.LogLevel
	}
	if higher.ConfigFile != nil {
		out.ConfigFile = higher.ConfigFile
	}
	if higher.ProtoFile != nil {
		out.ProtoFile = higher.ProtoFile
	}
	if len(higher.ProtoImportPaths) > 0 {
		out.ProtoImportPaths = higher.ProtoImportPaths
	}

	out.Broker = mergeBroker(lower.Broker, higher.Broker)

	if len(higher.Topics) > 0 {
		out.Topics = higher.Topics
	}

	return out
}

func mergeBroker(lower, higher Broker) Broker {
	out := lower

	if higher.Host != nil {
		out.Host = higher.Host
	}
	if higher.Port != nil {
		out.Port = higher.Port
	}
	if higher.ClientID != nil {
		out.ClientID = higher.ClientID
	}
	if higher.Username != nil {
		out.Username = higher.Username
	}
	if higher.Password != nil {
		out.Password = higher.Password
	}
	if higher.Keepalive != nil {
		out.Keepalive = higher.Keepalive
	}
	if higher.Version != nil {
		out.Version = higher.Version
	}
	if higher.Transport != nil {
		out.Transport = higher.Transport
	}
	if higher.CaFile != nil {
		out.CaFile = higher.CaFile
	}
	if higher.ClientCert != nil {
		out.ClientCert = higher.ClientCert
	}
	if higher.ClientKey != nil {
		out.ClientKey = higher.ClientKey
	}
	if higher.TlsVersion != nil {
		out.TlsVersion = higher.TlsVersion
	}
	if higher.LastWill != nil {
		out.LastWill = higher.LastWill
	}

	return out
}
