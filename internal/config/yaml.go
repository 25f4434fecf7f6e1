package config

import (
	"time"

	"github.com/kaans/mqtli/internal/filter"
	"github.com/kaans/mqtli/internal/payload"
)

// fileConfig mirrors Config with plain (non-pointer) YAML-friendly fields so
// a config file only needs to set the keys it cares about; toConfig lifts
// set fields into the pointer-based Config used by Merge.
type fileConfig struct {
	LogLevel  string         `yaml:"log_level"`
	Broker    fileBroker     `yaml:"broker"`
	Topics    []fileTopic    `yaml:"topics"`
	ProtoFile string         `yaml:"proto_file"`
	ProtoImportPaths []string `yaml:"proto_import_paths"`
}

type fileBroker struct {
	Host       string `yaml:"host"`
	Port       int    `yaml:"port"`
	ClientID   string `yaml:"client_id"`
	Username   string `yaml:"username"`
	Password   string `yaml:"password"`
	Keepalive  string `yaml:"keepalive"`
	Version    string `yaml:"version"`
	Transport  string `yaml:"transport"`
	CaFile     string `yaml:"ca_file"`
	ClientCert string `yaml:"client_cert"`
	ClientKey  string `yaml:"client_key"`
	TlsVersion string `yaml:"tls_version"`
}

type fileTopic struct {
	Topic        string           `yaml:"topic"`
	PayloadType  string           `yaml:"payload_type"`
	ProtoMessage string           `yaml:"proto_message"`
	Subscription *fileSubscription `yaml:"subscription"`
	Publish      *filePublish      `yaml:"publish"`
}

type fileSubscription struct {
	Enabled bool          `yaml:"enabled"`
	Qos     int           `yaml:"qos"`
	Outputs []fileOutput  `yaml:"outputs"`
	Filters []fileFilter  `yaml:"filters"`
}

type fileOutput struct {
	Format string         `yaml:"format"`
	Console bool          `yaml:"console"`
	File    *fileOutputFile  `yaml:"file"`
	Topic   *fileOutputTopic `yaml:"topic"`
	Sql     *fileOutputSql   `yaml:"sql"`
}

type fileOutputFile struct {
	Path      string  `yaml:"path"`
	Overwrite bool    `yaml:"overwrite"`
	Prepend   *string `yaml:"prepend"`
	Append    *string `yaml:"append"`
}

type fileOutputTopic struct {
	Topic  string `yaml:"topic"`
	Qos    int    `yaml:"qos"`
	Retain bool   `yaml:"retain"`
}

type fileOutputSql struct {
	ConnectionString string `yaml:"connection_string"`
	Statement        string `yaml:"statement"`
}

type fileFilter struct {
	Type     string `yaml:"type"`
	JSONPath string `yaml:"jsonpath"`
}

type filePublish struct {
	Enabled bool            `yaml:"enabled"`
	Qos     int             `yaml:"qos"`
	Retain  bool            `yaml:"retain"`
	Trigger []fileTrigger   `yaml:"trigger"`
	Input   fileInput       `yaml:"input"`
	Filters []fileFilter    `yaml:"filters"`
}

type fileTrigger struct {
	Type         string `yaml:"type"` // "periodic" | "startup"
	Interval     string `yaml:"interval"`
	Count        *uint32 `yaml:"count"`
	InitialDelay string `yaml:"initial_delay"`
}

type fileInput struct {
	Type         string `yaml:"type"`
	Content      string `yaml:"content"`
	Path         string `yaml:"path"`
	ProtoMessage string `yaml:"proto_message"`
}

func (f fileConfig) toConfig() Config {
	var c Config

	if f.LogLevel != "" {
		c.LogLevel = &f.LogLevel
	}
	if f.ProtoFile != "" {
		c.ProtoFile = &f.ProtoFile
	}
	c.ProtoImportPaths = f.ProtoImportPaths

	c.Broker = f.Broker.toBroker()

	for _, t := range f.Topics {
		c.Topics = append(c.Topics, t.toTopic())
	}

	return c
}

func (f fileBroker) toBroker() Broker {
	var b Broker
	if f.Host != "" {
		b.Host = &f.Host
	}
	if f.Port != 0 {
		b.Port = &f.Port
	}
	if f.ClientID != "" {
		b.ClientID = &f.ClientID
	}
	if f.Username != "" {
		b.Username = &f.Username
	}
	if f.Password != "" {
		b.Password = &f.Password
	}
	if f.Keepalive != "" {
		if d, err := time.ParseDuration(f.Keepalive); err == nil {
			b.Keepalive = &d
		}
	}
	if f.Version != "" {
		v := MqttVersion(f.Version)
		b.Version = &v
	}
	if f.Transport != "" {
		t := Transport(f.Transport)
		b.Transport = &t
	}
	if f.CaFile != "" {
		b.CaFile = &f.CaFile
	}
	if f.ClientCert != "" {
		b.ClientCert = &f.ClientCert
	}
	if f.ClientKey != "" {
		b.ClientKey = &f.ClientKey
	}
	if f.TlsVersion != "" {
		b.TlsVersion = &f.TlsVersion
	}
	return b
}

func (f fileTopic) toTopic() Topic {
	t := Topic{
		Topic:        f.Topic,
		PayloadType:  payload.Kind(f.PayloadType),
		ProtoMessage: f.ProtoMessage,
	}
	if f.Subscription != nil {
		sub := f.Subscription.toSubscription()
		t.Subscription = &sub
	}
	if f.Publish != nil {
		pub := f.Publish.toPublish()
		t.Publish = &pub
	}
	return t
}

func (f fileSubscription) toSubscription() Subscription {
	sub := Subscription{
		Enabled: f.Enabled,
		Qos:     Qos(f.Qos),
	}
	for _, o := range f.Outputs {
		sub.Outputs = append(sub.Outputs, o.toOutput())
	}
	for _, ff := range f.Filters {
		sub.Filters = append(sub.Filters, ff.toFilter())
	}
	return sub
}

func (f fileOutput) toOutput() Output {
	out := Output{Format: payload.Kind(f.Format)}
	switch {
	case f.File != nil:
		appendStr := "\n"
		if f.File.Append != nil {
			appendStr = *f.File.Append
		}
		out.Target.File = &OutputTargetFile{
			Path:      f.File.Path,
			Overwrite: f.File.Overwrite,
			Prepend:   f.File.Prepend,
			Append:    &appendStr,
		}
	case f.Topic != nil:
		out.Target.Topic = &OutputTargetTopic{
			Topic:  f.Topic.Topic,
			Qos:    Qos(f.Topic.Qos),
			Retain: f.Topic.Retain,
		}
	case f.Sql != nil:
		out.Target.Sql = &OutputTargetSql{
			ConnectionString: f.Sql.ConnectionString,
			Statement:        f.Sql.Statement,
		}
	default:
		out.Target.Console = &struct{}{}
	}
	return out
}

func (f fileFilter) toFilter() filter.Filter {
	return filter.Filter{Kind: filter.Kind(f.Type), JSONPath: f.JSONPath}
}

func (f filePublish) toPublish() Publish {
	kind := payload.KindText
	if f.Input.Type != "" {
		kind = payload.Kind(f.Input.Type)
	}

	pub := Publish{
		Enabled: f.Enabled,
		Qos:     Qos(f.Qos),
		Retain:  f.Retain,
		Input: payload.PublishInput{
			Kind:         kind,
			Content:      f.Input.Content,
			Path:         f.Input.Path,
			ProtoMessage: f.Input.ProtoMessage,
		},
	}
	for _, tr := range f.Trigger {
		pub.Trigger = append(pub.Trigger, tr.toTrigger())
	}
	for _, ff := range f.Filters {
		pub.Filters = append(pub.Filters, ff.toFilter())
	}
	return pub
}

func (f fileTrigger) toTrigger() PublishTrigger {
	if f.Type == "startup" {
		return PublishTrigger{OnStartup: &struct{}{}}
	}

	interval, _ := time.ParseDuration(f.Interval)
	initialDelay, _ := time.ParseDuration(f.InitialDelay)

	return PublishTrigger{
		Periodic: &PublishTriggerPeriodic{
			Interval:     interval,
			Count:        f.Count,
			InitialDelay: initialDelay,
		},
	}
}
