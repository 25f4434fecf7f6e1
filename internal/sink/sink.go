// Package sink implements the output sink fan-out (C9): for every filtered
// message event, converts the payload to each configured output's format and
// writes it to Console, File, Topic (republish) or Sql, grounded on
// original_source/crates/mqtlib/src/output/.
package sink

import (
	"errors"

	"github.com/sirupsen/logrus"

	"github.com/kaans/mqtli/internal/config"
	"github.com/kaans/mqtli/internal/handler"
	"github.com/kaans/mqtli/internal/metrics"
	"github.com/kaans/mqtli/internal/mqttservice"
	"github.com/kaans/mqtli/internal/payload"
)

var (
	ErrCouldNotOpenTargetFile  = errors.New("sink: could not open target file")
	ErrWhileWritingToFile      = errors.New("sink: error while writing to file")
	ErrSqlConnectionFailed     = errors.New("sink: sql connection failed")
	ErrSqlStatementFailed      = errors.New("sink: sql statement execution failed")
)

// Dispatcher implements handler.Sink, routing every EventFiltered message to
// its subscription's configured outputs. EventUnfiltered events are ignored
// here, matching spec.md 4.6's "route to outputs" step, which only happens
// for filtered, surviving payloads.
type Dispatcher struct {
	schema *payload.Schema
	svc    mqttservice.MqttService
	sql    *sqlSinks
	log    logrus.FieldLogger
}

var _ handler.Sink = (*Dispatcher)(nil)

// New constructs a Dispatcher. schema may be nil if no protobuf/Sparkplug
// output conversion is configured; svc may be nil if no Topic outputs are
// configured.
func New(schema *payload.Schema, svc mqttservice.MqttService, log logrus.FieldLogger) *Dispatcher {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Dispatcher{schema: schema, svc: svc, sql: newSQLSinks(log), log: log}
}

// Close releases any resources held open by sinks (SQL connections).
func (d *Dispatcher) Close() error {
	return d.sql.closeAll()
}

// Handle is called by internal/handler for every emitted event.
func (d *Dispatcher) Handle(event handler.MessageEvent) {
	if event.Kind != handler.EventFiltered {
		return
	}
	if event.Topic.Subscription == nil {
		return
	}

	for _, out := range event.Topic.Subscription.Outputs {
		converted, err := payload.Convert(event.Payload, out.Format, d.schema)
		if err != nil {
			metrics.PayloadConversionErrorsTotal.WithLabelValues("encode", string(out.Format)).Inc()
			d.log.WithError(err).WithField("topic", event.IncomingTopic).Error("sink: output conversion failed")
			continue
		}

		if err := d.route(event, out, converted); err != nil {
			metrics.SinkOutputErrorsTotal.WithLabelValues(outputTargetLabel(out.Target)).Inc()
			d.log.WithError(err).WithFields(logrus.Fields{
				"topic": event.IncomingTopic,
			}).Error("sink: writing output failed")
		}
	}
}

func (d *Dispatcher) route(event handler.MessageEvent, out config.Output, converted payload.Format) error {
	switch {
	case out.Target.Console != nil:
		return writeConsole(event, converted)
	case out.Target.File != nil:
		return writeFile(*out.Target.File, converted)
	case out.Target.Topic != nil:
		return writeTopic(d.svc, *out.Target.Topic, converted)
	case out.Target.Sql != nil:
		return d.sql.write(event, *out.Target.Sql, converted)
	default:
		return nil
	}
}

func outputTargetLabel(target config.OutputTarget) string {
	switch {
	case target.Console != nil:
		return "console"
	case target.File != nil:
		return "file"
	case target.Topic != nil:
		return "topic"
	case target.Sql != nil:
		return "sql"
	default:
		return "unknown"
	}
}
