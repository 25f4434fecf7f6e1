// Package app wires the orchestrator (C10): config load, the MQTT service,
// topic storage, the event handler, the periodic scheduler and the output
// sinks into one running instance, grounded on the original's main/run
// module and the teacher's main.go startup/shutdown shape.
package app

import (
	"context"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/kaans/mqtli/internal/bus"
	"github.com/kaans/mqtli/internal/config"
	"github.com/kaans/mqtli/internal/handler"
	"github.com/kaans/mqtli/internal/metrics"
	"github.com/kaans/mqtli/internal/mqttservice"
	"github.com/kaans/mqtli/internal/payload"
	"github.com/kaans/mqtli/internal/scheduler"
	"github.com/kaans/mqtli/internal/sink"
	"github.com/kaans/mqtli/internal/sparkplug"
)

// busCapacity bounds each subscriber's pending-event buffer; a slow
// subscriber starts lagging beyond this rather than blocking the pump.
const busCapacity = 256

// App is one running instance of the client: a connected MQTT service, its
// event handler, scheduler and output sinks.
type App struct {
	cfg       config.Config
	svc       mqttservice.MqttService
	schema    *payload.Schema
	handler   *handler.Handler
	sinks     *sink.Dispatcher
	scheduler *scheduler.Scheduler
	network   *sparkplug.Network
	bus       *bus.Bus[mqttservice.ReceiveEvent]
	log       logrus.FieldLogger

	wg sync.WaitGroup
}

// New builds an App from a fully merged Config. It compiles any configured
// protobuf schema and always makes the embedded Sparkplug B schema
// available, constructs the MQTT service, and wires the handler/scheduler/
// sinks, but neither connects nor starts the background pumps -- call Run
// for that.
func New(cfg config.Config, log logrus.FieldLogger) (*App, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}

	schema, err := buildSchema(cfg, log)
	if err != nil {
		return nil, err
	}

	svc, err := mqttservice.New(cfg.Broker)
	if err != nil {
		return nil, fmt.Errorf("app: constructing mqtt service: %w", err)
	}

	sinks := sink.New(schema, svc, log)
	h := handler.New(cfg.Topics, schema, []handler.Sink{sinks}, log)
	sched := scheduler.New(svc, log)
	network := sparkplug.NewNetwork(log)

	return &App{
		cfg:       cfg,
		svc:       svc,
		schema:    schema,
		handler:   h,
		sinks:     sinks,
		scheduler: sched,
		network:   network,
		bus:       bus.New[mqttservice.ReceiveEvent](busCapacity),
		log:       log,
	}, nil
}

// buildSchema compiles the user-supplied protobuf schema (if configured)
// merged with the always-available embedded Sparkplug B schema, so a single
// Schema instance can resolve both kinds of message names.
func buildSchema(cfg config.Config, log logrus.FieldLogger) (*payload.Schema, error) {
	sparkplugSchema, err := sparkplug.Schema()
	if err != nil {
		return nil, fmt.Errorf("app: compiling sparkplug schema: %w", err)
	}

	if cfg.ProtoFile == nil || *cfg.ProtoFile == "" {
		return sparkplugSchema, nil
	}

	userSchema, err := payload.CompileFile(cfg.ProtoImportPaths, *cfg.ProtoFile)
	if err != nil {
		return nil, fmt.Errorf("app: compiling configured protobuf schema: %w", err)
	}
	userSchema.Merge(sparkplugSchema)

	log.WithField("proto_file", *cfg.ProtoFile).Debug("compiled user protobuf schema merged with sparkplug schema")
	return userSchema, nil
}

// Run connects to the broker, activates subscriptions, starts the publish
// scheduler for every Periodic trigger, and pumps incoming messages through
// the handler and Sparkplug monitor until ctx is canceled.
func (a *App) Run(ctx context.Context) error {
	if err := a.svc.Connect(ctx); err != nil {
		return fmt.Errorf("app: connecting: %w", err)
	}

	if err := a.activateSubscriptions(ctx); err != nil {
		return err
	}

	a.startScheduler(ctx)

	a.wg.Add(2)
	go a.pumpIncoming(ctx)
	go a.runSparkplugMonitor(ctx)

	<-ctx.Done()

	a.log.Info("shutting down")
	a.scheduler.Wait()
	_ = a.svc.Disconnect(context.Background())
	a.wg.Wait()
	return a.sinks.Close()
}

// activateSubscriptions subscribes every enabled Topic once, mirroring the
// subscription-activator task that dies once it has fired.
func (a *App) activateSubscriptions(ctx context.Context) error {
	for _, t := range a.cfg.Topics {
		if t.Subscription == nil || !t.Subscription.Enabled {
			continue
		}
		if err := a.svc.Subscribe(ctx, t.Topic, t.Subscription.Qos); err != nil {
			return fmt.Errorf("app: subscribing to %q: %w", t.Topic, err)
		}
	}
	return nil
}

// startScheduler registers one scheduler Job per configured Periodic
// publish trigger.
func (a *App) startScheduler(ctx context.Context) {
	for _, t := range a.cfg.Topics {
		if t.Publish == nil || !t.Publish.Enabled {
			continue
		}

		payloadBytes, err := resolvePublishPayload(t.Publish, t.PayloadType, a.schema)
		if err != nil {
			a.log.WithError(err).WithField("topic", t.Topic).Error("app: failed to resolve publish payload")
			continue
		}

		for _, trigger := range t.Publish.Trigger {
			if trigger.Periodic == nil {
				continue
			}
			a.scheduler.AddSchedule(ctx, scheduler.Job{
				Topic:        t.Topic,
				Qos:          t.Publish.Qos,
				Retain:       t.Publish.Retain,
				Payload:      payloadBytes,
				Interval:     trigger.Periodic.Interval,
				Count:        trigger.Periodic.Count,
				InitialDelay: trigger.Periodic.InitialDelay,
			})
		}
	}
}

func resolvePublishPayload(p *config.Publish, targetKind payload.Kind, schema *payload.Schema) ([]byte, error) {
	format, err := p.Input.Resolve(schema)
	if err != nil {
		return nil, err
	}
	converted, err := payload.Convert(format, targetKind, schema)
	if err != nil {
		return nil, err
	}
	return converted.Bytes()
}

// pumpIncoming fans svc.Receive() out onto the internal bus and feeds the
// handler's own subscription, matching the single-broadcast-channel
// ordering guarantee from spec.md's concurrency model.
func (a *App) pumpIncoming(ctx context.Context) {
	defer a.wg.Done()

	sub := a.bus.Subscribe()
	defer sub.Close()

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-a.svc.Receive():
				if !ok {
					return
				}
				a.bus.Send(event)
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case raw := <-sub.Events():
			switch v := raw.(type) {
			case bus.Lagged:
				a.log.WithField("skipped", v.Skipped).Warn("app: handler subscriber lagged")
			case mqttservice.ReceiveEvent:
				a.handler.HandleIncoming(v)
			}
		}
	}
}

// runSparkplugMonitor assimilates every incoming Sparkplug-topic message
// into the network view, independent of the handler's topic matches, per
// spec.md's "Sparkplug monitor" task.
func (a *App) runSparkplugMonitor(ctx context.Context) {
	defer a.wg.Done()

	sub := a.bus.Subscribe()
	defer sub.Close()

	schema, err := sparkplug.Schema()
	if err != nil {
		a.log.WithError(err).Error("app: sparkplug monitor could not compile schema, disabling")
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		case raw := <-sub.Events():
			switch v := raw.(type) {
			case bus.Lagged:
				a.log.WithField("skipped", v.Skipped).Warn("app: sparkplug monitor lagged")
			case mqttservice.ReceiveEvent:
				a.assimilateSparkplug(v, schema)
			}
		}
	}
}

func (a *App) assimilateSparkplug(event mqttservice.ReceiveEvent, schema *payload.Schema) {
	topic, err := sparkplug.Parse(event.Topic)
	if err != nil {
		return
	}

	msg, err := schema.Unmarshal(sparkplug.PayloadMessage, event.Payload)
	if err != nil {
		a.log.WithError(err).WithField("topic", event.Topic).Debug("app: not a sparkplug payload, skipping assimilation")
		return
	}

	var prevStatus sparkplug.NodeStatus
	if topic.EdgeNode != nil {
		prevStatus = a.network.EdgeNode(topic.EdgeNode.GroupID, topic.EdgeNode.EdgeNodeID).StatusNow()
	}

	a.network.Assimilate(topic, msg)

	switch {
	case topic.EdgeNode != nil:
		metrics.SparkplugMessagesTotal.WithLabelValues(string(topic.EdgeNode.MessageType)).Inc()
		switch topic.EdgeNode.MessageType {
		case sparkplug.MessageTypeNBIRTH:
			if prevStatus != sparkplug.StatusOnline {
				metrics.SparkplugEdgeNodesOnline.Inc()
			}
		case sparkplug.MessageTypeNDEATH:
			if prevStatus == sparkplug.StatusOnline {
				metrics.SparkplugEdgeNodesOnline.Dec()
			}
		}
	case topic.HostApplication != nil:
		metrics.SparkplugMessagesTotal.WithLabelValues(string(topic.HostApplication.MessageType)).Inc()
	}
}

// Network exposes the live Sparkplug network view, e.g. for a `sparkplug`
// CLI subcommand to print.
func (a *App) Network() *sparkplug.Network {
	return a.network
}
