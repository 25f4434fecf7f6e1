package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/kaans/mqtli/internal/app"
	"github.com/kaans/mqtli/internal/config"
)

// runUntilSignal builds and runs an App from cfg until an OS interrupt or
// SIGTERM arrives, then waits for a graceful shutdown, mirroring the
// teacher's signal.Notify + goroutine shutdown pattern. If metricsAddr is
// non-empty, a /metrics endpoint is served alongside, the same way the
// teacher exposes promhttp.Handler() from its own main.
func runUntilSignal(cfg config.Config, metricsAddr string) error {
	for _, t := range cfg.Topics {
		if err := t.Validate(); err != nil {
			return err
		}
	}

	log := logrus.StandardLogger()
	logStartupSummary(log, cfg)

	a, err := app.New(cfg, log)
	if err != nil {
		return err
	}

	if metricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		srv := &http.Server{Addr: metricsAddr, Handler: mux}
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.WithError(err).Error("metrics server failed")
			}
		}()
		defer srv.Close()
		log.WithField("addr", metricsAddr).Info("serving prometheus metrics")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sig
		log.Info("received shutdown signal")
		cancel()
	}()

	return a.Run(ctx)
}

func logStartupSummary(log logrus.FieldLogger, cfg config.Config) {
	fields := logrus.Fields{"topics": len(cfg.Topics)}
	if cfg.Broker.Host != nil {
		fields["broker_host"] = *cfg.Broker.Host
	}
	if cfg.Broker.Port != nil {
		fields["broker_port"] = *cfg.Broker.Port
	}
	if cfg.Broker.Version != nil {
		fields["mqtt_version"] = *cfg.Broker.Version
	}
	if cfg.Broker.Transport != nil {
		fields["transport"] = *cfg.Broker.Transport
	}
	log.WithFields(fields).Info("starting mqtli")
}
