// Package scheduler implements the periodic publish trigger (C7): one-shot
// and repeating jobs with optional count limits and an initial delay,
// grounded on the original publish/trigger_periodic.rs and generalized from
// the teacher's status_pusher.go ticker-loop shape (Start/Stop via
// context.Context + sync.WaitGroup, immediate first fire, ticker thereafter).
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/kaans/mqtli/internal/metrics"
	"github.com/kaans/mqtli/internal/mqttservice"
)

// Job describes one periodic publish trigger's static parameters.
type Job struct {
	Topic        string
	Qos          mqttservice.QoS
	Retain       bool
	Payload      []byte
	Interval     time.Duration
	Count        *uint32 // nil = repeat forever
	InitialDelay time.Duration
}

// Scheduler runs Jobs against an MqttService and reports when none remain
// pending.
type Scheduler struct {
	svc mqttservice.MqttService
	log logrus.FieldLogger

	mu      sync.Mutex
	pending int
	done    chan struct{}
	wg      sync.WaitGroup
}

// New constructs a Scheduler bound to svc.
func New(svc mqttservice.MqttService, log logrus.FieldLogger) *Scheduler {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Scheduler{svc: svc, log: log, done: make(chan struct{}, 1)}
}

// NoMoreTasksPending receives a value (sent non-blocking into a one-slot
// buffer; the channel is never closed) once the scheduler believes no job
// will ever fire again, mirroring Command::NoMoreTasksPending.
func (s *Scheduler) NoMoreTasksPending() <-chan struct{} {
	return s.done
}

// AddSchedule registers a job under ctx, following the original's
// add_schedule case split on Count exactly:
//   - Count == nil: one initial-delay shot, then forever-repeating.
//   - Count != nil && *Count == 0: schedule nothing.
//   - Count != nil && *Count > 0: one initial-delay shot, and if *Count > 1
//     a repeating job for the remaining *Count-1 firings that removes
//     itself once exhausted.
func (s *Scheduler) AddSchedule(ctx context.Context, job Job) {
	switch {
	case job.Count == nil:
		s.trackPending(1)
		go s.runOneShot(ctx, job, func() {
			s.trackPending(1)
			go s.runForever(ctx, job)
		})

	case *job.Count == 0:
		s.log.WithField("topic", job.Topic).Debug("not scheduling, count is zero")
		s.signalIfIdle()

	case *job.Count == 1:
		s.trackPending(1)
		go s.runOneShot(ctx, job, nil)

	default:
		remaining := *job.Count - 1
		s.trackPending(1)
		go s.runOneShot(ctx, job, func() {
			s.trackPending(1)
			go s.runRepeatedCount(ctx, job, remaining)
		})
	}
}

// Wait blocks until every job this scheduler knows about has finished, for
// use by an orchestrator during graceful shutdown.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

func (s *Scheduler) trackPending(delta int) {
	s.wg.Add(delta)

	s.mu.Lock()
	s.pending += delta
	s.mu.Unlock()

	metrics.SchedulerJobsActive.Add(float64(delta))
}

func (s *Scheduler) jobFinished() {
	defer s.wg.Done()

	s.mu.Lock()
	s.pending--
	s.mu.Unlock()

	metrics.SchedulerJobsActive.Dec()

	s.signalIfIdle()
}

// signalIfIdle signals done (non-blocking) if no job is currently pending,
// covering both "every tracked job finished" and "nothing was ever
// scheduled" (e.g. a Count == 0 trigger).
func (s *Scheduler) signalIfIdle() {
	s.mu.Lock()
	pending := s.pending
	s.mu.Unlock()

	if pending == 0 {
		select {
		case s.done <- struct{}{}:
		default:
		}
	}
}

func (s *Scheduler) runOneShot(ctx context.Context, job Job, andThen func()) {
	defer s.jobFinished()

	timer := time.NewTimer(job.InitialDelay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return
	case <-timer.C:
	}

	s.publish(ctx, job)

	if andThen != nil {
		andThen()
	}
}

func (s *Scheduler) runForever(ctx context.Context, job Job) {
	defer s.jobFinished()

	ticker := time.NewTicker(job.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.publish(ctx, job)
		}
	}
}

func (s *Scheduler) runRepeatedCount(ctx context.Context, job Job, count uint32) {
	defer s.jobFinished()

	id := uuid.New()
	remaining := count

	ticker := time.NewTicker(job.Interval)
	defer ticker.Stop()

	for remaining > 0 {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.publish(ctx, job)
			remaining--
		}
	}

	s.log.WithFields(logrus.Fields{"job": id, "topic": job.Topic}).Debug("removing exhausted periodic trigger")
}

func (s *Scheduler) publish(ctx context.Context, job Job) {
	err := s.svc.Publish(ctx, mqttservice.PublishEvent{
		Topic:   job.Topic,
		Qos:     job.Qos,
		Retain:  job.Retain,
		Payload: job.Payload,
	})
	if err != nil {
		metrics.SchedulerPublishFailuresTotal.WithLabelValues(job.Topic).Inc()
		s.log.WithError(err).WithField("topic", job.Topic).Error("periodic publish failed")
		return
	}

	metrics.MessagesPublishedTotal.WithLabelValues(job.Topic).Inc()
}
