package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kaans/mqtli/internal/mqttservice"
)

type fakeService struct {
	mu        sync.Mutex
	published []mqttservice.PublishEvent
}

func (f *fakeService) Connect(context.Context) error    { return nil }
func (f *fakeService) Disconnect(context.Context) error { return nil }
func (f *fakeService) Subscribe(context.Context, string, mqttservice.QoS) error { return nil }
func (f *fakeService) Receive() <-chan mqttservice.ReceiveEvent                 { return nil }

func (f *fakeService) Publish(_ context.Context, event mqttservice.PublishEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published = append(f.published, event)
	return nil
}

func (f *fakeService) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.published)
}

func TestScheduleZeroCountPublishesNothing(t *testing.T) {
	svc := &fakeService{}
	s := New(svc, nil)
	count := uint32(0)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s.AddSchedule(ctx, Job{Topic: "t", Count: &count, InitialDelay: time.Millisecond})

	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 0, svc.count())

	select {
	case <-s.NoMoreTasksPending():
	case <-time.After(time.Second):
		t.Fatal("expected NoMoreTasksPending to fire for a zero-count schedule")
	}
}

func TestScheduleCountFiresExactlyCountTimes(t *testing.T) {
	svc := &fakeService{}
	s := New(svc, nil)
	count := uint32(3)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s.AddSchedule(ctx, Job{
		Topic:        "t",
		Count:        &count,
		InitialDelay: time.Millisecond,
		Interval:     5 * time.Millisecond,
	})

	require.Eventually(t, func() bool { return svc.count() == 3 }, 2*time.Second, 5*time.Millisecond)

	select {
	case <-s.NoMoreTasksPending():
	case <-time.After(time.Second):
		t.Fatal("expected NoMoreTasksPending after count exhausted")
	}
}

func TestScheduleNilCountRepeatsForever(t *testing.T) {
	svc := &fakeService{}
	s := New(svc, nil)

	ctx, cancel := context.WithCancel(context.Background())

	s.AddSchedule(ctx, Job{
		Topic:        "t",
		InitialDelay: time.Millisecond,
		Interval:     5 * time.Millisecond,
	})

	require.Eventually(t, func() bool { return svc.count() >= 3 }, 2*time.Second, 5*time.Millisecond)

	select {
	case <-s.NoMoreTasksPending():
		t.Fatal("forever schedule should not report NoMoreTasksPending while running")
	case <-time.After(50 * time.Millisecond):
	}

	cancel()
	s.Wait()
}
