package events

import (
	"context"
	"errors"
	"io"
	"sync/atomic"
	"testing"

	"zipcode_map/platform/logger"
)

type pinged struct {
	BaseEvent
}

func (pinged) EventName() string { return "test.pinged" }

func TestPublishOnlyReachesMatchingSubscribers(t *testing.T) {
	bus := NewInMemoryBus(logger.NewWithWriter("production", io.Discard))

	var pings, others atomic.Int32
	bus.Subscribe("test.pinged", HandlerFunc(func(context.Context, Event) error {
		pings.Add(1)
		return errors.New("logged, not returned")
	}))
	bus.Subscribe("test.other", HandlerFunc(func(context.Context, Event) error {
		others.Add(1)
		return nil
	}))

	bus.Publish(context.Background(), pinged{BaseEvent: NewBaseEvent()})
	bus.Wait()

	if pings.Load() != 1 || others.Load() != 0 {
		t.Fatalf("expected only the pinged handler to run, got pinged=%d other=%d", pings.Load(), others.Load())
	}
}

func TestPublishDeliversAsynchronouslyAndSurvivesPanics(t *testing.T) {
	bus := NewInMemoryBus(logger.NewWithWriter("production", io.Discard))

	var calls atomic.Int32
	bus.Subscribe("test.pinged", HandlerFunc(func(context.Context, Event) error {
		panic("handler bug")
	}))
	bus.Subscribe("test.pinged", HandlerFunc(func(context.Context, Event) error {
		calls.Add(1)
		return nil
	}))

	bus.Publish(context.Background(), pinged{BaseEvent: NewBaseEvent()})
	bus.Publish(context.Background(), pinged{BaseEvent: NewBaseEvent()})
	bus.Wait()

	if calls.Load() != 2 {
		t.Fatalf("expected 2 deliveries, got %d", calls.Load())
	}
}
