package messaging

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	contractsv1 "ballotbox/contracts/gen/events/v1"
)

func waitFor(t *testing.T, condition func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if condition() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met before deadline")
}

func TestKafkaDeliversOncePerConsumerGroup(t *testing.T) {
	bus, _ := NewKafka(nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var groupA, groupB atomic.Int32
	count := func(counter *atomic.Int32) func(context.Context, contractsv1.Envelope) error {
		return func(context.Context, contractsv1.Envelope) error {
			counter.Add(1)
			return nil
		}
	}
	for i := 0; i < 2; i++ {
		if err := bus.Subscribe(ctx, "ballot.vote_cast", "group-a", count(&groupA)); err != nil {
			t.Fatalf("subscribe failed: %v", err)
		}
	}
	if err := bus.Subscribe(ctx, "ballot.vote_cast", "group-b", count(&groupB)); err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}

	for i := 0; i < 3; i++ {
		if err := bus.Publish(ctx, "ballot.vote_cast", contractsv1.Envelope{EventID: "evt"}); err != nil {
			t.Fatalf("publish failed: %v", err)
		}
	}
	waitFor(t, func() bool { return groupA.Load() == 3 && groupB.Load() == 3 })
}

func TestKafkaRejectsAfterClose(t *testing.T) {
	bus, _ := NewKafka([]string{" localhost:9092 ", ""}, nil)
	bus.Close()
	if err := bus.Publish(context.Background(), "t", contractsv1.Envelope{}); err != ErrBusClosed {
		t.Fatalf("expected bus closed, got %v", err)
	}
}

func TestKafkaReportsFullConsumerQueue(t *testing.T) {
	bus, _ := NewKafka(nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	release := make(chan struct{})
	var handled atomic.Int32
	if err := bus.Subscribe(ctx, "ballot.leader_changed", "stuck", func(context.Context, contractsv1.Envelope) error {
		handled.Add(1)
		<-release
		return nil
	}); err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}

	var err error
	published := 0
	for i := 0; i < subscriberBuffer+2; i++ {
		if err = bus.Publish(ctx, "ballot.leader_changed", contractsv1.Envelope{EventID: "evt"}); err != nil {
			break
		}
		published++
	}
	if !errors.Is(err, ErrConsumerLagging) {
		t.Fatalf("expected consumer lagging error, got %v after %d events", err, published)
	}
	if published < subscriberBuffer {
		t.Fatalf("expected at least %d queued events, got %d", subscriberBuffer, published)
	}

	close(release)
	waitFor(t, func() bool { return handled.Load() == int32(published) })
}
