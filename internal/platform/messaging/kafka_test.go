package messaging

import (
	"context"
	"testing"
	"time"

	contractsv1 "sheepyard/contracts/gen/events/v1"
)

func TestBusFansOutInProcess(t *testing.T) {
	bus, err := NewBus(nil, nil)
	if err != nil {
		t.Fatalf("new bus: %v", err)
	}
	if bus.External() {
		t.Fatal("bus without brokers must stay in-process")
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	first := make(chan string, 1)
	second := make(chan string, 1)
	handler := func(out chan string) func(context.Context, contractsv1.Envelope) error {
		return func(_ context.Context, event contractsv1.Envelope) error {
			out <- event.EventID
			return nil
		}
	}
	if err := bus.Subscribe(ctx, contractsv1.TopicPollStateChanged, "a", handler(first)); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	if err := bus.Subscribe(ctx, contractsv1.TopicPollStateChanged, "b", handler(second)); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	if err := bus.Publish(ctx, contractsv1.TopicVoteCast, contractsv1.Envelope{EventID: "other"}); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if err := bus.Publish(ctx, contractsv1.TopicPollStateChanged, contractsv1.Envelope{EventID: "evt-1"}); err != nil {
		t.Fatalf("publish: %v", err)
	}

	for _, ch := range []chan string{first, second} {
		select {
		case got := <-ch:
			if got != "evt-1" {
				t.Fatalf("unexpected event %q", got)
			}
		case <-time.After(time.Second):
			t.Fatal("event not delivered")
		}
	}
}

func TestBusWithBrokersUsesKafka(t *testing.T) {
	bus, err := NewBus([]string{" ", "kafka-1:9092"}, nil)
	if err != nil {
		t.Fatalf("new bus: %v", err)
	}
	defer bus.Close()
	if !bus.External() || len(bus.brokers) != 1 {
		t.Fatalf("expected one kafka broker, got %v", bus.brokers)
	}
	if err := bus.Subscribe(context.Background(), contractsv1.TopicPollStateChanged, "", func(context.Context, contractsv1.Envelope) error {
		return nil
	}); err == nil {
		t.Fatal("kafka subscription without consumer group must fail")
	}
}
