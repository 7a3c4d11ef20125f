package workers

import (
	"context"
	"testing"

	contractsv1 "sheepyard/contracts/gen/events/v1"
	"sheepyard/contexts/scheduling/event-polls/ports"
)

type capturingSubscriber struct {
	topic   string
	group   string
	handler func(context.Context, ports.EventEnvelope) error
}

func (s *capturingSubscriber) Subscribe(
	_ context.Context,
	topic string,
	consumerGroup string,
	handler func(context.Context, ports.EventEnvelope) error,
) error {
	s.topic = topic
	s.group = consumerGroup
	s.handler = handler
	return nil
}

type recordingBroadcaster struct {
	pollIDs []string
}

func (b *recordingBroadcaster) Publish(_ context.Context, pollID string) error {
	b.pollIDs = append(b.pollIDs, pollID)
	return nil
}

func TestStateChangeConsumerBroadcastsPollFromPayload(t *testing.T) {
	subscriber := &capturingSubscriber{}
	broadcaster := &recordingBroadcaster{}
	consumer := StateChangeConsumer{Subscriber: subscriber, Broadcaster: broadcaster}

	if err := consumer.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	if subscriber.topic != contractsv1.TopicPollStateChanged || subscriber.group != "event-polls-live-cg" {
		t.Fatalf("unexpected subscription %s/%s", subscriber.topic, subscriber.group)
	}

	events := []ports.EventEnvelope{
		{EventID: "e1", Data: []byte(`{"poll_id":"poll-1"}`)},
		{EventID: "e2", PartitionKey: "poll-2", Data: []byte(`not json`)},
		{EventID: "e3"},
	}
	for _, event := range events {
		if err := subscriber.handler(context.Background(), event); err != nil {
			t.Fatalf("handle %s: %v", event.EventID, err)
		}
	}
	if len(broadcaster.pollIDs) != 2 || broadcaster.pollIDs[0] != "poll-1" || broadcaster.pollIDs[1] != "poll-2" {
		t.Fatalf("unexpected broadcasts %v", broadcaster.pollIDs)
	}
}
