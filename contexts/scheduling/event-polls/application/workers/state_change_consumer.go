package workers

import (
	"context"
	"log/slog"

	contractsv1 "sheepyard/contracts/gen/events/v1"
	application "sheepyard/contexts/scheduling/event-polls/application"
	"sheepyard/contexts/scheduling/event-polls/ports"
)

// StateChangeConsumer turns poll.state_changed events into live snapshot
// broadcasts.
type StateChangeConsumer struct {
	Subscriber    ports.EventSubscriber
	Broadcaster   ports.Broadcaster
	ConsumerGroup string
	Logger        *slog.Logger
}

func (c StateChangeConsumer) Start(ctx context.Context) error {
	group := c.ConsumerGroup
	if group == "" {
		group = "event-polls-live-cg"
	}
	return c.Subscriber.Subscribe(ctx, contractsv1.TopicPollStateChanged, group, c.handle)
}

func (c StateChangeConsumer) handle(ctx context.Context, event ports.EventEnvelope) error {
	logger := application.ResolveLogger(c.Logger)
	pollID := decodePollID(event)
	if pollID == "" {
		logger.Warn("state change event without poll id",
			"event", "event_polls_state_event_invalid",
			"module", moduleName,
			"layer", "worker",
			"event_id", event.EventID,
		)
		return nil
	}
	return c.Broadcaster.Publish(ctx, pollID)
}
