package commands

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	contractsv1 "sheepyard/contracts/gen/events/v1"
	application "sheepyard/contexts/scheduling/event-polls/application"
	"sheepyard/contexts/scheduling/event-polls/ports"
)

const (
	moduleName        = "scheduling/event-polls"
	stateEventTimeout = 5 * time.Second
)

func newPollEnvelope(
	eventID string,
	eventType string,
	pollID string,
	occurredAt time.Time,
	data map[string]any,
) (ports.EventEnvelope, error) {
	// Poll-scoped events are partitioned by poll so live views see them in order.
	payload, err := json.Marshal(data)
	if err != nil {
		return ports.EventEnvelope{}, err
	}
	return ports.EventEnvelope{
		EventID:          eventID,
		EventType:        eventType,
		OccurredAt:       occurredAt.UTC(),
		SourceService:    "event-polls",
		TraceID:          eventID,
		SchemaVersion:    1,
		PartitionKeyPath: "poll_id",
		PartitionKey:     pollID,
		Data:             payload,
	}, nil
}

// publishStateChanged announces that a poll's slots or votes changed. The
// mutation has already committed, so the broker write runs detached from the
// request and a failure is logged and dropped. Consumers re-read the snapshot
// on every signal, so delivery order between signals does not matter.
func publishStateChanged(
	ctx context.Context,
	publisher ports.EventPublisher,
	idGen ports.IDGenerator,
	logger *slog.Logger,
	pollID string,
	reason string,
	now time.Time,
) {
	if publisher == nil {
		return
	}
	logger = application.ResolveLogger(logger)
	eventID, err := idGen.NewID(ctx)
	if err != nil {
		logger.Warn("poll state event id generation failed",
			"event", "event_polls_state_event_id_failed",
			"module", moduleName,
			"layer", "application",
			"poll_id", pollID,
			"error", err.Error(),
		)
		return
	}
	envelope, err := newPollEnvelope(eventID, contractsv1.TopicPollStateChanged, pollID, now, map[string]any{
		"poll_id": pollID,
		"reason":  reason,
	})
	if err != nil {
		return
	}
	application.DispatchDetached(ctx, logger, moduleName, "event_polls_state_event_publish", stateEventTimeout,
		func(ctx context.Context) error {
			return publisher.Publish(ctx, contractsv1.TopicPollStateChanged, envelope)
		},
	)
}

func resolveNow(clock ports.Clock) time.Time {
	if clock != nil {
		return clock.Now().UTC()
	}
	return time.Now().UTC()
}
