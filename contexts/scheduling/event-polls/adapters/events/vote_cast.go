package eventsadapter

import (
	"context"
	"fmt"

	contractsv1 "sheepyard/contracts/gen/events/v1"
	"sheepyard/contexts/scheduling/event-polls/ports"

	"github.com/goccy/go-json"
)

type voteCastPayload struct {
	PollID   string `json:"poll_id"`
	SlotID   string `json:"slot_id"`
	VoteID   string `json:"vote_id"`
	MemberID string `json:"member_id"`
	CastAt   string `json:"cast_at"`
}

// VoteCastPublisher delivers vote-cast notices as vote.cast events keyed by
// poll. Downstream consumers (chat digests, analytics) read them from the
// Kafka mirror.
type VoteCastPublisher struct {
	Publisher ports.EventPublisher
	IDGen     ports.IDGenerator
}

var _ ports.VoteCastNotifier = VoteCastPublisher{}

func (p VoteCastPublisher) NotifyVoteCast(ctx context.Context, notice ports.VoteCastNotice) error {
	eventID, err := p.IDGen.NewID(ctx)
	if err != nil {
		return fmt.Errorf("vote cast event id: %w", err)
	}
	payload, err := json.Marshal(voteCastPayload{
		PollID:   notice.PollID,
		SlotID:   notice.SlotID,
		VoteID:   notice.VoteID,
		MemberID: notice.MemberID,
		CastAt:   notice.CastAt.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
	})
	if err != nil {
		return fmt.Errorf("vote cast payload: %w", err)
	}
	return p.Publisher.Publish(ctx, contractsv1.TopicVoteCast, ports.EventEnvelope{
		EventID:          eventID,
		EventType:        contractsv1.TopicVoteCast,
		OccurredAt:       notice.CastAt.UTC(),
		SourceService:    "event-polls",
		TraceID:          eventID,
		SchemaVersion:    1,
		PartitionKeyPath: "poll_id",
		PartitionKey:     notice.PollID,
		Data:             payload,
	})
}
