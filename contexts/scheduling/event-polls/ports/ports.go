package ports

import (
	"context"
	"time"

	contractsv1 "sheepyard/contracts/gen/events/v1"
	"sheepyard/contexts/scheduling/event-polls/domain/entities"
)

type PollRepository interface {
	CreatePoll(ctx context.Context, poll entities.Poll, slots []entities.Slot) error
	GetPoll(ctx context.Context, pollID string) (entities.Poll, error)
	ListPolls(ctx context.Context) ([]entities.Poll, error)
	// UpdatePoll runs edit against the locked poll and stores the metadata it
	// returns. Recurrence fields are never written, and DeadlineSent only
	// when the deadline instant changed.
	UpdatePoll(ctx context.Context, pollID string, edit PollEditor) (entities.Poll, error)
	DeletePoll(ctx context.Context, pollID string) error
	ListSlots(ctx context.Context, pollID string) ([]entities.Slot, error)
	// ModifySeries runs planner against the locked poll and its current slots
	// and applies the returned plan in the same transaction.
	ModifySeries(ctx context.Context, pollID string, planner SeriesPlanner) (entities.Poll, []entities.Slot, error)
}

type PollEditor func(poll entities.Poll) (entities.Poll, error)

type SeriesPlanner func(poll entities.Poll, slots []entities.Slot) (SeriesPlan, error)

// SeriesPlan describes one atomic series edit: the new recurrence metadata,
// the cutoff from which existing slots are removed, and their replacements.
type SeriesPlan struct {
	RecurrenceRule string
	RecurrenceEnd  *time.Time
	CutoffAt       time.Time
	NewSlots       []entities.Slot
	UpdatedAt      time.Time
}

type SnapshotReader interface {
	GetPollSnapshot(ctx context.Context, pollID string) (entities.PollSnapshot, error)
}

type ToggleVoteRequest struct {
	SlotID   string
	MemberID string
	VoteID   string
	CastAt   time.Time
}

type ToggleVoteRecord struct {
	Outcome entities.ToggleOutcome
	PollID  string
	SlotID  string
	VoteID  string
}

type VoteRepository interface {
	// ToggleVote removes the (slot, member) vote when present and inserts it
	// otherwise, as one atomic read-modify-write.
	ToggleVote(ctx context.Context, req ToggleVoteRequest) (ToggleVoteRecord, error)
}

type MemberRepository interface {
	ListMembersByIDs(ctx context.Context, memberIDs []string) ([]entities.Member, error)
}

type DueSlot struct {
	Poll entities.Poll
	Slot entities.Slot
}

type DeadlineRepository interface {
	ListDueOneShotPolls(ctx context.Context, now time.Time) ([]entities.Poll, error)
	ListDueRecurringSlots(ctx context.Context, now time.Time) ([]DueSlot, error)
	MarkPollDeadlineSent(ctx context.Context, pollID string) error
	MarkSlotNotificationSent(ctx context.Context, slotID string) error
}

type RecurrenceExpander interface {
	Expand(template entities.SlotDraft, rule string, until *time.Time, overrideStart *time.Time) ([]entities.SlotDraft, error)
}

type NotificationField struct {
	Name   string
	Value  string
	Inline bool
}

// Notification is a channel message. InstanceStartsAt is set for recurring
// instances so the transport can render the start in the reader's zone.
type Notification struct {
	ChannelID          string
	Headline           string
	Title              string
	InstanceStartsAt   *time.Time
	URL                string
	Description        string
	Fields             []NotificationField
	MentionExternalIDs []string
}

type Notifier interface {
	Send(ctx context.Context, notification Notification) (string, error)
}

type VoteCastNotice struct {
	PollID   string
	SlotID   string
	VoteID   string
	MemberID string
	CastAt   time.Time
}

type VoteCastNotifier interface {
	NotifyVoteCast(ctx context.Context, notice VoteCastNotice) error
}

type MentionRecorder interface {
	RecordMentions(ctx context.Context, creatorID string, targetIDs []string) error
}

type EventEnvelope = contractsv1.Envelope

type EventPublisher interface {
	Publish(ctx context.Context, topic string, event EventEnvelope) error
}

type EventSubscriber interface {
	Subscribe(
		ctx context.Context,
		topic string,
		consumerGroup string,
		handler func(context.Context, EventEnvelope) error,
	) error
}

// LiveConn is one subscriber connection for a poll's live view.
type LiveConn interface {
	Push(ctx context.Context, snapshot entities.PollSnapshot) error
	Close(reason string)
}

// Broadcaster refreshes every live view of a poll.
type Broadcaster interface {
	Publish(ctx context.Context, pollID string) error
}

type CalendarEncoder interface {
	EncodeCalendar(snapshot entities.PollSnapshot, eventURL string) ([]byte, error)
}

type TickLease interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)
}

type RandomSource interface {
	Intn(n int) int
}

type Metrics interface {
	VoteToggled(outcome string)
	DeadlineProcessed(kind string, result string)
	DeadlineScanObserved(duration time.Duration)
	BroadcastPushed(result string)
}

type Clock interface {
	Now() time.Time
}

type IDGenerator interface {
	NewID(ctx context.Context) (string, error)
}
