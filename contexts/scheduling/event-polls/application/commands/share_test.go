package commands

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"sheepyard/contexts/scheduling/event-polls/adapters/memory"
	"sheepyard/contexts/scheduling/event-polls/domain/entities"
	domainerrors "sheepyard/contexts/scheduling/event-polls/domain/errors"
)

func seededShareStore(recurring bool, description string) *memory.Store {
	store := memory.NewStore()
	start := time.Date(2026, 3, 6, 19, 0, 0, 0, time.UTC)
	store.SetPoll(entities.Poll{
		PollID:      "poll-1",
		CreatorID:   "alice",
		Title:       "Movie night",
		Description: description,
		IsRecurring: recurring,
	}, entities.Slot{SlotID: "slot-1", Label: "Fri", StartsAt: start, EndsAt: start.Add(2 * time.Hour)})
	store.SetMember(entities.Member{MemberID: "alice", ExternalID: "d-alice", DisplayName: "Alice"})
	store.SetMember(entities.Member{MemberID: "bob", ExternalID: "d-bob", Username: "bob"})
	return store
}

func TestSharePollBuildsAnnouncement(t *testing.T) {
	store := seededShareStore(false, strings.Repeat("x", 250))
	notifier := &recordingNotifier{}
	mentions := &recordingMentions{}
	uc := ShareUseCase{
		Snapshots:    store,
		Members:      store,
		Notifier:     notifier,
		Mentions:     mentions,
		FrontendBase: "https://yard.example/",
	}

	result, err := uc.SharePoll(context.Background(), SharePollCommand{
		PollID:     "poll-1",
		ActorID:    "alice",
		ChannelID:  "chan-1",
		MentionIDs: []string{"bob", "ghost", "bob"},
	})
	if err != nil {
		t.Fatalf("share poll: %v", err)
	}
	if result.MessageID != "msg-1" {
		t.Fatalf("unexpected message id %q", result.MessageID)
	}

	sent := notifier.sent[0]
	if sent.Headline != "**New Event Shared!**" {
		t.Fatalf("unexpected headline %q", sent.Headline)
	}
	if sent.URL != "https://yard.example/apps/calendar/events/poll-1" {
		t.Fatalf("unexpected url %q", sent.URL)
	}
	if len([]rune(sent.Description)) != 200 || !strings.HasSuffix(sent.Description, "...") {
		t.Fatalf("description not truncated to 200: %d", len(sent.Description))
	}
	if len(sent.Fields) != 2 || sent.Fields[0].Value != "Fri, Mar 06 @ 19:00 - 21:00" || sent.Fields[1].Value != "Alice" {
		t.Fatalf("unexpected fields %+v", sent.Fields)
	}
	if len(sent.MentionExternalIDs) != 1 || sent.MentionExternalIDs[0] != "d-bob" {
		t.Fatalf("unexpected mentions %v", sent.MentionExternalIDs)
	}
	if len(mentions.calls) != 1 || mentions.calls[0][0] != "alice" {
		t.Fatalf("expected mentions recorded for the sharer, got %v", mentions.calls)
	}
}

func TestSharePollMarksRecurringStart(t *testing.T) {
	store := seededShareStore(true, "")
	notifier := &recordingNotifier{}
	uc := ShareUseCase{Snapshots: store, Members: store, Notifier: notifier}

	if _, err := uc.SharePoll(context.Background(), SharePollCommand{PollID: "poll-1", ActorID: "alice", ChannelID: "chan-1", Message: "Join us"}); err != nil {
		t.Fatalf("share poll: %v", err)
	}
	sent := notifier.sent[0]
	if sent.Headline != "Join us" {
		t.Fatalf("custom message should replace headline, got %q", sent.Headline)
	}
	if sent.Fields[0].Value != "Starts Fri, Mar 06 @ 19:00 (Recurring)" {
		t.Fatalf("unexpected when field %q", sent.Fields[0].Value)
	}
}

func TestSharePollErrors(t *testing.T) {
	store := seededShareStore(false, "")
	uc := ShareUseCase{Snapshots: store, Members: store, Notifier: &recordingNotifier{err: errors.New("chat down")}}

	if _, err := uc.SharePoll(context.Background(), SharePollCommand{PollID: "poll-1", ActorID: "alice"}); !errors.Is(err, domainerrors.ErrChannelRequired) {
		t.Fatalf("expected ErrChannelRequired, got %v", err)
	}
	if _, err := uc.SharePoll(context.Background(), SharePollCommand{PollID: "nope", ActorID: "alice", ChannelID: "c"}); !errors.Is(err, domainerrors.ErrPollNotFound) {
		t.Fatalf("expected ErrPollNotFound, got %v", err)
	}
	if _, err := uc.SharePoll(context.Background(), SharePollCommand{PollID: "poll-1", ActorID: "alice", ChannelID: "c"}); err == nil {
		t.Fatal("expected dispatch failure to surface")
	}
}
