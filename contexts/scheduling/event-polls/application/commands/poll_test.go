package commands

import (
	"context"
	"errors"
	"testing"
	"time"

	"sheepyard/contexts/scheduling/event-polls/adapters/memory"
	"sheepyard/contexts/scheduling/event-polls/adapters/recurrence"
	"sheepyard/contexts/scheduling/event-polls/domain/entities"
	domainerrors "sheepyard/contexts/scheduling/event-polls/domain/errors"
)

var now = time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)

func newPollUseCase(store *memory.Store, publisher *recordingPublisher) PollUseCase {
	return PollUseCase{
		Polls:     store,
		Expander:  recurrence.Expander{},
		Publisher: publisher,
		Clock:     fixedClock{now: now},
		IDGen:     &sequenceIDs{},
	}
}

func weeklyCommand(rule string) CreatePollCommand {
	start := time.Date(2026, 1, 5, 18, 0, 0, 0, time.UTC)
	until := time.Date(2026, 2, 2, 23, 59, 0, 0, time.UTC)
	return CreatePollCommand{
		CreatorID:      "alice",
		Title:          "Weekly board games",
		Options:        []entities.SlotDraft{{StartsAt: start, EndsAt: start.Add(3 * time.Hour)}},
		IsRecurring:    true,
		RecurrenceRule: rule,
		RecurrenceEnd:  &until,
	}
}

func TestCreatePollExpandsRecurringSeries(t *testing.T) {
	store := memory.NewStore()
	uc := newPollUseCase(store, &recordingPublisher{})

	result, err := uc.CreatePoll(context.Background(), weeklyCommand("FREQ=WEEKLY"))
	if err != nil {
		t.Fatalf("create poll: %v", err)
	}
	if !result.Expanded {
		t.Fatal("expected recurring poll to be expanded")
	}
	if len(result.Slots) != 5 {
		t.Fatalf("expected 5 weekly slots through Feb 2, got %d", len(result.Slots))
	}
	slots, _ := store.ListSlots(context.Background(), result.Poll.PollID)
	if len(slots) != 5 {
		t.Fatalf("expected 5 persisted slots, got %d", len(slots))
	}
	if slots[0].Label != "Mon, Jan 05 @ 18:00" {
		t.Fatalf("unexpected generated label %q", slots[0].Label)
	}
}

func TestCreatePollFallsBackToOptionsOnBadRule(t *testing.T) {
	store := memory.NewStore()
	uc := newPollUseCase(store, &recordingPublisher{})

	result, err := uc.CreatePoll(context.Background(), weeklyCommand("FREQ=NEVER"))
	if err != nil {
		t.Fatalf("create poll: %v", err)
	}
	if result.Expanded {
		t.Fatal("expected fallback to submitted options")
	}
	if len(result.Slots) != 1 {
		t.Fatalf("expected the single submitted option, got %d slots", len(result.Slots))
	}
}

func TestCreatePollValidatesInput(t *testing.T) {
	uc := newPollUseCase(memory.NewStore(), &recordingPublisher{})
	start := now.Add(24 * time.Hour)
	deadline := now.Add(time.Hour)
	offset := time.Hour

	cases := []struct {
		name string
		cmd  CreatePollCommand
		want error
	}{
		{"missing creator", CreatePollCommand{Title: "x"}, domainerrors.ErrMemberRequired},
		{"missing title", CreatePollCommand{CreatorID: "alice"}, domainerrors.ErrInvalidPollInput},
		{"no options", CreatePollCommand{CreatorID: "alice", Title: "x"}, domainerrors.ErrNoOptions},
		{"inverted option", CreatePollCommand{CreatorID: "alice", Title: "x",
			Options: []entities.SlotDraft{{StartsAt: start, EndsAt: start.Add(-time.Hour)}}}, domainerrors.ErrInvalidTimeRange},
		{"recurring without rule", CreatePollCommand{CreatorID: "alice", Title: "x", IsRecurring: true,
			Options: []entities.SlotDraft{{StartsAt: start, EndsAt: start.Add(time.Hour)}}}, domainerrors.ErrInvalidRecurrenceRule},
		{"recurring with absolute deadline", CreatePollCommand{CreatorID: "alice", Title: "x", IsRecurring: true, RecurrenceRule: "FREQ=DAILY",
			DeadlineAt: &deadline,
			Options:    []entities.SlotDraft{{StartsAt: start, EndsAt: start.Add(time.Hour)}}}, domainerrors.ErrInvalidDeadline},
		{"one-shot with offset", CreatePollCommand{CreatorID: "alice", Title: "x",
			DeadlineOffset: &offset,
			Options:        []entities.SlotDraft{{StartsAt: start, EndsAt: start.Add(time.Hour)}}}, domainerrors.ErrInvalidDeadline},
	}
	for _, tc := range cases {
		if _, err := uc.CreatePoll(context.Background(), tc.cmd); !errors.Is(err, tc.want) {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, err)
		}
	}
}

func TestModifySeriesReplacesFutureSlotsOnly(t *testing.T) {
	store := memory.NewStore()
	publisher := &recordingPublisher{}
	uc := newPollUseCase(store, publisher)

	created, err := uc.CreatePoll(context.Background(), weeklyCommand("FREQ=WEEKLY"))
	if err != nil {
		t.Fatalf("create poll: %v", err)
	}
	past := created.Slots[0]
	store.SetVote(entities.Vote{VoteID: "keep", SlotID: past.SlotID, MemberID: "bob", CastAt: now})
	store.SetVote(entities.Vote{VoteID: "drop", SlotID: created.Slots[3].SlotID, MemberID: "bob", CastAt: now})

	cutoff := time.Date(2026, 1, 13, 0, 0, 0, 0, time.UTC)
	until := time.Date(2026, 1, 31, 23, 59, 0, 0, time.UTC)
	result, err := uc.ModifySeries(context.Background(), ModifySeriesCommand{
		PollID:         created.Poll.PollID,
		ActorID:        "alice",
		RecurrenceRule: "FREQ=WEEKLY;BYDAY=WE,SA",
		RecurrenceEnd:  &until,
		CutoffAt:       cutoff,
	})
	if err != nil {
		t.Fatalf("modify series: %v", err)
	}
	if result.Poll.RecurrenceRule != "FREQ=WEEKLY;BYDAY=WE,SA" {
		t.Fatalf("rule not stored: %q", result.Poll.RecurrenceRule)
	}

	// Jan 5 and Jan 12 survive; Wednesdays and Saturdays from Jan 14 to Jan 31 are new.
	wantStarts := []time.Time{
		time.Date(2026, 1, 5, 18, 0, 0, 0, time.UTC),
		time.Date(2026, 1, 12, 18, 0, 0, 0, time.UTC),
		time.Date(2026, 1, 14, 18, 0, 0, 0, time.UTC),
		time.Date(2026, 1, 17, 18, 0, 0, 0, time.UTC),
		time.Date(2026, 1, 21, 18, 0, 0, 0, time.UTC),
		time.Date(2026, 1, 24, 18, 0, 0, 0, time.UTC),
		time.Date(2026, 1, 28, 18, 0, 0, 0, time.UTC),
		time.Date(2026, 1, 31, 18, 0, 0, 0, time.UTC),
	}
	if len(result.Slots) != len(wantStarts) {
		t.Fatalf("expected %d slots, got %d", len(wantStarts), len(result.Slots))
	}
	for i, slot := range result.Slots {
		if !slot.StartsAt.Equal(wantStarts[i]) {
			t.Fatalf("slot %d starts %s, want %s", i, slot.StartsAt, wantStarts[i])
		}
		if slot.Duration() != 3*time.Hour {
			t.Fatalf("slot %d has duration %s", i, slot.Duration())
		}
	}

	snapshot, err := store.GetPollSnapshot(context.Background(), created.Poll.PollID)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if snapshot.TotalVotes() != 1 {
		t.Fatalf("expected only the past vote to survive, got %d", snapshot.TotalVotes())
	}
	publisher.waitForEvents(t, 1)
}

func TestModifySeriesDefaultsTemplateWhenNothingSurvives(t *testing.T) {
	store := memory.NewStore()
	uc := newPollUseCase(store, &recordingPublisher{})
	created, err := uc.CreatePoll(context.Background(), weeklyCommand("FREQ=WEEKLY"))
	if err != nil {
		t.Fatalf("create poll: %v", err)
	}

	cutoff := time.Date(2026, 1, 1, 7, 0, 0, 0, time.UTC)
	result, err := uc.ModifySeries(context.Background(), ModifySeriesCommand{
		PollID:         created.Poll.PollID,
		ActorID:        "alice",
		RecurrenceRule: "FREQ=DAILY;COUNT=2",
		CutoffAt:       cutoff,
	})
	if err != nil {
		t.Fatalf("modify series: %v", err)
	}
	if len(result.Slots) != 2 {
		t.Fatalf("expected 2 slots, got %d", len(result.Slots))
	}
	if !result.Slots[0].StartsAt.Equal(cutoff) || result.Slots[0].Duration() != time.Hour {
		t.Fatalf("expected one-hour template at cutoff, got %+v", result.Slots[0])
	}
}

func TestModifySeriesRejectsNonCreatorAndBadRules(t *testing.T) {
	store := memory.NewStore()
	uc := newPollUseCase(store, &recordingPublisher{})
	created, err := uc.CreatePoll(context.Background(), weeklyCommand("FREQ=WEEKLY"))
	if err != nil {
		t.Fatalf("create poll: %v", err)
	}

	_, err = uc.ModifySeries(context.Background(), ModifySeriesCommand{
		PollID: created.Poll.PollID, ActorID: "mallory", RecurrenceRule: "FREQ=DAILY",
	})
	if !errors.Is(err, domainerrors.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}

	_, err = uc.ModifySeries(context.Background(), ModifySeriesCommand{
		PollID: created.Poll.PollID, ActorID: "alice", RecurrenceRule: "FREQ=WHENEVER",
	})
	if !errors.Is(err, domainerrors.ErrInvalidRecurrenceRule) {
		t.Fatalf("expected ErrInvalidRecurrenceRule, got %v", err)
	}
	slots, _ := store.ListSlots(context.Background(), created.Poll.PollID)
	if len(slots) != len(created.Slots) {
		t.Fatalf("rejected edit changed slots: %d -> %d", len(created.Slots), len(slots))
	}

	start := now.Add(48 * time.Hour)
	oneShot, err := uc.CreatePoll(context.Background(), CreatePollCommand{
		CreatorID: "alice", Title: "Dinner",
		Options: []entities.SlotDraft{{StartsAt: start, EndsAt: start.Add(time.Hour)}},
	})
	if err != nil {
		t.Fatalf("create one-shot: %v", err)
	}
	_, err = uc.ModifySeries(context.Background(), ModifySeriesCommand{
		PollID: oneShot.Poll.PollID, ActorID: "alice", RecurrenceRule: "FREQ=DAILY",
	})
	if !errors.Is(err, domainerrors.ErrNotRecurring) {
		t.Fatalf("expected ErrNotRecurring, got %v", err)
	}
}

func TestUpdatePollResetsSentFlagWhenDeadlineMoves(t *testing.T) {
	store := memory.NewStore()
	uc := newPollUseCase(store, &recordingPublisher{})
	deadline := now.Add(time.Hour)
	store.SetPoll(entities.Poll{PollID: "poll-1", CreatorID: "alice", Title: "Dinner", DeadlineAt: &deadline, DeadlineSent: true})

	moved := now.Add(2 * time.Hour)
	updated, err := uc.UpdatePoll(context.Background(), UpdatePollCommand{PollID: "poll-1", ActorID: "alice", DeadlineAt: &moved})
	if err != nil {
		t.Fatalf("update poll: %v", err)
	}
	if updated.DeadlineSent {
		t.Fatal("moving the deadline must re-arm the notification")
	}

	if _, err := uc.UpdatePoll(context.Background(), UpdatePollCommand{PollID: "poll-1", ActorID: "bob"}); !errors.Is(err, domainerrors.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

// interleavedStore runs afterRead once the use case has read the poll, standing
// in for a concurrent writer that lands between the read and the update.
type interleavedStore struct {
	*memory.Store
	afterRead func()
}

func (s interleavedStore) GetPoll(ctx context.Context, pollID string) (entities.Poll, error) {
	poll, err := s.Store.GetPoll(ctx, pollID)
	if err == nil && s.afterRead != nil {
		s.afterRead()
	}
	return poll, err
}

func TestUpdatePollKeepsConcurrentDeadlineSent(t *testing.T) {
	store := memory.NewStore()
	deadline := now.Add(-time.Minute)
	store.SetPoll(entities.Poll{PollID: "poll-1", CreatorID: "alice", Title: "Dinner", DeadlineAt: &deadline})
	uc := newPollUseCase(store, &recordingPublisher{})
	uc.Polls = interleavedStore{Store: store, afterRead: func() {
		if err := store.MarkPollDeadlineSent(context.Background(), "poll-1"); err != nil {
			t.Fatalf("mark sent: %v", err)
		}
	}}

	title := "Dinner at eight"
	updated, err := uc.UpdatePoll(context.Background(), UpdatePollCommand{PollID: "poll-1", ActorID: "alice", Title: &title})
	if err != nil {
		t.Fatalf("update poll: %v", err)
	}
	if updated.Title != title || !updated.DeadlineSent {
		t.Fatalf("unexpected poll after title edit: %+v", updated)
	}
	due, err := store.ListDueOneShotPolls(context.Background(), now)
	if err != nil {
		t.Fatalf("list due: %v", err)
	}
	if len(due) != 0 {
		t.Fatalf("title edit re-armed a sent deadline: %+v", due)
	}
}

func TestUpdatePollKeepsConcurrentRecurrenceEdit(t *testing.T) {
	store := memory.NewStore()
	end := now.Add(7 * 24 * time.Hour)
	store.SetPoll(entities.Poll{
		PollID: "poll-1", CreatorID: "alice", Title: "Standup",
		IsRecurring: true, RecurrenceRule: "FREQ=DAILY", RecurrenceEnd: &end,
	})
	extended := now.Add(30 * 24 * time.Hour)
	uc := newPollUseCase(store, &recordingPublisher{})
	uc.Polls = interleavedStore{Store: store, afterRead: func() {
		current, err := store.GetPoll(context.Background(), "poll-1")
		if err != nil {
			t.Fatalf("get poll: %v", err)
		}
		current.RecurrenceRule = "FREQ=WEEKLY"
		current.RecurrenceEnd = &extended
		store.SetPoll(current)
	}}

	description := "moved to the small room"
	if _, err := uc.UpdatePoll(context.Background(), UpdatePollCommand{PollID: "poll-1", ActorID: "alice", Description: &description}); err != nil {
		t.Fatalf("update poll: %v", err)
	}
	stored, err := store.GetPoll(context.Background(), "poll-1")
	if err != nil {
		t.Fatalf("get poll: %v", err)
	}
	if stored.RecurrenceRule != "FREQ=WEEKLY" || stored.RecurrenceEnd == nil || !stored.RecurrenceEnd.Equal(extended) {
		t.Fatalf("metadata edit overwrote the series: %+v", stored)
	}
	if stored.Description != description {
		t.Fatalf("expected description %q, got %q", description, stored.Description)
	}
}

func TestDeletePollRequiresCreator(t *testing.T) {
	store := memory.NewStore()
	publisher := &recordingPublisher{}
	uc := newPollUseCase(store, publisher)
	store.SetPoll(entities.Poll{PollID: "poll-1", CreatorID: "alice", Title: "Dinner"})

	if err := uc.DeletePoll(context.Background(), DeletePollCommand{PollID: "poll-1", ActorID: "bob"}); !errors.Is(err, domainerrors.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if err := uc.DeletePoll(context.Background(), DeletePollCommand{PollID: "poll-1", ActorID: "alice"}); err != nil {
		t.Fatalf("delete poll: %v", err)
	}
	if _, err := store.GetPoll(context.Background(), "poll-1"); !errors.Is(err, domainerrors.ErrPollNotFound) {
		t.Fatalf("expected poll to be gone, got %v", err)
	}
	publisher.waitForEvents(t, 1)
}
