package commands

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	contractsv1 "sheepyard/contracts/gen/events/v1"
	"sheepyard/contexts/scheduling/event-polls/adapters/memory"
	"sheepyard/contexts/scheduling/event-polls/domain/entities"
	domainerrors "sheepyard/contexts/scheduling/event-polls/domain/errors"
	"sheepyard/contexts/scheduling/event-polls/ports"
)

func seededVoteStore() *memory.Store {
	store := memory.NewStore()
	start := now.Add(24 * time.Hour)
	store.SetPoll(entities.Poll{PollID: "poll-1", CreatorID: "alice", Title: "Dinner"},
		entities.Slot{SlotID: "slot-1", Label: "Fri", StartsAt: start, EndsAt: start.Add(time.Hour)},
	)
	return store
}

func TestToggleVoteAddsThenRemoves(t *testing.T) {
	store := seededVoteStore()
	publisher := &recordingPublisher{}
	notifier := &voteCastRecorder{notices: make(chan ports.VoteCastNotice, 4)}
	uc := VoteUseCase{
		Votes:     store,
		Publisher: publisher,
		Notifier:  notifier,
		Clock:     fixedClock{now: now},
		IDGen:     &sequenceIDs{},
	}

	added, err := uc.ToggleVote(context.Background(), ToggleVoteCommand{MemberID: "bob", SlotID: "slot-1"})
	if err != nil {
		t.Fatalf("first toggle: %v", err)
	}
	if added.Outcome != entities.ToggleAdded || added.PollID != "poll-1" {
		t.Fatalf("unexpected first toggle %+v", added)
	}
	select {
	case notice := <-notifier.notices:
		if notice.MemberID != "bob" || notice.SlotID != "slot-1" {
			t.Fatalf("unexpected notice %+v", notice)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("expected a vote-cast notification for an added vote")
	}

	removed, err := uc.ToggleVote(context.Background(), ToggleVoteCommand{MemberID: "bob", SlotID: "slot-1"})
	if err != nil {
		t.Fatalf("second toggle: %v", err)
	}
	if removed.Outcome != entities.ToggleRemoved {
		t.Fatalf("expected removal, got %s", removed.Outcome)
	}
	select {
	case notice := <-notifier.notices:
		t.Fatalf("removal must not notify, got %+v", notice)
	case <-time.After(50 * time.Millisecond):
	}

	for _, topic := range publisher.waitForEvents(t, 2) {
		if topic != contractsv1.TopicPollStateChanged {
			t.Fatalf("unexpected topic %s", topic)
		}
	}
}

func TestToggleVoteDoesNotWaitForBroker(t *testing.T) {
	store := seededVoteStore()
	publisher := &blockingPublisher{release: make(chan struct{}), done: make(chan string, 1)}
	uc := VoteUseCase{Votes: store, Publisher: publisher, Clock: fixedClock{now: now}, IDGen: &sequenceIDs{}}

	returned := make(chan error, 1)
	go func() {
		_, err := uc.ToggleVote(context.Background(), ToggleVoteCommand{MemberID: "bob", SlotID: "slot-1"})
		returned <- err
	}()
	select {
	case err := <-returned:
		if err != nil {
			t.Fatalf("toggle: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("toggle blocked on a stalled broker")
	}

	close(publisher.release)
	select {
	case topic := <-publisher.done:
		if topic != contractsv1.TopicPollStateChanged {
			t.Fatalf("unexpected topic %s", topic)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("state change was never published")
	}
}

func TestToggleVoteNotificationFailureDoesNotFailToggle(t *testing.T) {
	store := seededVoteStore()
	notifier := &voteCastRecorder{notices: make(chan ports.VoteCastNotice, 1), err: errors.New("chat down")}
	uc := VoteUseCase{Votes: store, Notifier: notifier, Clock: fixedClock{now: now}, IDGen: &sequenceIDs{}}

	result, err := uc.ToggleVote(context.Background(), ToggleVoteCommand{MemberID: "bob", SlotID: "slot-1"})
	if err != nil {
		t.Fatalf("toggle failed because of notifier: %v", err)
	}
	if result.Outcome != entities.ToggleAdded {
		t.Fatalf("unexpected outcome %s", result.Outcome)
	}
	<-notifier.notices
}

func TestToggleVoteValidatesInput(t *testing.T) {
	uc := VoteUseCase{Votes: seededVoteStore(), Clock: fixedClock{now: now}, IDGen: &sequenceIDs{}}

	if _, err := uc.ToggleVote(context.Background(), ToggleVoteCommand{SlotID: "slot-1"}); !errors.Is(err, domainerrors.ErrMemberRequired) {
		t.Fatalf("expected ErrMemberRequired, got %v", err)
	}
	if _, err := uc.ToggleVote(context.Background(), ToggleVoteCommand{MemberID: "bob", SlotID: "nope"}); !errors.Is(err, domainerrors.ErrSlotNotFound) {
		t.Fatalf("expected ErrSlotNotFound, got %v", err)
	}
}

func TestConcurrentTogglesSettleOnParity(t *testing.T) {
	store := seededVoteStore()
	uc := VoteUseCase{Votes: store, Clock: fixedClock{now: now}, IDGen: &sequenceIDs{}}

	const toggles = 41
	var wg sync.WaitGroup
	for i := 0; i < toggles; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := uc.ToggleVote(context.Background(), ToggleVoteCommand{MemberID: "bob", SlotID: "slot-1"}); err != nil {
				t.Errorf("toggle: %v", err)
			}
		}()
	}
	wg.Wait()

	snapshot, err := store.GetPollSnapshot(context.Background(), "poll-1")
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if snapshot.TotalVotes() != 1 {
		t.Fatalf("odd number of toggles must leave exactly one vote, got %d", snapshot.TotalVotes())
	}
}
