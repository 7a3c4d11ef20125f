package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"sheepyard/contexts/scheduling/event-polls/domain/entities"
	domainerrors "sheepyard/contexts/scheduling/event-polls/domain/errors"
	"sheepyard/contexts/scheduling/event-polls/ports"

	"github.com/google/uuid"
)

// Store keeps polls, slots, votes and members in process. Every mutation holds
// the write lock, so multi-row operations are atomic to readers.
type Store struct {
	mu sync.RWMutex

	polls   map[string]entities.Poll
	slots   map[string]entities.Slot
	votes   map[string]entities.Vote
	members map[string]entities.Member
}

var (
	_ ports.PollRepository     = (*Store)(nil)
	_ ports.SnapshotReader     = (*Store)(nil)
	_ ports.VoteRepository     = (*Store)(nil)
	_ ports.MemberRepository   = (*Store)(nil)
	_ ports.DeadlineRepository = (*Store)(nil)
	_ ports.IDGenerator        = (*Store)(nil)
	_ ports.Clock              = (*Store)(nil)
)

func NewStore() *Store {
	return &Store{
		polls:   make(map[string]entities.Poll),
		slots:   make(map[string]entities.Slot),
		votes:   make(map[string]entities.Vote),
		members: make(map[string]entities.Member),
	}
}

// SetPoll seeds a poll and its slots, replacing any previous slots.
func (s *Store) SetPoll(poll entities.Poll, slots ...entities.Slot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.polls[poll.PollID] = clonePoll(poll)
	for _, slot := range slots {
		slot.PollID = poll.PollID
		s.slots[slot.SlotID] = slot
	}
}

func (s *Store) SetVote(vote entities.Vote) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.votes[vote.VoteID] = vote
}

func (s *Store) SetMember(member entities.Member) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.members[member.MemberID] = member
}

func (s *Store) CreatePoll(_ context.Context, poll entities.Poll, slots []entities.Slot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.polls[poll.PollID]; exists {
		return domainerrors.ErrConflict
	}
	s.polls[poll.PollID] = clonePoll(poll)
	for _, slot := range slots {
		s.slots[slot.SlotID] = slot
	}
	return nil
}

func (s *Store) GetPoll(_ context.Context, pollID string) (entities.Poll, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	poll, ok := s.polls[strings.TrimSpace(pollID)]
	if !ok {
		return entities.Poll{}, domainerrors.ErrPollNotFound
	}
	return clonePoll(poll), nil
}

func (s *Store) ListPolls(_ context.Context) ([]entities.Poll, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]entities.Poll, 0, len(s.polls))
	for _, poll := range s.polls {
		out = append(out, clonePoll(poll))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PollID < out[j].PollID })
	return out, nil
}

func (s *Store) UpdatePoll(_ context.Context, pollID string, edit ports.PollEditor) (entities.Poll, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	pollID = strings.TrimSpace(pollID)
	poll, ok := s.polls[pollID]
	if !ok {
		return entities.Poll{}, domainerrors.ErrPollNotFound
	}
	next, err := edit(clonePoll(poll))
	if err != nil {
		return entities.Poll{}, err
	}

	if !entities.SameDeadline(poll.DeadlineAt, next.DeadlineAt) {
		poll.DeadlineSent = next.DeadlineSent
	}
	poll.Title = next.Title
	poll.Description = next.Description
	poll.DeadlineAt = next.DeadlineAt
	poll.DeadlineOffset = next.DeadlineOffset
	poll.DeadlineChannelID = next.DeadlineChannelID
	poll.DeadlineMessage = next.DeadlineMessage
	poll.DeadlineMentionIDs = append([]string(nil), next.DeadlineMentionIDs...)
	poll.UpdatedAt = next.UpdatedAt
	s.polls[pollID] = poll
	return clonePoll(poll), nil
}

func (s *Store) DeletePoll(_ context.Context, pollID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	pollID = strings.TrimSpace(pollID)
	if _, ok := s.polls[pollID]; !ok {
		return domainerrors.ErrPollNotFound
	}
	delete(s.polls, pollID)
	for slotID, slot := range s.slots {
		if slot.PollID == pollID {
			s.deleteSlotLocked(slotID)
		}
	}
	return nil
}

func (s *Store) ListSlots(_ context.Context, pollID string) ([]entities.Slot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.slotsForPollLocked(strings.TrimSpace(pollID)), nil
}

func (s *Store) ModifySeries(
	_ context.Context,
	pollID string,
	planner ports.SeriesPlanner,
) (entities.Poll, []entities.Slot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	pollID = strings.TrimSpace(pollID)
	poll, ok := s.polls[pollID]
	if !ok {
		return entities.Poll{}, nil, domainerrors.ErrPollNotFound
	}
	plan, err := planner(clonePoll(poll), s.slotsForPollLocked(pollID))
	if err != nil {
		return entities.Poll{}, nil, err
	}

	poll.RecurrenceRule = plan.RecurrenceRule
	poll.RecurrenceEnd = plan.RecurrenceEnd
	if !plan.UpdatedAt.IsZero() {
		poll.UpdatedAt = plan.UpdatedAt
	}
	s.polls[pollID] = poll
	for slotID, slot := range s.slots {
		if slot.PollID == pollID && !slot.StartsAt.Before(plan.CutoffAt) {
			s.deleteSlotLocked(slotID)
		}
	}
	for _, slot := range plan.NewSlots {
		slot.PollID = pollID
		s.slots[slot.SlotID] = slot
	}
	return clonePoll(poll), s.slotsForPollLocked(pollID), nil
}

func (s *Store) GetPollSnapshot(_ context.Context, pollID string) (entities.PollSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked(strings.TrimSpace(pollID))
}

func (s *Store) ToggleVote(_ context.Context, req ports.ToggleVoteRequest) (ports.ToggleVoteRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	slot, ok := s.slots[strings.TrimSpace(req.SlotID)]
	if !ok {
		return ports.ToggleVoteRecord{}, domainerrors.ErrSlotNotFound
	}
	memberID := strings.TrimSpace(req.MemberID)
	for voteID, vote := range s.votes {
		if vote.SlotID == slot.SlotID && vote.MemberID == memberID {
			delete(s.votes, voteID)
			return ports.ToggleVoteRecord{
				Outcome: entities.ToggleRemoved,
				PollID:  slot.PollID,
				SlotID:  slot.SlotID,
				VoteID:  voteID,
			}, nil
		}
	}
	s.votes[req.VoteID] = entities.Vote{
		VoteID:   req.VoteID,
		SlotID:   slot.SlotID,
		MemberID: memberID,
		CastAt:   req.CastAt,
	}
	return ports.ToggleVoteRecord{
		Outcome: entities.ToggleAdded,
		PollID:  slot.PollID,
		SlotID:  slot.SlotID,
		VoteID:  req.VoteID,
	}, nil
}

func (s *Store) ListMembersByIDs(_ context.Context, memberIDs []string) ([]entities.Member, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]entities.Member, 0, len(memberIDs))
	for _, id := range memberIDs {
		if member, ok := s.members[strings.TrimSpace(id)]; ok {
			out = append(out, member)
		}
	}
	return out, nil
}

func (s *Store) ListDueOneShotPolls(_ context.Context, now time.Time) ([]entities.Poll, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]entities.Poll, 0)
	for _, poll := range s.polls {
		if poll.IsRecurring || poll.DeadlineSent || poll.DeadlineAt == nil {
			continue
		}
		if poll.DeadlineAt.After(now) {
			continue
		}
		out = append(out, clonePoll(poll))
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].DeadlineAt.Before(*out[j].DeadlineAt)
	})
	return out, nil
}

func (s *Store) ListDueRecurringSlots(_ context.Context, now time.Time) ([]ports.DueSlot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]ports.DueSlot, 0)
	for _, slot := range s.slots {
		poll, ok := s.polls[slot.PollID]
		if !ok || !poll.IsRecurring || poll.DeadlineOffset == nil || slot.NotificationSent {
			continue
		}
		if slot.DeadlineTrigger(*poll.DeadlineOffset).After(now) {
			continue
		}
		out = append(out, ports.DueSlot{Poll: clonePoll(poll), Slot: slot})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Slot.StartsAt.Equal(out[j].Slot.StartsAt) {
			return out[i].Slot.SlotID < out[j].Slot.SlotID
		}
		return out[i].Slot.StartsAt.Before(out[j].Slot.StartsAt)
	})
	return out, nil
}

func (s *Store) MarkPollDeadlineSent(_ context.Context, pollID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	poll, ok := s.polls[strings.TrimSpace(pollID)]
	if !ok {
		return domainerrors.ErrPollNotFound
	}
	poll.DeadlineSent = true
	s.polls[poll.PollID] = poll
	return nil
}

func (s *Store) MarkSlotNotificationSent(_ context.Context, slotID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	slot, ok := s.slots[strings.TrimSpace(slotID)]
	if !ok {
		return domainerrors.ErrSlotNotFound
	}
	slot.NotificationSent = true
	s.slots[slot.SlotID] = slot
	return nil
}

func (s *Store) NewID(_ context.Context) (string, error) {
	return uuid.NewString(), nil
}

func (s *Store) Now() time.Time {
	return time.Now().UTC()
}

func (s *Store) snapshotLocked(pollID string) (entities.PollSnapshot, error) {
	poll, ok := s.polls[pollID]
	if !ok {
		return entities.PollSnapshot{}, domainerrors.ErrPollNotFound
	}
	slots := s.slotsForPollLocked(pollID)
	slotIDs := make(map[string]struct{}, len(slots))
	for _, slot := range slots {
		slotIDs[slot.SlotID] = struct{}{}
	}
	votes := make([]entities.Vote, 0)
	for _, vote := range s.votes {
		if _, ok := slotIDs[vote.SlotID]; ok {
			votes = append(votes, vote)
		}
	}
	return entities.BuildSnapshot(clonePoll(poll), slots, votes, s.members), nil
}

func (s *Store) slotsForPollLocked(pollID string) []entities.Slot {
	out := make([]entities.Slot, 0)
	for _, slot := range s.slots {
		if slot.PollID == pollID {
			out = append(out, slot)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].StartsAt.Equal(out[j].StartsAt) {
			return out[i].SlotID < out[j].SlotID
		}
		return out[i].StartsAt.Before(out[j].StartsAt)
	})
	return out
}

func (s *Store) deleteSlotLocked(slotID string) {
	delete(s.slots, slotID)
	for voteID, vote := range s.votes {
		if vote.SlotID == slotID {
			delete(s.votes, voteID)
		}
	}
}

func clonePoll(poll entities.Poll) entities.Poll {
	poll.DeadlineMentionIDs = append([]string(nil), poll.DeadlineMentionIDs...)
	return poll
}
