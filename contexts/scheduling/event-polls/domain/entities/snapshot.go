package entities

import (
	"sort"
	"time"
)

// MemberProjection is the minimal member view embedded in snapshots.
type MemberProjection struct {
	MemberID    string
	DisplayName string
	AvatarURL   string
}

type VoteView struct {
	VoteID string
	Member MemberProjection
	CastAt time.Time
}

type SlotView struct {
	Slot  Slot
	Votes []VoteView
}

// PollSnapshot is the full read model pushed to live subscribers and used by
// deadline resolution.
type PollSnapshot struct {
	Poll    Poll
	Creator MemberProjection
	Slots   []SlotView
}

// BuildSnapshot assembles a snapshot from rows read in one consistent view.
// Slots are ordered by start time and votes by cast time; members missing
// from the directory project with their id as display name.
func BuildSnapshot(poll Poll, slots []Slot, votes []Vote, members map[string]Member) PollSnapshot {
	ordered := append([]Slot(nil), slots...)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].StartsAt.Equal(ordered[j].StartsAt) {
			return ordered[i].SlotID < ordered[j].SlotID
		}
		return ordered[i].StartsAt.Before(ordered[j].StartsAt)
	})

	bySlot := make(map[string][]Vote, len(ordered))
	for _, vote := range votes {
		bySlot[vote.SlotID] = append(bySlot[vote.SlotID], vote)
	}

	views := make([]SlotView, 0, len(ordered))
	for _, slot := range ordered {
		slotVotes := bySlot[slot.SlotID]
		sort.SliceStable(slotVotes, func(i, j int) bool {
			if slotVotes[i].CastAt.Equal(slotVotes[j].CastAt) {
				return slotVotes[i].VoteID < slotVotes[j].VoteID
			}
			return slotVotes[i].CastAt.Before(slotVotes[j].CastAt)
		})
		voteViews := make([]VoteView, 0, len(slotVotes))
		for _, vote := range slotVotes {
			voteViews = append(voteViews, VoteView{
				VoteID: vote.VoteID,
				Member: projectMember(vote.MemberID, members),
				CastAt: vote.CastAt,
			})
		}
		views = append(views, SlotView{Slot: slot, Votes: voteViews})
	}

	return PollSnapshot{
		Poll:    poll,
		Creator: projectMember(poll.CreatorID, members),
		Slots:   views,
	}
}

func projectMember(memberID string, members map[string]Member) MemberProjection {
	if member, ok := members[memberID]; ok {
		return member.Projection()
	}
	return MemberProjection{MemberID: memberID, DisplayName: memberID}
}

// VoterIDs returns the distinct member ids that voted on any slot, in first
// vote order.
func (s PollSnapshot) VoterIDs() []string {
	seen := make(map[string]struct{})
	out := make([]string, 0)
	for _, slot := range s.Slots {
		for _, vote := range slot.Votes {
			if _, ok := seen[vote.Member.MemberID]; ok {
				continue
			}
			seen[vote.Member.MemberID] = struct{}{}
			out = append(out, vote.Member.MemberID)
		}
	}
	return out
}

func (s PollSnapshot) TotalVotes() int {
	total := 0
	for _, slot := range s.Slots {
		total += len(slot.Votes)
	}
	return total
}

func (s PollSnapshot) FindSlot(slotID string) (SlotView, bool) {
	for _, slot := range s.Slots {
		if slot.Slot.SlotID == slotID {
			return slot, true
		}
	}
	return SlotView{}, false
}

// Leaders returns every slot sharing the highest vote count.
func (s PollSnapshot) Leaders() ([]SlotView, int) {
	top := -1
	var leaders []SlotView
	for _, slot := range s.Slots {
		count := len(slot.Votes)
		switch {
		case count > top:
			top = count
			leaders = []SlotView{slot}
		case count == top:
			leaders = append(leaders, slot)
		}
	}
	if top < 0 {
		top = 0
	}
	return leaders, top
}
