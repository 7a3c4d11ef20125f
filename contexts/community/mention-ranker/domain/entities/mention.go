package entities

import (
	"sort"
	"strings"
	"time"
)

// Mention records the last time a creator mentioned a target member.
type Mention struct {
	CreatorID       string
	TargetID        string
	LastMentionedAt time.Time
}

type Member struct {
	MemberID    string
	ExternalID  string
	Username    string
	DisplayName string
	AvatarURL   string
	JoinedAt    time.Time
}

func (m Member) Name() string {
	if name := strings.TrimSpace(m.DisplayName); name != "" {
		return name
	}
	if name := strings.TrimSpace(m.Username); name != "" {
		return name
	}
	return m.MemberID
}

type RankedMember struct {
	Member          Member
	LastMentionedAt *time.Time
}

// Rank puts members the creator mentioned first, most recent first, followed
// by everyone else ordered by name. Mentions of unknown members are ignored.
func Rank(members []Member, mentions []Mention) []RankedMember {
	last := make(map[string]time.Time, len(mentions))
	for _, mention := range mentions {
		if current, ok := last[mention.TargetID]; !ok || mention.LastMentionedAt.After(current) {
			last[mention.TargetID] = mention.LastMentionedAt
		}
	}

	out := make([]RankedMember, 0, len(members))
	for _, member := range members {
		ranked := RankedMember{Member: member}
		if at, ok := last[member.MemberID]; ok {
			ranked.LastMentionedAt = &at
		}
		out = append(out, ranked)
	}

	sort.SliceStable(out, func(i, j int) bool {
		left, right := out[i], out[j]
		switch {
		case left.LastMentionedAt != nil && right.LastMentionedAt == nil:
			return true
		case left.LastMentionedAt == nil && right.LastMentionedAt != nil:
			return false
		case left.LastMentionedAt != nil && !left.LastMentionedAt.Equal(*right.LastMentionedAt):
			return left.LastMentionedAt.After(*right.LastMentionedAt)
		}
		leftName, rightName := strings.ToLower(left.Member.Name()), strings.ToLower(right.Member.Name())
		if leftName != rightName {
			return leftName < rightName
		}
		return left.Member.MemberID < right.Member.MemberID
	})
	return out
}
