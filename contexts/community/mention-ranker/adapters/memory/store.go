package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"sheepyard/contexts/community/mention-ranker/domain/entities"
	"sheepyard/contexts/community/mention-ranker/ports"
)

type mentionKey struct {
	creatorID string
	targetID  string
}

type Store struct {
	mu         sync.RWMutex
	mentions   map[mentionKey]entities.Mention
	members    map[string]entities.Member
	byExternal map[string]string
	sequence   int
}

var (
	_ ports.MentionRepository = (*Store)(nil)
	_ ports.MemberRepository  = (*Store)(nil)
)

func NewStore() *Store {
	return &Store{
		mentions:   make(map[mentionKey]entities.Mention),
		members:    make(map[string]entities.Member),
		byExternal: make(map[string]string),
	}
}

func (s *Store) SetMember(member entities.Member) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.members[member.MemberID] = member
	if member.ExternalID != "" {
		s.byExternal[member.ExternalID] = member.MemberID
	}
}

func (s *Store) UpsertMentions(_ context.Context, creatorID string, targetIDs []string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, targetID := range targetIDs {
		key := mentionKey{creatorID: creatorID, targetID: targetID}
		s.mentions[key] = entities.Mention{CreatorID: creatorID, TargetID: targetID, LastMentionedAt: at}
	}
	return nil
}

func (s *Store) ListMentions(_ context.Context, creatorID string) ([]entities.Mention, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]entities.Mention, 0)
	for key, mention := range s.mentions {
		if key.creatorID == creatorID {
			out = append(out, mention)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].LastMentionedAt.After(out[j].LastMentionedAt)
	})
	return out, nil
}

func (s *Store) ListMembers(_ context.Context) ([]entities.Member, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]entities.Member, 0, len(s.members))
	for _, member := range s.members {
		out = append(out, member)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].MemberID < out[j].MemberID })
	return out, nil
}

func (s *Store) UpsertDirectoryMembers(_ context.Context, members []entities.Member, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	written := 0
	for _, member := range members {
		externalID := strings.TrimSpace(member.ExternalID)
		if externalID == "" {
			continue
		}
		if existingID, ok := s.byExternal[externalID]; ok {
			existing := s.members[existingID]
			existing.Username = member.Username
			existing.DisplayName = member.DisplayName
			existing.AvatarURL = member.AvatarURL
			s.members[existingID] = existing
			written++
			continue
		}
		if member.MemberID == "" {
			s.sequence++
			member.MemberID = fmt.Sprintf("member-%d", s.sequence)
		}
		if member.JoinedAt.IsZero() {
			member.JoinedAt = now
		}
		member.ExternalID = externalID
		s.members[member.MemberID] = member
		s.byExternal[externalID] = member.MemberID
		written++
	}
	return written, nil
}
