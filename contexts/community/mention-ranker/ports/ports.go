package ports

import (
	"context"
	"time"

	"sheepyard/contexts/community/mention-ranker/domain/entities"
)

type MentionRepository interface {
	// UpsertMentions sets last_mentioned_at for every (creator, target) pair,
	// inserting pairs seen for the first time.
	UpsertMentions(ctx context.Context, creatorID string, targetIDs []string, at time.Time) error
	ListMentions(ctx context.Context, creatorID string) ([]entities.Mention, error)
}

type MemberRepository interface {
	ListMembers(ctx context.Context) ([]entities.Member, error)
	// UpsertDirectoryMembers matches members on ExternalID. Existing rows keep
	// their MemberID and JoinedAt; profile fields are overwritten.
	UpsertDirectoryMembers(ctx context.Context, members []entities.Member, now time.Time) (int, error)
}

// DirectoryMember is one roster entry of the external member directory.
type DirectoryMember struct {
	ExternalID  string
	Username    string
	DisplayName string
	AvatarURL   string
	JoinedAt    time.Time
}

type Directory interface {
	ListMembers(ctx context.Context, group string) ([]DirectoryMember, error)
}

type Metrics interface {
	DirectorySynced(result string)
}

type Clock interface {
	Now() time.Time
}

type IDGenerator interface {
	NewID(ctx context.Context) (string, error)
}
