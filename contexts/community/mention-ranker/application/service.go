package application

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"sheepyard/contexts/community/mention-ranker/domain/entities"
	domainerrors "sheepyard/contexts/community/mention-ranker/domain/errors"
	"sheepyard/contexts/community/mention-ranker/ports"
)

const (
	moduleName = "community/mention-ranker"

	defaultSyncTimeout = 10 * time.Second
)

type Service struct {
	Mentions    ports.MentionRepository
	Members     ports.MemberRepository
	Directory   ports.Directory
	Metrics     ports.Metrics
	Clock       ports.Clock
	IDGen       ports.IDGenerator
	Group       string
	SyncTimeout time.Duration
	Logger      *slog.Logger
}

// RecordMentions stamps every distinct non-empty target with the current
// time for creatorID.
func (s Service) RecordMentions(ctx context.Context, creatorID string, targetIDs []string) error {
	creatorID = strings.TrimSpace(creatorID)
	if creatorID == "" {
		return domainerrors.ErrCreatorRequired
	}
	targets := distinct(targetIDs)
	if len(targets) == 0 {
		return nil
	}
	if err := s.Mentions.UpsertMentions(ctx, creatorID, targets, s.now()); err != nil {
		return err
	}
	resolveLogger(s.Logger).Debug("mentions recorded",
		"event", "mention_ranker_mentions_recorded",
		"module", moduleName,
		"layer", "application",
		"creator_id", creatorID,
		"target_count", len(targets),
	)
	return nil
}

// RankMembers refreshes the local roster from the directory and ranks every
// known member for creatorID. A failed refresh falls back to local data.
func (s Service) RankMembers(ctx context.Context, creatorID string) ([]entities.RankedMember, error) {
	creatorID = strings.TrimSpace(creatorID)
	if creatorID == "" {
		return nil, domainerrors.ErrCreatorRequired
	}
	s.syncDirectory(ctx)

	members, err := s.Members.ListMembers(ctx)
	if err != nil {
		return nil, err
	}
	mentions, err := s.Mentions.ListMentions(ctx, creatorID)
	if err != nil {
		return nil, err
	}
	return entities.Rank(members, mentions), nil
}

func (s Service) syncDirectory(ctx context.Context) {
	if s.Directory == nil {
		return
	}
	logger := resolveLogger(s.Logger)
	timeout := s.SyncTimeout
	if timeout <= 0 {
		timeout = defaultSyncTimeout
	}
	syncCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	roster, err := s.Directory.ListMembers(syncCtx, s.Group)
	if err != nil {
		s.observe("directory_failed")
		logger.Warn("member directory sync failed, ranking local members",
			"event", "mention_ranker_directory_sync_failed",
			"module", moduleName,
			"layer", "application",
			"group", s.Group,
			"error", err.Error(),
		)
		return
	}

	members := make([]entities.Member, 0, len(roster))
	for _, entry := range roster {
		externalID := strings.TrimSpace(entry.ExternalID)
		if externalID == "" {
			continue
		}
		member := entities.Member{
			ExternalID:  externalID,
			Username:    entry.Username,
			DisplayName: entry.DisplayName,
			AvatarURL:   entry.AvatarURL,
			JoinedAt:    entry.JoinedAt,
		}
		if s.IDGen != nil {
			id, err := s.IDGen.NewID(syncCtx)
			if err != nil {
				s.observe("id_failed")
				logger.Warn("member id generation failed during sync",
					"event", "mention_ranker_directory_id_failed",
					"module", moduleName,
					"layer", "application",
					"error", err.Error(),
				)
				return
			}
			member.MemberID = id
		}
		members = append(members, member)
	}

	written, err := s.Members.UpsertDirectoryMembers(syncCtx, members, s.now())
	if err != nil {
		s.observe("store_failed")
		logger.Warn("member directory sync could not be stored",
			"event", "mention_ranker_directory_store_failed",
			"module", moduleName,
			"layer", "application",
			"error", err.Error(),
		)
		return
	}
	s.observe("synced")
	logger.Debug("member directory synced",
		"event", "mention_ranker_directory_synced",
		"module", moduleName,
		"layer", "application",
		"roster_size", len(roster),
		"written", written,
	)
}

func (s Service) observe(result string) {
	if s.Metrics != nil {
		s.Metrics.DirectorySynced(result)
	}
}

func (s Service) now() time.Time {
	if s.Clock != nil {
		return s.Clock.Now().UTC()
	}
	return time.Now().UTC()
}

func distinct(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func resolveLogger(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.Default()
	}
	return logger
}
