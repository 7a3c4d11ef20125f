package postgresadapter

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"sheepyard/contexts/community/mention-ranker/domain/entities"
	"sheepyard/contexts/community/mention-ranker/ports"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const upsertBatchSize = 500

type mentionModel struct {
	CreatorID       string    `gorm:"column:creator_id;primaryKey"`
	TargetID        string    `gorm:"column:target_id;primaryKey;index"`
	LastMentionedAt time.Time `gorm:"column:last_mentioned_at;not null;index"`
}

func (mentionModel) TableName() string { return "member_mentions" }

// memberModel maps the members table shared with the event-polls context;
// both definitions must agree on columns and indexes.
type memberModel struct {
	ID          string    `gorm:"column:id;primaryKey"`
	ExternalID  string    `gorm:"column:external_id;uniqueIndex"`
	Username    string    `gorm:"column:username"`
	DisplayName string    `gorm:"column:display_name"`
	AvatarURL   string    `gorm:"column:avatar_url"`
	JoinedAt    time.Time `gorm:"column:joined_at"`
	UpdatedAt   time.Time `gorm:"column:updated_at"`
}

func (memberModel) TableName() string { return "members" }

type Repository struct {
	db     *gorm.DB
	logger *slog.Logger
}

var (
	_ ports.MentionRepository = (*Repository)(nil)
	_ ports.MemberRepository  = (*Repository)(nil)
)

func NewRepository(db *gorm.DB, logger *slog.Logger) *Repository {
	if logger == nil {
		logger = slog.Default()
	}
	return &Repository{db: db, logger: logger}
}

func (r *Repository) Migrate(ctx context.Context) error {
	if err := r.db.WithContext(ctx).AutoMigrate(&memberModel{}, &mentionModel{}); err != nil {
		return r.logError("mention_ranker_repo_migrate_failed", err)
	}
	return nil
}

func (r *Repository) UpsertMentions(ctx context.Context, creatorID string, targetIDs []string, at time.Time) error {
	if len(targetIDs) == 0 {
		return nil
	}
	rows := make([]mentionModel, 0, len(targetIDs))
	for _, targetID := range targetIDs {
		rows = append(rows, mentionModel{
			CreatorID:       creatorID,
			TargetID:        targetID,
			LastMentionedAt: at.UTC(),
		})
	}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "creator_id"}, {Name: "target_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"last_mentioned_at"}),
	}).Create(&rows).Error
	if err != nil {
		return r.logError("mention_ranker_repo_upsert_mentions_failed", err,
			"creator_id", creatorID,
			"target_count", len(targetIDs),
		)
	}
	return nil
}

func (r *Repository) ListMentions(ctx context.Context, creatorID string) ([]entities.Mention, error) {
	var rows []mentionModel
	err := r.db.WithContext(ctx).
		Where("creator_id = ?", strings.TrimSpace(creatorID)).
		Order("last_mentioned_at DESC").
		Find(&rows).
		Error
	if err != nil {
		return nil, r.logError("mention_ranker_repo_list_mentions_failed", err, "creator_id", creatorID)
	}
	out := make([]entities.Mention, 0, len(rows))
	for _, row := range rows {
		out = append(out, entities.Mention{
			CreatorID:       row.CreatorID,
			TargetID:        row.TargetID,
			LastMentionedAt: row.LastMentionedAt.UTC(),
		})
	}
	return out, nil
}

func (r *Repository) ListMembers(ctx context.Context) ([]entities.Member, error) {
	var rows []memberModel
	if err := r.db.WithContext(ctx).Order("id ASC").Find(&rows).Error; err != nil {
		return nil, r.logError("mention_ranker_repo_list_members_failed", err)
	}
	out := make([]entities.Member, 0, len(rows))
	for _, row := range rows {
		out = append(out, entities.Member{
			MemberID:    row.ID,
			ExternalID:  row.ExternalID,
			Username:    row.Username,
			DisplayName: row.DisplayName,
			AvatarURL:   row.AvatarURL,
			JoinedAt:    row.JoinedAt.UTC(),
		})
	}
	return out, nil
}

// UpsertDirectoryMembers inserts unseen directory members and refreshes the
// profile of known ones in a single statement per batch.
func (r *Repository) UpsertDirectoryMembers(ctx context.Context, members []entities.Member, now time.Time) (int, error) {
	rows := make([]memberModel, 0, len(members))
	for _, member := range members {
		externalID := strings.TrimSpace(member.ExternalID)
		if externalID == "" {
			continue
		}
		id := strings.TrimSpace(member.MemberID)
		if id == "" {
			id = uuid.NewString()
		}
		joined := member.JoinedAt.UTC()
		if joined.IsZero() {
			joined = now.UTC()
		}
		rows = append(rows, memberModel{
			ID:          id,
			ExternalID:  externalID,
			Username:    member.Username,
			DisplayName: member.DisplayName,
			AvatarURL:   member.AvatarURL,
			JoinedAt:    joined,
			UpdatedAt:   now.UTC(),
		})
	}
	if len(rows) == 0 {
		return 0, nil
	}
	result := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "external_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"username", "display_name", "avatar_url", "updated_at"}),
	}).CreateInBatches(&rows, upsertBatchSize)
	if result.Error != nil {
		return 0, r.logError("mention_ranker_repo_sync_members_failed", result.Error, "roster_size", len(rows))
	}
	return len(rows), nil
}

func (r *Repository) logError(event string, err error, attrs ...any) error {
	fields := make([]any, 0, len(attrs)+8)
	fields = append(fields,
		"event", event,
		"module", "community/mention-ranker",
		"layer", "adapter",
		"error", err.Error(),
	)
	fields = append(fields, attrs...)
	r.logger.Error("mention ranker repository operation failed", fields...)
	return err
}
