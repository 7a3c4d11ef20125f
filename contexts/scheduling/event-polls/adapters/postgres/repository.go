package postgresadapter

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"strings"
	"time"

	"sheepyard/contexts/scheduling/event-polls/domain/entities"
	domainerrors "sheepyard/contexts/scheduling/event-polls/domain/errors"
	"sheepyard/contexts/scheduling/event-polls/ports"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const slotInsertBatchSize = 200

type Repository struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewRepository(db *gorm.DB, logger *slog.Logger) *Repository {
	if logger == nil {
		logger = slog.Default()
	}
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Migrate creates or updates the event poll tables.
func (r *Repository) Migrate(ctx context.Context) error {
	if err := r.db.WithContext(ctx).AutoMigrate(
		&memberModel{},
		&pollModel{},
		&slotModel{},
		&voteModel{},
	); err != nil {
		return r.logError("event_polls_repo_migrate_failed", err)
	}
	return nil
}

func (r *Repository) CreatePoll(ctx context.Context, poll entities.Poll, slots []entities.Slot) error {
	row := pollModelFromEntity(poll)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(&row).Error; err != nil {
			return err
		}
		return insertSlots(tx, slots)
	})
	if err != nil {
		if isUniqueViolation(err) {
			return domainerrors.ErrConflict
		}
		return r.logError("event_polls_repo_create_poll_failed", err,
			"poll_id", poll.PollID,
			"slot_count", len(slots),
		)
	}
	return nil
}

func (r *Repository) GetPoll(ctx context.Context, pollID string) (entities.Poll, error) {
	var row pollModel
	err := r.db.WithContext(ctx).
		Where("id = ?", strings.TrimSpace(pollID)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Poll{}, domainerrors.ErrPollNotFound
		}
		return entities.Poll{}, r.logError("event_polls_repo_get_poll_failed", err, "poll_id", strings.TrimSpace(pollID))
	}
	return row.toEntity(), nil
}

func (r *Repository) ListPolls(ctx context.Context) ([]entities.Poll, error) {
	var rows []pollModel
	if err := r.db.WithContext(ctx).Order("created_at DESC").Find(&rows).Error; err != nil {
		return nil, r.logError("event_polls_repo_list_polls_failed", err)
	}
	out := make([]entities.Poll, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toEntity())
	}
	return out, nil
}

// UpdatePoll edits poll metadata under a row lock. Only the columns the
// editor may change are written; deadline_sent follows the deadline instant.
func (r *Repository) UpdatePoll(ctx context.Context, pollID string, edit ports.PollEditor) (entities.Poll, error) {
	pollID = strings.TrimSpace(pollID)
	var updated pollModel
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row pollModel
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", pollID).
			First(&row).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domainerrors.ErrPollNotFound
			}
			return err
		}
		current := row.toEntity()
		next, err := edit(current)
		if err != nil {
			return err
		}

		out := pollModelFromEntity(next)
		updates := map[string]any{
			"title":                   out.Title,
			"description":             out.Description,
			"deadline_at":             out.DeadlineAt,
			"deadline_offset_minutes": out.DeadlineOffsetMinutes,
			"deadline_channel_id":     out.DeadlineChannelID,
			"deadline_message":        out.DeadlineMessage,
			"deadline_mention_ids":    out.DeadlineMentionIDs,
			"updated_at":              out.UpdatedAt,
		}
		if !entities.SameDeadline(current.DeadlineAt, next.DeadlineAt) {
			updates["deadline_sent"] = next.DeadlineSent
		}
		if err := tx.Model(&pollModel{}).Where("id = ?", pollID).Updates(updates).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", pollID).First(&updated).Error
	})
	if err != nil {
		if isDomainError(err) {
			return entities.Poll{}, err
		}
		return entities.Poll{}, r.logError("event_polls_repo_update_poll_failed", err, "poll_id", pollID)
	}
	return updated.toEntity(), nil
}

// DeletePoll removes the poll with its slots and votes. Rows are deleted
// explicitly so the result does not depend on foreign key cascades.
func (r *Repository) DeletePoll(ctx context.Context, pollID string) error {
	pollID = strings.TrimSpace(pollID)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		slotIDs := tx.Model(&slotModel{}).Select("id").Where("poll_id = ?", pollID)
		if err := tx.Where("slot_id IN (?)", slotIDs).Delete(&voteModel{}).Error; err != nil {
			return err
		}
		if err := tx.Where("poll_id = ?", pollID).Delete(&slotModel{}).Error; err != nil {
			return err
		}
		result := tx.Where("id = ?", pollID).Delete(&pollModel{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return domainerrors.ErrPollNotFound
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, domainerrors.ErrPollNotFound) {
			return err
		}
		return r.logError("event_polls_repo_delete_poll_failed", err, "poll_id", pollID)
	}
	return nil
}

func (r *Repository) ListSlots(ctx context.Context, pollID string) ([]entities.Slot, error) {
	rows, err := listSlots(r.db.WithContext(ctx), strings.TrimSpace(pollID))
	if err != nil {
		return nil, r.logError("event_polls_repo_list_slots_failed", err, "poll_id", strings.TrimSpace(pollID))
	}
	return toSlotEntities(rows), nil
}

// ModifySeries locks the poll row, lets planner decide the edit from the
// current state and applies it before releasing the lock.
func (r *Repository) ModifySeries(
	ctx context.Context,
	pollID string,
	planner ports.SeriesPlanner,
) (entities.Poll, []entities.Slot, error) {
	pollID = strings.TrimSpace(pollID)
	var (
		updated pollModel
		slots   []slotModel
	)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row pollModel
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", pollID).
			First(&row).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domainerrors.ErrPollNotFound
			}
			return err
		}
		current, err := listSlots(tx, pollID)
		if err != nil {
			return err
		}
		plan, err := planner(row.toEntity(), toSlotEntities(current))
		if err != nil {
			return err
		}

		updates := map[string]any{
			"recurrence_rule": plan.RecurrenceRule,
			"recurrence_end":  utcPtr(plan.RecurrenceEnd),
		}
		if !plan.UpdatedAt.IsZero() {
			updates["updated_at"] = plan.UpdatedAt.UTC()
		}
		if err := tx.Model(&pollModel{}).Where("id = ?", pollID).Updates(updates).Error; err != nil {
			return err
		}

		cutoff := plan.CutoffAt.UTC()
		doomed := tx.Model(&slotModel{}).Select("id").
			Where("poll_id = ? AND starts_at >= ?", pollID, cutoff)
		if err := tx.Where("slot_id IN (?)", doomed).Delete(&voteModel{}).Error; err != nil {
			return err
		}
		if err := tx.Where("poll_id = ? AND starts_at >= ?", pollID, cutoff).Delete(&slotModel{}).Error; err != nil {
			return err
		}
		if err := insertSlots(tx, plan.NewSlots); err != nil {
			return err
		}

		if err := tx.Where("id = ?", pollID).First(&updated).Error; err != nil {
			return err
		}
		slots, err = listSlots(tx, pollID)
		return err
	})
	if err != nil {
		if isDomainError(err) {
			return entities.Poll{}, nil, err
		}
		return entities.Poll{}, nil, r.logError("event_polls_repo_modify_series_failed", err, "poll_id", pollID)
	}
	return updated.toEntity(), toSlotEntities(slots), nil
}

// GetPollSnapshot reads the poll, slots, votes and members from one
// repeatable-read transaction so the view is internally consistent.
func (r *Repository) GetPollSnapshot(ctx context.Context, pollID string) (entities.PollSnapshot, error) {
	pollID = strings.TrimSpace(pollID)
	var snapshot entities.PollSnapshot
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var pollRow pollModel
		if err := tx.Where("id = ?", pollID).First(&pollRow).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domainerrors.ErrPollNotFound
			}
			return err
		}
		slotRows, err := listSlots(tx, pollID)
		if err != nil {
			return err
		}

		var voteRows []voteModel
		if err := tx.Table("event_poll_votes AS v").
			Select("v.*").
			Joins("JOIN event_poll_slots AS s ON s.id = v.slot_id").
			Where("s.poll_id = ?", pollID).
			Order("v.cast_at ASC").
			Scan(&voteRows).Error; err != nil {
			return err
		}

		memberIDs := []string{pollRow.CreatorID}
		votes := make([]entities.Vote, 0, len(voteRows))
		for _, row := range voteRows {
			votes = append(votes, row.toEntity())
			memberIDs = append(memberIDs, row.MemberID)
		}
		var memberRows []memberModel
		if err := tx.Where("id IN ?", memberIDs).Find(&memberRows).Error; err != nil {
			return err
		}
		members := make(map[string]entities.Member, len(memberRows))
		for _, row := range memberRows {
			members[row.ID] = row.toEntity()
		}

		snapshot = entities.BuildSnapshot(pollRow.toEntity(), toSlotEntities(slotRows), votes, members)
		return nil
	}, &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true})
	if err != nil {
		if errors.Is(err, domainerrors.ErrPollNotFound) {
			return entities.PollSnapshot{}, err
		}
		return entities.PollSnapshot{}, r.logError("event_polls_repo_get_snapshot_failed", err, "poll_id", pollID)
	}
	return snapshot, nil
}

// ToggleVote serializes toggles for one slot on the slot row lock. The
// (slot_id, member_id) unique index still rejects a double insert if a
// caller bypasses the lock.
func (r *Repository) ToggleVote(ctx context.Context, req ports.ToggleVoteRequest) (ports.ToggleVoteRecord, error) {
	slotID := strings.TrimSpace(req.SlotID)
	memberID := strings.TrimSpace(req.MemberID)
	var record ports.ToggleVoteRecord
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var slot slotModel
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", slotID).
			First(&slot).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domainerrors.ErrSlotNotFound
			}
			return err
		}
		record.PollID = slot.PollID
		record.SlotID = slot.ID

		var existing voteModel
		err := tx.Where("slot_id = ? AND member_id = ?", slotID, memberID).First(&existing).Error
		switch {
		case err == nil:
			if err := tx.Where("id = ?", existing.ID).Delete(&voteModel{}).Error; err != nil {
				return err
			}
			record.Outcome = entities.ToggleRemoved
			record.VoteID = existing.ID
			return nil
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return err
		}

		row := voteModel{
			ID:       req.VoteID,
			SlotID:   slotID,
			MemberID: memberID,
			CastAt:   req.CastAt.UTC(),
		}
		insert := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "slot_id"}, {Name: "member_id"}},
			DoNothing: true,
		}).Create(&row)
		if insert.Error != nil {
			return insert.Error
		}
		if insert.RowsAffected == 0 {
			return domainerrors.ErrConflict
		}
		record.Outcome = entities.ToggleAdded
		record.VoteID = row.ID
		return nil
	})
	if err != nil {
		if isDomainError(err) {
			return ports.ToggleVoteRecord{}, err
		}
		if isUniqueViolation(err) {
			return ports.ToggleVoteRecord{}, domainerrors.ErrConflict
		}
		return ports.ToggleVoteRecord{}, r.logError("event_polls_repo_toggle_vote_failed", err,
			"slot_id", slotID,
			"member_id", memberID,
		)
	}
	return record, nil
}

func (r *Repository) ListMembersByIDs(ctx context.Context, memberIDs []string) ([]entities.Member, error) {
	if len(memberIDs) == 0 {
		return []entities.Member{}, nil
	}
	var rows []memberModel
	if err := r.db.WithContext(ctx).Where("id IN ?", memberIDs).Find(&rows).Error; err != nil {
		return nil, r.logError("event_polls_repo_list_members_failed", err, "member_count", len(memberIDs))
	}
	byID := make(map[string]entities.Member, len(rows))
	for _, row := range rows {
		byID[row.ID] = row.toEntity()
	}
	out := make([]entities.Member, 0, len(rows))
	for _, id := range memberIDs {
		if member, ok := byID[strings.TrimSpace(id)]; ok {
			out = append(out, member)
		}
	}
	return out, nil
}

func (r *Repository) ListDueOneShotPolls(ctx context.Context, now time.Time) ([]entities.Poll, error) {
	var rows []pollModel
	err := r.db.WithContext(ctx).
		Where("is_recurring = ?", false).
		Where("deadline_sent = ?", false).
		Where("deadline_at IS NOT NULL AND deadline_at <= ?", now.UTC()).
		Order("deadline_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, r.logError("event_polls_repo_list_due_polls_failed", err)
	}
	out := make([]entities.Poll, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toEntity())
	}
	return out, nil
}

func (r *Repository) ListDueRecurringSlots(ctx context.Context, now time.Time) ([]ports.DueSlot, error) {
	db := r.db.WithContext(ctx)
	var slotRows []slotModel
	err := db.Table("event_poll_slots AS s").
		Select("s.*").
		Joins("JOIN event_polls AS p ON p.id = s.poll_id").
		Where("p.is_recurring = ?", true).
		Where("p.deadline_offset_minutes IS NOT NULL").
		Where("s.notification_sent = ?", false).
		Where("s.starts_at - make_interval(mins => p.deadline_offset_minutes) <= ?", now.UTC()).
		Order("s.starts_at ASC, s.id ASC").
		Scan(&slotRows).Error
	if err != nil {
		return nil, r.logError("event_polls_repo_list_due_slots_failed", err)
	}
	if len(slotRows) == 0 {
		return []ports.DueSlot{}, nil
	}

	pollIDs := make([]string, 0, len(slotRows))
	seen := make(map[string]struct{}, len(slotRows))
	for _, row := range slotRows {
		if _, ok := seen[row.PollID]; ok {
			continue
		}
		seen[row.PollID] = struct{}{}
		pollIDs = append(pollIDs, row.PollID)
	}
	var pollRows []pollModel
	if err := db.Where("id IN ?", pollIDs).Find(&pollRows).Error; err != nil {
		return nil, r.logError("event_polls_repo_list_due_slots_failed", err, "poll_count", len(pollIDs))
	}
	polls := make(map[string]entities.Poll, len(pollRows))
	for _, row := range pollRows {
		polls[row.ID] = row.toEntity()
	}

	out := make([]ports.DueSlot, 0, len(slotRows))
	for _, row := range slotRows {
		poll, ok := polls[row.PollID]
		if !ok {
			continue
		}
		out = append(out, ports.DueSlot{Poll: poll, Slot: row.toEntity()})
	}
	return out, nil
}

func (r *Repository) MarkPollDeadlineSent(ctx context.Context, pollID string) error {
	result := r.db.WithContext(ctx).
		Model(&pollModel{}).
		Where("id = ?", strings.TrimSpace(pollID)).
		Update("deadline_sent", true)
	if result.Error != nil {
		return r.logError("event_polls_repo_mark_deadline_sent_failed", result.Error, "poll_id", strings.TrimSpace(pollID))
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrPollNotFound
	}
	return nil
}

func (r *Repository) MarkSlotNotificationSent(ctx context.Context, slotID string) error {
	result := r.db.WithContext(ctx).
		Model(&slotModel{}).
		Where("id = ?", strings.TrimSpace(slotID)).
		Update("notification_sent", true)
	if result.Error != nil {
		return r.logError("event_polls_repo_mark_slot_sent_failed", result.Error, "slot_id", strings.TrimSpace(slotID))
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrSlotNotFound
	}
	return nil
}

func listSlots(db *gorm.DB, pollID string) ([]slotModel, error) {
	var rows []slotModel
	err := db.Where("poll_id = ?", pollID).
		Order("starts_at ASC, id ASC").
		Find(&rows).Error
	return rows, err
}

func insertSlots(tx *gorm.DB, slots []entities.Slot) error {
	if len(slots) == 0 {
		return nil
	}
	rows := make([]slotModel, 0, len(slots))
	for _, slot := range slots {
		rows = append(rows, slotModelFromEntity(slot))
	}
	return tx.Omit(clause.Associations).CreateInBatches(&rows, slotInsertBatchSize).Error
}

func (r *Repository) logError(event string, err error, attrs ...any) error {
	fields := make([]any, 0, len(attrs)+8)
	fields = append(fields,
		"event", event,
		"module", "scheduling/event-polls",
		"layer", "adapter",
		"error", err.Error(),
	)
	fields = append(fields, attrs...)
	r.logger.Error("event polls repository operation failed", fields...)
	return err
}

func isDomainError(err error) bool {
	return errors.Is(err, domainerrors.ErrPollNotFound) ||
		errors.Is(err, domainerrors.ErrSlotNotFound) ||
		errors.Is(err, domainerrors.ErrForbidden) ||
		errors.Is(err, domainerrors.ErrConflict) ||
		errors.Is(err, domainerrors.ErrInvalidRecurrenceRule) ||
		errors.Is(err, domainerrors.ErrNotRecurring) ||
		errors.Is(err, domainerrors.ErrInvalidTimeRange) ||
		errors.Is(err, domainerrors.ErrInvalidPollInput) ||
		errors.Is(err, domainerrors.ErrInvalidDeadline)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

var (
	_ ports.PollRepository     = (*Repository)(nil)
	_ ports.SnapshotReader     = (*Repository)(nil)
	_ ports.VoteRepository     = (*Repository)(nil)
	_ ports.MemberRepository   = (*Repository)(nil)
	_ ports.DeadlineRepository = (*Repository)(nil)
)
