package commands

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"time"

	application "sheepyard/contexts/scheduling/event-polls/application"
	"sheepyard/contexts/scheduling/event-polls/domain/entities"
	domainerrors "sheepyard/contexts/scheduling/event-polls/domain/errors"
	"sheepyard/contexts/scheduling/event-polls/ports"
)

// CreatePollCommand is the write-model input for poll creation. For recurring
// polls the first option (by start) is the series template.
type CreatePollCommand struct {
	CreatorID          string
	Title              string
	Description        string
	Options            []entities.SlotDraft
	IsRecurring        bool
	RecurrenceRule     string
	RecurrenceEnd      *time.Time
	DeadlineAt         *time.Time
	DeadlineOffset     *time.Duration
	DeadlineChannelID  string
	DeadlineMessage    string
	DeadlineMentionIDs []string
}

type CreatePollResult struct {
	Poll  entities.Poll
	Slots []entities.Slot
	// Expanded is false when a recurring poll fell back to the submitted options.
	Expanded bool
}

// UpdatePollCommand changes poll metadata. Nil fields are left untouched.
type UpdatePollCommand struct {
	PollID             string
	ActorID            string
	Title              *string
	Description        *string
	DeadlineAt         *time.Time
	ClearDeadlineAt    bool
	DeadlineOffset     *time.Duration
	DeadlineChannelID  *string
	DeadlineMessage    *string
	DeadlineMentionIDs *[]string
}

type DeletePollCommand struct {
	PollID  string
	ActorID string
}

// ModifySeriesCommand replaces every slot starting at or after CutoffAt with
// a fresh expansion of RecurrenceRule.
type ModifySeriesCommand struct {
	PollID         string
	ActorID        string
	RecurrenceRule string
	RecurrenceEnd  *time.Time
	CutoffAt       time.Time
}

type ModifySeriesResult struct {
	Poll  entities.Poll
	Slots []entities.Slot
}

// PollUseCase owns poll lifecycle and series editing.
type PollUseCase struct {
	Polls     ports.PollRepository
	Expander  ports.RecurrenceExpander
	Publisher ports.EventPublisher
	Clock     ports.Clock
	IDGen     ports.IDGenerator
	Logger    *slog.Logger
}

func (uc PollUseCase) CreatePoll(ctx context.Context, cmd CreatePollCommand) (CreatePollResult, error) {
	logger := application.ResolveLogger(uc.Logger)
	creatorID := strings.TrimSpace(cmd.CreatorID)
	logger.Info("poll create processing started",
		"event", "event_polls_poll_create_started",
		"module", moduleName,
		"layer", "application",
		"creator_id", creatorID,
		"is_recurring", cmd.IsRecurring,
		"option_count", len(cmd.Options),
	)
	if creatorID == "" {
		return CreatePollResult{}, domainerrors.ErrMemberRequired
	}
	if strings.TrimSpace(cmd.Title) == "" {
		return CreatePollResult{}, domainerrors.ErrInvalidPollInput
	}
	if len(cmd.Options) == 0 {
		return CreatePollResult{}, domainerrors.ErrNoOptions
	}
	for _, option := range cmd.Options {
		if !option.Valid() {
			logger.Warn("poll create option validation failed",
				"event", "event_polls_poll_create_invalid_option",
				"module", moduleName,
				"layer", "application",
				"creator_id", creatorID,
				"starts_at", option.StartsAt,
				"ends_at", option.EndsAt,
			)
			return CreatePollResult{}, domainerrors.ErrInvalidTimeRange
		}
	}
	rule := strings.TrimSpace(cmd.RecurrenceRule)
	if cmd.IsRecurring && rule == "" {
		return CreatePollResult{}, domainerrors.ErrInvalidRecurrenceRule
	}

	now := uc.now()
	pollID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		return CreatePollResult{}, err
	}
	poll := entities.Poll{
		PollID:             pollID,
		Title:              strings.TrimSpace(cmd.Title),
		Description:        strings.TrimSpace(cmd.Description),
		CreatorID:          creatorID,
		CreatedAt:          now,
		UpdatedAt:          now,
		IsRecurring:        cmd.IsRecurring,
		DeadlineAt:         utcPtr(cmd.DeadlineAt),
		DeadlineOffset:     cmd.DeadlineOffset,
		DeadlineChannelID:  strings.TrimSpace(cmd.DeadlineChannelID),
		DeadlineMessage:    strings.TrimSpace(cmd.DeadlineMessage),
		DeadlineMentionIDs: cleanIDs(cmd.DeadlineMentionIDs),
	}
	if cmd.IsRecurring {
		poll.RecurrenceRule = rule
		poll.RecurrenceEnd = utcPtr(cmd.RecurrenceEnd)
	}
	if !poll.HasValidDeadline() {
		return CreatePollResult{}, domainerrors.ErrInvalidDeadline
	}

	drafts := sortedDrafts(cmd.Options)
	expanded := false
	if cmd.IsRecurring {
		generated, err := uc.Expander.Expand(drafts[0], rule, poll.RecurrenceEnd, nil)
		if err != nil || len(generated) == 0 {
			attrs := []any{
				"event", "event_polls_poll_create_recurrence_fallback",
				"module", moduleName,
				"layer", "application",
				"poll_id", pollID,
				"recurrence_rule", rule,
			}
			if err != nil {
				attrs = append(attrs, "error", err.Error())
			}
			logger.Warn("recurrence expansion produced no slots, using submitted options", attrs...)
		} else {
			drafts = generated
			expanded = true
		}
	}

	slots, err := uc.materialize(ctx, pollID, drafts, now)
	if err != nil {
		return CreatePollResult{}, err
	}
	if err := uc.Polls.CreatePoll(ctx, poll, slots); err != nil {
		return CreatePollResult{}, err
	}

	logger.Info("poll created",
		"event", "event_polls_poll_created",
		"module", moduleName,
		"layer", "application",
		"poll_id", pollID,
		"creator_id", creatorID,
		"slot_count", len(slots),
		"expanded", expanded,
	)
	return CreatePollResult{Poll: poll, Slots: slots, Expanded: expanded}, nil
}

func (uc PollUseCase) UpdatePoll(ctx context.Context, cmd UpdatePollCommand) (entities.Poll, error) {
	logger := application.ResolveLogger(uc.Logger)
	poll, err := uc.authorize(ctx, cmd.PollID, cmd.ActorID)
	if err != nil {
		return entities.Poll{}, err
	}

	now := uc.now()
	actorID := strings.TrimSpace(cmd.ActorID)
	updated, err := uc.Polls.UpdatePoll(ctx, poll.PollID, func(locked entities.Poll) (entities.Poll, error) {
		if !locked.IsCreator(actorID) {
			return entities.Poll{}, domainerrors.ErrForbidden
		}
		edited, err := applyPollEdit(locked, cmd)
		if err != nil {
			return entities.Poll{}, err
		}
		edited.UpdatedAt = now
		return edited, nil
	})
	if err != nil {
		return entities.Poll{}, err
	}
	publishStateChanged(ctx, uc.Publisher, uc.IDGen, logger, updated.PollID, "poll_updated", now)

	logger.Info("poll updated",
		"event", "event_polls_poll_updated",
		"module", moduleName,
		"layer", "application",
		"poll_id", updated.PollID,
		"actor_id", actorID,
	)
	return updated, nil
}

// applyPollEdit applies the non-nil fields of cmd to the current poll. A
// moved or cleared deadline re-arms its notification.
func applyPollEdit(poll entities.Poll, cmd UpdatePollCommand) (entities.Poll, error) {
	previous := poll.DeadlineAt
	if cmd.Title != nil {
		title := strings.TrimSpace(*cmd.Title)
		if title == "" {
			return entities.Poll{}, domainerrors.ErrInvalidPollInput
		}
		poll.Title = title
	}
	if cmd.Description != nil {
		poll.Description = strings.TrimSpace(*cmd.Description)
	}
	if cmd.ClearDeadlineAt {
		poll.DeadlineAt = nil
	}
	if cmd.DeadlineAt != nil {
		next := cmd.DeadlineAt.UTC()
		poll.DeadlineAt = &next
	}
	if cmd.DeadlineOffset != nil {
		offset := *cmd.DeadlineOffset
		poll.DeadlineOffset = &offset
	}
	if cmd.DeadlineChannelID != nil {
		poll.DeadlineChannelID = strings.TrimSpace(*cmd.DeadlineChannelID)
	}
	if cmd.DeadlineMessage != nil {
		poll.DeadlineMessage = strings.TrimSpace(*cmd.DeadlineMessage)
	}
	if cmd.DeadlineMentionIDs != nil {
		poll.DeadlineMentionIDs = cleanIDs(*cmd.DeadlineMentionIDs)
	}
	if !poll.HasValidDeadline() {
		return entities.Poll{}, domainerrors.ErrInvalidDeadline
	}
	if !entities.SameDeadline(previous, poll.DeadlineAt) {
		poll.DeadlineSent = false
	}
	return poll, nil
}

func (uc PollUseCase) DeletePoll(ctx context.Context, cmd DeletePollCommand) error {
	logger := application.ResolveLogger(uc.Logger)
	poll, err := uc.authorize(ctx, cmd.PollID, cmd.ActorID)
	if err != nil {
		return err
	}
	if err := uc.Polls.DeletePoll(ctx, poll.PollID); err != nil {
		return err
	}
	publishStateChanged(ctx, uc.Publisher, uc.IDGen, logger, poll.PollID, "poll_deleted", uc.now())

	logger.Info("poll deleted",
		"event", "event_polls_poll_deleted",
		"module", moduleName,
		"layer", "application",
		"poll_id", poll.PollID,
		"actor_id", strings.TrimSpace(cmd.ActorID),
	)
	return nil
}

// ModifySeries rewrites a recurring poll from the cutoff onward. Slots that
// started before the cutoff, and their votes, are kept untouched.
func (uc PollUseCase) ModifySeries(ctx context.Context, cmd ModifySeriesCommand) (ModifySeriesResult, error) {
	logger := application.ResolveLogger(uc.Logger)
	rule := strings.TrimSpace(cmd.RecurrenceRule)
	logger.Info("series edit processing started",
		"event", "event_polls_series_edit_started",
		"module", moduleName,
		"layer", "application",
		"poll_id", strings.TrimSpace(cmd.PollID),
		"actor_id", strings.TrimSpace(cmd.ActorID),
		"recurrence_rule", rule,
	)

	poll, err := uc.authorize(ctx, cmd.PollID, cmd.ActorID)
	if err != nil {
		return ModifySeriesResult{}, err
	}
	if !poll.IsRecurring {
		return ModifySeriesResult{}, domainerrors.ErrNotRecurring
	}
	if rule == "" {
		return ModifySeriesResult{}, domainerrors.ErrInvalidRecurrenceRule
	}

	now := uc.now()
	cutoff := cmd.CutoffAt.UTC()
	if cmd.CutoffAt.IsZero() {
		cutoff = now
	}
	until := utcPtr(cmd.RecurrenceEnd)

	sample := entities.SlotDraft{StartsAt: cutoff, EndsAt: cutoff.Add(time.Hour)}
	if _, err := uc.Expander.Expand(sample, rule, until, nil); err != nil {
		logger.Warn("series edit rejected invalid rule",
			"event", "event_polls_series_edit_invalid_rule",
			"module", moduleName,
			"layer", "application",
			"poll_id", poll.PollID,
			"recurrence_rule", rule,
			"error", err.Error(),
		)
		return ModifySeriesResult{}, domainerrors.ErrInvalidRecurrenceRule
	}

	actorID := strings.TrimSpace(cmd.ActorID)
	updated, slots, err := uc.Polls.ModifySeries(ctx, poll.PollID, func(locked entities.Poll, current []entities.Slot) (ports.SeriesPlan, error) {
		if !locked.IsCreator(actorID) {
			return ports.SeriesPlan{}, domainerrors.ErrForbidden
		}
		template := seriesTemplate(current, cutoff)
		generated, err := uc.Expander.Expand(template, rule, until, &cutoff)
		if err != nil {
			return ports.SeriesPlan{}, domainerrors.ErrInvalidRecurrenceRule
		}
		future := make([]entities.SlotDraft, 0, len(generated))
		for _, draft := range generated {
			if draft.StartsAt.Before(cutoff) {
				continue
			}
			future = append(future, draft)
		}
		newSlots, err := uc.materialize(ctx, locked.PollID, future, now)
		if err != nil {
			return ports.SeriesPlan{}, err
		}
		return ports.SeriesPlan{
			RecurrenceRule: rule,
			RecurrenceEnd:  until,
			CutoffAt:       cutoff,
			NewSlots:       newSlots,
			UpdatedAt:      now,
		}, nil
	})
	if err != nil {
		logger.Error("series edit failed",
			"event", "event_polls_series_edit_failed",
			"module", moduleName,
			"layer", "application",
			"poll_id", poll.PollID,
			"error", err.Error(),
		)
		return ModifySeriesResult{}, err
	}
	publishStateChanged(ctx, uc.Publisher, uc.IDGen, logger, poll.PollID, "series_modified", now)

	logger.Info("series edited",
		"event", "event_polls_series_edited",
		"module", moduleName,
		"layer", "application",
		"poll_id", poll.PollID,
		"cutoff_at", cutoff,
		"slot_count", len(slots),
	)
	return ModifySeriesResult{Poll: updated, Slots: slots}, nil
}

func (uc PollUseCase) authorize(ctx context.Context, pollID string, actorID string) (entities.Poll, error) {
	if strings.TrimSpace(actorID) == "" {
		return entities.Poll{}, domainerrors.ErrMemberRequired
	}
	poll, err := uc.Polls.GetPoll(ctx, strings.TrimSpace(pollID))
	if err != nil {
		return entities.Poll{}, err
	}
	if !poll.IsCreator(actorID) {
		application.ResolveLogger(uc.Logger).Warn("poll modification forbidden",
			"event", "event_polls_poll_modify_forbidden",
			"module", moduleName,
			"layer", "application",
			"poll_id", poll.PollID,
			"actor_id", strings.TrimSpace(actorID),
		)
		return entities.Poll{}, domainerrors.ErrForbidden
	}
	return poll, nil
}

func (uc PollUseCase) materialize(ctx context.Context, pollID string, drafts []entities.SlotDraft, now time.Time) ([]entities.Slot, error) {
	slots := make([]entities.Slot, 0, len(drafts))
	for _, draft := range drafts {
		slotID, err := uc.IDGen.NewID(ctx)
		if err != nil {
			return nil, err
		}
		label := strings.TrimSpace(draft.Label)
		if label == "" {
			label = entities.DefaultSlotLabel(draft.StartsAt)
		}
		slots = append(slots, entities.Slot{
			SlotID:    slotID,
			PollID:    pollID,
			Label:     label,
			StartsAt:  draft.StartsAt.UTC(),
			EndsAt:    draft.EndsAt.UTC(),
			CreatedAt: now,
		})
	}
	return slots, nil
}

func (uc PollUseCase) now() time.Time {
	return resolveNow(uc.Clock)
}

// seriesTemplate picks the earliest slot that survives the cutoff, or a
// one-hour slot at the cutoff when nothing survives.
func seriesTemplate(slots []entities.Slot, cutoff time.Time) entities.SlotDraft {
	var earliest *entities.Slot
	for i := range slots {
		slot := slots[i]
		if !slot.StartsAt.Before(cutoff) || slot.Duration() <= 0 {
			continue
		}
		if earliest == nil || slot.StartsAt.Before(earliest.StartsAt) {
			earliest = &slot
		}
	}
	if earliest == nil {
		return entities.SlotDraft{StartsAt: cutoff, EndsAt: cutoff.Add(time.Hour)}
	}
	return entities.SlotDraft{
		Label:    earliest.Label,
		StartsAt: earliest.StartsAt,
		EndsAt:   earliest.EndsAt,
	}
}

func sortedDrafts(drafts []entities.SlotDraft) []entities.SlotDraft {
	out := append([]entities.SlotDraft(nil), drafts...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].StartsAt.Before(out[j].StartsAt)
	})
	return out
}

func cleanIDs(ids []string) []string {
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

func utcPtr(value *time.Time) *time.Time {
	if value == nil {
		return nil
	}
	utc := value.UTC()
	return &utc
}
