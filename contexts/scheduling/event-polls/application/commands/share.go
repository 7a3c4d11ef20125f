package commands

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	application "sheepyard/contexts/scheduling/event-polls/application"
	"sheepyard/contexts/scheduling/event-polls/domain/entities"
	domainerrors "sheepyard/contexts/scheduling/event-polls/domain/errors"
	"sheepyard/contexts/scheduling/event-polls/ports"
)

const shareDescriptionLimit = 200

type SharePollCommand struct {
	PollID     string
	ActorID    string
	ChannelID  string
	Message    string
	MentionIDs []string
}

type SharePollResult struct {
	MessageID string
}

// ShareUseCase posts a poll announcement to a channel. Mentions made while
// sharing feed the sharer's mention ranking.
type ShareUseCase struct {
	Snapshots    ports.SnapshotReader
	Members      ports.MemberRepository
	Notifier     ports.Notifier
	Mentions     ports.MentionRecorder
	FrontendBase string
	Logger       *slog.Logger
}

func (uc ShareUseCase) SharePoll(ctx context.Context, cmd SharePollCommand) (SharePollResult, error) {
	logger := application.ResolveLogger(uc.Logger)
	actorID := strings.TrimSpace(cmd.ActorID)
	channelID := strings.TrimSpace(cmd.ChannelID)
	if actorID == "" {
		return SharePollResult{}, domainerrors.ErrMemberRequired
	}
	if channelID == "" {
		return SharePollResult{}, domainerrors.ErrChannelRequired
	}

	snapshot, err := uc.Snapshots.GetPollSnapshot(ctx, strings.TrimSpace(cmd.PollID))
	if err != nil {
		return SharePollResult{}, err
	}

	mentionIDs := cleanIDs(cmd.MentionIDs)
	if len(mentionIDs) > 0 && uc.Mentions != nil {
		if err := uc.Mentions.RecordMentions(ctx, actorID, mentionIDs); err != nil {
			logger.Warn("share mention recording failed",
				"event", "event_polls_share_mentions_failed",
				"module", moduleName,
				"layer", "application",
				"poll_id", snapshot.Poll.PollID,
				"error", err.Error(),
			)
		}
	}
	externalIDs, err := application.ResolveExternalIDs(ctx, uc.Members, mentionIDs)
	if err != nil {
		return SharePollResult{}, err
	}

	headline := "**New Event Shared!**"
	if message := strings.TrimSpace(cmd.Message); message != "" {
		headline = message
	}
	messageID, err := uc.Notifier.Send(ctx, ports.Notification{
		ChannelID:          channelID,
		Headline:           headline,
		Title:              snapshot.Poll.Title,
		URL:                application.EventURL(uc.FrontendBase, snapshot.Poll.PollID),
		Description:        truncate(snapshot.Poll.Description, shareDescriptionLimit),
		Fields:             shareFields(snapshot),
		MentionExternalIDs: externalIDs,
	})
	if err != nil {
		logger.Error("poll share dispatch failed",
			"event", "event_polls_share_failed",
			"module", moduleName,
			"layer", "application",
			"poll_id", snapshot.Poll.PollID,
			"channel_id", channelID,
			"error", err.Error(),
		)
		return SharePollResult{}, err
	}

	logger.Info("poll shared",
		"event", "event_polls_poll_shared",
		"module", moduleName,
		"layer", "application",
		"poll_id", snapshot.Poll.PollID,
		"channel_id", channelID,
		"actor_id", actorID,
		"mention_count", len(externalIDs),
	)
	return SharePollResult{MessageID: messageID}, nil
}

func shareFields(snapshot entities.PollSnapshot) []ports.NotificationField {
	fields := make([]ports.NotificationField, 0, 2)
	if len(snapshot.Slots) > 0 {
		first := snapshot.Slots[0].Slot
		start := entities.DefaultSlotLabel(first.StartsAt)
		value := fmt.Sprintf("%s - %s", start, first.EndsAt.Format("15:04"))
		if snapshot.Poll.IsRecurring {
			value = fmt.Sprintf("Starts %s (Recurring)", start)
		}
		fields = append(fields, ports.NotificationField{Name: "When", Value: value, Inline: true})
	}
	fields = append(fields, ports.NotificationField{
		Name:   "Organized by",
		Value:  snapshot.Creator.DisplayName,
		Inline: true,
	})
	return fields
}

func truncate(value string, limit int) string {
	value = strings.TrimSpace(value)
	runes := []rune(value)
	if len(runes) <= limit {
		return value
	}
	return string(runes[:limit-3]) + "..."
}
