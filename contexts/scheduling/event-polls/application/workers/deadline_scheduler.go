package workers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	contractsv1 "sheepyard/contracts/gen/events/v1"
	application "sheepyard/contexts/scheduling/event-polls/application"
	"sheepyard/contexts/scheduling/event-polls/domain/entities"
	"sheepyard/contexts/scheduling/event-polls/ports"
)

const (
	DefaultGraceWindow  = 6 * time.Hour
	DefaultTickInterval = 60 * time.Second
	DeadlineLeaseKey    = "sheepyard:deadline-scheduler"

	kindOneShot   = "one_shot"
	kindRecurring = "recurring"

	resultNotified       = "notified"
	resultNoChannel      = "no_channel"
	resultDispatchFailed = "dispatch_failed"
	resultStale          = "stale"
	resultError          = "error"
)

const (
	textNoOptions      = "No options were available."
	textNoVotes        = "No votes were cast."
	textNoParticipants = "No participants yet."
)

// DeadlineScheduler resolves poll deadlines. Each RunOnce is one scan: due
// one-shot polls get a winner announcement and due recurring slots get a
// participant roll call. Notifications are at-most-once; the sent flag is set
// even when dispatch fails.
type DeadlineScheduler struct {
	Deadlines    ports.DeadlineRepository
	Snapshots    ports.SnapshotReader
	Members      ports.MemberRepository
	Notifier     ports.Notifier
	Mentions     ports.MentionRecorder
	Publisher    ports.EventPublisher
	Lease        ports.TickLease
	Random       ports.RandomSource
	Metrics      ports.Metrics
	Clock        ports.Clock
	IDGen        ports.IDGenerator
	GraceWindow  time.Duration
	TickInterval time.Duration
	FrontendBase string
	Logger       *slog.Logger
}

// RunOnce scans for due deadlines. A failing candidate is logged and skipped;
// only failures to list candidates are returned.
func (s DeadlineScheduler) RunOnce(ctx context.Context) error {
	logger := application.ResolveLogger(s.Logger)
	started := time.Now()
	now := s.now()
	defer func() {
		if s.Metrics != nil {
			s.Metrics.DeadlineScanObserved(time.Since(started))
		}
	}()

	if s.Lease != nil {
		// The lease expires shortly before the next tick so the next scan can
		// run on any replica.
		acquired, err := s.Lease.Acquire(ctx, DeadlineLeaseKey, s.tickInterval()*9/10)
		if err != nil {
			logger.Error("deadline scan lease failed",
				"event", "event_polls_deadline_lease_failed",
				"module", moduleName,
				"layer", "worker",
				"error", err.Error(),
			)
			return err
		}
		if !acquired {
			logger.Debug("deadline scan lease held elsewhere",
				"event", "event_polls_deadline_lease_busy",
				"module", moduleName,
				"layer", "worker",
			)
			return nil
		}
	}

	var scanErrs []error

	polls, err := s.Deadlines.ListDueOneShotPolls(ctx, now)
	if err != nil {
		logger.Error("deadline one-shot listing failed",
			"event", "event_polls_deadline_list_one_shot_failed",
			"module", moduleName,
			"layer", "worker",
			"error", err.Error(),
		)
		scanErrs = append(scanErrs, err)
	}
	for _, poll := range polls {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		result, err := s.resolveOneShot(ctx, poll)
		if err != nil {
			result = resultError
			logger.Error("deadline one-shot resolution failed",
				"event", "event_polls_deadline_one_shot_failed",
				"module", moduleName,
				"layer", "worker",
				"poll_id", poll.PollID,
				"error", err.Error(),
			)
		}
		s.observe(kindOneShot, result)
	}

	due, err := s.Deadlines.ListDueRecurringSlots(ctx, now)
	if err != nil {
		logger.Error("deadline recurring listing failed",
			"event", "event_polls_deadline_list_recurring_failed",
			"module", moduleName,
			"layer", "worker",
			"error", err.Error(),
		)
		scanErrs = append(scanErrs, err)
	}
	for _, item := range due {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		result, err := s.resolveRecurring(ctx, item, now)
		if err != nil {
			result = resultError
			logger.Error("deadline recurring resolution failed",
				"event", "event_polls_deadline_recurring_failed",
				"module", moduleName,
				"layer", "worker",
				"poll_id", item.Poll.PollID,
				"slot_id", item.Slot.SlotID,
				"error", err.Error(),
			)
		}
		s.observe(kindRecurring, result)
	}

	logger.Debug("deadline scan completed",
		"event", "event_polls_deadline_scan_completed",
		"module", moduleName,
		"layer", "worker",
		"one_shot_count", len(polls),
		"recurring_count", len(due),
	)
	return errors.Join(scanErrs...)
}

func (s DeadlineScheduler) resolveOneShot(ctx context.Context, poll entities.Poll) (string, error) {
	logger := application.ResolveLogger(s.Logger)
	snapshot, err := s.Snapshots.GetPollSnapshot(ctx, poll.PollID)
	if err != nil {
		return "", err
	}

	resultText := s.oneShotResult(snapshot)
	mentionIDs := unionIDs(snapshot.VoterIDs(), poll.DeadlineMentionIDs)
	s.recordManualMentions(ctx, poll)

	result := resultNoChannel
	if strings.TrimSpace(poll.DeadlineChannelID) != "" {
		result = s.dispatch(ctx, poll, mentionIDs, ports.Notification{
			ChannelID:   poll.DeadlineChannelID,
			Title:       poll.Title,
			URL:         application.EventURL(s.FrontendBase, poll.PollID),
			Description: poll.DeadlineMessage,
			Fields:      []ports.NotificationField{{Name: "Result", Value: resultText}},
		})
	} else {
		logger.Info("one-shot deadline has no target channel",
			"event", "event_polls_deadline_no_channel",
			"module", moduleName,
			"layer", "worker",
			"poll_id", poll.PollID,
		)
	}

	if err := s.Deadlines.MarkPollDeadlineSent(ctx, poll.PollID); err != nil {
		return "", err
	}
	s.announce(ctx, poll.PollID, "", kindOneShot, result, resultText)

	logger.Info("one-shot deadline resolved",
		"event", "event_polls_deadline_one_shot_resolved",
		"module", moduleName,
		"layer", "worker",
		"poll_id", poll.PollID,
		"result", result,
	)
	return result, nil
}

func (s DeadlineScheduler) resolveRecurring(ctx context.Context, item ports.DueSlot, now time.Time) (string, error) {
	logger := application.ResolveLogger(s.Logger)
	poll, slot := item.Poll, item.Slot
	var offset time.Duration
	if poll.DeadlineOffset != nil {
		offset = *poll.DeadlineOffset
	}
	trigger := slot.DeadlineTrigger(offset)

	if now.Sub(trigger) >= s.graceWindow() {
		if err := s.Deadlines.MarkSlotNotificationSent(ctx, slot.SlotID); err != nil {
			return "", err
		}
		logger.Info("recurring deadline past grace window, skipped",
			"event", "event_polls_deadline_recurring_stale",
			"module", moduleName,
			"layer", "worker",
			"poll_id", poll.PollID,
			"slot_id", slot.SlotID,
			"trigger_at", trigger,
		)
		return resultStale, nil
	}

	snapshot, err := s.Snapshots.GetPollSnapshot(ctx, poll.PollID)
	if err != nil {
		return "", err
	}
	var voterIDs []string
	resultText := textNoParticipants
	if view, ok := snapshot.FindSlot(slot.SlotID); ok && len(view.Votes) > 0 {
		names := make([]string, 0, len(view.Votes))
		for _, vote := range view.Votes {
			names = append(names, vote.Member.DisplayName)
			voterIDs = append(voterIDs, vote.Member.MemberID)
		}
		resultText = "**Participants:** " + strings.Join(names, ", ")
	}
	mentionIDs := unionIDs(voterIDs, poll.DeadlineMentionIDs)
	s.recordManualMentions(ctx, poll)

	result := resultNoChannel
	if strings.TrimSpace(poll.DeadlineChannelID) != "" {
		startsAt := slot.StartsAt
		result = s.dispatch(ctx, poll, mentionIDs, ports.Notification{
			ChannelID:        poll.DeadlineChannelID,
			Title:            poll.Title,
			InstanceStartsAt: &startsAt,
			URL:              application.EventURL(s.FrontendBase, poll.PollID),
			Description:      poll.DeadlineMessage,
			Fields:           []ports.NotificationField{{Name: "Result", Value: resultText}},
		})
	}

	if err := s.Deadlines.MarkSlotNotificationSent(ctx, slot.SlotID); err != nil {
		return "", err
	}
	s.announce(ctx, poll.PollID, slot.SlotID, kindRecurring, result, resultText)

	logger.Info("recurring deadline resolved",
		"event", "event_polls_deadline_recurring_resolved",
		"module", moduleName,
		"layer", "worker",
		"poll_id", poll.PollID,
		"slot_id", slot.SlotID,
		"result", result,
	)
	return result, nil
}

func (s DeadlineScheduler) oneShotResult(snapshot entities.PollSnapshot) string {
	if len(snapshot.Slots) == 0 {
		return textNoOptions
	}
	leaders, top := snapshot.Leaders()
	if top == 0 || len(leaders) == 0 {
		return textNoVotes
	}
	winner := leaders[0]
	if len(leaders) > 1 && s.Random != nil {
		winner = leaders[s.Random.Intn(len(leaders))]
	}
	return fmt.Sprintf("Winner: **%s** (%d votes)", winner.Slot.Label, top)
}

// dispatch sends one notification and reports the outcome; failures are
// logged and never block marking the deadline handled.
func (s DeadlineScheduler) dispatch(ctx context.Context, poll entities.Poll, mentionIDs []string, notification ports.Notification) string {
	logger := application.ResolveLogger(s.Logger)
	externalIDs, err := application.ResolveExternalIDs(ctx, s.Members, mentionIDs)
	if err != nil {
		logger.Warn("deadline mention resolution failed",
			"event", "event_polls_deadline_mentions_unresolved",
			"module", moduleName,
			"layer", "worker",
			"poll_id", poll.PollID,
			"error", err.Error(),
		)
	}
	notification.MentionExternalIDs = externalIDs
	messageID, err := s.Notifier.Send(ctx, notification)
	if err != nil {
		logger.Error("deadline notification dispatch failed",
			"event", "event_polls_deadline_dispatch_failed",
			"module", moduleName,
			"layer", "worker",
			"poll_id", poll.PollID,
			"channel_id", notification.ChannelID,
			"error", err.Error(),
		)
		return resultDispatchFailed
	}
	logger.Info("deadline notification sent",
		"event", "event_polls_deadline_dispatched",
		"module", moduleName,
		"layer", "worker",
		"poll_id", poll.PollID,
		"channel_id", notification.ChannelID,
		"message_id", messageID,
		"mention_count", len(externalIDs),
	)
	return resultNotified
}

func (s DeadlineScheduler) recordManualMentions(ctx context.Context, poll entities.Poll) {
	if len(poll.DeadlineMentionIDs) == 0 || s.Mentions == nil {
		return
	}
	if err := s.Mentions.RecordMentions(ctx, poll.CreatorID, poll.DeadlineMentionIDs); err != nil {
		application.ResolveLogger(s.Logger).Warn("deadline mention recording failed",
			"event", "event_polls_deadline_mentions_failed",
			"module", moduleName,
			"layer", "worker",
			"poll_id", poll.PollID,
			"error", err.Error(),
		)
	}
}

// announce mirrors the resolution to the bus and refreshes live views.
func (s DeadlineScheduler) announce(ctx context.Context, pollID string, slotID string, kind string, result string, text string) {
	if s.Publisher == nil || s.IDGen == nil {
		return
	}
	logger := application.ResolveLogger(s.Logger)
	now := s.now()
	for _, topic := range []string{contractsv1.TopicPollDeadlineResolved, contractsv1.TopicPollStateChanged} {
		eventID, err := s.IDGen.NewID(ctx)
		if err != nil {
			return
		}
		payload, err := json.Marshal(map[string]any{
			"poll_id": pollID,
			"slot_id": slotID,
			"kind":    kind,
			"result":  result,
			"text":    text,
		})
		if err != nil {
			return
		}
		event := ports.EventEnvelope{
			EventID:          eventID,
			EventType:        topic,
			OccurredAt:       now,
			SourceService:    "event-polls",
			TraceID:          eventID,
			SchemaVersion:    1,
			PartitionKeyPath: "poll_id",
			PartitionKey:     pollID,
			Data:             payload,
		}
		if err := s.Publisher.Publish(ctx, topic, event); err != nil {
			logger.Warn("deadline event publish failed",
				"event", "event_polls_deadline_event_publish_failed",
				"module", moduleName,
				"layer", "worker",
				"poll_id", pollID,
				"topic", topic,
				"error", err.Error(),
			)
		}
	}
}

func (s DeadlineScheduler) observe(kind string, result string) {
	if s.Metrics != nil {
		s.Metrics.DeadlineProcessed(kind, result)
	}
}

func (s DeadlineScheduler) graceWindow() time.Duration {
	if s.GraceWindow > 0 {
		return s.GraceWindow
	}
	return DefaultGraceWindow
}

func (s DeadlineScheduler) tickInterval() time.Duration {
	if s.TickInterval > 0 {
		return s.TickInterval
	}
	return DefaultTickInterval
}

func (s DeadlineScheduler) now() time.Time {
	if s.Clock != nil {
		return s.Clock.Now().UTC()
	}
	return time.Now().UTC()
}

func unionIDs(groups ...[]string) []string {
	seen := make(map[string]struct{})
	out := make([]string, 0)
	for _, group := range groups {
		for _, id := range group {
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
	}
	return out
}
