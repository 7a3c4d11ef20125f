package commands

import (
	"context"
	"log/slog"
	"strings"
	"time"

	application "sheepyard/contexts/scheduling/event-polls/application"
	"sheepyard/contexts/scheduling/event-polls/domain/entities"
	domainerrors "sheepyard/contexts/scheduling/event-polls/domain/errors"
	"sheepyard/contexts/scheduling/event-polls/ports"
)

type ToggleVoteCommand struct {
	MemberID string
	SlotID   string
}

type ToggleVoteResult struct {
	Outcome entities.ToggleOutcome
	PollID  string
	SlotID  string
	VoteID  string
}

// VoteUseCase flips a member's availability on a slot. The toggle itself is
// one atomic repository call; broadcasting and notification happen after it
// commits and never fail the toggle.
type VoteUseCase struct {
	Votes         ports.VoteRepository
	Publisher     ports.EventPublisher
	Notifier      ports.VoteCastNotifier
	Metrics       ports.Metrics
	Clock         ports.Clock
	IDGen         ports.IDGenerator
	NotifyTimeout time.Duration
	Logger        *slog.Logger
}

func (uc VoteUseCase) ToggleVote(ctx context.Context, cmd ToggleVoteCommand) (ToggleVoteResult, error) {
	logger := application.ResolveLogger(uc.Logger)
	memberID := strings.TrimSpace(cmd.MemberID)
	slotID := strings.TrimSpace(cmd.SlotID)
	if memberID == "" {
		return ToggleVoteResult{}, domainerrors.ErrMemberRequired
	}
	if slotID == "" {
		return ToggleVoteResult{}, domainerrors.ErrInvalidPollInput
	}

	now := uc.now()
	voteID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		return ToggleVoteResult{}, err
	}
	record, err := uc.Votes.ToggleVote(ctx, ports.ToggleVoteRequest{
		SlotID:   slotID,
		MemberID: memberID,
		VoteID:   voteID,
		CastAt:   now,
	})
	if err != nil {
		logger.Warn("vote toggle failed",
			"event", "event_polls_vote_toggle_failed",
			"module", moduleName,
			"layer", "application",
			"slot_id", slotID,
			"member_id", memberID,
			"error", err.Error(),
		)
		return ToggleVoteResult{}, err
	}
	if uc.Metrics != nil {
		uc.Metrics.VoteToggled(string(record.Outcome))
	}

	logger.Info("vote toggled",
		"event", "event_polls_vote_toggled",
		"module", moduleName,
		"layer", "application",
		"poll_id", record.PollID,
		"slot_id", record.SlotID,
		"member_id", memberID,
		"outcome", string(record.Outcome),
	)

	publishStateChanged(ctx, uc.Publisher, uc.IDGen, logger, record.PollID, "vote_toggled", now)

	if record.Outcome == entities.ToggleAdded && uc.Notifier != nil {
		notice := ports.VoteCastNotice{
			PollID:   record.PollID,
			SlotID:   record.SlotID,
			VoteID:   record.VoteID,
			MemberID: memberID,
			CastAt:   now,
		}
		notifier := uc.Notifier
		application.DispatchDetached(ctx, logger, moduleName, "event_polls_vote_cast_notify", uc.NotifyTimeout,
			func(ctx context.Context) error {
				return notifier.NotifyVoteCast(ctx, notice)
			},
		)
	}

	return ToggleVoteResult{
		Outcome: record.Outcome,
		PollID:  record.PollID,
		SlotID:  record.SlotID,
		VoteID:  record.VoteID,
	}, nil
}

func (uc VoteUseCase) now() time.Time {
	return resolveNow(uc.Clock)
}
