package httpadapter

import (
	"context"
	"log/slog"
	"time"

	"sheepyard/contexts/scheduling/event-polls/application/commands"
	"sheepyard/contexts/scheduling/event-polls/application/queries"
	"sheepyard/contexts/scheduling/event-polls/domain/entities"
	httptransport "sheepyard/contexts/scheduling/event-polls/transport/http"
)

type Handler struct {
	Polls   commands.PollUseCase
	Votes   commands.VoteUseCase
	Share   commands.ShareUseCase
	Queries queries.PollQueries
	Logger  *slog.Logger
}

func (h Handler) CreatePollHandler(
	ctx context.Context,
	userID string,
	req httptransport.CreatePollRequest,
) (httptransport.PollResponse, error) {
	options := make([]entities.SlotDraft, 0, len(req.Options))
	for _, option := range req.Options {
		options = append(options, entities.SlotDraft{
			Label:    option.Label,
			StartsAt: option.StartsAt,
			EndsAt:   option.EndsAt,
		})
	}
	result, err := h.Polls.CreatePoll(ctx, commands.CreatePollCommand{
		CreatorID:          userID,
		Title:              req.Title,
		Description:        req.Description,
		Options:            options,
		IsRecurring:        req.IsRecurring,
		RecurrenceRule:     req.RecurrenceRule,
		RecurrenceEnd:      req.RecurrenceEnd,
		DeadlineAt:         req.DeadlineAt,
		DeadlineOffset:     minutesToDuration(req.DeadlineOffsetMinutes),
		DeadlineChannelID:  req.DeadlineChannelID,
		DeadlineMessage:    req.DeadlineMessage,
		DeadlineMentionIDs: req.DeadlineMentionIDs,
	})
	if err != nil {
		return httptransport.PollResponse{}, err
	}
	resp, err := h.GetPollHandler(ctx, result.Poll.PollID)
	if err != nil {
		return httptransport.PollResponse{}, err
	}
	expanded := result.Expanded
	if result.Poll.IsRecurring {
		resp.Expanded = &expanded
	}
	return resp, nil
}

func (h Handler) GetPollHandler(ctx context.Context, pollID string) (httptransport.PollResponse, error) {
	snapshot, err := h.Queries.GetPoll(ctx, pollID)
	if err != nil {
		return httptransport.PollResponse{}, err
	}
	return SnapshotResponse(snapshot), nil
}

func (h Handler) ListPollsHandler(ctx context.Context) (httptransport.PollListResponse, error) {
	polls, err := h.Queries.ListPolls(ctx)
	if err != nil {
		return httptransport.PollListResponse{}, err
	}
	items := make([]httptransport.PollSummary, 0, len(polls))
	for _, poll := range polls {
		items = append(items, httptransport.PollSummary{
			PollID:      poll.PollID,
			Title:       poll.Title,
			CreatorID:   poll.CreatorID,
			IsRecurring: poll.IsRecurring,
			DeadlineAt:  poll.DeadlineAt,
			CreatedAt:   poll.CreatedAt,
		})
	}
	return httptransport.PollListResponse{Items: items}, nil
}

func (h Handler) UpdatePollHandler(
	ctx context.Context,
	userID string,
	pollID string,
	req httptransport.UpdatePollRequest,
) (httptransport.PollResponse, error) {
	if _, err := h.Polls.UpdatePoll(ctx, commands.UpdatePollCommand{
		PollID:             pollID,
		ActorID:            userID,
		Title:              req.Title,
		Description:        req.Description,
		DeadlineAt:         req.DeadlineAt,
		ClearDeadlineAt:    req.ClearDeadline,
		DeadlineOffset:     minutesToDuration(req.DeadlineOffsetMinutes),
		DeadlineChannelID:  req.DeadlineChannelID,
		DeadlineMessage:    req.DeadlineMessage,
		DeadlineMentionIDs: req.DeadlineMentionIDs,
	}); err != nil {
		return httptransport.PollResponse{}, err
	}
	return h.GetPollHandler(ctx, pollID)
}

func (h Handler) DeletePollHandler(ctx context.Context, userID string, pollID string) error {
	return h.Polls.DeletePoll(ctx, commands.DeletePollCommand{
		PollID:  pollID,
		ActorID: userID,
	})
}

func (h Handler) ModifySeriesHandler(
	ctx context.Context,
	userID string,
	pollID string,
	req httptransport.ModifySeriesRequest,
) (httptransport.PollResponse, error) {
	cmd := commands.ModifySeriesCommand{
		PollID:         pollID,
		ActorID:        userID,
		RecurrenceRule: req.RecurrenceRule,
		RecurrenceEnd:  req.RecurrenceEnd,
	}
	if req.CutoffAt != nil {
		cmd.CutoffAt = *req.CutoffAt
	}
	if _, err := h.Polls.ModifySeries(ctx, cmd); err != nil {
		return httptransport.PollResponse{}, err
	}
	return h.GetPollHandler(ctx, pollID)
}

func (h Handler) ToggleVoteHandler(
	ctx context.Context,
	userID string,
	req httptransport.ToggleVoteRequest,
) (httptransport.ToggleVoteResponse, error) {
	result, err := h.Votes.ToggleVote(ctx, commands.ToggleVoteCommand{
		MemberID: userID,
		SlotID:   req.SlotID,
	})
	if err != nil {
		return httptransport.ToggleVoteResponse{}, err
	}
	return httptransport.ToggleVoteResponse{
		Status: string(result.Outcome),
		PollID: result.PollID,
		SlotID: result.SlotID,
		VoteID: result.VoteID,
	}, nil
}

func (h Handler) SharePollHandler(
	ctx context.Context,
	userID string,
	pollID string,
	req httptransport.SharePollRequest,
) (httptransport.SharePollResponse, error) {
	result, err := h.Share.SharePoll(ctx, commands.SharePollCommand{
		PollID:     pollID,
		ActorID:    userID,
		ChannelID:  req.ChannelID,
		Message:    req.Message,
		MentionIDs: req.MentionIDs,
	})
	if err != nil {
		return httptransport.SharePollResponse{}, err
	}
	return httptransport.SharePollResponse{MessageID: result.MessageID}, nil
}

func (h Handler) CalendarHandler(ctx context.Context, pollID string) ([]byte, error) {
	return h.Queries.ExportCalendar(ctx, pollID)
}

// SnapshotResponse maps a poll snapshot onto its wire shape. Live frames use
// the same shape as the REST read.
func SnapshotResponse(snapshot entities.PollSnapshot) httptransport.PollResponse {
	poll := snapshot.Poll
	resp := httptransport.PollResponse{
		PollID:             poll.PollID,
		Title:              poll.Title,
		Description:        poll.Description,
		Creator:            mapMember(snapshot.Creator),
		IsRecurring:        poll.IsRecurring,
		RecurrenceRule:     poll.RecurrenceRule,
		RecurrenceEnd:      poll.RecurrenceEnd,
		DeadlineAt:         poll.DeadlineAt,
		DeadlineChannelID:  poll.DeadlineChannelID,
		DeadlineMessage:    poll.DeadlineMessage,
		DeadlineMentionIDs: poll.DeadlineMentionIDs,
		DeadlineSent:       poll.DeadlineSent,
		CreatedAt:          poll.CreatedAt,
		UpdatedAt:          poll.UpdatedAt,
		Slots:              make([]httptransport.SlotResponse, 0, len(snapshot.Slots)),
	}
	if poll.DeadlineOffset != nil {
		minutes := int(*poll.DeadlineOffset / time.Minute)
		resp.DeadlineOffsetMinutes = &minutes
	}
	for _, view := range snapshot.Slots {
		votes := make([]httptransport.VoteResponse, 0, len(view.Votes))
		for _, vote := range view.Votes {
			votes = append(votes, httptransport.VoteResponse{
				VoteID: vote.VoteID,
				Member: mapMember(vote.Member),
				CastAt: vote.CastAt,
			})
		}
		resp.Slots = append(resp.Slots, httptransport.SlotResponse{
			SlotID:           view.Slot.SlotID,
			Label:            view.Slot.Label,
			StartsAt:         view.Slot.StartsAt,
			EndsAt:           view.Slot.EndsAt,
			NotificationSent: view.Slot.NotificationSent,
			Votes:            votes,
		})
	}
	return resp
}

func mapMember(member entities.MemberProjection) httptransport.MemberResponse {
	return httptransport.MemberResponse{
		MemberID:    member.MemberID,
		DisplayName: member.DisplayName,
		AvatarURL:   member.AvatarURL,
	}
}

func minutesToDuration(minutes *int) *time.Duration {
	if minutes == nil {
		return nil
	}
	d := time.Duration(*minutes) * time.Minute
	return &d
}
