package httpadapter

import (
	"context"
	"log/slog"

	"sheepyard/contexts/community/mention-ranker/application"
	httptransport "sheepyard/contexts/community/mention-ranker/transport/http"
)

type Handler struct {
	Service application.Service
	Logger  *slog.Logger
}

func (h Handler) RankedMembersHandler(ctx context.Context, userID string) (httptransport.RankedMembersResponse, error) {
	ranked, err := h.Service.RankMembers(ctx, userID)
	if err != nil {
		return httptransport.RankedMembersResponse{}, err
	}
	items := make([]httptransport.RankedMemberResponse, 0, len(ranked))
	for _, item := range ranked {
		items = append(items, httptransport.RankedMemberResponse{
			MemberID:        item.Member.MemberID,
			ExternalID:      item.Member.ExternalID,
			Username:        item.Member.Username,
			DisplayName:     item.Member.Name(),
			AvatarURL:       item.Member.AvatarURL,
			LastMentionedAt: item.LastMentionedAt,
		})
	}
	return httptransport.RankedMembersResponse{Items: items}, nil
}

func (h Handler) RecordMentionsHandler(ctx context.Context, userID string, req httptransport.RecordMentionsRequest) error {
	return h.Service.RecordMentions(ctx, userID, req.TargetIDs)
}
