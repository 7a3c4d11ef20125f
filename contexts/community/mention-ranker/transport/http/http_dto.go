package http

import "time"

type RecordMentionsRequest struct {
	TargetIDs []string `json:"target_ids"`
}

type RankedMemberResponse struct {
	MemberID        string     `json:"member_id"`
	ExternalID      string     `json:"external_id,omitempty"`
	Username        string     `json:"username,omitempty"`
	DisplayName     string     `json:"display_name"`
	AvatarURL       string     `json:"avatar_url,omitempty"`
	LastMentionedAt *time.Time `json:"last_mentioned_at,omitempty"`
}

type RankedMembersResponse struct {
	Items []RankedMemberResponse `json:"items"`
}
