package http

import "time"

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type SlotOptionRequest struct {
	Label    string    `json:"label,omitempty"`
	StartsAt time.Time `json:"starts_at"`
	EndsAt   time.Time `json:"ends_at"`
}

type CreatePollRequest struct {
	Title                 string              `json:"title"`
	Description           string              `json:"description,omitempty"`
	Options               []SlotOptionRequest `json:"options"`
	IsRecurring           bool                `json:"is_recurring"`
	RecurrenceRule        string              `json:"recurrence_rule,omitempty"`
	RecurrenceEnd         *time.Time          `json:"recurrence_end,omitempty"`
	DeadlineAt            *time.Time          `json:"deadline_at,omitempty"`
	DeadlineOffsetMinutes *int                `json:"deadline_offset_minutes,omitempty"`
	DeadlineChannelID     string              `json:"deadline_channel_id,omitempty"`
	DeadlineMessage       string              `json:"deadline_message,omitempty"`
	DeadlineMentionIDs    []string            `json:"deadline_mention_ids,omitempty"`
}

type UpdatePollRequest struct {
	Title                 *string    `json:"title,omitempty"`
	Description           *string    `json:"description,omitempty"`
	DeadlineAt            *time.Time `json:"deadline_at,omitempty"`
	ClearDeadline         bool       `json:"clear_deadline,omitempty"`
	DeadlineOffsetMinutes *int       `json:"deadline_offset_minutes,omitempty"`
	DeadlineChannelID     *string    `json:"deadline_channel_id,omitempty"`
	DeadlineMessage       *string    `json:"deadline_message,omitempty"`
	DeadlineMentionIDs    *[]string  `json:"deadline_mention_ids,omitempty"`
}

type ModifySeriesRequest struct {
	RecurrenceRule string     `json:"recurrence_rule"`
	RecurrenceEnd  *time.Time `json:"recurrence_end,omitempty"`
	CutoffAt       *time.Time `json:"cutoff_at,omitempty"`
}

type ToggleVoteRequest struct {
	SlotID string `json:"slot_id"`
}

type ToggleVoteResponse struct {
	Status string `json:"status"`
	PollID string `json:"poll_id"`
	SlotID string `json:"slot_id"`
	VoteID string `json:"vote_id"`
}

type SharePollRequest struct {
	ChannelID  string   `json:"channel_id"`
	Message    string   `json:"message,omitempty"`
	MentionIDs []string `json:"mention_ids,omitempty"`
}

type SharePollResponse struct {
	MessageID string `json:"message_id"`
}

type MemberResponse struct {
	MemberID    string `json:"member_id"`
	DisplayName string `json:"display_name"`
	AvatarURL   string `json:"avatar_url,omitempty"`
}

type VoteResponse struct {
	VoteID string         `json:"vote_id"`
	Member MemberResponse `json:"member"`
	CastAt time.Time      `json:"cast_at"`
}

type SlotResponse struct {
	SlotID           string         `json:"slot_id"`
	Label            string         `json:"label"`
	StartsAt         time.Time      `json:"starts_at"`
	EndsAt           time.Time      `json:"ends_at"`
	NotificationSent bool           `json:"notification_sent"`
	Votes            []VoteResponse `json:"votes"`
}

type PollResponse struct {
	PollID                string         `json:"poll_id"`
	Title                 string         `json:"title"`
	Description           string         `json:"description,omitempty"`
	Creator               MemberResponse `json:"creator"`
	IsRecurring           bool           `json:"is_recurring"`
	RecurrenceRule        string         `json:"recurrence_rule,omitempty"`
	RecurrenceEnd         *time.Time     `json:"recurrence_end,omitempty"`
	DeadlineAt            *time.Time     `json:"deadline_at,omitempty"`
	DeadlineOffsetMinutes *int           `json:"deadline_offset_minutes,omitempty"`
	DeadlineChannelID     string         `json:"deadline_channel_id,omitempty"`
	DeadlineMessage       string         `json:"deadline_message,omitempty"`
	DeadlineMentionIDs    []string       `json:"deadline_mention_ids,omitempty"`
	DeadlineSent          bool           `json:"deadline_sent"`
	CreatedAt             time.Time      `json:"created_at"`
	UpdatedAt             time.Time      `json:"updated_at"`
	Slots                 []SlotResponse `json:"slots"`
	Expanded              *bool          `json:"expanded,omitempty"`
}

type PollSummary struct {
	PollID      string     `json:"poll_id"`
	Title       string     `json:"title"`
	CreatorID   string     `json:"creator_id"`
	IsRecurring bool       `json:"is_recurring"`
	DeadlineAt  *time.Time `json:"deadline_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

type PollListResponse struct {
	Items []PollSummary `json:"items"`
}

// LiveMessage is the frame pushed to live poll subscribers.
type LiveMessage struct {
	Type string       `json:"type"`
	Poll PollResponse `json:"poll"`
}
