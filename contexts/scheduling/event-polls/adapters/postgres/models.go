package postgresadapter

import (
	"time"

	"sheepyard/contexts/scheduling/event-polls/domain/entities"

	"gorm.io/datatypes"
)

type pollModel struct {
	ID                    string                      `gorm:"column:id;primaryKey"`
	Title                 string                      `gorm:"column:title;not null"`
	Description           string                      `gorm:"column:description"`
	CreatorID             string                      `gorm:"column:creator_id;index;not null"`
	IsRecurring           bool                        `gorm:"column:is_recurring;not null;default:false"`
	RecurrenceRule        string                      `gorm:"column:recurrence_rule"`
	RecurrenceEnd         *time.Time                  `gorm:"column:recurrence_end"`
	DeadlineAt            *time.Time                  `gorm:"column:deadline_at;index"`
	DeadlineOffsetMinutes *int                        `gorm:"column:deadline_offset_minutes"`
	DeadlineChannelID     string                      `gorm:"column:deadline_channel_id"`
	DeadlineMessage       string                      `gorm:"column:deadline_message"`
	DeadlineMentionIDs    datatypes.JSONSlice[string] `gorm:"column:deadline_mention_ids"`
	DeadlineSent          bool                        `gorm:"column:deadline_sent;not null;default:false"`
	CreatedAt             time.Time                   `gorm:"column:created_at"`
	UpdatedAt             time.Time                   `gorm:"column:updated_at"`

	Slots []slotModel `gorm:"foreignKey:PollID;references:ID;constraint:OnDelete:CASCADE"`
}

func (pollModel) TableName() string { return "event_polls" }

type slotModel struct {
	ID               string    `gorm:"column:id;primaryKey"`
	PollID           string    `gorm:"column:poll_id;index;not null"`
	Label            string    `gorm:"column:label;not null"`
	StartsAt         time.Time `gorm:"column:starts_at;index;not null"`
	EndsAt           time.Time `gorm:"column:ends_at;not null"`
	NotificationSent bool      `gorm:"column:notification_sent;not null;default:false"`
	CreatedAt        time.Time `gorm:"column:created_at"`

	Votes []voteModel `gorm:"foreignKey:SlotID;references:ID;constraint:OnDelete:CASCADE"`
}

func (slotModel) TableName() string { return "event_poll_slots" }

type voteModel struct {
	ID       string    `gorm:"column:id;primaryKey"`
	SlotID   string    `gorm:"column:slot_id;not null;uniqueIndex:idx_votes_slot_member"`
	MemberID string    `gorm:"column:member_id;not null;uniqueIndex:idx_votes_slot_member;index"`
	CastAt   time.Time `gorm:"column:cast_at;not null"`
}

func (voteModel) TableName() string { return "event_poll_votes" }

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

func pollModelFromEntity(poll entities.Poll) pollModel {
	row := pollModel{
		ID:                 poll.PollID,
		Title:              poll.Title,
		Description:        poll.Description,
		CreatorID:          poll.CreatorID,
		IsRecurring:        poll.IsRecurring,
		RecurrenceRule:     poll.RecurrenceRule,
		RecurrenceEnd:      poll.RecurrenceEnd,
		DeadlineAt:         poll.DeadlineAt,
		DeadlineChannelID:  poll.DeadlineChannelID,
		DeadlineMessage:    poll.DeadlineMessage,
		DeadlineMentionIDs: datatypes.JSONSlice[string](append([]string{}, poll.DeadlineMentionIDs...)),
		DeadlineSent:       poll.DeadlineSent,
		CreatedAt:          poll.CreatedAt,
		UpdatedAt:          poll.UpdatedAt,
	}
	if poll.DeadlineOffset != nil {
		minutes := int(*poll.DeadlineOffset / time.Minute)
		row.DeadlineOffsetMinutes = &minutes
	}
	return row
}

func (m pollModel) toEntity() entities.Poll {
	poll := entities.Poll{
		PollID:             m.ID,
		Title:              m.Title,
		Description:        m.Description,
		CreatorID:          m.CreatorID,
		CreatedAt:          m.CreatedAt.UTC(),
		UpdatedAt:          m.UpdatedAt.UTC(),
		IsRecurring:        m.IsRecurring,
		RecurrenceRule:     m.RecurrenceRule,
		RecurrenceEnd:      utcPtr(m.RecurrenceEnd),
		DeadlineAt:         utcPtr(m.DeadlineAt),
		DeadlineChannelID:  m.DeadlineChannelID,
		DeadlineMessage:    m.DeadlineMessage,
		DeadlineMentionIDs: append([]string(nil), m.DeadlineMentionIDs...),
		DeadlineSent:       m.DeadlineSent,
	}
	if m.DeadlineOffsetMinutes != nil {
		offset := time.Duration(*m.DeadlineOffsetMinutes) * time.Minute
		poll.DeadlineOffset = &offset
	}
	return poll
}

func slotModelFromEntity(slot entities.Slot) slotModel {
	return slotModel{
		ID:               slot.SlotID,
		PollID:           slot.PollID,
		Label:            slot.Label,
		StartsAt:         slot.StartsAt.UTC(),
		EndsAt:           slot.EndsAt.UTC(),
		NotificationSent: slot.NotificationSent,
		CreatedAt:        slot.CreatedAt.UTC(),
	}
}

func (m slotModel) toEntity() entities.Slot {
	return entities.Slot{
		SlotID:           m.ID,
		PollID:           m.PollID,
		Label:            m.Label,
		StartsAt:         m.StartsAt.UTC(),
		EndsAt:           m.EndsAt.UTC(),
		NotificationSent: m.NotificationSent,
		CreatedAt:        m.CreatedAt.UTC(),
	}
}

func (m voteModel) toEntity() entities.Vote {
	return entities.Vote{
		VoteID:   m.ID,
		SlotID:   m.SlotID,
		MemberID: m.MemberID,
		CastAt:   m.CastAt.UTC(),
	}
}

func (m memberModel) toEntity() entities.Member {
	return entities.Member{
		MemberID:    m.ID,
		ExternalID:  m.ExternalID,
		Username:    m.Username,
		DisplayName: m.DisplayName,
		AvatarURL:   m.AvatarURL,
		JoinedAt:    m.JoinedAt.UTC(),
	}
}

func toSlotEntities(rows []slotModel) []entities.Slot {
	out := make([]entities.Slot, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toEntity())
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
