package entities

import (
	"strings"
	"time"
)

// Poll is a scheduling poll. One-shot polls resolve once at DeadlineAt;
// recurring polls resolve every slot at StartsAt minus DeadlineOffset.
type Poll struct {
	PollID             string
	Title              string
	Description        string
	CreatorID          string
	CreatedAt          time.Time
	UpdatedAt          time.Time
	IsRecurring        bool
	RecurrenceRule     string
	RecurrenceEnd      *time.Time
	DeadlineAt         *time.Time
	DeadlineOffset     *time.Duration
	DeadlineChannelID  string
	DeadlineMessage    string
	DeadlineMentionIDs []string
	DeadlineSent       bool
}

func (p Poll) IsCreator(memberID string) bool {
	return strings.TrimSpace(memberID) != "" && strings.TrimSpace(p.CreatorID) == strings.TrimSpace(memberID)
}

// HasValidDeadline reports whether the deadline fields agree with the poll
// kind: absolute deadlines for one-shot polls, offsets for recurring ones.
func (p Poll) HasValidDeadline() bool {
	if p.IsRecurring {
		if p.DeadlineAt != nil {
			return false
		}
		return p.DeadlineOffset == nil || *p.DeadlineOffset >= 0
	}
	return p.DeadlineOffset == nil
}

// SameDeadline reports whether two absolute deadlines name the same instant.
func SameDeadline(a *time.Time, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}

type Slot struct {
	SlotID           string
	PollID           string
	Label            string
	StartsAt         time.Time
	EndsAt           time.Time
	NotificationSent bool
	CreatedAt        time.Time
}

func (s Slot) Duration() time.Duration {
	return s.EndsAt.Sub(s.StartsAt)
}

// DeadlineTrigger is the instant a recurring slot becomes due.
func (s Slot) DeadlineTrigger(offset time.Duration) time.Time {
	return s.StartsAt.Add(-offset)
}

// SlotDraft is a slot that has not been assigned an identity yet. It is the
// input shape for poll creation and the output of recurrence expansion.
type SlotDraft struct {
	Label    string
	StartsAt time.Time
	EndsAt   time.Time
}

func (d SlotDraft) Valid() bool {
	return !d.StartsAt.IsZero() && d.EndsAt.After(d.StartsAt)
}

func (d SlotDraft) Duration() time.Duration {
	return d.EndsAt.Sub(d.StartsAt)
}

type Vote struct {
	VoteID   string
	SlotID   string
	MemberID string
	CastAt   time.Time
}

type ToggleOutcome string

const (
	ToggleAdded   ToggleOutcome = "added"
	ToggleRemoved ToggleOutcome = "removed"
)

type Member struct {
	MemberID    string
	ExternalID  string
	Username    string
	DisplayName string
	AvatarURL   string
	JoinedAt    time.Time
}

func (m Member) Name() string {
	if name := strings.TrimSpace(m.DisplayName); name != "" {
		return name
	}
	if name := strings.TrimSpace(m.Username); name != "" {
		return name
	}
	return m.MemberID
}

func (m Member) Projection() MemberProjection {
	return MemberProjection{
		MemberID:    m.MemberID,
		DisplayName: m.Name(),
		AvatarURL:   m.AvatarURL,
	}
}

// DefaultSlotLabel is the label given to slots derived from a start time.
func DefaultSlotLabel(start time.Time) string {
	return start.Format("Mon, Jan 02 @ 15:04")
}
