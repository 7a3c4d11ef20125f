package errors

import "errors"

var (
	ErrInvalidPollInput      = errors.New("invalid poll input")
	ErrNoOptions             = errors.New("poll requires at least one option")
	ErrInvalidTimeRange      = errors.New("slot end must be after slot start")
	ErrInvalidRecurrenceRule = errors.New("invalid recurrence rule")
	ErrInvalidDeadline       = errors.New("invalid deadline configuration")
	ErrNotRecurring          = errors.New("poll is not recurring")
	ErrMemberRequired        = errors.New("member id is required")
	ErrChannelRequired       = errors.New("channel id is required")
	ErrForbidden             = errors.New("only the poll creator may modify this poll")
	ErrPollNotFound          = errors.New("poll not found")
	ErrSlotNotFound          = errors.New("slot not found")
	ErrConflict              = errors.New("vote conflict")
)
