package recurrence

import (
	"strings"
	"time"

	"sheepyard/contexts/scheduling/event-polls/domain/entities"
	domainerrors "sheepyard/contexts/scheduling/event-polls/domain/errors"
	"sheepyard/contexts/scheduling/event-polls/ports"

	"github.com/teambition/rrule-go"
)

// DefaultMaxInstances caps how many slots one expansion may produce.
const DefaultMaxInstances = 365

// Expander generates slot drafts from an RFC 5545 RRULE. It never reads the
// wall clock: the same inputs always produce the same drafts.
type Expander struct {
	MaxInstances int
}

var _ ports.RecurrenceExpander = Expander{}

// Expand anchors the rule at the template start, or at the override's date
// with the template's time of day, and walks occurrences until the cap or
// until an occurrence starts after until. Every draft keeps the template's
// duration. An unparseable rule yields no drafts and ErrInvalidRecurrenceRule.
func (e Expander) Expand(
	template entities.SlotDraft,
	rule string,
	until *time.Time,
	overrideStart *time.Time,
) ([]entities.SlotDraft, error) {
	if !template.Valid() {
		return nil, domainerrors.ErrInvalidTimeRange
	}
	body, ok := normalizeRule(rule)
	if !ok {
		return nil, domainerrors.ErrInvalidRecurrenceRule
	}
	r, err := rrule.StrToRRule(body)
	if err != nil {
		return nil, domainerrors.ErrInvalidRecurrenceRule
	}
	r.DTStart(anchor(template.StartsAt, overrideStart))

	limit := e.MaxInstances
	if limit <= 0 {
		limit = DefaultMaxInstances
	}
	duration := template.Duration()

	drafts := make([]entities.SlotDraft, 0)
	next := r.Iterator()
	for len(drafts) < limit {
		start, ok := next()
		if !ok {
			break
		}
		if until != nil && start.After(*until) {
			break
		}
		drafts = append(drafts, entities.SlotDraft{
			Label:    entities.DefaultSlotLabel(start),
			StartsAt: start,
			EndsAt:   start.Add(duration),
		})
	}
	return drafts, nil
}

// normalizeRule strips an optional RRULE: prefix and rejects bodies without
// a frequency, which rrule-go would otherwise read as yearly.
func normalizeRule(rule string) (string, bool) {
	body := strings.TrimSpace(rule)
	if len(body) >= len("RRULE:") && strings.EqualFold(body[:len("RRULE:")], "RRULE:") {
		body = strings.TrimSpace(body[len("RRULE:"):])
	}
	if body == "" || !strings.Contains(strings.ToUpper(body), "FREQ=") {
		return "", false
	}
	return body, true
}

func anchor(templateStart time.Time, overrideStart *time.Time) time.Time {
	if overrideStart == nil {
		return templateStart
	}
	loc := templateStart.Location()
	day := overrideStart.In(loc)
	return time.Date(
		day.Year(), day.Month(), day.Day(),
		templateStart.Hour(), templateStart.Minute(), templateStart.Second(), 0,
		loc,
	)
}
