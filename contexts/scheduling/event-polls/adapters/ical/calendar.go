package icaladapter

import (
	"fmt"
	"strings"

	"sheepyard/contexts/scheduling/event-polls/domain/entities"
	"sheepyard/contexts/scheduling/event-polls/ports"

	ical "github.com/arran4/golang-ical"
)

const productID = "-//sheepyard//event-polls//EN"

// Encoder renders poll snapshots as iCalendar documents, one VEVENT per slot.
// DTSTAMP uses the poll creation time so repeated exports are identical.
type Encoder struct{}

var _ ports.CalendarEncoder = Encoder{}

func (Encoder) EncodeCalendar(snapshot entities.PollSnapshot, eventURL string) ([]byte, error) {
	poll := snapshot.Poll
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(productID)

	for _, view := range snapshot.Slots {
		slot := view.Slot
		event := cal.AddEvent(fmt.Sprintf("%s@sheepyard", slot.SlotID))
		event.SetDtStampTime(poll.CreatedAt.UTC())
		event.SetCreatedTime(slot.CreatedAt.UTC())
		event.SetStartAt(slot.StartsAt.UTC())
		event.SetEndAt(slot.EndsAt.UTC())
		event.SetSummary(fmt.Sprintf("%s (%s)", poll.Title, slot.Label))
		event.SetDescription(describe(poll, view))
		if strings.TrimSpace(eventURL) != "" {
			event.SetURL(eventURL)
		}
	}
	return []byte(cal.Serialize()), nil
}

func describe(poll entities.Poll, view entities.SlotView) string {
	parts := make([]string, 0, 2)
	if poll.Description != "" {
		parts = append(parts, poll.Description)
	}
	if len(view.Votes) == 0 {
		parts = append(parts, "Available: nobody yet")
	} else {
		names := make([]string, 0, len(view.Votes))
		for _, vote := range view.Votes {
			names = append(names, vote.Member.DisplayName)
		}
		parts = append(parts, "Available: "+strings.Join(names, ", "))
	}
	return strings.Join(parts, "\n\n")
}
