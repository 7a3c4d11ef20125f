package icaladapter

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"sheepyard/contexts/scheduling/event-polls/domain/entities"

	ical "github.com/arran4/golang-ical"
)

func TestEncodeCalendarWritesOneEventPerSlot(t *testing.T) {
	created := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	start := time.Date(2026, 3, 2, 18, 0, 0, 0, time.UTC)
	snapshot := entities.BuildSnapshot(
		entities.Poll{PollID: "poll-1", Title: "Raid night", CreatorID: "member-1", CreatedAt: created},
		[]entities.Slot{
			{SlotID: "slot-1", PollID: "poll-1", Label: "Mon", StartsAt: start, EndsAt: start.Add(2 * time.Hour), CreatedAt: created},
			{SlotID: "slot-2", PollID: "poll-1", Label: "Tue", StartsAt: start.Add(24 * time.Hour), EndsAt: start.Add(26 * time.Hour), CreatedAt: created},
		},
		[]entities.Vote{{VoteID: "vote-1", SlotID: "slot-1", MemberID: "member-2", CastAt: created}},
		map[string]entities.Member{"member-2": {MemberID: "member-2", DisplayName: "Dolly"}},
	)

	body, err := Encoder{}.EncodeCalendar(snapshot, "https://calendar.example/apps/calendar/events/poll-1")
	if err != nil {
		t.Fatalf("encode calendar failed: %v", err)
	}

	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		t.Fatalf("parse encoded calendar failed: %v", err)
	}
	events := cal.Events()
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	first := events[0]
	gotStart, err := first.GetStartAt()
	if err != nil {
		t.Fatalf("read start failed: %v", err)
	}
	if !gotStart.Equal(start) {
		t.Fatalf("expected start %s, got %s", start, gotStart)
	}
	summary := first.GetProperty(ical.ComponentPropertySummary)
	if summary == nil || summary.Value != "Raid night (Mon)" {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if !strings.Contains(string(body), "Dolly") {
		t.Fatalf("expected voter name in description")
	}
}

func TestEncodeCalendarIsDeterministic(t *testing.T) {
	created := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	snapshot := entities.BuildSnapshot(
		entities.Poll{PollID: "poll-1", Title: "Board games", CreatorID: "member-1", CreatedAt: created},
		[]entities.Slot{{SlotID: "slot-1", PollID: "poll-1", Label: "Sat", StartsAt: created.Add(48 * time.Hour), EndsAt: created.Add(50 * time.Hour), CreatedAt: created}},
		nil,
		nil,
	)
	first, _ := Encoder{}.EncodeCalendar(snapshot, "")
	second, _ := Encoder{}.EncodeCalendar(snapshot, "")
	if !bytes.Equal(first, second) {
		t.Fatalf("expected identical exports")
	}
}
