package recurrence

import (
	"errors"
	"testing"
	"time"

	"sheepyard/contexts/scheduling/event-polls/domain/entities"
	domainerrors "sheepyard/contexts/scheduling/event-polls/domain/errors"
)

func mondayEvening() entities.SlotDraft {
	start := time.Date(2026, 1, 5, 18, 0, 0, 0, time.UTC)
	return entities.SlotDraft{StartsAt: start, EndsAt: start.Add(2 * time.Hour)}
}

func TestExpandWeeklyStopsAtInclusiveEnd(t *testing.T) {
	until := time.Date(2026, 1, 26, 18, 0, 0, 0, time.UTC)

	drafts, err := Expander{}.Expand(mondayEvening(), "FREQ=WEEKLY", &until, nil)
	if err != nil {
		t.Fatalf("expand failed: %v", err)
	}
	if len(drafts) != 4 {
		t.Fatalf("expected 4 weekly instances, got %d", len(drafts))
	}
	for i, draft := range drafts {
		want := time.Date(2026, 1, 5+7*i, 18, 0, 0, 0, time.UTC)
		if !draft.StartsAt.Equal(want) {
			t.Fatalf("instance %d starts at %s, want %s", i, draft.StartsAt, want)
		}
		if draft.Duration() != 2*time.Hour {
			t.Fatalf("instance %d lost template duration: %s", i, draft.Duration())
		}
	}
	if drafts[0].Label != "Mon, Jan 05 @ 18:00" {
		t.Fatalf("unexpected label %q", drafts[0].Label)
	}
}

func TestExpandCapsUnboundedRules(t *testing.T) {
	drafts, err := Expander{}.Expand(mondayEvening(), "FREQ=DAILY", nil, nil)
	if err != nil {
		t.Fatalf("expand failed: %v", err)
	}
	if len(drafts) != DefaultMaxInstances {
		t.Fatalf("expected %d instances, got %d", DefaultMaxInstances, len(drafts))
	}

	drafts, err = Expander{MaxInstances: 10}.Expand(mondayEvening(), "FREQ=DAILY", nil, nil)
	if err != nil {
		t.Fatalf("expand failed: %v", err)
	}
	if len(drafts) != 10 {
		t.Fatalf("expected configured cap of 10, got %d", len(drafts))
	}
}

func TestExpandOverrideKeepsTemplateTimeOfDay(t *testing.T) {
	override := time.Date(2026, 2, 10, 9, 30, 0, 0, time.UTC)

	drafts, err := Expander{}.Expand(mondayEvening(), "FREQ=WEEKLY;BYDAY=MO,WE;COUNT=3", nil, &override)
	if err != nil {
		t.Fatalf("expand failed: %v", err)
	}
	if len(drafts) != 3 {
		t.Fatalf("expected 3 instances, got %d", len(drafts))
	}
	want := time.Date(2026, 2, 11, 18, 0, 0, 0, time.UTC)
	if !drafts[0].StartsAt.Equal(want) {
		t.Fatalf("first instance %s, want %s", drafts[0].StartsAt, want)
	}
	for _, draft := range drafts {
		if draft.StartsAt.Before(override) {
			t.Fatalf("instance %s precedes override", draft.StartsAt)
		}
		if draft.StartsAt.Hour() != 18 {
			t.Fatalf("instance %s lost template hour", draft.StartsAt)
		}
	}
}

func TestExpandAcceptsPrefixedRule(t *testing.T) {
	drafts, err := Expander{}.Expand(mondayEvening(), "RRULE:FREQ=DAILY;COUNT=3", nil, nil)
	if err != nil {
		t.Fatalf("expand failed: %v", err)
	}
	if len(drafts) != 3 {
		t.Fatalf("expected 3 instances, got %d", len(drafts))
	}
}

func TestExpandRejectsUnparseableRule(t *testing.T) {
	for _, rule := range []string{"", "   ", "FREQ=SOMETIMES", "BYDAY=MO"} {
		drafts, err := Expander{}.Expand(mondayEvening(), rule, nil, nil)
		if !errors.Is(err, domainerrors.ErrInvalidRecurrenceRule) {
			t.Fatalf("rule %q: expected ErrInvalidRecurrenceRule, got %v", rule, err)
		}
		if len(drafts) != 0 {
			t.Fatalf("rule %q: expected no drafts, got %d", rule, len(drafts))
		}
	}
}

func TestExpandRejectsInvertedTemplate(t *testing.T) {
	template := mondayEvening()
	template.EndsAt = template.StartsAt.Add(-time.Hour)
	if _, err := (Expander{}).Expand(template, "FREQ=DAILY", nil, nil); !errors.Is(err, domainerrors.ErrInvalidTimeRange) {
		t.Fatalf("expected ErrInvalidTimeRange, got %v", err)
	}
}

func TestExpandIsDeterministic(t *testing.T) {
	until := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	first, err := Expander{}.Expand(mondayEvening(), "FREQ=WEEKLY;BYDAY=MO,TH", &until, nil)
	if err != nil {
		t.Fatalf("expand failed: %v", err)
	}
	second, err := Expander{}.Expand(mondayEvening(), "FREQ=WEEKLY;BYDAY=MO,TH", &until, nil)
	if err != nil {
		t.Fatalf("expand failed: %v", err)
	}
	if len(first) != len(second) {
		t.Fatalf("expansion length changed: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if !first[i].StartsAt.Equal(second[i].StartsAt) || first[i].Label != second[i].Label {
			t.Fatalf("expansion differs at %d", i)
		}
	}
}
