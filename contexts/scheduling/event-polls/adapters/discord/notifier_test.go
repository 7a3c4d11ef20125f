package discordadapter

import (
	"context"
	"strings"
	"testing"
	"time"

	"sheepyard/contexts/scheduling/event-polls/ports"

	"github.com/bwmarrin/discordgo"
)

type recordingSender struct {
	channelID string
	msg       *discordgo.MessageSend
}

func (s *recordingSender) SendMessage(_ context.Context, channelID string, msg *discordgo.MessageSend) (string, error) {
	s.channelID = channelID
	s.msg = msg
	return "msg-1", nil
}

func TestBuildMessageRendersRecurringInstanceTimestamp(t *testing.T) {
	start := time.Date(2026, 3, 2, 18, 0, 0, 0, time.UTC)
	now := time.Date(2026, 3, 2, 16, 0, 0, 0, time.UTC)

	msg := BuildMessage(ports.Notification{
		ChannelID:          "chan-1",
		Title:              "Board games",
		InstanceStartsAt:   &start,
		URL:                "https://example.test/apps/calendar/events/poll-1",
		Fields:             []ports.NotificationField{{Name: "Result", Value: "No participants yet."}},
		MentionExternalIDs: []string{"111", " ", "222"},
	}, now)

	if len(msg.Embeds) != 1 {
		t.Fatalf("expected one embed, got %d", len(msg.Embeds))
	}
	embed := msg.Embeds[0]
	if !strings.Contains(embed.Title, "Board games (<t:1772474400:f>)") {
		t.Fatalf("unexpected title %q", embed.Title)
	}
	if embed.Footer == nil || embed.Footer.Text != "SheepYard Calendar" {
		t.Fatalf("unexpected footer %+v", embed.Footer)
	}
	if embed.Color != 0x4ade80 {
		t.Fatalf("unexpected color %x", embed.Color)
	}
	if msg.Content != "<@111> <@222>" {
		t.Fatalf("unexpected content %q", msg.Content)
	}
	if got := msg.AllowedMentions.Users; len(got) != 2 || got[0] != "111" || got[1] != "222" {
		t.Fatalf("unexpected allowed mentions %v", got)
	}
}

func TestNotifierSendsToChannel(t *testing.T) {
	sender := &recordingSender{}
	notifier := Notifier{Client: sender}

	id, err := notifier.Send(context.Background(), ports.Notification{
		ChannelID: "chan-9",
		Headline:  "**New Event Shared!**",
		Title:     "Picnic",
	})
	if err != nil {
		t.Fatalf("send failed: %v", err)
	}
	if id != "msg-1" || sender.channelID != "chan-9" {
		t.Fatalf("unexpected dispatch id=%s channel=%s", id, sender.channelID)
	}
	if sender.msg.Content != "**New Event Shared!**" {
		t.Fatalf("unexpected content %q", sender.msg.Content)
	}
	if sender.msg.Embeds[0].Title != "📅 Picnic" {
		t.Fatalf("unexpected title %q", sender.msg.Embeds[0].Title)
	}
}

func TestNotifierRejectsMissingChannel(t *testing.T) {
	notifier := Notifier{Client: &recordingSender{}}
	if _, err := notifier.Send(context.Background(), ports.Notification{Title: "x"}); err == nil {
		t.Fatal("expected error for empty channel")
	}
}
