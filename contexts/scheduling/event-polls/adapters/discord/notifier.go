package discordadapter

import (
	"context"
	"fmt"
	"strings"
	"time"

	"sheepyard/contexts/scheduling/event-polls/ports"

	"github.com/bwmarrin/discordgo"
)

const (
	embedColor  = 0x4ade80
	footerText  = "SheepYard Calendar"
	titlePrefix = "📅 "
)

type MessageSender interface {
	SendMessage(ctx context.Context, channelID string, msg *discordgo.MessageSend) (string, error)
}

// Notifier renders notifications as a single embed message. Mentions go in
// the message content and are the only users allowed to be pinged.
type Notifier struct {
	Client MessageSender
	Clock  ports.Clock
}

var _ ports.Notifier = Notifier{}

func (n Notifier) Send(ctx context.Context, notification ports.Notification) (string, error) {
	if strings.TrimSpace(notification.ChannelID) == "" {
		return "", fmt.Errorf("send notification: channel id is empty")
	}
	return n.Client.SendMessage(ctx, notification.ChannelID, BuildMessage(notification, n.now()))
}

func (n Notifier) now() time.Time {
	if n.Clock == nil {
		return time.Now().UTC()
	}
	return n.Clock.Now().UTC()
}

// BuildMessage turns a notification into the Discord payload. Recurring
// instances get their start as a Discord timestamp so each reader sees it
// in their own zone.
func BuildMessage(notification ports.Notification, now time.Time) *discordgo.MessageSend {
	title := notification.Title
	if notification.InstanceStartsAt != nil {
		title = fmt.Sprintf("%s (<t:%d:f>)", title, notification.InstanceStartsAt.Unix())
	}

	fields := make([]*discordgo.MessageEmbedField, 0, len(notification.Fields))
	for _, field := range notification.Fields {
		fields = append(fields, &discordgo.MessageEmbedField{
			Name:   field.Name,
			Value:  field.Value,
			Inline: field.Inline,
		})
	}

	mentions := make([]string, 0, len(notification.MentionExternalIDs))
	for _, id := range notification.MentionExternalIDs {
		if id = strings.TrimSpace(id); id != "" {
			mentions = append(mentions, id)
		}
	}
	content := notification.Headline
	if len(mentions) > 0 {
		tags := make([]string, 0, len(mentions))
		for _, id := range mentions {
			tags = append(tags, "<@"+id+">")
		}
		content = strings.TrimSpace(content + "\n" + strings.Join(tags, " "))
	}

	return &discordgo.MessageSend{
		Content: content,
		Embeds: []*discordgo.MessageEmbed{{
			Title:       titlePrefix + title,
			Description: notification.Description,
			URL:         notification.URL,
			Color:       embedColor,
			Fields:      fields,
			Footer:      &discordgo.MessageEmbedFooter{Text: footerText},
			Timestamp:   now.Format(time.RFC3339),
		}},
		AllowedMentions: &discordgo.MessageAllowedMentions{Users: mentions},
	}
}
