// Package discord wraps the bot REST surface the service needs: posting
// channel messages and paging through guild members.
package discord

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/bwmarrin/discordgo"
)

const guildMemberPageSize = 1000

// ErrNotConfigured is returned when no bot token was provided.
var ErrNotConfigured = errors.New("discord client not configured")

var errGuildRequired = errors.New("list guild members: guild id is empty")

type Client struct {
	session *discordgo.Session
	guildID string
	logger  *slog.Logger
}

// New builds a REST-only client. The gateway connection is never opened.
// An empty token yields a client whose calls return ErrNotConfigured.
func New(token string, guildID string, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		logger = slog.Default()
	}
	client := &Client{guildID: strings.TrimSpace(guildID), logger: logger}
	token = strings.TrimSpace(token)
	if token == "" {
		return client, nil
	}
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("create discord session: %w", err)
	}
	client.session = session
	return client, nil
}

func (c *Client) Configured() bool {
	return c != nil && c.session != nil
}

// SendMessage posts msg to channelID and returns the created message id.
func (c *Client) SendMessage(ctx context.Context, channelID string, msg *discordgo.MessageSend) (string, error) {
	if !c.Configured() {
		return "", ErrNotConfigured
	}
	created, err := c.session.ChannelMessageSendComplex(strings.TrimSpace(channelID), msg, discordgo.WithContext(ctx))
	if err != nil {
		c.logger.Error("discord message send failed",
			"event", "discord_message_send_failed",
			"module", "platform/discord",
			"layer", "platform",
			"channel_id", channelID,
			"error", err.Error(),
		)
		return "", fmt.Errorf("send discord message: %w", err)
	}
	return created.ID, nil
}

// ListGuildMembers pages through every member of guildID, or of the
// configured guild when guildID is empty.
func (c *Client) ListGuildMembers(ctx context.Context, guildID string) ([]*discordgo.Member, error) {
	if !c.Configured() {
		return nil, ErrNotConfigured
	}
	guildID = strings.TrimSpace(guildID)
	if guildID == "" {
		guildID = c.guildID
	}
	if guildID == "" {
		return nil, errGuildRequired
	}
	out := make([]*discordgo.Member, 0)
	after := ""
	for {
		page, err := c.session.GuildMembers(guildID, after, guildMemberPageSize, discordgo.WithContext(ctx))
		if err != nil {
			c.logger.Warn("discord guild member page failed",
				"event", "discord_guild_members_failed",
				"module", "platform/discord",
				"layer", "platform",
				"guild_id", guildID,
				"fetched", len(out),
				"error", err.Error(),
			)
			return nil, fmt.Errorf("list guild members: %w", err)
		}
		out = append(out, page...)
		if len(page) < guildMemberPageSize {
			return out, nil
		}
		last := page[len(page)-1]
		if last == nil || last.User == nil {
			return out, nil
		}
		after = last.User.ID
	}
}
