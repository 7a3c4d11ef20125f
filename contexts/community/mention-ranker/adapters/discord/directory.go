package discordadapter

import (
	"context"
	"strings"

	"sheepyard/contexts/community/mention-ranker/ports"

	"github.com/bwmarrin/discordgo"
)

type GuildMemberLister interface {
	ListGuildMembers(ctx context.Context, guildID string) ([]*discordgo.Member, error)
}

// Directory serves the member roster from a Discord guild. Bots are left out.
type Directory struct {
	Client GuildMemberLister
}

var _ ports.Directory = Directory{}

func (d Directory) ListMembers(ctx context.Context, group string) ([]ports.DirectoryMember, error) {
	members, err := d.Client.ListGuildMembers(ctx, group)
	if err != nil {
		return nil, err
	}
	out := make([]ports.DirectoryMember, 0, len(members))
	for _, member := range members {
		if member == nil || member.User == nil || member.User.Bot {
			continue
		}
		out = append(out, toDirectoryMember(member))
	}
	return out, nil
}

func toDirectoryMember(member *discordgo.Member) ports.DirectoryMember {
	user := member.User
	entry := ports.DirectoryMember{
		ExternalID:  user.ID,
		Username:    user.Username,
		DisplayName: displayName(member),
		JoinedAt:    member.JoinedAt.UTC(),
	}
	if user.Avatar != "" {
		entry.AvatarURL = discordgo.EndpointUserAvatar(user.ID, user.Avatar)
	}
	return entry
}

// displayName prefers the guild nickname, then the global display name.
func displayName(member *discordgo.Member) string {
	if nick := strings.TrimSpace(member.Nick); nick != "" {
		return nick
	}
	if global := strings.TrimSpace(member.User.GlobalName); global != "" {
		return global
	}
	return member.User.Username
}
