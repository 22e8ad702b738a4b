package discord

import (
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"

	"voicelevels/internal/rewards"
)

// fallbackChannelNames are probed in order when no level-up channel is
// configured for a guild.
var fallbackChannelNames = []string{"general", "level", "chat", "bot", "announce"}

// sessionGateway adapts a discordgo session (and its state cache) to
// the slice of Discord the rewards engine needs.
type sessionGateway struct {
	session *discordgo.Session
}

func (g *sessionGateway) MemberState(guildID, userID string) (rewards.MemberState, error) {
	guild, err := g.session.State.Guild(guildID)
	if err != nil {
		return rewards.MemberState{}, fmt.Errorf("failed to get guild %s: %w", guildID, err)
	}

	var st rewards.MemberState
	st.AFKChannelID = guild.AfkChannelID

	var voice *discordgo.VoiceState
	for _, vs := range guild.VoiceStates {
		if vs.UserID == userID {
			voice = vs
			break
		}
	}
	if voice == nil || voice.ChannelID == "" {
		return st, nil
	}

	st.Connected = true
	st.ChannelID = voice.ChannelID
	st.Muted = voice.SelfMute || voice.Mute
	st.Deafened = voice.SelfDeaf || voice.Deaf

	for _, vs := range guild.VoiceStates {
		if vs.ChannelID != voice.ChannelID {
			continue
		}
		if member, err := g.session.State.Member(guildID, vs.UserID); err == nil && member.User != nil && member.User.Bot {
			continue
		}
		st.ChannelMembers++
	}

	return st, nil
}

func (g *sessionGateway) MemberDisplayName(guildID, userID string) string {
	member, err := g.session.State.Member(guildID, userID)
	if err != nil {
		member, err = g.session.GuildMember(guildID, userID)
		if err != nil {
			return ""
		}
	}
	if member.Nick != "" {
		return member.Nick
	}
	if member.User != nil {
		return member.User.Username
	}
	return ""
}

func (g *sessionGateway) MemberRoleIDs(guildID, userID string) ([]string, error) {
	member, err := g.session.State.Member(guildID, userID)
	if err != nil {
		member, err = g.session.GuildMember(guildID, userID)
		if err != nil {
			return nil, fmt.Errorf("failed to get member %s: %w", userID, err)
		}
	}
	return member.Roles, nil
}

func (g *sessionGateway) AddMemberRole(guildID, userID, roleID string) error {
	return g.session.GuildMemberRoleAdd(guildID, userID, roleID)
}

func (g *sessionGateway) RemoveMemberRole(guildID, userID, roleID string) error {
	return g.session.GuildMemberRoleRemove(guildID, userID, roleID)
}

// CanManageRole checks the bot's role-management permission and its
// hierarchy position against the target role.
func (g *sessionGateway) CanManageRole(guildID, roleID string) (string, error) {
	guild, err := g.session.State.Guild(guildID)
	if err != nil {
		return "", fmt.Errorf("failed to get guild %s: %w", guildID, err)
	}

	rolesByID := make(map[string]*discordgo.Role, len(guild.Roles))
	for _, role := range guild.Roles {
		rolesByID[role.ID] = role
	}

	target, ok := rolesByID[roleID]
	if !ok {
		return "role no longer exists", nil
	}

	botID := g.session.State.User.ID
	botMember, err := g.session.State.Member(guildID, botID)
	if err != nil {
		botMember, err = g.session.GuildMember(guildID, botID)
		if err != nil {
			return "", fmt.Errorf("failed to get bot member: %w", err)
		}
	}

	var hasManageRoles bool
	topPosition := -1
	for _, id := range botMember.Roles {
		role, ok := rolesByID[id]
		if !ok {
			continue
		}
		if role.Permissions&(discordgo.PermissionManageRoles|discordgo.PermissionAdministrator) != 0 {
			hasManageRoles = true
		}
		if role.Position > topPosition {
			topPosition = role.Position
		}
	}

	if guild.OwnerID == botID {
		return "", nil
	}
	if !hasManageRoles {
		return "bot lacks the Manage Roles permission", nil
	}
	if target.Position >= topPosition {
		return "role sits above the bot's highest role", nil
	}
	return "", nil
}

func (g *sessionGateway) SendMessage(channelID, content string) error {
	_, err := g.session.ChannelMessageSend(channelID, content)
	return err
}

func (g *sessionGateway) FallbackChannel(guildID string) string {
	guild, err := g.session.State.Guild(guildID)
	if err != nil {
		return ""
	}
	for _, needle := range fallbackChannelNames {
		for _, channel := range guild.Channels {
			if channel.Type != discordgo.ChannelTypeGuildText {
				continue
			}
			if strings.Contains(strings.ToLower(channel.Name), needle) {
				return channel.ID
			}
		}
	}
	return ""
}
