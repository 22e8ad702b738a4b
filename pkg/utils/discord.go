package utils

import (
	"fmt"
	"strconv"
	"strings"
)

// FormatUserMention formats a user ID as a Discord mention
func FormatUserMention(userID string) string {
	return fmt.Sprintf("<@%s>", userID)
}

// FormatChannelMention formats a channel ID as a Discord channel mention
func FormatChannelMention(channelID string) string {
	return fmt.Sprintf("<#%s>", channelID)
}

// ParseUserMention extracts the user ID from a mention like <@123> or
// <@!123> and validates it as a snowflake.
func ParseUserMention(mention string) (string, error) {
	if !strings.HasPrefix(mention, "<@") || !strings.HasSuffix(mention, ">") {
		return "", fmt.Errorf("invalid mention format")
	}
	userID := strings.TrimPrefix(strings.TrimSuffix(mention, ">"), "<@")
	userID = strings.TrimPrefix(userID, "!")
	if _, err := strconv.ParseUint(userID, 10, 64); err != nil {
		return "", fmt.Errorf("invalid user ID")
	}
	return userID, nil
}

// ParseRoleMention extracts the role ID from a mention like <@&123>.
// A bare snowflake is accepted as-is.
func ParseRoleMention(mention string) (string, error) {
	roleID := mention
	if strings.HasPrefix(mention, "<@&") && strings.HasSuffix(mention, ">") {
		roleID = mention[3 : len(mention)-1]
	}
	if _, err := strconv.ParseUint(roleID, 10, 64); err != nil {
		return "", fmt.Errorf("invalid role ID")
	}
	return roleID, nil
}

// FormatLeaderboardEntry formats a leaderboard entry with rank, user, and value
func FormatLeaderboardEntry(rank int, userLabel, value string) string {
	medal := ""
	switch rank {
	case 1:
		medal = "🥇"
	case 2:
		medal = "🥈"
	case 3:
		medal = "🥉"
	default:
		medal = fmt.Sprintf("%d.", rank)
	}

	return fmt.Sprintf("%s %s - %s", medal, userLabel, value)
}

// TruncateString truncates a string to max length and adds ellipsis if needed
func TruncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
