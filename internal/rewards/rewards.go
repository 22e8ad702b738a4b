// Package rewards implements the voice-activity reward engine: the
// in-memory session tracker, the periodic reward sweeper and the
// level-up reconciler. It talks to Discord and to the database through
// small interfaces so each piece can be exercised in isolation.
package rewards

import (
	"math/rand"
	"time"

	"voicelevels/internal/models"
)

// Ledger is the durable per-(user, guild) store the engine reads and
// writes. *database.Repository satisfies it.
type Ledger interface {
	GetUser(userID, guildID string) (*models.UserStats, error)
	EnsureUser(userID, guildID, displayName string) error
	AddRewards(userID, guildID string, xp, coins, voiceMinutes int64) (*models.UserStats, error)
	GetUserRank(userID, guildID, metric string) (int, error)
	GetLevelRoles(guildID string) ([]models.LevelRole, error)
	GetLevelRole(guildID string, level int64) (*models.LevelRole, error)
	GetActiveRewardRanges(guildID string) ([]models.RewardRange, error)
	StartVoiceSession(userID, guildID, channelID string, joinedAt time.Time) (int64, error)
	EndVoiceSession(sessionID int64, leftAt time.Time, durationMinutes, xpEarned, coinsEarned int64) error
	AddSessionEarnings(sessionID int64, xpEarned, coinsEarned int64) error
	UpdateSessionMuteStatus(sessionID int64, muted, deafened bool) error
}

// Settings resolves per-guild configuration with defaults applied.
// *database.SettingsStore satisfies it.
type Settings interface {
	GuildSettings(guildID string) (models.GuildSettings, error)
}

// MemberState is a snapshot of a member's live voice presence, taken
// from the gateway cache at evaluation time.
type MemberState struct {
	Connected      bool
	ChannelID      string
	Muted          bool
	Deafened       bool
	ChannelMembers int // non-bot members in the member's channel
	AFKChannelID   string
}

// Gateway is the slice of Discord the engine needs: presence lookups,
// role management and message delivery.
type Gateway interface {
	MemberState(guildID, userID string) (MemberState, error)
	MemberDisplayName(guildID, userID string) string
	MemberRoleIDs(guildID, userID string) ([]string, error)
	AddMemberRole(guildID, userID, roleID string) error
	RemoveMemberRole(guildID, userID, roleID string) error
	// CanManageRole returns a non-empty reason when the bot must not
	// touch the role (missing permission or hierarchy violation).
	CanManageRole(guildID, roleID string) (reason string, err error)
	SendMessage(channelID, content string) error
	// FallbackChannel picks an announcement channel by name heuristic
	// when none is configured; empty means no candidate.
	FallbackChannel(guildID string) string
}

// LevelNotifier is invoked whenever an XP change crosses a level
// boundary. *Reconciler is the only implementation outside tests.
type LevelNotifier interface {
	HandleLevelUp(guildID, userID string, newLevel int64)
}

// Eligible reports whether a member earns rewards this tick. The
// predicate is pure and keeps no memory of prior ticks.
func Eligible(st MemberState, settings models.GuildSettings) bool {
	if !st.Connected {
		return false
	}
	if settings.ExcludeAFKChannel && st.AFKChannelID != "" && st.ChannelID == st.AFKChannelID {
		return false
	}
	if st.Muted && !settings.MutedUsersEarn {
		return false
	}
	if st.Deafened && !settings.DeafenedUsersEarn {
		return false
	}
	if st.ChannelMembers < settings.MinMembersRequired {
		return false
	}
	return true
}

// drawAmount picks the grant for one currency: a uniform draw from the
// first matching active range, else the flat rate times the interval.
func drawAmount(ranges []models.RewardRange, rewardType string, rate, intervalMinutes int64) int64 {
	for _, rr := range ranges {
		if rr.RewardType != rewardType {
			continue
		}
		if rr.MaxAmount <= rr.MinAmount {
			return rr.MinAmount
		}
		return rr.MinAmount + rand.Int63n(rr.MaxAmount-rr.MinAmount+1)
	}
	return rate * intervalMinutes
}
