package models

import "time"

// XPPerLevel is the amount of XP between level boundaries.
const XPPerLevel = 100

// LevelFromXP derives a level from a raw XP total. Levels are never
// stored; every subsystem that touches XP goes through this.
func LevelFromXP(xp int64) int64 {
	if xp < 0 {
		return 0
	}
	return xp / XPPerLevel
}

// XPToNextLevel returns how much XP is missing until the next boundary.
func XPToNextLevel(xp int64) int64 {
	if xp < 0 {
		xp = 0
	}
	return XPPerLevel - xp%XPPerLevel
}

// VoiceSession represents a user's active voice channel session.
// Sessions are ephemeral; they live in the tracker's map and are
// mirrored to the voice_sessions history table.
type VoiceSession struct {
	SessionID      int64
	UserID         string
	GuildID        string
	ChannelID      string
	JoinedAt       time.Time
	Muted          bool
	Deafened       bool
	LastXPReward   time.Time
	LastCoinReward time.Time
}

// UserStats represents a user's durable totals within a guild.
type UserStats struct {
	UserID       string
	GuildID      string
	DisplayName  string
	TotalXP      int64
	Coins        int64
	VoiceMinutes int64
	LastActive   time.Time
}

// Level returns the level derived from the current XP total.
func (u *UserStats) Level() int64 {
	return LevelFromXP(u.TotalXP)
}

// GuildSettings holds per-guild reward configuration. Defaults are
// resolved by the settings store when no row exists.
type GuildSettings struct {
	GuildID             string
	XPPerMinute         int64
	CoinsPerMinute      int64
	XPIntervalMinutes   int64
	CoinIntervalMinutes int64
	MinMembersRequired  int
	MutedUsersEarn      bool
	DeafenedUsersEarn   bool
	ExcludeAFKChannel   bool
	LevelUpChannelID    string
	WelcomeChannelID    string
	AnnounceChannelID   string
}

// DefaultGuildSettings are the values used for guilds that never
// configured anything.
func DefaultGuildSettings(guildID string) GuildSettings {
	return GuildSettings{
		GuildID:             guildID,
		XPPerMinute:         10,
		CoinsPerMinute:      5,
		XPIntervalMinutes:   1,
		CoinIntervalMinutes: 1,
		MinMembersRequired:  1,
		MutedUsersEarn:      false,
		DeafenedUsersEarn:   false,
		ExcludeAFKChannel:   true,
	}
}

// LevelRole maps a level boundary to the Discord role granted for it.
type LevelRole struct {
	GuildID string
	Level   int64
	RoleID  string
}

// Reward range currencies.
const (
	RewardTypeXP   = "xp"
	RewardTypeCoin = "coin"
)

// RewardRange is a per-guild random-draw override replacing the flat
// per-minute rate for one currency.
type RewardRange struct {
	ID              int64
	GuildID         string
	RewardType      string
	MinAmount       int64
	MaxAmount       int64
	DurationMinutes int64
}
