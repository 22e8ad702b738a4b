package database

import (
	"database/sql"
	"fmt"

	"voicelevels/internal/models"
)

// SettingsStore reads and writes per-guild configuration. Defaults are
// applied here, at the boundary, so callers never see missing fields.
type SettingsStore struct {
	db *DB
}

// NewSettingsStore creates a settings store over the shared connection.
func NewSettingsStore(db *DB) *SettingsStore {
	return &SettingsStore{db: db}
}

// GuildSettings returns the guild's settings row, falling back to
// defaults when the guild never configured anything.
func (s *SettingsStore) GuildSettings(guildID string) (models.GuildSettings, error) {
	settings := models.DefaultGuildSettings(guildID)
	err := s.db.conn.QueryRow(`
		SELECT xp_per_minute, coins_per_minute, xp_interval_minutes, coin_interval_minutes,
			min_members_required, muted_users_earn, deafened_users_earn, exclude_afk_channel,
			level_up_channel_id, welcome_channel_id, announcement_channel_id
		FROM guild_settings WHERE guild_id = $1`,
		guildID).Scan(
		&settings.XPPerMinute, &settings.CoinsPerMinute,
		&settings.XPIntervalMinutes, &settings.CoinIntervalMinutes,
		&settings.MinMembersRequired, &settings.MutedUsersEarn,
		&settings.DeafenedUsersEarn, &settings.ExcludeAFKChannel,
		&settings.LevelUpChannelID, &settings.WelcomeChannelID,
		&settings.AnnounceChannelID)
	if err == sql.ErrNoRows {
		return models.DefaultGuildSettings(guildID), nil
	}
	if err != nil {
		return settings, fmt.Errorf("failed to get guild settings: %w", err)
	}

	// Old rows can carry zero intervals; treat those as the default.
	if settings.XPIntervalMinutes <= 0 {
		settings.XPIntervalMinutes = 1
	}
	if settings.CoinIntervalMinutes <= 0 {
		settings.CoinIntervalMinutes = 1
	}

	return settings, nil
}

// UpdateGuildSettings writes the full settings row for the guild.
func (s *SettingsStore) UpdateGuildSettings(settings models.GuildSettings) error {
	_, err := s.db.conn.Exec(`
		INSERT INTO guild_settings (
			guild_id, xp_per_minute, coins_per_minute, xp_interval_minutes, coin_interval_minutes,
			min_members_required, muted_users_earn, deafened_users_earn, exclude_afk_channel,
			level_up_channel_id, welcome_channel_id, announcement_channel_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (guild_id) DO UPDATE SET
			xp_per_minute = EXCLUDED.xp_per_minute,
			coins_per_minute = EXCLUDED.coins_per_minute,
			xp_interval_minutes = EXCLUDED.xp_interval_minutes,
			coin_interval_minutes = EXCLUDED.coin_interval_minutes,
			min_members_required = EXCLUDED.min_members_required,
			muted_users_earn = EXCLUDED.muted_users_earn,
			deafened_users_earn = EXCLUDED.deafened_users_earn,
			exclude_afk_channel = EXCLUDED.exclude_afk_channel,
			level_up_channel_id = EXCLUDED.level_up_channel_id,
			welcome_channel_id = EXCLUDED.welcome_channel_id,
			announcement_channel_id = EXCLUDED.announcement_channel_id`,
		settings.GuildID, settings.XPPerMinute, settings.CoinsPerMinute,
		settings.XPIntervalMinutes, settings.CoinIntervalMinutes,
		settings.MinMembersRequired, settings.MutedUsersEarn,
		settings.DeafenedUsersEarn, settings.ExcludeAFKChannel,
		settings.LevelUpChannelID, settings.WelcomeChannelID,
		settings.AnnounceChannelID)
	if err != nil {
		return fmt.Errorf("failed to update guild settings: %w", err)
	}
	return nil
}
