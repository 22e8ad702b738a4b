package database

import (
	"database/sql"
	"fmt"
	"log"
	"time"

	"voicelevels/internal/models"
)

// Repository handles database operations
type Repository struct {
	db *DB
}

// NewRepository creates a new repository
func NewRepository(db *DB) *Repository {
	return &Repository{db: db}
}

// GetUser returns a user's stats row, or nil if the user has none yet.
func (r *Repository) GetUser(userID, guildID string) (*models.UserStats, error) {
	var stats models.UserStats
	err := r.db.conn.QueryRow(`
		SELECT user_id, guild_id, display_name, total_xp, coins, voice_time_minutes, last_active
		FROM users WHERE user_id = $1 AND guild_id = $2`,
		userID, guildID).Scan(
		&stats.UserID, &stats.GuildID, &stats.DisplayName,
		&stats.TotalXP, &stats.Coins, &stats.VoiceMinutes, &stats.LastActive)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &stats, nil
}

// EnsureUser creates the stats row with zero totals if it is absent and
// refreshes the display name.
func (r *Repository) EnsureUser(userID, guildID, displayName string) error {
	_, err := r.db.conn.Exec(`
		INSERT INTO users (user_id, guild_id, display_name)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, guild_id) DO UPDATE SET display_name = EXCLUDED.display_name`,
		userID, guildID, displayName)
	if err != nil {
		return fmt.Errorf("failed to ensure user: %w", err)
	}
	return nil
}

// AddRewards applies XP/coin/voice-minute increments atomically and
// returns the updated row. Callers derive the pre-award XP by
// subtracting the increment from the returned total.
func (r *Repository) AddRewards(userID, guildID string, xp, coins, voiceMinutes int64) (*models.UserStats, error) {
	var stats models.UserStats
	err := r.db.conn.QueryRow(`
		INSERT INTO users (user_id, guild_id, total_xp, coins, voice_time_minutes, last_active)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (user_id, guild_id) DO UPDATE SET
			total_xp = users.total_xp + EXCLUDED.total_xp,
			coins = users.coins + EXCLUDED.coins,
			voice_time_minutes = users.voice_time_minutes + EXCLUDED.voice_time_minutes,
			last_active = NOW()
		RETURNING user_id, guild_id, display_name, total_xp, coins, voice_time_minutes, last_active`,
		userID, guildID, xp, coins, voiceMinutes).Scan(
		&stats.UserID, &stats.GuildID, &stats.DisplayName,
		&stats.TotalXP, &stats.Coins, &stats.VoiceMinutes, &stats.LastActive)
	if err != nil {
		return nil, fmt.Errorf("failed to add rewards: %w", err)
	}
	return &stats, nil
}

// TakeXP removes up to amount XP, clamping the total at zero. It
// returns the amount actually removed and the updated row.
func (r *Repository) TakeXP(userID, guildID string, amount int64) (int64, *models.UserStats, error) {
	return r.take(userID, guildID, amount, "total_xp")
}

// TakeCoins removes up to amount coins, clamping the balance at zero.
// It returns the amount actually removed and the updated row.
func (r *Repository) TakeCoins(userID, guildID string, amount int64) (int64, *models.UserStats, error) {
	return r.take(userID, guildID, amount, "coins")
}

// clampTake computes the zero-clamped result of removing amount from
// old and how much was actually removed. The SQL in take mirrors the
// newTotal side with GREATEST; the removed report always comes from
// here.
func clampTake(old, amount int64) (newTotal, removed int64) {
	if amount < 0 {
		amount = 0
	}
	removed = amount
	if removed > old {
		removed = old
	}
	return old - removed, removed
}

func (r *Repository) take(userID, guildID string, amount int64, column string) (int64, *models.UserStats, error) {
	var oldValue int64
	var stats models.UserStats
	// The CTE captures the pre-update value so the removed amount can
	// be reported without a second round trip.
	query := fmt.Sprintf(`
		WITH old AS (
			SELECT total_xp, coins FROM users WHERE user_id = $2 AND guild_id = $3
		)
		UPDATE users SET %s = GREATEST(users.%s - $1, 0)
		FROM old
		WHERE users.user_id = $2 AND users.guild_id = $3
		RETURNING old.%s,
			users.user_id, users.guild_id, users.display_name,
			users.total_xp, users.coins, users.voice_time_minutes, users.last_active`,
		column, column, column)
	err := r.db.conn.QueryRow(query, amount, userID, guildID).Scan(
		&oldValue,
		&stats.UserID, &stats.GuildID, &stats.DisplayName,
		&stats.TotalXP, &stats.Coins, &stats.VoiceMinutes, &stats.LastActive)
	if err == sql.ErrNoRows {
		return 0, nil, nil
	}
	if err != nil {
		return 0, nil, fmt.Errorf("failed to take %s: %w", column, err)
	}
	_, removed := clampTake(oldValue, amount)
	return removed, &stats, nil
}

// SpendCoins deducts amount only if the balance covers it. It reports
// whether the deduction happened.
func (r *Repository) SpendCoins(userID, guildID string, amount int64) (bool, error) {
	res, err := r.db.conn.Exec(`
		UPDATE users SET coins = coins - $1
		WHERE user_id = $2 AND guild_id = $3 AND coins >= $1`,
		amount, userID, guildID)
	if err != nil {
		return false, fmt.Errorf("failed to spend coins: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to spend coins: %w", err)
	}
	return affected > 0, nil
}

// ClaimDaily grants the daily bonus if the 24h cooldown has elapsed.
// The check and the grant are a single statement, so concurrent claims
// cannot both succeed.
func (r *Repository) ClaimDaily(userID, guildID string, xp, coins int64) (bool, *models.UserStats, error) {
	var stats models.UserStats
	err := r.db.conn.QueryRow(`
		UPDATE users SET
			total_xp = total_xp + $1,
			coins = coins + $2,
			last_daily = NOW(),
			last_active = NOW()
		WHERE user_id = $3 AND guild_id = $4
			AND (last_daily IS NULL OR last_daily <= NOW() - INTERVAL '24 hours')
		RETURNING user_id, guild_id, display_name, total_xp, coins, voice_time_minutes, last_active`,
		xp, coins, userID, guildID).Scan(
		&stats.UserID, &stats.GuildID, &stats.DisplayName,
		&stats.TotalXP, &stats.Coins, &stats.VoiceMinutes, &stats.LastActive)
	if err == sql.ErrNoRows {
		return false, nil, nil
	}
	if err != nil {
		return false, nil, fmt.Errorf("failed to claim daily: %w", err)
	}
	return true, &stats, nil
}

// NextDaily returns when the user may claim the daily bonus again.
func (r *Repository) NextDaily(userID, guildID string) (time.Time, error) {
	var lastDaily sql.NullTime
	err := r.db.conn.QueryRow(
		"SELECT last_daily FROM users WHERE user_id = $1 AND guild_id = $2",
		userID, guildID).Scan(&lastDaily)
	if err != nil && err != sql.ErrNoRows {
		return time.Time{}, fmt.Errorf("failed to get last daily: %w", err)
	}
	if !lastDaily.Valid {
		return time.Time{}, nil
	}
	return lastDaily.Time.Add(24 * time.Hour), nil
}

// GetUserRank returns the user's 1-based rank within the guild for the
// given metric ("xp", "coins" or "voice").
func (r *Repository) GetUserRank(userID, guildID, metric string) (int, error) {
	column, err := metricColumn(metric)
	if err != nil {
		return 0, err
	}
	var rank int
	query := fmt.Sprintf(`
		SELECT COUNT(*) + 1 FROM users
		WHERE guild_id = $1 AND %s > (
			SELECT %s FROM users WHERE user_id = $2 AND guild_id = $1
		)`, column, column)
	err = r.db.conn.QueryRow(query, guildID, userID).Scan(&rank)
	if err != nil {
		return 0, fmt.Errorf("failed to get user rank: %w", err)
	}
	return rank, nil
}

// GetLeaderboard returns the guild's top users by the given metric.
func (r *Repository) GetLeaderboard(guildID, metric string, limit int) ([]models.UserStats, error) {
	column, err := metricColumn(metric)
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf(`
		SELECT user_id, guild_id, display_name, total_xp, coins, voice_time_minutes, last_active
		FROM users WHERE guild_id = $1 ORDER BY %s DESC LIMIT $2`, column)
	rows, err := r.db.conn.Query(query, guildID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get leaderboard: %w", err)
	}
	defer rows.Close()

	var board []models.UserStats
	for rows.Next() {
		var stats models.UserStats
		if err := rows.Scan(
			&stats.UserID, &stats.GuildID, &stats.DisplayName,
			&stats.TotalXP, &stats.Coins, &stats.VoiceMinutes, &stats.LastActive); err != nil {
			log.Printf("Error scanning leaderboard row: %v", err)
			continue
		}
		board = append(board, stats)
	}

	return board, nil
}

func metricColumn(metric string) (string, error) {
	switch metric {
	case "xp":
		return "total_xp", nil
	case "coins":
		return "coins", nil
	case "voice":
		return "voice_time_minutes", nil
	}
	return "", fmt.Errorf("unknown metric %q", metric)
}

// SetLevelRole maps a level boundary to a role for the guild.
func (r *Repository) SetLevelRole(guildID string, level int64, roleID string) error {
	_, err := r.db.conn.Exec(`
		INSERT INTO level_roles (guild_id, level, role_id)
		VALUES ($1, $2, $3)
		ON CONFLICT (guild_id, level) DO UPDATE SET role_id = EXCLUDED.role_id`,
		guildID, level, roleID)
	if err != nil {
		return fmt.Errorf("failed to set level role: %w", err)
	}
	return nil
}

// RemoveLevelRole deletes the mapping for a level, if any.
func (r *Repository) RemoveLevelRole(guildID string, level int64) error {
	_, err := r.db.conn.Exec(
		"DELETE FROM level_roles WHERE guild_id = $1 AND level = $2",
		guildID, level)
	if err != nil {
		return fmt.Errorf("failed to remove level role: %w", err)
	}
	return nil
}

// GetLevelRoles returns every configured level role for the guild.
func (r *Repository) GetLevelRoles(guildID string) ([]models.LevelRole, error) {
	rows, err := r.db.conn.Query(
		"SELECT guild_id, level, role_id FROM level_roles WHERE guild_id = $1 ORDER BY level",
		guildID)
	if err != nil {
		return nil, fmt.Errorf("failed to get level roles: %w", err)
	}
	defer rows.Close()

	var roles []models.LevelRole
	for rows.Next() {
		var role models.LevelRole
		if err := rows.Scan(&role.GuildID, &role.Level, &role.RoleID); err != nil {
			log.Printf("Error scanning level role row: %v", err)
			continue
		}
		roles = append(roles, role)
	}

	return roles, nil
}

// GetLevelRole returns the mapping for the exact level, or nil.
func (r *Repository) GetLevelRole(guildID string, level int64) (*models.LevelRole, error) {
	var role models.LevelRole
	err := r.db.conn.QueryRow(
		"SELECT guild_id, level, role_id FROM level_roles WHERE guild_id = $1 AND level = $2",
		guildID, level).Scan(&role.GuildID, &role.Level, &role.RoleID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get level role: %w", err)
	}
	return &role, nil
}

// AddRewardRange configures a random-draw override for one currency.
func (r *Repository) AddRewardRange(guildID, rewardType string, minAmount, maxAmount, durationMinutes int64) (int64, error) {
	var id int64
	err := r.db.conn.QueryRow(`
		INSERT INTO reward_ranges (guild_id, reward_type, min_amount, max_amount, duration_minutes)
		VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		guildID, rewardType, minAmount, maxAmount, durationMinutes).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to add reward range: %w", err)
	}
	return id, nil
}

// RemoveRewardRange deactivates a reward range by id.
func (r *Repository) RemoveRewardRange(guildID string, id int64) error {
	_, err := r.db.conn.Exec(
		"UPDATE reward_ranges SET active = FALSE WHERE guild_id = $1 AND id = $2",
		guildID, id)
	if err != nil {
		return fmt.Errorf("failed to remove reward range: %w", err)
	}
	return nil
}

// GetActiveRewardRanges returns the guild's active reward ranges.
func (r *Repository) GetActiveRewardRanges(guildID string) ([]models.RewardRange, error) {
	rows, err := r.db.conn.Query(`
		SELECT id, guild_id, reward_type, min_amount, max_amount, duration_minutes
		FROM reward_ranges WHERE guild_id = $1 AND active = TRUE ORDER BY id`,
		guildID)
	if err != nil {
		return nil, fmt.Errorf("failed to get reward ranges: %w", err)
	}
	defer rows.Close()

	var ranges []models.RewardRange
	for rows.Next() {
		var rr models.RewardRange
		if err := rows.Scan(&rr.ID, &rr.GuildID, &rr.RewardType,
			&rr.MinAmount, &rr.MaxAmount, &rr.DurationMinutes); err != nil {
			log.Printf("Error scanning reward range row: %v", err)
			continue
		}
		ranges = append(ranges, rr)
	}

	return ranges, nil
}

// StartVoiceSession writes the history row for a fresh session and
// returns its id.
func (r *Repository) StartVoiceSession(userID, guildID, channelID string, joinedAt time.Time) (int64, error) {
	var id int64
	err := r.db.conn.QueryRow(`
		INSERT INTO voice_sessions (user_id, guild_id, channel_id, joined_at)
		VALUES ($1, $2, $3, $4) RETURNING id`,
		userID, guildID, channelID, joinedAt).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to start voice session: %w", err)
	}
	return id, nil
}

// EndVoiceSession finalizes the history row with duration and earnings.
func (r *Repository) EndVoiceSession(sessionID int64, leftAt time.Time, durationMinutes, xpEarned, coinsEarned int64) error {
	_, err := r.db.conn.Exec(`
		UPDATE voice_sessions SET
			left_at = $1,
			duration_minutes = $2,
			xp_earned = xp_earned + $3,
			coins_earned = coins_earned + $4
		WHERE id = $5`,
		leftAt, durationMinutes, xpEarned, coinsEarned, sessionID)
	if err != nil {
		return fmt.Errorf("failed to end voice session: %w", err)
	}
	return nil
}

// AddSessionEarnings accumulates sweeper grants onto the history row.
func (r *Repository) AddSessionEarnings(sessionID int64, xpEarned, coinsEarned int64) error {
	_, err := r.db.conn.Exec(`
		UPDATE voice_sessions SET
			xp_earned = xp_earned + $1,
			coins_earned = coins_earned + $2
		WHERE id = $3`,
		xpEarned, coinsEarned, sessionID)
	if err != nil {
		return fmt.Errorf("failed to add session earnings: %w", err)
	}
	return nil
}

// UpdateSessionMuteStatus records the latest mute/deafen flags for
// audit purposes.
func (r *Repository) UpdateSessionMuteStatus(sessionID int64, muted, deafened bool) error {
	_, err := r.db.conn.Exec(
		"UPDATE voice_sessions SET was_muted = $1, was_deafened = $2 WHERE id = $3",
		muted, deafened, sessionID)
	if err != nil {
		return fmt.Errorf("failed to update session mute status: %w", err)
	}
	return nil
}
