package database

import (
	"database/sql"
	"fmt"
	"log"

	_ "github.com/lib/pq"
)

// DB wraps the database connection
type DB struct {
	conn *sql.DB
}

// New creates a new database connection
func New(dsn string) (*DB, error) {
	conn, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := conn.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db := &DB{conn: conn}

	// Initialize tables and run migrations
	if err := db.createTables(); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	if err := db.migrateSchema(); err != nil {
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}

	return db, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.conn.Close()
}

// GetConnection returns the underlying database connection
func (db *DB) GetConnection() *sql.DB {
	return db.conn
}

// createTables creates the necessary tables
func (db *DB) createTables() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS users (
			user_id TEXT NOT NULL,
			guild_id TEXT NOT NULL,
			display_name TEXT NOT NULL DEFAULT '',
			total_xp BIGINT NOT NULL DEFAULT 0,
			coins BIGINT NOT NULL DEFAULT 0,
			voice_time_minutes BIGINT NOT NULL DEFAULT 0,
			last_active TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			last_daily TIMESTAMPTZ,
			PRIMARY KEY (user_id, guild_id)
		)`,
		`CREATE TABLE IF NOT EXISTS guild_settings (
			guild_id TEXT PRIMARY KEY,
			xp_per_minute BIGINT NOT NULL DEFAULT 10,
			coins_per_minute BIGINT NOT NULL DEFAULT 5,
			xp_interval_minutes BIGINT NOT NULL DEFAULT 1,
			coin_interval_minutes BIGINT NOT NULL DEFAULT 1,
			min_members_required INTEGER NOT NULL DEFAULT 1,
			muted_users_earn BOOLEAN NOT NULL DEFAULT FALSE,
			deafened_users_earn BOOLEAN NOT NULL DEFAULT FALSE,
			exclude_afk_channel BOOLEAN NOT NULL DEFAULT TRUE,
			level_up_channel_id TEXT NOT NULL DEFAULT '',
			welcome_channel_id TEXT NOT NULL DEFAULT '',
			announcement_channel_id TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE TABLE IF NOT EXISTS level_roles (
			guild_id TEXT NOT NULL,
			level BIGINT NOT NULL,
			role_id TEXT NOT NULL,
			PRIMARY KEY (guild_id, level)
		)`,
		`CREATE TABLE IF NOT EXISTS reward_ranges (
			id SERIAL PRIMARY KEY,
			guild_id TEXT NOT NULL,
			reward_type TEXT NOT NULL,
			min_amount BIGINT NOT NULL,
			max_amount BIGINT NOT NULL,
			duration_minutes BIGINT NOT NULL DEFAULT 1,
			active BOOLEAN NOT NULL DEFAULT TRUE
		)`,
		`CREATE TABLE IF NOT EXISTS voice_sessions (
			id SERIAL PRIMARY KEY,
			user_id TEXT NOT NULL,
			guild_id TEXT NOT NULL,
			channel_id TEXT NOT NULL,
			joined_at TIMESTAMPTZ NOT NULL,
			left_at TIMESTAMPTZ,
			duration_minutes BIGINT NOT NULL DEFAULT 0,
			xp_earned BIGINT NOT NULL DEFAULT 0,
			coins_earned BIGINT NOT NULL DEFAULT 0,
			was_muted BOOLEAN NOT NULL DEFAULT FALSE,
			was_deafened BOOLEAN NOT NULL DEFAULT FALSE
		)`,
	}

	for _, query := range queries {
		if _, err := db.conn.Exec(query); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}

	return nil
}

// migrateSchema handles database schema migrations
func (db *DB) migrateSchema() error {
	migrations := []string{
		// Columns added after the first release
		`ALTER TABLE users ADD COLUMN IF NOT EXISTS last_daily TIMESTAMPTZ`,
		`ALTER TABLE users ADD COLUMN IF NOT EXISTS display_name TEXT NOT NULL DEFAULT ''`,
		`ALTER TABLE guild_settings ADD COLUMN IF NOT EXISTS exclude_afk_channel BOOLEAN NOT NULL DEFAULT TRUE`,
		`ALTER TABLE guild_settings ADD COLUMN IF NOT EXISTS level_up_channel_id TEXT NOT NULL DEFAULT ''`,
		`ALTER TABLE guild_settings ADD COLUMN IF NOT EXISTS welcome_channel_id TEXT NOT NULL DEFAULT ''`,
		`ALTER TABLE guild_settings ADD COLUMN IF NOT EXISTS announcement_channel_id TEXT NOT NULL DEFAULT ''`,
		`ALTER TABLE reward_ranges ADD COLUMN IF NOT EXISTS duration_minutes BIGINT NOT NULL DEFAULT 1`,
		`ALTER TABLE reward_ranges ADD COLUMN IF NOT EXISTS active BOOLEAN NOT NULL DEFAULT TRUE`,
		`ALTER TABLE voice_sessions ADD COLUMN IF NOT EXISTS was_muted BOOLEAN NOT NULL DEFAULT FALSE`,
		`ALTER TABLE voice_sessions ADD COLUMN IF NOT EXISTS was_deafened BOOLEAN NOT NULL DEFAULT FALSE`,

		// Migrate from the old voice_hours table if it is still around
		`INSERT INTO users (user_id, guild_id, voice_time_minutes)
		SELECT user_id, guild_id, total_seconds / 60 FROM voice_hours
		ON CONFLICT (user_id, guild_id) DO UPDATE SET voice_time_minutes = GREATEST(users.voice_time_minutes, EXCLUDED.voice_time_minutes)`,
		`DROP TABLE IF EXISTS voice_hours`,
	}

	for _, migration := range migrations {
		if _, err := db.conn.Exec(migration); err != nil {
			log.Printf("Warning: Migration failed (this might be expected): %v", err)
		}
	}

	return nil
}
