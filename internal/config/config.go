package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for our application
type Config struct {
	DiscordToken  string
	DatabaseDSN   string
	CommandPrefix string
	SweepInterval time.Duration
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		// .env file is optional, continue with environment variables
	}

	config := &Config{
		DiscordToken:  os.Getenv("DISCORD_TOKEN"),
		DatabaseDSN:   os.Getenv("DATABASE_DSN"),
		CommandPrefix: os.Getenv("COMMAND_PREFIX"),
		SweepInterval: 60 * time.Second,
	}

	if config.DiscordToken == "" {
		return nil, &ConfigError{Field: "DISCORD_TOKEN", Message: "DISCORD_TOKEN is required"}
	}

	if config.DatabaseDSN == "" {
		return nil, &ConfigError{Field: "DATABASE_DSN", Message: "DATABASE_DSN is required"}
	}

	if config.CommandPrefix == "" {
		config.CommandPrefix = "!"
	}

	if raw := os.Getenv("SWEEP_INTERVAL_SECONDS"); raw != "" {
		seconds, err := strconv.Atoi(raw)
		if err != nil || seconds <= 0 {
			return nil, &ConfigError{Field: "SWEEP_INTERVAL_SECONDS", Message: "SWEEP_INTERVAL_SECONDS must be a positive integer"}
		}
		config.SweepInterval = time.Duration(seconds) * time.Second
	}

	return config, nil
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return e.Message
}
