package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"voicelevels/internal/config"
	"voicelevels/internal/database"
	"voicelevels/internal/discord"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize database
	db, err := database.New(cfg.DatabaseDSN)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	// Create stores
	repository := database.NewRepository(db)
	settings := database.NewSettingsStore(db)

	// Initialize Discord bot with the reward engine
	bot, err := discord.New(cfg.DiscordToken, cfg.CommandPrefix, cfg.SweepInterval, repository, settings)
	if err != nil {
		log.Fatalf("Failed to create Discord bot: %v", err)
	}

	// Start bot and sweeper
	if err := bot.Start(); err != nil {
		log.Fatalf("Failed to start bot: %v", err)
	}
	defer bot.Stop()

	// Wait for interrupt signal
	sc := make(chan os.Signal, 1)
	signal.Notify(sc, syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	<-sc

	log.Println("Shutting down bot...")
}
