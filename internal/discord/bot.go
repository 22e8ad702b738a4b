package discord

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"voicelevels/internal/database"
	"voicelevels/internal/rewards"
)

// Bot represents the Discord bot
type Bot struct {
	session    *discordgo.Session
	repository *database.Repository
	settings   *database.SettingsStore
	tracker    *rewards.Tracker
	sweeper    *rewards.Sweeper
	reconciler *rewards.Reconciler
	prefix     string
	music      *musicManager
}

// New creates a new Discord bot
func New(token, prefix string, sweepInterval time.Duration, repository *database.Repository, settings *database.SettingsStore) (*Bot, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("failed to create Discord session: %w", err)
	}

	session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMembers |
		discordgo.IntentsGuildVoiceStates |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsMessageContent

	bot := &Bot{
		session:    session,
		repository: repository,
		settings:   settings,
		prefix:     prefix,
		music:      newMusicManager(),
	}

	gateway := &sessionGateway{session: session}
	bot.reconciler = rewards.NewReconciler(repository, settings, gateway)
	bot.tracker = rewards.NewTracker(repository, settings, bot.reconciler)
	bot.sweeper = rewards.NewSweeper(bot.tracker, repository, settings, gateway, bot.reconciler, sweepInterval)

	// Add event handlers
	session.AddHandler(bot.voiceStateUpdate)
	session.AddHandler(bot.messageCreate)
	session.AddHandler(bot.guildMemberAdd)

	return bot, nil
}

// Start starts the bot and the reward sweeper
func (b *Bot) Start() error {
	if err := b.session.Open(); err != nil {
		return fmt.Errorf("failed to open Discord connection: %w", err)
	}

	go b.sweeper.Start()

	fmt.Println("✅ Bot is running...")
	return nil
}

// Stop stops the bot
func (b *Bot) Stop() error {
	b.sweeper.Stop()
	return b.session.Close()
}

// voiceStateUpdate routes gateway voice transitions into the tracker.
// A channel switch is delivered as a leave followed by a join.
func (b *Bot) voiceStateUpdate(s *discordgo.Session, vs *discordgo.VoiceStateUpdate) {
	if b.isBotUser(vs.GuildID, vs.UserID, vs.Member) {
		return
	}

	muted := vs.SelfMute || vs.Mute
	deafened := vs.SelfDeaf || vs.Deaf

	var beforeChannel string
	if vs.BeforeUpdate != nil {
		beforeChannel = vs.BeforeUpdate.ChannelID
	}

	switch {
	case beforeChannel == "" && vs.ChannelID != "":
		b.handleJoin(s, vs, muted, deafened)
	case beforeChannel != "" && vs.ChannelID == "":
		if err := b.tracker.HandleVoiceLeave(vs.UserID, vs.GuildID); err != nil {
			log.Printf("Error handling voice leave for %s/%s: %v", vs.GuildID, vs.UserID, err)
		}
	case beforeChannel != "" && beforeChannel != vs.ChannelID:
		if err := b.tracker.HandleVoiceLeave(vs.UserID, vs.GuildID); err != nil {
			log.Printf("Error handling voice leave for %s/%s: %v", vs.GuildID, vs.UserID, err)
		}
		b.handleJoin(s, vs, muted, deafened)
	default:
		if err := b.tracker.HandleVoiceUpdate(vs.UserID, vs.GuildID, muted, deafened); err != nil {
			log.Printf("Error handling voice update for %s/%s: %v", vs.GuildID, vs.UserID, err)
		}
	}
}

func (b *Bot) handleJoin(s *discordgo.Session, vs *discordgo.VoiceStateUpdate, muted, deafened bool) {
	var afkChannelID string
	if guild, err := s.State.Guild(vs.GuildID); err == nil {
		afkChannelID = guild.AfkChannelID
	}

	displayName := b.displayName(vs.GuildID, vs.UserID, vs.Member)
	err := b.tracker.HandleVoiceJoin(vs.UserID, vs.GuildID, vs.ChannelID, afkChannelID, displayName, muted, deafened)
	if err != nil {
		log.Printf("Error handling voice join for %s/%s: %v", vs.GuildID, vs.UserID, err)
	}
}

// guildMemberAdd greets new members in the configured welcome channel.
func (b *Bot) guildMemberAdd(s *discordgo.Session, m *discordgo.GuildMemberAdd) {
	if m.User == nil || m.User.Bot {
		return
	}

	settings, err := b.settings.GuildSettings(m.GuildID)
	if err != nil {
		log.Printf("Error loading settings for welcome: %v", err)
		return
	}
	if settings.WelcomeChannelID == "" {
		return
	}

	if _, err := s.ChannelMessageSend(settings.WelcomeChannelID,
		fmt.Sprintf("👋 Welcome <@%s>! Hop into a voice channel to start earning XP and coins.", m.User.ID)); err != nil {
		log.Printf("Error sending welcome message: %v", err)
	}
}

// messageCreate handles message creation events
func (b *Bot) messageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author.Bot || m.GuildID == "" {
		return
	}

	content := strings.TrimSpace(m.Content)

	// Music is driven by mentioning the bot, everything else by prefix.
	if b.isBotMention(content) {
		b.handleMusicCommand(s, m)
		return
	}

	if !strings.HasPrefix(content, b.prefix) {
		return
	}

	args := strings.Fields(strings.TrimPrefix(content, b.prefix))
	if len(args) == 0 {
		return
	}

	switch strings.ToLower(args[0]) {
	case "rank", "stats":
		b.handleRankCommand(s, m, args)
	case "leaderboard", "top":
		b.handleLeaderboardCommand(s, m, args)
	case "voicetime":
		b.handleVoiceTimeCommand(s, m)
	case "daily":
		b.handleDailyCommand(s, m)
	case "flip":
		b.handleFlipCommand(s, m, args)
	case "give":
		b.handleGiveCommand(s, m, args)
	case "take":
		b.handleTakeCommand(s, m, args)
	case "setlevelrole":
		b.handleSetLevelRoleCommand(s, m, args)
	case "removelevelrole":
		b.handleRemoveLevelRoleCommand(s, m, args)
	case "levelroles":
		b.handleLevelRolesCommand(s, m)
	case "rewardrange":
		b.handleRewardRangeCommand(s, m, args)
	case "voicesettings":
		b.handleVoiceSettingsCommand(s, m, args)
	case "help":
		b.handleHelpCommand(s, m)
	}
}

func (b *Bot) isBotMention(content string) bool {
	if b.session.State.User == nil {
		return false
	}
	botID := b.session.State.User.ID
	return strings.HasPrefix(content, "<@"+botID+">") || strings.HasPrefix(content, "<@!"+botID+">")
}

func (b *Bot) isBotUser(guildID, userID string, member *discordgo.Member) bool {
	if member != nil && member.User != nil {
		return member.User.Bot
	}
	if m, err := b.session.State.Member(guildID, userID); err == nil && m.User != nil {
		return m.User.Bot
	}
	return false
}

func (b *Bot) displayName(guildID, userID string, member *discordgo.Member) string {
	if member == nil {
		if m, err := b.session.State.Member(guildID, userID); err == nil {
			member = m
		}
	}
	if member == nil {
		return ""
	}
	if member.Nick != "" {
		return member.Nick
	}
	if member.User != nil {
		return member.User.Username
	}
	return ""
}

// isAdmin reports whether the author can use administrative commands.
func (b *Bot) isAdmin(s *discordgo.Session, m *discordgo.MessageCreate) bool {
	perms, err := s.State.MessagePermissions(m.Message)
	if err != nil {
		perms, err = s.UserChannelPermissions(m.Author.ID, m.ChannelID)
		if err != nil {
			log.Printf("Error checking permissions for %s: %v", m.Author.ID, err)
			return false
		}
	}
	return perms&(discordgo.PermissionAdministrator|discordgo.PermissionManageGuild) != 0
}
