package discord

import (
	"fmt"
	"log"
	"math/rand"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"voicelevels/internal/models"
	"voicelevels/internal/rewards"
	"voicelevels/pkg/utils"
)

// Daily bonus amounts.
const (
	dailyXP    = 50
	dailyCoins = 100
)

// handleRankCommand renders a user's stats with derived level and ranks.
func (b *Bot) handleRankCommand(s *discordgo.Session, m *discordgo.MessageCreate, args []string) {
	targetID := m.Author.ID
	targetName := m.Author.Username
	if len(args) >= 2 {
		userID, err := utils.ParseUserMention(args[1])
		if err != nil {
			s.ChannelMessageSend(m.ChannelID, "Invalid mention. Please use a proper mention (e.g. @username).")
			return
		}
		targetID = userID
		targetName = b.displayName(m.GuildID, userID, nil)
	}

	profile, err := rewards.BuildProfile(b.repository, targetID, m.GuildID)
	if err != nil {
		log.Printf("Error building profile for %s: %v", targetID, err)
		s.ChannelMessageSend(m.ChannelID, "Something went wrong fetching stats.")
		return
	}
	if profile.DisplayName != "" {
		targetName = profile.DisplayName
	}

	msg := fmt.Sprintf("📊 **%s**\nLevel: **%d** (%d XP, %d to next)\nXP rank: #%d | Coin rank: #%d\nCoins: %d\nVoice time: %s",
		targetName, profile.Level, profile.TotalXP, profile.XPToNextLevel,
		profile.XPRank, profile.CoinRank, profile.Coins,
		utils.FormatMinutes(profile.VoiceMinutes))
	s.ChannelMessageSend(m.ChannelID, msg)
}

// handleLeaderboardCommand renders the guild's top users by metric.
func (b *Bot) handleLeaderboardCommand(s *discordgo.Session, m *discordgo.MessageCreate, args []string) {
	metric := "xp"
	if len(args) >= 2 {
		metric = strings.ToLower(args[1])
	}
	if metric != "xp" && metric != "coins" && metric != "voice" {
		s.ChannelMessageSend(m.ChannelID, "Usage: leaderboard [xp|coins|voice]")
		return
	}

	board, err := b.repository.GetLeaderboard(m.GuildID, metric, 10)
	if err != nil {
		log.Printf("Error getting leaderboard: %v", err)
		s.ChannelMessageSend(m.ChannelID, "Something went wrong fetching the leaderboard.")
		return
	}
	if len(board) == 0 {
		s.ChannelMessageSend(m.ChannelID, "No one has earned anything yet.")
		return
	}

	var lines []string
	for i, stats := range board {
		label := stats.DisplayName
		if label == "" {
			label = utils.FormatUserMention(stats.UserID)
		}
		var value string
		switch metric {
		case "xp":
			value = fmt.Sprintf("level %d (%d XP)", stats.Level(), stats.TotalXP)
		case "coins":
			value = fmt.Sprintf("%d coins", stats.Coins)
		case "voice":
			value = utils.FormatMinutes(stats.VoiceMinutes)
		}
		lines = append(lines, utils.FormatLeaderboardEntry(i+1, label, value))
	}

	s.ChannelMessageSend(m.ChannelID, fmt.Sprintf("🏆 **Leaderboard (%s)**\n%s", metric, strings.Join(lines, "\n")))
}

// handleVoiceTimeCommand shows accumulated voice time plus the live
// session, if one is open.
func (b *Bot) handleVoiceTimeCommand(s *discordgo.Session, m *discordgo.MessageCreate) {
	stats, err := b.repository.GetUser(m.Author.ID, m.GuildID)
	if err != nil {
		log.Printf("Error getting user %s: %v", m.Author.ID, err)
		s.ChannelMessageSend(m.ChannelID, "Something went wrong fetching voice time.")
		return
	}

	var total int64
	if stats != nil {
		total = stats.VoiceMinutes
	}
	msg := fmt.Sprintf("🔊 %s, total voice time: %s", m.Author.Username, utils.FormatMinutes(total))

	if sess, ok := b.tracker.Session(m.Author.ID, m.GuildID); ok {
		minutes := int64(time.Since(sess.JoinedAt).Minutes())
		msg += fmt.Sprintf("\nCurrent session: %s in %s", utils.FormatMinutes(minutes), utils.FormatChannelMention(sess.ChannelID))
	}

	s.ChannelMessageSend(m.ChannelID, msg)
}

// handleDailyCommand grants the 24h bonus once per day. Daily XP goes
// through the same level reconciliation as every other award path.
func (b *Bot) handleDailyCommand(s *discordgo.Session, m *discordgo.MessageCreate) {
	if err := b.repository.EnsureUser(m.Author.ID, m.GuildID, m.Author.Username); err != nil {
		log.Printf("Error ensuring user %s: %v", m.Author.ID, err)
		s.ChannelMessageSend(m.ChannelID, "Something went wrong. Please try again.")
		return
	}

	claimed, stats, err := b.repository.ClaimDaily(m.Author.ID, m.GuildID, dailyXP, dailyCoins)
	if err != nil {
		log.Printf("Error claiming daily for %s: %v", m.Author.ID, err)
		s.ChannelMessageSend(m.ChannelID, "Something went wrong. Please try again.")
		return
	}

	if !claimed {
		next, err := b.repository.NextDaily(m.Author.ID, m.GuildID)
		if err != nil || next.IsZero() {
			s.ChannelMessageSend(m.ChannelID, "Daily bonus already claimed. Try again later.")
			return
		}
		s.ChannelMessageSend(m.ChannelID, fmt.Sprintf("⏳ Daily bonus already claimed. Come back in %s.",
			time.Until(next).Round(time.Minute)))
		return
	}

	s.ChannelMessageSend(m.ChannelID, fmt.Sprintf("🎁 %s claimed the daily bonus: **+%d XP**, **+%d coins**!",
		m.Author.Username, dailyXP, dailyCoins))

	oldLevel := models.LevelFromXP(stats.TotalXP - dailyXP)
	newLevel := models.LevelFromXP(stats.TotalXP)
	if newLevel > oldLevel {
		b.reconciler.HandleLevelUp(m.GuildID, m.Author.ID, newLevel)
	}
}

// handleFlipCommand is a 50/50 coin bet. The stake is deducted up
// front; a win pays back double.
func (b *Bot) handleFlipCommand(s *discordgo.Session, m *discordgo.MessageCreate, args []string) {
	if len(args) < 3 {
		s.ChannelMessageSend(m.ChannelID, "Usage: flip <amount> <heads|tails>")
		return
	}

	amount, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil || amount <= 0 {
		s.ChannelMessageSend(m.ChannelID, "Invalid amount. Please provide a positive number.")
		return
	}

	call := strings.ToLower(args[2])
	if call != "heads" && call != "tails" {
		s.ChannelMessageSend(m.ChannelID, "Usage: flip <amount> <heads|tails>")
		return
	}

	if err := b.repository.EnsureUser(m.Author.ID, m.GuildID, m.Author.Username); err != nil {
		log.Printf("Error ensuring user %s: %v", m.Author.ID, err)
		s.ChannelMessageSend(m.ChannelID, "Something went wrong. Please try again.")
		return
	}

	ok, err := b.repository.SpendCoins(m.Author.ID, m.GuildID, amount)
	if err != nil {
		log.Printf("Error spending coins for %s: %v", m.Author.ID, err)
		s.ChannelMessageSend(m.ChannelID, "Something went wrong. Please try again.")
		return
	}
	if !ok {
		s.ChannelMessageSend(m.ChannelID, "You don't have enough coins for that bet.")
		return
	}

	result := "heads"
	if rand.Intn(2) == 1 {
		result = "tails"
	}

	if result != call {
		s.ChannelMessageSend(m.ChannelID, fmt.Sprintf("🪙 It's **%s** — you lose %d coins.", result, amount))
		return
	}

	if _, err := b.repository.AddRewards(m.Author.ID, m.GuildID, 0, amount*2, 0); err != nil {
		log.Printf("Error paying out flip for %s: %v", m.Author.ID, err)
		s.ChannelMessageSend(m.ChannelID, "Something went wrong paying out. Please contact an admin.")
		return
	}
	s.ChannelMessageSend(m.ChannelID, fmt.Sprintf("🪙 It's **%s** — you win %d coins!", result, amount*2))
}

// handleGiveCommand grants XP or coins to a user (admin only).
func (b *Bot) handleGiveCommand(s *discordgo.Session, m *discordgo.MessageCreate, args []string) {
	if !b.isAdmin(s, m) {
		s.ChannelMessageSend(m.ChannelID, "You are not authorized to use this command.")
		return
	}
	if len(args) < 3 {
		s.ChannelMessageSend(m.ChannelID, "Usage: give <@user> <amount> [xp|coins]")
		return
	}

	targetID, err := utils.ParseUserMention(args[1])
	if err != nil {
		s.ChannelMessageSend(m.ChannelID, "Invalid mention. Please use a proper mention (e.g. @username).")
		return
	}

	amount, err := strconv.ParseInt(args[2], 10, 64)
	if err != nil || amount <= 0 {
		s.ChannelMessageSend(m.ChannelID, "Invalid amount. Please provide a positive number.")
		return
	}

	currency := "coins"
	if len(args) >= 4 {
		currency = strings.ToLower(args[3])
	}
	if currency != "xp" && currency != "coins" {
		s.ChannelMessageSend(m.ChannelID, "Usage: give <@user> <amount> [xp|coins]")
		return
	}

	if err := b.repository.EnsureUser(targetID, m.GuildID, b.displayName(m.GuildID, targetID, nil)); err != nil {
		log.Printf("Error ensuring user %s: %v", targetID, err)
		s.ChannelMessageSend(m.ChannelID, "Something went wrong. Please try again.")
		return
	}

	var xp, coins int64
	if currency == "xp" {
		xp = amount
	} else {
		coins = amount
	}

	stats, err := b.repository.AddRewards(targetID, m.GuildID, xp, coins, 0)
	if err != nil {
		log.Printf("Error giving %s to %s: %v", currency, targetID, err)
		s.ChannelMessageSend(m.ChannelID, "Something went wrong. Please try again.")
		return
	}

	s.ChannelMessageSend(m.ChannelID, fmt.Sprintf("Gave %d %s to %s.", amount, currency, utils.FormatUserMention(targetID)))

	if xp > 0 {
		oldLevel := models.LevelFromXP(stats.TotalXP - xp)
		newLevel := models.LevelFromXP(stats.TotalXP)
		if newLevel > oldLevel {
			b.reconciler.HandleLevelUp(m.GuildID, targetID, newLevel)
		}
	}
}

// handleTakeCommand removes XP or coins from a user, clamping at zero
// and reporting the amount actually removed (admin only).
func (b *Bot) handleTakeCommand(s *discordgo.Session, m *discordgo.MessageCreate, args []string) {
	if !b.isAdmin(s, m) {
		s.ChannelMessageSend(m.ChannelID, "You are not authorized to use this command.")
		return
	}
	if len(args) < 3 {
		s.ChannelMessageSend(m.ChannelID, "Usage: take <@user> <amount> [xp|coins]")
		return
	}

	targetID, err := utils.ParseUserMention(args[1])
	if err != nil {
		s.ChannelMessageSend(m.ChannelID, "Invalid mention. Please use a proper mention (e.g. @username).")
		return
	}

	amount, err := strconv.ParseInt(args[2], 10, 64)
	if err != nil || amount <= 0 {
		s.ChannelMessageSend(m.ChannelID, "Invalid amount. Please provide a positive number.")
		return
	}

	currency := "coins"
	if len(args) >= 4 {
		currency = strings.ToLower(args[3])
	}

	switch currency {
	case "xp":
		removed, stats, err := b.repository.TakeXP(targetID, m.GuildID, amount)
		if err != nil {
			log.Printf("Error taking XP from %s: %v", targetID, err)
			s.ChannelMessageSend(m.ChannelID, "Something went wrong. Please try again.")
			return
		}
		if stats == nil {
			s.ChannelMessageSend(m.ChannelID, "That user has no stats yet.")
			return
		}
		s.ChannelMessageSend(m.ChannelID, fmt.Sprintf("Removed %d XP from %s.", removed, utils.FormatUserMention(targetID)))

		// Level decreases swap the held level role without an
		// announcement.
		oldLevel := models.LevelFromXP(stats.TotalXP + removed)
		newLevel := models.LevelFromXP(stats.TotalXP)
		if newLevel < oldLevel {
			if err := b.reconciler.AssignLevelRole(m.GuildID, targetID, newLevel); err != nil {
				log.Printf("Error reconciling level role for %s: %v", targetID, err)
			}
		}
	case "coins":
		removed, stats, err := b.repository.TakeCoins(targetID, m.GuildID, amount)
		if err != nil {
			log.Printf("Error taking coins from %s: %v", targetID, err)
			s.ChannelMessageSend(m.ChannelID, "Something went wrong. Please try again.")
			return
		}
		if stats == nil {
			s.ChannelMessageSend(m.ChannelID, "That user has no stats yet.")
			return
		}
		s.ChannelMessageSend(m.ChannelID, fmt.Sprintf("Removed %d coins from %s.", removed, utils.FormatUserMention(targetID)))
	default:
		s.ChannelMessageSend(m.ChannelID, "Usage: take <@user> <amount> [xp|coins]")
	}
}

// handleSetLevelRoleCommand maps a level boundary to a role (admin only).
func (b *Bot) handleSetLevelRoleCommand(s *discordgo.Session, m *discordgo.MessageCreate, args []string) {
	if !b.isAdmin(s, m) {
		s.ChannelMessageSend(m.ChannelID, "You are not authorized to use this command.")
		return
	}
	if len(args) < 3 {
		s.ChannelMessageSend(m.ChannelID, "Usage: setlevelrole <level> <@role>")
		return
	}

	level, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil || level <= 0 {
		s.ChannelMessageSend(m.ChannelID, "Invalid level. Please provide a positive number.")
		return
	}

	roleID, err := utils.ParseRoleMention(args[2])
	if err != nil {
		s.ChannelMessageSend(m.ChannelID, "Invalid role mention or ID.")
		return
	}

	if err := b.repository.SetLevelRole(m.GuildID, level, roleID); err != nil {
		log.Printf("Error setting level role: %v", err)
		s.ChannelMessageSend(m.ChannelID, "Something went wrong. Please try again.")
		return
	}
	s.ChannelMessageSend(m.ChannelID, fmt.Sprintf("Level %d now grants <@&%s>.", level, roleID))
}

// handleRemoveLevelRoleCommand deletes a level role mapping (admin only).
func (b *Bot) handleRemoveLevelRoleCommand(s *discordgo.Session, m *discordgo.MessageCreate, args []string) {
	if !b.isAdmin(s, m) {
		s.ChannelMessageSend(m.ChannelID, "You are not authorized to use this command.")
		return
	}
	if len(args) < 2 {
		s.ChannelMessageSend(m.ChannelID, "Usage: removelevelrole <level>")
		return
	}

	level, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil {
		s.ChannelMessageSend(m.ChannelID, "Invalid level.")
		return
	}

	if err := b.repository.RemoveLevelRole(m.GuildID, level); err != nil {
		log.Printf("Error removing level role: %v", err)
		s.ChannelMessageSend(m.ChannelID, "Something went wrong. Please try again.")
		return
	}
	s.ChannelMessageSend(m.ChannelID, fmt.Sprintf("Removed the role mapping for level %d.", level))
}

// handleLevelRolesCommand lists the guild's level role mappings.
func (b *Bot) handleLevelRolesCommand(s *discordgo.Session, m *discordgo.MessageCreate) {
	roles, err := b.repository.GetLevelRoles(m.GuildID)
	if err != nil {
		log.Printf("Error getting level roles: %v", err)
		s.ChannelMessageSend(m.ChannelID, "Something went wrong. Please try again.")
		return
	}
	if len(roles) == 0 {
		s.ChannelMessageSend(m.ChannelID, "No level roles configured.")
		return
	}

	var lines []string
	for _, role := range roles {
		lines = append(lines, fmt.Sprintf("Level %d → <@&%s>", role.Level, role.RoleID))
	}
	s.ChannelMessageSend(m.ChannelID, "🏅 **Level roles**\n"+strings.Join(lines, "\n"))
}

// handleRewardRangeCommand manages random-draw reward overrides.
func (b *Bot) handleRewardRangeCommand(s *discordgo.Session, m *discordgo.MessageCreate, args []string) {
	if len(args) < 2 {
		s.ChannelMessageSend(m.ChannelID, "Usage: rewardrange add <xp|coin> <min> <max> [minutes] | remove <id> | list")
		return
	}

	switch strings.ToLower(args[1]) {
	case "list":
		ranges, err := b.repository.GetActiveRewardRanges(m.GuildID)
		if err != nil {
			log.Printf("Error getting reward ranges: %v", err)
			s.ChannelMessageSend(m.ChannelID, "Something went wrong. Please try again.")
			return
		}
		if len(ranges) == 0 {
			s.ChannelMessageSend(m.ChannelID, "No reward ranges configured; flat per-minute rates apply.")
			return
		}
		var lines []string
		for _, rr := range ranges {
			lines = append(lines, fmt.Sprintf("#%d %s: %d-%d every %dm", rr.ID, rr.RewardType, rr.MinAmount, rr.MaxAmount, rr.DurationMinutes))
		}
		s.ChannelMessageSend(m.ChannelID, "🎲 **Reward ranges**\n"+strings.Join(lines, "\n"))

	case "add":
		if !b.isAdmin(s, m) {
			s.ChannelMessageSend(m.ChannelID, "You are not authorized to use this command.")
			return
		}
		if len(args) < 5 {
			s.ChannelMessageSend(m.ChannelID, "Usage: rewardrange add <xp|coin> <min> <max> [minutes]")
			return
		}
		rewardType := strings.ToLower(args[2])
		if rewardType != models.RewardTypeXP && rewardType != models.RewardTypeCoin {
			s.ChannelMessageSend(m.ChannelID, "Reward type must be xp or coin.")
			return
		}
		minAmount, err1 := strconv.ParseInt(args[3], 10, 64)
		maxAmount, err2 := strconv.ParseInt(args[4], 10, 64)
		if err1 != nil || err2 != nil || minAmount < 0 || maxAmount < minAmount {
			s.ChannelMessageSend(m.ChannelID, "Invalid range. min must be ≥ 0 and max ≥ min.")
			return
		}
		duration := int64(1)
		if len(args) >= 6 {
			duration, err1 = strconv.ParseInt(args[5], 10, 64)
			if err1 != nil || duration <= 0 {
				s.ChannelMessageSend(m.ChannelID, "Invalid duration in minutes.")
				return
			}
		}
		id, err := b.repository.AddRewardRange(m.GuildID, rewardType, minAmount, maxAmount, duration)
		if err != nil {
			log.Printf("Error adding reward range: %v", err)
			s.ChannelMessageSend(m.ChannelID, "Something went wrong. Please try again.")
			return
		}
		s.ChannelMessageSend(m.ChannelID, fmt.Sprintf("Added reward range #%d: %s %d-%d every %dm.", id, rewardType, minAmount, maxAmount, duration))

	case "remove":
		if !b.isAdmin(s, m) {
			s.ChannelMessageSend(m.ChannelID, "You are not authorized to use this command.")
			return
		}
		if len(args) < 3 {
			s.ChannelMessageSend(m.ChannelID, "Usage: rewardrange remove <id>")
			return
		}
		id, err := strconv.ParseInt(args[2], 10, 64)
		if err != nil {
			s.ChannelMessageSend(m.ChannelID, "Invalid range id.")
			return
		}
		if err := b.repository.RemoveRewardRange(m.GuildID, id); err != nil {
			log.Printf("Error removing reward range: %v", err)
			s.ChannelMessageSend(m.ChannelID, "Something went wrong. Please try again.")
			return
		}
		s.ChannelMessageSend(m.ChannelID, fmt.Sprintf("Removed reward range #%d.", id))

	default:
		s.ChannelMessageSend(m.ChannelID, "Usage: rewardrange add <xp|coin> <min> <max> [minutes] | remove <id> | list")
	}
}

// handleVoiceSettingsCommand shows or edits the guild's reward settings.
func (b *Bot) handleVoiceSettingsCommand(s *discordgo.Session, m *discordgo.MessageCreate, args []string) {
	settings, err := b.settings.GuildSettings(m.GuildID)
	if err != nil {
		log.Printf("Error getting guild settings: %v", err)
		s.ChannelMessageSend(m.ChannelID, "Something went wrong. Please try again.")
		return
	}

	if len(args) < 2 || strings.ToLower(args[1]) == "show" {
		msg := fmt.Sprintf("⚙️ **Voice reward settings**\n"+
			"xp_per_minute: %d\ncoins_per_minute: %d\n"+
			"xp_interval_minutes: %d\ncoin_interval_minutes: %d\n"+
			"min_members_required: %d\nmuted_users_earn: %t\n"+
			"deafened_users_earn: %t\nexclude_afk_channel: %t\n"+
			"level_up_channel: %s\nwelcome_channel: %s\nannouncement_channel: %s",
			settings.XPPerMinute, settings.CoinsPerMinute,
			settings.XPIntervalMinutes, settings.CoinIntervalMinutes,
			settings.MinMembersRequired, settings.MutedUsersEarn,
			settings.DeafenedUsersEarn, settings.ExcludeAFKChannel,
			channelOrNone(settings.LevelUpChannelID),
			channelOrNone(settings.WelcomeChannelID),
			channelOrNone(settings.AnnounceChannelID))
		s.ChannelMessageSend(m.ChannelID, msg)
		return
	}

	if !b.isAdmin(s, m) {
		s.ChannelMessageSend(m.ChannelID, "You are not authorized to use this command.")
		return
	}
	if strings.ToLower(args[1]) != "set" || len(args) < 4 {
		s.ChannelMessageSend(m.ChannelID, "Usage: voicesettings set <key> <value>")
		return
	}

	key := strings.ToLower(args[2])
	value := args[3]
	if err := applySetting(&settings, key, value); err != nil {
		s.ChannelMessageSend(m.ChannelID, err.Error())
		return
	}

	if err := b.settings.UpdateGuildSettings(settings); err != nil {
		log.Printf("Error updating guild settings: %v", err)
		s.ChannelMessageSend(m.ChannelID, "Something went wrong. Please try again.")
		return
	}
	s.ChannelMessageSend(m.ChannelID, fmt.Sprintf("Set %s to %s.", key, value))
}

func channelOrNone(channelID string) string {
	if channelID == "" {
		return "(none)"
	}
	return utils.FormatChannelMention(channelID)
}

// applySetting mutates one named field of the settings struct.
func applySetting(settings *models.GuildSettings, key, value string) error {
	parseCount := func() (int64, error) {
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil || n <= 0 {
			return 0, fmt.Errorf("%s must be a positive number", key)
		}
		return n, nil
	}
	parseBool := func() (bool, error) {
		v, err := strconv.ParseBool(value)
		if err != nil {
			return false, fmt.Errorf("%s must be true or false", key)
		}
		return v, nil
	}
	parseChannel := func() string {
		id := strings.TrimSuffix(strings.TrimPrefix(value, "<#"), ">")
		if id == "none" {
			return ""
		}
		return id
	}

	switch key {
	case "xp_per_minute":
		n, err := parseCount()
		if err != nil {
			return err
		}
		settings.XPPerMinute = n
	case "coins_per_minute":
		n, err := parseCount()
		if err != nil {
			return err
		}
		settings.CoinsPerMinute = n
	case "xp_interval_minutes":
		n, err := parseCount()
		if err != nil {
			return err
		}
		settings.XPIntervalMinutes = n
	case "coin_interval_minutes":
		n, err := parseCount()
		if err != nil {
			return err
		}
		settings.CoinIntervalMinutes = n
	case "min_members_required":
		n, err := parseCount()
		if err != nil {
			return err
		}
		settings.MinMembersRequired = int(n)
	case "muted_users_earn":
		v, err := parseBool()
		if err != nil {
			return err
		}
		settings.MutedUsersEarn = v
	case "deafened_users_earn":
		v, err := parseBool()
		if err != nil {
			return err
		}
		settings.DeafenedUsersEarn = v
	case "exclude_afk_channel":
		v, err := parseBool()
		if err != nil {
			return err
		}
		settings.ExcludeAFKChannel = v
	case "level_up_channel":
		settings.LevelUpChannelID = parseChannel()
	case "welcome_channel":
		settings.WelcomeChannelID = parseChannel()
	case "announcement_channel":
		settings.AnnounceChannelID = parseChannel()
	default:
		return fmt.Errorf("unknown setting %q", key)
	}
	return nil
}

// handleHelpCommand lists the command surface.
func (b *Bot) handleHelpCommand(s *discordgo.Session, m *discordgo.MessageCreate) {
	p := b.prefix
	s.ChannelMessageSend(m.ChannelID, fmt.Sprintf("**Commands**\n"+
		"`%srank [@user]` - level, XP, coins and ranks\n"+
		"`%sleaderboard [xp|coins|voice]` - guild top 10\n"+
		"`%svoicetime` - accumulated voice time\n"+
		"`%sdaily` - daily XP/coin bonus\n"+
		"`%sflip <amount> <heads|tails>` - coin bet\n"+
		"`%sgive` / `%stake <@user> <amount> [xp|coins]` - admin grants\n"+
		"`%ssetlevelrole <level> <@role>`, `%slevelroles` - level roles\n"+
		"`%srewardrange add|remove|list` - random reward ranges\n"+
		"`%svoicesettings show|set <key> <value>` - reward settings\n"+
		"`@bot <song or URL>` - music playback (skip/stop/queue/pause/resume/loop/volume)",
		p, p, p, p, p, p, p, p, p, p, p))
}
