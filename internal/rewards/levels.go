package rewards

import (
	"fmt"
	"log"

	"voicelevels/internal/models"
)

// Reconciler applies the side effects of a level transition: swapping
// the configured level role and announcing the new level. Every path
// that changes XP (voice, games, daily bonus, admin commands) goes
// through HandleLevelUp; the role logic lives nowhere else.
type Reconciler struct {
	ledger   Ledger
	settings Settings
	gateway  Gateway
}

// NewReconciler creates a level-up reconciler.
func NewReconciler(ledger Ledger, settings Settings, gateway Gateway) *Reconciler {
	return &Reconciler{ledger: ledger, settings: settings, gateway: gateway}
}

// HandleLevelUp performs both reconciliation steps. Each step's failure
// is logged and never propagated; one failing does not skip the other.
func (r *Reconciler) HandleLevelUp(guildID, userID string, newLevel int64) {
	if err := r.AssignLevelRole(guildID, userID, newLevel); err != nil {
		log.Printf("Error assigning level role for %s/%s: %v", guildID, userID, err)
	}
	if err := r.announceLevelUp(guildID, userID, newLevel); err != nil {
		log.Printf("Error announcing level up for %s/%s: %v", guildID, userID, err)
	}
}

// AssignLevelRole makes the member's held level role match the given
// level. Level roles are mutually exclusive: any held mapping for a
// different level is removed, which also covers level decreases from
// admin XP removal. Calling it again with the same level is a no-op.
func (r *Reconciler) AssignLevelRole(guildID, userID string, level int64) error {
	mappings, err := r.ledger.GetLevelRoles(guildID)
	if err != nil {
		return err
	}
	if len(mappings) == 0 {
		return nil
	}

	roleIDs, err := r.gateway.MemberRoleIDs(guildID, userID)
	if err != nil {
		return fmt.Errorf("failed to fetch member roles: %w", err)
	}
	held := make(map[string]bool, len(roleIDs))
	for _, id := range roleIDs {
		held[id] = true
	}

	for _, mapping := range mappings {
		if mapping.Level == level || !held[mapping.RoleID] {
			continue
		}
		if err := r.gateway.RemoveMemberRole(guildID, userID, mapping.RoleID); err != nil {
			log.Printf("Error removing stale level role %s from %s/%s: %v", mapping.RoleID, guildID, userID, err)
		}
	}

	if level == 0 {
		return nil
	}

	target, err := r.ledger.GetLevelRole(guildID, level)
	if err != nil {
		return err
	}
	if target == nil {
		return nil
	}
	if held[target.RoleID] {
		return nil
	}

	reason, err := r.gateway.CanManageRole(guildID, target.RoleID)
	if err != nil {
		return fmt.Errorf("failed to check role permissions: %w", err)
	}
	if reason != "" {
		log.Printf("Skipping level role %s for %s/%s: %s", target.RoleID, guildID, userID, reason)
		return nil
	}

	return r.gateway.AddMemberRole(guildID, userID, target.RoleID)
}

func (r *Reconciler) announceLevelUp(guildID, userID string, newLevel int64) error {
	settings, err := r.settings.GuildSettings(guildID)
	if err != nil {
		return err
	}

	channelID := settings.LevelUpChannelID
	if channelID == "" {
		channelID = r.gateway.FallbackChannel(guildID)
	}
	if channelID == "" {
		return nil
	}

	name := r.gateway.MemberDisplayName(guildID, userID)
	if name == "" {
		name = fmt.Sprintf("<@%s>", userID)
	}
	return r.gateway.SendMessage(channelID,
		fmt.Sprintf("🎉 **%s** reached level **%d**!", name, newLevel))
}

// Profile is a user's durable totals plus the derived fields the
// command layer renders.
type Profile struct {
	models.UserStats
	Level         int64
	XPToNextLevel int64
	XPRank        int
	CoinRank      int
}

// BuildProfile assembles the stats view for one user. A user with no
// row yet gets a zeroed profile rather than an error.
func BuildProfile(ledger Ledger, userID, guildID string) (*Profile, error) {
	stats, err := ledger.GetUser(userID, guildID)
	if err != nil {
		return nil, err
	}
	if stats == nil {
		stats = &models.UserStats{UserID: userID, GuildID: guildID}
	}

	profile := &Profile{
		UserStats:     *stats,
		Level:         stats.Level(),
		XPToNextLevel: models.XPToNextLevel(stats.TotalXP),
		XPRank:        0,
		CoinRank:      0,
	}

	if xpRank, err := ledger.GetUserRank(userID, guildID, "xp"); err == nil {
		profile.XPRank = xpRank
	}
	if coinRank, err := ledger.GetUserRank(userID, guildID, "coins"); err == nil {
		profile.CoinRank = coinRank
	}

	return profile, nil
}
