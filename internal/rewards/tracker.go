package rewards

import (
	"fmt"
	"log"
	"sync"
	"time"

	"voicelevels/internal/models"
)

type sessionKey struct {
	guildID string
	userID  string
}

// Tracker owns the active voice sessions, one per (user, guild). It is
// constructed per bot instance; there is no package-level state.
type Tracker struct {
	mu       sync.Mutex
	sessions map[sessionKey]*models.VoiceSession

	ledger   Ledger
	settings Settings
	leveler  LevelNotifier

	now func() time.Time
}

// NewTracker creates an empty session tracker.
func NewTracker(ledger Ledger, settings Settings, leveler LevelNotifier) *Tracker {
	return &Tracker{
		sessions: make(map[sessionKey]*models.VoiceSession),
		ledger:   ledger,
		settings: settings,
		leveler:  leveler,
		now:      time.Now,
	}
}

// HandleVoiceJoin opens a session for the user. A stale session for the
// same (user, guild) is closed first so at most one is ever active.
func (t *Tracker) HandleVoiceJoin(userID, guildID, channelID, afkChannelID, displayName string, muted, deafened bool) error {
	settings, err := t.settings.GuildSettings(guildID)
	if err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}
	if settings.ExcludeAFKChannel && afkChannelID != "" && channelID == afkChannelID {
		return nil
	}

	if err := t.ledger.EnsureUser(userID, guildID, displayName); err != nil {
		return err
	}

	// A join while a session is still open means we missed the leave.
	if err := t.CloseSession(userID, guildID); err != nil {
		log.Printf("Error closing stale session for %s/%s: %v", guildID, userID, err)
	}

	now := t.now()
	sessionID, err := t.ledger.StartVoiceSession(userID, guildID, channelID, now)
	if err != nil {
		// The in-memory session still opens; only history is lost.
		log.Printf("Error recording session start for %s/%s: %v", guildID, userID, err)
	}

	t.mu.Lock()
	t.sessions[sessionKey{guildID, userID}] = &models.VoiceSession{
		SessionID:      sessionID,
		UserID:         userID,
		GuildID:        guildID,
		ChannelID:      channelID,
		JoinedAt:       now,
		Muted:          muted,
		Deafened:       deafened,
		LastXPReward:   now,
		LastCoinReward: now,
	}
	t.mu.Unlock()

	return nil
}

// HandleVoiceLeave closes the user's session, if any.
func (t *Tracker) HandleVoiceLeave(userID, guildID string) error {
	return t.CloseSession(userID, guildID)
}

// HandleVoiceUpdate records a mute/deafen transition on an existing
// session. Rewards are untouched; only the sweeper and the leave path
// grant them.
func (t *Tracker) HandleVoiceUpdate(userID, guildID string, muted, deafened bool) error {
	t.mu.Lock()
	sess, ok := t.sessions[sessionKey{guildID, userID}]
	if !ok {
		t.mu.Unlock()
		return nil
	}
	sess.Muted = muted
	sess.Deafened = deafened
	sessionID := sess.SessionID
	t.mu.Unlock()

	if sessionID == 0 {
		return nil
	}
	return t.ledger.UpdateSessionMuteStatus(sessionID, muted, deafened)
}

// CloseSession removes the session and flushes its final reward. It is
// the single close path, shared by voice-leave handling and the
// sweeper's self-heal, so a session can only ever be flushed once:
// whichever caller wins the map removal does the flush.
//
// The final reward applies the session's last-known mute/deafen flags
// to the whole remaining span rather than tracking per-minute
// eligibility. This mirrors the original behavior and is a deliberate
// simplification.
func (t *Tracker) CloseSession(userID, guildID string) error {
	t.mu.Lock()
	key := sessionKey{guildID, userID}
	sess, ok := t.sessions[key]
	if !ok {
		t.mu.Unlock()
		return nil
	}
	delete(t.sessions, key)
	t.mu.Unlock()

	now := t.now()
	durationMinutes := int64(now.Sub(sess.JoinedAt).Minutes())

	settings, err := t.settings.GuildSettings(guildID)
	if err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}

	var xp, coins int64
	if (!sess.Muted || settings.MutedUsersEarn) && (!sess.Deafened || settings.DeafenedUsersEarn) {
		xp = int64(now.Sub(sess.LastXPReward).Minutes()) * settings.XPPerMinute
		coins = int64(now.Sub(sess.LastCoinReward).Minutes()) * settings.CoinsPerMinute
	}
	voiceMinutes := int64(now.Sub(sess.LastXPReward).Minutes())

	if sess.SessionID != 0 {
		if err := t.ledger.EndVoiceSession(sess.SessionID, now, durationMinutes, xp, coins); err != nil {
			log.Printf("Error recording session end for %s/%s: %v", guildID, userID, err)
		}
	}

	if xp == 0 && coins == 0 && voiceMinutes == 0 {
		return nil
	}

	stats, err := t.ledger.AddRewards(userID, guildID, xp, coins, voiceMinutes)
	if err != nil {
		return err
	}

	oldLevel := models.LevelFromXP(stats.TotalXP - xp)
	newLevel := models.LevelFromXP(stats.TotalXP)
	if newLevel > oldLevel && t.leveler != nil {
		t.leveler.HandleLevelUp(guildID, userID, newLevel)
	}

	return nil
}

// Snapshot returns value copies of every active session. The sweeper
// iterates the snapshot so sessions closed mid-sweep simply vanish.
func (t *Tracker) Snapshot() []models.VoiceSession {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]models.VoiceSession, 0, len(t.sessions))
	for _, sess := range t.sessions {
		out = append(out, *sess)
	}
	return out
}

// Session returns a copy of the active session for the key, if any.
func (t *Tracker) Session(userID, guildID string) (models.VoiceSession, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	sess, ok := t.sessions[sessionKey{guildID, userID}]
	if !ok {
		return models.VoiceSession{}, false
	}
	return *sess, true
}

// ActiveCount returns the number of active sessions.
func (t *Tracker) ActiveCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.sessions)
}

// advanceClocks moves the reward clocks of a live session forward.
// Returns false when the session disappeared since the snapshot.
func (t *Tracker) advanceClocks(userID, guildID string, xp, coin bool, at time.Time) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	sess, ok := t.sessions[sessionKey{guildID, userID}]
	if !ok {
		return false
	}
	if xp {
		sess.LastXPReward = at
	}
	if coin {
		sess.LastCoinReward = at
	}
	return true
}
