package rewards

import (
	"log"
	"time"

	"voicelevels/internal/models"
)

// Sweeper grants periodic rewards to active sessions. It runs on a
// fixed wall-clock tick, decoupled from voice events; XP and coin
// timers are evaluated independently per session.
type Sweeper struct {
	tracker  *Tracker
	ledger   Ledger
	settings Settings
	gateway  Gateway
	leveler  LevelNotifier

	interval time.Duration
	now      func() time.Time
	done     chan struct{}
}

// NewSweeper creates a sweeper over the given tracker. interval is the
// tick period, normally one minute.
func NewSweeper(tracker *Tracker, ledger Ledger, settings Settings, gateway Gateway, leveler LevelNotifier, interval time.Duration) *Sweeper {
	return &Sweeper{
		tracker:  tracker,
		ledger:   ledger,
		settings: settings,
		gateway:  gateway,
		leveler:  leveler,
		interval: interval,
		now:      time.Now,
		done:     make(chan struct{}),
	}
}

// Start runs the sweep loop until Stop is called.
func (s *Sweeper) Start() {
	log.Println("Starting reward sweeper...")
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.Sweep()
		case <-s.done:
			return
		}
	}
}

// Stop terminates the sweep loop.
func (s *Sweeper) Stop() {
	close(s.done)
}

// Sweep processes every active session once. Errors on one session are
// logged and never abort the rest of the tick.
func (s *Sweeper) Sweep() {
	now := s.now()
	for _, sess := range s.tracker.Snapshot() {
		if err := s.sweepSession(sess, now); err != nil {
			log.Printf("Error sweeping session %s/%s: %v", sess.GuildID, sess.UserID, err)
		}
	}
}

func (s *Sweeper) sweepSession(sess models.VoiceSession, now time.Time) error {
	st, err := s.gateway.MemberState(sess.GuildID, sess.UserID)
	if err != nil {
		return err
	}

	// A member with no voice state means we missed the leave event;
	// close the session so the partial reward flushes exactly once.
	if !st.Connected {
		return s.tracker.CloseSession(sess.UserID, sess.GuildID)
	}

	settings, err := s.settings.GuildSettings(sess.GuildID)
	if err != nil {
		return err
	}

	xpDue := now.Sub(sess.LastXPReward) >= time.Duration(settings.XPIntervalMinutes)*time.Minute
	coinDue := now.Sub(sess.LastCoinReward) >= time.Duration(settings.CoinIntervalMinutes)*time.Minute
	if !xpDue && !coinDue {
		return nil
	}

	// Ineligible ticks advance the due clocks with a zero grant; there
	// is no retroactive catch-up once eligibility returns.
	if !Eligible(st, settings) {
		s.tracker.advanceClocks(sess.UserID, sess.GuildID, xpDue, coinDue, now)
		return nil
	}

	ranges, err := s.ledger.GetActiveRewardRanges(sess.GuildID)
	if err != nil {
		return err
	}

	var xp, coins, voiceMinutes int64
	if xpDue {
		xp = drawAmount(ranges, models.RewardTypeXP, settings.XPPerMinute, settings.XPIntervalMinutes)
		voiceMinutes = settings.XPIntervalMinutes
	}
	if coinDue {
		coins = drawAmount(ranges, models.RewardTypeCoin, settings.CoinsPerMinute, settings.CoinIntervalMinutes)
		if settings.CoinIntervalMinutes > voiceMinutes {
			voiceMinutes = settings.CoinIntervalMinutes
		}
	}

	if !s.tracker.advanceClocks(sess.UserID, sess.GuildID, xpDue, coinDue, now) {
		// Session closed between snapshot and grant; the close path
		// already flushed it.
		return nil
	}

	if xp == 0 && coins == 0 {
		return nil
	}

	stats, err := s.ledger.AddRewards(sess.UserID, sess.GuildID, xp, coins, voiceMinutes)
	if err != nil {
		return err
	}

	if sess.SessionID != 0 {
		if err := s.ledger.AddSessionEarnings(sess.SessionID, xp, coins); err != nil {
			log.Printf("Error recording session earnings for %s/%s: %v", sess.GuildID, sess.UserID, err)
		}
	}

	oldLevel := models.LevelFromXP(stats.TotalXP - xp)
	newLevel := models.LevelFromXP(stats.TotalXP)
	if newLevel > oldLevel && s.leveler != nil {
		s.leveler.HandleLevelUp(sess.GuildID, sess.UserID, newLevel)
	}

	return nil
}
