package rewards

import (
	"testing"
	"time"

	"voicelevels/internal/models"
)

func newTestSweeper(t *testing.T) (*Sweeper, *Tracker, *fakeLedger, *fakeSettings, *fakeGateway, *fakeNotifier, *fixedClock) {
	t.Helper()
	ledger := newFakeLedger()
	settings := newFakeSettings()
	gateway := newFakeGateway()
	notifier := &fakeNotifier{}
	clock := newFixedClock()

	tracker := NewTracker(ledger, settings, notifier)
	tracker.now = clock.Now
	sweeper := NewSweeper(tracker, ledger, settings, gateway, notifier, time.Minute)
	sweeper.now = clock.Now
	return sweeper, tracker, ledger, settings, gateway, notifier, clock
}

func connectedState(members int) MemberState {
	return MemberState{Connected: true, ChannelID: testChan, ChannelMembers: members}
}

func TestSweepGrantsFlatRates(t *testing.T) {
	sweeper, tracker, ledger, _, gateway, _, clock := newTestSweeper(t)

	mustJoin(t, tracker, testChan, false, false)
	gateway.setState(testUser, testGuild, connectedState(2))

	clock.Advance(time.Minute)
	sweeper.Sweep()

	stats, _ := ledger.GetUser(testUser, testGuild)
	if stats.TotalXP != 10 || stats.Coins != 5 {
		t.Errorf("after one tick got xp=%d coins=%d, want 10/5", stats.TotalXP, stats.Coins)
	}
	if stats.VoiceMinutes != 1 {
		t.Errorf("VoiceMinutes = %d, want 1", stats.VoiceMinutes)
	}
}

func TestSweepBeforeIntervalIsNoop(t *testing.T) {
	sweeper, tracker, ledger, _, gateway, _, clock := newTestSweeper(t)

	mustJoin(t, tracker, testChan, false, false)
	gateway.setState(testUser, testGuild, connectedState(2))

	clock.Advance(30 * time.Second)
	sweeper.Sweep()

	stats, _ := ledger.GetUser(testUser, testGuild)
	if stats.TotalXP != 0 || stats.Coins != 0 {
		t.Errorf("tick before the interval granted xp=%d coins=%d, want 0/0", stats.TotalXP, stats.Coins)
	}
}

func TestIndependentTimers(t *testing.T) {
	sweeper, tracker, ledger, settings, gateway, _, clock := newTestSweeper(t)

	guildSettings := models.DefaultGuildSettings(testGuild)
	guildSettings.XPIntervalMinutes = 1
	guildSettings.CoinIntervalMinutes = 5
	settings.set(guildSettings)

	mustJoin(t, tracker, testChan, false, false)
	gateway.setState(testUser, testGuild, connectedState(2))

	// After one minute XP fires but coins do not.
	clock.Advance(time.Minute)
	sweeper.Sweep()
	stats, _ := ledger.GetUser(testUser, testGuild)
	if stats.TotalXP != 10 {
		t.Errorf("after 1m TotalXP = %d, want 10", stats.TotalXP)
	}
	if stats.Coins != 0 {
		t.Errorf("after 1m Coins = %d, want 0", stats.Coins)
	}

	// Tick each minute through minute five.
	for i := 0; i < 4; i++ {
		clock.Advance(time.Minute)
		sweeper.Sweep()
	}
	stats, _ = ledger.GetUser(testUser, testGuild)
	if stats.TotalXP != 50 {
		t.Errorf("after 5m TotalXP = %d, want 50 (five grants)", stats.TotalXP)
	}
	if stats.Coins != 25 {
		t.Errorf("after 5m Coins = %d, want 25 (one 5-minute grant)", stats.Coins)
	}
}

func TestMutedUserEarnsNothingAndTimerAdvances(t *testing.T) {
	sweeper, tracker, ledger, _, gateway, _, clock := newTestSweeper(t)

	mustJoin(t, tracker, testChan, true, false)
	st := connectedState(2)
	st.Muted = true
	gateway.setState(testUser, testGuild, st)

	clock.Advance(time.Minute)
	sweeper.Sweep()

	stats, _ := ledger.GetUser(testUser, testGuild)
	if stats.TotalXP != 0 || stats.Coins != 0 {
		t.Fatalf("muted tick granted xp=%d coins=%d, want 0/0", stats.TotalXP, stats.Coins)
	}

	// The clocks advanced with the zero grant, so regaining
	// eligibility must not retroactively pay the muted minute.
	gateway.setState(testUser, testGuild, connectedState(2))
	if err := tracker.HandleVoiceUpdate(testUser, testGuild, false, false); err != nil {
		t.Fatalf("HandleVoiceUpdate: %v", err)
	}
	clock.Advance(time.Minute)
	sweeper.Sweep()

	stats, _ = ledger.GetUser(testUser, testGuild)
	if stats.TotalXP != 10 {
		t.Errorf("TotalXP = %d, want exactly one interval's grant (10)", stats.TotalXP)
	}
}

func TestMutedUserEarnsWhenPolicyAllows(t *testing.T) {
	sweeper, tracker, ledger, settings, gateway, _, clock := newTestSweeper(t)

	guildSettings := models.DefaultGuildSettings(testGuild)
	guildSettings.MutedUsersEarn = true
	settings.set(guildSettings)

	mustJoin(t, tracker, testChan, true, false)
	st := connectedState(2)
	st.Muted = true
	gateway.setState(testUser, testGuild, st)

	clock.Advance(time.Minute)
	sweeper.Sweep()

	stats, _ := ledger.GetUser(testUser, testGuild)
	if stats.TotalXP != 10 {
		t.Errorf("TotalXP = %d, want 10 when muted earning is allowed", stats.TotalXP)
	}
}

func TestAloneBelowMinMembers(t *testing.T) {
	sweeper, tracker, ledger, settings, gateway, _, clock := newTestSweeper(t)

	guildSettings := models.DefaultGuildSettings(testGuild)
	guildSettings.MinMembersRequired = 2
	settings.set(guildSettings)

	mustJoin(t, tracker, testChan, false, false)
	gateway.setState(testUser, testGuild, connectedState(1))

	clock.Advance(time.Minute)
	sweeper.Sweep()
	stats, _ := ledger.GetUser(testUser, testGuild)
	if stats.TotalXP != 0 {
		t.Fatalf("alone in channel granted %d XP, want 0", stats.TotalXP)
	}

	// A second non-bot member joins the channel.
	gateway.setState(testUser, testGuild, connectedState(2))
	clock.Advance(time.Minute)
	sweeper.Sweep()
	stats, _ = ledger.GetUser(testUser, testGuild)
	if stats.TotalXP != 10 {
		t.Errorf("TotalXP = %d, want 10 once the channel is populated", stats.TotalXP)
	}
}

func TestAFKChannelIneligible(t *testing.T) {
	sweeper, tracker, ledger, _, gateway, _, clock := newTestSweeper(t)

	mustJoin(t, tracker, testChan, false, false)
	st := connectedState(5)
	st.AFKChannelID = testChan
	gateway.setState(testUser, testGuild, st)

	clock.Advance(time.Minute)
	sweeper.Sweep()

	stats, _ := ledger.GetUser(testUser, testGuild)
	if stats.TotalXP != 0 {
		t.Errorf("AFK channel granted %d XP, want 0", stats.TotalXP)
	}
}

func TestVanishedMemberClosedOnce(t *testing.T) {
	sweeper, tracker, ledger, _, gateway, _, clock := newTestSweeper(t)

	mustJoin(t, tracker, testChan, false, false)
	// No gateway state set: the member has no voice state anymore.
	gateway.setState(testUser, testGuild, MemberState{})

	clock.Advance(2 * time.Minute)
	sweeper.Sweep()

	if tracker.ActiveCount() != 0 {
		t.Fatal("vanished member's session should be closed by the sweeper")
	}
	if len(ledger.ended) != 1 {
		t.Fatalf("session flushed %d times, want 1", len(ledger.ended))
	}

	flushedXP := ledger.stats[statsKey(testUser, testGuild)].TotalXP

	// Further ticks must not flush again.
	clock.Advance(time.Minute)
	sweeper.Sweep()
	clock.Advance(time.Minute)
	sweeper.Sweep()

	if len(ledger.ended) != 1 {
		t.Errorf("session flushed %d times after extra ticks, want 1", len(ledger.ended))
	}
	if got := ledger.stats[statsKey(testUser, testGuild)].TotalXP; got != flushedXP {
		t.Errorf("TotalXP changed from %d to %d after close", flushedXP, got)
	}
}

func TestSweepFiresLevelUpOnce(t *testing.T) {
	sweeper, tracker, ledger, _, gateway, notifier, clock := newTestSweeper(t)

	ledger.setStats(testUser, testGuild, 95, 0)
	mustJoin(t, tracker, testChan, false, false)
	gateway.setState(testUser, testGuild, connectedState(2))

	clock.Advance(time.Minute)
	sweeper.Sweep()

	if notifier.count() != 1 {
		t.Fatalf("level-up fired %d times, want 1", notifier.count())
	}
	if notifier.calls[0].newLevel != 1 {
		t.Errorf("newLevel = %d, want 1", notifier.calls[0].newLevel)
	}

	// The next tick stays inside level 1; no second notification.
	clock.Advance(time.Minute)
	sweeper.Sweep()
	if notifier.count() != 1 {
		t.Errorf("level-up fired %d times after second tick, want 1", notifier.count())
	}
}

func TestRewardRangeDraw(t *testing.T) {
	sweeper, tracker, ledger, _, gateway, _, clock := newTestSweeper(t)

	ledger.ranges[testGuild] = []models.RewardRange{
		{ID: 1, GuildID: testGuild, RewardType: models.RewardTypeXP, MinAmount: 20, MaxAmount: 30, DurationMinutes: 1},
	}

	mustJoin(t, tracker, testChan, false, false)
	gateway.setState(testUser, testGuild, connectedState(2))

	clock.Advance(time.Minute)
	sweeper.Sweep()

	stats, _ := ledger.GetUser(testUser, testGuild)
	if stats.TotalXP < 20 || stats.TotalXP > 30 {
		t.Errorf("range draw gave %d XP, want within [20,30]", stats.TotalXP)
	}
	// Coins have no range configured and fall back to the flat rate.
	if stats.Coins != 5 {
		t.Errorf("Coins = %d, want flat-rate 5", stats.Coins)
	}
}

func TestSessionEarningsRecorded(t *testing.T) {
	sweeper, tracker, ledger, _, gateway, _, clock := newTestSweeper(t)

	mustJoin(t, tracker, testChan, false, false)
	gateway.setState(testUser, testGuild, connectedState(2))

	clock.Advance(time.Minute)
	sweeper.Sweep()

	if len(ledger.earnings) != 1 {
		t.Fatalf("earnings recorded %d times, want 1", len(ledger.earnings))
	}
	if ledger.earnings[0].xpEarned != 10 || ledger.earnings[0].coinsEarned != 5 {
		t.Errorf("recorded earnings xp=%d coins=%d, want 10/5",
			ledger.earnings[0].xpEarned, ledger.earnings[0].coinsEarned)
	}
}

func TestEligiblePredicate(t *testing.T) {
	settings := models.DefaultGuildSettings(testGuild)
	settings.MinMembersRequired = 2

	cases := []struct {
		name string
		st   MemberState
		want bool
	}{
		{"disconnected", MemberState{}, false},
		{"connected and populated", MemberState{Connected: true, ChannelID: "c", ChannelMembers: 2}, true},
		{"afk channel", MemberState{Connected: true, ChannelID: "afk", AFKChannelID: "afk", ChannelMembers: 2}, false},
		{"muted", MemberState{Connected: true, ChannelID: "c", Muted: true, ChannelMembers: 2}, false},
		{"deafened", MemberState{Connected: true, ChannelID: "c", Deafened: true, ChannelMembers: 2}, false},
		{"alone", MemberState{Connected: true, ChannelID: "c", ChannelMembers: 1}, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Eligible(tc.st, settings); got != tc.want {
				t.Errorf("Eligible() = %t, want %t", got, tc.want)
			}
		})
	}
}
