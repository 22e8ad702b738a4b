package rewards

import (
	"sync"
	"time"

	"voicelevels/internal/models"
)

func statsKey(userID, guildID string) string {
	return guildID + ":" + userID
}

type endedSession struct {
	sessionID       int64
	durationMinutes int64
	xpEarned        int64
	coinsEarned     int64
}

type fakeLedger struct {
	mu             sync.Mutex
	stats          map[string]*models.UserStats
	levelRoles     map[string][]models.LevelRole
	ranges         map[string][]models.RewardRange
	nextSessionID  int64
	ended          []endedSession
	earnings       []endedSession
	muteUpdates    int
	failAddRewards error
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{
		stats:      make(map[string]*models.UserStats),
		levelRoles: make(map[string][]models.LevelRole),
		ranges:     make(map[string][]models.RewardRange),
	}
}

func (f *fakeLedger) GetUser(userID, guildID string) (*models.UserStats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	stats, ok := f.stats[statsKey(userID, guildID)]
	if !ok {
		return nil, nil
	}
	copied := *stats
	return &copied, nil
}

func (f *fakeLedger) EnsureUser(userID, guildID, displayName string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := statsKey(userID, guildID)
	if _, ok := f.stats[key]; !ok {
		f.stats[key] = &models.UserStats{UserID: userID, GuildID: guildID}
	}
	f.stats[key].DisplayName = displayName
	return nil
}

func (f *fakeLedger) AddRewards(userID, guildID string, xp, coins, voiceMinutes int64) (*models.UserStats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAddRewards != nil {
		return nil, f.failAddRewards
	}
	key := statsKey(userID, guildID)
	stats, ok := f.stats[key]
	if !ok {
		stats = &models.UserStats{UserID: userID, GuildID: guildID}
		f.stats[key] = stats
	}
	stats.TotalXP += xp
	stats.Coins += coins
	stats.VoiceMinutes += voiceMinutes
	stats.LastActive = time.Now()
	copied := *stats
	return &copied, nil
}

func (f *fakeLedger) GetUserRank(userID, guildID, metric string) (int, error) {
	return 1, nil
}

func (f *fakeLedger) GetLevelRoles(guildID string) ([]models.LevelRole, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.LevelRole(nil), f.levelRoles[guildID]...), nil
}

func (f *fakeLedger) GetLevelRole(guildID string, level int64) (*models.LevelRole, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, role := range f.levelRoles[guildID] {
		if role.Level == level {
			copied := role
			return &copied, nil
		}
	}
	return nil, nil
}

func (f *fakeLedger) GetActiveRewardRanges(guildID string) ([]models.RewardRange, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.RewardRange(nil), f.ranges[guildID]...), nil
}

func (f *fakeLedger) StartVoiceSession(userID, guildID, channelID string, joinedAt time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextSessionID++
	return f.nextSessionID, nil
}

func (f *fakeLedger) EndVoiceSession(sessionID int64, leftAt time.Time, durationMinutes, xpEarned, coinsEarned int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ended = append(f.ended, endedSession{sessionID, durationMinutes, xpEarned, coinsEarned})
	return nil
}

func (f *fakeLedger) AddSessionEarnings(sessionID int64, xpEarned, coinsEarned int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.earnings = append(f.earnings, endedSession{sessionID: sessionID, xpEarned: xpEarned, coinsEarned: coinsEarned})
	return nil
}

func (f *fakeLedger) UpdateSessionMuteStatus(sessionID int64, muted, deafened bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.muteUpdates++
	return nil
}

func (f *fakeLedger) setStats(userID, guildID string, xp, coins int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stats[statsKey(userID, guildID)] = &models.UserStats{
		UserID: userID, GuildID: guildID, TotalXP: xp, Coins: coins,
	}
}

type fakeSettings struct {
	mu      sync.Mutex
	byGuild map[string]models.GuildSettings
}

func newFakeSettings() *fakeSettings {
	return &fakeSettings{byGuild: make(map[string]models.GuildSettings)}
}

func (f *fakeSettings) GuildSettings(guildID string) (models.GuildSettings, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if settings, ok := f.byGuild[guildID]; ok {
		return settings, nil
	}
	return models.DefaultGuildSettings(guildID), nil
}

func (f *fakeSettings) set(settings models.GuildSettings) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.byGuild[settings.GuildID] = settings
}

type roleCall struct {
	userID string
	roleID string
}

type sentMessage struct {
	channelID string
	content   string
}

type fakeGateway struct {
	mu           sync.Mutex
	states       map[string]MemberState
	roles        map[string][]string
	names        map[string]string
	added        []roleCall
	removed      []roleCall
	sent         []sentMessage
	manageReason string
	fallback     string
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		states: make(map[string]MemberState),
		roles:  make(map[string][]string),
		names:  make(map[string]string),
	}
}

func (f *fakeGateway) setState(userID, guildID string, st MemberState) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.states[statsKey(userID, guildID)] = st
}

func (f *fakeGateway) MemberState(guildID, userID string) (MemberState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.states[statsKey(userID, guildID)], nil
}

func (f *fakeGateway) MemberDisplayName(guildID, userID string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.names[statsKey(userID, guildID)]
}

func (f *fakeGateway) MemberRoleIDs(guildID, userID string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.roles[statsKey(userID, guildID)]...), nil
}

func (f *fakeGateway) AddMemberRole(guildID, userID, roleID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := statsKey(userID, guildID)
	f.roles[key] = append(f.roles[key], roleID)
	f.added = append(f.added, roleCall{userID, roleID})
	return nil
}

func (f *fakeGateway) RemoveMemberRole(guildID, userID, roleID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := statsKey(userID, guildID)
	kept := f.roles[key][:0]
	for _, id := range f.roles[key] {
		if id != roleID {
			kept = append(kept, id)
		}
	}
	f.roles[key] = kept
	f.removed = append(f.removed, roleCall{userID, roleID})
	return nil
}

func (f *fakeGateway) CanManageRole(guildID, roleID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.manageReason, nil
}

func (f *fakeGateway) SendMessage(channelID, content string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentMessage{channelID, content})
	return nil
}

func (f *fakeGateway) FallbackChannel(guildID string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fallback
}

type levelUpCall struct {
	guildID  string
	userID   string
	newLevel int64
}

type fakeNotifier struct {
	mu    sync.Mutex
	calls []levelUpCall
}

func (f *fakeNotifier) HandleLevelUp(guildID, userID string, newLevel int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, levelUpCall{guildID, userID, newLevel})
}

func (f *fakeNotifier) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

// fixedClock is a controllable time source shared by a tracker and a
// sweeper in the same test.
type fixedClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFixedClock() *fixedClock {
	return &fixedClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fixedClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}
