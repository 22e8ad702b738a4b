package rewards

import (
	"strings"
	"testing"

	"voicelevels/internal/models"
)

func newTestReconciler(t *testing.T) (*Reconciler, *fakeLedger, *fakeSettings, *fakeGateway) {
	t.Helper()
	ledger := newFakeLedger()
	settings := newFakeSettings()
	gateway := newFakeGateway()
	return NewReconciler(ledger, settings, gateway), ledger, settings, gateway
}

func TestAssignLevelRoleAddsMappedRole(t *testing.T) {
	reconciler, ledger, _, gateway := newTestReconciler(t)

	ledger.levelRoles[testGuild] = []models.LevelRole{
		{GuildID: testGuild, Level: 1, RoleID: "role-1"},
		{GuildID: testGuild, Level: 2, RoleID: "role-2"},
	}

	if err := reconciler.AssignLevelRole(testGuild, testUser, 1); err != nil {
		t.Fatalf("AssignLevelRole: %v", err)
	}

	if len(gateway.added) != 1 || gateway.added[0].roleID != "role-1" {
		t.Fatalf("added roles = %v, want exactly role-1", gateway.added)
	}
	if len(gateway.removed) != 0 {
		t.Errorf("removed roles = %v, want none", gateway.removed)
	}
}

func TestAssignLevelRoleIsIdempotent(t *testing.T) {
	reconciler, ledger, _, gateway := newTestReconciler(t)

	ledger.levelRoles[testGuild] = []models.LevelRole{
		{GuildID: testGuild, Level: 1, RoleID: "role-1"},
	}

	if err := reconciler.AssignLevelRole(testGuild, testUser, 1); err != nil {
		t.Fatalf("first AssignLevelRole: %v", err)
	}
	if err := reconciler.AssignLevelRole(testGuild, testUser, 1); err != nil {
		t.Fatalf("second AssignLevelRole: %v", err)
	}

	if len(gateway.added) != 1 {
		t.Errorf("role added %d times, want 1", len(gateway.added))
	}
	if len(gateway.removed) != 0 {
		t.Errorf("removed roles = %v, want none", gateway.removed)
	}
}

func TestAssignLevelRoleSwapsStaleRole(t *testing.T) {
	reconciler, ledger, _, gateway := newTestReconciler(t)

	ledger.levelRoles[testGuild] = []models.LevelRole{
		{GuildID: testGuild, Level: 1, RoleID: "role-1"},
		{GuildID: testGuild, Level: 2, RoleID: "role-2"},
	}
	gateway.roles[statsKey(testUser, testGuild)] = []string{"role-1", "unrelated"}

	if err := reconciler.AssignLevelRole(testGuild, testUser, 2); err != nil {
		t.Fatalf("AssignLevelRole: %v", err)
	}

	if len(gateway.removed) != 1 || gateway.removed[0].roleID != "role-1" {
		t.Errorf("removed = %v, want exactly role-1", gateway.removed)
	}
	if len(gateway.added) != 1 || gateway.added[0].roleID != "role-2" {
		t.Errorf("added = %v, want exactly role-2", gateway.added)
	}
}

func TestAssignLevelRoleHandlesDecreaseToZero(t *testing.T) {
	reconciler, ledger, _, gateway := newTestReconciler(t)

	ledger.levelRoles[testGuild] = []models.LevelRole{
		{GuildID: testGuild, Level: 1, RoleID: "role-1"},
	}
	gateway.roles[statsKey(testUser, testGuild)] = []string{"role-1"}

	// Admin XP removal dropped the user to level 0.
	if err := reconciler.AssignLevelRole(testGuild, testUser, 0); err != nil {
		t.Fatalf("AssignLevelRole: %v", err)
	}

	if len(gateway.removed) != 1 || gateway.removed[0].roleID != "role-1" {
		t.Errorf("removed = %v, want exactly role-1", gateway.removed)
	}
	if len(gateway.added) != 0 {
		t.Errorf("added = %v, want none at level 0", gateway.added)
	}
}

func TestAssignLevelRoleUnmappedLevelIsSilent(t *testing.T) {
	reconciler, ledger, _, gateway := newTestReconciler(t)

	ledger.levelRoles[testGuild] = []models.LevelRole{
		{GuildID: testGuild, Level: 5, RoleID: "role-5"},
	}

	if err := reconciler.AssignLevelRole(testGuild, testUser, 3); err != nil {
		t.Fatalf("AssignLevelRole: %v", err)
	}
	if len(gateway.added) != 0 {
		t.Errorf("added = %v, want none for an unmapped level", gateway.added)
	}
}

func TestAssignLevelRoleRespectsManageCheck(t *testing.T) {
	reconciler, ledger, _, gateway := newTestReconciler(t)

	ledger.levelRoles[testGuild] = []models.LevelRole{
		{GuildID: testGuild, Level: 1, RoleID: "role-1"},
	}
	gateway.manageReason = "role sits above the bot's highest role"

	if err := reconciler.AssignLevelRole(testGuild, testUser, 1); err != nil {
		t.Fatalf("AssignLevelRole should not error on a failed check: %v", err)
	}
	if len(gateway.added) != 0 {
		t.Errorf("added = %v, want none when the check fails", gateway.added)
	}
}

func TestAnnounceUsesConfiguredChannel(t *testing.T) {
	reconciler, _, settings, gateway := newTestReconciler(t)

	guildSettings := models.DefaultGuildSettings(testGuild)
	guildSettings.LevelUpChannelID = "level-chan"
	settings.set(guildSettings)
	gateway.names[statsKey(testUser, testGuild)] = "Tester"
	gateway.fallback = "general-chan"

	reconciler.HandleLevelUp(testGuild, testUser, 3)

	if len(gateway.sent) != 1 {
		t.Fatalf("sent %d messages, want 1", len(gateway.sent))
	}
	if gateway.sent[0].channelID != "level-chan" {
		t.Errorf("announced in %q, want the configured channel", gateway.sent[0].channelID)
	}
	if !strings.Contains(gateway.sent[0].content, "Tester") || !strings.Contains(gateway.sent[0].content, "3") {
		t.Errorf("announcement %q should mention the user and the level", gateway.sent[0].content)
	}
}

func TestAnnounceFallsBackByChannelName(t *testing.T) {
	reconciler, _, _, gateway := newTestReconciler(t)

	gateway.fallback = "general-chan"
	reconciler.HandleLevelUp(testGuild, testUser, 1)

	if len(gateway.sent) != 1 || gateway.sent[0].channelID != "general-chan" {
		t.Errorf("sent = %v, want one message to the fallback channel", gateway.sent)
	}
}

func TestAnnounceNoChannelIsNoop(t *testing.T) {
	reconciler, _, _, gateway := newTestReconciler(t)

	reconciler.HandleLevelUp(testGuild, testUser, 1)

	if len(gateway.sent) != 0 {
		t.Errorf("sent = %v, want none without any channel", gateway.sent)
	}
}

func TestBuildProfile(t *testing.T) {
	ledger := newFakeLedger()
	ledger.setStats(testUser, testGuild, 250, 40)

	profile, err := BuildProfile(ledger, testUser, testGuild)
	if err != nil {
		t.Fatalf("BuildProfile: %v", err)
	}
	if profile.Level != 2 {
		t.Errorf("Level = %d, want 2", profile.Level)
	}
	if profile.XPToNextLevel != 50 {
		t.Errorf("XPToNextLevel = %d, want 50", profile.XPToNextLevel)
	}
	if profile.XPRank != 1 || profile.CoinRank != 1 {
		t.Errorf("ranks = %d/%d, want 1/1", profile.XPRank, profile.CoinRank)
	}
}

func TestBuildProfileUnknownUser(t *testing.T) {
	ledger := newFakeLedger()

	profile, err := BuildProfile(ledger, "nobody", testGuild)
	if err != nil {
		t.Fatalf("BuildProfile: %v", err)
	}
	if profile.TotalXP != 0 || profile.Level != 0 {
		t.Errorf("unknown user should get a zero profile, got %+v", profile)
	}
}
