package bot

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"guildkeeper/internal/command"
	"guildkeeper/internal/config"
	"guildkeeper/internal/moderation"
	"guildkeeper/internal/storage"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

func storagePolicy(r, g, b int, random bool) storage.GuildPolicy {
	return storage.GuildPolicy{EmbedR: r, EmbedG: g, EmbedB: b, EmbedRandom: random}
}

func newTestBot(t *testing.T) *Bot {
	t.Helper()
	b := &Bot{
		cfg:      config.DefaultConfig(),
		registry: command.NewRegistry(),
	}
	if err := b.registerCommands(); err != nil {
		t.Fatalf("register commands: %v", err)
	}
	return b
}

func newWiredBot(t *testing.T) *Bot {
	t.Helper()
	store, err := storage.New(":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(store.Close)
	if err := store.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	cfg := config.DefaultConfig()
	cfg.DiscordToken = "test-token"
	b, err := New(cfg, zap.NewNop(), store)
	if err != nil {
		t.Fatalf("new bot: %v", err)
	}
	t.Cleanup(b.sched.Stop)
	return b
}

func TestCommandSurfaceRegisters(t *testing.T) {
	b := newTestBot(t)

	for _, name := range []string{
		"prefix", "warn", "getwarns", "warnaction", "mute", "unmute",
		"kick", "ban", "unban", "purge", "slowmode", "welcome", "logs",
		"embedcolor", "allowinvites", "profanity", "pallow", "pblock",
		"pomodoro start", "pomo start", "sbreak", "break", "lbreak",
		"ping", "latency", "echo", "say", "uptime", "servers", "server",
		"info", "whois", "registertimezone", "registertz", "settz",
		"time", "userstime", "utime", "validtimezone", "validtz",
	} {
		if _, _, err := b.registry.Resolve(name + " <@1> extra args"); err != nil {
			t.Fatalf("command %q did not resolve: %v", name, err)
		}
	}
}

func TestGuildOnlySkippedInDM(t *testing.T) {
	b := newTestBot(t)

	spec, _, err := b.registry.Resolve("warn <@1> spam")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}

	inv := &command.Invocation{ChannelID: "dm", AuthorID: "u1"}
	if err := b.authorize(spec, inv); !errors.Is(err, errGuildOnly) {
		t.Fatalf("expected guild-only skip in DM, got %v", err)
	}
}

func TestRolePermissionsFoldsEveryoneAndRoles(t *testing.T) {
	guild := &discordgo.Guild{
		ID: "g1",
		Roles: []*discordgo.Role{
			{ID: "g1", Permissions: discordgo.PermissionSendMessages},
			{ID: "mod", Permissions: discordgo.PermissionKickMembers},
			{ID: "other", Permissions: discordgo.PermissionBanMembers},
		},
	}
	member := &discordgo.Member{Roles: []string{"mod"}}

	perms := rolePermissions(guild, member)
	if perms&discordgo.PermissionKickMembers == 0 {
		t.Fatalf("role permission not folded in")
	}
	if perms&discordgo.PermissionSendMessages == 0 {
		t.Fatalf("everyone permission not folded in")
	}
	if perms&discordgo.PermissionBanMembers != 0 {
		t.Fatalf("unassigned role permission leaked in")
	}
}

func TestRolePermissionsAdministratorExpands(t *testing.T) {
	guild := &discordgo.Guild{
		ID: "g1",
		Roles: []*discordgo.Role{
			{ID: "g1"},
			{ID: "admin", Permissions: discordgo.PermissionAdministrator},
		},
	}
	member := &discordgo.Member{Roles: []string{"admin"}}

	if perms := rolePermissions(guild, member); perms&discordgo.PermissionBanMembers == 0 {
		t.Fatalf("administrator should imply every permission")
	}
}

func TestParseChannelToken(t *testing.T) {
	cases := []struct {
		token string
		want  string
	}{
		{"<#12345>", "12345"},
		{"12345", "12345"},
		{"general", ""},
		{"<#abc>", ""},
		{"", ""},
	}
	for _, tc := range cases {
		if got := parseChannelToken(tc.token); got != tc.want {
			t.Fatalf("parseChannelToken(%q) = %q, want %q", tc.token, got, tc.want)
		}
	}
}

func TestGuildColor(t *testing.T) {
	b := &Bot{cfg: config.DefaultConfig()}

	policy := storagePolicy(59, 130, 246, false)
	if got := b.guildColor(policy); got != 0x3B82F6 {
		t.Fatalf("expected 0x3B82F6, got %#x", got)
	}

	random := storagePolicy(0, 0, 0, true)
	color := b.guildColor(random)
	if color < 0 || color > 0xFFFFFF {
		t.Fatalf("random color out of range: %d", color)
	}
}

func TestSessionIntentsIncludeDirectMessages(t *testing.T) {
	b := newWiredBot(t)

	intents := b.session.Identify.Intents
	if intents&discordgo.IntentsDirectMessages == 0 {
		t.Fatalf("direct message intent not requested")
	}
	if intents&discordgo.IntentsGuildMessages == 0 {
		t.Fatalf("guild message intent not requested")
	}
	if intents&discordgo.IntentsMessageContent == 0 {
		t.Fatalf("message content intent not requested")
	}
}

func TestPurgeBatchCapsAtBulkDeleteLimit(t *testing.T) {
	messages := make([]*discordgo.Message, 100)
	for i := range messages {
		messages[i] = &discordgo.Message{ID: fmt.Sprintf("m%d", i)}
	}

	ids := purgeBatch("invoking", messages)
	if len(ids) != 100 {
		t.Fatalf("expected 100 ids, got %d", len(ids))
	}
	if ids[0] != "invoking" {
		t.Fatalf("invoking message should delete first, got %q", ids[0])
	}

	ids = purgeBatch("invoking", messages[:10])
	if len(ids) != 11 {
		t.Fatalf("small batch should keep every id, got %d", len(ids))
	}
}

func TestMuteOmittedDurationUsesConfiguredDefault(t *testing.T) {
	b := newTestBot(t)

	spec, tail, err := b.registry.Resolve("mute 42")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}

	args, err := command.Bind(spec, tail, &command.Invocation{GuildID: "g1"}, nil)
	if err != nil {
		t.Fatalf("bind: %v", err)
	}
	if got := args.Int("minutes"); got != b.cfg.Moderation.MuteMinutes {
		t.Fatalf("expected default of %d minutes, got %d", b.cfg.Moderation.MuteMinutes, got)
	}
}

func TestMuteExplicitZeroMinutesRejected(t *testing.T) {
	b := newWiredBot(t)

	spec, tail, err := b.registry.Resolve("mute 42 0")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}

	inv := &command.Invocation{GuildID: "g1", ChannelID: "c1", AuthorID: "a1"}
	args, err := command.Bind(spec, tail, inv, nil)
	if err != nil {
		t.Fatalf("bind: %v", err)
	}
	inv.Args = args

	var validation *moderation.ValidationError
	if err := b.cmdMute(context.Background(), inv); !errors.As(err, &validation) {
		t.Fatalf("expected a validation error for zero minutes, got %v", err)
	}
}

func TestMuteAndUnmutePermissionMasks(t *testing.T) {
	b := newTestBot(t)

	for _, name := range []string{"mute", "unmute"} {
		spec, _, err := b.registry.Resolve(name + " <@1>")
		if err != nil {
			t.Fatalf("resolve %q: %v", name, err)
		}
		if spec.RequireUser != discordgo.PermissionKickMembers {
			t.Fatalf("%s should require the caller to hold kick members", name)
		}
		if spec.RequireBot != discordgo.PermissionManageRoles {
			t.Fatalf("%s should require the bot to hold manage roles", name)
		}
	}
}

func TestResolveUserUsesStateCache(t *testing.T) {
	b := newWiredBot(t)

	if err := b.session.State.GuildAdd(&discordgo.Guild{ID: "g1"}); err != nil {
		t.Fatalf("guild add: %v", err)
	}
	if err := b.session.State.MemberAdd(&discordgo.Member{GuildID: "g1", User: &discordgo.User{ID: "42"}}); err != nil {
		t.Fatalf("member add: %v", err)
	}

	inv := &command.Invocation{GuildID: "g1"}
	id, ok := b.resolveUser(inv, "42")
	if !ok || id != "42" {
		t.Fatalf("expected cached member to resolve, got %q %v", id, ok)
	}
}

func TestRegisterTimezoneRejectsInvalidName(t *testing.T) {
	b := newWiredBot(t)

	spec, tail, err := b.registry.Resolve("registertz Not/AZone")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}

	inv := &command.Invocation{GuildID: "g1", ChannelID: "c1", AuthorID: "a1"}
	args, err := command.Bind(spec, tail, inv, nil)
	if err != nil {
		t.Fatalf("bind: %v", err)
	}
	inv.Args = args

	var validation *moderation.ValidationError
	if err := b.cmdRegisterTimezone(context.Background(), inv); !errors.As(err, &validation) {
		t.Fatalf("expected a validation error for a bogus timezone, got %v", err)
	}

	tz, err := b.store.GetUserTimezone(context.Background(), "a1")
	if err != nil {
		t.Fatalf("get timezone: %v", err)
	}
	if tz != "" {
		t.Fatalf("bogus timezone should not persist, got %q", tz)
	}
}
