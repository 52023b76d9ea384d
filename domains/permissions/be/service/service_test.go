package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	guildconfigrepo "github.com/moniware/monibot/domains/guildconfig/be/repo"
	guildconfig "github.com/moniware/monibot/domains/guildconfig/be/service"
)

func newTestResolver(t *testing.T, cfgs ...guildconfig.GuildConfig) (*Resolver, *guildconfig.Store) {
	t.Helper()
	store := guildconfig.NewStore(guildconfigrepo.NewMemoryRepository(), zap.NewNop())
	for _, cfg := range cfgs {
		require.NoError(t, store.Save(context.Background(), cfg))
	}
	return NewResolver(store), store
}

func configuredGuild() guildconfig.GuildConfig {
	return guildconfig.GuildConfig{
		GuildID:  "g1",
		BotName:  "MoniBot",
		Timezone: "UTC",
		Language: guildconfig.LanguageSpanish,
		CommandRoleGrants: map[string][]string{
			"reboot": {"ops-role"},
		},
		AdminRoles:     []string{"admin-role"},
		ModeratorRoles: []string{"mod-role"},
		SetupBy:        "creator",
		IsConfigured:   true,
	}
}

func member(userID string, roles ...string) Member {
	return Member{UserID: userID, GuildID: "g1", RoleIDs: roles}
}

func TestUnconfiguredGuildOnlyOwnerOrNativeAdmin(t *testing.T) {
	resolver, _ := newTestResolver(t)
	ctx := context.Background()

	for _, command := range []string{"setup", "status", "permisos", "reboot", "anything"} {
		ok, err := resolver.HasPermission(ctx, Member{UserID: "u1", GuildID: "nope", IsOwner: true}, command)
		require.NoError(t, err)
		require.True(t, ok, "owner, command %s", command)

		ok, err = resolver.HasPermission(ctx, Member{UserID: "u1", GuildID: "nope", IsAdministrator: true}, command)
		require.NoError(t, err)
		require.True(t, ok, "native admin, command %s", command)

		ok, err = resolver.HasPermission(ctx, Member{UserID: "u1", GuildID: "nope", RoleIDs: []string{"any"}}, command)
		require.NoError(t, err)
		require.False(t, ok, "plain member, command %s", command)
	}
}

func TestSetupByAndAdminRolesAllow(t *testing.T) {
	resolver, _ := newTestResolver(t, configuredGuild())
	ctx := context.Background()

	ok, err := resolver.HasPermission(ctx, member("creator"), "anything")
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = resolver.HasPermission(ctx, member("u2", "admin-role"), "anything")
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = resolver.HasPermission(ctx, member("u3", "unrelated"), "anything")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestCommandGrantAllowsListedRole(t *testing.T) {
	resolver, _ := newTestResolver(t, configuredGuild())
	ctx := context.Background()

	ok, err := resolver.HasPermission(ctx, member("u2", "ops-role"), "reboot")
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = resolver.HasPermission(ctx, member("u2", "other-role"), "reboot")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestCommandGrantOverridesModeratorFallback(t *testing.T) {
	cfg := configuredGuild()
	// status is moderator-eligible, but a non-empty grant list takes over
	// and must not fall through to the moderator check when it denies.
	cfg.CommandRoleGrants["status"] = []string{"special-role"}
	resolver, _ := newTestResolver(t, cfg)
	ctx := context.Background()

	ok, err := resolver.HasPermission(ctx, member("u2", "mod-role"), "status")
	require.NoError(t, err)
	require.False(t, ok)

	ok, err = resolver.HasPermission(ctx, member("u2", "special-role"), "status")
	require.NoError(t, err)
	require.True(t, ok)
}

func TestModeratorFallbackOnlyForFixedSet(t *testing.T) {
	resolver, _ := newTestResolver(t, configuredGuild())
	ctx := context.Background()

	for _, command := range []string{"status", "permisos"} {
		ok, err := resolver.HasPermission(ctx, member("u2", "mod-role"), command)
		require.NoError(t, err)
		require.True(t, ok, "command %s", command)
	}

	ok, err := resolver.HasPermission(ctx, member("u2", "mod-role"), "setname")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestIsAdmin(t *testing.T) {
	resolver, _ := newTestResolver(t, configuredGuild())
	ctx := context.Background()

	for _, m := range []Member{
		{UserID: "u1", GuildID: "g1", IsOwner: true},
		{UserID: "u1", GuildID: "g1", IsAdministrator: true},
		member("creator"),
		member("u2", "admin-role"),
	} {
		ok, err := resolver.IsAdmin(ctx, m)
		require.NoError(t, err)
		require.True(t, ok)
	}

	// Moderator and command grants never confer admin standing.
	for _, m := range []Member{
		member("u2", "mod-role"),
		member("u2", "ops-role"),
	} {
		ok, err := resolver.IsAdmin(ctx, m)
		require.NoError(t, err)
		require.False(t, ok)
	}
}

func TestCanConfigureBot(t *testing.T) {
	resolver, _ := newTestResolver(t, configuredGuild())
	ctx := context.Background()

	ok, err := resolver.CanConfigureBot(ctx, member("creator"))
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = resolver.CanConfigureBot(ctx, member("u2", "admin-role"))
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = resolver.CanConfigureBot(ctx, member("u2", "mod-role"))
	require.NoError(t, err)
	require.False(t, ok)

	// Unconfigured guild: only owner or native administrator.
	ok, err = resolver.CanConfigureBot(ctx, Member{UserID: "u1", GuildID: "new", IsAdministrator: true})
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = resolver.CanConfigureBot(ctx, Member{UserID: "u1", GuildID: "new", RoleIDs: []string{"admin-role"}})
	require.NoError(t, err)
	require.False(t, ok)
}

func TestRoleGrantMutations(t *testing.T) {
	resolver, store := newTestResolver(t, configuredGuild())
	ctx := context.Background()

	require.NoError(t, resolver.SetCommandRoles(ctx, "g1", "setname", []string{"naming-role"}))
	require.NoError(t, resolver.AddAdminRole(ctx, "g1", "second-admin"))
	require.NoError(t, resolver.AddAdminRole(ctx, "g1", "second-admin")) // idempotent
	require.NoError(t, resolver.AddModeratorRole(ctx, "g1", "second-mod"))
	require.NoError(t, resolver.RemoveModeratorRole(ctx, "g1", "mod-role"))
	require.NoError(t, resolver.RemoveModeratorRole(ctx, "g1", "mod-role")) // idempotent
	require.NoError(t, resolver.RemoveAdminRole(ctx, "g1", "admin-role"))

	cfg, err := store.Get(ctx, "g1")
	require.NoError(t, err)
	require.Equal(t, []string{"naming-role"}, cfg.CommandRoleGrants["setname"])
	require.Equal(t, []string{"second-admin"}, cfg.AdminRoles)
	require.Equal(t, []string{"second-mod"}, cfg.ModeratorRoles)
}

func TestMutationsRequireConfig(t *testing.T) {
	resolver, _ := newTestResolver(t)
	ctx := context.Background()

	require.ErrorIs(t, resolver.SetCommandRoles(ctx, "absent", "status", []string{"r"}), ErrNotConfigured)
	require.ErrorIs(t, resolver.AddAdminRole(ctx, "absent", "r"), ErrNotConfigured)
	require.ErrorIs(t, resolver.RemoveAdminRole(ctx, "absent", "r"), ErrNotConfigured)
	require.ErrorIs(t, resolver.AddModeratorRole(ctx, "absent", "r"), ErrNotConfigured)
	require.ErrorIs(t, resolver.RemoveModeratorRole(ctx, "absent", "r"), ErrNotConfigured)
}
