package service

import (
	"context"
	"errors"
	"fmt"
	"slices"

	guildconfig "github.com/moniware/monibot/domains/guildconfig/be/service"
)

// ErrNotConfigured is returned by mutations when the guild has no record yet.
var ErrNotConfigured = errors.New("guild not configured")

// Member is the acting identity of one inbound interaction, as reported by
// the transport. IsAdministrator is the platform-native elevated permission
// bit, independent of this system's own role-grant model.
type Member struct {
	UserID          string
	GuildID         string
	RoleIDs         []string
	IsOwner         bool
	IsAdministrator bool
}

func (m Member) hasAnyRole(roleIDs []string) bool {
	for _, r := range m.RoleIDs {
		if slices.Contains(roleIDs, r) {
			return true
		}
	}
	return false
}

// moderatorCommands is the fixed set of commands a moderator role unlocks
// when no command-specific grant applies.
var moderatorCommands = map[string]struct{}{
	"status":   {},
	"permisos": {},
}

// Resolver decides whether a member may run a command in a guild. All views
// are side-effect-free reads over the configuration store.
type Resolver struct {
	store *guildconfig.Store
}

// NewResolver constructs a Resolver.
func NewResolver(store *guildconfig.Store) *Resolver {
	if store == nil {
		panic("guildconfig store is required")
	}
	return &Resolver{store: store}
}

// HasPermission evaluates the full rule order, first match wins:
// owner, native administrator, recorded setup creator, admin role,
// command-specific grant (which overrides the moderator fallback even when it
// denies), moderator fallback for the fixed command set, default deny.
// An unconfigured guild only allows the first two rules.
func (r *Resolver) HasPermission(ctx context.Context, m Member, command string) (bool, error) {
	if m.IsOwner || m.IsAdministrator {
		return true, nil
	}

	cfg, err := r.store.Get(ctx, m.GuildID)
	if errors.Is(err, guildconfig.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("resolve permission: %w", err)
	}

	if cfg.SetupBy == m.UserID {
		return true, nil
	}
	if m.hasAnyRole(cfg.AdminRoles) {
		return true, nil
	}

	if grants := cfg.CommandRoleGrants[command]; len(grants) > 0 {
		return m.hasAnyRole(grants), nil
	}

	if _, ok := moderatorCommands[command]; ok {
		return m.hasAnyRole(cfg.ModeratorRoles), nil
	}

	return false, nil
}

// IsAdmin reports whether the member has administrative standing: guild
// owner, native administrator, recorded setup creator, or holder of a
// configured admin role.
func (r *Resolver) IsAdmin(ctx context.Context, m Member) (bool, error) {
	if m.IsOwner || m.IsAdministrator {
		return true, nil
	}

	cfg, err := r.store.Get(ctx, m.GuildID)
	if errors.Is(err, guildconfig.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("resolve admin: %w", err)
	}

	if cfg.SetupBy == m.UserID {
		return true, nil
	}
	return m.hasAnyRole(cfg.AdminRoles), nil
}

// CanConfigureBot reports whether the member may run the configuration flow.
// On an unconfigured guild only the owner or a native administrator
// qualifies; both are decided before the store is consulted.
func (r *Resolver) CanConfigureBot(ctx context.Context, m Member) (bool, error) {
	if m.IsOwner || m.IsAdministrator {
		return true, nil
	}

	cfg, err := r.store.Get(ctx, m.GuildID)
	if errors.Is(err, guildconfig.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("resolve configure permission: %w", err)
	}

	if cfg.SetupBy == m.UserID {
		return true, nil
	}
	return m.hasAnyRole(cfg.AdminRoles), nil
}

// SetCommandRoles replaces the role grant list for one command.
func (r *Resolver) SetCommandRoles(ctx context.Context, guildID, command string, roleIDs []string) error {
	cfg, err := r.load(ctx, guildID)
	if err != nil {
		return err
	}
	if cfg.CommandRoleGrants == nil {
		cfg.CommandRoleGrants = make(map[string][]string)
	}
	cfg.CommandRoleGrants[command] = slices.Clone(roleIDs)
	return r.store.Save(ctx, cfg)
}

// AddAdminRole grants administrative standing to a role. Idempotent.
func (r *Resolver) AddAdminRole(ctx context.Context, guildID, roleID string) error {
	cfg, err := r.load(ctx, guildID)
	if err != nil {
		return err
	}
	if slices.Contains(cfg.AdminRoles, roleID) {
		return nil
	}
	cfg.AdminRoles = append(cfg.AdminRoles, roleID)
	return r.store.Save(ctx, cfg)
}

// RemoveAdminRole revokes administrative standing from a role. Idempotent.
func (r *Resolver) RemoveAdminRole(ctx context.Context, guildID, roleID string) error {
	cfg, err := r.load(ctx, guildID)
	if err != nil {
		return err
	}
	idx := slices.Index(cfg.AdminRoles, roleID)
	if idx < 0 {
		return nil
	}
	cfg.AdminRoles = slices.Delete(cfg.AdminRoles, idx, idx+1)
	return r.store.Save(ctx, cfg)
}

// AddModeratorRole grants moderator standing to a role. Idempotent.
func (r *Resolver) AddModeratorRole(ctx context.Context, guildID, roleID string) error {
	cfg, err := r.load(ctx, guildID)
	if err != nil {
		return err
	}
	if slices.Contains(cfg.ModeratorRoles, roleID) {
		return nil
	}
	cfg.ModeratorRoles = append(cfg.ModeratorRoles, roleID)
	return r.store.Save(ctx, cfg)
}

// RemoveModeratorRole revokes moderator standing from a role. Idempotent.
func (r *Resolver) RemoveModeratorRole(ctx context.Context, guildID, roleID string) error {
	cfg, err := r.load(ctx, guildID)
	if err != nil {
		return err
	}
	idx := slices.Index(cfg.ModeratorRoles, roleID)
	if idx < 0 {
		return nil
	}
	cfg.ModeratorRoles = slices.Delete(cfg.ModeratorRoles, idx, idx+1)
	return r.store.Save(ctx, cfg)
}

func (r *Resolver) load(ctx context.Context, guildID string) (guildconfig.GuildConfig, error) {
	cfg, err := r.store.Get(ctx, guildID)
	if errors.Is(err, guildconfig.ErrNotFound) {
		return guildconfig.GuildConfig{}, ErrNotConfigured
	}
	if err != nil {
		return guildconfig.GuildConfig{}, err
	}
	return cfg, nil
}
