package repo

import (
	"context"
	"errors"

	"github.com/moniware/monibot/domains/guildconfig/be/service"
	"github.com/moniware/monibot/platform/go/persistence"
)

// PostgresRepository implements the guild config repository on top of the
// shared JSONB document store.
type PostgresRepository struct {
	store *persistence.GuildConfigStore
}

// NewPostgresRepository constructs a repository backed by GuildConfigStore.
func NewPostgresRepository(store *persistence.GuildConfigStore) *PostgresRepository {
	if store == nil {
		panic("guild config store is required")
	}
	return &PostgresRepository{store: store}
}

func (r *PostgresRepository) Get(ctx context.Context, guildID string) (service.GuildConfig, error) {
	doc, err := r.store.Get(ctx, guildID)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return service.GuildConfig{}, service.ErrNotFound
		}
		return service.GuildConfig{}, err
	}
	return fromDocument(doc), nil
}

func (r *PostgresRepository) Upsert(ctx context.Context, cfg service.GuildConfig) error {
	return r.store.Upsert(ctx, toDocument(cfg))
}

func toDocument(cfg service.GuildConfig) persistence.GuildConfigDocument {
	grants := cfg.CommandRoleGrants
	if grants == nil {
		grants = map[string][]string{}
	}
	return persistence.GuildConfigDocument{
		GuildID:           cfg.GuildID,
		BotName:           cfg.BotName,
		Timezone:          cfg.Timezone,
		Language:          string(cfg.Language),
		CommandRoleGrants: grants,
		AdminRoles:        cfg.AdminRoles,
		ModeratorRoles:    cfg.ModeratorRoles,
		Channels: persistence.ChannelsDocument{
			Logs:          cfg.Channels.Logs,
			Announcements: cfg.Channels.Announcements,
			Status:        cfg.Channels.Status,
		},
		Features: persistence.FeaturesDocument{
			EnableSystemCommands: cfg.Features.EnableSystemCommands,
			EnableMaintenance:    cfg.Features.EnableMaintenance,
			EnableStatusUpdates:  cfg.Features.EnableStatusUpdates,
			AutoRestartOnError:   cfg.Features.AutoRestartOnError,
		},
		ServerInfo: persistence.ServerInfoDocument{
			Name:        cfg.ServerInfo.Name,
			MemberCount: cfg.ServerInfo.MemberCount,
			LastSeen:    cfg.ServerInfo.LastSeen,
		},
		IsConfigured: cfg.IsConfigured,
		SetupBy:      cfg.SetupBy,
		LastModified: cfg.LastModified,
	}
}

func fromDocument(doc persistence.GuildConfigDocument) service.GuildConfig {
	grants := doc.CommandRoleGrants
	if grants == nil {
		grants = map[string][]string{}
	}
	return service.GuildConfig{
		GuildID:           doc.GuildID,
		BotName:           doc.BotName,
		Timezone:          doc.Timezone,
		Language:          service.Language(doc.Language),
		CommandRoleGrants: grants,
		AdminRoles:        doc.AdminRoles,
		ModeratorRoles:    doc.ModeratorRoles,
		Channels: service.Channels{
			Logs:          doc.Channels.Logs,
			Announcements: doc.Channels.Announcements,
			Status:        doc.Channels.Status,
		},
		Features: service.Features{
			EnableSystemCommands: doc.Features.EnableSystemCommands,
			EnableMaintenance:    doc.Features.EnableMaintenance,
			EnableStatusUpdates:  doc.Features.EnableStatusUpdates,
			AutoRestartOnError:   doc.Features.AutoRestartOnError,
		},
		ServerInfo: service.ServerInfo{
			Name:        doc.ServerInfo.Name,
			MemberCount: doc.ServerInfo.MemberCount,
			LastSeen:    doc.ServerInfo.LastSeen,
		},
		IsConfigured: doc.IsConfigured,
		SetupBy:      doc.SetupBy,
		LastModified: doc.LastModified,
	}
}

// Ensure interface compliance.
var _ service.Repository = (*PostgresRepository)(nil)
