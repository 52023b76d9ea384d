package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound is returned when no document exists for the requested guild.
var ErrNotFound = errors.New("persistence: not found")

// GuildConfigDocument is the persisted per-guild document. Field names are
// the stable wire layout; command role grants persist as a string-keyed
// mapping of command name to role-id strings.
type GuildConfigDocument struct {
	GuildID           string              `json:"guildId"`
	BotName           string              `json:"botName"`
	Timezone          string              `json:"timezone"`
	Language          string              `json:"language"`
	CommandRoleGrants map[string][]string `json:"commandRoleGrants"`
	AdminRoles        []string            `json:"adminRoles"`
	ModeratorRoles    []string            `json:"moderatorRoles"`
	Channels          ChannelsDocument    `json:"channels"`
	Features          FeaturesDocument    `json:"features"`
	ServerInfo        ServerInfoDocument  `json:"serverInfo"`
	IsConfigured      bool                `json:"isConfigured"`
	SetupBy           string              `json:"setupBy"`
	LastModified      time.Time           `json:"lastModified"`
}

// ChannelsDocument holds the optional channel assignments.
type ChannelsDocument struct {
	Logs          string `json:"logs,omitempty"`
	Announcements string `json:"announcements,omitempty"`
	Status        string `json:"status,omitempty"`
}

// FeaturesDocument holds the independently togglable feature switches.
type FeaturesDocument struct {
	EnableSystemCommands bool `json:"enableSystemCommands"`
	EnableMaintenance    bool `json:"enableMaintenance"`
	EnableStatusUpdates  bool `json:"enableStatusUpdates"`
	AutoRestartOnError   bool `json:"autoRestartOnError"`
}

// ServerInfoDocument mirrors what the transport last reported about the guild.
type ServerInfoDocument struct {
	Name        string    `json:"name"`
	MemberCount int       `json:"memberCount"`
	LastSeen    time.Time `json:"lastSeen"`
}

const guildConfigDDL = `
CREATE TABLE IF NOT EXISTS guild_configs (
    id         UUID PRIMARY KEY,
    guild_id   TEXT NOT NULL UNIQUE,
    document   JSONB NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);`

// GuildConfigStore persists one JSONB document per guild, upserted by guild
// ID. Documents read back from storage are validated against the embedded
// schema so corrupt rows surface as errors instead of zero values.
type GuildConfigStore struct {
	pool      *pgxpool.Pool
	validator *DocumentValidator
}

// NewGuildConfigStore ensures the backing table exists and returns the store.
func NewGuildConfigStore(ctx context.Context, pool *pgxpool.Pool) (*GuildConfigStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if _, err := pool.Exec(ctx, guildConfigDDL); err != nil {
		return nil, fmt.Errorf("ensure guild_configs table: %w", err)
	}
	validator, err := NewDocumentValidator()
	if err != nil {
		return nil, err
	}
	return &GuildConfigStore{pool: pool, validator: validator}, nil
}

// Get loads the document for guildID, or ErrNotFound.
func (s *GuildConfigStore) Get(ctx context.Context, guildID string) (GuildConfigDocument, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx,
		`SELECT document FROM guild_configs WHERE guild_id = $1`, guildID,
	).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return GuildConfigDocument{}, ErrNotFound
		}
		return GuildConfigDocument{}, fmt.Errorf("query guild config %s: %w", guildID, err)
	}

	if err := s.validator.Validate(raw); err != nil {
		return GuildConfigDocument{}, fmt.Errorf("guild config %s: %w", guildID, err)
	}

	var doc GuildConfigDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return GuildConfigDocument{}, fmt.Errorf("decode guild config %s: %w", guildID, err)
	}
	return doc, nil
}

// Upsert writes the document, replacing any existing row for the same guild.
func (s *GuildConfigStore) Upsert(ctx context.Context, doc GuildConfigDocument) error {
	if doc.GuildID == "" {
		return fmt.Errorf("guild id is required")
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode guild config %s: %w", doc.GuildID, err)
	}

	_, err = s.pool.Exec(ctx, `
INSERT INTO guild_configs (id, guild_id, document)
VALUES ($1, $2, $3)
ON CONFLICT (guild_id) DO UPDATE
SET document = EXCLUDED.document, updated_at = now()`,
		uuid.New(), doc.GuildID, raw)
	if err != nil {
		return fmt.Errorf("upsert guild config %s: %w", doc.GuildID, err)
	}
	return nil
}

// Delete removes the row for guildID. Administrative use only; the bot core
// never deletes configurations.
func (s *GuildConfigStore) Delete(ctx context.Context, guildID string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM guild_configs WHERE guild_id = $1`, guildID)
	if err != nil {
		return fmt.Errorf("delete guild config %s: %w", guildID, err)
	}
	return nil
}
