package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Domain sentinel errors.
var (
	ErrNotFound = errors.New("guild config not found")
)

// Language is the bot's reply language for a guild.
type Language string

const (
	LanguageSpanish Language = "es"
	LanguageEnglish Language = "en"
)

// Defaults applied when a guild record is first created.
const (
	DefaultBotName  = "MoniBot"
	DefaultTimezone = "UTC"
)

// Channels holds the optional channel assignments of a guild.
type Channels struct {
	Logs          string
	Announcements string
	Status        string
}

// Features holds the independently togglable feature switches.
type Features struct {
	EnableSystemCommands bool
	EnableMaintenance    bool
	EnableStatusUpdates  bool
	AutoRestartOnError   bool
}

// ServerInfo mirrors what the transport last reported about the guild.
type ServerInfo struct {
	Name        string
	MemberCount int
	LastSeen    time.Time
}

// GuildConfig is the domain view of one guild's configuration document.
type GuildConfig struct {
	GuildID  string
	BotName  string
	Timezone string
	Language Language

	// CommandRoleGrants maps a command name to the role IDs allowed to run
	// it. Membership is the only semantic; order is irrelevant.
	CommandRoleGrants map[string][]string
	AdminRoles        []string
	ModeratorRoles    []string

	Channels   Channels
	Features   Features
	ServerInfo ServerInfo

	IsConfigured bool
	SetupBy      string
	LastModified time.Time
}

// Clone returns a deep copy so cached entries never alias caller-held maps.
func (c GuildConfig) Clone() GuildConfig {
	out := c
	if c.CommandRoleGrants != nil {
		out.CommandRoleGrants = make(map[string][]string, len(c.CommandRoleGrants))
		for cmd, roles := range c.CommandRoleGrants {
			out.CommandRoleGrants[cmd] = append([]string(nil), roles...)
		}
	}
	out.AdminRoles = append([]string(nil), c.AdminRoles...)
	out.ModeratorRoles = append([]string(nil), c.ModeratorRoles...)
	return out
}

// Repository abstracts persistence of guild documents.
type Repository interface {
	// Get returns the stored config for guildID, or ErrNotFound.
	Get(ctx context.Context, guildID string) (GuildConfig, error)
	// Upsert writes the config, replacing any existing record for the guild.
	Upsert(ctx context.Context, cfg GuildConfig) error
}

// Store is the write-through configuration cache. Reads populate an unbounded
// process-local cache keyed by guild ID; every mutation goes through Save so
// cache and repository stay consistent within the process. Writes for the
// same guild are serialized through a keyed mutex; concurrent writes for
// different guilds do not block each other.
type Store struct {
	repo   Repository
	logger *zap.Logger
	now    func() time.Time

	mu    sync.RWMutex
	cache map[string]GuildConfig

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex
}

// NewStore constructs a Store with required dependencies.
func NewStore(repo Repository, logger *zap.Logger) *Store {
	if repo == nil {
		panic("guildconfig repo is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		repo:   repo,
		logger: logger,
		now:    time.Now,
		cache:  make(map[string]GuildConfig),
		locks:  make(map[string]*sync.Mutex),
	}
}

func (s *Store) lockFor(guildID string) *sync.Mutex {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()
	l, ok := s.locks[guildID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[guildID] = l
	}
	return l
}

// Get returns the config for guildID, serving from cache when present and
// reading through to the repository otherwise.
func (s *Store) Get(ctx context.Context, guildID string) (GuildConfig, error) {
	s.mu.RLock()
	cached, ok := s.cache[guildID]
	s.mu.RUnlock()
	if ok {
		return cached.Clone(), nil
	}

	cfg, err := s.repo.Get(ctx, guildID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return GuildConfig{}, ErrNotFound
		}
		return GuildConfig{}, fmt.Errorf("load guild config: %w", err)
	}

	s.mu.Lock()
	s.cache[guildID] = cfg.Clone()
	s.mu.Unlock()
	return cfg, nil
}

// Save upserts the config, stamping LastModified. The cache entry is replaced
// only after the repository write succeeds; on failure the caller must retry
// and the cache is left untouched.
func (s *Store) Save(ctx context.Context, cfg GuildConfig) error {
	l := s.lockFor(cfg.GuildID)
	l.Lock()
	defer l.Unlock()
	return s.save(ctx, cfg)
}

// save assumes the per-guild lock is held.
func (s *Store) save(ctx context.Context, cfg GuildConfig) error {
	if cfg.GuildID == "" {
		return fmt.Errorf("guild id is required")
	}
	if cfg.SetupBy == "" {
		return fmt.Errorf("setupBy is required")
	}

	cfg.LastModified = s.now().UTC()
	if err := s.repo.Upsert(ctx, cfg); err != nil {
		return fmt.Errorf("persist guild config: %w", err)
	}

	s.mu.Lock()
	s.cache[cfg.GuildID] = cfg.Clone()
	s.mu.Unlock()

	s.logger.Debug("guild config saved",
		zap.String("guild_id", cfg.GuildID),
		zap.Bool("is_configured", cfg.IsConfigured))
	return nil
}

// GetOrCreateDefault returns the existing config for guildID, creating and
// persisting the default document when none exists. The lookup and the
// create are atomic with respect to other writers of the same guild, so a
// concurrent second call can no longer clobber fields set in between.
func (s *Store) GetOrCreateDefault(ctx context.Context, guildID, setupBy, guildName string) (GuildConfig, error) {
	l := s.lockFor(guildID)
	l.Lock()
	defer l.Unlock()

	existing, err := s.Get(ctx, guildID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return GuildConfig{}, err
	}

	cfg := GuildConfig{
		GuildID:           guildID,
		BotName:           DefaultBotName,
		Timezone:          DefaultTimezone,
		Language:          LanguageSpanish,
		CommandRoleGrants: make(map[string][]string),
		AdminRoles:        []string{},
		ModeratorRoles:    []string{},
		Features: Features{
			EnableSystemCommands: true,
			EnableMaintenance:    true,
		},
		ServerInfo: ServerInfo{
			Name:     guildName,
			LastSeen: s.now().UTC(),
		},
		IsConfigured: false,
		SetupBy:      setupBy,
	}
	if err := s.save(ctx, cfg); err != nil {
		return GuildConfig{}, err
	}

	s.logger.Info("default guild config created",
		zap.String("guild_id", guildID),
		zap.String("setup_by", setupBy))
	return s.cacheSnapshot(guildID), nil
}

func (s *Store) cacheSnapshot(guildID string) GuildConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cache[guildID].Clone()
}

// IsConfigured reports whether the guild completed setup. Absent records
// count as unconfigured.
func (s *Store) IsConfigured(ctx context.Context, guildID string) (bool, error) {
	cfg, err := s.Get(ctx, guildID)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return cfg.IsConfigured, nil
}

// UpdateServerInfo refreshes the transport-reported guild metadata. Best
// effort: a missing record is not an error.
func (s *Store) UpdateServerInfo(ctx context.Context, guildID, name string, memberCount int) error {
	l := s.lockFor(guildID)
	l.Lock()
	defer l.Unlock()

	cfg, err := s.Get(ctx, guildID)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	cfg.ServerInfo = ServerInfo{Name: name, MemberCount: memberCount, LastSeen: s.now().UTC()}
	return s.save(ctx, cfg)
}

// ClearCache drops cached entries. With no arguments the whole cache is
// cleared; the repository stays authoritative and the next Get rehydrates.
func (s *Store) ClearCache(guildIDs ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(guildIDs) == 0 {
		s.cache = make(map[string]GuildConfig)
		return
	}
	for _, id := range guildIDs {
		delete(s.cache, id)
	}
}
