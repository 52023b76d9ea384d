package repo

import (
	"context"
	"sync"

	"github.com/moniware/monibot/domains/guildconfig/be/service"
)

// MemoryRepository is a simple in-memory implementation suitable for tests
// and early development.
type MemoryRepository struct {
	mu   sync.RWMutex
	data map[string]service.GuildConfig
}

// NewMemoryRepository constructs a MemoryRepository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{data: make(map[string]service.GuildConfig)}
}

func (r *MemoryRepository) Get(ctx context.Context, guildID string) (service.GuildConfig, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	cfg, ok := r.data[guildID]
	if !ok {
		return service.GuildConfig{}, service.ErrNotFound
	}
	return cfg.Clone(), nil
}

func (r *MemoryRepository) Upsert(ctx context.Context, cfg service.GuildConfig) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.data[cfg.GuildID] = cfg.Clone()
	return nil
}

// Ensure interface compliance.
var _ service.Repository = (*MemoryRepository)(nil)
