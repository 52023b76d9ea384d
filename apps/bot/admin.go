package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	guildconfigservice "github.com/moniware/monibot/domains/guildconfig/be/service"
	platformlogging "github.com/moniware/monibot/platform/go/logging"
)

// newAdminRouter builds the read-only ops surface: liveness plus config
// inspection. It never mutates guild state.
func newAdminRouter(pool *pgxpool.Pool, store *guildconfigservice.Store, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(platformlogging.RequestLogger(logger))
	r.Use(chimw.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		ctx, cancel := context.WithTimeout(req.Context(), 2*time.Second)
		defer cancel()
		if err := pool.Ping(ctx); err != nil {
			http.Error(w, "database unreachable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Get("/guilds/{guildID}/config", func(w http.ResponseWriter, req *http.Request) {
		guildID := chi.URLParam(req, "guildID")
		cfg, err := store.Get(req.Context(), guildID)
		if errors.Is(err, guildconfigservice.ErrNotFound) {
			http.Error(w, "guild not configured", http.StatusNotFound)
			return
		}
		if err != nil {
			platformlogging.FromContext(req.Context(), logger).Error("load guild config", zap.Error(err))
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(adminConfigView(cfg)); err != nil {
			platformlogging.FromContext(req.Context(), logger).Error("encode guild config", zap.Error(err))
		}
	})

	return r
}

// adminConfigView is the JSON shape served by the admin surface.
type configView struct {
	GuildID        string              `json:"guildId"`
	BotName        string              `json:"botName"`
	Timezone       string              `json:"timezone"`
	Language       string              `json:"language"`
	AdminRoles     []string            `json:"adminRoles"`
	ModeratorRoles []string            `json:"moderatorRoles"`
	CommandGrants  map[string][]string `json:"commandRoleGrants"`
	IsConfigured   bool                `json:"isConfigured"`
	SetupBy        string              `json:"setupBy"`
	LastModified   time.Time           `json:"lastModified"`
}

func adminConfigView(cfg guildconfigservice.GuildConfig) configView {
	return configView{
		GuildID:        cfg.GuildID,
		BotName:        cfg.BotName,
		Timezone:       cfg.Timezone,
		Language:       string(cfg.Language),
		AdminRoles:     cfg.AdminRoles,
		ModeratorRoles: cfg.ModeratorRoles,
		CommandGrants:  cfg.CommandRoleGrants,
		IsConfigured:   cfg.IsConfigured,
		SetupBy:        cfg.SetupBy,
		LastModified:   cfg.LastModified,
	}
}
