package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/caarlos0/env/v11"
	"go.uber.org/zap"

	commandshandler "github.com/moniware/monibot/domains/commands/be/handler"
	guildconfigrepo "github.com/moniware/monibot/domains/guildconfig/be/repo"
	guildconfigservice "github.com/moniware/monibot/domains/guildconfig/be/service"
	permissionsservice "github.com/moniware/monibot/domains/permissions/be/service"
	setupservice "github.com/moniware/monibot/domains/setup/be/service"
	systemservice "github.com/moniware/monibot/domains/system/be/service"
	"github.com/moniware/monibot/platform/go/interaction"
	platformlogging "github.com/moniware/monibot/platform/go/logging"
	"github.com/moniware/monibot/platform/go/persistence"
)

type config struct {
	BotToken        string        `env:"BOT_TOKEN,required"`
	AppID           string        `env:"BOT_APP_ID,required"`
	DatabaseURL     string        `env:"DATABASE_URL,required"`
	RunMode         string        `env:"RUN_MODE" envDefault:"development"` // development | production
	LogLevel        string        `env:"LOG_LEVEL" envDefault:"info"`
	AdminAddr       string        `env:"ADMIN_ADDR" envDefault:":8080"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var cfg config
	if err := env.Parse(&cfg); err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, err := platformlogging.NewLogger(platformlogging.Config{
		Component: "bot",
		Level:     cfg.LogLevel,
		Mode:      cfg.RunMode,
	})
	if err != nil {
		log.Fatalf("init zap logger: %v", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	pool, err := persistence.NewPool(ctx, persistence.PoolConfig{ConnString: cfg.DatabaseURL})
	if err != nil {
		logger.Fatal("init postgres pool", zap.Error(err))
	}
	defer persistence.ClosePool(pool)

	configStore, err := persistence.NewGuildConfigStore(ctx, pool)
	if err != nil {
		logger.Fatal("init guild config store", zap.Error(err))
	}

	store := guildconfigservice.NewStore(guildconfigrepo.NewPostgresRepository(configStore), logger)
	resolver := permissionsservice.NewResolver(store)

	// The gateway adapter implementing Transport plugs in here; without one
	// the process runs in dry-run mode and serves only the admin surface.
	var transport Transport = newDryRunTransport(logger)

	gate := interaction.NewGate(transport, transport, logger)
	wizard := setupservice.NewWizard(store, resolver, transport, transport, nicknameApplier{transport}, logger)

	var sysctl systemservice.Controller = systemservice.Unsupported{}

	dispatcher := commandshandler.NewDispatcher(
		store, resolver, wizard, gate, sysctl, transport, nicknameApplier{transport}, logger)

	admin := &http.Server{
		Addr:    cfg.AdminAddr,
		Handler: newAdminRouter(pool, store, logger),
	}
	go func() {
		logger.Info("admin server listening", zap.String("addr", cfg.AdminAddr))
		if err := admin.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("admin server", zap.Error(err))
			stop()
		}
	}()

	logger.Info("bot starting", zap.String("run_mode", cfg.RunMode), zap.String("app_id", cfg.AppID))
	if err := transport.Run(ctx, dispatcher.Dispatch); err != nil {
		logger.Error("transport stopped", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := admin.Shutdown(shutdownCtx); err != nil {
		logger.Error("admin server shutdown", zap.Error(err))
	}
	logger.Info("bot stopped")
}

// nicknameApplier adapts the transport to the wizard's side-effect seam.
type nicknameApplier struct {
	t Transport
}

func (n nicknameApplier) ApplyNickname(ctx context.Context, guildID, name string) error {
	return n.t.ApplyNickname(ctx, guildID, name)
}
