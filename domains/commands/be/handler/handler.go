// Package handler routes inbound interactions to command handlers. Dispatch
// is a table of handler values, each declaring its required permission tier
// as data; one shared gate runs the pre-check before any handler executes.
package handler

import (
	"context"

	"go.uber.org/zap"

	guildconfig "github.com/moniware/monibot/domains/guildconfig/be/service"
	permissions "github.com/moniware/monibot/domains/permissions/be/service"
	setup "github.com/moniware/monibot/domains/setup/be/service"
	system "github.com/moniware/monibot/domains/system/be/service"
	"github.com/moniware/monibot/platform/go/interaction"
)

// Tier is the permission pre-check a command declares.
type Tier int

const (
	// TierNone runs without a resolver pre-check; the handler gates itself
	// when it needs to (setup and setname gate on configuration permission).
	TierNone Tier = iota
	// TierStandard requires HasPermission for the command name.
	TierStandard
	// TierAdmin requires IsAdmin.
	TierAdmin
)

// Handler is one dispatchable command.
type Handler struct {
	Name string
	Tier Tier
	Run  func(ctx context.Context, inter interaction.Interaction) error
}

// Dispatcher owns the command table and the token-based routing of component
// and modal interactions back into their flows.
type Dispatcher struct {
	store     *guildconfig.Store
	resolver  *permissions.Resolver
	wizard    *setup.Wizard
	gate      *interaction.Gate
	sysctl    system.Controller
	responder interaction.Responder
	logger    *zap.Logger

	handlers map[string]Handler
	rename   *renameFlow
}

// NewDispatcher wires the command table.
func NewDispatcher(
	store *guildconfig.Store,
	resolver *permissions.Resolver,
	wizard *setup.Wizard,
	gate *interaction.Gate,
	sysctl system.Controller,
	responder interaction.Responder,
	nicknames setup.NicknameApplier,
	logger *zap.Logger,
) *Dispatcher {
	if store == nil || resolver == nil || wizard == nil || gate == nil || sysctl == nil || responder == nil {
		panic("dispatcher collaborators are required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	d := &Dispatcher{
		store:     store,
		resolver:  resolver,
		wizard:    wizard,
		gate:      gate,
		sysctl:    sysctl,
		responder: responder,
		logger:    logger,
		handlers:  make(map[string]Handler),
		rename:    newRenameFlow(store, resolver, responder, nicknames, logger),
	}

	for _, h := range []Handler{
		{Name: "setup", Tier: TierNone, Run: d.wizard.Begin},
		{Name: "setname", Tier: TierNone, Run: d.rename.Begin},
		{Name: "permisos", Tier: TierAdmin, Run: d.runPermisos},
		{Name: "config", Tier: TierAdmin, Run: d.runConfigView},
		{Name: "status", Tier: TierStandard, Run: d.runStatus},
		{Name: "botinfo", Tier: TierNone, Run: d.runBotInfo},
		{Name: "reboot", Tier: TierStandard, Run: d.runReboot},
	} {
		d.handlers[h.Name] = h
	}
	return d
}

// Dispatch routes one inbound interaction. Unknown commands and foreign
// component tokens are no-ops; the transport keeps running regardless of what
// arrives here.
func (d *Dispatcher) Dispatch(ctx context.Context, inter interaction.Interaction) error {
	switch inter.Kind {
	case interaction.KindCommand:
		return d.dispatchCommand(ctx, inter)
	case interaction.KindComponent:
		if d.wizard.Owns(inter.CustomID) {
			return d.wizard.HandleComponent(ctx, inter)
		}
		d.logger.Debug("unrouted component", zap.String("custom_id", inter.CustomID))
		return nil
	case interaction.KindModal:
		if d.wizard.Owns(inter.CustomID) {
			return d.wizard.HandleModal(ctx, inter)
		}
		if d.rename.Owns(inter.CustomID) {
			return d.rename.HandleModal(ctx, inter)
		}
		d.logger.Debug("unrouted modal", zap.String("custom_id", inter.CustomID))
		return nil
	default:
		return nil
	}
}

func (d *Dispatcher) dispatchCommand(ctx context.Context, inter interaction.Interaction) error {
	h, ok := d.handlers[inter.Command]
	if !ok {
		d.logger.Warn("unknown command", zap.String("command", inter.Command))
		return nil
	}

	if h.Tier != TierNone {
		if inter.GuildID == "" {
			_, err := d.responder.Reply(ctx, inter, interaction.Prompt{
				Body: "Este comando solo puede usarse en un servidor.",
			})
			return err
		}
		allowed, err := d.authorize(ctx, inter, h)
		if err != nil {
			return d.failGeneric(ctx, inter, err)
		}
		if !allowed {
			d.logger.Info("command denied",
				zap.String("command", h.Name),
				zap.String("guild_id", inter.GuildID),
				zap.String("user_id", inter.UserID))
			_, err := d.responder.Reply(ctx, inter, interaction.Prompt{
				Body: "No tienes permisos para usar este comando.",
			})
			return err
		}
	}

	return h.Run(ctx, inter)
}

// failGeneric resolves an unexpected failure to a user-visible reply so the
// member is never left without a response.
func (d *Dispatcher) failGeneric(ctx context.Context, inter interaction.Interaction, cause error) error {
	d.logger.Error("command failed",
		zap.String("command", inter.Command),
		zap.String("guild_id", inter.GuildID),
		zap.Error(cause))
	_, err := d.responder.Reply(ctx, inter, interaction.Prompt{
		Body: "Ocurrió un error inesperado. Inténtalo de nuevo.",
	})
	return err
}

func (d *Dispatcher) authorize(ctx context.Context, inter interaction.Interaction, h Handler) (bool, error) {
	member := permissions.Member{
		UserID:          inter.UserID,
		GuildID:         inter.GuildID,
		RoleIDs:         inter.RoleIDs,
		IsOwner:         inter.IsOwner,
		IsAdministrator: inter.IsAdministrator,
	}
	switch h.Tier {
	case TierAdmin:
		return d.resolver.IsAdmin(ctx, member)
	case TierStandard:
		return d.resolver.HasPermission(ctx, member, h.Name)
	default:
		return true, nil
	}
}
