package handler

import (
	"context"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	guildconfig "github.com/moniware/monibot/domains/guildconfig/be/service"
	permissions "github.com/moniware/monibot/domains/permissions/be/service"
	setup "github.com/moniware/monibot/domains/setup/be/service"
	"github.com/moniware/monibot/platform/go/interaction"
)

// Platform nickname limit, stricter than the 50-char config limit.
const maxNicknameLength = 32

var renameCodec = interaction.NewCodec("setname", map[string]int{
	"name": 0,
})

const renameInputID = "bot_name"

// renameFlow is the direct name-change command: same permission tier as the
// configuration flow, one modal, one save.
type renameFlow struct {
	store     *guildconfig.Store
	resolver  *permissions.Resolver
	responder interaction.Responder
	nicknames setup.NicknameApplier
	logger    *zap.Logger
}

func newRenameFlow(
	store *guildconfig.Store,
	resolver *permissions.Resolver,
	responder interaction.Responder,
	nicknames setup.NicknameApplier,
	logger *zap.Logger,
) *renameFlow {
	return &renameFlow{
		store:     store,
		resolver:  resolver,
		responder: responder,
		nicknames: nicknames,
		logger:    logger,
	}
}

func (f *renameFlow) Owns(customID string) bool {
	return renameCodec.Owns(customID)
}

// Begin gates on configuration permission and opens the name modal.
func (f *renameFlow) Begin(ctx context.Context, inter interaction.Interaction) error {
	if inter.GuildID == "" {
		_, err := f.responder.Reply(ctx, inter, interaction.Prompt{
			Body: "Este comando solo funciona en servidores.",
		})
		return err
	}

	member := permissions.Member{
		UserID:          inter.UserID,
		GuildID:         inter.GuildID,
		RoleIDs:         inter.RoleIDs,
		IsOwner:         inter.IsOwner,
		IsAdministrator: inter.IsAdministrator,
	}
	allowed, err := f.resolver.CanConfigureBot(ctx, member)
	if err != nil {
		f.logger.Error("setname permission check", zap.Error(err))
		_, rerr := f.responder.Reply(ctx, inter, interaction.Prompt{
			Body: "Ocurrió un error inesperado. Inténtalo de nuevo.",
		})
		return rerr
	}
	if !allowed {
		_, err := f.responder.Reply(ctx, inter, interaction.Prompt{
			Body: "No tienes permisos para configurar el bot. Solo los administradores pueden hacerlo.",
		})
		return err
	}

	seed := guildconfig.DefaultBotName
	if cfg, err := f.store.Get(ctx, inter.GuildID); err == nil && cfg.BotName != "" {
		seed = cfg.BotName
	}

	customID, err := renameCodec.Encode("name")
	if err != nil {
		return err
	}
	return f.responder.ShowModal(ctx, inter, interaction.Modal{
		CustomID: customID,
		Title:    "Cambiar Nombre del Bot",
		Inputs: []interaction.TextInput{{
			CustomID:    renameInputID,
			Label:       "Nuevo nombre del bot",
			Placeholder: "MoniBot, Asistente, Helper...",
			Value:       seed,
			MinLength:   1,
			MaxLength:   maxNicknameLength,
			Required:    true,
		}},
	})
}

// HandleModal persists the new name and applies the nickname best-effort.
func (f *renameFlow) HandleModal(ctx context.Context, inter interaction.Interaction) error {
	tok, err := renameCodec.Decode(inter.CustomID)
	if err != nil || tok.Step != "name" || inter.GuildID == "" {
		return nil
	}

	newName := strings.TrimSpace(inter.Inputs[renameInputID])
	if newName == "" || utf8.RuneCountInString(newName) > maxNicknameLength {
		_, err := f.responder.Reply(ctx, inter, interaction.Prompt{
			Body: "El nombre debe tener entre 1 y 32 caracteres.",
		})
		return err
	}

	cfg, err := f.store.GetOrCreateDefault(ctx, inter.GuildID, inter.UserID, inter.GuildName)
	if err != nil {
		f.logger.Error("setname load config", zap.String("guild_id", inter.GuildID), zap.Error(err))
		_, rerr := f.responder.Reply(ctx, inter, interaction.Prompt{
			Body: "Error al cambiar el nombre del bot. Inténtalo de nuevo.",
		})
		return rerr
	}

	oldName := cfg.BotName
	cfg.BotName = newName
	if err := f.store.Save(ctx, cfg); err != nil {
		f.logger.Error("setname persist", zap.String("guild_id", inter.GuildID), zap.Error(err))
		_, rerr := f.responder.Reply(ctx, inter, interaction.Prompt{
			Body: "Error al cambiar el nombre del bot. Inténtalo de nuevo.",
		})
		return rerr
	}

	if f.nicknames != nil {
		if err := f.nicknames.ApplyNickname(ctx, inter.GuildID, newName); err != nil {
			f.logger.Warn("apply bot nickname",
				zap.String("guild_id", inter.GuildID),
				zap.String("name", newName),
				zap.Error(err))
		}
	}

	_, err = f.responder.Reply(ctx, inter, interaction.Prompt{
		Title: "Nombre del Bot Actualizado",
		Fields: []interaction.Field{
			{Name: "Nombre anterior", Value: oldName, Inline: true},
			{Name: "Nombre nuevo", Value: newName, Inline: true},
			{Name: "Cambiado por", Value: inter.UserID, Inline: true},
		},
	})
	return err
}
