package handler

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	guildconfig "github.com/moniware/monibot/domains/guildconfig/be/service"
	permissions "github.com/moniware/monibot/domains/permissions/be/service"
	"github.com/moniware/monibot/platform/go/interaction"
)

const setupGuidance = "No se encontró configuración para este servidor. Ejecuta /setup primero."

// runPermisos serves the admin-gated permission surface: "ver" renders the
// current grants, "configurar" mutates them.
func (d *Dispatcher) runPermisos(ctx context.Context, inter interaction.Interaction) error {
	switch inter.Subcommand {
	case "ver":
		return d.showPermissions(ctx, inter)
	case "configurar":
		return d.configurePermissions(ctx, inter)
	default:
		d.logger.Warn("unknown permisos subcommand", zap.String("subcommand", inter.Subcommand))
		return nil
	}
}

func (d *Dispatcher) showPermissions(ctx context.Context, inter interaction.Interaction) error {
	cfg, err := d.store.Get(ctx, inter.GuildID)
	if errors.Is(err, guildconfig.ErrNotFound) {
		_, rerr := d.responder.Reply(ctx, inter, interaction.Prompt{Body: setupGuidance})
		return rerr
	}
	if err != nil {
		return d.failGeneric(ctx, inter, err)
	}

	fields := []interaction.Field{
		{Name: "Configurador del Bot", Value: cfg.SetupBy, Inline: true},
		{Name: "Roles de Administrador", Value: roleList(cfg.AdminRoles)},
		{Name: "Roles de Moderador", Value: roleList(cfg.ModeratorRoles)},
	}

	if len(cfg.CommandRoleGrants) > 0 {
		var lines []string
		for cmd, roles := range cfg.CommandRoleGrants {
			if len(roles) > 0 {
				lines = append(lines, fmt.Sprintf("/%s: %s", cmd, strings.Join(roles, ", ")))
			}
		}
		sort.Strings(lines)
		if len(lines) > 0 {
			fields = append(fields, interaction.Field{
				Name:  "Permisos por Comando",
				Value: strings.Join(lines, "\n"),
			})
		}
	}

	_, err = d.responder.Reply(ctx, inter, interaction.Prompt{
		Title:  "Configuración de Permisos",
		Fields: fields,
		Footer: "Propietario y configurador tienen acceso completo; los administradores pueden usar todos los comandos.",
	})
	return err
}

// configurePermissions applies one grant mutation described by the command
// options: tipo=comando replaces a command's grant list, tipo=admin and
// tipo=moderador add or remove a role from the respective set.
func (d *Dispatcher) configurePermissions(ctx context.Context, inter interaction.Interaction) error {
	tipo := inter.Options["tipo"]
	accion := inter.Options["accion"]
	roles := splitRoles(inter.Options["roles"])

	var err error
	switch tipo {
	case "comando":
		command := inter.Options["comando"]
		if command == "" {
			_, rerr := d.responder.Reply(ctx, inter, interaction.Prompt{
				Body: "Debes indicar el comando a configurar.",
			})
			return rerr
		}
		if accion == "quitar" {
			roles = nil
		}
		err = d.resolver.SetCommandRoles(ctx, inter.GuildID, command, roles)
	case "admin":
		err = d.mutateRoleSet(ctx, inter.GuildID, roles, accion,
			d.resolver.AddAdminRole, d.resolver.RemoveAdminRole)
	case "moderador":
		err = d.mutateRoleSet(ctx, inter.GuildID, roles, accion,
			d.resolver.AddModeratorRole, d.resolver.RemoveModeratorRole)
	default:
		_, rerr := d.responder.Reply(ctx, inter, interaction.Prompt{
			Body: "Tipo de permiso desconocido. Usa comando, admin o moderador.",
		})
		return rerr
	}

	if errors.Is(err, permissions.ErrNotConfigured) {
		_, rerr := d.responder.Reply(ctx, inter, interaction.Prompt{Body: setupGuidance})
		return rerr
	}
	if err != nil {
		d.logger.Error("configure permissions", zap.String("guild_id", inter.GuildID), zap.Error(err))
		_, rerr := d.responder.Reply(ctx, inter, interaction.Prompt{
			Body: "Error al guardar los permisos. Inténtalo de nuevo.",
		})
		return rerr
	}

	_, err = d.responder.Reply(ctx, inter, interaction.Prompt{
		Title: "Permisos Actualizados",
		Body:  "La configuración de permisos ha sido guardada.",
	})
	return err
}

func (d *Dispatcher) mutateRoleSet(
	ctx context.Context,
	guildID string,
	roles []string,
	accion string,
	add func(context.Context, string, string) error,
	remove func(context.Context, string, string) error,
) error {
	op := add
	if accion == "quitar" {
		op = remove
	}
	for _, role := range roles {
		if err := op(ctx, guildID, role); err != nil {
			return err
		}
	}
	return nil
}

// runConfigView renders the whole configuration document for admins.
func (d *Dispatcher) runConfigView(ctx context.Context, inter interaction.Interaction) error {
	cfg, err := d.store.Get(ctx, inter.GuildID)
	if errors.Is(err, guildconfig.ErrNotFound) {
		_, rerr := d.responder.Reply(ctx, inter, interaction.Prompt{Body: setupGuidance})
		return rerr
	}
	if err != nil {
		return d.failGeneric(ctx, inter, err)
	}

	_, err = d.responder.Reply(ctx, inter, interaction.Prompt{
		Title: "Configuración del Servidor",
		Fields: []interaction.Field{
			{Name: "Nombre del Bot", Value: cfg.BotName, Inline: true},
			{Name: "Zona Horaria", Value: cfg.Timezone, Inline: true},
			{Name: "Idioma", Value: string(cfg.Language), Inline: true},
			{Name: "Configurado", Value: yesNo(cfg.IsConfigured), Inline: true},
			{Name: "Configurado por", Value: cfg.SetupBy, Inline: true},
			{Name: "Última modificación", Value: cfg.LastModified.Format("02/01/2006 15:04"), Inline: true},
			{Name: "Comandos de sistema", Value: yesNo(cfg.Features.EnableSystemCommands), Inline: true},
			{Name: "Mantenimiento", Value: yesNo(cfg.Features.EnableMaintenance), Inline: true},
			{Name: "Actualizaciones de estado", Value: yesNo(cfg.Features.EnableStatusUpdates), Inline: true},
		},
	})
	return err
}

// runStatus reports configuration and host health. Moderator-eligible.
func (d *Dispatcher) runStatus(ctx context.Context, inter interaction.Interaction) error {
	cfg, err := d.store.Get(ctx, inter.GuildID)
	if errors.Is(err, guildconfig.ErrNotFound) {
		_, rerr := d.responder.Reply(ctx, inter, interaction.Prompt{Body: setupGuidance})
		return rerr
	}
	if err != nil {
		return d.failGeneric(ctx, inter, err)
	}

	fields := []interaction.Field{
		{Name: "Bot", Value: cfg.BotName, Inline: true},
		{Name: "Zona Horaria", Value: cfg.Timezone, Inline: true},
		{Name: "Servidor", Value: cfg.ServerInfo.Name, Inline: true},
	}

	if cfg.Features.EnableSystemCommands {
		info, err := d.sysctl.Info(ctx)
		if err != nil {
			d.logger.Warn("collect system info", zap.Error(err))
		} else {
			fields = append(fields,
				interaction.Field{Name: "CPU", Value: info.CPU, Inline: true},
				interaction.Field{Name: "Memoria", Value: info.Memory, Inline: true},
				interaction.Field{Name: "Disco", Value: info.Disk, Inline: true},
				interaction.Field{Name: "Uptime", Value: info.Uptime, Inline: true},
			)
		}
	}

	_, err = d.responder.Reply(ctx, inter, interaction.Prompt{
		Title:  "Estado del Sistema",
		Fields: fields,
	})
	return err
}

// runBotInfo is public: basic identity of the bot in this guild.
func (d *Dispatcher) runBotInfo(ctx context.Context, inter interaction.Interaction) error {
	name := guildconfig.DefaultBotName
	configured := false
	if inter.GuildID != "" {
		if cfg, err := d.store.Get(ctx, inter.GuildID); err == nil {
			name = cfg.BotName
			configured = cfg.IsConfigured
		}
	}

	_, err := d.responder.Reply(ctx, inter, interaction.Prompt{
		Title: "Información del Bot",
		Fields: []interaction.Field{
			{Name: "Nombre", Value: name, Inline: true},
			{Name: "Configurado", Value: yesNo(configured), Inline: true},
		},
		Footer: "Usa /setup para configurar el bot en este servidor.",
	})
	return err
}

// runReboot routes the destructive action through the confirmation gate. The
// table tier already ran HasPermission; rebooting additionally requires
// administrative standing, mirroring the stricter in-handler check the
// command has always had.
func (d *Dispatcher) runReboot(ctx context.Context, inter interaction.Interaction) error {
	member := permissions.Member{
		UserID:          inter.UserID,
		GuildID:         inter.GuildID,
		RoleIDs:         inter.RoleIDs,
		IsOwner:         inter.IsOwner,
		IsAdministrator: inter.IsAdministrator,
	}
	isAdmin, err := d.resolver.IsAdmin(ctx, member)
	if err != nil {
		return d.failGeneric(ctx, inter, err)
	}
	if !isAdmin {
		_, err := d.responder.Reply(ctx, inter, interaction.Prompt{
			Body: "No tienes permisos de administrador para usar este comando.",
		})
		return err
	}

	return d.gate.Run(ctx, inter, interaction.Confirmation{
		Prompt: interaction.Prompt{
			Title: "Confirmación de Reinicio",
			Body:  "Estás a punto de reiniciar el sistema del servidor.",
			Fields: []interaction.Field{
				{Name: "Acción", Value: "Reinicio del sistema", Inline: true},
				{Name: "Advertencia", Value: "Esta acción es irreversible y desconectará temporalmente el servidor."},
			},
			Footer: "Tienes 30 segundos para confirmar o cancelar",
		},
		ConfirmLabel:     "Confirmar Reinicio",
		CancelLabel:      "Cancelar",
		WorkingTitle:     "Ejecutando Reinicio",
		SuccessTitle:     "Reinicio Iniciado",
		FailureTitle:     "Error en el Reinicio",
		CancelledMessage: "Reinicio cancelado.",
		TimeoutMessage:   "Tiempo de confirmación agotado. Reinicio cancelado por seguridad.",
	}, func(ctx context.Context) (interaction.ActionResult, error) {
		res, err := d.sysctl.Reboot(ctx)
		if err != nil {
			return interaction.ActionResult{}, err
		}
		return interaction.ActionResult{Success: res.Success, Message: res.Message}, nil
	})
}

func roleList(roles []string) string {
	if len(roles) == 0 {
		return "Ninguno configurado"
	}
	return strings.Join(roles, "\n")
}

func splitRoles(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.FieldsFunc(raw, func(r rune) bool { return r == ',' || r == ' ' })
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func yesNo(b bool) string {
	if b {
		return "Sí"
	}
	return "No"
}
