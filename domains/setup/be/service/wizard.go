package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	guildconfig "github.com/moniware/monibot/domains/guildconfig/be/service"
	permissions "github.com/moniware/monibot/domains/permissions/be/service"
	"github.com/moniware/monibot/platform/go/interaction"
)

// Step timeouts. Selects and modals past the reconfirm/start gates live as
// long as their UI components do; only the awaited button steps are bounded
// here.
const (
	reconfirmWindow = 30 * time.Second
	startWindow     = 60 * time.Second
)

// Wizard step tags and their token field arity. The token carried by each
// component custom ID holds every value collected by the steps before it:
// the language select carries the chosen timezone, the name modal carries
// timezone and language. The server keeps no session between steps.
var wizardCodec = interaction.NewCodec("setup", map[string]int{
	"again":  0,
	"cancel": 0,
	"tz":     0,
	"lang":   1, // timezone
	"name":   2, // timezone, language
})

const nameInputID = "bot_name"

// timezoneChoices is the fixed enumerated list offered by the wizard.
var timezoneChoices = []interaction.SelectOption{
	{Label: "Madrid (Europe/Madrid)", Value: "Europe/Madrid", Description: "UTC+1/+2 - España Peninsula y Baleares"},
	{Label: "Canarias (Atlantic/Canary)", Value: "Atlantic/Canary", Description: "UTC+0/+1 - Islas Canarias"},
	{Label: "México Central (America/Mexico_City)", Value: "America/Mexico_City", Description: "UTC-6/-5 - Ciudad de México"},
	{Label: "Buenos Aires (America/Argentina/Buenos_Aires)", Value: "America/Argentina/Buenos_Aires", Description: "UTC-3 - Argentina"},
	{Label: "Bogotá (America/Bogota)", Value: "America/Bogota", Description: "UTC-5 - Colombia"},
	{Label: "Nueva York (America/New_York)", Value: "America/New_York", Description: "UTC-5/-4 - Costa Este USA"},
	{Label: "UTC (Coordinated Universal Time)", Value: "UTC", Description: "UTC+0 - Tiempo universal"},
}

func validTimezone(tz string) bool {
	for _, c := range timezoneChoices {
		if c.Value == tz {
			return true
		}
	}
	return false
}

// NicknameApplier applies the configured bot name as the service's visible
// display name in a guild. Implemented by the transport collaborator.
type NicknameApplier interface {
	ApplyNickname(ctx context.Context, guildID, name string) error
}

// Wizard drives the first-run and reconfiguration flow. It is stateless
// between steps: progress lives entirely in the token round-tripped through
// component custom IDs, so any process instance can resume any step.
type Wizard struct {
	store     *guildconfig.Store
	resolver  *permissions.Resolver
	responder interaction.Responder
	awaiter   interaction.Awaiter
	nicknames NicknameApplier
	logger    *zap.Logger
}

// NewWizard constructs a Wizard with required collaborators. nicknames may be
// nil when the transport cannot rename the bot.
func NewWizard(
	store *guildconfig.Store,
	resolver *permissions.Resolver,
	responder interaction.Responder,
	awaiter interaction.Awaiter,
	nicknames NicknameApplier,
	logger *zap.Logger,
) *Wizard {
	if store == nil || resolver == nil || responder == nil || awaiter == nil {
		panic("setup wizard collaborators are required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Wizard{
		store:     store,
		resolver:  resolver,
		responder: responder,
		awaiter:   awaiter,
		nicknames: nicknames,
		logger:    logger,
	}
}

// Owns reports whether the component or modal custom ID belongs to this flow.
func (w *Wizard) Owns(customID string) bool {
	return wizardCodec.Owns(customID)
}

// Begin handles the setup command: permission gate, optional reconfiguration
// confirmation, then the timezone step. Every branch resolves the flow to a
// next prompt or a terminal cancellation reply.
func (w *Wizard) Begin(ctx context.Context, inter interaction.Interaction) error {
	if inter.GuildID == "" {
		_, err := w.responder.Reply(ctx, inter, interaction.Prompt{
			Body: "Este comando solo puede usarse en un servidor.",
		})
		return err
	}

	member := memberOf(inter)
	allowed, err := w.resolver.CanConfigureBot(ctx, member)
	if err != nil {
		return w.failGeneric(ctx, inter, err)
	}
	if !allowed {
		w.logger.Info("setup denied",
			zap.String("guild_id", inter.GuildID),
			zap.String("user_id", inter.UserID))
		_, err := w.responder.Reply(ctx, inter, interaction.Prompt{
			Body: "No tienes permisos para configurar el bot. Solo los administradores pueden hacerlo.",
		})
		return err
	}

	configured, err := w.store.IsConfigured(ctx, inter.GuildID)
	if err != nil {
		return w.failGeneric(ctx, inter, err)
	}

	if configured {
		proceed, err := w.reconfirm(ctx, inter)
		if err != nil || !proceed {
			return err
		}
	}

	return w.showTimezoneStep(ctx, inter, configured)
}

// reconfirm asks whether to redo an existing configuration. It reports
// whether the flow should continue; "no" and timeout both terminate with a
// cancellation reply and no state change.
func (w *Wizard) reconfirm(ctx context.Context, inter interaction.Interaction) (bool, error) {
	cfg, err := w.store.Get(ctx, inter.GuildID)
	if err != nil {
		return false, w.failGeneric(ctx, inter, err)
	}

	yesID := mustEncode("again")
	noID := mustEncode("cancel")

	msg, err := w.responder.Reply(ctx, inter, interaction.Prompt{
		Title: "Bot ya configurado",
		Body:  "El bot ya está configurado en este servidor. ¿Deseas reconfigurarlo?",
		Fields: []interaction.Field{
			{Name: "Configurado por", Value: cfg.SetupBy, Inline: true},
			{Name: "Última modificación", Value: cfg.LastModified.Format("02/01/2006"), Inline: true},
		},
		Buttons: []interaction.Button{
			{CustomID: yesID, Label: "Sí, reconfigurar", Style: interaction.ButtonPrimary},
			{CustomID: noID, Label: "No, cancelar", Style: interaction.ButtonSecondary},
		},
	})
	if err != nil {
		return false, fmt.Errorf("send reconfirm prompt: %w", err)
	}

	answer, err := w.awaiter.AwaitComponent(ctx, msg, inter.UserID, reconfirmWindow)
	if err != nil {
		if errors.Is(err, interaction.ErrAwaitTimeout) {
			return false, w.responder.Update(ctx, inter, interaction.Prompt{
				Body: "Tiempo de respuesta agotado. Configuración cancelada.",
			})
		}
		return false, fmt.Errorf("await reconfirm: %w", err)
	}

	if answer.CustomID != yesID {
		return false, w.responder.Update(ctx, answer, interaction.Prompt{
			Body: "Configuración cancelada.",
		})
	}

	if err := w.responder.Update(ctx, answer, interaction.Prompt{Body: "Iniciando reconfiguración..."}); err != nil {
		return false, fmt.Errorf("acknowledge reconfirm: %w", err)
	}
	return true, nil
}

// showTimezoneStep presents the enumerated timezone choices and waits for a
// selection. The select's custom ID is the encoded flow token for this step,
// so the selection can also resume through HandleComponent when the await is
// gone (process restart); the await only exists to bound the step.
func (w *Wizard) showTimezoneStep(ctx context.Context, inter interaction.Interaction, reconfiguring bool) error {
	body := "Te guiaré a través del proceso de configuración paso a paso."
	if reconfiguring {
		body = "Vamos a reconfigurar el bot paso a paso."
	}

	prompt := interaction.Prompt{
		Title: "Configuración del Bot",
		Body:  body,
		Fields: []interaction.Field{
			{Name: "Zona horaria", Value: "Elige la zona horaria principal de tu servidor."},
		},
		Select: &interaction.Select{
			CustomID:    mustEncode("tz"),
			Placeholder: "Selecciona una zona horaria...",
			Options:     timezoneChoices,
		},
	}

	msg, err := w.responder.Reply(ctx, inter, prompt)
	if err != nil {
		return fmt.Errorf("send timezone prompt: %w", err)
	}

	answer, err := w.awaiter.AwaitComponent(ctx, msg, inter.UserID, startWindow)
	if err != nil {
		if errors.Is(err, interaction.ErrAwaitTimeout) {
			return w.responder.Update(ctx, inter, interaction.Prompt{
				Body: "Tiempo de respuesta agotado. Configuración cancelada.",
			})
		}
		return fmt.Errorf("await timezone selection: %w", err)
	}
	return w.HandleComponent(ctx, answer)
}

// HandleComponent resumes the flow from a select-menu interaction carrying a
// wizard token. Malformed tokens are ignored.
func (w *Wizard) HandleComponent(ctx context.Context, inter interaction.Interaction) error {
	tok, err := wizardCodec.Decode(inter.CustomID)
	if err != nil {
		w.logger.Debug("ignoring foreign component token", zap.String("custom_id", inter.CustomID))
		return nil
	}
	if len(inter.Values) != 1 || inter.GuildID == "" {
		return nil
	}

	switch tok.Step {
	case "tz":
		tz := inter.Values[0]
		if !validTimezone(tz) {
			return nil
		}
		return w.showLanguageStep(ctx, inter, tz)
	case "lang":
		tz := tok.Fields[0]
		lang := inter.Values[0]
		if !validTimezone(tz) || !validLanguage(lang) {
			return nil
		}
		return w.showNameStep(ctx, inter, tz, lang)
	default:
		return nil
	}
}

func (w *Wizard) showLanguageStep(ctx context.Context, inter interaction.Interaction, tz string) error {
	customID, err := wizardCodec.Encode("lang", tz)
	if err != nil {
		return fmt.Errorf("encode language token: %w", err)
	}
	return w.responder.Update(ctx, inter, interaction.Prompt{
		Title: "Selecciona el idioma",
		Body:  "Elige el idioma principal del bot.",
		Fields: []interaction.Field{
			{Name: "Zona horaria seleccionada", Value: tz, Inline: true},
		},
		Select: &interaction.Select{
			CustomID:    customID,
			Placeholder: "Selecciona un idioma...",
			Options: []interaction.SelectOption{
				{Label: "Español", Value: "es", Description: "Mensajes en español"},
				{Label: "English", Value: "en", Description: "Messages in English"},
			},
		},
	})
}

func (w *Wizard) showNameStep(ctx context.Context, inter interaction.Interaction, tz, lang string) error {
	customID, err := wizardCodec.Encode("name", tz, lang)
	if err != nil {
		return fmt.Errorf("encode name token: %w", err)
	}

	// Seed with the previous name when one exists.
	seed := guildconfig.DefaultBotName
	if cfg, err := w.store.Get(ctx, inter.GuildID); err == nil && cfg.BotName != "" {
		seed = cfg.BotName
	}

	return w.responder.ShowModal(ctx, inter, interaction.Modal{
		CustomID: customID,
		Title:    "Nombre del Bot",
		Inputs: []interaction.TextInput{{
			CustomID:    nameInputID,
			Label:       "¿Cómo quieres llamar al bot?",
			Placeholder: "MoniBot, Asistente, Helper...",
			Value:       seed,
			MinLength:   1,
			MaxLength:   50,
			Required:    true,
		}},
	})
}

// HandleModal finishes the flow: decode the accumulated token, merge with the
// submitted name, persist, and apply the nickname best-effort. A nickname
// failure never fails the wizard or reverts the saved configuration.
func (w *Wizard) HandleModal(ctx context.Context, inter interaction.Interaction) error {
	tok, err := wizardCodec.Decode(inter.CustomID)
	if err != nil || tok.Step != "name" {
		w.logger.Debug("ignoring foreign modal token", zap.String("custom_id", inter.CustomID))
		return nil
	}
	if inter.GuildID == "" {
		return nil
	}

	tz, lang := tok.Fields[0], tok.Fields[1]
	if !validTimezone(tz) || !validLanguage(lang) {
		return nil
	}

	name := strings.TrimSpace(inter.Inputs[nameInputID])
	if name == "" || utf8.RuneCountInString(name) > 50 {
		_, err := w.responder.Reply(ctx, inter, interaction.Prompt{
			Body: "El nombre debe tener entre 1 y 50 caracteres.",
		})
		return err
	}

	cfg, err := w.store.GetOrCreateDefault(ctx, inter.GuildID, inter.UserID, inter.GuildName)
	if err != nil {
		return w.failGeneric(ctx, inter, err)
	}

	cfg.BotName = name
	cfg.Timezone = tz
	cfg.Language = guildconfig.Language(lang)
	cfg.IsConfigured = true

	if err := w.store.Save(ctx, cfg); err != nil {
		w.logger.Error("persist wizard result",
			zap.String("guild_id", inter.GuildID), zap.Error(err))
		_, rerr := w.responder.Reply(ctx, inter, interaction.Prompt{
			Body: "Error al guardar la configuración. Inténtalo de nuevo.",
		})
		return rerr
	}

	w.applyNickname(ctx, inter.GuildID, name)

	langLabel := "Español"
	if lang == "en" {
		langLabel = "English"
	}
	_, err = w.responder.Reply(ctx, inter, interaction.Prompt{
		Title: "Configuración Completada",
		Body:  "La información básica ha sido guardada correctamente.",
		Fields: []interaction.Field{
			{Name: "Nombre del Bot", Value: name, Inline: true},
			{Name: "Zona Horaria", Value: tz, Inline: true},
			{Name: "Idioma", Value: langLabel, Inline: true},
		},
		Footer: "Puedes usar /setup de nuevo para cambiar estas opciones.",
	})
	return err
}

// applyNickname is the best-effort side effect after a successful save.
func (w *Wizard) applyNickname(ctx context.Context, guildID, name string) {
	if w.nicknames == nil {
		return
	}
	if err := w.nicknames.ApplyNickname(ctx, guildID, name); err != nil {
		w.logger.Warn("apply bot nickname",
			zap.String("guild_id", guildID),
			zap.String("name", name),
			zap.Error(err))
	}
}

func (w *Wizard) failGeneric(ctx context.Context, inter interaction.Interaction, cause error) error {
	w.logger.Error("setup flow failed",
		zap.String("guild_id", inter.GuildID), zap.Error(cause))
	_, err := w.responder.Reply(ctx, inter, interaction.Prompt{
		Body: "Ocurrió un error inesperado. Inténtalo de nuevo.",
	})
	return err
}

func validLanguage(lang string) bool {
	return lang == string(guildconfig.LanguageSpanish) || lang == string(guildconfig.LanguageEnglish)
}

func mustEncode(step string, fields ...string) string {
	id, err := wizardCodec.Encode(step, fields...)
	if err != nil {
		panic(err)
	}
	return id
}

func memberOf(inter interaction.Interaction) permissions.Member {
	return permissions.Member{
		UserID:          inter.UserID,
		GuildID:         inter.GuildID,
		RoleIDs:         inter.RoleIDs,
		IsOwner:         inter.IsOwner,
		IsAdministrator: inter.IsAdministrator,
	}
}
