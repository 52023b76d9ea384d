package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	guildconfigrepo "github.com/moniware/monibot/domains/guildconfig/be/repo"
	guildconfig "github.com/moniware/monibot/domains/guildconfig/be/service"
	permissions "github.com/moniware/monibot/domains/permissions/be/service"
	"github.com/moniware/monibot/platform/go/interaction"
)

type fakeResponder struct {
	replies []interaction.Prompt
	updates []interaction.Prompt
	modals  []interaction.Modal
}

func (f *fakeResponder) Reply(_ context.Context, _ interaction.Interaction, p interaction.Prompt) (interaction.MessageRef, error) {
	f.replies = append(f.replies, p)
	return interaction.MessageRef{ChannelID: "chan", MessageID: fmt.Sprintf("msg-%d", len(f.replies))}, nil
}

func (f *fakeResponder) Update(_ context.Context, _ interaction.Interaction, p interaction.Prompt) error {
	f.updates = append(f.updates, p)
	return nil
}

func (f *fakeResponder) ShowModal(_ context.Context, _ interaction.Interaction, m interaction.Modal) error {
	f.modals = append(f.modals, m)
	return nil
}

// queueAwaiter hands out scripted answers in order and times out once the
// queue is empty.
type queueAwaiter struct {
	answers []interaction.Interaction
}

func (q *queueAwaiter) AwaitComponent(context.Context, interaction.MessageRef, string, time.Duration) (interaction.Interaction, error) {
	if len(q.answers) == 0 {
		return interaction.Interaction{}, interaction.ErrAwaitTimeout
	}
	next := q.answers[0]
	q.answers = q.answers[1:]
	return next, nil
}

type nicknameRecorder struct {
	names []string
	err   error
}

func (n *nicknameRecorder) ApplyNickname(_ context.Context, _ string, name string) error {
	if n.err != nil {
		return n.err
	}
	n.names = append(n.names, name)
	return nil
}

type wizardFixture struct {
	wizard    *Wizard
	store     *guildconfig.Store
	responder *fakeResponder
	awaiter   *queueAwaiter
	nicknames *nicknameRecorder
}

func newWizardFixture(t *testing.T, existing ...guildconfig.GuildConfig) *wizardFixture {
	t.Helper()
	store := guildconfig.NewStore(guildconfigrepo.NewMemoryRepository(), zap.NewNop())
	for _, cfg := range existing {
		require.NoError(t, store.Save(context.Background(), cfg))
	}
	responder := &fakeResponder{}
	awaiter := &queueAwaiter{}
	nicknames := &nicknameRecorder{}
	return &wizardFixture{
		wizard:    NewWizard(store, permissions.NewResolver(store), responder, awaiter, nicknames, zap.NewNop()),
		store:     store,
		responder: responder,
		awaiter:   awaiter,
		nicknames: nicknames,
	}
}

func adminInteraction() interaction.Interaction {
	return interaction.Interaction{
		Kind:            interaction.KindCommand,
		GuildID:         "g1",
		GuildName:       "Guild One",
		UserID:          "admin",
		IsAdministrator: true,
		Command:         "setup",
	}
}

func configured() guildconfig.GuildConfig {
	return guildconfig.GuildConfig{
		GuildID:      "g1",
		BotName:      "OldBot",
		Timezone:     "UTC",
		Language:     guildconfig.LanguageSpanish,
		SetupBy:      "founder",
		IsConfigured: true,
	}
}

func TestWizardHappyPath(t *testing.T) {
	fx := newWizardFixture(t)
	ctx := context.Background()

	fx.awaiter.answers = []interaction.Interaction{{
		Kind:     interaction.KindComponent,
		GuildID:  "g1",
		UserID:   "admin",
		CustomID: "setup:tz",
		Values:   []string{"Europe/Madrid"},
	}}

	require.NoError(t, fx.wizard.Begin(ctx, adminInteraction()))

	// Timezone prompt went out, language step replaced it.
	require.Len(t, fx.responder.replies, 1)
	require.NotNil(t, fx.responder.replies[0].Select)
	require.Len(t, fx.responder.updates, 1)
	require.Equal(t, "setup:lang:Europe/Madrid", fx.responder.updates[0].Select.CustomID)

	require.NoError(t, fx.wizard.HandleComponent(ctx, interaction.Interaction{
		Kind:     interaction.KindComponent,
		GuildID:  "g1",
		UserID:   "admin",
		CustomID: "setup:lang:Europe/Madrid",
		Values:   []string{"es"},
	}))
	require.Len(t, fx.responder.modals, 1)
	require.Equal(t, "setup:name:Europe/Madrid:es", fx.responder.modals[0].CustomID)

	require.NoError(t, fx.wizard.HandleModal(ctx, interaction.Interaction{
		Kind:      interaction.KindModal,
		GuildID:   "g1",
		GuildName: "Guild One",
		UserID:    "admin",
		CustomID:  "setup:name:Europe/Madrid:es",
		Inputs:    map[string]string{"bot_name": "Ada"},
	}))

	cfg, err := fx.store.Get(ctx, "g1")
	require.NoError(t, err)
	require.Equal(t, "Ada", cfg.BotName)
	require.Equal(t, "Europe/Madrid", cfg.Timezone)
	require.Equal(t, guildconfig.LanguageSpanish, cfg.Language)
	require.True(t, cfg.IsConfigured)
	require.Equal(t, "admin", cfg.SetupBy)
	require.Equal(t, []string{"Ada"}, fx.nicknames.names)

	final := fx.responder.replies[len(fx.responder.replies)-1]
	require.Equal(t, "Configuración Completada", final.Title)
}

func TestWizardRequiresGuild(t *testing.T) {
	fx := newWizardFixture(t)
	inter := adminInteraction()
	inter.GuildID = ""

	require.NoError(t, fx.wizard.Begin(context.Background(), inter))
	require.Len(t, fx.responder.replies, 1)
	require.Contains(t, fx.responder.replies[0].Body, "servidor")
	require.Empty(t, fx.responder.updates)
}

func TestWizardDeniesNonAdmin(t *testing.T) {
	fx := newWizardFixture(t, configured())
	inter := adminInteraction()
	inter.IsAdministrator = false
	inter.UserID = "random"

	require.NoError(t, fx.wizard.Begin(context.Background(), inter))
	require.Len(t, fx.responder.replies, 1)
	require.Contains(t, fx.responder.replies[0].Body, "No tienes permisos")

	cfg, err := fx.store.Get(context.Background(), "g1")
	require.NoError(t, err)
	require.Equal(t, "OldBot", cfg.BotName)
}

func TestWizardTimezoneTimeoutCancels(t *testing.T) {
	fx := newWizardFixture(t)

	require.NoError(t, fx.wizard.Begin(context.Background(), adminInteraction()))

	require.Len(t, fx.responder.updates, 1)
	require.Contains(t, fx.responder.updates[0].Body, "cancelada")

	_, err := fx.store.Get(context.Background(), "g1")
	require.ErrorIs(t, err, guildconfig.ErrNotFound)
}

func TestWizardReconfirmNoLeavesConfigUntouched(t *testing.T) {
	fx := newWizardFixture(t, configured())
	before, err := fx.store.Get(context.Background(), "g1")
	require.NoError(t, err)

	fx.awaiter.answers = []interaction.Interaction{{
		Kind:     interaction.KindComponent,
		GuildID:  "g1",
		UserID:   "admin",
		CustomID: "setup:cancel",
	}}

	require.NoError(t, fx.wizard.Begin(context.Background(), adminInteraction()))

	require.Len(t, fx.responder.updates, 1)
	require.Equal(t, "Configuración cancelada.", fx.responder.updates[0].Body)

	after, err := fx.store.Get(context.Background(), "g1")
	require.NoError(t, err)
	require.Equal(t, before, after)
}

func TestWizardReconfirmTimeoutCancels(t *testing.T) {
	fx := newWizardFixture(t, configured())

	require.NoError(t, fx.wizard.Begin(context.Background(), adminInteraction()))

	require.Len(t, fx.responder.updates, 1)
	require.Contains(t, fx.responder.updates[0].Body, "agotado")

	after, err := fx.store.Get(context.Background(), "g1")
	require.NoError(t, err)
	require.Equal(t, "OldBot", after.BotName)
}

func TestWizardReconfirmYesProceedsToTimezone(t *testing.T) {
	fx := newWizardFixture(t, configured())
	fx.awaiter.answers = []interaction.Interaction{
		{Kind: interaction.KindComponent, GuildID: "g1", UserID: "admin", CustomID: "setup:again"},
		{Kind: interaction.KindComponent, GuildID: "g1", UserID: "admin", CustomID: "setup:tz", Values: []string{"UTC"}},
	}

	require.NoError(t, fx.wizard.Begin(context.Background(), adminInteraction()))

	// Reconfirm prompt, then timezone select.
	require.Len(t, fx.responder.replies, 2)
	require.Len(t, fx.responder.replies[0].Buttons, 2)
	require.NotNil(t, fx.responder.replies[1].Select)
	// Acknowledgement, then language step.
	require.Len(t, fx.responder.updates, 2)
	require.Equal(t, "setup:lang:UTC", fx.responder.updates[1].Select.CustomID)
}

func TestHandleComponentIgnoresForeignAndInvalid(t *testing.T) {
	fx := newWizardFixture(t)
	ctx := context.Background()

	for _, inter := range []interaction.Interaction{
		{CustomID: "confirm:yes", GuildID: "g1", Values: []string{"x"}},
		{CustomID: "setup:tz", GuildID: "g1", Values: []string{"Mars/Olympus"}},
		{CustomID: "setup:tz", GuildID: "", Values: []string{"UTC"}},
		{CustomID: "setup:tz", GuildID: "g1"},
		{CustomID: "setup:lang:UTC", GuildID: "g1", Values: []string{"fr"}},
	} {
		require.NoError(t, fx.wizard.HandleComponent(ctx, inter))
	}

	require.Empty(t, fx.responder.replies)
	require.Empty(t, fx.responder.updates)
	require.Empty(t, fx.responder.modals)
}

func TestHandleModalRejectsBadName(t *testing.T) {
	fx := newWizardFixture(t)
	ctx := context.Background()

	for _, name := range []string{"", "   ", strings.Repeat("a", 51)} {
		require.NoError(t, fx.wizard.HandleModal(ctx, interaction.Interaction{
			Kind:     interaction.KindModal,
			GuildID:  "g1",
			UserID:   "admin",
			CustomID: "setup:name:UTC:es",
			Inputs:   map[string]string{"bot_name": name},
		}))
	}

	require.Len(t, fx.responder.replies, 3)
	for _, p := range fx.responder.replies {
		require.Contains(t, p.Body, "entre 1 y 50")
	}
	_, err := fx.store.Get(ctx, "g1")
	require.ErrorIs(t, err, guildconfig.ErrNotFound)
}

func TestHandleModalCountsNameLengthInRunes(t *testing.T) {
	fx := newWizardFixture(t)
	ctx := context.Background()

	// 50 runes, twice as many bytes.
	name := strings.Repeat("ñ", 50)
	require.NoError(t, fx.wizard.HandleModal(ctx, interaction.Interaction{
		Kind:      interaction.KindModal,
		GuildID:   "g1",
		GuildName: "Guild One",
		UserID:    "admin",
		CustomID:  "setup:name:UTC:es",
		Inputs:    map[string]string{"bot_name": name},
	}))

	cfg, err := fx.store.Get(ctx, "g1")
	require.NoError(t, err)
	require.Equal(t, name, cfg.BotName)

	require.NoError(t, fx.wizard.HandleModal(ctx, interaction.Interaction{
		Kind:     interaction.KindModal,
		GuildID:  "g1",
		UserID:   "admin",
		CustomID: "setup:name:UTC:es",
		Inputs:   map[string]string{"bot_name": strings.Repeat("ñ", 51)},
	}))
	last := fx.responder.replies[len(fx.responder.replies)-1]
	require.Contains(t, last.Body, "entre 1 y 50")
}

func TestHandleModalNicknameFailureStillSaves(t *testing.T) {
	fx := newWizardFixture(t)
	fx.nicknames.err = errors.New("missing permission")
	ctx := context.Background()

	require.NoError(t, fx.wizard.HandleModal(ctx, interaction.Interaction{
		Kind:      interaction.KindModal,
		GuildID:   "g1",
		GuildName: "Guild One",
		UserID:    "admin",
		CustomID:  "setup:name:UTC:en",
		Inputs:    map[string]string{"bot_name": "Helper"},
	}))

	cfg, err := fx.store.Get(ctx, "g1")
	require.NoError(t, err)
	require.Equal(t, "Helper", cfg.BotName)
	require.True(t, cfg.IsConfigured)

	final := fx.responder.replies[len(fx.responder.replies)-1]
	require.Equal(t, "Configuración Completada", final.Title)
}
