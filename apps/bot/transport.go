package main

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/moniware/monibot/platform/go/interaction"
)

// Transport is the chat-platform collaborator: it delivers inbound
// interactions into the dispatch callback and implements the outbound
// surfaces the core depends on. The gateway adapter that holds the actual
// connection satisfies this interface; it is linked in at wiring time.
type Transport interface {
	interaction.Responder
	interaction.Awaiter

	// ApplyNickname applies the configured bot name in a guild.
	ApplyNickname(ctx context.Context, guildID, name string) error

	// Run pumps inbound interactions into dispatch until ctx is cancelled.
	Run(ctx context.Context, dispatch func(context.Context, interaction.Interaction) error) error
}

// dryRunTransport is the development stand-in used when no gateway adapter
// is wired: outbound prompts are logged instead of rendered, nothing inbound
// ever arrives, and every await times out. It keeps the process runnable so
// the admin surface and persistence layer can be exercised locally.
type dryRunTransport struct {
	logger *zap.Logger
}

func newDryRunTransport(logger *zap.Logger) *dryRunTransport {
	return &dryRunTransport{logger: logger.Named("dryrun-transport")}
}

func (t *dryRunTransport) Reply(ctx context.Context, inter interaction.Interaction, p interaction.Prompt) (interaction.MessageRef, error) {
	t.logger.Info("reply", zap.String("interaction_id", inter.ID), zap.String("title", p.Title), zap.String("body", p.Body))
	return interaction.MessageRef{ChannelID: "dryrun", MessageID: inter.ID}, nil
}

func (t *dryRunTransport) Update(ctx context.Context, inter interaction.Interaction, p interaction.Prompt) error {
	t.logger.Info("update", zap.String("interaction_id", inter.ID), zap.String("title", p.Title), zap.String("body", p.Body))
	return nil
}

func (t *dryRunTransport) ShowModal(ctx context.Context, inter interaction.Interaction, m interaction.Modal) error {
	t.logger.Info("show modal", zap.String("interaction_id", inter.ID), zap.String("custom_id", m.CustomID))
	return nil
}

func (t *dryRunTransport) AwaitComponent(ctx context.Context, msg interaction.MessageRef, userID string, window time.Duration) (interaction.Interaction, error) {
	select {
	case <-ctx.Done():
		return interaction.Interaction{}, ctx.Err()
	case <-time.After(window):
		return interaction.Interaction{}, interaction.ErrAwaitTimeout
	}
}

func (t *dryRunTransport) ApplyNickname(ctx context.Context, guildID, name string) error {
	t.logger.Info("apply nickname", zap.String("guild_id", guildID), zap.String("name", name))
	return nil
}

func (t *dryRunTransport) Run(ctx context.Context, dispatch func(context.Context, interaction.Interaction) error) error {
	<-ctx.Done()
	return nil
}

var _ Transport = (*dryRunTransport)(nil)
