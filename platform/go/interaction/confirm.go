package interaction

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// DefaultConfirmWindow bounds how long a confirmation stays actionable.
const DefaultConfirmWindow = 30 * time.Second

var confirmCodec = NewCodec("confirm", map[string]int{
	"yes": 0,
	"no":  0,
})

// Confirmation parameterizes one run of the gate: the embed copy shown before
// the guarded action, and the copy for each outcome.
type Confirmation struct {
	Prompt       Prompt // confirm/cancel buttons are appended by the gate
	ConfirmLabel string
	CancelLabel  string
	Window       time.Duration // zero means DefaultConfirmWindow

	WorkingTitle     string
	SuccessTitle     string
	FailureTitle     string
	CancelledMessage string
	TimeoutMessage   string
}

// Gate implements the generic confirm-within-a-window pattern shared by every
// destructive command: present two buttons, accept a response only from the
// original requester, and run the guarded action on an affirmative answer.
type Gate struct {
	responder Responder
	awaiter   Awaiter
	logger    *zap.Logger
}

// NewGate constructs a Gate with required collaborators.
func NewGate(responder Responder, awaiter Awaiter, logger *zap.Logger) *Gate {
	if responder == nil || awaiter == nil {
		panic("interaction: gate collaborators are required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gate{responder: responder, awaiter: awaiter, logger: logger}
}

// Run drives one confirmation round-trip. A negative answer or an elapsed
// window reports cancellation and never touches the action; an affirmative
// answer runs the action exactly once and reports its structured result.
// The returned error covers transport failures only.
func (g *Gate) Run(ctx context.Context, inter Interaction, conf Confirmation, action func(context.Context) (ActionResult, error)) error {
	yesID, err := confirmCodec.Encode("yes")
	if err != nil {
		return err
	}
	noID, err := confirmCodec.Encode("no")
	if err != nil {
		return err
	}

	prompt := conf.Prompt
	prompt.Buttons = append(prompt.Buttons,
		Button{CustomID: yesID, Label: conf.ConfirmLabel, Style: ButtonDanger},
		Button{CustomID: noID, Label: conf.CancelLabel, Style: ButtonSecondary},
	)

	msg, err := g.responder.Reply(ctx, inter, prompt)
	if err != nil {
		return fmt.Errorf("send confirmation prompt: %w", err)
	}

	window := conf.Window
	if window <= 0 {
		window = DefaultConfirmWindow
	}

	answer, err := g.awaiter.AwaitComponent(ctx, msg, inter.UserID, window)
	if err != nil {
		if errors.Is(err, ErrAwaitTimeout) {
			return g.responder.Update(ctx, inter, Prompt{Body: conf.TimeoutMessage})
		}
		return fmt.Errorf("await confirmation: %w", err)
	}

	tok, err := confirmCodec.Decode(answer.CustomID)
	if err != nil || tok.Step != "yes" {
		// Anything other than an explicit yes cancels.
		return g.responder.Update(ctx, answer, Prompt{Body: conf.CancelledMessage})
	}

	if err := g.responder.Update(ctx, answer, Prompt{Title: conf.WorkingTitle}); err != nil {
		return fmt.Errorf("acknowledge confirmation: %w", err)
	}

	result, err := action(ctx)
	if err != nil {
		g.logger.Error("guarded action failed", zap.Error(err))
		return g.responder.Update(ctx, answer, Prompt{
			Title: conf.FailureTitle,
			Body:  err.Error(),
		})
	}

	title := conf.SuccessTitle
	if !result.Success {
		title = conf.FailureTitle
	}
	return g.responder.Update(ctx, answer, Prompt{
		Title:  title,
		Fields: []Field{{Name: "Resultado", Value: result.Message}},
	})
}
