// Package interaction defines the contract between the bot core and the chat
// transport: inbound interaction events, outbound structured prompts, and the
// collaborator interfaces the transport must implement. The core never touches
// the connection that delivers these events.
package interaction

import (
	"context"
	"errors"
	"time"
)

// Kind discriminates inbound interaction events.
type Kind string

const (
	// KindCommand is a slash-command invocation.
	KindCommand Kind = "command"
	// KindComponent is a button press or select-menu choice.
	KindComponent Kind = "component"
	// KindModal is a modal form submission.
	KindModal Kind = "modal"
)

// Interaction is one inbound event, delivered pre-authenticated by the
// transport. Role and permission fields describe the acting member within the
// guild the event originated from.
type Interaction struct {
	ID        string
	Kind      Kind
	GuildID   string // empty when the event did not originate in a guild
	GuildName string

	UserID          string
	UserName        string
	RoleIDs         []string
	IsOwner         bool
	IsAdministrator bool

	// Command fields (KindCommand).
	Command    string
	Subcommand string
	Options    map[string]string

	// Component fields (KindComponent): CustomID carries the flow token,
	// Values the select-menu selection if any.
	CustomID string
	Values   []string

	// Modal fields (KindModal): CustomID carries the flow token, Inputs the
	// submitted text fields keyed by input custom ID.
	Inputs map[string]string
}

// Field is one name/value pair rendered inside a prompt.
type Field struct {
	Name   string
	Value  string
	Inline bool
}

// ButtonStyle selects the visual treatment of a button.
type ButtonStyle string

const (
	ButtonPrimary   ButtonStyle = "primary"
	ButtonSecondary ButtonStyle = "secondary"
	ButtonDanger    ButtonStyle = "danger"
)

// Button is a pressable component with a stable identifier.
type Button struct {
	CustomID string
	Label    string
	Style    ButtonStyle
}

// SelectOption is one entry of an enumerated choice menu.
type SelectOption struct {
	Label       string
	Value       string
	Description string
}

// Select is an enumerated single-choice menu.
type Select struct {
	CustomID    string
	Placeholder string
	Options     []SelectOption
}

// TextInput is one free-text field of a modal.
type TextInput struct {
	CustomID    string
	Label       string
	Placeholder string
	Value       string
	MinLength   int
	MaxLength   int
	Required    bool
}

// Modal is a free-text form; its CustomID carries the flow token.
type Modal struct {
	CustomID string
	Title    string
	Inputs   []TextInput
}

// Prompt is one outbound structured message. Rendering (embeds, colors,
// localization niceties) is the presentation collaborator's concern.
type Prompt struct {
	Title   string
	Body    string
	Color   int
	Fields  []Field
	Footer  string
	Select  *Select
	Buttons []Button
}

// MessageRef identifies a previously sent message so later interactions
// against its components can be awaited or the message edited.
type MessageRef struct {
	ChannelID string
	MessageID string
}

// ActionResult is the structured outcome of a guarded action.
type ActionResult struct {
	Success bool
	Message string
}

// ErrAwaitTimeout is returned by Awaiter implementations when no matching
// interaction arrives within the window.
var ErrAwaitTimeout = errors.New("interaction: await timed out")

// Responder sends outbound UI on behalf of the core.
type Responder interface {
	// Reply answers the given interaction with a new message.
	Reply(ctx context.Context, inter Interaction, p Prompt) (MessageRef, error)
	// Update edits the message the interaction's component belongs to.
	Update(ctx context.Context, inter Interaction, p Prompt) error
	// ShowModal opens a modal form in response to the interaction.
	ShowModal(ctx context.Context, inter Interaction, m Modal) error
}

// Awaiter blocks for the next component interaction against msg issued by
// userID. Implementations must filter out every other user and return
// ErrAwaitTimeout once the window elapses.
type Awaiter interface {
	AwaitComponent(ctx context.Context, msg MessageRef, userID string, window time.Duration) (Interaction, error)
}
