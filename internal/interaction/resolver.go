// Package interaction turns the model's structured messages into terminal
// prompts and collects the user's answers.
package interaction

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/cali-dev/cali/internal/protocol"
)

// ErrCancelled is returned by a Prompter when the user aborts a prompt
// (Ctrl+C, Esc, EOF).
var ErrCancelled = errors.New("prompt cancelled")

// Prompter renders the four interaction widgets.
type Prompter interface {
	Select(ctx context.Context, message string, options []string) (string, error)
	Text(ctx context.Context, message, placeholder string) (string, error)
	Confirm(ctx context.Context, message string) (bool, error)
	// Step prints a closing message without waiting for input.
	Step(message string)
}

// State is what the session is waiting on after a message is received.
type State int

const (
	AwaitingSelect State = iota
	AwaitingText
	AwaitingConfirm
	Ended
)

func (s State) String() string {
	switch s {
	case AwaitingSelect:
		return "awaiting-select"
	case AwaitingText:
		return "awaiting-text"
	case AwaitingConfirm:
		return "awaiting-confirm"
	case Ended:
		return "ended"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// StateOf returns the state a message puts the session in.
func StateOf(msg protocol.Message) (State, error) {
	switch msg.(type) {
	case protocol.Select:
		return AwaitingSelect, nil
	case protocol.Question:
		return AwaitingText, nil
	case protocol.Confirmation:
		return AwaitingConfirm, nil
	case protocol.End:
		return Ended, nil
	default:
		return Ended, fmt.Errorf("unsupported message %T", msg)
	}
}

// Answer is the user's reply. When Ended is set the session is over and Text
// is empty. Cancelled marks an end the user forced from a prompt.
type Answer struct {
	Text      string
	Ended     bool
	Cancelled bool
}

const (
	Yes = "yes"
	No  = "no"
)

// Resolver maps each structured message to one prompt.
type Resolver struct {
	prompter Prompter
}

func NewResolver(p Prompter) *Resolver {
	return &Resolver{prompter: p}
}

// Resolve shows msg to the user. Cancellation ends the session rather than
// failing it.
func (r *Resolver) Resolve(ctx context.Context, msg protocol.Message) (Answer, error) {
	state, err := StateOf(msg)
	if err != nil {
		return Answer{}, err
	}
	slog.Debug("Resolving message", "type", msg.Type(), "state", state)

	var text string
	switch m := msg.(type) {
	case protocol.Select:
		text, err = r.prompter.Select(ctx, m.Content, m.Options)
	case protocol.Question:
		text, err = r.prompter.Text(ctx, m.Content, "")
	case protocol.Confirmation:
		var ok bool
		ok, err = r.prompter.Confirm(ctx, m.Content)
		text = No
		if ok {
			text = Yes
		}
	case protocol.End:
		r.prompter.Step(m.Content)
		return Answer{Ended: true}, nil
	}

	if errors.Is(err, ErrCancelled) {
		slog.Debug("Prompt cancelled", "type", msg.Type(), "state", Ended)
		return Answer{Ended: true, Cancelled: true}, nil
	}
	if err != nil {
		return Answer{}, fmt.Errorf("%s prompt: %w", msg.Type(), err)
	}
	return Answer{Text: text}, nil
}
