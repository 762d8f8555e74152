package ui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"

	"github.com/cali-dev/cali/internal/interaction"
)

// Prompter is the interaction prompter plus the masked input used for API
// keys.
type Prompter interface {
	interaction.Prompter
	Password(ctx context.Context, message string) (string, error)
}

// Progress reports what the agent is doing while the user waits.
type Progress interface {
	Start(message string)
	Message(message string)
	Stop(message string)
}

// IsTerminal reports whether f is attached to a terminal.
func IsTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// New returns the bubbletea widgets when both ends are terminals and the
// line-based fallback otherwise.
func New(in, out *os.File) (Prompter, Progress) {
	if IsTerminal(in) && IsTerminal(out) {
		return NewTUI(in, out), NewSpinner(out)
	}
	return NewPlain(in, out), NewLineProgress(out)
}

// TUI runs one short-lived bubbletea program per prompt.
type TUI struct {
	in  io.Reader
	out io.Writer
}

func NewTUI(in io.Reader, out io.Writer) *TUI {
	return &TUI{in: in, out: out}
}

// outcome is implemented by every prompt model.
type outcome interface {
	tea.Model
	cancelled() bool
}

func (t *TUI) run(ctx context.Context, m outcome) (tea.Model, error) {
	p := tea.NewProgram(m,
		tea.WithContext(ctx),
		tea.WithInput(t.in),
		tea.WithOutput(t.out),
		tea.WithoutSignalHandler(),
	)
	final, err := p.Run()
	if err != nil {
		if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("run prompt: %w", err)
	}
	if final.(outcome).cancelled() {
		return nil, interaction.ErrCancelled
	}
	return final, nil
}

func (t *TUI) Select(ctx context.Context, message string, options []string) (string, error) {
	final, err := t.run(ctx, newSelectModel(message, options))
	if err != nil {
		return "", err
	}
	return final.(selectModel).choice(), nil
}

func (t *TUI) Text(ctx context.Context, message, placeholder string) (string, error) {
	final, err := t.run(ctx, newTextModel(message, placeholder, false))
	if err != nil {
		return "", err
	}
	return final.(textModel).value(), nil
}

func (t *TUI) Password(ctx context.Context, message string) (string, error) {
	final, err := t.run(ctx, newTextModel(message, "", true))
	if err != nil {
		return "", err
	}
	return final.(textModel).value(), nil
}

func (t *TUI) Confirm(ctx context.Context, message string) (bool, error) {
	final, err := t.run(ctx, newConfirmModel(message))
	if err != nil {
		return false, err
	}
	return final.(confirmModel).yes, nil
}

func (t *TUI) Step(message string) {
	fmt.Fprintf(t.out, "%s %s\n", activeStyle.Render(symbolDone), message)
}
