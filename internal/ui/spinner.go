package ui

import (
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

type (
	spinnerText string
	spinnerStop string
)

type spinnerModel struct {
	spin    spinner.Model
	message string
	final   string
	stopped bool
}

func newSpinnerModel(message string) spinnerModel {
	sp := spinner.New()
	sp.Spinner = spinner.Points
	sp.Style = activeStyle
	return spinnerModel{spin: sp, message: message}
}

func (m spinnerModel) Init() tea.Cmd { return m.spin.Tick }

func (m spinnerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case spinnerText:
		m.message = string(msg)
		return m, nil
	case spinnerStop:
		m.final = string(msg)
		m.stopped = true
		return m, tea.Quit
	}
	var cmd tea.Cmd
	m.spin, cmd = m.spin.Update(msg)
	return m, cmd
}

func (m spinnerModel) View() string {
	if m.stopped {
		if m.final == "" {
			return ""
		}
		return activeStyle.Render(symbolDone) + " " + m.final + "\n"
	}
	return m.spin.View() + " " + m.message
}

// Spinner animates while the model thinks. It owns the output only between
// Start and Stop so tools that stream to the terminal can run in between.
type Spinner struct {
	out io.Writer

	mu   sync.Mutex
	prog *tea.Program
	done chan struct{}
}

func NewSpinner(out io.Writer) *Spinner {
	return &Spinner{out: out}
}

func (s *Spinner) Start(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.prog != nil {
		s.prog.Send(spinnerText(message))
		return
	}

	p := tea.NewProgram(newSpinnerModel(message),
		tea.WithOutput(s.out),
		tea.WithInput(nil),
		tea.WithoutSignalHandler(),
	)
	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = p.Run()
	}()
	s.prog, s.done = p, done
}

func (s *Spinner) Message(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.prog != nil {
		s.prog.Send(spinnerText(message))
	}
}

// Stop replaces the spinner with message. Calling Stop on an idle spinner
// just prints message.
func (s *Spinner) Stop(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.prog == nil {
		if message != "" {
			fmt.Fprintf(s.out, "%s %s\n", activeStyle.Render(symbolDone), message)
		}
		return
	}
	s.prog.Send(spinnerStop(message))
	<-s.done
	s.prog, s.done = nil, nil
}

// LineProgress prints progress as plain lines for logs and pipes.
type LineProgress struct {
	out io.Writer
	mu  sync.Mutex
}

func NewLineProgress(out io.Writer) *LineProgress {
	return &LineProgress{out: out}
}

func (l *LineProgress) Start(message string)   { l.line(symbolStep, message) }
func (l *LineProgress) Message(message string) { l.line(symbolStep, message) }
func (l *LineProgress) Stop(message string)    { l.line(symbolDone, message) }

func (l *LineProgress) line(symbol, message string) {
	if message == "" {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.out, "%s %s\n", symbol, message)
}
