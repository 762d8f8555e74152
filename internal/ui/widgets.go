package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

func header(symbol, message string) string {
	return activeStyle.Render(symbol) + " " + titleStyle.Render(message) + "\n"
}

func isCancelKey(key string) bool {
	return key == "ctrl+c" || key == "esc" || key == "ctrl+d"
}

type selectModel struct {
	message string
	options []string
	cursor  int
	done    bool
	aborted bool
}

func newSelectModel(message string, options []string) selectModel {
	return selectModel{message: message, options: options}
}

func (m selectModel) Init() tea.Cmd { return nil }

func (m selectModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch k := key.String(); {
	case isCancelKey(k):
		m.aborted = true
		return m, tea.Quit
	case k == "up" || k == "k":
		if m.cursor > 0 {
			m.cursor--
		} else {
			m.cursor = len(m.options) - 1
		}
	case k == "down" || k == "j" || k == "tab":
		if m.cursor < len(m.options)-1 {
			m.cursor++
		} else {
			m.cursor = 0
		}
	case k == "enter":
		if len(m.options) > 0 {
			m.done = true
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m selectModel) View() string {
	switch {
	case m.aborted:
		return header(symbolCancel, m.message) + mutedStyle.Render(symbolStep+" cancelled") + "\n"
	case m.done:
		return header(symbolDone, m.message) + mutedStyle.Render(symbolStep+" "+m.choice()) + "\n"
	}

	var b strings.Builder
	b.WriteString(header(symbolActive, m.message))
	for i, opt := range m.options {
		if i == m.cursor {
			b.WriteString(activeStyle.Render(symbolStep) + " " + selectedStyle.Render(symbolOn+" "+opt) + "\n")
			continue
		}
		b.WriteString(activeStyle.Render(symbolStep) + " " + mutedStyle.Render(symbolOff+" "+opt) + "\n")
	}
	return b.String()
}

func (m selectModel) cancelled() bool { return m.aborted }

func (m selectModel) choice() string {
	if m.cursor < 0 || m.cursor >= len(m.options) {
		return ""
	}
	return m.options[m.cursor]
}

type textModel struct {
	message string
	input   textinput.Model
	masked  bool
	done    bool
	aborted bool
}

func newTextModel(message, placeholder string, masked bool) textModel {
	in := textinput.New()
	in.Prompt = symbolStep + " "
	in.Placeholder = placeholder
	in.CharLimit = 4000
	if masked {
		in.EchoMode = textinput.EchoPassword
		in.EchoCharacter = '•'
	}
	in.Focus()
	return textModel{message: message, input: in, masked: masked}
}

func (m textModel) Init() tea.Cmd { return textinput.Blink }

func (m textModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch k := key.String(); {
		case isCancelKey(k):
			m.aborted = true
			return m, tea.Quit
		case k == "enter":
			m.done = true
			return m, tea.Quit
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m textModel) View() string {
	switch {
	case m.aborted:
		return header(symbolCancel, m.message) + mutedStyle.Render(symbolStep+" cancelled") + "\n"
	case m.done:
		shown := m.value()
		if m.masked {
			shown = strings.Repeat("•", len([]rune(shown)))
		}
		return header(symbolDone, m.message) + mutedStyle.Render(symbolStep+" "+shown) + "\n"
	}
	return header(symbolActive, m.message) + m.input.View() + "\n"
}

func (m textModel) cancelled() bool { return m.aborted }

func (m textModel) value() string { return strings.TrimSpace(m.input.Value()) }

type confirmModel struct {
	message string
	yes     bool
	done    bool
	aborted bool
}

func newConfirmModel(message string) confirmModel {
	return confirmModel{message: message, yes: true}
}

func (m confirmModel) Init() tea.Cmd { return nil }

func (m confirmModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch k := key.String(); {
	case isCancelKey(k):
		m.aborted = true
		return m, tea.Quit
	case k == "left" || k == "right" || k == "h" || k == "l" || k == "tab":
		m.yes = !m.yes
	case k == "y" || k == "Y":
		m.yes, m.done = true, true
		return m, tea.Quit
	case k == "n" || k == "N":
		m.yes, m.done = false, true
		return m, tea.Quit
	case k == "enter":
		m.done = true
		return m, tea.Quit
	}
	return m, nil
}

func (m confirmModel) View() string {
	answer := "No"
	if m.yes {
		answer = "Yes"
	}
	switch {
	case m.aborted:
		return header(symbolCancel, m.message) + mutedStyle.Render(symbolStep+" cancelled") + "\n"
	case m.done:
		return header(symbolDone, m.message) + mutedStyle.Render(symbolStep+" "+answer) + "\n"
	}

	yes, no := mutedStyle.Render(symbolOff+" Yes"), mutedStyle.Render(symbolOff+" No")
	if m.yes {
		yes = selectedStyle.Render(symbolOn + " Yes")
	} else {
		no = selectedStyle.Render(symbolOn + " No")
	}
	return header(symbolActive, m.message) + activeStyle.Render(symbolStep) + " " + yes + " / " + no + "\n"
}

func (m confirmModel) cancelled() bool { return m.aborted }
