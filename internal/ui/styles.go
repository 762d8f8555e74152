// Package ui renders the terminal side of a session: the banner, the
// interactive prompts and the progress spinner.
package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	cyan    = lipgloss.Color("#61dafb")
	magenta = lipgloss.Color("#ff71ce")
	green   = lipgloss.Color("#05ffa1")
	gray    = lipgloss.Color("#8b949e")
	red     = lipgloss.Color("#ff5f56")

	logoStyle     = lipgloss.NewStyle().Foreground(magenta).Bold(true)
	titleStyle    = lipgloss.NewStyle().Bold(true)
	mutedStyle    = lipgloss.NewStyle().Foreground(gray)
	activeStyle   = lipgloss.NewStyle().Foreground(cyan)
	selectedStyle = lipgloss.NewStyle().Foreground(green)
	errorStyle    = lipgloss.NewStyle().Foreground(red)
)

// Symbols shared by prompts and spinner lines.
const (
	symbolActive = "◆"
	symbolDone   = "◇"
	symbolCancel = "■"
	symbolStep   = "│"
	symbolOn     = "●"
	symbolOff    = "○"
)

const logo = `
  ██████╗ █████╗ ██╗     ██╗
 ██╔════╝██╔══██╗██║     ██║
 ██║     ███████║██║     ██║
 ██║     ██╔══██║██║     ██║
 ╚██████╗██║  ██║███████╗██║
  ╚═════╝╚═╝  ╚═╝╚══════╝╚═╝`

// Banner is printed once when an interactive session starts.
func Banner(provider, model string) string {
	var b strings.Builder
	b.WriteString(logoStyle.Render(logo))
	b.WriteString("\n\n")
	b.WriteString(mutedStyle.Render("AI agent for building React Native apps."))
	b.WriteString("\n\n")
	b.WriteString(mutedStyle.Render("Powered by: ") + titleStyle.Render(provider) +
		mutedStyle.Render(" ("+model+") & ") + titleStyle.Render("React Native CLI"))
	b.WriteString("\n")
	return b.String()
}

// Muted renders s in the secondary text colour.
func Muted(s string) string { return mutedStyle.Render(s) }

// Error renders s as an error line.
func Error(s string) string { return errorStyle.Render(s) }
