package bubbletea

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/fwojciec/coach"
	"github.com/fwojciec/coach/goldmark"
)

// Styles maps a Theme to lipgloss styles for TUI rendering.
type Styles struct {
	UserMsg lipgloss.Style
	Coach   lipgloss.Style
	Safety  lipgloss.Style
	Notice  lipgloss.Style
	Error   lipgloss.Style
	Muted   lipgloss.Style
	Accent  lipgloss.Style
}

// NewStyles creates Styles from a Theme.
func NewStyles(t coach.Theme) Styles {
	return Styles{
		UserMsg: lipgloss.NewStyle().Foreground(goldmark.Color(t.UserMsg)).Bold(true),
		Coach:   lipgloss.NewStyle().Foreground(goldmark.Color(t.Coach)).Bold(true),
		Safety:  lipgloss.NewStyle().Foreground(goldmark.Color(t.Safety)),
		Notice:  lipgloss.NewStyle().Foreground(goldmark.Color(t.Notice)),
		Error:   lipgloss.NewStyle().Foreground(goldmark.Color(t.Error)),
		Muted:   lipgloss.NewStyle().Foreground(goldmark.Color(t.Muted)).Faint(true),
		Accent:  lipgloss.NewStyle().Foreground(goldmark.Color(t.Accent)).Bold(true),
	}
}
