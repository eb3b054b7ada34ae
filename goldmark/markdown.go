// Package goldmark renders coach replies, which are written in light
// markdown, as styled terminal text. Parsing is done by goldmark and
// styling by lipgloss.
package goldmark

import (
	"bytes"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/fwojciec/coach"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/text"
)

// DefaultWidth is used when the caller passes a non-positive width.
const DefaultWidth = 80

// Renderer turns markdown into styled, word-wrapped terminal text.
// A Renderer is safe for concurrent use.
type Renderer struct {
	parser goldmark.Markdown
	styles styles
}

// New returns a Renderer that colors output with theme.
func New(theme coach.Theme) *Renderer {
	return &Renderer{
		parser: goldmark.New(),
		styles: newStyles(theme),
	}
}

// Render parses source and returns styled output wrapped to width.
// Trailing blank lines are trimmed.
func (r *Renderer) Render(source string, width int) string {
	if strings.TrimSpace(source) == "" {
		return ""
	}
	if width <= 0 {
		width = DefaultWidth
	}
	src := []byte(source)
	doc := r.parser.Parser().Parse(text.NewReader(src))
	w := &writer{styles: r.styles, source: src}
	w.blocks(doc, width)
	return strings.TrimRight(w.buf.String(), "\n")
}

// Render is a convenience wrapper around New(theme).Render.
func Render(source string, width int, theme coach.Theme) string {
	return New(theme).Render(source, width)
}

type styles struct {
	strong  lipgloss.Style
	em      lipgloss.Style
	heading lipgloss.Style
	quote   lipgloss.Style
	muted   lipgloss.Style
	link    lipgloss.Style
}

func newStyles(theme coach.Theme) styles {
	return styles{
		strong:  lipgloss.NewStyle().Bold(true),
		em:      lipgloss.NewStyle().Italic(true),
		heading: lipgloss.NewStyle().Foreground(Color(theme.Accent)).Bold(true),
		quote:   lipgloss.NewStyle().Foreground(Color(theme.Coach)),
		muted:   lipgloss.NewStyle().Foreground(Color(theme.Muted)).Faint(true),
		link:    lipgloss.NewStyle().Underline(true),
	}
}

// Color maps an ANSI palette index to a lipgloss color. Negative indices
// mean "use the terminal default".
func Color(index int) lipgloss.TerminalColor {
	if index < 0 {
		return lipgloss.NoColor{}
	}
	return lipgloss.ANSIColor(uint(index))
}

type writer struct {
	styles styles
	source []byte
	buf    bytes.Buffer
}
