package bubbletea

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/fwojciec/coach"
	"github.com/fwojciec/coach/goldmark"
)

type entryKind int

const (
	entryUser entryKind = iota
	entryCoach
	entrySafety
	entryNotice
	entryError
)

// entry is one rendered item in the transcript.
type entry struct {
	kind entryKind
	text string
}

func entriesFrom(msgs []coach.Message) []entry {
	out := make([]entry, 0, len(msgs))
	for _, m := range msgs {
		switch m.Role {
		case coach.RoleUser:
			out = append(out, entry{kind: entryUser, text: m.Content})
		case coach.RoleAssistant:
			out = append(out, entry{kind: entryCoach, text: m.Content})
		}
	}
	return out
}

func (e entry) view(width int, s Styles, md *goldmark.Renderer) string {
	wrap := lipgloss.NewStyle().Width(max(width, 10))
	switch e.kind {
	case entryUser:
		return s.UserMsg.Render("You") + "\n" + wrap.Render(e.text)
	case entryCoach:
		return s.Coach.Render("Coach") + "\n" + md.Render(e.text, width)
	case entrySafety:
		return s.Safety.Render("Coach") + "\n" + s.Safety.Render(wrap.Render(e.text))
	case entryError:
		return s.Error.Render(wrap.Render(e.text))
	default:
		return s.Notice.Render(wrap.Render(e.text))
	}
}

func renderEntries(entries []entry, width int, s Styles, md *goldmark.Renderer) string {
	views := make([]string, len(entries))
	for i, e := range entries {
		views[i] = strings.TrimRight(e.view(width, s, md), " \n")
	}
	return strings.Join(views, "\n\n")
}
