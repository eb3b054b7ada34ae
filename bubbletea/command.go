package bubbletea

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fwojciec/coach/orchestrator"
	"github.com/mattn/go-runewidth"
)

const helpText = `Commands:
/new [topic]     start a new conversation (topics: %s)
/sessions        list past conversations
/open <n>        reopen conversation n from /sessions
/rename <title>  rename this conversation
/delete          delete this conversation
/summary         summarize this conversation
/fav [title]     save the last summary or reply
/favorites       list saved advice
/restore         restore purchases and free questions
/quit            leave`

// runCommand executes a slash command typed into the input.
func (m Model) runCommand(line string) (tea.Model, tea.Cmd) {
	name, arg, _ := strings.Cut(strings.TrimPrefix(line, "/"), " ")
	arg = strings.TrimSpace(arg)
	ctx := m.ctx

	switch strings.ToLower(name) {
	case "quit", "exit", "q":
		return m, tea.Quit

	case "help", "?":
		return m.notice(fmt.Sprintf(helpText, strings.Join(orchestrator.Topics(), ", "))), nil

	case "new":
		if arg != "" && !slices.Contains(orchestrator.Topics(), arg) {
			return m.notice(fmt.Sprintf("Unknown topic %q. Try one of: %s.", arg, strings.Join(orchestrator.Topics(), ", "))), nil
		}
		m.busy = true
		return m, m.start(arg)

	case "sessions":
		m.listed = m.coach.Sessions(ctx)
		if len(m.listed) == 0 {
			return m.notice("No conversations yet."), nil
		}
		return m.notice(m.sessionList()), nil

	case "open":
		if len(m.listed) == 0 {
			m.listed = m.coach.Sessions(ctx)
		}
		n, err := strconv.Atoi(arg)
		if err != nil || n < 1 || n > len(m.listed) {
			return m.notice("Usage: /open <n>, where n is a number from /sessions."), nil
		}
		return m.open(m.listed[n-1].ID), nil

	case "rename":
		if err := m.coach.Rename(ctx, m.session.ID, arg); err != nil {
			return m.fail(err), nil
		}
		m.session.Title = arg
		return m.notice("Renamed to " + strconv.Quote(arg) + "."), nil

	case "delete":
		if err := m.coach.Delete(ctx, m.session.ID); err != nil {
			return m.fail(err), nil
		}
		m.listed = nil
		m.busy = true
		return m.notice("Conversation deleted."), m.start("")

	case "summary":
		sctx, cancel := context.WithCancel(ctx)
		m.cancel = cancel
		m.busy = true
		m.Input.Blur()
		c, id := m.coach, m.session.ID
		m.status = "Writing a summary..."
		return m, func() tea.Msg {
			defer cancel()
			summary, err := c.Summarize(sctx, id)
			return SummaryMsg{Summary: summary, Err: err}
		}

	case "fav", "favorite", "save":
		if m.advice == "" {
			return m.notice("Nothing to save yet. Ask a question or type /summary first."), nil
		}
		fav, err := m.coach.AddFavorite(ctx, m.session.ID, arg, m.advice)
		if err != nil {
			return m.fail(err), nil
		}
		return m.notice("Saved to favorites as " + strconv.Quote(fav.Title) + "."), nil

	case "favorites", "favs":
		favs := m.coach.Favorites(ctx)
		if len(favs) == 0 {
			return m.notice("No saved advice yet."), nil
		}
		var b strings.Builder
		for i, f := range favs {
			if i > 0 {
				b.WriteString("\n\n")
			}
			fmt.Fprintf(&b, "%s (%s)\n%s", f.Title, f.CreatedAt.Format("Jan 2"), f.Summary)
		}
		m.entries = append(m.entries, entry{kind: entryCoach, text: b.String()})
		return m.refresh(), nil

	case "restore":
		if err := m.coach.Restore(ctx); err != nil {
			return m.fail(err), nil
		}
		return m.notice("Purchases restored. Your free questions are available again."), nil
	}
	return m.notice(fmt.Sprintf("Unknown command /%s. Type /help for a list.", name)), nil
}

func (m Model) open(id string) Model {
	for _, s := range m.listed {
		if s.ID == id {
			m.session = s
			break
		}
	}
	m.entries = entriesFrom(m.coach.Messages(m.ctx, id))
	m.advice = ""
	if len(m.entries) == 0 {
		m.entries = append(m.entries, entry{kind: entryNotice, text: "This conversation is empty. Say hello!"})
	}
	return m.refresh()
}

// sessionList renders m.listed as numbered lines fitted to the viewport.
func (m Model) sessionList() string {
	width := max(m.Viewport.Width, 20)
	var b strings.Builder
	b.WriteString("Your conversations:")
	for i, s := range m.listed {
		date := s.UpdatedAt.Format("Jan 2 15:04")
		prefix := fmt.Sprintf("%2d. ", i+1)
		room := width - runewidth.StringWidth(prefix) - runewidth.StringWidth(date) - 2
		title := runewidth.FillRight(runewidth.Truncate(s.Title, max(room, 1), "…"), max(room, 1))
		marker := " "
		if s.ID == m.session.ID {
			marker = "*"
		}
		fmt.Fprintf(&b, "\n%s%s%s %s", prefix, title, marker, date)
	}
	b.WriteString("\nType /open <n> to continue one.")
	return b.String()
}

func (m Model) notice(text string) Model {
	m.entries = append(m.entries, entry{kind: entryNotice, text: text})
	return m.refresh()
}
