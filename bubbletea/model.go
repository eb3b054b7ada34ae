package bubbletea

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/fwojciec/coach"
	"github.com/fwojciec/coach/goldmark"
	"github.com/fwojciec/coach/orchestrator"
	"github.com/mattn/go-runewidth"
)

var _ tea.Model = Model{}

// Model is the Bubble Tea model for the coach TUI.
type Model struct {
	// Input is the text input component. Exported for test access.
	Input textinput.Model
	// Viewport is the scrollable transcript. Exported for test access.
	Viewport viewport.Model

	coach  Coach
	ctx    context.Context
	topic  string
	styles Styles
	md     *goldmark.Renderer

	session coach.Session
	entries []entry
	listed  []coach.Session
	// advice is the text /fav saves: the last summary, else the last reply.
	advice string

	busy   bool
	cancel context.CancelFunc
	status string
	ready  bool
}

// Option configures a [Model].
type Option func(*Model)

// WithContext sets the base context for coach calls.
func WithContext(ctx context.Context) Option {
	return func(m *Model) { m.ctx = ctx }
}

// WithTopic seeds the first session with a topic prompt.
func WithTopic(topic string) Option {
	return func(m *Model) { m.topic = topic }
}

// New creates a Model driving c, colored with theme.
func New(c Coach, theme coach.Theme, opts ...Option) Model {
	ti := textinput.New()
	ti.Placeholder = "Ask about your grandchild, or /help"
	ti.Prompt = "› "
	ti.Focus()
	ti.CharLimit = coach.MaxContentLength

	m := Model{
		Input:  ti,
		coach:  c,
		ctx:    context.Background(),
		styles: NewStyles(theme),
		md:     goldmark.New(theme),
	}
	for _, opt := range opts {
		opt(&m)
	}
	return m
}

// Session returns the session currently shown.
func (m Model) Session() coach.Session { return m.session }

// Busy reports whether a coach request is in flight.
func (m Model) Busy() bool { return m.busy }

// Transcript returns the plain text of every transcript entry.
func (m Model) Transcript() []string {
	out := make([]string, len(m.entries))
	for i, e := range m.entries {
		out[i] = e.text
	}
	return out
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.start(m.topic))
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return m.resize(msg), nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case StartedMsg:
		m.busy = false
		if msg.Err != nil {
			return m.fail(msg.Err), nil
		}
		m.session = msg.Session
		m.entries = entriesFrom(msg.Messages)
		m.advice = ""
		return m.refresh(), nil

	case ReplyMsg:
		m = m.handleReply(msg)
		cmd := m.Input.Focus()
		return m, cmd

	case SummaryMsg:
		m.busy = false
		m.cancel = nil
		m.status = ""
		cmd := m.Input.Focus()
		if msg.Err != nil {
			return m.fail(msg.Err), cmd
		}
		m.advice = msg.Summary
		m.entries = append(m.entries,
			entry{kind: entryCoach, text: msg.Summary},
			entry{kind: entryNotice, text: "Type /fav to save this summary."},
		)
		return m.refresh(), cmd
	}

	var cmds []tea.Cmd
	var cmd tea.Cmd
	m.Viewport, cmd = m.Viewport.Update(msg)
	cmds = append(cmds, cmd)
	if !m.busy {
		m.Input, cmd = m.Input.Update(msg)
		cmds = append(cmds, cmd)
	}
	return m, tea.Batch(cmds...)
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Initializing..."
	}
	var b strings.Builder
	b.WriteString(m.Viewport.View())
	b.WriteString("\n")
	b.WriteString(m.statusLine())
	b.WriteString("\n")
	b.WriteString(m.Input.View())
	return b.String()
}

func (m Model) resize(msg tea.WindowSizeMsg) Model {
	const chrome = 4 // status line, input line and the two separators
	h := max(msg.Height-chrome, 1)
	if !m.ready {
		m.Viewport = viewport.New(msg.Width, h)
		m.ready = true
	} else {
		m.Viewport.Width = msg.Width
		m.Viewport.Height = h
	}
	m.Input.Width = max(msg.Width-runewidth.StringWidth(m.Input.Prompt)-1, 1)
	return m.refresh()
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC:
		if m.busy {
			if m.cancel != nil {
				m.cancel()
			}
			return m, nil
		}
		return m, tea.Quit

	case tea.KeyEnter:
		if m.busy {
			return m, nil
		}
		text := strings.TrimSpace(m.Input.Value())
		if text == "" {
			return m, nil
		}
		m.Input.SetValue("")
		m.status = ""
		if strings.HasPrefix(text, "/") {
			return m.runCommand(text)
		}
		return m.send(text)

	case tea.KeyPgUp, tea.KeyPgDown, tea.KeyUp, tea.KeyDown:
		var cmd tea.Cmd
		m.Viewport, cmd = m.Viewport.Update(msg)
		return m, cmd
	}

	if m.busy {
		return m, nil
	}
	var cmd tea.Cmd
	m.Input, cmd = m.Input.Update(msg)
	return m, cmd
}

func (m Model) send(text string) (tea.Model, tea.Cmd) {
	if m.session.ID == "" {
		m.status = "No conversation yet. Type /new to start one."
		return m, nil
	}
	m.entries = append(m.entries, entry{kind: entryUser, text: text})
	ctx, cancel := context.WithCancel(m.ctx)
	m.cancel = cancel
	m.busy = true
	m.Input.Blur()

	c, id := m.coach, m.session.ID
	return m.refresh(), func() tea.Msg {
		defer cancel()
		turn, err := c.Send(ctx, id, text)
		return ReplyMsg{Turn: turn, Err: err}
	}
}

func (m Model) handleReply(msg ReplyMsg) Model {
	m.busy = false
	m.cancel = nil
	turn := msg.Turn
	if turn.Title != "" {
		m.session.Title = turn.Title
	}
	if turn.Reply.ID != "" {
		kind := entryCoach
		if turn.Blocked {
			kind = entrySafety
		} else {
			m.advice = turn.Reply.Content
		}
		m.entries = append(m.entries, entry{kind: kind, text: turn.Reply.Content})
	}
	if msg.Err != nil {
		if turn.User.ID == "" && len(m.entries) > 0 && m.entries[len(m.entries)-1].kind == entryUser {
			// The message never reached the store; take it back off the screen.
			m.entries = m.entries[:len(m.entries)-1]
		}
		return m.fail(msg.Err)
	}
	return m.refresh()
}

// fail turns an error into a transcript notice the user can act on.
func (m Model) fail(err error) Model {
	m.busy = false
	m.cancel = nil
	m.entries = append(m.entries, errorEntry(err))
	return m.refresh()
}

func errorEntry(err error) entry {
	switch {
	case errors.Is(err, coach.ErrUpgradeRequired):
		return entry{kind: entryNotice, text: fmt.Sprintf(
			"You've used your %d free questions. Upgrade to keep chatting, or type /restore if you already have.",
			coach.MaxFreeCalls)}
	case errors.Is(err, coach.ErrRateLimited):
		return entry{kind: entryNotice, text: "You're sending messages quickly. Please wait a minute and try again."}
	case errors.Is(err, context.Canceled):
		return entry{kind: entryNotice, text: "Cancelled."}
	case errors.Is(err, coach.ErrValidation):
		return entry{kind: entryError, text: "That didn't work: " + err.Error()}
	case errors.Is(err, coach.ErrNotFound):
		return entry{kind: entryError, text: "That conversation no longer exists."}
	default:
		return entry{kind: entryError, text: "Something went wrong. Please try again."}
	}
}

func (m Model) start(topic string) tea.Cmd {
	c, ctx := m.coach, m.ctx
	return func() tea.Msg {
		sess, msgs, err := c.Start(ctx, orchestrator.StartOptions{Topic: topic, Greeting: true})
		return StartedMsg{Session: sess, Messages: msgs, Err: err}
	}
}

func (m Model) refresh() Model {
	if !m.ready {
		return m
	}
	m.Viewport.SetContent(renderEntries(m.entries, m.Viewport.Width, m.styles, m.md))
	m.Viewport.GotoBottom()
	return m
}

func (m Model) statusLine() string {
	width := m.Viewport.Width
	if m.status != "" {
		return m.styles.Notice.Render(runewidth.Truncate(m.status, width, "…"))
	}
	if m.busy {
		return m.styles.Muted.Render("Coach is thinking... (Ctrl+C to cancel)")
	}

	var quota string
	switch left := m.coach.Remaining(m.ctx); {
	case left < 0:
		quota = "Pro"
	case left == 1:
		quota = "1 free question left"
	default:
		quota = fmt.Sprintf("%d free questions left", left)
	}
	title := m.session.Title
	if title == "" {
		title = "Conversation"
	}
	room := width - runewidth.StringWidth(quota) - 3
	if room < 1 {
		return m.styles.Muted.Render(runewidth.Truncate(quota, width, "…"))
	}
	return m.styles.Accent.Render(runewidth.Truncate(title, room, "…")) +
		m.styles.Muted.Render(" · "+quota)
}
