// Package bubbletea provides a Bubble Tea terminal client for the coach.
package bubbletea

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fwojciec/coach"
	"github.com/fwojciec/coach/orchestrator"
)

// Coach is the part of the orchestrator the terminal client drives.
type Coach interface {
	Start(ctx context.Context, opts orchestrator.StartOptions) (coach.Session, []coach.Message, error)
	Send(ctx context.Context, sessionID, text string) (orchestrator.Turn, error)
	Summarize(ctx context.Context, sessionID string) (string, error)
	AddFavorite(ctx context.Context, sessionID, title, summary string) (coach.Favorite, error)
	Favorites(ctx context.Context) []coach.Favorite
	Restore(ctx context.Context) error
	Remaining(ctx context.Context) int
	Sessions(ctx context.Context) []coach.Session
	Messages(ctx context.Context, sessionID string) []coach.Message
	Rename(ctx context.Context, sessionID, title string) error
	Delete(ctx context.Context, sessionID string) error
}

var _ Coach = (*orchestrator.Orchestrator)(nil)

// Run creates and runs the Bubble Tea program. It blocks until the program
// exits. Cancelling ctx quits the program.
func Run(ctx context.Context, m Model) error {
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	if ctx.Err() != nil {
		return nil
	}
	return err
}

// StartedMsg reports that a new session was created.
type StartedMsg struct {
	Session  coach.Session
	Messages []coach.Message
	Err      error
}

// ReplyMsg carries the outcome of a send.
type ReplyMsg struct {
	Turn orchestrator.Turn
	Err  error
}

// SummaryMsg carries the outcome of a summary request.
type SummaryMsg struct {
	Summary string
	Err     error
}
