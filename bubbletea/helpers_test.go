package bubbletea_test

import (
	"context"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fwojciec/coach"
	bt "github.com/fwojciec/coach/bubbletea"
	coachjson "github.com/fwojciec/coach/json"
	"github.com/fwojciec/coach/mock"
	"github.com/fwojciec/coach/orchestrator"
	"github.com/fwojciec/coach/store"
	"github.com/stretchr/testify/require"
)

func clock() func() time.Time {
	var mu sync.Mutex
	t := time.Date(2026, 5, 4, 18, 0, 0, 0, time.UTC)
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		t = t.Add(time.Second)
		return t
	}
}

func replying(content string) *mock.Gateway {
	return &mock.Gateway{
		CoachFn: func(ctx context.Context, req coach.CoachRequest) (coach.CoachReply, error) {
			return coach.CoachReply{Content: content}, nil
		},
		SummarizeFn: func(ctx context.Context, req coach.SummarizeRequest) (string, error) {
			return "Summary: stay calm.", nil
		},
	}
}

func newCoach(t *testing.T, gw coach.Gateway, opts ...orchestrator.Option) *orchestrator.Orchestrator {
	t.Helper()
	s := store.New(coachjson.NewDir(t.TempDir()), store.WithClock(clock()))
	return orchestrator.New(s, gw, append([]orchestrator.Option{orchestrator.WithClock(clock())}, opts...)...)
}

// stubCoach overrides Send on a real orchestrator.
type stubCoach struct {
	*orchestrator.Orchestrator
	send func(ctx context.Context, sessionID, text string) (orchestrator.Turn, error)
}

func (s *stubCoach) Send(ctx context.Context, sessionID, text string) (orchestrator.Turn, error) {
	return s.send(ctx, sessionID, text)
}

// update sends msg and returns the updated Model and command.
func update(t *testing.T, m bt.Model, msg tea.Msg) (bt.Model, tea.Cmd) {
	t.Helper()
	updated, cmd := m.Update(msg)
	model, ok := updated.(bt.Model)
	require.True(t, ok)
	return model, cmd
}

// ready sizes the model and starts its first session synchronously.
func ready(t *testing.T, c bt.Coach, opts ...bt.Option) bt.Model {
	t.Helper()
	m := bt.New(c, coach.DefaultTheme(), opts...)
	m, _ = update(t, m, tea.WindowSizeMsg{Width: 80, Height: 24})
	sess, msgs, err := c.Start(context.Background(), orchestrator.StartOptions{Greeting: true})
	require.NoError(t, err)
	m, _ = update(t, m, bt.StartedMsg{Session: sess, Messages: msgs})
	return m
}

// submit types text into the input and presses enter.
func submit(t *testing.T, m bt.Model, text string) (bt.Model, tea.Cmd) {
	t.Helper()
	m.Input.SetValue(text)
	return update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
}

// settle runs cmd and feeds its message back into the model.
func settle(t *testing.T, m bt.Model, cmd tea.Cmd) bt.Model {
	t.Helper()
	require.NotNil(t, cmd)
	m, _ = update(t, m, cmd())
	return m
}

func last(m bt.Model) string {
	tr := m.Transcript()
	if len(tr) == 0 {
		return ""
	}
	return tr[len(tr)-1]
}
