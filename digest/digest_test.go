package digest_test

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/fwojciec/coach"
	"github.com/fwojciec/coach/digest"
	coachjson "github.com/fwojciec/coach/json"
	"github.com/fwojciec/coach/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) *store.Store {
	t.Helper()
	var mu sync.Mutex
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	clock := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		now = now.Add(time.Second)
		return now
	}
	return store.New(coachjson.NewDir(t.TempDir()), store.WithClock(clock))
}

func TestBuild_Empty(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newStore(t)
	assert.Equal(t, "", digest.Build(ctx, s, ""))

	active, err := s.CreateSession(ctx, "Active")
	require.NoError(t, err)
	require.NoError(t, s.AppendMessages(ctx, active.ID, coach.Message{Role: coach.RoleUser, Content: "hi"}))
	assert.Equal(t, "", digest.Build(ctx, s, active.ID), "only the active session exists")
}

func TestBuild_Bounds(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newStore(t)

	long := strings.Repeat("x", 150)
	for i := range 6 {
		sess, err := s.CreateSession(ctx, fmt.Sprintf("Prior %d", i))
		require.NoError(t, err)
		for j := range 6 {
			role := coach.RoleUser
			if j%2 == 1 {
				role = coach.RoleAssistant
			}
			require.NoError(t, s.AppendMessages(ctx, sess.ID, coach.Message{
				Role:    role,
				Content: fmt.Sprintf("s%d-m%d %s", i, j, long),
			}))
		}
	}
	active, err := s.CreateSession(ctx, "Active")
	require.NoError(t, err)

	got := digest.Build(ctx, s, active.ID)
	summaries := strings.Split(got, "\n\n")
	require.Len(t, summaries, 5)

	// Most recently updated first: Prior 5 down to Prior 1.
	assert.True(t, strings.HasPrefix(summaries[0], "[Prior 5] "))
	assert.True(t, strings.HasPrefix(summaries[4], "[Prior 1] "))
	assert.NotContains(t, got, "Prior 0")
	assert.NotContains(t, got, "Active")

	for _, summary := range summaries {
		body := summary[strings.Index(summary, "] ")+2:]
		lines := strings.Split(body, " | ")
		require.Len(t, lines, 4)
		assert.True(t, strings.HasPrefix(lines[0], "user: "))
		assert.True(t, strings.HasPrefix(lines[1], "assistant: "))
		for _, line := range lines {
			content := line[strings.Index(line, ": ")+2:]
			assert.Len(t, content, 100)
		}
	}
	assert.NotContains(t, got, "-m4 ")
}

func TestBuild_Options(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newStore(t)
	for i := range 3 {
		sess, err := s.CreateSession(ctx, "")
		require.NoError(t, err)
		require.NoError(t, s.AppendMessages(ctx, sess.ID,
			coach.Message{Role: coach.RoleUser, Content: fmt.Sprintf("question %d", i)},
			coach.Message{Role: coach.RoleAssistant, Content: "answer"},
		))
	}

	got := digest.Build(ctx, s, "", digest.WithMaxSessions(2), digest.WithMaxMessages(1), digest.WithMaxChars(5))
	assert.Equal(t, "[Conversation] user: quest\n\n[Conversation] user: quest", got)
}

func TestBuild_SkipsEmptySessions(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newStore(t)
	full, err := s.CreateSession(ctx, "Full")
	require.NoError(t, err)
	require.NoError(t, s.AppendMessages(ctx, full.ID, coach.Message{Role: coach.RoleUser, Content: "sharing toys"}))
	_, err = s.CreateSession(ctx, "Empty")
	require.NoError(t, err)

	assert.Equal(t, "[Full] user: sharing toys", digest.Build(ctx, s, ""))
}

func TestTruncate(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "abc", digest.Truncate("abcdef", 3))
	assert.Equal(t, "abc", digest.Truncate("abc", 10))
	assert.Equal(t, "", digest.Truncate("abc", 0))
	assert.Equal(t, "héé", digest.Truncate("hééllo", 3))
	// A family emoji is one character made of several code points.
	family := "👨‍👩‍👧"
	assert.Equal(t, "a"+family, digest.Truncate("a"+family+"b", 2))
}
