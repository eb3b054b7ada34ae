// Package digest builds the continuity digest: a bounded text summary of
// the user's other recent sessions attached to a coaching request as
// advisory context.
package digest

import (
	"context"
	"strings"

	"github.com/fwojciec/coach"
	"github.com/rivo/uniseg"
)

// Defaults for Build.
const (
	DefaultMaxSessions = 5
	DefaultMaxMessages = 4
	DefaultMaxChars    = 100
)

const (
	messageSeparator = " | "
	sessionSeparator = "\n\n"
	untitled         = "Conversation"
)

// Source is the read side of a session store.
type Source interface {
	ListSessions(ctx context.Context) []coach.Session
	ListMessages(ctx context.Context, sessionID string) []coach.Message
}

type options struct {
	maxSessions int
	maxMessages int
	maxChars    int
}

// Option configures Build.
type Option func(*options)

// WithMaxSessions limits how many sessions contribute. Default 5.
func WithMaxSessions(n int) Option {
	return func(o *options) { o.maxSessions = n }
}

// WithMaxMessages limits how many leading messages each session contributes. Default 4.
func WithMaxMessages(n int) Option {
	return func(o *options) { o.maxMessages = n }
}

// WithMaxChars truncates each message to n characters. Default 100.
func WithMaxChars(n int) Option {
	return func(o *options) { o.maxChars = n }
}

// Build returns the digest of the most recently updated sessions other than
// excludeID, or "" when there are none. Each session contributes its first
// messages formatted as "<role>: <content>".
func Build(ctx context.Context, src Source, excludeID string, opts ...Option) string {
	o := options{
		maxSessions: DefaultMaxSessions,
		maxMessages: DefaultMaxMessages,
		maxChars:    DefaultMaxChars,
	}
	for _, fn := range opts {
		fn(&o)
	}

	var picked []coach.Session
	for _, s := range src.ListSessions(ctx) {
		if len(picked) == o.maxSessions {
			break
		}
		if s.ID != excludeID {
			picked = append(picked, s)
		}
	}

	var summaries []string
	for _, s := range picked {
		msgs := src.ListMessages(ctx, s.ID)
		if len(msgs) == 0 {
			continue
		}
		if len(msgs) > o.maxMessages {
			msgs = msgs[:o.maxMessages]
		}
		lines := make([]string, len(msgs))
		for i, m := range msgs {
			lines[i] = string(m.Role) + ": " + Truncate(m.Content, o.maxChars)
		}
		title := s.Title
		if title == "" {
			title = untitled
		}
		summaries = append(summaries, "["+title+"] "+strings.Join(lines, messageSeparator))
	}
	return strings.Join(summaries, sessionSeparator)
}

// Truncate returns the first n user-perceived characters of s.
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	g := uniseg.NewGraphemes(s)
	count, end := 0, 0
	for g.Next() {
		if count == n {
			return s[:end]
		}
		_, end = g.Positions()
		count++
	}
	return s
}
