package gateway

import (
	"fmt"
	"strings"

	"github.com/fwojciec/coach"
)

// DefaultSystemPrompt is used when no prompt file is configured.
const DefaultSystemPrompt = "You are a warm, practical parenting coach for grandparents."

const defaultAudience = "a grandparent"

const summaryPromptTemplate = `You write one-page summaries of coaching conversations for %s.
Structure the summary with these sections:
1. The situation, in two or three sentences.
2. Key points from the conversation.
3. Suggested actions to try next.
4. Example phrasing to use with the child.
5. A short, encouraging closing note.
Keep it practical, kind, and free of medical or diagnostic advice.`

// SystemPrompt composes the model system prompt from the base instructions
// and the request context.
func SystemPrompt(base string, c coach.Context) string {
	var lines []string
	if c.Topic != "" {
		lines = append(lines, "Topic: "+c.Topic)
	}
	if c.AgeRange != "" {
		lines = append(lines, "Age range: "+c.AgeRange)
	}
	if c.SituationType != "" {
		lines = append(lines, "Situation: "+c.SituationType)
	}
	if c.Attempted != "" {
		lines = append(lines, "Already tried: "+c.Attempted)
	}
	if c.Urgency {
		lines = append(lines, "Urgent: yes")
	}
	if c.UserNotes != "" {
		lines = append(lines, "Notes: "+c.UserNotes)
	}

	var b strings.Builder
	b.WriteString(base)
	if len(lines) > 0 {
		b.WriteString("\n\nContext:\n")
		b.WriteString(strings.Join(lines, "\n"))
	}
	if c.ConversationHistory != "" {
		b.WriteString("\n\nEarlier conversations:\n")
		b.WriteString(c.ConversationHistory)
	}
	return b.String()
}

// SummaryPrompt returns the system prompt for a summary aimed at audience.
func SummaryPrompt(audience string) string {
	if strings.TrimSpace(audience) == "" {
		audience = defaultAudience
	}
	return fmt.Sprintf(summaryPromptTemplate, audience)
}

// Transcript formats messages as "User: ..." and "Coach: ..." lines.
// System messages are omitted.
func Transcript(msgs []coach.Message) string {
	var lines []string
	for _, m := range msgs {
		switch m.Role {
		case coach.RoleUser:
			lines = append(lines, "User: "+m.Content)
		case coach.RoleAssistant:
			lines = append(lines, "Coach: "+m.Content)
		}
	}
	return strings.Join(lines, "\n")
}
