package gateway_test

import (
	"testing"

	"github.com/fwojciec/coach"
	"github.com/fwojciec/coach/gateway"
	"github.com/stretchr/testify/assert"
)

func TestSystemPrompt(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Base.", gateway.SystemPrompt("Base.", coach.Context{}))

	assert.Equal(t, "Base.\n\nContext:\nTopic: bedtime\nAge range: 0-2",
		gateway.SystemPrompt("Base.", coach.Context{Topic: "bedtime", AgeRange: "0-2"}))

	full := gateway.SystemPrompt("Base.", coach.Context{
		Topic:               "tantrums",
		AgeRange:            "3-5",
		SituationType:       "public-meltdown",
		Attempted:           "time-outs",
		Urgency:             true,
		UserNotes:           "only at the store",
		ConversationHistory: "[Meals] user: picky",
	})
	assert.Equal(t, "Base.\n\nContext:\n"+
		"Topic: tantrums\n"+
		"Age range: 3-5\n"+
		"Situation: public-meltdown\n"+
		"Already tried: time-outs\n"+
		"Urgent: yes\n"+
		"Notes: only at the store"+
		"\n\nEarlier conversations:\n[Meals] user: picky", full)

	assert.Equal(t, "Base.\n\nEarlier conversations:\nhistory",
		gateway.SystemPrompt("Base.", coach.Context{ConversationHistory: "history"}))
}

func TestTranscript(t *testing.T) {
	t.Parallel()
	got := gateway.Transcript([]coach.Message{
		{Role: coach.RoleSystem, Content: "hidden"},
		{Role: coach.RoleUser, Content: "He hits his sister"},
		{Role: coach.RoleAssistant, Content: "Separate them calmly."},
	})
	assert.Equal(t, "User: He hits his sister\nCoach: Separate them calmly.", got)
	assert.Empty(t, gateway.Transcript(nil))
}

func TestSummaryPrompt(t *testing.T) {
	t.Parallel()
	assert.Contains(t, gateway.SummaryPrompt(""), "for a grandparent.")
	assert.Contains(t, gateway.SummaryPrompt("a babysitter"), "for a babysitter.")
	for _, section := range []string{"situation", "Key points", "Suggested actions", "Example phrasing", "encouraging closing"} {
		assert.Contains(t, gateway.SummaryPrompt(""), section)
	}
}
