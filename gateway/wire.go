package gateway

import "github.com/fwojciec/coach"

// JSON bodies exchanged between the client and the gateway.

type messageJSON struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type contextJSON struct {
	Topic               string `json:"topic,omitempty"`
	AgeRange            string `json:"ageRange,omitempty"`
	SituationType       string `json:"situationType,omitempty"`
	Attempted           string `json:"attempted,omitempty"`
	Urgency             bool   `json:"urgency,omitempty"`
	UserNotes           string `json:"userNotes,omitempty"`
	ConversationHistory string `json:"conversationHistory,omitempty"`
}

type coachRequestJSON struct {
	Messages []messageJSON `json:"messages"`
	Context  *contextJSON  `json:"context,omitempty"`
}

type summarizeRequestJSON struct {
	Transcript string        `json:"transcript,omitempty"`
	Messages   []messageJSON `json:"messages,omitempty"`
	Audience   string        `json:"audience,omitempty"`
}

type contentResponse struct {
	Content        string `json:"content"`
	Classification string `json:"classification,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func toMessagesJSON(msgs []coach.Message) []messageJSON {
	out := make([]messageJSON, len(msgs))
	for i, m := range msgs {
		out[i] = messageJSON{Role: string(m.Role), Content: m.Content}
	}
	return out
}

func fromMessagesJSON(msgs []messageJSON) []coach.Message {
	out := make([]coach.Message, len(msgs))
	for i, m := range msgs {
		out[i] = coach.Message{Role: coach.Role(m.Role), Content: m.Content}
	}
	return out
}

func toContextJSON(c coach.Context) *contextJSON {
	if c == (coach.Context{}) {
		return nil
	}
	return &contextJSON{
		Topic:               c.Topic,
		AgeRange:            c.AgeRange,
		SituationType:       c.SituationType,
		Attempted:           c.Attempted,
		Urgency:             c.Urgency,
		UserNotes:           c.UserNotes,
		ConversationHistory: c.ConversationHistory,
	}
}

func fromContextJSON(c *contextJSON) coach.Context {
	if c == nil {
		return coach.Context{}
	}
	return coach.Context{
		Topic:               c.Topic,
		AgeRange:            c.AgeRange,
		SituationType:       c.SituationType,
		Attempted:           c.Attempted,
		Urgency:             c.Urgency,
		UserNotes:           c.UserNotes,
		ConversationHistory: c.ConversationHistory,
	}
}
