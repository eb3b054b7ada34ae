package coach

import "time"

// Message is a single turn in a conversation. Messages belong to exactly one
// session and are ordered by Timestamp within it.
type Message struct {
	ID        string
	Role      Role
	Content   string
	Timestamp time.Time
}

// LatestUserMessage returns the most recent user message in msgs.
// ok is false when msgs contains no user message.
func LatestUserMessage(msgs []Message) (msg Message, ok bool) {
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == RoleUser {
			return msgs[i], true
		}
	}
	return Message{}, false
}
