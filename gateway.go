package coach

import "context"

// Gateway is the client-side view of the coaching gateway.
type Gateway interface {
	Coach(ctx context.Context, req CoachRequest) (CoachReply, error)
	Summarize(ctx context.Context, req SummarizeRequest) (string, error)
}

// CoachRequest asks the gateway for the next coaching reply.
type CoachRequest struct {
	Messages []Message
	Context  Context
}

// CoachReply is the gateway's answer. Classification is empty for model
// replies and names the safety class for canned replies.
type CoachReply struct {
	Content        string
	Classification string
}

// SummarizeRequest asks for a one-page summary of a conversation.
// Transcript takes precedence over Messages when both are set.
type SummarizeRequest struct {
	Transcript string
	Messages   []Message
	Audience   string
}
