package coach

import "context"

// Provider is a strategy pattern interface for chat-completion model providers.
// Complete is single-shot: no streaming and no retries.
type Provider interface {
	Complete(ctx context.Context, req Request) (Response, error)
}

// Request carries model selection and generation parameters.
// The provider uses its own defaults when fields are zero/nil.
type Request struct {
	Model        string // model ID, provider-specific; empty = provider default
	SystemPrompt string
	Messages     []Message
	MaxTokens    int      // 0 = provider default
	Temperature  *float64 // nil = provider default
}

// Response is a provider's text completion.
type Response struct {
	Content string
	Model   string
	Usage   Usage
}
