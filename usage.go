package coach

// Usage tracks token consumption reported by a model provider.
// Providers that do not report usage leave it zero.
type Usage struct {
	InputTokens  int
	OutputTokens int
}

// MaxFreeCalls is the lifetime number of model calls allowed on the free tier.
const MaxFreeCalls = 3
