package coach

import "errors"

// Sentinel errors for common failure modes.
var (
	// ErrValidation indicates a request or message failed validation.
	ErrValidation = errors.New("validation error")

	// ErrNotFound indicates a record or session does not exist.
	ErrNotFound = errors.New("not found")

	// ErrRateLimited indicates the caller exceeded its admission window.
	ErrRateLimited = errors.New("rate limit exceeded")

	// ErrUpgradeRequired indicates the free-tier allowance is used up.
	ErrUpgradeRequired = errors.New("free tier limit reached: upgrade required")

	// ErrProvider indicates the model provider failed or returned an unusable reply.
	ErrProvider = errors.New("model provider error")

	// ErrGatewayUnavailable indicates the coaching gateway could not be reached
	// or answered with an unexpected status.
	ErrGatewayUnavailable = errors.New("coaching gateway unavailable")
)
