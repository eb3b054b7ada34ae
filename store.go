package coach

import "context"

// KV is a durable keyed-record backend. Get returns ErrNotFound for absent keys.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// SessionStore persists sessions, their messages, the usage counter and
// favorites. Reads degrade to empty results on storage faults; writes
// return errors.
type SessionStore interface {
	ListSessions(ctx context.Context) []Session
	Session(ctx context.Context, id string) (Session, error)
	CreateSession(ctx context.Context, title string) (Session, error)
	RenameSession(ctx context.Context, id, title string) error
	TouchSession(ctx context.Context, id string) error
	DeleteSession(ctx context.Context, id string) error

	ListMessages(ctx context.Context, sessionID string) []Message
	AppendMessages(ctx context.Context, sessionID string, msgs ...Message) error

	FreeCount(ctx context.Context) int
	IncrementFreeCount(ctx context.Context) (int, error)
	ResetFreeCount(ctx context.Context) error

	AddFavorite(ctx context.Context, sessionID, title, summary string) (Favorite, error)
	ListFavorites(ctx context.Context) []Favorite
	RemoveFavorite(ctx context.Context, id string) error
}
