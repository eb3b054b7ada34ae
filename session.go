package coach

import "time"

// Session is a titled, timestamped container for an ordered conversation.
// Its messages are stored separately and keyed by the session ID.
type Session struct {
	ID        string
	Title     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Favorite is a piece of advice the user chose to keep.
type Favorite struct {
	ID        string
	SessionID string
	Title     string
	Summary   string
	CreatedAt time.Time
}
