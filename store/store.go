// Package store implements [coach.SessionStore] on top of any [coach.KV]
// backend using one record per key:
//
//	gpc:sessions           session index
//	gpc:messages:<id>      message list of one session
//	gpc:free_count         usage counter (decimal string)
//	gpc:favorites          saved advice
//
// Reads absorb storage faults and return empty values so the client stays
// responsive; every absorbed fault is logged. Writes return errors.
package store

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/fwojciec/coach"
	coachjson "github.com/fwojciec/coach/json"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Record keys.
const (
	SessionsKey  = "gpc:sessions"
	FreeCountKey = "gpc:free_count"
	FavoritesKey = "gpc:favorites"
)

// MessagesKey returns the record key holding a session's messages.
func MessagesKey(sessionID string) string {
	return "gpc:messages:" + sessionID
}

// Interface compliance check.
var _ coach.SessionStore = (*Store)(nil)

// Store implements [coach.SessionStore].
type Store struct {
	kv    coach.KV
	now   func() time.Time
	newID func() string
	log   zerolog.Logger

	// mu serializes read-modify-write cycles on shared records.
	mu sync.Mutex
}

// Option configures a [Store].
type Option func(*Store)

// WithClock sets the time source. Default is time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithIDGenerator sets the ID generator. Default is uuid.NewString.
func WithIDGenerator(fn func() string) Option {
	return func(s *Store) { s.newID = fn }
}

// WithLogger sets the logger used for absorbed read faults.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Store) { s.log = l.With().Str("component", "store").Logger() }
}

// New creates a Store over kv.
func New(kv coach.KV, opts ...Option) *Store {
	s := &Store{
		kv:    kv,
		now:   time.Now,
		newID: uuid.NewString,
		log:   zerolog.Nop(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// ListSessions returns all sessions, most recently updated first.
func (s *Store) ListSessions(ctx context.Context) []coach.Session {
	sessions := lossy(s.log, SessionsKey, func() ([]coach.Session, error) { return s.readSessions(ctx) })
	sortSessions(sessions)
	return sessions
}

// Session returns the session with the given ID.
func (s *Store) Session(ctx context.Context, id string) (coach.Session, error) {
	for _, sess := range s.ListSessions(ctx) {
		if sess.ID == id {
			return sess, nil
		}
	}
	return coach.Session{}, fmt.Errorf("session %q: %w", id, coach.ErrNotFound)
}

// CreateSession creates a new, empty session.
func (s *Store) CreateSession(ctx context.Context, title string) (coach.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sessions, err := s.readSessions(ctx)
	if err != nil {
		return coach.Session{}, err
	}
	now := s.now()
	sess := coach.Session{
		ID:        s.newID(),
		Title:     title,
		CreatedAt: now,
		UpdatedAt: now,
	}
	sessions = append([]coach.Session{sess}, sessions...)
	if err := s.writeSessions(ctx, sessions); err != nil {
		return coach.Session{}, err
	}
	return sess, nil
}

// RenameSession sets a session's title and advances its update time.
func (s *Store) RenameSession(ctx context.Context, id, title string) error {
	return s.updateSession(ctx, id, func(sess *coach.Session) { sess.Title = title })
}

// TouchSession advances a session's update time without other changes.
func (s *Store) TouchSession(ctx context.Context, id string) error {
	return s.updateSession(ctx, id, func(*coach.Session) {})
}

// DeleteSession removes a session, its messages and its favorites.
// The index entry goes first so a partially failed delete never leaves a
// listed session without its messages.
func (s *Store) DeleteSession(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sessions, err := s.readSessions(ctx)
	if err != nil {
		return err
	}
	i := slices.IndexFunc(sessions, func(sess coach.Session) bool { return sess.ID == id })
	if i < 0 {
		return fmt.Errorf("session %q: %w", id, coach.ErrNotFound)
	}
	if err := s.writeSessions(ctx, slices.Delete(sessions, i, i+1)); err != nil {
		return err
	}
	if err := s.kv.Delete(ctx, MessagesKey(id)); err != nil {
		return fmt.Errorf("delete messages: %w", err)
	}

	favs, err := s.readFavorites(ctx)
	if err != nil {
		return err
	}
	kept := slices.DeleteFunc(favs, func(f coach.Favorite) bool { return f.SessionID == id })
	return s.writeFavorites(ctx, kept)
}

// ListMessages returns a session's messages in append order.
func (s *Store) ListMessages(ctx context.Context, sessionID string) []coach.Message {
	return lossy(s.log, MessagesKey(sessionID), func() ([]coach.Message, error) { return s.readMessages(ctx, sessionID) })
}

// AppendMessages appends msgs to a session and advances its update time.
// Missing IDs and timestamps are filled in.
func (s *Store) AppendMessages(ctx context.Context, sessionID string, msgs ...coach.Message) error {
	for i, m := range msgs {
		if err := coach.ValidateMessage(m); err != nil {
			return fmt.Errorf("message %d: %w", i, err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sessions, err := s.readSessions(ctx)
	if err != nil {
		return err
	}
	i := slices.IndexFunc(sessions, func(sess coach.Session) bool { return sess.ID == sessionID })
	if i < 0 {
		return fmt.Errorf("session %q: %w", sessionID, coach.ErrNotFound)
	}

	existing, err := s.readMessages(ctx, sessionID)
	if err != nil {
		return err
	}
	now := s.now()
	for _, m := range msgs {
		if m.ID == "" {
			m.ID = s.newID()
		}
		if m.Timestamp.IsZero() {
			m.Timestamp = now
		}
		existing = append(existing, m)
	}
	data, err := coachjson.MarshalMessages(existing)
	if err != nil {
		return fmt.Errorf("marshal messages: %w", err)
	}
	if err := s.kv.Set(ctx, MessagesKey(sessionID), data); err != nil {
		return fmt.Errorf("write messages: %w", err)
	}

	sessions[i].UpdatedAt = later(now, sessions[i].UpdatedAt)
	return s.writeSessions(ctx, sessions)
}

// FreeCount returns the number of model calls made on the free tier.
func (s *Store) FreeCount(ctx context.Context) int {
	return lossy(s.log, FreeCountKey, func() (int, error) { return s.readFreeCount(ctx) })
}

// IncrementFreeCount adds one to the usage counter and returns the new value.
func (s *Store) IncrementFreeCount(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, err := s.readFreeCount(ctx)
	if err != nil {
		return 0, err
	}
	n++
	if err := s.kv.Set(ctx, FreeCountKey, []byte(strconv.Itoa(n))); err != nil {
		return 0, fmt.Errorf("write free count: %w", err)
	}
	return n, nil
}

// ResetFreeCount clears the usage counter. Only an upgrade or restore
// should call it.
func (s *Store) ResetFreeCount(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.kv.Delete(ctx, FreeCountKey); err != nil {
		return fmt.Errorf("delete free count: %w", err)
	}
	return nil
}

// AddFavorite saves advice from a session.
func (s *Store) AddFavorite(ctx context.Context, sessionID, title, summary string) (coach.Favorite, error) {
	if err := coach.ValidateFavoriteTitle(title); err != nil {
		return coach.Favorite{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sessions, err := s.readSessions(ctx)
	if err != nil {
		return coach.Favorite{}, err
	}
	if !slices.ContainsFunc(sessions, func(sess coach.Session) bool { return sess.ID == sessionID }) {
		return coach.Favorite{}, fmt.Errorf("session %q: %w", sessionID, coach.ErrNotFound)
	}

	favs, err := s.readFavorites(ctx)
	if err != nil {
		return coach.Favorite{}, err
	}
	fav := coach.Favorite{
		ID:        s.newID(),
		SessionID: sessionID,
		Title:     strings.TrimSpace(title),
		Summary:   summary,
		CreatedAt: s.now(),
	}
	if err := s.writeFavorites(ctx, append([]coach.Favorite{fav}, favs...)); err != nil {
		return coach.Favorite{}, err
	}
	return fav, nil
}

// ListFavorites returns saved advice, newest first.
func (s *Store) ListFavorites(ctx context.Context) []coach.Favorite {
	return lossy(s.log, FavoritesKey, func() ([]coach.Favorite, error) { return s.readFavorites(ctx) })
}

// RemoveFavorite deletes a favorite by ID.
func (s *Store) RemoveFavorite(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	favs, err := s.readFavorites(ctx)
	if err != nil {
		return err
	}
	i := slices.IndexFunc(favs, func(f coach.Favorite) bool { return f.ID == id })
	if i < 0 {
		return fmt.Errorf("favorite %q: %w", id, coach.ErrNotFound)
	}
	return s.writeFavorites(ctx, slices.Delete(favs, i, i+1))
}

func (s *Store) updateSession(ctx context.Context, id string, fn func(*coach.Session)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sessions, err := s.readSessions(ctx)
	if err != nil {
		return err
	}
	i := slices.IndexFunc(sessions, func(sess coach.Session) bool { return sess.ID == id })
	if i < 0 {
		return fmt.Errorf("session %q: %w", id, coach.ErrNotFound)
	}
	fn(&sessions[i])
	sessions[i].UpdatedAt = later(s.now(), sessions[i].UpdatedAt)
	return s.writeSessions(ctx, sessions)
}

// read reports whether key holds a record. A missing key is not an error.
func (s *Store) read(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := s.kv.Get(ctx, key)
	if errors.Is(err, coach.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read %s: %w", key, err)
	}
	return data, true, nil
}

func (s *Store) readSessions(ctx context.Context) ([]coach.Session, error) {
	data, ok, err := s.read(ctx, SessionsKey)
	if err != nil || !ok {
		return nil, err
	}
	sessions, err := coachjson.UnmarshalSessions(data)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", SessionsKey, err)
	}
	return sessions, nil
}

func (s *Store) writeSessions(ctx context.Context, sessions []coach.Session) error {
	data, err := coachjson.MarshalSessions(sessions)
	if err != nil {
		return fmt.Errorf("marshal sessions: %w", err)
	}
	if err := s.kv.Set(ctx, SessionsKey, data); err != nil {
		return fmt.Errorf("write sessions: %w", err)
	}
	return nil
}

func (s *Store) readMessages(ctx context.Context, sessionID string) ([]coach.Message, error) {
	key := MessagesKey(sessionID)
	data, ok, err := s.read(ctx, key)
	if err != nil || !ok {
		return nil, err
	}
	msgs, err := coachjson.UnmarshalMessages(data)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", key, err)
	}
	return msgs, nil
}

func (s *Store) readFreeCount(ctx context.Context) (int, error) {
	data, ok, err := s.read(ctx, FreeCountKey)
	if err != nil || !ok {
		return 0, err
	}
	n, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("decode %s: %w", FreeCountKey, err)
	}
	return n, nil
}

func (s *Store) readFavorites(ctx context.Context) ([]coach.Favorite, error) {
	data, ok, err := s.read(ctx, FavoritesKey)
	if err != nil || !ok {
		return nil, err
	}
	favs, err := coachjson.UnmarshalFavorites(data)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", FavoritesKey, err)
	}
	return favs, nil
}

func (s *Store) writeFavorites(ctx context.Context, favs []coach.Favorite) error {
	data, err := coachjson.MarshalFavorites(favs)
	if err != nil {
		return fmt.Errorf("marshal favorites: %w", err)
	}
	if err := s.kv.Set(ctx, FavoritesKey, data); err != nil {
		return fmt.Errorf("write favorites: %w", err)
	}
	return nil
}

// lossy runs a read and substitutes the zero value on failure.
func lossy[T any](log zerolog.Logger, key string, fn func() (T, error)) T {
	v, err := fn()
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("storage read failed, using empty value")
		var zero T
		return zero
	}
	return v
}

func sortSessions(sessions []coach.Session) {
	slices.SortStableFunc(sessions, func(a, b coach.Session) int {
		return cmp.Compare(b.UpdatedAt.UnixNano(), a.UpdatedAt.UnixNano())
	})
}

// later keeps update times monotonically non-decreasing.
func later(now, prev time.Time) time.Time {
	if now.Before(prev) {
		return prev
	}
	return now
}
