// Package json encodes coaching records as versioned JSON envelopes and
// persists them as one file per key.
package json

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/fwojciec/coach"
)

const envelopeVersion = 1

// envelope is the v1 wire format for a persisted record list.
type envelope[T any] struct {
	Version int `json:"version"`
	Items   []T `json:"items"`
}

type sessionDTO struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type messageDTO struct {
	ID        string    `json:"id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

type favoriteDTO struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	Title     string    `json:"title"`
	Summary   string    `json:"summary,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// MarshalSessions serializes the session index in v1 envelope format.
func MarshalSessions(sessions []coach.Session) ([]byte, error) {
	items := make([]sessionDTO, len(sessions))
	for i, s := range sessions {
		items[i] = sessionDTO{ID: s.ID, Title: s.Title, CreatedAt: s.CreatedAt, UpdatedAt: s.UpdatedAt}
	}
	return marshal(items)
}

// UnmarshalSessions deserializes the session index from v1 envelope format.
func UnmarshalSessions(data []byte) ([]coach.Session, error) {
	items, err := unmarshal[sessionDTO](data)
	if err != nil {
		return nil, err
	}
	sessions := make([]coach.Session, len(items))
	for i, dto := range items {
		if dto.ID == "" {
			return nil, fmt.Errorf("session %d: missing id", i)
		}
		sessions[i] = coach.Session{ID: dto.ID, Title: dto.Title, CreatedAt: dto.CreatedAt, UpdatedAt: dto.UpdatedAt}
	}
	return sessions, nil
}

// MarshalMessages serializes a session's message list in v1 envelope format.
func MarshalMessages(msgs []coach.Message) ([]byte, error) {
	items := make([]messageDTO, len(msgs))
	for i, m := range msgs {
		if !m.Role.Valid() {
			return nil, fmt.Errorf("message %d: unknown role %q", i, m.Role)
		}
		items[i] = messageDTO{ID: m.ID, Role: string(m.Role), Content: m.Content, Timestamp: m.Timestamp}
	}
	return marshal(items)
}

// UnmarshalMessages deserializes a session's message list from v1 envelope format.
func UnmarshalMessages(data []byte) ([]coach.Message, error) {
	items, err := unmarshal[messageDTO](data)
	if err != nil {
		return nil, err
	}
	msgs := make([]coach.Message, len(items))
	for i, dto := range items {
		role := coach.Role(dto.Role)
		if !role.Valid() {
			return nil, fmt.Errorf("message %d: unknown role %q", i, dto.Role)
		}
		msgs[i] = coach.Message{ID: dto.ID, Role: role, Content: dto.Content, Timestamp: dto.Timestamp}
	}
	return msgs, nil
}

// MarshalFavorites serializes the favorites list in v1 envelope format.
func MarshalFavorites(favs []coach.Favorite) ([]byte, error) {
	items := make([]favoriteDTO, len(favs))
	for i, f := range favs {
		items[i] = favoriteDTO{ID: f.ID, SessionID: f.SessionID, Title: f.Title, Summary: f.Summary, CreatedAt: f.CreatedAt}
	}
	return marshal(items)
}

// UnmarshalFavorites deserializes the favorites list from v1 envelope format.
func UnmarshalFavorites(data []byte) ([]coach.Favorite, error) {
	items, err := unmarshal[favoriteDTO](data)
	if err != nil {
		return nil, err
	}
	favs := make([]coach.Favorite, len(items))
	for i, dto := range items {
		favs[i] = coach.Favorite{ID: dto.ID, SessionID: dto.SessionID, Title: dto.Title, Summary: dto.Summary, CreatedAt: dto.CreatedAt}
	}
	return favs, nil
}

func marshal[T any](items []T) ([]byte, error) {
	return json.MarshalIndent(envelope[T]{Version: envelopeVersion, Items: items}, "", "  ")
}

func unmarshal[T any](data []byte) ([]T, error) {
	var env envelope[T]
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("unmarshal envelope: %w", err)
	}
	if env.Version != envelopeVersion {
		return nil, fmt.Errorf("unsupported envelope version: %d", env.Version)
	}
	return env.Items, nil
}
