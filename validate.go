package coach

import (
	"fmt"
	"slices"
	"strings"
	"unicode/utf8"
)

const (
	// MaxContentLength is the maximum message length in characters.
	MaxContentLength = 4000

	// MaxFavoriteTitle is the maximum favorite title length in characters.
	MaxFavoriteTitle = 100
)

// Validate checks universal constraints on Request.
// Provider implementations may apply additional provider-specific validation.
func (r Request) Validate() error {
	if r.Temperature != nil {
		if *r.Temperature < 0 || *r.Temperature > 2 {
			return fmt.Errorf("temperature must be in [0, 2], got %g: %w", *r.Temperature, ErrValidation)
		}
	}
	if r.MaxTokens < 0 {
		return fmt.Errorf("max_tokens must be non-negative, got %d: %w", r.MaxTokens, ErrValidation)
	}
	if len(r.Messages) == 0 {
		return fmt.Errorf("messages must not be empty: %w", ErrValidation)
	}
	return nil
}

// ValidateMessage checks a message's role and content length.
func ValidateMessage(msg Message) error {
	if !msg.Role.Valid() {
		return fmt.Errorf("unknown role %q: %w", msg.Role, ErrValidation)
	}
	return ValidateContent(msg.Content)
}

// ValidateContent checks that content is non-blank and at most
// MaxContentLength characters.
func ValidateContent(content string) error {
	if strings.TrimSpace(content) == "" {
		return fmt.Errorf("content must not be empty: %w", ErrValidation)
	}
	if n := utf8.RuneCountInString(content); n > MaxContentLength {
		return fmt.Errorf("content must be at most %d characters, got %d: %w", MaxContentLength, n, ErrValidation)
	}
	return nil
}

// Validate checks the enumerated fields of a Context. Empty fields are valid.
func (c Context) Validate() error {
	if c.AgeRange != "" && !slices.Contains(AgeRanges, c.AgeRange) {
		return fmt.Errorf("unknown age range %q: %w", c.AgeRange, ErrValidation)
	}
	if c.SituationType != "" && !slices.Contains(SituationTypes, c.SituationType) {
		return fmt.Errorf("unknown situation type %q: %w", c.SituationType, ErrValidation)
	}
	return nil
}

// Validate checks every message and the context of a CoachRequest.
func (r CoachRequest) Validate() error {
	if len(r.Messages) == 0 {
		return fmt.Errorf("messages must not be empty: %w", ErrValidation)
	}
	for i, m := range r.Messages {
		if err := ValidateMessage(m); err != nil {
			return fmt.Errorf("message %d: %w", i, err)
		}
	}
	return r.Context.Validate()
}

// ValidateFavoriteTitle checks that a favorite title has 1 to
// MaxFavoriteTitle characters.
func ValidateFavoriteTitle(title string) error {
	n := utf8.RuneCountInString(strings.TrimSpace(title))
	if n == 0 || n > MaxFavoriteTitle {
		return fmt.Errorf("favorite title must be 1-%d characters, got %d: %w", MaxFavoriteTitle, n, ErrValidation)
	}
	return nil
}
