package coach_test

import (
	"strings"
	"testing"

	"github.com/fwojciec/coach"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequest_Validate(t *testing.T) {
	t.Parallel()
	msgs := []coach.Message{{Role: coach.RoleUser, Content: "hi"}}

	t.Run("defaults are valid", func(t *testing.T) {
		t.Parallel()
		assert.NoError(t, coach.Request{Messages: msgs}.Validate())
	})

	t.Run("temperature out of range", func(t *testing.T) {
		t.Parallel()
		temp := 2.5
		err := coach.Request{Messages: msgs, Temperature: &temp}.Validate()
		require.Error(t, err)
		assert.ErrorIs(t, err, coach.ErrValidation)
		assert.Contains(t, err.Error(), "temperature")
	})

	t.Run("negative max tokens", func(t *testing.T) {
		t.Parallel()
		err := coach.Request{Messages: msgs, MaxTokens: -1}.Validate()
		assert.ErrorIs(t, err, coach.ErrValidation)
	})

	t.Run("no messages", func(t *testing.T) {
		t.Parallel()
		err := coach.Request{}.Validate()
		assert.ErrorIs(t, err, coach.ErrValidation)
	})
}

func TestValidateMessage(t *testing.T) {
	t.Parallel()

	t.Run("accepts known roles", func(t *testing.T) {
		t.Parallel()
		for _, r := range []coach.Role{coach.RoleUser, coach.RoleAssistant, coach.RoleSystem} {
			assert.NoError(t, coach.ValidateMessage(coach.Message{Role: r, Content: "ok"}))
		}
	})

	t.Run("rejects unknown role", func(t *testing.T) {
		t.Parallel()
		err := coach.ValidateMessage(coach.Message{Role: "tool", Content: "ok"})
		assert.ErrorIs(t, err, coach.ErrValidation)
	})

	t.Run("rejects blank content", func(t *testing.T) {
		t.Parallel()
		err := coach.ValidateMessage(coach.Message{Role: coach.RoleUser, Content: "   "})
		assert.ErrorIs(t, err, coach.ErrValidation)
	})

	t.Run("content length counts characters", func(t *testing.T) {
		t.Parallel()
		ok := strings.Repeat("é", coach.MaxContentLength)
		assert.NoError(t, coach.ValidateMessage(coach.Message{Role: coach.RoleUser, Content: ok}))

		err := coach.ValidateMessage(coach.Message{Role: coach.RoleUser, Content: ok + "x"})
		assert.ErrorIs(t, err, coach.ErrValidation)
	})
}

func TestContext_Validate(t *testing.T) {
	t.Parallel()
	assert.NoError(t, coach.Context{}.Validate())
	assert.NoError(t, coach.Context{AgeRange: "teen", SituationType: "public-meltdown"}.Validate())
	assert.ErrorIs(t, coach.Context{AgeRange: "13-15"}.Validate(), coach.ErrValidation)
	assert.ErrorIs(t, coach.Context{SituationType: "homework"}.Validate(), coach.ErrValidation)
}

func TestCoachRequest_Validate(t *testing.T) {
	t.Parallel()
	req := coach.CoachRequest{
		Messages: []coach.Message{
			{Role: coach.RoleAssistant, Content: "Hi!"},
			{Role: coach.RoleUser, Content: ""},
		},
	}
	err := req.Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, coach.ErrValidation)
	assert.Contains(t, err.Error(), "message 1")
}

func TestValidateFavoriteTitle(t *testing.T) {
	t.Parallel()
	assert.NoError(t, coach.ValidateFavoriteTitle("Bedtime wins"))
	assert.ErrorIs(t, coach.ValidateFavoriteTitle(""), coach.ErrValidation)
	assert.ErrorIs(t, coach.ValidateFavoriteTitle(strings.Repeat("a", 101)), coach.ErrValidation)
}

func TestLatestUserMessage(t *testing.T) {
	t.Parallel()
	msgs := []coach.Message{
		{Role: coach.RoleUser, Content: "first"},
		{Role: coach.RoleAssistant, Content: "reply"},
		{Role: coach.RoleUser, Content: "second"},
		{Role: coach.RoleAssistant, Content: "reply 2"},
	}
	got, ok := coach.LatestUserMessage(msgs)
	require.True(t, ok)
	assert.Equal(t, "second", got.Content)

	_, ok = coach.LatestUserMessage([]coach.Message{{Role: coach.RoleAssistant, Content: "hi"}})
	assert.False(t, ok)
}
