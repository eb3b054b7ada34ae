package anthropic_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/fwojciec/coach"
	"github.com/fwojciec/coach/anthropic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const okResponse = `{"id":"msg_1","type":"message","role":"assistant","model":"claude-sonnet-4-20250514","content":[{"type":"text","text":"Name the feeling, "},{"type":"text","text":"then wait it out."}],"stop_reason":"end_turn","usage":{"input_tokens":31,"output_tokens":9}}`

func okHandler(captured *[]byte) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		*captured, _ = io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(okResponse))
	}
}

func TestClient_RequestFormat(t *testing.T) {
	t.Parallel()

	var captured []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "test-api-key", r.Header.Get("X-Api-Key"))
		assert.Equal(t, "2023-06-01", r.Header.Get("Anthropic-Version"))
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/messages", r.URL.Path)
		okHandler(&captured)(w, r)
	}))
	defer srv.Close()

	temp := 0.7
	client := anthropic.New("test-api-key", anthropic.WithBaseURL(srv.URL))
	resp, err := client.Complete(context.Background(), coach.Request{
		Model:        "claude-opus-4-20250514",
		SystemPrompt: "You are a parenting coach.",
		Messages: []coach.Message{
			{Role: coach.RoleUser, Content: "Help with tantrums"},
			{Role: coach.RoleAssistant, Content: "How old?"},
			{Role: coach.RoleUser, Content: "Four"},
		},
		MaxTokens:   600,
		Temperature: &temp,
	})
	require.NoError(t, err)
	assert.Equal(t, "Name the feeling, then wait it out.", resp.Content)
	assert.Equal(t, "claude-sonnet-4-20250514", resp.Model)
	assert.Equal(t, coach.Usage{InputTokens: 31, OutputTokens: 9}, resp.Usage)

	var body map[string]any
	require.NoError(t, json.Unmarshal(captured, &body))

	assert.Equal(t, "claude-opus-4-20250514", body["model"])
	assert.Equal(t, float64(600), body["max_tokens"])
	assert.Equal(t, 0.7, body["temperature"])
	assert.NotContains(t, body, "stream")

	system := body["system"].([]any)
	require.Len(t, system, 1)
	sys0 := system[0].(map[string]any)
	assert.Equal(t, "You are a parenting coach.", sys0["text"])
	assert.Equal(t, map[string]any{"type": "ephemeral"}, sys0["cache_control"])

	msgs := body["messages"].([]any)
	require.Len(t, msgs, 3)
	msg0 := msgs[0].(map[string]any)
	assert.Equal(t, "user", msg0["role"])
	content0 := msg0["content"].([]any)
	require.Len(t, content0, 1)
	block0 := content0[0].(map[string]any)
	assert.Equal(t, "text", block0["type"])
	assert.Equal(t, "Help with tantrums", block0["text"])
	assert.Equal(t, "assistant", msgs[1].(map[string]any)["role"])
}

func TestClient_DefaultModelAndMaxTokens(t *testing.T) {
	t.Parallel()

	var captured []byte
	srv := httptest.NewServer(okHandler(&captured))
	defer srv.Close()

	client := anthropic.New("test-key", anthropic.WithBaseURL(srv.URL))
	_, err := client.Complete(context.Background(), coach.Request{
		Messages: []coach.Message{{Role: coach.RoleUser, Content: "Hi"}},
	})
	require.NoError(t, err)

	var body map[string]any
	require.NoError(t, json.Unmarshal(captured, &body))
	assert.Equal(t, "claude-sonnet-4-20250514", body["model"])
	assert.Equal(t, float64(1024), body["max_tokens"])
	assert.NotContains(t, body, "system")
	assert.NotContains(t, body, "temperature")
}

func TestClient_WithModel(t *testing.T) {
	t.Parallel()

	var captured []byte
	srv := httptest.NewServer(okHandler(&captured))
	defer srv.Close()

	client := anthropic.New("test-key", anthropic.WithBaseURL(srv.URL), anthropic.WithModel("claude-3-5-haiku-latest"))
	_, err := client.Complete(context.Background(), coach.Request{
		Messages: []coach.Message{{Role: coach.RoleUser, Content: "Hi"}},
	})
	require.NoError(t, err)

	var body map[string]any
	require.NoError(t, json.Unmarshal(captured, &body))
	assert.Equal(t, "claude-3-5-haiku-latest", body["model"])
}

func TestClient_ConsecutiveRolesMerged(t *testing.T) {
	t.Parallel()

	var captured []byte
	srv := httptest.NewServer(okHandler(&captured))
	defer srv.Close()

	client := anthropic.New("test-key", anthropic.WithBaseURL(srv.URL))
	_, err := client.Complete(context.Background(), coach.Request{
		Messages: []coach.Message{
			{Role: coach.RoleAssistant, Content: "Hi! What's going on?"},
			{Role: coach.RoleUser, Content: "Bedtime battles"},
			{Role: coach.RoleSystem, Content: "Keep answers short."},
			{Role: coach.RoleUser, Content: "every night"},
		},
	})
	require.NoError(t, err)

	var body map[string]any
	require.NoError(t, json.Unmarshal(captured, &body))

	system := body["system"].([]any)
	require.Len(t, system, 1)
	assert.Equal(t, "Keep answers short.", system[0].(map[string]any)["text"])

	msgs := body["messages"].([]any)
	require.Len(t, msgs, 2)
	user := msgs[1].(map[string]any)
	assert.Equal(t, "user", user["role"])
	blocks := user["content"].([]any)
	require.Len(t, blocks, 2)
	assert.Equal(t, "Bedtime battles", blocks[0].(map[string]any)["text"])
	assert.Equal(t, "every night", blocks[1].(map[string]any)["text"])
}

func TestClient_HTTPError(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"type":"error","error":{"type":"invalid_request_error","message":"max_tokens: integer above 1 expected"}}`))
	}))
	defer srv.Close()

	client := anthropic.New("test-key", anthropic.WithBaseURL(srv.URL))
	_, err := client.Complete(context.Background(), coach.Request{
		Messages: []coach.Message{{Role: coach.RoleUser, Content: "Hi"}},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, coach.ErrProvider)
	assert.Contains(t, err.Error(), "invalid_request_error")
	assert.Contains(t, err.Error(), "max_tokens")
}

func TestClient_HTTPErrorNonJSON(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("internal server error"))
	}))
	defer srv.Close()

	client := anthropic.New("test-key", anthropic.WithBaseURL(srv.URL))
	_, err := client.Complete(context.Background(), coach.Request{
		Messages: []coach.Message{{Role: coach.RoleUser, Content: "Hi"}},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, coach.ErrProvider)
	assert.Contains(t, err.Error(), "500")
}

func TestClient_EmptyContent(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id":"msg_1","model":"m","content":[],"stop_reason":"max_tokens","usage":{"input_tokens":1,"output_tokens":0}}`))
	}))
	defer srv.Close()

	client := anthropic.New("test-key", anthropic.WithBaseURL(srv.URL))
	_, err := client.Complete(context.Background(), coach.Request{
		Messages: []coach.Message{{Role: coach.RoleUser, Content: "Hi"}},
	})
	assert.ErrorIs(t, err, coach.ErrProvider)
	assert.Contains(t, err.Error(), "max_tokens")
}

func TestClient_ContextCancelled(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(okResponse))
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := anthropic.New("test-key", anthropic.WithBaseURL(srv.URL))
	_, err := client.Complete(ctx, coach.Request{
		Messages: []coach.Message{{Role: coach.RoleUser, Content: "Hi"}},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}
