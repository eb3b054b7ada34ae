package openai_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/fwojciec/coach"
	"github.com/fwojciec/coach/openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const okBody = `{"id":"cmpl-1","model":"gpt-4o-mini-2024","choices":[{"index":0,"message":{"role":"assistant","content":"Try a calm-down corner."},"finish_reason":"stop"}],"usage":{"prompt_tokens":42,"completion_tokens":7,"total_tokens":49}}`

func TestClient_RequestFormat(t *testing.T) {
	t.Parallel()

	var captured []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured, _ = io.ReadAll(r.Body)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(okBody))
	}))
	defer srv.Close()

	temp := 0.7
	client := openai.New("sk-test", openai.WithBaseURL(srv.URL+"/v1/"))
	resp, err := client.Complete(context.Background(), coach.Request{
		SystemPrompt: "You are a warm, practical parenting coach for grandparents.",
		Messages: []coach.Message{
			{Role: coach.RoleUser, Content: "Help with tantrums"},
			{Role: coach.RoleAssistant, Content: "How old is she?"},
			{Role: coach.RoleUser, Content: "Four"},
		},
		MaxTokens:   600,
		Temperature: &temp,
	})
	require.NoError(t, err)
	assert.Equal(t, "Try a calm-down corner.", resp.Content)
	assert.Equal(t, "gpt-4o-mini-2024", resp.Model)
	assert.Equal(t, coach.Usage{InputTokens: 42, OutputTokens: 7}, resp.Usage)

	var body map[string]any
	require.NoError(t, json.Unmarshal(captured, &body))
	assert.Equal(t, "gpt-4o-mini", body["model"])
	assert.Equal(t, 0.7, body["temperature"])
	assert.Equal(t, float64(600), body["max_tokens"])

	msgs := body["messages"].([]any)
	require.Len(t, msgs, 4)
	first := msgs[0].(map[string]any)
	assert.Equal(t, "system", first["role"])
	assert.Equal(t, "You are a warm, practical parenting coach for grandparents.", first["content"])
	assert.Equal(t, "assistant", msgs[2].(map[string]any)["role"])
	assert.Equal(t, "Four", msgs[3].(map[string]any)["content"])
}

func TestClient_ModelOverride(t *testing.T) {
	t.Parallel()
	var model string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Model       string   `json:"model"`
			Temperature *float64 `json:"temperature"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		model = body.Model
		assert.Nil(t, body.Temperature, "temperature omitted when unset")
		_, _ = w.Write([]byte(okBody))
	}))
	defer srv.Close()

	client := openai.New("k", openai.WithBaseURL(srv.URL), openai.WithModel("llama-3"))
	_, err := client.Complete(context.Background(), coach.Request{
		Messages: []coach.Message{{Role: coach.RoleUser, Content: "hi"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "llama-3", model)

	_, err = client.Complete(context.Background(), coach.Request{
		Model:    "gpt-4o",
		Messages: []coach.Message{{Role: coach.RoleUser, Content: "hi"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o", model)
}

func TestClient_Errors(t *testing.T) {
	t.Parallel()

	t.Run("structured API error", func(t *testing.T) {
		t.Parallel()
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":{"message":"Incorrect API key","type":"invalid_request_error"}}`))
		}))
		defer srv.Close()

		_, err := openai.New("bad", openai.WithBaseURL(srv.URL)).Complete(context.Background(), coach.Request{
			Messages: []coach.Message{{Role: coach.RoleUser, Content: "hi"}},
		})
		require.Error(t, err)
		assert.ErrorIs(t, err, coach.ErrProvider)
		assert.Contains(t, err.Error(), "HTTP 401")
		assert.Contains(t, err.Error(), "Incorrect API key")
	})

	t.Run("plain text error", func(t *testing.T) {
		t.Parallel()
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "upstream exploded", http.StatusBadGateway)
		}))
		defer srv.Close()

		_, err := openai.New("k", openai.WithBaseURL(srv.URL)).Complete(context.Background(), coach.Request{
			Messages: []coach.Message{{Role: coach.RoleUser, Content: "hi"}},
		})
		assert.ErrorIs(t, err, coach.ErrProvider)
		assert.Contains(t, err.Error(), "upstream exploded")
	})

	t.Run("no choices", func(t *testing.T) {
		t.Parallel()
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"choices":[]}`))
		}))
		defer srv.Close()

		_, err := openai.New("k", openai.WithBaseURL(srv.URL)).Complete(context.Background(), coach.Request{
			Messages: []coach.Message{{Role: coach.RoleUser, Content: "hi"}},
		})
		assert.ErrorIs(t, err, coach.ErrProvider)
		assert.Contains(t, err.Error(), "no choices")
	})

	t.Run("invalid request is rejected before I/O", func(t *testing.T) {
		t.Parallel()
		called := false
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			called = true
		}))
		defer srv.Close()

		_, err := openai.New("k", openai.WithBaseURL(srv.URL)).Complete(context.Background(), coach.Request{})
		assert.ErrorIs(t, err, coach.ErrValidation)
		assert.False(t, called)
	})
}
