// Package openai implements [coach.Provider] for OpenAI-compatible chat
// completion APIs.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/fwojciec/coach"
)

const (
	defaultBaseURL  = "https://api.openai.com/v1"
	defaultModel    = "gpt-4o-mini"
	completionsPath = "/chat/completions"
)

// Interface compliance check.
var _ coach.Provider = (*Client)(nil)

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature *float64      `json:"temperature,omitempty"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Model   string   `json:"model"`
	Choices []choice `json:"choices"`
	Usage   *usage   `json:"usage,omitempty"`
}

type choice struct {
	Index        int          `json:"index"`
	Message      *chatMessage `json:"message,omitempty"`
	FinishReason string       `json:"finish_reason,omitempty"`
}

type usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
}

type errorResponse struct {
	Error *apiError `json:"error"`
}

type apiError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

// Client implements [coach.Provider] for an OpenAI-compatible endpoint.
type Client struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
}

// Option configures a [Client].
type Option func(*Client)

// WithBaseURL sets the API base URL, including any version prefix
// (e.g. https://api.openai.com/v1). Useful for testing with httptest.
func WithBaseURL(url string) Option {
	return func(c *Client) { c.baseURL = strings.TrimSuffix(url, "/") }
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithModel sets the default model ID. Default is gpt-4o-mini.
func WithModel(model string) Option {
	return func(c *Client) { c.model = model }
}

// New creates a new OpenAI-compatible [Client] with the given API key and options.
func New(apiKey string, opts ...Option) *Client {
	c := &Client{
		apiKey:     apiKey,
		baseURL:    defaultBaseURL,
		model:      defaultModel,
		httpClient: http.DefaultClient,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Complete sends a non-streaming chat completion request.
func (c *Client) Complete(ctx context.Context, req coach.Request) (coach.Response, error) {
	if err := req.Validate(); err != nil {
		return coach.Response{}, fmt.Errorf("openai: %w", err)
	}
	body, err := json.Marshal(c.buildRequest(req))
	if err != nil {
		return coach.Response{}, fmt.Errorf("openai: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+completionsPath, bytes.NewReader(body))
	if err != nil {
		return coach.Response{}, fmt.Errorf("openai: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return coach.Response{}, fmt.Errorf("openai: %w: %w", coach.ErrProvider, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return coach.Response{}, fmt.Errorf("openai: read response: %w: %w", coach.ErrProvider, err)
	}
	if resp.StatusCode != http.StatusOK {
		return coach.Response{}, parseHTTPError(resp.StatusCode, respBody)
	}

	var out chatResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return coach.Response{}, fmt.Errorf("openai: decode response: %w: %w", coach.ErrProvider, err)
	}
	if len(out.Choices) == 0 || out.Choices[0].Message == nil {
		return coach.Response{}, fmt.Errorf("openai: response has no choices: %w", coach.ErrProvider)
	}

	result := coach.Response{
		Content: out.Choices[0].Message.Content,
		Model:   out.Model,
	}
	if out.Usage != nil {
		result.Usage = coach.Usage{
			InputTokens:  out.Usage.PromptTokens,
			OutputTokens: out.Usage.CompletionTokens,
		}
	}
	return result, nil
}

func (c *Client) buildRequest(req coach.Request) chatRequest {
	model := req.Model
	if model == "" {
		model = c.model
	}
	msgs := make([]chatMessage, 0, len(req.Messages)+1)
	if req.SystemPrompt != "" {
		msgs = append(msgs, chatMessage{Role: "system", Content: req.SystemPrompt})
	}
	for _, m := range req.Messages {
		msgs = append(msgs, chatMessage{Role: string(m.Role), Content: m.Content})
	}
	return chatRequest{
		Model:       model,
		Messages:    msgs,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}
}

func parseHTTPError(status int, body []byte) error {
	var errResp errorResponse
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error != nil {
		return fmt.Errorf("openai: HTTP %d: %s (type: %s): %w", status, errResp.Error.Message, errResp.Error.Type, coach.ErrProvider)
	}
	return fmt.Errorf("openai: HTTP %d: %s: %w", status, strings.TrimSpace(string(body)), coach.ErrProvider)
}
