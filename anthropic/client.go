package anthropic

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

// Interface compliance check.
var _ coach.Provider = (*Client)(nil)

// Client implements [coach.Provider] for the Anthropic Messages API.
type Client struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
}

// Option configures a [Client].
type Option func(*Client)

// WithBaseURL sets the API base URL. Useful for testing with httptest.
func WithBaseURL(url string) Option {
	return func(c *Client) { c.baseURL = url }
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithModel sets the model used when a request leaves Model empty.
func WithModel(model string) Option {
	return func(c *Client) { c.model = model }
}

// New creates a new Anthropic [Client] with the given API key and options.
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

// Complete sends a request to the Anthropic Messages API and returns the
// concatenated text of the reply.
func (c *Client) Complete(ctx context.Context, req coach.Request) (coach.Response, error) {
	if err := req.Validate(); err != nil {
		return coach.Response{}, fmt.Errorf("anthropic: %w", err)
	}
	body, err := c.buildRequestBody(req)
	if err != nil {
		return coach.Response{}, fmt.Errorf("anthropic: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+messagesPath, bytes.NewReader(body))
	if err != nil {
		return coach.Response{}, fmt.Errorf("anthropic: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Api-Key", c.apiKey)
	httpReq.Header.Set("Anthropic-Version", apiVersion)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return coach.Response{}, fmt.Errorf("anthropic: %w: %w", coach.ErrProvider, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return coach.Response{}, parseHTTPError(resp)
	}

	var out apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return coach.Response{}, fmt.Errorf("anthropic: decode response: %w: %w", coach.ErrProvider, err)
	}

	var text strings.Builder
	for _, b := range out.Content {
		if b.Type == "text" {
			text.WriteString(b.Text)
		}
	}
	if text.Len() == 0 {
		return coach.Response{}, fmt.Errorf("anthropic: response has no text content (stop_reason: %s): %w", out.StopReason, coach.ErrProvider)
	}
	return coach.Response{
		Content: text.String(),
		Model:   out.Model,
		Usage: coach.Usage{
			InputTokens:  out.Usage.InputTokens,
			OutputTokens: out.Usage.OutputTokens,
		},
	}, nil
}

func (c *Client) buildRequestBody(req coach.Request) ([]byte, error) {
	model := req.Model
	if model == "" {
		model = c.model
	}
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = defaultMaxTokens
	}

	return json.Marshal(apiRequest{
		Model:       model,
		MaxTokens:   maxTokens,
		System:      convertSystem(req.SystemPrompt, req.Messages),
		Messages:    convertMessages(req.Messages),
		Temperature: req.Temperature,
	})
}

// convertSystem folds the system prompt and any system-role messages into a
// single cached text block. Returns nil when there is no system text.
func convertSystem(prompt string, msgs []coach.Message) []apiContentBlock {
	parts := make([]string, 0, 1)
	if prompt != "" {
		parts = append(parts, prompt)
	}
	for _, m := range msgs {
		if m.Role == coach.RoleSystem && m.Content != "" {
			parts = append(parts, m.Content)
		}
	}
	if len(parts) == 0 {
		return nil
	}
	return []apiContentBlock{{
		Type:         "text",
		Text:         strings.Join(parts, "\n\n"),
		CacheControl: &apiCacheControl{Type: "ephemeral"},
	}}
}

// convertMessages maps conversation turns to API messages. System-role
// messages are left out (convertSystem carries them), and consecutive
// turns of the same role are merged because the API requires alternation.
func convertMessages(msgs []coach.Message) []apiMessage {
	var result []apiMessage
	for _, m := range msgs {
		if m.Role == coach.RoleSystem {
			continue
		}
		block := apiContentBlock{Type: "text", Text: m.Content}
		if n := len(result); n > 0 && result[n-1].Role == string(m.Role) {
			result[n-1].Content = append(result[n-1].Content, block)
			continue
		}
		result = append(result, apiMessage{
			Role:    string(m.Role),
			Content: []apiContentBlock{block},
		})
	}
	return result
}

func parseHTTPError(resp *http.Response) error {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("anthropic: HTTP %d (failed to read body: %w): %w", resp.StatusCode, err, coach.ErrProvider)
	}
	var apiErr apiErrorResponse
	if err := json.Unmarshal(body, &apiErr); err != nil || apiErr.Error.Type == "" {
		return fmt.Errorf("anthropic: HTTP %d: %s: %w", resp.StatusCode, string(body), coach.ErrProvider)
	}
	return fmt.Errorf("anthropic: %s: %s: %w", apiErr.Error.Type, apiErr.Error.Message, coach.ErrProvider)
}
