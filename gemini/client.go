package gemini

import (
	"context"
	"fmt"
	"strings"

	"github.com/fwojciec/coach"
	"google.golang.org/genai"
)

// Interface compliance check.
var _ coach.Provider = (*Client)(nil)

// Client implements [coach.Provider] for the Google Gemini API.
type Client struct {
	client *genai.Client
	model  string
}

type config struct {
	model   string
	baseURL string
}

// Option configures a [Client].
type Option func(*config)

// WithModel sets the model ID. Default is gemini-2.5-flash.
func WithModel(model string) Option {
	return func(c *config) { c.model = model }
}

// WithBaseURL overrides the Gemini API endpoint.
func WithBaseURL(url string) Option {
	return func(c *config) { c.baseURL = url }
}

// New creates a new Gemini [Client] with the given API key and options.
func New(ctx context.Context, apiKey string, opts ...Option) (*Client, error) {
	cfg := config{model: defaultModel}
	for _, o := range opts {
		o(&cfg)
	}
	cc := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.baseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.baseURL}
	}
	gc, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("gemini: %w", err)
	}
	return &Client{client: gc, model: cfg.model}, nil
}

// Complete sends a GenerateContent request and returns the text of the
// first candidate.
func (c *Client) Complete(ctx context.Context, req coach.Request) (coach.Response, error) {
	if err := req.Validate(); err != nil {
		return coach.Response{}, fmt.Errorf("gemini: %w", err)
	}
	model := req.Model
	if model == "" {
		model = c.model
	}

	resp, err := c.client.Models.GenerateContent(ctx, model, ConvertMessages(req.Messages), BuildConfig(req))
	if err != nil {
		return coach.Response{}, fmt.Errorf("gemini: %w: %w", coach.ErrProvider, err)
	}
	out, err := ConvertResponse(resp)
	if err != nil {
		return coach.Response{}, err
	}
	if out.Model == "" {
		out.Model = model
	}
	return out, nil
}

// BuildConfig maps request parameters to a GenerateContentConfig.
// Exported for testing.
func BuildConfig(req coach.Request) *genai.GenerateContentConfig {
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = defaultMaxTokens
	}

	config := &genai.GenerateContentConfig{
		MaxOutputTokens: int32(maxTokens),
	}

	if req.SystemPrompt != "" {
		config.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: req.SystemPrompt}},
		}
	}

	if req.Temperature != nil {
		temp := float32(*req.Temperature)
		config.Temperature = &temp
	}

	return config
}

// ConvertMessages converts coach Messages to genai Contents. System-role
// messages are dropped since the system prompt travels in the config.
// Exported for testing.
func ConvertMessages(msgs []coach.Message) []*genai.Content {
	var result []*genai.Content
	for _, m := range msgs {
		var role string
		switch m.Role {
		case coach.RoleUser:
			role = "user"
		case coach.RoleAssistant:
			role = "model"
		default:
			continue
		}
		result = append(result, &genai.Content{
			Role:  role,
			Parts: []*genai.Part{{Text: m.Content}},
		})
	}
	return result
}

// ConvertResponse extracts the text and usage from a GenerateContent
// response. Thought parts are skipped.
// Exported for testing.
func ConvertResponse(resp *genai.GenerateContentResponse) (coach.Response, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return coach.Response{}, fmt.Errorf("gemini: response has no candidates: %w", coach.ErrProvider)
	}
	cand := resp.Candidates[0]
	var text strings.Builder
	for _, p := range cand.Content.Parts {
		if p == nil || p.Thought {
			continue
		}
		text.WriteString(p.Text)
	}
	if text.Len() == 0 {
		return coach.Response{}, fmt.Errorf("gemini: response has no text (finish reason: %s): %w", cand.FinishReason, coach.ErrProvider)
	}
	out := coach.Response{
		Content: text.String(),
		Model:   resp.ModelVersion,
	}
	if u := resp.UsageMetadata; u != nil {
		out.Usage = coach.Usage{
			InputTokens:  int(u.PromptTokenCount),
			OutputTokens: int(u.CandidatesTokenCount),
		}
	}
	return out, nil
}
