package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/fwojciec/coach"
)

// Interface compliance check.
var _ coach.Gateway = (*Client)(nil)

// Client implements [coach.Gateway] over HTTP.
type Client struct {
	baseURL    string
	callerID   string
	httpClient *http.Client
}

// ClientOption configures a [Client].
type ClientOption func(*Client)

// WithCallerID sets the identity sent in the X-Caller-ID header.
func WithCallerID(id string) ClientOption {
	return func(c *Client) { c.callerID = id }
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout sets the overall timeout for each call. Default 60s.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) { c.httpClient = &http.Client{Timeout: d} }
}

// NewClient creates a gateway client for the service at baseURL.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Coach requests the next coaching reply.
func (c *Client) Coach(ctx context.Context, req coach.CoachRequest) (coach.CoachReply, error) {
	if err := req.Validate(); err != nil {
		return coach.CoachReply{}, err
	}
	var out contentResponse
	err := c.post(ctx, "/coach", coachRequestJSON{
		Messages: toMessagesJSON(req.Messages),
		Context:  toContextJSON(req.Context),
	}, &out)
	if err != nil {
		return coach.CoachReply{}, err
	}
	return coach.CoachReply{Content: out.Content, Classification: out.Classification}, nil
}

// Summarize requests a one-page summary of a conversation.
func (c *Client) Summarize(ctx context.Context, req coach.SummarizeRequest) (string, error) {
	if strings.TrimSpace(req.Transcript) == "" && len(req.Messages) == 0 {
		return "", fmt.Errorf("transcript or messages required: %w", coach.ErrValidation)
	}
	var out contentResponse
	err := c.post(ctx, "/summarize", summarizeRequestJSON{
		Transcript: req.Transcript,
		Messages:   toMessagesJSON(req.Messages),
		Audience:   req.Audience,
	}, &out)
	if err != nil {
		return "", err
	}
	return out.Content, nil
}

func (c *Client) post(ctx context.Context, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("gateway: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("gateway: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.callerID != "" {
		httpReq.Header.Set(CallerHeader, c.callerID)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("gateway: %w: %w", coach.ErrGatewayUnavailable, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxBodyBytes))
	if err != nil {
		return fmt.Errorf("gateway: read response: %w: %w", coach.ErrGatewayUnavailable, err)
	}
	if resp.StatusCode != http.StatusOK {
		return statusError(resp.StatusCode, data)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("gateway: decode response: %w: %w", coach.ErrGatewayUnavailable, err)
	}
	return nil
}

// statusError maps a non-200 response to a coach error.
func statusError(status int, body []byte) error {
	msg := strings.TrimSpace(string(body))
	var e errorResponse
	if err := json.Unmarshal(body, &e); err == nil && e.Error != "" {
		msg = e.Error
	}
	switch status {
	case http.StatusTooManyRequests:
		return fmt.Errorf("gateway: %s: %w", msg, coach.ErrRateLimited)
	case http.StatusBadRequest, http.StatusRequestEntityTooLarge:
		return fmt.Errorf("gateway: %s: %w", msg, coach.ErrValidation)
	default:
		return fmt.Errorf("gateway: HTTP %d: %s: %w", status, msg, coach.ErrGatewayUnavailable)
	}
}
