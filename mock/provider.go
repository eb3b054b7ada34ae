// Package mock provides test doubles for coach interfaces using function fields.
package mock

import (
	"context"

	"github.com/fwojciec/coach"
)

// Interface compliance checks.
var (
	_ coach.Provider = (*Provider)(nil)
	_ coach.Gateway  = (*Gateway)(nil)
	_ coach.KV       = (*KV)(nil)
)

// Provider is a test double for coach.Provider.
// Set CompleteFn before calling Complete.
type Provider struct {
	CompleteFn func(ctx context.Context, req coach.Request) (coach.Response, error)
}

// Complete delegates to CompleteFn.
func (p *Provider) Complete(ctx context.Context, req coach.Request) (coach.Response, error) {
	return p.CompleteFn(ctx, req)
}

// Gateway is a test double for coach.Gateway.
// Set the function fields for the methods you need.
type Gateway struct {
	CoachFn     func(ctx context.Context, req coach.CoachRequest) (coach.CoachReply, error)
	SummarizeFn func(ctx context.Context, req coach.SummarizeRequest) (string, error)
}

// Coach delegates to CoachFn.
func (g *Gateway) Coach(ctx context.Context, req coach.CoachRequest) (coach.CoachReply, error) {
	return g.CoachFn(ctx, req)
}

// Summarize delegates to SummarizeFn.
func (g *Gateway) Summarize(ctx context.Context, req coach.SummarizeRequest) (string, error) {
	return g.SummarizeFn(ctx, req)
}

// KV is a test double for coach.KV.
// Set the function fields for the methods you need.
type KV struct {
	GetFn    func(ctx context.Context, key string) ([]byte, error)
	SetFn    func(ctx context.Context, key string, value []byte) error
	DeleteFn func(ctx context.Context, key string) error
}

// Get delegates to GetFn.
func (k *KV) Get(ctx context.Context, key string) ([]byte, error) {
	return k.GetFn(ctx, key)
}

// Set delegates to SetFn.
func (k *KV) Set(ctx context.Context, key string, value []byte) error {
	return k.SetFn(ctx, key, value)
}

// Delete delegates to DeleteFn.
func (k *KV) Delete(ctx context.Context, key string) error {
	return k.DeleteFn(ctx, key)
}
