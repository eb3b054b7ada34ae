package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/fwojciec/coach"
	"github.com/fwojciec/coach/anthropic"
	"github.com/fwojciec/coach/config"
	"github.com/fwojciec/coach/gemini"
	"github.com/fwojciec/coach/openai"
)

// resolveProvider selects and constructs the model provider. It returns the
// provider and its name. Env is read by config; only values arrive here.
func resolveProvider(ctx context.Context, cfg *config.Server) (coach.Provider, string, error) {
	name := cfg.Provider

	if name == "" {
		var found []string
		if cfg.OpenAIKey != "" {
			found = append(found, "openai")
		}
		if cfg.AnthropicKey != "" {
			found = append(found, "anthropic")
		}
		if cfg.GeminiKey != "" {
			found = append(found, "gemini")
		}
		switch len(found) {
		case 0:
			return nil, "", fmt.Errorf("no API key found: set OPENAI_API_KEY, ANTHROPIC_API_KEY or GEMINI_API_KEY")
		case 1:
			name = found[0]
		default:
			return nil, "", fmt.Errorf("multiple API keys found (%s): set PROVIDER or use -provider to select", strings.Join(found, ", "))
		}
	}

	switch name {
	case "openai":
		if cfg.OpenAIKey == "" {
			return nil, "", fmt.Errorf("OPENAI_API_KEY not set")
		}
		opts := []openai.Option{openai.WithBaseURL(cfg.OpenAIBaseURL)}
		if cfg.Model != "" {
			opts = append(opts, openai.WithModel(cfg.Model))
		}
		return openai.New(cfg.OpenAIKey, opts...), name, nil
	case "anthropic":
		if cfg.AnthropicKey == "" {
			return nil, "", fmt.Errorf("ANTHROPIC_API_KEY not set")
		}
		var opts []anthropic.Option
		if cfg.Model != "" {
			opts = append(opts, anthropic.WithModel(cfg.Model))
		}
		return anthropic.New(cfg.AnthropicKey, opts...), name, nil
	case "gemini":
		if cfg.GeminiKey == "" {
			return nil, "", fmt.Errorf("GEMINI_API_KEY not set")
		}
		var opts []gemini.Option
		if cfg.Model != "" {
			opts = append(opts, gemini.WithModel(cfg.Model))
		}
		client, err := gemini.New(ctx, cfg.GeminiKey, opts...)
		if err != nil {
			return nil, "", fmt.Errorf("gemini: %w", err)
		}
		return client, name, nil
	default:
		return nil, "", fmt.Errorf("unknown provider %q: must be one of %s", name, strings.Join(config.Providers, ", "))
	}
}
