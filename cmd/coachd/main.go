// Command coachd runs the coaching gateway: an HTTP service that screens
// parenting questions and forwards safe ones to a model provider.
//
// Usage:
//
//	OPENAI_API_KEY=sk-...      coachd [flags]
//	ANTHROPIC_API_KEY=sk-...   coachd [flags]
//	GEMINI_API_KEY=gk-...      coachd [flags]
//
// Flags override the environment (and .env):
//
//	-port string          Listen port (PORT, default 3000)
//	-provider string      openai, anthropic, gemini (PROVIDER, auto-detected from keys)
//	-model string         Model ID (MODEL, default: provider default)
//	-system-prompt string Path to system prompt file (SYSTEM_PROMPT_PATH)
//	-log-level string     debug, info, warn, error (LOG_LEVEL)
//	-pretty               Human-readable logs (LOG_PRETTY)
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/fwojciec/coach/config"
	"github.com/fwojciec/coach/gateway"
	"github.com/fwojciec/coach/logger"
	"github.com/fwojciec/coach/metrics"
	"github.com/fwojciec/coach/ratelimit"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "coachd: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadServer()
	if err != nil {
		return err
	}

	flag.StringVar(&cfg.Port, "port", cfg.Port, "Listen port")
	flag.StringVar(&cfg.Provider, "provider", cfg.Provider, "Provider: openai, anthropic, gemini (auto-detected from keys if omitted)")
	flag.StringVar(&cfg.Model, "model", cfg.Model, "Model ID (provider-specific)")
	flag.StringVar(&cfg.SystemPromptPath, "system-prompt", cfg.SystemPromptPath, "Path to system prompt file")
	flag.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level: debug, info, warn, error")
	flag.BoolVar(&cfg.LogPretty, "pretty", cfg.LogPretty, "Human-readable log output")
	flag.Parse()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	log := logger.New(logger.Config{
		Level:   cfg.LogLevel,
		Pretty:  cfg.LogPretty,
		Output:  os.Stderr,
		Service: "coachd",
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	prompt, err := loadSystemPrompt(cfg.SystemPromptPath)
	if err != nil {
		return err
	}

	provider, name, err := resolveProvider(ctx, cfg)
	if err != nil {
		return err
	}

	srv := gateway.NewServer(provider,
		gateway.WithProviderName(name),
		gateway.WithModel(cfg.Model),
		gateway.WithSystemPrompt(prompt),
		gateway.WithGeneration(cfg.Temperature, cfg.MaxTokens),
		gateway.WithProviderTimeout(cfg.ProviderTimeout),
		gateway.WithCORSOrigins(cfg.CORSOrigins),
		gateway.WithTrustProxy(cfg.TrustProxy),
		gateway.WithLimiter(ratelimit.New(cfg.RateLimitMax, cfg.RateLimitWindow)),
		gateway.WithMetrics(metrics.New()),
		gateway.WithLogger(log),
	)
	return srv.Run(ctx, ":"+cfg.Port)
}

// loadSystemPrompt reads the coaching prompt. A missing default file falls
// back to the built-in prompt; any other read failure is an error.
func loadSystemPrompt(path string) (string, error) {
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if p := strings.TrimSpace(string(data)); p != "" {
			return p, nil
		}
		return gateway.DefaultSystemPrompt, nil
	case errors.Is(err, os.ErrNotExist) && path == config.DefaultSystemPromptPath:
		return gateway.DefaultSystemPrompt, nil
	default:
		return "", fmt.Errorf("read system prompt: %w", err)
	}
}
