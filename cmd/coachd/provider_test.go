package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/fwojciec/coach/config"
	"github.com/fwojciec/coach/gateway"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serverConfig(provider, openaiKey, anthropicKey, geminiKey string) *config.Server {
	return &config.Server{
		Provider:      provider,
		OpenAIKey:     openaiKey,
		OpenAIBaseURL: "https://api.openai.com/v1",
		AnthropicKey:  anthropicKey,
		GeminiKey:     geminiKey,
	}
}

func TestResolveProvider_Explicit(t *testing.T) {
	t.Parallel()

	for _, tc := range []struct {
		provider string
		cfg      *config.Server
	}{
		{"openai", serverConfig("openai", "sk-oa", "", "")},
		{"anthropic", serverConfig("anthropic", "", "sk-ant", "")},
		{"gemini", serverConfig("gemini", "", "", "gk-gem")},
	} {
		t.Run(tc.provider, func(t *testing.T) {
			t.Parallel()
			p, name, err := resolveProvider(context.Background(), tc.cfg)
			require.NoError(t, err)
			assert.NotNil(t, p)
			assert.Equal(t, tc.provider, name)
		})
	}
}

func TestResolveProvider_UnknownProvider(t *testing.T) {
	t.Parallel()
	_, _, err := resolveProvider(context.Background(), serverConfig("mistral", "k", "", ""))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown provider")
}

func TestResolveProvider_NoKeys(t *testing.T) {
	t.Parallel()
	_, _, err := resolveProvider(context.Background(), serverConfig("", "", "", ""))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no API key found")
}

func TestResolveProvider_MultipleKeys(t *testing.T) {
	t.Parallel()
	_, _, err := resolveProvider(context.Background(), serverConfig("", "sk-oa", "sk-ant", ""))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "multiple API keys")
	assert.Contains(t, err.Error(), "openai, anthropic")
}

func TestResolveProvider_AutoDetect(t *testing.T) {
	t.Parallel()

	_, name, err := resolveProvider(context.Background(), serverConfig("", "sk-oa", "", ""))
	require.NoError(t, err)
	assert.Equal(t, "openai", name)

	_, name, err = resolveProvider(context.Background(), serverConfig("", "", "", "gk-gem"))
	require.NoError(t, err)
	assert.Equal(t, "gemini", name)
}

func TestResolveProvider_ExplicitProviderMissingKey(t *testing.T) {
	t.Parallel()
	_, _, err := resolveProvider(context.Background(), serverConfig("anthropic", "sk-oa", "", ""))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ANTHROPIC_API_KEY not set")
}

func TestLoadSystemPrompt(t *testing.T) {
	t.Parallel()

	t.Run("reads the file", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), "prompt.txt")
		require.NoError(t, os.WriteFile(path, []byte("Be brief.\n"), 0o600))
		p, err := loadSystemPrompt(path)
		require.NoError(t, err)
		assert.Equal(t, "Be brief.", p)
	})

	t.Run("missing custom file is an error", func(t *testing.T) {
		t.Parallel()
		_, err := loadSystemPrompt(filepath.Join(t.TempDir(), "nope.txt"))
		require.Error(t, err)
	})

	t.Run("empty file uses the built-in prompt", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), "empty.txt")
		require.NoError(t, os.WriteFile(path, nil, 0o600))
		p, err := loadSystemPrompt(path)
		require.NoError(t, err)
		assert.Equal(t, gateway.DefaultSystemPrompt, p)
	})
}
