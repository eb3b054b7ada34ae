// Package config loads gateway and client configuration from the
// environment, with an optional .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
)

// LookupFunc reads one environment variable. os.LookupEnv satisfies it.
type LookupFunc func(key string) (string, bool)

// Server holds gateway configuration.
type Server struct {
	Port             string
	Provider         string // openai, anthropic, gemini; empty = detect from keys
	Model            string
	OpenAIKey        string
	OpenAIBaseURL    string
	AnthropicKey     string
	GeminiKey        string
	SystemPromptPath string
	Temperature      float64
	MaxTokens        int
	RateLimitMax     int
	RateLimitWindow  time.Duration
	ProviderTimeout  time.Duration
	CORSOrigins      []string
	TrustProxy       bool
	LogLevel         string
	LogPretty        bool
}

// Client holds terminal client configuration.
type Client struct {
	APIBase  string
	DataDir  string
	Store    string // json or sqlite
	Pro      bool
	CallerID string
	Timeout  time.Duration
	LogLevel string
}

// DefaultSystemPromptPath is tolerated when missing; any other path must exist.
const DefaultSystemPromptPath = "prompts/coach-system-prompt.txt"

// Providers lists the supported model providers.
var Providers = []string{"openai", "anthropic", "gemini"}

// LoadDotenv loads the given .env files (default ".env") into the process
// environment without overriding variables that are already set. Missing
// files are ignored.
func LoadDotenv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

// LoadServer reads gateway configuration from the process environment.
func LoadServer() (*Server, error) {
	if err := LoadDotenv(); err != nil {
		return nil, err
	}
	return ParseServer(os.LookupEnv)
}

// ParseServer builds and validates gateway configuration from lookup.
func ParseServer(lookup LookupFunc) (*Server, error) {
	e := env(lookup)
	cfg := &Server{
		Port:             e.get("PORT", "3000"),
		Provider:         strings.ToLower(e.get("PROVIDER", "")),
		Model:            e.get("MODEL", ""),
		OpenAIKey:        e.get("OPENAI_API_KEY", e.get("OPENAI_API_TOKEN", "")),
		OpenAIBaseURL:    e.get("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		AnthropicKey:     e.get("ANTHROPIC_API_KEY", ""),
		GeminiKey:        e.get("GEMINI_API_KEY", ""),
		SystemPromptPath: e.get("SYSTEM_PROMPT_PATH", DefaultSystemPromptPath),
		Temperature:      e.getFloat("TEMPERATURE", 0.7),
		MaxTokens:        e.getInt("MAX_TOKENS", 600),
		RateLimitMax:     e.getInt("RATE_LIMIT_MAX", 10),
		RateLimitWindow:  e.getDuration("RATE_LIMIT_WINDOW", time.Minute),
		ProviderTimeout:  e.getDuration("PROVIDER_TIMEOUT", 30*time.Second),
		CORSOrigins:      splitList(e.get("CORS_ORIGINS", "*")),
		TrustProxy:       e.getBool("TRUST_PROXY", false),
		LogLevel:         e.get("LOG_LEVEL", "info"),
		LogPretty:        e.getBool("LOG_PRETTY", false),
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks that the gateway configuration is usable.
func (c *Server) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}
	if c.Provider != "" && !slices.Contains(Providers, c.Provider) {
		return fmt.Errorf("PROVIDER must be one of %s, got %q", strings.Join(Providers, ", "), c.Provider)
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		return fmt.Errorf("TEMPERATURE must be in [0, 2], got %g", c.Temperature)
	}
	if c.MaxTokens <= 0 {
		return fmt.Errorf("MAX_TOKENS must be > 0")
	}
	if c.RateLimitMax <= 0 {
		return fmt.Errorf("RATE_LIMIT_MAX must be > 0")
	}
	if c.RateLimitWindow <= 0 {
		return fmt.Errorf("RATE_LIMIT_WINDOW must be > 0")
	}
	if c.ProviderTimeout <= 0 {
		return fmt.Errorf("PROVIDER_TIMEOUT must be > 0")
	}
	return nil
}

// LoadClient reads client configuration from the process environment.
func LoadClient() (*Client, error) {
	if err := LoadDotenv(); err != nil {
		return nil, err
	}
	return ParseClient(os.LookupEnv)
}

// ParseClient builds and validates client configuration from lookup.
// A leading ~ in the data directory expands to the home directory.
func ParseClient(lookup LookupFunc) (*Client, error) {
	e := env(lookup)
	cfg := &Client{
		APIBase:  strings.TrimSuffix(e.get("COACH_API_BASE", "http://localhost:3000"), "/"),
		DataDir:  expandHome(e.get("COACH_DATA_DIR", "~/.coach")),
		Store:    strings.ToLower(e.get("COACH_STORE", "json")),
		Pro:      e.getBool("COACH_PRO", false),
		CallerID: e.get("COACH_CALLER_ID", ""),
		Timeout:  e.getDuration("COACH_TIMEOUT", 60*time.Second),
		LogLevel: e.get("LOG_LEVEL", "info"),
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks that the client configuration is usable.
func (c *Client) Validate() error {
	if c.APIBase == "" {
		return fmt.Errorf("COACH_API_BASE cannot be empty")
	}
	if c.DataDir == "" {
		return fmt.Errorf("COACH_DATA_DIR cannot be empty")
	}
	if c.Store != "json" && c.Store != "sqlite" {
		return fmt.Errorf("COACH_STORE must be json or sqlite, got %q", c.Store)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("COACH_TIMEOUT must be > 0")
	}
	return nil
}

// EnsureCallerID returns the configured caller id, or the one persisted in
// the data directory, generating and saving a new one on first use.
func (c *Client) EnsureCallerID() (string, error) {
	if c.CallerID != "" {
		return c.CallerID, nil
	}
	path := filepath.Join(c.DataDir, "caller_id")
	data, err := os.ReadFile(path)
	if err == nil {
		if id := strings.TrimSpace(string(data)); id != "" {
			c.CallerID = id
			return id, nil
		}
	} else if !errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("read caller id: %w", err)
	}
	id := uuid.NewString()
	if err := os.MkdirAll(c.DataDir, 0o700); err != nil {
		return "", fmt.Errorf("create data dir: %w", err)
	}
	if err := os.WriteFile(path, []byte(id+"\n"), 0o600); err != nil {
		return "", fmt.Errorf("write caller id: %w", err)
	}
	c.CallerID = id
	return id, nil
}

type env LookupFunc

func (e env) get(key, fallback string) string {
	if value, ok := e(key); ok && value != "" {
		return value
	}
	return fallback
}

func (e env) getBool(key string, fallback bool) bool {
	value, ok := e(key)
	if !ok {
		return fallback
	}
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func (e env) getInt(key string, fallback int) int {
	value, ok := e(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}

func (e env) getFloat(key string, fallback float64) float64 {
	value, ok := e(key)
	if !ok {
		return fallback
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return fallback
	}
	return f
}

// getDuration accepts Go durations ("90s") or a bare number of seconds.
func (e env) getDuration(key string, fallback time.Duration) time.Duration {
	value, ok := e(key)
	if !ok {
		return fallback
	}
	value = strings.TrimSpace(value)
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if n, err := strconv.Atoi(value); err == nil {
		return time.Duration(n) * time.Second
	}
	return fallback
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func expandHome(path string) string {
	rest, ok := strings.CutPrefix(path, "~")
	if !ok || (rest != "" && !strings.HasPrefix(rest, "/")) {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, rest)
}
