// Package gateway implements the coaching gateway: an HTTP service that
// rate-limits callers, screens the latest user message, composes the model
// prompt, and proxies to a model provider. It also provides the HTTP
// client the terminal app uses to reach the service.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/fwojciec/coach"
	"github.com/fwojciec/coach/metrics"
	"github.com/fwojciec/coach/ratelimit"
	"github.com/fwojciec/coach/safety"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// CallerHeader carries the client's device id. It is logged with each
// request but does not key the rate limit.
const CallerHeader = "X-Caller-ID"

// MaxBodyBytes limits request bodies.
const MaxBodyBytes = 1 << 20

const (
	defaultTemperature = 0.7
	defaultMaxTokens   = 600
	defaultTimeout     = 30 * time.Second
	shutdownTimeout    = 10 * time.Second
)

// Server is the coaching gateway HTTP service.
type Server struct {
	provider     coach.Provider
	providerName string
	limiter      *ratelimit.Limiter
	metrics      *metrics.Metrics
	log          zerolog.Logger
	systemPrompt string
	model        string
	temperature  float64
	maxTokens    int
	timeout      time.Duration
	corsOrigins  []string
	sweepEvery   time.Duration
	trustProxy   bool

	router chi.Router
}

// Option configures a [Server].
type Option func(*Server)

// WithLimiter sets the per-caller rate limiter. Default: 10 requests per minute.
func WithLimiter(l *ratelimit.Limiter) Option {
	return func(s *Server) { s.limiter = l }
}

// WithMetrics sets the metrics sink. Default: a fresh registry.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Server) { s.log = l.With().Str("component", "gateway").Logger() }
}

// WithSystemPrompt sets the base system prompt.
func WithSystemPrompt(p string) Option {
	return func(s *Server) { s.systemPrompt = p }
}

// WithModel sets the model ID sent to the provider. Empty uses the provider default.
func WithModel(m string) Option {
	return func(s *Server) { s.model = m }
}

// WithProviderName labels provider metrics and logs.
func WithProviderName(name string) Option {
	return func(s *Server) { s.providerName = name }
}

// WithGeneration sets the sampling temperature and reply token limit.
func WithGeneration(temperature float64, maxTokens int) Option {
	return func(s *Server) {
		s.temperature = temperature
		s.maxTokens = maxTokens
	}
}

// WithProviderTimeout bounds each provider call.
func WithProviderTimeout(d time.Duration) Option {
	return func(s *Server) { s.timeout = d }
}

// WithCORSOrigins sets the allowed CORS origins. "*" allows any origin.
func WithCORSOrigins(origins []string) Option {
	return func(s *Server) { s.corsOrigins = origins }
}

// WithSweepInterval sets how often Run evicts expired rate-limit windows.
func WithSweepInterval(d time.Duration) Option {
	return func(s *Server) { s.sweepEvery = d }
}

// WithTrustProxy takes the client IP from X-Forwarded-For and X-Real-IP.
// Enable it only behind a proxy that sets those headers.
func WithTrustProxy(trust bool) Option {
	return func(s *Server) { s.trustProxy = trust }
}

// NewServer creates a gateway in front of provider.
func NewServer(provider coach.Provider, opts ...Option) *Server {
	s := &Server{
		provider:     provider,
		providerName: "provider",
		log:          zerolog.Nop(),
		systemPrompt: DefaultSystemPrompt,
		temperature:  defaultTemperature,
		maxTokens:    defaultMaxTokens,
		timeout:      defaultTimeout,
		corsOrigins:  []string{"*"},
		sweepEvery:   time.Minute,
	}
	for _, o := range opts {
		o(s)
	}
	if s.limiter == nil {
		s.limiter = ratelimit.New(ratelimit.DefaultMax, ratelimit.DefaultWindow)
	}
	if s.metrics == nil {
		s.metrics = metrics.New()
	}
	s.router = s.routes()
	return s
}

// Handler returns the gateway's HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	if s.trustProxy {
		r.Use(middleware.RealIP)
	}
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/ping"))
	r.Use(cors(s.corsOrigins))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
	})
	r.Handle("/metrics", s.metrics.Handler())
	r.Post("/coach", s.handleCoach)
	r.Post("/summarize", s.handleSummarize)
	return r
}

// Run serves on addr until ctx is done, then shuts down gracefully. It
// also sweeps expired rate-limit windows in the background.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      s.timeout + 10*time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go s.limiter.Run(ctx, s.sweepEvery)

	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", addr).Str("provider", s.providerName).Msg("gateway listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.log.Info().Msg("gateway shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func (s *Server) handleCoach(w http.ResponseWriter, r *http.Request) {
	if !s.admit(w, r, "/coach") {
		return
	}

	var body coachRequestJSON
	if !s.decode(w, r, &body) {
		return
	}
	req := coach.CoachRequest{
		Messages: fromMessagesJSON(body.Messages),
		Context:  fromContextJSON(body.Context),
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if res := safety.ClassifyLatest(req.Messages); res.Blocked() {
		s.metrics.RecordSafetyBlock(string(res.Class))
		s.log.Info().Str("class", string(res.Class)).Str("request_id", middleware.GetReqID(r.Context())).Msg("message blocked by safety check")
		writeJSON(w, http.StatusOK, contentResponse{Content: res.Response, Classification: string(res.Class)})
		return
	}

	msgs := make([]coach.Message, 0, len(req.Messages))
	for i, m := range req.Messages {
		if m.Role == coach.RoleUser {
			m.Content = safety.Sanitize(m.Content)
			if m.Content == "" {
				writeError(w, http.StatusBadRequest, fmt.Sprintf("message %d: content is empty after sanitizing", i))
				return
			}
		}
		msgs = append(msgs, m)
	}

	content, ok := s.complete(w, r, SystemPrompt(s.systemPrompt, req.Context), msgs)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, contentResponse{Content: content})
}

func (s *Server) handleSummarize(w http.ResponseWriter, r *http.Request) {
	if !s.admit(w, r, "/summarize") {
		return
	}

	var body summarizeRequestJSON
	if !s.decode(w, r, &body) {
		return
	}
	transcript := strings.TrimSpace(body.Transcript)
	if transcript == "" {
		msgs := fromMessagesJSON(body.Messages)
		for i, m := range msgs {
			if err := coach.ValidateMessage(m); err != nil {
				writeError(w, http.StatusBadRequest, fmt.Sprintf("message %d: %v", i, err))
				return
			}
		}
		transcript = Transcript(msgs)
	}
	if transcript == "" {
		writeError(w, http.StatusBadRequest, "transcript or messages required")
		return
	}

	content, ok := s.complete(w, r, SummaryPrompt(body.Audience), []coach.Message{{
		Role:    coach.RoleUser,
		Content: "Summarize this conversation:\n\n" + transcript,
	}})
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, contentResponse{Content: content})
}

// complete calls the provider and writes a 502 on failure.
func (s *Server) complete(w http.ResponseWriter, r *http.Request, system string, msgs []coach.Message) (string, bool) {
	ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
	defer cancel()

	temp := s.temperature
	resp, err := s.provider.Complete(ctx, coach.Request{
		Model:        s.model,
		SystemPrompt: system,
		Messages:     msgs,
		MaxTokens:    s.maxTokens,
		Temperature:  &temp,
	})
	if err != nil {
		s.metrics.RecordProviderError(s.providerName)
		s.log.Error().Err(err).
			Str("provider", s.providerName).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("provider call failed")
		writeError(w, http.StatusBadGateway, "model provider error")
		return "", false
	}
	s.log.Debug().
		Str("model", resp.Model).
		Int("input_tokens", resp.Usage.InputTokens).
		Int("output_tokens", resp.Usage.OutputTokens).
		Msg("provider call completed")
	return resp.Content, true
}

// admit applies the rate limiter and writes a 429 on rejection.
func (s *Server) admit(w http.ResponseWriter, r *http.Request, route string) bool {
	ok := s.limiter.Admit(callerID(r))
	s.metrics.SetRateLimitTracked(s.limiter.Len())
	if !ok {
		s.metrics.RecordRateLimited(route)
		writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
	}
	return ok
}

// decode reads a JSON body, writing 413 or 400 on failure.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
	if err := dec.Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return false
		}
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

// callerID keys the rate limit: a bearer token when present, otherwise the
// client IP.
func callerID(r *http.Request) string {
	if token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok {
		if token = strings.TrimSpace(token); token != "" {
			return "bearer:" + token
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}
