// Package orchestrator drives a coaching conversation on the client side.
//
// It owns the send pipeline: the user's message is persisted before any
// network call, sends are serialized per session, and a failed gateway
// call leaves stored state exactly as the optimistic write left it.
package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/fwojciec/coach"
	"github.com/fwojciec/coach/digest"
	"github.com/fwojciec/coach/safety"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Greeting is the assistant message that opens a new conversation.
const Greeting = "Hi! I'm here to help you with your grandparenting questions. What's going on with your grandchild today?"

const (
	newSessionTitle = "New conversation"
	fallbackTitle   = "Conversation"
	titleWords      = 6
	defaultAudience = "a grandparent"
)

// topicPrompts are clarifying questions seeded for the home screen topics.
var topicPrompts = map[string]string{
	"tantrums":    "Tantrums are hard on everyone. How old is your grandchild, and what usually sets the tantrums off?",
	"mealtime":    "Mealtimes can turn into battles. What does a typical meal look like, and which foods or moments cause trouble?",
	"bedtime":     "Let's work on bedtime. What does the evening routine look like now, and where does it tend to fall apart?",
	"screen_time": "Screens are a common struggle. How much screen time is your grandchild getting, and what happens when it's time to stop?",
}

// TopicPrompt returns the clarifying prompt for topic, if one exists.
func TopicPrompt(topic string) (string, bool) {
	p, ok := topicPrompts[topic]
	return p, ok
}

// Topics lists the topics that have a clarifying prompt.
func Topics() []string {
	return []string{"tantrums", "mealtime", "bedtime", "screen_time"}
}

// Title derives a session title from the first user message: the first six
// words, ellipsized when the message is longer.
func Title(text string) string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return fallbackTitle
	}
	if len(words) <= titleWords {
		return strings.Join(words, " ")
	}
	return strings.Join(words[:titleWords], " ") + "…"
}

// Turn is the outcome of one Send.
type Turn struct {
	User           coach.Message
	Reply          coach.Message // zero when no reply was produced
	Title          string        // set when this send titled the session
	Blocked        bool          // reply is a canned safety response
	Classification string        // safety class of a blocked reply
}

// StartOptions configures a new conversation.
type StartOptions struct {
	Topic    string
	Context  coach.Context
	Greeting bool
}

// Orchestrator coordinates the session store, the safety classifier, the
// continuity digest, and the coaching gateway.
type Orchestrator struct {
	store      coach.SessionStore
	gateway    coach.Gateway
	entitled   func() bool
	now        func() time.Time
	log        zerolog.Logger
	digestOpts []digest.Option

	mu       sync.Mutex
	slots    map[string]chan struct{}
	contexts map[string]coach.Context

	// usageMu spans the free-tier check through the counter increment.
	usageMu sync.Mutex
}

// Option configures an [Orchestrator].
type Option func(*Orchestrator)

// WithEntitlement sets the "is pro" check. Entitled callers skip the
// free-tier gate. Default: never entitled.
func WithEntitlement(fn func() bool) Option {
	return func(o *Orchestrator) { o.entitled = fn }
}

// WithClock sets the time source used for message timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(o *Orchestrator) { o.log = l.With().Str("component", "orchestrator").Logger() }
}

// WithDigestOptions tunes the continuity digest.
func WithDigestOptions(opts ...digest.Option) Option {
	return func(o *Orchestrator) { o.digestOpts = opts }
}

// New creates an Orchestrator over store and gateway.
func New(store coach.SessionStore, gateway coach.Gateway, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		store:    store,
		gateway:  gateway,
		entitled: func() bool { return false },
		now:      time.Now,
		log:      zerolog.Nop(),
		slots:    make(map[string]chan struct{}),
		contexts: make(map[string]coach.Context),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Start creates a session, seeding the greeting and the topic prompt when
// requested. It returns the session and its seeded messages.
func (o *Orchestrator) Start(ctx context.Context, opts StartOptions) (coach.Session, []coach.Message, error) {
	if err := opts.Context.Validate(); err != nil {
		return coach.Session{}, nil, err
	}
	sess, err := o.store.CreateSession(ctx, newSessionTitle)
	if err != nil {
		return coach.Session{}, nil, fmt.Errorf("create session: %w", err)
	}

	var seeded []coach.Message
	if opts.Greeting {
		seeded = append(seeded, o.message(coach.RoleAssistant, Greeting))
	}
	if prompt, ok := TopicPrompt(opts.Topic); ok {
		seeded = append(seeded, o.message(coach.RoleAssistant, prompt))
	}
	if len(seeded) > 0 {
		if err := o.store.AppendMessages(ctx, sess.ID, seeded...); err != nil {
			return coach.Session{}, nil, fmt.Errorf("seed session: %w", err)
		}
	}

	c := opts.Context
	if c.Topic == "" {
		c.Topic = opts.Topic
	}
	o.mu.Lock()
	o.contexts[sess.ID] = c
	o.mu.Unlock()

	o.log.Debug().Str("session", sess.ID).Str("topic", opts.Topic).Int("seeded", len(seeded)).Msg("session started")
	return sess, seeded, nil
}

// SetContext replaces the coaching context sent with a session's requests.
func (o *Orchestrator) SetContext(sessionID string, c coach.Context) error {
	if err := c.Validate(); err != nil {
		return err
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	o.contexts[sessionID] = c
	return nil
}

// Context returns the coaching context held for a session.
func (o *Orchestrator) Context(sessionID string) coach.Context {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.contexts[sessionID]
}

// Send runs one turn: persist the user message, screen it, check the free
// tier, and ask the gateway for a reply. A gateway failure returns the
// error with the user message kept and nothing else written.
func (o *Orchestrator) Send(ctx context.Context, sessionID, text string) (Turn, error) {
	if err := coach.ValidateContent(text); err != nil {
		return Turn{}, err
	}

	release, err := o.acquire(ctx, sessionID)
	if err != nil {
		return Turn{}, err
	}
	defer release()

	if _, err := o.store.Session(ctx, sessionID); err != nil {
		return Turn{}, err
	}
	prior := o.store.ListMessages(ctx, sessionID)
	_, hadUser := coach.LatestUserMessage(prior)

	turn := Turn{User: o.message(coach.RoleUser, text)}
	if err := o.store.AppendMessages(ctx, sessionID, turn.User); err != nil {
		return Turn{}, fmt.Errorf("save message: %w", err)
	}
	log := o.log.With().Str("session", sessionID).Logger()

	if !hadUser {
		title := Title(text)
		if err := o.store.RenameSession(ctx, sessionID, title); err != nil {
			log.Warn().Err(err).Msg("set session title failed")
		} else {
			turn.Title = title
		}
	}

	if res := safety.Classify(text); res.Blocked() {
		turn.Reply = o.message(coach.RoleAssistant, res.Response)
		turn.Blocked = true
		turn.Classification = string(res.Class)
		if err := o.store.AppendMessages(ctx, sessionID, turn.Reply); err != nil {
			return turn, fmt.Errorf("save reply: %w", err)
		}
		log.Info().Str("class", turn.Classification).Msg("message blocked by safety check")
		return turn, nil
	}

	if !o.entitled() {
		o.usageMu.Lock()
		defer o.usageMu.Unlock()
		if o.store.FreeCount(ctx) >= coach.MaxFreeCalls {
			return turn, fmt.Errorf("free tier limit of %d calls reached: %w", coach.MaxFreeCalls, coach.ErrUpgradeRequired)
		}
	}

	c := o.Context(sessionID)
	c.ConversationHistory = digest.Build(ctx, o.store, sessionID, o.digestOpts...)
	req := coach.CoachRequest{
		Messages: append(prior, turn.User),
		Context:  c,
	}

	reply, err := o.gateway.Coach(ctx, req)
	if err != nil {
		log.Error().Err(err).Msg("coaching request failed")
		return turn, err
	}

	content := reply.Content
	if n := utf8.RuneCountInString(content); n > coach.MaxContentLength {
		log.Warn().Int("length", n).Msg("reply truncated")
		content = truncateReply(content)
	}
	turn.Reply = o.message(coach.RoleAssistant, content)
	if err := o.store.AppendMessages(ctx, sessionID, turn.Reply); err != nil {
		return turn, fmt.Errorf("save reply: %w", err)
	}
	if reply.Classification != "" {
		turn.Blocked = true
		turn.Classification = reply.Classification
		return turn, nil
	}
	if _, err := o.store.IncrementFreeCount(ctx); err != nil {
		log.Warn().Err(err).Msg("increment usage counter failed")
	}
	return turn, nil
}

// Summarize asks the gateway for a one-page summary of a session.
func (o *Orchestrator) Summarize(ctx context.Context, sessionID string) (string, error) {
	if _, err := o.store.Session(ctx, sessionID); err != nil {
		return "", err
	}
	msgs := o.store.ListMessages(ctx, sessionID)
	if _, ok := coach.LatestUserMessage(msgs); !ok {
		return "", fmt.Errorf("nothing to summarize: %w", coach.ErrValidation)
	}
	summary, err := o.gateway.Summarize(ctx, coach.SummarizeRequest{
		Messages: msgs,
		Audience: defaultAudience,
	})
	if err != nil {
		o.log.Error().Err(err).Str("session", sessionID).Msg("summary request failed")
		return "", err
	}
	return summary, nil
}

// AddFavorite saves advice from a session. An empty title defaults to
// "Advice from <date>".
func (o *Orchestrator) AddFavorite(ctx context.Context, sessionID, title, summary string) (coach.Favorite, error) {
	if strings.TrimSpace(title) == "" {
		title = "Advice from " + o.now().Format("Jan 2, 2006")
	}
	return o.store.AddFavorite(ctx, sessionID, title, summary)
}

// Favorites lists saved advice, newest first.
func (o *Orchestrator) Favorites(ctx context.Context) []coach.Favorite {
	return o.store.ListFavorites(ctx)
}

// RemoveFavorite deletes saved advice.
func (o *Orchestrator) RemoveFavorite(ctx context.Context, id string) error {
	return o.store.RemoveFavorite(ctx, id)
}

// Restore resets the free-tier counter after an upgrade or purchase restore.
func (o *Orchestrator) Restore(ctx context.Context) error {
	return o.store.ResetFreeCount(ctx)
}

// Remaining reports how many free calls are left, or -1 when entitled.
func (o *Orchestrator) Remaining(ctx context.Context) int {
	if o.entitled() {
		return -1
	}
	return max(coach.MaxFreeCalls-o.store.FreeCount(ctx), 0)
}

// Sessions lists sessions, most recently updated first.
func (o *Orchestrator) Sessions(ctx context.Context) []coach.Session {
	return o.store.ListSessions(ctx)
}

// Messages lists a session's messages in order.
func (o *Orchestrator) Messages(ctx context.Context, sessionID string) []coach.Message {
	return o.store.ListMessages(ctx, sessionID)
}

// Rename sets a session's title.
func (o *Orchestrator) Rename(ctx context.Context, sessionID, title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return fmt.Errorf("title must not be empty: %w", coach.ErrValidation)
	}
	return o.store.RenameSession(ctx, sessionID, title)
}

// Delete removes a session with its messages, waiting for any in-flight
// send on it to finish.
func (o *Orchestrator) Delete(ctx context.Context, sessionID string) error {
	release, err := o.acquire(ctx, sessionID)
	if err != nil {
		return err
	}
	defer release()
	err = o.store.DeleteSession(ctx, sessionID)
	o.mu.Lock()
	delete(o.slots, sessionID)
	if err == nil {
		delete(o.contexts, sessionID)
	}
	o.mu.Unlock()
	return err
}

// acquire takes the single send slot for a session.
func (o *Orchestrator) acquire(ctx context.Context, sessionID string) (func(), error) {
	o.mu.Lock()
	slot, ok := o.slots[sessionID]
	if !ok {
		slot = make(chan struct{}, 1)
		o.slots[sessionID] = slot
	}
	o.mu.Unlock()

	select {
	case slot <- struct{}{}:
		return func() { <-slot }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// truncateReply cuts content to the stored message limit, marking the cut
// with an ellipsis.
func truncateReply(content string) string {
	keep := coach.MaxContentLength - 1
	for i := range content {
		if keep == 0 {
			return strings.TrimRightFunc(content[:i], unicode.IsSpace) + "…"
		}
		keep--
	}
	return content
}

func (o *Orchestrator) message(role coach.Role, content string) coach.Message {
	return coach.Message{
		ID:        uuid.NewString(),
		Role:      role,
		Content:   content,
		Timestamp: o.now(),
	}
}
