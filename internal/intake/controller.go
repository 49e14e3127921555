// Package intake drives a single booking session: it debounces a growing
// transcript, runs at most one extraction at a time and merges results
// into the session's TravelRequest.
package intake

import (
	"context"
	"sync"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/steveharianto/Flightly/internal/handlers"
	"github.com/steveharianto/Flightly/internal/llm"
	"github.com/steveharianto/Flightly/internal/models"
	"github.com/steveharianto/Flightly/internal/preview"
	"github.com/steveharianto/Flightly/internal/prompts"
	"github.com/steveharianto/Flightly/internal/telemetry"
)

// State is the controller's position in the Idle/Debouncing/Extracting cycle.
type State string

const (
	StateIdle       State = "idle"
	StateDebouncing State = "debouncing"
	StateExtracting State = "extracting"
)

const (
	DefaultDebounceDelay = 800 * time.Millisecond
	DefaultMinGrowth     = 5
)

// Resolver produces an extraction for a transcript.
type Resolver interface {
	Resolve(ctx context.Context, text string) handlers.Resolution
}

// Journal records completed extractions.
type Journal interface {
	RecordExtraction(ctx context.Context, sessionID, text string, request models.TravelRequest, source string) error
}

// Observer is called with a fresh snapshot after every state change.
type Observer func(models.SessionState)

type settings struct {
	clock     Clock
	delay     time.Duration
	minGrowth int
	logger    *zap.Logger
	metrics   *telemetry.Metrics
	journal   Journal
	observers []Observer
}

func defaultSettings() settings {
	return settings{
		clock:     realClock{},
		delay:     DefaultDebounceDelay,
		minGrowth: DefaultMinGrowth,
		logger:    zap.NewNop(),
	}
}

type Option func(*settings)

func WithClock(c Clock) Option {
	return func(s *settings) { s.clock = c }
}

func WithDebounceDelay(d time.Duration) Option {
	return func(s *settings) { s.delay = d }
}

func WithMinGrowth(n int) Option {
	return func(s *settings) { s.minGrowth = n }
}

func WithLogger(l *zap.Logger) Option {
	return func(s *settings) { s.logger = l }
}

func WithMetrics(m *telemetry.Metrics) Option {
	return func(s *settings) { s.metrics = m }
}

func WithJournal(j Journal) Option {
	return func(s *settings) { s.journal = j }
}

func WithObserver(o Observer) Option {
	return func(s *settings) { s.observers = append(s.observers, o) }
}

// Controller owns one session. All methods are safe for concurrent use.
// Extractions run on the goroutine that triggered them: the debounce timer
// callback or the ParseNow caller.
type Controller struct {
	id       string
	resolver Resolver
	settings
	preview *preview.Generator

	ctx    context.Context
	cancel context.CancelFunc

	mu            sync.Mutex
	state         State
	request       models.TravelRequest
	transcript    string
	lastExtracted string
	source        handlers.Source
	errMsg        *string
	listening     bool
	captureErr    *string
	timer         Timer
	generation    uint64
	closed        bool
	updatedAt     time.Time
}

func NewController(id string, resolver Resolver, opts ...Option) *Controller {
	s := defaultSettings()
	for _, opt := range opts {
		opt(&s)
	}
	return newController(id, resolver, s)
}

func newController(id string, resolver Resolver, s settings) *Controller {
	ctx, cancel := context.WithCancel(context.Background())
	return &Controller{
		id:        id,
		resolver:  resolver,
		settings:  s,
		preview:   preview.NewGenerator(),
		ctx:       ctx,
		cancel:    cancel,
		state:     StateIdle,
		request:   models.NewTravelRequest(),
		updatedAt: s.clock.Now(),
	}
}

func (c *Controller) ID() string { return c.id }

// Submit records the latest transcript and schedules extraction when the
// text has changed enough.
func (c *Controller) Submit(text string) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.transcript = text
	c.evaluateLocked()
	c.updatedAt = c.clock.Now()
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.notify(snap)
}

// UpdateCapture records the speech-capture status reported by the client.
func (c *Controller) UpdateCapture(listening bool, errMsg string) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.listening = listening
	c.captureErr = nil
	if errMsg != "" {
		c.captureErr = &errMsg
	}
	c.updatedAt = c.clock.Now()
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.notify(snap)
}

// ParseNow extracts the current transcript immediately, cancelling any
// pending debounce. It returns false without doing anything when an
// extraction is already running or the controller is closed.
func (c *Controller) ParseNow(ctx context.Context) bool {
	c.mu.Lock()
	if c.closed || c.state == StateExtracting {
		c.mu.Unlock()
		c.metrics.RecordDroppedTrigger()
		return false
	}
	c.stopTimerLocked()
	text := c.transcript
	c.state = StateExtracting
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.notify(snap)
	c.extract(ctx, text)
	return true
}

// Busy reports whether an extraction is in flight.
func (c *Controller) Busy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state == StateExtracting
}

// Snapshot returns the current session state.
func (c *Controller) Snapshot() models.SessionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Close cancels pending work. Results arriving afterwards are discarded.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	c.stopTimerLocked()
	c.state = StateIdle
	c.cancel()
}

// evaluateLocked decides whether the current transcript needs a debounce.
func (c *Controller) evaluateLocked() {
	switch c.state {
	case StateExtracting:
		// re-evaluated when the extraction finishes
		return
	case StateDebouncing:
		c.scheduleLocked()
		return
	}

	if c.transcript == c.lastExtracted {
		return
	}
	if c.lastExtracted == "" || grewBy(c.lastExtracted, c.transcript) > c.minGrowth {
		c.scheduleLocked()
	}
}

func grewBy(before, after string) int {
	return utf8.RuneCountInString(after) - utf8.RuneCountInString(before)
}

func (c *Controller) scheduleLocked() {
	c.stopTimerLocked()
	gen := c.generation
	c.timer = c.clock.AfterFunc(c.delay, func() { c.fire(gen) })
	c.state = StateDebouncing
}

// stopTimerLocked cancels a pending timer. Bumping the generation makes a
// callback that already started a no-op.
func (c *Controller) stopTimerLocked() {
	c.generation++
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	if c.state == StateDebouncing {
		c.state = StateIdle
	}
}

func (c *Controller) fire(gen uint64) {
	c.mu.Lock()
	if c.closed || gen != c.generation || c.state != StateDebouncing {
		c.mu.Unlock()
		return
	}
	c.timer = nil
	c.generation++
	text := c.transcript
	c.state = StateExtracting
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.notify(snap)
	c.extract(c.ctx, text)
}

func (c *Controller) extract(ctx context.Context, text string) {
	res := c.resolver.Resolve(ctx, text)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		c.logger.Debug("Discarding extraction for closed session", zap.String("session_id", c.id))
		return
	}

	c.state = StateIdle
	c.source = res.Source
	switch {
	case res.Request != nil:
		c.request.Merge(*res.Request)
		c.lastExtracted = text
		c.errMsg = messageFor(res.RemoteErr)
	case res.Source == handlers.SourceNone:
		msg := prompts.FallbackMessage
		c.errMsg = &msg
	}
	if res.RemoteErr != nil {
		c.logger.Info("Remote extraction failed",
			zap.String("session_id", c.id),
			zap.String("kind", string(llm.KindOf(res.RemoteErr))),
			zap.Error(res.RemoteErr))
	}

	if c.transcript != text {
		c.evaluateLocked()
	}
	c.updatedAt = c.clock.Now()
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.notify(snap)

	if res.Request != nil && c.journal != nil {
		if err := c.journal.RecordExtraction(c.ctx, c.id, text, *res.Request, string(res.Source)); err != nil {
			c.logger.Warn("Failed to journal extraction", zap.String("session_id", c.id), zap.Error(err))
		}
	}
}

// messageFor maps remote failures that the user can act on to a message.
// Other failures are covered silently by the fallback.
func messageFor(err error) *string {
	var msg string
	switch llm.KindOf(err) {
	case llm.KindAuth:
		msg = prompts.AuthMessage
	case llm.KindRateLimit:
		msg = prompts.RateLimitMessage
	default:
		return nil
	}
	return &msg
}

func (c *Controller) snapshotLocked() models.SessionState {
	return models.SessionState{
		SessionID:     c.id,
		Request:       c.request,
		State:         string(c.state),
		Processing:    c.state == StateExtracting,
		Error:         copyString(c.errMsg),
		Source:        string(c.source),
		Transcript:    c.transcript,
		LastExtracted: c.lastExtracted,
		Listening:     c.listening,
		CaptureError:  copyString(c.captureErr),
		Preview:       c.preview.Build(c.request),
		UpdatedAt:     c.updatedAt,
	}
}

func (c *Controller) notify(snap models.SessionState) {
	for _, o := range c.observers {
		o(snap)
	}
}

func copyString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
