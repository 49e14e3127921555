package handlers

import (
	"context"
	"strings"
	"unicode"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/steveharianto/Flightly/internal/cache"
	"github.com/steveharianto/Flightly/internal/models"
	"github.com/steveharianto/Flightly/internal/telemetry"
)

// Source records where a resolution came from.
type Source string

const (
	SourceSkipped  Source = "skipped"
	SourceCache    Source = "cache"
	SourceRemote   Source = "remote"
	SourceFallback Source = "fallback"
	SourceNone     Source = "none"
)

const (
	DefaultMinInputLength = 15
	DefaultCacheCapacity  = 50
)

// Resolution is the outcome of TravelHandler.Resolve. A nil Request means
// the text was skipped or nothing could be extracted. RemoteErr carries the
// remote failure that caused a fallback, if any.
type Resolution struct {
	Request   *models.TravelRequest
	Source    Source
	RemoteErr error
}

// RemoteClient is the remote extraction backend.
type RemoteClient interface {
	Extract(ctx context.Context, text string) (*models.TravelRequest, error)
}

// FallbackExtractor is the local, rule-based backend.
type FallbackExtractor interface {
	Extract(text string) models.TravelRequest
}

type TravelHandler struct {
	remote         RemoteClient
	fallback       FallbackExtractor
	cache          *cache.FIFO[string, models.TravelRequest]
	minInputLength int
	logger         *zap.Logger
	metrics        *telemetry.Metrics
}

type Option func(*TravelHandler)

// WithRemote enables the remote backend. Without it every accepted text
// goes straight to the fallback.
func WithRemote(remote RemoteClient) Option {
	return func(h *TravelHandler) { h.remote = remote }
}

func WithCacheCapacity(n int) Option {
	return func(h *TravelHandler) { h.cache = cache.NewFIFO[string, models.TravelRequest](n) }
}

func WithMinInputLength(n int) Option {
	return func(h *TravelHandler) { h.minInputLength = n }
}

func WithLogger(logger *zap.Logger) Option {
	return func(h *TravelHandler) { h.logger = logger }
}

func WithMetrics(m *telemetry.Metrics) Option {
	return func(h *TravelHandler) { h.metrics = m }
}

func NewTravelHandler(fallback FallbackExtractor, opts ...Option) *TravelHandler {
	h := &TravelHandler{
		fallback:       fallback,
		cache:          cache.NewFIFO[string, models.TravelRequest](DefaultCacheCapacity),
		minInputLength: DefaultMinInputLength,
		logger:         zap.NewNop(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Resolve extracts a TravelRequest from text: gate, cache, remote, then
// the rule-based fallback. It never returns an error; remote failures are
// reported through Resolution.RemoteErr.
func (h *TravelHandler) Resolve(ctx context.Context, text string) Resolution {
	if !h.accepts(text) {
		h.metrics.RecordExtraction(string(SourceSkipped), h.cache.Len())
		return Resolution{Source: SourceSkipped}
	}

	if cached, ok := h.cache.Get(text); ok {
		h.metrics.RecordExtraction(string(SourceCache), h.cache.Len())
		return Resolution{Request: &cached, Source: SourceCache}
	}

	var remoteErr error
	if h.remote != nil {
		request, err := h.remote.Extract(ctx, text)
		if err == nil && request != nil {
			h.cache.Put(text, *request)
			h.metrics.RecordExtraction(string(SourceRemote), h.cache.Len())
			return Resolution{Request: request, Source: SourceRemote}
		}
		remoteErr = err
		h.logger.Warn("Remote extraction failed, using rule-based fallback", zap.Error(err))
	}

	request := h.runFallback(text)
	if request == nil {
		h.metrics.RecordExtraction(string(SourceNone), h.cache.Len())
		return Resolution{Source: SourceNone, RemoteErr: remoteErr}
	}
	// cancelled calls are not cached
	if ctx.Err() == nil {
		h.cache.Put(text, *request)
	}
	h.metrics.RecordExtraction(string(SourceFallback), h.cache.Len())
	return Resolution{Request: request, Source: SourceFallback, RemoteErr: remoteErr}
}

// accepts reports whether text is worth extracting: at least
// minInputLength characters once trimmed, with at least one space.
func (h *TravelHandler) accepts(text string) bool {
	trimmed := strings.TrimSpace(text)
	if utf8.RuneCountInString(trimmed) < h.minInputLength {
		return false
	}
	return strings.IndexFunc(trimmed, unicode.IsSpace) >= 0
}

func (h *TravelHandler) runFallback(text string) (request *models.TravelRequest) {
	defer func() {
		if r := recover(); r != nil {
			h.logger.Error("Rule-based extraction panicked", zap.Any("panic", r))
			request = nil
		}
	}()
	result := h.fallback.Extract(text)
	return &result
}

// CacheLen returns the number of cached extractions.
func (h *TravelHandler) CacheLen() int {
	return h.cache.Len()
}
