package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the intake service.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	ExtractionsTotal      *prometheus.CounterVec
	RemoteFailuresTotal   *prometheus.CounterVec
	RemoteLatencySeconds  *prometheus.HistogramVec
	DroppedTriggersTotal  prometheus.Counter
	CacheEntries          prometheus.Gauge
	ActiveSessions        prometheus.Gauge
	TranscriptUpdateTotal *prometheus.CounterVec
}

// NewMetrics creates all metrics and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		ExtractionsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "flightly_extractions_total",
			Help: "Extraction resolutions by source (skipped, cache, remote, fallback, none).",
		}, []string{"source"}),

		RemoteFailuresTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "flightly_remote_failures_total",
			Help: "Remote extraction failures by kind.",
		}, []string{"kind"}),

		RemoteLatencySeconds: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "flightly_remote_latency_seconds",
			Help:    "Remote extraction latency in seconds.",
			Buckets: []float64{0.25, 0.5, 1, 2, 4, 8, 15},
		}, []string{"provider"}),

		DroppedTriggersTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "flightly_dropped_triggers_total",
			Help: "Extraction triggers dropped because one was already in flight.",
		}),

		CacheEntries: factory.NewGauge(prometheus.GaugeOpts{
			Name: "flightly_cache_entries",
			Help: "Entries currently held by the extraction cache.",
		}),

		ActiveSessions: factory.NewGauge(prometheus.GaugeOpts{
			Name: "flightly_active_sessions",
			Help: "Open intake sessions.",
		}),

		TranscriptUpdateTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "flightly_transcript_updates_total",
			Help: "Transcript updates received by transport.",
		}, []string{"transport"}),
	}
}

// RecordExtraction records a finished resolution.
func (m *Metrics) RecordExtraction(source string, cacheSize int) {
	if m == nil {
		return
	}
	m.ExtractionsTotal.WithLabelValues(source).Inc()
	m.CacheEntries.Set(float64(cacheSize))
}

// RecordRemote records a remote call's latency and, on failure, its kind.
func (m *Metrics) RecordRemote(provider string, elapsed time.Duration, failureKind string) {
	if m == nil {
		return
	}
	m.RemoteLatencySeconds.WithLabelValues(provider).Observe(elapsed.Seconds())
	if failureKind != "" {
		m.RemoteFailuresTotal.WithLabelValues(failureKind).Inc()
	}
}

// RecordDroppedTrigger counts a trigger ignored while extracting.
func (m *Metrics) RecordDroppedTrigger() {
	if m == nil {
		return
	}
	m.DroppedTriggersTotal.Inc()
}

// SetActiveSessions updates the open session gauge.
func (m *Metrics) SetActiveSessions(n int) {
	if m == nil {
		return
	}
	m.ActiveSessions.Set(float64(n))
}

// RecordTranscriptUpdate counts an inbound transcript update.
func (m *Metrics) RecordTranscriptUpdate(transport string) {
	if m == nil {
		return
	}
	m.TranscriptUpdateTotal.WithLabelValues(transport).Inc()
}
