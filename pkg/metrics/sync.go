package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// SyncMetrics records sync pass durations and per-entry outcomes.
type SyncMetrics struct {
	passDuration prometheus.Histogram
	entrySuccess *prometheus.CounterVec
	entryFailure *prometheus.CounterVec
	passSkipped  prometheus.Counter
}

// NewSyncMetrics registers the sync metrics on the provided registerer.
func NewSyncMetrics(reg prometheus.Registerer) *SyncMetrics {
	if reg == nil {
		return &SyncMetrics{}
	}
	passDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "sync_pass_duration_seconds",
		Help:    "Duration of offline queue sync passes in seconds.",
		Buckets: prometheus.DefBuckets,
	})
	entrySuccess := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sync_entry_success",
		Help: "Queue entries replayed successfully.",
	}, []string{"operation"})
	entryFailure := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sync_entry_failure",
		Help: "Queue entries that failed replay.",
	}, []string{"operation"})
	passSkipped := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sync_pass_skipped",
		Help: "Sync passes suppressed because one was already running.",
	})
	reg.MustRegister(passDuration, entrySuccess, entryFailure, passSkipped)
	return &SyncMetrics{
		passDuration: passDuration,
		entrySuccess: entrySuccess,
		entryFailure: entryFailure,
		passSkipped:  passSkipped,
	}
}

// ObservePass records the duration of a completed pass.
func (m *SyncMetrics) ObservePass(duration time.Duration) {
	if m == nil || m.passDuration == nil {
		return
	}
	m.passDuration.Observe(duration.Seconds())
}

// IncEntrySuccess increments the success counter for the operation type.
func (m *SyncMetrics) IncEntrySuccess(operation string) {
	if m == nil || m.entrySuccess == nil {
		return
	}
	m.entrySuccess.WithLabelValues(normalizeLabel(operation)).Inc()
}

// IncEntryFailure increments the failure counter for the operation type.
func (m *SyncMetrics) IncEntryFailure(operation string) {
	if m == nil || m.entryFailure == nil {
		return
	}
	m.entryFailure.WithLabelValues(normalizeLabel(operation)).Inc()
}

// IncPassSkipped counts a suppressed concurrent pass.
func (m *SyncMetrics) IncPassSkipped() {
	if m == nil || m.passSkipped == nil {
		return
	}
	m.passSkipped.Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
