package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// SyncMetrics records outcomes of content synchronization cycles.
type SyncMetrics struct {
	refreshDuration *prometheus.HistogramVec
	fallbackReads   *prometheus.CounterVec
	evictions       *prometheus.CounterVec
	staleDiscards   prometheus.Counter
	broadcasts      *prometheus.CounterVec
}

// NewSyncMetrics registers the synchronization metrics on the provided registerer.
func NewSyncMetrics(reg prometheus.Registerer) *SyncMetrics {
	if reg == nil {
		return &SyncMetrics{}
	}
	refreshDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "content_refresh_duration_seconds",
		Help:    "Duration of content refresh cycles in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"kind", "source"})
	fallbackReads := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "content_fallback_reads",
		Help: "Refresh cycles served from the fallback snapshot.",
	}, []string{"kind"})
	evictions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "content_snapshot_evictions",
		Help: "Corrupt fallback snapshots evicted during refresh.",
	}, []string{"kind"})
	staleDiscards := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "content_stale_refreshes_discarded",
		Help: "Refresh results discarded because a newer cycle superseded them.",
	})
	broadcasts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "content_change_broadcasts",
		Help: "Change events fanned out to subscribers.",
	}, []string{"kind"})
	reg.MustRegister(refreshDuration, fallbackReads, evictions, staleDiscards, broadcasts)
	return &SyncMetrics{
		refreshDuration: refreshDuration,
		fallbackReads:   fallbackReads,
		evictions:       evictions,
		staleDiscards:   staleDiscards,
		broadcasts:      broadcasts,
	}
}

// ObserveRefresh records the duration of a refresh cycle for the given
// content kind and the source that ultimately served it.
func (s *SyncMetrics) ObserveRefresh(kind, source string, duration time.Duration) {
	if s == nil || s.refreshDuration == nil {
		return
	}
	s.refreshDuration.WithLabelValues(normalizeLabel(kind), normalizeLabel(source)).Observe(duration.Seconds())
}

// IncFallbackRead counts a refresh answered from the fallback snapshot.
func (s *SyncMetrics) IncFallbackRead(kind string) {
	if s == nil || s.fallbackReads == nil {
		return
	}
	s.fallbackReads.WithLabelValues(normalizeLabel(kind)).Inc()
}

// IncEviction counts a corrupt snapshot eviction.
func (s *SyncMetrics) IncEviction(kind string) {
	if s == nil || s.evictions == nil {
		return
	}
	s.evictions.WithLabelValues(normalizeLabel(kind)).Inc()
}

// IncStaleDiscard counts a refresh result dropped for being stale.
func (s *SyncMetrics) IncStaleDiscard() {
	if s == nil || s.staleDiscards == nil {
		return
	}
	s.staleDiscards.Inc()
}

// IncBroadcast counts one change event fan-out.
func (s *SyncMetrics) IncBroadcast(kind string) {
	if s == nil || s.broadcasts == nil {
		return
	}
	s.broadcasts.WithLabelValues(normalizeLabel(kind)).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
