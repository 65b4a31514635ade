package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// The Prometheus collectors mirror the statistics tracker so operators can watch the cache without wiring a
// stats observer. The tracker stays the source of truth for the engine's own decisions.
var (
	lookupsMetric = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "doccache_lookups_total",
		Help: "Total number of cache lookups.",
	}, []string{"type", "status" /* hit | miss */})
	evictedEntriesMetric = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "doccache_evicted_entries_total",
		Help: "Total number of evicted cache entries.",
	}, []string{"type", "reason"})
	evictedBytesMetric = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "doccache_evicted_bytes_total",
		Help: "Total bytes freed by cache evictions.",
	}, []string{"type", "reason"})
	memoryUsageMetric = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "doccache_memory_bytes",
		Help: "Resident cache memory per type, in bytes.",
	}, []string{"type"})
	entryCountMetric = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "doccache_entries",
		Help: "Resident cache entries per type.",
	}, []string{"type"})
	pressureEventsMetric = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "doccache_memory_pressure_events_total",
		Help: "Total number of memory pressure events by tier.",
	}, []string{"tier" /* warning | critical | system */})
)

// Metric label values for eviction reasons; kept separate from the observer reason texts, which are part of
// the notification contract.
const (
	metricReasonManual      = "manual"
	metricReasonLRU         = "lru"
	metricReasonMemoryLimit = "memory_limit"
	metricReasonEmergency   = "emergency"
	metricReasonExpired     = "expired"
)
