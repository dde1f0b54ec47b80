// Package metrics exposes the engine's observability surface: Prometheus
// counters/gauges for cache, compaction, and flush activity, plus an
// HdrHistogram-backed latency summary for WAL syncs. A nil *Registry is a
// valid, fully inert no-op (spec.md's engine never depends on metrics for
// correctness), matching the ambient-stack treatment in SPEC_FULL.md.
package metrics

import (
	"sync"

	"github.com/HdrHistogram/hdrhistogram-go"
	"github.com/prometheus/client_golang/prometheus"
)

// Registry bundles every metric the engine records into. It is safe for
// concurrent use.
type Registry struct {
	reg *prometheus.Registry

	cacheHits   prometheus.Counter
	cacheMisses prometheus.Counter
	cacheBytes  prometheus.Gauge

	compactions      *prometheus.CounterVec
	compactionBytes  *prometheus.CounterVec
	flushes          prometheus.Counter

	walSyncMu   sync.Mutex
	walSyncHist *hdrhistogram.Histogram
}

// New creates a Registry and registers every metric with a fresh
// prometheus.Registry, returned alongside for the caller to expose over
// HTTP or scrape directly.
func New() (*Registry, *prometheus.Registry) {
	reg := prometheus.NewRegistry()
	m := &Registry{
		reg: reg,
		cacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "strata_cache_hits_total",
			Help: "Block cache lookups that found a cached block.",
		}),
		cacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "strata_cache_misses_total",
			Help: "Block cache lookups that did not find a cached block.",
		}),
		cacheBytes: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "strata_cache_bytes",
			Help: "Bytes currently held in the block cache.",
		}),
		compactions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "strata_compactions_total",
			Help: "Completed compaction jobs, by output level.",
		}, []string{"level"}),
		compactionBytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "strata_compaction_bytes_total",
			Help: "Bytes written by compaction jobs, by output level.",
		}, []string{"level"}),
		flushes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "strata_flushes_total",
			Help: "Completed MemTable flushes.",
		}),
		// Tracks sync latencies from 1 microsecond to 10 seconds at 3
		// significant digits, matching the range a flock/fsync call falls
		// within on any reasonable filesystem.
		walSyncHist: hdrhistogram.New(1, 10*1000*1000, 3),
	}
	reg.MustRegister(m.cacheHits, m.cacheMisses, m.cacheBytes, m.compactions, m.compactionBytes, m.flushes)
	return m, reg
}

// RecordCacheHit/RecordCacheMiss/SetCacheBytes update the block-cache
// gauges. A nil Registry makes every method below a no-op, so the engine
// can record unconditionally without a nil check at every call site.

func (m *Registry) RecordCacheHit() {
	if m == nil {
		return
	}
	m.cacheHits.Inc()
}

func (m *Registry) RecordCacheMiss() {
	if m == nil {
		return
	}
	m.cacheMisses.Inc()
}

func (m *Registry) SetCacheBytes(n int64) {
	if m == nil {
		return
	}
	m.cacheBytes.Set(float64(n))
}

// RecordCompaction records one completed compaction job at outputLevel,
// having written outputBytes.
func (m *Registry) RecordCompaction(outputLevel int, outputBytes uint64) {
	if m == nil {
		return
	}
	levelLabel := levelString(outputLevel)
	m.compactions.WithLabelValues(levelLabel).Inc()
	m.compactionBytes.WithLabelValues(levelLabel).Add(float64(outputBytes))
}

// RecordFlush records one completed MemTable flush.
func (m *Registry) RecordFlush() {
	if m == nil {
		return
	}
	m.flushes.Inc()
}

// RecordWALSyncMicros records one WAL fsync's observed latency, in
// microseconds.
func (m *Registry) RecordWALSyncMicros(micros int64) {
	if m == nil {
		return
	}
	m.walSyncMu.Lock()
	defer m.walSyncMu.Unlock()
	_ = m.walSyncHist.RecordValue(micros)
}

// WALSyncLatencySnapshot returns (p50, p99, max) WAL sync latency in
// microseconds observed so far.
func (m *Registry) WALSyncLatencySnapshot() (p50, p99, max int64) {
	if m == nil {
		return 0, 0, 0
	}
	m.walSyncMu.Lock()
	defer m.walSyncMu.Unlock()
	return m.walSyncHist.ValueAtQuantile(50), m.walSyncHist.ValueAtQuantile(99), m.walSyncHist.Max()
}

func levelString(level int) string {
	const digits = "0123456789"
	if level >= 0 && level < len(digits) {
		return digits[level : level+1]
	}
	return "N"
}
