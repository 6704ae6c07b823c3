// Package metrics defines the Prometheus collectors used by the dictionary
// services and exposes an HTTP handler for scraping.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors. It also satisfies
// softdict.Observer, so a dictionary can report freezes and lookups to it.
type Metrics struct {
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge
	LookupsTotal         *prometheus.CounterVec
	LookupLatency        *prometheus.HistogramVec
	LookupCandidates     *prometheus.HistogramVec
	LookupResults        *prometheus.HistogramVec
	CacheHitsTotal       prometheus.Counter
	CacheMissesTotal     prometheus.Counter
	FreezeDuration       prometheus.Histogram
	VocabularySize       prometheus.Gauge
	NearDuplicatePairs   prometheus.Gauge
	AliasEventsTotal     *prometheus.CounterVec
	SnapshotsTotal       *prometheus.CounterVec
}

// New creates all collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests by method, path, and status.",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
			[]string{"method", "path"},
		),
		HTTPRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Number of HTTP requests currently being processed.",
			},
		),
		LookupsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "softdict_lookups_total",
				Help: "Total dictionary lookups by kind (lookup, slow_lookup).",
			},
			[]string{"kind"},
		),
		LookupLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "softdict_lookup_latency_seconds",
				Help:    "Dictionary lookup latency in seconds.",
				Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.5, 1},
			},
			[]string{"kind"},
		),
		LookupCandidates: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "softdict_lookup_candidates",
				Help:    "Keys scored exactly per lookup.",
				Buckets: prometheus.ExponentialBuckets(1, 4, 10),
			},
			[]string{"kind"},
		),
		LookupResults: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "softdict_lookup_results",
				Help:    "Matches returned per lookup.",
				Buckets: []float64{0, 1, 5, 10, 25, 50, 100},
			},
			[]string{"kind"},
		),
		CacheHitsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "cache_hits_total",
				Help: "Total number of lookup cache hits.",
			},
		),
		CacheMissesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "cache_misses_total",
				Help: "Total number of lookup cache misses.",
			},
		),
		FreezeDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "softdict_freeze_duration_seconds",
				Help:    "Time spent building lookup tables.",
				Buckets: prometheus.ExponentialBuckets(0.01, 4, 8),
			},
		),
		VocabularySize: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "softdict_vocabulary_size",
				Help: "Distinct tokens at the last freeze.",
			},
		),
		NearDuplicatePairs: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "softdict_near_duplicate_pairs",
				Help: "Near-duplicate token pairs found at the last freeze.",
			},
		),
		AliasEventsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "alias_events_total",
				Help: "Alias events consumed by status (applied, noop, invalid).",
			},
			[]string{"status"},
		),
		SnapshotsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "snapshots_total",
				Help: "Dictionary snapshots by status (written, error, loaded, load_error, skipped).",
			},
			[]string{"status"},
		),
	}

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPRequestsInFlight,
		m.LookupsTotal,
		m.LookupLatency,
		m.LookupCandidates,
		m.LookupResults,
		m.CacheHitsTotal,
		m.CacheMissesTotal,
		m.FreezeDuration,
		m.VocabularySize,
		m.NearDuplicatePairs,
		m.AliasEventsTotal,
		m.SnapshotsTotal,
	)

	return m
}

func (m *Metrics) ObserveFreeze(elapsed time.Duration, vocabulary, pairs int) {
	m.FreezeDuration.Observe(elapsed.Seconds())
	m.VocabularySize.Set(float64(vocabulary))
	m.NearDuplicatePairs.Set(float64(pairs))
}

func (m *Metrics) ObserveLookup(kind string, elapsed time.Duration, candidates, results int) {
	m.LookupsTotal.WithLabelValues(kind).Inc()
	m.LookupLatency.WithLabelValues(kind).Observe(elapsed.Seconds())
	m.LookupCandidates.WithLabelValues(kind).Observe(float64(candidates))
	m.LookupResults.WithLabelValues(kind).Observe(float64(results))
}

// Handler returns the Prometheus scrape HTTP handler for g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
