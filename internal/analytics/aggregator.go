package analytics

import (
	"cmp"
	"slices"
	"sync"
	"time"
)

const (
	latencyWindow = 10000
	// Distinct queries tracked per counter; later queries are counted in the
	// totals only.
	maxTrackedQueries = 50000
	topQueries        = 10
	maxTopQueries     = 1000
)

type AggregatedStats struct {
	TotalLookups      int64        `json:"total_lookups"`
	CacheHits         int64        `json:"cache_hits"`
	CacheMisses       int64        `json:"cache_misses"`
	ZeroMatchCount    int64        `json:"zero_match_count"`
	AvgCandidates     float64      `json:"avg_candidates"`
	AvgLatencyMs      float64      `json:"avg_latency_ms"`
	P50LatencyMs      float64      `json:"p50_latency_ms"`
	P95LatencyMs      float64      `json:"p95_latency_ms"`
	P99LatencyMs      float64      `json:"p99_latency_ms"`
	TopQueries        []QueryCount `json:"top_queries"`
	ZeroMatchQueries  []QueryCount `json:"zero_match_queries"`
	LookupsPerMinute  float64      `json:"lookups_per_minute"`
	SnapshotsObserved int          `json:"snapshots_observed"`
}

type QueryCount struct {
	Query string `json:"query"`
	Count int64  `json:"count"`
}

// Aggregator keeps counters over every recorded event and latency
// percentiles over the most recent ones.
type Aggregator struct {
	mu              sync.Mutex
	total           int64
	cacheHits       int64
	zeroMatches     int64
	candidates      int64
	latencies       []float64
	next            int
	queryCounts     map[string]int64
	zeroMatchCounts map[string]int64
	snapshots       map[string]struct{}
	startTime       time.Time
	now             func() time.Time
}

func NewAggregator() *Aggregator {
	return &Aggregator{
		latencies:       make([]float64, 0, 1024),
		queryCounts:     make(map[string]int64),
		zeroMatchCounts: make(map[string]int64),
		snapshots:       make(map[string]struct{}),
		startTime:       time.Now(),
		now:             time.Now,
	}
}

func (a *Aggregator) Record(ev LookupEvent) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.total++
	if ev.CacheHit {
		a.cacheHits++
	}
	a.candidates += int64(ev.Candidates)
	if len(a.latencies) < latencyWindow {
		a.latencies = append(a.latencies, ev.LatencyMs)
	} else {
		a.latencies[a.next] = ev.LatencyMs
		a.next = (a.next + 1) % latencyWindow
	}
	count(a.queryCounts, ev.Query)
	if ev.TotalMatches == 0 {
		a.zeroMatches++
		count(a.zeroMatchCounts, ev.Query)
	}
	if ev.Snapshot != "" {
		a.snapshots[ev.Snapshot] = struct{}{}
	}
}

func count(counts map[string]int64, query string) {
	if _, ok := counts[query]; ok || len(counts) < maxTrackedQueries {
		counts[query]++
	}
}

func (a *Aggregator) Stats() AggregatedStats {
	return a.StatsTop(topQueries)
}

// StatsTop is Stats with at most n entries in each query ranking.
func (a *Aggregator) StatsTop(n int) AggregatedStats {
	a.mu.Lock()
	defer a.mu.Unlock()

	stats := AggregatedStats{
		TotalLookups:      a.total,
		CacheHits:         a.cacheHits,
		CacheMisses:       a.total - a.cacheHits,
		ZeroMatchCount:    a.zeroMatches,
		TopQueries:        topN(a.queryCounts, n),
		ZeroMatchQueries:  topN(a.zeroMatchCounts, n),
		SnapshotsObserved: len(a.snapshots),
	}
	if a.total > 0 {
		stats.AvgCandidates = float64(a.candidates) / float64(a.total)
	}
	if len(a.latencies) > 0 {
		sorted := slices.Clone(a.latencies)
		slices.Sort(sorted)
		var sum float64
		for _, l := range sorted {
			sum += l
		}
		stats.AvgLatencyMs = sum / float64(len(sorted))
		stats.P50LatencyMs = percentile(sorted, 50)
		stats.P95LatencyMs = percentile(sorted, 95)
		stats.P99LatencyMs = percentile(sorted, 99)
	}
	if elapsed := a.now().Sub(a.startTime).Minutes(); elapsed > 0 {
		stats.LookupsPerMinute = float64(a.total) / elapsed
	}
	return stats
}

func percentile(sorted []float64, pct int) float64 {
	idx := pct * len(sorted) / 100
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

// topN orders by count, then query, so ties come out the same every time.
func topN(counts map[string]int64, n int) []QueryCount {
	result := make([]QueryCount, 0, len(counts))
	for query, c := range counts {
		result = append(result, QueryCount{Query: query, Count: c})
	}
	slices.SortFunc(result, func(x, y QueryCount) int {
		if c := cmp.Compare(y.Count, x.Count); c != 0 {
			return c
		}
		return cmp.Compare(x.Query, y.Query)
	})
	if len(result) > n {
		result = result[:n]
	}
	return result
}
