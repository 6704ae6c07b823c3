package analytics

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/Adithya-Monish-Kumar-K/softdict/pkg/kafka"
)

func TestAggregatorStats(t *testing.T) {
	a := NewAggregator()
	start := a.startTime
	a.now = func() time.Time { return start.Add(2 * time.Minute) }

	a.Record(LookupEvent{Query: "acme", TotalMatches: 3, Candidates: 10, LatencyMs: 1, Snapshot: "s1"})
	a.Record(LookupEvent{Query: "acme", TotalMatches: 3, Candidates: 10, LatencyMs: 3, CacheHit: true, Snapshot: "s1"})
	a.Record(LookupEvent{Query: "zzz", TotalMatches: 0, Candidates: 1, LatencyMs: 2, Snapshot: "s2"})
	a.Record(LookupEvent{Query: "globex", TotalMatches: 1, Candidates: 3, LatencyMs: 4, Snapshot: "s2"})

	s := a.Stats()
	assert.Equal(t, int64(4), s.TotalLookups)
	assert.Equal(t, int64(1), s.CacheHits)
	assert.Equal(t, int64(3), s.CacheMisses)
	assert.Equal(t, int64(1), s.ZeroMatchCount)
	assert.Equal(t, 6.0, s.AvgCandidates)
	assert.Equal(t, 2.5, s.AvgLatencyMs)
	assert.Equal(t, 3.0, s.P50LatencyMs)
	assert.Equal(t, 4.0, s.P99LatencyMs)
	assert.Equal(t, 2.0, s.LookupsPerMinute)
	assert.Equal(t, 2, s.SnapshotsObserved)
	assert.Equal(t, []QueryCount{{"acme", 2}, {"globex", 1}, {"zzz", 1}}, s.TopQueries)
	assert.Equal(t, []QueryCount{{"zzz", 1}}, s.ZeroMatchQueries)
}

func TestAggregatorLatencyWindow(t *testing.T) {
	a := NewAggregator()
	for i := range latencyWindow + 10 {
		a.Record(LookupEvent{Query: "q", TotalMatches: 1, LatencyMs: float64(i)})
	}
	assert.Len(t, a.latencies, latencyWindow)
	s := a.Stats()
	assert.Equal(t, int64(latencyWindow+10), s.TotalLookups)
	// The ten oldest samples (0-9) were overwritten, so the window holds 10..10009.
	assert.Equal(t, 9910.0, s.P99LatencyMs)
}

type fakePublisher struct {
	mu      sync.Mutex
	batches [][]kafka.Event
}

func (f *fakePublisher) PublishBatch(_ context.Context, events []kafka.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.batches = append(f.batches, append([]kafka.Event(nil), events...))
	return nil
}

func (f *fakePublisher) events() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, b := range f.batches {
		n += len(b)
	}
	return n
}

func TestCollectorRecordsAndPublishes(t *testing.T) {
	defer goleak.VerifyNone(t)

	agg := NewAggregator()
	pub := &fakePublisher{}
	c := NewCollector(agg, pub, CollectorConfig{BatchSize: 2, FlushInterval: time.Hour})
	c.Start(context.Background())

	for _, q := range []string{"acme", "globex", "initech"} {
		c.Track(LookupEvent{Query: q, TotalMatches: 1})
	}
	c.Close()
	c.Track(LookupEvent{Query: "late"})

	assert.Equal(t, int64(3), agg.Stats().TotalLookups)
	assert.Equal(t, 3, pub.events())
	require.NotEmpty(t, pub.batches)
	assert.Equal(t, "acme", pub.batches[0][0].Key)
}

func TestCollectorWithoutPublisherDrainsOnCancel(t *testing.T) {
	defer goleak.VerifyNone(t)

	agg := NewAggregator()
	c := NewCollector(agg, nil, CollectorConfig{BufferSize: 4})
	ctx, cancel := context.WithCancel(context.Background())
	c.Track(LookupEvent{Query: "acme"})
	c.Start(ctx)
	cancel()
	c.Close()
	assert.Equal(t, int64(1), agg.Stats().TotalLookups)
}

func TestCollectorDropsWhenFull(t *testing.T) {
	c := NewCollector(NewAggregator(), nil, CollectorConfig{BufferSize: 1})
	c.Track(LookupEvent{Query: "a"})
	c.Track(LookupEvent{Query: "b"})
	assert.Equal(t, int64(1), c.Dropped())
	c.Close()
}

func TestStatsHandler(t *testing.T) {
	agg := NewAggregator()
	agg.Record(LookupEvent{Query: "acme", TotalMatches: 2})

	rec := httptest.NewRecorder()
	NewHandler(agg).Stats(rec, httptest.NewRequest(http.MethodGet, "/api/v1/analytics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var s AggregatedStats
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&s))
	assert.Equal(t, int64(1), s.TotalLookups)
	assert.Equal(t, "acme", s.TopQueries[0].Query)
}

func TestStatsHandlerTop(t *testing.T) {
	agg := NewAggregator()
	for _, q := range []string{"acme", "acme", "globex", "initech", "initech", "initech"} {
		agg.Record(LookupEvent{Query: q, TotalMatches: 1})
	}
	h := NewHandler(agg)

	rec := httptest.NewRecorder()
	h.Stats(rec, httptest.NewRequest(http.MethodGet, "/api/v1/analytics?top=2", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var s AggregatedStats
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&s))
	require.Len(t, s.TopQueries, 2)
	assert.Equal(t, QueryCount{Query: "initech", Count: 3}, s.TopQueries[0])
	assert.Equal(t, QueryCount{Query: "acme", Count: 2}, s.TopQueries[1])

	for _, bad := range []string{"0", "-1", "abc", "1001"} {
		rec := httptest.NewRecorder()
		h.Stats(rec, httptest.NewRequest(http.MethodGet, "/api/v1/analytics?top="+bad, nil))
		assert.Equal(t, http.StatusBadRequest, rec.Code, "top=%s", bad)
	}
}
