package softdict

import (
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/Adithya-Monish-Kumar-K/softdict/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/softdict/pkg/softdict/tokenizer"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestDict(t testing.TB, cfg Config, opts ...Option) *Dictionary {
	t.Helper()
	opts = append([]Option{WithLogger(quietLogger())}, opts...)
	d, err := New(cfg, opts...)
	require.NoError(t, err)
	return d
}

func putAll(t testing.TB, d *Dictionary, pairs ...string) {
	t.Helper()
	require.Zero(t, len(pairs)%2, "pairs must be key,value")
	for i := 0; i < len(pairs); i += 2 {
		require.NoError(t, d.Put(pairs[i], pairs[i+1]))
	}
}

func sortedKeys(r *Result) []string {
	keys := r.Keys()
	sort.Strings(keys)
	return keys
}

func TestLookupFindsMisspelledName(t *testing.T) {
	t.Parallel()
	d := newTestDict(t, DefaultConfig())
	putAll(t, d,
		"william cohen", "wcohen@cs.cmu.edu",
		"vitor del rocha carvalho", "vitor@cs.cmu.edu",
	)
	d.Freeze()

	res := d.Lookup(0.5, "victor carvalho")
	require.GreaterOrEqual(t, res.Len(), 1)
	assert.Equal(t, "vitor del rocha carvalho", res.Key(0))
	assert.Equal(t, "vitor@cs.cmu.edu", res.Value(0))
	assert.Greater(t, res.Score(0), 0.5)
	assert.LessOrEqual(t, res.Score(0), 1.0)
	assert.NotContains(t, res.Keys(), "william cohen")
}

func TestLookupSharedValue(t *testing.T) {
	t.Parallel()
	d := newTestDict(t, DefaultConfig())
	putAll(t, d,
		"ibm", "IBM_CORP",
		"international business machines", "IBM_CORP",
	)

	res := d.Lookup(0.99, "ibm")
	require.Equal(t, 1, res.Len())
	assert.Equal(t, "ibm", res.Key(0))
	assert.Equal(t, "IBM_CORP", res.Value(0))
	assert.InDelta(t, 1.0, res.Score(0), 1e-9)

	loose := d.Lookup(0, "ibm")
	assert.Contains(t, loose.Keys(), "international business machines")
}

func TestZeroWindowIsExactTokenRetrieval(t *testing.T) {
	t.Parallel()
	cfg := DefaultConfig()
	cfg.WindowSize = 0
	d := newTestDict(t, cfg)
	putAll(t, d,
		"alpha beta", "1",
		"gamma delta", "2",
		"beta zeta", "3",
		"omega", "4",
		"kappa lambda beta", "5",
	)
	d.Freeze()

	for _, stat := range d.TokenStats() {
		assert.Zero(t, stat.NearDuplicates, stat.Token)
		assert.Empty(t, d.NearDuplicates(stat.Token), stat.Token)
	}

	for _, q := range []string{"beta omega", "gamma", "zeta kappa", "nothing here"} {
		for _, m := range []float64{0.1, 0.3, 0.6} {
			queryTokens := tokenizer.Default.Tokenize(q)
			slow := d.SlowLookup(m, q)
			var want []string
			for _, key := range slow.Keys() {
				if sharesToken(tokenizer.Default.Tokenize(key), queryTokens) {
					want = append(want, key)
				}
			}
			sort.Strings(want)
			got := sortedKeys(d.Lookup(m, q))
			if len(want) == 0 {
				assert.Empty(t, got, "%q at %v", q, m)
				continue
			}
			assert.Equal(t, want, got, "%q at %v", q, m)
		}
	}
}

func sharesToken(a, b []string) bool {
	for _, x := range a {
		for _, y := range b {
			if x == y {
				return true
			}
		}
	}
	return false
}

func TestZeroWindowMissesSoftOnlyMatches(t *testing.T) {
	t.Parallel()
	cfg := DefaultConfig()
	cfg.WindowSize = 0
	narrow := newTestDict(t, cfg)
	wide := newTestDict(t, DefaultConfig())
	for _, d := range []*Dictionary{narrow, wide} {
		putAll(t, d, "vitor", "v", "william cohen", "w")
	}

	assert.Zero(t, narrow.Lookup(0.5, "victor").Len())
	assert.Equal(t, []string{"vitor"}, narrow.SlowLookup(0.5, "victor").Keys())
	assert.Equal(t, []string{"vitor"}, wide.Lookup(0.5, "victor").Keys())
}

func TestPutAfterFreeze(t *testing.T) {
	t.Parallel()
	d := newTestDict(t, DefaultConfig())
	putAll(t, d, "acme", "1")
	d.Freeze()

	err := d.Put("acme inc", "1")
	require.ErrorIs(t, err, apperrors.ErrFrozen)

	d.Thaw()
	require.NoError(t, d.Put("acme inc", "1"))
	assert.False(t, d.Frozen())
	assert.Equal(t, []string{"acme inc"}, d.Lookup(0.3, "acme inc").Keys())
	assert.True(t, d.Frozen())
	assert.Equal(t, 2, d.Vocabulary())
}

func TestPutKeepsDistinctValues(t *testing.T) {
	t.Parallel()
	d := newTestDict(t, DefaultConfig())
	putAll(t, d,
		"springfield", "IL",
		"springfield", "MA",
		"springfield", "IL",
	)
	assert.Equal(t, 1, d.Len())
	assert.Equal(t, []string{"IL", "MA"}, d.Values("springfield"))

	res := d.Lookup(0.9, "springfield")
	require.Equal(t, 2, res.Len())
	assert.Equal(t, "IL", res.Value(0))
	assert.Equal(t, "MA", res.Value(1))
	assert.Equal(t, res.Score(0), res.Score(1))
}

func TestEmptyDictionaryAndEmptyQuery(t *testing.T) {
	t.Parallel()
	empty := newTestDict(t, DefaultConfig())
	empty.Freeze()
	assert.Zero(t, empty.Lookup(0.1, "anything").Len())
	assert.Zero(t, empty.SlowLookup(0, "anything").Len())
	assert.Empty(t, empty.TokenStats())

	d := newTestDict(t, DefaultConfig())
	putAll(t, d, "william cohen", "w")
	for _, q := range []string{"", "   ", "!!! ,,, ---"} {
		assert.Zero(t, d.Lookup(0, q).Len(), "%q", q)
		assert.Zero(t, d.SlowLookup(0, q).Len(), "%q", q)
	}
}

func TestMinScoreBounds(t *testing.T) {
	t.Parallel()
	d := newTestDict(t, DefaultConfig())
	putAll(t, d,
		"william cohen", "w",
		"vitor del rocha carvalho", "v",
		"acme widgets", "a",
	)

	assert.Zero(t, d.Lookup(1.5, "william cohen").Len())
	assert.Zero(t, d.SlowLookup(1.5, "william cohen").Len())

	exact := d.Lookup(0.999, "William Cohen")
	require.Equal(t, 1, exact.Len())
	assert.Equal(t, "william cohen", exact.Key(0))

	all := d.Lookup(-1, "william")
	assert.Equal(t, 3, all.Len())
	assert.Equal(t, "william cohen", all.Key(0))
}

// Both query tokens are new and soft-match "smith". Neither bound alone
// reaches 0.9, their sum does, and so does the exact score.
func TestBoundMergeWithTwoTokensOnOneStoredToken(t *testing.T) {
	t.Parallel()
	build := func(merge BoundMerge) *Dictionary {
		cfg := DefaultConfig()
		cfg.MinTokenSimilarity = 0.8
		cfg.BoundMerge = merge
		d := newTestDict(t, cfg)
		putAll(t, d, "smith", "P1", "jones", "P2")
		d.Freeze()
		return d
	}

	sum := build(MergeSum)
	assert.Equal(t, []string{"smith"}, sortedKeys(sum.SlowLookup(0.9, "smyth smithe")))
	assert.Equal(t, []string{"smith"}, sortedKeys(sum.Lookup(0.9, "smyth smithe")))

	for _, merge := range []BoundMerge{MergeOverwrite, MergeMax} {
		d := build(merge)
		assert.Equal(t, []string{"smith"}, sortedKeys(d.SlowLookup(0.9, "smyth smithe")), merge)
		assert.Empty(t, d.Lookup(0.9, "smyth smithe").Keys(), merge)
		assert.Equal(t, []string{"smith"}, sortedKeys(d.Lookup(0.6, "smyth smithe")), merge)
	}
}

func TestMaxInvertedIndexSizeSkipsCommonTokens(t *testing.T) {
	t.Parallel()
	d := newTestDict(t, DefaultConfig())
	putAll(t, d,
		"acme widgets", "1",
		"acme gadgets", "2",
		"acme gizmos", "3",
		"zenith widgets", "4",
	)

	full := d.Lookup(0.15, "acme")
	assert.Equal(t, 3, full.Len())

	require.NoError(t, d.SetMaxInvertedIndexSize(3))
	capped := d.Lookup(0.15, "acme")
	assert.Zero(t, capped.Len())
	assert.Equal(t, 3, d.SlowLookup(0.15, "acme").Len())

	require.NoError(t, d.SetMaxInvertedIndexSize(4))
	assert.Equal(t, 3, d.Lookup(0.15, "acme").Len())
}

func TestFreezeIsIdempotent(t *testing.T) {
	t.Parallel()
	d := newTestDict(t, DefaultConfig())
	putAll(t, d,
		"victor carvalho", "1",
		"vitor carvallo", "2",
		"william cohen", "3",
	)
	d.Freeze()
	stats := d.TokenStats()
	near := d.NearDuplicates("victor")
	require.NotEmpty(t, near)

	d.Freeze()
	assert.Equal(t, stats, d.TokenStats())
	assert.Equal(t, near, d.NearDuplicates("victor"))

	d.Refreeze()
	assert.Equal(t, stats, d.TokenStats())
}

func TestRefreezeAppliesNewWindow(t *testing.T) {
	t.Parallel()
	d := newTestDict(t, DefaultConfig())
	putAll(t, d, "victor", "1", "vitor", "2")
	d.Freeze()
	require.Equal(t, []string{"vitor"}, d.NearDuplicates("victor"))

	require.NoError(t, d.SetWindowSize(0))
	assert.Equal(t, []string{"vitor"}, d.NearDuplicates("victor"), "window change waits for refreeze")
	d.Refreeze()
	assert.Empty(t, d.NearDuplicates("victor"))

	assert.Error(t, d.SetWindowSize(-1))
}

func TestFreezeWorkersDoNotChangeTables(t *testing.T) {
	t.Parallel()
	names := []string{
		"victor carvalho", "vitor carvallo", "viktor karvalho", "william cohen",
		"willam cohn", "john smith", "jon smyth", "joan smithe", "rocha", "roche",
	}
	build := func(workers int) *Dictionary {
		cfg := DefaultConfig()
		cfg.FreezeWorkers = workers
		cfg.WindowSize = 3
		d := newTestDict(t, cfg)
		for i, n := range names {
			require.NoError(t, d.Put(n, strings.Repeat("x", i+1)))
		}
		d.Freeze()
		return d
	}
	one := build(1)
	for _, workers := range []int{5, 64} {
		many := build(workers)
		assert.Equal(t, one.TokenStats(), many.TokenStats())
		for _, stat := range one.TokenStats() {
			assert.Equal(t, one.NearDuplicates(stat.Token), many.NearDuplicates(stat.Token), "workers=%d", workers)
		}
	}
}

func TestWindowIsSymmetric(t *testing.T) {
	t.Parallel()
	cfg := DefaultConfig()
	cfg.WindowSize = 1
	cfg.MinTokenSimilarity = 0
	d := newTestDict(t, cfg)
	putAll(t, d, "aa ab ac ad ae", "1")

	assert.Equal(t, []string{"ab"}, d.NearDuplicates("aa"))
	assert.Equal(t, []string{"ab", "ad"}, d.NearDuplicates("ac"))
	assert.Equal(t, []string{"ad"}, d.NearDuplicates("ae"))
}

func TestNovelTokenSearchesAroundInsertionPoint(t *testing.T) {
	t.Parallel()
	cfg := DefaultConfig()
	cfg.WindowSize = 1
	cfg.MinTokenSimilarity = 0
	d := newTestDict(t, cfg)
	putAll(t, d, "aa ab ad ae", "1")
	d.Freeze()

	var got []string
	for _, n := range d.nearDuplicates("ac") {
		got = append(got, d.tokens.Get(n.id).Value)
	}
	assert.Equal(t, []string{"ab", "ad"}, got)
}

func TestConfigValidation(t *testing.T) {
	t.Parallel()
	bad := []func(*Config){
		func(c *Config) { c.MinTokenSimilarity = 1.5 },
		func(c *Config) { c.WindowSize = -1 },
		func(c *Config) { c.MaxInvertedIndexSize = -2 },
		func(c *Config) { c.BoundMerge = "median" },
		func(c *Config) { c.FreezeWorkers = -1 },
	}
	for i, mutate := range bad {
		cfg := DefaultConfig()
		mutate(&cfg)
		_, err := New(cfg)
		assert.Error(t, err, "case %d", i)
	}
	_, err := New(DefaultConfig(), WithBoundMerge("nope"))
	assert.Error(t, err)
}

type recordingObserver struct {
	mu      sync.Mutex
	freezes int
	kinds   []string
}

func (o *recordingObserver) ObserveFreeze(time.Duration, int, int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.freezes++
}

func (o *recordingObserver) ObserveLookup(kind string, _ time.Duration, _, _ int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.kinds = append(o.kinds, kind)
}

func TestObserverIsNotified(t *testing.T) {
	t.Parallel()
	obs := &recordingObserver{}
	d := newTestDict(t, DefaultConfig(), WithObserver(obs))
	putAll(t, d, "acme", "1")

	d.Lookup(0.5, "acme")
	d.SlowLookup(0.5, "acme")
	d.Lookup(0.5, "acme")

	assert.Equal(t, 1, obs.freezes)
	assert.Equal(t, []string{"lookup", "slow_lookup", "lookup"}, obs.kinds)
}

func TestConcurrentLookups(t *testing.T) {
	t.Parallel()
	d := newTestDict(t, DefaultConfig())
	putAll(t, d,
		"william cohen", "1",
		"vitor del rocha carvalho", "2",
		"victor carvalho", "3",
		"international business machines", "4",
	)
	d.Freeze()
	want := d.Lookup(0.4, "victor carvalo").Matches()

	var wg sync.WaitGroup
	errs := make(chan string, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got := d.Lookup(0.4, "victor carvalo").Matches()
			if len(got) != len(want) {
				errs <- "length mismatch"
			}
		}()
	}
	wg.Wait()
	close(errs)
	for e := range errs {
		t.Error(e)
	}
}

func TestResultAccessors(t *testing.T) {
	t.Parallel()
	res := newResult([]Match{
		{Key: "b", Value: "2", Score: 0.5},
		{Key: "a", Value: "9", Score: 0.9},
		{Key: "a", Value: "1", Score: 0.5},
		{Key: "a", Value: "0", Score: 0.5},
	}, time.Millisecond, 7, 3)

	require.Equal(t, 4, res.Len())
	assert.Equal(t, []Match{
		{Key: "a", Value: "9", Score: 0.9},
		{Key: "a", Value: "0", Score: 0.5},
		{Key: "a", Value: "1", Score: 0.5},
		{Key: "b", Value: "2", Score: 0.5},
	}, res.Matches())
	assert.Equal(t, []string{"a", "b"}, res.Keys())
	assert.Equal(t, time.Millisecond, res.Elapsed())
	assert.Equal(t, 7, res.Candidates())
	assert.Equal(t, 3, res.UsefulTokens())

	m := res.Matches()
	m[0].Key = "mutated"
	assert.Equal(t, "a", res.Key(0))
}
