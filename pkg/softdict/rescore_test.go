package softdict

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/softdict/pkg/softdict/similarity"
)

type stubLookuper struct {
	gotMin float64
	res    *Result
}

func (s *stubLookuper) Lookup(minScore float64, _ string) *Result {
	s.gotMin = minScore
	return s.res
}

// lengthRatio scores by relative length, which makes expected values easy to
// state.
type lengthRatio struct{}

func (lengthRatio) Name() string { return "length-ratio" }

func (lengthRatio) Score(a, b string) float64 {
	la, lb := float64(len(a)), float64(len(b))
	if la == 0 || lb == 0 {
		return 0
	}
	return min(la, lb) / max(la, lb)
}

func TestRescorerRescoresAndFilters(t *testing.T) {
	t.Parallel()
	inner := &stubLookuper{res: newResult([]Match{
		{Key: "abcd", Value: "1", Score: 0.9},
		{Key: "abcdefgh", Value: "2", Score: 0.8},
		{Key: "ab", Value: "3", Score: 0.7},
	}, 0, 3, 2)}
	r := NewRescorer(inner, 0.2, lengthRatio{})

	res := r.Lookup(0.5, "abcd")
	assert.Equal(t, 0.2, inner.gotMin)
	require.Equal(t, 3, res.Len())
	assert.Equal(t, []Match{
		{Key: "abcd", Value: "1", Score: 1},
		{Key: "ab", Value: "3", Score: 0.5},
		{Key: "abcdefgh", Value: "2", Score: 0.5},
	}, res.Matches())
	assert.Equal(t, 3, res.Candidates())

	strict := r.Lookup(0.6, "abcd")
	assert.Equal(t, []string{"abcd"}, strict.Keys())
}

func TestRescorerOverDictionary(t *testing.T) {
	t.Parallel()
	d := newTestDict(t, DefaultConfig())
	putAll(t, d,
		"william cohen", "w",
		"vitor del rocha carvalho", "v",
		"victor carvalho", "v2",
	)
	dist, err := similarity.NewStringDistance("levenshtein")
	require.NoError(t, err)
	r := NewRescorer(d, 0.3, dist)

	res := r.Lookup(0.6, "Victor Carvalho")
	require.GreaterOrEqual(t, res.Len(), 1)
	assert.Equal(t, "victor carvalho", res.Key(0))
	assert.Equal(t, 1.0, res.Score(0))
	for _, m := range res.Matches() {
		assert.Equal(t, dist.Score("Victor Carvalho", m.Key), m.Score)
		assert.GreaterOrEqual(t, m.Score, 0.6)
	}

	stacked := NewRescorer(r, 0.6, dist)
	assert.Equal(t, res.Matches(), stacked.Lookup(0.6, "Victor Carvalho").Matches())
}

func TestLoadAliases(t *testing.T) {
	t.Parallel()
	d := newTestDict(t, DefaultConfig())
	input := strings.Join([]string{
		"IBM_CORP\tibm\tinternational business machines",
		"",
		"ACME\tacme inc\r",
		"LONELY",
		"DUP\tibm",
	}, "\n")

	n, err := d.LoadAliases(strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.Equal(t, []string{"ibm", "international business machines", "acme inc"}, d.Keys())
	assert.Equal(t, []string{"IBM_CORP", "DUP"}, d.Values("ibm"))
	assert.Equal(t, []string{"ACME"}, d.Values("acme inc"))
}

func TestLoadAliasesIntoFrozenDictionary(t *testing.T) {
	t.Parallel()
	d := newTestDict(t, DefaultConfig())
	d.Freeze()
	n, err := d.LoadAliases(strings.NewReader("X\tfoo\n"))
	assert.Zero(t, n)
	assert.ErrorContains(t, err, "line 1")
}

func TestLoadAliasFile(t *testing.T) {
	t.Parallel()
	d := newTestDict(t, DefaultConfig())
	_, err := d.LoadAliasFile("testdata/missing.list")
	assert.Error(t, err)
}
