package similarity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/Adithya-Monish-Kumar-K/softdict/pkg/softdict/weight"
)

func TestJaroWinklerKnownPairs(t *testing.T) {
	t.Parallel()
	jw := JaroWinkler{}

	assert.Equal(t, 1.0, jw.Similarity("carvalho", "carvalho"))
	assert.Equal(t, 0.0, jw.Similarity("", "carvalho"))
	assert.GreaterOrEqual(t, jw.Similarity("victor", "vitor"), 0.9)
	assert.Less(t, jw.Similarity("ibm", "international"), 0.9)
}

func TestJaroWinklerRange(t *testing.T) {
	t.Parallel()
	rapid.Check(t, func(t *rapid.T) {
		a := rapid.StringMatching(`[a-z]{0,12}`).Draw(t, "a")
		b := rapid.StringMatching(`[a-z]{0,12}`).Draw(t, "b")
		s := JaroWinkler{}.Similarity(a, b)
		if s < 0 || s > 1 {
			t.Fatalf("similarity(%q,%q) = %v out of range", a, b, s)
		}
	})
}

func vec(terms ...weight.Term) weight.Vector {
	m := weight.NewTFIDF()
	tokens := make([]string, len(terms))
	for i, term := range terms {
		tokens[i] = term.Value
	}
	// Untrained: uniform weights, which is all these tests need.
	return m.Vector(tokens)
}

func TestSoftTFIDFExactTokens(t *testing.T) {
	t.Parallel()
	m := NewSoftTFIDF(nil, 0.9)

	q := vec(weight.Term{Value: "william"}, weight.Term{Value: "cohen"})
	assert.InDelta(t, 1.0, m.Score(q, q), 1e-12)

	other := vec(weight.Term{Value: "jones"})
	assert.Equal(t, 0.0, m.Score(q, other))
}

func TestSoftTFIDFSoftPair(t *testing.T) {
	t.Parallel()
	m := NewSoftTFIDF(JaroWinkler{}, 0.9)

	q := vec(weight.Term{Value: "victor"}, weight.Term{Value: "carvalho"})
	e := vec(weight.Term{Value: "vitor"}, weight.Term{Value: "carvalho"})
	score := m.Score(q, e)

	exactOnly := 0.5
	assert.Greater(t, score, exactOnly)
	assert.Less(t, score, 1.0)
}

func TestSoftTFIDFThresholdBlocksWeakPairs(t *testing.T) {
	t.Parallel()
	m := NewSoftTFIDF(JaroWinkler{}, 0.99)

	q := vec(weight.Term{Value: "victor"})
	e := vec(weight.Term{Value: "vitor"})
	assert.Equal(t, 0.0, m.Score(q, e))
}

func TestSoftTFIDFClampsManyToOne(t *testing.T) {
	t.Parallel()
	m := NewSoftTFIDF(JaroWinkler{}, 0.8)

	q := vec(weight.Term{Value: "jon"}, weight.Term{Value: "john"})
	e := vec(weight.Term{Value: "john"})
	score := m.Score(q, e)
	assert.LessOrEqual(t, score, 1.0)
	assert.Greater(t, score, 0.0)
}

func TestStringDistances(t *testing.T) {
	t.Parallel()
	for _, name := range []string{"jaro-winkler", "jaro", "levenshtein", "damerau-levenshtein", "lcs", "jaccard", "cosine", "sorensen-dice"} {
		d, err := NewStringDistance(name)
		require.NoError(t, err, name)
		assert.Equal(t, name, d.Name())
		assert.Equal(t, 1.0, d.Score("Chrono Trigger", "chrono trigger"), name)
		s := d.Score("chrono trigger snes", "chrono trigger ds")
		assert.Greater(t, s, 0.0, name)
		assert.Less(t, s, 1.0, name)
	}

	_, err := NewStringDistance("soundex")
	assert.Error(t, err)
}
