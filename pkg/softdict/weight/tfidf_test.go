package weight

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func unitLength(t *testing.T, v Vector) {
	t.Helper()
	var sum float64
	for _, term := range v.Terms {
		assert.GreaterOrEqual(t, term.Weight, 0.0)
		assert.LessOrEqual(t, term.Weight, 1.0)
		sum += term.Weight * term.Weight
	}
	assert.InDelta(t, 1.0, sum, 1e-9)
}

func TestTFIDFUntrainedIsUniform(t *testing.T) {
	t.Parallel()
	m := NewTFIDF()
	v := m.Vector([]string{"william", "cohen", "cohen"})

	require.Equal(t, 2, v.Len())
	assert.InDelta(t, 1/math.Sqrt2, v.Weight("william"), 1e-12)
	assert.InDelta(t, 1/math.Sqrt2, v.Weight("cohen"), 1e-12)
}

func TestTFIDFTrainedWeights(t *testing.T) {
	t.Parallel()
	m := NewTFIDF()
	m.Train([][]string{
		{"william", "cohen"},
		{"vitor", "del", "rocha", "carvalho"},
		{"william", "smith"},
	})

	assert.Equal(t, 3, m.CollectionSize())
	assert.Equal(t, 2, m.DocumentFrequency("william"))
	assert.Equal(t, 1, m.DocumentFrequency("cohen"))
	assert.Equal(t, 0, m.DocumentFrequency("nobody"))

	v := m.Vector([]string{"william", "cohen"})
	unitLength(t, v)
	assert.Greater(t, v.Weight("cohen"), v.Weight("william"), "rarer token weighs more")
}

func TestTFIDFNovelTokenCountsAsDFOne(t *testing.T) {
	t.Parallel()
	m := NewTFIDF()
	m.Train([][]string{{"a", "b"}, {"a", "c"}})

	v := m.Vector([]string{"b", "zzz"})
	unitLength(t, v)
	assert.InDelta(t, v.Weight("b"), v.Weight("zzz"), 1e-12)
}

func TestTFIDFSingleDocumentFallsBackToUniform(t *testing.T) {
	t.Parallel()
	m := NewTFIDF()
	m.Train([][]string{{"ibm"}})

	v := m.Vector([]string{"ibm"})
	assert.Equal(t, 1.0, v.Weight("ibm"))
}

func TestTFIDFEmptyVector(t *testing.T) {
	t.Parallel()
	m := NewTFIDF()
	m.Train([][]string{{"a"}, {"b"}})
	v := m.Vector(nil)
	assert.Equal(t, 0, v.Len())
	assert.False(t, v.Contains("a"))
}

func TestTFIDFSetDocumentFrequency(t *testing.T) {
	t.Parallel()
	trained := NewTFIDF()
	trained.Train([][]string{{"a", "b"}, {"a", "c"}, {"d"}})

	restored := NewTFIDF()
	for _, tok := range []string{"a", "b", "c", "d"} {
		restored.SetDocumentFrequency(tok, trained.DocumentFrequency(tok))
	}
	restored.SetCollectionSize(trained.CollectionSize())

	query := []string{"a", "c", "x"}
	assert.Equal(t, trained.Vector(query), restored.Vector(query))
}
