package similarity

import (
	"github.com/Adithya-Monish-Kumar-K/softdict/pkg/softdict/weight"
)

// Matcher computes the exact similarity of a query vector to a stored
// vector.
type Matcher interface {
	Score(query, entry weight.Vector) float64
}

// SoftTFIDF is the cosine of two TF-IDF vectors where a query token missing
// from the entry may still pair with the entry token it most resembles, as
// long as their token similarity reaches Threshold. A soft pair contributes
// the product of both weights scaled by the token similarity.
type SoftTFIDF struct {
	Tokens    TokenSimilarity
	Threshold float64
}

func NewSoftTFIDF(tokens TokenSimilarity, threshold float64) *SoftTFIDF {
	if tokens == nil {
		tokens = DefaultTokenSimilarity
	}
	return &SoftTFIDF{Tokens: tokens, Threshold: threshold}
}

func (m *SoftTFIDF) Score(query, entry weight.Vector) float64 {
	var sim float64
	for _, q := range query.Terms {
		if entry.Contains(q.Value) {
			sim += q.Weight * entry.Weight(q.Value)
			continue
		}
		best := m.Threshold
		bestWeight := -1.0
		for _, e := range entry.Terms {
			if s := m.Tokens.Similarity(q.Value, e.Value); s >= best {
				best = s
				bestWeight = e.Weight
			}
		}
		if bestWeight >= 0 {
			sim += q.Weight * bestWeight * best
		}
	}
	// Several query tokens may pair with one entry token.
	return clamp(sim)
}
