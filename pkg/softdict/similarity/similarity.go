// Package similarity scores tokens and token vectors against each other.
// Token-level scores come from go-edlib; the soft TF-IDF matcher combines
// them with vector weights.
package similarity

import (
	"github.com/hbollon/go-edlib"
)

// TokenSimilarity scores two token values in [0,1].
type TokenSimilarity interface {
	Similarity(a, b string) float64
	Name() string
}

// JaroWinkler is Jaro similarity with Winkler's common-prefix boost. It favours
// strings that agree on their first characters, which suits names.
type JaroWinkler struct{}

func (JaroWinkler) Name() string { return "jaro-winkler" }

func (JaroWinkler) Similarity(a, b string) float64 {
	if a == b {
		return 1
	}
	if a == "" || b == "" {
		return 0
	}
	return clamp(float64(edlib.JaroWinklerSimilarity(a, b)))
}

// DefaultTokenSimilarity is used when a dictionary is not given one.
var DefaultTokenSimilarity TokenSimilarity = JaroWinkler{}

func clamp(s float64) float64 {
	switch {
	case s < 0:
		return 0
	case s > 1:
		return 1
	default:
		return s
	}
}
