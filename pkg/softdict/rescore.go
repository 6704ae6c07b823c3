package softdict

import (
	"time"

	"github.com/Adithya-Monish-Kumar-K/softdict/pkg/softdict/similarity"
)

// Lookuper answers approximate lookups. Both Dictionary and Rescorer
// implement it, so rescorers can be stacked.
type Lookuper interface {
	Lookup(minScore float64, query string) *Result
}

// Rescorer uses an inner Lookuper as a candidate generator and scores its
// matches again with a whole-string distance.
type Rescorer struct {
	inner         Lookuper
	innerMinScore float64
	distance      similarity.StringDistance
}

// NewRescorer returns a Rescorer whose inner lookups run at innerMinScore.
// innerMinScore is usually looser than the thresholds the Rescorer is asked
// for, so the inner lookup returns enough candidates.
func NewRescorer(inner Lookuper, innerMinScore float64, distance similarity.StringDistance) *Rescorer {
	return &Rescorer{
		inner:         inner,
		innerMinScore: innerMinScore,
		distance:      distance,
	}
}

// Lookup returns the inner matches whose distance score against query is at
// least minScore, carrying that score.
func (r *Rescorer) Lookup(minScore float64, query string) *Result {
	start := time.Now()
	inner := r.inner.Lookup(r.innerMinScore, query)

	var matches []Match
	for i := 0; i < inner.Len(); i++ {
		s := r.distance.Score(query, inner.Key(i))
		if s < minScore {
			continue
		}
		matches = append(matches, Match{Key: inner.Key(i), Value: inner.Value(i), Score: s})
	}
	return newResult(matches, time.Since(start), inner.Len(), inner.UsefulTokens())
}
