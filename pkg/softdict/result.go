package softdict

import (
	"sort"
	"time"
)

// Match is one (key, value, score) triple of a lookup.
type Match struct {
	Key   string  `json:"key"`
	Value string  `json:"value"`
	Score float64 `json:"score"`
}

// Result holds the matches of one lookup, best first. Ties are ordered by
// key, then value. A Result is never modified after it is returned.
type Result struct {
	matches    []Match
	elapsed    time.Duration
	candidates int
	useful     int
}

func newResult(matches []Match, elapsed time.Duration, candidates, useful int) *Result {
	sortMatches(matches)
	return &Result{
		matches:    matches,
		elapsed:    elapsed,
		candidates: candidates,
		useful:     useful,
	}
}

func sortMatches(matches []Match) {
	sort.Slice(matches, func(i, j int) bool {
		a, b := matches[i], matches[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.Key != b.Key {
			return a.Key < b.Key
		}
		return a.Value < b.Value
	})
}

func (r *Result) Len() int { return len(r.matches) }

// Key is the stored key of the i-th match.
func (r *Result) Key(i int) string { return r.matches[i].Key }

func (r *Result) Value(i int) string { return r.matches[i].Value }

func (r *Result) Score(i int) float64 { return r.matches[i].Score }

// Matches returns a copy of all matches in order.
func (r *Result) Matches() []Match {
	return append([]Match(nil), r.matches...)
}

// Keys returns the distinct matched keys in result order.
func (r *Result) Keys() []string {
	seen := make(map[string]struct{}, len(r.matches))
	keys := make([]string, 0, len(r.matches))
	for _, m := range r.matches {
		if _, ok := seen[m.Key]; ok {
			continue
		}
		seen[m.Key] = struct{}{}
		keys = append(keys, m.Key)
	}
	return keys
}

// Elapsed is how long the lookup took.
func (r *Result) Elapsed() time.Duration { return r.elapsed }

// Candidates is the number of keys that were scored exactly.
func (r *Result) Candidates() int { return r.candidates }

// UsefulTokens is the number of distinct stored tokens the query could
// match. It is zero for SlowLookup.
func (r *Result) UsefulTokens() int { return r.useful }
