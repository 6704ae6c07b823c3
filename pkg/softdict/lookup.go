package softdict

import (
	"sort"
	"time"

	"github.com/Adithya-Monish-Kumar-K/softdict/pkg/softdict/weight"
)

// boundSlack absorbs rounding in the running sum of bounds.
const boundSlack = 1e-9

// bound is the most one stored token can add to the score of any key
// containing it.
type bound struct {
	id    int
	value string
	ub    float64
}

// Lookup returns every (key, value) whose key scores at least minScore
// against query. It gives the same keys as SlowLookup while scoring only
// keys that share a useful token with the query. With BoundMerge other than
// sum, or a window that does not cover the vocabulary, or a postings cutoff,
// some qualifying keys may be missed.
//
// A minScore of zero or less qualifies every key. A query without tokens
// matches nothing. Lookup freezes the dictionary first if needed.
func (d *Dictionary) Lookup(minScore float64, query string) *Result {
	d.Freeze()
	start := time.Now()

	tokens := d.tokenizer.Tokenize(query)
	if len(tokens) == 0 {
		return d.finish("lookup", query, start, nil, 0, 0)
	}
	qv := d.model.Vector(tokens)

	var candidates []string
	var useful int
	if minScore <= 0 {
		candidates = d.keys
	} else {
		bounds := d.upperBounds(qv)
		useful = len(bounds)
		candidates = d.prune(bounds, minScore)
	}
	matches := d.score(qv, candidates, minScore)
	return d.finish("lookup", query, start, matches, len(candidates), useful)
}

// SlowLookup scores every key against query. It returns the same matches
// Lookup would if pruning never discarded anything.
func (d *Dictionary) SlowLookup(minScore float64, query string) *Result {
	d.Freeze()
	start := time.Now()

	tokens := d.tokenizer.Tokenize(query)
	if len(tokens) == 0 {
		return d.finish("slow_lookup", query, start, nil, 0, 0)
	}
	qv := d.model.Vector(tokens)
	matches := d.score(qv, d.keys, minScore)
	return d.finish("slow_lookup", query, start, matches, len(d.keys), 0)
}

// upperBounds collects the useful tokens of a query vector with their
// bounds: every known query token, and every near-duplicate of any query
// token, at weight(query token) * max weight(stored token) * similarity.
func (d *Dictionary) upperBounds(qv weight.Vector) []bound {
	var bounds []bound
	at := make(map[int]int)
	store := func(id int, ub float64) {
		i, ok := at[id]
		if !ok {
			at[id] = len(bounds)
			bounds = append(bounds, bound{id: id, value: d.tokens.Get(id).Value, ub: ub})
			return
		}
		switch d.cfg.BoundMerge {
		case MergeSum:
			bounds[i].ub += ub
		case MergeMax:
			bounds[i].ub = max(bounds[i].ub, ub)
		case MergeOverwrite:
			bounds[i].ub = ub
		}
	}

	for _, term := range qv.Terms {
		if tok, ok := d.tokens.Lookup(term.Value); ok {
			store(tok.ID, term.Weight*d.maxWeight[tok.ID])
		}
		for _, n := range d.nearDuplicates(term.Value) {
			store(n.id, term.Weight*d.maxWeight[n.id]*n.sim)
		}
	}
	return bounds
}

// prune walks the useful tokens from the smallest bound up, keeping a running
// sum of every bound seen. A key can only reach minScore through tokens whose
// bounds add up to minScore, and the largest of those comes last, so
// postings are collected only once the running sum reaches minScore.
func (d *Dictionary) prune(bounds []bound, minScore float64) []string {
	sort.Slice(bounds, func(i, j int) bool {
		if bounds[i].ub != bounds[j].ub {
			return bounds[i].ub < bounds[j].ub
		}
		return bounds[i].value < bounds[j].value
	})

	var candidates []string
	seen := make(map[string]struct{})
	var running float64
	for _, b := range bounds {
		running += b.ub
		if running+boundSlack < minScore {
			continue
		}
		postings := d.postings[b.id]
		if limit := d.cfg.MaxInvertedIndexSize; limit > 0 && len(postings) >= limit {
			continue
		}
		for _, key := range postings {
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			candidates = append(candidates, key)
		}
	}
	return candidates
}

func (d *Dictionary) score(qv weight.Vector, keys []string, minScore float64) []Match {
	var matches []Match
	for _, key := range keys {
		s := d.matcher.Score(qv, d.vectors[key])
		if s < minScore {
			continue
		}
		for _, v := range d.values[key] {
			matches = append(matches, Match{Key: key, Value: v, Score: s})
		}
	}
	return matches
}

func (d *Dictionary) finish(kind, query string, start time.Time, matches []Match, candidates, useful int) *Result {
	elapsed := time.Since(start)
	res := newResult(matches, elapsed, candidates, useful)
	d.logger.Debug(kind,
		"query", query,
		"useful_tokens", useful,
		"candidates", candidates,
		"results", res.Len(),
		"elapsed", elapsed,
	)
	if d.observer != nil {
		d.observer.ObserveLookup(kind, elapsed, candidates, res.Len())
	}
	return res
}
