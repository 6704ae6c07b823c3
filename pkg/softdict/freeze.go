package softdict

import (
	"sync"
	"time"

	"github.com/Adithya-Monish-Kumar-K/softdict/pkg/softdict/weight"
)

// Freeze trains the weight model on every key and builds the lookup tables.
// It does nothing when the tables are already current; use Refreeze to
// force a rebuild.
func (d *Dictionary) Freeze() {
	if d.frozen {
		return
	}
	start := time.Now()

	docs := make([][]string, len(d.keys))
	for i, key := range d.keys {
		docs[i] = d.tokenizer.Tokenize(key)
	}
	d.model.Train(docs)

	size := d.tokens.MaxID() + 1
	d.vectors = make(map[string]weight.Vector, len(d.keys))
	d.maxWeight = make([]float64, size)
	d.postings = make([][]string, size)
	for i, key := range d.keys {
		v := d.model.Vector(docs[i])
		d.vectors[key] = v
		for _, term := range v.Terms {
			tok, ok := d.tokens.Lookup(term.Value)
			if !ok {
				continue
			}
			d.maxWeight[tok.ID] = max(d.maxWeight[tok.ID], term.Weight)
			d.postings[tok.ID] = append(d.postings[tok.ID], key)
		}
	}

	d.sorted = d.tokens.Sorted()
	d.similar = make([][]neighbor, size)
	pairs := d.findNearDuplicates()

	d.frozen = true
	elapsed := time.Since(start)
	d.logger.Info("dictionary frozen",
		"keys", len(d.keys),
		"vocabulary", len(d.sorted),
		"near_duplicate_pairs", pairs,
		"window", d.cfg.WindowSize,
		"elapsed", elapsed,
	)
	if d.observer != nil {
		d.observer.ObserveFreeze(elapsed, len(d.sorted), pairs)
	}
}

// findNearDuplicates fills d.similar. The sorted vocabulary is split into
// contiguous ranges, one goroutine per range; each writes only the slots of
// its own tokens.
func (d *Dictionary) findNearDuplicates() int {
	n := len(d.sorted)
	if n == 0 || d.cfg.WindowSize == 0 {
		return 0
	}
	workers := min(d.cfg.workers(), n)
	chunk := (n + workers - 1) / workers
	counts := make([]int, workers)

	var wg sync.WaitGroup
	for w := range workers {
		lo, hi := w*chunk, min((w+1)*chunk, n)
		wg.Go(func() {
			for i := lo; i < hi; i++ {
				tok := d.sorted[i]
				found := d.window(tok.Value, i, true)
				d.similar[tok.ID] = found
				counts[w] += len(found)
			}
		})
	}
	wg.Wait()

	var pairs int
	for _, c := range counts {
		pairs += c
	}
	return pairs
}
