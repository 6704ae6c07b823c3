package softdict

import (
	"sort"
)

// window returns the tokens of the sorted vocabulary near pos whose
// similarity to value reaches MinTokenSimilarity.
//
// For a known token pos is its own position: the window spans WindowSize
// positions on each side and skips pos. For a token outside the vocabulary
// pos is its insertion point, so WindowSize tokens precede it and
// WindowSize follow it, with nothing to skip.
func (d *Dictionary) window(value string, pos int, known bool) []neighbor {
	w := d.cfg.WindowSize
	if w == 0 || len(d.sorted) == 0 {
		return nil
	}
	lo, hi := pos-w, pos+w
	if !known {
		hi--
	}
	lo = max(lo, 0)
	hi = min(hi, len(d.sorted)-1)

	var out []neighbor
	for j := lo; j <= hi; j++ {
		if known && j == pos {
			continue
		}
		other := d.sorted[j]
		if s := d.tokenSim.Similarity(value, other.Value); s >= d.cfg.MinTokenSimilarity {
			out = append(out, neighbor{id: other.ID, sim: s})
		}
	}
	return out
}

// insertionPoint is the position of the first vocabulary token not less
// than value.
func (d *Dictionary) insertionPoint(value string) int {
	return sort.Search(len(d.sorted), func(i int) bool {
		return d.sorted[i].Value >= value
	})
}

// nearDuplicates returns the near-duplicates of value: the frozen table entry
// for a known token, an on-the-fly window search otherwise.
func (d *Dictionary) nearDuplicates(value string) []neighbor {
	if tok, ok := d.tokens.Lookup(value); ok && tok.ID < len(d.similar) {
		return d.similar[tok.ID]
	}
	return d.window(value, d.insertionPoint(value), false)
}
