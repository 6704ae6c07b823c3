// Package harness measures a dictionary: pruned lookups against the
// exhaustive baseline, the cost of near-duplicate windows, and the lookup
// service under concurrent load.
package harness

import (
	"fmt"
	"io"
	"slices"
	"text/tabwriter"
	"time"

	"github.com/Adithya-Monish-Kumar-K/softdict/pkg/softdict"
)

// CompareReport sums Lookup and SlowLookup over a query set.
type CompareReport struct {
	Queries         int
	MinScore        float64
	Optimized       time.Duration
	Baseline        time.Duration
	OptimizedValues int
	BaselineValues  int
	Candidates      int
	// Missed lists queries for which Lookup returned fewer keys than
	// SlowLookup.
	Missed []string
	// Extra lists queries for which Lookup returned a key SlowLookup did
	// not. Never expected.
	Extra []string
}

// Speedup is baseline time over optimized time.
func (r CompareReport) Speedup() float64 {
	if r.Optimized <= 0 {
		return 0
	}
	return float64(r.Baseline) / float64(r.Optimized)
}

// PercentComplete is the share of baseline results Lookup also found.
func (r CompareReport) PercentComplete() float64 {
	if r.BaselineValues == 0 {
		return 100
	}
	return 100 * float64(r.OptimizedValues) / float64(r.BaselineValues)
}

// Compare runs every query through both lookups at minScore. The
// dictionary is frozen first so neither side pays for it.
func Compare(d *softdict.Dictionary, queries []string, minScore float64) CompareReport {
	d.Freeze()
	r := CompareReport{Queries: len(queries), MinScore: minScore}
	for _, q := range queries {
		fast := d.Lookup(minScore, q)
		slow := d.SlowLookup(minScore, q)
		r.Optimized += fast.Elapsed()
		r.Baseline += slow.Elapsed()
		r.OptimizedValues += fast.Len()
		r.BaselineValues += slow.Len()
		r.Candidates += fast.Candidates()

		fastKeys, slowKeys := fast.Keys(), slow.Keys()
		for _, k := range fastKeys {
			if !slices.Contains(slowKeys, k) {
				r.Extra = append(r.Extra, q)
				break
			}
		}
		if len(fastKeys) < len(slowKeys) {
			r.Missed = append(r.Missed, q)
		}
	}
	return r
}

// Print writes the report as aligned text.
func (r CompareReport) Print(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "queries\t%d\n", r.Queries)
	fmt.Fprintf(tw, "min score\t%.3f\n", r.MinScore)
	fmt.Fprintf(tw, "optimized time\t%s\n", r.Optimized)
	fmt.Fprintf(tw, "baseline time\t%s\n", r.Baseline)
	fmt.Fprintf(tw, "speedup\t%.2fx\n", r.Speedup())
	fmt.Fprintf(tw, "optimized values\t%d\n", r.OptimizedValues)
	fmt.Fprintf(tw, "baseline values\t%d\n", r.BaselineValues)
	fmt.Fprintf(tw, "percent complete\t%.2f%%\n", r.PercentComplete())
	fmt.Fprintf(tw, "candidates scored\t%d\n", r.Candidates)
	fmt.Fprintf(tw, "queries missing keys\t%d\n", len(r.Missed))
	if len(r.Extra) > 0 {
		fmt.Fprintf(tw, "queries with extra keys\t%d\n", len(r.Extra))
	}
	return tw.Flush()
}
