package harness

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/Adithya-Monish-Kumar-K/softdict/pkg/softdict"
)

// WindowRow is the cost of freezing at one window size.
type WindowRow struct {
	Window        int
	Elapsed       time.Duration
	Pairs         int
	PairsPerToken float64
}

// SweepWindows refreezes d at each window size in turn and records how long
// it took and how many near-duplicate pairs it found. d is left frozen at
// the last size.
func SweepWindows(d *softdict.Dictionary, windows []int) ([]WindowRow, error) {
	rows := make([]WindowRow, 0, len(windows))
	for _, w := range windows {
		if err := d.SetWindowSize(w); err != nil {
			return rows, err
		}
		start := time.Now()
		d.Refreeze()
		elapsed := time.Since(start)

		pairs := 0
		stats := d.TokenStats()
		for _, s := range stats {
			pairs += s.NearDuplicates
		}
		row := WindowRow{Window: w, Elapsed: elapsed, Pairs: pairs}
		if len(stats) > 0 {
			row.PairsPerToken = float64(pairs) / float64(len(stats))
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// PrintWindows writes rows as an aligned table.
func PrintWindows(w io.Writer, rows []WindowRow) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "window\ttime\tpairs\tpairs/token\t")
	for _, r := range rows {
		fmt.Fprintf(tw, "%d\t%s\t%d\t%.3f\t\n", r.Window, r.Elapsed.Round(time.Microsecond), r.Pairs, r.PairsPerToken)
	}
	return tw.Flush()
}
