package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/Adithya-Monish-Kumar-K/softdict/internal/harness"
	"github.com/Adithya-Monish-Kumar-K/softdict/internal/ingestion"
	"github.com/Adithya-Monish-Kumar-K/softdict/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/softdict/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/softdict/pkg/softdict"
	"github.com/Adithya-Monish-Kumar-K/softdict/pkg/softdict/tokenizer"
)

var aliasExtensions = []string{".list", ".tsv", ".txt"}

func dictConfig(c *cli.Context) (softdict.Config, []softdict.Option) {
	cfg := softdict.DefaultConfig()
	cfg.MinTokenSimilarity = c.Float64("min-token-similarity")
	cfg.WindowSize = c.Int("window")
	cfg.MaxInvertedIndexSize = c.Int("max-postings")
	cfg.BoundMerge = softdict.BoundMerge(c.String("merge"))
	var opts []softdict.Option
	if c.Bool("stem") {
		opts = append(opts, softdict.WithTokenizer(tokenizer.NewStemming()))
	}
	return cfg, opts
}

// openDict builds a frozen dictionary from an alias file or restores a
// saved one. A restored dictionary keeps its stored token similarity; the
// bound merge, window and pruning flags still apply.
func openDict(path string, cfg softdict.Config, opts ...softdict.Option) (*softdict.Dictionary, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	start := time.Now()
	if slices.Contains(aliasExtensions, strings.ToLower(filepath.Ext(path))) {
		d, err := softdict.New(cfg, opts...)
		if err != nil {
			return nil, err
		}
		n, err := d.LoadAliasFile(path)
		if err != nil {
			return nil, err
		}
		d.Freeze()
		fmt.Fprintf(os.Stderr, "loaded %d aliases (%d keys, %d tokens) in %s\n",
			n, d.Len(), d.Vocabulary(), time.Since(start).Round(time.Millisecond))
		return d, nil
	}

	d, err := softdict.Restore(path, append(slices.Clip(opts), softdict.WithBoundMerge(cfg.BoundMerge))...)
	if err != nil {
		return nil, err
	}
	if err := d.SetMaxInvertedIndexSize(cfg.MaxInvertedIndexSize); err != nil {
		return nil, err
	}
	// The saved tables were built at the stored window size.
	if cfg.WindowSize != d.Config().WindowSize {
		if err := d.SetWindowSize(cfg.WindowSize); err != nil {
			return nil, err
		}
		d.Refreeze()
	}
	fmt.Fprintf(os.Stderr, "restored %d keys (%d tokens) in %s\n",
		d.Len(), d.Vocabulary(), time.Since(start).Round(time.Millisecond))
	return d, nil
}

func openFromFlags(c *cli.Context) (*softdict.Dictionary, error) {
	cfg, opts := dictConfig(c)
	return openDict(c.String("dict"), cfg, opts...)
}

// readLines returns the non-blank lines of path, trimmed.
func readLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var lines []string
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			lines = append(lines, line)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return lines, nil
}

func queriesFrom(c *cli.Context) ([]string, error) {
	queries := c.Args().Slice()
	if path := c.String("queries"); path != "" {
		more, err := readLines(path)
		if err != nil {
			return nil, err
		}
		queries = append(queries, more...)
	}
	if len(queries) == 0 {
		return nil, errors.New("no queries: pass them as arguments or with --queries")
	}
	return queries, nil
}

func lookupCommand(c *cli.Context) error {
	queries, err := queriesFrom(c)
	if err != nil {
		return err
	}
	d, err := openFromFlags(c)
	if err != nil {
		return err
	}
	minScore := c.Float64("min")
	enc := json.NewEncoder(os.Stdout)
	for _, q := range queries {
		var res *softdict.Result
		if c.Bool("slow") {
			res = d.SlowLookup(minScore, q)
		} else {
			res = d.Lookup(minScore, q)
		}
		if c.Bool("json") {
			if err := enc.Encode(map[string]any{
				"query":      q,
				"matches":    res.Matches(),
				"candidates": res.Candidates(),
				"elapsed_ms": float64(res.Elapsed().Microseconds()) / 1000,
			}); err != nil {
				return err
			}
			continue
		}
		fmt.Printf("%s\t%d matches\t%d candidates\t%s\n", q, res.Len(), res.Candidates(), res.Elapsed())
		for i := range res.Len() {
			fmt.Printf("  %.4f\t%s\t%s\n", res.Score(i), res.Key(i), res.Value(i))
		}
	}
	return nil
}

func compareCommand(c *cli.Context) error {
	queries, err := queriesFrom(c)
	if err != nil {
		return err
	}
	d, err := openFromFlags(c)
	if err != nil {
		return err
	}
	report := harness.Compare(d, queries, c.Float64("min"))
	if err := report.Print(os.Stdout); err != nil {
		return err
	}
	if len(report.Extra) > 0 {
		return cli.Exit(fmt.Sprintf("%d queries returned keys the baseline did not", len(report.Extra)), 2)
	}
	return nil
}

func windowsCommand(c *cli.Context) error {
	if c.NArg() == 0 {
		return errors.New("usage: softdict windows --dict F WINDOW...")
	}
	windows := make([]int, 0, c.NArg())
	for _, arg := range c.Args().Slice() {
		w, err := strconv.Atoi(arg)
		if err != nil {
			return fmt.Errorf("window %q: %w", arg, err)
		}
		windows = append(windows, w)
	}
	d, err := openFromFlags(c)
	if err != nil {
		return err
	}
	rows, err := harness.SweepWindows(d, windows)
	if err != nil {
		return err
	}
	return harness.PrintWindows(os.Stdout, rows)
}

func convertCommand(c *cli.Context) error {
	d, err := openFromFlags(c)
	if err != nil {
		return err
	}
	out := c.String("out")
	if err := d.SaveAs(out); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "wrote %d keys to %s\n", d.Len(), out)
	return nil
}

func statsCommand(c *cli.Context) error {
	d, err := openFromFlags(c)
	if err != nil {
		return err
	}
	stats := d.TokenStats()
	slices.SortStableFunc(stats, func(a, b softdict.TokenStat) int {
		return b.Postings - a.Postings
	})
	if top := c.Int("top"); top > 0 && top < len(stats) {
		stats = stats[:top]
	}
	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "token\tpostings\tmax weight\tnear-duplicates")
	for _, s := range stats {
		fmt.Fprintf(tw, "%s\t%d\t%.4f\t%d\n", s.Token, s.Postings, s.MaxWeight, s.NearDuplicates)
	}
	return tw.Flush()
}

func publishCommand(c *cli.Context) error {
	op := ingestion.Op(c.String("op"))
	if op != ingestion.OpUpsert && op != ingestion.OpDelete {
		return fmt.Errorf("unknown op %q", op)
	}
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return err
	}
	f, err := os.Open(c.String("aliases"))
	if err != nil {
		return err
	}
	defer f.Close()

	producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.AliasEvents)
	defer producer.Close()

	ctx := c.Context
	batchSize := max(c.Int("batch"), 1)
	batch := make([]kafka.Event, 0, batchSize)
	published := 0
	flush := func() error {
		if err := producer.PublishBatch(ctx, batch); err != nil {
			return err
		}
		published += len(batch)
		batch = batch[:0]
		return nil
	}
	now := time.Now().UTC()
	_, err = softdict.ReadAliases(f, func(alias, value string) error {
		batch = append(batch, kafka.Event{Key: alias, Value: ingestion.AliasEvent{
			Op:         op,
			Alias:      alias,
			Value:      value,
			OccurredAt: now,
		}})
		if len(batch) == batchSize {
			return flush()
		}
		return nil
	})
	if err == nil {
		err = flush()
	}
	fmt.Fprintf(os.Stderr, "published %d alias events to %s\n", published, cfg.Kafka.Topics.AliasEvents)
	return err
}

func loadtestCommand(c *cli.Context) error {
	queries, err := readLines(c.String("queries"))
	if err != nil {
		return err
	}
	ctx := c.Context
	if ctx == nil {
		ctx = context.Background()
	}
	report, err := harness.RunLoad(ctx, &http.Client{Timeout: 10 * time.Second}, harness.LoadConfig{
		BaseURL:     c.String("url"),
		Concurrency: c.Int("concurrency"),
		Duration:    c.Duration("duration"),
		Queries:     queries,
		MinScore:    c.Float64("min"),
		Limit:       c.Int("limit"),
	})
	if err != nil {
		return err
	}
	return report.Print(os.Stdout)
}
