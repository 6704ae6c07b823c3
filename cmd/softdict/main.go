// Command softdict loads an alias dictionary and measures it: lookups,
// pruned-vs-exhaustive agreement, window sweeps, conversion to the saved
// format, and load tests against a running lookup service.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/Adithya-Monish-Kumar-K/softdict/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/softdict/pkg/softdict"
)

func main() {
	defaults := softdict.DefaultConfig()

	dictFlags := []cli.Flag{
		&cli.StringFlag{
			Name:     "dict",
			Aliases:  []string{"d"},
			Usage:    "alias file (.list, .tsv, .txt) or saved dictionary",
			Required: true,
		},
		&cli.Float64Flag{
			Name:  "min-token-similarity",
			Value: defaults.MinTokenSimilarity,
			Usage: "least similarity at which two tokens stand in for each other",
		},
		&cli.IntFlag{
			Name:  "window",
			Value: defaults.WindowSize,
			Usage: "lexicographic neighbours compared on each side of a token",
		},
		&cli.IntFlag{
			Name:  "max-postings",
			Usage: "skip postings lists of this size or larger while pruning (0 = unlimited)",
		},
		&cli.StringFlag{
			Name:  "merge",
			Value: string(defaults.BoundMerge),
			Usage: "bound merge: sum, max or overwrite",
		},
		&cli.BoolFlag{
			Name:  "stem",
			Usage: "stem tokens with the Snowball English stemmer",
		},
	}
	minFlag := &cli.Float64Flag{
		Name:  "min",
		Value: 0.5,
		Usage: "minimum score",
	}

	app := &cli.App{
		Name:  "softdict",
		Usage: "approximate-match alias dictionary tools",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Value:   "warn",
				EnvVars: []string{"SD_LOGGING_LEVEL"},
			},
			&cli.StringFlag{
				Name:  "log-format",
				Value: "text",
			},
		},
		Before: func(c *cli.Context) error {
			logger.SetupWriter(os.Stderr, c.String("log-level"), c.String("log-format"))
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:      "lookup",
				Usage:     "Look queries up and print matching keys, values and scores",
				ArgsUsage: "QUERY...",
				Flags: append(dictFlags, minFlag,
					&cli.StringFlag{Name: "queries", Aliases: []string{"q"}, Usage: "file with one query per line"},
					&cli.BoolFlag{Name: "slow", Usage: "score every key instead of pruning"},
					&cli.BoolFlag{Name: "json", Usage: "print results as JSON lines"},
				),
				Action: lookupCommand,
			},
			{
				Name:  "compare",
				Usage: "Compare pruned lookups with the exhaustive baseline",
				Flags: append(dictFlags, minFlag,
					&cli.StringFlag{Name: "queries", Aliases: []string{"q"}, Usage: "file with one query per line", Required: true},
				),
				Action: compareCommand,
			},
			{
				Name:      "windows",
				Usage:     "Refreeze at each window size and report cost and near-duplicate pairs",
				ArgsUsage: "WINDOW...",
				Flags:     dictFlags,
				Action:    windowsCommand,
			},
			{
				Name:  "convert",
				Usage: "Write the dictionary in the saved format",
				Flags: append(dictFlags,
					&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "output path", Required: true},
				),
				Action: convertCommand,
			},
			{
				Name:  "stats",
				Usage: "Print postings size, maximum weight and near-duplicates per token",
				Flags: append(dictFlags,
					&cli.IntFlag{Name: "top", Value: 20, Usage: "tokens to print, largest postings first (0 = all)"},
				),
				Action: statsCommand,
			},
			{
				Name:  "publish",
				Usage: "Publish an alias file to the alias events topic",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "aliases", Aliases: []string{"a"}, Usage: "alias file", Required: true},
					&cli.StringFlag{Name: "config", Value: "configs/development.yaml", Usage: "service config file"},
					&cli.StringFlag{Name: "op", Value: "upsert", Usage: "upsert or delete"},
					&cli.IntFlag{Name: "batch", Value: 500, Usage: "events per Kafka write"},
				},
				Action: publishCommand,
			},
			{
				Name:  "loadtest",
				Usage: "Drive a running lookup service with concurrent requests",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "url", Value: "http://localhost:8080", Usage: "lookup service base URL"},
					&cli.IntFlag{Name: "concurrency", Aliases: []string{"c"}, Value: 10},
					&cli.DurationFlag{Name: "duration", Value: 10 * time.Second},
					&cli.StringFlag{Name: "queries", Aliases: []string{"q"}, Usage: "file with one query per line", Required: true},
					&cli.Float64Flag{Name: "min", Value: 0.5},
					&cli.IntFlag{Name: "limit", Value: 10},
				},
				Action: loadtestCommand,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "softdict: %v\n", err)
		os.Exit(1)
	}
}
