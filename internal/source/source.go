// Package source reads (alias, value) pairs that seed the indexer: a
// tab-separated alias file or a PostgreSQL table.
package source

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/Adithya-Monish-Kumar-K/softdict/pkg/softdict"
)

// Source streams every (alias, value) pair it holds to fn.
type Source interface {
	Name() string
	Load(ctx context.Context, fn func(alias, value string) error) (int, error)
}

// File reads an alias file in the format softdict.ReadAliases accepts.
type File struct {
	Path string
}

func (f File) Name() string { return "file:" + f.Path }

func (f File) Load(ctx context.Context, fn func(alias, value string) error) (int, error) {
	fh, err := os.Open(f.Path)
	if err != nil {
		return 0, fmt.Errorf("opening alias file: %w", err)
	}
	defer fh.Close()
	n, err := softdict.ReadAliases(fh, func(alias, value string) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		return fn(alias, value)
	})
	if err != nil {
		return n, fmt.Errorf("loading %s: %w", f.Path, err)
	}
	slog.Default().With("component", "source").Info("alias file loaded", "path", f.Path, "pairs", n)
	return n, nil
}
