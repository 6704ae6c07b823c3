// Package executor serves lookups from the current dictionary snapshot and
// swaps snapshots atomically on reload.
package executor

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/Adithya-Monish-Kumar-K/softdict/internal/indexer/snapshot"
	"github.com/Adithya-Monish-Kumar-K/softdict/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/softdict/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/softdict/pkg/softdict"
	"github.com/Adithya-Monish-Kumar-K/softdict/pkg/softdict/similarity"
)

// LookupResult is the JSON shape of one lookup.
type LookupResult struct {
	Query        string           `json:"query"`
	MinScore     float64          `json:"min_score"`
	TotalMatches int              `json:"total_matches"`
	Matches      []softdict.Match `json:"matches"`
	Candidates   int              `json:"candidates"`
	Snapshot     string           `json:"snapshot"`
}

// Loaded is one served snapshot. It is never modified after it is stored.
type Loaded struct {
	Dict     *softdict.Dictionary
	Lookuper softdict.Lookuper
	Info     snapshot.Info
	LoadedAt time.Time
}

type Executor struct {
	current       atomic.Pointer[Loaded]
	opts          []softdict.Option
	distance      similarity.StringDistance
	innerMinScore float64
	logger        *slog.Logger
}

// New validates the rescoring setup in cfg. opts are passed to every
// snapshot restore, e.g. a metrics observer.
func New(cfg config.SearchConfig, opts ...softdict.Option) (*Executor, error) {
	e := &Executor{
		opts:          opts,
		innerMinScore: cfg.RescoreInnerMinScore,
		logger:        slog.Default().With("component", "query-executor"),
	}
	if cfg.Rescore != "" {
		d, err := similarity.NewStringDistance(cfg.Rescore)
		if err != nil {
			return nil, fmt.Errorf("search rescore: %w", err)
		}
		e.distance = d
	}
	return e, nil
}

// Load restores the snapshot at path and serves it from now on. The
// previous snapshot keeps serving lookups already in flight.
func (e *Executor) Load(path string) (snapshot.Info, error) {
	d, info, err := snapshot.Load(path, e.opts...)
	if err != nil {
		return snapshot.Info{}, err
	}
	e.Swap(d, info)
	return info, nil
}

// Swap serves d from now on.
func (e *Executor) Swap(d *softdict.Dictionary, info snapshot.Info) {
	var lk softdict.Lookuper = d
	if e.distance != nil {
		lk = softdict.NewRescorer(d, e.innerMinScore, e.distance)
	}
	prev := e.current.Swap(&Loaded{Dict: d, Lookuper: lk, Info: info, LoadedAt: time.Now()})
	if prev != nil && prev.Info.Fingerprint != info.Fingerprint {
		e.logger.Info("snapshot swapped", "from", prev.Info.Fingerprint, "to", info.Fingerprint, "keys", info.Keys)
	}
}

// Current returns the served snapshot, or nil before the first Load.
func (e *Executor) Current() *Loaded {
	return e.current.Load()
}

// Entries reports the served key count and whether a snapshot is loaded.
func (e *Executor) Entries() (int, bool) {
	cur := e.current.Load()
	if cur == nil {
		return 0, false
	}
	return cur.Dict.Len(), true
}

// Execute looks query up in the current snapshot and returns at most limit
// matches. limit <= 0 returns all of them.
func (e *Executor) Execute(ctx context.Context, query string, minScore float64, limit int) (*LookupResult, error) {
	cur := e.current.Load()
	if cur == nil {
		return nil, ErrNoSnapshot
	}
	return cur.Lookup(ctx, query, minScore, limit)
}

// ErrNoSnapshot is returned before the first successful Load.
var ErrNoSnapshot = apperrors.New(apperrors.ErrUnavailable, http.StatusServiceUnavailable, "no dictionary loaded")

// Lookup runs one lookup against this snapshot.
func (l *Loaded) Lookup(ctx context.Context, query string, minScore float64, limit int) (*LookupResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("lookup %q: %w", query, err)
	}
	res := l.Lookuper.Lookup(minScore, query)
	matches := res.Matches()
	total := len(matches)
	if limit > 0 && total > limit {
		matches = matches[:limit]
	}
	if matches == nil {
		matches = []softdict.Match{}
	}
	return &LookupResult{
		Query:        query,
		MinScore:     minScore,
		TotalMatches: total,
		Matches:      matches,
		Candidates:   res.Candidates(),
		Snapshot:     l.Info.Fingerprint,
	}, nil
}
