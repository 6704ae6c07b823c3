// Package indexer stages alias changes and turns them into frozen
// dictionary snapshots on disk.
package indexer

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"sync"
	"time"

	"github.com/Adithya-Monish-Kumar-K/softdict/internal/indexer/snapshot"
	"github.com/Adithya-Monish-Kumar-K/softdict/internal/ingestion"
	"github.com/Adithya-Monish-Kumar-K/softdict/internal/source"
	"github.com/Adithya-Monish-Kumar-K/softdict/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/softdict/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/softdict/pkg/softdict"
	"github.com/Adithya-Monish-Kumar-K/softdict/pkg/tracing"
)

// AnnounceFunc is called after every snapshot the rebuild loop writes.
type AnnounceFunc func(ctx context.Context, ev ingestion.SnapshotEvent) error

// Engine holds the staged alias set. Frozen dictionaries cannot take new
// entries, so every snapshot is a full rebuild from the staged set.
type Engine struct {
	cfg     config.IndexerConfig
	dictCfg softdict.Config
	opts    []softdict.Option
	metrics *metrics.Metrics
	logger  *slog.Logger
	now     func() time.Time

	mu      sync.Mutex
	entries map[string]map[string]struct{}
	pairs   int
	pending int

	// buildMu serialises Snapshot so versions are written in order.
	buildMu sync.Mutex
	version uint64
	last    *ingestion.SnapshotEvent
}

// NewEngine creates the data directory. m may be nil.
func NewEngine(cfg config.IndexerConfig, dictCfg softdict.Config, m *metrics.Metrics, opts ...softdict.Option) (*Engine, error) {
	if err := dictCfg.Validate(); err != nil {
		return nil, fmt.Errorf("dictionary config: %w", err)
	}
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	return &Engine{
		cfg:     cfg,
		dictCfg: dictCfg,
		opts:    opts,
		metrics: m,
		logger:  slog.Default().With("component", "indexer"),
		now:     time.Now,
		entries: make(map[string]map[string]struct{}),
	}, nil
}

// Seed stages every pair src yields.
func (e *Engine) Seed(ctx context.Context, src source.Source) (int, error) {
	n, err := src.Load(ctx, func(alias, value string) error {
		e.Apply(ingestion.AliasEvent{Op: ingestion.OpUpsert, Alias: alias, Value: value})
		return nil
	})
	if err != nil {
		return n, fmt.Errorf("seeding from %s: %w", src.Name(), err)
	}
	e.logger.Info("seeded", "source", src.Name(), "pairs", n, "staged", e.Len())
	return n, nil
}

// Apply stages one change and reports whether it altered the staged set.
func (e *Engine) Apply(ev ingestion.AliasEvent) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	values := e.entries[ev.Alias]
	if ev.Op == ingestion.OpDelete {
		if _, ok := values[ev.Value]; !ok {
			return false
		}
		delete(values, ev.Value)
		if len(values) == 0 {
			delete(e.entries, ev.Alias)
		}
		e.pairs--
		e.pending++
		return true
	}
	if _, ok := values[ev.Value]; ok {
		return false
	}
	if values == nil {
		values = make(map[string]struct{})
		e.entries[ev.Alias] = values
	}
	values[ev.Value] = struct{}{}
	e.pairs++
	e.pending++
	return true
}

// Len is the number of staged (alias, value) pairs.
func (e *Engine) Len() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.pairs
}

// Pending is the number of changes not yet in a snapshot.
func (e *Engine) Pending() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.pending
}

// Last returns the most recent snapshot announcement, or nil.
func (e *Engine) Last() *ingestion.SnapshotEvent {
	e.buildMu.Lock()
	defer e.buildMu.Unlock()
	return e.last
}

// Build freezes a new dictionary from the staged set. Pairs are put in
// sorted order so equal staged sets give byte-identical snapshots.
func (e *Engine) Build() (*softdict.Dictionary, int, error) {
	e.mu.Lock()
	aliases := make([]string, 0, len(e.entries))
	for alias := range e.entries {
		aliases = append(aliases, alias)
	}
	staged := make(map[string][]string, len(e.entries))
	for _, alias := range aliases {
		values := make([]string, 0, len(e.entries[alias]))
		for v := range e.entries[alias] {
			values = append(values, v)
		}
		staged[alias] = values
	}
	pending := e.pending
	e.mu.Unlock()

	d, err := softdict.New(e.dictCfg, e.opts...)
	if err != nil {
		return nil, 0, err
	}
	slices.Sort(aliases)
	for _, alias := range aliases {
		values := staged[alias]
		slices.Sort(values)
		for _, v := range values {
			if err := d.Put(alias, v); err != nil {
				return nil, 0, fmt.Errorf("staging %q: %w", alias, err)
			}
		}
	}
	d.Freeze()
	return d, pending, nil
}

// Snapshot builds, writes and records a new snapshot. Changes staged while
// it runs stay pending for the next one.
func (e *Engine) Snapshot(ctx context.Context) (*ingestion.SnapshotEvent, error) {
	e.buildMu.Lock()
	defer e.buildMu.Unlock()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := e.now()
	ctx, span := tracing.Start(ctx, "snapshot")
	defer span.Log(ctx, e.logger)

	_, buildSpan := tracing.Start(ctx, "build")
	d, built, err := e.Build()
	buildSpan.End()
	if err != nil {
		e.count("error")
		return nil, fmt.Errorf("building dictionary: %w", err)
	}
	buildSpan.Set("changes", built, "keys", d.Len())

	_, writeSpan := tracing.Start(ctx, "write")
	info, err := snapshot.Write(d, e.cfg.SnapshotPath())
	writeSpan.End()
	if err != nil {
		e.count("error")
		return nil, fmt.Errorf("writing snapshot: %w", err)
	}
	writeSpan.Set("bytes", info.Size)

	e.mu.Lock()
	e.pending -= built
	e.mu.Unlock()

	e.version++
	ev := &ingestion.SnapshotEvent{
		Version:     e.version,
		Path:        info.Path,
		Fingerprint: info.Fingerprint,
		Keys:        info.Keys,
		Vocabulary:  info.Vocabulary,
		BuiltAt:     e.now().UTC(),
	}
	e.last = ev
	e.count("written")
	e.logger.Info("snapshot written",
		"version", ev.Version,
		"path", ev.Path,
		"fingerprint", ev.Fingerprint,
		"keys", ev.Keys,
		"vocabulary", ev.Vocabulary,
		"elapsed", e.now().Sub(start),
	)
	return ev, nil
}

// RunRebuildLoop writes a snapshot every RebuildInterval while changes are
// pending and passes each to announce. On cancellation it writes a final
// snapshot if anything is still pending. It blocks until ctx is done.
func (e *Engine) RunRebuildLoop(ctx context.Context, announce AnnounceFunc) {
	interval := e.cfg.RebuildInterval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			if e.Pending() > 0 {
				e.logger.Info("rebuild loop stopping, writing final snapshot", "pending", e.Pending())
				e.rebuild(context.WithoutCancel(ctx), announce)
			}
			return
		case <-ticker.C:
			if e.Pending() > 0 {
				e.rebuild(ctx, announce)
			}
		}
	}
}

func (e *Engine) rebuild(ctx context.Context, announce AnnounceFunc) {
	ev, err := e.Snapshot(ctx)
	if err != nil {
		e.logger.Error("rebuild failed", "error", err)
		return
	}
	if announce == nil {
		return
	}
	if err := announce(ctx, *ev); err != nil {
		e.logger.Error("snapshot announcement failed", "version", ev.Version, "error", err)
	}
}

func (e *Engine) count(status string) {
	if e.metrics != nil {
		e.metrics.SnapshotsTotal.WithLabelValues(status).Inc()
	}
}
