// Package handler serves the lookup HTTP API.
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"math"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/Adithya-Monish-Kumar-K/softdict/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/softdict/internal/indexer/snapshot"
	"github.com/Adithya-Monish-Kumar-K/softdict/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/softdict/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/softdict/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/softdict/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/softdict/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/softdict/pkg/tracing"
)

// Snapshots is satisfied by executor.Executor.
type Snapshots interface {
	Current() *executor.Loaded
	Load(path string) (snapshot.Info, error)
}

// Tracker is satisfied by analytics.Collector.
type Tracker interface {
	Track(ev analytics.LookupEvent)
}

type Handler struct {
	snapshots    Snapshots
	cache        *cache.QueryCache
	tracker      Tracker
	cfg          config.SearchConfig
	snapshotPath string
	logger       *slog.Logger
}

// New creates a Handler. queryCache and tracker may be nil.
func New(snapshots Snapshots, queryCache *cache.QueryCache, tracker Tracker, cfg config.SearchConfig, snapshotPath string) *Handler {
	return &Handler{
		snapshots:    snapshots,
		cache:        queryCache,
		tracker:      tracker,
		cfg:          cfg,
		snapshotPath: snapshotPath,
		logger:       slog.Default().With("component", "lookup-handler"),
	}
}

// Register mounts the API on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/lookup", h.Lookup)
	mux.HandleFunc("GET /api/v1/neighbors", h.Neighbors)
	mux.HandleFunc("GET /api/v1/snapshot", h.Snapshot)
	mux.HandleFunc("POST /api/v1/reload", h.Reload)
	mux.HandleFunc("GET /api/v1/cache/stats", h.CacheStats)
	mux.HandleFunc("POST /api/v1/cache/invalidate", h.CacheInvalidate)
}

// Lookup handles GET /api/v1/lookup?q=&min=&limit=.
func (h *Handler) Lookup(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	log := logger.FromContext(ctx)

	query := r.URL.Query().Get("q")
	if query == "" {
		h.writeError(w, http.StatusBadRequest, "query parameter 'q' is required")
		return
	}
	minScore := h.cfg.DefaultMinScore
	if v := r.URL.Query().Get("min"); v != "" {
		parsed, err := strconv.ParseFloat(v, 64)
		if err != nil || math.IsNaN(parsed) || math.IsInf(parsed, 0) {
			h.writeError(w, http.StatusBadRequest, "min must be a finite number")
			return
		}
		minScore = parsed
	}
	limit := h.cfg.DefaultLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 1 {
			h.writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = parsed
	}
	if h.cfg.MaxResults > 0 && (limit <= 0 || limit > h.cfg.MaxResults) {
		limit = h.cfg.MaxResults
	}

	cur := h.snapshots.Current()
	if cur == nil {
		h.writeErr(w, executor.ErrNoSnapshot)
		return
	}

	ctx, span := tracing.Start(ctx, "lookup")
	defer span.Log(ctx, log)
	span.Set("query", query, "snapshot", cur.Info.Fingerprint)

	compute := func() (*executor.LookupResult, error) {
		_, execSpan := tracing.Start(ctx, "execute")
		defer execSpan.End()
		res, err := cur.Lookup(ctx, query, minScore, limit)
		if err == nil {
			execSpan.Set("candidates", res.Candidates, "total_matches", res.TotalMatches)
		}
		return res, err
	}

	var result *executor.LookupResult
	var err error
	cacheHit := false
	if h.cache != nil {
		_, cacheSpan := tracing.Start(ctx, "cache")
		req := cache.Request{Snapshot: cur.Info.Fingerprint, Query: query, MinScore: minScore, Limit: limit}
		result, cacheHit, err = h.cache.GetOrCompute(ctx, req, compute)
		cacheSpan.Set("hit", cacheHit)
		cacheSpan.End()
	} else {
		result, err = compute()
	}
	if err != nil {
		log.Error("lookup failed", "query", query, "error", err)
		h.writeErr(w, err)
		return
	}
	// Results can be shared with other callers; cached ones may come from a
	// query differing in case or spacing.
	out := *result
	out.Query = query

	latency := time.Since(start)
	if h.tracker != nil {
		h.tracker.Track(analytics.LookupEvent{
			Query:        query,
			MinScore:     minScore,
			TotalMatches: result.TotalMatches,
			Returned:     len(result.Matches),
			Candidates:   result.Candidates,
			LatencyMs:    float64(latency.Microseconds()) / 1000,
			CacheHit:     cacheHit,
			Snapshot:     result.Snapshot,
			Timestamp:    start.UTC(),
			RequestID:    logger.RequestID(ctx),
		})
	}
	log.Info("lookup completed",
		"query", query,
		"min_score", minScore,
		"total_matches", result.TotalMatches,
		"returned", len(result.Matches),
		"cache_hit", cacheHit,
		"latency_ms", latency.Milliseconds(),
	)
	h.writeJSON(w, http.StatusOK, &out)
}

// Neighbors handles GET /api/v1/neighbors?token=, listing the tokens the
// served dictionary considers near duplicates of token.
func (h *Handler) Neighbors(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		h.writeError(w, http.StatusBadRequest, "query parameter 'token' is required")
		return
	}
	cur := h.snapshots.Current()
	if cur == nil {
		h.writeErr(w, executor.ErrNoSnapshot)
		return
	}
	neighbors := cur.Dict.NearDuplicates(token)
	if neighbors == nil {
		neighbors = []string{}
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"token":     token,
		"neighbors": neighbors,
	})
}

// Snapshot handles GET /api/v1/snapshot.
func (h *Handler) Snapshot(w http.ResponseWriter, r *http.Request) {
	cur := h.snapshots.Current()
	if cur == nil {
		h.writeErr(w, executor.ErrNoSnapshot)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"snapshot":  cur.Info,
		"loaded_at": cur.LoadedAt.UTC().Format(time.RFC3339),
		"config":    cur.Dict.Config(),
	})
}

// Reload handles POST /api/v1/reload by restoring the snapshot file again.
func (h *Handler) Reload(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())
	info, err := h.snapshots.Load(h.snapshotPath)
	if err != nil {
		log.Error("reload failed", "path", h.snapshotPath, "error", err)
		if errors.Is(err, os.ErrNotExist) {
			h.writeError(w, http.StatusNotFound, "snapshot file not found")
			return
		}
		h.writeErr(w, err)
		return
	}
	log.Info("snapshot reloaded", "fingerprint", info.Fingerprint, "keys", info.Keys)
	h.writeJSON(w, http.StatusOK, info)
}

func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeJSON(w, http.StatusOK, map[string]string{"status": "disabled"})
		return
	}
	hits, misses := h.cache.Stats()
	total := hits + misses
	var hitRate float64
	if total > 0 {
		hitRate = float64(hits) / float64(total) * 100
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"hits":     hits,
		"misses":   misses,
		"total":    total,
		"hit_rate": strconv.FormatFloat(hitRate, 'f', 1, 64) + "%",
		"breaker":  h.cache.Breaker().String(),
	})
}

func (h *Handler) CacheInvalidate(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeError(w, http.StatusServiceUnavailable, "caching is disabled")
		return
	}
	deleted, err := h.cache.Invalidate(r.Context())
	if err != nil {
		h.logger.Error("cache invalidation failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, "cache invalidation failed")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"status": "invalidated", "deleted": deleted})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}

// writeErr maps err to a status with apperrors.HTTPStatusCode. AppError
// messages are shown to the caller; other errors are not.
func (h *Handler) writeErr(w http.ResponseWriter, err error) {
	status := apperrors.HTTPStatusCode(err)
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		h.writeError(w, status, appErr.Message)
		return
	}
	h.writeError(w, status, http.StatusText(status))
}
