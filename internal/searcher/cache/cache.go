// Package cache stores lookup results in Redis, keyed by the snapshot they
// were computed from, and collapses concurrent misses for the same key.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/cespare/xxhash/v2"
	"golang.org/x/sync/singleflight"

	"github.com/Adithya-Monish-Kumar-K/softdict/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/softdict/pkg/metrics"
	pkgredis "github.com/Adithya-Monish-Kumar-K/softdict/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/softdict/pkg/resilience"
)

const keyPrefix = "lookup:"

// Store is satisfied by pkg/redis.Client.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	FlushByPattern(ctx context.Context, pattern string) (int64, error)
}

// Request identifies one cacheable lookup.
type Request struct {
	Snapshot string
	Query    string
	MinScore float64
	Limit    int
}

type QueryCache struct {
	store   Store
	ttl     time.Duration
	breaker *resilience.CircuitBreaker
	metrics *metrics.Metrics
	group   singleflight.Group
	logger  *slog.Logger
	hits    atomic.Int64
	misses  atomic.Int64
}

// New wraps store. Store calls go through a circuit breaker so a failing
// Redis turns into cache misses instead of slow lookups. m may be nil.
func New(store Store, ttl time.Duration, m *metrics.Metrics) *QueryCache {
	return &QueryCache{
		store:   store,
		ttl:     ttl,
		breaker: resilience.NewCircuitBreaker("redis-cache", resilience.BreakerConfig{}),
		metrics: m,
		logger:  slog.Default().With("component", "query-cache"),
	}
}

func (c *QueryCache) Get(ctx context.Context, req Request) (*executor.LookupResult, bool) {
	key := BuildKey(req)
	var data []byte
	err := c.breaker.Execute(func() error {
		var err error
		data, err = c.store.Get(ctx, key)
		if pkgredis.IsNilError(err) {
			data = nil
			return nil
		}
		return err
	})
	if err != nil || data == nil {
		if err != nil && !errors.Is(err, resilience.ErrCircuitOpen) {
			c.logger.Error("cache get failed", "key", key, "error", err)
		}
		c.miss()
		return nil, false
	}
	var result executor.LookupResult
	if err := json.Unmarshal(data, &result); err != nil {
		c.logger.Error("cache unmarshal failed", "key", key, "error", err)
		c.miss()
		return nil, false
	}
	c.hit()
	return &result, true
}

func (c *QueryCache) Set(ctx context.Context, req Request, result *executor.LookupResult) {
	key := BuildKey(req)
	data, err := json.Marshal(result)
	if err != nil {
		c.logger.Error("cache marshal failed", "key", key, "error", err)
		return
	}
	err = c.breaker.Execute(func() error {
		return c.store.Set(ctx, key, data, c.ttl)
	})
	if err != nil && !errors.Is(err, resilience.ErrCircuitOpen) {
		c.logger.Error("cache set failed", "key", key, "error", err)
	}
}

// GetOrCompute returns the cached result for req, or runs compute once for
// all concurrent callers with the same key and caches its result.
func (c *QueryCache) GetOrCompute(
	ctx context.Context,
	req Request,
	compute func() (*executor.LookupResult, error),
) (*executor.LookupResult, bool, error) {
	if result, ok := c.Get(ctx, req); ok {
		return result, true, nil
	}
	val, err, _ := c.group.Do(BuildKey(req), func() (any, error) {
		result, err := compute()
		if err != nil {
			return nil, err
		}
		c.Set(ctx, req, result)
		return result, nil
	})
	if err != nil {
		return nil, false, err
	}
	return val.(*executor.LookupResult), false, nil
}

// Invalidate deletes every cached lookup.
func (c *QueryCache) Invalidate(ctx context.Context) (int64, error) {
	deleted, err := c.store.FlushByPattern(ctx, keyPrefix+"*")
	if err != nil {
		return deleted, fmt.Errorf("invalidating cache: %w", err)
	}
	c.logger.Info("cache invalidated", "keys_deleted", deleted)
	return deleted, nil
}

func (c *QueryCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

// Breaker reports the state of the store circuit breaker.
func (c *QueryCache) Breaker() resilience.State {
	return c.breaker.State()
}

func (c *QueryCache) hit() {
	c.hits.Add(1)
	if c.metrics != nil {
		c.metrics.CacheHitsTotal.Inc()
	}
}

func (c *QueryCache) miss() {
	c.misses.Add(1)
	if c.metrics != nil {
		c.metrics.CacheMissesTotal.Inc()
	}
}

// BuildKey is lookup:<snapshot>:<hash of query, minScore, limit>. Queries
// differing only in case or surrounding space share a key; every tokenizer
// and distance the service offers folds case.
func BuildKey(req Request) string {
	h := xxhash.New()
	h.WriteString(strings.ToLower(strings.TrimSpace(req.Query)))
	h.WriteString("\x00")
	h.WriteString(strconv.FormatFloat(req.MinScore, 'g', -1, 64))
	h.WriteString("\x00")
	h.WriteString(strconv.Itoa(req.Limit))
	return fmt.Sprintf("%s%s:%016x", keyPrefix, req.Snapshot, h.Sum64())
}
