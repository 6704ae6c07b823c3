package analytics

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Adithya-Monish-Kumar-K/softdict/pkg/kafka"
)

// EventPublisher is satisfied by kafka.Producer.
type EventPublisher interface {
	PublishBatch(ctx context.Context, events []kafka.Event) error
}

type CollectorConfig struct {
	BufferSize    int
	BatchSize     int
	FlushInterval time.Duration
}

// Collector takes lookup events off the request path. Events go to the
// aggregator one by one and to the publisher, when there is one, in
// batches of BatchSize or every FlushInterval.
type Collector struct {
	aggregator *Aggregator
	producer   EventPublisher
	cfg        CollectorConfig
	eventCh    chan LookupEvent
	logger     *slog.Logger

	mu      sync.RWMutex
	closed  bool
	started atomic.Bool
	done    chan struct{}
	dropped atomic.Int64
}

// NewCollector creates a Collector. producer may be nil.
func NewCollector(aggregator *Aggregator, producer EventPublisher, cfg CollectorConfig) *Collector {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 10000
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = 5 * time.Second
	}
	return &Collector{
		aggregator: aggregator,
		producer:   producer,
		cfg:        cfg,
		eventCh:    make(chan LookupEvent, cfg.BufferSize),
		logger:     slog.Default().With("component", "analytics-collector"),
		done:       make(chan struct{}),
	}
}

// Start launches the collection loop. It returns immediately.
func (c *Collector) Start(ctx context.Context) {
	c.started.Store(true)
	go c.run(ctx)
	c.logger.Info("analytics collector started",
		"buffer_size", c.cfg.BufferSize,
		"publishing", c.producer != nil,
	)
}

func (c *Collector) run(ctx context.Context) {
	defer close(c.done)
	ticker := time.NewTicker(c.cfg.FlushInterval)
	defer ticker.Stop()

	batch := make([]kafka.Event, 0, c.cfg.BatchSize)
	flush := func(ctx context.Context) {
		if c.producer == nil || len(batch) == 0 {
			batch = batch[:0]
			return
		}
		if err := c.producer.PublishBatch(ctx, batch); err != nil {
			c.logger.Error("failed to publish lookup events", "count", len(batch), "error", err)
		}
		batch = batch[:0]
	}
	record := func(ev LookupEvent) {
		c.aggregator.Record(ev)
		if c.producer != nil {
			batch = append(batch, kafka.Event{Key: ev.Query, Value: ev})
		}
	}

	for {
		select {
		case ev, ok := <-c.eventCh:
			if !ok {
				flush(context.WithoutCancel(ctx))
				return
			}
			record(ev)
			if len(batch) >= c.cfg.BatchSize {
				flush(ctx)
			}
		case <-ticker.C:
			flush(ctx)
		case <-ctx.Done():
			for drained := false; !drained; {
				select {
				case ev, ok := <-c.eventCh:
					if !ok {
						drained = true
						break
					}
					record(ev)
				default:
					drained = true
				}
			}
			flushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
			flush(flushCtx)
			cancel()
			return
		}
	}
}

// Track queues ev without blocking. Events arriving while the buffer is
// full, or after Close, are dropped.
func (c *Collector) Track(ev LookupEvent) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return
	}
	select {
	case c.eventCh <- ev:
	default:
		if c.dropped.Add(1)%1000 == 1 {
			c.logger.Warn("lookup events dropped (buffer full)", "dropped", c.dropped.Load())
		}
	}
}

// Dropped is the number of events Track discarded.
func (c *Collector) Dropped() int64 {
	return c.dropped.Load()
}

// Close stops accepting events and waits for queued ones to be processed.
func (c *Collector) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.eventCh)
	c.mu.Unlock()
	if c.started.Load() {
		<-c.done
	}
}
