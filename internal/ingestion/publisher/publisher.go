// Package publisher persists alias changes to the alias store and announces
// them to the indexer over Kafka.
package publisher

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/softdict/internal/ingestion"
	"github.com/Adithya-Monish-Kumar-K/softdict/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/softdict/pkg/logger"
)

// AliasStore is the durable copy of the aliases, e.g. source.Postgres.
type AliasStore interface {
	Apply(ctx context.Context, events []ingestion.AliasEvent) error
}

// EventPublisher is satisfied by kafka.Producer.
type EventPublisher interface {
	PublishBatch(ctx context.Context, events []kafka.Event) error
}

type Publisher struct {
	store    AliasStore
	producer EventPublisher
	now      func() time.Time
	logger   *slog.Logger
}

// New creates a Publisher. Either collaborator may be nil, but not both.
func New(store AliasStore, producer EventPublisher) *Publisher {
	return &Publisher{
		store:    store,
		producer: producer,
		now:      time.Now,
		logger:   slog.Default().With("component", "alias-publisher"),
	}
}

// Ingest stores the request's changes, then publishes one AliasEvent per
// alias keyed by alias, so changes to one alias stay ordered on a partition.
// A publish failure after a successful store is logged and reported in the
// response; the indexer still picks the change up on its next full seed.
func (p *Publisher) Ingest(ctx context.Context, req *ingestion.AliasRequest) (*ingestion.AliasResponse, error) {
	op := req.Op
	if op == "" {
		op = ingestion.OpUpsert
	}
	now := p.now().UTC()
	requestID := logger.RequestID(ctx)
	events := make([]ingestion.AliasEvent, len(req.Aliases))
	for i, a := range req.Aliases {
		events[i] = ingestion.AliasEvent{
			Op:         op,
			Alias:      a.Alias,
			Value:      a.Value,
			RequestID:  requestID,
			OccurredAt: now,
		}
	}

	if p.store != nil {
		if err := p.store.Apply(ctx, events); err != nil {
			return nil, fmt.Errorf("storing aliases: %w", err)
		}
	}

	resp := &ingestion.AliasResponse{Accepted: len(events), Status: "stored"}
	if p.producer == nil {
		return resp, nil
	}
	batch := make([]kafka.Event, len(events))
	for i, ev := range events {
		batch[i] = kafka.Event{Key: ev.Alias, Value: ev}
	}
	if err := p.producer.PublishBatch(ctx, batch); err != nil {
		if p.store == nil {
			return nil, fmt.Errorf("publishing aliases: %w", err)
		}
		p.logger.Error("aliases stored but not published", "count", len(events), "error", err)
		return resp, nil
	}
	resp.Published = true
	resp.Status = "published"
	return resp, nil
}
