// Package consumer feeds alias events from Kafka into the indexer engine.
package consumer

import (
	"context"
	"errors"
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/softdict/internal/ingestion"
	"github.com/Adithya-Monish-Kumar-K/softdict/internal/ingestion/validator"
	"github.com/Adithya-Monish-Kumar-K/softdict/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/softdict/pkg/metrics"
)

// Stager is satisfied by indexer.Engine.
type Stager interface {
	Apply(ev ingestion.AliasEvent) bool
}

// HandleMessage returns a MessageHandler that validates each AliasEvent and
// stages it. Undecodable or invalid events are counted and skipped so they
// do not block the partition. m may be nil.
func HandleMessage(stager Stager, m *metrics.Metrics) kafka.MessageHandler {
	logger := slog.Default().With("component", "alias-consumer")
	count := func(status string) {
		if m != nil {
			m.AliasEventsTotal.WithLabelValues(status).Inc()
		}
	}
	return func(ctx context.Context, key []byte, value []byte) error {
		ev, err := kafka.DecodeJSON[ingestion.AliasEvent](value)
		if err != nil {
			logger.Error("failed to decode alias event", "error", err, "key", string(key))
			count("invalid")
			return nil
		}
		if err := validator.ValidateAliasEvent(&ev); err != nil {
			var verr *validator.ValidationError
			if errors.As(err, &verr) {
				logger.Warn("rejected alias event", "key", string(key), "fields", verr.Fields)
			}
			count("invalid")
			return nil
		}
		changed := stager.Apply(ev)
		logger.Debug("alias event staged",
			"op", ev.Op,
			"alias", ev.Alias,
			"changed", changed,
			"request_id", ev.RequestID,
		)
		if changed {
			count("applied")
		} else {
			count("noop")
		}
		return nil
	}
}
