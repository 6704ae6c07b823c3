package executor

import (
	"context"
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/softdict/internal/ingestion"
	"github.com/Adithya-Monish-Kumar-K/softdict/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/softdict/pkg/metrics"
)

// HandleSnapshotEvent returns a MessageHandler that reloads path whenever
// the indexer announces a snapshot this executor is not already serving.
// The announced path is only logged: replicas may mount the snapshot
// directory elsewhere. Failed loads are counted and skipped, the current
// snapshot keeps serving. m may be nil.
func HandleSnapshotEvent(e *Executor, path string, m *metrics.Metrics) kafka.MessageHandler {
	logger := slog.Default().With("component", "snapshot-listener")
	count := func(status string) {
		if m != nil {
			m.SnapshotsTotal.WithLabelValues(status).Inc()
		}
	}
	return func(ctx context.Context, key []byte, value []byte) error {
		ev, err := kafka.DecodeJSON[ingestion.SnapshotEvent](value)
		if err != nil {
			logger.Error("failed to decode snapshot event", "error", err, "key", string(key))
			count("load_error")
			return nil
		}
		if cur := e.Current(); cur != nil && ev.Fingerprint != "" && cur.Info.Fingerprint == ev.Fingerprint {
			logger.Debug("snapshot already served", "version", ev.Version, "fingerprint", ev.Fingerprint)
			count("skipped")
			return nil
		}
		info, err := e.Load(path)
		if err != nil {
			logger.Error("snapshot reload failed", "version", ev.Version, "announced_path", ev.Path, "error", err)
			count("load_error")
			return nil
		}
		if ev.Fingerprint != "" && info.Fingerprint != ev.Fingerprint {
			// A newer snapshot replaced the file before we read it; its own
			// announcement will follow.
			logger.Info("loaded snapshot differs from announcement",
				"announced", ev.Fingerprint, "loaded", info.Fingerprint)
		}
		count("loaded")
		return nil
	}
}
