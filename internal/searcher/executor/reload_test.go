package executor

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/softdict/internal/indexer/snapshot"
	"github.com/Adithya-Monish-Kumar-K/softdict/internal/ingestion"
	"github.com/Adithya-Monish-Kumar-K/softdict/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/softdict/pkg/metrics"
)

func announce(t *testing.T, ev ingestion.SnapshotEvent) []byte {
	t.Helper()
	b, err := json.Marshal(ev)
	require.NoError(t, err)
	return b
}

func TestHandleSnapshotEvent(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	e, err := New(config.SearchConfig{})
	require.NoError(t, err)
	path := writeSnapshot(t, "acme inc", "C1", "globex", "C2")
	fp, _, err := snapshot.Fingerprint(path)
	require.NoError(t, err)

	handle := HandleSnapshotEvent(e, path, m)
	ev := ingestion.SnapshotEvent{Version: 1, Path: "/elsewhere/dict.sdct", Fingerprint: fp, Keys: 2}

	require.NoError(t, handle(context.Background(), nil, announce(t, ev)))
	require.NotNil(t, e.Current())
	assert.Equal(t, fp, e.Current().Info.Fingerprint)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SnapshotsTotal.WithLabelValues("loaded")))

	loaded := e.Current()
	require.NoError(t, handle(context.Background(), nil, announce(t, ev)))
	assert.Same(t, loaded, e.Current())
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SnapshotsTotal.WithLabelValues("skipped")))
}

func TestHandleSnapshotEventFailuresAreSkipped(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	e, err := New(config.SearchConfig{})
	require.NoError(t, err)
	handle := HandleSnapshotEvent(e, t.TempDir()+"/missing.sdct", m)

	require.NoError(t, handle(context.Background(), []byte("k"), []byte("{not json")))
	require.NoError(t, handle(context.Background(), nil, announce(t, ingestion.SnapshotEvent{Version: 2, Fingerprint: "abc"})))
	assert.Nil(t, e.Current())
	assert.Equal(t, 2.0, testutil.ToFloat64(m.SnapshotsTotal.WithLabelValues("load_error")))
}
