package consumer

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/softdict/internal/ingestion"
	"github.com/Adithya-Monish-Kumar-K/softdict/pkg/metrics"
)

type recorder struct {
	events []ingestion.AliasEvent
}

func (r *recorder) Apply(ev ingestion.AliasEvent) bool {
	for _, seen := range r.events {
		if seen == ev {
			return false
		}
	}
	r.events = append(r.events, ev)
	return true
}

func TestHandleMessage(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	rec := &recorder{}
	h := HandleMessage(rec, m)
	ctx := context.Background()

	valid := []byte(`{"op":"upsert","alias":"acme inc","value":"C1"}`)
	require.NoError(t, h(ctx, []byte("acme inc"), valid))
	require.NoError(t, h(ctx, []byte("acme inc"), valid))
	require.NoError(t, h(ctx, nil, []byte(`{"op":"upsert","alias":"","value":"C1"}`)))
	require.NoError(t, h(ctx, nil, []byte(`garbage`)))

	require.Len(t, rec.events, 1)
	assert.Equal(t, "C1", rec.events[0].Value)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AliasEventsTotal.WithLabelValues("applied")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AliasEventsTotal.WithLabelValues("noop")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.AliasEventsTotal.WithLabelValues("invalid")))
}

func TestHandleMessageWithoutMetrics(t *testing.T) {
	rec := &recorder{}
	err := HandleMessage(rec, nil)(context.Background(), nil, []byte(`{"op":"delete","alias":"acme","value":"C1"}`))
	require.NoError(t, err)
	assert.Equal(t, ingestion.OpDelete, rec.events[0].Op)
}
