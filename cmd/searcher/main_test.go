package main

import (
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/softdict/internal/indexer/snapshot"
	"github.com/Adithya-Monish-Kumar-K/softdict/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/softdict/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/softdict/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/softdict/pkg/softdict"
)

func TestRestoredSnapshotUsesConfiguredBoundMerge(t *testing.T) {
	d, err := softdict.New(softdict.DefaultConfig())
	require.NoError(t, err)
	require.NoError(t, d.Put("acme inc", "C1"))
	path := filepath.Join(t.TempDir(), "dict.sdct")
	_, err = snapshot.Write(d, path)
	require.NoError(t, err)

	for _, merge := range []softdict.BoundMerge{softdict.MergeOverwrite, softdict.MergeMax, softdict.MergeSum} {
		cfg := config.Default()
		cfg.Dictionary.BoundMerge = merge
		exec, err := executor.New(cfg.Search, restoreOptions(cfg, metrics.New(prometheus.NewRegistry()))...)
		require.NoError(t, err)
		_, err = exec.Load(path)
		require.NoError(t, err)
		assert.Equal(t, merge, exec.Current().Dict.Config().BoundMerge)
	}
}
