package executor

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/softdict/internal/indexer/snapshot"
	"github.com/Adithya-Monish-Kumar-K/softdict/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/softdict/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/softdict/pkg/softdict"
)

func writeSnapshot(t *testing.T, pairs ...string) string {
	t.Helper()
	d, err := softdict.New(softdict.DefaultConfig())
	require.NoError(t, err)
	for i := 0; i+1 < len(pairs); i += 2 {
		require.NoError(t, d.Put(pairs[i], pairs[i+1]))
	}
	path := filepath.Join(t.TempDir(), "dict.sdct")
	_, err = snapshot.Write(d, path)
	require.NoError(t, err)
	return path
}

func TestExecuteBeforeLoad(t *testing.T) {
	e, err := New(config.SearchConfig{})
	require.NoError(t, err)
	_, ok := e.Entries()
	assert.False(t, ok)

	_, err = e.Execute(context.Background(), "acme", 0.5, 10)
	assert.ErrorIs(t, err, apperrors.ErrUnavailable)
	assert.Equal(t, 503, apperrors.HTTPStatusCode(err))
}

func TestExecute(t *testing.T) {
	e, err := New(config.SearchConfig{})
	require.NoError(t, err)
	info, err := e.Load(writeSnapshot(t, "acme inc", "C1", "acme corp", "C2", "globex", "C3"))
	require.NoError(t, err)

	res, err := e.Execute(context.Background(), "acme", 0.1, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, res.TotalMatches)
	require.Len(t, res.Matches, 1)
	assert.Equal(t, info.Fingerprint, res.Snapshot)

	res, err = e.Execute(context.Background(), "zzz", 0.5, 10)
	require.NoError(t, err)
	assert.NotNil(t, res.Matches)
	assert.Empty(t, res.Matches)

	n, ok := e.Entries()
	assert.True(t, ok)
	assert.Equal(t, 3, n)
}

func TestExecuteCancelled(t *testing.T) {
	e, err := New(config.SearchConfig{})
	require.NoError(t, err)
	_, err = e.Load(writeSnapshot(t, "acme", "C1"))
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = e.Execute(ctx, "acme", 0.5, 10)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestLoadSwaps(t *testing.T) {
	e, err := New(config.SearchConfig{})
	require.NoError(t, err)
	_, err = e.Load(writeSnapshot(t, "acme inc", "C1"))
	require.NoError(t, err)
	first := e.Current()

	_, err = e.Load(writeSnapshot(t, "globex corporation", "C2"))
	require.NoError(t, err)
	assert.NotEqual(t, first.Info.Fingerprint, e.Current().Info.Fingerprint)

	res, err := e.Execute(context.Background(), "globex corp", 0.3, 10)
	require.NoError(t, err)
	require.NotEmpty(t, res.Matches)
	assert.Equal(t, "C2", res.Matches[0].Value)

	// A failed load keeps the current snapshot.
	_, err = e.Load(filepath.Join(t.TempDir(), "missing.sdct"))
	require.Error(t, err)
	assert.Equal(t, 1, e.Current().Dict.Len())
}

func TestRescore(t *testing.T) {
	_, err := New(config.SearchConfig{Rescore: "soundex"})
	require.Error(t, err)

	e, err := New(config.SearchConfig{Rescore: "levenshtein", RescoreInnerMinScore: 0.1})
	require.NoError(t, err)
	_, err = e.Load(writeSnapshot(t, "acme inc", "C1"))
	require.NoError(t, err)

	res, err := e.Execute(context.Background(), "acme inc", 0.99, 10)
	require.NoError(t, err)
	require.Len(t, res.Matches, 1)
	assert.Equal(t, 1.0, res.Matches[0].Score)
}
