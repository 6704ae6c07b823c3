package source

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/softdict/internal/ingestion"
	"github.com/Adithya-Monish-Kumar-K/softdict/pkg/postgres"
)

type pair struct{ alias, value string }

func collect(t *testing.T, src Source) []pair {
	t.Helper()
	var got []pair
	_, err := src.Load(context.Background(), func(alias, value string) error {
		got = append(got, pair{alias, value})
		return nil
	})
	require.NoError(t, err)
	return got
}

func TestFileSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "aliases.tsv")
	require.NoError(t, os.WriteFile(path, []byte("C1\tacme inc\tacme corp\n\nC2\tglobex\n"), 0o644))

	src := File{Path: path}
	assert.Equal(t, "file:"+path, src.Name())
	assert.Equal(t, []pair{{"acme inc", "C1"}, {"acme corp", "C1"}, {"globex", "C2"}}, collect(t, src))

	_, err := File{Path: filepath.Join(t.TempDir(), "missing")}.Load(context.Background(), func(string, string) error { return nil })
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestFileSourceStopsOnCancel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "aliases.tsv")
	require.NoError(t, os.WriteFile(path, []byte("C1\tacme\n"), 0o644))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := File{Path: path}.Load(ctx, func(string, string) error { return nil })
	assert.ErrorIs(t, err, context.Canceled)
}

func newMockSource(t *testing.T) (*Postgres, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewPostgres(postgres.NewFromDB(db), "aliases"), mock
}

func TestPostgresLoad(t *testing.T) {
	src, mock := newMockSource(t)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT alias, value FROM "aliases" ORDER BY alias, value`)).
		WillReturnRows(sqlmock.NewRows([]string{"alias", "value"}).
			AddRow("acme inc", "C1").
			AddRow("globex", "C2"))

	assert.Equal(t, []pair{{"acme inc", "C1"}, {"globex", "C2"}}, collect(t, src))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresLoadQueryError(t *testing.T) {
	src, mock := newMockSource(t)
	mock.ExpectQuery("SELECT alias, value").WillReturnError(errors.New("relation does not exist"))
	_, err := src.Load(context.Background(), func(string, string) error { return nil })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "querying aliases")
}

func TestPostgresApply(t *testing.T) {
	src, mock := newMockSource(t)
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "aliases" (alias, value)`)).
		WithArgs("acme inc", "C1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "aliases" WHERE alias = $1 AND value = $2`)).
		WithArgs("globex", "C2").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	err := src.Apply(context.Background(), []ingestion.AliasEvent{
		{Op: ingestion.OpUpsert, Alias: "acme inc", Value: "C1"},
		{Op: ingestion.OpDelete, Alias: "globex", Value: "C2"},
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresApplyRollsBack(t *testing.T) {
	src, mock := newMockSource(t)
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO").WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	err := src.Apply(context.Background(), []ingestion.AliasEvent{{Op: ingestion.OpUpsert, Alias: "a", Value: "b"}})
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
