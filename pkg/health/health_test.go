package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunWorstStatusWins(t *testing.T) {
	c := NewChecker()
	c.Register("dictionary", DictionaryCheck(func() (int, bool) { return 3, true }))
	c.RegisterOptional("redis", PingCheck(func(context.Context) error { return errors.New("refused") }))

	report := c.Run(context.Background())
	assert.Equal(t, StatusDegraded, report.Status)
	assert.Equal(t, StatusUp, report.Components["dictionary"].Status)
	assert.Equal(t, "3 keys", report.Components["dictionary"].Message)
	assert.Equal(t, StatusDegraded, report.Components["redis"].Status)
	assert.Equal(t, "refused", report.Components["redis"].Message)

	c.Register("postgres", PingCheck(func(context.Context) error { return errors.New("timeout") }))
	assert.Equal(t, StatusDown, c.Run(context.Background()).Status)
}

func TestDictionaryCheck(t *testing.T) {
	ctx := context.Background()
	assert.Equal(t, StatusDown, DictionaryCheck(func() (int, bool) { return 0, false })(ctx).Status)
	assert.Equal(t, StatusDegraded, DictionaryCheck(func() (int, bool) { return 0, true })(ctx).Status)
}

func TestReadyHandler(t *testing.T) {
	loaded := false
	c := NewChecker()
	c.Register("dictionary", DictionaryCheck(func() (int, bool) { return 1, loaded }))

	rec := httptest.NewRecorder()
	c.ReadyHandler()(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	loaded = true
	rec = httptest.NewRecorder()
	c.ReadyHandler()(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var report Report
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&report))
	assert.Equal(t, StatusUp, report.Status)
	assert.Contains(t, report.Components, "dictionary")
}

func TestLiveHandler(t *testing.T) {
	rec := httptest.NewRecorder()
	NewChecker().LiveHandler()(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"alive"}`, rec.Body.String())
}
