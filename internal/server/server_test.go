// internal/server/server_test.go
package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/markb/sqlstep/internal/ledger"
	"github.com/markb/sqlstep/internal/runner"
)

type fakeReporter struct {
	status runner.Status
	runs   []ledger.Run
	err    error
}

func (f *fakeReporter) Status(ctx context.Context) (runner.Status, error) {
	return f.status, f.err
}

func (f *fakeReporter) History(ctx context.Context) ([]ledger.Run, error) {
	return f.runs, f.err
}

func newTestServer(reporter Reporter) *Server {
	return New(reporter, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func get(t *testing.T, srv *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest("GET", path, nil)
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)
	return w
}

func TestHealthz(t *testing.T) {
	w := get(t, newTestServer(&fakeReporter{}), "/healthz")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestStatusEndpoint(t *testing.T) {
	applied := time.UnixMilli(1700000000000)
	reporter := &fakeReporter{
		status: runner.Status{
			Current: 1,
			Latest:  3,
			Applied: []ledger.Entry{
				{Version: 1, Name: "create_users", AppliedAt: applied},
			},
		},
	}

	w := get(t, newTestServer(reporter), "/v1/status")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Current int `json:"current"`
		Latest  int `json:"latest"`
		Pending int `json:"pending"`
		Applied []struct {
			Version   int    `json:"version"`
			Name      string `json:"name"`
			AppliedAt string `json:"applied_at"`
		} `json:"applied"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	assert.Equal(t, 1, resp.Current)
	assert.Equal(t, 3, resp.Latest)
	assert.Equal(t, 2, resp.Pending)
	require.Len(t, resp.Applied, 1)
	assert.Equal(t, "create_users", resp.Applied[0].Name)
	assert.Equal(t, applied.UTC().Format(time.RFC3339), resp.Applied[0].AppliedAt)
}

func TestStatusEndpointEmptyLedger(t *testing.T) {
	w := get(t, newTestServer(&fakeReporter{status: runner.Status{Latest: 2}}), "/v1/status")
	require.Equal(t, http.StatusOK, w.Code)
	// Applied must serialize as [], not null.
	assert.Contains(t, w.Body.String(), `"applied":[]`)
}

func TestStatusEndpointError(t *testing.T) {
	reporter := &fakeReporter{err: errors.New("ledger unreadable")}
	w := get(t, newTestServer(reporter), "/v1/status")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "ledger unreadable")
}

func TestHistoryEndpoint(t *testing.T) {
	reporter := &fakeReporter{
		runs: []ledger.Run{
			{ID: "run-1", Version: 1, Direction: "up", OK: true, RanAt: time.UnixMilli(1700000000000)},
			{ID: "run-2", Version: 2, Direction: "up", OK: false, Error: "syntax error", RanAt: time.UnixMilli(1700000001000)},
		},
	}

	w := get(t, newTestServer(reporter), "/v1/history")
	require.Equal(t, http.StatusOK, w.Code)

	var resp []struct {
		ID    string `json:"id"`
		OK    bool   `json:"ok"`
		Error string `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp, 2)
	assert.True(t, resp[0].OK)
	assert.False(t, resp[1].OK)
	assert.Equal(t, "syntax error", resp[1].Error)
}
