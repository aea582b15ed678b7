package server

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"condor-screener/internal/analysis/condor"
	"condor-screener/internal/config"
	"condor-screener/internal/models"
	"condor-screener/internal/provider"
	"condor-screener/internal/store"
)

func writeFixture(t *testing.T, dir string) {
	t.Helper()
	f, n := models.Float64, models.Int64
	contract := func(kind string, strike, bid float64) provider.SnapshotContract {
		return provider.SnapshotContract{
			Expiration: "2024-06-21", Type: kind, Strike: f(strike),
			Bid: f(bid), Ask: f(bid + 0.10), Volume: n(10), OpenInterest: n(100),
		}
	}
	_, err := provider.SaveSnapshot(dir, &provider.Snapshot{
		Symbol: "SPY",
		Spot:   97,
		Contracts: []provider.SnapshotContract{
			contract("call", 100, 1.00),
			contract("call", 105, 0.50),
			contract("put", 90, 0.40),
			contract("put", 85, 0.20),
		},
	})
	require.NoError(t, err)
}

func newTestServer(t *testing.T, history store.HistoryStore) *Server {
	t.Helper()
	dir := t.TempDir()
	writeFixture(t, dir)

	logger := zerolog.Nop()
	return New(Config{
		Logger:   logger,
		Scanner:  condor.NewScanner(provider.NewFileProvider(dir), logger, 2),
		Screener: config.Default().Screener,
		History:  history,
		Now: func() time.Time {
			return time.Date(2024, 6, 11, 14, 0, 0, 0, time.UTC)
		},
	})
}

func get(t *testing.T, srv *Server, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestHealthAndReady(t *testing.T) {
	srv := newTestServer(t, nil)

	assert.Equal(t, http.StatusOK, get(t, srv, "/health").Code)
	assert.Equal(t, http.StatusServiceUnavailable, get(t, srv, "/ready").Code)

	srv.Health().SetReady(true)
	rec := get(t, srv, "/ready")
	assert.Equal(t, http.StatusOK, rec.Code)

	var body HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ready", body.Status)
}

func TestMetricsEndpoint(t *testing.T) {
	rec := get(t, newTestServer(t, nil), "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHandleCondors(t *testing.T) {
	srv := newTestServer(t, nil)

	rec := get(t, srv, "/api/v1/condors/spy?max_days=14&criteria=probability")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var res condor.ScanResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, "SPY", res.Symbol)
	assert.Equal(t, 97.0, res.SpotPrice)
	require.Len(t, res.Condors, 1)
	assert.InDelta(t, 0.70, res.Condors[0].NetCredit, 1e-9)
	assert.Equal(t, 10, res.Condors[0].DaysToExpiration)
}

func TestHandleCondors_AsOfOverride(t *testing.T) {
	srv := newTestServer(t, nil)

	// Evaluated the day after expiration there is nothing left to screen.
	rec := get(t, srv, "/api/v1/condors/SPY?as_of=2024-06-22")
	require.Equal(t, http.StatusOK, rec.Code)

	var res condor.ScanResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Empty(t, res.Condors)
}

func TestHandleCondors_Errors(t *testing.T) {
	srv := newTestServer(t, nil)

	tests := []struct {
		name   string
		target string
		status int
		field  string
	}{
		{"bad number", "/api/v1/condors/SPY?max_risk=lots", http.StatusBadRequest, "max_risk"},
		{"bad criteria", "/api/v1/condors/SPY?criteria=theta", http.StatusBadRequest, "rank_key"},
		{"bad window", "/api/v1/condors/SPY?window=middle", http.StatusBadRequest, "window"},
		{"bad max days", "/api/v1/condors/SPY?max_days=0", http.StatusBadRequest, "max_days"},
		{"bad as_of", "/api/v1/condors/SPY?as_of=yesterday", http.StatusBadRequest, "as_of"},
		{"unknown symbol", "/api/v1/condors/QQQ", http.StatusNotFound, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := get(t, srv, tt.target)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())

			var body ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.NotEmpty(t, body.Error)
			assert.Equal(t, tt.field, body.Field)
		})
	}
}

func TestHistoryRoutes(t *testing.T) {
	history, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	defer history.Close()

	srv := newTestServer(t, history)
	require.Equal(t, http.StatusOK, get(t, srv, "/api/v1/condors/SPY?max_days=14").Code)

	rec := get(t, srv, "/api/v1/scans?symbol=spy")
	require.Equal(t, http.StatusOK, rec.Code)
	var scans []store.ScanRecord
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &scans))
	require.Len(t, scans, 1)
	assert.Equal(t, 1, scans[0].Selected)
	assert.Equal(t, 14, scans[0].MaxDays)

	rec = get(t, srv, "/api/v1/scans/"+scans[0].ID)
	require.Equal(t, http.StatusOK, rec.Code)
	var scan store.ScanRecord
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &scan))
	require.Len(t, scan.Condors, 1)
	assert.Equal(t, models.CallSpread{Sell: 100, Buy: 105}, scan.Condors[0].CallSpread)

	assert.Equal(t, http.StatusNotFound, get(t, srv, "/api/v1/scans/missing").Code)
	assert.Equal(t, http.StatusBadRequest, get(t, srv, "/api/v1/scans?limit=-1").Code)
}

func TestHistoryRoutesDisabled(t *testing.T) {
	srv := newTestServer(t, nil)
	assert.Equal(t, http.StatusNotFound, get(t, srv, "/api/v1/scans").Code)
}
