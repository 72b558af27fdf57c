package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"adsb_snapshot/internal/filter"
	"adsb_snapshot/internal/metrics"
	"adsb_snapshot/internal/view"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockPresenter records the criteria it was asked for
type mockPresenter struct {
	view     *view.View
	err      error
	criteria []filter.Criteria
}

func (m *mockPresenter) Present(ctx context.Context, c filter.Criteria) (*view.View, error) {
	m.criteria = append(m.criteria, c)
	return m.view, m.err
}

type mockClock struct {
	last time.Time
	err  error
}

func (m *mockClock) LastUpdated(ctx context.Context) (time.Time, error) {
	return m.last, m.err
}

type mockPinger struct {
	err error
}

func (m *mockPinger) Ping(ctx context.Context) error {
	return m.err
}

func sampleView() *view.View {
	alt := 3000
	return &view.View{
		Stats:    view.Stats{Total: 2, WithPosition: 1, Filtered: 1, FilteredWithPosition: 1, SnapshotID: "snap-1"},
		Geofence: filter.Geofence{MinLat: 36.8, MaxLat: 42.2, MinLon: -9.6, MaxLon: -6.1},
		Aircraft: []view.Aircraft{{Hex: "abc123", Flight: "TAP123", Altitude: &alt, InAirspace: true}},
	}
}

func get(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestParseBool(t *testing.T) {
	for _, s := range []string{"1", "true", "TRUE", "Yes", "on", " on "} {
		assert.True(t, parseBool(s), s)
	}
	for _, s := range []string{"", "0", "false", "no", "off", "y", "2"} {
		assert.False(t, parseBool(s), s)
	}
}

func TestHandleAircraft(t *testing.T) {
	presenter := &mockPresenter{view: sampleView()}
	s := NewServer(Config{RefreshAfter: 10 * time.Second}, presenter, nil, nil, metrics.New())

	rec := get(t, s.Handler(), "/api/aircraft?airspace=yes&destination=%20tap%20")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	require.Len(t, presenter.criteria, 1)
	assert.Equal(t, filter.Criteria{AirspaceOnly: true, Destination: "tap"}, presenter.criteria[0])

	var body struct {
		Status string `json:"status"`
		Data   struct {
			Stats struct {
				Total      int    `json:"total"`
				Filtered   int    `json:"filtered"`
				Stale      bool   `json:"stale"`
				SnapshotID string `json:"snapshot_id"`
			} `json:"stats"`
			Aircraft []struct {
				Hex      string `json:"hex"`
				Flight   string `json:"flight"`
				Altitude *int   `json:"altitude"`
			} `json:"aircraft"`
			Filters struct {
				Airspace    bool   `json:"airspace"`
				Destination string `json:"destination"`
			} `json:"filters"`
			RefreshAfterSeconds int `json:"refresh_after_seconds"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))

	assert.Equal(t, "success", body.Status)
	assert.Equal(t, 2, body.Data.Stats.Total)
	assert.Equal(t, 1, body.Data.Stats.Filtered)
	assert.Equal(t, "snap-1", body.Data.Stats.SnapshotID)
	require.Len(t, body.Data.Aircraft, 1)
	assert.Equal(t, "TAP123", body.Data.Aircraft[0].Flight)
	require.NotNil(t, body.Data.Aircraft[0].Altitude)
	assert.Equal(t, 3000, *body.Data.Aircraft[0].Altitude)
	assert.True(t, body.Data.Filters.Airspace)
	assert.Equal(t, "tap", body.Data.Filters.Destination)
	assert.Equal(t, 10, body.Data.RefreshAfterSeconds)
}

func TestHandleAircraft_DestAlias(t *testing.T) {
	presenter := &mockPresenter{view: sampleView()}
	s := NewServer(Config{}, presenter, nil, nil, nil)

	get(t, s.Handler(), "/api/aircraft?dest=KLM")
	get(t, s.Handler(), "/api/aircraft?destination=TAP&dest=KLM")
	get(t, s.Handler(), "/api/aircraft?airspace=maybe")

	require.Len(t, presenter.criteria, 3)
	assert.Equal(t, filter.Criteria{Destination: "KLM"}, presenter.criteria[0])
	assert.Equal(t, filter.Criteria{Destination: "TAP"}, presenter.criteria[1])
	assert.Equal(t, filter.Criteria{}, presenter.criteria[2])
}

func TestHandleAircraft_PresenterError(t *testing.T) {
	s := NewServer(Config{}, &mockPresenter{err: errors.New("database is locked")}, nil, nil, nil)

	rec := get(t, s.Handler(), "/api/aircraft")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"error"`)
	assert.NotContains(t, rec.Body.String(), "database is locked")
}

func TestHandleHealth(t *testing.T) {
	last := time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)

	t.Run("healthy", func(t *testing.T) {
		s := NewServer(Config{}, &mockPresenter{}, &mockClock{last: last}, &mockPinger{}, nil)
		rec := get(t, s.Handler(), "/healthz")
		require.Equal(t, http.StatusOK, rec.Code)

		var body APIResponse[HealthResponse]
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		require.NotNil(t, body.Data)
		assert.Equal(t, "ok", body.Data.Status)
		assert.Equal(t, "ok", body.Data.Database)
		require.NotNil(t, body.Data.LastUpdate)
		assert.True(t, last.Equal(*body.Data.LastUpdate))
	})

	t.Run("no snapshot yet", func(t *testing.T) {
		s := NewServer(Config{}, &mockPresenter{}, &mockClock{}, nil, nil)
		rec := get(t, s.Handler(), "/healthz")
		require.Equal(t, http.StatusOK, rec.Code)

		var body APIResponse[HealthResponse]
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "not configured", body.Data.Database)
		assert.Nil(t, body.Data.LastUpdate)
	})

	t.Run("database down", func(t *testing.T) {
		s := NewServer(Config{}, &mockPresenter{}, &mockClock{}, &mockPinger{err: errors.New("closed")}, nil)
		rec := get(t, s.Handler(), "/healthz")
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		assert.Contains(t, rec.Body.String(), `"database":"down"`)
	})
}

func TestRateLimit(t *testing.T) {
	s := NewServer(Config{RateLimit: 0.001, RateBurst: 2}, &mockPresenter{view: sampleView()}, nil, nil, nil)

	assert.Equal(t, http.StatusOK, get(t, s.Handler(), "/api/aircraft").Code)
	assert.Equal(t, http.StatusOK, get(t, s.Handler(), "/api/aircraft").Code)
	assert.Equal(t, http.StatusTooManyRequests, get(t, s.Handler(), "/api/aircraft").Code)

	// Other clients and the health check are not affected
	req := httptest.NewRequest(http.MethodGet, "/api/aircraft", nil)
	req.RemoteAddr = "198.51.100.7:4711"
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, http.StatusOK, get(t, s.Handler(), "/healthz").Code)
}

func TestMetricsEndpointAndMiddleware(t *testing.T) {
	m := metrics.New()
	s := NewServer(Config{}, &mockPresenter{view: sampleView()}, nil, nil, m)

	get(t, s.Handler(), "/api/aircraft")
	get(t, s.Handler(), "/api/aircraft?airspace=1")
	get(t, s.Handler(), "/nope")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("/api/aircraft", "GET", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("unknown", "GET", "404")))

	rec := get(t, s.Handler(), "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "adsb_snapshot_http_requests_total"))
}

func TestCORS(t *testing.T) {
	s := NewServer(Config{CORSOrigins: []string{"http://localhost:3000"}}, &mockPresenter{view: sampleView()}, nil, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/aircraft", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestListenAndServe_StopsOnCancel(t *testing.T) {
	s := NewServer(Config{Addr: "127.0.0.1:0"}, &mockPresenter{view: sampleView()}, nil, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.ListenAndServe(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Server did not shut down")
	}
}
