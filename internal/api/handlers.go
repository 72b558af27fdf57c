package api

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"adsb_snapshot/internal/filter"
	"adsb_snapshot/internal/view"
)

// Presenter builds the aircraft view for a set of criteria
type Presenter interface {
	Present(ctx context.Context, c filter.Criteria) (*view.View, error)
}

// SnapshotClock reports when the stored snapshot was fetched
type SnapshotClock interface {
	LastUpdated(ctx context.Context) (time.Time, error)
}

// Pinger checks that a backing database is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

type filtersResponse struct {
	Airspace    bool   `json:"airspace"`
	Destination string `json:"destination"`
}

// AircraftResponse is the payload of GET /api/aircraft
type AircraftResponse struct {
	*view.View
	Filters             filtersResponse `json:"filters"`
	RefreshAfterSeconds int             `json:"refresh_after_seconds"`
}

// HealthResponse is the payload of GET /healthz
type HealthResponse struct {
	Status     string     `json:"status"`
	Database   string     `json:"database"`
	LastUpdate *time.Time `json:"last_update"`
	Uptime     string     `json:"uptime"`
}

// parseCriteria reads the airspace flag and the destination text from the query string.
// destination may also be given as dest.
func parseCriteria(r *http.Request) filter.Criteria {
	q := r.URL.Query()

	dest := q.Get("destination")
	if dest == "" {
		dest = q.Get("dest")
	}

	return filter.Criteria{
		AirspaceOnly: parseBool(q.Get("airspace")),
		Destination:  strings.TrimSpace(dest),
	}
}

// parseBool accepts 1, true, yes and on in any casing; everything else is false
func parseBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

func (s *Server) handleAircraft(w http.ResponseWriter, r *http.Request) {
	c := parseCriteria(r)

	v, err := s.presenter.Present(r.Context(), c)
	if err != nil {
		slog.Error("Error presenting aircraft", "error", err)
		respondWithError(w, http.StatusInternalServerError, "Failed to read aircraft snapshot")
		return
	}

	respondWithSuccess(w, http.StatusOK, &AircraftResponse{
		View:                v,
		Filters:             filtersResponse{Airspace: c.AirspaceOnly, Destination: c.Destination},
		RefreshAfterSeconds: int(s.cfg.RefreshAfter.Seconds()),
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status:   "ok",
		Database: "not configured",
		Uptime:   time.Since(s.upSince).Round(time.Second).String(),
	}

	if s.pinger != nil {
		resp.Database = "ok"
		if err := s.pinger.Ping(r.Context()); err != nil {
			slog.Warn("Database ping failed", "error", err)
			resp.Database = "down"
			resp.Status = "down"
		}
	}

	if s.clock != nil {
		last, err := s.clock.LastUpdated(r.Context())
		switch {
		case err != nil:
			slog.Warn("Error reading last snapshot time", "error", err)
			resp.Status = "down"
		case !last.IsZero():
			resp.LastUpdate = &last
		}
	}

	status := http.StatusOK
	if resp.Status != "ok" {
		status = http.StatusServiceUnavailable
	}
	respondWithSuccess(w, status, &resp)
}
