// Package view builds the filtered, annotated picture of the airspace that the
// presentation endpoint serves.
package view

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"adsb_snapshot/internal/airlines"
	"adsb_snapshot/internal/filter"
	"adsb_snapshot/internal/models"
	"adsb_snapshot/internal/store"
)

// Refresher brings the store up to date and returns what it holds
type Refresher interface {
	RefreshAndRead(ctx context.Context) (store.Current, bool, error)
}

// RegistryLookup resolves airframe details by ICAO address
type RegistryLookup interface {
	LookupMany(ctx context.Context, icaos []string) (map[string]models.RegistryEntry, error)
}

// Stats summarizes the stored snapshot and the filtered result
type Stats struct {
	Total                int        `json:"total"`
	WithPosition         int        `json:"with_position"`
	Filtered             int        `json:"filtered"`
	FilteredWithPosition int        `json:"filtered_with_position"`
	LastUpdate           *time.Time `json:"last_update"`
	Stale                bool       `json:"stale"`
	SnapshotID           string     `json:"snapshot_id,omitempty"`
}

// Aircraft is one record prepared for display
type Aircraft struct {
	Hex            string   `json:"hex"`
	Flight         string   `json:"flight,omitempty"`
	Lat            *float64 `json:"lat,omitempty"`
	Lon            *float64 `json:"lon,omitempty"`
	Altitude       *int     `json:"altitude"` // nil when unknown
	GroundSpeed    *float64 `json:"gs,omitempty"`
	Track          *float64 `json:"track,omitempty"`
	InAirspace     bool     `json:"in_airspace"`
	AirlineCountry string   `json:"airline_country,omitempty"`
	Registration   string   `json:"registration,omitempty"`
	TypeCode       string   `json:"type_code,omitempty"`
	Operator       string   `json:"operator,omitempty"`
}

type View struct {
	Stats    Stats           `json:"stats"`
	Criteria filter.Criteria `json:"-"`
	Geofence filter.Geofence `json:"geofence"`
	Aircraft []Aircraft      `json:"aircraft"`
}

type Service struct {
	refresher Refresher
	filter    *filter.Filter
	airlines  *airlines.Table
	registry  RegistryLookup
}

// NewService creates the orchestrator. airlineTable and registry may be nil.
func NewService(refresher Refresher, f *filter.Filter, airlineTable *airlines.Table, registry RegistryLookup) *Service {
	return &Service{
		refresher: refresher,
		filter:    f,
		airlines:  airlineTable,
		registry:  registry,
	}
}

// Present refreshes the snapshot, then filters and annotates whatever the store holds.
// A failed refresh only marks the view stale; the error returned is a store read failure.
func (s *Service) Present(ctx context.Context, c filter.Criteria) (*View, error) {
	cur, fresh, err := s.refresher.RefreshAndRead(ctx)
	if err != nil {
		return nil, err
	}

	filtered := s.filter.Apply(cur.Records, c)

	stats := Stats{
		Total:                len(cur.Records),
		WithPosition:         models.CountWithPosition(cur.Records),
		Filtered:             len(filtered),
		FilteredWithPosition: models.CountWithPosition(filtered),
		Stale:                !fresh,
		SnapshotID:           cur.SnapshotID,
	}
	if !cur.FetchedAt.IsZero() {
		t := cur.FetchedAt
		stats.LastUpdate = &t
	}

	slog.Debug("Presenting aircraft",
		"total", stats.Total,
		"filtered", stats.Filtered,
		"airspace_only", c.AirspaceOnly,
		"destination", c.Destination,
		"stale", stats.Stale,
	)

	return &View{
		Stats:    stats,
		Criteria: c,
		Geofence: s.filter.Geofence(),
		Aircraft: s.annotate(ctx, filtered),
	}, nil
}

func (s *Service) annotate(ctx context.Context, records []models.AircraftRecord) []Aircraft {
	registry := s.lookupRegistry(ctx, records)
	airborne := filter.Criteria{AirspaceOnly: true}

	out := make([]Aircraft, len(records))
	for i := range records {
		rec := &records[i]
		a := Aircraft{
			Hex:         rec.Hex,
			Flight:      rec.FlightID(),
			Lat:         rec.Lat,
			Lon:         rec.Lon,
			GroundSpeed: rec.GroundSpeed,
			Track:       rec.Track,
			InAirspace:  s.filter.Match(rec, airborne),
		}
		if feet, ok := models.ResolveAltitude(rec); ok {
			a.Altitude = &feet
		}
		if country, ok := s.airlines.Country(a.Flight); ok {
			a.AirlineCountry = country
		}
		if e, ok := registry[strings.ToLower(strings.TrimSpace(rec.Hex))]; ok {
			a.Registration = e.Registration
			a.TypeCode = e.TypeCode
			a.Operator = e.Operator
		}
		out[i] = a
	}
	return out
}

// lookupRegistry is best effort: a failed lookup only drops the registry columns
func (s *Service) lookupRegistry(ctx context.Context, records []models.AircraftRecord) map[string]models.RegistryEntry {
	if s.registry == nil || len(records) == 0 {
		return nil
	}

	icaos := make([]string, len(records))
	for i := range records {
		icaos[i] = records[i].Hex
	}

	found, err := s.registry.LookupMany(ctx, icaos)
	if err != nil {
		slog.Warn("Aircraft registry lookup failed", "records", len(records), "error", err)
		return nil
	}
	return found
}
