package filter

import (
	"strings"

	"adsb_snapshot/internal/models"
)

// Geofence is the bounding box of the monitored airspace. All bounds are inclusive.
type Geofence struct {
	MinLat float64 `json:"min_lat"`
	MaxLat float64 `json:"max_lat"`
	MinLon float64 `json:"min_lon"`
	MaxLon float64 `json:"max_lon"`
}

// Contains reports whether the point lies inside the box or on its edge
func (g Geofence) Contains(lat, lon float64) bool {
	return lat >= g.MinLat && lat <= g.MaxLat && lon >= g.MinLon && lon <= g.MaxLon
}

// Criteria selects which records are presented
type Criteria struct {
	AirspaceOnly bool   // airborne and inside the geofence
	Destination  string // case-insensitive substring of the flight callsign, "" for any
}

// Filter narrows snapshots to the records matching a Criteria
type Filter struct {
	geofence Geofence
}

func New(geofence Geofence) *Filter {
	return &Filter{geofence: geofence}
}

func (f *Filter) Geofence() Geofence {
	return f.geofence
}

// Apply returns the records matching c, in their original order.
// Records are copied by value into the result; the input is never modified.
func (f *Filter) Apply(records []models.AircraftRecord, c Criteria) []models.AircraftRecord {
	needle := strings.ToLower(strings.TrimSpace(c.Destination))

	out := make([]models.AircraftRecord, 0, len(records))
	for i := range records {
		if f.match(&records[i], c.AirspaceOnly, needle) {
			out = append(out, records[i])
		}
	}
	return out
}

// Match reports whether a single record satisfies c
func (f *Filter) Match(rec *models.AircraftRecord, c Criteria) bool {
	return f.match(rec, c.AirspaceOnly, strings.ToLower(strings.TrimSpace(c.Destination)))
}

func (f *Filter) match(rec *models.AircraftRecord, airspaceOnly bool, needle string) bool {
	if airspaceOnly && !f.inAirspace(rec) {
		return false
	}
	if needle != "" {
		flight := rec.FlightID()
		if flight == "" || !strings.Contains(strings.ToLower(flight), needle) {
			return false
		}
	}
	return true
}

// inAirspace requires a position inside the geofence and a known altitude above zero.
// Aircraft reporting "ground" have an unknown altitude and are therefore excluded.
func (f *Filter) inAirspace(rec *models.AircraftRecord) bool {
	if !rec.HasPosition() || !f.geofence.Contains(*rec.Lat, *rec.Lon) {
		return false
	}
	feet, ok := models.ResolveAltitude(rec)
	return ok && feet > 0
}
