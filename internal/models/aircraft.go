package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// AircraftRecord is one aircraft entry of a dump1090 aircraft.json snapshot.
// Optional source fields are pointers (or an absent FieldValue) so that "missing" is
// distinguishable from a zero value.
type AircraftRecord struct {
	Hex    string   // ICAO 24-bit transponder address, not guaranteed unique within a snapshot
	Flight *string  // Callsign as broadcast, often padded with spaces
	Lat    *float64 // Latitude in degrees
	Lon    *float64 // Longitude in degrees

	// Altitude sources, in the order they are consulted by ResolveAltitude
	AltBaro    FieldValue // alt_baro
	AltBaroAlt FieldValue // altBaro
	AltGeom    FieldValue // alt_geom
	AltGeomAlt FieldValue // altGeom
	Altitude   FieldValue // altitude
	Alt        FieldValue // alt

	GroundSpeed *float64 // gs, or speed on older feeds (knots)
	Track       *float64 // True track over ground (degrees)

	// Raw is the original JSON object; it is what gets persisted so every source
	// field survives a round trip through the store.
	Raw json.RawMessage
}

// HasPosition reports whether both latitude and longitude are present
func (a *AircraftRecord) HasPosition() bool {
	return a.Lat != nil && a.Lon != nil
}

// FlightID returns the callsign with surrounding whitespace removed, or "" if absent
func (a *AircraftRecord) FlightID() string {
	if a.Flight == nil {
		return ""
	}
	return strings.TrimSpace(*a.Flight)
}

// UnmarshalJSON decodes a record leniently: a field holding an unexpected JSON type is
// treated as absent instead of failing the whole record. Only a non-object is an error.
func (a *AircraftRecord) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return fmt.Errorf("aircraft record is not an object: %w", err)
	}
	if fields == nil {
		return fmt.Errorf("aircraft record is null")
	}

	*a = AircraftRecord{
		Hex:         stringField(fields["hex"]),
		Flight:      optionalString(fields["flight"]),
		Lat:         optionalNumber(fields["lat"]),
		Lon:         optionalNumber(fields["lon"]),
		AltBaro:     ParseFieldValue(fields["alt_baro"]),
		AltBaroAlt:  ParseFieldValue(fields["altBaro"]),
		AltGeom:     ParseFieldValue(fields["alt_geom"]),
		AltGeomAlt:  ParseFieldValue(fields["altGeom"]),
		Altitude:    ParseFieldValue(fields["altitude"]),
		Alt:         ParseFieldValue(fields["alt"]),
		GroundSpeed: optionalNumber(fields["gs"]),
		Track:       optionalNumber(fields["track"]),
		Raw:         append(json.RawMessage(nil), bytes.TrimSpace(data)...),
	}
	if a.GroundSpeed == nil {
		a.GroundSpeed = optionalNumber(fields["speed"])
	}
	return nil
}

// MarshalJSON returns the original object when the record was decoded from a feed,
// otherwise it encodes the typed fields using the dump1090 field names.
func (a AircraftRecord) MarshalJSON() ([]byte, error) {
	if len(a.Raw) > 0 {
		return a.Raw, nil
	}

	out := map[string]any{"hex": a.Hex}
	if a.Flight != nil {
		out["flight"] = *a.Flight
	}
	if a.Lat != nil {
		out["lat"] = *a.Lat
	}
	if a.Lon != nil {
		out["lon"] = *a.Lon
	}
	for _, src := range altitudePrecedence {
		if v := src.get(&a); !v.IsAbsent() {
			out[src.name] = v
		}
	}
	if a.GroundSpeed != nil {
		out["gs"] = *a.GroundSpeed
	}
	if a.Track != nil {
		out["track"] = *a.Track
	}
	return json.Marshal(out)
}

// Snapshot is the full set of records returned by one successful fetch
type Snapshot struct {
	ID        string
	FetchedAt time.Time
	Records   []AircraftRecord
	Raw       []byte // Undecoded payload as received from the feed
}

// CountWithPosition returns how many records carry both latitude and longitude
func CountWithPosition(records []AircraftRecord) int {
	n := 0
	for i := range records {
		if records[i].HasPosition() {
			n++
		}
	}
	return n
}

func stringField(raw json.RawMessage) string {
	if s := optionalString(raw); s != nil {
		return *s
	}
	return ""
}

func optionalString(raw json.RawMessage) *string {
	v := ParseFieldValue(raw)
	if s, ok := v.Text(); ok {
		return &s
	}
	return nil
}

func optionalNumber(raw json.RawMessage) *float64 {
	v := ParseFieldValue(raw)
	if f, ok := v.Number(); ok {
		return &f
	}
	return nil
}
