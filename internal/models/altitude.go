package models

import (
	"math"
	"strconv"
	"strings"
)

type altitudeSource struct {
	name string
	get  func(*AircraftRecord) FieldValue
}

// altitudePrecedence lists the altitude fields in the order they are consulted.
// Barometric wins over geometric, which wins over the generic names.
var altitudePrecedence = []altitudeSource{
	{"alt_baro", func(a *AircraftRecord) FieldValue { return a.AltBaro }},
	{"altBaro", func(a *AircraftRecord) FieldValue { return a.AltBaroAlt }},
	{"alt_geom", func(a *AircraftRecord) FieldValue { return a.AltGeom }},
	{"altGeom", func(a *AircraftRecord) FieldValue { return a.AltGeomAlt }},
	{"altitude", func(a *AircraftRecord) FieldValue { return a.Altitude }},
	{"alt", func(a *AircraftRecord) FieldValue { return a.Alt }},
}

// ResolveAltitude returns the altitude in feet from the first usable altitude field.
// ok is false when the altitude is unknown; an unknown altitude is never reported as 0.
//
// "ground" (any casing) means the aircraft is on the ground and is skipped, as are
// strings that do not parse as an integer. Numbers are truncated toward zero.
func ResolveAltitude(a *AircraftRecord) (feet int, ok bool) {
	for _, src := range altitudePrecedence {
		if feet, ok := altitudeFrom(src.get(a)); ok {
			return feet, true
		}
	}
	return 0, false
}

func altitudeFrom(v FieldValue) (int, bool) {
	if f, ok := v.Number(); ok {
		// Same bounds as strconv.Atoi on the text path
		if math.IsNaN(f) || f >= math.MaxInt64 || f < math.MinInt64 {
			return 0, false
		}
		return int(f), true
	}

	if s, ok := v.Text(); ok {
		s = strings.TrimSpace(s)
		if strings.EqualFold(s, "ground") {
			return 0, false
		}
		n, err := strconv.Atoi(s)
		if err != nil {
			return 0, false
		}
		return n, true
	}

	return 0, false
}
