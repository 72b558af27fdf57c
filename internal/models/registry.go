package models

// RegistryEntry is the static information known about an airframe, keyed by its ICAO
// address. Entries come from the OpenSky aircraft-database CSV export.
type RegistryEntry struct {
	ICAO24           string // 6 hex digit ICAO address, lower case
	Registration     string // Aircraft registration (e.g., CS-TUA)
	TypeCode         string // ICAO type designator (e.g., A20N)
	Model            string // Aircraft model
	ManufacturerName string // Manufacturer name
	Operator         string // Operator name
	OperatorICAO     string // Operator ICAO code
	Country          string // Country of registration
}
