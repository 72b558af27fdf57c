// Package airlines maps callsign prefixes to the airline's country.
package airlines

import (
	"sort"
	"strings"
)

// Table is an immutable prefix lookup. Prefixes are matched case-insensitively
// against the start of a callsign; the longest matching prefix wins.
type Table struct {
	prefixes  []string // upper case, longest first
	countries map[string]string
}

// New builds a Table from prefix → country pairs. Keys are normalized to upper case
// because configuration loaders may lower-case map keys.
func New(byPrefix map[string]string) *Table {
	t := &Table{countries: make(map[string]string, len(byPrefix))}
	for prefix, country := range byPrefix {
		p := strings.ToUpper(strings.TrimSpace(prefix))
		if p == "" || country == "" {
			continue
		}
		if _, dup := t.countries[p]; !dup {
			t.prefixes = append(t.prefixes, p)
		}
		t.countries[p] = country
	}

	sort.Slice(t.prefixes, func(i, j int) bool {
		if len(t.prefixes[i]) != len(t.prefixes[j]) {
			return len(t.prefixes[i]) > len(t.prefixes[j])
		}
		return t.prefixes[i] < t.prefixes[j]
	})
	return t
}

// Country returns the country of the airline operating flight
func (t *Table) Country(flight string) (string, bool) {
	if t == nil {
		return "", false
	}
	callsign := strings.ToUpper(strings.TrimSpace(flight))
	if callsign == "" {
		return "", false
	}
	for _, p := range t.prefixes {
		if strings.HasPrefix(callsign, p) {
			return t.countries[p], true
		}
	}
	return "", false
}

func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.prefixes)
}
