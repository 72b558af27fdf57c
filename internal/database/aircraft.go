package database

import (
	"context"
	"database/sql"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"adsb_snapshot/internal/models"
)

// lookupChunk keeps IN (...) lists well below SQLite's host parameter limit
const lookupChunk = 500

type AircraftRepository interface {
	InsertBatch(entries []*models.RegistryEntry) error
	IsTablePopulated() (bool, error)
	LoadFromMultipleCSV(csvPaths []string, batchSize int) error
	LookupMany(ctx context.Context, icaos []string) (map[string]models.RegistryEntry, error)
}

type aircraftRepository struct {
	db *sql.DB
}

func NewAircraftRepository(db *sql.DB) AircraftRepository {
	return &aircraftRepository{db: db}
}

// InsertBatch inserts one or more registry entries in a single transaction
func (r *aircraftRepository) InsertBatch(entries []*models.RegistryEntry) error {
	if len(entries) == 0 {
		return nil
	}

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`INSERT OR REPLACE INTO aircraft (
		icao24, registration, typecode, model, manufacturerName,
		operator, operatorIcao, country
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, e := range entries {
		if _, err := stmt.Exec(
			strings.ToLower(e.ICAO24), e.Registration, e.TypeCode, e.Model,
			e.ManufacturerName, e.Operator, e.OperatorICAO, e.Country,
		); err != nil {
			return fmt.Errorf("failed to insert aircraft: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

func (r *aircraftRepository) IsTablePopulated() (bool, error) {
	var ignored int
	err := r.db.QueryRow("SELECT 1 FROM aircraft LIMIT 1").Scan(&ignored)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check aircraft table: %w", err)
	}
	return true, nil
}

// LoadFromMultipleCSV loads the OpenSky aircraft database from one or more CSV files.
// The export is split in parts; every part repeats the header, and the first header
// decides the column layout. Rows with a different field count or no icao24 are skipped.
func (r *aircraftRepository) LoadFromMultipleCSV(csvPaths []string, batchSize int) error {
	if batchSize <= 0 {
		batchSize = 1000
	}

	l := &csvLoader{repo: r, batch: make([]*models.RegistryEntry, 0, batchSize), batchSize: batchSize}
	for _, csvPath := range csvPaths {
		if err := l.loadFile(csvPath); err != nil {
			return err
		}
	}

	if err := l.flush(); err != nil {
		return fmt.Errorf("failed to insert final batch: %w", err)
	}
	return nil
}

// LookupMany returns the registry entries for the given addresses, keyed by lower-case
// address. Unknown addresses are simply absent from the map.
func (r *aircraftRepository) LookupMany(ctx context.Context, icaos []string) (map[string]models.RegistryEntry, error) {
	found := make(map[string]models.RegistryEntry)

	seen := make(map[string]bool, len(icaos))
	keys := make([]string, 0, len(icaos))
	for _, icao := range icaos {
		k := strings.ToLower(strings.TrimSpace(icao))
		if k == "" || seen[k] {
			continue
		}
		seen[k] = true
		keys = append(keys, k)
	}

	for start := 0; start < len(keys); start += lookupChunk {
		end := min(start+lookupChunk, len(keys))
		chunk := keys[start:end]

		args := make([]any, len(chunk))
		for i, k := range chunk {
			args[i] = k
		}
		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(chunk)), ",")

		rows, err := r.db.QueryContext(ctx, `SELECT icao24,
			COALESCE(registration, ''), COALESCE(typecode, ''), COALESCE(model, ''),
			COALESCE(manufacturerName, ''), COALESCE(operator, ''), COALESCE(operatorIcao, ''),
			COALESCE(country, '')
			FROM aircraft WHERE icao24 IN (`+placeholders+`)`, args...)
		if err != nil {
			return nil, fmt.Errorf("failed to query aircraft: %w", err)
		}

		for rows.Next() {
			var e models.RegistryEntry
			if err := rows.Scan(&e.ICAO24, &e.Registration, &e.TypeCode, &e.Model,
				&e.ManufacturerName, &e.Operator, &e.OperatorICAO, &e.Country); err != nil {
				rows.Close()
				return nil, fmt.Errorf("failed to scan aircraft: %w", err)
			}
			found[e.ICAO24] = e
		}
		err = rows.Err()
		rows.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to iterate aircraft: %w", err)
		}
	}

	return found, nil
}

type csvLoader struct {
	repo           *aircraftRepository
	headerMap      map[string]int
	expectedFields int
	batch          []*models.RegistryEntry
	batchSize      int
}

func (l *csvLoader) loadFile(csvPath string) error {
	file, err := os.Open(csvPath)
	if err != nil {
		return fmt.Errorf("failed to open CSV file %s: %w", csvPath, err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.LazyQuotes = true    // the export has malformed quotes
	reader.FieldsPerRecord = -1 // and a variable number of fields per record

	header, err := reader.Read()
	if err != nil {
		return fmt.Errorf("failed to read CSV header from %s: %w", csvPath, err)
	}

	if l.headerMap == nil {
		l.expectedFields = len(header)
		l.headerMap = make(map[string]int, len(header))
		for i, h := range header {
			l.headerMap[strings.Trim(strings.TrimSpace(h), "'\"")] = i
		}
	}

	for {
		record, err := reader.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read CSV record from %s: %w", csvPath, err)
		}

		if len(record) != l.expectedFields {
			continue
		}

		entry := &models.RegistryEntry{
			ICAO24:           strings.ToLower(l.field(record, "icao24")),
			Registration:     l.field(record, "registration"),
			TypeCode:         l.field(record, "typecode"),
			Model:            l.field(record, "model"),
			ManufacturerName: l.field(record, "manufacturerName"),
			Operator:         l.field(record, "operator"),
			OperatorICAO:     l.field(record, "operatorIcao"),
			Country:          l.field(record, "country"),
		}
		if entry.ICAO24 == "" {
			continue
		}

		l.batch = append(l.batch, entry)
		if len(l.batch) >= l.batchSize {
			if err := l.flush(); err != nil {
				return fmt.Errorf("failed to insert batch: %w", err)
			}
		}
	}
}

func (l *csvLoader) flush() error {
	if len(l.batch) == 0 {
		return nil
	}
	if err := l.repo.InsertBatch(l.batch); err != nil {
		return err
	}
	l.batch = l.batch[:0]
	return nil
}

// field safely retrieves a field from a CSV record by header name
func (l *csvLoader) field(record []string, name string) string {
	if idx, ok := l.headerMap[name]; ok && idx < len(record) {
		return strings.Trim(strings.TrimSpace(record[idx]), "'\"")
	}
	return ""
}
