package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

// DB wraps the SQLite connection holding the current snapshot and the aircraft registry
type DB struct {
	db *sql.DB
}

// New creates and initializes a new database connection.
// Parent directories of dbPath are created when missing; ":memory:" keeps everything in RAM.
func New(dbPath string) (*DB, error) {
	inMemory := dbPath == ":memory:"
	if !inMemory {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Every pooled connection to :memory: would be a separate, empty database
	if inMemory {
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := optimizeSQLite(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to optimize database: %w", err)
	}

	database := &DB{db: db}

	if err := database.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return database, nil
}

// optimizeSQLite applies pragmas suited to a small device writing a snapshot every few seconds
func optimizeSQLite(db *sql.DB) error {
	pragmas := []struct {
		stmt string
		desc string
	}{
		// WAL lets readers keep reading the old snapshot while a replace is committing
		{"PRAGMA journal_mode=WAL", "enable WAL mode"},
		{"PRAGMA cache_size=-16000", "set cache size"},
		{"PRAGMA synchronous=NORMAL", "set synchronous mode"},
		{"PRAGMA temp_store=MEMORY", "set temp_store"},
		{"PRAGMA busy_timeout=5000", "set busy timeout"},
	}

	for _, p := range pragmas {
		if _, err := db.Exec(p.stmt); err != nil {
			return fmt.Errorf("failed to %s: %w", p.desc, err)
		}
	}

	return nil
}

// Close closes the database connection
func (d *DB) Close() error {
	return d.db.Close()
}

// Ping verifies the database is reachable
func (d *DB) Ping(ctx context.Context) error {
	return d.db.PingContext(ctx)
}

// SnapshotRepository returns the repository holding the current snapshot
func (d *DB) SnapshotRepository() SnapshotRepository {
	return NewSnapshotRepository(d.db)
}

// AircraftRepository returns the aircraft registry repository
func (d *DB) AircraftRepository() AircraftRepository {
	return NewAircraftRepository(d.db)
}

// initSchema creates the database schema if it doesn't exist
func (d *DB) initSchema() error {
	tables := []struct {
		name   string
		schema string
	}{
		{"snapshot_meta", `CREATE TABLE IF NOT EXISTS snapshot_meta (
			singleton INTEGER PRIMARY KEY CHECK (singleton = 1),
			snapshot_id TEXT NOT NULL,
			fetched_at TIMESTAMP NOT NULL,
			record_count INTEGER NOT NULL
		);`},
		{"snapshot_aircraft", `CREATE TABLE IF NOT EXISTS snapshot_aircraft (
			position INTEGER PRIMARY KEY,
			hex TEXT NOT NULL,
			payload TEXT NOT NULL
		);`},
		{"aircraft", `CREATE TABLE IF NOT EXISTS aircraft (
			icao24 TEXT PRIMARY KEY,
			registration TEXT,
			typecode TEXT,
			model TEXT,
			manufacturerName TEXT,
			operator TEXT,
			operatorIcao TEXT,
			country TEXT
		);`},
	}

	indexes := []string{
		`CREATE INDEX IF NOT EXISTS idx_snapshot_aircraft_hex ON snapshot_aircraft(hex)`,
	}

	for _, t := range tables {
		if _, err := d.db.Exec(t.schema); err != nil {
			return fmt.Errorf("failed to create %s table: %w", t.name, err)
		}
	}

	for _, idx := range indexes {
		if _, err := d.db.Exec(idx); err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}

	return nil
}
