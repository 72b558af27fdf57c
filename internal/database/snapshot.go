package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"adsb_snapshot/internal/models"
)

// SnapshotMeta describes the snapshot currently held by a repository.
// A zero ID means no snapshot was ever stored.
type SnapshotMeta struct {
	ID        string
	FetchedAt time.Time
	Records   int
}

// SnapshotRepository holds exactly one snapshot. Replace discards whatever was stored
// before; records are never merged across snapshots.
type SnapshotRepository interface {
	Replace(ctx context.Context, snap *models.Snapshot) error
	ReadAll(ctx context.Context) ([]models.AircraftRecord, error)
	Meta(ctx context.Context) (SnapshotMeta, error)
}

type snapshotRepository struct {
	db *sql.DB
}

func NewSnapshotRepository(db *sql.DB) SnapshotRepository {
	return &snapshotRepository{db: db}
}

// Replace clears the stored snapshot and writes every record of snap in one transaction,
// so readers see either the old snapshot or the new one in full.
func (r *snapshotRepository) Replace(ctx context.Context, snap *models.Snapshot) error {
	if snap == nil {
		return fmt.Errorf("snapshot is nil")
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM snapshot_aircraft`); err != nil {
		return fmt.Errorf("failed to clear snapshot records: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM snapshot_meta`); err != nil {
		return fmt.Errorf("failed to clear snapshot metadata: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO snapshot_aircraft (position, hex, payload) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for i := range snap.Records {
		payload, err := json.Marshal(snap.Records[i])
		if err != nil {
			return fmt.Errorf("failed to encode record %d: %w", i, err)
		}
		if _, err := stmt.ExecContext(ctx, i, snap.Records[i].Hex, string(payload)); err != nil {
			return fmt.Errorf("failed to insert record %d: %w", i, err)
		}
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO snapshot_meta (singleton, snapshot_id, fetched_at, record_count) VALUES (1, ?, ?, ?)`,
		snap.ID, snap.FetchedAt.UTC(), len(snap.Records),
	); err != nil {
		return fmt.Errorf("failed to insert snapshot metadata: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// ReadAll returns the records of the current snapshot in feed order.
// The slice is empty, not nil, when nothing was ever stored.
func (r *snapshotRepository) ReadAll(ctx context.Context) ([]models.AircraftRecord, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT payload FROM snapshot_aircraft ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshot records: %w", err)
	}
	defer rows.Close()

	records := make([]models.AircraftRecord, 0)
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot record: %w", err)
		}

		var rec models.AircraftRecord
		if err := json.Unmarshal([]byte(payload), &rec); err != nil {
			return nil, fmt.Errorf("failed to decode snapshot record: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate snapshot records: %w", err)
	}

	return records, nil
}

func (r *snapshotRepository) Meta(ctx context.Context) (SnapshotMeta, error) {
	var meta SnapshotMeta
	err := r.db.QueryRowContext(ctx,
		`SELECT snapshot_id, fetched_at, record_count FROM snapshot_meta WHERE singleton = 1`,
	).Scan(&meta.ID, &meta.FetchedAt, &meta.Records)
	if err == sql.ErrNoRows {
		return SnapshotMeta{}, nil
	}
	if err != nil {
		return SnapshotMeta{}, fmt.Errorf("failed to read snapshot metadata: %w", err)
	}
	return meta, nil
}
