package store

import (
	"context"
	"fmt"
	"sync/atomic"

	"adsb_snapshot/internal/database"
	"adsb_snapshot/internal/models"
)

type memorySnapshot struct {
	meta    database.SnapshotMeta
	records []models.AircraftRecord
}

// MemoryRepository keeps the snapshot in process memory. Replace swaps a pointer to
// a private copy, so readers always get a complete snapshot.
type MemoryRepository struct {
	current atomic.Pointer[memorySnapshot]
}

var _ database.SnapshotRepository = (*MemoryRepository)(nil)

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{}
}

func (m *MemoryRepository) Replace(ctx context.Context, snap *models.Snapshot) error {
	if snap == nil {
		return fmt.Errorf("snapshot is nil")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	records := make([]models.AircraftRecord, len(snap.Records))
	copy(records, snap.Records)

	m.current.Store(&memorySnapshot{
		meta: database.SnapshotMeta{
			ID:        snap.ID,
			FetchedAt: snap.FetchedAt,
			Records:   len(records),
		},
		records: records,
	})
	return nil
}

func (m *MemoryRepository) ReadAll(ctx context.Context) ([]models.AircraftRecord, error) {
	cur := m.current.Load()
	if cur == nil {
		return []models.AircraftRecord{}, nil
	}

	out := make([]models.AircraftRecord, len(cur.records))
	copy(out, cur.records)
	return out, nil
}

func (m *MemoryRepository) Meta(ctx context.Context) (database.SnapshotMeta, error) {
	cur := m.current.Load()
	if cur == nil {
		return database.SnapshotMeta{}, nil
	}
	return cur.meta, nil
}
