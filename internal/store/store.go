// Package store holds the single current aircraft snapshot.
//
// Store serializes writers against readers on top of a database.SnapshotRepository,
// so a reader never observes a half-replaced snapshot even when the repository itself
// gives no such guarantee.
package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"adsb_snapshot/internal/database"
	"adsb_snapshot/internal/metrics"
	"adsb_snapshot/internal/models"
)

// Current is a consistent view of the stored snapshot
type Current struct {
	SnapshotID string
	FetchedAt  time.Time // zero when nothing was ever stored
	Records    []models.AircraftRecord
}

type Store struct {
	mu      sync.RWMutex
	repo    database.SnapshotRepository
	metrics *metrics.Registry
}

func New(repo database.SnapshotRepository, m *metrics.Registry) *Store {
	if m == nil {
		m = metrics.New()
	}
	return &Store{repo: repo, metrics: m}
}

// Replace makes snap the current snapshot, discarding the previous one
func (s *Store) Replace(ctx context.Context, snap *models.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.repo.Replace(ctx, snap); err != nil {
		return fmt.Errorf("failed to replace snapshot: %w", err)
	}

	s.metrics.SnapshotRecords.Set(float64(len(snap.Records)))
	s.metrics.SnapshotReplacements.Inc()
	return nil
}

// ReadAll returns every record of the current snapshot in feed order
func (s *Store) ReadAll(ctx context.Context) ([]models.AircraftRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records, err := s.repo.ReadAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}
	return records, nil
}

// ReplaceAndRead replaces the snapshot and reads it back without letting another
// writer in between
func (s *Store) ReplaceAndRead(ctx context.Context, snap *models.Snapshot) (Current, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.repo.Replace(ctx, snap); err != nil {
		return Current{}, fmt.Errorf("failed to replace snapshot: %w", err)
	}
	s.metrics.SnapshotRecords.Set(float64(len(snap.Records)))
	s.metrics.SnapshotReplacements.Inc()

	return s.current(ctx)
}

// Current returns the records together with the snapshot's metadata, read under one lock
func (s *Store) Current(ctx context.Context) (Current, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.current(ctx)
}

func (s *Store) current(ctx context.Context) (Current, error) {
	meta, err := s.repo.Meta(ctx)
	if err != nil {
		return Current{}, fmt.Errorf("failed to read snapshot metadata: %w", err)
	}
	records, err := s.repo.ReadAll(ctx)
	if err != nil {
		return Current{}, fmt.Errorf("failed to read snapshot: %w", err)
	}

	return Current{SnapshotID: meta.ID, FetchedAt: meta.FetchedAt, Records: records}, nil
}

// LastUpdated returns when the current snapshot was fetched, or the zero time
func (s *Store) LastUpdated(ctx context.Context) (time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	meta, err := s.repo.Meta(ctx)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to read snapshot metadata: %w", err)
	}
	return meta.FetchedAt, nil
}
