package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"adsb_snapshot/internal/models"
	"adsb_snapshot/internal/store"
)

// SnapshotFetcher retrieves the current snapshot from the feed
type SnapshotFetcher interface {
	Fetch(ctx context.Context) (*models.Snapshot, error)
}

// SnapshotStore is the part of store.Store the refresher writes to
type SnapshotStore interface {
	Replace(ctx context.Context, snap *models.Snapshot) error
	ReplaceAndRead(ctx context.Context, snap *models.Snapshot) (store.Current, error)
	Current(ctx context.Context) (store.Current, error)
}

// SnapshotRefresher fetches a snapshot and, on success, replaces the stored one.
// A failed fetch leaves the store untouched.
type SnapshotRefresher struct {
	fetcher  SnapshotFetcher
	store    SnapshotStore
	interval time.Duration
}

// NewSnapshotRefresher creates a refresher. interval is only used when the refresher
// runs as a scheduled task; zero keeps it request-driven.
func NewSnapshotRefresher(fetcher SnapshotFetcher, s SnapshotStore, interval time.Duration) *SnapshotRefresher {
	return &SnapshotRefresher{
		fetcher:  fetcher,
		store:    s,
		interval: interval,
	}
}

// Refresh fetches and stores a new snapshot. fresh reports whether the store now
// holds the snapshot just fetched. A fetch failure is not an error; a store failure is.
func (r *SnapshotRefresher) Refresh(ctx context.Context) (fresh bool, err error) {
	snap, err := r.fetcher.Fetch(ctx)
	if err != nil {
		slog.Warn("Snapshot fetch failed, keeping last snapshot", "error", err)
		return false, nil
	}

	if err := r.store.Replace(ctx, snap); err != nil {
		return false, err
	}

	slog.Info("Snapshot refreshed", "snapshot_id", snap.ID, "records", len(snap.Records))
	return true, nil
}

// RefreshAndRead refreshes the store and returns what it holds afterwards. When the
// fetch or the replace fails the last stored snapshot is returned with fresh=false.
// Only a failure to read the store is returned as an error.
func (r *SnapshotRefresher) RefreshAndRead(ctx context.Context) (cur store.Current, fresh bool, err error) {
	snap, err := r.fetcher.Fetch(ctx)
	if err != nil {
		slog.Warn("Snapshot fetch failed, serving last snapshot", "error", err)
		return r.readCurrent(ctx)
	}

	cur, err = r.store.ReplaceAndRead(ctx, snap)
	if err != nil {
		slog.Error("Error storing snapshot, serving last snapshot", "snapshot_id", snap.ID, "error", err)
		return r.readCurrent(ctx)
	}

	slog.Debug("Snapshot refreshed", "snapshot_id", snap.ID, "records", len(snap.Records))
	return cur, true, nil
}

func (r *SnapshotRefresher) readCurrent(ctx context.Context) (store.Current, bool, error) {
	cur, err := r.store.Current(ctx)
	if err != nil {
		return store.Current{}, false, fmt.Errorf("failed to read current snapshot: %w", err)
	}
	return cur, false, nil
}

// Run refreshes once; it implements scheduler.Task
func (r *SnapshotRefresher) Run(ctx context.Context) error {
	_, err := r.Refresh(ctx)
	return err
}

func (r *SnapshotRefresher) Interval() time.Duration {
	return r.interval
}

func (r *SnapshotRefresher) Name() string {
	return "snapshot-refresh"
}
