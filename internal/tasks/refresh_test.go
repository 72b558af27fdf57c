package tasks

import (
	"context"
	"errors"
	"testing"
	"time"

	"adsb_snapshot/internal/dump1090"
	"adsb_snapshot/internal/models"
	"adsb_snapshot/internal/scheduler"
	"adsb_snapshot/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockFetcher returns the queued results in order, then keeps failing
type mockFetcher struct {
	snapshots []*models.Snapshot
	errors    []error
	calls     int
}

func (m *mockFetcher) Fetch(ctx context.Context) (*models.Snapshot, error) {
	m.calls++
	if len(m.errors) > 0 {
		err := m.errors[0]
		m.errors = m.errors[1:]
		if err != nil {
			return nil, err
		}
	}
	if len(m.snapshots) == 0 {
		return nil, dump1090.ErrRetriesExhausted
	}
	snap := m.snapshots[0]
	m.snapshots = m.snapshots[1:]
	return snap, nil
}

// failingRepository refuses every replace
type failingRepository struct {
	*store.MemoryRepository
}

func (f *failingRepository) Replace(ctx context.Context, snap *models.Snapshot) error {
	return errors.New("disk full")
}

func snapshotOf(id string, hexes ...string) *models.Snapshot {
	records := make([]models.AircraftRecord, len(hexes))
	for i, h := range hexes {
		records[i] = models.AircraftRecord{Hex: h}
	}
	return &models.Snapshot{ID: id, FetchedAt: time.Now().UTC(), Records: records}
}

var _ scheduler.Task = (*SnapshotRefresher)(nil)

func TestNewSnapshotRefresher(t *testing.T) {
	r := NewSnapshotRefresher(&mockFetcher{}, store.New(store.NewMemoryRepository(), nil), 30*time.Second)

	require.NotNil(t, r)
	assert.Equal(t, 30*time.Second, r.Interval())
	assert.Equal(t, "snapshot-refresh", r.Name())
}

func TestRefresh_ReplacesOnSuccess(t *testing.T) {
	s := store.New(store.NewMemoryRepository(), nil)
	fetcher := &mockFetcher{snapshots: []*models.Snapshot{snapshotOf("one", "aaa111", "bbb222")}}
	r := NewSnapshotRefresher(fetcher, s, 0)

	fresh, err := r.Refresh(context.Background())
	require.NoError(t, err)
	assert.True(t, fresh)

	cur, err := s.Current(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "one", cur.SnapshotID)
	assert.Len(t, cur.Records, 2)
}

func TestRefresh_FetchFailureKeepsStore(t *testing.T) {
	s := store.New(store.NewMemoryRepository(), nil)
	require.NoError(t, s.Replace(context.Background(), snapshotOf("good", "aaa111")))

	fetcher := &mockFetcher{}
	r := NewSnapshotRefresher(fetcher, s, 0)

	fresh, err := r.Refresh(context.Background())
	require.NoError(t, err)
	assert.False(t, fresh)
	assert.Equal(t, 1, fetcher.calls)

	cur, err := s.Current(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "good", cur.SnapshotID)
}

func TestRefresh_StoreFailureIsReturned(t *testing.T) {
	s := store.New(&failingRepository{MemoryRepository: store.NewMemoryRepository()}, nil)
	r := NewSnapshotRefresher(&mockFetcher{snapshots: []*models.Snapshot{snapshotOf("one", "aaa111")}}, s, 0)

	fresh, err := r.Refresh(context.Background())
	assert.Error(t, err)
	assert.False(t, fresh)
}

func TestRun_PropagatesOnlyStoreFailures(t *testing.T) {
	failing := store.New(&failingRepository{MemoryRepository: store.NewMemoryRepository()}, nil)
	r := NewSnapshotRefresher(&mockFetcher{snapshots: []*models.Snapshot{snapshotOf("one", "aaa111")}}, failing, time.Second)
	assert.Error(t, r.Run(context.Background()))

	healthy := store.New(store.NewMemoryRepository(), nil)
	r = NewSnapshotRefresher(&mockFetcher{}, healthy, time.Second)
	assert.NoError(t, r.Run(context.Background()))
}

func TestRefreshAndRead(t *testing.T) {
	s := store.New(store.NewMemoryRepository(), nil)
	fetcher := &mockFetcher{
		snapshots: []*models.Snapshot{snapshotOf("one", "aaa111"), snapshotOf("two", "bbb222", "ccc333")},
		errors:    []error{nil, errors.New("connection refused")},
	}
	r := NewSnapshotRefresher(fetcher, s, 0)
	ctx := context.Background()

	cur, fresh, err := r.RefreshAndRead(ctx)
	require.NoError(t, err)
	assert.True(t, fresh)
	assert.Equal(t, "one", cur.SnapshotID)

	// Second fetch fails: the first snapshot is still served
	cur, fresh, err = r.RefreshAndRead(ctx)
	require.NoError(t, err)
	assert.False(t, fresh)
	assert.Equal(t, "one", cur.SnapshotID)
	require.Len(t, cur.Records, 1)
	assert.Equal(t, "aaa111", cur.Records[0].Hex)

	cur, fresh, err = r.RefreshAndRead(ctx)
	require.NoError(t, err)
	assert.True(t, fresh)
	assert.Equal(t, "two", cur.SnapshotID)
	assert.Len(t, cur.Records, 2)
}

func TestRefreshAndRead_NothingStoredYet(t *testing.T) {
	r := NewSnapshotRefresher(&mockFetcher{}, store.New(store.NewMemoryRepository(), nil), 0)

	cur, fresh, err := r.RefreshAndRead(context.Background())
	require.NoError(t, err)
	assert.False(t, fresh)
	assert.Empty(t, cur.SnapshotID)
	assert.NotNil(t, cur.Records)
	assert.Empty(t, cur.Records)
}

func TestRefreshAndRead_StoreFailureServesLastSnapshot(t *testing.T) {
	mem := store.NewMemoryRepository()
	require.NoError(t, mem.Replace(context.Background(), snapshotOf("good", "aaa111")))

	s := store.New(&failingRepository{MemoryRepository: mem}, nil)
	r := NewSnapshotRefresher(&mockFetcher{snapshots: []*models.Snapshot{snapshotOf("new", "zzz999")}}, s, 0)

	cur, fresh, err := r.RefreshAndRead(context.Background())
	require.NoError(t, err)
	assert.False(t, fresh)
	assert.Equal(t, "good", cur.SnapshotID)
}
