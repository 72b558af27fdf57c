package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"adsb_snapshot/internal/airlines"
	"adsb_snapshot/internal/api"
	"adsb_snapshot/internal/config"
	"adsb_snapshot/internal/database"
	"adsb_snapshot/internal/dump1090"
	"adsb_snapshot/internal/filter"
	"adsb_snapshot/internal/metrics"
	"adsb_snapshot/internal/scheduler"
	"adsb_snapshot/internal/store"
	"adsb_snapshot/internal/tasks"
	"adsb_snapshot/internal/view"

	"golang.org/x/sync/errgroup"
)

// Daemon wires the feed client, the snapshot store and the HTTP server together
type Daemon struct {
	database  *database.DB // nil when neither the store nor the registry needs SQLite
	refresher *tasks.SnapshotRefresher
	server    *api.Server
}

// New creates a new daemon instance from the loaded configuration
func New(cfg *config.Config) (*Daemon, error) {
	m := metrics.New()

	db, err := openDatabase(cfg)
	if err != nil {
		return nil, err
	}

	var repo database.SnapshotRepository
	if strings.EqualFold(cfg.Store.Kind, "memory") {
		repo = store.NewMemoryRepository()
	} else {
		repo = db.SnapshotRepository()
	}
	snapshots := store.New(repo, m)

	var registry view.RegistryLookup
	if db != nil && len(cfg.Registry.CSVPaths) > 0 {
		aircraft := db.AircraftRepository()
		if err := loadRegistry(aircraft, cfg.Registry); err != nil {
			db.Close()
			return nil, err
		}
		registry = aircraft
	}

	client := dump1090.NewSnapshotClient(dump1090.Config{
		URL:         cfg.Source.URL,
		Timeout:     time.Duration(cfg.Source.Timeout) * time.Second,
		MaxAttempts: cfg.Source.MaxRetries,
		Backoff:     time.Duration(cfg.Source.RetryBackoffMS) * time.Millisecond,
		DebugPath:   cfg.Source.DebugPath,
	}, m)

	refresher := tasks.NewSnapshotRefresher(client, snapshots, time.Duration(cfg.RefreshInterval)*time.Second)

	f := filter.New(filter.Geofence{
		MinLat: cfg.Geofence.MinLat,
		MaxLat: cfg.Geofence.MaxLat,
		MinLon: cfg.Geofence.MinLon,
		MaxLon: cfg.Geofence.MaxLon,
	})
	airlineTable := airlines.New(cfg.Airlines)
	presenter := view.NewService(refresher, f, airlineTable, registry)

	var pinger api.Pinger
	if db != nil {
		pinger = db
	}
	server := api.NewServer(api.Config{
		Addr:         cfg.HTTP.Addr,
		RateLimit:    cfg.HTTP.RateLimit,
		RateBurst:    cfg.HTTP.RateBurst,
		CORSOrigins:  cfg.HTTP.CORSOrigins,
		RefreshAfter: time.Duration(cfg.HTTP.RefreshAfter) * time.Second,
	}, presenter, snapshots, pinger, m)

	slog.Info("Daemon configured",
		"source_url", cfg.Source.URL,
		"store", cfg.Store.Kind,
		"airline_prefixes", airlineTable.Len(),
		"registry", registry != nil,
		"refresh_interval_s", cfg.RefreshInterval,
	)

	return &Daemon{
		database:  db,
		refresher: refresher,
		server:    server,
	}, nil
}

// openDatabase opens the SQLite database when the store or the registry needs it.
// A memory store with a registry keeps the registry in an in-memory database.
func openDatabase(cfg *config.Config) (*database.DB, error) {
	memoryStore := strings.EqualFold(cfg.Store.Kind, "memory")
	if memoryStore && len(cfg.Registry.CSVPaths) == 0 {
		return nil, nil
	}

	path := cfg.DBPath
	if memoryStore {
		path = ":memory:"
	}

	db, err := database.New(path)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	return db, nil
}

// loadRegistry fills the aircraft table from CSV unless it already holds data
func loadRegistry(repo database.AircraftRepository, cfg config.RegistryConfig) error {
	populated, err := repo.IsTablePopulated()
	if err != nil {
		return fmt.Errorf("failed to check aircraft table: %w", err)
	}
	if populated {
		slog.Info("Aircraft table is already populated")
		return nil
	}

	slog.Info("Aircraft table is empty, loading from CSV files", "csv_paths", cfg.CSVPaths)
	if err := repo.LoadFromMultipleCSV(cfg.CSVPaths, cfg.BatchSize); err != nil {
		return fmt.Errorf("failed to load aircraft from CSV: %w", err)
	}
	slog.Info("Successfully loaded aircraft database from CSV")
	return nil
}

// Handler exposes the HTTP handler, mainly for tests
func (d *Daemon) Handler() http.Handler {
	return d.server.Handler()
}

// Run serves HTTP and, when configured, refreshes the snapshot in the background.
// It blocks until ctx is cancelled or the server fails.
func (d *Daemon) Run(ctx context.Context) error {
	slog.Info("Starting daemon")

	g, gctx := errgroup.WithContext(ctx)

	sched := scheduler.New(gctx)
	sched.AddTask(d.refresher)
	sched.Start()

	g.Go(func() error {
		return d.server.ListenAndServe(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		sched.Stop()
		return nil
	})

	err := g.Wait()
	slog.Info("Daemon stopped")
	return err
}

// Close releases the database
func (d *Daemon) Close() error {
	if d.database == nil {
		return nil
	}
	if err := d.database.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	return nil
}
