package dump1090

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"adsb_snapshot/internal/metrics"
	"adsb_snapshot/internal/models"

	"github.com/google/uuid"
)

const defaultMaxBodyBytes = 32 << 20

// Config holds the feed client settings
type Config struct {
	URL          string        // aircraft.json endpoint
	Timeout      time.Duration // per attempt
	MaxAttempts  int
	Backoff      time.Duration // pause between attempts, 0 retries immediately
	DebugPath    string        // where to keep the last good payload, "" disables
	MaxBodyBytes int64
}

// SnapshotClient fetches aircraft.json snapshots from dump1090
type SnapshotClient struct {
	httpClient *http.Client
	cfg        Config
	metrics    *metrics.Registry
	now        func() time.Time
}

func NewSnapshotClient(cfg Config, m *metrics.Registry) *SnapshotClient {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = defaultMaxBodyBytes
	}
	if m == nil {
		m = metrics.New()
	}

	return &SnapshotClient{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		cfg:        cfg,
		metrics:    m,
		now:        time.Now,
	}
}

// Fetch retrieves one validated snapshot, retrying up to MaxAttempts times.
// The first attempt that yields a valid payload wins and no further requests are made.
// After all attempts fail the error wraps ErrRetriesExhausted.
func (c *SnapshotClient) Fetch(ctx context.Context) (*models.Snapshot, error) {
	start := time.Now()
	defer func() { c.metrics.FetchDuration.Observe(time.Since(start).Seconds()) }()

	policy := RetryPolicy{MaxAttempts: c.cfg.MaxAttempts, Backoff: c.cfg.Backoff}

	var snap *models.Snapshot
	err := Retry(ctx, policy, func(ctx context.Context, attempt int) error {
		slog.Debug("Fetching aircraft snapshot", "attempt", attempt, "max_attempts", policy.MaxAttempts, "url", c.cfg.URL)

		s, err := c.fetchOnce(ctx, attempt)
		if err != nil {
			outcome := OutcomeTransient
			var fe *TransientFetchError
			if errors.As(err, &fe) {
				outcome = fe.Outcome
			}
			c.metrics.FetchAttemptsTotal.WithLabelValues(outcome.String()).Inc()
			slog.Warn("Fetch attempt failed", "attempt", attempt, "max_attempts", policy.MaxAttempts, "error", err)
			return err
		}

		c.metrics.FetchAttemptsTotal.WithLabelValues(OutcomeOK.String()).Inc()
		snap = s
		return nil
	})
	if err != nil {
		c.metrics.FetchResultsTotal.WithLabelValues("exhausted").Inc()
		slog.Error("Failed to fetch aircraft snapshot", "attempts", policy.MaxAttempts, "error", err)
		return nil, err
	}

	snap.ID = uuid.NewString()
	snap.FetchedAt = c.now().UTC()
	c.metrics.FetchResultsTotal.WithLabelValues("success").Inc()
	slog.Info("Fetched aircraft snapshot", "snapshot_id", snap.ID, "aircraft", len(snap.Records))

	if c.cfg.DebugPath != "" {
		if err := writeDebugPayload(c.cfg.DebugPath, snap.Raw); err != nil {
			c.metrics.DebugWriteErrorsTotal.Inc()
			slog.Warn("Failed to save raw payload", "path", c.cfg.DebugPath, "error", err)
		}
	}

	return snap, nil
}

// fetchOnce performs a single GET and classifies the response
func (c *SnapshotClient) fetchOnce(ctx context.Context, attempt int) (*models.Snapshot, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.URL, nil)
	if err != nil {
		return nil, &TransientFetchError{Attempt: attempt, Outcome: OutcomeTransient, Err: fmt.Errorf("failed to create request: %w", err)}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &TransientFetchError{Attempt: attempt, Outcome: OutcomeTransient, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.cfg.MaxBodyBytes+1))
	if err != nil {
		return nil, &TransientFetchError{Attempt: attempt, Outcome: OutcomeTransient, StatusCode: resp.StatusCode, Err: fmt.Errorf("failed to read body: %w", err)}
	}
	if int64(len(body)) > c.cfg.MaxBodyBytes {
		return nil, &TransientFetchError{Attempt: attempt, Outcome: OutcomeInvalid, StatusCode: resp.StatusCode, Err: fmt.Errorf("body exceeds %d bytes", c.cfg.MaxBodyBytes)}
	}

	snap, outcome, err := classify(resp.StatusCode, body)
	if outcome != OutcomeOK {
		return nil, &TransientFetchError{Attempt: attempt, Outcome: outcome, StatusCode: resp.StatusCode, Err: err}
	}
	return snap, nil
}
