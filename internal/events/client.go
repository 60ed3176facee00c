// Package events reads submission and consensus events from the
// transparency log in fixed-size pages.
package events

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"leaddash/internal/metrics"
	"leaddash/internal/models"
)

// ErrStoreUnavailable is returned when a scan gave up without reading a
// single row.
var ErrStoreUnavailable = errors.New("event store unavailable")

// statementTimeout is the Postgres SQLSTATE for a cancelled statement.
const statementTimeout = "57014"

// Source is a paginated view of the transparency log. Rows are returned
// newest first and rows without an email hash are never returned.
type Source interface {
	FetchEvents(ctx context.Context, eventType string, since *time.Time, offset, limit int) ([]models.Event, error)
	Ping(ctx context.Context) error
}

// Options tunes paging and retries.
type Options struct {
	BatchSize              int
	MaxAttempts            int
	MaxConsecutiveFailures int
	DelayEveryRows         int
	RetryDelay             time.Duration
	BatchDelay             time.Duration
	BatchTimeout           time.Duration
	Logger                 *slog.Logger
}

// DefaultOptions returns the production paging settings.
func DefaultOptions() Options {
	return Options{
		BatchSize:              1000,
		MaxAttempts:            3,
		MaxConsecutiveFailures: 3,
		DelayEveryRows:         10000,
		RetryDelay:             2 * time.Second,
		BatchDelay:             100 * time.Millisecond,
		BatchTimeout:           30 * time.Second,
	}
}

// FetchStats describes one scan.
type FetchStats struct {
	Rows           int
	Batches        int
	Retries        int
	SkippedBatches int
	// Truncated is set when the scan stopped on the consecutive failure cap.
	Truncated bool
}

// Client pages through a Source with retries.
type Client struct {
	src    Source
	opts   Options
	logger *slog.Logger
}

// NewClient creates a client. Zero option fields take their defaults.
func NewClient(src Source, opts Options) *Client {
	def := DefaultOptions()
	if opts.BatchSize <= 0 {
		opts.BatchSize = def.BatchSize
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = def.MaxAttempts
	}
	if opts.MaxConsecutiveFailures <= 0 {
		opts.MaxConsecutiveFailures = def.MaxConsecutiveFailures
	}
	if opts.DelayEveryRows <= 0 {
		opts.DelayEveryRows = def.DelayEveryRows
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = def.RetryDelay
	}
	if opts.BatchTimeout <= 0 {
		opts.BatchTimeout = def.BatchTimeout
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		src:    src,
		opts:   opts,
		logger: logger.With("component", "events"),
	}
}

// Ping checks that the underlying store is reachable.
func (c *Client) Ping(ctx context.Context) error {
	return c.src.Ping(ctx)
}

// Fetch reads every event of one type newer than since (all when since is
// nil). A batch that keeps failing is skipped and the offset moves on; after
// MaxConsecutiveFailures skipped batches in a row the scan stops and the rows
// read so far are returned with Truncated set.
func (c *Client) Fetch(ctx context.Context, eventType string, since *time.Time) ([]models.Event, FetchStats, error) {
	var (
		all      []models.Event
		stats    FetchStats
		offset   int
		failures int
	)

	for {
		if err := ctx.Err(); err != nil {
			return all, stats, err
		}
		if offset > 0 && offset%c.opts.DelayEveryRows == 0 && c.opts.BatchDelay > 0 {
			if err := sleep(ctx, c.opts.BatchDelay); err != nil {
				return all, stats, err
			}
		}

		batch, retries, err := c.fetchBatch(ctx, eventType, since, offset)
		stats.Retries += retries
		if err != nil {
			if ctx.Err() != nil {
				return all, stats, ctx.Err()
			}

			failures++
			stats.SkippedBatches++
			metrics.EventBatchesSkipped.WithLabelValues(eventType).Inc()
			c.logger.Warn("skipping event batch",
				"event_type", eventType,
				"offset", offset,
				"consecutive_failures", failures,
				"error", err,
			)

			if failures >= c.opts.MaxConsecutiveFailures {
				stats.Truncated = true
				c.logger.Error("too many consecutive batch failures, stopping scan",
					"event_type", eventType,
					"rows", stats.Rows,
				)
				if stats.Rows == 0 {
					return nil, stats, fmt.Errorf("failed to fetch %s events: %w", eventType, ErrStoreUnavailable)
				}
				return all, stats, nil
			}
			offset += c.opts.BatchSize
			continue
		}

		failures = 0
		stats.Batches++
		stats.Rows += len(batch)
		all = append(all, batch...)
		metrics.EventRowsFetched.WithLabelValues(eventType).Add(float64(len(batch)))

		if len(batch) < c.opts.BatchSize {
			break
		}
		offset += c.opts.BatchSize
	}

	c.logger.Debug("fetched events",
		"event_type", eventType,
		"rows", stats.Rows,
		"batches", stats.Batches,
		"skipped", stats.SkippedBatches,
	)
	return all, stats, nil
}

// fetchBatch reads one page, retrying transient failures with exponential
// backoff.
func (c *Client) fetchBatch(ctx context.Context, eventType string, since *time.Time, offset int) ([]models.Event, int, error) {
	attempts := 0
	op := func() ([]models.Event, error) {
		attempts++
		batchCtx, cancel := context.WithTimeout(ctx, c.opts.BatchTimeout)
		defer cancel()

		rows, err := c.src.FetchEvents(batchCtx, eventType, since, offset, c.opts.BatchSize)
		if err == nil {
			return rows, nil
		}
		if ctx.Err() != nil || !IsRetryable(err) {
			return nil, backoff.Permanent(err)
		}
		metrics.EventBatchRetries.WithLabelValues(eventType).Inc()
		return nil, err
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.opts.RetryDelay
	b.RandomizationFactor = 0
	b.Multiplier = 2

	rows, err := backoff.Retry(ctx, op,
		backoff.WithBackOff(b),
		backoff.WithMaxTries(uint(c.opts.MaxAttempts)),
	)
	retries := attempts - 1
	if retries < 0 {
		retries = 0
	}
	return rows, retries, err
}

// IsRetryable reports whether a store error is worth retrying: statement
// timeouts, per-batch deadlines and network timeouts.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == statementTimeout
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return pgconn.Timeout(err)
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
