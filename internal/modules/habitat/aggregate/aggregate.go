// Package aggregate keeps the per-minute averages table up to date.
package aggregate

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// lookback is how far back each tick re-aggregates; the previous minute may
// still receive late readings when the tick fires.
const lookback = 2 * time.Minute

// Store is the part of the reading store the job needs.
type Store interface {
	AggregateMinutes(ctx context.Context, since time.Time) (int64, error)
}

type Job struct {
	store    Store
	interval time.Duration
	location *time.Location
	logger   *slog.Logger
	now      func() time.Time

	// pending is the oldest instant not yet covered by a successful run.
	// Only the Run goroutine touches it.
	pending time.Time
}

func NewJob(store Store, interval time.Duration, loc *time.Location, logger *slog.Logger) *Job {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	if loc == nil {
		loc = time.Local
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Job{store: store, interval: interval, location: loc, logger: logger, now: time.Now}
}

// CatchUp aggregates everything since local midnight.
func (j *Job) CatchUp(ctx context.Context) (int64, error) {
	now := j.now().In(j.location)
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, j.location)
	return j.runFrom(ctx, now, midnight)
}

// Tick re-aggregates the recent minutes, reaching back to the oldest instant
// left uncovered by an earlier failed or widely spaced run.
func (j *Job) Tick(ctx context.Context) (int64, error) {
	now := j.now()
	since := now.Add(-lookback)
	if !j.pending.IsZero() && j.pending.Before(since) {
		since = j.pending
	}
	return j.runFrom(ctx, now, since)
}

func (j *Job) runFrom(ctx context.Context, now, since time.Time) (int64, error) {
	n, err := j.RunOnce(ctx, since)
	if err != nil {
		if j.pending.IsZero() || since.Before(j.pending) {
			j.pending = since
		}
		return 0, err
	}
	j.pending = now.Add(-lookback)
	return n, nil
}

// RunOnce upserts the averages of every minute starting at since.
func (j *Job) RunOnce(ctx context.Context, since time.Time) (int64, error) {
	n, err := j.store.AggregateMinutes(ctx, since)
	if err != nil {
		return 0, fmt.Errorf("aggregate since %s: %w", since.UTC().Format(time.RFC3339), err)
	}
	return n, nil
}

// Run catches up on today and then re-aggregates the recent minutes on every
// tick until ctx is done. Failures are logged and retried on the next tick.
func (j *Job) Run(ctx context.Context) error {
	if n, err := j.CatchUp(ctx); err != nil {
		j.logger.Error("minute aggregation catch-up failed", "error", err)
	} else {
		j.logger.Info("minute aggregation catch-up done", "minutes", n)
	}

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			n, err := j.Tick(ctx)
			if err != nil {
				j.logger.Error("minute aggregation failed", "error", err)
				continue
			}
			j.logger.Debug("minute aggregation", "minutes", n)
		}
	}
}
