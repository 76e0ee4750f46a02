package conversion

import (
	"context"
	"log/slog"
	"time"
)

// Pruner removes result files older than a cutoff.
type Pruner interface {
	PruneOutgoing(ctx context.Context, cutoff time.Time) (int, error)
}

// Janitor enforces a retention age on results and their records.
type Janitor struct {
	pruner Pruner
	repo   Repository
	maxAge time.Duration
	logger *slog.Logger
	now    func() time.Time
}

// NewJanitor creates a Janitor that removes results older than maxAge.
func NewJanitor(pruner Pruner, repo Repository, maxAge time.Duration, logger *slog.Logger) *Janitor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Janitor{
		pruner: pruner,
		repo:   repo,
		maxAge: maxAge,
		logger: logger,
		now:    time.Now,
	}
}

// Interval returns how often Run sweeps: a quarter of the retention age,
// clamped to [1m, 1h].
func (j *Janitor) Interval() time.Duration {
	return min(max(j.maxAge/4, time.Minute), time.Hour)
}

// Sweep prunes result files and terminal records older than the retention age.
// It returns the number of files removed.
func (j *Janitor) Sweep(ctx context.Context) (int, error) {
	cutoff := j.now().Add(-j.maxAge)

	removed, err := j.pruner.PruneOutgoing(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	conversions, err := j.repo.List(ctx)
	if err != nil {
		return removed, err
	}
	for _, c := range conversions {
		if c.IsTerminal() && c.CompletedAt.Before(cutoff) {
			if err := j.repo.Delete(ctx, c.ID); err != nil {
				j.logger.Warn("failed to delete expired conversion",
					slog.String("conversion_id", c.ID),
					slog.String("error", err.Error()),
				)
			}
		}
	}
	return removed, nil
}

// Run sweeps immediately and then every Interval until ctx is done.
func (j *Janitor) Run(ctx context.Context) {
	ticker := time.NewTicker(j.Interval())
	defer ticker.Stop()

	for {
		n, err := j.Sweep(ctx)
		if err != nil {
			j.logger.Warn("retention sweep failed", slog.String("error", err.Error()))
		} else if n > 0 {
			j.logger.Info("pruned expired results",
				slog.Int("removed", n),
				slog.Duration("max_age", j.maxAge),
			)
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
